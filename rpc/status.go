package rpc

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/teranos/hmdraft/errors"
)

// toStatus maps domain sentinels onto gRPC codes.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	code := codes.Internal
	switch {
	case errors.IsNotFoundError(err):
		code = codes.NotFound
	case errors.IsInvalidChangeError(err):
		code = codes.FailedPrecondition
	case errors.IsInvalidRequestError(err):
		code = codes.InvalidArgument
	case errors.IsConflictError(err):
		code = codes.AlreadyExists
	case errors.Is(err, errors.ErrServiceUnavailable):
		code = codes.Unavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, errors.ErrTimeout):
		code = codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	}
	return status.Error(code, err.Error())
}

// fromStatus turns a gRPC status back into a domain error, so callers can
// keep using errors.IsNotFoundError and friends across the wire.
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok || err == nil {
		return err
	}

	msg := errors.New(st.Message())
	switch st.Code() {
	case codes.NotFound:
		return errors.Mark(msg, errors.ErrNotFound)
	case codes.FailedPrecondition:
		return errors.Mark(msg, errors.ErrInvalidChange)
	case codes.InvalidArgument:
		return errors.Mark(msg, errors.ErrInvalidRequest)
	case codes.AlreadyExists:
		return errors.Mark(msg, errors.ErrConflict)
	case codes.Unavailable:
		return errors.WithHint(errors.Mark(msg, errors.ErrServiceUnavailable), "is the daemon running? start it with: hmdraft serve")
	case codes.DeadlineExceeded:
		return errors.Mark(msg, errors.ErrTimeout)
	case codes.Canceled:
		return errors.Mark(msg, context.Canceled)
	}
	return errors.Wrapf(msg, "rpc %s", st.Code())
}
