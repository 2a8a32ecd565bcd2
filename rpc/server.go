package rpc

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/teranos/hmdraft/errors"
	"github.com/teranos/hmdraft/logger"
)

// Server serves hmdraft.Drafts.
type Server struct {
	grpc   *grpc.Server
	logger *zap.SugaredLogger
}

// NewServer registers svc on a new gRPC server.
func NewServer(svc DraftService, log *zap.SugaredLogger) *Server {
	s := &Server{logger: logger.OrNop(log)}
	s.grpc = grpc.NewServer(grpc.ChainUnaryInterceptor(s.logCalls))
	s.grpc.RegisterService(&ServiceDesc, svc)
	return s
}

// Serve accepts connections on lis until Stop.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Infow("Drafts RPC listening", logger.FieldAddress, lis.Addr().String())
	if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return errors.Wrap(err, "drafts rpc server")
	}
	return nil
}

// Stop drains in-flight calls, or stops hard once ctx is done.
func (s *Server) Stop(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.grpc.Stop()
	}
}

func (s *Server) logCalls(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	fields := []interface{}{
		logger.FieldMethod, info.FullMethod,
		logger.FieldDurationMS, time.Since(start).Milliseconds(),
	}
	if u, ok := req.(*UpdateDraftRequest); ok {
		fields = append(fields, logger.FieldDocumentID, u.DocumentID, logger.FieldChangeCount, len(u.Changes))
	}
	if err != nil {
		s.logger.Warnw("RPC failed", append(fields, logger.FieldError, err)...)
		return nil, toStatus(err)
	}
	s.logger.Debugw("RPC handled", fields...)
	return resp, nil
}
