package rpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/teranos/hmdraft/draft"
	"github.com/teranos/hmdraft/draftstore"
	"github.com/teranos/hmdraft/version"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "hmdraft.Drafts"

// DraftService is what the daemon serves. draftstore.Store implements it.
type DraftService interface {
	draft.Gateway
	ListDrafts(ctx context.Context) ([]draftstore.Summary, error)
}

var _ DraftService = (*draftstore.Store)(nil)

// Method names
const (
	MethodGetDraft    = "GetDraft"
	MethodCreateDraft = "CreateDraft"
	MethodUpdateDraft = "UpdateDraft"
	MethodDeleteDraft = "DeleteDraft"
	MethodListDrafts  = "ListDrafts"
	MethodInfo        = "Info"
)

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// unary builds a method handler that decodes Req and calls fn.
func unary[Req any](name string, fn func(ctx context.Context, svc DraftService, req *Req) (interface{}, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			svc := srv.(DraftService)
			if interceptor == nil {
				return fn(ctx, svc, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return fn(ctx, svc, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes hmdraft.Drafts.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DraftService)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodGetDraft, func(ctx context.Context, svc DraftService, req *GetDraftRequest) (interface{}, error) {
			return svc.GetDraft(ctx, req.DocumentID)
		}),
		unary(MethodCreateDraft, func(ctx context.Context, svc DraftService, req *CreateDraftRequest) (interface{}, error) {
			return svc.CreateDraft(ctx, draft.CreateOptions{
				ExistingDocumentID: req.ExistingDocumentID,
				Title:              req.Title,
				Author:             req.Author,
			})
		}),
		unary(MethodUpdateDraft, func(ctx context.Context, svc DraftService, req *UpdateDraftRequest) (interface{}, error) {
			return svc.UpdateDraft(ctx, req.DocumentID, req.Changes)
		}),
		unary(MethodDeleteDraft, func(ctx context.Context, svc DraftService, req *DeleteDraftRequest) (interface{}, error) {
			if err := svc.DeleteDraft(ctx, req.DocumentID); err != nil {
				return nil, err
			}
			return &Empty{}, nil
		}),
		unary(MethodListDrafts, func(ctx context.Context, svc DraftService, _ *ListDraftsRequest) (interface{}, error) {
			drafts, err := svc.ListDrafts(ctx)
			if err != nil {
				return nil, err
			}
			return &ListDraftsResponse{Drafts: drafts}, nil
		}),
		unary(MethodInfo, func(context.Context, DraftService, *InfoRequest) (interface{}, error) {
			info := version.Get()
			return &info, nil
		}),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "hmdraft/drafts",
}
