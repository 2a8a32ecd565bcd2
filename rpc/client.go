package rpc

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/teranos/hmdraft/docmodel"
	"github.com/teranos/hmdraft/draft"
	"github.com/teranos/hmdraft/draftstore"
	"github.com/teranos/hmdraft/errors"
	"github.com/teranos/hmdraft/logger"
	"github.com/teranos/hmdraft/version"
)

// ClientOptions configures Dial.
type ClientOptions struct {
	// Timeout bounds each call that has no earlier deadline. Zero means none.
	Timeout time.Duration
	// APIConstraint is checked against the daemon's API version on connect.
	APIConstraint string
	Logger        *zap.SugaredLogger
}

// Client talks to a daemon. It satisfies draft.Gateway.
type Client struct {
	conn    *grpc.ClientConn
	timeout time.Duration
	logger  *zap.SugaredLogger
	info    version.Info
}

var _ draft.Gateway = (*Client)(nil)

// Dial connects to addr and verifies API compatibility.
func Dial(ctx context.Context, addr string, opts ClientOptions) (*Client, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create client for %s", addr)
	}

	c := &Client{
		conn:    conn,
		timeout: opts.Timeout,
		logger:  logger.OrNop(opts.Logger).With(logger.FieldAddress, addr),
	}

	if err := c.invoke(ctx, MethodInfo, &InfoRequest{}, &c.info); err != nil {
		conn.Close()
		return nil, errors.Wrapf(err, "failed to reach daemon at %s", addr)
	}
	if err := version.CheckAPI(opts.APIConstraint, c.info.APIVersion); err != nil {
		conn.Close()
		return nil, err
	}

	c.logger.Debugw("Connected to daemon", "daemon_version", c.info.Version, "api_version", c.info.APIVersion)
	return c, nil
}

// Info is the daemon's version info, fetched on connect.
func (c *Client) Info() version.Info {
	return c.info
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) GetDraft(ctx context.Context, id string) (*docmodel.Document, error) {
	doc := &docmodel.Document{}
	if err := c.invoke(ctx, MethodGetDraft, &GetDraftRequest{DocumentID: id}, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *Client) CreateDraft(ctx context.Context, opts draft.CreateOptions) (*docmodel.Document, error) {
	req := &CreateDraftRequest{
		ExistingDocumentID: opts.ExistingDocumentID,
		Title:              opts.Title,
		Author:             opts.Author,
	}
	doc := &docmodel.Document{}
	if err := c.invoke(ctx, MethodCreateDraft, req, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *Client) UpdateDraft(ctx context.Context, id string, changes []docmodel.DocumentChange) (*docmodel.Document, error) {
	doc := &docmodel.Document{}
	if err := c.invoke(ctx, MethodUpdateDraft, &UpdateDraftRequest{DocumentID: id, Changes: changes}, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *Client) DeleteDraft(ctx context.Context, id string) error {
	return c.invoke(ctx, MethodDeleteDraft, &DeleteDraftRequest{DocumentID: id}, &Empty{})
}

// ListDrafts lists the daemon's drafts, most recent first.
func (c *Client) ListDrafts(ctx context.Context) ([]draftstore.Summary, error) {
	resp := &ListDraftsResponse{}
	if err := c.invoke(ctx, MethodListDrafts, &ListDraftsRequest{}, resp); err != nil {
		return nil, err
	}
	return resp.Drafts, nil
}

func (c *Client) invoke(ctx context.Context, method string, req, resp interface{}) error {
	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if err := c.conn.Invoke(ctx, fullMethod(method), req, resp); err != nil {
		return errors.Wrapf(fromStatus(err), "%s", method)
	}
	return nil
}
