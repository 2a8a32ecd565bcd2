package draft

import (
	"context"

	"github.com/teranos/hmdraft/docmodel"
)

// Gateway is the remote drafts service.
type Gateway interface {
	GetDraft(ctx context.Context, documentID string) (*docmodel.Document, error)
	// UpdateDraft applies changes in order, atomically, and returns the
	// resulting document.
	UpdateDraft(ctx context.Context, documentID string, changes []docmodel.DocumentChange) (*docmodel.Document, error)
	CreateDraft(ctx context.Context, opts CreateOptions) (*docmodel.Document, error)
	DeleteDraft(ctx context.Context, documentID string) error
}

// CreateOptions configures CreateDraft.
type CreateOptions struct {
	// ExistingDocumentID creates the draft under this id instead of a new one.
	ExistingDocumentID string `json:"existingDocumentId,omitempty"`
	Title              string `json:"title,omitempty"`
	Author             string `json:"author,omitempty"`
}

// Editor is the live block tree the machine diffs. The machine only reads
// Blocks and never mutates what it returns.
type Editor interface {
	Populate(doc *docmodel.Document) error
	Blocks() []*docmodel.BlockNode
}

// Diagnosis receives a best-effort log of gateway calls. Implementations
// must not block.
type Diagnosis interface {
	Append(draftID, key string, value interface{})
	Complete(draftID, key string, value interface{})
}

type nopDiagnosis struct{}

func (nopDiagnosis) Append(string, string, interface{})   {}
func (nopDiagnosis) Complete(string, string, interface{}) {}
