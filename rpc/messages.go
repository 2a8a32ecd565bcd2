package rpc

import (
	"github.com/teranos/hmdraft/docmodel"
	"github.com/teranos/hmdraft/draftstore"
)

// GetDraftRequest names a draft.
type GetDraftRequest struct {
	DocumentID string `json:"documentId"`
}

// CreateDraftRequest creates an empty draft.
type CreateDraftRequest struct {
	ExistingDocumentID string `json:"existingDocumentId,omitempty"`
	Title              string `json:"title,omitempty"`
	Author             string `json:"author,omitempty"`
}

// UpdateDraftRequest carries an ordered change-list.
type UpdateDraftRequest struct {
	DocumentID string                    `json:"documentId"`
	Changes    []docmodel.DocumentChange `json:"changes"`
}

// DeleteDraftRequest names a draft to delete.
type DeleteDraftRequest struct {
	DocumentID string `json:"documentId"`
}

// ListDraftsRequest is empty.
type ListDraftsRequest struct{}

// ListDraftsResponse lists drafts, most recent first.
type ListDraftsResponse struct {
	Drafts []draftstore.Summary `json:"drafts"`
}

// InfoRequest is empty.
type InfoRequest struct{}

// Empty is returned by calls without a result.
type Empty struct{}
