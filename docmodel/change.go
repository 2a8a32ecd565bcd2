package docmodel

import (
	"encoding/json"
	"fmt"

	"github.com/teranos/hmdraft/errors"
)

// ChangeKind names a DocumentChange variant.
type ChangeKind string

const (
	KindMoveBlock    ChangeKind = "moveBlock"
	KindReplaceBlock ChangeKind = "replaceBlock"
	KindDeleteBlock  ChangeKind = "deleteBlock"
	KindSetTitle     ChangeKind = "setTitle"
)

// MoveBlock declares a (possibly new) tree position.
type MoveBlock struct {
	BlockID     string `json:"blockId"`
	LeftSibling string `json:"leftSibling"`
	Parent      string `json:"parent"`
}

// DeleteBlock removes a block and its subtree.
type DeleteBlock struct {
	BlockID string `json:"blockId"`
}

// SetTitle changes the document title.
type SetTitle struct {
	Title string `json:"title"`
}

// DocumentChange is one reconciliation operation. Exactly one field is set.
type DocumentChange struct {
	MoveBlock    *MoveBlock   `json:"moveBlock,omitempty"`
	ReplaceBlock *Block       `json:"replaceBlock,omitempty"`
	DeleteBlock  *DeleteBlock `json:"deleteBlock,omitempty"`
	SetTitle     *SetTitle    `json:"setTitle,omitempty"`
}

func NewMoveBlock(blockID, leftSibling, parent string) DocumentChange {
	return DocumentChange{MoveBlock: &MoveBlock{BlockID: blockID, LeftSibling: leftSibling, Parent: parent}}
}

func NewReplaceBlock(b *Block) DocumentChange {
	return DocumentChange{ReplaceBlock: b.Clone()}
}

func NewDeleteBlock(blockID string) DocumentChange {
	return DocumentChange{DeleteBlock: &DeleteBlock{BlockID: blockID}}
}

func NewSetTitle(title string) DocumentChange {
	return DocumentChange{SetTitle: &SetTitle{Title: title}}
}

// Kind returns the variant, or "" when the change is malformed.
func (c DocumentChange) Kind() ChangeKind {
	if c.set() != 1 {
		return ""
	}
	switch {
	case c.MoveBlock != nil:
		return KindMoveBlock
	case c.ReplaceBlock != nil:
		return KindReplaceBlock
	case c.DeleteBlock != nil:
		return KindDeleteBlock
	default:
		return KindSetTitle
	}
}

func (c DocumentChange) set() int {
	n := 0
	if c.MoveBlock != nil {
		n++
	}
	if c.ReplaceBlock != nil {
		n++
	}
	if c.DeleteBlock != nil {
		n++
	}
	if c.SetTitle != nil {
		n++
	}
	return n
}

// BlockID returns the block a change targets, "" for setTitle.
func (c DocumentChange) BlockID() string {
	switch c.Kind() {
	case KindMoveBlock:
		return c.MoveBlock.BlockID
	case KindReplaceBlock:
		return c.ReplaceBlock.ID
	case KindDeleteBlock:
		return c.DeleteBlock.BlockID
	}
	return ""
}

// Validate checks the change is well formed.
func (c DocumentChange) Validate() error {
	switch c.Kind() {
	case "":
		return errors.NewInvalidChangeError("change must set exactly one operation, got %d", c.set())
	case KindMoveBlock, KindReplaceBlock, KindDeleteBlock:
		if c.BlockID() == "" {
			return errors.NewInvalidChangeError("%s requires a block id", c.Kind())
		}
	}
	return nil
}

func (c DocumentChange) String() string {
	switch c.Kind() {
	case KindMoveBlock:
		return fmt.Sprintf("move %s parent=%q left=%q", c.MoveBlock.BlockID, c.MoveBlock.Parent, c.MoveBlock.LeftSibling)
	case KindReplaceBlock:
		return fmt.Sprintf("replace %s %q", c.ReplaceBlock.ID, c.ReplaceBlock.Text)
	case KindDeleteBlock:
		return fmt.Sprintf("delete %s", c.DeleteBlock.BlockID)
	case KindSetTitle:
		return fmt.Sprintf("title %q", c.SetTitle.Title)
	}
	return "invalid change"
}

type changeJSON struct {
	Op           ChangeKind   `json:"op"`
	MoveBlock    *MoveBlock   `json:"moveBlock,omitempty"`
	ReplaceBlock *Block       `json:"replaceBlock,omitempty"`
	DeleteBlock  *DeleteBlock `json:"deleteBlock,omitempty"`
	SetTitle     *SetTitle    `json:"setTitle,omitempty"`
}

// MarshalJSON adds an "op" discriminator.
func (c DocumentChange) MarshalJSON() ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(changeJSON{
		Op:           c.Kind(),
		MoveBlock:    c.MoveBlock,
		ReplaceBlock: c.ReplaceBlock,
		DeleteBlock:  c.DeleteBlock,
		SetTitle:     c.SetTitle,
	})
}

// UnmarshalJSON rejects changes whose payload does not match "op".
func (c *DocumentChange) UnmarshalJSON(data []byte) error {
	var raw changeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "decode document change")
	}
	out := DocumentChange{
		MoveBlock:    raw.MoveBlock,
		ReplaceBlock: raw.ReplaceBlock,
		DeleteBlock:  raw.DeleteBlock,
		SetTitle:     raw.SetTitle,
	}
	if err := out.Validate(); err != nil {
		return err
	}
	if raw.Op != "" && raw.Op != out.Kind() {
		return errors.NewInvalidChangeError("op %q does not match %s payload", raw.Op, out.Kind())
	}
	*c = out
	return nil
}

// CountByKind tallies a change-list, for logs and summaries.
func CountByKind(changes []DocumentChange) map[ChangeKind]int {
	counts := make(map[ChangeKind]int, 4)
	for _, c := range changes {
		counts[c.Kind()]++
	}
	return counts
}
