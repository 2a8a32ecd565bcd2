// Package docmodel holds the block-tree document model and the reconciliation
// primitives that turn an edited tree into an ordered change-list.
package docmodel

import "time"

// Annotation is an inline formatting range over a block's text.
type Annotation struct {
	Type       string            `json:"type"`
	Ref        string            `json:"ref,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Starts     []int32           `json:"starts,omitempty"`
	Ends       []int32           `json:"ends,omitempty"`
}

// Block is an atomic content unit. ID is assigned once and never reused.
type Block struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	Text        string            `json:"text"`
	Ref         string            `json:"ref,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	Annotations []Annotation      `json:"annotations,omitempty"`
	Revision    string            `json:"revision,omitempty"`
}

// Clone returns a deep copy of b.
func (b *Block) Clone() *Block {
	if b == nil {
		return nil
	}
	out := *b
	out.Attributes = cloneAttrs(b.Attributes)
	if b.Annotations != nil {
		out.Annotations = make([]Annotation, len(b.Annotations))
		for i, a := range b.Annotations {
			a.Attributes = cloneAttrs(a.Attributes)
			a.Starts = append([]int32(nil), a.Starts...)
			a.Ends = append([]int32(nil), a.Ends...)
			out.Annotations[i] = a
		}
	}
	return &out
}

func cloneAttrs(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// BlockNode pairs a block with its ordered children.
// A node with a nil Block is a placeholder: it and its children are ignored.
type BlockNode struct {
	Block    *Block       `json:"block"`
	Children []*BlockNode `json:"children,omitempty"`
}

// Node is a shorthand constructor used by editors and tests.
func Node(b *Block, children ...*BlockNode) *BlockNode {
	return &BlockNode{Block: b, Children: children}
}

// Document is a draft or published document.
type Document struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	Author     string       `json:"author,omitempty"`
	Children   []*BlockNode `json:"children"`
	CreateTime time.Time    `json:"createTime"`
	UpdateTime time.Time    `json:"updateTime"`
}

// Walk visits every meaningful node depth-first, parents before children.
func Walk(nodes []*BlockNode, fn func(n *BlockNode, parent string)) {
	walk(nodes, "", fn)
}

func walk(nodes []*BlockNode, parent string, fn func(*BlockNode, string)) {
	for _, n := range nodes {
		if n == nil || n.Block == nil {
			continue
		}
		fn(n, parent)
		walk(n.Children, n.Block.ID, fn)
	}
}

// CountBlocks returns the number of meaningful nodes in the forest.
func CountBlocks(nodes []*BlockNode) int {
	count := 0
	Walk(nodes, func(*BlockNode, string) { count++ })
	return count
}
