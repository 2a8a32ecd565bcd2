package docmodel

import (
	"time"

	"github.com/teranos/hmdraft/errors"
)

// Tree is a mutable document that change-lists are applied to.
// Block content is kept separately from positions: deleting a block drops
// its position (and its subtree's), and a later move positions it again.
// Siblings are a doubly linked list per parent, so Position and Move are O(1).
type Tree struct {
	ID         string
	Title      string
	Author     string
	CreateTime time.Time
	UpdateTime time.Time

	root    string // virtual root, "" for a whole document
	blocks  map[string]*Block
	parents map[string]string // positioned blocks only
	prev    map[string]string
	next    map[string]string
	first   map[string]string // parent -> first child
	last    map[string]string // parent -> last child
}

// NewTree loads doc into a Tree. Duplicate block ids are rejected.
func NewTree(doc *Document) (*Tree, error) {
	t := newTree("")
	if doc == nil {
		return t, nil
	}
	t.ID, t.Title, t.Author = doc.ID, doc.Title, doc.Author
	t.CreateTime, t.UpdateTime = doc.CreateTime, doc.UpdateTime

	var err error
	Walk(doc.Children, func(n *BlockNode, parent string) {
		if err != nil {
			return
		}
		id := n.Block.ID
		if id == "" {
			err = errors.NewInvalidChangeError("block without id under %q", parent)
			return
		}
		if _, dup := t.parents[id]; dup {
			err = errors.NewInvalidChangeError("duplicate block id %q", id)
			return
		}
		t.place(id, parent)
		t.blocks[id] = n.Block.Clone()
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// treeFromMap positions every entry of m reachable from root, treating root
// as the tree's virtual root. Used to simulate moves while diffing.
func treeFromMap(m BlocksMap, root string) *Tree {
	t := newTree(root)
	walk(m.NodesUnder(root), root, func(n *BlockNode, parent string) {
		t.place(n.Block.ID, parent)
		t.blocks[n.Block.ID] = n.Block
	})
	return t
}

func newTree(root string) *Tree {
	return &Tree{
		root:    root,
		blocks:  make(map[string]*Block),
		parents: make(map[string]string),
		prev:    make(map[string]string),
		next:    make(map[string]string),
		first:   make(map[string]string),
		last:    make(map[string]string),
	}
}

// place appends id as the last child of parent.
func (t *Tree) place(id, parent string) {
	t.insertAfter(id, parent, t.last[parent])
}

// insertAfter links id into parent's children right after left ("" = first).
func (t *Tree) insertAfter(id, parent, left string) {
	var right string
	if left == "" {
		right = t.first[parent]
		t.first[parent] = id
	} else {
		right = t.next[left]
		t.next[left] = id
	}
	if right == "" {
		t.last[parent] = id
	} else {
		t.prev[right] = id
	}
	setOrDelete(t.prev, id, left)
	setOrDelete(t.next, id, right)
	t.parents[id] = parent
}

func setOrDelete(m map[string]string, k, v string) {
	if v == "" {
		delete(m, k)
		return
	}
	m[k] = v
}

// Has reports whether id is positioned in the tree.
func (t *Tree) Has(id string) bool {
	_, ok := t.parents[id]
	return ok
}

// Len returns the number of positioned blocks.
func (t *Tree) Len() int {
	return len(t.parents)
}

// Position returns the parent and left sibling of id.
func (t *Tree) Position(id string) (parent, left string, ok bool) {
	parent, ok = t.parents[id]
	if !ok {
		return "", "", false
	}
	return parent, t.prev[id], true
}

// Block returns the content of a positioned block.
func (t *Tree) Block(id string) (*Block, bool) {
	if !t.Has(id) {
		return nil, false
	}
	return t.blocks[id], true
}

// Apply applies changes in order, stopping at the first invalid one.
// The tree may be partially modified on error; callers discard it.
func (t *Tree) Apply(changes ...DocumentChange) error {
	for i, c := range changes {
		if err := c.Validate(); err != nil {
			return errors.Wrapf(err, "change %d", i)
		}
		var err error
		switch c.Kind() {
		case KindMoveBlock:
			err = t.Move(c.MoveBlock.BlockID, c.MoveBlock.LeftSibling, c.MoveBlock.Parent)
		case KindReplaceBlock:
			err = t.Replace(c.ReplaceBlock)
		case KindDeleteBlock:
			t.Delete(c.DeleteBlock.BlockID)
		case KindSetTitle:
			t.Title = c.SetTitle.Title
		}
		if err != nil {
			return errors.Wrapf(err, "change %d (%s)", i, c.Kind())
		}
	}
	return nil
}

// Move positions id under parent right after left ("" = first). Arguments
// follow the moveBlock wire order. An unknown id is created empty; its
// content arrives with a replace.
func (t *Tree) Move(id, left, parent string) error {
	switch {
	case id == "":
		return errors.NewInvalidChangeError("move requires a block id")
	case parent != t.root && !t.Has(parent):
		return errors.NewInvalidChangeError("parent %q of %q is not in the document", parent, id)
	case parent == id || t.isAncestor(id, parent):
		return errors.NewInvalidChangeError("moving %q under %q would create a cycle", id, parent)
	case left == id:
		return errors.NewInvalidChangeError("block %q cannot be its own left sibling", id)
	case left != "" && (!t.Has(left) || t.parents[left] != parent):
		return errors.NewInvalidChangeError("left sibling %q is not a child of %q", left, parent)
	}

	if old, ok := t.parents[id]; ok {
		t.detach(id, old)
	}
	t.insertAfter(id, parent, left)

	if _, ok := t.blocks[id]; !ok {
		t.blocks[id] = &Block{ID: id}
	}
	return nil
}

// Replace sets the content of a positioned block.
func (t *Tree) Replace(b *Block) error {
	if b == nil || b.ID == "" {
		return errors.NewInvalidChangeError("replace requires a block with an id")
	}
	if !t.Has(b.ID) {
		return errors.NewInvalidChangeError("block %q has no position, move it first", b.ID)
	}
	t.blocks[b.ID] = b.Clone()
	return nil
}

// Delete removes id and its subtree. Deleting an absent block is a no-op.
func (t *Tree) Delete(id string) bool {
	parent, ok := t.parents[id]
	if !ok {
		return false
	}
	t.detach(id, parent)
	t.unposition(id)
	return true
}

func (t *Tree) unposition(id string) {
	for _, child := range t.childIDs(id) {
		t.unposition(child)
	}
	delete(t.first, id)
	delete(t.last, id)
	delete(t.prev, id)
	delete(t.next, id)
	delete(t.parents, id)
}

// detach unlinks id from parent's children.
func (t *Tree) detach(id, parent string) {
	left, right := t.prev[id], t.next[id]
	if left == "" {
		setOrDelete(t.first, parent, right)
	} else {
		setOrDelete(t.next, left, right)
	}
	if right == "" {
		setOrDelete(t.last, parent, left)
	} else {
		setOrDelete(t.prev, right, left)
	}
	delete(t.prev, id)
	delete(t.next, id)
	delete(t.parents, id)
}

func (t *Tree) childIDs(parent string) []string {
	var ids []string
	for id := t.first[parent]; id != ""; id = t.next[id] {
		ids = append(ids, id)
	}
	return ids
}

// isAncestor reports whether a is an ancestor of b.
func (t *Tree) isAncestor(a, b string) bool {
	for cur := b; cur != t.root; {
		p, ok := t.parents[cur]
		if !ok {
			return false
		}
		if p == a {
			return true
		}
		cur = p
	}
	return false
}

// Document hydrates the nested form of the tree.
func (t *Tree) Document() *Document {
	return &Document{
		ID:         t.ID,
		Title:      t.Title,
		Author:     t.Author,
		Children:   t.nodes(t.root),
		CreateTime: t.CreateTime,
		UpdateTime: t.UpdateTime,
	}
}

func (t *Tree) nodes(parent string) []*BlockNode {
	ids := t.childIDs(parent)
	if len(ids) == 0 {
		return nil
	}
	out := make([]*BlockNode, 0, len(ids))
	for _, id := range ids {
		out = append(out, &BlockNode{Block: t.blocks[id].Clone(), Children: t.nodes(id)})
	}
	return out
}

// BlocksMap returns the flat form of the tree.
func (t *Tree) BlocksMap() BlocksMap {
	return BuildBlocksMap(t.nodes(t.root), t.root)
}
