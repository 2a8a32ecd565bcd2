package docmodel

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/hmdraft/errors"
)

func newSampleTree(t *testing.T) *Tree {
	t.Helper()
	tree, err := NewTree(&Document{ID: "doc", Title: "T", Children: sampleTree()})
	require.NoError(t, err)
	return tree
}

func TestNewTree_RejectsDuplicates(t *testing.T) {
	_, err := NewTree(&Document{Children: []*BlockNode{leaf("a", ""), Node(blk("b", ""), leaf("a", ""))}})
	require.Error(t, err)
	assert.True(t, errors.IsInvalidChangeError(err))
}

func TestNewTree_Nil(t *testing.T) {
	tree, err := NewTree(nil)
	require.NoError(t, err)
	assert.Zero(t, tree.Len())
	assert.Empty(t, tree.Document().Children)
}

func TestTree_Position(t *testing.T) {
	tree := newSampleTree(t)

	parent, left, ok := tree.Position("a2")
	require.True(t, ok)
	assert.Equal(t, "a", parent)
	assert.Equal(t, "a1", left)

	_, _, ok = tree.Position("missing")
	assert.False(t, ok)
}

func TestTree_MoveWithinParent(t *testing.T) {
	tree := newSampleTree(t)

	require.NoError(t, tree.Move("c", "", ""))

	var ids []string
	for _, n := range tree.Document().Children {
		ids = append(ids, n.Block.ID)
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)

	// children travel with the block
	_, _, ok := tree.Position("c1")
	assert.True(t, ok)
	parent, _, _ := tree.Position("c1")
	assert.Equal(t, "c", parent)
}

func TestTree_MoveCreatesBlock(t *testing.T) {
	tree := newSampleTree(t)

	require.NoError(t, tree.Move("new", "", "b"))
	b, ok := tree.Block("new")
	require.True(t, ok)
	assert.Equal(t, "new", b.ID)
	assert.Empty(t, b.Text)
}

func TestTree_MoveErrors(t *testing.T) {
	tests := []struct {
		name             string
		id, parent, left string
	}{
		{"empty id", "", "", ""},
		{"unknown parent", "b", "nope", ""},
		{"under itself", "a", "a", ""},
		{"under descendant", "a", "a1", ""},
		{"own left sibling", "b", "", "b"},
		{"left under another parent", "b", "", "a1"},
		{"unknown left", "b", "", "ghost"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := newSampleTree(t)
			before := tree.BlocksMap()

			err := tree.Move(tt.id, tt.left, tt.parent)

			require.Error(t, err)
			assert.True(t, errors.IsInvalidChangeError(err))
			assert.Equal(t, before, tree.BlocksMap(), "failed move leaves tree untouched")
		})
	}
}

func TestTree_WideLevel(t *testing.T) {
	const n = 2000
	nodes := make([]*BlockNode, 0, n)
	for i := 0; i < n; i++ {
		nodes = append(nodes, leaf(fmt.Sprintf("b%04d", i), ""))
	}
	tree, err := NewTree(&Document{Children: nodes})
	require.NoError(t, err)

	parent, left, ok := tree.Position("b1500")
	require.True(t, ok)
	assert.Equal(t, "", parent)
	assert.Equal(t, "b1499", left)

	// reverse the level one move at a time
	for i := 1; i < n; i++ {
		require.NoError(t, tree.Move(fmt.Sprintf("b%04d", i), "", ""))
	}
	children := tree.Document().Children
	require.Len(t, children, n)
	assert.Equal(t, "b1999", children[0].Block.ID)
	assert.Equal(t, "b0000", children[n-1].Block.ID)

	// unlinking from the middle keeps both neighbours joined
	assert.True(t, tree.Delete("b1000"))
	_, left, _ = tree.Position("b0999")
	assert.Equal(t, "b1001", left)
	assert.Len(t, tree.Document().Children, n-1)
	assert.Equal(t, tree.BlocksMap(), BuildBlocksMap(tree.Document().Children, ""))
}

func TestTree_Replace(t *testing.T) {
	tree := newSampleTree(t)

	nb := blk("b", "B2")
	require.NoError(t, tree.Replace(nb))
	nb.Text = "mutated after replace"

	b, _ := tree.Block("b")
	assert.Equal(t, "B2", b.Text)

	err := tree.Replace(blk("floating", "x"))
	assert.True(t, errors.IsInvalidChangeError(err))
	assert.Error(t, tree.Replace(&Block{}))
}

func TestTree_Delete(t *testing.T) {
	tree := newSampleTree(t)

	assert.True(t, tree.Delete("a"))
	assert.False(t, tree.Has("a"))
	assert.False(t, tree.Has("a1"), "subtree is removed")
	assert.False(t, tree.Delete("a"), "second delete is a no-op")
	assert.False(t, tree.Delete("a1"))
	assert.Equal(t, 3, tree.Len())
}

func TestTree_ResurrectAfterDelete(t *testing.T) {
	tree := newSampleTree(t)
	tree.Delete("b")

	require.NoError(t, tree.Move("b", "", ""))
	b, ok := tree.Block("b")
	require.True(t, ok)
	assert.Equal(t, "B", b.Text, "content survives deletion")
}

func TestTree_Apply(t *testing.T) {
	tree := newSampleTree(t)

	err := tree.Apply(
		NewSetTitle("Renamed"),
		NewMoveBlock("x", "", "a2"),
		NewReplaceBlock(blk("x", "nested")),
		NewDeleteBlock("c"),
	)
	require.NoError(t, err)

	doc := tree.Document()
	assert.Equal(t, "Renamed", doc.Title)
	assert.Equal(t, "doc", doc.ID)
	m := tree.BlocksMap()
	assert.Equal(t, "a2", m["x"].Parent)
	assert.NotContains(t, m, "c")
	assert.NotContains(t, m, "c1")
}

func TestTree_ApplyStopsAtInvalid(t *testing.T) {
	tree := newSampleTree(t)

	err := tree.Apply(
		NewDeleteBlock("b"),
		NewReplaceBlock(blk("unpositioned", "")),
		NewDeleteBlock("c"),
	)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "change 1")
	assert.True(t, tree.Has("c"), "later changes are not applied")
}

func TestTree_ApplyRejectsMalformed(t *testing.T) {
	tree := newSampleTree(t)
	err := tree.Apply(DocumentChange{})
	assert.True(t, errors.IsInvalidChangeError(err))
}
