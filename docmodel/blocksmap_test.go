package docmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildBlocksMap_SingleBlock(t *testing.T) {
	b := &Block{ID: "1", Text: "hello", Annotations: []Annotation{}, Attributes: map[string]string{}}

	m := BuildBlocksMap([]*BlockNode{Node(b)}, "")

	require.Len(t, m, 1)
	assert.Equal(t, BlocksMapItem{Parent: "", Left: "", Block: b}, m["1"])
}

func TestBuildBlocksMap_SiblingsAndNesting(t *testing.T) {
	nodes := []*BlockNode{
		Node(blk("a", "A"),
			leaf("a1", "A1"),
			leaf("a2", "A2"),
		),
		leaf("b", "B"),
		Node(blk("c", "C"),
			Node(blk("c1", "C1"), leaf("c1x", "deep")),
		),
	}

	m := BuildBlocksMap(nodes, "")

	assert.Len(t, m, CountBlocks(nodes))
	expected := map[string][2]string{
		"a":   {"", ""},
		"a1":  {"a", ""},
		"a2":  {"a", "a1"},
		"b":   {"", "a"},
		"c":   {"", "b"},
		"c1":  {"c", ""},
		"c1x": {"c1", ""},
	}
	for id, want := range expected {
		item, ok := m[id]
		require.True(t, ok, "missing %s", id)
		assert.Equal(t, want[0], item.Parent, "parent of %s", id)
		assert.Equal(t, want[1], item.Left, "left of %s", id)
	}
}

func TestBuildBlocksMap_ParentArgument(t *testing.T) {
	m := BuildBlocksMap([]*BlockNode{leaf("x", ""), leaf("y", "")}, "root-block")

	assert.Equal(t, "root-block", m["x"].Parent)
	assert.Equal(t, "x", m["y"].Left)
}

func TestBuildBlocksMap_SkipsPlaceholders(t *testing.T) {
	nodes := []*BlockNode{
		leaf("a", ""),
		{Block: nil, Children: []*BlockNode{leaf("hidden", "")}},
		nil,
		leaf("b", ""),
	}

	m := BuildBlocksMap(nodes, "")

	assert.ElementsMatch(t, []string{"a", "b"}, m.IDs())
	assert.Equal(t, "a", m["b"].Left, "placeholders do not count as left siblings")
}

func TestBlocksMapNodes_RoundTrip(t *testing.T) {
	nodes := []*BlockNode{
		Node(blk("z", "Z"), leaf("z2", ""), leaf("z1", "")),
		leaf("m", ""),
		leaf("a", ""),
	}
	m := BuildBlocksMap(nodes, "")

	rebuilt := m.Nodes()

	assert.Equal(t, positions(nodes), positions(rebuilt))
	require.Len(t, rebuilt, 3)
	assert.Equal(t, "z", rebuilt[0].Block.ID, "order follows left pointers, not ids")
	assert.Equal(t, "z2", rebuilt[0].Children[0].Block.ID)
}

func TestBlocksMapNodes_BrokenChain(t *testing.T) {
	m := BlocksMap{
		"a": {Parent: "", Left: "", Block: blk("a", "")},
		"b": {Parent: "", Left: "missing", Block: blk("b", "")},
	}

	nodes := m.Nodes()

	require.Len(t, nodes, 2)
	assert.Equal(t, "a", nodes[0].Block.ID)
	assert.Equal(t, "b", nodes[1].Block.ID)
}
