package docmodel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func blk(id, text string) *Block {
	return &Block{ID: id, Type: "paragraph", Text: text}
}

func leaf(id, text string) *BlockNode {
	return Node(blk(id, text))
}

// positions flattens a forest into id -> "parent/left/text" for comparison
func positions(nodes []*BlockNode) map[string]string {
	out := map[string]string{}
	for id, item := range BuildBlocksMap(nodes, "") {
		out[id] = item.Parent + "/" + item.Left + "/" + item.Block.Text
	}
	return out
}

func mustDiff(t *testing.T, m BlocksMap, nodes []*BlockNode, parent string) DiffResult {
	t.Helper()
	res, err := Diff(m, nodes, parent)
	require.NoError(t, err)
	return res
}

func mustComputeChanges(t *testing.T, baselineTitle string, baseline BlocksMap, title string, nodes []*BlockNode) []DocumentChange {
	t.Helper()
	changes, err := ComputeChanges(baselineTitle, baseline, title, nodes)
	require.NoError(t, err)
	return changes
}
