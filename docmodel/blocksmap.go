package docmodel

import "sort"

// BlocksMapItem records where a block sits in the tree.
// Parent "" is the document root; Left "" means first among siblings.
type BlocksMapItem struct {
	Parent string `json:"parent"`
	Left   string `json:"left"`
	Block  *Block `json:"block"`
}

// BlocksMap is a flat, id-indexed snapshot of a tree: the diff baseline.
type BlocksMap map[string]BlocksMapItem

// BuildBlocksMap flattens nodes, which sit under parent, into a BlocksMap.
// Duplicate ids overwrite earlier entries; callers must not produce them.
func BuildBlocksMap(nodes []*BlockNode, parent string) BlocksMap {
	m := make(BlocksMap)
	buildInto(m, nodes, parent)
	return m
}

func buildInto(m BlocksMap, nodes []*BlockNode, parent string) {
	left := ""
	for _, n := range nodes {
		if n == nil || n.Block == nil {
			continue
		}
		m[n.Block.ID] = BlocksMapItem{Parent: parent, Left: left, Block: n.Block}
		buildInto(m, n.Children, n.Block.ID)
		left = n.Block.ID
	}
}

// IDs returns the block ids in the map, sorted.
func (m BlocksMap) IDs() []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Nodes rebuilds the nested forest from parent/left pointers.
// Siblings whose left chain is broken are appended in id order so every
// entry reachable from the root still appears exactly once.
func (m BlocksMap) Nodes() []*BlockNode {
	return m.NodesUnder("")
}

// NodesUnder is Nodes for a map built under parent.
func (m BlocksMap) NodesUnder(parent string) []*BlockNode {
	byParent := make(map[string][]string)
	for _, id := range m.IDs() {
		p := m[id].Parent
		byParent[p] = append(byParent[p], id)
	}

	visited := make(map[string]bool, len(m))
	var build func(parent string) []*BlockNode
	build = func(parent string) []*BlockNode {
		ids := byParent[parent]
		next := make(map[string]string, len(ids))
		for _, id := range ids {
			next[m[id].Left] = id
		}

		var ordered []string
		seen := make(map[string]bool, len(ids))
		for cur, ok := next[""]; ok && !seen[cur]; cur, ok = next[cur] {
			seen[cur] = true
			ordered = append(ordered, cur)
		}
		for _, id := range ids {
			if !seen[id] {
				ordered = append(ordered, id)
			}
		}

		var out []*BlockNode
		for _, id := range ordered {
			if visited[id] {
				continue
			}
			visited[id] = true
			out = append(out, &BlockNode{Block: m[id].Block, Children: build(id)})
		}
		return out
	}
	return build(parent)
}
