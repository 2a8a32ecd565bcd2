package docmodel

import (
	"sort"

	"github.com/teranos/hmdraft/errors"
)

// DiffResult is the outcome of one diff pass.
type DiffResult struct {
	Changes []DocumentChange
	Touched []string // every block id visited, in traversal order
}

// Differ computes change-lists between a baseline BlocksMap and a live tree.
type Differ struct {
	cmp Comparator
}

// NewDiffer returns a Differ using cmp for content and structural checks.
func NewDiffer(cmp Comparator) *Differ {
	return &Differ{cmp: cmp}
}

// Diff walks nodes (children of parent) top-down and emits moves and replaces.
// m is the baseline of the same subtree, built with the same parent.
//
// A block is moved when its recorded position differs from the live one.
// It is also moved when an earlier move in the same pass displaced it: a
// working copy of the baseline absorbs every emitted move, so the
// change-list replays exactly and the siblings before each processed block
// are already in their final order. A live tree that repeats a block id
// cannot be expressed as moves and is ErrInvalidChange.
func (d *Differ) Diff(m BlocksMap, nodes []*BlockNode, parent string) (DiffResult, error) {
	var res DiffResult
	seen := make(map[string]struct{})
	if err := d.diffLevel(treeFromMap(m, parent), m, seen, nodes, parent, &res); err != nil {
		return DiffResult{}, err
	}
	return res, nil
}

func (d *Differ) diffLevel(sim *Tree, m BlocksMap, seen map[string]struct{}, nodes []*BlockNode, parent string, res *DiffResult) error {
	left := ""
	for _, n := range nodes {
		if n == nil || n.Block == nil {
			continue
		}
		id := n.Block.ID
		if id == "" {
			return errors.NewInvalidChangeError("block without id under %q", parent)
		}
		if _, dup := seen[id]; dup {
			return errors.NewInvalidChangeError("duplicate block id %q", id)
		}
		seen[id] = struct{}{}
		res.Touched = append(res.Touched, id)

		prev, known := m[id]
		curParent, curLeft, positioned := sim.Position(id)

		moved, replaced := false, false
		switch {
		case !known || !positioned || d.cmp.StructuralChange(prev.Block, n.Block):
			moved, replaced = true, true
		case prev.Parent != parent || prev.Left != left || curParent != parent || curLeft != left:
			moved, replaced = true, !d.cmp.Equal(prev.Block, n.Block)
		case !d.cmp.Equal(prev.Block, n.Block):
			replaced = true
		}

		if moved {
			if err := sim.Move(id, left, parent); err != nil {
				return errors.Wrapf(err, "diff %s", id)
			}
			res.Changes = append(res.Changes, NewMoveBlock(id, left, parent))
		}
		if replaced {
			res.Changes = append(res.Changes, NewReplaceBlock(n.Block))
		}

		if err := d.diffLevel(sim, m, seen, n.Children, id, res); err != nil {
			return err
		}
		left = id
	}
	return nil
}

// ExtractDeletes emits deleteBlock for every id in m that was not touched,
// sorted by id.
func ExtractDeletes(m BlocksMap, touched []string) []DocumentChange {
	seen := make(map[string]struct{}, len(touched))
	for _, id := range touched {
		seen[id] = struct{}{}
	}

	var ids []string
	for id := range m {
		if _, ok := seen[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	out := make([]DocumentChange, 0, len(ids))
	for _, id := range ids {
		out = append(out, NewDeleteBlock(id))
	}
	return out
}

// ComputeChanges produces the full change-list for a save:
// setTitle (when the title changed), then block moves/replaces, then deletes.
func (d *Differ) ComputeChanges(baselineTitle string, baseline BlocksMap, title string, nodes []*BlockNode) ([]DocumentChange, error) {
	res, err := d.Diff(baseline, nodes, "")
	if err != nil {
		return nil, err
	}
	var out []DocumentChange
	if title != baselineTitle {
		out = append(out, NewSetTitle(title))
	}
	out = append(out, res.Changes...)
	return append(out, ExtractDeletes(baseline, res.Touched)...), nil
}

// Diff runs a Differ with the default comparator.
func Diff(m BlocksMap, nodes []*BlockNode, parent string) (DiffResult, error) {
	return NewDiffer(DefaultComparator()).Diff(m, nodes, parent)
}

// ComputeChanges runs a Differ with the default comparator.
func ComputeChanges(baselineTitle string, baseline BlocksMap, title string, nodes []*BlockNode) ([]DocumentChange, error) {
	return NewDiffer(DefaultComparator()).ComputeChanges(baselineTitle, baseline, title, nodes)
}
