package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pterm/pterm"

	"github.com/teranos/hmdraft/diagnosis"
	"github.com/teranos/hmdraft/docmodel"
	"github.com/teranos/hmdraft/draftstore"
)

const maxTextWidth = 60

// documentTree renders a document as a pterm tree rooted at its title.
func documentTree(doc *docmodel.Document) pterm.TreeNode {
	title := docmodel.DisplayTitle(doc)
	if title == "" {
		title = "Untitled"
	}
	root := pterm.TreeNode{Text: pterm.Bold.Sprint(title) + pterm.Gray(" "+doc.ID)}
	root.Children = treeNodes(doc.Children)
	return root
}

func treeNodes(nodes []*docmodel.BlockNode) []pterm.TreeNode {
	var out []pterm.TreeNode
	for _, n := range nodes {
		if n == nil || n.Block == nil {
			continue
		}
		out = append(out, pterm.TreeNode{
			Text:     fmt.Sprintf("%s %s %s", pterm.Cyan(n.Block.Type), truncate(n.Block.Text), pterm.Gray(n.Block.ID)),
			Children: treeNodes(n.Children),
		})
	}
	return out
}

// changeRows tabulates a change-list in order.
func changeRows(changes []docmodel.DocumentChange) pterm.TableData {
	data := pterm.TableData{{"#", "Op", "Block", "Detail"}}
	for i, c := range changes {
		var detail string
		switch c.Kind() {
		case docmodel.KindMoveBlock:
			detail = fmt.Sprintf("parent=%s left=%s", orDash(c.MoveBlock.Parent), orDash(c.MoveBlock.LeftSibling))
		case docmodel.KindReplaceBlock:
			detail = fmt.Sprintf("%s %q", c.ReplaceBlock.Type, truncate(c.ReplaceBlock.Text))
		case docmodel.KindSetTitle:
			detail = strconv.Quote(c.SetTitle.Title)
		}
		data = append(data, []string{strconv.Itoa(i + 1), string(c.Kind()), orDash(c.BlockID()), detail})
	}
	return data
}

func summaryRows(drafts []draftstore.Summary) pterm.TableData {
	data := pterm.TableData{{"ID", "Title", "Blocks", "Updated"}}
	for _, d := range drafts {
		data = append(data, []string{d.ID, d.Title, strconv.Itoa(d.BlockCount), d.UpdateTime.Local().Format(time.DateTime)})
	}
	return data
}

func entryRows(entries []diagnosis.Entry) pterm.TableData {
	data := pterm.TableData{{"ID", "Key", "Outcome", "Created", "Value"}}
	for _, e := range entries {
		data = append(data, []string{
			strconv.FormatInt(e.ID, 10),
			e.Key,
			e.Outcome,
			e.CreatedAt.Local().Format(time.DateTime),
			truncate(string(e.Value)),
		})
	}
	return data
}

func renderTable(data pterm.TableData) error {
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxTextWidth {
		return s
	}
	return string(r[:maxTextWidth-1]) + "…"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
