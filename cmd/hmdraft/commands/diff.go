package commands

import (
	"encoding/json"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/hmdraft/am"
	"github.com/teranos/hmdraft/docmodel"
	"github.com/teranos/hmdraft/errors"
	"github.com/teranos/hmdraft/fileeditor"
	"github.com/teranos/hmdraft/logger"
)

// DiffCmd computes the change-list that would bring a draft to a file's content
var DiffCmd = &cobra.Command{
	Use:   "diff <id> <file>",
	Short: "Show the change-list between a draft and a local document file",
	Long: `Compute the ordered change-list (setTitle, moveBlock, replaceBlock,
deleteBlock) that turns the saved draft into the content of a local
document file, as the autosave machine would.

The file uses the same JSON form "hmdraft edit" writes:
  {"title": "...", "children": [{"block": {...}, "children": [...]}]}

Examples:
  hmdraft diff <id> draft.json            # Show the change-list
  hmdraft diff <id> draft.json --json     # Emit it as JSON
  hmdraft diff <id> draft.json --apply    # Save it to the draft`,
	Args: cobra.ExactArgs(2),
	RunE: runDiff,
}

var (
	diffJSON  bool
	diffApply bool
)

func init() {
	DiffCmd.Flags().BoolVarP(&diffJSON, "json", "j", false, "Output the change-list as JSON")
	DiffCmd.Flags().BoolVar(&diffApply, "apply", false, "Send the change-list to the daemon")
}

// comparator builds the change-detection comparator from configuration
func comparator(cfg *am.Config) docmodel.Comparator {
	return docmodel.Comparator{
		Attributes: cfg.GetCompareAttributes(),
		Structural: cfg.GetStructuralAttributes(),
	}
}

func runDiff(cmd *cobra.Command, args []string) error {
	id, path := args[0], args[1]
	ctx := cmd.Context()

	local := fileeditor.New(path, fileeditor.Options{Logger: logger.ComponentLogger("fileeditor")})
	if _, err := local.Reload(); err != nil {
		return err
	}

	client, cfg, err := dialDaemon(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	doc, err := client.GetDraft(ctx, id)
	if err != nil {
		return errors.Wrapf(err, "failed to get draft %s", id)
	}

	baseline := docmodel.BuildBlocksMap(doc.Children, "")
	changes, err := docmodel.NewDiffer(comparator(cfg)).ComputeChanges(doc.Title, baseline, local.Title(), local.Blocks())
	if err != nil {
		return errors.Wrapf(err, "failed to diff %s against draft %s", path, id)
	}
	if changes == nil {
		changes = []docmodel.DocumentChange{}
	}

	if diffJSON {
		data, err := json.MarshalIndent(changes, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to encode changes")
		}
		fmt.Println(string(data))
	} else if len(changes) == 0 {
		pterm.Info.Println("No changes")
	} else if err := renderTable(changeRows(changes)); err != nil {
		return err
	}

	if !diffApply || len(changes) == 0 {
		return nil
	}
	updated, err := client.UpdateDraft(ctx, id, changes)
	if err != nil {
		return errors.Wrapf(err, "failed to apply changes to %s", id)
	}
	pterm.Success.Printf("Applied %d changes, draft has %d blocks\n", len(changes), docmodel.CountBlocks(updated.Children))
	return nil
}
