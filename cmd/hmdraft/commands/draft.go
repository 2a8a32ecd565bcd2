package commands

import (
	"encoding/json"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/hmdraft/am"
	"github.com/teranos/hmdraft/diagnosis"
	"github.com/teranos/hmdraft/draft"
	"github.com/teranos/hmdraft/errors"
	"github.com/teranos/hmdraft/logger"
)

// DraftCmd groups draft management subcommands
var DraftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Manage drafts",
	Long: `Create, show, list and delete drafts held by the hmdraft daemon.

Examples:
  hmdraft draft new --title "Release notes"   # Create a draft
  hmdraft draft new --for <document-id>       # Draft an existing document
  hmdraft draft ls                            # List drafts
  hmdraft draft get <id>                      # Show the block tree
  hmdraft draft log <id>                      # Show the save diagnosis log
  hmdraft draft rm <id>                       # Delete a draft`,
}

var draftNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a draft",
	Args:  cobra.NoArgs,
	RunE:  runDraftNew,
}

var draftGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a draft",
	Args:  cobra.ExactArgs(1),
	RunE:  runDraftGet,
}

var draftRmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete a draft",
	Args:    cobra.ExactArgs(1),
	RunE:    runDraftRm,
}

var draftLsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List drafts, most recently updated first",
	Args:    cobra.NoArgs,
	RunE:    runDraftLs,
}

var draftLogCmd = &cobra.Command{
	Use:   "log <id>",
	Short: "Show the diagnosis log of a draft",
	Long: `Show the diagnosis log of a draft: every fetch, attempted save and
recovery the autosave machine performed, oldest first. Entries stay
"pending" until a later successful save completes them.

Reads the database directly, so the daemon does not have to be running.`,
	Args: cobra.ExactArgs(1),
	RunE: runDraftLog,
}

var (
	draftTitle  string
	draftAuthor string
	draftFor    string
	draftJSON   bool
	draftDBPath string
)

func init() {
	draftNewCmd.Flags().StringVar(&draftTitle, "title", "", "Initial title")
	draftNewCmd.Flags().StringVar(&draftAuthor, "author", "", "Author recorded on the draft")
	draftNewCmd.Flags().StringVar(&draftFor, "for", "", "Create the draft for an existing document id")
	draftGetCmd.Flags().BoolVarP(&draftJSON, "json", "j", false, "Output the document as JSON")
	draftLogCmd.Flags().StringVar(&draftDBPath, "db-path", "", "Database path (overrides config)")

	DraftCmd.AddCommand(draftNewCmd)
	DraftCmd.AddCommand(draftGetCmd)
	DraftCmd.AddCommand(draftRmCmd)
	DraftCmd.AddCommand(draftLsCmd)
	DraftCmd.AddCommand(draftLogCmd)
}

func runDraftNew(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client, _, err := dialDaemon(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	doc, err := client.CreateDraft(ctx, draft.CreateOptions{
		ExistingDocumentID: draftFor,
		Title:              draftTitle,
		Author:             draftAuthor,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create draft")
	}

	pterm.Success.Printf("Created draft %s\n", doc.ID)
	fmt.Println(doc.ID)
	return nil
}

func runDraftGet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client, _, err := dialDaemon(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	doc, err := client.GetDraft(ctx, args[0])
	if err != nil {
		return errors.Wrapf(err, "failed to get draft %s", args[0])
	}

	if draftJSON {
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to encode draft")
		}
		fmt.Println(string(data))
		return nil
	}
	return pterm.DefaultTree.WithRoot(documentTree(doc)).Render()
}

func runDraftRm(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client, _, err := dialDaemon(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.DeleteDraft(ctx, args[0]); err != nil {
		return errors.Wrapf(err, "failed to delete draft %s", args[0])
	}
	pterm.Success.Printf("Deleted draft %s\n", args[0])
	return nil
}

func runDraftLs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client, _, err := dialDaemon(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	drafts, err := client.ListDrafts(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to list drafts")
	}
	if len(drafts) == 0 {
		pterm.Info.Println("No drafts")
		return nil
	}
	return renderTable(summaryRows(drafts))
}

func runDraftLog(cmd *cobra.Command, args []string) error {
	database, err := openDatabase(draftDBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}

	log := diagnosis.New(database, diagnosis.Options{
		Buffer: cfg.Diagnosis.Buffer,
		Logger: logger.ComponentLogger("diagnosis"),
	})
	defer log.Close()

	entries, err := log.Entries(cmd.Context(), args[0])
	if err != nil {
		return errors.Wrapf(err, "failed to read diagnosis log for %s", args[0])
	}
	if len(entries) == 0 {
		pterm.Info.Printf("No diagnosis entries for %s\n", args[0])
		return nil
	}
	return renderTable(entryRows(entries))
}
