package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/hmdraft/am"
	"github.com/teranos/hmdraft/cmd/hmdraft/commands"
	"github.com/teranos/hmdraft/errors"
	"github.com/teranos/hmdraft/logger"
)

var rootCmd = &cobra.Command{
	Use:   "hmdraft",
	Short: "hmdraft - draft autosave and change reconciliation",
	Long: `hmdraft - draft autosave and change reconciliation.

hmdraft keeps block-structured drafts in a local daemon and turns edits
into minimal, ordered change-lists that are saved as you type.

Available commands:
  serve   - Run the drafts daemon (gRPC + HTTP/websocket)
  draft   - Create, show, list and delete drafts
  diff    - Show the change-list between a draft and a local file
  edit    - Edit a draft through a local JSON file with autosave
  am      - Show hmdraft configuration ("I am")
  version - Show version information

Examples:
  hmdraft serve                      # Start the daemon
  hmdraft draft new --title Notes    # Create a draft
  hmdraft edit <id>                  # Edit it, changes autosave
  hmdraft draft log <id>             # Inspect the save diagnosis log`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity := commands.Verbosity(cmd)
		jsonOutput := false
		if cfg, err := am.Load(); err == nil {
			jsonOutput = cfg.Log.JSON
		}
		if err := logger.Initialize(jsonOutput, verbosity); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")

	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.DraftCmd)
	rootCmd.AddCommand(commands.DiffCmd)
	rootCmd.AddCommand(commands.EditCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, commands.FormatError(err))
		os.Exit(1)
	}
}
