package commands

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teranos/hmdraft/am"
	"github.com/teranos/hmdraft/db"
	"github.com/teranos/hmdraft/errors"
	"github.com/teranos/hmdraft/logger"
	"github.com/teranos/hmdraft/rpc"
)

// openDatabase opens and migrates the database at dbPath, or at the
// configured path when dbPath is empty.
func openDatabase(dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		path, err := am.GetDatabasePath()
		if err != nil {
			return nil, errors.Wrap(err, "failed to get database path")
		}
		dbPath = path
	}

	database, err := db.OpenWithMigrations(dbPath, logger.ComponentLogger("db"))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database at %s", dbPath)
	}
	return database, nil
}

// dialDaemon connects to the configured daemon and checks its API version.
func dialDaemon(ctx context.Context) (*rpc.Client, *am.Config, error) {
	cfg, err := am.Load()
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to load configuration")
	}
	client, err := rpc.Dial(ctx, cfg.Client.Address, rpc.ClientOptions{
		Timeout:       cfg.ClientTimeout(),
		APIConstraint: cfg.Client.APIConstraint,
		Logger:        logger.ComponentLogger("rpc"),
	})
	if err != nil {
		return nil, nil, err
	}
	return client, cfg, nil
}

// Verbosity returns the -v count. The daemon defaults to Info.
func Verbosity(cmd *cobra.Command) int {
	verbosity, _ := cmd.Flags().GetCount("verbose")
	if verbosity == 0 && cmd.Name() == "serve" {
		return logger.VerbosityInfo
	}
	return verbosity
}

// FormatError renders err with its hints and details for the terminal.
func FormatError(err error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Error: %v", err)
	for _, d := range errors.GetAllDetails(err) {
		fmt.Fprintf(&b, "\n  %s", d)
	}
	for _, h := range errors.GetAllHints(err) {
		fmt.Fprintf(&b, "\n  hint: %s", h)
	}
	return b.String()
}
