package commands

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/hmdraft/am"
	"github.com/teranos/hmdraft/draftstore"
	"github.com/teranos/hmdraft/errors"
	"github.com/teranos/hmdraft/logger"
	"github.com/teranos/hmdraft/rpc"
	"github.com/teranos/hmdraft/server"
)

// ServeCmd runs the drafts daemon
var ServeCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"server"},
	Short:   "Run the drafts daemon",
	Long: `Run the hmdraft daemon. It owns the draft database and serves:

  gRPC  hmdraft.Drafts on server.grpc_port (used by the CLI and editors)
  HTTP  /health, /api/drafts and /ws/events on server.http_port`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveDBPath string

func init() {
	ServeCmd.Flags().StringVar(&serveDBPath, "db-path", "", "Custom database path (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	verbosity := Verbosity(cmd)

	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}

	dbPath := serveDBPath
	if dbPath == "" {
		dbPath = cfg.GetDatabasePath()
	}
	database, err := openDatabase(dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	store := draftstore.New(database, logger.ComponentLogger("draftstore"))

	grpcLis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GetGRPCPort()))
	if err != nil {
		return errors.WithHint(errors.Wrapf(err, "failed to listen on gRPC port %d", cfg.GetGRPCPort()),
			"is another hmdraft daemon running? set server.grpc_port to use another port")
	}
	httpLis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GetHTTPPort()))
	if err != nil {
		grpcLis.Close()
		return errors.WithHint(errors.Wrapf(err, "failed to listen on HTTP port %d", cfg.GetHTTPPort()),
			"set server.http_port to use another port")
	}

	rpcServer := rpc.NewServer(store, logger.ComponentLogger("rpc"))
	httpServer := server.New(store, server.Config{AllowedOrigins: cfg.GetServerAllowedOrigins()}, logger.ComponentLogger("server"))

	printStartupBanner(verbosity, dbPath, grpcLis.Addr(), httpLis.Addr())

	errChan := make(chan error, 2)
	go func() { errChan <- rpcServer.Serve(grpcLis) }()
	go func() { errChan <- httpServer.Serve(httpLis) }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var serveErr error
	select {
	case serveErr = <-errChan:
		pterm.Error.Printf("Server stopped: %v\n", serveErr)
	case <-sigChan:
		pterm.Info.Println("Shutting down gracefully (press Ctrl+C again to force)...")
	}

	shutdownDone := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), server.ShutdownTimeout)
		defer cancel()
		err := httpServer.Stop(ctx)
		rpcServer.Stop(ctx)
		shutdownDone <- err
	}()

	select {
	case err := <-shutdownDone:
		if serveErr != nil {
			return serveErr
		}
		if err != nil {
			return errors.Wrap(err, "shutdown error")
		}
		pterm.Success.Println("Server stopped cleanly")
		return nil
	case <-sigChan:
		pterm.Warning.Println("Force shutdown - exiting immediately")
		os.Exit(1)
		return nil
	}
}
