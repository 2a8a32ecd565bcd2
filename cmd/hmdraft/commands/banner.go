package commands

import (
	"net"

	"github.com/pterm/pterm"

	"github.com/teranos/hmdraft/logger"
	"github.com/teranos/hmdraft/version"
)

// printStartupBanner prints the daemon startup summary
func printStartupBanner(verbosity int, dbPath string, grpcAddr, httpAddr net.Addr) {
	info := version.Get()

	pterm.DefaultHeader.WithFullWidth().Println("hmdraft daemon")
	_ = pterm.DefaultTable.WithData(pterm.TableData{
		{"Version", info.Version + " (commit " + info.Short() + ")"},
		{"API", info.APIVersion},
		{"Built", info.BuildTime},
		{"Verbosity", logger.LevelName(verbosity)},
		{"Database", dbPath},
		{"gRPC", grpcAddr.String()},
		{"HTTP", "http://" + httpAddr.String()},
		{"Events", "ws://" + httpAddr.String() + "/ws/events"},
	}).Render()
	pterm.Info.Println("Press Ctrl+C to stop")
}
