package commands

import (
	"encoding/json"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/hmdraft/am"
	"github.com/teranos/hmdraft/errors"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: "Show hmdraft configuration",
	Long: `am - Show hmdraft configuration ("I am")

Configuration sources (in order of precedence):
1. Environment variables (HMDRAFT_* prefix)
2. Project config (./am.toml, searched upwards)
3. User config (~/.hmdraft/am.toml)
4. System config (/etc/hmdraft/config.toml)
5. Default values

Examples:
  hmdraft am show                 # Show effective configuration as TOML
  hmdraft am show --format json   # Show it as JSON
  hmdraft am show --sources       # Show where every value came from
  hmdraft am validate             # Validate current configuration`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Args:  cobra.NoArgs,
	RunE:  runAmShow,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	Args:  cobra.NoArgs,
	RunE:  runAmValidate,
}

var (
	configFormat  string
	configSources bool
)

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json")
	amShowCmd.Flags().BoolVar(&configSources, "sources", false, "Show the source of every setting")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amValidateCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	if configSources {
		settings, err := am.Settings()
		if err != nil {
			return err
		}
		data := pterm.TableData{{"Key", "Value", "Source"}}
		for _, s := range settings {
			source := string(s.Source)
			if s.SourcePath != "" {
				source += " (" + s.SourcePath + ")"
			}
			data = append(data, []string{s.Key, fmt.Sprint(s.Value), source})
		}
		return renderTable(data)
	}

	switch configFormat {
	case "toml":
		data, err := am.RenderTOML()
		if err != nil {
			return err
		}
		fmt.Printf("# hmdraft configuration\n%s", data)
	case "json":
		cfg, err := am.Load()
		if err != nil {
			return errors.Wrap(err, "failed to load config")
		}
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to JSON")
		}
		fmt.Println(string(data))
	default:
		return errors.NewInvalidRequestError("unsupported format: %s (supported: toml, json)", configFormat)
	}
	return nil
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}
	pterm.Success.Println("Configuration is valid")
	return nil
}
