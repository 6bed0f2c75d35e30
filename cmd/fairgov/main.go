package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ocx/fairgov/internal/config"
)

const (
	programName = "fairgov"
	version     = "0.1.0"
)

var globalFlags = struct {
	debug      bool
	configFile string
}{}

// loadConfig resolves the effective configuration for the current
// invocation. --debug forces the debug log level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(globalFlags.configFile)
	if err != nil {
		return nil, err
	}
	if globalFlags.debug {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Fair governance engine: voting power, whale safeguards, penalties and appeals",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().
		BoolVarP(&globalFlags.debug, "debug", "D", false, "enable debug logging")
	rootCmd.PersistentFlags().
		StringVar(&globalFlags.configFile, "config", "", "path to YAML config file")

	rootCmd.AddCommand(
		serveCommand(),
		powerCommand(),
		scoreCommand(),
		riskCommand(),
		configCommand(),
		statsCommand(),
		versionCommand(),
	)
	return rootCmd
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s v%s\n", programName, version)
		},
	}
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		slog.Error(err.Error(), "component", programName)
		os.Exit(1)
	}
}
