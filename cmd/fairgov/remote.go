package main

import (
	"github.com/spf13/cobra"

	"github.com/ocx/fairgov/pkg/sdk"
)

func statsCommand() *cobra.Command {
	var serverURL string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Fetch governance counters from a running service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := sdk.NewClient(sdk.Config{BaseURL: serverURL})
			stats, err := client.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "fairgov service URL")
	return cmd
}
