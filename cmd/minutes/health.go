package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the summarization API is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd, envOptions{})
			if err != nil {
				return err
			}
			defer e.Close()

			h, err := e.client.Health(cmd.Context())
			if err != nil {
				return fmt.Errorf("API at %s is not reachable: %w", e.client.BaseURL(), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s %s\n", e.client.BaseURL(), h.Status, h.Message)
			return nil
		},
	}
}
