package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List configured providers and their authorization state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, d := range resolved.browser.Drivers() {
				state := "not authorized"
				if d.Authorized() {
					state = "authorized"
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%-14s %-14s %s\n", d.Key(), d.Name(), state)
			}

			return nil
		},
	}
}
