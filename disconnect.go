package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/browsekit/browsekit/internal/driver"
)

func newDisconnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect <provider>",
		Short: "Drop a provider's stored token for this session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := driver.CanonicalKey(args[0], resolved.logger)

			if _, err := resolved.browser.DriverFor(key); err != nil {
				return err
			}

			if err := resolved.tokens.Delete(cmd.Context(), flagSession, key); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s disconnected\n", key)

			return nil
		},
	}
}
