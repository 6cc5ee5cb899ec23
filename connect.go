package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newConnectCmd() *cobra.Command {
	var flagCode string

	cmd := &cobra.Command{
		Use:   "connect <provider>",
		Short: "Authorize a provider via its OAuth consent flow",
		Long: "Prints the provider's consent URL. Open it in a browser, approve access,\n" +
			"then paste the authorization code back (or pass it with --code).",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := resolved.browser.DriverFor(args[0])
			if err != nil {
				return err
			}

			code := flagCode
			if code == "" {
				u, urlErr := d.AuthorizationURL()
				if urlErr != nil {
					return urlErr
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Open this URL in your browser:\n%s\n\nAuthorization code: ", u)

				line, readErr := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if readErr != nil {
					return fmt.Errorf("reading authorization code: %w", readErr)
				}

				code = strings.TrimSpace(line)
			}

			if err := d.Connect(cmd.Context(), code); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s authorized\n", d.Key())

			return nil
		},
	}

	cmd.Flags().StringVar(&flagCode, "code", "", "authorization code (skips the prompt)")

	return cmd
}
