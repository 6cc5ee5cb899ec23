package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/browsekit/browsekit/internal/entry"
)

func newLsCmd() *cobra.Command {
	var flagLong bool

	cmd := &cobra.Command{
		Use:   "ls <provider> [path]",
		Short: "List entries under a provider path",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := resolved.browser.DriverFor(args[0])
			if err != nil {
				return err
			}

			path := ""
			if len(args) == 2 {
				path = args[1]
			}

			entries, err := d.Contents(cmd.Context(), path)
			if err != nil {
				return err
			}

			for _, e := range entries {
				printEntry(cmd, e, flagLong)
			}

			return nil
		},
	}

	cmd.Flags().BoolVarP(&flagLong, "long", "l", false, "show size, mtime, and location")

	return cmd
}

func printEntry(cmd *cobra.Command, e entry.Entry, long bool) {
	marker := " "
	if e.IsContainer() {
		marker = "/"
	}

	if !long {
		fmt.Fprintf(cmd.OutOrStdout(), "%s%s\n", e.EntryName(), marker)
		return
	}

	switch v := e.(type) {
	case entry.Container:
		fmt.Fprintf(cmd.OutOrStdout(), "d %12s  %s  %s\n", "-", v.MTime.Format("2006-01-02 15:04"), v.Location)
	case entry.Bytestream:
		fmt.Fprintf(cmd.OutOrStdout(), "- %12d  %s  %s\n", v.Size, v.MTime.Format("2006-01-02 15:04"), v.Location)
	}
}
