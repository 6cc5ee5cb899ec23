package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/browsekit/browsekit/internal/retriever"
)

func newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <provider> <id> [target]",
		Short: "Resolve a bytestream and download it",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := resolved.browser.DriverFor(args[0])
			if err != nil {
				return err
			}

			spec, err := d.LinkFor(cmd.Context(), args[1])
			if err != nil {
				return err
			}

			target := ""
			if len(args) == 3 {
				target = args[2]
			}

			r := retriever.New(&http.Client{}, resolved.logger)

			path, err := r.Download(cmd.Context(), spec, target, progressFunc())
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), path)

			return nil
		},
	}

	return cmd
}

// progressFunc returns a per-chunk progress printer when stderr is a
// terminal, nil otherwise. Carriage-return rewriting keeps the output to a
// single line.
func progressFunc() retriever.ProgressFunc {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		return nil
	}

	return func(path string, retrieved, total int64) {
		if total > 0 {
			fmt.Fprintf(os.Stderr, "\r%s: %d/%d bytes (%d%%)", path, retrieved, total, retrieved*100/total)
		} else {
			fmt.Fprintf(os.Stderr, "\r%s: %d bytes", path, retrieved)
		}

		if retrieved == total {
			fmt.Fprintln(os.Stderr)
		}
	}
}
