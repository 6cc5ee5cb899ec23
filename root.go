// browsekit is a CLI for browsing configured remote storage providers and
// retrieving selected files. It is also the reference composition of the
// library packages under internal/.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/browsekit/browsekit/internal/browser"
	"github.com/browsekit/browsekit/internal/config"
	"github.com/browsekit/browsekit/internal/driver"
	"github.com/browsekit/browsekit/internal/tokenstore"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagSession    string
	flagVerbose    bool
)

// httpClientTimeout bounds backend requests so hung connections don't block
// CLI commands indefinitely.
const httpClientTimeout = 30 * time.Second

// resolved holds the collaborators built by the root pre-run phase,
// available to all subcommands.
var resolved struct {
	cfg     *config.Config
	browser *browser.Browser
	tokens  tokenstore.Store
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "browsekit",
		Short:   "Browse and retrieve files from remote storage providers",
		Long:    "browsekit lists files across configured storage backends (local, S3, Box, Dropbox, Google Drive) and retrieves chosen files.",
		Version: version,
		// Silence Cobra's default error/usage printing — we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setup()
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagSession, "session", "default", "session id scoping stored tokens")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newProvidersCmd())
	cmd.AddCommand(newConnectCmd())
	cmd.AddCommand(newDisconnectCmd())
	cmd.AddCommand(newLsCmd())
	cmd.AddCommand(newGetCmd())

	return cmd
}

// setup loads configuration, builds the token store, and composes the
// browser. Called once before every subcommand.
func setup() error {
	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfgPath, err := configPath()
	if err != nil {
		return err
	}

	cfg, err := config.Load(cfgPath, logger)
	if err != nil {
		return err
	}

	tokens, err := buildTokenStore(cfg.Tokens, logger)
	if err != nil {
		return err
	}

	br, err := browser.New(cfg, browser.DefaultRegistry(), driver.Deps{
		Tokens:     tokens,
		Session:    flagSession,
		HTTPClient: &http.Client{Timeout: httpClientTimeout},
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	resolved.cfg = cfg
	resolved.browser = br
	resolved.tokens = tokens
	resolved.logger = logger

	return nil
}

// configPath resolves the config file: the --config flag, or
// <user config dir>/browsekit/config.toml.
func configPath() (string, error) {
	if flagConfigPath != "" {
		return flagConfigPath, nil
	}

	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving config dir: %w", err)
	}

	return filepath.Join(base, "browsekit", "config.toml"), nil
}

// buildTokenStore constructs the configured token store backend.
func buildTokenStore(tc config.TokensConfig, logger *slog.Logger) (tokenstore.Store, error) {
	defaultDir := func(name string) (string, error) {
		base, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("resolving token store dir: %w", err)
		}

		return filepath.Join(base, "browsekit", name), nil
	}

	switch tc.Backend {
	case config.TokensMemory:
		return tokenstore.NewMemory(), nil
	case config.TokensSQLite:
		path := tc.Path
		if path == "" {
			var err error
			if path, err = defaultDir("tokens.db"); err != nil {
				return nil, err
			}

			if err := os.MkdirAll(filepath.Dir(path), tokenstore.DirPerms); err != nil {
				return nil, fmt.Errorf("creating token store dir: %w", err)
			}
		}

		return tokenstore.NewSQLite(path, logger)
	case config.TokensFile:
		path := tc.Path
		if path == "" {
			var err error
			if path, err = defaultDir("tokens"); err != nil {
				return nil, err
			}
		}

		return tokenstore.NewFile(path), nil
	default:
		return nil, fmt.Errorf("%w: unknown token store backend %q", driver.ErrInit, tc.Backend)
	}
}
