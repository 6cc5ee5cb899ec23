package tokenstore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
	"golang.org/x/oauth2"
	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".
)

// Embed migration SQL files for schema versioning.
//
//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLite is a Store backed by an embedded SQLite database. Suited to host
// applications that want token survival across restarts without a directory
// of loose files. Use ":memory:" for tests.
type SQLite struct {
	db     *sql.DB
	logger *slog.Logger

	getStmt    *sql.Stmt
	putStmt    *sql.Stmt
	deleteStmt *sql.Stmt
}

// NewSQLite opens (or creates) the token database at dbPath, applies
// migrations, and prepares the repeated statements.
func NewSQLite(dbPath string, logger *slog.Logger) (*SQLite, error) {
	logger.Info("opening token database", slog.String("path", dbPath))

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("tokenstore: opening sqlite: %w", err)
	}

	if err := runMigrations(context.Background(), db, logger); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLite{db: db, logger: logger}

	if err := s.prepareStatements(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("tokenstore: preparing statements: %w", err)
	}

	return s, nil
}

// runMigrations applies all pending schema migrations using the goose v3
// Provider API (no global state, context-aware).
func runMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("tokenstore: creating migration sub-filesystem: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return fmt.Errorf("tokenstore: creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("tokenstore: running migrations: %w", err)
	}

	for _, r := range results {
		logger.Info("applied migration",
			slog.String("source", r.Source.Path),
			slog.Int64("duration_ms", r.Duration.Milliseconds()),
		)
	}

	return nil
}

func (s *SQLite) prepareStatements(ctx context.Context) error {
	var err error

	s.getStmt, err = s.db.PrepareContext(ctx,
		`SELECT token FROM tokens WHERE session = ? AND provider = ?`)
	if err != nil {
		return err
	}

	s.putStmt, err = s.db.PrepareContext(ctx,
		`INSERT INTO tokens (session, provider, token, updated_at)
		 VALUES (?, ?, ?, strftime('%s','now'))
		 ON CONFLICT(session, provider)
		 DO UPDATE SET token = excluded.token, updated_at = excluded.updated_at`)
	if err != nil {
		return err
	}

	s.deleteStmt, err = s.db.PrepareContext(ctx,
		`DELETE FROM tokens WHERE session = ? AND provider = ?`)

	return err
}

func (s *SQLite) Get(ctx context.Context, session, provider string) (*oauth2.Token, error) {
	var blob []byte

	err := s.getStmt.QueryRowContext(ctx, session, provider).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // sentinel for "not found"
	}

	if err != nil {
		return nil, fmt.Errorf("tokenstore: querying token: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(blob, &tok); err != nil {
		return nil, fmt.Errorf("tokenstore: decoding stored token: %w", err)
	}

	return &tok, nil
}

func (s *SQLite) Put(ctx context.Context, session, provider string, tok *oauth2.Token) error {
	blob, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("tokenstore: encoding token: %w", err)
	}

	if _, err := s.putStmt.ExecContext(ctx, session, provider, blob); err != nil {
		return fmt.Errorf("tokenstore: storing token: %w", err)
	}

	return nil
}

func (s *SQLite) Delete(ctx context.Context, session, provider string) error {
	if _, err := s.deleteStmt.ExecContext(ctx, session, provider); err != nil {
		return fmt.Errorf("tokenstore: deleting token: %w", err)
	}

	return nil
}

// Close releases prepared statements and the database handle.
func (s *SQLite) Close() error {
	for _, stmt := range []*sql.Stmt{s.getStmt, s.putStmt, s.deleteStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}

	return s.db.Close()
}
