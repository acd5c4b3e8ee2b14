// Package database applies the SQL schema used by the Postgres user store.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Proton-105/gatekeeper-bot/pkg/config"
	"github.com/Proton-105/gatekeeper-bot/pkg/logger"
)

const createVersionTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		name       TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

// Migrator applies plain .up.sql files in lexical order, recording each applied
// file in schema_migrations so restarts skip it.
type Migrator struct {
	db  *sql.DB
	log *slog.Logger
}

// NewMigrator constructs a Migrator that logs through the provided logger instance.
func NewMigrator(db *sql.DB, log *slog.Logger) *Migrator {
	return &Migrator{
		db:  db,
		log: log,
	}
}

func (m *Migrator) baseLogger() *slog.Logger {
	if m.log != nil {
		return m.log
	}

	cfg := config.Config{
		AppEnv: "migrator",
		Logger: config.LoggerConfig{Level: "info", Format: "text"},
	}

	m.log = logger.New(cfg)
	return m.log
}

// ApplyDir scans dir for *.up.sql files and applies the ones not yet recorded.
func (m *Migrator) ApplyDir(ctx context.Context, dir string) error {
	names, err := ListMigrations(os.DirFS(dir), ".")
	if err != nil {
		return fmt.Errorf("read migrations dir %q: %w", dir, err)
	}

	log := m.baseLogger().With(slog.String("dir", dir))
	if len(names) == 0 {
		log.Info("no .up.sql migrations found")
		return nil
	}

	if _, err := m.db.ExecContext(ctx, createVersionTable); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied, err := m.appliedSet(ctx)
	if err != nil {
		return err
	}

	for _, name := range names {
		if applied[name] {
			log.Debug("migration already applied", slog.String("file", name))
			continue
		}
		if err := m.applyFile(ctx, log, filepath.Join(dir, name), name); err != nil {
			return err
		}
	}

	return nil
}

func (m *Migrator) appliedSet(ctx context.Context) (map[string]bool, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT name FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan applied migration: %w", err)
		}
		applied[name] = true
	}

	return applied, rows.Err()
}

func (m *Migrator) applyFile(ctx context.Context, baseLog *slog.Logger, path, name string) error {
	scopedLog := baseLog.With(slog.String("file", name))
	scopedLog.Info("applying migration")

	// #nosec G304: migration paths are controlled by deployment
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read migration %q: %w", path, err)
	}

	statement := strings.TrimSpace(string(data))
	if len(statement) == 0 {
		scopedLog.Warn("migration is empty, skipping")
		return nil
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction for migration %q: %w", path, err)
	}

	if _, execErr := tx.ExecContext(ctx, statement); execErr != nil {
		rollback(tx, scopedLog)
		return fmt.Errorf("execute migration %q: %w", path, execErr)
	}

	if _, execErr := tx.ExecContext(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, name); execErr != nil {
		rollback(tx, scopedLog)
		return fmt.Errorf("record migration %q: %w", path, execErr)
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return fmt.Errorf("commit migration %q: %w", path, commitErr)
	}

	return nil
}

func rollback(tx *sql.Tx, log *slog.Logger) {
	if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
		log.Error("rollback error", slog.Any("error", rbErr))
	}
}

func isUpMigration(name string) bool {
	return strings.HasSuffix(name, ".up.sql")
}

// ListMigrations returns all .up.sql files in root of dir in lexical order.
func ListMigrations(dir fs.FS, root string) ([]string, error) {
	entries, err := fs.ReadDir(dir, root)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if isUpMigration(e.Name()) {
			names = append(names, e.Name())
		}
	}

	sort.Strings(names)

	return names, nil
}
