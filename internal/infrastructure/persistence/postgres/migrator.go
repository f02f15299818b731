package postgres

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrator applies embedded SQL migrations in ascending filename order and
// records each applied file in schema_migrations. Re-running is a no-op for
// files already recorded.
type Migrator struct {
	pool *pgxpool.Pool
	fsys fs.FS
	log  *slog.Logger
}

// NewMigrator creates a migrator over the given migration filesystem.
func NewMigrator(pool *pgxpool.Pool, fsys fs.FS, log *slog.Logger) *Migrator {
	if log == nil {
		log = slog.Default()
	}
	return &Migrator{pool: pool, fsys: fsys, log: log}
}

// Apply runs all pending migrations. Each file executes and is recorded
// inside one transaction, so a failed migration leaves no partial schema.
func (m *Migrator) Apply(ctx context.Context) error {
	files, err := migrationFiles(m.fsys)
	if err != nil {
		return err
	}

	_, err = m.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename   TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure schema_migrations: %w", err)
	}

	for _, name := range files {
		applied, err := m.isApplied(ctx, name)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		sql, err := fs.ReadFile(m.fsys, name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}

		tx, err := m.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin migration transaction: %w", err)
		}
		if _, err := tx.Exec(ctx, string(sql)); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("migration %s failed: %w", name, err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1)`, name); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("failed to record migration %s: %w", name, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", name, err)
		}

		m.log.InfoContext(ctx, "migration applied", slog.String("filename", name))
	}

	return nil
}

// Verify reports an error unless every embedded migration is recorded as
// applied. Used by the readiness probe.
func (m *Migrator) Verify(ctx context.Context) error {
	files, err := migrationFiles(m.fsys)
	if err != nil {
		return err
	}

	for _, name := range files {
		applied, err := m.isApplied(ctx, name)
		if err != nil {
			return err
		}
		if !applied {
			return fmt.Errorf("migration %s not applied", name)
		}
	}

	return nil
}

func (m *Migrator) isApplied(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := m.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE filename = $1)
	`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check migration %s: %w", name, err)
	}
	return exists, nil
}

// migrationFiles lists the *.sql files in ascending filename order.
func migrationFiles(fsys fs.FS) ([]string, error) {
	names, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(names)
	return names, nil
}
