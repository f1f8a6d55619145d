package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"
)

//go:embed schema.sql
var schemaSQL string

// migrations are applied in order; PRAGMA user_version holds how many ran.
var migrations = []string{
	schemaSQL,
}

// ErrSchemaMismatch indicates the database was written by a newer schema.
var ErrSchemaMismatch = errors.New("schema version mismatch")

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// withBusyRetry reruns op with capped exponential backoff while SQLite
// reports the database as locked.
func withBusyRetry[T any](ctx context.Context, op func(context.Context) (T, error)) (T, error) {
	ctx = ensureContext(ctx)
	delay := busyRetryInitialBackoff
	for attempt := 1; ; attempt++ {
		out, err := op(ctx)
		if err == nil || !isSQLiteBusy(err) || attempt == busyRetryAttempts {
			return out, err
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
		delay = min(delay*2, busyRetryMaxBackoff)
	}
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return withBusyRetry(ctx, func(ctx context.Context) (sql.Result, error) {
		return s.db.ExecContext(ctx, query, args...)
	})
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return withBusyRetry(ctx, func(ctx context.Context) (*sql.Rows, error) {
		return s.db.QueryContext(ctx, query, args...)
	})
}

// migrate brings the database up to len(migrations), one transaction per step.
func (s *Store) migrate(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > len(migrations) {
		return fmt.Errorf("%w: database has version %d, this build knows %d (delete %s to start over)",
			ErrSchemaMismatch, version, len(migrations), s.path)
	}
	for next := version; next < len(migrations); next++ {
		if err := s.applyMigration(ctx, next+1, migrations[next]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) applyMigration(ctx context.Context, version int, stmt string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", version, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("apply migration %d: %w", version, err)
	}
	// PRAGMA does not accept bound parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return fmt.Errorf("record schema version %d: %w", version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", version, err)
	}
	return nil
}
