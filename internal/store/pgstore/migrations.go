package pgstore

import (
	"context"
	"fmt"
	"strings"
)

// migration defines a single idempotent schema migration applied on top of
// InitSchema, for changes introduced after a database's first deploy.
type migration struct {
	name  string
	sql   string
	check string // query returning true if the migration is already applied
}

var migrations = []migration{
	{
		name:  "add group_members.role",
		sql:   `ALTER TABLE group_members ADD COLUMN IF NOT EXISTS role text NOT NULL DEFAULT 'member'`,
		check: `SELECT EXISTS (SELECT 1 FROM information_schema.columns WHERE table_name = 'group_members' AND column_name = 'role')`,
	},
}

// Migrate runs all pending schema migrations.
func (db *DB) Migrate(ctx context.Context) error {
	var pending []migration
	for _, m := range migrations {
		if m.check != "" {
			var exists bool
			if err := db.Pool.QueryRow(ctx, m.check).Scan(&exists); err == nil && exists {
				continue
			}
		}
		pending = append(pending, m)
	}

	if len(pending) == 0 {
		return nil
	}

	applied := 0
	for _, m := range pending {
		if _, err := db.Pool.Exec(ctx, m.sql); err != nil {
			return &MigrationError{failed: m, pending: pending[applied:], err: err}
		}
		db.log.Info().Str("migration", m.name).Msg("schema migration applied")
		applied++
	}
	db.log.Info().Int("applied", applied).Msg("schema migrations complete")
	return nil
}

// MigrationError is returned when a migration fails, carrying the SQL
// needed to apply the remaining migrations by hand.
type MigrationError struct {
	failed  migration
	pending []migration
	err     error
}

func (e *MigrationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "migration %q failed: %v\n\n", e.failed.name, e.err)
	b.WriteString("Run the following SQL as a database superuser to fix this:\n\n")
	for _, m := range e.pending {
		fmt.Fprintf(&b, "  %s;\n", m.sql)
	}
	b.WriteString("\nThen restart signalserver.")
	return b.String()
}

func (e *MigrationError) Unwrap() error {
	return e.err
}
