package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the attest store (SQLite).
var Migrations = migrate.NewGroup("attest")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_attest_blocks",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS attest_blocks (
    block_index    INTEGER PRIMARY KEY CHECK (block_index >= 0),
    previous_hash  TEXT NOT NULL,
    record_type    TEXT NOT NULL,
    record_id      TEXT NOT NULL,
    owner_id       TEXT NOT NULL,
    recorded_at_ms INTEGER NOT NULL,
    data_hash      TEXT NOT NULL,
    data_reference TEXT NOT NULL DEFAULT '',
    metadata       TEXT NOT NULL DEFAULT '{}',
    block_hash     TEXT NOT NULL,
    signature      BLOB NOT NULL,
    is_valid       INTEGER NOT NULL DEFAULT 1
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_attest_blocks_hash ON attest_blocks (block_hash);
CREATE UNIQUE INDEX IF NOT EXISTS idx_attest_blocks_prev ON attest_blocks (previous_hash);
CREATE INDEX IF NOT EXISTS idx_attest_blocks_record ON attest_blocks (record_type, record_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS attest_blocks`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "attest_blocks_append_only",
			Version: "20250101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TRIGGER IF NOT EXISTS attest_blocks_no_update
BEFORE UPDATE ON attest_blocks
BEGIN
    SELECT RAISE(ABORT, 'attest_blocks is append-only');
END;

CREATE TRIGGER IF NOT EXISTS attest_blocks_no_delete
BEFORE DELETE ON attest_blocks
BEGIN
    SELECT RAISE(ABORT, 'attest_blocks is append-only');
END;
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
DROP TRIGGER IF EXISTS attest_blocks_no_update;
DROP TRIGGER IF EXISTS attest_blocks_no_delete;
`)
				return err
			},
		},
	)
}
