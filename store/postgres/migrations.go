package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the attest store.
var Migrations = migrate.NewGroup("attest")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_attest_blocks",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				// The primary key on block_index is the append CAS: two writers
				// building on the same tail insert the same index and one fails.
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS attest_blocks (
    block_index    BIGINT PRIMARY KEY CHECK (block_index >= 0),
    previous_hash  CHAR(64) NOT NULL,
    record_type    TEXT NOT NULL,
    record_id      TEXT NOT NULL,
    owner_id       TEXT NOT NULL,
    recorded_at    TIMESTAMPTZ NOT NULL,
    data_hash      CHAR(64) NOT NULL,
    data_reference TEXT NOT NULL DEFAULT '',
    metadata       JSONB,
    block_hash     CHAR(64) NOT NULL,
    signature      BYTEA NOT NULL,
    is_valid       BOOLEAN NOT NULL DEFAULT TRUE
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
CREATE OR REPLACE FUNCTION attest_blocks_reject_mutation() RETURNS trigger AS $$
BEGIN
    RAISE EXCEPTION 'attest_blocks is append-only';
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS attest_blocks_append_only ON attest_blocks;
CREATE TRIGGER attest_blocks_append_only
    BEFORE UPDATE OR DELETE ON attest_blocks
    FOR EACH ROW EXECUTE FUNCTION attest_blocks_reject_mutation();
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
DROP TRIGGER IF EXISTS attest_blocks_append_only ON attest_blocks;
DROP FUNCTION IF EXISTS attest_blocks_reject_mutation();
`)
				return err
			},
		},
	)
}
