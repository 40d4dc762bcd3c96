package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS violations (
		id             VARCHAR(26)  PRIMARY KEY,
		exam_id        VARCHAR(128) NOT NULL,
		violation_type VARCHAR(32)  NOT NULL,
		severity       VARCHAR(16)  NOT NULL,
		description    TEXT         NOT NULL DEFAULT '',
		face_count     INTEGER,
		detected_items TEXT[]       NOT NULL DEFAULT '{}',
		evidence_url   TEXT         NOT NULL DEFAULT '',
		source         VARCHAR(16)  NOT NULL DEFAULT 'engine',
		occurred_at    TIMESTAMPTZ  NOT NULL,
		created_at     TIMESTAMPTZ  NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_violations_exam_occurred
		ON violations (exam_id, occurred_at)`,
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
