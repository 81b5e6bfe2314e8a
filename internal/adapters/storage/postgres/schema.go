package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// schema es idempotente; se aplica en cada arranque.
// Las FK con ON DELETE CASCADE replican en la base la cascada del servicio.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	name          TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS care_recipients (
	id            TEXT PRIMARY KEY,
	owner_user_id TEXT NOT NULL,
	name          TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'active',
	seq           BIGSERIAL,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_care_recipients_owner ON care_recipients(owner_user_id, created_at, seq);

CREATE TABLE IF NOT EXISTS care_records (
	id                TEXT PRIMARY KEY,
	care_recipient_id TEXT NOT NULL REFERENCES care_recipients(id) ON DELETE CASCADE,
	kind              TEXT NOT NULL,
	occurred_at       TIMESTAMPTZ NOT NULL,
	notes             TEXT NOT NULL DEFAULT '',
	details           JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_by        TEXT NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_care_records_recipient_kind ON care_records(care_recipient_id, kind, occurred_at DESC);

CREATE TABLE IF NOT EXISTS emergency_info (
	id                      TEXT PRIMARY KEY,
	care_recipient_id       TEXT NOT NULL UNIQUE REFERENCES care_recipients(id) ON DELETE CASCADE,
	blood_type              TEXT NOT NULL DEFAULT '',
	allergies               TEXT NOT NULL DEFAULT '',
	conditions              TEXT NOT NULL DEFAULT '',
	medications             TEXT NOT NULL DEFAULT '',
	emergency_contacts      JSONB NOT NULL DEFAULT '[]'::jsonb,
	physician_name          TEXT NOT NULL DEFAULT '',
	physician_phone         TEXT NOT NULL DEFAULT '',
	insurance_provider      TEXT NOT NULL DEFAULT '',
	insurance_policy_number TEXT NOT NULL DEFAULT '',
	dnr                     BOOLEAN NOT NULL DEFAULT FALSE,
	additional_notes        TEXT NOT NULL DEFAULT '',
	pin_hash                TEXT NOT NULL DEFAULT '',
	created_at              TIMESTAMPTZ NOT NULL,
	updated_at              TIMESTAMPTZ NOT NULL
);
`

// Migrate crea las tablas si no existen.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
