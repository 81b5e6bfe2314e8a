// Package sqlite guarda los datos en un archivo SQLite (driver puro Go, sin CGO).
// Pensado para instalaciones de un solo nodo y desarrollo local.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlitedriver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	ErrNotFound = errors.New("not found")
)

// Open abre (o crea) la base en path y aplica el schema.
func Open(path string) (*sql.DB, error) {
	if path == "" {
		path = "caregiver.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	// foreign_keys es por conexión; el pragma en el DSN lo aplica a todas.
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite serializa escrituras.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	name          TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	created_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS care_recipients (
	id            TEXT PRIMARY KEY,
	owner_user_id TEXT NOT NULL,
	name          TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'active',
	created_at    INTEGER NOT NULL,
	updated_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_care_recipients_owner ON care_recipients(owner_user_id, created_at);

CREATE TABLE IF NOT EXISTS care_records (
	id                TEXT PRIMARY KEY,
	care_recipient_id TEXT NOT NULL REFERENCES care_recipients(id) ON DELETE CASCADE,
	kind              TEXT NOT NULL,
	occurred_at       INTEGER NOT NULL,
	notes             TEXT NOT NULL DEFAULT '',
	details           TEXT NOT NULL DEFAULT '{}',
	created_by        TEXT NOT NULL,
	created_at        INTEGER NOT NULL,
	updated_at        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_care_records_recipient_kind ON care_records(care_recipient_id, kind, occurred_at);

CREATE TABLE IF NOT EXISTS emergency_info (
	id                      TEXT PRIMARY KEY,
	care_recipient_id       TEXT NOT NULL UNIQUE REFERENCES care_recipients(id) ON DELETE CASCADE,
	blood_type              TEXT NOT NULL DEFAULT '',
	allergies               TEXT NOT NULL DEFAULT '',
	conditions              TEXT NOT NULL DEFAULT '',
	medications             TEXT NOT NULL DEFAULT '',
	emergency_contacts      TEXT NOT NULL DEFAULT '[]',
	physician_name          TEXT NOT NULL DEFAULT '',
	physician_phone         TEXT NOT NULL DEFAULT '',
	insurance_provider      TEXT NOT NULL DEFAULT '',
	insurance_policy_number TEXT NOT NULL DEFAULT '',
	dnr                     INTEGER NOT NULL DEFAULT 0,
	additional_notes        TEXT NOT NULL DEFAULT '',
	pin_hash                TEXT NOT NULL DEFAULT '',
	created_at              INTEGER NOT NULL,
	updated_at              INTEGER NOT NULL
);
`

// Los timestamps se guardan como unix nanos (UTC): ordenan bien y comparan exacto.
func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

type scanner interface {
	Scan(dest ...any) error
}

// affectedOne exige una fila afectada; con cero devuelve notFound(missing).
func affectedOne(missing error) func(sql.Result, error) error {
	return func(res sql.Result, err error) error {
		if err != nil {
			return err
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return notFound(missing)
		}
		return nil
	}
}

// notFound cumple errors.Is tanto con ErrNotFound como con el sentinel del dominio.
func notFound(domainErr error) error {
	return fmt.Errorf("%w: %w", ErrNotFound, domainErr)
}

// uniqueConflict traduce una violación UNIQUE al error de dominio; el resto pasa igual.
func uniqueConflict(err, domainErr error) error {
	var se *sqlitedriver.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w (%s)", domainErr, se.Error())
		}
	}
	return err
}
