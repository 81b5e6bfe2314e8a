package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"caregiver-support/internal/domain/records"
)

type RecordsRepo struct {
	db *sql.DB
}

func NewRecordsRepo(db *sql.DB) *RecordsRepo {
	return &RecordsRepo{db: db}
}

const recordColumns = `
	id, care_recipient_id,
	kind, occurred_at,
	notes, details,
	created_by, created_at, updated_at`

func (r *RecordsRepo) Create(ctx context.Context, rec records.Record) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO care_records (`+recordColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		rec.ID,
		rec.CareRecipientID,
		string(rec.Kind),
		rec.OccurredAt,
		rec.Notes,
		detailsArg(rec.Details),
		rec.CreatedBy,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	return err
}

func (r *RecordsRepo) Update(ctx context.Context, rec records.Record) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE care_records
		SET occurred_at = $2, notes = $3, details = $4, updated_at = $5
		WHERE id = $1
	`, rec.ID, rec.OccurredAt, rec.Notes, detailsArg(rec.Details), rec.UpdatedAt)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return notFound(records.ErrNotFound)
	}
	return nil
}

func (r *RecordsRepo) GetByID(ctx context.Context, id string) (records.Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return records.Record{}, notFound(records.ErrNotFound)
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM care_records WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return records.Record{}, notFound(records.ErrNotFound)
		}
		return records.Record{}, err
	}
	return rec, nil
}

func (r *RecordsRepo) List(ctx context.Context, filter records.ListFilter) ([]records.Record, error) {
	sb := strings.Builder{}
	sb.WriteString(`SELECT ` + recordColumns + ` FROM care_records WHERE care_recipient_id = $1`)

	args := []any{filter.CareRecipientID}
	argN := 2

	// kinds filter
	if len(filter.Kinds) > 0 {
		placeholders := make([]string, 0, len(filter.Kinds))
		for _, k := range filter.Kinds {
			placeholders = append(placeholders, fmt.Sprintf("$%d", argN))
			args = append(args, string(k))
			argN++
		}
		sb.WriteString(" AND kind IN (" + strings.Join(placeholders, ",") + ")")
	}

	// from inclusivo / to exclusivo
	if filter.From != nil {
		sb.WriteString(fmt.Sprintf(" AND occurred_at >= $%d", argN))
		args = append(args, *filter.From)
		argN++
	}
	if filter.To != nil {
		sb.WriteString(fmt.Sprintf(" AND occurred_at < $%d", argN))
		args = append(args, *filter.To)
		argN++
	}

	sb.WriteString(" ORDER BY occurred_at DESC, created_at DESC")
	if filter.Limit > 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", argN))
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]records.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *RecordsRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM care_records WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return notFound(records.ErrNotFound)
	}
	return nil
}

func (r *RecordsRepo) DeleteByRecipient(ctx context.Context, careRecipientID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM care_records WHERE care_recipient_id = $1`, careRecipientID)
	return err
}

func scanRecord(s scanner) (records.Record, error) {
	var rec records.Record
	var kind string
	var det []byte
	if err := s.Scan(
		&rec.ID,
		&rec.CareRecipientID,
		&kind,
		&rec.OccurredAt,
		&rec.Notes,
		&det,
		&rec.CreatedBy,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return records.Record{}, err
	}
	rec.Kind = records.Kind(kind)
	rec.Details = det
	return rec, nil
}

// detailsArg envía el JSON como texto; jsonb lo castea.
func detailsArg(b []byte) string {
	if len(b) == 0 {
		return "{}"
	}
	return string(b)
}
