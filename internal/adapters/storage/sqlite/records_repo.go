package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"caregiver-support/internal/domain/records"
)

type RecordsRepo struct {
	db *sql.DB
}

func NewRecordsRepo(db *sql.DB) *RecordsRepo {
	return &RecordsRepo{db: db}
}

const recordColumns = `id, care_recipient_id, kind, occurred_at, notes, details, created_by, created_at, updated_at`

func (r *RecordsRepo) Create(ctx context.Context, rec records.Record) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO care_records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.CareRecipientID,
		string(rec.Kind),
		toNanos(rec.OccurredAt),
		rec.Notes,
		detailsText(rec.Details),
		rec.CreatedBy,
		toNanos(rec.CreatedAt),
		toNanos(rec.UpdatedAt),
	)
	return err
}

func (r *RecordsRepo) Update(ctx context.Context, rec records.Record) error {
	return affectedOne(records.ErrNotFound)(r.db.ExecContext(ctx, `
		UPDATE care_records
		SET occurred_at = ?, notes = ?, details = ?, updated_at = ?
		WHERE id = ?
	`, toNanos(rec.OccurredAt), rec.Notes, detailsText(rec.Details), toNanos(rec.UpdatedAt), rec.ID))
}

func (r *RecordsRepo) GetByID(ctx context.Context, id string) (records.Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return records.Record{}, notFound(records.ErrNotFound)
	}

	rec, err := scanRecord(r.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM care_records WHERE id = ?`, id))
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
	sb.WriteString(`SELECT ` + recordColumns + ` FROM care_records WHERE care_recipient_id = ?`)
	args := []any{filter.CareRecipientID}

	if len(filter.Kinds) > 0 {
		sb.WriteString(" AND kind IN (?" + strings.Repeat(",?", len(filter.Kinds)-1) + ")")
		for _, k := range filter.Kinds {
			args = append(args, string(k))
		}
	}
	if filter.From != nil {
		sb.WriteString(" AND occurred_at >= ?")
		args = append(args, toNanos(*filter.From))
	}
	if filter.To != nil {
		sb.WriteString(" AND occurred_at < ?")
		args = append(args, toNanos(*filter.To))
	}

	sb.WriteString(" ORDER BY occurred_at DESC, created_at DESC")
	if filter.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

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
	return affectedOne(records.ErrNotFound)(r.db.ExecContext(ctx, `DELETE FROM care_records WHERE id = ?`, id))
}

func (r *RecordsRepo) DeleteByRecipient(ctx context.Context, careRecipientID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM care_records WHERE care_recipient_id = ?`, careRecipientID)
	return err
}

func scanRecord(s scanner) (records.Record, error) {
	var rec records.Record
	var kind, det string
	var occurred, created, updated int64
	if err := s.Scan(
		&rec.ID,
		&rec.CareRecipientID,
		&kind,
		&occurred,
		&rec.Notes,
		&det,
		&rec.CreatedBy,
		&created,
		&updated,
	); err != nil {
		return records.Record{}, err
	}
	rec.Kind = records.Kind(kind)
	rec.Details = []byte(det)
	rec.OccurredAt = fromNanos(occurred)
	rec.CreatedAt = fromNanos(created)
	rec.UpdatedAt = fromNanos(updated)
	return rec, nil
}

func detailsText(b []byte) string {
	if len(b) == 0 {
		return "{}"
	}
	return string(b)
}
