package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"caregiver-support/internal/domain/carerecipients"
)

type CareRecipientsRepo struct {
	db *sql.DB
}

func NewCareRecipientsRepo(db *sql.DB) *CareRecipientsRepo {
	return &CareRecipientsRepo{db: db}
}

func (r *CareRecipientsRepo) Create(ctx context.Context, c carerecipients.CareRecipient) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO care_recipients (id, owner_user_id, name, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.ID, c.OwnerUserID, c.Name, string(c.Status), toNanos(c.CreatedAt), toNanos(c.UpdatedAt))
	return err
}

func (r *CareRecipientsRepo) Update(ctx context.Context, c carerecipients.CareRecipient) error {
	return affectedOne(carerecipients.ErrNotFound)(r.db.ExecContext(ctx, `
		UPDATE care_recipients
		SET name = ?, status = ?, updated_at = ?
		WHERE id = ?
	`, c.Name, string(c.Status), toNanos(c.UpdatedAt), c.ID))
}

func (r *CareRecipientsRepo) GetByID(ctx context.Context, id string) (carerecipients.CareRecipient, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return carerecipients.CareRecipient{}, notFound(carerecipients.ErrNotFound)
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, owner_user_id, name, status, created_at, updated_at
		FROM care_recipients
		WHERE id = ?
	`, id)

	c, err := scanCareRecipient(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return carerecipients.CareRecipient{}, notFound(carerecipients.ErrNotFound)
		}
		return carerecipients.CareRecipient{}, err
	}
	return c, nil
}

// ListByOwner desempata por rowid: orden de inserción.
func (r *CareRecipientsRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]carerecipients.CareRecipient, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_user_id, name, status, created_at, updated_at
		FROM care_recipients
		WHERE owner_user_id = ?
		ORDER BY created_at ASC, rowid ASC
	`, ownerUserID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]carerecipients.CareRecipient, 0)
	for rows.Next() {
		c, err := scanCareRecipient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CareRecipientsRepo) Delete(ctx context.Context, id string) error {
	return affectedOne(carerecipients.ErrNotFound)(r.db.ExecContext(ctx, `DELETE FROM care_recipients WHERE id = ?`, id))
}

func scanCareRecipient(s scanner) (carerecipients.CareRecipient, error) {
	var c carerecipients.CareRecipient
	var status string
	var created, updated int64
	if err := s.Scan(&c.ID, &c.OwnerUserID, &c.Name, &status, &created, &updated); err != nil {
		return carerecipients.CareRecipient{}, err
	}
	c.Status = carerecipients.Status(status)
	c.CreatedAt = fromNanos(created)
	c.UpdatedAt = fromNanos(updated)
	return c, nil
}
