package postgres

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
		VALUES ($1,$2,$3,$4,$5,$6)
	`, c.ID, c.OwnerUserID, c.Name, string(c.Status), c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *CareRecipientsRepo) Update(ctx context.Context, c carerecipients.CareRecipient) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE care_recipients
		SET name = $2, status = $3, updated_at = $4
		WHERE id = $1
	`, c.ID, c.Name, string(c.Status), c.UpdatedAt)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return notFound(carerecipients.ErrNotFound)
	}
	return nil
}

func (r *CareRecipientsRepo) GetByID(ctx context.Context, id string) (carerecipients.CareRecipient, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return carerecipients.CareRecipient{}, notFound(carerecipients.ErrNotFound)
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, owner_user_id, name, status, created_at, updated_at
		FROM care_recipients
		WHERE id = $1
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

func (r *CareRecipientsRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]carerecipients.CareRecipient, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_user_id, name, status, created_at, updated_at
		FROM care_recipients
		WHERE owner_user_id = $1
		ORDER BY created_at ASC, seq ASC
	`, ownerUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

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
	res, err := r.db.ExecContext(ctx, `DELETE FROM care_recipients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return notFound(carerecipients.ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCareRecipient(s scanner) (carerecipients.CareRecipient, error) {
	var c carerecipients.CareRecipient
	var status string
	if err := s.Scan(&c.ID, &c.OwnerUserID, &c.Name, &status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return carerecipients.CareRecipient{}, err
	}
	c.Status = carerecipients.Status(status)
	return c, nil
}
