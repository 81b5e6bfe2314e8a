package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"caregiver-support/internal/domain/emergencyinfo"
)

type EmergencyInfoRepo struct {
	db *sql.DB
}

func NewEmergencyInfoRepo(db *sql.DB) *EmergencyInfoRepo {
	return &EmergencyInfoRepo{db: db}
}

const emergencyColumns = `
	id, care_recipient_id,
	blood_type, allergies, conditions, medications,
	emergency_contacts,
	physician_name, physician_phone,
	insurance_provider, insurance_policy_number,
	dnr, additional_notes,
	pin_hash, created_at, updated_at`

// contactRow es el formato de emergency_contacts (jsonb).
type contactRow struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Phone        string `json:"phone"`
}

func (r *EmergencyInfoRepo) Create(ctx context.Context, i emergencyinfo.Info) error {
	contacts, err := encodeContacts(i.EmergencyContacts)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO emergency_info (`+emergencyColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`,
		i.ID, i.CareRecipientID,
		i.BloodType, i.Allergies, i.Conditions, i.Medications,
		contacts,
		i.PhysicianName, i.PhysicianPhone,
		i.InsuranceProvider, i.InsurancePolicyNumber,
		i.DNR, i.AdditionalNotes,
		i.PINHash, i.CreatedAt, i.UpdatedAt,
	)
	return uniqueConflict(err, emergencyinfo.ErrAlreadyExists)
}

func (r *EmergencyInfoRepo) Update(ctx context.Context, i emergencyinfo.Info) error {
	contacts, err := encodeContacts(i.EmergencyContacts)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE emergency_info
		SET
			blood_type = $2,
			allergies = $3,
			conditions = $4,
			medications = $5,
			emergency_contacts = $6,
			physician_name = $7,
			physician_phone = $8,
			insurance_provider = $9,
			insurance_policy_number = $10,
			dnr = $11,
			additional_notes = $12,
			pin_hash = $13,
			updated_at = $14
		WHERE id = $1
	`,
		i.ID,
		i.BloodType, i.Allergies, i.Conditions, i.Medications,
		contacts,
		i.PhysicianName, i.PhysicianPhone,
		i.InsuranceProvider, i.InsurancePolicyNumber,
		i.DNR, i.AdditionalNotes,
		i.PINHash, i.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return notFound(emergencyinfo.ErrNotFound)
	}
	return nil
}

func (r *EmergencyInfoRepo) GetByID(ctx context.Context, id string) (emergencyinfo.Info, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return emergencyinfo.Info{}, notFound(emergencyinfo.ErrNotFound)
	}
	return r.getOne(ctx, `SELECT `+emergencyColumns+` FROM emergency_info WHERE id = $1`, id)
}

func (r *EmergencyInfoRepo) GetByRecipient(ctx context.Context, careRecipientID string) (emergencyinfo.Info, error) {
	return r.getOne(ctx, `SELECT `+emergencyColumns+` FROM emergency_info WHERE care_recipient_id = $1`, careRecipientID)
}

func (r *EmergencyInfoRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM emergency_info WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return notFound(emergencyinfo.ErrNotFound)
	}
	return nil
}

func (r *EmergencyInfoRepo) DeleteByRecipient(ctx context.Context, careRecipientID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM emergency_info WHERE care_recipient_id = $1`, careRecipientID)
	return err
}

func (r *EmergencyInfoRepo) getOne(ctx context.Context, query string, arg any) (emergencyinfo.Info, error) {
	var i emergencyinfo.Info
	var contacts []byte
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&i.ID, &i.CareRecipientID,
		&i.BloodType, &i.Allergies, &i.Conditions, &i.Medications,
		&contacts,
		&i.PhysicianName, &i.PhysicianPhone,
		&i.InsuranceProvider, &i.InsurancePolicyNumber,
		&i.DNR, &i.AdditionalNotes,
		&i.PINHash, &i.CreatedAt, &i.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return emergencyinfo.Info{}, notFound(emergencyinfo.ErrNotFound)
		}
		return emergencyinfo.Info{}, err
	}
	if i.EmergencyContacts, err = decodeContacts(contacts); err != nil {
		return emergencyinfo.Info{}, err
	}
	return i, nil
}

func encodeContacts(cs []emergencyinfo.Contact) (string, error) {
	rows := make([]contactRow, 0, len(cs))
	for _, c := range cs {
		rows = append(rows, contactRow{Name: c.Name, Relationship: c.Relationship, Phone: c.Phone})
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("encode emergency contacts: %w", err)
	}
	return string(b), nil
}

func decodeContacts(b []byte) ([]emergencyinfo.Contact, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var rows []contactRow
	if err := json.Unmarshal(b, &rows); err != nil {
		return nil, fmt.Errorf("decode emergency contacts: %w", err)
	}
	out := make([]emergencyinfo.Contact, 0, len(rows))
	for _, r := range rows {
		out = append(out, emergencyinfo.Contact{Name: r.Name, Relationship: r.Relationship, Phone: r.Phone})
	}
	return out, nil
}
