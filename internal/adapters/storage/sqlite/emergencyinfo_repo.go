package sqlite

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

func (r *EmergencyInfoRepo) Create(ctx context.Context, i emergencyinfo.Info) error {
	contacts, err := json.Marshal(nonNilContacts(i.EmergencyContacts))
	if err != nil {
		return fmt.Errorf("encode emergency contacts: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO emergency_info (`+emergencyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		i.ID, i.CareRecipientID,
		i.BloodType, i.Allergies, i.Conditions, i.Medications,
		string(contacts),
		i.PhysicianName, i.PhysicianPhone,
		i.InsuranceProvider, i.InsurancePolicyNumber,
		i.DNR, i.AdditionalNotes,
		i.PINHash, toNanos(i.CreatedAt), toNanos(i.UpdatedAt),
	)
	return uniqueConflict(err, emergencyinfo.ErrAlreadyExists)
}

func (r *EmergencyInfoRepo) Update(ctx context.Context, i emergencyinfo.Info) error {
	contacts, err := json.Marshal(nonNilContacts(i.EmergencyContacts))
	if err != nil {
		return fmt.Errorf("encode emergency contacts: %w", err)
	}
	return affectedOne(emergencyinfo.ErrNotFound)(r.db.ExecContext(ctx, `
		UPDATE emergency_info
		SET
			blood_type = ?,
			allergies = ?,
			conditions = ?,
			medications = ?,
			emergency_contacts = ?,
			physician_name = ?,
			physician_phone = ?,
			insurance_provider = ?,
			insurance_policy_number = ?,
			dnr = ?,
			additional_notes = ?,
			pin_hash = ?,
			updated_at = ?
		WHERE id = ?
	`,
		i.BloodType, i.Allergies, i.Conditions, i.Medications,
		string(contacts),
		i.PhysicianName, i.PhysicianPhone,
		i.InsuranceProvider, i.InsurancePolicyNumber,
		i.DNR, i.AdditionalNotes,
		i.PINHash, toNanos(i.UpdatedAt),
		i.ID,
	))
}

func (r *EmergencyInfoRepo) GetByID(ctx context.Context, id string) (emergencyinfo.Info, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return emergencyinfo.Info{}, notFound(emergencyinfo.ErrNotFound)
	}
	return r.getOne(ctx, `SELECT `+emergencyColumns+` FROM emergency_info WHERE id = ?`, id)
}

func (r *EmergencyInfoRepo) GetByRecipient(ctx context.Context, careRecipientID string) (emergencyinfo.Info, error) {
	return r.getOne(ctx, `SELECT `+emergencyColumns+` FROM emergency_info WHERE care_recipient_id = ?`, careRecipientID)
}

func (r *EmergencyInfoRepo) Delete(ctx context.Context, id string) error {
	return affectedOne(emergencyinfo.ErrNotFound)(r.db.ExecContext(ctx, `DELETE FROM emergency_info WHERE id = ?`, id))
}

func (r *EmergencyInfoRepo) DeleteByRecipient(ctx context.Context, careRecipientID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM emergency_info WHERE care_recipient_id = ?`, careRecipientID)
	return err
}

func (r *EmergencyInfoRepo) getOne(ctx context.Context, query string, arg any) (emergencyinfo.Info, error) {
	var i emergencyinfo.Info
	var contacts string
	var created, updated int64
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&i.ID, &i.CareRecipientID,
		&i.BloodType, &i.Allergies, &i.Conditions, &i.Medications,
		&contacts,
		&i.PhysicianName, &i.PhysicianPhone,
		&i.InsuranceProvider, &i.InsurancePolicyNumber,
		&i.DNR, &i.AdditionalNotes,
		&i.PINHash, &created, &updated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return emergencyinfo.Info{}, notFound(emergencyinfo.ErrNotFound)
		}
		return emergencyinfo.Info{}, err
	}
	if contacts != "" && contacts != "[]" {
		if err := json.Unmarshal([]byte(contacts), &i.EmergencyContacts); err != nil {
			return emergencyinfo.Info{}, fmt.Errorf("decode emergency contacts: %w", err)
		}
	}
	i.CreatedAt = fromNanos(created)
	i.UpdatedAt = fromNanos(updated)
	return i, nil
}

func nonNilContacts(cs []emergencyinfo.Contact) []emergencyinfo.Contact {
	if cs == nil {
		return []emergencyinfo.Contact{}
	}
	return cs
}
