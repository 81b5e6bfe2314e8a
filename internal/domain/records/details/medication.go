package details

import (
	"strings"
	"time"
)

type Medication struct {
	Name      string `json:"name" validate:"required"`
	Dosage    string `json:"dosage,omitempty"`   // "2"
	DoseUnit  string `json:"doseUnit,omitempty"` // "ml", "mg", etc.
	Frequency string `json:"frequency,omitempty"`

	// TimesPerDay alimenta el progreso diario de care-stats. Default 1.
	TimesPerDay int `json:"timesPerDay,omitempty" validate:"min=1,max=24"`

	EndDate      *time.Time `json:"endDate,omitempty"`
	Instructions string     `json:"instructions,omitempty"`
	Active       *bool      `json:"active,omitempty"`
}

func (m *Medication) Normalize(startDate time.Time) error {
	m.Name = strings.TrimSpace(m.Name)
	if m.TimesPerDay == 0 {
		m.TimesPerDay = 1
	}
	if err := Validate(m); err != nil {
		return err
	}
	if m.EndDate != nil && m.EndDate.Before(startDate) {
		return invalid("endDate must not be before startDate")
	}
	if m.Active == nil {
		active := true
		m.Active = &active
	}
	return nil
}

// ActiveOn indica si la medicación está vigente en algún momento de [from, to).
func (m Medication) ActiveOn(startDate, from, to time.Time) bool {
	if m.Active != nil && !*m.Active {
		return false
	}
	if !startDate.Before(to) {
		return false
	}
	return m.EndDate == nil || !m.EndDate.Before(from)
}

type MedicationLogStatus string

const (
	MedicationLogTaken   MedicationLogStatus = "taken"
	MedicationLogSkipped MedicationLogStatus = "skipped"
)

type MedicationLog struct {
	MedicationID string              `json:"medicationId" validate:"required"`
	DosageTaken  string              `json:"dosageTaken,omitempty"`
	Status       MedicationLogStatus `json:"status,omitempty" validate:"oneof=taken skipped"`
}

func (l *MedicationLog) Normalize(time.Time) error {
	l.MedicationID = strings.TrimSpace(l.MedicationID)
	if l.Status == "" {
		l.Status = MedicationLogTaken
	}
	return Validate(l)
}
