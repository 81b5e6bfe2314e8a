package carerecipients

import "time"

// Status del care recipient.
// @Enum active, inactive
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// CareRecipient es la persona cuidada; unidad de scope de casi todos los registros.
type CareRecipient struct {
	ID          string
	OwnerUserID string

	Name   string
	Status Status

	CreatedAt time.Time
	UpdatedAt time.Time
}
