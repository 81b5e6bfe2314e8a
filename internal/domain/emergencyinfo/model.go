package emergencyinfo

import (
	"fmt"
	"strings"
	"time"
)

// UnlockMode define qué credenciales pueden revelar la información de emergencia.
type UnlockMode string

const (
	UnlockModePIN      UnlockMode = "pin"
	UnlockModePassword UnlockMode = "password"
	UnlockModeEither   UnlockMode = "either"
)

func ParseUnlockMode(s string) (UnlockMode, error) {
	switch m := UnlockMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return UnlockModeEither, nil
	case UnlockModePIN, UnlockModePassword, UnlockModeEither:
		return m, nil
	default:
		return "", fmt.Errorf("invalid unlock mode %q (want pin|password|either)", s)
	}
}

type Contact struct {
	Name         string
	Relationship string
	Phone        string
}

// Contents es lo que solo se devuelve tras verificar PIN o contraseña.
type Contents struct {
	BloodType   string
	Allergies   string
	Conditions  string
	Medications string

	EmergencyContacts []Contact

	PhysicianName  string
	PhysicianPhone string

	InsuranceProvider     string
	InsurancePolicyNumber string

	DNR             bool
	AdditionalNotes string
}

// Info es la ficha de emergencia; a lo sumo una por care recipient.
type Info struct {
	ID              string
	CareRecipientID string

	Contents

	PINHash string // bcrypt; vacío => sin PIN

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (i Info) HasPIN() bool {
	return i.PINHash != ""
}

// Credential: exactamente uno de los dos campos.
type Credential struct {
	PIN      string
	Password string
}
