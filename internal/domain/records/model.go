package records

import (
	"encoding/json"
	"time"
)

// Record es un registro de cuidado de cualquier tipo (comida, toma, presión, ...).
// Los campos propios de cada tipo viven en Details como JSON ya validado.
type Record struct {
	ID              string
	CareRecipientID string

	Kind Kind

	// OccurredAt es el timestamp del tipo (consumedAt, startTime, ...).
	// Para tipos sin timestamp propio coincide con CreatedAt.
	OccurredAt time.Time
	Notes      string

	Details json.RawMessage

	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DecodeDetails decodifica Details en el struct tipado del kind.
func (r Record) DecodeDetails(v any) error {
	if len(r.Details) == 0 {
		return nil
	}
	return json.Unmarshal(r.Details, v)
}
