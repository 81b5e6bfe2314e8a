package records

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, r Record) error
	Update(ctx context.Context, r Record) error
	GetByID(ctx context.Context, id string) (Record, error)
	// List ordena por OccurredAt desc (desempate CreatedAt desc).
	List(ctx context.Context, filter ListFilter) ([]Record, error)
	Delete(ctx context.Context, id string) error
	DeleteByRecipient(ctx context.Context, careRecipientID string) error
}

// ListFilter: From inclusivo, To exclusivo. Limit <= 0 => sin límite.
type ListFilter struct {
	CareRecipientID string
	Kinds           []Kind
	From            *time.Time
	To              *time.Time
	Limit           int
}
