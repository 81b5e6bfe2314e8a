package carerecipients

import "context"

type Repository interface {
	Create(ctx context.Context, c CareRecipient) error
	Update(ctx context.Context, c CareRecipient) error
	GetByID(ctx context.Context, id string) (CareRecipient, error)
	// ListByOwner devuelve en orden de creación (asc).
	ListByOwner(ctx context.Context, ownerUserID string) ([]CareRecipient, error)
	Delete(ctx context.Context, id string) error
}

// DependentPurger borra los registros que dependen de un care recipient.
// Lo implementan records y emergencyinfo; evita ciclos de imports.
type DependentPurger interface {
	PurgeRecipient(ctx context.Context, careRecipientID string) error
}
