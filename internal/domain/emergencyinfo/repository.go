package emergencyinfo

import "context"

// Repository: las lecturas de una ficha inexistente devuelven un error que
// cumple errors.Is(err, ErrNotFound); Create devuelve ErrAlreadyExists si el
// care recipient ya tiene ficha. Cualquier otro error es de infraestructura.
type Repository interface {
	Create(ctx context.Context, i Info) error
	Update(ctx context.Context, i Info) error
	GetByID(ctx context.Context, id string) (Info, error)
	GetByRecipient(ctx context.Context, careRecipientID string) (Info, error)
	Delete(ctx context.Context, id string) error
	DeleteByRecipient(ctx context.Context, careRecipientID string) error
}
