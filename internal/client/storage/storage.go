// Package storage es el almacenamiento durable del cliente (equivalente a
// localStorage): pares clave/valor de texto con notificación de cambios hechos
// por otras instancias ("pestañas").
package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("storage: key not found")

// Claves persistidas por el SDK. No renombrar: otros clientes leen las mismas.
const (
	KeyActiveCareRecipientID    = "activeCareRecipientId"
	KeyUnlockedEmergencyInfoIDs = "unlockedEmergencyInfoIds"
	KeyAuthToken                = "authToken"
)

// Change describe una escritura hecha por OTRA instancia sobre el mismo backend.
// Deleted=true => la clave se borró (Value vacío).
type Change struct {
	Key     string
	Value   string
	Deleted bool
}

type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error

	// Subscribe registra fn para cambios de otras instancias. Las escrituras
	// propias no se notifican. cancel es idempotente.
	Subscribe(ctx context.Context, fn func(Change)) (cancel func(), err error)
}
