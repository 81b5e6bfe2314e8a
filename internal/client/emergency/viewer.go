// Package emergency controla qué ve el usuario de la ficha de emergencia:
// LOCKED hasta que el servidor verifica el PIN o la contraseña, UNLOCKED
// hasta un Lock explícito o hasta que se borre el unlock store.
package emergency

import (
	"context"
	"errors"
	"strings"
	"sync"

	"caregiver-support/internal/client/api"
)

var (
	ErrNoCredential = errors.New("emergency: pin or password is required")
	ErrNotVerified  = errors.New("emergency: credential not verified")
	ErrLocked       = errors.New("emergency: info is locked")

	// ErrRepromptRequired: el store dice UNLOCKED pero el contenido no está
	// en memoria (recarga, otra pestaña). Hay que volver a verificar.
	ErrRepromptRequired = errors.New("emergency: verify again to show contents")
)

type State string

const (
	StateLocked   State = "LOCKED"
	StateUnlocked State = "UNLOCKED"
)

type Verifier interface {
	VerifyPIN(ctx context.Context, id, pin string) (api.VerifyResult, error)
	VerifyPassword(ctx context.Context, id, password string) (api.VerifyResult, error)
}

// UnlockSet es la parte de unlock.Store que usa el viewer.
type UnlockSet interface {
	IsUnlocked(ctx context.Context, id string) bool
	Unlock(ctx context.Context, id string) error
	Lock(ctx context.Context, id string) error
}

// Credential es la misma que viaja al servidor en update/delete.
type Credential = api.Credential

type Viewer struct {
	verifier Verifier
	unlocked UnlockSet

	mu       sync.Mutex
	contents map[string]api.UnlockedEmergencyInfo
}

func NewViewer(v Verifier, unlocked UnlockSet) *Viewer {
	return &Viewer{
		verifier: v,
		unlocked: unlocked,
		contents: map[string]api.UnlockedEmergencyInfo{},
	}
}

func (v *Viewer) State(ctx context.Context, id string) State {
	if v.unlocked.IsUnlocked(ctx, id) {
		return StateUnlocked
	}
	v.forget(id)
	return StateLocked
}

// Reveal verifica contra el servidor. El PIN tiene prioridad si vienen ambos.
// Una verificación fallida no cambia el estado.
func (v *Viewer) Reveal(ctx context.Context, id string, cred Credential) (api.UnlockedEmergencyInfo, error) {
	var (
		res api.VerifyResult
		err error
	)
	switch {
	case strings.TrimSpace(cred.PIN) != "":
		res, err = v.verifier.VerifyPIN(ctx, id, strings.TrimSpace(cred.PIN))
	case cred.Password != "":
		res, err = v.verifier.VerifyPassword(ctx, id, cred.Password)
	default:
		return api.UnlockedEmergencyInfo{}, ErrNoCredential
	}
	if err != nil {
		return api.UnlockedEmergencyInfo{}, err
	}
	if !res.Verified || res.EmergencyInfo == nil {
		return api.UnlockedEmergencyInfo{}, ErrNotVerified
	}

	if err := v.unlocked.Unlock(ctx, id); err != nil {
		return api.UnlockedEmergencyInfo{}, err
	}
	v.mu.Lock()
	v.contents[id] = *res.EmergencyInfo
	v.mu.Unlock()
	return *res.EmergencyInfo, nil
}

// Contents devuelve lo revelado en esta sesión.
func (v *Viewer) Contents(ctx context.Context, id string) (api.UnlockedEmergencyInfo, error) {
	if v.State(ctx, id) == StateLocked {
		return api.UnlockedEmergencyInfo{}, ErrLocked
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	c, ok := v.contents[id]
	if !ok {
		return api.UnlockedEmergencyInfo{}, ErrRepromptRequired
	}
	return c, nil
}

func (v *Viewer) Lock(ctx context.Context, id string) error {
	v.forget(id)
	return v.unlocked.Lock(ctx, id)
}

// Forget borra todo contenido en memoria (logout).
func (v *Viewer) Forget() {
	v.mu.Lock()
	v.contents = map[string]api.UnlockedEmergencyInfo{}
	v.mu.Unlock()
}

func (v *Viewer) forget(id string) {
	v.mu.Lock()
	delete(v.contents, id)
	v.mu.Unlock()
}
