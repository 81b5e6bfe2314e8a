package emergency

import (
	"context"
	"errors"
	"testing"

	"caregiver-support/internal/client/api"
	"caregiver-support/internal/client/storage"
	"caregiver-support/internal/client/unlock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeVerifier: PIN "1234" y contraseña "secret" para la ficha "e1".
type fakeVerifier struct {
	calls int
	err   error
}

func (f *fakeVerifier) result(id string, ok bool) (api.VerifyResult, error) {
	f.calls++
	if f.err != nil {
		return api.VerifyResult{}, f.err
	}
	if !ok || id != "e1" {
		return api.VerifyResult{Verified: false}, nil
	}
	return api.VerifyResult{Verified: true, EmergencyInfo: &api.UnlockedEmergencyInfo{
		ID:                id,
		EmergencyContents: api.EmergencyContents{BloodType: "O+", Allergies: "penicillin"},
	}}, nil
}

func (f *fakeVerifier) VerifyPIN(_ context.Context, id, pin string) (api.VerifyResult, error) {
	return f.result(id, pin == "1234")
}

func (f *fakeVerifier) VerifyPassword(_ context.Context, id, password string) (api.VerifyResult, error) {
	return f.result(id, password == "secret")
}

func newViewer(t *testing.T, st storage.Storage) (*Viewer, *fakeVerifier, *unlock.Store) {
	t.Helper()
	us, err := unlock.New(context.Background(), st)
	require.NoError(t, err)
	t.Cleanup(us.Close)
	fv := &fakeVerifier{}
	return NewViewer(fv, us), fv, us
}

func TestViewer_StartsLocked(t *testing.T) {
	v, _, _ := newViewer(t, storage.NewMemory())
	ctx := context.Background()

	assert.Equal(t, StateLocked, v.State(ctx, "e1"))
	_, err := v.Contents(ctx, "e1")
	assert.ErrorIs(t, err, ErrLocked)
}

func TestViewer_RevealThenLock(t *testing.T) {
	v, _, us := newViewer(t, storage.NewMemory())
	ctx := context.Background()

	got, err := v.Reveal(ctx, "e1", Credential{PIN: "1234"})
	require.NoError(t, err)
	assert.Equal(t, "O+", got.BloodType)
	assert.Equal(t, StateUnlocked, v.State(ctx, "e1"))
	assert.True(t, us.IsUnlocked(ctx, "e1"))

	c, err := v.Contents(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "penicillin", c.Allergies)

	require.NoError(t, v.Lock(ctx, "e1"))
	assert.Equal(t, StateLocked, v.State(ctx, "e1"))
	_, err = v.Contents(ctx, "e1")
	assert.ErrorIs(t, err, ErrLocked)
}

func TestViewer_FailedVerifyStaysLocked(t *testing.T) {
	v, fv, _ := newViewer(t, storage.NewMemory())
	ctx := context.Background()

	_, err := v.Reveal(ctx, "e1", Credential{PIN: "0000"})
	assert.ErrorIs(t, err, ErrNotVerified)
	assert.Equal(t, StateLocked, v.State(ctx, "e1"))

	_, err = v.Reveal(ctx, "e1", Credential{})
	assert.ErrorIs(t, err, ErrNoCredential)
	assert.Equal(t, 1, fv.calls)

	fv.err = errors.New("offline")
	_, err = v.Reveal(ctx, "e1", Credential{Password: "secret"})
	assert.EqualError(t, err, "offline")
	assert.Equal(t, StateLocked, v.State(ctx, "e1"))
}

func TestViewer_PasswordUnlocks(t *testing.T) {
	v, _, _ := newViewer(t, storage.NewMemory())
	ctx := context.Background()

	_, err := v.Reveal(ctx, "e1", Credential{Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, StateUnlocked, v.State(ctx, "e1"))
}

func TestViewer_ReloadAsksAgain(t *testing.T) {
	st := storage.NewMemory()
	ctx := context.Background()

	first, _, _ := newViewer(t, st)
	_, err := first.Reveal(ctx, "e1", Credential{PIN: "1234"})
	require.NoError(t, err)

	// Cliente nuevo: el store sigue desbloqueado pero no hay contenido.
	fresh, _, _ := newViewer(t, st)
	assert.Equal(t, StateUnlocked, fresh.State(ctx, "e1"))
	_, err = fresh.Contents(ctx, "e1")
	assert.ErrorIs(t, err, ErrRepromptRequired)
}

func TestViewer_ClearedStoreLocks(t *testing.T) {
	backend := storage.NewMemory()
	ctx := context.Background()

	v, _, _ := newViewer(t, backend)
	_, err := v.Reveal(ctx, "e1", Credential{PIN: "1234"})
	require.NoError(t, err)

	other, err := unlock.New(ctx, backend.NewTab())
	require.NoError(t, err)
	defer other.Close()
	require.NoError(t, other.Clear(ctx))

	assert.Equal(t, StateLocked, v.State(ctx, "e1"))
	_, err = v.Contents(ctx, "e1")
	assert.ErrorIs(t, err, ErrLocked)
}
