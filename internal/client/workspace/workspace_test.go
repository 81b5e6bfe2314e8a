package workspace_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"caregiver-support/internal/client/api"
	"caregiver-support/internal/client/emergency"
	"caregiver-support/internal/client/querycache"
	"caregiver-support/internal/client/session"
	"caregiver-support/internal/client/storage"
	"caregiver-support/internal/client/unlock"
	"caregiver-support/internal/client/workspace"
	"caregiver-support/internal/router"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(router.NewRouter(router.Options{JWTSecret: "test-secret"}))
	t.Cleanup(ts.Close)
	return ts
}

func open(t *testing.T, baseURL string, st storage.Storage) *workspace.Workspace {
	t.Helper()
	ws, err := workspace.Open(context.Background(), workspace.Options{
		BaseURL: baseURL,
		Timeout: 5 * time.Second,
		Storage: st,
	})
	require.NoError(t, err)
	t.Cleanup(ws.Close)
	return ws
}

// signedIn deja una sesión con dos recipients: Rose (activa) y Tom.
func signedIn(t *testing.T, baseURL string, st storage.Storage) (ws *workspace.Workspace, rose, tom string) {
	t.Helper()
	ctx := context.Background()

	ws = open(t, baseURL, st)
	_, err := ws.Register(ctx, "ana@example.com", "Ana", "account-pass")
	require.NoError(t, err)

	r, err := ws.CreateRecipient(ctx, "Rose")
	require.NoError(t, err)
	tm, err := ws.CreateRecipient(ctx, "Tom")
	require.NoError(t, err)

	active, ok := ws.Session().ActiveCareRecipientID()
	require.True(t, ok)
	require.Equal(t, r.ID, active)
	return ws, r.ID, tm.ID
}

func TestWorkspace_RequiresActiveRecipientBeforeRequests(t *testing.T) {
	ts := newServer(t)
	ctx := context.Background()
	ws := open(t, ts.URL, storage.NewMemory())

	_, err := ws.Register(ctx, "ana@example.com", "Ana", "account-pass")
	require.NoError(t, err)

	_, err = ws.Records(ctx, "meals", api.ListOptions{})
	assert.ErrorIs(t, err, session.ErrNoRecipients)

	_, err = ws.CreateRecord(ctx, "meals", map[string]any{"mealType": "lunch"})
	assert.ErrorIs(t, err, session.ErrNoRecipients)
}

func TestWorkspace_MutationRefreshesListAndStats(t *testing.T) {
	ts := newServer(t)
	ctx := context.Background()
	ws, rose, tom := signedIn(t, ts.URL, storage.NewMemory())

	meals, err := ws.Records(ctx, "meals", api.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, meals)
	stats, err := ws.TodayStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Meals.Count)

	created, err := ws.CreateRecord(ctx, "meals", map[string]any{"mealType": "lunch"})
	require.NoError(t, err)
	assert.Equal(t, rose, created.CareRecipientID())

	meals, err = ws.Records(ctx, "/api/meals", api.ListOptions{})
	require.NoError(t, err)
	require.Len(t, meals, 1)
	assert.Equal(t, created.ID(), meals[0].ID())

	stats, err = ws.TodayStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Meals.Count)

	// Tom no ve nada de Rose.
	require.NoError(t, ws.Use(ctx, tom))
	meals, err = ws.Records(ctx, "meals", api.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, meals)

	require.NoError(t, ws.Use(ctx, rose))
	require.NoError(t, ws.DeleteRecord(ctx, "meals", created.ID()))
	meals, err = ws.Records(ctx, "meals", api.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, meals)
}

func TestWorkspace_FailedMutationKeepsCacheAndSelection(t *testing.T) {
	ts := newServer(t)
	ctx := context.Background()
	ws, rose, _ := signedIn(t, ts.URL, storage.NewMemory())

	_, err := ws.Records(ctx, "meals", api.ListOptions{})
	require.NoError(t, err)
	_, err = ws.TodayStats(ctx)
	require.NoError(t, err)

	_, err = ws.CreateRecord(ctx, "meals", map[string]any{"mealType": "brunch"})
	assert.ErrorIs(t, err, api.ErrInvalid)

	assert.True(t, ws.Cache().Cached(querycache.Key{Resource: "/api/meals", CareRecipientID: rose}))
	assert.True(t, ws.Cache().Cached(querycache.Key{Resource: querycache.StatsResource, CareRecipientID: rose}))
	active, _ := ws.Session().ActiveCareRecipientID()
	assert.Equal(t, rose, active)
}

func TestWorkspace_UseRejectsUnknownRecipient(t *testing.T) {
	ts := newServer(t)
	ws, rose, _ := signedIn(t, ts.URL, storage.NewMemory())

	assert.ErrorIs(t, ws.Use(context.Background(), "someone-else"), workspace.ErrUnknownRecipient)
	active, _ := ws.Session().ActiveCareRecipientID()
	assert.Equal(t, rose, active)
}

func TestWorkspace_DeletingActiveRecipientHeals(t *testing.T) {
	ts := newServer(t)
	ctx := context.Background()
	ws, rose, tom := signedIn(t, ts.URL, storage.NewMemory())

	require.NoError(t, ws.DeleteRecipient(ctx, rose))
	active, ok := ws.Session().ActiveCareRecipientID()
	require.True(t, ok)
	assert.Equal(t, tom, active)
}

func TestWorkspace_ReopenRestoresSession(t *testing.T) {
	ts := newServer(t)
	ctx := context.Background()
	st := storage.NewMemory()
	_, _, tom := signedIn(t, ts.URL, st)

	first := open(t, ts.URL, st)
	require.NoError(t, first.Refresh(ctx))
	require.NoError(t, first.Use(ctx, tom))

	again := open(t, ts.URL, st)
	assert.True(t, again.Authenticated())
	require.NoError(t, again.Refresh(ctx))
	active, _ := again.Session().ActiveCareRecipientID()
	assert.Equal(t, tom, active)

	require.NoError(t, again.Logout(ctx))
	assert.False(t, again.Authenticated())
	assert.ErrorIs(t, again.Refresh(ctx), session.ErrNotAuthenticated)
}

func TestWorkspace_EmergencyInfoFlow(t *testing.T) {
	ts := newServer(t)
	ctx := context.Background()
	st := storage.NewMemory()
	ws, _, _ := signedIn(t, ts.URL, st)

	_, _, err := ws.EmergencyInfo(ctx)
	assert.ErrorIs(t, err, api.ErrNotFound)

	_, err = ws.CreateEmergencyInfo(ctx, "1234", api.EmergencyContents{BloodType: "O+", Allergies: "penicillin"})
	require.NoError(t, err)

	info, state, err := ws.EmergencyInfo(ctx)
	require.NoError(t, err)
	assert.True(t, info.Locked)
	assert.Equal(t, emergency.StateLocked, state)

	_, err = ws.RevealEmergencyInfo(ctx, emergency.Credential{PIN: "0000"})
	assert.ErrorIs(t, err, emergency.ErrNotVerified)

	got, err := ws.RevealEmergencyInfo(ctx, emergency.Credential{PIN: "1234"})
	require.NoError(t, err)
	assert.Equal(t, "penicillin", got.Allergies)

	_, state, err = ws.EmergencyInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, emergency.StateUnlocked, state)

	// Otro cliente sobre el mismo storage: desbloqueado, pero sin contenido.
	other := open(t, ts.URL, st)
	require.NoError(t, other.Refresh(ctx))
	_, err = other.EmergencyContents(ctx)
	assert.True(t, errors.Is(err, emergency.ErrRepromptRequired))

	require.NoError(t, ws.LockEmergencyInfo(ctx))
	_, err = ws.EmergencyContents(ctx)
	assert.ErrorIs(t, err, emergency.ErrLocked)
}

func TestWorkspace_EmergencyInfoUpdateAndDelete(t *testing.T) {
	ts := newServer(t)
	ctx := context.Background()
	st := storage.NewMemory()
	ws, rose, _ := signedIn(t, ts.URL, st)

	_, err := ws.CreateEmergencyInfo(ctx, "1234", api.EmergencyContents{BloodType: "O+"})
	require.NoError(t, err)
	info, _, err := ws.EmergencyInfo(ctx)
	require.NoError(t, err)
	require.True(t, info.HasPIN)
	_, err = ws.RevealEmergencyInfo(ctx, emergency.Credential{PIN: "1234"})
	require.NoError(t, err)

	key := querycache.Key{Resource: querycache.EmergencyInfoResource, CareRecipientID: rose}
	noPIN := ""

	// una credencial mala no toca nada
	_, err = ws.UpdateEmergencyInfo(ctx, emergency.Credential{PIN: "0000"}, api.EmergencyInfoUpdate{NewPIN: &noPIN})
	assert.ErrorIs(t, err, api.ErrForbidden)
	assert.True(t, ws.Cache().Cached(key))

	updated, err := ws.UpdateEmergencyInfo(ctx, emergency.Credential{PIN: "1234"}, api.EmergencyInfoUpdate{
		NewPIN:   &noPIN,
		Contents: &api.EmergencyContents{BloodType: "A-", Allergies: "latex"},
	})
	require.NoError(t, err)
	assert.Equal(t, "A-", updated.BloodType)
	assert.False(t, ws.Cache().Cached(key), "the locked view must be refetched after an update")

	info, state, err := ws.EmergencyInfo(ctx)
	require.NoError(t, err)
	assert.False(t, info.HasPIN)
	assert.Equal(t, emergency.StateUnlocked, state, "an update does not relock")

	// sin PIN, la contraseña de la cuenta alcanza para borrar
	require.NoError(t, ws.DeleteEmergencyInfo(ctx, emergency.Credential{Password: "account-pass"}))
	_, _, err = ws.EmergencyInfo(ctx)
	assert.ErrorIs(t, err, api.ErrNotFound)

	unlocked, err := unlock.New(ctx, st)
	require.NoError(t, err)
	defer unlocked.Close()
	ids, err := unlocked.IDs(ctx)
	require.NoError(t, err)
	assert.NotContains(t, ids, info.ID)
}

func TestWorkspace_RenameRecipientRefreshesDirectory(t *testing.T) {
	ts := newServer(t)
	ctx := context.Background()
	ws, rose, _ := signedIn(t, ts.URL, storage.NewMemory())

	renamed, err := ws.RenameRecipient(ctx, rose, "Grandma Rose")
	require.NoError(t, err)
	assert.Equal(t, "Grandma Rose", renamed.Name)

	selected, ok := ws.Session().SelectedCareRecipient()
	require.True(t, ok)
	assert.Equal(t, "Grandma Rose", selected.Name)

	_, err = ws.RenameRecipient(ctx, rose, " ")
	assert.ErrorIs(t, err, api.ErrInvalid)
}

func TestWorkspace_RecordStaysInActiveRecipient(t *testing.T) {
	ts := newServer(t)
	ctx := context.Background()
	ws, rose, tom := signedIn(t, ts.URL, storage.NewMemory())

	created, err := ws.CreateRecord(ctx, "notes", map[string]any{"content": "slept well"})
	require.NoError(t, err)

	got, err := ws.Record(ctx, "notes", created.ID())
	require.NoError(t, err)
	assert.Equal(t, rose, got.CareRecipientID())
	assert.Equal(t, "slept well", got["content"])

	require.NoError(t, ws.Use(ctx, tom))
	_, err = ws.Record(ctx, "notes", created.ID())
	assert.ErrorIs(t, err, api.ErrNotFound)
}
