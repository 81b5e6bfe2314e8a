// Package workspace junta el cliente REST con el contexto del care recipient
// activo, el cache por (recurso, recipient) y el unlock store. Toda lectura o
// escritura por recipient pasa por acá.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"caregiver-support/internal/client/api"
	"caregiver-support/internal/client/emergency"
	"caregiver-support/internal/client/querycache"
	"caregiver-support/internal/client/session"
	"caregiver-support/internal/client/storage"
	"caregiver-support/internal/client/unlock"
)

var ErrUnknownRecipient = errors.New("workspace: care recipient is not in the user's list")

type Options struct {
	BaseURL string
	Timeout time.Duration

	// Storage durable del cliente. Nil => memoria (se pierde al cerrar).
	Storage storage.Storage

	// TimeZone IANA para el resumen de hoy. Vacío => UTC.
	TimeZone string

	// Invalidations reemplaza la tabla por defecto.
	Invalidations querycache.Table
}

type Workspace struct {
	api      *api.Client
	store    storage.Storage
	tz       string
	session  *session.Context
	cache    *querycache.Cache
	unlocked *unlock.Store
	viewer   *emergency.Viewer
}

// Open restaura el token guardado y la selección persistida. No pide el
// directorio: eso lo hace Refresh (o Login).
func Open(ctx context.Context, opts Options) (*Workspace, error) {
	st := opts.Storage
	if st == nil {
		st = storage.NewMemory()
	}

	client, err := api.New(opts.BaseURL, opts.Timeout)
	if err != nil {
		return nil, err
	}
	tok, err := st.Get(ctx, storage.KeyAuthToken)
	switch {
	case err == nil:
		client.SetToken(tok)
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("workspace: read token: %w", err)
	}

	sess, err := session.New(ctx, st, client)
	if err != nil {
		return nil, err
	}
	unlocked, err := unlock.New(ctx, st)
	if err != nil {
		sess.Close()
		return nil, err
	}

	cache := querycache.New(opts.Invalidations)
	cache.FetchTimeout = opts.Timeout

	return &Workspace{
		api:      client,
		store:    st,
		tz:       strings.TrimSpace(opts.TimeZone),
		session:  sess,
		cache:    cache,
		unlocked: unlocked,
		viewer:   emergency.NewViewer(client, unlocked),
	}, nil
}

func (w *Workspace) Close() {
	w.session.Close()
	w.unlocked.Close()
}

func (w *Workspace) Session() *session.Context { return w.session }

func (w *Workspace) Cache() *querycache.Cache { return w.cache }

func (w *Workspace) Authenticated() bool { return w.api.Authenticated() }

// -------------------------
// Auth
// -------------------------

func (w *Workspace) Register(ctx context.Context, email, name, password string) (api.User, error) {
	u, err := w.api.Register(ctx, email, name, password)
	if err != nil {
		return api.User{}, err
	}
	return u, w.startSession(ctx)
}

func (w *Workspace) Login(ctx context.Context, email, password string) (api.User, error) {
	u, err := w.api.Login(ctx, email, password)
	if err != nil {
		return api.User{}, err
	}
	return u, w.startSession(ctx)
}

func (w *Workspace) Me(ctx context.Context) (api.User, error) {
	return w.api.Me(ctx)
}

// Logout olvida token, directorio, cache y desbloqueos. La selección
// persistida se conserva para el próximo login.
func (w *Workspace) Logout(ctx context.Context) error {
	w.api.SetToken("")
	w.cache.Clear()
	w.session.Reset()
	w.viewer.Forget()

	if err := w.store.Delete(ctx, storage.KeyAuthToken); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("workspace: forget token: %w", err)
	}
	return w.unlocked.Clear(ctx)
}

func (w *Workspace) startSession(ctx context.Context) error {
	if err := w.store.Set(ctx, storage.KeyAuthToken, w.api.Token()); err != nil {
		return fmt.Errorf("workspace: persist token: %w", err)
	}
	w.cache.Clear()
	return w.session.Refresh(ctx)
}

// -------------------------
// Care recipients
// -------------------------

func (w *Workspace) Refresh(ctx context.Context) error {
	return w.session.Refresh(ctx)
}

// Use cambia el recipient activo. Con la lista cargada solo acepta miembros.
func (w *Workspace) Use(ctx context.Context, careRecipientID string) error {
	careRecipientID = strings.TrimSpace(careRecipientID)
	if list, ok := w.session.CareRecipients(); ok {
		found := false
		for _, r := range list {
			if r.ID == careRecipientID {
				found = true
				break
			}
		}
		if !found {
			return ErrUnknownRecipient
		}
	}
	return w.session.SetActiveCareRecipientID(ctx, &careRecipientID)
}

func (w *Workspace) CreateRecipient(ctx context.Context, name string) (api.CareRecipient, error) {
	r, err := w.api.CreateCareRecipient(ctx, name)
	if err != nil {
		return api.CareRecipient{}, err
	}
	return r, w.session.Refresh(ctx)
}

func (w *Workspace) RenameRecipient(ctx context.Context, id, name string) (api.CareRecipient, error) {
	r, err := w.api.UpdateCareRecipient(ctx, id, &name, nil)
	if err != nil {
		return api.CareRecipient{}, err
	}
	return r, w.session.Refresh(ctx)
}

// DeleteRecipient borra en cascada del lado del servidor; si era el activo,
// la auto-selección elige otro al refrescar.
func (w *Workspace) DeleteRecipient(ctx context.Context, id string) error {
	if err := w.api.DeleteCareRecipient(ctx, id); err != nil {
		return err
	}
	w.cache.Clear()
	return w.session.Refresh(ctx)
}

// -------------------------
// Records
// -------------------------

// Records lista los registros del recipient activo. Solo la lista completa se
// cachea; una consulta con filtros va siempre al servidor.
func (w *Workspace) Records(ctx context.Context, resource string, opts api.ListOptions) ([]api.Record, error) {
	rid, err := w.session.RequireActive()
	if err != nil {
		return nil, err
	}
	resource = api.Resource(resource)

	fetch := func(ctx context.Context) ([]api.Record, error) {
		return w.api.ListRecords(ctx, resource, rid, opts)
	}
	if opts != (api.ListOptions{}) {
		return fetch(ctx)
	}
	return querycache.Get(ctx, w.cache, querycache.Key{Resource: resource, CareRecipientID: rid}, fetch)
}

// Record lee un registro puntual. Uno de otro recipient se reporta como
// api.ErrNotFound aunque el servidor lo devuelva.
func (w *Workspace) Record(ctx context.Context, resource, id string) (api.Record, error) {
	rid, err := w.session.RequireActive()
	if err != nil {
		return nil, err
	}
	rec, err := w.api.GetRecord(ctx, api.Resource(resource), id)
	if err != nil {
		return nil, err
	}
	if rec.CareRecipientID() != rid {
		return nil, fmt.Errorf("%w: record %s belongs to another care recipient", api.ErrNotFound, id)
	}
	return rec, nil
}

func (w *Workspace) CreateRecord(ctx context.Context, resource string, payload map[string]any) (api.Record, error) {
	rid, err := w.session.RequireActive()
	if err != nil {
		return nil, err
	}
	resource = api.Resource(resource)

	body := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	body["careRecipientId"] = rid

	var out api.Record
	err = w.cache.AfterMutation(ctx, resource, rid, func(ctx context.Context) error {
		out, err = w.api.CreateRecord(ctx, resource, body)
		return err
	})
	return out, err
}

func (w *Workspace) UpdateRecord(ctx context.Context, resource, id string, patch map[string]any) (api.Record, error) {
	rid, err := w.session.RequireActive()
	if err != nil {
		return nil, err
	}
	resource = api.Resource(resource)

	var out api.Record
	err = w.cache.AfterMutation(ctx, resource, rid, func(ctx context.Context) error {
		out, err = w.api.UpdateRecord(ctx, resource, id, patch)
		return err
	})
	return out, err
}

func (w *Workspace) DeleteRecord(ctx context.Context, resource, id string) error {
	rid, err := w.session.RequireActive()
	if err != nil {
		return err
	}
	resource = api.Resource(resource)

	return w.cache.AfterMutation(ctx, resource, rid, func(ctx context.Context) error {
		return w.api.DeleteRecord(ctx, resource, id)
	})
}

func (w *Workspace) TodayStats(ctx context.Context) (api.TodayStats, error) {
	rid, err := w.session.RequireActive()
	if err != nil {
		return api.TodayStats{}, err
	}
	key := querycache.Key{Resource: querycache.StatsResource, CareRecipientID: rid}
	return querycache.Get(ctx, w.cache, key, func(ctx context.Context) (api.TodayStats, error) {
		return w.api.TodayStats(ctx, rid, w.tz)
	})
}

// -------------------------
// Emergency info
// -------------------------

// EmergencyInfo devuelve la ficha bloqueada del recipient activo y su estado
// en este cliente. api.ErrNotFound si todavía no tiene ficha.
func (w *Workspace) EmergencyInfo(ctx context.Context) (api.EmergencyInfo, emergency.State, error) {
	info, err := w.emergencyInfo(ctx)
	if err != nil {
		return api.EmergencyInfo{}, emergency.StateLocked, err
	}
	return info, w.viewer.State(ctx, info.ID), nil
}

func (w *Workspace) CreateEmergencyInfo(ctx context.Context, pin string, contents api.EmergencyContents) (api.EmergencyInfo, error) {
	rid, err := w.session.RequireActive()
	if err != nil {
		return api.EmergencyInfo{}, err
	}
	var out api.EmergencyInfo
	err = w.cache.AfterMutation(ctx, querycache.EmergencyInfoResource, rid, func(ctx context.Context) error {
		out, err = w.api.CreateEmergencyInfo(ctx, rid, pin, contents)
		return err
	})
	return out, err
}

// UpdateEmergencyInfo re-verifica cred en el servidor. El estado de
// desbloqueo local no cambia; la vista bloqueada cacheada se invalida.
func (w *Workspace) UpdateEmergencyInfo(ctx context.Context, cred emergency.Credential, in api.EmergencyInfoUpdate) (api.UnlockedEmergencyInfo, error) {
	info, err := w.emergencyInfo(ctx)
	if err != nil {
		return api.UnlockedEmergencyInfo{}, err
	}
	var out api.UnlockedEmergencyInfo
	err = w.cache.AfterMutation(ctx, querycache.EmergencyInfoResource, info.CareRecipientID, func(ctx context.Context) error {
		out, err = w.api.UpdateEmergencyInfo(ctx, info.ID, cred, in)
		return err
	})
	return out, err
}

// DeleteEmergencyInfo borra la ficha y la vuelve a bloquear en este cliente.
func (w *Workspace) DeleteEmergencyInfo(ctx context.Context, cred emergency.Credential) error {
	info, err := w.emergencyInfo(ctx)
	if err != nil {
		return err
	}
	err = w.cache.AfterMutation(ctx, querycache.EmergencyInfoResource, info.CareRecipientID, func(ctx context.Context) error {
		return w.api.DeleteEmergencyInfo(ctx, info.ID, cred)
	})
	if err != nil {
		return err
	}
	return w.viewer.Lock(ctx, info.ID)
}

func (w *Workspace) RevealEmergencyInfo(ctx context.Context, cred emergency.Credential) (api.UnlockedEmergencyInfo, error) {
	info, err := w.emergencyInfo(ctx)
	if err != nil {
		return api.UnlockedEmergencyInfo{}, err
	}
	return w.viewer.Reveal(ctx, info.ID, cred)
}

// EmergencyContents devuelve lo ya revelado sin volver a verificar.
func (w *Workspace) EmergencyContents(ctx context.Context) (api.UnlockedEmergencyInfo, error) {
	info, err := w.emergencyInfo(ctx)
	if err != nil {
		return api.UnlockedEmergencyInfo{}, err
	}
	return w.viewer.Contents(ctx, info.ID)
}

func (w *Workspace) LockEmergencyInfo(ctx context.Context) error {
	info, err := w.emergencyInfo(ctx)
	if err != nil {
		return err
	}
	return w.viewer.Lock(ctx, info.ID)
}

func (w *Workspace) emergencyInfo(ctx context.Context) (api.EmergencyInfo, error) {
	rid, err := w.session.RequireActive()
	if err != nil {
		return api.EmergencyInfo{}, err
	}
	key := querycache.Key{Resource: querycache.EmergencyInfoResource, CareRecipientID: rid}
	return querycache.Get(ctx, w.cache, key, func(ctx context.Context) (api.EmergencyInfo, error) {
		return w.api.EmergencyInfo(ctx, rid)
	})
}
