// Package session mantiene el care recipient activo del cliente: la selección
// persistida, el directorio del usuario y la regla de auto-selección.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"caregiver-support/internal/client/api"
	"caregiver-support/internal/client/storage"
)

var (
	ErrNotAuthenticated  = errors.New("session: not authenticated")
	ErrNoActiveRecipient = errors.New("session: no active care recipient selected")
	ErrNoRecipients      = errors.New("session: user has no care recipients")
)

// Directory lista los care recipients del usuario autenticado (orden de creación).
type Directory interface {
	Authenticated() bool
	ListCareRecipients(ctx context.Context) ([]api.CareRecipient, error)
}

// State es una foto inmutable del contexto.
// Recipients == nil con Loaded=false => cargando o error (distinto de lista vacía).
type State struct {
	ActiveID   *string
	Recipients []api.CareRecipient
	Loaded     bool
}

type Context struct {
	store storage.Storage
	dir   Directory

	mu         sync.Mutex
	activeID   *string
	recipients []api.CareRecipient
	loaded     bool

	subs   map[int]func(State)
	nextID int

	cancelWatch func()
}

// New lee la selección persistida y empieza a escuchar cambios de otras pestañas.
// No consulta el directorio: eso lo hace Refresh.
func New(ctx context.Context, store storage.Storage, dir Directory) (*Context, error) {
	c := &Context{
		store: store,
		dir:   dir,
		subs:  map[int]func(State){},
	}

	id, err := readActiveID(ctx, store)
	if err != nil {
		return nil, err
	}
	c.activeID = id

	cancel, err := store.Subscribe(ctx, c.onStorageChange)
	if err != nil {
		return nil, err
	}
	c.cancelWatch = cancel
	return c, nil
}

func (c *Context) Close() {
	if c.cancelWatch != nil {
		c.cancelWatch()
	}
}

func (c *Context) ActiveCareRecipientID() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeID == nil {
		return "", false
	}
	return *c.activeID, true
}

// CareRecipients devuelve false mientras la lista no se cargó (o falló).
func (c *Context) CareRecipients() ([]api.CareRecipient, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return nil, false
	}
	return append([]api.CareRecipient(nil), c.recipients...), true
}

func (c *Context) SelectedCareRecipient() (api.CareRecipient, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeID == nil {
		return api.CareRecipient{}, false
	}
	for _, r := range c.recipients {
		if r.ID == *c.activeID {
			return r, true
		}
	}
	return api.CareRecipient{}, false
}

func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// SetActiveCareRecipientID persiste primero; si falla el storage no cambia nada.
// nil borra la selección (y la auto-selección la repone si hay lista).
func (c *Context) SetActiveCareRecipientID(ctx context.Context, id *string) error {
	if id != nil {
		id = parseActiveID(*id)
	}
	if err := writeActiveID(ctx, c.store, id); err != nil {
		return err
	}

	c.mu.Lock()
	c.activeID = id
	c.mu.Unlock()

	return c.settle(ctx)
}

// Refresh vuelve a pedir el directorio. Sin sesión no hace request.
// Si falla, la lista queda como estaba y no hay auto-selección.
func (c *Context) Refresh(ctx context.Context) error {
	if c.dir == nil || !c.dir.Authenticated() {
		return ErrNotAuthenticated
	}
	list, err := c.dir.ListCareRecipients(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.recipients = append([]api.CareRecipient(nil), list...)
	c.loaded = true
	c.mu.Unlock()

	return c.settle(ctx)
}

// Reset olvida el directorio (logout). La selección persistida se conserva.
func (c *Context) Reset() {
	c.mu.Lock()
	c.recipients = nil
	c.loaded = false
	st := c.stateLocked()
	fns := c.subscribersLocked()
	c.mu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}

// RequireActive devuelve el id a usar en operaciones por recipient.
func (c *Context) RequireActive() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded && len(c.recipients) == 0 {
		return "", ErrNoRecipients
	}
	if c.activeID == nil || *c.activeID == "" {
		return "", ErrNoActiveRecipient
	}
	return *c.activeID, nil
}

// Subscribe recibe el estado después de cada cambio.
func (c *Context) Subscribe(fn func(State)) (cancel func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// settle aplica la auto-selección y notifica. Es no-op cuando la selección ya
// es miembro de la lista, así que un segundo llamado no vuelve a escribir.
func (c *Context) settle(ctx context.Context) error {
	c.mu.Lock()
	healed, need := c.healTargetLocked()
	c.mu.Unlock()

	if need {
		if err := writeActiveID(ctx, c.store, &healed); err != nil {
			c.notify()
			return err
		}
		c.mu.Lock()
		c.activeID = &healed
		c.mu.Unlock()
	}
	c.notify()
	return nil
}

func (c *Context) healTargetLocked() (string, bool) {
	if !c.loaded || len(c.recipients) == 0 {
		return "", false
	}
	if c.activeID != nil {
		for _, r := range c.recipients {
			if r.ID == *c.activeID {
				return "", false
			}
		}
	}
	return c.recipients[0].ID, true
}

// onStorageChange reconcilia la selección escrita por otra pestaña.
func (c *Context) onStorageChange(ch storage.Change) {
	if ch.Key != storage.KeyActiveCareRecipientID {
		return
	}

	var id *string
	if !ch.Deleted {
		id = parseActiveID(ch.Value)
	}

	c.mu.Lock()
	c.activeID = id
	c.mu.Unlock()

	_ = c.settle(context.Background())
}

func (c *Context) notify() {
	c.mu.Lock()
	st := c.stateLocked()
	fns := c.subscribersLocked()
	c.mu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}

func (c *Context) stateLocked() State {
	st := State{Loaded: c.loaded}
	if c.activeID != nil {
		id := *c.activeID
		st.ActiveID = &id
	}
	if c.loaded {
		st.Recipients = append([]api.CareRecipient{}, c.recipients...)
	}
	return st
}

func (c *Context) subscribersLocked() []func(State) {
	out := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		out = append(out, fn)
	}
	return out
}

func readActiveID(ctx context.Context, store storage.Storage) (*string, error) {
	v, err := store.Get(ctx, storage.KeyActiveCareRecipientID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return parseActiveID(v), nil
}

// parseActiveID acepta el id plano y también un string JSON ("\"7\"").
func parseActiveID(v string) *string {
	v = strings.TrimSpace(v)
	var quoted string
	if strings.HasPrefix(v, `"`) && json.Unmarshal([]byte(v), &quoted) == nil {
		v = strings.TrimSpace(quoted)
	}
	if v == "" || v == "null" {
		return nil
	}
	return &v
}

func writeActiveID(ctx context.Context, store storage.Storage, id *string) error {
	if id == nil || *id == "" {
		return store.Delete(ctx, storage.KeyActiveCareRecipientID)
	}
	return store.Set(ctx, storage.KeyActiveCareRecipientID, *id)
}
