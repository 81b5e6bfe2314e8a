// Package querycache cachea lecturas por (recurso, care recipient) e invalida
// después de cada mutación exitosa según una tabla declarada.
package querycache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

var (
	ErrNoRecipient     = errors.New("querycache: care recipient id is required")
	ErrMutationPending = errors.New("querycache: a mutation for this key is already in flight")
)

// Key es la frontera de aislamiento: nada de un recipient se ve bajo otro.
type Key struct {
	Resource        string
	CareRecipientID string
}

func (k Key) String() string {
	return k.Resource + "?careRecipientId=" + k.CareRecipientID
}

type entry struct {
	value any
}

// DefaultFetchTimeout acota un fetch compartido cuando Cache.FetchTimeout es cero.
const DefaultFetchTimeout = 30 * time.Second

type Cache struct {
	table Table

	// FetchTimeout acota cada fetch compartido; cero => DefaultFetchTimeout.
	FetchTimeout time.Duration

	mu      sync.Mutex
	entries map[Key]entry
	gens    map[Key]uint64
	// epoch sube con Clear: invalida todo lo que esté en vuelo, tenga o no entrada.
	epoch   uint64
	pending map[Key]bool

	group singleflight.Group
}

func New(table Table) *Cache {
	if table == nil {
		table = DefaultTable()
	}
	return &Cache{
		table:   table,
		entries: map[Key]entry{},
		gens:    map[Key]uint64{},
		pending: map[Key]bool{},
	}
}

// Get devuelve el valor cacheado o llama a fetch. Lecturas concurrentes de la
// misma clave comparten un único fetch. Si la clave se invalida (o el cache se
// vacía) mientras el fetch está en vuelo, la respuesta se devuelve pero no se
// guarda.
//
// El fetch compartido no hereda la cancelación de ningún caller: cada uno deja
// de esperar cuando se cancela su ctx y los demás siguen recibiendo el valor.
func Get[T any](ctx context.Context, c *Cache, key Key, fetch func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if strings.TrimSpace(key.CareRecipientID) == "" {
		return zero, ErrNoRecipient
	}

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		if v, ok := e.value.(T); ok {
			c.mu.Unlock()
			return v, nil
		}
	}
	gen, epoch := c.gens[key], c.epoch
	c.mu.Unlock()

	// Época y generación van en la clave: un fetch posterior a una invalidación
	// no se pega a uno anterior que sigue en vuelo.
	flight := fmt.Sprintf("%s#%d.%d", key, epoch, gen)
	ch := c.group.DoChan(flight, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout())
		defer cancel()

		out, err := fetch(fctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.epoch == epoch && c.gens[key] == gen {
			c.entries[key] = entry{value: out}
		}
		c.mu.Unlock()
		return out, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		out, ok := res.Val.(T)
		if !ok {
			return zero, fmt.Errorf("querycache: %s holds %T", key, res.Val)
		}
		return out, nil
	}
}

func (c *Cache) fetchTimeout() time.Duration {
	if c.FetchTimeout > 0 {
		return c.FetchTimeout
	}
	return DefaultFetchTimeout
}

// Cached indica si hay un valor fresco para key.
func (c *Cache) Cached(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// Invalidate descarta las claves y descarta también los fetch en vuelo.
func (c *Cache) Invalidate(keys ...Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
		c.gens[k]++
	}
}

// Clear vacía todo (logout / cambio de usuario), incluidos los primeros
// fetch de claves que todavía no tienen entrada.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.entries = map[Key]entry{}
	c.gens = map[Key]uint64{}
}

// Affected devuelve las claves a invalidar tras mutar resource para el recipient.
func (c *Cache) Affected(resource, careRecipientID string) []Key {
	resources := c.table.Affected(resource)
	out := make([]Key, 0, len(resources))
	for _, r := range resources {
		out = append(out, Key{Resource: r, CareRecipientID: careRecipientID})
	}
	return out
}

// Pending => hay una mutación en vuelo para key (la UI deshabilita el control).
func (c *Cache) Pending(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending[key]
}

// AfterMutation corre mutate y, solo si tuvo éxito, invalida las claves
// afectadas. Sin recipient no se llama a mutate. Un segundo intento sobre la
// misma clave mientras el primero sigue en vuelo se rechaza.
func (c *Cache) AfterMutation(ctx context.Context, resource, careRecipientID string, mutate func(ctx context.Context) error) error {
	careRecipientID = strings.TrimSpace(careRecipientID)
	if careRecipientID == "" {
		return ErrNoRecipient
	}
	key := Key{Resource: resource, CareRecipientID: careRecipientID}

	c.mu.Lock()
	if c.pending[key] {
		c.mu.Unlock()
		return ErrMutationPending
	}
	c.pending[key] = true
	c.mu.Unlock()

	err := mutate(ctx)

	c.mu.Lock()
	delete(c.pending, key)
	c.mu.Unlock()

	if err != nil {
		return err
	}
	c.Invalidate(c.Affected(resource, careRecipientID)...)
	return nil
}
