// Package unlock guarda qué fichas de emergency info ya fueron verificadas en
// este cliente. Es solo un aviso para no volver a pedir el PIN: el servidor
// nunca lo consulta.
package unlock

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"caregiver-support/internal/client/storage"
)

var ErrInvalidID = errors.New("unlock: record id is required")

// Store lee a través de un cache en memoria; la fuente de verdad es el
// storage durable. Un cambio hecho por otra pestaña invalida el cache.
type Store struct {
	store storage.Storage

	mu     sync.Mutex
	ids    map[string]bool
	loaded bool

	cancel func()
}

func New(ctx context.Context, store storage.Storage) (*Store, error) {
	s := &Store{store: store}
	cancel, err := store.Subscribe(ctx, s.onStorageChange)
	if err != nil {
		return nil, fmt.Errorf("unlock: subscribe: %w", err)
	}
	s.cancel = cancel
	return s, nil
}

func (s *Store) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// IsUnlocked nunca falla: si el storage no responde la ficha cuenta como
// bloqueada y la UI vuelve a pedir la credencial.
func (s *Store) IsUnlocked(ctx context.Context, id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	ids, err := s.current(ctx)
	if err != nil {
		return false
	}
	return ids[id]
}

// Unlock es idempotente.
func (s *Store) Unlock(ctx context.Context, id string) error {
	return s.update(ctx, id, func(ids map[string]bool, id string) { ids[id] = true })
}

// Lock es idempotente.
func (s *Store) Lock(ctx context.Context, id string) error {
	return s.update(ctx, id, func(ids map[string]bool, id string) { delete(ids, id) })
}

// Clear bloquea todo (logout).
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Delete(ctx, storage.KeyUnlockedEmergencyInfoIDs); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("unlock: clear: %w", err)
	}
	s.ids, s.loaded = map[string]bool{}, true
	return nil
}

// IDs devuelve los ids desbloqueados, ordenados.
func (s *Store) IDs(ctx context.Context) ([]string, error) {
	ids, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	return sortedIDs(ids), nil
}

func (s *Store) update(ctx context.Context, id string, apply func(map[string]bool, string)) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Se relee el storage antes de escribir: otra pestaña pudo cambiarlo.
	ids, err := s.readLocked(ctx)
	if err != nil {
		return err
	}
	apply(ids, id)

	raw, err := encodeIDs(ids)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, storage.KeyUnlockedEmergencyInfoIDs, raw); err != nil {
		s.loaded = false
		return fmt.Errorf("unlock: persist: %w", err)
	}
	s.ids, s.loaded = ids, true
	return nil
}

func (s *Store) current(ctx context.Context) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.ids, nil
	}
	ids, err := s.readLocked(ctx)
	if err != nil {
		return nil, err
	}
	s.ids, s.loaded = ids, true
	return ids, nil
}

func (s *Store) readLocked(ctx context.Context) (map[string]bool, error) {
	raw, err := s.store.Get(ctx, storage.KeyUnlockedEmergencyInfoIDs)
	if errors.Is(err, storage.ErrNotFound) {
		return map[string]bool{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unlock: read: %w", err)
	}
	return decodeIDs(raw), nil
}

func (s *Store) onStorageChange(ch storage.Change) {
	if ch.Key != storage.KeyUnlockedEmergencyInfoIDs {
		return
	}
	s.mu.Lock()
	s.ids, s.loaded = nil, false
	s.mu.Unlock()
}

// decodeIDs acepta ids numéricos (formato heredado) y de texto. Un valor
// corrupto equivale a un set vacío: solo provoca volver a pedir el PIN.
func decodeIDs(raw string) map[string]bool {
	out := map[string]bool{}
	if strings.TrimSpace(raw) == "" {
		return out
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var items []any
	if err := dec.Decode(&items); err != nil {
		return out
	}
	for _, it := range items {
		switch v := it.(type) {
		case json.Number:
			out[v.String()] = true
		case string:
			if v = strings.TrimSpace(v); v != "" {
				out[v] = true
			}
		}
	}
	return out
}

// encodeIDs escribe como número todo id que lo sea, para que los clientes
// viejos sigan leyendo la misma clave.
func encodeIDs(ids map[string]bool) (string, error) {
	items := make([]any, 0, len(ids))
	for _, id := range sortedIDs(ids) {
		if n, err := strconv.ParseInt(id, 10, 64); err == nil && strconv.FormatInt(n, 10) == id {
			items = append(items, n)
			continue
		}
		items = append(items, id)
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("unlock: encode: %w", err)
	}
	return string(b), nil
}

func sortedIDs(ids map[string]bool) []string {
	out := make([]string, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
