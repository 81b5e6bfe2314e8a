package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"caregiver-support/internal/domain/carerecipients"
)

type careRecipientRepo struct {
	mu   sync.RWMutex
	byID map[string]carerecipients.CareRecipient
	// seq conserva el orden de inserción aunque dos CreatedAt coincidan.
	seq   map[string]int
	nextN int
}

func NewCareRecipientRepo() carerecipients.Repository {
	return &careRecipientRepo{
		byID: make(map[string]carerecipients.CareRecipient),
		seq:  make(map[string]int),
	}
}

func (r *careRecipientRepo) Create(ctx context.Context, c carerecipients.CareRecipient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(c.ID) == "" {
		return errors.New("care recipient id required")
	}
	if _, exists := r.byID[c.ID]; exists {
		return errors.New("care recipient already exists")
	}
	r.byID[c.ID] = c
	r.nextN++
	r.seq[c.ID] = r.nextN
	return nil
}

func (r *careRecipientRepo) Update(ctx context.Context, c carerecipients.CareRecipient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[c.ID]; !exists {
		return notFound(carerecipients.ErrNotFound)
	}
	r.byID[c.ID] = c
	return nil
}

func (r *careRecipientRepo) GetByID(ctx context.Context, id string) (carerecipients.CareRecipient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byID[id]
	if !ok {
		return carerecipients.CareRecipient{}, notFound(carerecipients.ErrNotFound)
	}
	return c, nil
}

func (r *careRecipientRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]carerecipients.CareRecipient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]carerecipients.CareRecipient, 0)
	for _, c := range r.byID {
		if c.OwnerUserID == ownerUserID {
			out = append(out, c)
		}
	}

	// Orden de creación: el cliente elige el primero como default.
	sort.Slice(out, func(i, j int) bool {
		return r.seq[out[i].ID] < r.seq[out[j].ID]
	})
	return out, nil
}

func (r *careRecipientRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return notFound(carerecipients.ErrNotFound)
	}
	delete(r.byID, id)
	delete(r.seq, id)
	return nil
}
