package memory

import (
	"context"
	"errors"
	"sync"

	"caregiver-support/internal/domain/emergencyinfo"
)

type emergencyInfoRepo struct {
	mu   sync.RWMutex
	byID map[string]emergencyinfo.Info
}

func NewEmergencyInfoRepo() emergencyinfo.Repository {
	return &emergencyInfoRepo{
		byID: make(map[string]emergencyinfo.Info),
	}
}

func (r *emergencyInfoRepo) Create(ctx context.Context, i emergencyinfo.Info) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i.ID == "" {
		return errors.New("emergency info id required")
	}
	for _, other := range r.byID {
		if other.CareRecipientID == i.CareRecipientID {
			return emergencyinfo.ErrAlreadyExists
		}
	}
	r.byID[i.ID] = cloneInfo(i)
	return nil
}

func (r *emergencyInfoRepo) Update(ctx context.Context, i emergencyinfo.Info) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[i.ID]; !ok {
		return notFound(emergencyinfo.ErrNotFound)
	}
	r.byID[i.ID] = cloneInfo(i)
	return nil
}

func (r *emergencyInfoRepo) GetByID(ctx context.Context, id string) (emergencyinfo.Info, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.byID[id]
	if !ok {
		return emergencyinfo.Info{}, notFound(emergencyinfo.ErrNotFound)
	}
	return cloneInfo(i), nil
}

func (r *emergencyInfoRepo) GetByRecipient(ctx context.Context, careRecipientID string) (emergencyinfo.Info, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, i := range r.byID {
		if i.CareRecipientID == careRecipientID {
			return cloneInfo(i), nil
		}
	}
	return emergencyinfo.Info{}, notFound(emergencyinfo.ErrNotFound)
}

func (r *emergencyInfoRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return notFound(emergencyinfo.ErrNotFound)
	}
	delete(r.byID, id)
	return nil
}

func (r *emergencyInfoRepo) DeleteByRecipient(ctx context.Context, careRecipientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, i := range r.byID {
		if i.CareRecipientID == careRecipientID {
			delete(r.byID, id)
		}
	}
	return nil
}

// cloneInfo copia el slice de contactos para no compartir memoria con el caller.
func cloneInfo(i emergencyinfo.Info) emergencyinfo.Info {
	i.EmergencyContacts = append([]emergencyinfo.Contact(nil), i.EmergencyContacts...)
	return i
}
