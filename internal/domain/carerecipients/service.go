package carerecipients

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("care recipient not found")
	ErrForbidden    = errors.New("forbidden")
)

const maxNameLen = 120

type Service struct {
	repo    Repository
	purgers []DependentPurger
	now     func() time.Time
}

func NewService(repo Repository, purgers ...DependentPurger) *Service {
	return &Service{
		repo:    repo,
		purgers: purgers,
		now:     time.Now,
	}
}

type CreateInput struct {
	Name   string
	Status Status
}

func (s *Service) Create(ctx context.Context, ownerUserID string, in CreateInput) (CareRecipient, error) {
	ownerUserID = strings.TrimSpace(ownerUserID)
	name := strings.TrimSpace(in.Name)
	if ownerUserID == "" || name == "" || len(name) > maxNameLen {
		return CareRecipient{}, ErrInvalidInput
	}

	status := in.Status
	if status == "" {
		status = StatusActive
	}
	if !status.Valid() {
		return CareRecipient{}, ErrInvalidInput
	}

	now := s.now()
	c := CareRecipient{
		ID:          uuid.NewString(),
		OwnerUserID: ownerUserID,
		Name:        name,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return CareRecipient{}, err
	}
	return c, nil
}

// GetOwned devuelve el recipient solo si pertenece a ownerUserID.
func (s *Service) GetOwned(ctx context.Context, id, ownerUserID string) (CareRecipient, error) {
	if err := s.Authorize(ctx, id, ownerUserID); err != nil {
		return CareRecipient{}, err
	}
	return s.repo.GetByID(ctx, strings.TrimSpace(id))
}

func (s *Service) ListByOwner(ctx context.Context, ownerUserID string) ([]CareRecipient, error) {
	ownerUserID = strings.TrimSpace(ownerUserID)
	if ownerUserID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByOwner(ctx, ownerUserID)
}

// UpdateInput usa punteros para PATCH real: nil = no tocar.
type UpdateInput struct {
	Name   *string
	Status *Status
}

func (s *Service) Update(ctx context.Context, id, ownerUserID string, in UpdateInput) (CareRecipient, error) {
	c, err := s.GetOwned(ctx, id, ownerUserID)
	if err != nil {
		return CareRecipient{}, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" || len(name) > maxNameLen {
			return CareRecipient{}, ErrInvalidInput
		}
		c.Name = name
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return CareRecipient{}, ErrInvalidInput
		}
		c.Status = *in.Status
	}

	c.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, c); err != nil {
		return CareRecipient{}, err
	}
	return c, nil
}

// Delete borra el recipient y todo lo que depende de él.
// Primero los dependientes: si algo falla, el recipient sigue existiendo
// y el usuario puede reintentar.
func (s *Service) Delete(ctx context.Context, id, ownerUserID string) error {
	if err := s.Authorize(ctx, id, ownerUserID); err != nil {
		return err
	}
	id = strings.TrimSpace(id)

	for _, p := range s.purgers {
		if err := p.PurgeRecipient(ctx, id); err != nil {
			return fmt.Errorf("purge dependents of %s: %w", id, err)
		}
	}
	return s.repo.Delete(ctx, id)
}
