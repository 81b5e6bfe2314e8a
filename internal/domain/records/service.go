package records

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnknownKind  = errors.New("unknown record kind")
	ErrNotFound     = errors.New("record not found")
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

type CreateInput struct {
	CareRecipientID string
	OccurredAt      *time.Time // nil => now (o error si el kind lo exige)
	Notes           string
	Details         json.RawMessage
}

func (s *Service) Create(ctx context.Context, kind Kind, actorUserID string, in CreateInput) (Record, error) {
	spec, ok := Lookup(kind)
	if !ok {
		return Record{}, ErrUnknownKind
	}
	recipientID := strings.TrimSpace(in.CareRecipientID)
	if recipientID == "" || strings.TrimSpace(actorUserID) == "" {
		return Record{}, fmt.Errorf("%w: careRecipientId is required", ErrInvalidInput)
	}

	now := s.now().UTC()
	occurredAt := now
	if spec.TimeField != "" {
		switch {
		case in.OccurredAt != nil:
			occurredAt = in.OccurredAt.UTC()
		case spec.TimeRequired:
			return Record{}, fmt.Errorf("%w: %s is required", ErrInvalidInput, spec.TimeField)
		}
	}

	det, err := normalizeDetails(spec, in.Details, occurredAt)
	if err != nil {
		return Record{}, err
	}

	r := Record{
		ID:              uuid.NewString(),
		CareRecipientID: recipientID,
		Kind:            kind,
		OccurredAt:      occurredAt,
		Notes:           strings.TrimSpace(in.Notes),
		Details:         det,
		CreatedBy:       actorUserID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return Record{}, err
	}
	return r, nil
}

// Get devuelve el registro solo si es del kind pedido:
// /api/meals/{id} con el id de una nota es 404.
func (s *Service) Get(ctx context.Context, kind Kind, id string) (Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Record{}, ErrInvalidInput
	}
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if r.Kind != kind {
		return Record{}, ErrNotFound
	}
	return r, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Record, error) {
	filter.CareRecipientID = strings.TrimSpace(filter.CareRecipientID)
	if filter.CareRecipientID == "" {
		return nil, fmt.Errorf("%w: careRecipientId is required", ErrInvalidInput)
	}
	for _, k := range filter.Kinds {
		if _, ok := Lookup(k); !ok {
			return nil, ErrUnknownKind
		}
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, fmt.Errorf("%w: to must not be before from", ErrInvalidInput)
	}
	return s.repo.List(ctx, filter)
}

// UpdateInput usa punteros para PATCH real: nil = no tocar.
type UpdateInput struct {
	OccurredAt *time.Time
	Notes      *string
	// Details se aplica como merge patch: una clave con null borra el campo.
	Details map[string]json.RawMessage
}

func (s *Service) Update(ctx context.Context, kind Kind, id string, in UpdateInput) (Record, error) {
	spec, ok := Lookup(kind)
	if !ok {
		return Record{}, ErrUnknownKind
	}
	r, err := s.Get(ctx, kind, id)
	if err != nil {
		return Record{}, err
	}

	if in.OccurredAt != nil && spec.TimeField != "" {
		r.OccurredAt = in.OccurredAt.UTC()
	}
	if in.Notes != nil {
		r.Notes = strings.TrimSpace(*in.Notes)
	}

	merged, err := mergePatch(r.Details, in.Details)
	if err != nil {
		return Record{}, err
	}
	// Se re-valida siempre: cambiar solo el timestamp puede romper reglas de detalle.
	if r.Details, err = normalizeDetails(spec, merged, r.OccurredAt); err != nil {
		return Record{}, err
	}

	r.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, r); err != nil {
		return Record{}, err
	}
	return r, nil
}

func (s *Service) Delete(ctx context.Context, kind Kind, id string) error {
	r, err := s.Get(ctx, kind, id)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, r.ID)
}

// PurgeRecipient borra todos los registros del recipient (cascada).
func (s *Service) PurgeRecipient(ctx context.Context, careRecipientID string) error {
	careRecipientID = strings.TrimSpace(careRecipientID)
	if careRecipientID == "" {
		return ErrInvalidInput
	}
	return s.repo.DeleteByRecipient(ctx, careRecipientID)
}

func normalizeDetails(spec KindSpec, raw json.RawMessage, occurredAt time.Time) (json.RawMessage, error) {
	d := spec.newDetails()
	if len(bytes.TrimSpace(raw)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(d); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	if err := d.Normalize(occurredAt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return json.Marshal(d)
}

func mergePatch(current json.RawMessage, patch map[string]json.RawMessage) (json.RawMessage, error) {
	if len(patch) == 0 {
		return current, nil
	}
	doc := map[string]json.RawMessage{}
	if len(current) > 0 {
		if err := json.Unmarshal(current, &doc); err != nil {
			return nil, fmt.Errorf("decode stored details: %w", err)
		}
	}
	for k, v := range patch {
		if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			delete(doc, k)
			continue
		}
		doc[k] = v
	}
	return json.Marshal(doc)
}
