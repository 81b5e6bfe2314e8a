package emergencyinfo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidPIN        = errors.New("pin must be 4 to 8 digits")
	ErrNotFound          = errors.New("emergency info not found")
	ErrAlreadyExists     = errors.New("emergency info already exists for this care recipient")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrMethodNotAllowed  = errors.New("unlock method not allowed")
)

// pinRule: solo dígitos, de 4 a 8.
const pinRule = "number,min=4,max=8"

var validate = validator.New()

// PasswordChecker verifica la contraseña de la cuenta; lo implementa users.Service.
type PasswordChecker interface {
	VerifyPassword(ctx context.Context, userID, password string) (bool, error)
}

type Service struct {
	repo      Repository
	passwords PasswordChecker
	mode      UnlockMode

	now  func() time.Time
	cost int
}

func NewService(repo Repository, passwords PasswordChecker, mode UnlockMode) *Service {
	if mode == "" {
		mode = UnlockModeEither
	}
	return &Service{
		repo:      repo,
		passwords: passwords,
		mode:      mode,
		now:       time.Now,
		cost:      bcrypt.DefaultCost,
	}
}

func (s *Service) Mode() UnlockMode {
	return s.mode
}

type CreateInput struct {
	CareRecipientID string
	Contents        Contents
	PIN             string // opcional
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Info, error) {
	recipientID := strings.TrimSpace(in.CareRecipientID)
	if recipientID == "" {
		return Info{}, ErrInvalidInput
	}
	switch _, err := s.repo.GetByRecipient(ctx, recipientID); {
	case err == nil:
		return Info{}, ErrAlreadyExists
	case !errors.Is(err, ErrNotFound):
		return Info{}, fmt.Errorf("lookup emergency info: %w", err)
	}

	hash, err := s.hashPIN(in.PIN)
	if err != nil {
		return Info{}, err
	}

	now := s.now().UTC()
	i := Info{
		ID:              uuid.NewString(),
		CareRecipientID: recipientID,
		Contents:        normalizeContents(in.Contents),
		PINHash:         hash,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	// El repositorio devuelve ErrAlreadyExists si otra petición ganó la carrera.
	if err := s.repo.Create(ctx, i); err != nil {
		return Info{}, err
	}
	return i, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Info, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Info{}, ErrInvalidInput
	}
	i, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Info{}, err
	}
	return i, nil
}

func (s *Service) GetByRecipient(ctx context.Context, careRecipientID string) (Info, error) {
	careRecipientID = strings.TrimSpace(careRecipientID)
	if careRecipientID == "" {
		return Info{}, ErrInvalidInput
	}
	i, err := s.repo.GetByRecipient(ctx, careRecipientID)
	if err != nil {
		return Info{}, err
	}
	return i, nil
}

// VerifyPIN devuelve la ficha completa solo si el PIN coincide.
// Una ficha sin PIN nunca se verifica por PIN.
func (s *Service) VerifyPIN(ctx context.Context, id, pin string) (Info, bool, error) {
	i, err := s.GetByID(ctx, id)
	if err != nil {
		return Info{}, false, err
	}
	ok, err := s.check(ctx, i, "", Credential{PIN: pin})
	if err != nil || !ok {
		return Info{}, false, err
	}
	return i, true, nil
}

// VerifyPassword revela la ficha con la contraseña de la cuenta del usuario.
func (s *Service) VerifyPassword(ctx context.Context, id, userID, password string) (Info, bool, error) {
	i, err := s.GetByID(ctx, id)
	if err != nil {
		return Info{}, false, err
	}
	ok, err := s.check(ctx, i, userID, Credential{Password: password})
	if err != nil || !ok {
		return Info{}, false, err
	}
	return i, true, nil
}

// UpdateInput usa punteros para PATCH real: nil = no tocar.
type UpdateInput struct {
	Contents *Contents
	// NewPIN: "" borra el PIN, otro valor lo reemplaza.
	NewPIN *string
}

// Update re-verifica la credencial en cada llamada; el estado de desbloqueo
// del cliente no autoriza nada en el servidor.
func (s *Service) Update(ctx context.Context, id, userID string, cred Credential, in UpdateInput) (Info, error) {
	i, err := s.GetByID(ctx, id)
	if err != nil {
		return Info{}, err
	}
	if err := s.requireCredential(ctx, i, userID, cred); err != nil {
		return Info{}, err
	}

	if in.Contents != nil {
		i.Contents = normalizeContents(*in.Contents)
	}
	if in.NewPIN != nil {
		hash, err := s.hashPIN(*in.NewPIN)
		if err != nil {
			return Info{}, err
		}
		i.PINHash = hash
	}

	i.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, i); err != nil {
		return Info{}, err
	}
	return i, nil
}

func (s *Service) Delete(ctx context.Context, id, userID string, cred Credential) error {
	i, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireCredential(ctx, i, userID, cred); err != nil {
		return err
	}
	return s.repo.Delete(ctx, i.ID)
}

func (s *Service) PurgeRecipient(ctx context.Context, careRecipientID string) error {
	careRecipientID = strings.TrimSpace(careRecipientID)
	if careRecipientID == "" {
		return ErrInvalidInput
	}
	return s.repo.DeleteByRecipient(ctx, careRecipientID)
}

func (s *Service) requireCredential(ctx context.Context, i Info, userID string, cred Credential) error {
	ok, err := s.check(ctx, i, userID, cred)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCredential
	}
	return nil
}

// check aplica la política de desbloqueo:
//   - pin: solo PIN, salvo fichas sin PIN que aceptan la contraseña
//   - password: solo la contraseña de la cuenta
//   - either: cualquiera de los dos
func (s *Service) check(ctx context.Context, i Info, userID string, cred Credential) (bool, error) {
	switch {
	case cred.PIN != "":
		if s.mode == UnlockModePassword {
			return false, ErrMethodNotAllowed
		}
		if !i.HasPIN() {
			return false, nil
		}
		return bcrypt.CompareHashAndPassword([]byte(i.PINHash), []byte(cred.PIN)) == nil, nil

	case cred.Password != "":
		if s.mode == UnlockModePIN && i.HasPIN() {
			return false, ErrMethodNotAllowed
		}
		if s.passwords == nil || strings.TrimSpace(userID) == "" {
			return false, nil
		}
		return s.passwords.VerifyPassword(ctx, userID, cred.Password)

	default:
		return false, fmt.Errorf("%w: pin or password is required", ErrInvalidInput)
	}
}

func (s *Service) hashPIN(pin string) (string, error) {
	if pin == "" {
		return "", nil
	}
	if err := validate.Var(pin, pinRule); err != nil {
		return "", ErrInvalidPIN
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash pin: %w", err)
	}
	return string(hash), nil
}

func normalizeContents(c Contents) Contents {
	c.BloodType = strings.ToUpper(strings.TrimSpace(c.BloodType))
	c.Allergies = strings.TrimSpace(c.Allergies)
	c.Conditions = strings.TrimSpace(c.Conditions)
	c.Medications = strings.TrimSpace(c.Medications)
	c.PhysicianName = strings.TrimSpace(c.PhysicianName)
	c.PhysicianPhone = strings.TrimSpace(c.PhysicianPhone)
	c.InsuranceProvider = strings.TrimSpace(c.InsuranceProvider)
	c.InsurancePolicyNumber = strings.TrimSpace(c.InsurancePolicyNumber)
	c.AdditionalNotes = strings.TrimSpace(c.AdditionalNotes)

	contacts := make([]Contact, 0, len(c.EmergencyContacts))
	for _, ct := range c.EmergencyContacts {
		ct.Name = strings.TrimSpace(ct.Name)
		ct.Phone = strings.TrimSpace(ct.Phone)
		ct.Relationship = strings.TrimSpace(ct.Relationship)
		if ct.Name == "" && ct.Phone == "" {
			continue
		}
		contacts = append(contacts, ct)
	}
	c.EmergencyContacts = contacts
	return c
}
