package emergencyinfo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"caregiver-support/internal/domain/carerecipients"
	"caregiver-support/internal/middleware"

	"github.com/go-chi/chi/v5"
)

// Authorizer valida que el usuario sea dueño del care recipient.
type Authorizer interface {
	Authorize(ctx context.Context, careRecipientID, userID string) error
}

func RegisterRoutes(r chi.Router, svc *Service, authz Authorizer) {
	r.Route("/api/emergency-info", func(er chi.Router) {
		er.Get("/", getByRecipientHandler(svc, authz))
		er.Post("/", createHandler(svc, authz))

		er.Get("/{id}", getLockedHandler(svc, authz))
		// PATCH/DELETE exigen pin o password en el body en cada llamada
		er.Patch("/{id}", updateHandler(svc, authz))
		er.Delete("/{id}", deleteHandler(svc, authz))

		er.Post("/{id}/verify-pin", verifyPINHandler(svc, authz))
		er.Post("/{id}/verify-password", verifyPasswordHandler(svc, authz))
	})
}

type contactBody struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship,omitempty"`
	Phone        string `json:"phone"`
}

type contentsBody struct {
	BloodType             string        `json:"bloodType"`
	Allergies             string        `json:"allergies"`
	Conditions            string        `json:"conditions"`
	Medications           string        `json:"medications"`
	EmergencyContacts     []contactBody `json:"emergencyContacts"`
	PhysicianName         string        `json:"physicianName"`
	PhysicianPhone        string        `json:"physicianPhone"`
	InsuranceProvider     string        `json:"insuranceProvider"`
	InsurancePolicyNumber string        `json:"insurancePolicyNumber"`
	DNR                   bool          `json:"dnr"`
	AdditionalNotes       string        `json:"additionalNotes"`
}

type createRequest struct {
	CareRecipientID string `json:"careRecipientId"`
	PIN             string `json:"pin"` // opcional, 4-8 dígitos
	contentsBody
}

type updateRequest struct {
	// Credencial (una de las dos)
	PIN      string `json:"pin"`
	Password string `json:"password"`

	NewPIN   *string       `json:"newPin"`
	Contents *contentsBody `json:"contents"`
}

type credentialRequest struct {
	PIN      string `json:"pin"`
	Password string `json:"password"`
}

// lockedResponse nunca incluye el contenido.
type lockedResponse struct {
	ID              string     `json:"id"`
	CareRecipientID string     `json:"careRecipientId"`
	Locked          bool       `json:"locked"`
	HasPIN          bool       `json:"hasPin"`
	UnlockMode      UnlockMode `json:"unlockMode"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

type unlockedResponse struct {
	ID              string `json:"id"`
	CareRecipientID string `json:"careRecipientId"`
	Locked          bool   `json:"locked"`
	HasPIN          bool   `json:"hasPin"`
	contentsBody
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type verifyResponse struct {
	Verified      bool              `json:"verified"`
	EmergencyInfo *unlockedResponse `json:"emergencyInfo,omitempty"`
}

// getByRecipientHandler godoc
// @Summary Obtener ficha de emergencia (bloqueada)
// @Description Devuelve la vista bloqueada de la ficha del care recipient. El contenido solo se obtiene vía verify-pin o verify-password.
// @Tags emergency-info
// @Produce json
// @Param Authorization header string false "Bearer token"
// @Param careRecipientId query string true "ID del care recipient"
// @Success 200 {object} lockedResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "emergency info not found"
// @Router /emergency-info [get]
func getByRecipientHandler(svc *Service, authz Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r.Context())
		if userID == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		recipientID := strings.TrimSpace(r.URL.Query().Get("careRecipientId"))
		if recipientID == "" {
			http.Error(w, "careRecipientId is required", http.StatusBadRequest)
			return
		}
		if err := authz.Authorize(r.Context(), recipientID, userID); err != nil {
			writeAuthzError(w, r, err)
			return
		}

		i, err := svc.GetByRecipient(r.Context(), recipientID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toLocked(i, svc.Mode()))
	}
}

// createHandler godoc
// @Summary Crear ficha de emergencia
// @Description Crea la ficha del care recipient (una por recipient). El PIN es opcional (4-8 dígitos) y se guarda hasheado.
// @Tags emergency-info
// @Accept json
// @Produce json
// @Param Authorization header string false "Bearer token"
// @Param payload body createRequest true "Ficha"
// @Success 201 {object} lockedResponse
// @Failure 400 {string} string "invalid input"
// @Failure 409 {string} string "already exists"
// @Router /emergency-info [post]
func createHandler(svc *Service, authz Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r.Context())
		if userID == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()

		var req createRequest
		if err := dec.Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.CareRecipientID) == "" {
			http.Error(w, "careRecipientId is required", http.StatusBadRequest)
			return
		}
		if err := authz.Authorize(r.Context(), req.CareRecipientID, userID); err != nil {
			writeAuthzError(w, r, err)
			return
		}

		i, err := svc.Create(r.Context(), CreateInput{
			CareRecipientID: req.CareRecipientID,
			Contents:        fromBody(req.contentsBody),
			PIN:             req.PIN,
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, toLocked(i, svc.Mode()))
	}
}

func getLockedHandler(svc *Service, authz Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		i, ok := loadOwned(w, r, svc, authz)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, toLocked(i, svc.Mode()))
	}
}

// verifyPINHandler godoc
// @Summary Verificar PIN
// @Description Devuelve verified y, si es correcto, el contenido de la ficha.
// @Tags emergency-info
// @Accept json
// @Produce json
// @Param Authorization header string false "Bearer token"
// @Param id path string true "ID de la ficha"
// @Param payload body credentialRequest true "PIN"
// @Success 200 {object} verifyResponse
// @Failure 403 {string} string "forbidden / método no permitido"
// @Failure 404 {string} string "emergency info not found"
// @Router /emergency-info/{id}/verify-pin [post]
func verifyPINHandler(svc *Service, authz Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		i, ok := loadOwned(w, r, svc, authz)
		if !ok {
			return
		}

		var req credentialRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.PIN == "" {
			http.Error(w, "pin is required", http.StatusBadRequest)
			return
		}

		full, verified, err := svc.VerifyPIN(r.Context(), i.ID, req.PIN)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeVerify(w, full, verified)
	}
}

// verifyPasswordHandler godoc
// @Summary Verificar contraseña de la cuenta
// @Description Alternativa al PIN (según EMERGENCY_UNLOCK_MODE). Devuelve verified y, si es correcta, el contenido.
// @Tags emergency-info
// @Accept json
// @Produce json
// @Param Authorization header string false "Bearer token"
// @Param id path string true "ID de la ficha"
// @Param payload body credentialRequest true "Contraseña"
// @Success 200 {object} verifyResponse
// @Router /emergency-info/{id}/verify-password [post]
func verifyPasswordHandler(svc *Service, authz Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		i, ok := loadOwned(w, r, svc, authz)
		if !ok {
			return
		}

		var req credentialRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Password == "" {
			http.Error(w, "password is required", http.StatusBadRequest)
			return
		}

		full, verified, err := svc.VerifyPassword(r.Context(), i.ID, middleware.UserID(r.Context()), req.Password)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeVerify(w, full, verified)
	}
}

func updateHandler(svc *Service, authz Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		i, ok := loadOwned(w, r, svc, authz)
		if !ok {
			return
		}

		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()

		var req updateRequest
		if err := dec.Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		in := UpdateInput{NewPIN: req.NewPIN}
		if req.Contents != nil {
			c := fromBody(*req.Contents)
			in.Contents = &c
		}

		updated, err := svc.Update(r.Context(), i.ID, middleware.UserID(r.Context()),
			Credential{PIN: req.PIN, Password: req.Password}, in)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		u := toUnlocked(updated)
		writeJSON(w, http.StatusOK, u)
	}
}

func deleteHandler(svc *Service, authz Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		i, ok := loadOwned(w, r, svc, authz)
		if !ok {
			return
		}

		var req credentialRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		err := svc.Delete(r.Context(), i.ID, middleware.UserID(r.Context()),
			Credential{PIN: req.PIN, Password: req.Password})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func loadOwned(w http.ResponseWriter, r *http.Request, svc *Service, authz Authorizer) (Info, bool) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return Info{}, false
	}

	i, err := svc.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return Info{}, false
	}
	if err := authz.Authorize(r.Context(), i.CareRecipientID, userID); err != nil {
		writeAuthzError(w, r, err)
		return Info{}, false
	}
	return i, true
}

func writeVerify(w http.ResponseWriter, i Info, verified bool) {
	if !verified {
		writeJSON(w, http.StatusOK, verifyResponse{Verified: false})
		return
	}
	u := toUnlocked(i)
	writeJSON(w, http.StatusOK, verifyResponse{Verified: true, EmergencyInfo: &u})
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidPIN):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "emergency info not found", http.StatusNotFound)
	case errors.Is(err, ErrAlreadyExists):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrInvalidCredential), errors.Is(err, ErrMethodNotAllowed):
		http.Error(w, err.Error(), http.StatusForbidden)
	default:
		middleware.Log(r.Context()).Error("emergency info operation failed", map[string]any{"error": err})
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeAuthzError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, carerecipients.ErrNotFound):
		http.Error(w, "care recipient not found", http.StatusNotFound)
	case errors.Is(err, carerecipients.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, carerecipients.ErrInvalidInput):
		http.Error(w, "careRecipientId is required", http.StatusBadRequest)
	default:
		middleware.Log(r.Context()).Error("authorize care recipient failed", map[string]any{"error": err})
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func fromBody(b contentsBody) Contents {
	contacts := make([]Contact, 0, len(b.EmergencyContacts))
	for _, c := range b.EmergencyContacts {
		contacts = append(contacts, Contact{Name: c.Name, Relationship: c.Relationship, Phone: c.Phone})
	}
	return Contents{
		BloodType:             b.BloodType,
		Allergies:             b.Allergies,
		Conditions:            b.Conditions,
		Medications:           b.Medications,
		EmergencyContacts:     contacts,
		PhysicianName:         b.PhysicianName,
		PhysicianPhone:        b.PhysicianPhone,
		InsuranceProvider:     b.InsuranceProvider,
		InsurancePolicyNumber: b.InsurancePolicyNumber,
		DNR:                   b.DNR,
		AdditionalNotes:       b.AdditionalNotes,
	}
}

func toBody(c Contents) contentsBody {
	contacts := make([]contactBody, 0, len(c.EmergencyContacts))
	for _, ct := range c.EmergencyContacts {
		contacts = append(contacts, contactBody{Name: ct.Name, Relationship: ct.Relationship, Phone: ct.Phone})
	}
	return contentsBody{
		BloodType:             c.BloodType,
		Allergies:             c.Allergies,
		Conditions:            c.Conditions,
		Medications:           c.Medications,
		EmergencyContacts:     contacts,
		PhysicianName:         c.PhysicianName,
		PhysicianPhone:        c.PhysicianPhone,
		InsuranceProvider:     c.InsuranceProvider,
		InsurancePolicyNumber: c.InsurancePolicyNumber,
		DNR:                   c.DNR,
		AdditionalNotes:       c.AdditionalNotes,
	}
}

func toLocked(i Info, mode UnlockMode) lockedResponse {
	return lockedResponse{
		ID:              i.ID,
		CareRecipientID: i.CareRecipientID,
		Locked:          true,
		HasPIN:          i.HasPIN(),
		UnlockMode:      mode,
		UpdatedAt:       i.UpdatedAt,
	}
}

func toUnlocked(i Info) unlockedResponse {
	return unlockedResponse{
		ID:              i.ID,
		CareRecipientID: i.CareRecipientID,
		Locked:          false,
		HasPIN:          i.HasPIN(),
		contentsBody:    toBody(i.Contents),
		CreatedAt:       i.CreatedAt,
		UpdatedAt:       i.UpdatedAt,
	}
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
