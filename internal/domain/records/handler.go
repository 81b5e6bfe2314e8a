package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"caregiver-support/internal/domain/carerecipients"
	"caregiver-support/internal/middleware"

	"github.com/go-chi/chi/v5"
)

// Authorizer valida que el usuario sea dueño del care recipient.
// Lo implementa carerecipients.Service.
type Authorizer interface {
	Authorize(ctx context.Context, careRecipientID, userID string) error
}

// RegisterRoutes monta una colección REST por cada kind de la tabla:
// GET/POST /api/{kind}, GET/PATCH/DELETE /api/{kind}/{id}.
func RegisterRoutes(r chi.Router, svc *Service, authz Authorizer) {
	for _, spec := range Kinds() {
		spec := spec
		r.Route(spec.Resource(), func(kr chi.Router) {
			kr.Get("/", listHandler(svc, authz, spec))
			kr.Post("/", createHandler(svc, authz, spec))

			kr.Get("/{id}", getHandler(svc, authz, spec))
			kr.Patch("/{id}", updateHandler(svc, authz, spec))
			kr.Delete("/{id}", deleteHandler(svc, authz, spec))
		})
	}
}

// listHandler godoc
// @Summary Listar registros de un care recipient
// @Description Lista los registros del tipo indicado, ordenados por su timestamp (desc). El usuario debe ser dueño del care recipient.
// @Tags records
// @Produce json
// @Param Authorization header string false "Bearer token"
// @Param resource path string true "Tipo de registro" Enums(medications, medication-logs, meals, sleep, bowel-movements, urination, blood-pressure, glucose, insulin, appointments, doctors, pharmacies, notes)
// @Param careRecipientId query string true "ID del care recipient"
// @Param from query string false "Timestamp mínimo (RFC3339, inclusivo)"
// @Param to query string false "Timestamp máximo (RFC3339, exclusivo)"
// @Param limit query int false "Máximo a devolver; valores mayores a 200 se recortan a 200. Por defecto 50"
// @Success 200 {array} object
// @Failure 400 {string} string "parámetros inválidos"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "care recipient not found"
// @Router /{resource} [get]
func listHandler(svc *Service, authz Authorizer, spec KindSpec) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r.Context())
		if userID == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		filter, err := parseListFilter(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		filter.Kinds = []Kind{spec.Kind}

		if err := authz.Authorize(r.Context(), filter.CareRecipientID, userID); err != nil {
			writeAuthzError(w, r, err)
			return
		}

		items, err := svc.List(r.Context(), filter)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		out := make([]map[string]any, 0, len(items))
		for _, rec := range items {
			out = append(out, toPayload(r.Context(), spec, rec))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// createHandler godoc
// @Summary Crear registro
// @Description Crea un registro del tipo indicado. El body es plano: careRecipientId, el timestamp propio del tipo (p.ej. consumedAt), notes y los campos específicos. Campos desconocidos => 400.
// @Tags records
// @Accept json
// @Produce json
// @Param Authorization header string false "Bearer token"
// @Param resource path string true "Tipo de registro"
// @Param payload body object true "Registro"
// @Success 201 {object} object
// @Failure 400 {string} string "invalid json / validación"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "care recipient not found"
// @Router /{resource} [post]
func createHandler(svc *Service, authz Authorizer, spec KindSpec) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r.Context())
		if userID == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		env, err := decodeEnvelope(r, spec)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if env.CareRecipientID == nil || strings.TrimSpace(*env.CareRecipientID) == "" {
			http.Error(w, "careRecipientId is required", http.StatusBadRequest)
			return
		}

		// Permisos primero: no validar payloads de recipients ajenos.
		if err := authz.Authorize(r.Context(), *env.CareRecipientID, userID); err != nil {
			writeAuthzError(w, r, err)
			return
		}

		in := CreateInput{
			CareRecipientID: *env.CareRecipientID,
			OccurredAt:      env.OccurredAt,
			Details:         env.detailsJSON(),
		}
		if env.Notes != nil {
			in.Notes = *env.Notes
		}

		rec, err := svc.Create(r.Context(), spec.Kind, userID, in)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, toPayload(r.Context(), spec, rec))
	}
}

func getHandler(svc *Service, authz Authorizer, spec KindSpec) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := loadOwned(w, r, svc, authz, spec)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, toPayload(r.Context(), spec, rec))
	}
}

// updateHandler godoc
// @Summary Actualizar registro (PATCH)
// @Description Aplica un merge parcial. Un campo opcional en null se borra. careRecipientId no puede cambiar.
// @Tags records
// @Accept json
// @Produce json
// @Param Authorization header string false "Bearer token"
// @Param resource path string true "Tipo de registro"
// @Param id path string true "ID del registro"
// @Param payload body object true "Campos a modificar"
// @Success 200 {object} object
// @Failure 400 {string} string "invalid json / validación"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "record not found"
// @Router /{resource}/{id} [patch]
func updateHandler(svc *Service, authz Authorizer, spec KindSpec) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := loadOwned(w, r, svc, authz, spec)
		if !ok {
			return
		}

		env, err := decodeEnvelope(r, spec)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if env.CareRecipientID != nil && *env.CareRecipientID != rec.CareRecipientID {
			http.Error(w, "careRecipientId cannot change", http.StatusBadRequest)
			return
		}

		updated, err := svc.Update(r.Context(), spec.Kind, rec.ID, UpdateInput{
			OccurredAt: env.OccurredAt,
			Notes:      env.Notes,
			Details:    env.Details,
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toPayload(r.Context(), spec, updated))
	}
}

func deleteHandler(svc *Service, authz Authorizer, spec KindSpec) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := loadOwned(w, r, svc, authz, spec)
		if !ok {
			return
		}
		if err := svc.Delete(r.Context(), spec.Kind, rec.ID); err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// loadOwned resuelve /{id} y verifica que el recipient del registro sea del usuario.
func loadOwned(w http.ResponseWriter, r *http.Request, svc *Service, authz Authorizer, spec KindSpec) (Record, bool) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return Record{}, false
	}

	rec, err := svc.Get(r.Context(), spec.Kind, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return Record{}, false
	}
	if err := authz.Authorize(r.Context(), rec.CareRecipientID, userID); err != nil {
		writeAuthzError(w, r, err)
		return Record{}, false
	}
	return rec, true
}

// envelope separa los campos comunes del body plano; el resto son detalles del kind.
type envelope struct {
	CareRecipientID *string
	OccurredAt      *time.Time
	Notes           *string
	Details         map[string]json.RawMessage
}

func (e envelope) detailsJSON() json.RawMessage {
	if len(e.Details) == 0 {
		return nil
	}
	b, _ := json.Marshal(e.Details)
	return b
}

// Campos que el servidor asigna; no se aceptan en el body.
var readOnlyFields = []string{"id", "createdAt", "updatedAt", "createdBy"}

func decodeEnvelope(r *http.Request, spec KindSpec) (envelope, error) {
	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body == nil {
		return envelope{}, errors.New("invalid json")
	}

	for _, f := range readOnlyFields {
		if _, ok := body[f]; ok {
			return envelope{}, fmt.Errorf("%s is read-only", f)
		}
	}

	var env envelope
	if raw, ok := body["careRecipientId"]; ok {
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			return envelope{}, errors.New("careRecipientId must be a string")
		}
		env.CareRecipientID = &id
		delete(body, "careRecipientId")
	}

	if raw, ok := body["notes"]; ok {
		var notes *string
		if err := json.Unmarshal(raw, &notes); err != nil {
			return envelope{}, errors.New("notes must be a string")
		}
		if notes == nil {
			empty := ""
			notes = &empty
		}
		env.Notes = notes
		delete(body, "notes")
	}

	if spec.TimeField != "" {
		if raw, ok := body[spec.TimeField]; ok {
			var s *string
			if err := json.Unmarshal(raw, &s); err != nil || s == nil {
				return envelope{}, fmt.Errorf("%s must be an ISO-8601 timestamp", spec.TimeField)
			}
			t, err := parseTimestamp(*s)
			if err != nil {
				return envelope{}, fmt.Errorf("%s must be an ISO-8601 timestamp", spec.TimeField)
			}
			env.OccurredAt = &t
			delete(body, spec.TimeField)
		}
	}

	env.Details = body
	return env, nil
}

// parseTimestamp acepta RFC3339 (con o sin fracción) y fechas YYYY-MM-DD.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

func parseListFilter(r *http.Request) (ListFilter, error) {
	q := r.URL.Query()

	filter := ListFilter{
		CareRecipientID: strings.TrimSpace(q.Get("careRecipientId")),
		Limit:           DefaultListLimit,
	}
	if filter.CareRecipientID == "" {
		return ListFilter{}, errors.New("careRecipientId is required")
	}

	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return ListFilter{}, errors.New("limit must be a positive integer")
		}
		filter.Limit = min(n, MaxListLimit)
	}

	if v := strings.TrimSpace(q.Get("from")); v != "" {
		t, err := parseTimestamp(v)
		if err != nil {
			return ListFilter{}, errors.New("from must be RFC3339")
		}
		filter.From = &t
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		t, err := parseTimestamp(v)
		if err != nil {
			return ListFilter{}, errors.New("to must be RFC3339")
		}
		filter.To = &t
	}
	return filter, nil
}

func toPayload(ctx context.Context, spec KindSpec, rec Record) map[string]any {
	out := map[string]any{}
	if err := rec.DecodeDetails(&out); err != nil {
		// se devuelven igual los campos comunes
		middleware.Log(ctx).Error("decode record details", map[string]any{
			"error":     err,
			"record_id": rec.ID,
			"kind":      string(rec.Kind),
		})
		out = map[string]any{}
	}

	out["id"] = rec.ID
	out["careRecipientId"] = rec.CareRecipientID
	if spec.TimeField != "" {
		out[spec.TimeField] = rec.OccurredAt
	}
	out["notes"] = rec.Notes
	out["createdBy"] = rec.CreatedBy
	out["createdAt"] = rec.CreatedAt
	out["updatedAt"] = rec.UpdatedAt
	return out
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUnknownKind):
		http.Error(w, "record not found", http.StatusNotFound)
	default:
		middleware.Log(r.Context()).Error("record operation failed", map[string]any{"error": err})
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

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
