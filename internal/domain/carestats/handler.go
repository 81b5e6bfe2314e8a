package carestats

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

type Authorizer interface {
	Authorize(ctx context.Context, careRecipientID, userID string) error
}

func RegisterRoutes(r chi.Router, svc *Service, authz Authorizer) {
	r.Get("/api/care-stats/today", todayHandler(svc, authz))
}

type eventCountResponse struct {
	Count int        `json:"count"`
	Last  *time.Time `json:"last"`
}

type bloodPressureResponse struct {
	Systolic      int       `json:"systolic"`
	Diastolic     int       `json:"diastolic"`
	Pulse         int       `json:"pulse,omitempty"`
	TimeOfReading time.Time `json:"timeOfReading"`
}

type glucoseResponse struct {
	Value         float64   `json:"value"`
	Unit          string    `json:"unit"`
	TimeOfReading time.Time `json:"timeOfReading"`
}

type nextAppointmentResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Location  string    `json:"location,omitempty"`
	StartTime time.Time `json:"startTime"`
}

type summaryResponse struct {
	CareRecipientID string `json:"careRecipientId"`
	Date            string `json:"date"`
	TimeZone        string `json:"timeZone"`

	Medications struct {
		Scheduled int `json:"scheduled"`
		Taken     int `json:"taken"`
		Skipped   int `json:"skipped"`
	} `json:"medications"`

	Meals struct {
		Count int `json:"count"`
		Goal  int `json:"goal"`
	} `json:"meals"`

	Sleep struct {
		Sessions     int `json:"sessions"`
		TotalMinutes int `json:"totalMinutes"`
	} `json:"sleep"`

	BowelMovements eventCountResponse `json:"bowelMovements"`
	Urination      eventCountResponse `json:"urination"`

	BloodPressure *bloodPressureResponse `json:"bloodPressure"`
	Glucose       *glucoseResponse       `json:"glucose"`

	Insulin struct {
		Doses int     `json:"doses"`
		Units float64 `json:"units"`
	} `json:"insulin"`

	Appointments struct {
		Count int                      `json:"count"`
		Next  *nextAppointmentResponse `json:"next"`
	} `json:"appointments"`

	Notes int `json:"notes"`
}

// todayHandler godoc
// @Summary Resumen de hoy
// @Description Agregado diario del care recipient: progreso de medicación, comidas vs meta, sueño, eventos, últimas lecturas y citas.
// @Tags care-stats
// @Produce json
// @Param Authorization header string false "Bearer token"
// @Param careRecipientId query string true "ID del care recipient"
// @Param tz query string false "Zona horaria IANA (default UTC)"
// @Success 200 {object} summaryResponse
// @Failure 400 {string} string "careRecipientId/tz inválido"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "care recipient not found"
// @Router /care-stats/today [get]
func todayHandler(svc *Service, authz Authorizer) http.HandlerFunc {
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

		loc := time.UTC
		if tz := strings.TrimSpace(r.URL.Query().Get("tz")); tz != "" {
			l, err := time.LoadLocation(tz)
			if err != nil {
				http.Error(w, "tz must be an IANA time zone", http.StatusBadRequest)
				return
			}
			loc = l
		}

		if err := authz.Authorize(r.Context(), recipientID, userID); err != nil {
			switch {
			case errors.Is(err, carerecipients.ErrNotFound):
				http.Error(w, "care recipient not found", http.StatusNotFound)
			case errors.Is(err, carerecipients.ErrForbidden):
				http.Error(w, "forbidden", http.StatusForbidden)
			default:
				middleware.Log(r.Context()).Error("authorize care recipient failed", map[string]any{"error": err})
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		sum, err := svc.Today(r.Context(), recipientID, loc)
		if err != nil {
			middleware.Log(r.Context()).Error("care stats failed", map[string]any{"error": err, "care_recipient_id": recipientID})
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, toResponse(sum))
	}
}

func toResponse(s Summary) summaryResponse {
	var out summaryResponse
	out.CareRecipientID = s.CareRecipientID
	out.Date = s.Date
	out.TimeZone = s.TimeZone

	out.Medications.Scheduled = s.Medications.Scheduled
	out.Medications.Taken = s.Medications.Taken
	out.Medications.Skipped = s.Medications.Skipped
	out.Meals.Count = s.Meals.Count
	out.Meals.Goal = s.Meals.Goal
	out.Sleep.Sessions = s.Sleep.Sessions
	out.Sleep.TotalMinutes = s.Sleep.TotalMinutes
	out.BowelMovements = eventCountResponse{Count: s.BowelMovements.Count, Last: s.BowelMovements.Last}
	out.Urination = eventCountResponse{Count: s.Urination.Count, Last: s.Urination.Last}
	out.Insulin.Doses = s.Insulin.Doses
	out.Insulin.Units = s.Insulin.Units
	out.Appointments.Count = s.Appointments.Count
	out.Notes = s.Notes

	if bp := s.BloodPressure; bp != nil {
		out.BloodPressure = &bloodPressureResponse{
			Systolic:      bp.Systolic,
			Diastolic:     bp.Diastolic,
			Pulse:         bp.Pulse,
			TimeOfReading: bp.At,
		}
	}
	if g := s.Glucose; g != nil {
		out.Glucose = &glucoseResponse{Value: g.Value, Unit: g.Unit, TimeOfReading: g.At}
	}
	if n := s.Appointments.Next; n != nil {
		out.Appointments.Next = &nextAppointmentResponse{
			ID:        n.ID,
			Title:     n.Title,
			Location:  n.Location,
			StartTime: n.StartTime,
		}
	}
	return out
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
