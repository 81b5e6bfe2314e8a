package exports

import (
	"context"
	"errors"
	"fmt"
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

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func RegisterRoutes(r chi.Router, svc *Service, authz Authorizer) {
	r.Get("/api/exports/records.xlsx", recordsXLSXHandler(svc, authz))
}

// recordsXLSXHandler godoc
// @Summary Exportar registros a Excel
// @Description Genera un .xlsx con una hoja por tipo de registro del care recipient.
// @Tags exports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param Authorization header string false "Bearer token"
// @Param careRecipientId query string true "ID del care recipient"
// @Param from query string false "Desde (RFC3339)"
// @Param to query string false "Hasta (RFC3339)"
// @Success 200 {file} file
// @Failure 400 {string} string "parámetros inválidos"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "care recipient not found"
// @Router /exports/records.xlsx [get]
func recordsXLSXHandler(svc *Service, authz Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r.Context())
		if userID == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		q := r.URL.Query()
		recipientID := strings.TrimSpace(q.Get("careRecipientId"))
		if recipientID == "" {
			http.Error(w, "careRecipientId is required", http.StatusBadRequest)
			return
		}

		var rng Range
		for name, dst := range map[string]**time.Time{"from": &rng.From, "to": &rng.To} {
			v := strings.TrimSpace(q.Get(name))
			if v == "" {
				continue
			}
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				http.Error(w, name+" must be RFC3339", http.StatusBadRequest)
				return
			}
			*dst = &t
		}

		if err := authz.Authorize(r.Context(), recipientID, userID); err != nil {
			switch {
			case errors.Is(err, carerecipients.ErrNotFound):
				http.Error(w, "care recipient not found", http.StatusNotFound)
			case errors.Is(err, carerecipients.ErrForbidden):
				http.Error(w, "forbidden", http.StatusForbidden)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		data, err := svc.RecordsWorkbook(r.Context(), recipientID, rng)
		if err != nil {
			middleware.Log(r.Context()).Error("export records failed", map[string]any{"error": err, "care_recipient_id": recipientID})
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="records-%s.xlsx"`, recipientID))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
