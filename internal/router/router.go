package router

import (
	"database/sql"
	"net/http"
	"time"

	_ "caregiver-support/docs"
	jwtauth "caregiver-support/internal/adapters/auth/jwt"
	mem "caregiver-support/internal/adapters/storage/memory"
	pg "caregiver-support/internal/adapters/storage/postgres"
	lite "caregiver-support/internal/adapters/storage/sqlite"
	"caregiver-support/internal/domain/carerecipients"
	"caregiver-support/internal/domain/carestats"
	"caregiver-support/internal/domain/emergencyinfo"
	"caregiver-support/internal/domain/exports"
	"caregiver-support/internal/domain/records"
	"caregiver-support/internal/domain/users"
	"caregiver-support/internal/middleware"
	"caregiver-support/internal/platform/config"
	"caregiver-support/internal/platform/logger"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

const devJWTSecret = "dev-only-secret-change-me"

type Options struct {
	Logger logger.Logger // nil => nop

	// DB + Storage eligen el adapter. Sin DB => in-memory.
	DB      *sql.DB
	Storage config.StorageDriver

	// Tokens firma y verifica sesiones. Nil => HS256 con JWTSecret.
	Tokens    *jwtauth.Manager
	JWTSecret string
	TokenTTL  time.Duration

	// DevAuth acepta X-Debug-User-ID sin token.
	DevAuth bool

	EmergencyUnlockMode emergencyinfo.UnlockMode

	// Registry para /metrics. Nil => uno nuevo por router (tests sin colisiones).
	Registry *prometheus.Registry
}

type repos struct {
	users      users.Repository
	recipients carerecipients.Repository
	records    records.Repository
	emergency  emergencyinfo.Repository
}

func newRepos(opts Options) repos {
	switch {
	case opts.DB != nil && opts.Storage == config.StorageSQLite:
		return repos{
			users:      lite.NewUsersRepo(opts.DB),
			recipients: lite.NewCareRecipientsRepo(opts.DB),
			records:    lite.NewRecordsRepo(opts.DB),
			emergency:  lite.NewEmergencyInfoRepo(opts.DB),
		}
	case opts.DB != nil:
		return repos{
			users:      pg.NewUsersRepo(opts.DB),
			recipients: pg.NewCareRecipientsRepo(opts.DB),
			records:    pg.NewRecordsRepo(opts.DB),
			emergency:  pg.NewEmergencyInfoRepo(opts.DB),
		}
	default:
		return repos{
			users:      mem.NewUserRepo(),
			recipients: mem.NewCareRecipientRepo(),
			records:    mem.NewRecordRepo(),
			emergency:  mem.NewEmergencyInfoRepo(),
		}
	}
}

func NewRouter(opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	if opts.Tokens == nil {
		secret := opts.JWTSecret
		if secret == "" {
			secret = devJWTSecret
		}
		opts.Tokens = jwtauth.NewManager(secret, opts.TokenTTL)
	}
	if opts.EmergencyUnlockMode == "" {
		opts.EmergencyUnlockMode = emergencyinfo.UnlockModeEither
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
		opts.Registry.MustRegister(collectors.NewGoCollector())
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLog(opts.Logger))
	r.Use(middleware.Recover)
	r.Use(middleware.NewMetrics(opts.Registry).Middleware)

	r.Use(middleware.AuthContext(opts.Tokens, opts.DevAuth))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}))
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	rp := newRepos(opts)

	// Services por módulo. carerecipients purga a los dependientes antes de borrar.
	recordsSvc := records.NewService(rp.records)
	usersSvc := users.NewService(rp.users, opts.Tokens)
	emergencySvc := emergencyinfo.NewService(rp.emergency, usersSvc, opts.EmergencyUnlockMode)
	recipientsSvc := carerecipients.NewService(rp.recipients, recordsSvc, emergencySvc)
	statsSvc := carestats.NewService(recordsSvc)
	exportsSvc := exports.NewService(recordsSvc)

	// Rutas por módulo
	users.RegisterRoutes(r, usersSvc)
	carerecipients.RegisterRoutes(r, recipientsSvc)
	records.RegisterRoutes(r, recordsSvc, recipientsSvc)
	emergencyinfo.RegisterRoutes(r, emergencySvc, recipientsSvc)
	carestats.RegisterRoutes(r, statsSvc, recipientsSvc)
	exports.RegisterRoutes(r, exportsSvc, recipientsSvc)

	return r
}
