package router

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "vida-melhor/docs"
	"vida-melhor/internal/adapters/realtime"
	mem "vida-melhor/internal/adapters/storage/memory"
	pg "vida-melhor/internal/adapters/storage/postgres"
	"vida-melhor/internal/domain/caretakers"
	"vida-melhor/internal/domain/catalog"
	"vida-melhor/internal/domain/consultations"
	"vida-melhor/internal/domain/dashboard"
	"vida-melhor/internal/domain/medicines"
	"vida-melhor/internal/domain/profiles"
	"vida-melhor/internal/middleware"
	"vida-melhor/internal/platform/logger"
	"vida-melhor/internal/ports/auth"
)

// Repos agrupa los repositorios que usa el API.
type Repos struct {
	Profiles      profiles.Repository
	Medicines     medicines.Repository
	Consultations consultations.Repository
	Catalog       catalog.Repository
}

// MemoryRepos arma repos in-memory con el catálogo de demo.
func MemoryRepos() Repos {
	pharmacies, items := mem.DemoCatalog()
	return Repos{
		Profiles:      mem.NewProfileRepo(),
		Medicines:     mem.NewMedicineRepo(),
		Consultations: mem.NewConsultationRepo(),
		Catalog:       mem.NewCatalogRepo(pharmacies, items),
	}
}

func PostgresRepos(db *sql.DB) Repos {
	return Repos{
		Profiles:      pg.NewProfilesRepo(db),
		Medicines:     pg.NewMedicinesRepo(db),
		Consultations: pg.NewConsultationsRepo(db),
		Catalog:       pg.NewCatalogRepo(db),
	}
}

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)

	// Repos tiene prioridad; si no, DB => Postgres; si no, in-memory.
	Repos *Repos
	DB    *sql.DB

	// Hub de websocket; si es nil se crea uno (sin worker que lo alimente).
	Hub *realtime.Hub

	Logger logger.Logger
}

func NewRouter(opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	var repos Repos
	switch {
	case opts.Repos != nil:
		repos = *opts.Repos
	case opts.DB != nil:
		repos = PostgresRepos(opts.DB)
	default:
		repos = MemoryRepos()
	}

	hub := opts.Hub
	if hub == nil {
		hub = realtime.NewHub(log)
	}

	// Services por módulo
	profilesSvc := profiles.NewService(repos.Profiles)
	medsSvc := medicines.NewService(repos.Medicines)
	reminders := medicines.NewReminders(medsSvc, log.With(map[string]any{"component": "reminders"}))
	consultSvc := consultations.NewService(repos.Consultations)
	catalogSvc := catalog.NewService(repos.Catalog)
	caretakersSvc := caretakers.NewService(repos.Profiles, log.With(map[string]any{"component": "caretakers"}))
	dashSvc := dashboard.NewService(medsSvc, reminders, catalogSvc)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chimw.Recoverer)

	r.Use(middleware.AuthContext(opts.AuthVerifier))
	r.Use(middleware.ViewerContext(profilesSvc))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	// Rutas por módulo
	profiles.RegisterRoutes(r, profilesSvc)
	medicines.RegisterRoutes(r, medsSvc, reminders)
	consultations.RegisterRoutes(r, consultSvc)
	caretakers.RegisterRoutes(r, caretakersSvc)
	catalog.RegisterRoutes(r, catalogSvc)
	dashboard.RegisterRoutes(r, dashSvc)
	realtime.RegisterRoutes(r, hub)

	return r
}
