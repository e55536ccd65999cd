// Package httpapi wires the HTTP surface: middleware chain, routes, and
// the domain services behind them.
package httpapi

import (
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/matasmazeikaa/copyviral-sub002/internal/config"
	"github.com/matasmazeikaa/copyviral-sub002/internal/httpapi/handlers"
	"github.com/matasmazeikaa/copyviral-sub002/internal/httpkit"
	"github.com/matasmazeikaa/copyviral-sub002/internal/pkg/logger"
	"github.com/matasmazeikaa/copyviral-sub002/internal/pkg/middleware"
	"github.com/matasmazeikaa/copyviral-sub002/internal/ports"
	"github.com/matasmazeikaa/copyviral-sub002/internal/quota"
	"github.com/matasmazeikaa/copyviral-sub002/internal/render"
	"github.com/matasmazeikaa/copyviral-sub002/internal/storage"
)

type Deps struct {
	Pool        *pgxpool.Pool
	RDB         *redis.Client
	ObjectStore ports.ObjectStore
	Cfg         *config.Config
	Log         *logger.Logger
}

func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}

	store := render.NewPGStore(d.Pool)
	queue := render.NewQueue(d.RDB, d.Cfg.QueueName)
	submitter := render.NewSubmitter(store, queue, log)
	accountant := storage.NewAccountant(d.ObjectStore, log)
	gate := quota.NewGate(accountant, quota.NewPGTierSource(d.Pool), log)
	mover := storage.NewMover(d.ObjectStore, log)
	reaper := render.NewReaper(store, d.Cfg.ReapTimeout(), log)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RateLimit(rate.NewLimiter(
		rate.Limit(d.Cfg.RateLimit.RPS), d.Cfg.RateLimit.Burst)))

	allowedOrigins := envCSV("CORS_ALLOWED_ORIGINS", []string{
		"http://localhost:8081",
		"http://localhost:5173",
	})
	r.Use(httpkit.CORS(httpkit.CORSOptions{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAgeSeconds:    600,
	}))

	h := handlers.New(handlers.Deps{
		Pool:        d.Pool,
		RDB:         d.RDB,
		ObjectStore: d.ObjectStore,
		Store:       store,
		Submitter:   submitter,
		Gate:        gate,
		Mover:       mover,
		Reaper:      reaper,
		Log:         log,
	})

	// ---- HEALTH ----
	r.Get("/health", h.Health)

	// ---- RENDER JOBS ----
	r.Post("/render", h.PostRender)
	r.Post("/render/batch", h.PostRenderBatch)
	r.Get("/render/{jobID}", h.GetRenderJob)

	// ---- STORAGE ----
	r.Post("/storage/check", h.StorageCheck)
	r.Post("/media/move", h.MoveMedia)

	// ---- INTERNAL ----
	r.With(middleware.BearerSecret(d.Cfg.CleanupSecret)).
		Post("/internal/cleanup", h.Cleanup)

	return r
}

func envCSV(key string, def []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
