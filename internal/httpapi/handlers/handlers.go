// Package handlers implements the HTTP request boundary. Authentication
// of end users happens upstream; requests arriving here are treated as
// authenticated except for the cleanup trigger, which carries its own
// shared secret.
package handlers

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/matasmazeikaa/copyviral-sub002/internal/httpkit"
	"github.com/matasmazeikaa/copyviral-sub002/internal/pkg/errors"
	"github.com/matasmazeikaa/copyviral-sub002/internal/pkg/logger"
	"github.com/matasmazeikaa/copyviral-sub002/internal/ports"
	"github.com/matasmazeikaa/copyviral-sub002/internal/quota"
	"github.com/matasmazeikaa/copyviral-sub002/internal/render"
	"github.com/matasmazeikaa/copyviral-sub002/internal/storage"
)

type Deps struct {
	Pool        *pgxpool.Pool
	RDB         *redis.Client
	ObjectStore ports.ObjectStore
	Store       render.Store
	Submitter   *render.Submitter
	Gate        *quota.Gate
	Mover       *storage.Mover
	Reaper      *render.Reaper
	Log         *logger.Logger
}

type Handler struct {
	pool        *pgxpool.Pool
	rdb         *redis.Client
	objectStore ports.ObjectStore
	store       render.Store
	submitter   *render.Submitter
	gate        *quota.Gate
	mover       *storage.Mover
	reaper      *render.Reaper
	log         *logger.Logger
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	return &Handler{
		pool:        d.Pool,
		rdb:         d.RDB,
		objectStore: d.ObjectStore,
		store:       d.Store,
		submitter:   d.Submitter,
		gate:        d.Gate,
		mover:       d.Mover,
		reaper:      d.Reaper,
		log:         log,
	}
}

// writeError maps a coded error onto the JSON error envelope. Internal
// detail is logged, never returned.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	status := errors.GetHTTPStatus(err)
	fields := errors.GetFields(err)

	log := h.log.FromContext(r.Context())
	msg := "internal server error"
	var coded *errors.Error
	if errors.As(err, &coded) && status < 500 {
		msg = coded.Message
	}

	if status >= 500 {
		log.Error("request failed",
			"error", err.Error(),
			"code", string(code),
			"path", r.URL.Path,
		)
		fields = nil
	} else {
		log.Warn("request rejected",
			"code", string(code),
			"path", r.URL.Path,
		)
	}

	httpkit.WriteErr(w, status, string(code), msg, fields)
}
