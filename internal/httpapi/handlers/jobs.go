package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matasmazeikaa/copyviral-sub002/internal/httpkit"
	"github.com/matasmazeikaa/copyviral-sub002/internal/pkg/errors"
	"github.com/matasmazeikaa/copyviral-sub002/internal/render"
)

// PostRender handles POST /render: submit one render job.
func (h *Handler) PostRender(w http.ResponseWriter, r *http.Request) {
	var req render.SubmitRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, errors.WrapWithCode(err, errors.CodeBadRequest, "render.submit", "invalid request body"))
		return
	}

	jobID, err := h.submitter.SubmitOne(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httpkit.WriteJSON(w, http.StatusCreated, map[string]string{
		"job_id": jobID,
	})
}

type batchRequest struct {
	Requests []render.SubmitRequest `json:"requests"`
}

// PostRenderBatch handles POST /render/batch: submit several render jobs
// under one batch id. Partial success returns 201 with the failed count.
func (h *Handler) PostRenderBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, errors.WrapWithCode(err, errors.CodeBadRequest, "render.batch", "invalid request body"))
		return
	}

	res, err := h.submitter.SubmitBatch(r.Context(), req.Requests)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httpkit.WriteJSON(w, http.StatusCreated, res)
}

// GetRenderJob handles GET /render/{jobID}: current job state.
func (h *Handler) GetRenderJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		h.writeError(w, r, errors.ValidationField("jobID", "job id is required"))
		return
	}

	job, err := h.store.Get(r.Context(), jobID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httpkit.WriteJSON(w, http.StatusOK, map[string]any{
		"job": job,
	})
}
