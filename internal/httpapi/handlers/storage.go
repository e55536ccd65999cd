package handlers

import (
	"net/http"

	"github.com/matasmazeikaa/copyviral-sub002/internal/httpkit"
	"github.com/matasmazeikaa/copyviral-sub002/internal/pkg/errors"
)

type storageCheckRequest struct {
	AccountID string `json:"account_id"`
	FileSize  int64  `json:"file_size"`
	MimeType  string `json:"mime_type"`
}

type storageCheckResponse struct {
	CanUpload  bool   `json:"can_upload"`
	Reason     string `json:"reason,omitempty"`
	Usage      any    `json:"usage"`
	LimitBytes int64  `json:"limit_bytes"`
}

// StorageCheck handles POST /storage/check: advisory upload admission.
// A rejection is a 200 with can_upload=false, not an error; the check
// itself only fails on malformed input.
func (h *Handler) StorageCheck(w http.ResponseWriter, r *http.Request) {
	var req storageCheckRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, errors.WrapWithCode(err, errors.CodeBadRequest, "storage.check", "invalid request body"))
		return
	}
	if req.AccountID == "" {
		h.writeError(w, r, errors.ValidationField("account_id", "account_id is required"))
		return
	}

	d := h.gate.CanAdmitUpload(r.Context(), req.AccountID, req.FileSize, req.MimeType)

	httpkit.WriteJSON(w, http.StatusOK, storageCheckResponse{
		CanUpload:  d.Allowed,
		Reason:     d.Reason,
		Usage:      d.Usage,
		LimitBytes: d.LimitBytes,
	})
}
