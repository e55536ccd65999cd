package handlers

import (
	"net/http"

	"github.com/matasmazeikaa/copyviral-sub002/internal/httpkit"
	"github.com/matasmazeikaa/copyviral-sub002/internal/models"
	"github.com/matasmazeikaa/copyviral-sub002/internal/pkg/errors"
	"github.com/matasmazeikaa/copyviral-sub002/internal/ports"
	"github.com/matasmazeikaa/copyviral-sub002/internal/storage"
)

type moveMediaRequest struct {
	AccountID    string `json:"account_id"`
	ObjectID     string `json:"object_id"`
	OriginalName string `json:"original_name"`
	// Folder is the source folder inside the media library, empty for
	// the library root.
	Folder string `json:"folder,omitempty"`
	// DestinationFolder is where the object lands, empty for the root.
	DestinationFolder string `json:"destination_folder,omitempty"`
}

// MoveMedia handles POST /media/move: relocate a media-library object to
// another folder. Objects stored under the legacy key format are found
// and moved too.
func (h *Handler) MoveMedia(w http.ResponseWriter, r *http.Request) {
	var req moveMediaRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, errors.WrapWithCode(err, errors.CodeBadRequest, "media.move", "invalid request body"))
		return
	}
	if req.AccountID == "" {
		h.writeError(w, r, errors.ValidationField("account_id", "account_id is required"))
		return
	}
	if req.ObjectID == "" {
		h.writeError(w, r, errors.ValidationField("object_id", "object_id is required"))
		return
	}
	if req.OriginalName == "" {
		h.writeError(w, r, errors.ValidationField("original_name", "original_name is required"))
		return
	}

	src := storage.ObjectPath{
		Area:         models.AreaMediaLibrary,
		AccountID:    req.AccountID,
		Folder:       req.Folder,
		ObjectID:     req.ObjectID,
		OriginalName: req.OriginalName,
	}
	dst := storage.ObjectPath{
		Area:         models.AreaMediaLibrary,
		AccountID:    req.AccountID,
		Folder:       req.DestinationFolder,
		ObjectID:     req.ObjectID,
		OriginalName: req.OriginalName,
	}

	if err := h.mover.Move(r.Context(), src, dst.Key()); err != nil {
		if ports.IsNotFound(err) {
			h.writeError(w, r, errors.NotFound("object", req.ObjectID))
			return
		}
		h.writeError(w, r, errors.Wrap(err, "media.move", "failed to move object"))
		return
	}

	httpkit.WriteJSON(w, http.StatusOK, map[string]any{
		"moved":   true,
		"new_key": dst.Key(),
	})
}
