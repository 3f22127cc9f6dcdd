package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"clipshare/internal/apperr"
	"clipshare/internal/logging"
	"clipshare/internal/transcoder"
)

// GetPoster returns a JPEG preview frame for the asset.
func (h *Handlers) GetPoster(w http.ResponseWriter, r *http.Request) {
	asset, err := h.videos.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	data, err := h.posters.Poster(r.Context(), asset)
	if err != nil {
		kind := apperr.KindProcessingFailed
		if errors.Is(err, transcoder.ErrTimeout) {
			kind = apperr.KindTimeout
		}
		writeError(w, r, apperr.Wrap(kind, "Error generating poster", err))
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=86400")
	if _, err := w.Write(data); err != nil {
		logging.Debug("Failed to write poster for %s: %v", asset.ID, err)
	}
}
