package handlers

import (
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/mux"

	"clipshare/internal/apperr"
	"clipshare/internal/logging"
	"clipshare/internal/streaming"
)

// GetShare either issues a link (?expiry=<minutes>, credential required)
// or streams the video to a holder of a valid link (?token=...).
func (h *Handlers) GetShare(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	q := r.URL.Query()

	if q.Has("expiry") {
		minutes, err := strconv.ParseFloat(q.Get("expiry"), 64)
		if err != nil {
			writeError(w, r, apperr.Wrap(apperr.KindValidation, "Invalid expiry", err))
			return
		}
		h.issueShare(w, r, id, minutes)
		return
	}

	h.streamShared(w, r, id, q.Get("token"))
}

type shareRequest struct {
	Expiry *float64 `json:"expiry"`
}

// CreateShare issues a link from a JSON body {"expiry": minutes}.
func (h *Handlers) CreateShare(w http.ResponseWriter, r *http.Request) {
	var req shareRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Expiry == nil {
		writeError(w, r, apperr.Validation("Invalid expiry"))
		return
	}

	h.issueShare(w, r, mux.Vars(r)["id"], *req.Expiry)
}

func (h *Handlers) issueShare(w http.ResponseWriter, r *http.Request, id string, minutes float64) {
	link, err := h.shares.Issue(r.Context(), id, minutes)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSONStatus(w, http.StatusOK, link)
}

// RevokeShare invalidates the asset's current link.
func (h *Handlers) RevokeShare(w http.ResponseWriter, r *http.Request) {
	if err := h.shares.Revoke(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSONStatus(w, http.StatusOK, map[string]string{"message": "Share link revoked"})
}

func (h *Handlers) streamShared(w http.ResponseWriter, r *http.Request, id, token string) {
	asset, err := h.shares.Validate(r.Context(), id, token)
	if err != nil {
		writeError(w, r, err)
		return
	}

	f, err := h.storage.Open(asset.StoragePath)
	if errors.Is(err, os.ErrNotExist) {
		writeError(w, r, apperr.Wrap(apperr.KindNotFound, "Video file not found", err))
		return
	}
	if err != nil {
		writeError(w, r, apperr.Wrap(apperr.KindInternal, "Failed to open video", err))
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeError(w, r, apperr.Wrap(apperr.KindInternal, "Failed to open video", err))
		return
	}
	size := info.Size()

	w.Header().Set("Cache-Control", "private, no-store")
	status, err := streaming.ServeRange(r.Context(), w, r, f, size, "video/mp4", h.stream)
	switch {
	case errors.Is(err, streaming.ErrInvalidRange):
		w.Header().Set("Content-Range", streaming.UnsatisfiableContentRange(size))
		writeErrorStatus(w, http.StatusRequestedRangeNotSatisfiable, apperr.KindValidation, "Requested range not satisfiable")
	case errors.Is(err, streaming.ErrClientGone):
		logging.Debug("Client went away while streaming %s", id)
	case err != nil:
		logging.Warn("Streaming %s stopped after %d response: %v", id, status, err)
	}
}
