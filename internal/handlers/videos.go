package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"clipshare/internal/apperr"
	"clipshare/internal/database"
	"clipshare/internal/logging"
	"clipshare/internal/videos"
)

// multipartOverhead is the slack allowed on top of the upload limit for
// multipart boundaries and part headers.
const multipartOverhead = 64 << 10

// UploadResponse is returned by a successful upload.
type UploadResponse struct {
	Message string          `json:"message"`
	Path    string          `json:"path"`
	Video   *database.Asset `json:"video"`
}

// UploadVideo accepts a multipart form with the video in field "file".
func (h *Handlers) UploadVideo(w http.ResponseWriter, r *http.Request) {
	limit := h.videos.Config().MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, r, apperr.Wrap(apperr.KindValidation, "No file uploaded", err))
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			writeError(w, r, apperr.Validation("No file uploaded"))
			return
		}
		if err != nil {
			writeError(w, r, uploadReadError(err))
			return
		}
		if part.FormName() != "file" || part.FileName() == "" {
			part.Close()
			continue
		}

		h.storeUpload(w, r, part.FileName(), part, limit)
		part.Close()
		return
	}
}

func (h *Handlers) storeUpload(w http.ResponseWriter, r *http.Request, filename string, body io.Reader, limit int64) {
	path, size, err := h.storage.Spool(body, filename, limit)
	if err != nil {
		writeError(w, r, uploadReadError(err))
		return
	}

	asset, err := h.videos.Upload(r.Context(), videos.UploadedFile{Path: path, Filename: filename, Size: size})
	if err != nil {
		// The service leaves oversized files alone; nothing else owns this one.
		if apperr.DetailOf(err) == "FileTooLarge" {
			_ = h.storage.Remove(path)
		}
		writeError(w, r, err)
		return
	}

	writeJSONStatus(w, http.StatusCreated, UploadResponse{
		Message: "Video uploaded and processed successfully",
		Path:    h.videos.PublicURL(asset.Filename),
		Video:   asset,
	})
}

func uploadReadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperr.Wrap(apperr.KindValidation, "File size exceeds limit", err).WithDetail("FileTooLarge")
	}
	return apperr.Wrap(apperr.KindValidation, "Failed to read upload", err)
}

type trimRequest struct {
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
}

// TrimVideo cuts [start, end) out of a stored asset into a new asset.
func (h *Handlers) TrimVideo(w http.ResponseWriter, r *http.Request) {
	var req trimRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Start == nil || req.End == nil {
		writeError(w, r, apperr.Validation("Invalid start and end times").WithDetail("InvalidRange"))
		return
	}

	result, err := h.videos.Trim(r.Context(), mux.Vars(r)["id"], *req.Start, *req.End)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSONStatus(w, http.StatusCreated, result)
}

type mergeRequest struct {
	VideoIDs []string `json:"videoIds"`
}

// MergeVideos concatenates assets in request order into a new asset.
func (h *Handlers) MergeVideos(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	logging.Debug("Merge requested for %d videos", len(req.VideoIDs))
	result, err := h.videos.Merge(r.Context(), req.VideoIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSONStatus(w, http.StatusCreated, result)
}

// GetVideo returns an asset's metadata.
func (h *Handlers) GetVideo(w http.ResponseWriter, r *http.Request) {
	asset, err := h.videos.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	writeJSONStatus(w, http.StatusOK, asset)
}
