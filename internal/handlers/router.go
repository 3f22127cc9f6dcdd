package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// NewRouter registers every route. Stored files are served read-only from
// uploadDir under /uploads/.
func NewRouter(h *Handlers, uploadDir string) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes (no auth required)
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	v := r.PathPrefix("/video").Subrouter()
	v.HandleFunc("/upload", h.UploadVideo).Methods("POST")
	v.HandleFunc("/merge", h.MergeVideos).Methods("POST")
	v.HandleFunc("/{id}", h.GetVideo).Methods("GET")
	v.HandleFunc("/{id}/trim", h.TrimVideo).Methods("POST")
	v.HandleFunc("/{id}/share", h.GetShare).Methods("GET", "HEAD")
	v.HandleFunc("/{id}/share", h.CreateShare).Methods("POST")
	v.HandleFunc("/{id}/share", h.RevokeShare).Methods("DELETE")
	v.HandleFunc("/{id}/poster", h.GetPoster).Methods("GET")

	r.PathPrefix("/uploads/").Handler(http.StripPrefix("/uploads/", noListing(http.FileServer(http.Dir(uploadDir)))))

	return r
}

// noListing hides directory indexes.
func noListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
