package middleware

import (
	"net/http"

	"github.com/cloo-solutions/mentorkb/internal/api"
)

// MaxBodyBytes caps the readable request body at limit bytes. Requests
// that declare a larger Content-Length are rejected up front; chunked
// bodies are truncated by MaxBytesReader and fail inside the handler.
// A non-positive limit disables the cap.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case limit <= 0 || r.Body == nil:
			case r.ContentLength > limit:
				api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			default:
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
