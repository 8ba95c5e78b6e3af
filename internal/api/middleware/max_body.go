package middleware

import (
	"net/http"

	"github.com/cloo-solutions/examvault/internal/api"
)

// MaxBodyBytes caps request bodies at limit bytes. A declared Content-Length
// over the limit is rejected up front; chunked bodies are cut off while the
// handler reads them and surface as *http.MaxBytesError.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 || r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > limit {
				api.TooLarge(w, limit)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
