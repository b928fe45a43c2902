package middleware

import "net/http"

// MaxBodySize caps request bodies at 1MB; no endpoint accepts uploads.
const MaxBodySize int64 = 1 << 20

// RequestSize wraps the body with http.MaxBytesReader so oversized payloads
// fail at read time with 413.
func RequestSize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
