package middleware

import (
	"context"
	"net/http"
	"time"
)

// ExtendedTimeout wraps a handler to apply a longer per-request deadline.
// Used on report endpoints that decode many stored XML payloads. The
// server's WriteTimeout still applies on top of this context deadline.
func ExtendedTimeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
