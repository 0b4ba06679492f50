package api

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/coreybb/promptbook/webutil"
)

const (
	defaultExportRateLimit  = 10
	defaultExportRateWindow = time.Minute
	corsMaxAgeSeconds       = 300
)

// SetHeader is a middleware to set a response header.
func SetHeader(key, value string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(key, value)
			next.ServeHTTP(w, r)
		})
	}
}

// corsHandler allows the admin UI origins to call the API. Content-Disposition
// is exposed so browsers can read the download filename.
func corsHandler(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{webutil.HeaderContentDisposition, webutil.HeaderContentLength},
		MaxAge:         corsMaxAgeSeconds,
	})
}

// exportRateLimiter limits document generation per client IP.
func exportRateLimiter(limit int, window time.Duration) func(http.Handler) http.Handler {
	if limit <= 0 {
		limit = defaultExportRateLimit
	}
	if window <= 0 {
		window = defaultExportRateWindow
	}
	return httprate.Limit(limit, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			webutil.RespondWithError(w, http.StatusTooManyRequests, "Too many export requests, try again later")
		}),
	)
}
