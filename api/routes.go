package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	rh "github.com/coreybb/promptbook/route-handlers"
	"github.com/coreybb/promptbook/webutil"
)

const (
	apiBasePath           = "/api"
	exportsBasePath       = "/exports"
	sampleOutputsBasePath = "/sample-outputs"
)

const (
	pdfSubPath          = "/pdf"
	promptsOrderSubPath = "/prompts/order"
	pagesSubPath        = "/pages"
)

const (
	paramID      = "id"
	paramEntryID = "entryID"
	paramPageID  = "pageID"
)

const defaultRequestTimeout = 60 * time.Second

// Options tunes the router. Zero values fall back to defaults.
type Options struct {
	RequestTimeout   time.Duration
	CORSOrigins      []string
	ExportRateLimit  int
	ExportRateWindow time.Duration
}

func SetupRoutes(exportHandler *rh.ExportHandler, opts Options) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(opts.RequestTimeout))
	r.Use(corsHandler(opts.CORSOrigins))
	r.Use(SetHeader(webutil.HeaderContentType, webutil.ContentTypeJSONUTF8)) // Default Content-Type

	r.Route(apiBasePath, func(r chi.Router) {
		configureExportRoutes(r, exportHandler, opts)
		configureSampleOutputRoutes(r, exportHandler)
	})

	r.Get("/healthz", handleHealthCheck)

	return r
}

// Helper for constructing paths with a parameter
func pathWithParam(basePath string, paramName string) string {
	if basePath == "" {
		return "/{" + paramName + "}"
	}
	return basePath + "/{" + paramName + "}"
}

// --- Export Routes ---
func configureExportRoutes(r chi.Router, handler *rh.ExportHandler, opts Options) {
	r.Route(exportsBasePath, func(r chi.Router) {
		r.Get("/", webutil.MakeHandler(handler.HandleGetExports))
		r.Post("/", webutil.MakeHandler(handler.HandleCreateExport))

		r.Route(pathWithParam("", paramID), func(r chi.Router) {
			r.Get("/", webutil.MakeHandler(handler.HandleGetExport))
			r.Patch("/", webutil.MakeHandler(handler.HandleUpdateExport))
			r.Delete("/", webutil.MakeHandler(handler.HandleDeleteExport))

			// Rendering is the expensive call, so it alone is rate limited.
			r.With(exportRateLimiter(opts.ExportRateLimit, opts.ExportRateWindow)).
				Post(pdfSubPath, webutil.MakeHandler(handler.HandleExportDocument)) // POST /exports/{id}/pdf[?format=epub]

			r.Put(promptsOrderSubPath, webutil.MakeHandler(handler.HandleReorderEntries))
			r.Patch(pathWithParam("/prompts", paramEntryID), webutil.MakeHandler(handler.HandleUpdateEntry))

			r.Post(pagesSubPath, webutil.MakeHandler(handler.HandleCreatePage))
			r.Patch(pathWithParam(pagesSubPath, paramPageID), webutil.MakeHandler(handler.HandleUpdatePage))
			r.Delete(pathWithParam(pagesSubPath, paramPageID), webutil.MakeHandler(handler.HandleDeletePage))
		})
	})
}

// --- Sample Output Routes ---
func configureSampleOutputRoutes(r chi.Router, handler *rh.ExportHandler) {
	r.Patch(pathWithParam(sampleOutputsBasePath, paramID), webutil.MakeHandler(handler.HandleUpdateSampleInclusion))
}

// handleHealthCheck responds to a health check request.
func handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(webutil.HeaderContentType, webutil.ContentTypeTextPlainUTF8)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
