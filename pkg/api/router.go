// Package api serves the TitaniumShare HTTP surface: file operations, share
// code resolution, health probes, metrics, and the signaling transport.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/NavaneethReddy332/TitaniumShare-sub000/internal/logger"
	"github.com/NavaneethReddy332/TitaniumShare-sub000/pkg/api/auth"
	"github.com/NavaneethReddy332/TitaniumShare-sub000/pkg/api/handlers"
	"github.com/NavaneethReddy332/TitaniumShare-sub000/pkg/api/middleware"
	"github.com/NavaneethReddy332/TitaniumShare-sub000/pkg/blob"
	"github.com/NavaneethReddy332/TitaniumShare-sub000/pkg/catalog"
	"github.com/NavaneethReddy332/TitaniumShare-sub000/pkg/metrics"
	"github.com/NavaneethReddy332/TitaniumShare-sub000/pkg/sharecode"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Catalog   *catalog.Store
	Blob      blob.Store
	Allocator *sharecode.Allocator
	Auth      *auth.Service
	Metrics   *metrics.Metrics

	// Signaling serves the WebSocket transport at /ws. Nil disables the
	// route.
	Signaling http.Handler

	// MaxUploadBytes caps the in-process multipart path.
	MaxUploadBytes int64

	// PresignTTL is the validity window for minted URLs.
	PresignTTL time.Duration

	// RequestTimeout bounds the JSON routes. The signaling route is exempt.
	RequestTimeout time.Duration
}

// NewRouter creates and configures the chi router with all middleware and
// routes.
//
// The middleware stack, in order: request id, real ip, request logging, panic
// recovery, and a request timeout. The timeout wraps only the JSON routes;
// /ws connections live as long as the room.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger)
	r.Use(chimw.Recoverer)

	requestTimeout := deps.RequestTimeout
	if requestTimeout == 0 {
		requestTimeout = 30 * time.Second
	}

	healthHandler := handlers.NewHealthHandler(deps.Catalog, deps.Blob)
	fileHandler := handlers.NewFileHandler(
		deps.Catalog, deps.Blob, deps.Allocator, deps.Metrics,
		deps.MaxUploadBytes, deps.PresignTTL)
	downloadHandler := handlers.NewDownloadHandler(
		deps.Catalog, deps.Blob, deps.Metrics, deps.PresignTTL)

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(requestTimeout))

		r.Route("/health", func(r chi.Router) {
			r.Get("/", healthHandler.Liveness)
			r.Get("/ready", healthHandler.Readiness)
		})

		if deps.Metrics != nil {
			r.Handle("/metrics", deps.Metrics.Handler())
		}

		r.Route("/api/files", func(r chi.Router) {
			// Share code resolution is public.
			r.Get("/download/{code}", downloadHandler.Resolve)
			r.Post("/download/{code}", downloadHandler.Unlock)

			// Owner operations require a bearer token.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth(deps.Auth))

				r.Post("/presign", fileHandler.Presign)
				r.Post("/confirm", fileHandler.Confirm)
				r.Post("/upload", fileHandler.Upload)
				r.Get("/", fileHandler.List)
				r.Delete("/{id}", fileHandler.Delete)
			})
		})
	})

	if deps.Signaling != nil {
		r.Handle("/ws", deps.Signaling)
	}

	return r
}

// requestLogger logs request start (DEBUG) and completion (INFO) through the
// internal logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := chimw.GetReqID(r.Context())

		logger.Debug("request started",
			logger.RequestID(requestID),
			"method", r.Method,
			"path", r.URL.Path,
			logger.ClientIP(r.RemoteAddr),
		)

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Info("request completed",
			logger.RequestID(requestID),
			"method", r.Method,
			"path", r.URL.Path,
			logger.Status(ww.Status()),
			"bytes", ww.BytesWritten(),
			"duration_ms", logger.DurationMs(start),
		)
	})
}
