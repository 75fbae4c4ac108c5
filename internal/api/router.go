// Package api exposes the guild service over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/cory-johannsen/guildmaster/internal/guild"
)

const healthTimeout = 5 * time.Second

// NewRouter builds the HTTP routes for svc.
//
// Precondition: svc and logger must be non-nil.
func NewRouter(svc *guild.Service, logger *zap.Logger) http.Handler {
	if svc == nil || logger == nil {
		panic("api.NewRouter: svc and logger must not be nil")
	}
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(chiMiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := svc.Ping(ctx); err != nil {
			logger.Warn("store health check failed", zap.Error(err))
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	units := NewUnitHandler(svc, logger)
	battles := NewBattleHandler(svc, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/units", func(r chi.Router) {
			r.Get("/", units.List)
			r.Post("/", units.Recruit)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", units.Get)
				r.Delete("/", units.Dismiss)
				r.Post("/experience", units.GrantExperience)
				r.Post("/awaken", units.Awaken)
				r.Post("/revive", units.Revive)
			})
		})
		r.Post("/battles", battles.Run)
		r.Post("/save", battles.Save)
	})

	return r
}

// requestLogger logs one line per request with the chi request id.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				zap.String("request_id", chiMiddleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", time.Since(start)),
			)
		})
	}
}
