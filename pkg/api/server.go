// Package api serves decoded ISO 8211 files over a REST API backed by the
// catalog.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Router builds the HTTP handler with all routes configured
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.metrics.InstrumentAuthMiddleware(apiKeyMiddleware(s.config.APIKey)))

		r.Get("/health", s.metrics.InstrumentHandler("GET", "/api/v1/health", s.handleHealth))

		r.Post("/files", s.metrics.InstrumentHandler("POST", "/api/v1/files", s.handleUpload))
		r.Get("/files", s.metrics.InstrumentHandler("GET", "/api/v1/files", s.handleListFiles))
		r.Get("/files/{id}", s.metrics.InstrumentHandler("GET", "/api/v1/files/{id}", s.handleGetFile))
		r.Get("/files/{id}/schema", s.metrics.InstrumentHandler("GET", "/api/v1/files/{id}/schema", s.handleGetSchema))
		r.Get("/files/{id}/records", s.metrics.InstrumentHandler("GET", "/api/v1/files/{id}/records", s.handleGetRecords))
		r.Delete("/files/{id}", s.metrics.InstrumentHandler("DELETE", "/api/v1/files/{id}", s.handleDeleteFile))
	})

	return r
}

// StartServer serves the API until ctx is cancelled, then shuts down
// gracefully.
func StartServer(ctx context.Context, cat ICatalog, config ServerConfig, log logrus.FieldLogger) error {
	server := NewServer(cat, config, log)
	server.refreshCatalogGauge()

	addr := fmt.Sprintf("%s:%d", config.Bind, config.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		server.log.WithField("addr", addr).Info("starting ISO 8211 API server")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.log.Info("shutting down API server")
		return httpServer.Shutdown(shutdownCtx)
	}
}
