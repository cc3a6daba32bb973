// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package gateway serves the workflow catalog over HTTP. Each workflow's
// route accepts the same multipart form the conversion service does,
// validates it locally, forwards it, and streams the result back as an
// attachment or as plain text.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/pdiddy/docconv/internal/logging"
	"github.com/pdiddy/docconv/internal/metrics"
	"github.com/pdiddy/docconv/internal/session"
	"github.com/pdiddy/docconv/internal/workflow"
	"github.com/pdiddy/docconv/pkg/types"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = "127.0.0.1:8080"

// Config holds gateway settings.
type Config struct {
	HTTP           types.HTTPConfig
	MaxFileSize    int64
	AllowedOrigins []string
	// History records forwarded submissions. Nil disables it.
	History session.Recorder
}

// Server routes gateway requests.
type Server struct {
	catalog *workflow.Catalog
	client  *http.Client
	cfg     Config
	log     *zap.Logger
}

// New returns a Server forwarding through client. A nil client gets one
// with cfg.HTTP.Timeout.
func New(catalog *workflow.Catalog, client *http.Client, cfg Config) *Server {
	if client == nil {
		client = &http.Client{Timeout: cfg.HTTP.Timeout}
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = types.MaxFileSize
	}
	return &Server{catalog: catalog, client: client, cfg: cfg, log: logging.Named("gateway")}
}

// Handler returns the router wrapped with CORS.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(s.instrument)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "docconv"})
	}).Methods(http.MethodGet)
	router.HandleFunc("/workflows", s.listWorkflows).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	for _, wf := range s.catalog.All() {
		h := s.convert(wf)
		router.Handle(wf.Route, h).Methods(http.MethodPost)
		for _, alias := range wf.Aliases {
			router.Handle(alias, h).Methods(http.MethodPost)
		}
	}

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	})
	return c.Handler(router)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("gateway listening", zap.String("addr", addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down gateway")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// workflowInfo is the public description of a workflow.
type workflowInfo struct {
	Name     string   `json:"name"`
	Title    string   `json:"title"`
	Route    string   `json:"route"`
	Endpoint string   `json:"endpoint"`
	Multi    bool     `json:"multi"`
	Accept   string   `json:"accept"`
	Field    string   `json:"file_field"`
	Params   []string `json:"params"`
	Response string   `json:"response"`
}

func (s *Server) listWorkflows(w http.ResponseWriter, r *http.Request) {
	all := s.catalog.All()
	out := make([]workflowInfo, len(all))
	for i, wf := range all {
		params := make([]string, 0, len(wf.Params))
		for _, p := range wf.Params {
			if !p.Fixed {
				params = append(params, p.Field)
			}
		}
		out[i] = workflowInfo{
			Name:     wf.Name,
			Title:    wf.Title,
			Route:    wf.Route,
			Endpoint: wf.Endpoint,
			Multi:    wf.Multi,
			Accept:   wf.AcceptList(),
			Field:    wf.FileField,
			Params:   params,
			Response: string(wf.Response),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tmpl, err := cur.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		metrics.RecordHTTPRequest(r.Method, route, rec.status, time.Since(start))
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
