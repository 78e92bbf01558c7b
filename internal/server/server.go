// Package server exposes the translation pipeline over HTTP: the manual
// dictionary mapper, the dictionary lookup, the webhook translator and the
// phone/name preparation utility.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/kommo-bridge/internal/dict"
	"github.com/sells-group/kommo-bridge/internal/pipeline"
	"github.com/sells-group/kommo-bridge/pkg/kommo"
)

// Server holds the handler dependencies.
type Server struct {
	dicts     *dict.Registry
	pipe      *pipeline.Pipeline
	client    kommo.Client
	tokens    kommo.TokenSource
	subdomain string
}

// New assembles a Server over the shared pipeline and client.
func New(dicts *dict.Registry, pipe *pipeline.Pipeline, client kommo.Client, tokens kommo.TokenSource, subdomain string) *Server {
	return &Server{
		dicts:     dicts,
		pipe:      pipe,
		client:    client,
		tokens:    tokens,
		subdomain: subdomain,
	}
}

// Handler builds the chi router with the request-id, logging, recovery and
// CORS middleware stack.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(requestLogger)
	r.Use(recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/", s.handleRoot)
	r.Post("/mapear", s.handleMapear)
	r.Get("/lookup/{diccionario}/{id}", s.handleLookup)
	r.Post("/kommo/translate", s.handleTranslate)
	r.Post("/utils/prepare", s.handlePrepare)
	r.Get("/debug/kommo", s.handleDebug)

	return r
}

type ctxKey string

const requestIDKey ctxKey = "request_id"

// requestID tags every request with a UUID, echoed in X-Request-Id.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(contextWithRequestID(r.Context(), id)))
	})
}

// requestLogger logs method, path, status and latency for every request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", requestIDFrom(r.Context())),
		)
	})
}

// recoverer converts panics into an opaque 500 without leaking internals.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				zap.L().Error("handler panic",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path),
					zap.String("request_id", requestIDFrom(r.Context())),
				)
				respondJSON(w, http.StatusInternalServerError, map[string]any{
					"ok":    false,
					"error": "Error interno",
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}
