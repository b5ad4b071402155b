// Package api exposes the verification pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/vaibhavmahiwal/medverify/internal/model"
	"github.com/vaibhavmahiwal/medverify/internal/store"
)

// Verifier runs a claim through the full verification pipeline.
type Verifier interface {
	Run(ctx context.Context, rawInput string) *model.CredibilityResult
}

// Server holds the HTTP handler dependencies.
type Server struct {
	verifier Verifier
	store    store.ResultStore
}

// NewRouter builds the API router. The store may be nil, in which case the
// history endpoint reports an empty gallery.
func NewRouter(v Verifier, st store.ResultStore) http.Handler {
	s := &Server{verifier: v, store: st}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	r.Use(requestLogger)

	r.Post("/medverify/check", s.checkClaim)
	r.Get("/medverify/history", s.history)
	r.Get("/health", s.health)

	return r
}

type checkRequest struct {
	Input string `json:"input"`
}

type errResp struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) checkClaim(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errResp{"invalid request body"})
		return
	}
	if req.Input == "" {
		writeJSON(w, http.StatusBadRequest, errResp{"No input provided. Please enter a text or URL."})
		return
	}

	result := s.verifier.Run(r.Context(), req.Input)
	if result == nil {
		zap.L().Error("api: verifier returned no result")
		writeJSON(w, http.StatusInternalServerError, errResp{"verification failed"})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errResp{"limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	if s.store == nil {
		writeJSON(w, http.StatusOK, []model.ClaimRecord{})
		return
	}

	records, err := s.store.ListAll(r.Context(), limit)
	if err != nil {
		zap.L().Error("api: history query failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errResp{"failed to retrieve claims history"})
		return
	}
	if records == nil {
		records = []model.ClaimRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestLogger logs every request with method, path, status, and duration.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
