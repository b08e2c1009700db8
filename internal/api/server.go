package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/alfreward/internal/scoring"
	"github.com/MikeSquared-Agency/alfreward/internal/store"
)

// RewardReader reads persisted rewards.
type RewardReader interface {
	RewardStats(ctx context.Context, split string) (*scoring.Summary, error)
	GetReward(ctx context.Context, id uuid.UUID) (*store.RewardRecord, error)
}

type Server struct {
	router     *chi.Mux
	port       int
	scorer     *scoring.Scorer
	rewards    RewardReader
	sampleRate float64
}

// NewServer builds the HTTP API. rewards may be nil when no database is
// configured; apiToken empty disables authentication.
func NewServer(port int, apiToken string, sc *scoring.Scorer, rewards RewardReader, sampleRate float64) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:     router,
		port:       port,
		scorer:     sc,
		rewards:    rewards,
		sampleRate: sampleRate,
	}

	router.Get("/health", s.health)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Get("/alfreward/status", s.status)
		r.Get("/grammar", s.grammar)
		r.Post("/score", s.score)
		r.Post("/score/batch", s.scoreBatch)
		r.Get("/rewards/stats", s.rewardStats)
		r.Get("/rewards/{id}", s.getReward)
	})

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"agent":       "alfreward",
		"status":      "ok",
		"weights":     s.scorer.Weights(),
		"max_score":   s.scorer.Weights().Max(),
		"sample_rate": s.sampleRate,
		"store":       s.rewards != nil,
	})
}

func (s *Server) grammar(w http.ResponseWriter, r *http.Request) {
	rules := s.scorer.Table().Rules()
	out := make([]map[string]string, len(rules))
	for i, rule := range rules {
		out[i] = map[string]string{
			"template": rule.String(),
			"kind":     rule.Kind.String(),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count": s.scorer.Table().Len(),
		"rules": out,
	})
}
