package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/alfreward/internal/scoring"
	"github.com/MikeSquared-Agency/alfreward/internal/store"
)

const (
	maxBatchItems = 4096
	maxScoreBytes = 1 << 20
	maxBatchBytes = 32 << 20
)

// ScoreRequest is the payload for POST /api/v1/score.
type ScoreRequest struct {
	Transcript  string           `json:"transcript"`
	GroundTruth string           `json:"ground_truth"`
	Weights     *scoring.Weights `json:"weights,omitempty"`
}

// BatchRequest is the payload for POST /api/v1/score/batch.
type BatchRequest struct {
	Items []ScoreRequest `json:"items"`
}

// BatchResponse holds results in request order.
type BatchResponse struct {
	Results []scoring.Result `json:"results"`
	Summary scoring.Summary  `json:"summary"`
}

func (s *Server) scoreOne(req ScoreRequest) scoring.Result {
	if req.Weights != nil {
		return s.scorer.ScoreWith(req.Transcript, req.GroundTruth, *req.Weights)
	}
	return s.scorer.Score(req.Transcript, req.GroundTruth)
}

// decodeBody decodes a JSON body capped at limit bytes and writes the error
// response itself when decoding fails.
func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		return false
	}
	writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
	return false
}

// score handles POST /api/v1/score
func (s *Server) score(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if !decodeBody(w, r, maxScoreBytes, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.scoreOne(req))
}

// scoreBatch handles POST /api/v1/score/batch
func (s *Server) scoreBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if !decodeBody(w, r, maxBatchBytes, &req) {
		return
	}
	if len(req.Items) > maxBatchItems {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("batch exceeds %d items", maxBatchItems))
		return
	}

	tally := scoring.NewTally()
	resp := BatchResponse{Results: make([]scoring.Result, len(req.Items))}
	for i, item := range req.Items {
		resp.Results[i] = s.scoreOne(item)
		tally.Add(resp.Results[i])
	}
	resp.Summary = tally.Summary()

	writeJSON(w, http.StatusOK, resp)
}

// rewardStats handles GET /api/v1/rewards/stats
func (s *Server) rewardStats(w http.ResponseWriter, r *http.Request) {
	if s.rewards == nil {
		writeError(w, http.StatusServiceUnavailable, "reward store not configured")
		return
	}

	split := r.URL.Query().Get("split")
	sum, err := s.rewards.RewardStats(r.Context(), split)
	if err != nil {
		slog.Error("reward stats failed", "split", split, "error", err)
		writeError(w, http.StatusInternalServerError, "stats query failed")
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// getReward handles GET /api/v1/rewards/{id}
func (s *Server) getReward(w http.ResponseWriter, r *http.Request) {
	if s.rewards == nil {
		writeError(w, http.StatusServiceUnavailable, "reward store not configured")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid reward id")
		return
	}

	rec, err := s.rewards.GetReward(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "reward not found")
		return
	}
	if err != nil {
		slog.Error("get reward failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "reward query failed")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
