package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/alfreward/internal/scoring"
	"github.com/MikeSquared-Agency/alfreward/internal/store"
)

type fakeRewards struct {
	split string
	sum   *scoring.Summary
	recs  map[uuid.UUID]*store.RewardRecord
	err   error
}

func (f *fakeRewards) RewardStats(_ context.Context, split string) (*scoring.Summary, error) {
	f.split = split
	return f.sum, f.err
}

func (f *fakeRewards) GetReward(_ context.Context, id uuid.UUID) (*store.RewardRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	rec, ok := f.recs[id]
	if !ok {
		return nil, fmt.Errorf("get reward %s: %w", id, store.ErrNotFound)
	}
	return rec, nil
}

func newTestServer(token string, rewards RewardReader) *Server {
	return NewServer(8760, token, scoring.New(), rewards, 0.5)
}

func do(t *testing.T, srv *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	w := do(t, newTestServer("", nil), "GET", "/health", "", nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	w := do(t, newTestServer("", nil), "GET", "/api/v1/alfreward/status", "", nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body struct {
		Agent      string          `json:"agent"`
		Weights    scoring.Weights `json:"weights"`
		MaxScore   float64         `json:"max_score"`
		SampleRate float64         `json:"sample_rate"`
		Store      bool            `json:"store"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Agent != "alfreward" {
		t.Errorf("expected agent alfreward, got %q", body.Agent)
	}
	if body.Weights != scoring.DefaultWeights {
		t.Errorf("unexpected weights %+v", body.Weights)
	}
	if math.Abs(body.MaxScore-1.0) > 0.001 {
		t.Errorf("expected max score 1.0, got %f", body.MaxScore)
	}
	if body.SampleRate != 0.5 || body.Store {
		t.Errorf("unexpected status %+v", body)
	}
}

func TestNotFoundEndpoint(t *testing.T) {
	w := do(t, newTestServer("", nil), "GET", "/nonexistent", "", nil)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestGrammarEndpoint(t *testing.T) {
	w := do(t, newTestServer("", nil), "GET", "/api/v1/grammar", "", nil)

	var body struct {
		Count int                 `json:"count"`
		Rules []map[string]string `json:"rules"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Count != 11 {
		t.Errorf("expected count 11, got %d", body.Count)
	}
	if len(body.Rules) != 11 {
		t.Fatalf("expected 11 rules, got %d", len(body.Rules))
	}
	if body.Rules[0]["template"] != "go to {recep}" || body.Rules[10]["kind"] != "nullary" {
		t.Errorf("unexpected rules %v", body.Rules)
	}
}

func TestScoreEndpoint(t *testing.T) {
	tests := []struct {
		name string
		body string
		want float64
	}{
		{"correct", `{"transcript":"Assistant: <think> ok </think> <action> take key from table </action>","ground_truth":"take key from table"}`, 1.0},
		{"wrong action", `{"transcript":"Assistant: <think> ok </think> <action> open window </action>","ground_truth":"open door"}`, 0.3},
		{"no marker", `{"transcript":"hello","ground_truth":"open door"}`, 0.0},
		{"custom weights", `{"transcript":"Assistant: <action> open door </action>","ground_truth":"open door","weights":{"format_score":1,"valid_action_score":2,"correctness_score":3}}`, 5.0},
	}

	srv := newTestServer("", nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv, "POST", "/api/v1/score", tt.body, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
			}
			var res scoring.Result
			if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if math.Abs(res.Score-tt.want) > 0.001 {
				t.Errorf("expected %f, got %f", tt.want, res.Score)
			}
		})
	}
}

func TestScoreEndpoint_InvalidJSON(t *testing.T) {
	w := do(t, newTestServer("", nil), "POST", "/api/v1/score", "{bad", nil)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	var body map[string]string
	json.NewDecoder(w.Body).Decode(&body)
	if !strings.Contains(body["error"], "invalid JSON") {
		t.Errorf("unexpected error body %v", body)
	}
}

func TestScoreBatchEndpoint(t *testing.T) {
	body := `{"items":[
		{"transcript":"Assistant: <think> a </think> <action> open door </action>","ground_truth":"open door"},
		{"transcript":"Assistant: <action> open window </action>","ground_truth":"open door"},
		{"transcript":"nothing","ground_truth":"open door"}
	]}`
	w := do(t, newTestServer("", nil), "POST", "/api/v1/score/batch", body, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp BatchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	want := []float64{1.0, 0.2, 0.0}
	if len(resp.Results) != len(want) {
		t.Fatalf("expected %d results, got %d", len(want), len(resp.Results))
	}
	for i, v := range want {
		if math.Abs(resp.Results[i].Score-v) > 0.001 {
			t.Errorf("result %d = %f, want %f", i, resp.Results[i].Score, v)
		}
	}
	if resp.Summary.Count != 3 || resp.Summary.Histogram["0.2"] != 1 {
		t.Errorf("unexpected summary %+v", resp.Summary)
	}
}

func TestRewardStatsEndpoint(t *testing.T) {
	stats := &fakeRewards{sum: &scoring.Summary{Count: 2, Mean: 0.65, Histogram: map[string]int{"1.0": 1, "0.3": 1}}}
	w := do(t, newTestServer("", stats), "GET", "/api/v1/rewards/stats?split=test", "", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if stats.split != "test" {
		t.Errorf("expected split test, got %q", stats.split)
	}
	var sum scoring.Summary
	if err := json.NewDecoder(w.Body).Decode(&sum); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if sum.Count != 2 || sum.Histogram["1.0"] != 1 {
		t.Errorf("unexpected summary %+v", sum)
	}
}

func TestRewardStatsEndpoint_NoStore(t *testing.T) {
	w := do(t, newTestServer("", nil), "GET", "/api/v1/rewards/stats", "", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}

func TestRewardStatsEndpoint_StoreError(t *testing.T) {
	w := do(t, newTestServer("", &fakeRewards{err: errors.New("boom")}), "GET", "/api/v1/rewards/stats", "", nil)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

func TestGetRewardEndpoint(t *testing.T) {
	id := uuid.New()
	rewards := &fakeRewards{recs: map[uuid.UUID]*store.RewardRecord{
		id: {ID: id, SampleID: "s1", Score: 0.3, Action: "open window"},
	}}
	srv := newTestServer("", rewards)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"found", "/api/v1/rewards/" + id.String(), http.StatusOK},
		{"unknown id", "/api/v1/rewards/" + uuid.NewString(), http.StatusNotFound},
		{"malformed id", "/api/v1/rewards/not-a-uuid", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv, "GET", tt.path, "", nil)
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}

	w := do(t, srv, "GET", "/api/v1/rewards/"+id.String(), "", nil)
	var rec store.RewardRecord
	if err := json.NewDecoder(w.Body).Decode(&rec); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if rec.ID != id || rec.SampleID != "s1" || rec.Action != "open window" {
		t.Errorf("unexpected record %+v", rec)
	}
}

func TestGetRewardEndpoint_NoStore(t *testing.T) {
	w := do(t, newTestServer("", nil), "GET", "/api/v1/rewards/"+uuid.NewString(), "", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}

func TestGetRewardEndpoint_StoreError(t *testing.T) {
	w := do(t, newTestServer("", &fakeRewards{err: errors.New("boom")}), "GET", "/api/v1/rewards/"+uuid.NewString(), "", nil)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

func TestScoreEndpoint_BodyTooLarge(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		limit int
	}{
		{"single", "/api/v1/score", maxScoreBytes},
		{"batch", "/api/v1/score/batch", maxBatchBytes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `{"transcript":"` + strings.Repeat("a", tt.limit) + `"}`
			w := do(t, newTestServer("", nil), "POST", tt.path, body, nil)
			if w.Code != http.StatusRequestEntityTooLarge {
				t.Errorf("expected 413, got %d", w.Code)
			}
		})
	}
}

func TestBearerAuth(t *testing.T) {
	srv := newTestServer("secret", nil)

	tests := []struct {
		name    string
		path    string
		headers map[string]string
		want    int
	}{
		{"health is public", "/health", nil, http.StatusOK},
		{"missing token", "/api/v1/grammar", nil, http.StatusUnauthorized},
		{"wrong token", "/api/v1/grammar", map[string]string{"Authorization": "Bearer nope"}, http.StatusUnauthorized},
		{"wrong scheme", "/api/v1/grammar", map[string]string{"Authorization": "Basic secret"}, http.StatusUnauthorized},
		{"valid token", "/api/v1/grammar", map[string]string{"Authorization": "Bearer secret"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv, "GET", tt.path, "", tt.headers)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}
