package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MikeSquared-Agency/alfreward/internal/config"
)

func TestRunScore_InputFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no input", nil, "is required"},
		{"records only", []string{"-records", "r.jsonl"}, "must be given together"},
		{"responses only", []string{"-responses", "r.jsonl"}, "must be given together"},
		{"both forms", []string{"-in", "a.jsonl", "-records", "r.jsonl", "-responses", "s.jsonl"}, "cannot be combined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runScore(config.Config{Workers: 1}, tt.args)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadRollouts_Paired(t *testing.T) {
	dir := t.TempDir()
	recPath := filepath.Join(dir, "records.jsonl")
	respPath := filepath.Join(dir, "responses.jsonl")

	rec := `{"prompt":[{"role":"user","content":"Assistant:"}],"reward_model":{"style":"rule","ground_truth":"open door"},"extra_info":{"split":"test","step":3}}`
	resp := `{"sample_id":"s1","response":" <think> x </think> <action> open door </action>","model_id":"qwen"}`
	if err := os.WriteFile(recPath, []byte(rec+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(respPath, []byte(resp+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	rolls, err := loadRollouts("", recPath, respPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rolls) != 1 {
		t.Fatalf("expected 1 rollout, got %d", len(rolls))
	}
	r := rolls[0]
	if r.SampleID != "s1" || r.ModelID != "qwen" || r.GroundTruth != "open door" || r.Split != "test" || r.Step != 3 {
		t.Errorf("unexpected rollout %+v", r)
	}
	if r.Transcript() != "Assistant: <think> x </think> <action> open door </action>" {
		t.Errorf("unexpected transcript %q", r.Transcript())
	}
}

func TestLoadRollouts_MissingFile(t *testing.T) {
	if _, err := loadRollouts(filepath.Join(t.TempDir(), "missing.jsonl"), "", ""); err == nil {
		t.Error("expected error")
	}
}
