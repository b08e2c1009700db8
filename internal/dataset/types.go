package dataset

import (
	"fmt"
	"strings"
)

// Message is one chat message of a prompt.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RewardModel carries the rule-based reward target.
type RewardModel struct {
	Style       string `json:"style"`
	GroundTruth string `json:"ground_truth"`
}

// ExtraInfo is per-record metadata.
type ExtraInfo struct {
	Split string `json:"split"`
	Step  int    `json:"step"`
}

// Record is a training or test example as written by the data-preparation job.
type Record struct {
	DataSource  string      `json:"data_source"`
	Prompt      []Message   `json:"prompt"`
	Ability     string      `json:"ability"`
	RewardModel RewardModel `json:"reward_model"`
	ExtraInfo   ExtraInfo   `json:"extra_info"`
}

// PromptText joins the prompt message contents in order.
func (r Record) PromptText() string {
	var sb strings.Builder
	for _, m := range r.Prompt {
		sb.WriteString(m.Content)
	}
	return sb.String()
}

func (r Record) GroundTruth() string { return r.RewardModel.GroundTruth }
func (r Record) Split() string       { return r.ExtraInfo.Split }
func (r Record) Step() int           { return r.ExtraInfo.Step }

// Rollout is one generated sample awaiting a reward.
type Rollout struct {
	SampleID    string `json:"sample_id"`
	Prompt      string `json:"prompt"`
	Response    string `json:"response"`
	GroundTruth string `json:"ground_truth"`
	Split       string `json:"split,omitempty"`
	Step        int    `json:"step,omitempty"`
	ModelID     string `json:"model_id,omitempty"`
}

// Transcript is the text the scorer sees: the prompt followed by the
// model's continuation.
func (r Rollout) Transcript() string {
	return r.Prompt + r.Response
}

// FromRecord pairs a dataset record with a generated response.
func FromRecord(rec Record, sampleID, response string) Rollout {
	return Rollout{
		SampleID:    sampleID,
		Prompt:      rec.PromptText(),
		Response:    response,
		GroundTruth: rec.GroundTruth(),
		Split:       rec.Split(),
		Step:        rec.Step(),
	}
}

// Response is one generated continuation for a dataset record, as written by
// the rollout job alongside the records file.
type Response struct {
	SampleID string `json:"sample_id"`
	Response string `json:"response"`
	ModelID  string `json:"model_id,omitempty"`
}

// Pair joins records and responses line by line.
func Pair(recs []Record, resps []Response) ([]Rollout, error) {
	if len(recs) != len(resps) {
		return nil, fmt.Errorf("%d records but %d responses", len(recs), len(resps))
	}
	out := make([]Rollout, len(recs))
	for i, rec := range recs {
		out[i] = FromRecord(rec, resps[i].SampleID, resps[i].Response)
		out[i].ModelID = resps[i].ModelID
	}
	return out, nil
}
