package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/alfreward/internal/dataset"
	"github.com/MikeSquared-Agency/alfreward/internal/processor"
	"github.com/MikeSquared-Agency/alfreward/internal/scoring"
	"github.com/MikeSquared-Agency/alfreward/internal/store"
)

// Config holds the batch scoring configuration.
type Config struct {
	Workers int
	Persist bool
}

// Scored pairs a rollout with its reward.
type Scored struct {
	SampleID    string         `json:"sample_id"`
	Split       string         `json:"split,omitempty"`
	Step        int            `json:"step,omitempty"`
	GroundTruth string         `json:"ground_truth"`
	Result      scoring.Result `json:"result"`

	RewardID     string `json:"reward_id,omitempty"`
	PersistError string `json:"persist_error,omitempty"`
}

// Runner scores rollout files.
type Runner struct {
	cfg    Config
	scorer *scoring.Scorer
	store  processor.RewardWriter
	logger *slog.Logger
}

// NewRunner creates a batch runner. s may be nil unless cfg.Persist is set.
func NewRunner(cfg Config, sc *scoring.Scorer, s processor.RewardWriter, logger *slog.Logger) *Runner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Runner{cfg: cfg, scorer: sc, store: s, logger: logger}
}

// Score grades every rollout with a bounded worker pool. Results keep input
// order. A failed write is recorded on that rollout's result and does not stop
// the batch; only context cancellation aborts it.
func (r *Runner) Score(ctx context.Context, rolls []dataset.Rollout) ([]Scored, scoring.Summary, error) {
	if r.cfg.Persist && r.store == nil {
		return nil, scoring.Summary{}, fmt.Errorf("persist requested without a store")
	}

	out := make([]Scored, len(rolls))
	tally := scoring.NewTally()
	var persistFailures atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)

	for i, roll := range rolls {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			res := r.scorer.Score(roll.Transcript(), roll.GroundTruth)
			tally.Add(res)
			s := Scored{
				SampleID:    roll.SampleID,
				Split:       roll.Split,
				Step:        roll.Step,
				GroundTruth: roll.GroundTruth,
				Result:      res,
			}

			if r.cfg.Persist {
				id, err := r.store.WriteReward(ctx, store.NewRewardRecord(roll, res))
				if err != nil {
					if ctxErr := ctx.Err(); ctxErr != nil {
						return ctxErr
					}
					persistFailures.Add(1)
					s.PersistError = err.Error()
					r.logger.Error("failed to store reward", "index", i, "sample_id", roll.SampleID, "error", err)
				} else {
					s.RewardID = id.String()
				}
			}
			out[i] = s
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, scoring.Summary{}, err
	}

	sum := tally.Summary()
	r.logger.Info("batch scored",
		"rollouts", sum.Count,
		"mean", sum.Mean,
		"correct_rate", sum.CorrectRate,
		"persist_failures", persistFailures.Load(),
	)
	return out, sum, nil
}

// WriteResults writes one JSON object per line.
func WriteResults(w io.Writer, results []Scored) error {
	enc := json.NewEncoder(w)
	for _, s := range results {
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("encode result %s: %w", s.SampleID, err)
		}
	}
	return nil
}
