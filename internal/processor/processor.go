package processor

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/alfreward/internal/dataset"
	"github.com/MikeSquared-Agency/alfreward/internal/hermes"
	"github.com/MikeSquared-Agency/alfreward/internal/scoring"
	"github.com/MikeSquared-Agency/alfreward/internal/store"
)

// Publisher is the subset of the bus client the processor needs.
type Publisher interface {
	Publish(subject string, data any) error
}

// RewardWriter persists scored rollouts.
type RewardWriter interface {
	WriteReward(ctx context.Context, rec store.RewardRecord) (uuid.UUID, error)
}

// Processor turns rollout events into reward events.
type Processor struct {
	scorer *scoring.Scorer
	store  RewardWriter
	bus    Publisher
	tally  *scoring.Tally
	logger *slog.Logger
}

// New builds a processor. store may be nil, in which case rewards are only
// published.
func New(sc *scoring.Scorer, s RewardWriter, bus Publisher, logger *slog.Logger) *Processor {
	return &Processor{
		scorer: sc,
		store:  s,
		bus:    bus,
		tally:  scoring.NewTally(),
		logger: logger,
	}
}

// HandleRolloutGenerated is the NATS handler for alfworld.rollout.generated.
// Only undecodable events are dropped; every decoded rollout is scored, so an
// empty response still yields a published 0.0 reward.
func (p *Processor) HandleRolloutGenerated(subject string, data []byte) {
	ctx := context.Background()

	var roll dataset.Rollout
	if err := json.Unmarshal(data, &roll); err != nil {
		p.logger.Error("failed to parse rollout event", "error", err)
		return
	}
	p.Process(ctx, roll)
}

// Process scores one rollout, persists it when a store is configured and
// publishes the reward.
func (p *Processor) Process(ctx context.Context, roll dataset.Rollout) hermes.RewardEvent {
	if roll.SampleID == "" {
		roll.SampleID = uuid.NewString()
	}

	res := p.scorer.Score(roll.Transcript(), roll.GroundTruth)
	p.tally.Add(res)

	evt := hermes.RewardEvent{
		SampleID:    roll.SampleID,
		Split:       roll.Split,
		Step:        roll.Step,
		ModelID:     roll.ModelID,
		Score:       res.Score,
		FormatOK:    res.FormatOK,
		ValidAction: res.ValidAction,
		Correct:     res.Correct,
		Action:      res.Action,
	}

	if p.store != nil {
		id, err := p.store.WriteReward(ctx, store.NewRewardRecord(roll, res))
		if err != nil {
			p.logger.Error("failed to store reward", "sample_id", roll.SampleID, "error", err)
		} else {
			evt.RewardID = id.String()
		}
	}

	if p.bus != nil {
		if err := p.bus.Publish(hermes.SubjectRewardScored, evt); err != nil {
			p.logger.Error("failed to publish reward", "sample_id", roll.SampleID, "error", err)
		}
	}

	p.logger.Debug("rollout scored",
		"sample_id", roll.SampleID,
		"split", roll.Split,
		"score", res.Score,
	)
	return evt
}

// Summary reports rewards scored since startup.
func (p *Processor) Summary() scoring.Summary {
	return p.tally.Summary()
}
