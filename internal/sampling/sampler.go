// Package sampling logs a random fraction of scoring calls so reward quality
// can be eyeballed during training without flooding the logs.
package sampling

import (
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/MikeSquared-Agency/alfreward/internal/scoring"
)

// DefaultRate samples one call in 64.
const DefaultRate = 1.0 / 64

// LogSampler is a scoring.Hook that logs sampled results at info level.
type LogSampler struct {
	rate   float64
	logger *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewLogSampler returns a sampler seeded from the runtime's random source.
// rate is clamped to [0, 1].
func NewLogSampler(rate float64, logger *slog.Logger) *LogSampler {
	return NewLogSamplerWithRand(rate, logger, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
}

// NewLogSamplerWithRand uses the given random source, for deterministic tests.
func NewLogSamplerWithRand(rate float64, logger *slog.Logger, rng *rand.Rand) *LogSampler {
	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}
	return &LogSampler{rate: rate, logger: logger, rng: rng}
}

// Rate returns the sampling probability.
func (s *LogSampler) Rate() float64 {
	return s.rate
}

func (s *LogSampler) sample() bool {
	if s.rate <= 0 {
		return false
	}
	if s.rate >= 1 {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64() < s.rate
}

// Observe implements scoring.Hook.
func (s *LogSampler) Observe(groundTruth string, r scoring.Result) {
	if !s.sample() {
		return
	}

	attrs := []any{
		"continuation", r.Continuation,
		"style", string(r.Style),
		"ground_truth", groundTruth,
		"score", r.Score,
	}
	if r.HasAction {
		attrs = append(attrs, "action", r.Action)
	}
	s.logger.Info("sampled reward: "+Outcome(r), attrs...)
}

// Outcome describes why a result scored what it did.
func Outcome(r scoring.Result) string {
	switch {
	case !r.HasContinuation:
		return "no solution found"
	case !r.ValidAction:
		return "no valid action found"
	case !r.Correct:
		return "wrong action found"
	default:
		return "correct action"
	}
}
