package scoring

import (
	"log/slog"
	"strings"

	"github.com/MikeSquared-Agency/alfreward/internal/grammar"
	"github.com/MikeSquared-Agency/alfreward/internal/transcript"
)

// Weights are the independent sub-scores summed into a reward.
type Weights struct {
	Format      float64 `json:"format_score"`
	ValidAction float64 `json:"valid_action_score"`
	Correctness float64 `json:"correctness_score"`
}

// DefaultWeights yields rewards in {0, 0.1, 0.2, 0.3, 0.9, 1.0}.
var DefaultWeights = Weights{Format: 0.1, ValidAction: 0.2, Correctness: 0.7}

// Max returns the reward of a perfect answer.
func (w Weights) Max() float64 {
	return w.Format + w.ValidAction + w.Correctness
}

// Result is the breakdown of a single scoring call.
type Result struct {
	Score           float64          `json:"score"`
	Continuation    string           `json:"continuation"`
	HasContinuation bool             `json:"has_continuation"`
	Style           transcript.Style `json:"style,omitempty"`
	FormatOK        bool             `json:"format_ok"`
	Action          string           `json:"action,omitempty"`
	HasAction       bool             `json:"has_action"`
	ValidAction     bool             `json:"valid_action"`
	Rule            string           `json:"rule,omitempty"`
	Correct         bool             `json:"correct"`
}

// Hook observes every scoring call. Implementations must not retain or
// modify the result.
type Hook interface {
	Observe(groundTruth string, r Result)
}

// Scorer grades model output against a ground-truth action. It holds no
// per-call state and is safe for concurrent use if its Hook is.
type Scorer struct {
	table   *grammar.Table
	weights Weights
	hook    Hook
	logger  *slog.Logger
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithTable replaces the ALFWorld action grammar.
func WithTable(t *grammar.Table) Option {
	return func(s *Scorer) { s.table = t }
}

// WithWeights replaces DefaultWeights.
func WithWeights(w Weights) Option {
	return func(s *Scorer) { s.weights = w }
}

// WithHook installs a diagnostic hook.
func WithHook(h Hook) Option {
	return func(s *Scorer) { s.hook = h }
}

// WithLogger sets the logger used for data-quality warnings.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scorer) { s.logger = l }
}

func New(opts ...Option) *Scorer {
	s := &Scorer{
		table:   grammar.ALFWorld,
		weights: DefaultWeights,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Weights returns the scorer's weights.
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Table returns the scorer's action grammar.
func (s *Scorer) Table() *grammar.Table {
	return s.table
}

// Score grades a transcript with the scorer's weights.
func (s *Scorer) Score(text, groundTruth string) Result {
	return s.ScoreWith(text, groundTruth, s.weights)
}

// ScoreWith grades a transcript with explicit weights.
//
// Format and action validity are checked independently; correctness is only
// credited for a valid action.
func (s *Scorer) ScoreWith(text, groundTruth string, w Weights) Result {
	r := s.evaluate(text, groundTruth, w)
	if s.hook != nil {
		s.hook.Observe(groundTruth, r)
	}
	return r
}

func (s *Scorer) evaluate(text, groundTruth string, w Weights) Result {
	var r Result

	r.Continuation, r.Style, r.HasContinuation = transcript.ExtractContinuation(text)
	if !r.HasContinuation {
		return r
	}

	if ValidateFormat(r.Continuation) {
		r.FormatOK = true
		r.Score += w.Format
	}

	r.Action, r.HasAction = ExtractAction(r.Continuation)
	if !r.HasAction {
		return r
	}
	act, ok := s.table.Match(r.Action)
	if !ok {
		return r
	}
	r.ValidAction = true
	r.Rule = act.Rule.String()
	r.Score += w.ValidAction

	if Equal(r.Action, groundTruth) {
		r.Correct = true
		r.Score += w.Correctness
	} else if !s.table.Validate(strings.TrimSpace(groundTruth)) {
		// Unscorable above ValidAction+Format; left as is, surfaced for the data pipeline.
		s.logger.Debug("ground truth outside action grammar", "ground_truth", groundTruth)
	}
	return r
}

// ComputeScore scores a transcript against the ALFWorld grammar.
func ComputeScore(text, groundTruth string, w Weights) float64 {
	return defaultScorer.ScoreWith(text, groundTruth, w).Score
}

var defaultScorer = New()
