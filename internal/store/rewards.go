package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/MikeSquared-Agency/alfreward/internal/dataset"
	"github.com/MikeSquared-Agency/alfreward/internal/scoring"
)

// ErrNotFound is returned by GetReward when no row has the requested id.
var ErrNotFound = errors.New("reward not found")

type RewardRecord struct {
	ID          uuid.UUID `json:"id"`
	SampleID    string    `json:"sample_id"`
	Split       string    `json:"split"`
	Step        int       `json:"step"`
	ModelID     string    `json:"model_id"`
	Score       float64   `json:"score"`
	FormatOK    bool      `json:"format_ok"`
	ValidAction bool      `json:"valid_action"`
	Correct     bool      `json:"correct"`
	Action      string    `json:"action"`
	GroundTruth string    `json:"ground_truth"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewRewardRecord builds the row persisted for a scored rollout.
func NewRewardRecord(r dataset.Rollout, res scoring.Result) RewardRecord {
	return RewardRecord{
		SampleID:    r.SampleID,
		Split:       r.Split,
		Step:        r.Step,
		ModelID:     r.ModelID,
		Score:       res.Score,
		FormatOK:    res.FormatOK,
		ValidAction: res.ValidAction,
		Correct:     res.Correct,
		Action:      res.Action,
		GroundTruth: r.GroundTruth,
	}
}

// WriteReward inserts a reward row and returns its generated id.
func (s *Store) WriteReward(ctx context.Context, rec RewardRecord) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO rewards (id, sample_id, split, step, model_id, score, format_ok, valid_action, correct, action, ground_truth, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())`,
		id, rec.SampleID, rec.Split, rec.Step, rec.ModelID, rec.Score,
		rec.FormatOK, rec.ValidAction, rec.Correct, rec.Action, rec.GroundTruth,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert reward: %w", err)
	}
	return id, nil
}

// GetReward fetches a reward row by id.
func (s *Store) GetReward(ctx context.Context, id uuid.UUID) (*RewardRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, sample_id, split, step, model_id, score, format_ok, valid_action, correct, action, ground_truth, created_at
		FROM rewards
		WHERE id = $1`,
		id,
	)

	var r RewardRecord
	err := row.Scan(&r.ID, &r.SampleID, &r.Split, &r.Step, &r.ModelID, &r.Score,
		&r.FormatOK, &r.ValidAction, &r.Correct, &r.Action, &r.GroundTruth, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get reward %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get reward %s: %w", id, err)
	}
	return &r, nil
}

// RewardStats aggregates rewards, optionally restricted to one split.
// Scores are bucketed to one decimal so float sums group together.
func (s *Store) RewardStats(ctx context.Context, split string) (*scoring.Summary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT round(score::numeric, 1)::float8 AS bucket,
			count(*),
			count(*) FILTER (WHERE format_ok),
			count(*) FILTER (WHERE valid_action),
			count(*) FILTER (WHERE correct),
			sum(score)
		FROM rewards
		WHERE $1 = '' OR split = $1
		GROUP BY bucket
		ORDER BY bucket`,
		split,
	)
	if err != nil {
		return nil, fmt.Errorf("query reward stats: %w", err)
	}
	defer rows.Close()

	sum := &scoring.Summary{Histogram: make(map[string]int)}
	var total float64
	var formatOK, valid, correct int
	for rows.Next() {
		var bucket, bucketSum float64
		var n, f, v, c int
		if err := rows.Scan(&bucket, &n, &f, &v, &c, &bucketSum); err != nil {
			return nil, fmt.Errorf("scan reward stats: %w", err)
		}
		sum.Histogram[scoring.Bucket(bucket)] = n
		sum.Count += n
		total += bucketSum
		formatOK += f
		valid += v
		correct += c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reward stats: %w", err)
	}

	if sum.Count > 0 {
		n := float64(sum.Count)
		sum.Mean = total / n
		sum.FormatRate = float64(formatOK) / n
		sum.ValidRate = float64(valid) / n
		sum.CorrectRate = float64(correct) / n
	}
	return sum, nil
}
