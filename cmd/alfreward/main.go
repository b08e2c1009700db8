package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MikeSquared-Agency/alfreward/internal/api"
	"github.com/MikeSquared-Agency/alfreward/internal/batch"
	"github.com/MikeSquared-Agency/alfreward/internal/config"
	"github.com/MikeSquared-Agency/alfreward/internal/dataset"
	"github.com/MikeSquared-Agency/alfreward/internal/hermes"
	"github.com/MikeSquared-Agency/alfreward/internal/processor"
	"github.com/MikeSquared-Agency/alfreward/internal/sampling"
	"github.com/MikeSquared-Agency/alfreward/internal/scoring"
	"github.com/MikeSquared-Agency/alfreward/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	if len(os.Args) > 1 && os.Args[1] == "score" {
		if err := runScore(cfg, os.Args[2:]); err != nil {
			slog.Error("batch scoring failed", "error", err)
			os.Exit(1)
		}
		return
	}

	serve(cfg)
}

func newScorer(cfg config.Config) *scoring.Scorer {
	return scoring.New(
		scoring.WithWeights(scoring.Weights{
			Format:      cfg.FormatScore,
			ValidAction: cfg.ValidActionScore,
			Correctness: cfg.CorrectnessScore,
		}),
		scoring.WithHook(sampling.NewLogSampler(cfg.SampleRate, slog.Default())),
		scoring.WithLogger(slog.Default()),
	)
}

func serve(cfg config.Config) {
	slog.Info("alfreward starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scorer := newScorer(cfg)

	// Database (optional — without it rewards are only published)
	var rewards processor.RewardWriter
	var stats api.RewardReader
	if cfg.DatabaseURL != "" {
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			slog.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		rewards, stats = db, db
		slog.Info("database connected")
	} else {
		slog.Warn("DATABASE_URL not set — rewards will not be persisted")
	}

	// NATS/Hermes
	hermesClient, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
	if err != nil {
		slog.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer hermesClient.Close()
	slog.Info("NATS connected", "url", cfg.NatsURL)

	proc := processor.New(scorer, rewards, hermesClient, slog.Default())

	if err := hermesClient.QueueSubscribe(hermes.SubjectRolloutGenerated, cfg.NatsQueue, proc.HandleRolloutGenerated); err != nil {
		slog.Error("failed to subscribe to rollout events", "error", err)
		os.Exit(1)
	}

	// HTTP API
	srv := api.NewServer(cfg.Port, cfg.APIToken, scorer, stats, cfg.SampleRate)
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	if err := hermesClient.Publish(hermes.SubjectRegistered, map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"port":      cfg.Port,
		"weights":   scorer.Weights(),
	}); err != nil {
		slog.Warn("failed to publish registration", "error", err)
	}

	slog.Info("alfreward ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	if err := hermesClient.Drain(); err != nil {
		slog.Warn("nats drain failed", "error", err)
	}
	sum := proc.Summary()
	slog.Info("alfreward stopped", "scored", sum.Count, "mean", sum.Mean)
}

// runScore implements `alfreward score -in rollouts.jsonl [-out results.jsonl]`
// and `alfreward score -records train.jsonl -responses responses.jsonl`.
func runScore(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("score", flag.ContinueOnError)
	in := fs.String("in", "", "rollout JSONL file")
	records := fs.String("records", "", "training record JSONL file, paired line by line with -responses")
	responses := fs.String("responses", "", "model response JSONL file")
	out := fs.String("out", "", "results JSONL file (default stdout)")
	workers := fs.Int("workers", cfg.Workers, "concurrent scorers")
	persist := fs.Bool("persist", false, "write rewards to DATABASE_URL")
	if err := fs.Parse(args); err != nil {
		return err
	}
	paired := *records != "" || *responses != ""
	switch {
	case *in != "" && paired:
		return fmt.Errorf("-in cannot be combined with -records/-responses")
	case paired && (*records == "" || *responses == ""):
		return fmt.Errorf("-records and -responses must be given together")
	case *in == "" && !paired:
		return fmt.Errorf("-in or -records/-responses is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rolls, err := loadRollouts(*in, *records, *responses)
	if err != nil {
		return err
	}

	var rewards processor.RewardWriter
	if *persist {
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("-persist requires DATABASE_URL")
		}
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		rewards = db
	}

	runner := batch.NewRunner(batch.Config{Workers: *workers, Persist: *persist}, newScorer(cfg), rewards, slog.Default())
	results, sum, err := runner.Score(ctx, rolls)
	if err != nil {
		return err
	}

	w := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	if err := batch.WriteResults(w, results); err != nil {
		return err
	}

	for _, b := range sum.Buckets() {
		slog.Info("reward bucket", "score", b, "count", sum.Histogram[b])
	}
	return nil
}

func loadRollouts(in, records, responses string) ([]dataset.Rollout, error) {
	if in != "" {
		rolls, err := dataset.ReadRolloutsFile(in)
		if err != nil {
			return nil, fmt.Errorf("read rollouts: %w", err)
		}
		return rolls, nil
	}

	recs, err := dataset.ReadRecordsFile(records)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	resps, err := dataset.ReadResponsesFile(responses)
	if err != nil {
		return nil, fmt.Errorf("read responses: %w", err)
	}
	return dataset.Pair(recs, resps)
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
