package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port             int
	NatsURL          string
	NatsToken        string
	NatsQueue        string
	DatabaseURL      string
	LogLevel         string
	APIToken         string
	FormatScore      float64
	ValidActionScore float64
	CorrectnessScore float64
	SampleRate       float64
	Workers          int
}

func Load() Config {
	return Config{
		Port:             envInt("ALFREWARD_PORT", 8760),
		NatsURL:          envStr("NATS_URL", "nats://hermes:4222"),
		NatsToken:        envStr("NATS_TOKEN", ""),
		NatsQueue:        envStr("ALFREWARD_NATS_QUEUE", "alfreward"),
		DatabaseURL:      envStr("DATABASE_URL", ""),
		LogLevel:         envStr("LOG_LEVEL", "info"),
		APIToken:         envStr("ALFREWARD_API_TOKEN", ""),
		FormatScore:      envFloat("ALFREWARD_FORMAT_SCORE", 0.1),
		ValidActionScore: envFloat("ALFREWARD_VALID_ACTION_SCORE", 0.2),
		CorrectnessScore: envFloat("ALFREWARD_CORRECTNESS_SCORE", 0.7),
		SampleRate:       envFloat("ALFREWARD_SAMPLE_RATE", 1.0/64),
		Workers:          envInt("ALFREWARD_WORKERS", 8),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
