package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the tutoring middleware service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	AllowAnyOrigin   bool

	MemoryCapacity      int
	MemoryRecentWindow  int
	RetrievalMaxResults int
	PerfWindowSamples   int

	GeneratorMode    string
	GeneratorHTTPURL string
	OpenAIModel      string

	DatabaseURL string

	FeatureMemoryContext    bool
	FeatureStyleAdaptation  bool
	FeatureMemoryClaimCheck bool
	FeatureMathCheck        bool
	FeaturePIIRedaction     bool
	FeatureProfileSync      bool
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:            envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:    envOrDefault("APP_METRICS_NAMESPACE", "socrates"),
		AllowAnyOrigin:      false,
		MemoryCapacity:      100,
		MemoryRecentWindow:  20,
		RetrievalMaxResults: 5,
		PerfWindowSamples:   256,
		GeneratorMode:       envOrDefault("GENERATOR_MODE", "auto"),
		GeneratorHTTPURL:    trimSpaceEnv("GENERATOR_HTTP_URL"),
		OpenAIModel:         trimSpaceEnv("OPENAI_MODEL"),
		DatabaseURL:         trimSpaceEnv("DATABASE_URL"),
		ShutdownTimeout:     15 * time.Second,
		// Validation defaults on; profile sync stays opt-in.
		FeatureMemoryContext:    true,
		FeatureStyleAdaptation:  true,
		FeatureMemoryClaimCheck: true,
		FeatureMathCheck:        true,
		FeaturePIIRedaction:     true,
		FeatureProfileSync:      false,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.MemoryCapacity, err = intFromEnv("MEMORY_CAPACITY", cfg.MemoryCapacity)
	if err != nil {
		return Config{}, err
	}
	cfg.MemoryRecentWindow, err = intFromEnv("MEMORY_RECENT_WINDOW", cfg.MemoryRecentWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.RetrievalMaxResults, err = intFromEnv("RETRIEVAL_MAX_RESULTS", cfg.RetrievalMaxResults)
	if err != nil {
		return Config{}, err
	}
	cfg.PerfWindowSamples, err = intFromEnv("PERF_WINDOW_SAMPLES", cfg.PerfWindowSamples)
	if err != nil {
		return Config{}, err
	}

	featureFlags := []struct {
		key    string
		target *bool
	}{
		{"FEATURE_MEMORY_CONTEXT", &cfg.FeatureMemoryContext},
		{"FEATURE_STYLE_ADAPTATION", &cfg.FeatureStyleAdaptation},
		{"FEATURE_MEMORY_CLAIM_CHECK", &cfg.FeatureMemoryClaimCheck},
		{"FEATURE_MATH_CHECK", &cfg.FeatureMathCheck},
		{"FEATURE_PII_REDACTION", &cfg.FeaturePIIRedaction},
		{"FEATURE_PROFILE_SYNC", &cfg.FeatureProfileSync},
	}
	for _, flag := range featureFlags {
		*flag.target, err = boolFromEnv(flag.key, *flag.target)
		if err != nil {
			return Config{}, err
		}
	}

	if cfg.MemoryCapacity <= 0 {
		return Config{}, fmt.Errorf("MEMORY_CAPACITY must be positive")
	}
	if cfg.MemoryRecentWindow <= 0 || cfg.MemoryRecentWindow > cfg.MemoryCapacity {
		return Config{}, fmt.Errorf("MEMORY_RECENT_WINDOW must be in 1..MEMORY_CAPACITY")
	}
	if cfg.RetrievalMaxResults <= 0 {
		return Config{}, fmt.Errorf("RETRIEVAL_MAX_RESULTS must be positive")
	}
	if cfg.FeatureProfileSync && cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("FEATURE_PROFILE_SYNC requires DATABASE_URL")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimSpaceEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimSpaceEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimSpaceEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(trimSpaceEnv(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
