package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q, want :8080", cfg.BindAddr)
	}
	if cfg.MemoryCapacity != 100 || cfg.MemoryRecentWindow != 20 {
		t.Fatalf("memory defaults = %d/%d, want 100/20", cfg.MemoryCapacity, cfg.MemoryRecentWindow)
	}
	if cfg.GeneratorMode != "auto" {
		t.Fatalf("GeneratorMode = %q, want auto", cfg.GeneratorMode)
	}
	if !cfg.FeatureMemoryClaimCheck || !cfg.FeatureMathCheck {
		t.Fatalf("validation features should default on")
	}
	if cfg.FeatureProfileSync {
		t.Fatalf("profile sync should default off")
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_BIND_ADDR", ":9191")
	t.Setenv("APP_SHUTDOWN_TIMEOUT", "5s")
	t.Setenv("MEMORY_CAPACITY", "50")
	t.Setenv("MEMORY_RECENT_WINDOW", "10")
	t.Setenv("FEATURE_MATH_CHECK", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":9191" {
		t.Fatalf("BindAddr = %q, want :9191", cfg.BindAddr)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Fatalf("ShutdownTimeout = %v, want 5s", cfg.ShutdownTimeout)
	}
	if cfg.MemoryCapacity != 50 || cfg.MemoryRecentWindow != 10 {
		t.Fatalf("memory overrides = %d/%d, want 50/10", cfg.MemoryCapacity, cfg.MemoryRecentWindow)
	}
	if cfg.FeatureMathCheck {
		t.Fatalf("FEATURE_MATH_CHECK=false should disable math check")
	}
}

func TestLoadRejectsInvalidWindow(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("MEMORY_CAPACITY", "10")
	t.Setenv("MEMORY_RECENT_WINDOW", "20")

	if _, err := Load(); err == nil {
		t.Fatalf("window larger than capacity should fail validation")
	}
}

func TestLoadRejectsProfileSyncWithoutDatabase(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("FEATURE_PROFILE_SYNC", "true")

	if _, err := Load(); err == nil {
		t.Fatalf("profile sync without DATABASE_URL should fail validation")
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"MEMORY_CAPACITY",
		"MEMORY_RECENT_WINDOW",
		"RETRIEVAL_MAX_RESULTS",
		"PERF_WINDOW_SAMPLES",
		"GENERATOR_MODE",
		"GENERATOR_HTTP_URL",
		"OPENAI_MODEL",
		"DATABASE_URL",
		"FEATURE_MEMORY_CONTEXT",
		"FEATURE_STYLE_ADAPTATION",
		"FEATURE_MEMORY_CLAIM_CHECK",
		"FEATURE_MATH_CHECK",
		"FEATURE_PII_REDACTION",
		"FEATURE_PROFILE_SYNC",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
