package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fmattioli/socrates/internal/config"
	"github.com/fmattioli/socrates/internal/generator"
	"github.com/fmattioli/socrates/internal/httpapi"
	"github.com/fmattioli/socrates/internal/middleware"
	"github.com/fmattioli/socrates/internal/observability"
	"github.com/fmattioli/socrates/internal/policy"
	"github.com/fmattioli/socrates/internal/style"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)
	window := observability.NewStageWindow(cfg.PerfWindowSamples)

	ctx := context.Background()
	profiles, err := style.NewProfileStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("profile store init failed: %v", err)
	}
	defer profiles.Close()

	gen, err := generator.NewAdapter(generator.Config{
		Mode:        cfg.GeneratorMode,
		HTTPURL:     cfg.GeneratorHTTPURL,
		OpenAIModel: cfg.OpenAIModel,
	})
	if err != nil {
		log.Fatalf("generator adapter init failed: %v", err)
	}
	log.Printf("generator mode: %s", cfg.GeneratorMode)

	gate := policy.NewStaticGate(map[policy.Feature]bool{
		policy.FeatureMemoryContext:    cfg.FeatureMemoryContext,
		policy.FeatureStyleAdaptation:  cfg.FeatureStyleAdaptation,
		policy.FeatureMemoryClaimCheck: cfg.FeatureMemoryClaimCheck,
		policy.FeatureMathCheck:        cfg.FeatureMathCheck,
		policy.FeaturePIIRedaction:     cfg.FeaturePIIRedaction,
		policy.FeatureProfileSync:      cfg.FeatureProfileSync,
	})

	orchestrator := middleware.New(middleware.Options{
		Capacity:   cfg.MemoryCapacity,
		WindowSize: cfg.MemoryRecentWindow,
		MaxResults: cfg.RetrievalMaxResults,
		Gate:       gate,
		Sink:       observability.NewMetricsSink(metrics, window),
		Metrics:    metrics,
		Window:     window,
		Profiles:   profiles,
	})

	api := httpapi.New(cfg, orchestrator, gen, metrics, window)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
