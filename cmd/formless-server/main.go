// Package main runs the formless backend: the memory store and the matching
// engine behind one HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/entrhq/formless/pkg/config"
	"github.com/entrhq/formless/pkg/llm/tokenizer"
	"github.com/entrhq/formless/pkg/matching"
	"github.com/entrhq/formless/pkg/memory"
	"github.com/entrhq/formless/pkg/server"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigFile string
	Addr       string
	MemoryDir  string
	APIKey     string

	LLMModel   string
	LLMBaseURL string
	LLMAPIKey  string

	ShowVersion bool
}

func main() {
	cfg := parseFlags()
	if cfg.ShowVersion {
		fmt.Printf("Formless Server v%s\n", server.Version)
		return
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	if err := run(cfg, log); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.ConfigFile, "config", "", "Path to configuration file (.json, .yaml or .yml)")
	flag.StringVar(&cfg.Addr, "addr", "", "Listen address (default from config, :8000)")
	flag.StringVar(&cfg.MemoryDir, "memory-dir", "", "Directory holding memory files (default ~/.formless/memories)")
	flag.StringVar(&cfg.APIKey, "api-key", os.Getenv("FORMLESS_API_KEY"), "Bearer key required on /api routes")
	flag.StringVar(&cfg.LLMModel, "model", "", "LLM model for prompt memories")
	flag.StringVar(&cfg.LLMBaseURL, "base-url", "", "OpenAI-compatible API base URL")
	flag.StringVar(&cfg.LLMAPIKey, "llm-api-key", "", "LLM API key (default OPENAI_API_KEY)")
	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Formless Server - memory store and matching API\n\n")
		fmt.Fprintf(os.Stderr, "Usage: formless-server [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()
	return cfg
}

func run(cfg *CLIConfig, log *slog.Logger) error {
	if err := config.Initialize(cfg.ConfigFile); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	addr, memoryDir, apiKey, budget := config.GetServer().Settings()
	if cfg.Addr != "" {
		addr = cfg.Addr
	}
	if cfg.MemoryDir != "" {
		memoryDir = cfg.MemoryDir
	}
	if cfg.APIKey != "" {
		apiKey = cfg.APIKey
	}

	store, err := memory.NewFileStore(memoryDir)
	if err != nil {
		return err
	}

	opts := []matching.EngineOption{
		matching.WithContextBudget(budget),
		matching.WithLogger(log),
	}

	provider, err := config.BuildProvider(cfg.LLMModel, cfg.LLMBaseURL, cfg.LLMAPIKey)
	switch {
	case errors.Is(err, config.ErrNoAPIKey):
		log.Warn("no LLM API key configured; prompt memories and fuzzy label mapping are disabled")
	case err != nil:
		return fmt.Errorf("failed to create LLM provider: %w", err)
	default:
		opts = append(opts, matching.WithProvider(provider))
		log.Info("llm enabled", "model", provider.GetModel(), "base_url", provider.GetBaseURL())
	}

	if tok, err := tokenizer.New(); err != nil {
		log.Warn("tokenizer unavailable, trimming context by characters", "error", err)
	} else {
		opts = append(opts, matching.WithTokenizer(tok))
	}

	srv := server.New(store, matching.NewEngine(store, opts...), log, server.Config{APIKey: apiKey})

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown failed", "error", err)
		}
	}()

	log.Info("starting formless-server", "addr", addr, "memory_dir", store.Dir(), "auth", apiKey != "")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
