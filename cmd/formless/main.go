// Package main is the formless command line: it opens a page in a browser
// with fill affordances next to every field, fills a whole page in one
// pass, or scans a saved page offline.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/entrhq/formless/pkg/config"
	"github.com/entrhq/formless/pkg/logging"
	"github.com/entrhq/formless/pkg/matching"
	"github.com/entrhq/formless/pkg/memory"
	"github.com/entrhq/formless/pkg/ui"
)

const version = "0.1.0"

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigFile  string
	MatchingURL string
	APIKey      string
	Timeout     time.Duration

	URL      string
	Batch    bool
	Headless bool

	ScanFile string
	PageURL  string
	Match    bool
	Prompt   string
	Context  string
	Copy     bool

	ShowVersion bool
}

func main() {
	cfg := parseFlags()

	if cfg.ShowVersion {
		fmt.Printf("Formless v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		cancel()
	}()

	if err := run(ctx, cfg); err != nil && !errors.Is(err, ui.ErrCancelled) && !errors.Is(err, context.Canceled) {
		cancel()
		log.Printf("formless: %v", err)
		os.Exit(1)
	}
	cancel()
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.ConfigFile, "config", "", "Path to configuration file (.json, .yaml or .yml; default ~/.formless/config.json)")
	flag.StringVar(&cfg.MatchingURL, "matching-url", "", "Base URL of the matching and memory service")
	flag.StringVar(&cfg.APIKey, "api-key", os.Getenv("FORMLESS_API_KEY"), "Bearer key for the matching service")
	flag.DurationVar(&cfg.Timeout, "timeout", 0, "Matching request timeout")
	flag.BoolVar(&cfg.Batch, "batch", false, "Fill every field of the page in one pass instead of showing affordances")
	flag.BoolVar(&cfg.Headless, "headless", false, "Run the browser without a window (only useful with -batch)")
	flag.StringVar(&cfg.ScanFile, "scan", "", "Scan a saved HTML page instead of opening a browser")
	flag.StringVar(&cfg.PageURL, "url", "about:blank", "Origin URL of the page given to -scan")
	flag.BoolVar(&cfg.Match, "match", false, "With -scan, send the discovered labels to the matching service")
	flag.StringVar(&cfg.Prompt, "prompt", "", "With -scan -match, instruction applied to every label")
	flag.StringVar(&cfg.Context, "context", "", "With -scan -match, page context for prompt memories")
	flag.BoolVar(&cfg.Copy, "copy", false, "With -scan -match, copy the matched values to the clipboard")
	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Formless - fill web forms from your saved memories\n\n")
		fmt.Fprintf(os.Stderr, "Usage: formless [options] <url>\n")
		fmt.Fprintf(os.Stderr, "       formless -scan page.html [-url origin] [-match]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Open a page with fill buttons next to each field\n")
		fmt.Fprintf(os.Stderr, "  formless https://example.com/signup\n\n")
		fmt.Fprintf(os.Stderr, "  # Fill the whole page at once\n")
		fmt.Fprintf(os.Stderr, "  formless -batch https://docs.google.com/forms/d/e/.../viewform\n\n")
		fmt.Fprintf(os.Stderr, "  # List the fields of a saved page and preview the matches\n")
		fmt.Fprintf(os.Stderr, "  formless -scan saved.html -url https://example.com/signup -match\n\n")
	}

	flag.Parse()
	cfg.URL = flag.Arg(0)
	return cfg
}

func run(ctx context.Context, cfg *CLIConfig) error {
	if err := config.Initialize(cfg.ConfigFile); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	logger, err := logging.NewLogger("cli")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to create logger: %v\n", err)
		logger = nil
	} else {
		defer logger.Close()
		logger.Infof("formless %s starting", version)
	}

	svc := resolveService(cfg)

	switch {
	case cfg.ScanFile != "":
		return runScan(ctx, cfg, svc, os.Stdout)
	case cfg.URL != "":
		return runLive(ctx, cfg, svc, logger)
	default:
		flag.Usage()
		return errors.New("a URL or -scan file is required")
	}
}

// service bundles the clients for the matching and memory API.
type service struct {
	matcher  matching.Matcher
	memories memory.Lister
	baseURL  string
}

// resolveService applies CLI flags over the configuration file.
func resolveService(cfg *CLIConfig) service {
	baseURL, apiKey, timeout := config.GetMatching().Settings()
	if cfg.MatchingURL != "" {
		baseURL = cfg.MatchingURL
	}
	if cfg.APIKey != "" {
		apiKey = cfg.APIKey
	}
	if cfg.Timeout > 0 {
		timeout = cfg.Timeout
	}

	return service{
		matcher: matching.NewClient(baseURL,
			matching.WithAPIKey(apiKey),
			matching.WithHTTPClient(&http.Client{Timeout: timeout}),
		),
		memories: memory.NewClient(baseURL, memory.WithAPIKey(apiKey)),
		baseURL:  baseURL,
	}
}

// listMemories feeds the picker's scope list. A memory service that cannot
// be reached only costs the scope list; matching reports its own errors.
func listMemories(ctx context.Context, svc service) []memory.Record {
	records, err := svc.memories.List(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load memories from %s: %v\n", svc.baseURL, err)
		return nil
	}
	return records
}
