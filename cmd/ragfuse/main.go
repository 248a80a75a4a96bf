// Package main is the ragfuse CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/ragfuse/internal/cli"
	"github.com/hyperjump/ragfuse/internal/config"
	"github.com/hyperjump/ragfuse/internal/embedding"
	"github.com/hyperjump/ragfuse/internal/extract"
	"github.com/hyperjump/ragfuse/internal/generation"
	"github.com/hyperjump/ragfuse/internal/indexer"
	"github.com/hyperjump/ragfuse/internal/models"
	"github.com/hyperjump/ragfuse/internal/pipeline"
	"github.com/hyperjump/ragfuse/internal/server"
	"github.com/hyperjump/ragfuse/internal/source"
	"github.com/hyperjump/ragfuse/internal/storage"
	"github.com/hyperjump/ragfuse/internal/telemetry"
	"github.com/hyperjump/ragfuse/internal/watcher"
	"github.com/hyperjump/ragfuse/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/ragfuse/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads config from path. When path is the default, a config.yaml in the current
// directory takes precedence, so running from a project directory uses the project's config.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "ask":
		runAsk()
	case "remove":
		runRemove()
	case "status":
		runStatus()
	case "watch":
		runWatch()
	case "version", "--version", "-v":
		fmt.Printf("ragfuse version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func exitf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		exitf("Failed to load config: %v", err)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		exitf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("config loaded", zap.String("config_path", resolvedConfigPath), zap.Bool("debug", debugMode))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components, err := initializeComponents(ctx, cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	if report, err := components.Orchestrator.Restore(ctx); err != nil {
		logger.Warn("failed to restore previous corpus", zap.Error(err))
	} else if len(report.Documents) > 0 {
		logger.Info("previous corpus restored", zap.Int("documents", len(report.Documents)), zap.Bool("cached", report.Cached))
	}

	exts := cfg.Watch.Extensions
	watchSvc := watcher.NewWatcher(
		cfg.Watch.Directories,
		exts,
		cfg.Watch.RecursiveOrDefault(),
		watcher.IngestSink(components.Orchestrator, exts, logger, func(err error) bool {
			return errors.Is(err, pipeline.ErrDocumentNotFound)
		}),
		watcher.WithLogger(logger),
	)
	if err := watchSvc.Start(ctx); err != nil {
		logger.Fatal("failed to start watcher", zap.Error(err))
	}
	go watchSvc.SyncExistingFiles()

	srv := server.NewServer(
		components.Orchestrator,
		&cfg.Server,
		logger,
		server.WithWatch(watchSvc, resolvedConfigPath, cfg),
		server.WithRequestTimeout(cfg.Sources.Timeout+cfg.Generation.Timeout+30*time.Second),
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	watchSvc.Stop()
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

// printAskUsage prints ask subcommand usage.
func printAskUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: ragfuse ask [flags] <question>\n\n")
	fmt.Fprintf(fs.Output(), "The question is all remaining arguments joined by spaces; quoting is optional.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  ragfuse ask what is a goroutine
  ragfuse ask --verbose "how do channels synchronize?"   # also list the fused context
  ragfuse ask --server http://localhost:8080 --output json what is a mutex
`)
}

// buildQuestion joins positional args with spaces so multi-word questions work with or without
// shell quoting.
func buildQuestion(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves any flags (and their values) that appear after the positional arguments to
// the front, since flag.Parse stops at the first non-flag argument.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

type commonFlags struct {
	configPath *string
	serverURL  *string
	output     *string
	debug      *bool
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		configPath: fs.String("config", defaultConfigPath, "config file path (direct mode)"),
		serverURL:  fs.String("server", "", "URL of a running ragfuse server (empty = operate directly on the local store)"),
		output:     fs.String("output", "text", "output format: text or json"),
		debug:      fs.Bool("debug", false, "enable debug logging (direct mode)"),
	}
}

func (c commonFlags) format() cli.OutputFormat {
	format, err := cli.ParseOutputFormat(*c.output)
	if err != nil {
		exitf("%v", err)
	}
	return format
}

// direct loads the config and components for a one-shot command and restores the stored corpus.
func (c commonFlags) direct(ctx context.Context) (*config.Config, *Components, *zap.Logger) {
	cfg, _, err := loadConfig(*c.configPath)
	if err != nil {
		exitf("Failed to load config: %v", err)
	}
	debugMode := cfg.Debug || *c.debug
	logger, err := utils.NewCLILogger(debugMode)
	if err != nil {
		exitf("Failed to create logger: %v", err)
	}
	components, err := initializeComponents(ctx, cfg, logger, debugMode)
	if err != nil {
		exitf("Failed to initialize: %v", err)
	}
	if _, err := components.Orchestrator.Restore(ctx); err != nil {
		logger.Warn("failed to restore stored corpus", zap.Error(err))
	}
	return cfg, components, logger
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	flags := addCommonFlags(fs)
	recursive := fs.Bool("recursive", true, "walk subdirectories of directory arguments")
	_ = fs.Parse(argsReorder(os.Args[2:]))
	format := flags.format()

	if fs.NArg() < 1 {
		fmt.Println("Usage: ragfuse ingest [flags] <file-or-directory>...")
		os.Exit(1)
	}
	ctx := context.Background()

	if *flags.serverURL != "" {
		inputs, err := indexer.ReadPaths(fs.Args(), config.DefaultExtensions, *recursive)
		if err != nil {
			exitf("Failed to read files: %v", err)
		}
		report, err := newAPIClient(*flags.serverURL).ingest(inputs)
		if err != nil {
			exitf("Ingest failed: %v", err)
		}
		writeOrExit(cli.WriteReport(os.Stdout, report, format))
		return
	}

	cfg, components, logger := flags.direct(ctx)
	defer components.Close()
	defer func() { _ = logger.Sync() }()
	inputs, err := indexer.ReadPaths(fs.Args(), cfg.Watch.Extensions, *recursive)
	if err != nil {
		exitf("Failed to read files: %v", err)
	}
	report, err := components.Orchestrator.Ingest(ctx, inputs)
	if err != nil {
		exitf("Ingest failed: %v", err)
	}
	writeOrExit(cli.WriteReport(os.Stdout, report, format))
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	flags := addCommonFlags(fs)
	verbose := fs.Bool("verbose", false, "list the fused context under the answer")
	fs.Usage = func() { printAskUsage(fs) }
	_ = fs.Parse(argsReorder(os.Args[2:]))
	format := flags.format()

	question := buildQuestion(fs.Args())
	if question == "" {
		printAskUsage(fs)
		os.Exit(1)
	}
	ctx := context.Background()

	var (
		answer *models.Answer
		err    error
	)
	if *flags.serverURL != "" {
		answer, err = newAPIClient(*flags.serverURL).ask(question)
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.Answer != nil {
			answer = apiErr.Answer
		}
	} else {
		_, components, logger := flags.direct(ctx)
		defer components.Close()
		defer func() { _ = logger.Sync() }()
		answer, err = components.Orchestrator.Ask(ctx, question)
	}
	if answer != nil {
		writeOrExit(cli.WriteAnswer(os.Stdout, answer, format, *verbose))
	}
	if err != nil {
		exitf("Ask failed: %v", err)
	}
}

func runRemove() {
	fs := flag.NewFlagSet("remove", flag.ExitOnError)
	flags := addCommonFlags(fs)
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Println("Usage: ragfuse remove [flags] <filename>")
		os.Exit(1)
	}
	filename := filepath.Base(fs.Arg(0))

	if *flags.serverURL != "" {
		if err := newAPIClient(*flags.serverURL).remove(filename); err != nil {
			exitf("Remove failed: %v", err)
		}
	} else {
		ctx := context.Background()
		_, components, logger := flags.direct(ctx)
		defer components.Close()
		defer func() { _ = logger.Sync() }()
		if err := components.Orchestrator.Remove(ctx, filename); err != nil {
			exitf("Remove failed: %v", err)
		}
	}
	fmt.Printf("Removed: %s\n", filename)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	flags := addCommonFlags(fs)
	_ = fs.Parse(os.Args[2:])
	format := flags.format()

	var st *models.Status
	if *flags.serverURL != "" {
		var err error
		st, err = newAPIClient(*flags.serverURL).status()
		if err != nil {
			exitf("Status failed: %v", err)
		}
	} else {
		_, components, logger := flags.direct(context.Background())
		defer components.Close()
		defer func() { _ = logger.Sync() }()
		st = components.Orchestrator.Status()
	}
	writeOrExit(cli.WriteStatus(os.Stdout, st, format))
}

func runWatch() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: ragfuse watch <add|remove|list> [path]")
		fmt.Println("  ragfuse watch add <path>     Add an inbox directory")
		fmt.Println("  ragfuse watch remove <path>  Stop watching a directory")
		fmt.Println("  ragfuse watch list           List watched directories")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	syncExisting := fs.Bool("sync", true, "ingest files already in an added directory")
	_ = fs.Parse(argsReorder(os.Args[3:]))
	client := newAPIClient(*serverURL)

	switch sub {
	case "add", "remove":
		if fs.NArg() < 1 {
			fmt.Printf("Usage: ragfuse watch %s <path>\n", sub)
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		if sub == "add" {
			if err := client.addWatchDirectory(path, *syncExisting); err != nil {
				exitf("Add failed: %v", err)
			}
			fmt.Printf("Added: %s\n", path)
			return
		}
		if err := client.removeWatchDirectory(path); err != nil {
			exitf("Remove failed: %v", err)
		}
		fmt.Printf("Removed: %s\n", path)
	case "list":
		dirs, err := client.watchDirectories()
		if err != nil {
			exitf("List failed: %v", err)
		}
		for _, d := range dirs {
			fmt.Println(d)
		}
	default:
		exitf("Unknown watch subcommand: %s", sub)
	}
}

func writeOrExit(err error) {
	if err != nil {
		exitf("Output failed: %v", err)
	}
}

// Components holds initialized services.
type Components struct {
	Storage      storage.Storage
	Embedder     embedding.Embedder
	Orchestrator *pipeline.Orchestrator
	flush        func()
}

// Close releases the store and embedder and flushes pending telemetry.
func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.flush != nil {
		c.flush()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	secrets, err := config.LoadSecrets()
	if err != nil {
		return nil, err
	}
	flush := telemetry.Init(telemetry.Config{
		DSN:              secrets.SentryDSN,
		Environment:      cfg.Telemetry.Environment,
		TracesSampleRate: cfg.Telemetry.SampleRate,
		Debug:            debug,
	}, logger)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		flush()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	embedder, err := embedding.New(cfg.Embedding, secrets.OpenAIAPIKey, logger)
	if err != nil {
		_ = store.Close()
		flush()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	components := &Components{Storage: store, Embedder: embedder, flush: flush}

	sources := source.New(ctx, cfg.Sources, secrets, logger)
	if secrets.GroqAPIKey == "" {
		logger.Warn("no generation API key configured, questions will fail at the generation step")
	}
	generator := generation.NewChatGenerator(generation.Config{
		APIKey:      secrets.GroqAPIKey,
		BaseURL:     cfg.Generation.BaseURL,
		Model:       cfg.Generation.Model,
		Temperature: cfg.Generation.Temperature,
		MaxTokens:   cfg.Generation.MaxTokens,
	})

	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		components.Close()
		return nil, err
	}
	opts.Embedder = embedder
	opts.Encyclopedia = sources.Encyclopedia
	opts.WebSearch = sources.WebSearch
	opts.Generator = generator

	diskPaths := append(storage.DatabaseFiles(cfg.Storage.DatabasePath), cfg.Storage.UploadDir)
	orch, err := pipeline.NewOrchestrator(opts,
		pipeline.WithLogger(logger),
		pipeline.WithStore(store),
		pipeline.WithKeepSnapshots(cfg.Storage.KeepSnapshots),
		pipeline.WithUploadDir(cfg.Storage.UploadDir),
		pipeline.WithExtractor(extract.NewExtractor()),
		pipeline.WithDiskUsagePaths(diskPaths...),
	)
	if err != nil {
		components.Close()
		return nil, err
	}
	components.Orchestrator = orch
	logger.Debug("components initialized",
		zap.String("embedder", embedder.ID()),
		zap.String("generation_model", generator.Model()),
		zap.String("database", cfg.Storage.DatabasePath))
	return components, nil
}

func printUsage() {
	fmt.Println(`ragfuse - Ask questions across your documents, an encyclopedia and the web

Usage:
  ragfuse server [flags]                  Start the HTTP server (and the inbox watcher)
  ragfuse ingest [flags] <path>...        Add files or directories to the corpus
  ragfuse ask [flags] <question>          Answer a question from all sources
  ragfuse remove [flags] <filename>       Remove a document from the corpus
  ragfuse status [flags]                  Show pipeline state and corpus
  ragfuse watch <add|remove|list> [path]  Manage inbox directories of a running server
  ragfuse version                         Show version
  ragfuse help                            Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/ragfuse/config.yaml)
  --debug            Enable debug logging

Ingest / Ask / Remove / Status Flags:
  --config string    Config file path (direct mode)
  --server string    URL of a running server; empty (default) operates directly on the local store
  --output string    Output format: text or json (default: text)
  --debug            Enable debug logging (direct mode)
  --recursive        Walk subdirectories (ingest only, default: true)
  --verbose          List the fused context under the answer (ask only)

Watch Flags:
  --server string    Server URL (default: http://localhost:8080)
  --sync             Ingest files already in an added directory (default: true)

Environment:
  GROQ_API_KEY            Key for the answer model (OpenAI-compatible chat API)
  OPENAI_API_KEY          Key for the openai embedding provider
  GOOGLE_SEARCH_API_KEY   Key for web search (falls back to GOOGLE_API_KEY)
  GOOGLE_CSE_ID           Programmable Search engine ID
  SENTRY_DSN              Error reporting (optional)
  A .env file in the working directory is loaded first.

Examples:
  ragfuse server
  ragfuse ingest ~/papers/attention.pdf notes/
  ragfuse ask what is multi-head attention
  ragfuse ask --server http://localhost:8080 --output json "why scale the dot product?"
  ragfuse remove attention.pdf
  ragfuse status --output json
  ragfuse watch add ~/inbox`)
}
