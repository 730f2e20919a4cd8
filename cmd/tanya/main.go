// Package main is the Tanya CLI entry point.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/tanya/internal/answer"
	"github.com/hyperjump/tanya/internal/chunker"
	"github.com/hyperjump/tanya/internal/config"
	"github.com/hyperjump/tanya/internal/embedding"
	"github.com/hyperjump/tanya/internal/keyword"
	"github.com/hyperjump/tanya/internal/loader"
	"github.com/hyperjump/tanya/internal/models"
	"github.com/hyperjump/tanya/internal/pipeline"
	"github.com/hyperjump/tanya/internal/progress"
	"github.com/hyperjump/tanya/internal/retriever"
	"github.com/hyperjump/tanya/internal/server"
	"github.com/hyperjump/tanya/internal/store"
	"github.com/hyperjump/tanya/internal/watcher"
	"github.com/hyperjump/tanya/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "config.yaml"

// exitWords end the interactive ask loop.
var exitWords = map[string]bool{"quit": true, "keluar": true, "exit": true, "q": true}

func main() {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "index":
		runIndex()
	case "ask":
		runAsk()
	case "serve":
		runServe()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("tanya version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`Tanya - tanya jawab dokumen bahasa Indonesia

Usage:
  tanya index [flags] <directory>   index all documents under a directory
  tanya ask [flags] [question]      answer a question (interactive without one)
  tanya serve [flags]               run the HTTP API server
  tanya status [flags]              show index status
  tanya version                     print version
  tanya help                        show this help

Common flags:
  --config path       config file (default config.yaml, falls back to defaults)
  --debug             enable debug logging
`)
}

// loadConfig loads the config at path, falling back to built-in defaults when
// the default path does not exist so the CLI works without any setup.
func loadConfig(path string) (*config.Config, error) {
	if path == defaultConfigPath {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return config.Default(), nil
		}
	}
	return config.Load(path)
}

// components holds everything a subcommand needs, with one Close for all of it.
type components struct {
	pipeline *pipeline.Pipeline
	cfg      *config.Config
	logger   *zap.Logger
}

func (c *components) Close() {
	if err := c.pipeline.Close(); err != nil {
		c.logger.Warn("close failed", zap.Error(err))
	}
	_ = c.logger.Sync()
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, sink progress.Sink) (*components, error) {
	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	st := store.NewStore(cfg.Storage.VectorDB, logger, store.WithProgress(sink))

	var kw *keyword.ChunkIndex
	if cfg.Retrieval.KeywordFallback {
		kw, err = keyword.NewChunkIndex(cfg.Storage.KeywordPath)
		if err != nil {
			return nil, fmt.Errorf("create keyword index: %w", err)
		}
	}

	retrieverOpts := []retriever.Option{retriever.WithLogger(logger)}
	if kw != nil {
		retrieverOpts = append(retrieverOpts, retriever.WithKeywordFallback(kw))
	}
	rt := retriever.NewRetriever(embedder, st, retrieverOpts...)

	sel, err := newSelector(cfg, logger)
	if err != nil {
		return nil, err
	}

	ld := loader.NewFileLoader(logger,
		loader.WithExtensions(cfg.Watch.Extensions),
		loader.WithProgress(sink),
	)
	ch := chunker.NewChunker(cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap, logger)

	pipelineOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithProgress(sink),
	}
	if kw != nil {
		pipelineOpts = append(pipelineOpts, pipeline.WithKeywordIndex(kw))
	}
	p := pipeline.New(ld, ch, embedder, st, rt, sel, pipelineOpts...)

	return &components{pipeline: p, cfg: cfg, logger: logger}, nil
}

func newEmbedder(cfg *config.Config) (embedding.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "onnx":
		return embedding.NewONNXEmbedder(
			cfg.Embedding.ModelPath,
			cfg.Embedding.Dimensions,
			cfg.Embedding.MaxTokens,
			cfg.Embedding.CacheSize,
		)
	case "openai":
		return embedding.NewOpenAIEmbedder(cfg.Embedding.Model, cfg.Embedding.CacheSize)
	default:
		return embedding.NewMockEmbedder(cfg.Embedding.Dimensions), nil
	}
}

func newSelector(cfg *config.Config, logger *zap.Logger) (*answer.Selector, error) {
	switch cfg.Answer.Mode {
	case "generative":
		gen, err := answer.NewOpenAIGenerator(cfg.Answer.GenerativeModel)
		if err != nil {
			return nil, fmt.Errorf("create generator: %w", err)
		}
		return answer.NewSelector(answer.ModeGenerative,
			answer.WithGenerator(gen),
			answer.WithLogger(logger),
		), nil
	default:
		qa := answer.NewHTTPQAModel(cfg.Answer.QAServiceURL,
			time.Duration(cfg.Answer.QATimeoutSecs)*time.Second)
		return answer.NewSelector(answer.ModeQA,
			answer.WithQAModel(qa),
			answer.WithLogger(logger),
		), nil
	}
}

func setup(configPath string, debug, noProgress bool) *components {
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	var sink progress.Sink = progress.NewBarSink(os.Stderr)
	if noProgress {
		sink = progress.NewLogSink(logger)
	}

	comps, err := initializeComponents(cfg, logger, sink)
	if err != nil {
		fmt.Printf("Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	return comps
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	noProgress := fs.Bool("no-progress", false, "log progress instead of drawing a bar")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: tanya index [flags] <directory>")
		os.Exit(1)
	}
	dir := fs.Arg(0)

	comps := setup(*configPath, *debug, *noProgress)
	defer comps.Close()

	start := time.Now()
	if err := comps.pipeline.BuildIndex(context.Background(), dir); err != nil {
		fmt.Fprintf(os.Stderr, "Indexing failed: %v\n", err)
		comps.Close()
		os.Exit(1)
	}
	fmt.Printf("Indexed %d chunks from %s in %s\n",
		comps.pipeline.DocumentCount(), dir, time.Since(start).Round(time.Millisecond))
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	mode := fs.String("mode", "", "answer mode: qa or generative (overrides config)")
	k := fs.Int("k", 0, "number of context passages to retrieve")
	_ = fs.Parse(os.Args[2:])

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *mode != "" {
		cfg.Answer.Mode = *mode
		if err := cfg.Validate(); err != nil {
			fmt.Printf("Invalid flags: %v\n", err)
			os.Exit(1)
		}
	}
	logger, err := utils.NewLogger(*debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	comps, err := initializeComponents(cfg, logger, progress.NopSink{})
	if err != nil {
		fmt.Printf("Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer comps.Close()

	topK := *k
	if topK <= 0 {
		topK = cfg.Retrieval.TopK
	}

	if fs.NArg() > 0 {
		question := strings.TrimSpace(strings.Join(fs.Args(), " "))
		printAnswer(comps.pipeline.Query(context.Background(), question, topK))
		return
	}
	runInteractive(comps.pipeline, topK)
}

func runInteractive(p *pipeline.Pipeline, k int) {
	fmt.Println("Ketik pertanyaan Anda (quit/keluar untuk berhenti):")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if exitWords[strings.ToLower(question)] {
			fmt.Println("Sampai jumpa!")
			return
		}
		printAnswer(p.Query(context.Background(), question, k))
	}
}

func printAnswer(ans models.Answer) {
	fmt.Printf("\n%s\n", ans.Answer)
	fmt.Printf("Keyakinan: %.2f\n", ans.Confidence)
	if len(ans.Sources) > 0 {
		fmt.Println("Sumber:")
		for _, src := range ans.Sources {
			fmt.Printf("  - %s: %s\n", src.Source, src.ContentPreview)
		}
	}
	fmt.Println()
}

func runServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(*debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	comps, err := initializeComponents(cfg, logger, progress.NewLogSink(logger))
	if err != nil {
		fmt.Printf("Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer comps.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Watch.Enabled {
		w := watcher.New(comps.pipeline,
			watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMS)*time.Millisecond),
			watcher.WithExtensions(cfg.Watch.Extensions),
			watcher.WithIgnoreHidden(cfg.Watch.IgnoreHidden),
			watcher.WithLogger(logger),
		)
		go func() {
			if err := w.Watch(watchCtx, cfg.Storage.DataDir); err != nil && err != context.Canceled {
				logger.Error("watcher stopped", zap.Error(err))
			}
		}()
	}

	srv := server.New(cfg.Server.Addr(), comps.pipeline, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(false)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	comps, err := initializeComponents(cfg, logger, progress.NopSink{})
	if err != nil {
		fmt.Printf("Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer comps.Close()

	if !comps.pipeline.CollectionExists() {
		fmt.Println("Index: not created")
		return
	}
	fmt.Printf("Index: %s\n", cfg.Storage.VectorDB)
	fmt.Printf("Chunks: %d\n", comps.pipeline.DocumentCount())
	fmt.Printf("Embedding: %s\n", cfg.Embedding.Provider)
	fmt.Printf("Answer mode: %s\n", cfg.Answer.Mode)
}
