// Package main is the folio CLI entry point.
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

	"go.uber.org/zap"

	"github.com/hyperjump/folio/internal/assetid"
	"github.com/hyperjump/folio/internal/cli"
	"github.com/hyperjump/folio/internal/config"
	"github.com/hyperjump/folio/internal/extract"
	"github.com/hyperjump/folio/internal/indexer"
	"github.com/hyperjump/folio/internal/jobs"
	"github.com/hyperjump/folio/internal/keyword"
	"github.com/hyperjump/folio/internal/models"
	"github.com/hyperjump/folio/internal/ocr"
	"github.com/hyperjump/folio/internal/pipeline"
	"github.com/hyperjump/folio/internal/runner"
	"github.com/hyperjump/folio/internal/search"
	"github.com/hyperjump/folio/internal/server"
	"github.com/hyperjump/folio/internal/storage"
	"github.com/hyperjump/folio/internal/watcher"
	"github.com/hyperjump/folio/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/folio/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads config from path. When path is the default, config.yaml in the current
// directory wins if present; when neither exists, built-in defaults are used.
// Returns the config and the path that was actually loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			cfg := &config.Config{}
			config.ApplyDefaults(cfg)
			return cfg, "", nil
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
	case "process":
		runProcess()
	case "reprocess":
		runReprocess()
	case "queue-all":
		runQueueAll()
	case "search":
		runSearch()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("folio version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads config and builds the logger, exiting on failure.
func setup(configPath string, debugFlag bool) (*config.Config, string, *zap.Logger, bool) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || debugFlag
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, resolved, logger, debugMode
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, logger, debugMode := setup(*configPath, *debug)
	defer logger.Sync()
	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	queue := jobs.NewQueue(cfg.Processing.Workers, jobs.WithLogger(logger))
	components, err := initializeComponents(cfg, logger, debugMode, queue)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := components.Processor.Resume(ctx); err != nil {
		logger.Error("failed to resume unfinished documents", zap.Error(err))
	}
	queueDone := make(chan struct{})
	go func() {
		defer close(queueDone)
		if err := queue.Run(ctx, components.Processor.HandleProcess); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("job queue stopped", zap.Error(err))
		}
	}()

	assets := watcher.NewAssetSync(components.Storage, components.Processor, cfg.Watch.OwnerID, logger)
	watchSvc := watcher.New(
		cfg.Watch.Directories,
		assets,
		watcher.WithRecursive(cfg.Watch.RecursiveOrDefault()),
		watcher.WithLogger(logger),
	)
	if err := watchSvc.Start(ctx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	watchSvc.SyncExistingFiles()

	srvOpts := []server.Option{
		server.WithQueue(queue),
		server.WithWatch(watchSvc, resolvedConfigPath),
	}
	if components.Previews != nil {
		srvOpts = append(srvOpts, server.WithPreviews(components.Previews))
	}
	srv := server.NewServer(
		components.Engine,
		components.Storage,
		components.Processor,
		cfg,
		logger,
		srvOpts...,
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
	watchSvc.Stop()
	<-queueDone
}

func runProcess() {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	owner := fs.String("owner", "", "owner id recorded on the asset (default: watch.owner_id)")
	outputFormat := fs.String("output", "text", "output format: text, compact, or json")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: folio process [flags] <file.pdf>")
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg, _, logger, debugMode := setup(*configPath, *debug)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger, debugMode, nil)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ownerID := cfg.Watch.OwnerID
	if *owner != "" {
		ownerID = *owner
	}
	ctx := context.Background()
	assets := watcher.NewAssetSync(components.Storage, components.Processor, ownerID, logger)
	id, _, err := assets.Register(ctx, fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Register failed: %v\n", err)
		os.Exit(1)
	}
	if components.Processor.HandleProcess(ctx, id) == models.JobSkipped {
		fmt.Fprintf(os.Stderr, "Skipped %s: not a PDF\n", fs.Arg(0))
		os.Exit(1)
	}
	exitWithDocument(ctx, components.Storage, id, format)
}

func runReprocess() {
	fs := flag.NewFlagSet("reprocess", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (default from config; empty string with --local)")
	local := fs.Bool("local", false, "process in this process instead of asking the server")
	outputFormat := fs.String("output", "text", "output format: text, compact, or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: folio reprocess [flags] <document-id | file.pdf>")
		os.Exit(1)
	}
	id := documentIDArg(fs.Arg(0))
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if !*local {
		url := resolveServerURL(*serverURL, *configPath)
		res, err := reprocessViaHTTP(url, id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Reprocess failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s: %s\n", res.ID, res.Status)
		return
	}

	cfg, _, logger, debugMode := setup(*configPath, false)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger, debugMode, nil)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	queued, err := components.Processor.Reprocess(ctx, id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Reprocess failed: %v\n", err)
		os.Exit(1)
	}
	if !queued {
		fmt.Printf("%s: ignored, document is pending or processing\n", id)
		return
	}
	components.Processor.HandleProcess(ctx, id)
	exitWithDocument(ctx, components.Storage, id, format)
}

// idCollector records scheduled ids so a local command can process them in order.
type idCollector struct{ ids []string }

func (c *idCollector) Enqueue(_ context.Context, id string) error {
	c.ids = append(c.ids, id)
	return nil
}

func runQueueAll() {
	fs := flag.NewFlagSet("queue-all", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (default from config)")
	local := fs.Bool("local", false, "process in this process instead of asking the server")
	force := fs.Bool("force", false, "also requeue documents that were already processed")
	_ = fs.Parse(os.Args[2:])

	if !*local {
		url := resolveServerURL(*serverURL, *configPath)
		n, err := queueAllViaHTTP(url, *force)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Queue all failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Queued %d document(s)\n", n)
		return
	}

	cfg, _, logger, debugMode := setup(*configPath, false)
	defer logger.Sync()
	collector := &idCollector{}
	components, err := initializeComponents(cfg, logger, debugMode, collector)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if _, err := components.Processor.QueueAll(ctx, *force); err != nil {
		fmt.Fprintf(os.Stderr, "Queue all failed: %v\n", err)
		os.Exit(1)
	}
	counts := map[models.JobStatus]int{}
	for _, id := range collector.ids {
		if ctx.Err() != nil {
			break
		}
		counts[components.Processor.HandleProcess(ctx, id)]++
	}
	fmt.Printf("Processed %d document(s): %d succeeded, %d failed, %d skipped\n",
		len(collector.ids), counts[models.JobSuccess], counts[models.JobFailed], counts[models.JobSkipped])
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: folio search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
A document matches when every query word appears in its text or title. Matching ignores
case and accents.

Examples:
  folio search quarterly report
  folio search --owner alice --size 20 invoice
  folio search --document asset:3f2a... "total due"   # occurrences inside one document
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// configPathFromArgs returns the value of -config/--config from args if present, else defaultPath.
func configPathFromArgs(args []string, defaultPath string) string {
	for i, a := range args {
		if (a == "-config" || a == "--config") && i+1 < len(args) {
			return args[i+1]
		}
	}
	return defaultPath
}

// serverURLFromConfig derives the API address from the server section of the config at
// path, falling back to defaultServerURL.
func serverURLFromConfig(path string) string {
	cfg, _, err := loadConfig(path)
	if err != nil || cfg == nil || cfg.Server.Port == 0 {
		return defaultServerURL
	}
	host := cfg.Server.Host
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, cfg.Server.Port)
}

// documentIDArg accepts either a document id or the path of an uploaded file.
func documentIDArg(arg string) string {
	if assetid.IsAssetID(arg) {
		return arg
	}
	if _, err := os.Stat(arg); err != nil {
		return arg
	}
	if id, err := assetid.FromPath(arg); err == nil {
		return id
	}
	return arg
}

func resolveServerURL(flagValue, configPath string) string {
	if flagValue != "" {
		return strings.TrimSuffix(flagValue, "/")
	}
	return serverURLFromConfig(configPath)
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument.
func searchArgsReorder(args []string) []string {
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

func runSearch() {
	searchArgs := searchArgsReorder(os.Args[2:])
	defaultURL := serverURLFromConfig(configPathFromArgs(searchArgs, defaultConfigPath))

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPathFlag := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultURL, "server URL (empty = read storage directly when the server is not running)")
	page := fs.Int("page", 1, "result page")
	size := fs.Int("size", 0, "results per page (default from config)")
	owner := fs.String("owner", "", "only documents of this owner")
	documentID := fs.String("document", "", "search inside this document (id or file path) instead")
	outputFormat := fs.String("output", "text", "output format: text (human-readable), compact (one result per line), or json (parseable)")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgs)

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	searchQuery := &models.SearchQuery{Query: queryStr, OwnerID: *owner, Page: *page, Size: *size}
	if *documentID != "" {
		*documentID = documentIDArg(*documentID)
	}

	if *serverURL != "" {
		url := strings.TrimSuffix(*serverURL, "/")
		if *documentID != "" {
			hits, err := searchDocumentViaHTTP(url, *documentID, queryStr)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
				os.Exit(1)
			}
			writeOrExit(cli.WritePageHits(os.Stdout, hits, format))
			return
		}
		response, err := searchViaHTTP(url, searchQuery)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		writeOrExit(cli.WriteSearchResults(os.Stdout, response, format))
		return
	}

	// Direct storage access (when server is not running).
	cfg, _, logger, debugMode := setup(*configPathFlag, false)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger, debugMode, nil)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	if *documentID != "" {
		hits, err := components.Engine.SearchInDocument(ctx, *documentID, queryStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		writeOrExit(cli.WritePageHits(os.Stdout, hits, format))
		return
	}
	response, err := components.Engine.Search(ctx, searchQuery)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	writeOrExit(cli.WriteSearchResults(os.Stdout, response, format))
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (default from config)")
	local := fs.Bool("local", false, "read storage directly instead of asking the server")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status *server.StatusResponse
	if !*local {
		res, err := statusViaHTTP(resolveServerURL(*serverURL, *configPath))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = res
	} else {
		cfg, _, logger, debugMode := setup(*configPath, false)
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger, debugMode, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		status, err = localStatus(context.Background(), cfg, components.Storage)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	}

	switch *outputFormat {
	case "json":
		writeOrExit(writeJSON(os.Stdout, status))
	case "text":
		printStatus(status)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func localStatus(ctx context.Context, cfg *config.Config, store storage.Storage) (*server.StatusResponse, error) {
	docCount, err := store.CountDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	pageCount, err := store.CountPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("count pages: %w", err)
	}
	byStatus, err := store.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	status := &server.StatusResponse{
		Documents: docCount,
		Pages:     pageCount,
		ByStatus:  make(map[string]int64, len(byStatus)),
		Config: &server.StatusConfig{
			DatabasePath:   cfg.Storage.DatabasePath,
			BleveIndexPath: cfg.Storage.BleveIndexPath,
			MaxPages:       cfg.Processing.MaxPages,
			OCREnabled:     cfg.OCR.EnabledOrDefault(),
			OCRProvider:    cfg.OCR.Provider,
			Workers:        cfg.Processing.Workers,
			WatchDirs:      cfg.Watch.Directories,
		},
	}
	for st, n := range byStatus {
		status.ByStatus[string(st)] = n
	}
	if diskBytes, err := storage.DiskUsageBytes(cfg.Storage.DatabasePath, cfg.Storage.BleveIndexPath); err == nil {
		status.DiskUsageBytes = &diskBytes
	}
	return status, nil
}

func printStatus(status *server.StatusResponse) {
	fmt.Printf("documents:          %d   # PDF documents known to the pipeline\n", status.Documents)
	fmt.Printf("pages:              %d   # extracted pages\n", status.Pages)
	for _, st := range []models.DocumentStatus{models.StatusPending, models.StatusProcessing, models.StatusReady, models.StatusFailed} {
		fmt.Printf("  %-17s %d\n", string(st)+":", status.ByStatus[string(st)])
	}
	if status.Queue != nil {
		fmt.Printf("queue:              %d waiting, %d running, %d succeeded, %d failed, %d skipped\n",
			status.Queue.Waiting, status.Queue.Running, status.Queue.Succeeded, status.Queue.Failed, status.Queue.Skipped)
	}
	if status.DiskUsageBytes != nil {
		fmt.Printf("disk_usage_bytes:   %d   # database + keyword index on disk\n", *status.DiskUsageBytes)
	}
	if c := status.Config; c != nil {
		fmt.Println()
		fmt.Println("# configuration")
		fmt.Printf("max_pages:          %d\n", c.MaxPages)
		fmt.Printf("workers:            %d\n", c.Workers)
		fmt.Printf("ocr_enabled:        %t\n", c.OCREnabled)
		if c.OCRProvider != "" {
			fmt.Printf("ocr_provider:       %s\n", c.OCRProvider)
		}
		if c.DatabasePath != "" {
			fmt.Printf("database_path:      %s\n", c.DatabasePath)
		}
		if c.BleveIndexPath != "" {
			fmt.Printf("bleve_index_path:   %s\n", c.BleveIndexPath)
		}
		for _, d := range c.WatchDirs {
			fmt.Printf("watch_directory:    %s\n", d)
		}
	}
}

func exitWithDocument(ctx context.Context, store storage.Storage, id string, format cli.OutputFormat) {
	doc, err := store.GetDocument(ctx, id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load document failed: %v\n", err)
		os.Exit(1)
	}
	writeOrExit(cli.WriteDocument(os.Stdout, doc, format))
	if doc.Status == models.StatusFailed {
		os.Exit(1)
	}
}

func writeOrExit(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Storage      storage.Storage
	KeywordIndex keyword.KeywordIndex
	Indexer      *indexer.Indexer
	Engine       *search.Engine
	Processor    *pipeline.Processor
	// Previews is nil when storage.preview_path is empty.
	Previews *extract.Previewer
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
}

// initializeComponents wires storage, indexes, and the pipeline. Scheduled documents go to
// queue; with a nil queue, scheduling only updates document status.
func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool, queue pipeline.Enqueuer) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	keywordIndex, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}

	idxOpts := []indexer.IndexerOption{}
	if debug && logger != nil {
		idxOpts = append(idxOpts, indexer.WithLogger(logger))
	}
	idx := indexer.NewIndexer(keywordIndex, idxOpts...)
	engine := search.NewEngine(store, keywordIndex, &cfg.Search)

	ocrService, err := ocr.New(cfg.OCR)
	if err != nil {
		// A misconfigured OCR provider should not stop embedded-text extraction.
		logger.Warn("ocr unavailable, scanned pages will have no text", zap.Error(err))
		ocrService = ocr.Disabled{}
	}
	logger.Info("pipeline initialized",
		zap.Bool("ocr_enabled", cfg.OCR.EnabledOrDefault()),
		zap.String("ocr_provider", cfg.OCR.Provider),
		zap.Int("max_pages", cfg.Processing.MaxPages),
		zap.Duration("tool_timeout", cfg.Processing.ToolTimeout))

	run := runner.NewExecRunner(cfg.Processing.ToolTimeout)
	deps := pipeline.NewDeps(cfg, run, ocrService, idx)
	var previews *extract.Previewer
	if cfg.Storage.PreviewPath != "" {
		previews = extract.NewPreviewer(run, cfg.Processing.PdftoppmPath, cfg.Storage.PreviewPath)
		deps.Previews = previews
	}
	procOpts := []pipeline.ProcessorOption{pipeline.WithLogger(logger)}
	if queue != nil {
		procOpts = append(procOpts, pipeline.WithQueue(queue))
	}
	proc := pipeline.NewProcessor(store, deps, pipeline.OptionsFromConfig(cfg), procOpts...)

	return &Components{
		Storage:      store,
		KeywordIndex: keywordIndex,
		Indexer:      idx,
		Engine:       engine,
		Processor:    proc,
		Previews:     previews,
	}, nil
}

func printUsage() {
	fmt.Println(`folio - PDF ingestion and full-text search

Usage:
  folio server [flags]              Start the HTTP server, job queue, and upload watcher
  folio process [flags] <file.pdf>  Register a PDF and process it in the foreground
  folio reprocess [flags] <id|file> Reprocess a ready or failed document
  folio queue-all [flags]           Queue every PDF that has not been processed
  folio search [flags] <query>      Search documents
  folio status [flags]              Show document, queue, and storage status
  folio version                     Show version
  folio help                        Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/folio/config.yaml)
  --debug            Enable debug logging

Process Flags:
  --config string    Config file path
  --owner string     Owner id recorded on the asset
  --output string    Output format: text, compact, or json (default: text)

Reprocess / Queue-all Flags:
  --server string    Server URL (default: from config server section)
  --local            Process in the foreground without a running server
  --force            queue-all only: also requeue processed documents

Search Flags:
  --server string    Server URL. Use --server "" to read storage directly.
  --page int         Result page (default: 1)
  --size int         Results per page (default: from config)
  --owner string     Only documents of this owner
  --document string  Search inside one document
  --output string    Output format: text, compact, or json

Status Flags:
  --server string    Server URL (default: from config server section)
  --local            Read storage directly
  --output string    Output format: text or json (default: text)

Examples:
  folio server
  folio process ~/Downloads/invoice.pdf
  folio queue-all --force
  folio search "quarterly report"
  folio search --output json invoice
  folio status --output json`)
}
