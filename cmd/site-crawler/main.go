package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"site-crawler/pkg/config"
	"site-crawler/pkg/content"
	"site-crawler/pkg/fetch"
	"site-crawler/pkg/models"
	"site-crawler/pkg/orchestrate"
	"site-crawler/pkg/report"
	"site-crawler/pkg/storage"
	"site-crawler/pkg/tasks"
)

const version = "0.4.0"

const dbGCInterval = 5 * time.Minute

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "crawl":
		runCrawl(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "list-tasks":
		runListTasks(os.Args[2:])
	case "version":
		fmt.Printf("site-crawler %s\n", version)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`site-crawler - Batch website crawler

Usage:
  site-crawler <command> [options]

Commands:
  crawl       Run a crawl task to completion
  validate    Validate configuration file
  list-tasks  List named tasks in the config
  version     Show version info

Run 'site-crawler <command> -h' for command-specific help.`)
}

// runCrawl handles the crawl subcommand.
func runCrawl(args []string) {
	fs := flag.NewFlagSet("crawl", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	taskName := fs.String("task", "", "Named task from the config file")
	seedURL := fs.String("seed", "", "Seed URL (builds an ad-hoc task)")
	maxDepth := fs.Int("depth", 0, "Override max crawl depth")
	maxPages := fs.Int("max-pages", 0, "Override max page budget")
	batchSize := fs.Int("batch", 0, "Override concurrent fetch budget")
	strategy := fs.String("strategy", "", "Override strategy (bfs, dfs, links-only)")
	cacheMode := fs.String("cache", "", "Override cache mode (enabled, bypass)")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)")
	pprofAddr := fs.String("pprof", "", "pprof address, e.g. localhost:6060 (disabled by default)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: site-crawler crawl [options]\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  site-crawler crawl -task docs_site\n")
		fmt.Fprintf(os.Stderr, "  site-crawler crawl -seed https://example.com -depth 2 -max-pages 50\n")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *taskName == "" && *seedURL == "" {
		fmt.Fprintln(os.Stderr, "Error: one of -task or -seed is required")
		fs.Usage()
		os.Exit(1)
	}

	log := setupLogger(*logLevel)
	cfgFile := loadConfigOrDie(*configFile, log)

	appCfg := cfgFile.App
	appWarnings, _ := appCfg.Validate()
	for _, w := range appWarnings {
		log.Warn(w)
	}

	taskCfg := resolveTaskConfig(cfgFile, *taskName, *seedURL, log)
	if *maxDepth > 0 {
		taskCfg.MaxDepth = *maxDepth
	}
	if *maxPages > 0 {
		taskCfg.MaxPages = *maxPages
	}
	if *batchSize > 0 {
		taskCfg.BatchSize = *batchSize
	}
	if *strategy != "" {
		taskCfg.Strategy = config.Strategy(*strategy)
	}
	if *cacheMode != "" {
		taskCfg.CacheMode = config.CacheMode(*cacheMode)
	}

	startPprof(*pprofAddr, log)

	if appCfg.EnableTokenCounting {
		if err := content.InitTokenizer(appCfg.TokenizerEncoding); err != nil {
			log.Warnf("Tokenizer unavailable, token counts disabled: %v", err)
		}
	}

	// --- Initialize components ---
	log.Info("Initializing components...")
	logEntry := log.WithField("component", "crawl")

	store, err := storage.NewBadgerStore(appCfg.StateDir, logEntry)
	if err != nil {
		log.Fatalf("Failed to initialize result store: %v", err)
	}
	defer store.Close()

	registry := tasks.NewRegistry(appCfg.RetainTasks)

	httpClient := fetch.NewClient(appCfg.HTTPClientSettings, log)
	fetcher := fetch.NewFetcher(httpClient, &appCfg, log)
	rateLimiter := fetch.NewRateLimiter(taskCfg.DelayPerHost, log)
	robots := fetch.NewRobotsHandler(fetcher, rateLimiter, &appCfg, logEntry)
	pageFetcher := fetch.NewHTTPPageFetcher(fetcher, robots, rateLimiter, &appCfg, logEntry)
	reporter := report.NewWriter(appCfg.OutputDir, logEntry)

	orch := orchestrate.New(&appCfg, registry, store, pageFetcher, reporter, log)

	task, err := orch.Submit(taskCfg)
	if err != nil {
		log.Fatalf("Task rejected: %v", err)
	}

	// --- Signal handling for graceful shutdown ---
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		sig := <-sigChan
		log.Warnf("Received signal %v, cancelling crawl...", sig)
		registry.Cancel(task.ID)

		select {
		case sig = <-sigChan:
			log.Warnf("Received second signal %v, forcing exit", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			log.Warn("Graceful shutdown period exceeded, forcing exit")
			os.Exit(1)
		}
	}()

	gcCtx := registry.Context(task.ID)
	go store.RunGC(gcCtx, dbGCInterval)

	// --- Run to completion ---
	orch.Run(task)

	final, _ := registry.Get(task.ID)
	switch final.Status {
	case models.TaskStatusCompleted:
		log.WithFields(logrus.Fields{
			"fetched": final.Stats.Fetched,
			"failed":  final.Stats.Failed,
		}).Info("Crawl completed successfully")
	case models.TaskStatusCancelled:
		log.Warn("Crawl cancelled")
	default:
		log.Errorf("Crawl failed: %s", final.ErrorMessage)
		os.Exit(1)
	}
}

// runValidate handles the validate subcommand.
func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	taskName := fs.String("task", "", "Task to validate (optional, validates all if empty)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: site-crawler validate [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	os.Exit(doValidate(*configFile, *taskName, os.Stdout, os.Stderr))
}

// doValidate performs validation and returns the exit code.
func doValidate(configPath, taskName string, stdout, stderr io.Writer) int {
	cfgFile, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	warnings, _ := cfgFile.App.Validate()
	for _, w := range warnings {
		fmt.Fprintf(stdout, "WARN: %s\n", w)
	}

	names := sortedTaskNames(cfgFile)
	if taskName != "" {
		if _, ok := cfgFile.Tasks[taskName]; !ok {
			fmt.Fprintf(stderr, "Error: task '%s' not found in config\n", taskName)
			return 1
		}
		names = []string{taskName}
	}

	hasError := false
	for _, name := range names {
		taskCfg := cfgFile.Tasks[name]
		taskWarnings, err := taskCfg.Validate()
		if err != nil {
			fmt.Fprintf(stderr, "ERROR: [%s] %v\n", name, err)
			hasError = true
			continue
		}
		for _, w := range taskWarnings {
			fmt.Fprintf(stdout, "WARN: [%s] %s\n", name, w)
		}
		fmt.Fprintf(stdout, "OK: [%s]\n", name)
	}
	if hasError {
		return 1
	}

	fmt.Fprintln(stdout, "\nConfiguration valid.")
	return 0
}

// runListTasks handles the list-tasks subcommand.
func runListTasks(args []string) {
	fs := flag.NewFlagSet("list-tasks", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: site-crawler list-tasks [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfgFile, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Tasks in %s:\n\n", *configFile)
	for _, name := range sortedTaskNames(cfgFile) {
		taskCfg := cfgFile.Tasks[name]
		fmt.Printf("  %s\n", name)
		fmt.Printf("    Seed: %s\n", taskCfg.SeedURL)
		fmt.Printf("    Strategy: %s, Depth: %d, Pages: %d\n",
			taskCfg.Strategy, taskCfg.MaxDepth, taskCfg.MaxPages)
		fmt.Println()
	}
}

// setupLogger creates a configured logrus.Logger with the given log level.
func setupLogger(logLevelStr string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	log.SetLevel(logrus.InfoLevel)

	level, err := logrus.ParseLevel(logLevelStr)
	if err != nil {
		log.Warnf("Invalid log level '%s', using default 'info'. Error: %v", logLevelStr, err)
	} else {
		log.SetLevel(level)
	}
	return log
}

func loadConfigOrDie(path string, log *logrus.Logger) *config.File {
	log.Infof("Loading configuration from %s", path)
	cfgFile, err := config.Load(path)
	if err != nil {
		// A missing config file is fine for ad-hoc -seed crawls.
		if errors.Is(err, os.ErrNotExist) {
			log.Infof("No config file at %s, using defaults", path)
			return &config.File{}
		}
		log.Fatalf("Config error: %v", err)
	}
	return cfgFile
}

// resolveTaskConfig picks the named task from the config or builds an ad-hoc
// one from the seed flag.
func resolveTaskConfig(cfgFile *config.File, taskName, seedURL string, log *logrus.Logger) config.TaskConfig {
	if taskName != "" {
		taskCfg, ok := cfgFile.Tasks[taskName]
		if !ok {
			log.Fatalf("Task '%s' not found in config", taskName)
		}
		if seedURL != "" {
			taskCfg.SeedURL = seedURL
		}
		return taskCfg
	}
	return config.TaskConfig{SeedURL: seedURL}
}

func sortedTaskNames(cfgFile *config.File) []string {
	names := make([]string, 0, len(cfgFile.Tasks))
	for name := range cfgFile.Tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// startPprof starts the pprof HTTP server if addr is non-empty.
func startPprof(addr string, log *logrus.Logger) {
	if addr != "" {
		go func() {
			log.Infof("Starting pprof server at http://%s/debug/pprof/", addr)
			if err := http.ListenAndServe(addr, nil); err != nil {
				log.Errorf("pprof server error: %v", err)
			}
		}()
	}
}
