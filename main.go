package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"

	"indexnow-go/internal/config"
	"indexnow-go/pkg/audit"
	"indexnow-go/pkg/indexnow"
	"indexnow-go/pkg/logger"
	"indexnow-go/pkg/metrics"
	"indexnow-go/pkg/parser"
	"indexnow-go/pkg/storage"
)

// options are the command line overrides on top of the loaded configuration
type options struct {
	configPath   string
	domain       string
	sitemap      string
	urlFile      string
	submitAll    bool
	dryRun       bool
	deploymentID string
	batchSize    int
	timeoutMs    int
	debug        bool

	// logWriter replaces the configured log output; used by tests
	logWriter io.Writer
}

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBoolOrDefault returns environment variable as bool or default
func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("CRITICAL ERROR: Application panic recovered: %v\n", r)
			os.Exit(1)
		}
	}()

	var opts options
	flag.StringVar(&opts.configPath, "config", getEnvOrDefault("INDEXNOW_CONFIG", ""), "Configuration file path (env: INDEXNOW_CONFIG)")
	flag.StringVar(&opts.domain, "domain", "", "Site domain, e.g. example.com (env: INDEXNOW_SITE_DOMAIN)")
	flag.StringVar(&opts.sitemap, "sitemap", "", "Sitemap file path or http(s) URL (env: INDEXNOW_SITE_SITEMAP)")
	flag.StringVar(&opts.urlFile, "file", "", "Submit URLs from a file, one per line, instead of the sitemap")
	flag.BoolVar(&opts.submitAll, "all", false, "Submit all URLs, including ones accepted by earlier runs")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "Collect and batch URLs without submitting them")
	flag.StringVar(&opts.deploymentID, "deployment-id", getEnvOrDefault("DEPLOYMENT_ID", ""), "Deployment identifier recorded in the audit log (env: DEPLOYMENT_ID)")
	flag.IntVar(&opts.batchSize, "batch-size", 0, "URLs per request, at most 10000 (env: INDEXNOW_INDEXNOW_BATCH_SIZE)")
	flag.IntVar(&opts.timeoutMs, "timeout", 0, "Request timeout in milliseconds (env: INDEXNOW_INDEXNOW_TIMEOUT_MS)")
	flag.BoolVar(&opts.debug, "debug", getEnvBoolOrDefault("DEBUG", false), "Enable debug logging (env: DEBUG)")
	help := flag.Bool("help", false, "Show help message")
	flag.Parse()

	if *help {
		printUsage(os.Stdout)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, opts, os.Stdout)
	stop()
	os.Exit(code)
}

// run executes one submission run and returns the process exit code
func run(ctx context.Context, opts options, out io.Writer) int {
	cfg, err := config.NewManager().Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(out, "ERROR: %v\n", err)
		return 1
	}
	applyOverrides(cfg, opts)

	baseLog := logger.New(cfg.Logger)
	logger.SetGlobalLogger(baseLog)
	log := baseLog.WithField("component", "main")
	secureLog := logger.GetSecurityLogger()

	if err := cfg.ValidateForSubmission(); err != nil {
		fmt.Fprintf(out, "ERROR: %v\n", err)
		fmt.Fprintln(out, "Use -domain or INDEXNOW_SITE_DOMAIN, and INDEXNOW_INDEXNOW_KEY. Run with -help for details.")
		return 1
	}

	secureLog.SafeInfo("Configuration loaded", map[string]interface{}{
		"domain":       cfg.Site.Domain,
		"key":          cfg.IndexNow.Key,
		"key_location": cfg.IndexNow.KeyLocation,
		"endpoint":     cfg.IndexNow.Endpoint,
		"batch_size":   cfg.IndexNow.BatchSize,
		"timeout_ms":   cfg.IndexNow.TimeoutMs,
		"dry_run":      opts.dryRun,
		"submit_all":   opts.submitAll,
	})

	urls, err := collect(ctx, cfg, opts)
	if err != nil {
		fmt.Fprintf(out, "ERROR: %v\n", err)
		return 1
	}

	fileStore, err := storage.NewFileStorage(storage.StorageConfig{DataDir: cfg.Storage.DataDir})
	if err != nil {
		fmt.Fprintf(out, "ERROR: %v\n", err)
		return 1
	}
	tracker := storage.NewSubmissionTracker(fileStore)

	total := len(urls)
	if !opts.submitAll {
		fresh, err := tracker.FilterNew(ctx, urls)
		if err != nil {
			log.WithError(err).Warn("Submission history unavailable, submitting all URLs")
		} else {
			urls = fresh
		}
	}

	fmt.Fprintf(out, "Collected %d URLs for %s (%d new)\n", total, cfg.Site.Domain, len(urls))
	if len(urls) == 0 {
		fmt.Fprintln(out, "No URLs to submit")
		return 0
	}

	deploymentID := opts.deploymentID
	if deploymentID == "" {
		deploymentID = "manual-" + uuid.NewString()
	}

	if opts.dryRun {
		return printDryRun(out, urls, cfg.IndexNow.BatchSize)
	}

	client, err := indexnow.NewClient(indexnow.Config{
		Endpoint: cfg.IndexNow.Endpoint,
		Timeout:  time.Duration(cfg.IndexNow.TimeoutMs) * time.Millisecond,
	})
	if err != nil {
		fmt.Fprintf(out, "ERROR: %v\n", err)
		return 1
	}

	auditLog := audit.New(audit.Config{
		Dir:           cfg.Audit.Dir,
		FileName:      cfg.Audit.FileName,
		MaxFileSize:   cfg.Audit.MaxFileSize,
		StatsWindow:   cfg.Audit.StatsWindow,
		WarnThreshold: cfg.Audit.WarnThreshold,
		Log:           baseLog,
	})
	runMetrics := metrics.New(auditLog, cfg.Audit.StatsWindow)

	submitter := indexnow.NewSubmitter(client, indexnow.SubmitterConfig{
		Host:             cfg.Site.Domain,
		Key:              cfg.IndexNow.Key,
		KeyLocation:      cfg.IndexNow.KeyLocation,
		BatchSize:        cfg.IndexNow.BatchSize,
		Timeout:          time.Duration(cfg.IndexNow.TimeoutMs) * time.Millisecond,
		DeploymentID:     deploymentID,
		BatchesPerSecond: cfg.IndexNow.RateLimit,
		StopOnFatal:      cfg.IndexNow.StopOnFatal,
	}, auditLog, runMetrics)

	outcomes, submitErr := submitter.SubmitAll(ctx, urls)

	if err := tracker.RecordOutcomes(ctx, outcomes); err != nil {
		log.WithError(err).Warn("Failed to update submission history")
	}

	failed := printOutcomes(out, outcomes, deploymentID)
	if submitErr != nil {
		fmt.Fprintf(out, "ERROR: %v\n", submitErr)
	}

	printStatistics(out, auditLog.GetStatistics(cfg.Audit.StatsWindow))

	if cfg.Metrics.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := runMetrics.Push(pushCtx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); err != nil {
			log.WithError(err).Warn("Failed to push metrics")
		}
		cancel()
	}

	if failed > 0 || submitErr != nil {
		return 1
	}
	return 0
}

func applyOverrides(cfg *config.Config, opts options) {
	if opts.domain != "" {
		cfg.Site.Domain = opts.domain
	}
	if opts.sitemap != "" {
		cfg.Site.Sitemap = opts.sitemap
	}
	if opts.batchSize > 0 {
		cfg.IndexNow.BatchSize = min(opts.batchSize, indexnow.MaxBatchSize)
	}
	if opts.timeoutMs > 0 {
		cfg.IndexNow.TimeoutMs = opts.timeoutMs
	}
	if opts.debug {
		cfg.Logger.Level = "debug"
	}
	if opts.logWriter != nil {
		cfg.Logger.Writer = opts.logWriter
	}
}

func collect(ctx context.Context, cfg *config.Config, opts options) ([]string, error) {
	if opts.urlFile != "" {
		return parser.ReadURLFile(opts.urlFile, cfg.Site.Domain, cfg.Site.ExcludePaths)
	}
	collector := parser.NewCollector(time.Duration(cfg.Site.DownloadMs) * time.Millisecond)
	return collector.Collect(ctx, cfg.Site.Domain, cfg.Site.Sitemap, cfg.Site.ExcludePaths)
}

func printDryRun(out io.Writer, urls []string, batchSize int) int {
	batches, err := indexnow.BatchURLs(urls, batchSize)
	if err != nil {
		fmt.Fprintf(out, "ERROR: %v\n", err)
		return 1
	}

	fmt.Fprintf(out, "\n=== Dry Run: %d URLs in %d batches ===\n", len(urls), len(batches))
	for i, batch := range batches {
		fmt.Fprintf(out, "Batch %d/%d: %d URLs\n", i+1, len(batches), len(batch))
		for j, u := range batch {
			if j == 5 {
				fmt.Fprintf(out, "   ... and %d more\n", len(batch)-5)
				break
			}
			fmt.Fprintf(out, "   %s\n", u)
		}
	}
	fmt.Fprintln(out, "Nothing was submitted.")
	return 0
}

// printOutcomes writes one SUCCESS/FAILURE line per batch and returns the failure count
func printOutcomes(out io.Writer, outcomes []indexnow.BatchOutcome, deploymentID string) int {
	failed := 0
	fmt.Fprintf(out, "\n=== IndexNow Submission Results (%s) ===\n", deploymentID)
	for _, o := range outcomes {
		r := o.Result
		if r.Success {
			fmt.Fprintf(out, "SUCCESS batch %d: status=%d urls=%d duration=%dms\n",
				o.Number, r.StatusCode, r.URLCount, r.DurationMs)
			continue
		}
		failed++
		fmt.Fprintf(out, "FAILURE batch %d: status=%d urls=%d duration=%dms\n",
			o.Number, r.StatusCode, r.URLCount, r.DurationMs)
		fmt.Fprintf(out, "   Error: %s\n", r.Error)
		if c := indexnow.Classify(r); c.Retryable() {
			fmt.Fprintln(out, "   This failure is retryable; run again later.")
		}
	}
	fmt.Fprintf(out, "Batches: %d, Successful: %d, Failed: %d\n", len(outcomes), len(outcomes)-failed, failed)
	return failed
}

func printStatistics(out io.Writer, stats audit.Statistics) {
	last := "never"
	if stats.LastSuccessfulSubmission != nil {
		last = *stats.LastSuccessfulSubmission
	}

	fmt.Fprintf(out, "\n=== Recent Submission Statistics ===\n")
	fmt.Fprintf(out, "Submissions: %d (successful %d, failed %d)\n",
		stats.TotalSubmissions, stats.SuccessfulSubmissions, stats.FailedSubmissions)
	fmt.Fprintf(out, "Success Rate: %.1f%%\n", stats.SuccessRate*100)
	fmt.Fprintf(out, "Average URLs per submission: %.1f\n", stats.AverageURLCount)
	fmt.Fprintf(out, "Last successful submission: %s\n", last)
	if stats.LowSuccessRate {
		fmt.Fprintln(out, "WARNING: success rate is below the alert threshold")
	}
}

func printUsage(out io.Writer) {
	fmt.Fprintln(out, `IndexNow submission tool

USAGE:
    ./indexnow-go -domain example.com [OPTIONS]
    ./indexnow-go  # Uses environment variables and the optional config file

OPTIONS:
    -config string         YAML configuration file (env: INDEXNOW_CONFIG)
    -domain string         Site domain (env: INDEXNOW_SITE_DOMAIN)
    -sitemap string        Sitemap path or URL (default: public/sitemap.xml, env: INDEXNOW_SITE_SITEMAP)
    -file string           Submit URLs listed in a file, one per line
    -all                   Submit every URL, not only ones missing from earlier successful runs
    -dry-run               Show the batches that would be submitted
    -deployment-id string  Identifier recorded in the audit log (env: DEPLOYMENT_ID)
    -batch-size int        URLs per request, 1-10000 (default: 10000)
    -timeout int           Request timeout in milliseconds (default: 30000)
    -debug                 Enable debug logging (env: DEBUG)
    -help                  Show this help message

ENVIRONMENT VARIABLES:
    INDEXNOW_INDEXNOW_KEY           IndexNow key, 8-128 hex characters (required)
    INDEXNOW_INDEXNOW_KEY_LOCATION  Key file URL (default: https://<domain>/<key>.txt)
    INDEXNOW_INDEXNOW_ENDPOINT      API endpoint (default: https://api.indexnow.org/indexnow)
    INDEXNOW_AUDIT_DIR              Audit log directory (default: logs)
    INDEXNOW_METRICS_PUSHGATEWAY_URL  Push run metrics to a Prometheus Pushgateway

EXIT CODES:
    0  every batch was accepted (or nothing to submit)
    1  configuration error, collection error or at least one failed batch`)
}
