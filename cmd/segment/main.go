// Package main runs RFM segmentation over a customer-order dataset.
// Executes: load → aggregate → score → segment → campaigns → report
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"customer-rfm-lab/internal/config"
	"customer-rfm-lab/internal/domain"
	"customer-rfm-lab/internal/export"
	"customer-rfm-lab/internal/ingestion"
	"customer-rfm-lab/internal/logging"
	"customer-rfm-lab/internal/observability"
	"customer-rfm-lab/internal/pipeline"
	"customer-rfm-lab/internal/reporting"
	"customer-rfm-lab/internal/storage"
	"customer-rfm-lab/internal/storage/backend"
	"customer-rfm-lab/internal/storage/memory"
	"customer-rfm-lab/internal/verification"
)

// ErrScoresDiverge is returned when --verify-scores finds differences.
var ErrScoresDiverge = errors.New("scores diverge from stored export")

// options holds command-line overrides. Empty values keep the config value.
type options struct {
	configPath    string
	source        string
	input         string
	delimiter     string
	postgresDSN   string
	clickhouseDSN string
	mysqlDSN      string
	referenceDate string
	outputDir     string
	metricsFile   string
	s3Region      string
	logLevel      string
	logFormat     string
	verifyScores  string
	useFixtures   bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "YAML config file (optional)")
	flag.StringVar(&opts.source, "source", "", "Order source: csv, postgres, clickhouse, mysql, fixtures")
	flag.StringVar(&opts.input, "input", "", "Input CSV path")
	flag.StringVar(&opts.delimiter, "delimiter", "", "Input CSV delimiter")
	flag.StringVar(&opts.postgresDSN, "postgres-dsn", "", "PostgreSQL connection string")
	flag.StringVar(&opts.clickhouseDSN, "clickhouse-dsn", "", "ClickHouse connection string")
	flag.StringVar(&opts.mysqlDSN, "mysql-dsn", "", "MySQL/MariaDB connection string")
	flag.StringVar(&opts.referenceDate, "reference-date", "", "Reference date YYYY-MM-DD (default: today, UTC)")
	flag.StringVar(&opts.outputDir, "output-dir", "", "Output directory or s3://bucket/prefix")
	flag.StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile")
	flag.StringVar(&opts.s3Region, "s3-region", "", "AWS region for s3:// outputs")
	flag.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.StringVar(&opts.logFormat, "log-format", "", "Log format: text or json")
	flag.StringVar(&opts.verifyScores, "verify-scores", "", "Compare this run with a stored rfm_scores.csv")
	flag.BoolVar(&opts.useFixtures, "use-fixtures", false, "Run on the built-in fixture dataset")
	flag.Parse()

	// Create context with cancellation for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		logrus.WithError(err).Error("segmentation failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.LoadFromEnv(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFlags(cfg, opts)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := logging.Setup(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return err
	}

	reference, err := resolveReference(cfg)
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics("")

	source, closeSource, err := openSource(ctx, cfg, metrics)
	if err != nil {
		return err
	}
	defer closeSource()

	p := pipeline.NewPipeline(source, reference, cfg.Output.Dir).
		WithSink(export.NewWriter(cfg.Output.S3Region)).
		WithCampaigns(cfg.Campaigns).
		WithArtifactNames(cfg.Output.ReportFile, cfg.Output.ScoresFile).
		WithMetrics(metrics, cfg.Output.MetricsFile).
		WithLogger(logrus.StandardLogger()).
		WithDataSource(cfg.Source.Kind, replayCommand(cfg, reference))

	result, err := p.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Segmentation completed (run %s, reference date %s):\n",
		result.RunID, result.ReferenceDate.Format(config.ReferenceDateLayout))
	fmt.Printf("  Records: %d\n", result.Records)
	fmt.Printf("  Customers: %d\n", result.Customers)
	for _, t := range result.Targets {
		fmt.Printf("  %s: %d customers\n", t.Campaign.Name, len(t.CustomerIDs))
	}
	for _, a := range result.Artifacts {
		fmt.Printf("  - %s\n", a)
	}

	if opts.verifyScores != "" {
		return verifyScores(opts.verifyScores, result.Segmented)
	}
	return nil
}

// verifyScores compares the run with a stored scores export.
func verifyScores(path string, segmented []*domain.SegmentedCustomer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open stored scores: %w", err)
	}
	defer f.Close()

	stored, err := reporting.ReadScoresCSV(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	report := verification.Verify(stored, segmented)
	log := logrus.WithFields(logrus.Fields{
		"stored":     report.TotalCustomers,
		"matched":    report.MatchedCustomers,
		"divergent":  report.DivergentCustomers,
		"missing":    len(report.Missing),
		"unexpected": len(report.Unexpected),
	})
	if report.OK() {
		log.Info("scores verified")
		return nil
	}

	for _, r := range report.Results {
		for _, d := range r.Divergences {
			logrus.WithFields(logrus.Fields{
				"customer": r.CustomerID,
				"field":    d.Field,
				"expected": d.Expected,
				"actual":   d.Actual,
			}).Debug("score divergence")
		}
	}
	log.Error("scores diverge from stored export")
	return ErrScoresDiverge
}

func applyFlags(cfg *config.Config, opts options) {
	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&cfg.Source.Kind, opts.source)
	override(&cfg.Source.Path, opts.input)
	override(&cfg.Source.Delimiter, opts.delimiter)
	override(&cfg.Source.PostgresDSN, opts.postgresDSN)
	override(&cfg.Source.ClickhouseDSN, opts.clickhouseDSN)
	override(&cfg.Source.MySQLDSN, opts.mysqlDSN)
	override(&cfg.ReferenceDate, opts.referenceDate)
	override(&cfg.Output.Dir, opts.outputDir)
	override(&cfg.Output.MetricsFile, opts.metricsFile)
	override(&cfg.Output.S3Region, opts.s3Region)
	override(&cfg.Logging.Level, opts.logLevel)
	override(&cfg.Logging.Format, opts.logFormat)
	if opts.useFixtures {
		cfg.Source.Kind = config.SourceFixtures
	}
}

// resolveReference picks the reference date. Fixture runs default to the
// date the fixture dataset is built for.
func resolveReference(cfg *config.Config) (time.Time, error) {
	if cfg.Source.Kind == config.SourceFixtures && cfg.ReferenceDate == "" {
		return pipeline.FixtureReferenceDate, nil
	}
	return cfg.Reference(time.Now())
}

// openSource opens the configured order source. The returned func releases it.
func openSource(ctx context.Context, cfg *config.Config, m *observability.Metrics) (storage.CustomerOrderSource, func(), error) {
	noop := func() {}

	switch {
	case cfg.Source.Kind == config.SourceCSV:
		return ingestion.NewCSVSource(cfg.Source.Path).WithComma(cfg.Comma()), noop, nil

	case cfg.Source.Kind == config.SourceFixtures:
		store := memory.NewCustomerOrderStore()
		if err := pipeline.LoadFixtures(ctx, store); err != nil {
			return nil, nil, fmt.Errorf("load fixtures: %w", err)
		}
		return store, noop, nil

	case cfg.Source.IsDatabase():
		b, err := backend.Open(ctx, cfg.Source.Kind, cfg.Source.DSN(), false)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := b.Close(); err != nil {
				logrus.WithError(err).Warn("close database")
			}
		}
		return backend.Instrument(b.Store, m, b.Kind), closeFn, nil
	}

	return nil, nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
}

// replayCommand renders the command line that reproduces this run.
// DSNs are left out since they may carry credentials.
func replayCommand(cfg *config.Config, reference time.Time) string {
	args := []string{
		"go run ./cmd/segment",
		"--source " + cfg.Source.Kind,
		"--reference-date " + reference.Format(config.ReferenceDateLayout),
	}
	if cfg.Source.Kind == config.SourceCSV {
		args = append(args, "--input "+cfg.Source.Path)
	}
	args = append(args, "--output-dir "+cfg.Output.Dir)
	return strings.Join(args, " ")
}
