// Package main bulk-loads a customer-order CSV into a database table.
// Migrations are applied before loading.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"customer-rfm-lab/internal/config"
	"customer-rfm-lab/internal/ingestion"
	"customer-rfm-lab/internal/logging"
	"customer-rfm-lab/internal/observability"
	"customer-rfm-lab/internal/storage/backend"
)

// ErrNotDatabase is returned when the ingest target is not a database.
var ErrNotDatabase = errors.New("--target must be postgres, clickhouse or mysql")

// options holds command-line overrides. Empty values keep the config value.
type options struct {
	configPath    string
	input         string
	delimiter     string
	target        string
	postgresDSN   string
	clickhouseDSN string
	mysqlDSN      string
	batchSize     int
	noProgress    bool
	metricsFile   string
	logLevel      string
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "YAML config file (optional)")
	flag.StringVar(&opts.input, "input", "", "Input CSV path")
	flag.StringVar(&opts.delimiter, "delimiter", "", "Input CSV delimiter")
	flag.StringVar(&opts.target, "target", "", "Target database: postgres, clickhouse, mysql (default: config source.kind)")
	flag.StringVar(&opts.postgresDSN, "postgres-dsn", "", "PostgreSQL connection string")
	flag.StringVar(&opts.clickhouseDSN, "clickhouse-dsn", "", "ClickHouse connection string")
	flag.StringVar(&opts.mysqlDSN, "mysql-dsn", "", "MySQL/MariaDB connection string")
	flag.IntVar(&opts.batchSize, "batch-size", 0, "Records per insert batch")
	flag.BoolVar(&opts.noProgress, "no-progress", false, "Disable the progress bar")
	flag.StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile")
	flag.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.Parse()

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if err := logging.Setup(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	// Create context with cancellation for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var progress io.Writer = os.Stderr
	if opts.noProgress {
		progress = io.Discard
	}

	metrics := observability.NewMetrics("")
	err = run(ctx, cfg, metrics, progress)

	if cfg.Output.MetricsFile != "" {
		if werr := metrics.WriteTextfile(cfg.Output.MetricsFile); werr != nil {
			logrus.WithError(werr).Warn("failed to write metrics textfile")
		}
	}
	if err != nil {
		logrus.WithError(err).Error("ingest failed")
		stop()
		os.Exit(1)
	}
}

// loadConfig builds the ingest configuration from file, environment and flags.
func loadConfig(opts options) (*config.Config, error) {
	cfg, err := config.LoadFromEnv(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	applyFlags(cfg, opts)

	if !cfg.Source.IsDatabase() {
		return nil, fmt.Errorf("%w, got %q", ErrNotDatabase, cfg.Source.Kind)
	}
	if cfg.Source.Path == "" {
		return nil, fmt.Errorf("%w: --input is required", config.ErrInvalidConfig)
	}
	if len([]rune(cfg.Source.Delimiter)) != 1 {
		return nil, fmt.Errorf("%w: delimiter must be a single character", config.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlags(cfg *config.Config, opts options) {
	override(&cfg.Source.Path, opts.input)
	override(&cfg.Source.Delimiter, opts.delimiter)
	override(&cfg.Source.Kind, opts.target)
	override(&cfg.Source.PostgresDSN, opts.postgresDSN)
	override(&cfg.Source.ClickhouseDSN, opts.clickhouseDSN)
	override(&cfg.Source.MySQLDSN, opts.mysqlDSN)
	override(&cfg.Output.MetricsFile, opts.metricsFile)
	override(&cfg.Logging.Level, opts.logLevel)
	if opts.batchSize > 0 {
		cfg.Ingest.BatchSize = opts.batchSize
	}
}

func run(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, progress io.Writer) error {
	log := logrus.WithFields(logrus.Fields{"input": cfg.Source.Path, "database": cfg.Source.Kind})

	start := time.Now()
	records, err := ingestion.NewCSVSource(cfg.Source.Path).WithComma(cfg.Comma()).GetAll(ctx)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	metrics.RecordsLoaded.WithLabelValues(config.SourceCSV).Add(float64(len(records)))
	log.WithFields(logrus.Fields{"records": len(records), "duration": time.Since(start).String()}).Info("input parsed")

	b, err := backend.Open(ctx, cfg.Source.Kind, cfg.Source.DSN(), true)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			log.WithError(err).Warn("close database")
		}
	}()

	store := backend.Instrument(b.Store, metrics, b.Kind)
	existing, err := store.Count(ctx)
	if err != nil {
		return err
	}
	if existing > 0 {
		log.WithField("existing", existing).Warn("customer_orders is not empty, overlapping rows will be rejected")
	}

	_, err = ingestion.NewLoader(store, cfg.Ingest.BatchSize).
		WithProgress(progress).
		WithMetrics(metrics, b.Kind).
		WithLogger(log).
		Load(ctx, records)
	return err
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
