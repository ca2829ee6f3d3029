// Package config loads run configuration from YAML, .env and environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"customer-rfm-lab/internal/campaign"
)

// Source kinds.
const (
	SourceCSV        = "csv"
	SourcePostgres   = "postgres"
	SourceClickhouse = "clickhouse"
	SourceMySQL      = "mysql"
	SourceFixtures   = "fixtures"
)

// ReferenceDateLayout is the format of reference_date.
const ReferenceDateLayout = "2006-01-02"

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all settings of a segmentation run.
type Config struct {
	Source        SourceConfig        `yaml:"source"`
	ReferenceDate string              `yaml:"reference_date"` // YYYY-MM-DD, empty = today (UTC)
	Output        OutputConfig        `yaml:"output"`
	Campaigns     []campaign.Campaign `yaml:"campaigns"`
	Ingest        IngestConfig        `yaml:"ingest"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// SourceConfig selects where customer-order records are read from.
type SourceConfig struct {
	Kind          string `yaml:"kind"`
	Path          string `yaml:"path"`
	Delimiter     string `yaml:"delimiter"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
	MySQLDSN      string `yaml:"mysql_dsn"`
}

// OutputConfig names the run artifacts. File names are resolved against Dir
// unless absolute or s3:// URLs.
type OutputConfig struct {
	Dir         string `yaml:"dir"`
	ReportFile  string `yaml:"report_file"`
	ScoresFile  string `yaml:"scores_file"`
	MetricsFile string `yaml:"metrics_file"` // empty disables the textfile export
	S3Region    string `yaml:"s3_region"`
}

// IngestConfig controls bulk loading into a database.
type IngestConfig struct {
	BatchSize int `yaml:"batch_size"`
}

// LoggingConfig configures logrus.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// A .env file in the working directory is loaded first if present.
// An empty path starts from defaults.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = Load(path); err != nil {
			return nil, err
		}
	}

	envOverride(&cfg.Source.Kind, "RFM_SOURCE")
	envOverride(&cfg.Source.Path, "RFM_INPUT_PATH")
	envOverride(&cfg.Source.PostgresDSN, "RFM_POSTGRES_DSN")
	envOverride(&cfg.Source.ClickhouseDSN, "RFM_CLICKHOUSE_DSN")
	envOverride(&cfg.Source.MySQLDSN, "RFM_MYSQL_DSN")
	envOverride(&cfg.ReferenceDate, "RFM_REFERENCE_DATE")
	envOverride(&cfg.Output.Dir, "RFM_OUTPUT_DIR")
	envOverride(&cfg.Output.MetricsFile, "RFM_METRICS_FILE")
	envOverride(&cfg.Output.S3Region, "RFM_S3_REGION")
	envOverride(&cfg.Logging.Level, "RFM_LOG_LEVEL")
	envOverride(&cfg.Logging.Format, "RFM_LOG_FORMAT")
	if err := envOverrideInt(&cfg.Ingest.BatchSize, "RFM_INGEST_BATCH_SIZE"); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Source.Kind == "" {
		c.Source.Kind = SourceCSV
	}
	if c.Source.Path == "" {
		c.Source.Path = "flo_data_20k.csv"
	}
	if c.Source.Delimiter == "" {
		c.Source.Delimiter = ","
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "output"
	}
	if c.Output.ReportFile == "" {
		c.Output.ReportFile = "RFM_REPORT.md"
	}
	if c.Output.ScoresFile == "" {
		c.Output.ScoresFile = "rfm_scores.csv"
	}
	if len(c.Campaigns) == 0 {
		c.Campaigns = campaign.DefaultCampaigns()
	}
	if c.Ingest.BatchSize == 0 {
		c.Ingest.BatchSize = 1000
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks the settings needed by the selected source.
func (c *Config) Validate() error {
	switch c.Source.Kind {
	case SourceCSV:
		if c.Source.Path == "" {
			return fmt.Errorf("%w: source.path is required for csv", ErrInvalidConfig)
		}
		if len([]rune(c.Source.Delimiter)) != 1 {
			return fmt.Errorf("%w: source.delimiter must be a single character", ErrInvalidConfig)
		}
	case SourcePostgres:
		if c.Source.PostgresDSN == "" {
			return fmt.Errorf("%w: source.postgres_dsn is required", ErrInvalidConfig)
		}
	case SourceClickhouse:
		if c.Source.ClickhouseDSN == "" {
			return fmt.Errorf("%w: source.clickhouse_dsn is required", ErrInvalidConfig)
		}
	case SourceMySQL:
		if c.Source.MySQLDSN == "" {
			return fmt.Errorf("%w: source.mysql_dsn is required", ErrInvalidConfig)
		}
	case SourceFixtures:
	default:
		return fmt.Errorf("%w: unknown source kind %q", ErrInvalidConfig, c.Source.Kind)
	}

	if c.ReferenceDate != "" {
		if _, err := time.Parse(ReferenceDateLayout, c.ReferenceDate); err != nil {
			return fmt.Errorf("%w: reference_date %q is not YYYY-MM-DD", ErrInvalidConfig, c.ReferenceDate)
		}
	}
	if c.Ingest.BatchSize < 1 {
		return fmt.Errorf("%w: ingest.batch_size must be positive", ErrInvalidConfig)
	}

	for _, camp := range c.Campaigns {
		if err := camp.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	if c.Output.ReportFile != "" && c.Output.ReportFile == c.Output.ScoresFile {
		return fmt.Errorf("%w: output.report_file and output.scores_file are both %q", ErrInvalidConfig, c.Output.ReportFile)
	}
	if err := campaign.CheckOutputs(c.Campaigns, c.Output.ReportFile, c.Output.ScoresFile); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// DSN returns the connection string of the selected database source,
// or "" for file and fixture sources.
func (s SourceConfig) DSN() string {
	switch s.Kind {
	case SourcePostgres:
		return s.PostgresDSN
	case SourceClickhouse:
		return s.ClickhouseDSN
	case SourceMySQL:
		return s.MySQLDSN
	}
	return ""
}

// IsDatabase reports whether the source kind is a database.
func (s SourceConfig) IsDatabase() bool {
	return s.Kind == SourcePostgres || s.Kind == SourceClickhouse || s.Kind == SourceMySQL
}

// Comma returns the CSV delimiter as a rune.
func (c *Config) Comma() rune {
	for _, r := range c.Source.Delimiter {
		return r
	}
	return ','
}

// Reference resolves the reference date. An empty setting means the last
// instant of now's UTC calendar day, so orders timestamped earlier today count
// as Recency 0. Whole-day recency of date-only orders is the same as from midnight.
func (c *Config) Reference(now time.Time) (time.Time, error) {
	if c.ReferenceDate == "" {
		now = now.UTC()
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		return start.Add(24*time.Hour - time.Nanosecond), nil
	}
	t, err := time.ParseInLocation(ReferenceDateLayout, c.ReferenceDate, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: reference_date %q: %v", ErrInvalidConfig, c.ReferenceDate, err)
	}
	return t, nil
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, envKey, val, err)
		}
		*field = parsed
	}
	return nil
}
