// Package config loads the YAML configuration shared by all sahm commands.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"sahm-rule-lab/internal/accuracy"
	"sahm-rule-lab/internal/signal"
)

// Environment variables that override secrets in the file.
const (
	EnvFREDAPIKey    = "FRED_API_KEY"
	EnvPostgresDSN   = "POSTGRES_DSN"
	EnvClickHouseDSN = "CLICKHOUSE_DSN"
	EnvRedisAddr     = "REDIS_ADDR"
)

// ErrUnknownLine is returned by Config.Line for an id not in lines.
var ErrUnknownLine = errors.New("unknown line")

var validate = validator.New()

// Config is the root of config.yaml.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	FRED       FREDConfig       `yaml:"fred"`
	Data       DataConfig       `yaml:"data"`
	Storage    StorageConfig    `yaml:"storage"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Lines      []Line           `yaml:"lines" validate:"dive"`
}

// LogConfig selects the zerolog level, encoding and destination.
type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"console" validate:"oneof=json console"`
	// Output is stdout, stderr or a file path.
	Output string `yaml:"output" default:"stderr" validate:"required"`
}

// EvaluationConfig holds the scoring policy. The windows and committee
// dates are fixed for a run and never vary per line. AlphaThreshold is the
// batch job threshold; lines carry their own.
type EvaluationConfig struct {
	AlphaThreshold      float64 `yaml:"alpha_threshold" default:"0.5"`
	AccuracyWindowDays  int     `yaml:"accuracy_window_days" default:"365" validate:"gt=0"`
	CommitteeWindowDays int     `yaml:"committee_window_days" default:"365" validate:"gt=0"`
	CommitteeDates      []Date  `yaml:"committee_dates" validate:"min=1"`
}

// SetDefaults fills the committee announcement dates of the NBER business
// cycle peaks when none are configured.
func (e *EvaluationConfig) SetDefaults() {
	if len(e.CommitteeDates) > 0 {
		return
	}
	for _, s := range []string{"1980-06-03", "1982-01-06", "1991-04-25", "2001-11-26", "2008-12-01", "2020-06-08"} {
		t, _ := time.Parse(time.DateOnly, s)
		e.CommitteeDates = append(e.CommitteeDates, Date{t})
	}
}

// Accuracy converts the section into an evaluator configuration.
func (e EvaluationConfig) Accuracy() accuracy.Config {
	dates := make([]time.Time, len(e.CommitteeDates))
	for i, d := range e.CommitteeDates {
		dates[i] = d.Time
	}
	return accuracy.Config{
		AccuracyWindowDays:  e.AccuracyWindowDays,
		CommitteeWindowDays: e.CommitteeWindowDays,
		CommitteeDates:      dates,
	}
}

// FREDConfig configures the FRED observations client.
type FREDConfig struct {
	BaseURL string `yaml:"base_url" default:"https://api.stlouisfed.org/fred" validate:"url"`
	// APIKey is normally supplied through FRED_API_KEY.
	APIKey string `yaml:"api_key"`
	// RateLimitDelay is the minimum spacing between requests.
	RateLimitDelay time.Duration `yaml:"rate_limit_delay" default:"1s" validate:"gte=0"`
	MaxRetries     int           `yaml:"max_retries" default:"3" validate:"gte=0"`
	Timeout        time.Duration `yaml:"timeout" default:"30s" validate:"gt=0"`
}

// DataConfig configures the county batch job.
type DataConfig struct {
	StartDate       Date   `yaml:"start_date"`
	ChunkRowSize    int    `yaml:"chunk_row_size" default:"150000" validate:"gt=0"`
	MaxRegions      int    `yaml:"max_regions" validate:"gte=0"` // 0 means all
	RegionsFile     string `yaml:"regions_file" default:"data/regions.csv" validate:"required"`
	OutputDir       string `yaml:"output_dir" default:"out" validate:"required"`
	RecessionSeries string `yaml:"recession_series" default:"USREC" validate:"required"`
}

// StorageConfig holds database locations. Empty DSNs disable the store.
type StorageConfig struct {
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickHouseDSN string `yaml:"clickhouse_dsn"`
	// RedisAddr enables the FRED response cache.
	RedisAddr string        `yaml:"redis_addr"`
	RedisDB   int           `yaml:"redis_db" validate:"gte=0"`
	CacheTTL  time.Duration `yaml:"cache_ttl" default:"24h" validate:"gt=0"`
}

// MetricsConfig configures the Prometheus endpoint. Empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads, defaults and validates the config file at path, then
// applies environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML document into a validated Config.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config with every default applied and no lines.
func Default() *Config {
	cfg := &Config{}
	_ = defaults.Set(cfg)
	cfg.applyEnv()
	return cfg
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvFREDAPIKey); v != "" {
		c.FRED.APIKey = v
	}
	if v := os.Getenv(EnvPostgresDSN); v != "" {
		c.Storage.PostgresDSN = v
	}
	if v := os.Getenv(EnvClickHouseDSN); v != "" {
		c.Storage.ClickHouseDSN = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		c.Storage.RedisAddr = v
	}
}

// Validate checks struct constraints and line id uniqueness.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(c.Lines))
	for _, l := range c.Lines {
		if _, ok := seen[l.ID]; ok {
			return fmt.Errorf("duplicate line id %q", l.ID)
		}
		seen[l.ID] = struct{}{}
	}
	return nil
}

// Line returns the line with the given id.
func (c *Config) Line(id string) (Line, error) {
	for _, l := range c.Lines {
		if l.ID == id {
			return l, nil
		}
	}
	return Line{}, fmt.Errorf("%w: %s", ErrUnknownLine, id)
}

// SeriesIDs returns every distinct series referenced by lines, in first-seen order.
func (c *Config) SeriesIDs() []string {
	var ids []string
	seen := make(map[string]struct{})
	for _, l := range c.Lines {
		for _, id := range []string{l.Base, l.Relative, l.Recession} {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

// Line is one named analysis: which series to compare and how.
type Line struct {
	ID             string  `yaml:"id" validate:"required"`
	Name           string  `yaml:"name"`
	Base           string  `yaml:"base" validate:"required"`
	Relative       string  `yaml:"relative" validate:"required"`
	Recession      string  `yaml:"recession" default:"USREC" validate:"required"`
	K              int     `yaml:"k" default:"3" validate:"gte=1"`
	M              int     `yaml:"m" default:"3" validate:"gte=1"`
	TimePeriod     int     `yaml:"time_period" default:"12" validate:"gte=1"`
	Seasonal       bool    `yaml:"seasonal"`
	AlphaThreshold float64 `yaml:"alpha_threshold" default:"0.5"`
	NaturalRate    float64 `yaml:"natural_rate" validate:"gte=0"`
	Preceding      bool    `yaml:"preceding" default:"true"`
	StartDate      Date    `yaml:"start_date"`
}

// UnmarshalYAML applies the line defaults before decoding so that
// explicit zero values in the file win over them.
func (l *Line) UnmarshalYAML(value *yaml.Node) error {
	type plain Line
	p := plain{}
	if err := defaults.Set(&p); err != nil {
		return err
	}
	if err := value.Decode(&p); err != nil {
		return err
	}
	*l = Line(p)
	return nil
}

// Params converts the line into signal parameters.
func (l Line) Params() signal.Params {
	return signal.Params{
		K:           l.K,
		M:           l.M,
		TimePeriod:  l.TimePeriod,
		Seasonal:    l.Seasonal,
		NaturalRate: l.NaturalRate,
		Preceding:   l.Preceding,
	}
}

// Label returns Name, or ID when no name is set.
func (l Line) Label() string {
	if strings.TrimSpace(l.Name) != "" {
		return l.Name
	}
	return l.ID
}

// Date is a calendar date written as YYYY-MM-DD.
type Date struct {
	time.Time
}

// UnmarshalYAML parses a YYYY-MM-DD scalar.
func (d *Date) UnmarshalYAML(value *yaml.Node) error {
	if value.Value == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(time.DateOnly, value.Value)
	if err != nil {
		return fmt.Errorf("date %q: %w", value.Value, err)
	}
	d.Time = t
	return nil
}

// MarshalYAML renders the date as YYYY-MM-DD.
func (d Date) MarshalYAML() (interface{}, error) {
	if d.IsZero() {
		return "", nil
	}
	return d.Format(time.DateOnly), nil
}
