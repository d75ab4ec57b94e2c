package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"quandlfetcher/internal/fetcher"
	"quandlfetcher/internal/pager"
)

// MaxPerPage is the largest page size the datatables API accepts.
const MaxPerPage = 10000

// QueryConfig is one saved invocation for batch runs.
type QueryConfig struct {
	Key     string `mapstructure:"key"`
	Variant string `mapstructure:"variant"`
	// Params are the positional parameters, as a JSON array would give them.
	Params []interface{} `mapstructure:"params"`
}

// Config holds all configuration for quandlfetcher.
type Config struct {
	// API credential; its absence is handled per entry point
	APIKey string `mapstructure:"api_key"`

	// Base URL of the API (configurable for testing)
	BaseURL string `mapstructure:"base_url"`

	// Pagination
	PerPage  int  `mapstructure:"per_page"`
	MaxPages int  `mapstructure:"max_pages"`
	RowLimit int  `mapstructure:"row_limit"`
	Stream   bool `mapstructure:"stream"`

	// Retry and pacing
	RetryCount        int           `mapstructure:"retry_count"`
	RetryWait         time.Duration `mapstructure:"retry_wait"`
	RetryMaxWait      time.Duration `mapstructure:"retry_max_wait"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`

	// Overrides RequestsPerSecond for the datatables endpoints when positive
	DatatablesRequestsPerSecond float64 `mapstructure:"datatables_requests_per_second"`

	// Saved invocations for the batch command
	Queries []QueryConfig `mapstructure:"queries"`
}

// Load reads configuration from environment variables and an optional config
// file. Environment variables take precedence over config file values.
//
// Environment variables:
//   - QUANDL_API_KEY
//   - QUANDL_BASE_URL (optional, defaults to production)
//   - QUANDL_PER_PAGE, QUANDL_MAX_PAGES, QUANDL_ROW_LIMIT, QUANDL_STREAM
//   - QUANDL_RETRY_COUNT, QUANDL_RETRY_WAIT, QUANDL_RETRY_MAX_WAIT
//   - QUANDL_REQUESTS_PER_SECOND, QUANDL_DATATABLES_REQUESTS_PER_SECOND
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches
// ./config.yaml and $HOME/.quandlfetcher/config.yaml and ignores their absence.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("quandl")
	v.AutomaticEnv()

	v.SetDefault("base_url", "https://www.quandl.com/api/v3")
	v.SetDefault("per_page", MaxPerPage)
	v.SetDefault("max_pages", 10)
	v.SetDefault("row_limit", 0)
	v.SetDefault("stream", false)
	retry := fetcher.DefaultRetryPolicy()
	v.SetDefault("retry_count", retry.Count)
	v.SetDefault("retry_wait", retry.WaitTime)
	v.SetDefault("retry_max_wait", retry.MaxWaitTime)
	v.SetDefault("requests_per_second", 0)
	v.SetDefault("datatables_requests_per_second", 0)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.quandlfetcher")

		// Read config file (ignore if not found)
		_ = v.ReadInConfig()
	}

	v.BindEnv("api_key", "QUANDL_API_KEY")
	v.BindEnv("base_url", "QUANDL_BASE_URL")
	v.BindEnv("per_page", "QUANDL_PER_PAGE")
	v.BindEnv("max_pages", "QUANDL_MAX_PAGES")
	v.BindEnv("row_limit", "QUANDL_ROW_LIMIT")
	v.BindEnv("stream", "QUANDL_STREAM")
	v.BindEnv("retry_count", "QUANDL_RETRY_COUNT")
	v.BindEnv("retry_wait", "QUANDL_RETRY_WAIT")
	v.BindEnv("retry_max_wait", "QUANDL_RETRY_MAX_WAIT")
	v.BindEnv("requests_per_second", "QUANDL_REQUESTS_PER_SECOND")
	v.BindEnv("datatables_requests_per_second", "QUANDL_DATATABLES_REQUESTS_PER_SECOND")

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate reports every out-of-range setting at once.
func (c *Config) Validate() error {
	var problems []string
	if c.BaseURL == "" {
		problems = append(problems, "QUANDL_BASE_URL must not be empty")
	}
	if c.PerPage < 1 || c.PerPage > MaxPerPage {
		problems = append(problems, fmt.Sprintf("QUANDL_PER_PAGE must be between 1 and %d", MaxPerPage))
	}
	if c.MaxPages < pager.NoLimit {
		problems = append(problems, "QUANDL_MAX_PAGES must be -1 or more")
	}
	if c.RowLimit < pager.NoLimit {
		problems = append(problems, "QUANDL_ROW_LIMIT must be -1 or more")
	}
	if c.RetryCount < 0 {
		problems = append(problems, "QUANDL_RETRY_COUNT must not be negative")
	}
	if c.RetryWait < 0 || c.RetryMaxWait < 0 {
		problems = append(problems, "retry waits must not be negative")
	}
	if c.RequestsPerSecond < 0 {
		problems = append(problems, "QUANDL_REQUESTS_PER_SECOND must not be negative")
	}
	if c.DatatablesRequestsPerSecond < 0 {
		problems = append(problems, "QUANDL_DATATABLES_REQUESTS_PER_SECOND must not be negative")
	}
	for i, q := range c.Queries {
		if q.Variant == "" {
			problems = append(problems, fmt.Sprintf("queries[%d]: missing variant", i))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, ", "))
	}
	return nil
}

// RetryPolicy returns the configured retry policy.
func (c *Config) RetryPolicy() fetcher.RetryPolicy {
	return fetcher.RetryPolicy{
		Count:       c.RetryCount,
		WaitTime:    c.RetryWait,
		MaxWaitTime: c.RetryMaxWait,
	}
}

// Limits returns the configured pagination ceilings.
func (c *Config) Limits() pager.Limits {
	return pager.Limits{MaxPages: c.MaxPages, MaxRows: c.RowLimit}
}

// Mode returns the configured delivery mode.
func (c *Config) Mode() pager.Mode {
	if c.Stream {
		return pager.ModeLazy
	}
	return pager.ModeEager
}
