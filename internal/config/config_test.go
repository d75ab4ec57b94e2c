package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"quandlfetcher/internal/pager"
)

// isolate keeps a developer's own config file out of the test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
}

func TestLoad_Success(t *testing.T) {
	isolate(t)
	envVars := map[string]string{
		"QUANDL_API_KEY":                        "test_key",
		"QUANDL_BASE_URL":                       "https://test.quandl.local/api/v3",
		"QUANDL_PER_PAGE":                       "500",
		"QUANDL_MAX_PAGES":                      "-1",
		"QUANDL_ROW_LIMIT":                      "250",
		"QUANDL_STREAM":                         "true",
		"QUANDL_RETRY_COUNT":                    "5",
		"QUANDL_RETRY_WAIT":                     "10ms",
		"QUANDL_RETRY_MAX_WAIT":                 "2s",
		"QUANDL_REQUESTS_PER_SECOND":            "2.5",
		"QUANDL_DATATABLES_REQUESTS_PER_SECOND": "0.5",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.APIKey != "test_key" {
		t.Errorf("APIKey = %q, want test_key", cfg.APIKey)
	}
	if cfg.BaseURL != "https://test.quandl.local/api/v3" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.PerPage != 500 {
		t.Errorf("PerPage = %d, want 500", cfg.PerPage)
	}
	if got := cfg.Limits(); got != (pager.Limits{MaxPages: pager.NoLimit, MaxRows: 250}) {
		t.Errorf("Limits() = %+v", got)
	}
	if cfg.Mode() != pager.ModeLazy {
		t.Errorf("Mode() = %v, want lazy", cfg.Mode())
	}
	policy := cfg.RetryPolicy()
	if policy.Count != 5 || policy.WaitTime != 10*time.Millisecond || policy.MaxWaitTime != 2*time.Second {
		t.Errorf("RetryPolicy() = %+v", policy)
	}
	if cfg.RequestsPerSecond != 2.5 {
		t.Errorf("RequestsPerSecond = %v, want 2.5", cfg.RequestsPerSecond)
	}
	if cfg.DatatablesRequestsPerSecond != 0.5 {
		t.Errorf("DatatablesRequestsPerSecond = %v, want 0.5", cfg.DatatablesRequestsPerSecond)
	}
}

func TestLoad_WithDefaults(t *testing.T) {
	isolate(t)
	t.Setenv("QUANDL_API_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	tests := []struct {
		name     string
		got      any
		expected any
	}{
		{"APIKey", cfg.APIKey, ""},
		{"BaseURL", cfg.BaseURL, "https://www.quandl.com/api/v3"},
		{"PerPage", cfg.PerPage, 10000},
		{"MaxPages", cfg.MaxPages, 10},
		{"RowLimit", cfg.RowLimit, 0},
		{"Stream", cfg.Stream, false},
		{"RetryCount", cfg.RetryCount, 3},
		{"RetryWait", cfg.RetryWait, 300 * time.Millisecond},
		{"RetryMaxWait", cfg.RetryMaxWait, 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.expected)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	isolate(t)
	t.Setenv("QUANDL_MAX_PAGES", "3")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `api_key: file_key
max_pages: 7
queries:
  - key: sf3
    variant: table
    params: ["SHARADAR/SF3", "ticker,value", "ticker=AAPL"]
  - variant: series
    params: ["WIKI/AAPL", "close", "2019-09-01", 43737]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() returned unexpected error: %v", err)
	}
	if cfg.APIKey != "file_key" {
		t.Errorf("APIKey = %q, want file_key", cfg.APIKey)
	}
	if cfg.MaxPages != 3 {
		t.Errorf("MaxPages = %d, want the environment's 3", cfg.MaxPages)
	}
	if len(cfg.Queries) != 2 {
		t.Fatalf("Queries = %d, want 2", len(cfg.Queries))
	}
	if q := cfg.Queries[0]; q.Key != "sf3" || q.Variant != "table" || len(q.Params) != 3 {
		t.Errorf("Queries[0] = %+v", q)
	}
	if q := cfg.Queries[1]; q.Key != "" || len(q.Params) != 4 {
		t.Errorf("Queries[1] = %+v", q)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	isolate(t)
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("LoadFile() expected error for a missing file, got nil")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		env   string
		value string
		want  string
	}{
		{"QUANDL_PER_PAGE", "0", "QUANDL_PER_PAGE"},
		{"QUANDL_PER_PAGE", "10001", "QUANDL_PER_PAGE"},
		{"QUANDL_MAX_PAGES", "-2", "QUANDL_MAX_PAGES"},
		{"QUANDL_RETRY_COUNT", "-1", "QUANDL_RETRY_COUNT"},
		{"QUANDL_REQUESTS_PER_SECOND", "-1", "QUANDL_REQUESTS_PER_SECOND"},
		{"QUANDL_DATATABLES_REQUESTS_PER_SECOND", "-1", "QUANDL_DATATABLES_REQUESTS_PER_SECOND"},
	}

	for _, tt := range tests {
		t.Run(tt.env+"="+tt.value, func(t *testing.T) {
			isolate(t)
			t.Setenv(tt.env, tt.value)

			_, err := Load()
			if err == nil {
				t.Fatal("Load() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := &Config{
		BaseURL: "",
		PerPage: 0,
		Queries: []QueryConfig{{Key: "x"}},
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error, got nil")
	}
	for _, want := range []string{"QUANDL_BASE_URL", "QUANDL_PER_PAGE", "queries[0]: missing variant"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error = %v, missing %q", err, want)
		}
	}
}
