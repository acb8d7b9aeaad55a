/*
PURPOSE:
  Defines the configuration structure and loading logic for the page cycler.
  Adheres to "Config IS Code" philosophy.

REQUIREMENTS:
  User-specified:
  - Configure the page set, repeat counts, cold-load percentage, optional
    metrics (object stats, speed index) and timeouts.
  - Page-set repeat defaults to 10 iterations.

  Implementation-discovered:
  - Needs to support YAML parsing.
  - Repeats may be bounded by time instead of count (*_secs fields); this
    is what makes cold-load scheduling impossible.
  - Unset vs zero matters for cold_load_percent and discard_first_result,
    hence pointer fields.

ARCHITECTURE INTEGRATION:
  - Used by: internal/cli, internal/engine
  - Dependencies: gopkg.in/yaml.v3, internal/schedule (validation)

ERROR HANDLING:
  - Returns explicit error if config file is invalid.
  - Missing default config file falls back to defaults.
  - Validate() returns *schedule.ConfigurationError for schedule problems.

IMPLEMENTATION RULES:
  - Config struct tags should support yaml.
  - Defaults should be sensible (e.g., 60s load timeout).

USAGE:
  cfg, err := config.Load("page_cycler.yaml")

SELF-HEALING INSTRUCTIONS:
  - If new fields are needed, add to Config struct and update DefaultConfig().

RELATED FILES:
  - internal/cli/run.go
  - internal/schedule/schedule.go

MAINTENANCE:
  - Update when adding new tuning parameters.
*/

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/daryltucker/page-cycler/internal/schedule"
)

// Page is one entry of the page set.
type Page struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name,omitempty"`
}

// BrowserConfig controls how the browser under test is launched.
type BrowserConfig struct {
	Bin         string   `yaml:"bin"`
	Headless    bool     `yaml:"headless"`
	UserDataDir string   `yaml:"user_data_dir"`
	ExtraArgs   []string `yaml:"extra_args"`
}

// Config represents the full configuration for the page cycler.
type Config struct {
	Pages []Page `yaml:"pages"`
	// ServeDir, if set, is served over loopback HTTP and relative page URLs resolve against it.
	ServeDir string `yaml:"serve_dir"`
	// InitialURL is loaded once before the first measured page. Empty means a
	// missing page on the page-set server when serve_dir is set, else about:blank.
	InitialURL string `yaml:"initial_url"`

	PageSetRepeat     int   `yaml:"pageset_repeat"`
	PageRepeat        int   `yaml:"page_repeat"`
	PageSetRepeatSecs int   `yaml:"pageset_repeat_secs"`
	PageRepeatSecs    int   `yaml:"page_repeat_secs"`
	PageSetShuffle    bool  `yaml:"pageset_shuffle"`
	ShuffleSeed       int64 `yaml:"shuffle_seed"` // 0 picks a time-based seed

	ColdLoadPercent    *int  `yaml:"cold_load_percent"`
	DiscardFirstResult *bool `yaml:"discard_first_result"`

	ObjectStats      bool `yaml:"object_stats"`
	ReportSpeedIndex bool `yaml:"report_speed_index"`
	ProcessMetrics   bool `yaml:"process_metrics"`

	LoadTimeout  time.Duration `yaml:"load_timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`

	Browser BrowserConfig `yaml:"browser"`

	OutputDir          string `yaml:"output_dir"`
	OutputFile         string `yaml:"output_file"`
	JSONFile           string `yaml:"json_file"`
	PrometheusTextfile string `yaml:"prometheus_textfile"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		PageSetRepeat:  10,
		PageRepeat:     1,
		ProcessMetrics: true,
		LoadTimeout:    60 * time.Second,
		PollInterval:   100 * time.Millisecond,
		Browser: BrowserConfig{
			Headless: true,
		},
		OutputDir:  ".",
		OutputFile: "page_cycler_results.csv",
		JSONFile:   "page_cycler_results.jsonl",
	}
}

// Load reads configuration from a file.
// If path is specified, it attempts to load that file.
// If path is empty, it searches for default files in order.
// If no file found, returns default config.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	var data []byte
	var err error

	if path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
	} else {
		defaults := []string{"page_cycler.yaml", "cycler.yaml"}
		found := false
		for _, name := range defaults {
			data, err = os.ReadFile(name)
			if err == nil {
				path = name
				found = true
				break
			}
		}
		if !found {
			return cfg, nil
		}
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// TimedRepeat reports whether either repeat dimension is bounded by time.
func (c *Config) TimedRepeat() bool {
	return c.PageSetRepeatSecs > 0 || c.PageRepeatSecs > 0
}

// RunConfiguration extracts what the cold/warm schedule depends on.
func (c *Config) RunConfiguration() schedule.RunConfiguration {
	return schedule.RunConfiguration{
		PageSetRepeat:      c.PageSetRepeat,
		PageRepeat:         c.PageRepeat,
		ColdLoadPercent:    c.ColdLoadPercent,
		TimedRepeat:        c.TimedRepeat(),
		DiscardFirstResult: c.DiscardFirstResult,
	}
}

// Validate checks the configuration and derives the run schedule.
func (c *Config) Validate() (schedule.Schedule, error) {
	if len(c.Pages) == 0 {
		return schedule.Schedule{}, errors.New("no pages configured")
	}
	for i, p := range c.Pages {
		if p.URL == "" {
			return schedule.Schedule{}, fmt.Errorf("page %d has no url", i)
		}
	}
	if c.LoadTimeout <= 0 {
		return schedule.Schedule{}, fmt.Errorf("load_timeout must be positive, got %s", c.LoadTimeout)
	}
	if c.PollInterval <= 0 {
		return schedule.Schedule{}, fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.PageSetRepeatSecs < 0 || c.PageRepeatSecs < 0 {
		return schedule.Schedule{}, errors.New("repeat durations must not be negative")
	}
	return schedule.New(c.RunConfiguration())
}
