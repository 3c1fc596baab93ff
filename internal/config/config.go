// Package config holds all frameplay configuration: the viewer session, the
// playback schedule, the shard naming contract, and the capture pipeline.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where frameplay looks for its config file.
const DefaultPath = ".frameplay/config.yaml"

// Config holds all frameplay configuration.
type Config struct {
	Viewer   ViewerConfig   `yaml:"viewer"`
	Playback PlaybackConfig `yaml:"playback"`
	Dedup    DedupConfig    `yaml:"dedup"`
	Capture  CaptureConfig  `yaml:"capture"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ViewerConfig configures the browser session hosting the metrics viewer.
type ViewerConfig struct {
	URL            string `yaml:"url"`
	FilterSelector string `yaml:"filter_selector"`

	// DebuggerURL attaches to a running browser instead of launching one.
	DebuggerURL string `yaml:"debugger_url"`

	// Launch is the browser binary plus extra flags when launching.
	Launch []string `yaml:"launch"`

	Headless          bool   `yaml:"headless"`
	ViewportWidth     int    `yaml:"viewport_width"`
	ViewportHeight    int    `yaml:"viewport_height"`
	NavigationTimeout string `yaml:"navigation_timeout"`
	ElementTimeout    string `yaml:"element_timeout"`
}

// PlaybackConfig configures the frame schedule.
type PlaybackConfig struct {
	StartFrame   int    `yaml:"start_frame"`
	EndFrame     int    `yaml:"end_frame"`
	TickInterval string `yaml:"tick_interval"`
}

// DedupConfig configures the shard renaming pass.
type DedupConfig struct {
	Root             string `yaml:"root"`
	TransientPattern string `yaml:"transient_pattern"`
	CanonicalFormat  string `yaml:"canonical_format"`
}

// CaptureConfig configures the recording pipeline.
type CaptureConfig struct {
	OutDir       string `yaml:"out_dir"`
	SettleDelay  string `yaml:"settle_delay"`
	FullPage     bool   `yaml:"full_page"`
	Archive      string `yaml:"archive"`
	ManifestPath string `yaml:"manifest_path"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the defaults matching the original pipeline: the
// viewer on its standard local port, the stock filter placeholder selector,
// and the 43..6571 frame range at five frames per second.
func DefaultConfig() *Config {
	return &Config{
		Viewer: ViewerConfig{
			URL:               "http://localhost:6006/",
			FilterSelector:    `input[placeholder="Filter tags (regex)"]`,
			Headless:          false,
			ViewportWidth:     1920,
			ViewportHeight:    1080,
			NavigationTimeout: "30s",
			ElementTimeout:    "10s",
		},
		Playback: PlaybackConfig{
			StartFrame:   43,
			EndFrame:     6571,
			TickInterval: "200ms",
		},
		Dedup: DedupConfig{
			Root:             ".",
			TransientPattern: `^events\.out\.tfevents\.\d+\.`,
			CanonicalFormat:  "events.out.tfevents.%s.v2",
		},
		Capture: CaptureConfig{
			OutDir:       "frames_rendered",
			SettleDelay:  "500ms",
			FullPage:     false,
			ManifestPath: ".frameplay/capture.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file, returning defaults when the
// file does not exist. Environment variables override file values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies FRAMEPLAY_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if url := os.Getenv("FRAMEPLAY_VIEWER_URL"); url != "" {
		c.Viewer.URL = url
	}
	if url := os.Getenv("FRAMEPLAY_DEBUGGER_URL"); url != "" {
		c.Viewer.DebuggerURL = url
	}
	if sel := os.Getenv("FRAMEPLAY_FILTER_SELECTOR"); sel != "" {
		c.Viewer.FilterSelector = sel
	}
	if v := os.Getenv("FRAMEPLAY_HEADLESS"); v != "" {
		if headless, err := strconv.ParseBool(v); err == nil {
			c.Viewer.Headless = headless
		}
	}
	if path := os.Getenv("FRAMEPLAY_MANIFEST"); path != "" {
		c.Capture.ManifestPath = path
	}
	if root := os.Getenv("FRAMEPLAY_DEDUP_ROOT"); root != "" {
		c.Dedup.Root = root
	}
}

// GetTickInterval returns the playback tick interval.
func (c *Config) GetTickInterval() time.Duration {
	return parseDuration(c.Playback.TickInterval, 200*time.Millisecond)
}

// GetSettleDelay returns the pre-screenshot settle delay.
func (c *Config) GetSettleDelay() time.Duration {
	return parseDuration(c.Capture.SettleDelay, 500*time.Millisecond)
}

// GetNavigationTimeout returns the page navigation timeout.
func (c *Config) GetNavigationTimeout() time.Duration {
	return parseDuration(c.Viewer.NavigationTimeout, 30*time.Second)
}

// GetElementTimeout returns the filter-control lookup timeout.
func (c *Config) GetElementTimeout() time.Duration {
	return parseDuration(c.Viewer.ElementTimeout, 10*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// Validate checks the parts that have no sensible fallback. An inverted
// frame range is not an error; it plays zero frames.
func (c *Config) Validate() error {
	if c.Viewer.URL == "" {
		return fmt.Errorf("viewer url not configured")
	}
	if c.Viewer.FilterSelector == "" {
		return fmt.Errorf("viewer filter_selector not configured")
	}
	if c.GetTickInterval() < 0 {
		return fmt.Errorf("tick_interval must not be negative")
	}
	return nil
}
