// Package config loads the foliobuilder configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/foliobuilder/internal/foundation/errors"
)

// DefaultFile is the configuration file looked up when none is given.
const DefaultFile = "foliobuilder.yaml"

// Config is the complete build configuration.
type Config struct {
	Root           string        `yaml:"root"`
	PublicDir      string        `yaml:"public_dir"`
	LiveName       string        `yaml:"live_name"`
	ManifestName   string        `yaml:"manifest_name"`
	HostnamesFile  string        `yaml:"hostnames_file"`
	ReportFile     string        `yaml:"report_file"`
	BuildLog       string        `yaml:"build_log"`
	LockName       string        `yaml:"lock_name"`
	SettleDelay    time.Duration `yaml:"settle_delay"`
	StaleLockAfter time.Duration `yaml:"stale_lock_after"`
	CopyWorkers    int           `yaml:"copy_workers"`
	IgnoreDirs     []string      `yaml:"ignore_dirs,omitempty"`
	DefaultDomain  string        `yaml:"default_domain"`
	URLPrefix      string        `yaml:"url_prefix"`

	History HistoryConfig `yaml:"history"`
	Metrics MetricsConfig `yaml:"metrics"`
	Notify  NotifyConfig  `yaml:"notify"`
	Watch   WatchConfig   `yaml:"watch"`
}

// HistoryConfig configures the build history store.
type HistoryConfig struct {
	Path string `yaml:"path"` // sqlite database; empty disables history
}

// MetricsConfig configures the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// NotifyConfig configures the publish notification.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// WatchConfig configures the watch command's rebuild triggers.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
	Interval time.Duration `yaml:"interval"` // zero disables interval rebuilds
}

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads the configuration at path. A missing file at the default path is
// not an error: the defaults are returned. Environment variables from .env and
// .env.local are loaded first without overriding the process environment.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	cfg := &Config{}
	if path == "" {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to parse config file").
				WithContext("file", path).
				Fatal().
				Build()
		}
	case os.IsNotExist(err) && filepath.Base(path) == DefaultFile:
	default:
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to read config file").
			WithContext("file", path).
			Fatal().
			Build()
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnvFiles() {
	for _, name := range []string{".env", ".env.local"} {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load %s: %v\n", name, err)
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Root == "" {
		c.Root = "Projects"
	}
	if c.PublicDir == "" {
		c.PublicDir = "public"
	}
	if c.LiveName == "" {
		c.LiveName = "projects"
	}
	if c.ManifestName == "" {
		c.ManifestName = "projects.json"
	}
	if c.HostnamesFile == "" {
		c.HostnamesFile = "image-hostnames.json"
	}
	if c.ReportFile == "" {
		c.ReportFile = "build-report.json"
	}
	if c.BuildLog == "" {
		c.BuildLog = "pre-build.log"
	}
	if c.LockName == "" {
		c.LockName = c.LiveName + "_build.lock"
	}
	if c.SettleDelay == 0 {
		c.SettleDelay = 2 * time.Second
	}
	if c.StaleLockAfter == 0 {
		c.StaleLockAfter = time.Hour
	}
	if c.CopyWorkers == 0 {
		c.CopyWorkers = 1
	}
	if c.DefaultDomain == "" {
		c.DefaultDomain = "Unknown Domain"
	}
	if c.URLPrefix == "" {
		c.URLPrefix = "/" + c.LiveName
	}
	if c.Notify.Subject == "" {
		c.Notify.Subject = "foliobuilder.published"
	}
	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = 500 * time.Millisecond
	}
}

// Validate checks values that defaults cannot repair.
func (c *Config) Validate() error {
	var problems []string
	for key, name := range map[string]string{
		"live_name":      c.LiveName,
		"manifest_name":  c.ManifestName,
		"hostnames_file": c.HostnamesFile,
		"report_file":    c.ReportFile,
		"build_log":      c.BuildLog,
		"lock_name":      c.LockName,
	} {
		if name != filepath.Base(name) || name == "." || name == ".." {
			problems = append(problems, fmt.Sprintf("%s %q must be a plain file name", key, name))
		}
	}
	if c.CopyWorkers < 0 {
		problems = append(problems, fmt.Sprintf("copy_workers must be positive, got %d", c.CopyWorkers))
	}
	if c.SettleDelay < 0 {
		problems = append(problems, "settle_delay must not be negative")
	}
	if c.StaleLockAfter < 0 {
		problems = append(problems, "stale_lock_after must not be negative")
	}
	if c.Watch.Interval < 0 || c.Watch.Debounce < 0 {
		problems = append(problems, "watch durations must not be negative")
	}
	if !strings.HasPrefix(c.URLPrefix, "/") {
		problems = append(problems, fmt.Sprintf("url_prefix %q must start with /", c.URLPrefix))
	}
	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return ferrors.ValidationError("invalid configuration: " + strings.Join(problems, "; ")).Build()
}

// LivePath is the path of the live directory.
func (c *Config) LivePath() string { return filepath.Join(c.PublicDir, c.LiveName) }

// PublicFile joins name onto the public directory.
func (c *Config) PublicFile(name string) string { return filepath.Join(c.PublicDir, name) }
