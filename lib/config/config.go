// Package config loads the hxpage.yaml file of an application.
//
// Environment variables are expanded in the file (${SENTRY_DSN}); .env and
// .env.local files are loaded into the environment first, without
// overriding variables that are already set.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file looked up when none is given.
const DefaultPath = "hxpage.yaml"

// ErrInvalid is wrapped by validation errors.
var ErrInvalid = errors.New("config: invalid configuration")

// Config is the application configuration.
type Config struct {
	BaseURL       string `yaml:"base_url"`
	Production    bool   `yaml:"production"`
	ClientRouting bool   `yaml:"client_routing"`
	Addr          string `yaml:"addr"`

	// OutDir receives prerendered artifacts unless S3 is configured.
	OutDir string `yaml:"out_dir"`
	// IndexKey signs the prerender index. Empty disables signing.
	IndexKey string `yaml:"index_key"`

	Log     LogConfig     `yaml:"log"`
	Sentry  SentryConfig  `yaml:"sentry"`
	S3      S3Config      `yaml:"s3"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SentryConfig configures error reporting.
type SentryConfig struct {
	DSN         string `yaml:"dsn"`
	Environment string `yaml:"environment"`
}

// S3Config configures the S3 artifact store. It is enabled when Bucket is
// set.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Prefix    string `yaml:"prefix"`
	PathStyle bool   `yaml:"path_style"`
}

// Enabled reports whether artifacts go to S3.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// MetricsConfig configures the Prometheus endpoint of the serve command.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns the configuration used when there is no file.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads the configuration at path. An empty path reads DefaultPath
// when it exists, and returns the defaults otherwise.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	if path == "" {
		if _, err := os.Stat(DefaultPath); err != nil {
			return Default(), nil
		}
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses YAML configuration, expanding environment variables.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var c Config
	if err := yaml.Unmarshal([]byte(expanded), &c); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "/"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.OutDir == "" {
		c.OutDir = "dist"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Sentry.Environment == "" {
		c.Sentry.Environment = "development"
		if c.Production {
			c.Sentry.Environment = "production"
		}
	}
	if c.S3.Region == "" {
		c.S3.Region = "us-east-1"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	var errs []error
	if !strings.HasPrefix(c.BaseURL, "/") || strings.ContainsAny(c.BaseURL, "?#") {
		errs = append(errs, fmt.Errorf("%w: base_url should be a pathname starting with /, got %q", ErrInvalid, c.BaseURL))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("%w: log.format should be json or text, got %q", ErrInvalid, c.Log.Format))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("%w: unknown log.level %q", ErrInvalid, c.Log.Level))
	}
	if c.S3.Enabled() && (c.S3.AccessKey == "") != (c.S3.SecretKey == "") {
		errs = append(errs, fmt.Errorf("%w: s3.access_key and s3.secret_key must be set together", ErrInvalid))
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("%w: metrics.path should start with /, got %q", ErrInvalid, c.Metrics.Path))
	}
	return errors.Join(errs...)
}

// loadEnvFiles loads .env and .env.local when present. godotenv.Load
// never overrides variables that are already set.
func loadEnvFiles() {
	for _, name := range []string{".env.local", ".env"} {
		if _, err := os.Stat(name); err == nil {
			if err := godotenv.Load(name); err != nil {
				fmt.Fprintf(os.Stderr, "config: load %s: %v\n", name, err)
			}
		}
	}
}
