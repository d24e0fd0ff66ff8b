/*
Package configs is responsible for loading and parsing the client's configuration settings.

Settings come from operating system environment variables: the running environment, the chat
server endpoint, the declared identity, the optional local HTTP surface, logging and metrics
output, and the optional S3-compatible media storage used for image sharing.
*/
package configs

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// AppConfig contains all configuration parameters required for the client to run.
// All configuration values are loaded from environment variables.
type AppConfig struct {
	// General Settings
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	// Chat Server Settings
	ServerURL   string        `env:"CHAT_SERVER_URL" envDefault:"ws://127.0.0.1:8080"`
	Username    string        `env:"CHAT_USERNAME"`
	DialTimeout time.Duration `env:"CHAT_DIAL_TIMEOUT" envDefault:"10s"`

	// Local HTTP Surface Settings (disabled when HTTPAddr is empty)
	HTTPAddr       string   `env:"CHAT_HTTP_ADDR"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	// Observability Settings
	LogFile     string        `env:"CHAT_LOG_FILE"`
	MetricsTick time.Duration `env:"METRICS_TICK" envDefault:"60s"`

	// S3 Media Settings (media sharing is enabled only when all credentials are present)
	S3BucketName      string `env:"S3_BUCKET_NAME"`
	S3Endpoint        string `env:"S3_ENDPOINT"`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	S3PublicBaseURL   string `env:"S3_PUBLIC_BASE_URL"`
}

// LoadConfig reads and parses the client configuration from environment variables
// and validates the result. It returns a pointer to the AppConfig struct and any error encountered.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// normalize trims whitespace and drops empty origin entries.
func (c *AppConfig) normalize() {
	c.Username = strings.TrimSpace(c.Username)
	c.ServerURL = strings.TrimSpace(c.ServerURL)

	origins := make([]string, 0, len(c.AllowedOrigins))
	for _, origin := range c.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.AllowedOrigins = origins
}

// Validate checks the semantic constraints that env tags cannot express.
// The username is not checked here because the CLI may still supply it.
func (c *AppConfig) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("invalid CHAT_SERVER_URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("CHAT_SERVER_URL must use ws or wss scheme, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("CHAT_SERVER_URL %q has no host", c.ServerURL)
	}

	if c.DialTimeout <= 0 {
		return fmt.Errorf("CHAT_DIAL_TIMEOUT must be positive, got %s", c.DialTimeout)
	}

	if c.MetricsTick < 0 {
		return fmt.Errorf("METRICS_TICK must not be negative, got %s", c.MetricsTick)
	}

	return nil
}

// IsDevelopment reports whether the client runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// MediaEnabled reports whether every S3 setting required for uploads is present.
func (c *AppConfig) MediaEnabled() bool {
	return c.S3BucketName != "" &&
		c.S3Endpoint != "" &&
		c.S3AccessKeyID != "" &&
		c.S3SecretAccessKey != ""
}
