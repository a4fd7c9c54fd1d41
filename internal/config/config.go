package config

import (
	"fmt"
	"os"
	"time"
)

const (
	defaultServerPort = "8080"
	defaultUserAgent  = "GoodyTV/1.0"
	defaultTimeout    = 15 * time.Second
	defaultDataDir    = ".goodytv"
)

// Config holds application configuration. Only the server port has to be
// valid; every backing service is optional and falls back to an in-process
// implementation when unset.
type Config struct {
	ServerPort          string        `yaml:"server_port" env:"SERVER_PORT"`
	DatabaseURL         string        `yaml:"database_url" env:"DATABASE_URL"`
	RedisURL            string        `yaml:"redis_url" env:"REDIS_URL"`
	StripeWebhookSecret string        `yaml:"stripe_webhook_secret" env:"STRIPE_WEBHOOK_SECRET"`
	ResendAPIKey        string        `yaml:"resend_api_key" env:"RESEND_API_KEY"`
	EmailFrom           string        `yaml:"email_from" env:"EMAIL_FROM"`
	UserAgent           string        `yaml:"user_agent" env:"FETCHER_USER_AGENT"`
	Timeout             time.Duration `yaml:"timeout" env:"FETCHER_TIMEOUT"`
	LicenseRetention    time.Duration `yaml:"license_retention" env:"LICENSE_RETENTION"` // 0 keeps in-memory licenses forever
	DataDir             string        `yaml:"data_dir" env:"DATA_DIR"`
	LogLevel            string        `yaml:"log_level" env:"LOG_LEVEL"`
}

// Load builds config from environment variables, after filling unset
// variables from .env.local and .env.
func Load() (*Config, error) {
	loadEnvFiles()
	c := &Config{
		ServerPort:          os.Getenv("SERVER_PORT"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RedisURL:            os.Getenv("REDIS_URL"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		ResendAPIKey:        os.Getenv("RESEND_API_KEY"),
		EmailFrom:           os.Getenv("EMAIL_FROM"),
		UserAgent:           os.Getenv("FETCHER_USER_AGENT"),
		DataDir:             os.Getenv("DATA_DIR"),
		LogLevel:            os.Getenv("LOG_LEVEL"),
	}
	var err error
	if c.Timeout, err = parseDuration("FETCHER_TIMEOUT", os.Getenv("FETCHER_TIMEOUT")); err != nil {
		return nil, err
	}
	if c.LicenseRetention, err = parseDuration("LICENSE_RETENTION", os.Getenv("LICENSE_RETENTION")); err != nil {
		return nil, err
	}
	c.applyDefaults()
	return c, c.validate()
}

func (c *Config) applyDefaults() {
	if c.ServerPort == "" {
		c.ServerPort = defaultServerPort
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.DataDir == "" {
		c.DataDir = defaultDataDir
	}
}

func (c *Config) validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("%w: FETCHER_TIMEOUT must be positive", ErrInvalid)
	}
	if c.LicenseRetention < 0 {
		return fmt.Errorf("%w: LICENSE_RETENTION must not be negative", ErrInvalid)
	}
	for _, r := range c.ServerPort {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: SERVER_PORT %q is not a port number", ErrInvalid, c.ServerPort)
		}
	}
	return nil
}

func parseDuration(name, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalid, name, err)
	}
	return d, nil
}
