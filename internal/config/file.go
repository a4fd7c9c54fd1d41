package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	ServerPort          string `yaml:"server_port"`
	DatabaseURL         string `yaml:"database_url"`
	RedisURL            string `yaml:"redis_url"`
	StripeWebhookSecret string `yaml:"stripe_webhook_secret"`
	ResendAPIKey        string `yaml:"resend_api_key"`
	EmailFrom           string `yaml:"email_from"`
	UserAgent           string `yaml:"user_agent"`
	Timeout             string `yaml:"timeout"`
	LicenseRetention    string `yaml:"license_retention"`
	DataDir             string `yaml:"data_dir"`
	LogLevel            string `yaml:"log_level"`
}

// LoadFromFile loads config from a YAML file. Secrets left empty in the
// file are taken from the environment so they need not be committed.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
	}
	c := &Config{
		ServerPort:          f.ServerPort,
		DatabaseURL:         f.DatabaseURL,
		RedisURL:            f.RedisURL,
		StripeWebhookSecret: orEnv(f.StripeWebhookSecret, "STRIPE_WEBHOOK_SECRET"),
		ResendAPIKey:        orEnv(f.ResendAPIKey, "RESEND_API_KEY"),
		EmailFrom:           f.EmailFrom,
		UserAgent:           f.UserAgent,
		DataDir:             f.DataDir,
		LogLevel:            f.LogLevel,
	}
	if c.Timeout, err = parseDuration("timeout", f.Timeout); err != nil {
		return nil, err
	}
	if c.LicenseRetention, err = parseDuration("license_retention", f.LicenseRetention); err != nil {
		return nil, err
	}
	c.applyDefaults()
	return c, c.validate()
}

func orEnv(v, key string) string {
	if v != "" {
		return v
	}
	return os.Getenv(key)
}
