// Package config loads the YAML startup configuration: raw struct in,
// normalized AppConfig out, with legacy key aliases and env fallbacks for
// the secret values so the credential can stay out of the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "config.yaml"

	defaultPort        = 8788
	defaultBaseURL     = "https://analytics.services.netlify.com/v2"
	defaultCacheTTLSec = 60

	// Env fallbacks for the two secret-ish values.
	EnvToken  = "NETLIFY_TOKEN"
	EnvSiteID = "SITE_ID"
)

// Load reads and validates the config file at path. A missing file is not
// an error: everything has a default or an env fallback, and the server is
// allowed to start without provider credentials (it answers 500 until they
// arrive via config or env).
func Load(path string) (*AppConfig, error) {
	var raw rawAppConfig

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		decoder := yaml.NewDecoder(strings.NewReader(string(data)))
		decoder.KnownFields(true)
		if err := decoder.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// Defaults + env only.
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := normalize(raw)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func normalize(raw rawAppConfig) *AppConfig {
	cfg := &AppConfig{
		Port:           raw.Port,
		Env:            strings.TrimSpace(firstNonEmpty(raw.Env, raw.NodeEnv)),
		RedisURL:       strings.TrimSpace(raw.RedisURL),
		CacheTTLSec:    raw.CacheTTLSec,
		AllowedOrigins: raw.AllowedOrigins,
		Timezone:       strings.TrimSpace(firstNonEmpty(raw.Timezone, raw.TZ)),
		LogDir:         strings.TrimSpace(raw.LogDir),
		Upstream: UpstreamConfig{
			BaseURL: strings.TrimRight(strings.TrimSpace(firstNonEmpty(raw.Upstream.BaseURL, raw.Upstream.URL)), "/"),
			SiteID:  strings.TrimSpace(firstNonEmpty(raw.Upstream.SiteID, raw.Upstream.Site, raw.SiteID)),
			Token:   strings.TrimSpace(firstNonEmpty(raw.Upstream.Token, raw.Upstream.APIKey, raw.APIToken)),
		},
		Notify: NotifyConfig{
			WebhookURL: strings.TrimSpace(firstNonEmpty(raw.Notify.WebhookURL, raw.Notify.URL)),
			SiteTitle:  strings.TrimSpace(raw.Notify.SiteTitle),
		},
	}

	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.Env == "" {
		cfg.Env = "production"
	}
	if cfg.Upstream.BaseURL == "" {
		cfg.Upstream.BaseURL = defaultBaseURL
	}
	if cfg.Upstream.Token == "" {
		cfg.Upstream.Token = strings.TrimSpace(os.Getenv(EnvToken))
	}
	if cfg.Upstream.SiteID == "" {
		cfg.Upstream.SiteID = strings.TrimSpace(os.Getenv(EnvSiteID))
	}
	if cfg.CacheTTLSec <= 0 {
		cfg.CacheTTLSec = defaultCacheTTLSec
	}
	if cfg.Notify.SiteTitle == "" {
		cfg.Notify.SiteTitle = "analytics"
	}
	return cfg
}

func validate(cfg *AppConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("port %d out of range", cfg.Port)
	}
	if cfg.Env != "development" && cfg.Env != "production" {
		return fmt.Errorf("env must be development or production, got %q", cfg.Env)
	}
	if !strings.HasPrefix(cfg.Upstream.BaseURL, "http://") && !strings.HasPrefix(cfg.Upstream.BaseURL, "https://") {
		return fmt.Errorf("upstream base_url %q must be an http(s) URL", cfg.Upstream.BaseURL)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
