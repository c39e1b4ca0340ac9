package config

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int            `yaml:"port"`
	Env            string         `yaml:"env"` // "development" | "production"
	Upstream       UpstreamConfig `yaml:"upstream"`
	RedisURL       string         `yaml:"redis_url"`
	CacheTTLSec    int            `yaml:"cache_ttl_seconds"`
	AllowedOrigins []string       `yaml:"allowed_origins"`
	Timezone       string         `yaml:"timezone"`
	LogDir         string         `yaml:"log_dir"`
	Notify         NotifyConfig   `yaml:"notify"`
}

// UpstreamConfig identifies the analytics provider account. Token and
// SiteID are the two values the proxy refuses to serve without.
type UpstreamConfig struct {
	BaseURL string `yaml:"base_url"`
	SiteID  string `yaml:"site_id"`
	Token   string `yaml:"token"`
}

// NotifyConfig configures the optional webhook notification channel.
type NotifyConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	SiteTitle  string `yaml:"site_title"`
}

// Complete reports whether both required provider values are present.
func (u UpstreamConfig) Complete() bool {
	return u.Token != "" && u.SiteID != ""
}

// IsDev reports whether the app runs in development mode.
func (c *AppConfig) IsDev() bool { return c.Env == "development" }

type rawAppConfig struct {
	Port           int               `yaml:"port"`
	Env            string            `yaml:"env"`
	NodeEnv        string            `yaml:"node_env"`
	Upstream       rawUpstreamConfig `yaml:"upstream"`
	RedisURL       string            `yaml:"redis_url"`
	CacheTTLSec    int               `yaml:"cache_ttl_seconds"`
	AllowedOrigins []string          `yaml:"allowed_origins"`
	Timezone       string            `yaml:"timezone"`
	TZ             string            `yaml:"tz"`
	LogDir         string            `yaml:"log_dir"`
	Notify         rawNotifyConfig   `yaml:"notify"`

	// Legacy flat keys kept from the first deployment's env-style config.
	APIToken string `yaml:"api_token"`
	SiteID   string `yaml:"site_id"`
}

type rawUpstreamConfig struct {
	BaseURL string `yaml:"base_url"`
	URL     string `yaml:"url"`
	SiteID  string `yaml:"site_id"`
	Site    string `yaml:"site"`
	Token   string `yaml:"token"`
	APIKey  string `yaml:"api_key"`
}

type rawNotifyConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	URL        string `yaml:"url"`
	SiteTitle  string `yaml:"site_title"`
}
