package utils

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// environment is what caarlos0/env fills in; Config copies it into
// unexported fields behind getters.
type environment struct {
	Port             string        `env:"PORT" envDefault:"8080"`
	APIBaseURL       string        `env:"API_BASE_URL,required"`
	DatabasePath     string        `env:"DATABASE_PATH" envDefault:"./attendex.db"`
	SessionTTL       time.Duration `env:"SESSION_TTL" envDefault:"12h"`
	CacheTTL         time.Duration `env:"CACHE_TTL" envDefault:"30s"`
	CacheSize        int           `env:"CACHE_SIZE" envDefault:"512"`
	PollInterval     time.Duration `env:"POLL_INTERVAL" envDefault:"5s"`
	Timezone         string        `env:"TIMEZONE"`
	AccessPolicyFile string        `env:"ACCESS_POLICY_FILE"`
	DiscordBotToken  string        `env:"DISCORD_BOT_TOKEN"`
	DiscordChannelID string        `env:"DISCORD_CHANNEL_ID"`
	OtelEndpoint     string        `env:"OTEL_ENDPOINT"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
	SecureCookies    bool          `env:"SECURE_COOKIES" envDefault:"false"`
}

type Config struct {
	port         string
	apiBaseURL   string
	databasePath string

	sessionTTL   time.Duration
	cacheTTL     time.Duration
	cacheSize    int
	pollInterval time.Duration

	location         *time.Location
	accessPolicyFile string

	discordBotToken  string
	discordChannelID string

	otelEndpoint  string
	logLevel      slog.Level
	secureCookies bool
}

// NewConfig reads the environment and exits the process when it is invalid.
func NewConfig() *Config {
	c, err := LoadConfig()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	return c
}

func LoadConfig() (*Config, error) {
	e, err := env.ParseAs[environment]()
	if err != nil {
		return nil, fmt.Errorf("LoadConfig: %w", err)
	}

	c := &Config{
		port:             e.Port,
		databasePath:     e.DatabasePath,
		accessPolicyFile: e.AccessPolicyFile,
		discordChannelID: e.DiscordChannelID,
		otelEndpoint:     e.OtelEndpoint,
		secureCookies:    e.SecureCookies,
	}
	slog.Debug("env", "PORT", c.port)
	slog.Debug("env", "DATABASE_PATH", c.databasePath)
	slog.Debug("env", "ACCESS_POLICY_FILE", c.accessPolicyFile)
	slog.Debug("env", "OTEL_ENDPOINT", c.otelEndpoint)
	slog.Debug("env", "SECURE_COOKIES", c.secureCookies)

	u, err := url.Parse(e.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("LoadConfig: API_BASE_URL %q is not an absolute URL", e.APIBaseURL)
	}
	c.apiBaseURL = strings.TrimRight(e.APIBaseURL, "/")
	slog.Debug("env", "API_BASE_URL", c.apiBaseURL)

	for name, d := range map[string]time.Duration{
		"SESSION_TTL":   e.SessionTTL,
		"CACHE_TTL":     e.CacheTTL,
		"POLL_INTERVAL": e.PollInterval,
	} {
		if d <= 0 {
			return nil, fmt.Errorf("LoadConfig: %s must be positive, got %s", name, d)
		}
		slog.Debug("env", name, d)
	}
	c.sessionTTL, c.cacheTTL, c.pollInterval = e.SessionTTL, e.CacheTTL, e.PollInterval

	if e.CacheSize <= 0 {
		return nil, fmt.Errorf("LoadConfig: CACHE_SIZE must be positive, got %d", e.CacheSize)
	}
	c.cacheSize = e.CacheSize
	slog.Debug("env", "CACHE_SIZE", c.cacheSize)

	switch e.Timezone {
	case "":
		slog.Warn("TIMEZONE is not set, using local timezone", "timezone", time.Local)
		c.location = time.Local
	case "UTC":
		c.location = time.UTC
	default:
		c.location, err = time.LoadLocation(e.Timezone)
		if err != nil {
			return nil, fmt.Errorf("LoadConfig: invalid TIMEZONE %q: %w", e.Timezone, err)
		}
	}
	slog.Debug("env", "TIMEZONE", c.location)

	if err := c.logLevel.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return nil, fmt.Errorf("LoadConfig: invalid LOG_LEVEL %q: %w", e.LogLevel, err)
	}
	slog.Debug("env", "LOG_LEVEL", c.logLevel)

	c.discordBotToken = e.DiscordBotToken
	if c.discordBotToken != "" {
		if c.discordChannelID == "" {
			return nil, fmt.Errorf("LoadConfig: DISCORD_CHANNEL_ID is required with DISCORD_BOT_TOKEN")
		}
		slog.Debug("env", "DISCORD_BOT_TOKEN", c.discordBotToken[0:min(3, len(c.discordBotToken))]+"...")
		slog.Debug("env", "DISCORD_CHANNEL_ID", c.discordChannelID)
	}

	return c, nil
}

// Get PORT env, default to 8080
func (c *Config) GetPort() string {
	return c.port
}

// Get API_BASE_URL env, without trailing slash
func (c *Config) GetAPIBaseURL() string {
	return c.apiBaseURL
}

// Get DATABASE_PATH env
func (c *Config) GetDatabasePath() string {
	return c.databasePath
}

// Get SESSION_TTL env
func (c *Config) GetSessionTTL() time.Duration {
	return c.sessionTTL
}

// Get CACHE_TTL env
func (c *Config) GetCacheTTL() time.Duration {
	return c.cacheTTL
}

// Get CACHE_SIZE env
func (c *Config) GetCacheSize() int {
	return c.cacheSize
}

// Get POLL_INTERVAL env
func (c *Config) GetPollInterval() time.Duration {
	return c.pollInterval
}

// Get TIMEZONE env
func (c *Config) GetLocation() *time.Location {
	return c.location
}

// Get ACCESS_POLICY_FILE env; empty means the embedded policy
func (c *Config) GetAccessPolicyFile() string {
	return c.accessPolicyFile
}

// Get DISCORD_BOT_TOKEN env
func (c *Config) GetDiscordBotToken() string {
	return c.discordBotToken
}

// Get DISCORD_CHANNEL_ID env
func (c *Config) GetDiscordChannelID() string {
	return c.discordChannelID
}

// Get OTEL_ENDPOINT env; empty disables tracing export
func (c *Config) GetOtelEndpoint() string {
	return c.otelEndpoint
}

// Get LOG_LEVEL env
func (c *Config) GetLogLevel() slog.Level {
	return c.logLevel
}

// Get SECURE_COOKIES env
func (c *Config) GetSecureCookies() bool {
	return c.secureCookies
}
