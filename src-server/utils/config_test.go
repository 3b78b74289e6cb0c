package utils_test

import (
	"log/slog"
	"testing"
	"time"

	"attendex/src-server/utils"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://api.example.com/")
	t.Setenv("TIMEZONE", "UTC")

	c, err := utils.LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if c.GetPort() != "8080" {
		t.Errorf("port = %q", c.GetPort())
	}
	if c.GetAPIBaseURL() != "https://api.example.com" {
		t.Errorf("api base url = %q", c.GetAPIBaseURL())
	}
	if c.GetPollInterval() != 5*time.Second || c.GetCacheTTL() != 30*time.Second || c.GetSessionTTL() != 12*time.Hour {
		t.Errorf("durations = %s %s %s", c.GetPollInterval(), c.GetCacheTTL(), c.GetSessionTTL())
	}
	if c.GetCacheSize() != 512 || c.GetLogLevel() != slog.LevelInfo || c.GetLocation() != time.UTC {
		t.Errorf("config = %+v", c)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	cases := map[string]map[string]string{
		"missing api":     {},
		"relative api":    {"API_BASE_URL": "/api"},
		"zero poll":       {"API_BASE_URL": "http://api", "POLL_INTERVAL": "0s"},
		"bad level":       {"API_BASE_URL": "http://api", "LOG_LEVEL": "loud"},
		"bad timezone":    {"API_BASE_URL": "http://api", "TIMEZONE": "Mars/Olympus"},
		"discord channel": {"API_BASE_URL": "http://api", "DISCORD_BOT_TOKEN": "abc"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("API_BASE_URL", "")
			for k, v := range vars {
				t.Setenv(k, v)
			}
			if _, err := utils.LoadConfig(); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}
