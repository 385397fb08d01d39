package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Transport selects how MCP requests are delivered.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

type Config struct {
	Server ServerConfig
	Auth   AuthConfig
	Reddit RedditConfig
	Notion NotionConfig
	Proxy  ProxyConfig
	Log    LogConfig
}

type ServerConfig struct {
	Port      int
	Transport string
}

type AuthConfig struct {
	// APIKey is the bearer token required on every HTTP request.
	// Unused (and not required) on the stdio transport.
	APIKey string
}

type RedditConfig struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
}

type NotionConfig struct {
	Token      string
	DatabaseID string
}

type ProxyConfig struct {
	// URL routes all outbound Reddit/Notion calls when set.
	// Supported schemes: http, https, socks5.
	URL string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:      8000,
			Transport: TransportStdio,
		},
		Reddit: RedditConfig{
			UserAgent: "snoonote/1.0",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from SNOONOTE_* environment variables over
// built-in defaults and validates it. Mandatory values missing at
// startup are a hard error; the server must not start without them.
func Load() (Config, error) {
	cfg := defaults()
	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	var missing []string
	if cfg.Reddit.ClientID == "" {
		missing = append(missing, "SNOONOTE_REDDIT_CLIENT_ID")
	}
	if cfg.Reddit.ClientSecret == "" {
		missing = append(missing, "SNOONOTE_REDDIT_CLIENT_SECRET")
	}
	if cfg.Notion.Token == "" {
		missing = append(missing, "SNOONOTE_NOTION_TOKEN")
	}
	if cfg.Notion.DatabaseID == "" {
		missing = append(missing, "SNOONOTE_NOTION_DATABASE_ID")
	}
	if cfg.Server.Transport == TransportHTTP && cfg.Auth.APIKey == "" {
		missing = append(missing, "SNOONOTE_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}

	if cfg.Server.Transport != TransportStdio && cfg.Server.Transport != TransportHTTP {
		return fmt.Errorf("invalid transport %q (expected %q or %q)",
			cfg.Server.Transport, TransportStdio, TransportHTTP)
	}
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}
	if cfg.Reddit.UserAgent == "" {
		return fmt.Errorf("reddit user agent must not be empty")
	}

	if cfg.Proxy.URL != "" {
		u, err := url.Parse(cfg.Proxy.URL)
		if err != nil {
			return fmt.Errorf("invalid proxy URL: %w", err)
		}
		switch u.Scheme {
		case "http", "https", "socks5":
		default:
			return fmt.Errorf("unsupported proxy scheme %q (expected http, https, or socks5)", u.Scheme)
		}
	}

	return nil
}
