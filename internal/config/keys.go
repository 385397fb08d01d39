package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	env   string
	typ   keyType
	apply func(cfg *Config, v any)
}

var specs = []keySpec{
	{
		env: "SNOONOTE_SERVER_PORT", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
	},
	{
		env: "SNOONOTE_SERVER_TRANSPORT", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Server.Transport = v.(string) },
	},
	{
		env: "SNOONOTE_API_KEY", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Auth.APIKey = v.(string) },
	},
	{
		env: "SNOONOTE_REDDIT_CLIENT_ID", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Reddit.ClientID = v.(string) },
	},
	{
		env: "SNOONOTE_REDDIT_CLIENT_SECRET", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Reddit.ClientSecret = v.(string) },
	},
	{
		env: "SNOONOTE_REDDIT_USER_AGENT", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Reddit.UserAgent = v.(string) },
	},
	{
		env: "SNOONOTE_NOTION_TOKEN", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Notion.Token = v.(string) },
	},
	{
		env: "SNOONOTE_NOTION_DATABASE_ID", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Notion.DatabaseID = v.(string) },
	},
	{
		env: "SNOONOTE_PROXY_URL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Proxy.URL = v.(string) },
	},
	{
		env: "SNOONOTE_LOG_LEVEL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
	},
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
