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
	kFloat
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "VERIFIND_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.api_token", typ: kString, env: "VERIFIND_API_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.APIToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.APIToken },
	},
	{
		key: "storage.data_dir", typ: kString, env: "VERIFIND_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "judge.api_key", typ: kString, env: "VERIFIND_JUDGE_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Judge.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Judge.APIKey },
	},
	{
		key: "judge.base_url", typ: kString, env: "VERIFIND_JUDGE_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Judge.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Judge.BaseURL },
	},
	{
		key: "judge.model", typ: kString, env: "VERIFIND_JUDGE_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Judge.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Judge.Model },
	},
	{
		key: "judge.timeout", typ: kString, env: "VERIFIND_JUDGE_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Judge.Timeout = v.(string) },
		extract: func(cfg Config) any { return cfg.Judge.Timeout },
	},
	{
		key: "judge.threshold", typ: kInt, env: "VERIFIND_JUDGE_THRESHOLD",
		apply:   func(cfg *Config, v any) { cfg.Judge.Threshold = v.(int) },
		extract: func(cfg Config) any { return cfg.Judge.Threshold },
	},
	{
		key: "matching.lexical_threshold", typ: kFloat, env: "VERIFIND_MATCHING_LEXICAL_THRESHOLD",
		apply:   func(cfg *Config, v any) { cfg.Matching.LexicalThreshold = v.(float64) },
		extract: func(cfg Config) any { return cfg.Matching.LexicalThreshold },
	},
	{
		key: "matching.borderline_floor", typ: kFloat, env: "VERIFIND_MATCHING_BORDERLINE_FLOOR",
		apply:   func(cfg *Config, v any) { cfg.Matching.BorderlineFloor = v.(float64) },
		extract: func(cfg Config) any { return cfg.Matching.BorderlineFloor },
	},
	{
		key: "matching.title_weight", typ: kFloat, env: "VERIFIND_MATCHING_TITLE_WEIGHT",
		apply:   func(cfg *Config, v any) { cfg.Matching.TitleWeight = v.(float64) },
		extract: func(cfg Config) any { return cfg.Matching.TitleWeight },
	},
	{
		key: "matching.description_weight", typ: kFloat, env: "VERIFIND_MATCHING_DESCRIPTION_WEIGHT",
		apply:   func(cfg *Config, v any) { cfg.Matching.DescriptionWeight = v.(float64) },
		extract: func(cfg Config) any { return cfg.Matching.DescriptionWeight },
	},
	{
		key: "log.level", typ: kString, env: "VERIFIND_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kFloat:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					s.apply(cfg, f)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse float from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
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
		case kFloat:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				s.apply(cfg, f)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse float from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
