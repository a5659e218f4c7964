package config

import (
	"fmt"
	"strings"
)

type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Judge    JudgeConfig
	Matching MatchingConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port     int
	APIToken string
}

type StorageConfig struct {
	DataDir string
}

// JudgeConfig configures the LLM corroboration client. APIKey empty means
// the judge is disabled and borderline scores are simply not matches.
type JudgeConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	Timeout   string
	Threshold int
}

type MatchingConfig struct {
	LexicalThreshold  float64
	BorderlineFloor   float64
	TitleWeight       float64
	DescriptionWeight float64
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 3000,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Judge: JudgeConfig{
			BaseURL:   "https://generativelanguage.googleapis.com/v1beta",
			Model:     "gemini-2.0-flash",
			Timeout:   "15s",
			Threshold: 70,
		},
		Matching: MatchingConfig{
			LexicalThreshold:  0.6,
			BorderlineFloor:   0.35,
			TitleWeight:       0.6,
			DescriptionWeight: 0.4,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and the platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.verifind.app) and secrets
// fall back to macOS Keychain.
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/verifind/config.json
// and secrets live in $XDG_DATA_HOME/verifind/secrets.json.
//
// Environment variables (VERIFIND_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts secret-store access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	// The judge key is optional; without it borderline pairs are just not
	// matches. Still check the secret store before giving up.
	if cfg.Judge.APIKey == "" {
		if key, err := kc.Get("verifind", "judge_api_key"); err == nil && key != "" {
			cfg.Judge.APIKey = key
		}
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", cfg.Server.Port)
	}
	if cfg.Judge.Threshold < 0 || cfg.Judge.Threshold > 100 {
		return fmt.Errorf("judge.threshold must be in [0, 100], got %d", cfg.Judge.Threshold)
	}
	m := cfg.Matching
	for key, v := range map[string]float64{
		"matching.lexical_threshold":  m.LexicalThreshold,
		"matching.borderline_floor":   m.BorderlineFloor,
		"matching.title_weight":       m.TitleWeight,
		"matching.description_weight": m.DescriptionWeight,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be in [0, 1], got %v", key, v)
		}
	}
	if m.BorderlineFloor > m.LexicalThreshold {
		return fmt.Errorf("matching.borderline_floor (%v) must not exceed matching.lexical_threshold (%v)",
			m.BorderlineFloor, m.LexicalThreshold)
	}
	return nil
}

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainExec(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
