// Package config loads the YAML configuration shared by the bot, the importer
// and the command line tool
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/abelzeko/bird-survey/internal/metrics"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file
const (
	DefaultDBPath       = "data/survey.db"
	DefaultSchedule     = "0 6 * * *"
	DefaultTokenEnv     = "TELEGRAM_BOT_TOKEN"
	DefaultOpenAIKeyEnv = "OPENAI_API_KEY"
	DefaultLogLevel     = "info"
)

// Config is the top-level configuration
type Config struct {
	Metrics  metrics.Config `yaml:"metrics"`
	Storage  StorageConfig  `yaml:"storage"`
	Source   SourceConfig   `yaml:"source"`
	Schedule string         `yaml:"schedule"`
	Bot      BotConfig      `yaml:"bot"`
	Log      LogConfig      `yaml:"log"`
}

// StorageConfig configures the SQLite observation store
type StorageConfig struct {
	// Path is the filesystem path for the SQLite database file
	Path string `yaml:"path"`
}

// SourceConfig lists where observations are imported from
type SourceConfig struct {
	// URL is an HTML survey export page read by the importer
	URL string `yaml:"url"`

	// CSV is a local point count species table imported at startup
	CSV string `yaml:"csv"`
}

// BotConfig configures the Telegram bot
type BotConfig struct {
	// TokenEnv is the name of the environment variable holding the bot token
	TokenEnv string `yaml:"token_env"`

	// OpenAIKeyEnv is the name of the environment variable holding the
	// OpenAI key. Free-text queries are disabled when it is unset
	OpenAIKeyEnv string `yaml:"openai_key_env"`
}

// Token returns the bot token resolved from the environment
func (b BotConfig) Token() string {
	if b.TokenEnv == "" {
		return ""
	}
	return os.Getenv(b.TokenEnv)
}

// LogConfig configures the default logger
type LogConfig struct {
	// Level is one of: debug | info | warn | error
	Level string `yaml:"level"`
}

// Default returns a Config populated with default values only
func Default() *Config {
	return &Config{
		Metrics:  metrics.DefaultConfig(),
		Storage:  StorageConfig{Path: DefaultDBPath},
		Schedule: DefaultSchedule,
		Bot: BotConfig{
			TokenEnv:     DefaultTokenEnv,
			OpenAIKeyEnv: DefaultOpenAIKeyEnv,
		},
		Log: LogConfig{Level: DefaultLogLevel},
	}
}

// Load reads and parses the YAML config file at path.
// An empty path returns the defaults. Missing optional fields keep their defaults
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and structural constraints
func validate(cfg *Config) error {
	if err := cfg.Metrics.Validate(); err != nil {
		return err
	}
	if cfg.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return fmt.Errorf("schedule %q: %w", cfg.Schedule, err)
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", cfg.Log.Level)
	}
	return nil
}

// LoadDotEnv loads secrets such as the bot token from a .env file into the
// process environment. Variables already set are not overridden and a missing
// file is not an error
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}
