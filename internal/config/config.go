package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix marks environment overrides. TRUENEUTRAL_SCRAPE__USER_AGENT sets scrape.user_agent.
const EnvPrefix = "TRUENEUTRAL_"

// LogConfig configures the global zerolog logger.
type LogConfig struct {
	Level  string `koanf:"level" yaml:"level" validate:"oneof=trace debug info warn error fatal panic disabled off"`
	Format string `koanf:"format" yaml:"format" validate:"oneof=json console"`
	Output string `koanf:"output" yaml:"output" validate:"oneof=stdout stderr"`
}

// EmbedderConfig selects and configures the document embedder.
type EmbedderConfig struct {
	Type       string `koanf:"type" yaml:"type" validate:"oneof=tfidf word2vec"`
	VectorSize int    `koanf:"vector_size" yaml:"vector_size" validate:"gte=1"`
	Window     int    `koanf:"window" yaml:"window" validate:"gte=1"`
	Epochs     int    `koanf:"epochs" yaml:"epochs" validate:"gte=1"`
	MinCount   int    `koanf:"min_count" yaml:"min_count" validate:"gte=1"`
	Workers    int    `koanf:"workers" yaml:"workers" validate:"gte=1"`
}

type ModelConfig struct {
	Path string `koanf:"path" yaml:"path" validate:"required"`
}

// QueryConfig bounds the number of neighbours a query may ask for. MaxNSim 0 means unbounded.
type QueryConfig struct {
	DefaultNSim int `koanf:"default_nsim" yaml:"default_nsim" validate:"gte=1"`
	MaxNSim     int `koanf:"max_nsim" yaml:"max_nsim" validate:"gte=0"`
}

// SummarizerConfig selects and configures the short summary shown next to results.
type SummarizerConfig struct {
	Type         string `koanf:"type" yaml:"type" validate:"oneof=frequency"`
	MaxSentences int    `koanf:"max_sentences" yaml:"max_sentences" validate:"gte=1"`
}

// ScrapeConfig configures the listing-site scraper.
type ScrapeConfig struct {
	Source          string        `koanf:"source" yaml:"source" validate:"oneof=goodreads risingshadow"`
	BaseURL         string        `koanf:"base_url" yaml:"base_url" validate:"omitempty,url"`
	UserAgent       string        `koanf:"user_agent" yaml:"user_agent" validate:"required"`
	Delay           time.Duration `koanf:"delay" yaml:"delay" validate:"gte=0"`
	Workers         int           `koanf:"workers" yaml:"workers" validate:"gte=0"`
	Timeout         time.Duration `koanf:"timeout" yaml:"timeout" validate:"gte=0"`
	CacheDir        string        `koanf:"cache_dir" yaml:"cache_dir"`
	CacheTTL        time.Duration `koanf:"cache_ttl" yaml:"cache_ttl" validate:"gte=0"`
	BreakerFailures uint32        `koanf:"breaker_failures" yaml:"breaker_failures"`
	BreakerCooldown time.Duration `koanf:"breaker_cooldown" yaml:"breaker_cooldown" validate:"gte=0"`
}

type DatasetConfig struct {
	SkipIncomplete bool `koanf:"skip_incomplete" yaml:"skip_incomplete"`
}

// ServerConfig configures the HTTP surface started by `serve`.
type ServerConfig struct {
	Addr              string        `koanf:"addr" yaml:"addr" validate:"required"`
	ReadTimeout       time.Duration `koanf:"read_timeout" yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout      time.Duration `koanf:"write_timeout" yaml:"write_timeout" validate:"gte=0"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout" yaml:"shutdown_timeout" validate:"gte=0"`
	RateLimitRequests int           `koanf:"rate_limit_requests" yaml:"rate_limit_requests" validate:"gte=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" yaml:"rate_limit_window" validate:"gte=0"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Log        LogConfig        `koanf:"log" yaml:"log"`
	Embedder   EmbedderConfig   `koanf:"embedder" yaml:"embedder"`
	Model      ModelConfig      `koanf:"model" yaml:"model"`
	Query      QueryConfig      `koanf:"query" yaml:"query"`
	Summarizer SummarizerConfig `koanf:"summarizer" yaml:"summarizer"`
	Scrape     ScrapeConfig     `koanf:"scrape" yaml:"scrape"`
	Dataset    DatasetConfig    `koanf:"dataset" yaml:"dataset"`
	Server     ServerConfig     `koanf:"server" yaml:"server"`
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	return &AppConfig{
		Log: LogConfig{Level: "info", Format: "console", Output: "stderr"},
		Embedder: EmbedderConfig{
			Type:       "word2vec",
			VectorSize: 50,
			Window:     5,
			Epochs:     40,
			MinCount:   1,
			Workers:    1,
		},
		Model:      ModelConfig{Path: filepath.Join("data", "model.bundle")},
		Query:      QueryConfig{DefaultNSim: 10, MaxNSim: 100},
		Summarizer: SummarizerConfig{Type: "frequency", MaxSentences: 2},
		Scrape: ScrapeConfig{
			Source:          "risingshadow",
			UserAgent:       "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/80.0.3987.87 Safari/537.36",
			Delay:           2 * time.Second,
			Timeout:         30 * time.Second,
			CacheTTL:        24 * time.Hour,
			BreakerFailures: 5,
			BreakerCooldown: time.Minute,
		},
		Dataset: DatasetConfig{SkipIncomplete: true},
		Server: ServerConfig{
			Addr:              ":8080",
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      30 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			RateLimitRequests: 60,
			RateLimitWindow:   time.Minute,
		},
	}
}

// Load layers defaults, the YAML file at path (skipped when path is empty or missing)
// and TRUENEUTRAL_ environment variables, then validates the result.
func Load(path string) (*AppConfig, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &AppConfig{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// envKey maps TRUENEUTRAL_SERVER__RATE_LIMIT_WINDOW to server.rate_limit_window.
func envKey(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints declared in struct tags.
func (c *AppConfig) Validate() error {
	return validate.Struct(c)
}

// LoadDefault tries ./config.yaml first, then ~/.config/trueneutral/config.yaml.
// If neither exists, it writes defaults to ~/.config/trueneutral/config.yaml and loads them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err != nil {
		if err := Save(userPath, Default()); err != nil {
			return nil, "", err
		}
	}
	cfg, err := Load(userPath)
	return cfg, userPath, err
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yamlv3.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "trueneutral", "config.yaml"), nil
}
