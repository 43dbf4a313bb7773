package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for the whole backend.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Sweeper   SweeperConfig   `mapstructure:"sweeper"`
	Narration NarrationConfig `mapstructure:"narration"`
	Logger    LoggerConfig    `mapstructure:"logger"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// SweeperConfig holds the wall-clock thresholds for the background agent.
type SweeperConfig struct {
	Tick           time.Duration `mapstructure:"tick"`
	HeartbeatEvery time.Duration `mapstructure:"heartbeat_every"`
	StaleAfter     time.Duration `mapstructure:"stale_after"`
	BatchLimit     int           `mapstructure:"batch_limit"`
}

// NarrationConfig selects and tunes the stage-output provider.
type NarrationConfig struct {
	Provider        string        `mapstructure:"provider"` // "openai" or "fallback"
	APIKey          string        `mapstructure:"api_key"`
	Model           string        `mapstructure:"model"`
	MaxPromptTokens int           `mapstructure:"max_prompt_tokens"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// Load reads config.yaml (if present) and merges HEALFLOW_* env vars on top.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	v.SetEnvPrefix("healflow")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// no file: env vars and defaults only
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	v.SetDefault("database.path", "healflow.db")

	v.SetDefault("sweeper.tick", 10*time.Second)
	v.SetDefault("sweeper.heartbeat_every", 60*time.Second)
	v.SetDefault("sweeper.stale_after", 45*time.Second)
	v.SetDefault("sweeper.batch_limit", 20)

	v.SetDefault("narration.provider", "fallback")
	v.SetDefault("narration.model", "gpt-4o-mini")
	v.SetDefault("narration.max_prompt_tokens", 2048)
	v.SetDefault("narration.request_timeout", 15*time.Second)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
}

// Addr returns the host:port bind address for the HTTP server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
