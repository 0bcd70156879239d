package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete server configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Game     GameConfig     `mapstructure:"game"`
	Hint     HintConfig     `mapstructure:"hint"`
}

// ServerConfig holds transport and session settings.
type ServerConfig struct {
	GRPC        GRPCConfig      `mapstructure:"grpc"`
	WebSocket   WebSocketConfig `mapstructure:"websocket"`
	LeasePeriod time.Duration   `mapstructure:"lease_period"`
	MaxSessions int             `mapstructure:"max_sessions"`
}

// GRPCConfig configures the gRPC listener.
type GRPCConfig struct {
	Address              string `mapstructure:"address"`
	MaxConcurrentStreams int    `mapstructure:"max_concurrent_streams"`
}

// WebSocketConfig configures the renderer channel.
type WebSocketConfig struct {
	Address         string `mapstructure:"address"`
	Path            string `mapstructure:"path"`
	ReadBufferSize  int    `mapstructure:"read_buffer_size"`
	WriteBufferSize int    `mapstructure:"write_buffer_size"`
}

// DatabaseConfig configures high score persistence. An empty URL keeps the high score in
// memory.
type DatabaseConfig struct {
	URL           string `mapstructure:"url"`
	MaxConns      int32  `mapstructure:"max_conns"`
	HighScoreSlot string `mapstructure:"high_score_slot"`
}

// LoggingConfig selects the zap level and encoder.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GameConfig tunes the game engine.
type GameConfig struct {
	InvariantChecks bool   `mapstructure:"invariant_checks"`
	Seed            string `mapstructure:"seed"`
}

// HintConfig configures the hint oracle.
type HintConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	Model          string        `mapstructure:"model"`
	FallbackModels []string      `mapstructure:"fallback_models"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// EnvPrefix prefixes every environment override, e.g. SOLITAIRE_SERVER_GRPC_ADDRESS.
const EnvPrefix = "SOLITAIRE"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.grpc.address", ":50051")
	v.SetDefault("server.grpc.max_concurrent_streams", 100)
	v.SetDefault("server.websocket.address", ":8080")
	v.SetDefault("server.websocket.path", "/ws")
	v.SetDefault("server.websocket.read_buffer_size", 1024)
	v.SetDefault("server.websocket.write_buffer_size", 1024)
	v.SetDefault("server.lease_period", 30*time.Minute)
	v.SetDefault("server.max_sessions", 1000)

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.high_score_slot", "solitaireHighScore")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("game.invariant_checks", true)
	v.SetDefault("game.seed", "")

	v.SetDefault("hint.enabled", false)
	v.SetDefault("hint.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("hint.api_key", "")
	v.SetDefault("hint.model", "gemini-2.5-flash")
	v.SetDefault("hint.fallback_models", []string{})
	v.SetDefault("hint.timeout", 15*time.Second)
}

// Load reads the configuration file at path (YAML, optional: a missing file leaves the
// defaults), then applies SOLITAIRE_* environment overrides and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks value ranges and cross-field requirements.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.GRPC.Address == "" {
		errs = append(errs, errors.New("server.grpc.address is required"))
	}
	if c.Server.GRPC.MaxConcurrentStreams <= 0 {
		errs = append(errs, errors.New("server.grpc.max_concurrent_streams must be positive"))
	}
	if c.Server.WebSocket.Address == "" {
		errs = append(errs, errors.New("server.websocket.address is required"))
	}
	if !strings.HasPrefix(c.Server.WebSocket.Path, "/") {
		errs = append(errs, fmt.Errorf("server.websocket.path %q must start with /", c.Server.WebSocket.Path))
	}
	if c.Server.LeasePeriod < 0 {
		errs = append(errs, errors.New("server.lease_period must not be negative"))
	}
	if c.Server.MaxSessions < 0 {
		errs = append(errs, errors.New("server.max_sessions must not be negative"))
	}

	if c.Database.URL != "" && c.Database.MaxConns <= 0 {
		errs = append(errs, errors.New("database.max_conns must be positive"))
	}
	if c.Database.HighScoreSlot == "" {
		errs = append(errs, errors.New("database.high_score_slot is required"))
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q must be json or console", c.Logging.Format))
	}

	if c.Hint.Enabled {
		if c.Hint.BaseURL == "" {
			errs = append(errs, errors.New("hint.base_url is required when hints are enabled"))
		}
		if c.Hint.Model == "" {
			errs = append(errs, errors.New("hint.model is required when hints are enabled"))
		}
		if c.Hint.APIKey == "" {
			errs = append(errs, errors.New("hint.api_key is required when hints are enabled"))
		}
	}
	if c.Hint.Timeout <= 0 {
		errs = append(errs, errors.New("hint.timeout must be positive"))
	}

	return errors.Join(errs...)
}
