package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/lvyanru/chatctl/pkg/logger"
)

// EnvPrefix prefixes dev server environment overrides (CHATSERVER_SERVER_PORT, ...)
const EnvPrefix = "CHATSERVER"

// Config holds the dev server configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       logger.Config   `mapstructure:"log"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Responder ResponderConfig `mapstructure:"responder"`
	Payment   PaymentConfig   `mapstructure:"payment"`
	Seed      SeedConfig      `mapstructure:"seed"`
}

// ServerConfig listener settings
type ServerConfig struct {
	Host               string        `mapstructure:"host"`
	Port               int           `mapstructure:"port"`
	Mode               string        `mapstructure:"mode"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
	MaxRequestBodySize int           `mapstructure:"max_request_body_size"`
	AllowOrigins       []string      `mapstructure:"allow_origins"`
}

// JWTConfig token signing settings
type JWTConfig struct {
	Secret  string        `mapstructure:"secret"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DatabaseConfig sqlite settings
type DatabaseConfig struct {
	Path         string `mapstructure:"path"` // file path or ":memory:"
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// ResponderConfig shapes the canned assistant replies
type ResponderConfig struct {
	Prefix     string        `mapstructure:"prefix"`
	ChunkSize  int           `mapstructure:"chunk_size"` // bytes per streamed chunk
	ChunkDelay time.Duration `mapstructure:"chunk_delay"`
}

// PaymentConfig controls the simulated checkout
type PaymentConfig struct {
	// ReturnURL is where checkout sends the user back; payment_success and
	// session_id are appended as query parameters
	ReturnURL string `mapstructure:"return_url"`
}

// SeedConfig initial data
type SeedConfig struct {
	DemoUser bool `mapstructure:"demo_user"`
}

// Load reads configuration from configPath (or ./configs/server.yaml, ./server.yaml),
// the environment and .env. Missing default files fall back to defaults.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("server")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Payment.ReturnURL == "" {
		cfg.Payment.ReturnURL = fmt.Sprintf("http://%s/payment/return", cfg.GetServerAddr())
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 2*time.Minute)
	v.SetDefault("server.max_request_body_size", 1<<20)
	v.SetDefault("server.allow_origins", []string{"*"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stderr")

	v.SetDefault("jwt.secret", "chatctl-dev-server-secret-change-me-please")
	v.SetDefault("jwt.timeout", 24*time.Hour)

	v.SetDefault("database.path", "chatserver.db")
	v.SetDefault("database.max_open_conns", 1)

	v.SetDefault("responder.prefix", "You said: ")
	v.SetDefault("responder.chunk_size", 8)
	v.SetDefault("responder.chunk_delay", 30*time.Millisecond)

	v.SetDefault("seed.demo_user", true)
}

// Validate checks the loaded settings
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server mode: %s, must be 'debug' or 'release'", c.Server.Mode)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("jwt.secret must be at least 32 characters")
	}
	if c.JWT.Timeout <= 0 {
		return fmt.Errorf("jwt.timeout must be positive")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Responder.ChunkSize <= 0 {
		return fmt.Errorf("responder.chunk_size must be positive")
	}
	if c.Responder.ChunkDelay < 0 {
		return fmt.Errorf("responder.chunk_delay must not be negative")
	}

	return nil
}

// GetServerAddr returns host:port
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
