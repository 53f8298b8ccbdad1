package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/lvyanru/chatctl/pkg/logger"
)

const (
	// EnvPrefix prefixes every environment override (CHATCTL_SERVER, CHATCTL_CHAT_IDLE_TIMEOUT, ...)
	EnvPrefix = "CHATCTL"
	// DirName is the per-user state directory under $HOME
	DirName = ".chatctl"

	DefaultServer = "http://localhost:8080"
)

// Config stores CLI configuration
type Config struct {
	Server  string        `mapstructure:"server"` // API Server address
	Session SessionConfig `mapstructure:"session"`
	Chat    ChatConfig    `mapstructure:"chat"`
	UI      UIConfig      `mapstructure:"ui"`
	Log     logger.Config `mapstructure:"log"`

	// file the settings were read from, empty when only defaults/env apply
	source string
}

// SessionConfig selects the local session store
type SessionConfig struct {
	Backend string `mapstructure:"backend"` // file or sqlite
	Path    string `mapstructure:"path"`
}

// ChatConfig holds the chat controller's timing knobs
type ChatConfig struct {
	ResponseTimeout  time.Duration `mapstructure:"response_timeout"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout"`
	PreferStream     bool          `mapstructure:"prefer_stream"`
	RefreshInterval  time.Duration `mapstructure:"refresh_interval"`
	RefreshAfterSend bool          `mapstructure:"refresh_after_send"`
}

// UIConfig holds rendering options
type UIConfig struct {
	Markdown      bool          `mapstructure:"markdown"`
	ToastDuration time.Duration `mapstructure:"toast_duration"`
}

// Dir returns the state directory (~/.chatctl)
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

// Load reads configuration from configPath (or ~/.chatctl/config.yaml when empty),
// the environment and a .env file in the working directory.
// A missing default config file is not an error.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	dir, err := Dir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v, dir)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
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
	cfg.source = v.ConfigFileUsed()

	if cfg.Session.Path == "" {
		cfg.Session.Path = defaultSessionPath(dir, cfg.Session.Backend)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault("server", DefaultServer)

	v.SetDefault("session.backend", "file")
	v.SetDefault("session.path", "")

	v.SetDefault("chat.response_timeout", 30*time.Second)
	v.SetDefault("chat.idle_timeout", 60*time.Second)
	v.SetDefault("chat.prefer_stream", true)
	v.SetDefault("chat.refresh_interval", 2*time.Minute)
	v.SetDefault("chat.refresh_after_send", true)

	v.SetDefault("ui.markdown", true)
	v.SetDefault("ui.toast_duration", 3*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "file")
	v.SetDefault("log.file_path", filepath.Join(dir, "chatctl.log"))
}

func defaultSessionPath(dir, backend string) string {
	if backend == "sqlite" {
		return filepath.Join(dir, "session.db")
	}
	return filepath.Join(dir, "session.json")
}

// Validate checks the loaded settings
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid server address: %q", c.Server)
	}

	if c.Session.Backend != "file" && c.Session.Backend != "sqlite" {
		return fmt.Errorf("invalid session backend: %s, must be 'file' or 'sqlite'", c.Session.Backend)
	}

	if c.Chat.ResponseTimeout <= 0 {
		return fmt.Errorf("chat.response_timeout must be positive")
	}
	if c.Chat.IdleTimeout <= 0 {
		return fmt.Errorf("chat.idle_timeout must be positive")
	}
	if c.Chat.RefreshInterval < 0 {
		return fmt.Errorf("chat.refresh_interval must not be negative")
	}
	if c.UI.ToastDuration <= 0 {
		return fmt.Errorf("ui.toast_duration must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	return nil
}

// Source returns the config file that was read, or "" when none was found
func (c *Config) Source() string {
	return c.source
}
