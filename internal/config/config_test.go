package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.GetServerAddr())
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Timeout)
	assert.Equal(t, "chatserver.db", cfg.Database.Path)
	assert.Equal(t, 8, cfg.Responder.ChunkSize)
	assert.Equal(t, "http://127.0.0.1:8080/payment/return", cfg.Payment.ReturnURL)
	assert.True(t, cfg.Seed.DemoUser)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
database:
  path: ":memory:"
seed:
  demo_user: false
`), 0o600))
	t.Setenv("CHATSERVER_RESPONDER_PREFIX", "echo: ")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, ":memory:", cfg.Database.Path)
	assert.False(t, cfg.Seed.DemoUser)
	assert.Equal(t, "echo: ", cfg.Responder.Prefix)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load("does-not-exist.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := &Config{}
		c.Server.Port = 8080
		c.Server.Mode = "release"
		c.Log.Level = "info"
		c.JWT.Secret = "0123456789abcdef0123456789abcdef"
		c.JWT.Timeout = time.Hour
		c.Database.Path = ":memory:"
		c.Responder.ChunkSize = 4
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "invalid server port"},
		{name: "bad mode", mutate: func(c *Config) { c.Server.Mode = "prod" }, wantErr: "invalid server mode"},
		{name: "bad level", mutate: func(c *Config) { c.Log.Level = "loud" }, wantErr: "invalid log level"},
		{name: "short secret", mutate: func(c *Config) { c.JWT.Secret = "short" }, wantErr: "at least 32"},
		{name: "no db path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: "database.path"},
		{name: "zero chunk", mutate: func(c *Config) { c.Responder.ChunkSize = 0 }, wantErr: "chunk_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
