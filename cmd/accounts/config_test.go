package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("ACCOUNTS_JWT_SECRET", "secret")
	t.Setenv("ACCOUNTS_APP_PROJECT_URL", "http://localhost:8572")

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, ":8572", cfg.HTTPAddress)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "go-accounts", cfg.GetIssuer())
	assert.Equal(t, "secret", cfg.GetSigningKey())
	assert.Equal(t, 0, cfg.GetSessionTokenExpiration())
	assert.Equal(t, "bcrypt", cfg.PasswordAlgorithm)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "log", cfg.MailTransport)
	assert.True(t, cfg.SignupEnabled)
	assert.False(t, cfg.HashidIDs)
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("ACCOUNTS_JWT_SECRET", "secret")
	t.Setenv("ACCOUNTS_APP_PROJECT_URL", "http://localhost:8572")
	t.Setenv("ACCOUNTS_HTTP_ADDRESS", ":9000")

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.HTTPAddress)

	cfg, err = LoadConfig([]string{"--http.address", ":9100", "--app.debug"})
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.HTTPAddress)
	assert.True(t, cfg.Debug)
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "accounts.yaml")

	content := `
app:
  project_url: https://accounts.example.com
  log_level: debug
jwt:
  secret: from-file
  session_ttl: 24
password:
  algorithm: argon2id
database:
  driver: postgres
  dsn: postgres://localhost/accounts
features:
  signup: false
  hashid_ids: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig([]string{"--config", path})
	require.NoError(t, err)

	assert.Equal(t, "https://accounts.example.com", cfg.GetProjectURL())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "from-file", cfg.GetSigningKey())
	assert.Equal(t, 24, cfg.GetSessionTokenExpiration())
	assert.Equal(t, "argon2id", cfg.PasswordAlgorithm)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, "postgres://localhost/accounts", cfg.DatabaseDSN)
	assert.False(t, cfg.SignupEnabled)
	assert.True(t, cfg.HashidIDs)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	t.Setenv("ACCOUNTS_JWT_SECRET", "secret")
	t.Setenv("ACCOUNTS_APP_PROJECT_URL", "http://localhost:8572")

	_, err := LoadConfig([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			LogLevel:          "info",
			ProjectURL:        "http://localhost",
			JWTSecret:         "secret",
			PasswordAlgorithm: "bcrypt",
			DatabaseDriver:    "sqlite",
			MailTransport:     "log",
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing secret", mutate: func(c *Config) { c.JWTSecret = "" }, wantErr: true},
		{name: "missing project url", mutate: func(c *Config) { c.ProjectURL = "" }, wantErr: true},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "trace" }, wantErr: true},
		{name: "bad driver", mutate: func(c *Config) { c.DatabaseDriver = "mysql" }, wantErr: true},
		{name: "bad hasher", mutate: func(c *Config) { c.PasswordAlgorithm = "md5" }, wantErr: true},
		{name: "bad transport", mutate: func(c *Config) { c.MailTransport = "carrier-pigeon" }, wantErr: true},
		{name: "negative ttl", mutate: func(c *Config) { c.SessionTTL = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewZapLogger(t *testing.T) {
	lgr, err := newZapLogger("debug", true)
	require.NoError(t, err)
	named(lgr, "test").Info("hello %s", "world")

	_, err = newZapLogger("loud", false)
	assert.Error(t, err)
}
