package mailer

import (
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("SMTP_USERNAME", "mailer")
	t.Setenv("SMTP_PASSWORD", "secret")
	t.Setenv("SMTP_FROM", "no-reply@example.com")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com", cfg.Host)
	assert.Equal(t, 2525, cfg.Port)
	assert.Equal(t, "mailer", cfg.Username)
	assert.Equal(t, "secret", cfg.Password)
	assert.Equal(t, "no-reply@example.com", cfg.From)
	assert.Equal(t, "Confirm your account", cfg.Subject)
	assert.Equal(t, "Accounts", cfg.AppName)
}

func TestLoadConfigRequiresHostAndFrom(t *testing.T) {
	t.Setenv("SMTP_HOST", "")
	t.Setenv("SMTP_FROM", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.True(t, goerrors.IsValidation(err))

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	fields := richErr.ValidationMap()
	assert.Contains(t, fields, "Host")
	assert.Contains(t, fields, "From")
}
