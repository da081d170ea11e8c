package accounts_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-accounts"
)

func TestLogMailer(t *testing.T) {
	var out bytes.Buffer
	m := accounts.NewLogMailer(&out, nopLogger{})

	err := m.SendConfirmAccountMail(context.Background(), accounts.ConfirmAccountMail{
		ConfirmationURL: "https://accounts.test/users/1/email/confirm/tkn",
		To:              []accounts.Recipient{{Email: "jane@example.com", Name: "Jane"}},
	})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "https://accounts.test/users/1/email/confirm/tkn")
	assert.Contains(t, out.String(), "jane@example.com")
}

func TestLogMailer_CancelledContext(t *testing.T) {
	var out bytes.Buffer
	m := accounts.NewLogMailer(&out, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.SendConfirmAccountMail(ctx, accounts.ConfirmAccountMail{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, out.Len())
}
