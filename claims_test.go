package accounts

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmationClaims_Matches(t *testing.T) {
	created := time.Date(2024, 3, 10, 12, 30, 0, 123456000, time.UTC)
	user := &UserView{
		ID:        uuid.New(),
		Email:     "match@example.com",
		CreatedAt: created,
	}

	claims := newConfirmationClaims(user)
	assert.True(t, claims.Matches(user))

	t.Run("other location same instant", func(t *testing.T) {
		loc := time.FixedZone("UTC+2", 2*60*60)
		shifted := *user
		shifted.CreatedAt = created.In(loc)
		assert.True(t, claims.Matches(&shifted))
	})

	t.Run("sub millisecond drift", func(t *testing.T) {
		drift := *user
		drift.CreatedAt = created.Add(400 * time.Microsecond)
		assert.True(t, claims.Matches(&drift))
	})

	t.Run("id mismatch", func(t *testing.T) {
		other := *user
		other.ID = uuid.New()
		assert.False(t, claims.Matches(&other))
	})

	t.Run("email mismatch", func(t *testing.T) {
		other := *user
		other.Email = "changed@example.com"
		assert.False(t, claims.Matches(&other))
	})

	t.Run("createdAt mismatch", func(t *testing.T) {
		other := *user
		other.CreatedAt = created.Add(time.Second)
		assert.False(t, claims.Matches(&other))
	})

	t.Run("nil", func(t *testing.T) {
		assert.False(t, claims.Matches(nil))
		var empty *ConfirmationClaims
		assert.False(t, empty.Matches(user))
	})
}

func TestConfirmationClaims_Payload(t *testing.T) {
	user := &UserView{
		ID:          uuid.New(),
		Email:       "payload@example.com",
		Name:        "Payload",
		EmailStatus: EmailStatusPending,
		CreatedAt:   time.Now().UTC(),
	}

	raw, err := json.Marshal(newConfirmationClaims(user))
	require.NoError(t, err)

	payload := map[string]any{}
	require.NoError(t, json.Unmarshal(raw, &payload))

	assert.Len(t, payload, 3)
	assert.Contains(t, payload, "id")
	assert.Contains(t, payload, "email")
	assert.Contains(t, payload, "createdAt")
}

func TestSessionClaims_Projection(t *testing.T) {
	user := &UserView{
		ID:          uuid.New(),
		Email:       "session@example.com",
		Name:        "Session",
		EmailStatus: EmailStatusVerified,
		CreatedAt:   time.Now().UTC(),
	}

	claims := newSessionClaims(user)
	assert.Equal(t, user.ID.String(), claims.Subject)
	assert.Equal(t, user.ID.String(), claims.UserID)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, user.Name, claims.Name)
	assert.Equal(t, EmailStatusVerified, claims.EmailStatus)
}
