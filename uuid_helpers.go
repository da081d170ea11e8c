package accounts

import (
	"strings"

	"github.com/google/uuid"
)

// ParseUserID parses a user id coming from the transport layer. An id that
// is not a UUID cannot reference a user so it is reported as ErrUserNotFound.
func ParseUserID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, withMetadata(ErrUserNotFound, map[string]any{"id": raw})
	}
	return id, nil
}
