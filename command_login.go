package accounts

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"
)

type LoginMessage struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (e LoginMessage) Type() string { return "user.login" }

func (e LoginMessage) Validate() error {
	err := validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, is.Email),
		validation.Field(&e.Password, validation.Required),
	)
	if err != nil {
		return goerrors.FromOzzoValidation(err, "invalid login request")
	}
	return nil
}

// LoginHandler is a query: it returns the session token and has no side
// effects on the account
type LoginHandler struct {
	auth AuthService
}

var _ command.Querier[LoginMessage, *LoginResult] = (*LoginHandler)(nil)

func NewLoginHandler(auth AuthService) *LoginHandler {
	return &LoginHandler{auth: auth}
}

func (h *LoginHandler) Query(ctx context.Context, event LoginMessage) (*LoginResult, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during login")
	default:
	}

	if err := event.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	res, err := h.auth.Login(ctx, event.Email, event.Password)
	if err != nil {
		return nil, richOrInternal(err, "login failed")
	}

	return res, nil
}
