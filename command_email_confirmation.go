package accounts

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"
)

// SendConfirmationMessage (re)sends the confirmation email
type SendConfirmationMessage struct {
	UserID string `json:"id"`
}

func (e SendConfirmationMessage) Type() string { return "user.email.send_confirmation" }

func (e SendConfirmationMessage) Validate() error {
	err := validation.ValidateStruct(&e,
		validation.Field(&e.UserID, validation.Required),
	)
	if err != nil {
		return goerrors.FromOzzoValidation(err, "invalid confirmation request")
	}
	return nil
}

type SendConfirmationHandler struct {
	auth AuthService
}

var _ command.Commander[SendConfirmationMessage] = (*SendConfirmationHandler)(nil)

func NewSendConfirmationHandler(auth AuthService) *SendConfirmationHandler {
	return &SendConfirmationHandler{auth: auth}
}

func (h *SendConfirmationHandler) Execute(ctx context.Context, event SendConfirmationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during confirmation email")
	default:
		return h.execute(ctx, event)
	}
}

func (h *SendConfirmationHandler) execute(ctx context.Context, event SendConfirmationMessage) error {
	if err := event.Validate(); err != nil {
		return err
	}

	id, err := ParseUserID(event.UserID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	if err := h.auth.ResendConfirmation(ctx, id); err != nil {
		return richOrInternal(err, "failed to send confirmation email")
	}

	return nil
}

// ConfirmEmailMessage carries the id and token from the confirmation link
type ConfirmEmailMessage struct {
	UserID      string          `json:"id"`
	Token       string          `json:"token"`
	OnConfirmed func(*UserView) `json:"-"`
}

func (e ConfirmEmailMessage) Type() string { return "user.email.confirm" }

func (e ConfirmEmailMessage) Validate() error {
	err := validation.ValidateStruct(&e,
		validation.Field(&e.UserID, validation.Required),
		validation.Field(&e.Token, validation.Required),
	)
	if err != nil {
		return goerrors.FromOzzoValidation(err, "invalid email confirmation")
	}
	return nil
}

type ConfirmEmailHandler struct {
	accounts Accounts
}

var _ command.Commander[ConfirmEmailMessage] = (*ConfirmEmailHandler)(nil)

func NewConfirmEmailHandler(accounts Accounts) *ConfirmEmailHandler {
	return &ConfirmEmailHandler{accounts: accounts}
}

func (h *ConfirmEmailHandler) Execute(ctx context.Context, event ConfirmEmailMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during email confirmation")
	default:
		return h.execute(ctx, event)
	}
}

func (h *ConfirmEmailHandler) execute(ctx context.Context, event ConfirmEmailMessage) error {
	if err := event.Validate(); err != nil {
		return err
	}

	id, err := ParseUserID(event.UserID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	user, err := h.accounts.ConfirmEmail(ctx, id, event.Token)
	if err != nil {
		return richOrInternal(err, "failed to confirm email")
	}

	if event.OnConfirmed != nil {
		event.OnConfirmed(user)
	}

	return nil
}
