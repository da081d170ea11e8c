package accounts

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"
)

// UpdateUserMessage patches profile fields, nil fields are left untouched
type UpdateUserMessage struct {
	UserID    string          `json:"-"`
	Name      *string         `json:"name,omitempty"`
	Email     *string         `json:"email,omitempty"`
	Password  *string         `json:"password,omitempty"`
	OnUpdated func(*UserView) `json:"-"`
}

func (e UpdateUserMessage) Type() string { return "user.update" }

func (e UpdateUserMessage) Validate() error {
	err := validation.ValidateStruct(&e,
		validation.Field(&e.UserID, validation.Required),
		validation.Field(&e.Name, validation.Length(0, 255)),
		validation.Field(&e.Email, validation.NilOrNotEmpty, is.Email),
		validation.Field(&e.Password, validation.NilOrNotEmpty, validation.Length(8, 72)),
	)
	if err != nil {
		return goerrors.FromOzzoValidation(err, "invalid user update")
	}
	return nil
}

// Patch converts the message into a UserPatch
func (e UpdateUserMessage) Patch() UserPatch {
	return UserPatch{
		Name:     e.Name,
		Email:    e.Email,
		Password: e.Password,
	}
}

type UpdateUserHandler struct {
	accounts Accounts
}

var _ command.Commander[UpdateUserMessage] = (*UpdateUserHandler)(nil)

func NewUpdateUserHandler(accounts Accounts) *UpdateUserHandler {
	return &UpdateUserHandler{accounts: accounts}
}

func (h *UpdateUserHandler) Execute(ctx context.Context, event UpdateUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during user update")
	default:
		return h.execute(ctx, event)
	}
}

func (h *UpdateUserHandler) execute(ctx context.Context, event UpdateUserMessage) error {
	if err := event.Validate(); err != nil {
		return err
	}

	id, err := ParseUserID(event.UserID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	user, err := h.accounts.Update(ctx, id, event.Patch())
	if err != nil {
		return richOrInternal(err, "failed to update user")
	}

	if event.OnUpdated != nil {
		event.OnUpdated(user)
	}

	return nil
}

type DeleteUserMessage struct {
	UserID string `json:"id"`
}

func (e DeleteUserMessage) Type() string { return "user.delete" }

func (e DeleteUserMessage) Validate() error {
	err := validation.ValidateStruct(&e,
		validation.Field(&e.UserID, validation.Required),
	)
	if err != nil {
		return goerrors.FromOzzoValidation(err, "invalid user delete")
	}
	return nil
}

type DeleteUserHandler struct {
	accounts Accounts
}

var _ command.Commander[DeleteUserMessage] = (*DeleteUserHandler)(nil)

func NewDeleteUserHandler(accounts Accounts) *DeleteUserHandler {
	return &DeleteUserHandler{accounts: accounts}
}

func (h *DeleteUserHandler) Execute(ctx context.Context, event DeleteUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during user delete")
	default:
		return h.execute(ctx, event)
	}
}

func (h *DeleteUserHandler) execute(ctx context.Context, event DeleteUserMessage) error {
	if err := event.Validate(); err != nil {
		return err
	}

	id, err := ParseUserID(event.UserID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	if err := h.accounts.Delete(ctx, id); err != nil {
		return richOrInternal(err, "failed to delete user")
	}

	return nil
}
