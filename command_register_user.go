package accounts

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-featuregate/gate"
	"github.com/goliatone/hashid/pkg/hashid"
)

const handlerTimeout = time.Second * 10

type RegisterUserMessage struct {
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Password  string          `json:"password"`
	UseHashid bool            `json:"-"`
	OnCreated func(*UserView) `json:"-"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

func (e RegisterUserMessage) Validate() error {
	err := validation.ValidateStruct(&e,
		validation.Field(&e.Name, validation.Length(0, 255)),
		validation.Field(&e.Email, validation.Required, is.Email),
		validation.Field(&e.Password, validation.Required, validation.Length(8, 72)),
	)
	if err != nil {
		return goerrors.FromOzzoValidation(err, "invalid registration")
	}
	return nil
}

type RegisterUserHandler struct {
	auth        AuthService
	logger      Logger
	featureGate gate.FeatureGate
}

var _ command.Commander[RegisterUserMessage] = (*RegisterUserHandler)(nil)

func NewRegisterUserHandler(auth AuthService) *RegisterUserHandler {
	return &RegisterUserHandler{auth: auth, logger: defLogger{}}
}

func (h *RegisterUserHandler) WithLogger(logger Logger) *RegisterUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithFeatureGate makes registration depend on the users.signup feature
func (h *RegisterUserHandler) WithFeatureGate(featureGate gate.FeatureGate) *RegisterUserHandler {
	h.featureGate = featureGate
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	if err := requireSignupGate(ctx, h.featureGate); err != nil {
		return err
	}

	if err := event.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	registration := Registration{
		Name:     event.Name,
		Email:    event.Email,
		Password: event.Password,
	}

	if event.UseHashid {
		if id, err := hashid.NewUUID(event.Email); err == nil {
			registration.ID = id
		} else {
			h.logger.Warn("hashid generation failed, falling back to random id: %v", err)
		}
	}

	user, err := h.auth.Register(ctx, registration)
	if err != nil {
		return richOrInternal(err, "user registration failed")
	}

	if event.OnCreated != nil {
		event.OnCreated(user)
	}

	return nil
}

// richOrInternal passes domain errors through and wraps anything else
func richOrInternal(err error, message string) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, message)
}
