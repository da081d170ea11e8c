package accounts

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-featuregate/gate"
	"github.com/goliatone/go-print"
)

// ErrForbidden is returned when a session acts on another account
var ErrForbidden = goerrors.New("session does not own this account", goerrors.CategoryAuthz).
	WithCode(goerrors.CodeForbidden).
	WithTextCode("FORBIDDEN")

type HTTPControllerRoutes struct {
	Register     string
	Login        string
	User         string
	Confirmation string
	ConfirmEmail string
}

type HTTPController struct {
	Debug        bool
	Logger       Logger
	Auth         AuthService
	Accounts     Accounts
	Tokens       TokenService
	Routes       *HTTPControllerRoutes
	ErrorHandler fiber.ErrorHandler
	FeatureGate  gate.FeatureGate
	// HashidIDs derives new user ids from the registration email
	HashidIDs bool

	register     *RegisterUserHandler
	login        *LoginHandler
	sendConfirm  *SendConfirmationHandler
	confirmEmail *ConfirmEmailHandler
	updateUser   *UpdateUserHandler
	deleteUser   *DeleteUserHandler
}

type HTTPControllerOption func(*HTTPController) *HTTPController

func WithHTTPAuthService(auth AuthService) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		c.Auth = auth
		return c
	}
}

func WithHTTPAccounts(accounts Accounts) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		c.Accounts = accounts
		return c
	}
}

func WithHTTPTokenService(tokens TokenService) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		c.Tokens = tokens
		return c
	}
}

func WithHTTPLogger(logger Logger) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// WithHTTPFeatureGate gates the register endpoint behind users.signup
func WithHTTPFeatureGate(featureGate gate.FeatureGate) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		c.FeatureGate = featureGate
		return c
	}
}

// WithHTTPHashidIDs makes registration derive user ids from the email with hashid
func WithHTTPHashidIDs(enabled bool) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		c.HashidIDs = enabled
		return c
	}
}

func WithHTTPDebug(debug bool) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		c.Debug = debug
		return c
	}
}

func NewHTTPController(opts ...HTTPControllerOption) *HTTPController {
	c := &HTTPController{
		Logger: defLogger{},
		Routes: &HTTPControllerRoutes{
			Register:     "/auth/register",
			Login:        "/auth/login",
			User:         "/users/:id",
			Confirmation: "/users/:id/email/confirm",
			ConfirmEmail: "/users/:id/email/confirm/:token",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auth == nil {
		panic("Missing AuthService in accounts controller...")
	}

	if c.Accounts == nil {
		panic("Missing Accounts in accounts controller...")
	}

	if c.Tokens == nil {
		panic("Missing TokenService in accounts controller...")
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = ErrorHandler(c.Logger, c.Debug)
	}

	c.register = NewRegisterUserHandler(c.Auth).
		WithLogger(c.Logger).
		WithFeatureGate(c.FeatureGate)
	c.login = NewLoginHandler(c.Auth)
	c.sendConfirm = NewSendConfirmationHandler(c.Auth)
	c.confirmEmail = NewConfirmEmailHandler(c.Accounts)
	c.updateUser = NewUpdateUserHandler(c.Accounts)
	c.deleteUser = NewDeleteUserHandler(c.Accounts)

	return c
}

// RegisterAccountRoutes mounts the account endpoints on app
func RegisterAccountRoutes(app fiber.Router, opts ...HTTPControllerOption) *HTTPController {
	controller := NewHTTPController(opts...)

	protected := ProtectedRoute(controller.Tokens, controller.ErrorHandler)

	app.Post(controller.Routes.Register, controller.RegisterPost).Name("register.post")
	app.Post(controller.Routes.Login, controller.LoginPost).Name("login.post")

	app.Get(controller.Routes.User, protected, controller.UserGet).Name("user.get")
	app.Patch(controller.Routes.User, protected, controller.UserPatch).Name("user.patch")
	app.Delete(controller.Routes.User, protected, controller.UserDelete).Name("user.delete")

	app.Post(controller.Routes.Confirmation, protected, controller.ConfirmationPost).Name("email-confirm.post")
	app.Get(controller.Routes.ConfirmEmail, controller.ConfirmEmailGet).Name("email-confirm.get")

	return controller
}

// RegisterRequest payload
type RegisterRequest struct {
	Name     string `json:"name" form:"name"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (h *HTTPController) RegisterPost(c *fiber.Ctx) error {
	payload := new(RegisterRequest)
	if err := c.BodyParser(payload); err != nil {
		return h.ErrorHandler(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse body"))
	}

	h.dump("REGISTER", payload)

	var created *UserView
	err := h.register.Execute(c.UserContext(), RegisterUserMessage{
		Name:      payload.Name,
		Email:     payload.Email,
		Password:  payload.Password,
		UseHashid: h.HashidIDs,
		OnCreated: func(u *UserView) { created = u },
	})
	if err != nil {
		return h.ErrorHandler(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (h *HTTPController) LoginPost(c *fiber.Ctx) error {
	payload := new(LoginRequest)
	if err := c.BodyParser(payload); err != nil {
		return h.ErrorHandler(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse body"))
	}

	h.dump("LOGIN", payload)

	res, err := h.login.Query(c.UserContext(), LoginMessage{
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		return h.ErrorHandler(c, err)
	}

	return c.JSON(res)
}

func (h *HTTPController) UserGet(c *fiber.Ctx) error {
	if err := h.ensureOwner(c); err != nil {
		return h.ErrorHandler(c, err)
	}

	id, err := ParseUserID(c.Params("id"))
	if err != nil {
		return h.ErrorHandler(c, err)
	}

	user, err := h.Accounts.GetExisting(c.UserContext(), id)
	if err != nil {
		return h.ErrorHandler(c, err)
	}

	return c.JSON(user)
}

// UserPatchRequest payload, absent fields are left untouched
type UserPatchRequest struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
}

func (h *HTTPController) UserPatch(c *fiber.Ctx) error {
	if err := h.ensureOwner(c); err != nil {
		return h.ErrorHandler(c, err)
	}

	payload := new(UserPatchRequest)
	if err := c.BodyParser(payload); err != nil {
		return h.ErrorHandler(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse body"))
	}

	h.dump("USER PATCH", payload)

	var updated *UserView
	err := h.updateUser.Execute(c.UserContext(), UpdateUserMessage{
		UserID:    c.Params("id"),
		Name:      payload.Name,
		Email:     payload.Email,
		Password:  payload.Password,
		OnUpdated: func(u *UserView) { updated = u },
	})
	if err != nil {
		return h.ErrorHandler(c, err)
	}

	return c.JSON(updated)
}

func (h *HTTPController) UserDelete(c *fiber.Ctx) error {
	if err := h.ensureOwner(c); err != nil {
		return h.ErrorHandler(c, err)
	}

	if err := h.deleteUser.Execute(c.UserContext(), DeleteUserMessage{UserID: c.Params("id")}); err != nil {
		return h.ErrorHandler(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *HTTPController) ConfirmationPost(c *fiber.Ctx) error {
	if err := h.ensureOwner(c); err != nil {
		return h.ErrorHandler(c, err)
	}

	if err := h.sendConfirm.Execute(c.UserContext(), SendConfirmationMessage{UserID: c.Params("id")}); err != nil {
		return h.ErrorHandler(c, err)
	}

	return c.SendStatus(fiber.StatusAccepted)
}

func (h *HTTPController) ConfirmEmailGet(c *fiber.Ctx) error {
	var confirmed *UserView
	err := h.confirmEmail.Execute(c.UserContext(), ConfirmEmailMessage{
		UserID:      c.Params("id"),
		Token:       c.Params("token"),
		OnConfirmed: func(u *UserView) { confirmed = u },
	})
	if err != nil {
		return h.ErrorHandler(c, err)
	}

	return c.JSON(confirmed)
}

func (h *HTTPController) ensureOwner(c *fiber.Ctx) error {
	session, ok := SessionFromLocals(c)
	if !ok {
		return ErrMissingSession
	}

	if session.UserID != c.Params("id") {
		return withMetadata(ErrForbidden, map[string]any{"id": c.Params("id")})
	}

	return nil
}

func (h *HTTPController) dump(label string, payload any) {
	if !h.Debug {
		return
	}
	fmt.Printf("======= ACCOUNTS %s ======\n", label)
	fmt.Println(print.MaybeSecureJSON(payload))
	fmt.Println("=========================")
}
