package accounts

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeUserNotFound             = "USER_NOT_FOUND"
	TextCodeEmailInUse               = "EMAIL_IN_USE"
	TextCodeEmailAlreadyVerified     = "EMAIL_ALREADY_VERIFIED"
	TextCodeConfirmationNotRequested = "CONFIRMATION_NOT_REQUESTED"
	TextCodeInvalidToken             = "INVALID_TOKEN"
	TextCodeInvalidTransition        = "INVALID_EMAIL_STATUS_TRANSITION"
)

// ErrUserNotFound is returned when the referenced user does not exist
var ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound).
	WithTextCode(TextCodeUserNotFound)

// ErrEmailInUse is returned when registering or updating to an email that
// belongs to another account
var ErrEmailInUse = goerrors.New("email already in use", goerrors.CategoryConflict).
	WithCode(goerrors.CodeConflict).
	WithTextCode(TextCodeEmailInUse)

// ErrEmailAlreadyVerified is returned by the confirmation flow once the
// account reached VERIFIED
var ErrEmailAlreadyVerified = goerrors.New("email already verified", goerrors.CategoryConflict).
	WithCode(goerrors.CodeConflict).
	WithTextCode(TextCodeEmailAlreadyVerified)

// ErrConfirmationNotRequested is returned when confirming an account that
// never had a confirmation email sent
var ErrConfirmationNotRequested = goerrors.New("confirmation token invalid", goerrors.CategoryConflict).
	WithCode(goerrors.CodeConflict).
	WithTextCode(TextCodeConfirmationNotRequested)

// ErrInvalidToken covers every confirmation token failure: bad signature,
// mismatched id, mismatched email and mismatched creation time.
var ErrInvalidToken = goerrors.New("invalid token", goerrors.CategoryBadInput).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode(TextCodeInvalidToken)

// ErrInvalidCredentials is the single login failure, unknown email and wrong
// password are indistinguishable
var ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(goerrors.TextCodeInvalidCredentials)

// ErrEmptyPassword is returned when hashing an empty password
var ErrEmptyPassword = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode(goerrors.TextCodeEmptyPassword)

// ErrMismatchedHashAndPassword is returned by hashers when the password does
// not match the stored hash
var ErrMismatchedHashAndPassword = goerrors.New("password does not match", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(goerrors.TextCodeInvalidCredentials)

// IsUserNotFound reports whether err is (or wraps) ErrUserNotFound
func IsUserNotFound(err error) bool {
	return hasTextCode(err, TextCodeUserNotFound)
}

// IsEmailInUse reports whether err is (or wraps) ErrEmailInUse
func IsEmailInUse(err error) bool {
	return hasTextCode(err, TextCodeEmailInUse)
}

// IsEmailAlreadyVerified reports whether err is (or wraps) ErrEmailAlreadyVerified
func IsEmailAlreadyVerified(err error) bool {
	return hasTextCode(err, TextCodeEmailAlreadyVerified)
}

// IsConfirmationNotRequested reports whether err is (or wraps) ErrConfirmationNotRequested
func IsConfirmationNotRequested(err error) bool {
	return hasTextCode(err, TextCodeConfirmationNotRequested)
}

// IsInvalidToken reports whether err is (or wraps) ErrInvalidToken
func IsInvalidToken(err error) bool {
	return hasTextCode(err, TextCodeInvalidToken)
}

// IsInvalidCredentials reports whether err is a login failure
func IsInvalidCredentials(err error) bool {
	return hasTextCode(err, goerrors.TextCodeInvalidCredentials)
}

func hasTextCode(err error, code string) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}

// withMetadata clones a sentinel so request scoped metadata never leaks into
// the shared value
func withMetadata(err *goerrors.Error, meta map[string]any) *goerrors.Error {
	return err.Clone().WithMetadata(meta)
}
