package accounts

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

var categoryStatus = map[goerrors.Category]int{
	goerrors.CategoryValidation: http.StatusBadRequest,
	goerrors.CategoryBadInput:   http.StatusBadRequest,
	goerrors.CategoryAuth:       http.StatusUnauthorized,
	goerrors.CategoryAuthz:      http.StatusForbidden,
	goerrors.CategoryNotFound:   http.StatusNotFound,
	goerrors.CategoryConflict:   http.StatusConflict,
	goerrors.CategoryRateLimit:  http.StatusTooManyRequests,
	goerrors.CategoryExternal:   http.StatusBadGateway,
	goerrors.CategoryOperation:  http.StatusServiceUnavailable,
}

// HTTPStatus resolves the response status for err: the error code when set,
// otherwise the category, otherwise 500.
func HTTPStatus(err error) int {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return http.StatusInternalServerError
	}

	if richErr.Code >= 400 && richErr.Code < 600 {
		return richErr.Code
	}

	if status, ok := categoryStatus[richErr.Category]; ok {
		return status
	}

	return http.StatusInternalServerError
}

// toResponseError returns a copy of err safe to serialize. Outside debug
// the wrapped source and location are dropped and unknown errors are
// replaced with a generic message.
func toResponseError(err error, debug bool) *goerrors.Error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		richErr = richErr.Clone()
	} else {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "internal server error")
	}

	if !debug {
		richErr.Source = nil
		richErr.Location = nil
	}

	return richErr
}

// ErrorHandler renders err as a go-errors response. It is usable as the
// fiber app ErrorHandler.
func ErrorHandler(logger Logger, debug bool) fiber.ErrorHandler {
	if logger == nil {
		logger = defLogger{}
	}

	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if goerrors.As(err, &fiberErr) {
			err = goerrors.New(fiberErr.Message, goerrors.HTTPStatusToCategory(fiberErr.Code)).
				WithCode(fiberErr.Code)
		}

		status := HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			logger.Error("request failed: %s %s: %v", c.Method(), c.Path(), err)
		} else {
			logger.Debug("request rejected: %s %s: status=%d err=%v", c.Method(), c.Path(), status, err)
		}

		richErr := toResponseError(err, debug)
		return c.Status(status).JSON(richErr.ToErrorResponse(debug, richErr.StackTrace))
	}
}
