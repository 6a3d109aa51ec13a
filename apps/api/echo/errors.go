package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/account"
)

var (
	errUnauthorized    = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errRefreshExpired  = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden   = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errTooManyRequests = echo.NewHTTPError(http.StatusTooManyRequests, "too many login attempts, try again later")
	errInvalidID       = echo.NewHTTPError(http.StatusNotFound, "not found")
	errInvalidMonth    = core.NewFieldError("month", "month must be formatted as YYYY-MM or YYYY-MM-DD")
)

// classifyError maps err to its HTTP status and JSON message.
// internal is true for errors the client is not meant to understand.
func classifyError(err error, translator ut.Translator) (code int, message interface{}, internal bool) {
	cause := errors.Cause(err)
	switch cause {
	case core.ErrForbidden:
		return http.StatusForbidden, cause.Error(), false
	case account.ErrPendingApproval:
		return http.StatusForbidden, cause.Error(), false
	}

	switch origErr := cause.(type) {
	case *echo.HTTPError:
		if origErr == middleware.ErrJWTMissing {
			return http.StatusUnauthorized, origErr.Message, false
		}
		if origErr.Internal != nil {
			if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
				origErr = herr
			}
		}
		return origErr.Code, origErr.Message, false
	case validator.ValidationErrors:
		fldErrs := make(map[string]string, len(origErr))
		for _, vErr := range origErr {
			if translator != nil {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			} else {
				fldErrs[vErr.Field()] = vErr.Error()
			}
		}
		return http.StatusBadRequest, fldErrs, false
	case *core.ValidationError:
		if origErr.Fields != nil {
			fldErrs := make(map[string]string, len(origErr.Fields))
			for _, fErr := range origErr.Fields {
				fldErrs[fErr.Field] = fErr.Error
			}
			return http.StatusBadRequest, fldErrs, false
		}
		return http.StatusBadRequest, origErr.Error(), false
	case *core.NotFoundError:
		return http.StatusNotFound, origErr.Error(), false
	default: // any other error is a server error
		return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), true
	}
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, message, internal := classifyError(err, translator)

		if internal {
			msg := message.(string)
			var acc account.Account
			if capa := contextCapability(ctx); capa.Authenticated() {
				acc.ID = capa.AccountID
				acc.Role = capa.Role
			}
			logger.Error(msg, errors.Wrap(err, msg), acc)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
			if ctx.Echo().Debug {
				message = err.Error()
			}
		}

		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
