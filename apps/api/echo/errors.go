package echoapi

import (
	"fmt"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/images"
	"github.com/trezcool/academia/core/proxy"
	"github.com/trezcool/academia/core/role"
	"github.com/trezcool/academia/core/social"
)

var (
	errUnauthorized    = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errTooManyRequests = echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")

	proxyErrorMessage = "API proxy error"
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message string
		var fields []core.FieldError

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = fmt.Sprint(origErr.Message)
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = fmt.Sprint(origErr.Message)
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			fields = core.ValidationFields(origErr, translator)
			message = core.ValidationError{Fields: fields}.Error()
		case *core.ValidationError:
			code = http.StatusBadRequest
			fields = origErr.Fields
			message = origErr.Error()
		case *core.ConfigError:
			code = http.StatusInternalServerError
			message = origErr.Error()
			logger.Error(message, err)
		case *core.UpstreamError:
			code = http.StatusBadGateway
			message = origErr.Error()
			logger.Warn(message, err)
		default:
			switch origErr {
			case proxy.ErrProxy:
				code = http.StatusInternalServerError
				message = proxyErrorMessage
				logger.Error(proxyErrorMessage, err)
			case social.ErrNotFound, role.ErrNotFound, images.ErrNoResults:
				code = http.StatusNotFound
				message = origErr.Error()
			default: // any other error is a server error
				code = http.StatusInternalServerError
				message = http.StatusText(http.StatusInternalServerError)

				var person core.Person
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					person = core.Person{ID: claims.Subject, Name: claims.Name, Email: claims.Email}
				}
				logger.Error(message, errors.Wrap(err, message), person)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		body := echo.Map{"error": message}
		if len(fields) > 0 {
			fldErrs := make(map[string]string, len(fields))
			for _, fErr := range fields {
				fldErrs[fErr.Field] = fErr.Error
			}
			body["fields"] = fldErrs
		}
		if ctx.Echo().Debug && code >= http.StatusInternalServerError {
			body["detail"] = err.Error()
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, body)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
