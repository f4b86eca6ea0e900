package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/courseapp/courseapp/core"
	"github.com/courseapp/courseapp/core/exambank"
	"github.com/courseapp/courseapp/core/user"
)

var (
	errUnauthorized    = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errBadCredentials  = echo.NewHTTPError(http.StatusUnauthorized, user.ErrInvalidCredentials.Error())
	errHttpForbidden   = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound    = echo.NewHTTPError(http.StatusNotFound, "not found")
	errAttemptConflict = echo.NewHTTPError(http.StatusConflict, exambank.ErrAttemptClosed.Error())
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that renders every failure
// as {"success": false, "message": ...}, plus "errors" for field validation failures.
func newAppHTTPErrorHandler(logger core.Logger) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, message, fields := httpError(err)
		if code == http.StatusInternalServerError {
			var usr user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr = claims.User()
			}
			logger.Error(message, err, usr, map[string]interface{}{
				"method": ctx.Request().Method,
				"path":   ctx.Request().URL.Path,
			})
			if ctx.Echo().Debug {
				message = err.Error()
			}
		}

		body := echo.Map{"success": false, "message": message}
		if len(fields) > 0 {
			body["errors"] = fields
		}
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

// httpError maps err onto a status, a message and optional field errors.
func httpError(err error) (int, string, map[string]string) {
	cause := errors.Cause(err)
	if cause == exambank.ErrAttemptClosed {
		cause = errAttemptConflict
	}

	switch origErr := cause.(type) {
	case *echo.HTTPError:
		if origErr == middleware.ErrJWTMissing {
			return http.StatusUnauthorized, "missing or malformed jwt", nil
		}
		if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
			origErr = herr
		}
		msg, ok := origErr.Message.(string)
		if !ok {
			msg = http.StatusText(origErr.Code)
		}
		return origErr.Code, msg, nil
	case *core.ValidationError:
		var fields map[string]string
		if len(origErr.Fields) > 0 {
			fields = make(map[string]string, len(origErr.Fields))
			for _, fErr := range origErr.Fields {
				fields[fErr.Field] = fErr.Error
			}
		}
		return http.StatusBadRequest, origErr.Error(), fields
	case *core.NotFoundError:
		return http.StatusNotFound, origErr.Error(), nil
	case *core.AuthError:
		return http.StatusUnauthorized, origErr.Error(), nil
	default: // any other error is a server error
		return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), nil
	}
}
