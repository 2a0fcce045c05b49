package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"meeting-planner/internal/apperr"
)

// ErrorMessage is the body of every error response.
type ErrorMessage struct {
	Detail string `json:"detail"`
}

// ErrorHandler writes errors as {"detail": ...}. Service errors are mapped
// with apperr.Status; anything else becomes a 500 with a generic detail.
func ErrorHandler(e *echo.Echo) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := http.StatusInternalServerError, ErrorMessage{Detail: apperr.UnexpectedDetail}
		var he *echo.HTTPError
		switch {
		case errors.As(err, &he):
			code = he.Code
			switch m := he.Message.(type) {
			case ErrorMessage:
				body = m
			case string:
				body = ErrorMessage{Detail: m}
			default:
				body = ErrorMessage{Detail: http.StatusText(code)}
			}
		default:
			code, body.Detail = apperr.Status(err)
		}

		if code >= http.StatusInternalServerError {
			e.Logger.Error(err)
		} else {
			e.Logger.Debug(err)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, body)
		}
		if err != nil {
			e.Logger.Error(err)
		}
	}
}

func badRequest(format string, args ...any) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, ErrorMessage{Detail: fmt.Sprintf(format, args...)})
}

func pathUint(c echo.Context, name string) (uint, error) {
	raw := c.Param(name)
	v, err := strconv.ParseUint(raw, 10, 0)
	if err != nil {
		return 0, badRequest("%s must be a positive integer, got %q", name, raw)
	}
	return uint(v), nil
}

func pathUUID(c echo.Context, name string) (uuid.UUID, error) {
	raw := c.Param(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, badRequest("%s must be a UUID, got %q", name, raw)
	}
	return id, nil
}

// queryInt reads an optional integer query parameter.
func queryInt(c echo.Context, name string, fallback int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, badRequest("%s must be a non-negative integer, got %q", name, raw)
	}
	return v, nil
}

func pagination(c echo.Context) (skip, limit int, err error) {
	if skip, err = queryInt(c, "skip", 0); err != nil {
		return 0, 0, err
	}
	if limit, err = queryInt(c, "limit", 10); err != nil {
		return 0, 0, err
	}
	return skip, limit, nil
}
