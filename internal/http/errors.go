package http

import (
	"errors"
	"net/http"

	"github.com/fyrsmithlabs/novenad/internal/content"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// statusOf maps a handler error to its HTTP status and client message.
func statusOf(err error) (int, string) {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		return he.Code, msg
	case errors.Is(err, content.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, content.ErrInvalidDay), errors.Is(err, errInvalidExpand):
		return http.StatusBadRequest, err.Error()
	default:
		// Reference failures mean broken content; the message names the
		// offending reference.
		return http.StatusInternalServerError, err.Error()
	}
}

func errorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		c.Response().Header().Del(echo.HeaderCacheControl)
		code, msg := statusOf(err)
		if code >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(code)
		} else {
			werr = c.JSON(code, ErrorResponse{Error: msg})
		}
		if werr != nil {
			logger.Warn("writing error response", zap.Error(werr))
		}
	}
}
