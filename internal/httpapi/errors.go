package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"simple-todos/internal/service"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var statusByCode = map[string]int{
	service.ErrNotAuthorized.Code:      http.StatusUnauthorized,
	service.ErrAccessDenied.Code:       http.StatusForbidden,
	service.ErrTextRequired.Code:       http.StatusBadRequest,
	service.ErrInvalidCredentials.Code: http.StatusUnauthorized,
	service.ErrUsernameTaken.Code:      http.StatusConflict,
}

func badRequest(err error) error {
	return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
}

func missingField(name string) error {
	return echo.NewHTTPError(http.StatusBadRequest, name+" is required")
}

// errorHandler renders method rejections with their code and hides storage
// failures behind a generic 500.
func errorHandler(lg zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		resp := errorResponse{Error: "Internal server error.", Code: "internal"}

		var httpErr *echo.HTTPError
		switch me, ok := service.AsMethodError(err); {
		case ok:
			resp = errorResponse{Error: me.Message, Code: me.Code}
			if s, known := statusByCode[me.Code]; known {
				status = s
			}
		case errors.As(err, &httpErr):
			status = httpErr.Code
			resp = errorResponse{Error: http.StatusText(status), Code: "http"}
			if msg, isString := httpErr.Message.(string); isString {
				resp.Error = msg
			}
		default:
			lg.Error().Err(err).Str("http_path", c.Request().URL.Path).Msg("request failed")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, resp)
		}
		if err != nil {
			lg.Error().Err(err).Msg("write error response")
		}
	}
}
