package httpapi

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"simple-todos/internal/service"
)

const (
	callerKey = "caller_id"
	tokenKey  = "session_token"
)

// requestLogger writes one line per request with its status and duration.
func requestLogger(lg zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			req := c.Request()
			lg.Info().
				Str("http_method", req.Method).
				Str("http_path", req.URL.Path).
				Int("http_status", c.Response().Status).
				Dur("duration", time.Since(start)).
				Str("remote_addr", c.RealIP()).
				Str("user_id", callerID(c)).
				Msg("http request completed")
			return nil
		}
	}
}

// authenticate resolves a bearer token into the caller id. Requests without a
// valid token proceed with no caller and are rejected by the methods themselves.
func authenticate(accounts *service.AccountService, lg zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if token != "" {
				caller, err := accounts.ResolveToken(c.Request().Context(), token)
				if err != nil {
					lg.Error().Err(err).Msg("resolve session token")
					return err
				}
				c.Set(tokenKey, token)
				c.Set(callerKey, caller)
			}
			return next(c)
		}
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func callerID(c echo.Context) string {
	id, _ := c.Get(callerKey).(string)
	return id
}

func sessionToken(c echo.Context) string {
	token, _ := c.Get(tokenKey).(string)
	return token
}
