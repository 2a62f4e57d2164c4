// Package httpapi exposes the task and account methods over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"simple-todos/internal/service"
)

// Server owns the echo instance serving the method endpoints.
type Server struct {
	echo *echo.Echo
	log  zerolog.Logger
}

func New(tasks *service.TaskService, accounts *service.AccountService, lg zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(lg)

	h := &handler{tasks: tasks, accounts: accounts}

	e.Use(requestLogger(lg))
	e.Use(authenticate(accounts, lg))

	e.GET("/health", h.health)

	api := e.Group("/api")
	api.POST("/users", h.register)
	api.POST("/login", h.login)
	api.POST("/logout", h.logout)
	api.GET("/me", h.me)
	api.GET("/tasks", h.listTasks)

	methods := e.Group("/methods")
	methods.POST("/tasks.insert", h.insertTask)
	methods.POST("/tasks.setIsChecked", h.setIsChecked)
	methods.POST("/tasks.remove", h.removeTask)

	return &Server{echo: e, log: lg}
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.log.Info().Str("address", addr).Msg("http server starting")
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.echo.Shutdown(ctx)
}
