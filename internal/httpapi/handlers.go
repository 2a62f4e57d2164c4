package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"simple-todos/internal/model"
	"simple-todos/internal/service"
)

type handler struct {
	tasks    *service.TaskService
	accounts *service.AccountService
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type insertRequest struct {
	Text string `json:"text"`
}

type insertResponse struct {
	ID string `json:"id"`
}

type setIsCheckedRequest struct {
	TaskID    string `json:"taskId"`
	IsChecked *bool  `json:"isChecked"`
}

type removeRequest struct {
	TaskID string `json:"taskId"`
}

type taskResponse struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	UserID    string    `json:"userId"`
	IsChecked bool      `json:"isChecked"`
}

type taskListResponse struct {
	Tasks   []taskResponse `json:"tasks"`
	Pending int64          `json:"pending"`
}

func (h *handler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) register(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(err)
	}
	user, err := h.accounts.CreateUser(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, userResponse{ID: user.ID, Username: user.Username})
}

func (h *handler) login(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(err)
	}
	session, err := h.accounts.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, loginResponse{Token: session.Token, UserID: session.UserID, ExpiresAt: session.ExpiresAt})
}

func (h *handler) logout(c echo.Context) error {
	if err := h.accounts.Logout(c.Request().Context(), sessionToken(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handler) me(c echo.Context) error {
	user, err := h.accounts.CurrentUser(c.Request().Context(), callerID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResponse{ID: user.ID, Username: user.Username})
}

func (h *handler) listTasks(c echo.Context) error {
	hide := false
	if raw := c.QueryParam("hideCompleted"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return badRequest(err)
		}
		hide = parsed
	}
	list, err := h.tasks.List(c.Request().Context(), callerID(c), hide)
	if err != nil {
		return err
	}
	resp := taskListResponse{Tasks: make([]taskResponse, 0, len(list.Tasks)), Pending: list.Pending}
	for _, task := range list.Tasks {
		resp.Tasks = append(resp.Tasks, toTaskResponse(task))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *handler) insertTask(c echo.Context) error {
	var req insertRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(err)
	}
	id, err := h.tasks.Insert(c.Request().Context(), callerID(c), req.Text)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, insertResponse{ID: id})
}

func (h *handler) setIsChecked(c echo.Context) error {
	var req setIsCheckedRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(err)
	}
	if req.TaskID == "" {
		return missingField("taskId")
	}
	if req.IsChecked == nil {
		return missingField("isChecked")
	}
	if err := h.tasks.SetIsChecked(c.Request().Context(), callerID(c), req.TaskID, *req.IsChecked); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handler) removeTask(c echo.Context) error {
	var req removeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(err)
	}
	if req.TaskID == "" {
		return missingField("taskId")
	}
	if err := h.tasks.Remove(c.Request().Context(), callerID(c), req.TaskID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func toTaskResponse(task model.Task) taskResponse {
	return taskResponse{
		ID:        task.ID,
		Text:      task.Text,
		CreatedAt: task.CreatedAt,
		UserID:    task.UserID,
		IsChecked: task.IsChecked,
	}
}
