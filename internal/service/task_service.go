package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"simple-todos/internal/model"
	"simple-todos/internal/repository"
)

// TaskStore is the persistence the task methods delegate to.
type TaskStore interface {
	Insert(ctx context.Context, task *model.Task) (string, error)
	FindByID(ctx context.Context, id string) (*model.Task, error)
	UpdateField(ctx context.Context, id, field string, value any) (int64, error)
	Remove(ctx context.Context, id string) (int64, error)
	ListByOwner(ctx context.Context, userID string, hideChecked bool) ([]model.Task, error)
	CountPendingByOwner(ctx context.Context, userID string) (int64, error)
}

var _ TaskStore = (*repository.TaskRepository)(nil)

// TaskService implements the tasks.* methods. Every method takes the caller id
// explicitly; an empty caller id means the call is unauthenticated.
type TaskService struct {
	store TaskStore
	log   zerolog.Logger
	now   func() time.Time
}

// TaskOption customises a TaskService.
type TaskOption func(*TaskService)

// WithClock replaces time.Now as the source of CreatedAt.
func WithClock(now func() time.Time) TaskOption {
	return func(s *TaskService) { s.now = now }
}

func NewTaskService(store TaskStore, log zerolog.Logger, opts ...TaskOption) *TaskService {
	s := &TaskService{store: store, log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Insert creates a task owned by the caller and returns its id.
func (s *TaskService) Insert(ctx context.Context, callerID, text string) (string, error) {
	if callerID == "" {
		return "", s.reject("tasks.insert", callerID, "", ErrNotAuthorized)
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrTextRequired
	}

	id, err := s.store.Insert(ctx, &model.Task{
		Text:      text,
		CreatedAt: s.now(),
		UserID:    callerID,
	})
	if err != nil {
		return "", err
	}
	s.log.Info().Str("method", "tasks.insert").Str("user_id", callerID).Str("task_id", id).Msg("task inserted")
	return id, nil
}

// SetIsChecked sets the completion flag of a task. Any authenticated caller may
// toggle any task; a missing task is a silent no-op.
func (s *TaskService) SetIsChecked(ctx context.Context, callerID, taskID string, isChecked bool) error {
	if callerID == "" {
		return s.reject("tasks.setIsChecked", callerID, taskID, ErrNotAuthorized)
	}

	rows, err := s.store.UpdateField(ctx, taskID, repository.FieldIsChecked, isChecked)
	if err != nil {
		return err
	}
	s.log.Info().Str("method", "tasks.setIsChecked").Str("user_id", callerID).Str("task_id", taskID).
		Bool("is_checked", isChecked).Int64("rows", rows).Msg("task checked state set")
	return nil
}

// Remove deletes a task owned by the caller. Ownership is verified before the
// delete is issued; a missing task is a silent no-op.
func (s *TaskService) Remove(ctx context.Context, callerID, taskID string) error {
	if callerID == "" {
		return s.reject("tasks.remove", callerID, taskID, ErrNotAuthorized)
	}

	task, err := s.store.FindByID(ctx, taskID)
	if err != nil {
		return err
	}
	if task != nil && task.UserID != callerID {
		return s.reject("tasks.remove", callerID, taskID, ErrAccessDenied)
	}

	rows, err := s.store.Remove(ctx, taskID)
	if err != nil {
		return err
	}
	s.log.Info().Str("method", "tasks.remove").Str("user_id", callerID).Str("task_id", taskID).
		Int64("rows", rows).Msg("task removed")
	return nil
}

// TaskList is the caller's view of their own tasks.
type TaskList struct {
	Tasks   []model.Task
	Pending int64
}

// List returns the caller's tasks, newest first, optionally without checked ones.
func (s *TaskService) List(ctx context.Context, callerID string, hideChecked bool) (TaskList, error) {
	if callerID == "" {
		return TaskList{}, ErrNotAuthorized
	}
	tasks, err := s.store.ListByOwner(ctx, callerID, hideChecked)
	if err != nil {
		return TaskList{}, err
	}
	pending, err := s.store.CountPendingByOwner(ctx, callerID)
	if err != nil {
		return TaskList{}, err
	}
	return TaskList{Tasks: tasks, Pending: pending}, nil
}

func (s *TaskService) reject(method, callerID, taskID string, err *MethodError) error {
	s.log.Warn().Str("method", method).Str("user_id", callerID).Str("task_id", taskID).
		Str("code", err.Code).Msg("method call rejected")
	return err
}
