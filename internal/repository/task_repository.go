package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"simple-todos/internal/model"
)

// FieldIsChecked is the only task column that may change after insert.
const FieldIsChecked = "is_checked"

// ErrImmutableField is returned by UpdateField for any column other than FieldIsChecked.
var ErrImmutableField = errors.New("field is immutable")

// TaskRepository persists tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Insert assigns a fresh id to task, stores it and returns the id.
func (r *TaskRepository) Insert(ctx context.Context, task *model.Task) (string, error) {
	task.ID = uuid.NewString()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return "", fmt.Errorf("insert task: %w", err)
	}
	return task.ID, nil
}

// FindByID returns nil without error when no task has the id.
func (r *TaskRepository) FindByID(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error
	switch {
	case err == nil:
		return &task, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	default:
		return nil, fmt.Errorf("find task: %w", err)
	}
}

// UpdateField sets one column of a task and returns the number of rows changed.
func (r *TaskRepository) UpdateField(ctx context.Context, id, field string, value any) (int64, error) {
	if field != FieldIsChecked {
		return 0, fmt.Errorf("update task %s: %w", field, ErrImmutableField)
	}
	res := r.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", id).Update(field, value)
	if res.Error != nil {
		return 0, fmt.Errorf("update task: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Remove deletes a task and returns the number of rows deleted.
func (r *TaskRepository) Remove(ctx context.Context, id string) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Task{})
	if res.Error != nil {
		return 0, fmt.Errorf("remove task: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *TaskRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Task{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return count, nil
}

func (r *TaskRepository) FindAll(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}
	return tasks, nil
}

// ListByOwner returns the user's tasks, newest first.
func (r *TaskRepository) ListByOwner(ctx context.Context, userID string, hideChecked bool) ([]model.Task, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if hideChecked {
		q = q.Where("is_checked = ?", false)
	}
	var tasks []model.Task
	if err := q.Order("created_at DESC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) CountPendingByOwner(ctx context.Context, userID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("user_id = ? AND is_checked = ?", userID, false).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count pending tasks: %w", err)
	}
	return count, nil
}
