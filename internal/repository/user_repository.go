package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"simple-todos/internal/model"
)

// UserRepository handles CRUD for users.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create assigns an id to user and stores it.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	user.ID = uuid.NewString()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// FindByUsername returns nil without error when the username is unknown.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findOne(ctx, "username = ?", username)
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *UserRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	return r.findOne(ctx, "telegram_id = ?", telegramID)
}

// SetTelegramID links a chat account to the user, unlinking it from any other user first.
func (r *UserRepository) SetTelegramID(ctx context.Context, userID string, telegramID *int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if telegramID != nil {
			if err := tx.Model(&model.User{}).
				Where("telegram_id = ? AND id <> ?", *telegramID, userID).
				Update("telegram_id", nil).Error; err != nil {
				return fmt.Errorf("unlink telegram: %w", err)
			}
		}
		if err := tx.Model(&model.User{}).Where("id = ?", userID).
			Update("telegram_id", telegramID).Error; err != nil {
			return fmt.Errorf("link telegram: %w", err)
		}
		return nil
	})
}

func (r *UserRepository) findOne(ctx context.Context, query string, args ...interface{}) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where(query, args...).First(&user).Error
	switch {
	case err == nil:
		return &user, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	default:
		return nil, fmt.Errorf("find user: %w", err)
	}
}
