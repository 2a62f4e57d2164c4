package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"simple-todos/internal/model"
)

// DemoTasks are inserted for the seed user when the task store is empty.
var DemoTasks = []string{
	"First Task",
	"Second Task",
	"Third Task",
	"Fourth Task",
	"Fifth Task",
	"Sixth Task",
	"Seventh Task",
}

// SeedStore is the part of the task store the seeder needs.
type SeedStore interface {
	Insert(ctx context.Context, task *model.Task) (string, error)
	CountAll(ctx context.Context) (int64, error)
}

// Seeder bootstraps a demo account and demo tasks.
type Seeder struct {
	accounts *AccountService
	tasks    SeedStore
	username string
	password string
	log      zerolog.Logger
}

func NewSeeder(accounts *AccountService, tasks SeedStore, username, password string, log zerolog.Logger) *Seeder {
	return &Seeder{accounts: accounts, tasks: tasks, username: username, password: password, log: log}
}

// Seed creates the demo user if missing and, only when no task exists yet,
// the demo tasks owned by that user. Running it again changes nothing.
func (s *Seeder) Seed(ctx context.Context) error {
	user, err := s.accounts.FindUserByUsername(ctx, s.username)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	if user == nil {
		if user, err = s.accounts.CreateUser(ctx, s.username, s.password); err != nil {
			return fmt.Errorf("seed user: %w", err)
		}
	}

	count, err := s.tasks.CountAll(ctx)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	if count > 0 {
		s.log.Debug().Int64("tasks", count).Msg("seed skipped, store not empty")
		return nil
	}

	now := time.Now()
	for i, text := range DemoTasks {
		task := &model.Task{
			Text:      text,
			UserID:    user.ID,
			CreatedAt: now.Add(time.Duration(i) * time.Millisecond),
		}
		if _, err := s.tasks.Insert(ctx, task); err != nil {
			return fmt.Errorf("seed task %q: %w", text, err)
		}
	}
	s.log.Info().Str("user_id", user.ID).Int("tasks", len(DemoTasks)).Msg("demo data seeded")
	return nil
}
