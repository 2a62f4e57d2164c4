package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"simple-todos/internal/model"
	"simple-todos/internal/repository"
)

// AccountService creates users, issues login tokens and resolves callers.
type AccountService struct {
	users    *repository.UserRepository
	sessions *repository.SessionRepository
	ttl      time.Duration
	log      zerolog.Logger
	now      func() time.Time
	cost     int
}

func NewAccountService(users *repository.UserRepository, sessions *repository.SessionRepository, ttl time.Duration, log zerolog.Logger) *AccountService {
	return &AccountService{
		users:    users,
		sessions: sessions,
		ttl:      ttl,
		log:      log,
		now:      time.Now,
		cost:     bcrypt.DefaultCost,
	}
}

// CreateUser registers a new account with a bcrypt password hash.
func (s *AccountService) CreateUser(ctx context.Context, username, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrCredentialsMissing
	}

	existing, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &model.User{Username: username, PasswordHash: string(hash)}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", user.ID).Str("username", username).Msg("user created")
	return user, nil
}

// FindUserByUsername returns nil without error for an unknown username.
func (s *AccountService) FindUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.users.FindByUsername(ctx, strings.TrimSpace(username))
}

// Authenticate checks a username and password pair.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.FindUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("compare password: %w", err)
	}
	return user, nil
}

// Login authenticates the user and issues a session token.
func (s *AccountService) Login(ctx context.Context, username, password string) (*model.Session, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.log.Warn().Str("username", username).Msg("login failed")
		}
		return nil, err
	}

	now := s.now()
	session := &model.Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", user.ID).Msg("user logged in")
	return session, nil
}

func (s *AccountService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Delete(ctx, token)
}

// ResolveToken returns the id of the token's user, or "" when the token is
// unknown or expired.
func (s *AccountService) ResolveToken(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", nil
	}
	session, err := s.sessions.Find(ctx, token)
	if err != nil {
		return "", err
	}
	if session == nil || session.Expired(s.now()) {
		return "", nil
	}
	return session.UserID, nil
}

// CurrentUser returns the caller's account. An empty or stale caller id is
// rejected as not authorized.
func (s *AccountService) CurrentUser(ctx context.Context, callerID string) (*model.User, error) {
	if callerID == "" {
		return nil, ErrNotAuthorized
	}
	user, err := s.users.FindByID(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotAuthorized
	}
	return user, nil
}

// LinkTelegram authenticates the user and binds the chat account to it.
func (s *AccountService) LinkTelegram(ctx context.Context, telegramID int64, username, password string) (*model.User, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetTelegramID(ctx, user.ID, &telegramID); err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", user.ID).Int64("telegram_id", telegramID).Msg("telegram linked")
	return user, nil
}

func (s *AccountService) UnlinkTelegram(ctx context.Context, telegramID int64) error {
	user, err := s.users.FindByTelegramID(ctx, telegramID)
	if err != nil || user == nil {
		return err
	}
	return s.users.SetTelegramID(ctx, user.ID, nil)
}

// CallerForTelegram returns the user linked to the chat account, or "".
func (s *AccountService) CallerForTelegram(ctx context.Context, telegramID int64) (string, error) {
	user, err := s.users.FindByTelegramID(ctx, telegramID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", nil
	}
	return user.ID, nil
}

// PurgeExpiredSessions deletes sessions that have expired by now.
func (s *AccountService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info().Int64("count", n).Msg("expired sessions purged")
	}
	return n, nil
}
