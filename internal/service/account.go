// Package service provides business logic implementations: each operation
// loads a snapshot, hands it to a game engine, persists the result and
// notifies whoever has to move next.
package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"klovn-bot/internal/model"
)

// UserStore is the user persistence used by the services.
type UserStore interface {
	Upsert(ctx context.Context, telegramID int64, username, firstName string) (*model.User, error)
	GetByID(ctx context.Context, telegramID int64) (*model.User, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*model.User, error)
	Exists(ctx context.Context, telegramID int64) (bool, error)
	ListOthers(ctx context.Context, excludeID int64, limit int) ([]*model.User, error)
}

// Notifier delivers a short text to a user. Implementations must not block
// and must not report failures back to the caller.
type Notifier interface {
	Notify(userID int64, text string)
}

type noopNotifier struct{}

func (noopNotifier) Notify(int64, string) {}

func orNoop(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}

// AccountService handles user registration.
type AccountService struct {
	userRepo UserStore
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(userRepo UserStore) *AccountService {
	return &AccountService{userRepo: userRepo}
}

// EnsureUser registers the user or refreshes the names Telegram reported.
func (s *AccountService) EnsureUser(ctx context.Context, telegramID int64, username, firstName string) (*model.User, error) {
	user, err := s.userRepo.Upsert(ctx, telegramID, username, firstName)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure user: %w", err)
	}
	log.Debug().Int64("user_id", telegramID).Str("username", username).Msg("User ensured")
	return user, nil
}

// GetUser retrieves a user by their Telegram ID.
func (s *AccountService) GetUser(ctx context.Context, telegramID int64) (*model.User, error) {
	return s.userRepo.GetByID(ctx, telegramID)
}
