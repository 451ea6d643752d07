package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/iliyamo/ordermgmt/internal/model"
	"github.com/iliyamo/ordermgmt/internal/repository"
)

// AccountStore is the part of the credential store the operator
// commands use.
type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (model.User, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// SessionStore lists and revokes a user's refresh tokens.
// RevokeAllForUser reports how many tokens it revoked.
type SessionStore interface {
	ListByUser(ctx context.Context, userID string) ([]model.RefreshToken, error)
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)
}

// AdminService backs the operator commands of the CLI.
type AdminService struct {
	users    AccountStore
	sessions SessionStore
	log      *zap.Logger
}

// NewAdminService builds the service. A nil log discards output.
func NewAdminService(users AccountStore, sessions SessionStore, log *zap.Logger) *AdminService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminService{users: users, sessions: sessions, log: log}
}

// Deactivate blocks further logins and refreshes for the account and
// revokes all of its refresh tokens. Access tokens already issued stay
// valid until they expire.
func (a *AdminService) Deactivate(ctx context.Context, email string) (int64, error) {
	u, err := a.lookup(ctx, email)
	if err != nil {
		return 0, err
	}
	if err := a.users.SetActive(ctx, u.ID, false); err != nil {
		return 0, fmt.Errorf("deactivate user: %w", err)
	}
	n, err := a.sessions.RevokeAllForUser(ctx, u.ID)
	if err != nil {
		return 0, err
	}
	a.log.Info("user deactivated", zap.String("user_id", u.ID), zap.Int64("revoked_tokens", n))
	return n, nil
}

// Sessions lists every refresh token record of the account, newest first.
func (a *AdminService) Sessions(ctx context.Context, email string) ([]model.RefreshToken, error) {
	u, err := a.lookup(ctx, email)
	if err != nil {
		return nil, err
	}
	return a.sessions.ListByUser(ctx, u.ID)
}

func (a *AdminService) lookup(ctx context.Context, email string) (model.User, error) {
	u, err := a.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, ErrUserNotFound
	}
	return u, err
}
