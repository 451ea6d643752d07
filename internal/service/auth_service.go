// Package service implements the authentication use cases on top of
// the credential and refresh token stores.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/ordermgmt/internal/metrics"
	"github.com/iliyamo/ordermgmt/internal/model"
	"github.com/iliyamo/ordermgmt/internal/queue"
	"github.com/iliyamo/ordermgmt/internal/repository"
	"github.com/iliyamo/ordermgmt/internal/utils"
)

// Error values returned by AuthService. Their text is the client facing
// message.
var (
	ErrInvalidInput       = errors.New("email and password are required")
	ErrAlreadyExists      = errors.New("Email already exists")
	ErrRoleNotFound       = errors.New("Role not found")
	ErrUserNotFound       = errors.New("User not found")
	ErrInvalidCredentials = errors.New("Invalid credentials")
	ErrInactive           = errors.New("User is inactive")
	ErrTokenNotRecognized = errors.New("Refresh token is not recognized")
	ErrTokenExpired       = errors.New("Refresh token was expired. Please make a new signin request")
	ErrTokenRevoked       = errors.New("Refresh token was revoked")
)

// Kind buckets service errors for the transport layer.
type Kind int

const (
	KindNone Kind = iota
	KindValidation
	KindAuthentication
	KindToken
	KindStore
)

// Classify returns the bucket err belongs to. Any error that is not one
// of the sentinels above is a store failure.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrRoleNotFound):
		return KindValidation
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrInactive):
		return KindAuthentication
	case errors.Is(err, ErrTokenNotRecognized), errors.Is(err, ErrTokenExpired), errors.Is(err, ErrTokenRevoked):
		return KindToken
	default:
		return KindStore
	}
}

// Success messages.
const (
	MsgRegistered = "Registration successful"
	MsgLoggedIn   = "Login successful"
	MsgRefreshed  = "Token refreshed successfully"
	MsgLoggedOut  = "Logout successful"
)

const tokenTypeBearer = "Bearer"

// UserStore is the credential store. Lookups return
// repository.ErrNotFound when no account matches; Create returns
// repository.ErrConflict when the email is already taken, which covers
// two registrations racing past the ExistsByEmail check.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id string) (model.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, u *model.User) error
}

// RoleStore resolves a role name to its stored row.
type RoleStore interface {
	GetByName(ctx context.Context, name model.RoleName) (model.Role, error)
}

// TokenStore persists refresh tokens by the SHA-256 hash of the raw
// value. Save inserts a new record or, for an existing id, only updates
// its revoked flag.
type TokenStore interface {
	Save(ctx context.Context, t *model.RefreshToken) error
	FindByHash(ctx context.Context, tokenHash string) (model.RefreshToken, error)
}

// Hasher hashes and checks passwords. Both calls may block while the
// hasher waits for a free worker, so they take a context.
type Hasher interface {
	Hash(ctx context.Context, plain string) (string, error)
	Verify(ctx context.Context, hash, plain string) bool
}

// Signer issues signed access tokens carrying the subject email and role.
type Signer interface {
	Issue(subject string, role model.RoleName, now time.Time) (utils.AccessToken, error)
}

// Deps wires an AuthService. Events, Clock and Logger are optional.
type Deps struct {
	Users      UserStore
	Roles      RoleStore
	Tokens     TokenStore
	Hasher     Hasher
	Signer     Signer
	Events     EventPublisher
	Clock      func() time.Time
	RefreshTTL time.Duration
	Logger     *zap.Logger
}

// AuthService implements register, login, refresh and logout.
type AuthService struct {
	users      UserStore
	roles      RoleStore
	tokens     TokenStore
	hasher     Hasher
	signer     Signer
	events     EventPublisher
	now        func() time.Time
	refreshTTL time.Duration
	log        *zap.Logger
}

// NewAuthService builds the service from d, filling in the optional
// dependencies: no events, the wall clock, a discarding logger and a
// 30 day refresh lifetime.
func NewAuthService(d Deps) *AuthService {
	s := &AuthService{
		users:      d.Users,
		roles:      d.Roles,
		tokens:     d.Tokens,
		hasher:     d.Hasher,
		signer:     d.Signer,
		events:     d.Events,
		now:        d.Clock,
		refreshTTL: d.RefreshTTL,
		log:        d.Logger,
	}
	if s.events == nil {
		s.events = NopPublisher{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.refreshTTL <= 0 {
		s.refreshTTL = 30 * 24 * time.Hour
	}
	return s
}

// RegisterInput is the raw registration request. RoleName is matched
// against the known roles case-insensitively after trimming.
type RegisterInput struct {
	Email    string
	Password string
	RoleName string
}

// LoginResult is returned to the client after a successful login.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Role         model.RoleName
	ExpiresAt    time.Time
	Message      string
}

// RefreshResult carries a new access token. RefreshToken echoes the
// presented refresh token, which stays valid until it expires or is
// revoked.
type RefreshResult struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresAt    time.Time
	Message      string
}

// Register creates an active account. No tokens are issued.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (model.User, error) {
	u, err := s.register(ctx, in)
	metrics.Auth("register", outcome(err))
	return u, err
}

func (s *AuthService) register(ctx context.Context, in RegisterInput) (model.User, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return model.User{}, ErrInvalidInput
	}
	if len(in.Password) > utils.MaxPasswordBytes {
		return model.User{}, fmt.Errorf("%w: password longer than %d bytes", ErrInvalidInput, utils.MaxPasswordBytes)
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return model.User{}, err
	}
	if exists {
		return model.User{}, ErrAlreadyExists
	}

	name, err := model.ParseRoleName(in.RoleName)
	if err != nil {
		return model.User{}, ErrRoleNotFound
	}
	role, err := s.roles.GetByName(ctx, name)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, ErrRoleNotFound
	}
	if err != nil {
		return model.User{}, err
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}
	u := model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return model.User{}, ErrAlreadyExists
		}
		return model.User{}, err
	}

	s.log.Info("user registered", zap.String("user_id", u.ID), zap.String("email", u.Email), zap.Stringer("role", role.Name))
	s.publish(ctx, queue.EventUserRegistered, u)
	return u, nil
}

// Login checks the credentials and issues an access token plus a new
// refresh token. Earlier refresh tokens of the user stay valid.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	res, err := s.login(ctx, email, password)
	metrics.Auth("login", outcome(err))
	return res, err
}

func (s *AuthService) login(ctx context.Context, email, password string) (LoginResult, error) {
	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, repository.ErrNotFound) {
		return LoginResult{}, ErrUserNotFound
	}
	if err != nil {
		return LoginResult{}, err
	}
	if !s.hasher.Verify(ctx, u.PasswordHash, password) {
		if ctx.Err() != nil {
			return LoginResult{}, ctx.Err()
		}
		return LoginResult{}, ErrInvalidCredentials
	}
	if !u.IsActive {
		return LoginResult{}, ErrInactive
	}

	now := s.now().UTC()
	access, err := s.signer.Issue(u.Email, u.Role.Name, now)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := utils.NewRefreshToken(now, s.refreshTTL)
	if err != nil {
		return LoginResult{}, fmt.Errorf("generate refresh token: %w", err)
	}
	rec := model.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		TokenHash: utils.HashRefreshRaw(refresh.Raw),
		ExpiresAt: refresh.Exp,
		CreatedAt: now,
	}
	if err := s.tokens.Save(ctx, &rec); err != nil {
		return LoginResult{}, fmt.Errorf("save refresh token: %w", err)
	}

	s.log.Info("user logged in", zap.String("user_id", u.ID), zap.String("email", u.Email))
	s.publish(ctx, queue.EventUserLoggedIn, u)
	return LoginResult{
		AccessToken:  access.Token,
		RefreshToken: refresh.Raw,
		TokenType:    tokenTypeBearer,
		Role:         u.Role.Name,
		ExpiresAt:    access.Exp,
		Message:      MsgLoggedIn,
	}, nil
}

// Refresh exchanges a live refresh token for a new access token. The
// owner is re-read so email and role changes take effect; the refresh
// token itself is returned unchanged.
func (s *AuthService) Refresh(ctx context.Context, raw string) (RefreshResult, error) {
	res, err := s.refresh(ctx, raw)
	metrics.Auth("refresh", outcome(err))
	return res, err
}

func (s *AuthService) refresh(ctx context.Context, raw string) (RefreshResult, error) {
	if raw == "" {
		return RefreshResult{}, ErrTokenNotRecognized
	}
	rec, err := s.tokens.FindByHash(ctx, utils.HashRefreshRaw(raw))
	if errors.Is(err, repository.ErrNotFound) {
		return RefreshResult{}, ErrTokenNotRecognized
	}
	if err != nil {
		return RefreshResult{}, err
	}
	now := s.now().UTC()
	if rec.Revoked {
		return RefreshResult{}, ErrTokenRevoked
	}
	if rec.Expired(now) {
		return RefreshResult{}, ErrTokenExpired
	}

	u, err := s.users.GetByID(ctx, rec.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return RefreshResult{}, ErrUserNotFound
	}
	if err != nil {
		return RefreshResult{}, err
	}
	if !u.IsActive {
		return RefreshResult{}, ErrInactive
	}

	access, err := s.signer.Issue(u.Email, u.Role.Name, now)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("issue access token: %w", err)
	}
	return RefreshResult{
		AccessToken:  access.Token,
		RefreshToken: raw,
		TokenType:    tokenTypeBearer,
		ExpiresAt:    access.Exp,
		Message:      MsgRefreshed,
	}, nil
}

// Logout revokes the refresh token. Unknown and already revoked tokens
// succeed; only store failures are returned.
func (s *AuthService) Logout(ctx context.Context, raw string) error {
	err := s.logout(ctx, raw)
	metrics.Auth("logout", outcome(err))
	return err
}

func (s *AuthService) logout(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}
	rec, err := s.tokens.FindByHash(ctx, utils.HashRefreshRaw(raw))
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if rec.Revoked {
		return nil
	}
	rec.Revoked = true
	if err := s.tokens.Save(ctx, &rec); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	s.log.Info("refresh token revoked", zap.String("user_id", rec.UserID), zap.String("token_id", rec.ID))
	s.publish(ctx, queue.EventTokenRevoked, model.User{ID: rec.UserID})
	return nil
}

func (s *AuthService) publish(ctx context.Context, typ string, u model.User) {
	ev := queue.AuthEvent{
		Type:       typ,
		UserID:     u.ID,
		Email:      u.Email,
		Role:       string(u.Role.Name),
		OccurredAt: s.now().UTC(),
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn("auth event not published", zap.String("type", typ), zap.Error(err))
	}
}

func outcome(err error) string {
	switch Classify(err) {
	case KindNone:
		return metrics.OutcomeSuccess
	case KindStore:
		return metrics.OutcomeError
	default:
		return metrics.OutcomeFailure
	}
}
