package service_test

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/ordermgmt/internal/database/dbtest"
	"github.com/iliyamo/ordermgmt/internal/model"
	"github.com/iliyamo/ordermgmt/internal/queue"
	"github.com/iliyamo/ordermgmt/internal/repository"
	"github.com/iliyamo/ordermgmt/internal/service"
	"github.com/iliyamo/ordermgmt/internal/utils"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recorder struct {
	mu     sync.Mutex
	events []queue.AuthEvent
}

func (r *recorder) Publish(_ context.Context, ev queue.AuthEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

const refreshTTL = 24 * time.Hour

type AuthServiceSuite struct {
	suite.Suite
	ctx    context.Context
	db     *sql.DB
	clock  *clock
	events *recorder
	signer *utils.TokenSigner
	tokens *repository.TokenRepo
	svc    *service.AuthService
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceSuite))
}

func (s *AuthServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = dbtest.New(s.T())
	s.clock = &clock{t: time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)}
	s.events = &recorder{}

	signer, err := utils.NewTokenSigner(utils.SignerConfig{
		Secret:    []byte(strings.Repeat("k", 32)),
		AccessTTL: time.Hour,
		Issuer:    "ordermgmt",
	}, utils.WithClock(s.clock.Now))
	s.Require().NoError(err)
	s.signer = signer
	s.tokens = repository.NewTokenRepo(s.db)

	s.svc = service.NewAuthService(service.Deps{
		Users:      repository.NewUserRepo(s.db),
		Roles:      repository.NewRoleRepo(s.db),
		Tokens:     s.tokens,
		Hasher:     utils.NewPasswordHasher(bcrypt.MinCost, 4),
		Signer:     signer,
		Events:     s.events,
		Clock:      s.clock.Now,
		RefreshTTL: refreshTTL,
	})
}

func (s *AuthServiceSuite) register(email, password, role string) model.User {
	u, err := s.svc.Register(s.ctx, service.RegisterInput{Email: email, Password: password, RoleName: role})
	s.Require().NoError(err)
	return u
}

func (s *AuthServiceSuite) TestRegisterThenLogin() {
	u := s.register("alice@example.com", "s3cret", "CUSTOMER")
	s.NotEmpty(u.ID)
	s.True(u.IsActive)
	s.Equal(model.RoleCustomer, u.Role.Name)
	s.NotEqual("s3cret", u.PasswordHash)

	res, err := s.svc.Login(s.ctx, "alice@example.com", "s3cret")
	s.Require().NoError(err)
	s.NotEmpty(res.AccessToken)
	s.NotEmpty(res.RefreshToken)
	s.NotEqual(res.AccessToken, res.RefreshToken)
	s.Equal("Bearer", res.TokenType)
	s.Equal(model.RoleCustomer, res.Role)
	s.Equal(service.MsgLoggedIn, res.Message)
	s.NotContains(res.AccessToken+res.RefreshToken, "s3cret")
	s.NotContains(res.AccessToken+res.RefreshToken, u.PasswordHash)

	claims, err := s.signer.Verify(res.AccessToken)
	s.Require().NoError(err)
	s.Equal("alice@example.com", claims.Subject)
	s.Equal(model.RoleCustomer, claims.Role)

	// only the hash of the refresh token is stored
	rec, err := s.tokens.FindByHash(s.ctx, utils.HashRefreshRaw(res.RefreshToken))
	s.Require().NoError(err)
	s.Equal(u.ID, rec.UserID)
	s.True(rec.ExpiresAt.Equal(s.clock.Now().Add(refreshTTL)))
	_, err = s.tokens.FindByHash(s.ctx, res.RefreshToken)
	s.ErrorIs(err, repository.ErrNotFound)

	s.Equal([]string{queue.EventUserRegistered, queue.EventUserLoggedIn}, s.events.types())
}

func (s *AuthServiceSuite) TestRegister_RoleNameIsCaseInsensitive() {
	u := s.register("admin@example.com", "pw", " admin ")
	s.Equal(model.RoleAdmin, u.Role.Name)
}

func (s *AuthServiceSuite) TestRegister_Validation() {
	cases := []struct {
		name string
		in   service.RegisterInput
		want error
	}{
		{"empty email", service.RegisterInput{Password: "pw", RoleName: "CUSTOMER"}, service.ErrInvalidInput},
		{"empty password", service.RegisterInput{Email: "x@example.com", RoleName: "CUSTOMER"}, service.ErrInvalidInput},
		{"password too long", service.RegisterInput{Email: "x@example.com", Password: strings.Repeat("p", 73), RoleName: "CUSTOMER"}, service.ErrInvalidInput},
		{"unknown role", service.RegisterInput{Email: "x@example.com", Password: "pw", RoleName: "SUPPORT"}, service.ErrRoleNotFound},
		{"empty role", service.RegisterInput{Email: "x@example.com", Password: "pw"}, service.ErrRoleNotFound},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.svc.Register(s.ctx, tc.in)
			s.ErrorIs(err, tc.want)
			s.Equal(service.KindValidation, service.Classify(err))
		})
	}
	s.Empty(s.events.types())
}

func (s *AuthServiceSuite) TestRegister_Duplicate() {
	s.register("dup@example.com", "first", "CUSTOMER")

	_, err := s.svc.Register(s.ctx, service.RegisterInput{Email: "dup@example.com", Password: "other", RoleName: "ADMIN"})
	s.ErrorIs(err, service.ErrAlreadyExists)

	// an unknown role does not mask the duplicate
	_, err = s.svc.Register(s.ctx, service.RegisterInput{Email: "dup@example.com", Password: "other", RoleName: "NOPE"})
	s.ErrorIs(err, service.ErrAlreadyExists)
}

func (s *AuthServiceSuite) TestRegister_ConcurrentDuplicates() {
	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		dups      int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.svc.Register(s.ctx, service.RegisterInput{Email: "race@example.com", Password: "pw", RoleName: "CUSTOMER"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, service.ErrAlreadyExists):
				dups++
			}
		}()
	}
	wg.Wait()
	s.Equal(1, successes)
	s.Equal(n-1, dups)
}

func (s *AuthServiceSuite) TestLogin_Failures() {
	s.register("bob@example.com", "right", "CUSTOMER")

	_, err := s.svc.Login(s.ctx, "nobody@example.com", "right")
	s.ErrorIs(err, service.ErrUserNotFound)

	_, err = s.svc.Login(s.ctx, "bob@example.com", "wrong")
	s.ErrorIs(err, service.ErrInvalidCredentials)
	s.Equal(service.KindAuthentication, service.Classify(err))

	// email match is exact
	_, err = s.svc.Login(s.ctx, "BOB@example.com", "right")
	s.ErrorIs(err, service.ErrUserNotFound)
}

func (s *AuthServiceSuite) TestLogin_Inactive() {
	u := s.register("carol@example.com", "pw", "CUSTOMER")
	s.Require().NoError(repository.NewUserRepo(s.db).SetActive(s.ctx, u.ID, false))

	_, err := s.svc.Login(s.ctx, "carol@example.com", "pw")
	s.ErrorIs(err, service.ErrInactive)
}

func (s *AuthServiceSuite) TestLogin_EachLoginAddsAToken() {
	u := s.register("dave@example.com", "pw", "CUSTOMER")
	first, err := s.svc.Login(s.ctx, "dave@example.com", "pw")
	s.Require().NoError(err)
	second, err := s.svc.Login(s.ctx, "dave@example.com", "pw")
	s.Require().NoError(err)
	s.NotEqual(first.RefreshToken, second.RefreshToken)

	list, err := s.tokens.ListByUser(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Len(list, 2)

	// the first token still works
	_, err = s.svc.Refresh(s.ctx, first.RefreshToken)
	s.NoError(err)
}

func (s *AuthServiceSuite) TestRefresh() {
	s.register("erin@example.com", "pw", "CUSTOMER")
	login, err := s.svc.Login(s.ctx, "erin@example.com", "pw")
	s.Require().NoError(err)

	s.clock.Advance(2 * time.Hour)
	res, err := s.svc.Refresh(s.ctx, login.RefreshToken)
	s.Require().NoError(err)
	s.Equal(login.RefreshToken, res.RefreshToken)
	s.Equal("Bearer", res.TokenType)
	s.Equal(service.MsgRefreshed, res.Message)

	claims, err := s.signer.Verify(res.AccessToken)
	s.Require().NoError(err)
	s.Equal("erin@example.com", claims.Subject)

	// the login access token has expired by now
	_, err = s.signer.Verify(login.AccessToken)
	s.ErrorIs(err, utils.ErrInvalidToken)
}

func (s *AuthServiceSuite) TestRefresh_RereadsRole() {
	u := s.register("frank@example.com", "pw", "CUSTOMER")
	login, err := s.svc.Login(s.ctx, "frank@example.com", "pw")
	s.Require().NoError(err)

	_, err = s.db.ExecContext(s.ctx, "UPDATE users SET role_id = 1 WHERE id = ?", u.ID)
	s.Require().NoError(err)

	res, err := s.svc.Refresh(s.ctx, login.RefreshToken)
	s.Require().NoError(err)
	claims, err := s.signer.Verify(res.AccessToken)
	s.Require().NoError(err)
	s.Equal(model.RoleAdmin, claims.Role)
}

func (s *AuthServiceSuite) TestRefresh_Unknown() {
	_, err := s.svc.Refresh(s.ctx, "deadbeef")
	s.ErrorIs(err, service.ErrTokenNotRecognized)
	s.Equal(service.KindToken, service.Classify(err))

	_, err = s.svc.Refresh(s.ctx, "")
	s.ErrorIs(err, service.ErrTokenNotRecognized)
}

func (s *AuthServiceSuite) TestRefresh_Expired() {
	s.register("grace@example.com", "pw", "CUSTOMER")
	login, err := s.svc.Login(s.ctx, "grace@example.com", "pw")
	s.Require().NoError(err)

	// expiry equal to now already counts as expired
	s.clock.Advance(refreshTTL)
	_, err = s.svc.Refresh(s.ctx, login.RefreshToken)
	s.ErrorIs(err, service.ErrTokenExpired)

	// the record is kept
	_, err = s.tokens.FindByHash(s.ctx, utils.HashRefreshRaw(login.RefreshToken))
	s.NoError(err)
}

func (s *AuthServiceSuite) TestRefresh_Revoked() {
	s.register("heidi@example.com", "pw", "CUSTOMER")
	login, err := s.svc.Login(s.ctx, "heidi@example.com", "pw")
	s.Require().NoError(err)

	s.Require().NoError(s.svc.Logout(s.ctx, login.RefreshToken))
	_, err = s.svc.Refresh(s.ctx, login.RefreshToken)
	s.ErrorIs(err, service.ErrTokenRevoked)
}

func (s *AuthServiceSuite) TestRefresh_InactiveOwner() {
	u := s.register("ivan@example.com", "pw", "CUSTOMER")
	login, err := s.svc.Login(s.ctx, "ivan@example.com", "pw")
	s.Require().NoError(err)
	s.Require().NoError(repository.NewUserRepo(s.db).SetActive(s.ctx, u.ID, false))

	_, err = s.svc.Refresh(s.ctx, login.RefreshToken)
	s.ErrorIs(err, service.ErrInactive)
}

func (s *AuthServiceSuite) TestLogout_Idempotent() {
	s.register("judy@example.com", "pw", "CUSTOMER")
	login, err := s.svc.Login(s.ctx, "judy@example.com", "pw")
	s.Require().NoError(err)

	s.NoError(s.svc.Logout(s.ctx, login.RefreshToken))
	s.NoError(s.svc.Logout(s.ctx, login.RefreshToken))
	s.NoError(s.svc.Logout(s.ctx, "unknown-token"))
	s.NoError(s.svc.Logout(s.ctx, ""))

	rec, err := s.tokens.FindByHash(s.ctx, utils.HashRefreshRaw(login.RefreshToken))
	s.Require().NoError(err)
	s.True(rec.Revoked)

	// one revocation event despite the repeated calls
	s.Equal([]string{queue.EventUserRegistered, queue.EventUserLoggedIn, queue.EventTokenRevoked}, s.events.types())
}

func TestClassify(t *testing.T) {
	assert.Equal(t, service.KindNone, service.Classify(nil))
	assert.Equal(t, service.KindStore, service.Classify(errors.New("db down")))
	assert.Equal(t, service.KindToken, service.Classify(errors.Join(errors.New("ctx"), service.ErrTokenExpired)))
	assert.Equal(t, service.KindValidation, service.Classify(service.ErrRoleNotFound))
}

type failingTokens struct{}

func (failingTokens) Save(context.Context, *model.RefreshToken) error { return errors.New("disk full") }
func (failingTokens) FindByHash(context.Context, string) (model.RefreshToken, error) {
	return model.RefreshToken{}, errors.New("connection reset")
}

func TestLogout_StoreFailureSurfaces(t *testing.T) {
	svc := service.NewAuthService(service.Deps{Tokens: failingTokens{}})
	err := svc.Logout(context.Background(), "some-token")
	require.Error(t, err)
	assert.Equal(t, service.KindStore, service.Classify(err))
}
