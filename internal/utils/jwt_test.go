package utils_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ordermgmt/internal/model"
	"github.com/iliyamo/ordermgmt/internal/utils"
)

const testSecret = "test-jwt-secret-key-for-unit-tests-0123"

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newSigner(t *testing.T, clock *fakeClock) *utils.TokenSigner {
	t.Helper()
	s, err := utils.NewTokenSigner(utils.SignerConfig{
		Secret:    []byte(testSecret),
		AccessTTL: time.Hour,
		Issuer:    "ordermgmt-test",
	}, utils.WithClock(clock.Now))
	require.NoError(t, err)
	return s
}

func TestNewTokenSigner_RejectsWeakConfig(t *testing.T) {
	_, err := utils.NewTokenSigner(utils.SignerConfig{Secret: []byte("short"), AccessTTL: time.Hour})
	assert.Error(t, err)

	_, err = utils.NewTokenSigner(utils.SignerConfig{Secret: []byte(testSecret)})
	assert.Error(t, err)
}

func TestSignerConfig_StringRedactsSecret(t *testing.T) {
	cfg := utils.SignerConfig{Secret: []byte(testSecret), AccessTTL: time.Hour}
	assert.NotContains(t, cfg.String(), testSecret)
	assert.Contains(t, cfg.String(), "REDACTED")
}

func TestIssueAndVerify(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	clock := &fakeClock{t: now}
	s := newSigner(t, clock)

	at, err := s.Issue("a@x.com", model.RoleCustomer, now)
	require.NoError(t, err)
	require.NotEmpty(t, at.Token)
	assert.Equal(t, now.Add(time.Hour), at.Exp)

	claims, err := s.Verify(at.Token)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", claims.Subject)
	assert.Equal(t, model.RoleCustomer, claims.Role)
	assert.Equal(t, "ordermgmt-test", claims.Issuer)
	assert.Equal(t, now, claims.IssuedAt.Time.UTC())
	assert.Equal(t, now.Add(time.Hour), claims.ExpiresAt.Time.UTC())
}

func TestVerify_Expiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	clock := &fakeClock{t: now}
	s := newSigner(t, clock)

	at, err := s.Issue("a@x.com", model.RoleAdmin, now)
	require.NoError(t, err)

	clock.t = now.Add(59 * time.Minute)
	_, err = s.Verify(at.Token)
	assert.NoError(t, err, "still inside the access ttl")

	clock.t = at.Exp
	_, err = s.Verify(at.Token)
	assert.ErrorIs(t, err, utils.ErrInvalidToken, "exp must be strictly after now")

	clock.t = at.Exp.Add(time.Minute)
	_, err = s.Verify(at.Token)
	assert.ErrorIs(t, err, utils.ErrInvalidToken)
}

func TestVerify_RejectsForgedAndMalformed(t *testing.T) {
	now := time.Now()
	clock := &fakeClock{t: now}
	s := newSigner(t, clock)

	other, err := utils.NewTokenSigner(utils.SignerConfig{
		Secret:    []byte(strings.Repeat("z", 40)),
		AccessTTL: time.Hour,
		Issuer:    "ordermgmt-test",
	})
	require.NoError(t, err)
	forged, err := other.Issue("a@x.com", model.RoleAdmin, now)
	require.NoError(t, err)

	good, err := s.Issue("a@x.com", model.RoleCustomer, now)
	require.NoError(t, err)
	parts := strings.Split(good.Token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub":  "a@x.com",
		"role": "ADMIN",
		"exp":  now.Add(time.Hour).Unix(),
		"iss":  "ordermgmt-test",
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "a@x.com",
		"role": "ADMIN",
		"iss":  "ordermgmt-test",
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	badRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "a@x.com",
		"role": "OWNER",
		"exp":  now.Add(time.Hour).Unix(),
		"iss":  "ordermgmt-test",
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"empty":        "",
		"garbage":      "not.a.jwt",
		"wrong secret": forged.Token,
		"tampered":     tampered,
		"alg none":     unsigned,
		"missing exp":  noExp,
		"unknown role": badRole,
	} {
		t.Run(name, func(t *testing.T) {
			claims, err := s.Verify(tok)
			assert.Nil(t, claims)
			assert.ErrorIs(t, err, utils.ErrInvalidToken)
		})
	}
}

func TestNewRefreshToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	a, err := utils.NewRefreshToken(now, 30*24*time.Hour)
	require.NoError(t, err)
	b, err := utils.NewRefreshToken(now, 30*24*time.Hour)
	require.NoError(t, err)

	assert.Len(t, a.Raw, 96)
	assert.NotEqual(t, a.Raw, b.Raw)
	assert.Equal(t, now.Add(30*24*time.Hour), a.Exp)

	h := utils.HashRefreshRaw(a.Raw)
	assert.Len(t, h, 64)
	assert.Equal(t, h, utils.HashRefreshRaw(a.Raw))
	assert.NotEqual(t, h, utils.HashRefreshRaw(b.Raw))
}
