package utils // package utils provides token signing, refresh token generation and password hashing

import (
	"crypto/rand"   // secure random number generation
	"crypto/sha256" // SHA-256 hashing for refresh tokens
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/ordermgmt/internal/model"
)

// ErrInvalidToken is the only error Verify returns. Callers must not be
// able to tell a bad signature from an expired or malformed token.
var ErrInvalidToken = errors.New("invalid token")

const minSecretLen = 32

// SignerConfig is the immutable signing configuration, built once at
// startup. String redacts the secret so the struct is safe to log.
type SignerConfig struct {
	Secret    []byte
	AccessTTL time.Duration
	Issuer    string
}

// String redacts the secret so the config can be logged.
func (c SignerConfig) String() string {
	return fmt.Sprintf("SignerConfig{Secret:[REDACTED] AccessTTL:%s Issuer:%q}", c.AccessTTL, c.Issuer)
}

// Claims is the access token claim set: sub carries the email.
type Claims struct {
	Role model.RoleName `json:"role"`
	jwt.RegisteredClaims
}

// AccessToken represents a signed JWT access token along with its expiry.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// TokenSigner issues and verifies HS256 access tokens.
type TokenSigner struct {
	cfg    SignerConfig
	secret []byte
	now    func() time.Time
}

// SignerOption customizes a TokenSigner.
type SignerOption func(*TokenSigner)

// WithClock replaces the clock used to check expiry during Verify.
func WithClock(now func() time.Time) SignerOption {
	return func(s *TokenSigner) { s.now = now }
}

// NewTokenSigner validates cfg and returns a signer. The secret is
// copied so later mutation of the caller's slice has no effect.
func NewTokenSigner(cfg SignerConfig, opts ...SignerOption) (*TokenSigner, error) {
	if len(cfg.Secret) < minSecretLen {
		return nil, fmt.Errorf("signing secret must be at least %d bytes", minSecretLen)
	}
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("access token ttl must be positive")
	}
	s := &TokenSigner{
		cfg:    cfg,
		secret: append([]byte(nil), cfg.Secret...),
		now:    time.Now,
	}
	s.cfg.Secret = nil
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Issue builds and signs an access token for subject with the given
// role: iat=now and exp=now+AccessTTL, both at second precision.
func (s *TokenSigner) Issue(subject string, role model.RoleName, now time.Time) (AccessToken, error) {
	now = now.UTC()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: claims.ExpiresAt.Time}, nil
}

// Verify checks algorithm, signature, issuer and expiry (exp must be
// after the signer's clock) and that the role claim is a known role.
func (s *TokenSigner) Verify(raw string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || !claims.Role.Valid() {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// RefreshToken is a freshly generated opaque refresh token. Raw goes to
// the client; only HashRefreshRaw(Raw) is persisted.
type RefreshToken struct {
	Raw string
	Exp time.Time
}

// NewRefreshToken returns a 96-character random hex token expiring at
// now+ttl.
func NewRefreshToken(now time.Time, ttl time.Duration) (RefreshToken, error) {
	raw, err := randomHex(48)
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{Raw: raw, Exp: now.UTC().Add(ttl)}, nil
}

// HashRefreshRaw returns the hex SHA-256 digest of a raw refresh token.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
