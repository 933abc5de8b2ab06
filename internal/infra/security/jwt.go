package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/port"
)

// ErrInvalidToken covers every access token verification failure:
// bad signature, malformed structure, wrong algorithm and expiry.
var ErrInvalidToken = errors.New("invalid token")

const refreshTokenBytes = 32

// AccessTokenClaims carries the subject and its role at issuance time.
type AccessTokenClaims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuerConfig is the immutable signing configuration.
type TokenIssuerConfig struct {
	Secret    []byte
	Issuer    string
	AccessTTL time.Duration
}

// HMACTokenIssuer signs access tokens with a server-held symmetric secret.
type HMACTokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewHMACTokenIssuer builds an issuer. The secret is copied so later mutation of
// the caller's slice cannot change signing behaviour.
func NewHMACTokenIssuer(cfg TokenIssuerConfig) (*HMACTokenIssuer, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("token issuer: secret must be at least 32 bytes")
	}
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("token issuer: access ttl must be positive")
	}

	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)

	return &HMACTokenIssuer{
		secret: secret,
		issuer: cfg.Issuer,
		ttl:    cfg.AccessTTL,
		now:    time.Now,
	}, nil
}

// WithClock allows injection of a custom clock (primarily for testing).
func (i *HMACTokenIssuer) WithClock(now func() time.Time) *HMACTokenIssuer {
	if now != nil {
		i.now = now
	}
	return i
}

// IssueAccess signs a token for subjectID valid for the configured TTL.
func (i *HMACTokenIssuer) IssueAccess(subjectID, role string) (string, time.Time, error) {
	if strings.TrimSpace(subjectID) == "" {
		return "", time.Time{}, errors.New("token issuer: subject is required")
	}

	now := i.now().UTC()
	expiresAt := now.Add(i.ttl)

	claims := AccessTokenClaims{
		UserID: subjectID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}

	return signed, expiresAt, nil
}

// VerifyAccess validates token and returns its claims. All failures collapse
// into ErrInvalidToken so callers cannot tell which check rejected it.
func (i *HMACTokenIssuer) VerifyAccess(token string) (port.AccessClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return port.AccessClaims{}, ErrInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}

	claims := &AccessTokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	}, opts...)
	if err != nil || parsed == nil || !parsed.Valid {
		return port.AccessClaims{}, ErrInvalidToken
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return port.AccessClaims{}, ErrInvalidToken
	}

	return port.AccessClaims{
		SubjectID: claims.UserID,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// IssueRefresh returns an opaque 256-bit refresh token with no embedded claims.
func (i *HMACTokenIssuer) IssueRefresh() (string, error) {
	return GenerateSecureToken(refreshTokenBytes)
}

var _ port.TokenIssuer = (*HMACTokenIssuer)(nil)
