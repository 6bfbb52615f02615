package utils // package utils provides helper functions for token creation and hashing

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidOrExpired is the single outcome callers act on. The more specific
// errors below all wrap it and exist so failures can be logged by reason.
var ErrInvalidOrExpired = errors.New("invalid or expired token")

var (
	ErrTokenMalformed = fmt.Errorf("%w: malformed", ErrInvalidOrExpired)
	ErrTokenSignature = fmt.Errorf("%w: signature invalid", ErrInvalidOrExpired)
	ErrTokenExpired   = fmt.Errorf("%w: expired", ErrInvalidOrExpired)
)

// Claims is the payload of both access and refresh tokens. The two classes
// differ only in the secret that signs them and in their lifetime.
type Claims struct {
	UserID uint64 `json:"id"`
	jwt.RegisteredClaims
}

// Token is a signed JWT together with its expiry.
type Token struct {
	Value string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// TokenService issues and verifies access and refresh tokens.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (s *TokenService) AccessTTL() time.Duration  { return s.accessTTL }
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

// IssueAccess signs a short-lived access token for userID.
func (s *TokenService) IssueAccess(userID uint64) (Token, error) {
	return issue(userID, s.accessSecret, s.accessTTL)
}

// IssueRefresh signs a long-lived refresh token for userID.
func (s *TokenService) IssueRefresh(userID uint64) (Token, error) {
	return issue(userID, s.refreshSecret, s.refreshTTL)
}

// VerifyAccess checks an access token's signature and expiry.
func (s *TokenService) VerifyAccess(raw string) (*Claims, error) {
	return Verify(raw, s.accessSecret)
}

// VerifyRefresh checks a refresh token's signature and expiry. It does not
// consult the stored token; that is the session layer's job.
func (s *TokenService) VerifyRefresh(raw string) (*Claims, error) {
	return Verify(raw, s.refreshSecret)
}

func issue(userID uint64, secret []byte, ttl time.Duration) (Token, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	// jti keeps two tokens minted for the same user in the same second distinct.
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return Token{}, err
	}
	return Token{Value: signed, Exp: exp}, nil
}

// Verify parses raw, requiring HS256, a valid signature under secret and an
// unexpired exp claim.
func Verify(raw string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, ErrTokenSignature
		default:
			return nil, ErrTokenMalformed
		}
	}
	if !tok.Valid || claims.UserID == 0 {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

// TokenFailureReason names the verification failure for logs and metrics.
func TokenFailureReason(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenSignature):
		return "signature"
	case errors.Is(err, ErrTokenMalformed):
		return "malformed"
	default:
		return "unknown"
	}
}
