package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokens(accessTTL, refreshTTL time.Duration) *TokenService {
	return NewTokenService("access-secret", "refresh-secret", accessTTL, refreshTTL)
}

func TestIssueAndVerify_Success(t *testing.T) {
	t.Parallel()
	s := newTestTokens(time.Minute, time.Hour)

	access, err := s.IssueAccess(42)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), access.Exp, 5*time.Second)

	claims, err := s.VerifyAccess(access.Value)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.UserID)
	assert.Equal(t, "42", claims.Subject)
	assert.NotEmpty(t, claims.ID)

	refresh, err := s.IssueRefresh(42)
	require.NoError(t, err)
	claims, err = s.VerifyRefresh(refresh.Value)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.UserID)
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()
	s := newTestTokens(-time.Second, time.Hour)

	access, err := s.IssueAccess(1)
	require.NoError(t, err)

	_, err = s.VerifyAccess(access.Value)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
	assert.Equal(t, "expired", TokenFailureReason(err))
}

func TestVerify_ClassesDoNotCross(t *testing.T) {
	t.Parallel()
	s := newTestTokens(time.Minute, time.Hour)

	access, err := s.IssueAccess(1)
	require.NoError(t, err)
	refresh, err := s.IssueRefresh(1)
	require.NoError(t, err)

	_, err = s.VerifyRefresh(access.Value)
	assert.ErrorIs(t, err, ErrTokenSignature)
	_, err = s.VerifyAccess(refresh.Value)
	assert.ErrorIs(t, err, ErrTokenSignature)
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "not.a.jwt", "garbage"} {
		_, err := Verify(raw, []byte("k"))
		assert.ErrorIs(t, err, ErrTokenMalformed, raw)
		assert.Equal(t, "malformed", TokenFailureReason(err))
	}
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()
	claims := Claims{
		UserID: 9,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = Verify(none, []byte("k"))
	assert.ErrorIs(t, err, ErrInvalidOrExpired)

	hs384, err := jwt.NewWithClaims(jwt.SigningMethodHS384, claims).SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = Verify(hs384, []byte("k"))
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
}

func TestVerify_RequiresExpiry(t *testing.T) {
	t.Parallel()

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: 3}).SignedString([]byte("k"))
	require.NoError(t, err)

	_, err = Verify(raw, []byte("k"))
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
}

func TestIssueRefresh_Unique(t *testing.T) {
	t.Parallel()
	s := newTestTokens(time.Minute, time.Hour)

	a, err := s.IssueRefresh(5)
	require.NoError(t, err)
	b, err := s.IssueRefresh(5)
	require.NoError(t, err)
	assert.NotEqual(t, a.Value, b.Value)
}
