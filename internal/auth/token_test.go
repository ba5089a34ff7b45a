package auth

import (
	"strings"
	"testing"
	"time"

	"go-erp-backend/internal/apperror"
	"go-erp-backend/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough-for-hs256"

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestAuthority(t *testing.T) (*Authority, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	a := NewAuthority(config.JWTConfig{
		Secret:            testSecret,
		AccessExpiration:  15 * time.Minute,
		RefreshExpiration: 10 * time.Hour,
	}, nil)
	a.SetClock(clock.Now)
	return a, clock
}

var alice = Principal{UserID: 7, Username: "alice", Role: "ADMIN"}

func TestTokenRoundTrip(t *testing.T) {
	a, clock := newTestAuthority(t)

	pair, err := a.IssueTokenPair(alice)
	require.NoError(t, err)
	require.Equal(t, "Bearer", pair.TokenType)
	require.Equal(t, int64(900), pair.ExpiresIn)

	require.True(t, a.Validate(pair.AccessToken, TokenAccess, &alice))
	require.True(t, a.Validate(pair.RefreshToken, TokenRefresh, &alice))

	claims, err := a.Parse(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Subject)
	require.Equal(t, "ADMIN", claims.Role)

	refreshClaims, err := a.Parse(pair.RefreshToken)
	require.NoError(t, err)
	require.Empty(t, refreshClaims.Role)

	clock.Advance(15*time.Minute + time.Second)
	require.False(t, a.Validate(pair.AccessToken, TokenAccess, &alice))
	require.True(t, a.Validate(pair.RefreshToken, TokenRefresh, &alice))

	clock.Advance(10 * time.Hour)
	require.False(t, a.Validate(pair.RefreshToken, TokenRefresh, &alice))
}

func TestParseSeparatesExpiredFromInvalid(t *testing.T) {
	a, clock := newTestAuthority(t)
	pair, err := a.IssueTokenPair(alice)
	require.NoError(t, err)

	clock.Advance(time.Hour)
	_, err = a.Parse(pair.AccessToken)
	require.ErrorIs(t, err, apperror.ErrTokenExpired)
	require.NotErrorIs(t, err, apperror.ErrInvalidToken)

	_, err = a.Parse("not-a-token")
	require.ErrorIs(t, err, apperror.ErrInvalidToken)

	tampered := pair.RefreshToken[:len(pair.RefreshToken)-2] + "xx"
	_, err = a.Parse(tampered)
	require.ErrorIs(t, err, apperror.ErrInvalidToken)
}

func TestValidateFailsClosed(t *testing.T) {
	a, _ := newTestAuthority(t)
	pair, err := a.IssueTokenPair(alice)
	require.NoError(t, err)

	bob := Principal{Username: "bob"}
	require.False(t, a.Validate(pair.AccessToken, TokenRefresh, nil), "wrong type")
	require.False(t, a.Validate(pair.RefreshToken, TokenAccess, nil), "wrong type")
	require.False(t, a.Validate(pair.AccessToken, TokenAccess, &bob), "subject mismatch")
	require.False(t, a.Validate("", TokenAccess, nil))
	require.False(t, a.Validate(strings.Repeat("a.", 2)+"a", TokenAccess, nil))
	require.True(t, a.Validate(pair.AccessToken, TokenAccess, nil))

	other := NewAuthority(config.JWTConfig{
		Secret:            "another-secret-that-is-also-long-enough",
		AccessExpiration:  time.Minute,
		RefreshExpiration: time.Hour,
	}, nil)
	require.False(t, other.Validate(pair.AccessToken, TokenAccess, nil), "foreign signature")
}

func TestParseRejectsOtherAlgorithms(t *testing.T) {
	a, clock := newTestAuthority(t)
	claims := Claims{
		Type: TokenAccess,
		Role: "ADMIN",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
		},
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = a.Parse(hs512)
	require.ErrorIs(t, err, apperror.ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = a.Parse(none)
	require.ErrorIs(t, err, apperror.ErrInvalidToken)
}

func TestParseRequiresExpiryAndType(t *testing.T) {
	a, _ := newTestAuthority(t)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Type:             TokenAccess,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "alice"},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = a.Parse(noExp)
	require.ErrorIs(t, err, apperror.ErrInvalidToken)

	noType, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = a.Parse(noType)
	require.ErrorIs(t, err, apperror.ErrInvalidToken)
}
