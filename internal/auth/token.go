package auth

import (
	"errors"
	"fmt"
	"time"

	"go-erp-backend/internal/apperror"
	"go-erp-backend/internal/config"
	"go-erp-backend/internal/metrics"
	"go-erp-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType separates short lived access tokens from refresh tokens.
type TokenType string

const (
	TokenAccess  TokenType = "ACCESS"
	TokenRefresh TokenType = "REFRESH"
)

// Claims defines what is inside the token. Subject carries the username.
type Claims struct {
	Type TokenType `json:"type"`
	Role string    `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Principal is an authenticated caller.
type Principal struct {
	UserID   uint
	Username string
	Role     string
}

// IsAdmin reports whether the principal holds the ADMIN role.
func (p Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// Authority signs and verifies HS256 tokens with one shared secret.
type Authority struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	metrics    *metrics.Metrics
}

// NewAuthority builds an Authority from configuration. m may be nil.
func NewAuthority(cfg config.JWTConfig, m *metrics.Metrics) *Authority {
	return &Authority{
		secret:     []byte(cfg.Secret),
		accessTTL:  cfg.AccessExpiration,
		refreshTTL: cfg.RefreshExpiration,
		now:        time.Now,
		metrics:    m,
	}
}

// SetClock replaces the time source used for issuing and checking expiry.
func (a *Authority) SetClock(now func() time.Time) {
	a.now = now
}

// IssueTokenPair signs an access token carrying the role and a refresh token
// carrying only the subject.
func (a *Authority) IssueTokenPair(p Principal) (TokenPair, error) {
	access, err := a.sign(Claims{Type: TokenAccess, Role: p.Role}, p.Username, a.accessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := a.sign(Claims{Type: TokenRefresh}, p.Username, a.refreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	a.metrics.RecordToken(string(TokenAccess))
	a.metrics.RecordToken(string(TokenRefresh))

	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(a.accessTTL / time.Second),
	}, nil
}

func (a *Authority) sign(claims Claims, subject string, ttl time.Duration) (string, error) {
	issuedAt := a.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Parse verifies signature, algorithm and expiry. It returns
// apperror.ErrTokenExpired when only the clock rejects the token and
// apperror.ErrInvalidToken for every structural or signature failure.
func (a *Authority) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			return a.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperror.ErrTokenExpired.Wrap(err)
		}
		return nil, apperror.ErrInvalidToken.Wrap(err)
	}
	if !token.Valid {
		return nil, apperror.ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, apperror.ErrInvalidToken.Withf("token has no subject")
	}
	if claims.Type != TokenAccess && claims.Type != TokenRefresh {
		return nil, apperror.ErrInvalidToken.Withf("unknown token type %q", claims.Type)
	}
	return claims, nil
}

// Validate fails closed: any parse failure, a type other than expected, or a
// subject differing from p (when p is non-nil) yields false.
func (a *Authority) Validate(tokenString string, expected TokenType, p *Principal) bool {
	claims, err := a.Parse(tokenString)
	if err != nil {
		return false
	}
	if claims.Type != expected {
		return false
	}
	if p != nil && claims.Subject != p.Username {
		return false
	}
	return true
}
