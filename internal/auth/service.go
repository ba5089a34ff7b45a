package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go-erp-backend/internal/apperror"
	"go-erp-backend/internal/logger"
	"go-erp-backend/internal/metrics"
	"go-erp-backend/internal/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserDirectory is the slice of the user store the authenticator needs.
// FindByUsername returns apperror.ErrUserNotFound for unknown names.
type UserDirectory interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// Service authenticates credentials and hands out token pairs.
type Service struct {
	users     UserDirectory
	authority *Authority
	metrics   *metrics.Metrics
}

// NewService wires the authenticator. m may be nil.
func NewService(users UserDirectory, authority *Authority, m *metrics.Metrics) *Service {
	return &Service{users: users, authority: authority, metrics: m}
}

// Authority exposes the token authority used by this service.
func (s *Service) Authority() *Authority {
	return s.authority
}

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// burnCompare spends the same bcrypt work as a real check so unknown
// usernames are not distinguishable by latency.
func burnCompare(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

// Authenticate checks a username/password pair. It returns
// apperror.ErrUserNotFound, apperror.ErrBadCredentials, or a wrapped store
// error, keeping the three cases apart.
func (s *Service) Authenticate(ctx context.Context, username, password string) (Principal, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrUserNotFound) {
			burnCompare(password)
			return Principal{}, err
		}
		return Principal{}, fmt.Errorf("load user %q: %w", username, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return Principal{}, apperror.ErrBadCredentials
		}
		return Principal{}, fmt.Errorf("compare password: %w", err)
	}

	return Principal{UserID: user.ID, Username: user.Username, Role: user.Role}, nil
}

// Login authenticates and issues a token pair. Unknown users are reported as
// bad credentials.
func (s *Service) Login(ctx context.Context, username, password string) (TokenPair, error) {
	log := logger.FromContext(ctx)

	principal, err := s.Authenticate(ctx, username, password)
	if err != nil {
		if errors.Is(err, apperror.ErrUserNotFound) || errors.Is(err, apperror.ErrBadCredentials) {
			s.metrics.RecordLogin("bad_credentials")
			log.Info("Login rejected", zap.String("username", username))
			return TokenPair{}, apperror.ErrBadCredentials
		}
		s.metrics.RecordLogin("error")
		return TokenPair{}, err
	}

	pair, err := s.authority.IssueTokenPair(principal)
	if err != nil {
		s.metrics.RecordLogin("error")
		return TokenPair{}, err
	}
	s.metrics.RecordLogin("success")
	log.Info("User logged in", zap.String("username", principal.Username), zap.String("role", principal.Role))
	return pair, nil
}

// Refresh exchanges a valid refresh token for a new pair. The role in the new
// access token is read from the store, not from the old token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if refreshToken == "" {
		return TokenPair{}, apperror.ErrInvalidRefresh.Withf("refresh token is required")
	}

	claims, err := s.authority.Parse(refreshToken)
	if err != nil {
		if errors.Is(err, apperror.ErrTokenExpired) {
			return TokenPair{}, apperror.ErrInvalidRefresh.Withf("refresh token has expired").Wrap(err)
		}
		return TokenPair{}, apperror.ErrInvalidRefresh.Wrap(err)
	}
	if claims.Type != TokenRefresh {
		return TokenPair{}, apperror.ErrInvalidRefresh.Withf("token is not a refresh token")
	}

	user, err := s.users.FindByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, apperror.ErrUserNotFound) {
			return TokenPair{}, apperror.ErrInvalidRefresh
		}
		return TokenPair{}, fmt.Errorf("load user %q: %w", claims.Subject, err)
	}

	return s.authority.IssueTokenPair(Principal{UserID: user.ID, Username: user.Username, Role: user.Role})
}
