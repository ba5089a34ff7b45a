package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-erp-backend/internal/apperror"
	"go-erp-backend/internal/database"
	"go-erp-backend/internal/logger"
	"go-erp-backend/internal/metrics"
	"go-erp-backend/internal/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// RegisterUserInput is a validated registration request.
type RegisterUserInput struct {
	Username string
	Password string
	Role     string
}

// UserService owns user accounts and the bootstrap administrator.
type UserService struct {
	db      *gorm.DB
	metrics *metrics.Metrics
	cost    int
}

// NewUserService creates a UserService. m may be nil.
func NewUserService(db *gorm.DB, m *metrics.Metrics) *UserService {
	return &UserService{db: db, metrics: m, cost: bcrypt.DefaultCost}
}

// SetHashCost overrides the bcrypt cost; tests lower it.
func (s *UserService) SetHashCost(cost int) {
	s.cost = cost
}

// FindByUsername returns apperror.ErrUserNotFound for unknown names.
func (s *UserService) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrUserNotFound.Withf("user %s not found", username)
		}
		return nil, err
	}
	return &user, nil
}

// FindByID returns apperror.ErrUserNotFound for unknown ids.
func (s *UserService) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrUserNotFound.Withf("user with id %d not found", id)
		}
		return nil, err
	}
	return &user, nil
}

// IsDefaultUserPresent reports whether the bootstrap administrator still exists.
func (s *UserService) IsDefaultUserPresent(ctx context.Context) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("bootstrap = ?", true).
		Count(&count).Error
	return count > 0, err
}

// EnsureDefaultUser seeds the bootstrap administrator when no users exist at
// all. It reports whether a user was created.
func (s *UserService) EnsureDefaultUser(ctx context.Context, password string) (bool, error) {
	log := logger.FromContext(ctx)
	created := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
		if err != nil {
			return fmt.Errorf("hash default password: %w", err)
		}
		user := models.User{
			Username:     models.DefaultUsername,
			PasswordHash: string(hash),
			Role:         models.RoleAdmin,
			Bootstrap:    true,
		}
		if err := tx.Create(&user).Error; err != nil {
			return database.TranslateError(err)
		}
		created = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if created {
		log.Warn("Default admin user created; register an administrator to remove it",
			zap.String("username", models.DefaultUsername))
	}
	return created, nil
}

// Register creates a user. Registering an ADMIN removes the bootstrap
// administrator in the same transaction, before the duplicate check, so the
// "admin" name becomes available to a real account.
func (s *UserService) Register(ctx context.Context, in RegisterUserInput) (*models.User, error) {
	log := logger.FromContext(ctx)
	role := strings.ToUpper(strings.TrimSpace(in.Role))
	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleAdmin && role != models.RoleUser {
		return nil, apperror.ErrValidation.WithDetails(fmt.Sprintf("role: must be %s or %s", models.RoleAdmin, models.RoleUser))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{Username: in.Username, PasswordHash: string(hash), Role: role}
	removedDefault := false

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if role == models.RoleAdmin {
			res := tx.Where("bootstrap = ?", true).Delete(&models.User{})
			if res.Error != nil {
				return res.Error
			}
			removedDefault = res.RowsAffected > 0
		}

		var count int64
		if err := tx.Model(&models.User{}).Where("username = ?", in.Username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperror.ErrUsernameExists.Withf("username %s already exists", in.Username)
		}

		if err := tx.Create(&user).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return apperror.ErrUsernameExists.Withf("username %s already exists", in.Username)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordChange("user", "create")
	log.Info("User registered", zap.String("username", user.Username), zap.String("role", user.Role))
	if removedDefault {
		log.Info("Default admin user removed")
	}
	return &user, nil
}

// Delete removes a user by id.
func (s *UserService) Delete(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.User{}, id)
		if res.Error != nil {
			return database.TranslateError(res.Error)
		}
		if res.RowsAffected == 0 {
			return apperror.ErrUserNotFound.Withf("user with id %d not found", id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.metrics.RecordChange("user", "delete")
	logger.FromContext(ctx).Info("User deleted", zap.Uint("user_id", id))
	return nil
}
