package services

import (
	"context"
	"errors"

	"go-erp-backend/internal/apperror"
	"go-erp-backend/internal/database"
	"go-erp-backend/internal/logger"
	"go-erp-backend/internal/metrics"
	"go-erp-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SupplierInput carries the writable supplier fields.
type SupplierInput struct {
	Name        string
	Address     string
	PhoneNumber string
}

// SupplierService is plain CRUD over suppliers.
type SupplierService struct {
	db      *gorm.DB
	metrics *metrics.Metrics
}

// NewSupplierService creates a SupplierService. m may be nil.
func NewSupplierService(db *gorm.DB, m *metrics.Metrics) *SupplierService {
	return &SupplierService{db: db, metrics: m}
}

func (s *SupplierService) List(ctx context.Context) ([]models.Supplier, error) {
	var suppliers []models.Supplier
	if err := s.db.WithContext(ctx).Order("id").Find(&suppliers).Error; err != nil {
		return nil, err
	}
	return suppliers, nil
}

func (s *SupplierService) Get(ctx context.Context, id uint) (*models.Supplier, error) {
	return findSupplier(s.db.WithContext(ctx), id)
}

func findSupplier(tx *gorm.DB, id uint) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := tx.First(&supplier, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrSupplierNotFound.Withf("supplier with id %d not found", id)
		}
		return nil, err
	}
	return &supplier, nil
}

func (s *SupplierService) Create(ctx context.Context, in SupplierInput) (*models.Supplier, error) {
	supplier := models.Supplier{Name: in.Name, Address: in.Address, PhoneNumber: in.PhoneNumber}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return database.TranslateError(tx.Create(&supplier).Error)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordChange("supplier", "create")
	logger.FromContext(ctx).Info("Supplier created", zap.Uint("supplier_id", supplier.ID))
	return &supplier, nil
}

func (s *SupplierService) Update(ctx context.Context, id uint, in SupplierInput) (*models.Supplier, error) {
	var supplier *models.Supplier
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		supplier, err = findSupplier(tx, id)
		if err != nil {
			return err
		}
		supplier.Name = in.Name
		supplier.Address = in.Address
		supplier.PhoneNumber = in.PhoneNumber
		return database.TranslateError(tx.Save(supplier).Error)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordChange("supplier", "update")
	return supplier, nil
}

// Delete removes a supplier. Suppliers still referenced by products are
// refused with a data-integrity conflict.
func (s *SupplierService) Delete(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findSupplier(tx, id); err != nil {
			return err
		}
		var refs int64
		if err := tx.Model(&models.Product{}).Where("supplier_id = ?", id).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return apperror.ErrConflict.Withf("supplier %d is referenced by %d product(s)", id, refs)
		}
		return database.TranslateError(tx.Delete(&models.Supplier{}, id).Error)
	})
	if err != nil {
		return err
	}
	s.metrics.RecordChange("supplier", "delete")
	logger.FromContext(ctx).Info("Supplier deleted", zap.Uint("supplier_id", id))
	return nil
}
