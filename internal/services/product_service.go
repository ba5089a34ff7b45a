package services

import (
	"context"
	"errors"

	"go-erp-backend/internal/apperror"
	"go-erp-backend/internal/database"
	"go-erp-backend/internal/logger"
	"go-erp-backend/internal/metrics"
	"go-erp-backend/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProductInput carries the writable product fields.
type ProductInput struct {
	Barcode       string
	Name          string
	SupplierID    uint
	Quantity      int
	PurchasePrice decimal.Decimal
	SellingPrice  decimal.Decimal
}

func (in ProductInput) validate() error {
	var details []string
	if in.Quantity < 0 {
		details = append(details, "quantity: must not be negative")
	}
	if in.PurchasePrice.IsNegative() {
		details = append(details, "purchase_price: must not be negative")
	}
	if in.SellingPrice.LessThan(in.PurchasePrice) {
		details = append(details, "selling_price: must be greater than or equal to purchase_price")
	}
	if len(details) > 0 {
		return apperror.ErrValidation.WithDetails(details...)
	}
	return nil
}

// ProductService is the inventory ledger: CRUD over products keyed by
// barcode, with supplier resolution and price ordering.
type ProductService struct {
	db      *gorm.DB
	metrics *metrics.Metrics
}

// NewProductService creates a ProductService. m may be nil.
func NewProductService(db *gorm.DB, m *metrics.Metrics) *ProductService {
	return &ProductService{db: db, metrics: m}
}

func (s *ProductService) List(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).Preload("Supplier").Order("id").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (s *ProductService) Get(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).Preload("Supplier").First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrProductNotFound.Withf("product with id %d not found", id)
		}
		return nil, err
	}
	return &product, nil
}

func (s *ProductService) GetByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).Preload("Supplier").Where("barcode = ?", barcode).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrProductNotFound.Withf("product with barcode %s not found", barcode)
		}
		return nil, err
	}
	return &product, nil
}

func barcodeTaken(tx *gorm.DB, barcode string, exceptID uint) (bool, error) {
	var count int64
	q := tx.Model(&models.Product{}).Where("barcode = ?", barcode)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	err := q.Count(&count).Error
	return count > 0, err
}

// Create adds a product after checking barcode uniqueness, price ordering and
// the supplier reference.
func (s *ProductService) Create(ctx context.Context, in ProductInput) (*models.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var product models.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := barcodeTaken(tx, in.Barcode, 0)
		if err != nil {
			return err
		}
		if taken {
			return apperror.ErrDuplicateBarcode.Withf("barcode %s must be unique", in.Barcode)
		}

		supplier, err := findSupplier(tx, in.SupplierID)
		if err != nil {
			return err
		}

		product = models.Product{
			Barcode:       in.Barcode,
			Name:          in.Name,
			SupplierID:    supplier.ID,
			Quantity:      in.Quantity,
			PurchasePrice: in.PurchasePrice,
			SellingPrice:  in.SellingPrice,
		}
		if err := tx.Create(&product).Error; err != nil {
			return database.TranslateError(err)
		}
		product.Supplier = supplier
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordChange("product", "create")
	logger.FromContext(ctx).Info("Product created",
		zap.Uint("product_id", product.ID),
		zap.String("barcode", product.Barcode),
	)
	return &product, nil
}

// Update replaces every writable field of a product.
func (s *ProductService) Update(ctx context.Context, id uint, in ProductInput) (*models.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var product models.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&product, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.ErrProductNotFound.Withf("product with id %d not found", id)
			}
			return err
		}

		if in.Barcode != product.Barcode {
			taken, err := barcodeTaken(tx, in.Barcode, product.ID)
			if err != nil {
				return err
			}
			if taken {
				return apperror.ErrDuplicateBarcode.Withf("barcode %s must be unique", in.Barcode)
			}
		}

		supplier, err := findSupplier(tx, in.SupplierID)
		if err != nil {
			return err
		}

		product.Barcode = in.Barcode
		product.Name = in.Name
		product.SupplierID = supplier.ID
		product.Supplier = nil
		product.Quantity = in.Quantity
		product.PurchasePrice = in.PurchasePrice
		product.SellingPrice = in.SellingPrice
		if err := tx.Save(&product).Error; err != nil {
			return database.TranslateError(err)
		}
		product.Supplier = supplier
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordChange("product", "update")
	return &product, nil
}

// Delete removes a product. Products referenced by recorded sale items are
// refused with a data-integrity conflict.
func (s *ProductService) Delete(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.First(&product, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.ErrProductNotFound.Withf("product with id %d not found", id)
			}
			return err
		}
		var refs int64
		if err := tx.Model(&models.SaleItem{}).Where("product_id = ?", id).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return apperror.ErrConflict.Withf("product %s is referenced by %d sale item(s)", product.Barcode, refs)
		}
		if err := tx.Delete(&product).Error; err != nil {
			return database.TranslateError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.RecordChange("product", "delete")
	logger.FromContext(ctx).Info("Product deleted", zap.Uint("product_id", id))
	return nil
}

// StockValue returns quantity × purchase price for one product.
func StockValue(p models.Product) decimal.Decimal {
	return p.PurchasePrice.Mul(decimal.NewFromInt(int64(p.Quantity)))
}
