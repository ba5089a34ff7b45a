package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-erp-backend/internal/apperror"
	"go-erp-backend/internal/auth"
	"go-erp-backend/internal/database"
	"go-erp-backend/internal/logger"
	"go-erp-backend/internal/metrics"
	"go-erp-backend/internal/models"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LatestSalesLimit is how many sales the "latest" listing returns.
const LatestSalesLimit = 12

// SaleItemInput is one requested line: a barcode and how many units.
type SaleItemInput struct {
	Barcode      string
	QuantitySold int
}

// SaleInput is a validated create or update request.
type SaleInput struct {
	Items          []SaleItemInput
	Discount       decimal.Decimal
	PaymentMethods string
	Note           string
}

func (in SaleInput) validate() error {
	var details []string
	if len(in.Items) == 0 {
		details = append(details, "items: at least one item is required")
	}
	for i, item := range in.Items {
		if item.Barcode == "" {
			details = append(details, fmt.Sprintf("items[%d].barcode: is required", i))
		}
		if item.QuantitySold <= 0 {
			details = append(details, fmt.Sprintf("items[%d].quantity_sold: must be greater than 0", i))
		}
	}
	if in.Discount.IsNegative() {
		details = append(details, "discount: must not be negative")
	}
	if len(details) > 0 {
		return apperror.ErrValidation.WithDetails(details...)
	}
	return nil
}

// SaleService runs the sale workflow. Every mutation is one transaction that
// locks the product rows it touches.
type SaleService struct {
	db      *gorm.DB
	metrics *metrics.Metrics
	loc     *time.Location
	now     func() time.Time
}

// NewSaleService creates a SaleService. Calendar windows are computed in loc.
func NewSaleService(db *gorm.DB, m *metrics.Metrics, loc *time.Location) *SaleService {
	if loc == nil {
		loc = time.Local
	}
	return &SaleService{db: db, metrics: m, loc: loc, now: time.Now}
}

// SetClock replaces the time source for sale dates and calendar windows.
func (s *SaleService) SetClock(now func() time.Time) {
	s.now = now
}

func lockForUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// takeStock locks the product by barcode, checks availability and persists
// the decrement right away so a later line for the same barcode sees it.
func takeStock(tx *gorm.DB, barcode string, qty int) (*models.Product, error) {
	var product models.Product
	if err := lockForUpdate(tx).Where("barcode = ?", barcode).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrProductNotFound.Withf("product with barcode %s not found", barcode)
		}
		return nil, err
	}
	if product.Quantity < qty {
		return nil, apperror.ErrInsufficientQty.Withf(
			"insufficient quantity for product with barcode %s: requested %d, available %d",
			barcode, qty, product.Quantity)
	}

	product.Quantity -= qty
	if err := tx.Model(&product).Update("quantity", product.Quantity).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// returnStock adds qty back onto the product with the given id.
func returnStock(tx *gorm.DB, productID uint, qty int) error {
	var product models.Product
	if err := lockForUpdate(tx).First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.ErrProductNotFound.Withf("product with id %d not found", productID)
		}
		return err
	}
	return tx.Model(&product).Update("quantity", product.Quantity+qty).Error
}

// priceLine freezes line totals from the product's current prices.
func priceLine(item *models.SaleItem, product *models.Product, qty int) {
	q := decimal.NewFromInt(int64(qty))
	item.ProductID = product.ID
	item.QuantitySold = qty
	item.SellingPrice = product.SellingPrice.Mul(q)
	item.PurchasePrice = product.PurchasePrice.Mul(q)
}

// applyTotals recomputes the derived sale figures from its items.
func applyTotals(sale *models.Sale) {
	gross := lo.Reduce(sale.Items, func(acc decimal.Decimal, it models.SaleItem, _ int) decimal.Decimal {
		return acc.Add(it.SellingPrice)
	}, decimal.Zero)
	margin := lo.Reduce(sale.Items, func(acc decimal.Decimal, it models.SaleItem, _ int) decimal.Decimal {
		return acc.Add(it.SellingPrice.Sub(it.PurchasePrice))
	}, decimal.Zero)

	sale.TotalPrice = gross.Sub(sale.Discount)
	sale.NetProfit = margin.Sub(sale.Discount)
	sale.TotalProducts = lo.SumBy(sale.Items, func(it models.SaleItem) int { return it.QuantitySold })
}

// mergeLines sums quantities of repeated barcodes, keeping first-seen order.
func mergeLines(lines []SaleItemInput) []SaleItemInput {
	order := lo.Uniq(lo.Map(lines, func(l SaleItemInput, _ int) string { return l.Barcode }))
	totals := lo.Reduce(lines, func(acc map[string]int, l SaleItemInput, _ int) map[string]int {
		acc[l.Barcode] += l.QuantitySold
		return acc
	}, map[string]int{})
	return lo.Map(order, func(barcode string, _ int) SaleItemInput {
		return SaleItemInput{Barcode: barcode, QuantitySold: totals[barcode]}
	})
}

// Create records a sale, decrementing stock line by line. Any failing line
// rolls back every decrement already applied.
func (s *SaleService) Create(ctx context.Context, actor auth.Principal, in SaleInput) (*models.Sale, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	defer s.metrics.TrackDBOperation("sale_create")(time.Now())

	var sale models.Sale
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := make([]models.SaleItem, 0, len(in.Items))
		for _, line := range in.Items {
			product, err := takeStock(tx, line.Barcode, line.QuantitySold)
			if err != nil {
				return err
			}
			var item models.SaleItem
			priceLine(&item, product, line.QuantitySold)
			items = append(items, item)
		}

		sale = models.Sale{
			Items:          items,
			SaleDate:       s.now().UTC(),
			Discount:       in.Discount,
			PaymentMethods: in.PaymentMethods,
			Note:           in.Note,
			CreatedBy:      actor.Username,
		}
		applyTotals(&sale)

		if err := tx.Create(&sale).Error; err != nil {
			return database.TranslateError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordSale("create", sale.TotalProducts, 0)
	logger.FromContext(ctx).Info("Sale created",
		zap.Uint("sale_id", sale.ID),
		zap.String("by", actor.Username),
		zap.Int("total_products", sale.TotalProducts),
		zap.String("total_price", sale.TotalPrice.String()),
	)
	return &sale, nil
}

func findSale(tx *gorm.DB, id uint, lock bool) (*models.Sale, error) {
	q := tx.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("sale_items.id") })
	if lock {
		q = lockForUpdate(q)
	}
	var sale models.Sale
	if err := q.First(&sale, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrSaleNotFound.Withf("sale with id %d not found", id)
		}
		return nil, err
	}
	return &sale, nil
}

// Update reconciles the sale's items against the requested set by barcode.
// Old quantities go back to stock first, so lines kept in the new set are
// validated against the restored quantity. Item rows of products that stay
// in the sale are reused; rows of dropped products are deleted. The sale
// date does not change.
func (s *SaleService) Update(ctx context.Context, actor auth.Principal, id uint, in SaleInput) (*models.Sale, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	defer s.metrics.TrackDBOperation("sale_update")(time.Now())

	var (
		sale     *models.Sale
		restored int
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		sale, err = findSale(tx, id, true)
		if err != nil {
			return err
		}

		reusable := make(map[uint][]models.SaleItem)
		for _, old := range sale.Items {
			if err := returnStock(tx, old.ProductID, old.QuantitySold); err != nil {
				return err
			}
			restored += old.QuantitySold
			reusable[old.ProductID] = append(reusable[old.ProductID], old)
		}

		final := make([]models.SaleItem, 0, len(in.Items))
		for _, line := range mergeLines(in.Items) {
			product, err := takeStock(tx, line.Barcode, line.QuantitySold)
			if err != nil {
				return err
			}

			item := models.SaleItem{SaleID: sale.ID}
			if rows := reusable[product.ID]; len(rows) > 0 {
				item = rows[0]
				reusable[product.ID] = rows[1:]
			}
			priceLine(&item, product, line.QuantitySold)
			if err := tx.Omit(clause.Associations).Save(&item).Error; err != nil {
				return database.TranslateError(err)
			}
			final = append(final, item)
		}

		stale := lo.FlatMap(lo.Values(reusable), func(rows []models.SaleItem, _ int) []uint {
			return lo.Map(rows, func(it models.SaleItem, _ int) uint { return it.ID })
		})
		if len(stale) > 0 {
			if err := tx.Delete(&models.SaleItem{}, stale).Error; err != nil {
				return err
			}
		}

		sale.Items = final
		sale.Discount = in.Discount
		sale.PaymentMethods = in.PaymentMethods
		sale.Note = in.Note
		applyTotals(sale)

		return database.TranslateError(tx.Omit(clause.Associations).Save(sale).Error)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordSale("update", sale.TotalProducts, restored)
	logger.FromContext(ctx).Info("Sale updated",
		zap.Uint("sale_id", sale.ID),
		zap.String("by", actor.Username),
		zap.Int("restored", restored),
		zap.Int("total_products", sale.TotalProducts),
	)
	return sale, nil
}

// Delete returns every item's quantity to stock and removes the sale.
func (s *SaleService) Delete(ctx context.Context, actor auth.Principal, id uint) error {
	defer s.metrics.TrackDBOperation("sale_delete")(time.Now())

	restored := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sale, err := findSale(tx, id, true)
		if err != nil {
			return err
		}
		for _, item := range sale.Items {
			if err := returnStock(tx, item.ProductID, item.QuantitySold); err != nil {
				return err
			}
			restored += item.QuantitySold
		}
		if err := tx.Where("sale_id = ?", sale.ID).Delete(&models.SaleItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Sale{}, sale.ID).Error
	})
	if err != nil {
		return err
	}

	s.metrics.RecordSale("delete", 0, restored)
	logger.FromContext(ctx).Info("Sale deleted",
		zap.Uint("sale_id", id),
		zap.String("by", actor.Username),
		zap.Int("restored", restored),
	)
	return nil
}

func (s *SaleService) query(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("sale_items.id") }).
		Preload("Items.Product")
}

// List returns every sale in id order.
func (s *SaleService) List(ctx context.Context) ([]models.Sale, error) {
	var sales []models.Sale
	err := s.query(ctx).Order("id").Find(&sales).Error
	return sales, err
}

func (s *SaleService) Get(ctx context.Context, id uint) (*models.Sale, error) {
	var sale models.Sale
	if err := s.query(ctx).First(&sale, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrSaleNotFound.Withf("sale with id %d not found", id)
		}
		return nil, err
	}
	return &sale, nil
}

// ListByDateDesc returns every sale, newest first.
func (s *SaleService) ListByDateDesc(ctx context.Context) ([]models.Sale, error) {
	var sales []models.Sale
	err := s.query(ctx).Order("sale_date DESC, id DESC").Find(&sales).Error
	return sales, err
}

// Latest returns the most recent sales.
func (s *SaleService) Latest(ctx context.Context) ([]models.Sale, error) {
	var sales []models.Sale
	err := s.query(ctx).Order("sale_date DESC, id DESC").Limit(LatestSalesLimit).Find(&sales).Error
	return sales, err
}

// ListBetween returns sales dated within [from, to], oldest first.
func (s *SaleService) ListBetween(ctx context.Context, from, to time.Time) ([]models.Sale, error) {
	var sales []models.Sale
	err := s.query(ctx).
		Where("sale_date BETWEEN ? AND ?", from.UTC(), to.UTC()).
		Order("sale_date, id").
		Find(&sales).Error
	return sales, err
}

// DayWindow returns the first and last instant of day's calendar date in the
// service location.
func (s *SaleService) DayWindow(day time.Time) (time.Time, time.Time) {
	d := day.In(s.loc)
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, s.loc)
	return start, start.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// MonthWindow returns the first and last instant of the month containing t.
func (s *SaleService) MonthWindow(t time.Time) (time.Time, time.Time) {
	d := t.In(s.loc)
	start := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, s.loc)
	return start, start.AddDate(0, 1, 0).Add(-time.Nanosecond)
}

// ListByDay returns the sales of day's calendar date.
func (s *SaleService) ListByDay(ctx context.Context, day time.Time) ([]models.Sale, error) {
	from, to := s.DayWindow(day)
	return s.ListBetween(ctx, from, to)
}

// ListToday returns today's sales.
func (s *SaleService) ListToday(ctx context.Context) ([]models.Sale, error) {
	return s.ListByDay(ctx, s.now())
}

// ListCurrentMonth returns the sales of the current calendar month.
func (s *SaleService) ListCurrentMonth(ctx context.Context) ([]models.Sale, error) {
	from, to := s.MonthWindow(s.now())
	return s.ListBetween(ctx, from, to)
}

// Location is the zone calendar windows are computed in.
func (s *SaleService) Location() *time.Location {
	return s.loc
}
