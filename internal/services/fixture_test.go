package services

import (
	"context"
	"testing"
	"time"

	"go-erp-backend/internal/auth"
	"go-erp-backend/internal/database/databasetest"
	"go-erp-backend/internal/metrics"
	"go-erp-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var cashier = auth.Principal{UserID: 2, Username: "cashier", Role: models.RoleUser}

type fixture struct {
	ctx       context.Context
	db        *gorm.DB
	metrics   *metrics.Metrics
	now       time.Time
	suppliers *SupplierService
	products  *ProductService
	sales     *SaleService
	users     *UserService
	reports   *ReportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := databasetest.New(t)
	m := metrics.New("test")

	f := &fixture{
		ctx:     context.Background(),
		db:      db,
		metrics: m,
		now:     time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
	}
	f.suppliers = NewSupplierService(db, m)
	f.products = NewProductService(db, m)
	f.sales = NewSaleService(db, m, time.UTC)
	f.sales.SetClock(func() time.Time { return f.now })
	f.users = NewUserService(db, m)
	f.users.SetHashCost(bcrypt.MinCost)
	f.reports = NewReportService(db, f.sales)
	return f
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func (f *fixture) supplier(t *testing.T, name string) *models.Supplier {
	t.Helper()
	s, err := f.suppliers.Create(f.ctx, SupplierInput{Name: name, Address: "1 Main St", PhoneNumber: "555-0100"})
	require.NoError(t, err)
	return s
}

func (f *fixture) product(t *testing.T, supplierID uint, barcode string, qty int, purchase, selling string) *models.Product {
	t.Helper()
	p, err := f.products.Create(f.ctx, ProductInput{
		Barcode:       barcode,
		Name:          "Product " + barcode,
		SupplierID:    supplierID,
		Quantity:      qty,
		PurchasePrice: dec(purchase),
		SellingPrice:  dec(selling),
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) quantity(t *testing.T, barcode string) int {
	t.Helper()
	p, err := f.products.GetByBarcode(f.ctx, barcode)
	require.NoError(t, err)
	return p.Quantity
}

func (f *fixture) countRows(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func line(barcode string, qty int) SaleItemInput {
	return SaleItemInput{Barcode: barcode, QuantitySold: qty}
}
