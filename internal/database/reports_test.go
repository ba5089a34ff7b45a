package database

import (
	"context"
	"testing"
	"time"

	"go-erp-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestSalesTotalsAndTopSellers(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	supplier := models.Supplier{Name: "Acme"}
	require.NoError(t, db.Create(&supplier).Error)
	tea := models.Product{Barcode: "T", Name: "Tea", SupplierID: supplier.ID, Quantity: 5,
		PurchasePrice: decimal.NewFromInt(1), SellingPrice: decimal.NewFromInt(2)}
	cake := models.Product{Barcode: "C", Name: "Cake", SupplierID: supplier.ID, Quantity: 5,
		PurchasePrice: decimal.NewFromInt(3), SellingPrice: decimal.NewFromInt(5)}
	require.NoError(t, db.Create(&tea).Error)
	require.NoError(t, db.Create(&cake).Error)

	day := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	inWindow := models.Sale{
		SaleDate: day, TotalPrice: decimal.NewFromInt(14), NetProfit: decimal.NewFromInt(6),
		Discount: decimal.NewFromInt(1), TotalProducts: 4,
		Items: []models.SaleItem{
			{ProductID: tea.ID, QuantitySold: 3, SellingPrice: decimal.NewFromInt(6), PurchasePrice: decimal.NewFromInt(3)},
			{ProductID: cake.ID, QuantitySold: 1, SellingPrice: decimal.NewFromInt(5), PurchasePrice: decimal.NewFromInt(3)},
		},
	}
	outside := models.Sale{
		SaleDate: day.AddDate(0, 0, -5), TotalPrice: decimal.NewFromInt(50), NetProfit: decimal.NewFromInt(20),
		Discount: decimal.Zero, TotalProducts: 10,
		Items: []models.SaleItem{
			{ProductID: cake.ID, QuantitySold: 10, SellingPrice: decimal.NewFromInt(50), PurchasePrice: decimal.NewFromInt(30)},
		},
	}
	require.NoError(t, db.Create(&inWindow).Error)
	require.NoError(t, db.Create(&outside).Error)

	from, to := day.Add(-time.Hour), day.Add(time.Hour)
	totals, err := GetSalesTotals(ctx, db, from, to)
	require.NoError(t, err)
	require.True(t, totals.Revenue.Equal(decimal.NewFromInt(14)), totals.Revenue.String())
	require.True(t, totals.NetProfit.Equal(decimal.NewFromInt(6)))
	require.Equal(t, int64(1), totals.OrderCount)
	require.Equal(t, int64(4), totals.UnitsSold)

	top, err := GetTopSellers(ctx, db, from, to, 5)
	require.NoError(t, err)
	require.Len(t, top, 2)
	require.Equal(t, "T", top[0].Barcode)
	require.Equal(t, int64(3), top[0].Sold)

	empty, err := GetSalesTotals(ctx, db, day.AddDate(1, 0, 0), day.AddDate(1, 0, 1))
	require.NoError(t, err)
	require.True(t, empty.Revenue.IsZero())
	require.Zero(t, empty.OrderCount)
}
