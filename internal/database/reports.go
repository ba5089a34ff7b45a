package database

import (
	"context"
	"time"

	"go-erp-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SalesTotals holds aggregate figures over a sale-date window
type SalesTotals struct {
	Revenue    decimal.Decimal `json:"revenue"`
	NetProfit  decimal.Decimal `json:"net_profit"`
	Discounts  decimal.Decimal `json:"discounts"`
	OrderCount int64           `json:"order_count"`
	UnitsSold  int64           `json:"units_sold"`
}

// TopSeller is one row of the best-seller ranking
type TopSeller struct {
	ProductID   uint            `json:"product_id"`
	Barcode     string          `json:"barcode"`
	ProductName string          `json:"product_name"`
	Sold        int64           `json:"sold"`
	Revenue     decimal.Decimal `json:"revenue"`
}

// GetSalesTotals calculates sales within [start, end].
func GetSalesTotals(ctx context.Context, db *gorm.DB, start, end time.Time) (*SalesTotals, error) {
	var row struct {
		Revenue   decimal.Decimal
		NetProfit decimal.Decimal
		Discounts decimal.Decimal
		Orders    int64
		Units     int64
	}

	// COALESCE ensures we get 0 instead of NULL if no sales exist
	err := db.WithContext(ctx).Model(&models.Sale{}).
		Where("sale_date BETWEEN ? AND ?", start.UTC(), end.UTC()).
		Select("COALESCE(SUM(total_price), 0) AS revenue, " +
			"COALESCE(SUM(net_profit), 0) AS net_profit, " +
			"COALESCE(SUM(discount), 0) AS discounts, " +
			"COUNT(*) AS orders, " +
			"COALESCE(SUM(total_products), 0) AS units").
		Scan(&row).Error
	if err != nil {
		return nil, err
	}

	return &SalesTotals{
		Revenue:    row.Revenue,
		NetProfit:  row.NetProfit,
		Discounts:  row.Discounts,
		OrderCount: row.Orders,
		UnitsSold:  row.Units,
	}, nil
}

// GetTopSellers ranks products by units sold within [start, end].
func GetTopSellers(ctx context.Context, db *gorm.DB, start, end time.Time, limit int) ([]TopSeller, error) {
	var rows []TopSeller
	err := db.WithContext(ctx).Table("sale_items").
		Select("products.id AS product_id, products.barcode AS barcode, products.name AS product_name, "+
			"SUM(sale_items.quantity_sold) AS sold, SUM(sale_items.selling_price) AS revenue").
		Joins("JOIN products ON sale_items.product_id = products.id").
		Joins("JOIN sales ON sale_items.sale_id = sales.id").
		Where("sales.sale_date BETWEEN ? AND ?", start.UTC(), end.UTC()).
		Group("products.id, products.barcode, products.name").
		Order("sold DESC, products.id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
