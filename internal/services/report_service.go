package services

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"go-erp-backend/internal/database"
	"go-erp-backend/internal/models"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const (
	topSellersLimit  = 5
	recentSalesLimit = 10
)

// SalesSummary defines the shape of the analytics response
type SalesSummary struct {
	From        time.Time            `json:"from"`
	To          time.Time            `json:"to"`
	Totals      database.SalesTotals `json:"totals"`
	TopSelling  []database.TopSeller `json:"top_selling"`
	RecentSales []models.Sale        `json:"recent_sales"`
}

// ValuationItem is a single stock line
type ValuationItem struct {
	Barcode       string          `json:"barcode"`
	Name          string          `json:"name"`
	Quantity      int             `json:"quantity"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	TotalCost     decimal.Decimal `json:"total_cost"`
}

// SupplierGroup is the stock bought from one supplier
type SupplierGroup struct {
	SupplierID   uint            `json:"supplier_id"`
	SupplierName string          `json:"supplier_name"`
	Items        []ValuationItem `json:"items"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

// Valuation is the monetary value of all physical inventory at cost
type Valuation struct {
	Suppliers  []SupplierGroup `json:"suppliers"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

// ReportService builds read-only analytics over sales and stock.
type ReportService struct {
	db    *gorm.DB
	sales *SaleService
}

func NewReportService(db *gorm.DB, sales *SaleService) *ReportService {
	return &ReportService{db: db, sales: sales}
}

// DefaultWindow is the current calendar month, used when a caller gives no
// range.
func (r *ReportService) DefaultWindow() (time.Time, time.Time) {
	return r.sales.MonthWindow(r.sales.now())
}

// DayRange turns two calendar dates into an inclusive instant window.
func (r *ReportService) DayRange(from, to time.Time) (time.Time, time.Time) {
	start, _ := r.sales.DayWindow(from)
	_, end := r.sales.DayWindow(to)
	return start, end
}

// Summary reports revenue, profit, best sellers and recent sales in a window.
func (r *ReportService) Summary(ctx context.Context, from, to time.Time) (*SalesSummary, error) {
	totals, err := database.GetSalesTotals(ctx, r.db, from, to)
	if err != nil {
		return nil, fmt.Errorf("sales totals: %w", err)
	}
	top, err := database.GetTopSellers(ctx, r.db, from, to, topSellersLimit)
	if err != nil {
		return nil, fmt.Errorf("top sellers: %w", err)
	}

	var recent []models.Sale
	err = r.db.WithContext(ctx).
		Where("sale_date BETWEEN ? AND ?", from.UTC(), to.UTC()).
		Order("sale_date DESC, id DESC").
		Limit(recentSalesLimit).
		Find(&recent).Error
	if err != nil {
		return nil, fmt.Errorf("recent sales: %w", err)
	}

	return &SalesSummary{
		From:        from,
		To:          to,
		Totals:      *totals,
		TopSelling:  lo.Ternary(top == nil, []database.TopSeller{}, top),
		RecentSales: lo.Ternary(recent == nil, []models.Sale{}, recent),
	}, nil
}

// StockValuation values current stock at purchase price, grouped by supplier.
func (r *ReportService) StockValuation(ctx context.Context) (*Valuation, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).Preload("Supplier").Order("name, id").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("load inventory: %w", err)
	}

	grouped := lo.GroupBy(products, func(p models.Product) uint { return p.SupplierID })

	out := &Valuation{Suppliers: []SupplierGroup{}, GrandTotal: decimal.Zero}
	for supplierID, items := range grouped {
		group := SupplierGroup{SupplierID: supplierID, Subtotal: decimal.Zero}
		if items[0].Supplier != nil {
			group.SupplierName = items[0].Supplier.Name
		}
		for _, p := range items {
			cost := StockValue(p)
			group.Items = append(group.Items, ValuationItem{
				Barcode:       p.Barcode,
				Name:          p.Name,
				Quantity:      p.Quantity,
				PurchasePrice: p.PurchasePrice,
				TotalCost:     cost,
			})
			group.Subtotal = group.Subtotal.Add(cost)
		}
		out.GrandTotal = out.GrandTotal.Add(group.Subtotal)
		out.Suppliers = append(out.Suppliers, group)
	}

	sort.Slice(out.Suppliers, func(i, j int) bool {
		if out.Suppliers[i].SupplierName != out.Suppliers[j].SupplierName {
			return out.Suppliers[i].SupplierName < out.Suppliers[j].SupplierName
		}
		return out.Suppliers[i].SupplierID < out.Suppliers[j].SupplierID
	})
	return out, nil
}

var exportHeader = []interface{}{
	"Sale ID", "Sale Date", "Created By", "Barcode", "Product",
	"Quantity", "Selling Price", "Purchase Price", "Line Profit",
}

// ExportSales writes an XLSX workbook of the sales in [from, to]: one row per
// sale item on the "Sales" sheet and window totals on "Summary".
func (r *ReportService) ExportSales(ctx context.Context, from, to time.Time, w io.Writer) error {
	sales, err := r.sales.ListBetween(ctx, from, to)
	if err != nil {
		return fmt.Errorf("load sales: %w", err)
	}
	totals, err := database.GetSalesTotals(ctx, r.db, from, to)
	if err != nil {
		return fmt.Errorf("sales totals: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sales"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, "A1", &exportHeader); err != nil {
		return err
	}

	row := 2
	loc := r.sales.Location()
	for _, sale := range sales {
		for _, item := range sale.Items {
			barcode, name := "", ""
			if item.Product != nil {
				barcode, name = item.Product.Barcode, item.Product.Name
			}
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			values := []interface{}{
				sale.ID,
				sale.SaleDate.In(loc).Format("2006-01-02 15:04:05"),
				sale.CreatedBy,
				barcode,
				name,
				item.QuantitySold,
				item.SellingPrice.InexactFloat64(),
				item.PurchasePrice.InexactFloat64(),
				item.SellingPrice.Sub(item.PurchasePrice).InexactFloat64(),
			}
			if err := f.SetSheetRow(sheet, cell, &values); err != nil {
				return err
			}
			row++
		}
	}
	if err := f.SetColWidth(sheet, "A", "I", 16); err != nil {
		return err
	}

	const summary = "Summary"
	if _, err := f.NewSheet(summary); err != nil {
		return err
	}
	rows := [][]interface{}{
		{"From", from.In(loc).Format(time.RFC3339)},
		{"To", to.In(loc).Format(time.RFC3339)},
		{"Orders", totals.OrderCount},
		{"Units Sold", totals.UnitsSold},
		{"Discounts", totals.Discounts.InexactFloat64()},
		{"Revenue", totals.Revenue.InexactFloat64()},
		{"Net Profit", totals.NetProfit.InexactFloat64()},
	}
	for i, values := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summary, cell, &values); err != nil {
			return err
		}
	}

	return f.Write(w)
}
