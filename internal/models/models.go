package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices travel as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Roles understood by the authorization policy.
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// DefaultUsername names the bootstrap administrator seeded on an empty database.
const DefaultUsername = "admin"

// User - an operator of the system
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:50;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"` // Never return this in JSON
	Role         string    `gorm:"size:20;not null" json:"role"`
	Bootstrap    bool      `gorm:"not null;default:false" json:"bootstrap"`
	CreatedAt    time.Time `json:"created_at"`
}

// Supplier - who we buy stock from
type Supplier struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:120;not null" json:"name"`
	Address     string    `gorm:"size:255" json:"address"`
	PhoneNumber string    `gorm:"size:40" json:"phone_number"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Product - the inventory, keyed externally by barcode
type Product struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Barcode       string          `gorm:"uniqueIndex;size:64;not null" json:"barcode"`
	Name          string          `gorm:"size:120;not null" json:"name"`
	SupplierID    uint            `gorm:"not null;index" json:"supplier_id"`
	Supplier      *Supplier       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"supplier,omitempty"`
	Quantity      int             `gorm:"not null;default:0" json:"quantity"`
	PurchasePrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"purchase_price"`
	SellingPrice  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"selling_price"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Sale - the transaction header, aggregate root of its items
type Sale struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	Items          []SaleItem      `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE" json:"items"`
	SaleDate       time.Time       `gorm:"index;not null" json:"sale_date"`
	TotalPrice     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_price"`
	NetProfit      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"net_profit"`
	Discount       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"discount"`
	PaymentMethods string          `gorm:"size:120" json:"payment_methods"`
	Note           string          `gorm:"size:500" json:"note"`
	TotalProducts  int             `gorm:"not null" json:"total_products"`
	CreatedBy      string          `gorm:"size:50" json:"created_by"` // Who processed it
}

// SaleItem - one line of a sale. Prices are frozen line totals taken at sale
// time; later product price changes never touch them.
type SaleItem struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	SaleID        uint            `gorm:"index;not null" json:"sale_id"`
	ProductID     uint            `gorm:"index;not null" json:"product_id"`
	Product       *Product        `gorm:"constraint:OnDelete:RESTRICT" json:"product,omitempty"`
	QuantitySold  int             `gorm:"not null" json:"quantity_sold"`
	SellingPrice  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"selling_price"`
	PurchasePrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"purchase_price"`
}
