package handlers

import (
	"net/http"

	"go-erp-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ProductRequest is the body of product create and update.
type ProductRequest struct {
	Barcode       string           `json:"barcode" binding:"required,max=64,alphanum"`
	Name          string           `json:"name" binding:"required,max=120"`
	SupplierID    uint             `json:"supplier_id" binding:"required,gt=0"`
	Quantity      int              `json:"quantity" binding:"gte=0"`
	PurchasePrice *decimal.Decimal `json:"purchase_price" binding:"required"`
	SellingPrice  *decimal.Decimal `json:"selling_price" binding:"required"`
}

func (r ProductRequest) input() services.ProductInput {
	return services.ProductInput{
		Barcode:       r.Barcode,
		Name:          r.Name,
		SupplierID:    r.SupplierID,
		Quantity:      r.Quantity,
		PurchasePrice: *r.PurchasePrice,
		SellingPrice:  *r.SellingPrice,
	}
}

type ProductHandler struct {
	products *services.ProductService
}

func NewProductHandler(svc *services.ProductService) *ProductHandler {
	return &ProductHandler{products: svc}
}

// List - GET /api/products
func (h *ProductHandler) List(c *gin.Context) {
	products, err := h.products.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// Get - GET /api/products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	product, err := h.products.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// GetByBarcode - GET /api/products/barcode/:barcode
func (h *ProductHandler) GetByBarcode(c *gin.Context) {
	product, err := h.products.GetByBarcode(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// Create - POST /api/products
func (h *ProductHandler) Create(c *gin.Context) {
	var req ProductRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	product, err := h.products.Create(c.Request.Context(), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

// Update - PUT /api/products/:id
func (h *ProductHandler) Update(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	var req ProductRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	product, err := h.products.Update(c.Request.Context(), id, req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// Delete - DELETE /api/products/:id
func (h *ProductHandler) Delete(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.products.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}
