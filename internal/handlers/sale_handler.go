package handlers

import (
	"fmt"
	"net/http"
	"time"

	"go-erp-backend/internal/apperror"
	"go-erp-backend/internal/models"
	"go-erp-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type SaleItemRequest struct {
	Barcode      string `json:"barcode" binding:"required,max=64"`
	QuantitySold int    `json:"quantity_sold" binding:"required,gt=0"`
}

// SaleRequest defines what the frontend sends for create and update
type SaleRequest struct {
	Items          []SaleItemRequest `json:"items" binding:"required,min=1,dive"`
	Discount       *decimal.Decimal  `json:"discount"`
	PaymentMethods string            `json:"payment_methods" binding:"max=120"`
	Note           string            `json:"note" binding:"max=500"`
}

func (r SaleRequest) input() services.SaleInput {
	in := services.SaleInput{
		Items: lo.Map(r.Items, func(it SaleItemRequest, _ int) services.SaleItemInput {
			return services.SaleItemInput{Barcode: it.Barcode, QuantitySold: it.QuantitySold}
		}),
		Discount:       decimal.Zero,
		PaymentMethods: r.PaymentMethods,
		Note:           r.Note,
	}
	if r.Discount != nil {
		in.Discount = *r.Discount
	}
	return in
}

type SaleHandler struct {
	sales *services.SaleService
}

func NewSaleHandler(svc *services.SaleService) *SaleHandler {
	return &SaleHandler{sales: svc}
}

func (h *SaleHandler) list(c *gin.Context, fetch func() ([]models.Sale, error)) {
	sales, err := fetch()
	if err != nil {
		respondError(c, err)
		return
	}
	if sales == nil {
		sales = []models.Sale{}
	}
	c.JSON(http.StatusOK, sales)
}

// List - GET /api/sales
func (h *SaleHandler) List(c *gin.Context) {
	h.list(c, func() ([]models.Sale, error) { return h.sales.List(c.Request.Context()) })
}

// ListByDateDesc - GET /api/sales/orderByDesc
func (h *SaleHandler) ListByDateDesc(c *gin.Context) {
	h.list(c, func() ([]models.Sale, error) { return h.sales.ListByDateDesc(c.Request.Context()) })
}

// Latest - GET /api/sales/latest
func (h *SaleHandler) Latest(c *gin.Context) {
	h.list(c, func() ([]models.Sale, error) { return h.sales.Latest(c.Request.Context()) })
}

// Today - GET /api/sales/today
func (h *SaleHandler) Today(c *gin.Context) {
	h.list(c, func() ([]models.Sale, error) { return h.sales.ListToday(c.Request.Context()) })
}

// CurrentMonth - GET /api/sales/current-month
func (h *SaleHandler) CurrentMonth(c *gin.Context) {
	h.list(c, func() ([]models.Sale, error) { return h.sales.ListCurrentMonth(c.Request.Context()) })
}

// ByDate - GET /api/sales/date/:date (YYYY-MM-DD)
func (h *SaleHandler) ByDate(c *gin.Context) {
	day, err := time.ParseInLocation(time.DateOnly, c.Param("date"), h.sales.Location())
	if err != nil {
		respondError(c, apperror.ErrValidation.WithDetails(fmt.Sprintf("date: must be YYYY-MM-DD, got %q", c.Param("date"))))
		return
	}
	h.list(c, func() ([]models.Sale, error) { return h.sales.ListByDay(c.Request.Context(), day) })
}

// Get - GET /api/sales/:id
func (h *SaleHandler) Get(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	sale, err := h.sales.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

// Create - POST /api/sales
func (h *SaleHandler) Create(c *gin.Context) {
	actor, err := principal(c)
	if err != nil {
		respondError(c, err)
		return
	}
	var req SaleRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	sale, err := h.sales.Create(c.Request.Context(), actor, req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sale)
}

// Update - PUT /api/sales/:id
func (h *SaleHandler) Update(c *gin.Context) {
	actor, err := principal(c)
	if err != nil {
		respondError(c, err)
		return
	}
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	var req SaleRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	sale, err := h.sales.Update(c.Request.Context(), actor, id, req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

// Delete - DELETE /api/sales/:id
func (h *SaleHandler) Delete(c *gin.Context) {
	actor, err := principal(c)
	if err != nil {
		respondError(c, err)
		return
	}
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.sales.Delete(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Sale deleted successfully"})
}
