package handlers

import (
	"net/http"

	"go-erp-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type SupplierRequest struct {
	Name        string `json:"name" binding:"required,max=120"`
	Address     string `json:"address" binding:"max=255"`
	PhoneNumber string `json:"phone_number" binding:"max=40"`
}

func (r SupplierRequest) input() services.SupplierInput {
	return services.SupplierInput{Name: r.Name, Address: r.Address, PhoneNumber: r.PhoneNumber}
}

type SupplierHandler struct {
	suppliers *services.SupplierService
}

func NewSupplierHandler(svc *services.SupplierService) *SupplierHandler {
	return &SupplierHandler{suppliers: svc}
}

func (h *SupplierHandler) List(c *gin.Context) {
	suppliers, err := h.suppliers.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, suppliers)
}

func (h *SupplierHandler) Get(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	supplier, err := h.suppliers.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, supplier)
}

func (h *SupplierHandler) Create(c *gin.Context) {
	var req SupplierRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	supplier, err := h.suppliers.Create(c.Request.Context(), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, supplier)
}

func (h *SupplierHandler) Update(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	var req SupplierRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	supplier, err := h.suppliers.Update(c.Request.Context(), id, req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, supplier)
}

func (h *SupplierHandler) Delete(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.suppliers.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Supplier deleted successfully"})
}
