package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"go-erp-backend/internal/apperror"
	"go-erp-backend/internal/services"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportHandler struct {
	reports *services.ReportService
	loc     *time.Location
}

func NewReportHandler(svc *services.ReportService, loc *time.Location) *ReportHandler {
	if loc == nil {
		loc = time.Local
	}
	return &ReportHandler{reports: svc, loc: loc}
}

// window reads the optional from/to query dates. Without both, the current
// month is used.
func (h *ReportHandler) window(c *gin.Context) (time.Time, time.Time, error) {
	fromStr, toStr := c.Query("from"), c.Query("to")
	if fromStr == "" && toStr == "" {
		from, to := h.reports.DefaultWindow()
		return from, to, nil
	}
	if fromStr == "" || toStr == "" {
		return time.Time{}, time.Time{}, apperror.ErrValidation.WithDetails("from, to: both dates are required together")
	}

	from, err := time.ParseInLocation(time.DateOnly, fromStr, h.loc)
	if err != nil {
		return time.Time{}, time.Time{}, apperror.ErrValidation.WithDetails(fmt.Sprintf("from: must be YYYY-MM-DD, got %q", fromStr))
	}
	to, err := time.ParseInLocation(time.DateOnly, toStr, h.loc)
	if err != nil {
		return time.Time{}, time.Time{}, apperror.ErrValidation.WithDetails(fmt.Sprintf("to: must be YYYY-MM-DD, got %q", toStr))
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, apperror.ErrValidation.WithDetails("to: must not be before from")
	}

	start, end := h.reports.DayRange(from, to)
	return start, end, nil
}

// Summary - GET /api/reports
func (h *ReportHandler) Summary(c *gin.Context) {
	from, to, err := h.window(c)
	if err != nil {
		respondError(c, err)
		return
	}
	summary, err := h.reports.Summary(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Valuation - GET /api/reports/valuation
func (h *ReportHandler) Valuation(c *gin.Context) {
	valuation, err := h.reports.StockValuation(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, valuation)
}

// Export - GET /api/reports/sales/export
func (h *ReportHandler) Export(c *gin.Context) {
	from, to, err := h.window(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := h.reports.ExportSales(c.Request.Context(), from, to, &buf); err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("sales_%s_%s.xlsx", from.In(h.loc).Format(time.DateOnly), to.In(h.loc).Format(time.DateOnly))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
