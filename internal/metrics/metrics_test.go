package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareCountsByRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New("test")

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, id := range []string{"1", "2"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/"+id, nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	require.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/items/:id", "200")))
}

func TestBusinessCounters(t *testing.T) {
	m := New("test")
	m.RecordSale("create", 3, 0)
	m.RecordSale("delete", 0, 3)
	m.RecordLogin("success")
	m.RecordToken("ACCESS")
	m.RecordChange("product", "create")
	m.TrackDBOperation("sale_create")(time.Now())

	require.Equal(t, 1.0, testutil.ToFloat64(m.SaleOperations.WithLabelValues("create")))
	require.Equal(t, 3.0, testutil.ToFloat64(m.UnitsSold))
	require.Equal(t, 3.0, testutil.ToFloat64(m.UnitsRestored))
	require.Equal(t, 1.0, testutil.ToFloat64(m.LoginAttempts.WithLabelValues("success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.TokensIssued.WithLabelValues("ACCESS")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.CatalogChanges.WithLabelValues("product", "create")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.RecordSale("create", 1, 1)
		m.RecordLogin("error")
		m.RecordToken("REFRESH")
		m.RecordChange("user", "delete")
		m.TrackDBOperation("x")(time.Now())
	})
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New("exp")
	m.RecordLogin("success")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, strings.Contains(w.Body.String(), "exp_login_attempts_total"))
}
