// Package router wires the HTTP surface: middleware chain, health and metrics
// endpoints, and the /api routes.
package router

import (
	"net/http"
	"time"

	"go-erp-backend/internal/auth"
	"go-erp-backend/internal/config"
	"go-erp-backend/internal/handlers"
	"go-erp-backend/internal/logger"
	"go-erp-backend/internal/metrics"
	"go-erp-backend/internal/middleware"
	"go-erp-backend/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps is everything the router needs to build its handlers.
type Deps struct {
	Config    *config.Config
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	DB        *gorm.DB
	Auth      *auth.Service
	Users     *services.UserService
	Suppliers *services.SupplierService
	Products  *services.ProductService
	Sales     *services.SaleService
	Reports   *services.ReportService
	Assistant handlers.Asker
	Policy    *middleware.Policy
}

// New builds the gin engine. Middleware order: request id, request logging,
// metrics, CORS, then authorization.
func New(d Deps) *gin.Engine {
	if d.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	policy := d.Policy
	if policy == nil {
		policy = middleware.DefaultPolicy()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(logger.Middleware(d.Logger))
	r.Use(d.Metrics.Middleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     d.Config.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.Authorize(policy, d.Auth.Authority(), d.Users))

	r.GET("/health", health(d.DB))
	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	authH := handlers.NewAuthHandler(d.Auth)
	userH := handlers.NewUserHandler(d.Users)
	supplierH := handlers.NewSupplierHandler(d.Suppliers)
	productH := handlers.NewProductHandler(d.Products)
	saleH := handlers.NewSaleHandler(d.Sales)
	reportH := handlers.NewReportHandler(d.Reports, d.Config.Server.Location)
	assistantH := handlers.NewAssistantHandler(d.Assistant)

	api := r.Group("/api")
	{
		authGroup := api.Group("/auth")
		authGroup.POST("/login", authH.Login)
		authGroup.POST("/refresh-token", authH.RefreshToken)

		users := api.Group("/users")
		users.GET("/defaultUser", userH.DefaultUser)
		users.POST("/register", userH.Register)
		users.DELETE("/:id", userH.Delete)

		suppliers := api.Group("/suppliers")
		suppliers.GET("", supplierH.List)
		suppliers.GET("/:id", supplierH.Get)
		suppliers.POST("", supplierH.Create)
		suppliers.PUT("/:id", supplierH.Update)
		suppliers.DELETE("/:id", supplierH.Delete)

		products := api.Group("/products")
		products.GET("", productH.List)
		products.GET("/:id", productH.Get)
		products.GET("/barcode/:barcode", productH.GetByBarcode)
		products.POST("", productH.Create)
		products.PUT("/:id", productH.Update)
		products.DELETE("/:id", productH.Delete)

		sales := api.Group("/sales")
		sales.GET("", saleH.List)
		sales.GET("/orderByDesc", saleH.ListByDateDesc)
		sales.GET("/latest", saleH.Latest)
		sales.GET("/today", saleH.Today)
		sales.GET("/current-month", saleH.CurrentMonth)
		sales.GET("/date/:date", saleH.ByDate)
		sales.GET("/:id", saleH.Get)
		sales.POST("", saleH.Create)
		sales.PUT("/:id", saleH.Update)
		sales.DELETE("/:id", saleH.Delete)

		reports := api.Group("/reports")
		reports.GET("", reportH.Summary)
		reports.GET("/valuation", reportH.Valuation)
		reports.GET("/sales/export", reportH.Export)

		api.POST("/assistant/ask", assistantH.Ask)
	}

	return r
}

func health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, code := "online", http.StatusOK
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "time": time.Now().UTC()})
	}
}
