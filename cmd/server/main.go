package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/tabletally/bookkeeper-backend/internal/analytics"
	"github.com/tabletally/bookkeeper-backend/internal/auditlog"
	"github.com/tabletally/bookkeeper-backend/internal/auth"
	"github.com/tabletally/bookkeeper-backend/internal/event"
	"github.com/tabletally/bookkeeper-backend/internal/reports"
	"github.com/tabletally/bookkeeper-backend/internal/sale"
	"github.com/tabletally/bookkeeper-backend/internal/settings"
	"github.com/tabletally/bookkeeper-backend/internal/sku"
	"github.com/tabletally/bookkeeper-backend/pkg/database"
	"github.com/tabletally/bookkeeper-backend/pkg/middleware"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Initialize database
	db, err := database.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Setup Gin router
	r := gin.Default()

	// Middleware
	r.Use(middleware.CORS())

	api := r.Group("/api")
	{
		api.GET("/health/", func(c *gin.Context) {
			c.JSON(200, gin.H{"ok": true, "service": "bookkeeper-api"})
		})

		// Auth routes (public)
		authHandler := auth.NewHandler(db)
		api.POST("/register/", authHandler.Register)
		api.POST("/token/", authHandler.Token)
		api.POST("/token/refresh/", authHandler.RefreshToken)
		api.GET("/auth/google", authHandler.GoogleLogin)
		api.GET("/auth/google/callback", authHandler.GoogleCallback)

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthRequired())
		{
			protected.GET("/me/", authHandler.GetMe)

			eventHandler := event.NewHandler(db)
			protected.GET("/events/", eventHandler.List)
			protected.POST("/events/", eventHandler.Create)
			protected.GET("/events/:id/", eventHandler.Get)
			protected.PATCH("/events/:id/", eventHandler.Patch)
			protected.DELETE("/events/:id/", eventHandler.Delete)

			skuHandler := sku.NewHandler(db)
			protected.GET("/skus/", skuHandler.List)
			protected.POST("/skus/", skuHandler.Create)
			protected.GET("/skus/:id/", skuHandler.Get)
			protected.PATCH("/skus/:id/", skuHandler.Patch)
			protected.DELETE("/skus/:id/", skuHandler.Delete)

			saleHandler := sale.NewHandler(db)
			protected.GET("/sales/", saleHandler.List)
			protected.POST("/sales/", saleHandler.Create)
			protected.GET("/sales/:id/", saleHandler.Get)
			protected.PATCH("/sales/:id/", saleHandler.Patch)
			protected.DELETE("/sales/:id/", saleHandler.Delete)

			analyticsHandler := analytics.NewHandler(db)
			protected.GET("/analytics/top-bottom", analyticsHandler.TopBottom)
			protected.GET("/analytics/summary", analyticsHandler.Summary)
			protected.POST("/analytics/hypo", analyticsHandler.Hypo)

			reportsHandler := reports.NewHandler(db)
			protected.GET("/reports/sales/export", reportsHandler.ExportSales)

			settingsHandler := settings.NewHandler(db)
			protected.GET("/settings/colors/", settingsHandler.GetColors)
			protected.PUT("/settings/colors/", settingsHandler.PutColors)

			auditHandler := auditlog.NewHandler(db)
			protected.GET("/audit-logs/", auditHandler.List)
		}
	}

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	log.Printf("Server starting on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
