package main

import (
	"fmt"
	"net/http"
	"os"

	"kharcha/internal/config"
	"kharcha/internal/database"
	"kharcha/internal/handlers"
	"kharcha/internal/logger"
	"kharcha/internal/middleware"
	"kharcha/internal/services"
	"kharcha/internal/smsparser"
	"kharcha/internal/validator"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "kharcha/internal/docs" // Import swagger docs
)

// @title           Kharcha API
// @version         1.0
// @description     Kharcha is a personal expense tracker that records manual entries and imports transactions automatically from bank SMS notifications.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Register custom request validators
	validator.Register()

	// Initialize database configuration
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Initialize services
	db := dbManager.DB()
	userService := services.NewUserService(db)
	categoryService := services.NewCategoryService(db)
	expenseService := services.NewExpenseService(db, categoryService)
	keywordService := services.NewKeywordService(db)
	auditService := services.NewAuditService(db)
	ingestionService := services.NewSMSIngestionService(db, smsparser.NewDefaultExtractor(), keywordService, categoryService)
	analyticsService := services.NewAnalyticsService(db)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, categoryService, keywordService, auditService)
	categoryHandler := handlers.NewCategoryHandler(categoryService, auditService)
	expenseHandler := handlers.NewExpenseHandler(expenseService, auditService)
	keywordHandler := handlers.NewKeywordHandler(keywordService, auditService)
	smsHandler := handlers.NewSMSHandler(ingestionService, auditService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	// User profile
	protected.GET("/profile", authHandler.GetProfile)

	// Expense routes
	expenses := protected.Group("/expenses")
	expenses.POST("", expenseHandler.CreateExpense)
	expenses.GET("", expenseHandler.GetUserExpenses)
	expenses.GET("/:id", expenseHandler.GetExpenseByID)
	expenses.PUT("/:id", expenseHandler.UpdateExpense)
	expenses.DELETE("/:id", expenseHandler.DeleteExpense)

	// Category routes
	categories := protected.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.GetUserCategories)
	categories.GET("/:id", categoryHandler.GetCategoryByID)
	categories.PUT("/:id", categoryHandler.UpdateCategory)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)

	// Keyword rule routes
	keywords := protected.Group("/keywords")
	keywords.POST("", keywordHandler.CreateKeyword)
	keywords.GET("", keywordHandler.GetUserKeywords)
	keywords.PUT("/:id", keywordHandler.UpdateKeyword)
	keywords.DELETE("/:id", keywordHandler.DeleteKeyword)
	keywords.POST("/:id/recategorize", keywordHandler.RecategorizeByKeyword)

	// SMS ingestion
	sms := protected.Group("/sms")
	sms.POST("/refresh", smsHandler.Refresh)

	// Analytics routes
	analytics := protected.Group("/analytics")
	analytics.GET("/summary", analyticsHandler.GetSummary)
	analytics.GET("/categories", analyticsHandler.GetCategoryBreakdown)
	analytics.GET("/monthly", analyticsHandler.GetMonthlyTrend)

	log.Infof("Starting Kharcha backend server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
