package routes

import (
	"time"

	"librahub/internal/adapters/http/handlers"
	"librahub/internal/adapters/http/middleware"
	"librahub/internal/adapters/persistence/repositories"
	"librahub/internal/config"
	"librahub/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"gorm.io/gorm"
)

// Setup configures all routes for the application
func Setup(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(db)
	categoryRepo := repositories.NewCategoryRepository(db)
	bookRepo := repositories.NewBookRepository(db)
	loanRepo := repositories.NewLoanRepository(db)

	// Initialize services
	policy := services.NewAccessPolicy()
	authService := services.NewAuthService(userRepo, refreshTokenRepo, cfg)
	userService := services.NewUserService(userRepo, policy)
	categoryService := services.NewCategoryService(categoryRepo, policy)
	bookService := services.NewBookService(bookRepo, categoryRepo, loanRepo, policy)
	loanService := services.NewLoanService(loanRepo, bookRepo, policy, cfg.Loan.PeriodDays)
	dashboardService := services.NewDashboardService(db)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(authService, cfg)
	userHandler := handlers.NewUserHandler(userService)
	categoryHandler := handlers.NewCategoryHandler(categoryService)
	bookHandler := handlers.NewBookHandler(bookService)
	loanHandler := handlers.NewLoanHandler(loanService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API v1 group
	apiV1 := app.Group("/api/v1")

	// Auth routes (public, stricter rate limit)
	authRoutes := apiV1.Group("/auth")
	setupAuthRoutes(authRoutes, authHandler, cfg)

	// Catalog routes (public reads, admin writes)
	categoryRoutes := apiV1.Group("/categories")
	setupCategoryRoutes(categoryRoutes, categoryHandler, cfg)

	bookRoutes := apiV1.Group("/books")
	setupBookRoutes(bookRoutes, bookHandler, loanHandler, cfg)

	// Loan lifecycle routes (authenticated)
	loanRoutes := apiV1.Group("/bookloans")
	loanRoutes.Use(middleware.AuthMiddleware(cfg), middleware.NoCacheHeaders())
	setupLoanRoutes(loanRoutes, loanHandler)

	// User routes (authenticated; management is admin only)
	userRoutes := apiV1.Group("/users")
	userRoutes.Use(middleware.AuthMiddleware(cfg), middleware.NoCacheHeaders())
	setupUserRoutes(userRoutes, userHandler, loanHandler)

	// Admin dashboard
	adminRoutes := apiV1.Group("/admin")
	adminRoutes.Use(middleware.AuthMiddleware(cfg), middleware.AdminOnly(), middleware.NoCacheHeaders())
	adminRoutes.Get("/dashboard", dashboardHandler.Admin)
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, cfg *config.Config) {
	// Public routes
	router.Post("/register", middleware.AuthRateLimiter(), handler.Register)
	router.Post("/login", middleware.AuthRateLimiter(), handler.Login)
	router.Post("/refresh", handler.RefreshToken)
	router.Post("/logout", handler.Logout)

	// Protected routes
	router.Post("/logout-all", middleware.AuthMiddleware(cfg), handler.LogoutAll)
}

// setupCategoryRoutes configures category routes
func setupCategoryRoutes(router fiber.Router, handler *handlers.CategoryHandler, cfg *config.Config) {
	// Public reads, categories change rarely
	router.Get("/", middleware.CacheControl(time.Hour), handler.List)
	router.Get("/:id", middleware.CacheControl(time.Hour), handler.GetByID)

	// Admin writes
	router.Post("/", middleware.AuthMiddleware(cfg), middleware.AdminOnly(), handler.Create)
	router.Put("/:id", middleware.AuthMiddleware(cfg), middleware.AdminOnly(), handler.Update)
	router.Delete("/:id", middleware.AuthMiddleware(cfg), middleware.AdminOnly(), handler.Delete)
}

// setupBookRoutes configures book catalog routes
func setupBookRoutes(router fiber.Router, handler *handlers.BookHandler, loanHandler *handlers.LoanHandler, cfg *config.Config) {
	// Public reads; short TTL because availability counters move with every
	// approval and return
	router.Get("/", middleware.CacheControl(30*time.Second), handler.List)
	router.Get("/:id", middleware.CacheControl(30*time.Second), handler.GetByID)

	// Admin writes
	router.Post("/", middleware.AuthMiddleware(cfg), middleware.AdminOnly(), handler.Create)
	router.Put("/:id", middleware.AuthMiddleware(cfg), middleware.AdminOnly(), handler.Update)
	router.Delete("/:id", middleware.AuthMiddleware(cfg), middleware.AdminOnly(), handler.Delete)

	// Loan history of a book (admin only, enforced by the service policy)
	router.Get("/:id/loans", middleware.AuthMiddleware(cfg), loanHandler.ListByBook)
}

// setupLoanRoutes configures loan lifecycle routes
func setupLoanRoutes(router fiber.Router, handler *handlers.LoanHandler) {
	router.Post("/", handler.Request)
	router.Get("/", handler.List)
	router.Get("/:id", handler.GetByID)

	// Lifecycle transitions; role checks run in the service policy so the
	// owner-or-admin rule on return stays in one place
	router.Patch("/:id/approve", handler.Approve)
	router.Patch("/:id/reject", handler.Reject)
	router.Patch("/:id/return", handler.Return)
}

// setupUserRoutes configures user account routes
func setupUserRoutes(router fiber.Router, handler *handlers.UserHandler, loanHandler *handlers.LoanHandler) {
	router.Get("/me", handler.Me)
	router.Get("/loans", loanHandler.MyLoans)

	// Admin user management
	router.Get("/", middleware.AdminOnly(), handler.List)
	router.Patch("/:id/role", middleware.AdminOnly(), handler.UpdateRole)
	router.Patch("/:id/active", middleware.AdminOnly(), handler.SetActive)
	router.Get("/:id/loans", loanHandler.ListByUser)
}
