package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/taskflow/taskflow-api/internal/config"
	"github.com/taskflow/taskflow-api/internal/constants"
	"github.com/taskflow/taskflow-api/internal/database"
	"github.com/taskflow/taskflow-api/internal/handlers"
	"github.com/taskflow/taskflow-api/internal/middleware"
	"github.com/taskflow/taskflow-api/internal/repository"
	"github.com/taskflow/taskflow-api/internal/scheduler"
	"github.com/taskflow/taskflow-api/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize Gin router
	r := gin.Default()

	// Setup session middleware with Redis
	redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
	store, err := redisStore.NewStore(
		10,        // Redis pool size
		"tcp",     // network type
		redisAddr, // Redis address from config
		"",        // password (empty = no password)
		[]byte(cfg.SessionSecret), // authentication key
	)
	if err != nil {
		log.Fatalf("Failed to create Redis store: %v", err)
	}
	// Configure session options based on environment
	isProduction := cfg.GinMode == "release"
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: 2, // SameSite=Lax (1=Strict, 2=Lax, 3=None)
	})
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	// Initialize repositories
	db := database.GetDB()
	userRepo := repository.NewUserRepository(db)
	workflowRepo := repository.NewWorkflowRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Initialize services
	authService := services.NewAuthService(userRepo)
	notificationService := services.NewNotificationService(notificationRepo)
	automationService := services.NewAutomationService(taskRepo, notificationRepo, notificationService, logger)
	workflowService := services.NewWorkflowService(workflowRepo, taskRepo)
	taskService := services.NewTaskService(taskRepo, workflowRepo, userRepo, automationService, logger)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	workflowHandler := handlers.NewWorkflowHandler(workflowService)
	taskHandler := handlers.NewTaskHandler(taskService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	// Start the background sweeps
	sched, err := scheduler.New(cfg, automationService, notificationService, logger)
	if err != nil {
		log.Fatalf("Failed to initialize scheduler: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "TaskFlow API is running",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", middleware.RequireAuth(), authHandler.GetCurrentUser)
		}

		// Workflow routes (protected)
		workflows := api.Group("/workflows")
		workflows.Use(middleware.RequireAuth())
		{
			workflows.GET("", workflowHandler.List)
			workflows.POST("", middleware.RequireManager(), workflowHandler.Create)
			workflows.GET("/:id", workflowHandler.Get)
			workflows.PUT("/:id", middleware.RequireManager(), workflowHandler.Update)
			workflows.DELETE("/:id", middleware.RequireManager(), workflowHandler.Delete)
			workflows.POST("/:id/validate-transition", workflowHandler.ValidateTransition)
		}

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(middleware.RequireAuth())
		{
			tasks.GET("", taskHandler.List)
			tasks.POST("", middleware.RequireManager(), taskHandler.Create)
			tasks.GET("/:id", taskHandler.Get)
			tasks.PATCH("/:id", middleware.RequireManager(), taskHandler.Update)
			tasks.DELETE("/:id", taskHandler.Delete)
			tasks.PATCH("/:id/stage", middleware.RequireManager(), taskHandler.ChangeStage)
			tasks.POST("/:id/assign", middleware.RequireManager(), taskHandler.Assign)
			tasks.DELETE("/:id/assign/:userId", middleware.RequireManager(), taskHandler.Unassign)
		}

		// Notification routes (protected)
		notifications := api.Group("/notifications")
		notifications.Use(middleware.RequireAuth())
		{
			notifications.GET("", notificationHandler.List)
			notifications.GET("/unread-count", notificationHandler.UnreadCount)
			notifications.PATCH("/:id/read", notificationHandler.MarkRead)
			notifications.POST("/read-all", notificationHandler.MarkAllRead)
			notifications.DELETE("/:id", notificationHandler.Delete)
		}
	}

	// Start server
	log.Println("Server starting on :8080")
	if err := r.Run(":8080"); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
