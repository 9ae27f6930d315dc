package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/12008yz/chibox-reveal/internal/config"
	"github.com/12008yz/chibox-reveal/internal/handlers"
	"github.com/12008yz/chibox-reveal/internal/logger"
	"github.com/12008yz/chibox-reveal/internal/middleware"
	"github.com/12008yz/chibox-reveal/internal/platform"
	"github.com/12008yz/chibox-reveal/internal/reveal"
	"github.com/12008yz/chibox-reveal/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLog := logger.Init(cfg.Env)
	defer zapLog.Sync()

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		zapLog.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisService.Close()

	jwtService := services.NewJWTService(cfg)

	platformClient := platform.NewClient(platform.ClientConfig{
		BaseURL: cfg.PlatformBaseURL,
		APIKey:  cfg.PlatformAPIKey,
	})

	wsHandler := handlers.NewWebSocketHandler()

	orchestrator := services.NewOrchestrator(
		platformClient,
		redisService,
		wsHandler,
		wsHandler,
		cfg.RevealTiming,
		reveal.SystemClock(),
		cfg.DailyCaseID,
		zapLog,
	)
	wsHandler.SetOrchestrator(orchestrator)

	userHandler := handlers.NewUserHandler(redisService)
	caseHandler := handlers.NewCaseHandler(orchestrator, redisService)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwtService))
	{
		protected.GET("/me", userHandler.GetCurrentUser)
		protected.POST("/logout", userHandler.Logout)

		protected.GET("/ws", wsHandler.HandleWebSocket)

		cases := protected.Group("/cases")
		{
			cases.GET("/:id/items", caseHandler.GetCaseItems)
			cases.GET("/:id/status", caseHandler.GetCaseStatus)
			cases.POST("/:id/purchase", caseHandler.PurchaseCase)
			cases.POST("/open", caseHandler.OpenCase)
			cases.POST("/close", caseHandler.ClosePreview)
		}

		reveals := protected.Group("/reveals")
		{
			reveals.GET("/active", caseHandler.GetActiveReveal)
			reveals.GET("/history", caseHandler.GetRevealHistory)
		}
	}

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	zapLog.Info("server starting", zap.String("port", port))
	if err := router.Run(":" + port); err != nil {
		zapLog.Fatal("failed to start server", zap.Error(err))
	}
}
