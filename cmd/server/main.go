package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ahwlsqja/dogcatpaw-chat/internal/config"
	"github.com/ahwlsqja/dogcatpaw-chat/internal/database"
	"github.com/ahwlsqja/dogcatpaw-chat/internal/handlers"
	"github.com/ahwlsqja/dogcatpaw-chat/internal/middleware"
	"github.com/ahwlsqja/dogcatpaw-chat/internal/models"
	"github.com/ahwlsqja/dogcatpaw-chat/internal/routes"
	"github.com/ahwlsqja/dogcatpaw-chat/internal/services"
	"github.com/ahwlsqja/dogcatpaw-chat/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	// 0. Load Config & Initialize Logger
	config.LoadConfig()

	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}
	logger.Init(env)

	logger.Info().Str("environment", env).Msg("Starting dogcatpaw chat backend...")

	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 1. Connect Database & Redis
	database.Connect()
	database.InitRedis()

	// --- Database Migration Stage ---
	logger.Info().Msg("Running database migrations (stage 1: tables)...")

	database.DB.Config.DisableForeignKeyConstraintWhenMigrating = true

	tableModels := []interface{}{
		&models.Member{},
		&models.Listing{},
		&models.Room{},
		&models.Participant{},
		&models.Message{},
		&models.ReadStatus{},
	}

	for _, m := range tableModels {
		if err := database.DB.AutoMigrate(m); err != nil {
			logger.Fatal().Err(err).Msgf("Failed to migrate table for %T", m)
		}
	}

	logger.Info().Msg("Running database migrations (stage 2: constraints)...")
	database.DB.Config.DisableForeignKeyConstraintWhenMigrating = false
	if err := database.DB.AutoMigrate(tableModels...); err != nil {
		logger.Fatal().Err(err).Msg("Failed to add database constraints")
	}
	logger.Info().Msg("Database migrations complete")

	// 2. Fan-out bridge: one broker subscription per instance
	bridge, err := services.NewBridge()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create fan-out bridge")
	}
	defer bridge.Close()
	handlers.MessageBridge = bridge

	// 3. Setup Router
	r := gin.Default()

	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.ErrorHandlerMiddleware())
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware())

	// Exempt /socket.io from rate limiting
	r.Use(func(c *gin.Context) {
		if len(c.Request.URL.Path) >= 10 && c.Request.URL.Path[:10] == "/socket.io" {
			c.Next()
			return
		}
		middleware.GeneralRateLimit()(c)
	})

	// 4. Register Routes
	api := r.Group("/api")
	{
		routes.RegisterChatRoutes(api)
		routes.RegisterMemberRoutes(api)
	}

	// Health check with DB, redis and broker status
	r.GET("/health", func(c *gin.Context) {
		dbStatus := "ok"
		redisStatus := "ok"
		brokerStatus := "ok"

		sqlDB, err := database.DB.DB()
		if err != nil || sqlDB.Ping() != nil {
			dbStatus = "error"
		}

		if database.Redis != nil {
			if _, err := database.Redis.Ping(context.Background()).Result(); err != nil {
				redisStatus = "error"
			}
		} else {
			redisStatus = "not configured"
		}

		if err := bridge.Ping(c.Request.Context()); err != nil {
			brokerStatus = "error"
		}

		status := "ok"
		if dbStatus != "ok" || brokerStatus != "ok" || (redisStatus != "ok" && redisStatus != "not configured") {
			status = "degraded"
		}

		c.JSON(200, gin.H{
			"status": status,
			"broker": config.AppConfig.Broker,
			"checks": gin.H{
				"database": dbStatus,
				"redis":    redisStatus,
				"broker":   brokerStatus,
			},
		})
	})

	// 5. Init Socket.io and the bridge relay
	socketServer := handlers.InitSocketServer()
	defer socketServer.Close()

	if err := handlers.StartBridgeRelay(context.Background(), bridge); err != nil {
		logger.Fatal().Err(err).Msg("Failed to subscribe to the broadcast topic")
	}

	r.GET("/socket.io/*any", handlers.SocketHandler(socketServer))
	r.POST("/socket.io/*any", handlers.SocketHandler(socketServer))

	// 6. Start Server with graceful shutdown
	port := config.AppConfig.Port
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", port).Str("env", env).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited")
}
