package main

import (
	"fmt"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gridopt/internal/api/handlers"
	"gridopt/internal/api/middleware"
)

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		port = "8080"
	}

	var logger *zap.Logger
	var err error
	if os.Getenv("API_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logger.Sync()

	router := gin.New()
	router.Use(middleware.CORS())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.ErrorHandler())

	modelHandler := handlers.NewModelHandler(logger)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	{
		api.POST("/model", modelHandler.BuildModel)
		api.POST("/validate", modelHandler.ValidateNetwork)
		api.GET("/components", handlers.ListComponents)
	}

	addr := fmt.Sprintf(":%s", port)
	logger.Info("starting API server", zap.String("addr", addr))
	if err := router.Run(addr); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
