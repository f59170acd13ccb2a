package routes

import (
	"github.com/gin-gonic/gin"

	"remote-diagnosis-server/internal/config"
	"remote-diagnosis-server/internal/diagnosis"
	"remote-diagnosis-server/internal/handlers"
	"remote-diagnosis-server/internal/logger"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, engine *diagnosis.Engine, cfg *config.Config, log *logger.Logger) {
	diagnosisHandler := handlers.NewDiagnosisHandler(engine, cfg, log)

	api := router.Group("/api")
	{
		api.GET("/", func(c *gin.Context) {
			c.JSON(200, gin.H{"message": "Remote Diagnosis App API"})
		})
		api.POST("/diagnose", diagnosisHandler.Diagnose)
		api.GET("/history", diagnosisHandler.GetHistory)
		api.GET("/history/:id", diagnosisHandler.GetHistoryByID)
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
