package main

import (
	"fmt"
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"remote-diagnosis-server/internal/config"
	"remote-diagnosis-server/internal/diagnosis"
	"remote-diagnosis-server/internal/llm"
	applogger "remote-diagnosis-server/internal/logger"
	"remote-diagnosis-server/internal/middleware"
	"remote-diagnosis-server/internal/models"
	"remote-diagnosis-server/internal/routes"
	"remote-diagnosis-server/internal/store"
)

func main() {
	// Load environment variables; a missing .env is fine when the
	// deployment sets the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	// Initialize configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	logg, err := applogger.New(cfg.Environment)
	if err != nil {
		log.Fatalf("Error building logger: %v", err)
	}
	defer logg.Sync()

	// Initialize database connection
	db, err := models.InitDB(models.DatabaseConfig{DSN: cfg.Database.DSN})
	if err != nil {
		logg.Fatal("Error connecting to database", "error", err.Error())
	}

	// Pick the generation provider and wrap it with the retry policy.
	var provider llm.Client
	switch cfg.Generation.Provider {
	case "openai":
		provider = llm.NewOpenAIClient(cfg.Generation, logg)
	default:
		provider = llm.NewGeminiClient(cfg.Generation, logg)
	}
	client := llm.NewRetryClient(provider, cfg.Generation, logg)

	historyStore := store.NewGormHistoryStore(db)
	engine := diagnosis.NewEngine(client, historyStore, cfg, logg)

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logg))

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	if cfg.Origin == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = []string{cfg.Origin}
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	router.Use(cors.New(corsConfig))

	// Set up routes
	routes.SetupRoutes(router, engine, cfg, logg)

	// Start server
	serverAddr := fmt.Sprintf(":%s", cfg.Port)
	logg.Info("server listening", "port", cfg.Port, "provider", cfg.Generation.Provider, "model", cfg.Generation.Model)
	if err := router.Run(serverAddr); err != nil {
		logg.Fatal("Failed to start server", "error", err.Error())
	}
}
