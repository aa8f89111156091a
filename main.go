package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"clinic-booking-server/internal/config"
	"clinic-booking-server/internal/logging"
	"clinic-booking-server/internal/models"
	"clinic-booking-server/internal/routes"
	"clinic-booking-server/internal/scheduling"
	"clinic-booking-server/internal/triage"
)

func main() {
	// Load environment variables; a missing .env is fine in containers
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	// Initialize configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	if _, err := logging.Init(cfg.Environment); err != nil {
		log.Fatalf("Error initializing logger: %v", err)
	}
	defer logging.L.Sync()

	// Initialize database connection
	db, err := models.InitDB(models.DatabaseConfig{DSN: cfg.Database.DSN})
	if err != nil {
		logging.L.Fatal("database connection failed", zap.Error(err))
	}

	// Triage advisory service; bookings degrade gracefully without it
	triageClient := triage.NewClient(cfg.Triage)
	if cfg.Triage.WaitOnStartup {
		waitCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		if err := triageClient.WaitReady(waitCtx, 30); err != nil {
			logging.L.Warn("triage service not ready, continuing without specialty hints", zap.Error(err))
		}
		cancel()
	}

	scheduler := scheduling.NewScheduler(
		scheduling.NewGormAppointmentRepository(db),
		scheduling.NewGormDoctorRepository(db),
		triageClient,
		nil,
	)

	// Initialize Gin router
	router := gin.Default()

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	routes.SetupRoutes(router, db, cfg, scheduler)

	serverAddr := fmt.Sprintf(":%s", cfg.Port)
	logging.L.Info("server starting", zap.String("addr", serverAddr))
	if err := router.Run(serverAddr); err != nil {
		logging.L.Fatal("server failed", zap.Error(err))
	}
}
