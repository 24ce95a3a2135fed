package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/reservation-app/config"
	"github.com/yeremiapane/reservation-app/database"
	"github.com/yeremiapane/reservation-app/events"
	"github.com/yeremiapane/reservation-app/hub"
	"github.com/yeremiapane/reservation-app/models"
	"github.com/yeremiapane/reservation-app/router"
	"github.com/yeremiapane/reservation-app/services"
	"github.com/yeremiapane/reservation-app/utils"
)

func main() {
	cfg := config.Load()
	utils.InitLogger(cfg.LogLevel)

	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := config.Migrate(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
	if err := database.InstallCapacityGuard(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to install capacity guard: %v", err)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.RabbitMQURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			utils.ErrorLogger.Warnf("RabbitMQ unavailable, events disabled: %v", err)
		} else {
			publisher = amqpPublisher
			utils.InfoLogger.Printf("Publishing reservation events to exchange %s", cfg.RabbitMQExchange)
		}
	}
	defer publisher.Close()

	var consultant services.Consultant
	if cfg.AIServiceURL != "" {
		ai := services.NewAIConsultant(cfg.AIServiceURL, cfg.AITimeout)
		monitor := services.NewAIHealthMonitor(ai, cfg.AIHealthInterval)
		ai.WithMonitor(monitor)
		monitor.Start()
		defer monitor.Stop()
		consultant = ai
	} else if cfg.AdmissionMode == models.AdmissionModeAI {
		utils.ErrorLogger.Warn("ADMISSION_MODE is ai but AI_SERVICE_URL is empty; AI bookings will be refused")
	}

	realtime := hub.New()
	defer realtime.Close()

	store := services.NewReservationStore(db)
	notifier := services.NewRealtimeNotifier(store, realtime, publisher)
	engine := services.NewAdmissionEngine(store, consultant, notifier, services.AdmissionConfig{
		DefaultMode:       cfg.AdmissionMode,
		ReservationLength: cfg.ReservationLength,
		Location:          cfg.Location(),
	})

	r := router.SetupRouter(router.Dependencies{
		Config:   cfg,
		DB:       db,
		JWT:      utils.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL),
		Hub:      realtime,
		Store:    store,
		Engine:   engine,
		Notifier: notifier,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	utils.InfoLogger.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.ErrorLogger.Errorf("Server forced to shutdown: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	utils.InfoLogger.Println("Server exiting")
}
