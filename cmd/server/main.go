package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TauDuque/api-monitor/internal/alert"
	"github.com/TauDuque/api-monitor/internal/api"
	"github.com/TauDuque/api-monitor/internal/config"
	"github.com/TauDuque/api-monitor/internal/database"
	"github.com/TauDuque/api-monitor/internal/incident"
	"github.com/TauDuque/api-monitor/internal/jobs"
	"github.com/TauDuque/api-monitor/internal/probe"
	"github.com/TauDuque/api-monitor/internal/scheduler"
	"github.com/TauDuque/api-monitor/internal/store"
	"github.com/TauDuque/api-monitor/internal/uptime"
	"github.com/TauDuque/api-monitor/internal/websocket"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database connection: %v", err)
	}
	defer sqlDB.Close()

	// Run migrations
	if err := database.RunMigrations(cfg.Database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	st := store.New(db)

	// Initialize WebSocket hub
	hub := websocket.NewHub(cfg.CORSOrigins)
	go hub.Run()

	// Initialize the check pipeline
	dispatcher := alert.NewDispatcher(st, cfg.SMTP)
	detector := incident.NewDetector(st)
	prober := probe.New(cfg.ProbeTimeout)

	sched := scheduler.New(st, prober, hub, detector, dispatcher)
	if err := sched.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Initialize background jobs
	jobScheduler := jobs.NewScheduler(st, cfg.CheckRetentionDays)
	jobScheduler.Start()
	defer jobScheduler.Stop()

	// Setup API router
	calc := uptime.NewCalculator(st)
	router := api.NewRouter(cfg, st, hub, sched, calc)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on port %d", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
