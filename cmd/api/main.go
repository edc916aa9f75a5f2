package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sventech/prodline/internal/blobstore"
	"github.com/sventech/prodline/internal/config"
	"github.com/sventech/prodline/internal/database"
	"github.com/sventech/prodline/internal/handlers"
	"github.com/sventech/prodline/internal/models"
	"github.com/sventech/prodline/internal/services/artifact"
	"github.com/sventech/prodline/internal/services/orderlink"
	"github.com/sventech/prodline/internal/services/production"
	"github.com/sventech/prodline/internal/services/provisioning"
	"github.com/sventech/prodline/internal/store"
	"github.com/sventech/prodline/internal/websocket"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Initialize database (detects Embedded vs External automatically)
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	// Note: db.Close() is called manually in the shutdown handler below

	// 3. Auto-migrate schema
	log.Println("🚀 Synchronizing database schema...")
	err = db.AutoMigrate(
		&models.UserAuth{},
		&models.Product{},
		&models.ProductVariant{},
		&models.ProductionStep{},
		&models.Unit{},
		&models.StepCompletion{},
		&models.FirmwareInstallRecord{},
	)
	if err != nil {
		log.Printf("⚠️ Migration warning: %v\n", err)
	} else {
		log.Println("✅ Schema synchronized successfully")
	}

	// 4. Blob store for identity artifacts
	blobs, err := blobstore.New(context.Background(), cfg.Blob)
	if err != nil {
		log.Fatalf("Failed to initialize blob store: %v", err)
	}
	log.Printf("🗄️  Blob store ready [driver: %s]", cfg.Blob.Driver)

	// 5. Services
	recordStore := store.New(db)
	artifacts := artifact.NewGenerator(cfg.Artifact.Domain, cfg.Artifact.Mark)

	var orders provisioning.OrderLinker
	if cfg.Odoo.Enabled {
		orders = orderlink.NewService(cfg.Odoo)
		log.Printf("🔗 Order linking enabled against %s", cfg.Odoo.URL)
	}

	provisioningSvc := provisioning.NewService(
		recordStore, blobs, artifacts, orders,
		cfg.Serial.Prefix, cfg.Serial.MaxAttempts,
	)
	productionSvc := production.NewService(recordStore)

	// 6. Websocket hub for line stations and dashboards
	hub := websocket.NewHub()
	go hub.Run()

	// 7. HTTP router
	router := handlers.NewRouter(db, cfg, hub, provisioningSvc, productionSvc, artifacts)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Channel to listen for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// Start server in goroutine
	go func() {
		log.Printf("🚀 prodline server starting on port %s [serial prefix: %s]\n", cfg.Port, cfg.Serial.Prefix)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	sig := <-shutdown
	log.Printf("\n⚠️  Received signal: %v. Shutting down gracefully...\n", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	// Close database (this also stops embedded PostgreSQL)
	log.Println("🛑 Closing database connection...")
	if err := db.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}
