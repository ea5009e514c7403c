package main

import (
	"context"                         // Context for store operations
	"deepfake_shield/internal/config" // Custom import path (Config)
	"deepfake_shield/internal/db"     // Custom import path (Database)

	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// Main entry point for migration: recreates the schema and reseeds the demo data
func main() {
	cfg := config.LoadConfig() // Load configuration
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetLevel(cfg.LogLevel)

	// Database Source Name (DSN) for the configured driver
	dsn, err := cfg.DSN()
	if err != nil {
		logrus.Fatalf("invalid database config: %v", err)
	}
	store := db.New(db.Options{Driver: cfg.DBDriver, DSN: dsn})
	if err := store.Open(context.Background()); err != nil {
		logrus.Fatalf("migration failed: %v", err)
	}
	defer store.Close()

	counts, err := store.ScanCounts(context.Background()) // Confirm the seed landed
	if err != nil {
		logrus.Fatalf("failed to read seeded data: %v", err)
	}
	logrus.WithFields(logrus.Fields{
		"driver":    cfg.DBDriver, // Database driver
		"scan_logs": counts.Total, // Seeded scans
	}).Info("Database migrated and seeded")
}
