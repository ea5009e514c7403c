package main

import (
	"context"                             // context package is needed for Redis operations
	"deepfake_shield/internal/api"        // Custom package for API handlers
	"deepfake_shield/internal/config"     // Custom package for configuration
	"deepfake_shield/internal/db"         // Custom package for the data store
	"deepfake_shield/internal/kv"         // Custom package for session and cache storage
	"deepfake_shield/internal/middleware" // Custom package for middleware
	"deepfake_shield/internal/scan"       // Custom package for scan workflows
	"deepfake_shield/internal/utils"      // Custom package for utilities
	"time"                                // CORS preflight cache duration

	"github.com/gin-contrib/cors"  // CORS middleware
	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
	"gorm.io/gorm/logger"          // GORM log levels
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetLevel(cfg.LogLevel)

	// Generate a throwaway JWT secret when none is configured
	if cfg.JWTSecret == "" {
		secret, err := utils.GenerateSecret()
		if err != nil {
			logrus.Fatalf("failed to generate JWT secret: %v", err)
		}
		cfg.JWTSecret = secret
		logrus.Warn("JWT_SECRET not set, tokens will not survive a restart")
	}

	// Setup Data Source Name (DSN) and open the store
	dsn, err := cfg.DSN()
	if err != nil {
		logrus.Fatalf("invalid database config: %v", err)
	}
	gormLevel := logger.Silent
	if cfg.LogLevel >= logrus.DebugLevel {
		gormLevel = logger.Info // Log every statement in debug
	}
	store := db.New(db.Options{Driver: cfg.DBDriver, DSN: dsn, LogLevel: gormLevel})
	if err := store.Open(context.Background()); err != nil {
		logrus.Fatalf("failed to open store: %v", err) // Fatal error if DB connection fails
	}
	defer store.Close()

	// Setup Redis client, or keep sessions in memory
	var storage kv.Store = kv.NewMemory()
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr, // Redis server address
			Password: cfg.RedisPass, // Redis password
			DB:       cfg.RedisDB,   // Redis database number
		})
		// Test Redis connection
		if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
			logrus.Fatalf("failed to connect to Redis: %v", err)
		}
		storage = kv.NewRedis(redisClient)
	} else {
		logrus.Info("REDIS_ADDR not set, using in-memory storage")
	}

	// Load the scan profile
	profile := scan.DefaultProfile()
	if cfg.ScanProfilePath != "" {
		profile, err = scan.LoadProfile(cfg.ScanProfilePath)
		if err != nil {
			logrus.Fatalf("failed to load scan profile: %v", err)
		}
	}
	registry := api.NewScanRegistry(store, storage, profile, scan.NewGenerator(profile, nil))

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	// Allow the browser UI to call the API
	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type"},
		ExposeHeaders: []string{"Content-Type"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.CORSOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.CORSOrigins // Configured origins only
	} else {
		corsCfg.AllowAllOrigins = true // Local development
	}
	r.Use(cors.New(corsCfg))

	api.RegisterRoutes(r, api.Deps{
		Store:             store,                                                      // Data store
		Storage:           storage,                                                    // Sessions and caches
		Registry:          registry,                                                   // Scan workflows
		Profile:           profile,                                                    // Scan profile
		JWTSecret:         cfg.JWTSecret,                                              // JWT secret key
		AdminPasscodeHash: cfg.AdminPasscodeHash,                                      // Admin passcode hash
		LoginLimiter:      middleware.NewIPRateLimiter(cfg.LoginRate, cfg.LoginBurst), // Login limiter
	})

	logrus.WithFields(logrus.Fields{
		"port":   cfg.AppPort,         // Listening port
		"driver": cfg.DBDriver,        // Database driver
		"redis":  cfg.RedisAddr != "", // Redis storage enabled
	}).Info("Server running") // Log server start
	if err := r.Run(":" + cfg.AppPort); err != nil { // Start the server on port cfg.AppPort
		logrus.Fatalf("server stopped: %v", err)
	}
}
