package config

import (
	"fmt"     // For DSN formatting
	"os"      // For environment variables
	"strconv" // For string to number conversion
	"strings" // For list parsing

	"github.com/joho/godotenv"   // For loading .env files
	"github.com/sirupsen/logrus" // For log level parsing
)

// Default values used when the environment leaves a setting empty
const (
	DefaultAppPort    = "8080"   // Application port
	DefaultDBDriver   = "sqlite" // In-memory database
	DefaultLoginRate  = 1.0      // Login attempts per second per client IP
	DefaultLoginBurst = 5        // Login burst per client IP
)

// Config holds the application configuration
type Config struct {
	AppPort           string       // Application port
	DBDriver          string       // Database driver: sqlite, mysql or postgres
	DBUser            string       // Database user
	DBPassword        string       // Database password
	DBHost            string       // Database host
	DBPort            string       // Database port
	DBName            string       // Database name
	JWTSecret         string       // JWT secret key
	RedisAddr         string       // Redis server address, empty for in-memory storage
	RedisPass         string       // Redis password
	RedisDB           int          // Redis database number
	IsProd            bool         // Is production environment
	CORSOrigins       []string     // Allowed CORS origins
	ScanProfilePath   string       // Optional scan profile YAML
	AdminPasscodeHash string       // Optional bcrypt hash admins must match at login
	LoginRate         float64      // Login attempts per second per client IP
	LoginBurst        int          // Login burst per client IP
	LogLevel          logrus.Level // Log level
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	return &Config{
		AppPort:           getenv("APP_PORT", DefaultAppPort),                    // Application port
		DBDriver:          strings.ToLower(getenv("DB_DRIVER", DefaultDBDriver)), // Database driver
		DBUser:            os.Getenv("DB_USER"),                                  // Database user
		DBPassword:        os.Getenv("DB_PASSWORD"),                              // Database password
		DBHost:            os.Getenv("DB_HOST"),                                  // Database host
		DBPort:            os.Getenv("DB_PORT"),                                  // Database port
		DBName:            os.Getenv("DB_NAME"),                                  // Database name
		JWTSecret:         os.Getenv("JWT_SECRET"),                               // JWT secret key
		RedisAddr:         os.Getenv("REDIS_ADDR"),                               // Redis server address
		RedisPass:         os.Getenv("REDIS_PASS"),                               // Redis password
		RedisDB:           redisDB,                                               // Redis database number
		IsProd:            os.Getenv("IS_PROD") == "true",                        // Is production environment
		CORSOrigins:       splitList(os.Getenv("CORS_ORIGINS")),                  // Allowed CORS origins
		ScanProfilePath:   os.Getenv("SCAN_PROFILE_PATH"),                        // Scan profile override
		AdminPasscodeHash: os.Getenv("ADMIN_PASSCODE_HASH"),                      // Admin passcode hash
		LoginRate:         getFloat("LOGIN_RATE", DefaultLoginRate),              // Login rate
		LoginBurst:        getInt("LOGIN_BURST", DefaultLoginBurst),              // Login burst
		LogLevel:          getLevel("LOG_LEVEL", logrus.InfoLevel),               // Log level
	}
}

// DSN builds the connection string for the configured driver. An empty
// string for sqlite selects a private in-memory database.
func (c *Config) DSN() (string, error) {
	switch c.DBDriver {
	case "sqlite":
		return c.DBName, nil // File path, or empty for in-memory
	case "mysql":
		// user:pass@tcp(host:port)/name
		return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true", nil
	case "postgres":
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName), nil
	}
	return "", fmt.Errorf("unsupported database driver %q", c.DBDriver)
}

// getenv returns the variable or def when it is empty
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v // Use the configured value
	}
	return def // Fall back to the default
}

// getInt parses an integer variable, falling back to def
func getInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return def // Missing or invalid
	}
	return v
}

// getFloat parses a float variable, falling back to def
func getFloat(key string, def float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || v <= 0 {
		return def // Missing or invalid
	}
	return v
}

// getLevel parses a logrus level, falling back to def
func getLevel(key string, def logrus.Level) logrus.Level {
	lvl, err := logrus.ParseLevel(os.Getenv(key))
	if err != nil {
		return def // Missing or invalid
	}
	return lvl
}

// splitList splits a comma-separated list, dropping blanks
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part) // Keep non-empty entries
		}
	}
	return out
}
