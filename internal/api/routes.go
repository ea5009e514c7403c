package api

import (
	"net/http" // HTTP status codes

	"deepfake_shield/internal/db"         // Data store
	"deepfake_shield/internal/kv"         // Sessions and caches
	"deepfake_shield/internal/middleware" // Auth and rate limiting
	"deepfake_shield/internal/scan"       // Scan workflows

	"github.com/gin-gonic/gin" // Gin web framework
)

// Deps are the collaborators the routes are built from
type Deps struct {
	Store             *db.Store                 // Data store
	Storage           kv.Store                  // Sessions, preferences and admin caches
	Registry          *scan.Registry            // One scan workflow per session
	Profile           scan.Profile              // Scan profile
	JWTSecret         string                    // JWT secret key
	AdminPasscodeHash string                    // Optional bcrypt hash for admin logins
	LoginLimiter      *middleware.IPRateLimiter // Per-IP login limiter
}

// HealthHandler reports whether the store is open and answering
func HealthHandler(store *db.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// RegisterRoutes mounts every endpoint on r
func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/health", HealthHandler(d.Store)) // Liveness endpoint

	// Login, rate limited per client IP
	login := []gin.HandlerFunc{LoginHandler(d.Store, d.Storage, d.JWTSecret, d.AdminPasscodeHash)}
	if d.LoginLimiter != nil {
		login = append([]gin.HandlerFunc{d.LoginLimiter.Middleware()}, login...)
	}
	r.POST("/session", login...)

	// Player routes (protected by JWT)
	authed := r.Group("")
	authed.Use(middleware.JWTAuthMiddleware(d.JWTSecret, d.Storage))
	authed.DELETE("/session", LogoutHandler(d.Registry))          // Logout endpoint
	authed.GET("/me", MeHandler(d.Store, d.Registry))             // Current user endpoint
	authed.GET("/me/accessibility", GetAccessibilityHandler())    // Read accessibility mode
	authed.PUT("/me/accessibility", SetAccessibilityHandler())    // Set or toggle accessibility mode
	authed.GET("/me/history", HistoryHandler(d.Store))            // Scan history endpoint
	authed.GET("/me/profile", ProfileHandler(d.Store))            // Profile endpoint
	authed.GET("/leaderboard", LeaderboardHandler(d.Store))       // Leaderboard endpoint
	authed.POST("/scan", StartScanHandler(d.Registry, d.Profile)) // Start scan endpoint
	authed.GET("/scan", ScanStatusHandler(d.Registry))            // Scan snapshot endpoint
	authed.GET("/scan/events", ScanEventsHandler(d.Registry))     // Scan event stream
	authed.DELETE("/scan", CancelScanHandler(d.Registry))         // Cancel scan endpoint
	authed.POST("/scan/reset", ResetScanHandler(d.Registry))      // Reset scan endpoint

	// Admin routes (protected, admin only)
	adminGroup := r.Group("/admin")
	// Protect admin routes with JWT and AdminOnly middleware
	adminGroup.Use(middleware.JWTAuthMiddleware(d.JWTSecret, d.Storage), middleware.AdminOnlyMiddleware(d.Store))
	adminGroup.GET("/overview", OverviewHandler(d.Store, d.Storage))        // Rollup endpoint
	adminGroup.GET("/family", FamilyHandler(d.Store, d.Storage))            // Family members endpoint
	adminGroup.GET("/family/:id/logs", MemberLogsHandler(d.Store))          // Member scans endpoint
	adminGroup.GET("/alerts", AlertsHandler(d.Store))                       // Open alerts endpoint
	adminGroup.POST("/alerts/ack", AckAllAlertsHandler(d.Store, d.Storage)) // Acknowledge all endpoint
	adminGroup.POST("/alerts/:id/ack", AckAlertHandler(d.Store, d.Storage)) // Acknowledge one endpoint
}
