package api

import (
	"errors"   // Error matching
	"io"       // Empty body detection
	"net/http" // HTTP status codes
	"time"     // Relative ages

	"deepfake_shield/internal/db"     // Data store
	"deepfake_shield/internal/domain" // Importing domain models
	"deepfake_shield/internal/report" // View derivations
	"deepfake_shield/internal/scan"   // Session workflows
	"deepfake_shield/internal/stats"  // Stats cache

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// MeHandler returns the session user with the session's cached counters
func MeHandler(store *db.Store, registry *scan.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, userID, ok := currentUser(c)
		if !ok {
			return
		}
		user, _ := sess.User()                              // Identity copy from login
		cache := registry.Get(sess.Scope(), userID).Stats() // Refreshed by every scan
		if cache == nil {
			cache = stats.New(store, userID) // Workflow built without a cache
		}
		current, err := cache.Load(c.Request.Context()) // Read through on first use
		if err != nil {
			respondStoreError(c, err, "User not found")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"user":     user,           // Session user
			"is_admin": sess.IsAdmin(), // Role flag
			"stats":    current,        // Live counters
		})
	}
}

// AccessibilityRequest sets the flag; an empty body toggles it
type AccessibilityRequest struct {
	Enabled *bool `json:"enabled"` // New value, nil to toggle
}

// GetAccessibilityHandler returns the accessibility flag
func GetAccessibilityHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, _, ok := currentUser(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"enabled": sess.AccessibilityMode(c.Request.Context())})
	}
}

// SetAccessibilityHandler sets or toggles the accessibility flag
func SetAccessibilityHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, userID, ok := currentUser(c)
		if !ok {
			return
		}
		var req AccessibilityRequest // Bind JSON request to struct
		// An empty body toggles
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		ctx := c.Request.Context()
		enabled := false
		var err error
		if req.Enabled == nil {
			enabled, err = sess.ToggleAccessibilityMode(ctx) // Flip the stored value
		} else {
			enabled = *req.Enabled
			err = sess.SetAccessibilityMode(ctx, enabled) // Store the requested value
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to save preference"})
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id": userID,  // User ID
			"enabled": enabled, // New value
		}).Info("Accessibility mode changed")
		c.JSON(http.StatusOK, gin.H{"enabled": enabled})
	}
}

// HistoryHandler returns the user's scans, newest first, filtered by result
func HistoryHandler(store *db.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, userID, ok := currentUser(c)
		if !ok {
			return
		}
		filter, err := report.ParseFilter(c.Query("filter")) // all, safe, fake or uncertain
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filter"})
			return
		}
		logs, err := store.GetScanLogsByUser(c.Request.Context(), userID) // Newest first
		if err != nil {
			respondStoreError(c, err, "Failed to fetch scans")
			return
		}
		filtered := report.FilterHistory(logs, filter)
		c.JSON(http.StatusOK, gin.H{
			"filter": filter,                               // Applied filter
			"total":  len(filtered),                        // Number of matching scans
			"scans":  report.WithAge(time.Now(), filtered), // Matching scans with ages
		})
	}
}

// ProfileHandler returns profile counters and achievements
func ProfileHandler(store *db.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, userID, ok := currentUser(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		user, err := store.GetUserByID(ctx, userID) // Fresh user row
		if err != nil {
			respondStoreError(c, err, "User not found")
			return
		}
		logs, err := store.GetScanLogsByUser(ctx, userID) // All scans
		if err != nil {
			respondStoreError(c, err, "Failed to fetch scans")
			return
		}
		summary := report.Summarize(user, logs)
		unlocked, locked := report.Achievements(summary)
		c.JSON(http.StatusOK, gin.H{
			"user":       user,                // User row
			"stats":      summary,             // Counters
			"fake_ratio": summary.FakeRatio(), // Percentage of fakes
			"unlocked":   unlocked,            // Earned achievements
			"locked":     locked,              // Remaining achievements
		})
	}
}

// LeaderboardHandler ranks players by coins or scans
func LeaderboardHandler(store *db.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		mode, err := report.ParseSort(c.Query("sort")) // coins or scans
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sort"})
			return
		}
		ctx := c.Request.Context()
		users, err := store.GetAllUsers(ctx) // Every user, by id
		if err != nil {
			respondStoreError(c, err, "Failed to fetch users")
			return
		}
		logsByUser := make(map[uint][]domain.ScanLog, len(users))
		for _, u := range users {
			if u.Role != domain.RolePlayer {
				continue // Admins are not ranked
			}
			logs, err := store.GetScanLogsByUser(ctx, u.ID)
			if err != nil {
				respondStoreError(c, err, "Failed to fetch scans")
				return
			}
			logsByUser[u.ID] = logs
		}
		c.JSON(http.StatusOK, gin.H{
			"sort":    mode,                                        // Applied sort
			"players": report.Leaderboard(users, logsByUser, mode), // Ranked players
		})
	}
}
