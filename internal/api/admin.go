package api

import (
	"context"  // Context for cache operations
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Time durations

	"deepfake_shield/internal/db"         // Data store
	"deepfake_shield/internal/domain"     // Importing domain models
	"deepfake_shield/internal/kv"         // Cache storage
	"deepfake_shield/internal/middleware" // Context keys
	"deepfake_shield/internal/report"     // View derivations
	"deepfake_shield/internal/utils"      // Utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// Admin cache keys
const (
	AdminCachePrefix = "admin:"         // Every admin rollup lives under this prefix
	overviewCacheKey = "admin:overview" // Overview rollup
	familyCacheKey   = "admin:family"   // Family member list
	adminCacheTTL    = 60 * time.Second // Rollups are cached for a minute
	recentFakeScans  = 3                // Fake scans listed on the overview
	memberLogsLimit  = 10               // Logs listed per family member
)

// InvalidateAdminCache drops every cached admin rollup
func InvalidateAdminCache(ctx context.Context, cache kv.Store) {
	if err := utils.DeleteCachePrefix(ctx, cache, AdminCachePrefix); err != nil {
		logrus.WithFields(logrus.Fields{
			"error": err.Error(), // Error message
		}).Warn("Failed to invalidate admin cache") // Log failure
	}
}

// RecentFake is a fake scan with its relative age
type RecentFake struct {
	db.FakeScan
	Age string `json:"age"` // e.g. "3 days ago"
}

// Overview is the admin home rollup
type Overview struct {
	TotalScans     int64        `json:"total_scans"`     // Every scan log
	SafeScans      int64        `json:"safe_scans"`      // Safe results
	FakeScans      int64        `json:"fake_scans"`      // Fake results
	UncertainScans int64        `json:"uncertain_scans"` // Uncertain results
	FamilyMembers  int64        `json:"family_members"`  // Players
	OpenAlerts     int          `json:"open_alerts"`     // Unacknowledged alerts
	RecentFakes    []RecentFake `json:"recent_fakes"`    // Latest fake scans
}

// OverviewHandler returns scan totals, family size and the most recent fake scans
func OverviewHandler(store *db.Store, cache kv.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		var cached Overview // Try to get cached response
		found, err := utils.GetCache(ctx, cache, overviewCacheKey, &cached)
		// If cached data found, return it
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{"overview": cached, "cached": true})
			return
		}
		counts, err := store.ScanCounts(ctx) // Totals by result
		if err != nil {
			respondStoreError(c, err, "Failed to count scans")
			return
		}
		members, err := store.CountPlayers(ctx) // Family size
		if err != nil {
			respondStoreError(c, err, "Failed to count family members")
			return
		}
		alerts, err := store.GetUnacknowledgedAlerts(ctx) // Open alerts
		if err != nil {
			respondStoreError(c, err, "Failed to fetch alerts")
			return
		}
		fakes, err := store.RecentFakeScans(ctx, recentFakeScans) // Latest fakes
		if err != nil {
			respondStoreError(c, err, "Failed to fetch recent scans")
			return
		}
		now := time.Now()
		recent := make([]RecentFake, len(fakes))
		for i, f := range fakes {
			recent[i] = RecentFake{FakeScan: f, Age: report.Age(now, f.Timestamp)}
		}
		overview := Overview{
			TotalScans:     counts.Total,     // Every scan log
			SafeScans:      counts.Safe,      // Safe results
			FakeScans:      counts.Fake,      // Fake results
			UncertainScans: counts.Uncertain, // Uncertain results
			FamilyMembers:  members,          // Players
			OpenAlerts:     len(alerts),      // Unacknowledged alerts
			RecentFakes:    recent,           // Latest fake scans
		}
		// Cache the response for future requests
		_ = utils.SetCache(ctx, cache, overviewCacheKey, overview, adminCacheTTL)
		c.JSON(http.StatusOK, gin.H{"overview": overview, "cached": false})
	}
}

// FamilyHandler returns every player with their latest scan and alert flag
func FamilyHandler(store *db.Store, cache kv.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		var cached []report.Member // Try to get cached response
		found, err := utils.GetCache(ctx, cache, familyCacheKey, &cached)
		// If cached data found, return it
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{"members": cached, "alerts": report.CountAlerts(cached), "cached": true})
			return
		}
		players, err := store.Players(ctx) // Players by id
		if err != nil {
			respondStoreError(c, err, "Failed to fetch family members")
			return
		}
		latest := make(map[uint]domain.ScanLog, len(players))
		for _, p := range players {
			logs, err := store.LatestScanLogs(ctx, p.ID, 1) // Newest scan only
			if err != nil {
				respondStoreError(c, err, "Failed to fetch scans")
				return
			}
			if len(logs) > 0 {
				latest[p.ID] = logs[0]
			}
		}
		members := report.FamilyOverview(players, latest)
		// Cache the response for future requests
		_ = utils.SetCache(ctx, cache, familyCacheKey, members, adminCacheTTL)
		c.JSON(http.StatusOK, gin.H{"members": members, "alerts": report.CountAlerts(members), "cached": false})
	}
}

// MemberLogsHandler returns the latest scans of one family member
func MemberLogsHandler(store *db.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64) // Member ID from the path
		if err != nil || id == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid member id"})
			return
		}
		ctx := c.Request.Context()
		member, err := store.GetUserByID(ctx, uint(id)) // Member row
		if err != nil {
			respondStoreError(c, err, "Member not found")
			return
		}
		logs, err := store.LatestScanLogs(ctx, member.ID, memberLogsLimit) // Newest first
		if err != nil {
			respondStoreError(c, err, "Failed to fetch scans")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"member": member,                           // Member row
			"scans":  report.WithAge(time.Now(), logs), // Latest scans with ages
		})
	}
}

// AlertsHandler returns unacknowledged alerts, newest first
func AlertsHandler(store *db.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		alerts, err := store.GetUnacknowledgedAlerts(c.Request.Context())
		if err != nil {
			respondStoreError(c, err, "Failed to fetch alerts")
			return
		}
		c.JSON(http.StatusOK, gin.H{"alerts": alerts, "total": len(alerts)})
	}
}

// AckAlertHandler acknowledges one alert; acknowledging twice succeeds
func AckAlertHandler(store *db.Store, cache kv.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64) // Alert ID from the path
		if err != nil || id == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid alert id"})
			return
		}
		ctx := c.Request.Context()
		res, err := store.AcknowledgeAlert(ctx, uint(id))
		if err != nil {
			respondStoreError(c, err, "Alert not found")
			return
		}
		logrus.WithFields(logrus.Fields{
			"admin_id":  c.GetUint(middleware.ContextUserID), // Acknowledging admin
			"alert_id":  id,                                  // Alert ID
			"changed":   res.RowsAffected,                    // 0 when already acknowledged
			"timestamp": time.Now().Format(time.RFC3339),     // Current timestamp
		}).Info("Alert acknowledged")
		InvalidateAdminCache(ctx, cache) // Open alert count changed
		c.JSON(http.StatusOK, gin.H{"message": "Alert acknowledged", "acknowledged": res.RowsAffected})
	}
}

// AckAllAlertsHandler acknowledges every open alert
func AckAllAlertsHandler(store *db.Store, cache kv.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		res, err := store.AcknowledgeAllAlerts(ctx)
		if err != nil {
			respondStoreError(c, err, "Failed to acknowledge alerts")
			return
		}
		logrus.WithFields(logrus.Fields{
			"admin_id":  c.GetUint(middleware.ContextUserID), // Acknowledging admin
			"changed":   res.RowsAffected,                    // Alerts acknowledged
			"timestamp": time.Now().Format(time.RFC3339),     // Current timestamp
		}).Info("All alerts acknowledged")
		InvalidateAdminCache(ctx, cache) // Open alert count changed
		c.JSON(http.StatusOK, gin.H{"message": "Alerts acknowledged", "acknowledged": res.RowsAffected})
	}
}
