package api

import (
	"context"  // Hook context
	"errors"   // Error matching
	"net/http" // HTTP status codes

	"deepfake_shield/internal/db"    // Data store
	"deepfake_shield/internal/kv"    // Admin cache invalidation
	"deepfake_shield/internal/scan"  // Scan workflows
	"deepfake_shield/internal/stats" // Stats cache

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// NewScanRegistry builds one workflow per session, each crediting through
// the store, refreshing the session's stats cache and invalidating the admin caches
func NewScanRegistry(store *db.Store, cache kv.Store, profile scan.Profile, gen *scan.Generator, opts ...scan.RegistryOption) *scan.Registry {
	return scan.NewRegistry(func(userID uint) *scan.Workflow {
		return scan.NewWorkflow(scan.Config{
			Profile:   profile,                  // Phases, rewards, accepted types
			UserID:    userID,                   // Scanning user
			Recorder:  store,                    // Transactional log + alert + credit
			Stats:     stats.New(store, userID), // Session counters, refreshed after each scan
			Generator: gen,                      // Shared verdict source
			OnComplete: func(db.ScanOutcome) {
				InvalidateAdminCache(context.Background(), cache) // Rollups are stale now
			},
		})
	}, opts...)
}

// Stats updates ride the scan event stream under their own event name
const (
	statsEvent  = "stats" // SSE event name for counter updates
	statsBuffer = 8       // Pending counter updates per stream
)

// StartScanHandler accepts an uploaded file and starts a scan
func StartScanHandler(registry *scan.Registry, profile scan.Profile) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, userID, ok := currentUser(c)
		if !ok {
			return
		}
		fh, err := c.FormFile("file") // Multipart upload
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
			return
		}
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
			return
		}
		defer f.Close()
		media, err := profile.DetectMedia(fh.Filename, f) // Sniff the real content type
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id":      userID,            // User ID
				"file_name":    fh.Filename,       // Uploaded name
				"content_type": media.ContentType, // Detected type
			}).Info("Rejected upload")
			c.JSON(http.StatusBadRequest, gin.H{"error": "Please upload an image or video file"})
			return
		}
		wf := registry.Get(sess.Scope(), userID) // This session's workflow
		if err := wf.Start(c.Request.Context(), media); err != nil {
			switch {
			case errors.Is(err, scan.ErrBusy):
				c.JSON(http.StatusConflict, gin.H{"error": "A scan is already in progress"})
			case errors.Is(err, scan.ErrUnsupportedMedia):
				c.JSON(http.StatusBadRequest, gin.H{"error": "Please upload an image or video file"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start scan"})
			}
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"scan": wf.Snapshot()}) // Scan is running
	}
}

// ScanStatusHandler returns the workflow snapshot
func ScanStatusHandler(registry *scan.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, userID, ok := currentUser(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"scan": registry.Get(sess.Scope(), userID).Snapshot()})
	}
}

// CancelScanHandler stops a running scan without saving it
func CancelScanHandler(registry *scan.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, userID, ok := currentUser(c)
		if !ok {
			return
		}
		wf := registry.Get(sess.Scope(), userID)
		if !wf.Cancel() {
			c.JSON(http.StatusConflict, gin.H{"error": "No scan in progress"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"scan": wf.Snapshot()})
	}
}

// ResetScanHandler returns a finished scan to idle
func ResetScanHandler(registry *scan.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, userID, ok := currentUser(c)
		if !ok {
			return
		}
		wf := registry.Get(sess.Scope(), userID)
		if err := wf.Reset(); err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": "Scan is still running"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"scan": wf.Snapshot()})
	}
}

// ScanEventsHandler streams workflow events as server-sent events until the client leaves
func ScanEventsHandler(registry *scan.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, userID, ok := currentUser(c)
		if !ok {
			return
		}
		wf := registry.Get(sess.Scope(), userID)
		events, stop := wf.Watch() // Subscribe before the first snapshot
		defer stop()
		counters := make(chan stats.Stats, statsBuffer)
		if cache := wf.Stats(); cache != nil {
			unsubscribe := cache.Subscribe(func(s stats.Stats) {
				select {
				case counters <- s:
				default: // Slow client, skip this update
				}
			})
			defer unsubscribe()
		}

		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.SSEvent(string(scan.EventState), scan.Event{Kind: scan.EventState, Snapshot: wf.Snapshot()})
		c.Writer.Flush()

		ctx := c.Request.Context()
		for {
			select {
			case <-ctx.Done():
				return // Client went away
			case ev, open := <-events:
				if !open {
					return // Workflow closed, e.g. on logout
				}
				c.SSEvent(string(ev.Kind), ev)
				c.Writer.Flush()
			case s := <-counters:
				c.SSEvent(statsEvent, gin.H{"stats": s})
				c.Writer.Flush()
			}
		}
	}
}
