package api

import (
	"errors"   // Error matching
	"net/http" // HTTP status codes

	"deepfake_shield/internal/db"         // Store errors
	"deepfake_shield/internal/middleware" // Context helpers
	"deepfake_shield/internal/session"    // Session type

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// respondStoreError maps store errors onto HTTP statuses
func respondStoreError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, db.ErrUninitialized):
		// Store was never opened or has been closed
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Store not initialized"})
	case errors.Is(err, db.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": msg}) // Missing row
	default:
		logrus.WithFields(logrus.Fields{
			"path":  c.FullPath(), // Route
			"error": err.Error(),  // Error message
		}).Error(msg) // Log unexpected failure
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

// currentUser returns the session and user ID set by the JWT middleware
func currentUser(c *gin.Context) (*session.Session, uint, bool) {
	sess, ok := middleware.CurrentSession(c) // Session from context
	if !ok {
		// If missing, return unauthorized
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, 0, false
	}
	return sess, c.GetUint(middleware.ContextUserID), true
}
