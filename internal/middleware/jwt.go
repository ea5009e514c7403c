package middleware

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"deepfake_shield/internal/kv"      // Session storage
	"deepfake_shield/internal/session" // Session restore
	"deepfake_shield/internal/utils"   // JWT utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// Context keys set by JWTAuthMiddleware
const (
	ContextUserID  = "userID"  // Authenticated user ID
	ContextSession = "session" // Restored *session.Session
)

// JWTAuthMiddleware validates JWT tokens and restores the client session
func JWTAuthMiddleware(secret string, storage kv.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := bearerToken(c) // Extract the token string
		if !ok {
			// If missing, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		claims, err := utils.ParseJWT(tokenStr, secret) // Parse the JWT token
		if err != nil {
			// If parsing fails, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		sess, err := session.Open(c.Request.Context(), storage, claims.SessionID) // Restore the session
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"session_id": claims.SessionID, // Session scope
				"error":      err.Error(),      // Error message
			}).Error("Failed to load session") // Log storage failure
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Session storage unavailable"})
			return
		}
		user, ok := sess.User() // Identity stored at login
		// A logged-out or discarded session, or a token for another user
		if !ok || user.ID != claims.UserID {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session expired"})
			return
		}
		c.Set(ContextUserID, user.ID) // Store userID in context
		c.Set(ContextSession, sess)   // Store session in context
		c.Next()                      // Proceed to the next handler
	}
}

// bearerToken reads the Authorization header, or the token query parameter
// for clients such as EventSource that cannot set headers
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization") // Get Authorization header
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer "), true
	}
	if authHeader == "" {
		if t := c.Query("token"); t != "" {
			return t, true // Query token fallback
		}
	}
	return "", false
}

// CurrentSession returns the session restored by JWTAuthMiddleware
func CurrentSession(c *gin.Context) (*session.Session, bool) {
	v, exists := c.Get(ContextSession) // Get session from context
	if !exists {
		return nil, false
	}
	sess, ok := v.(*session.Session)
	return sess, ok
}
