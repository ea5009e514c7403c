package api

import (
	"errors"   // Error matching
	"net/http" // HTTP status codes
	"strings"  // Username trimming
	"time"     // Timestamps for logs

	"deepfake_shield/internal/db"      // Data store
	"deepfake_shield/internal/domain"  // Importing domain models
	"deepfake_shield/internal/kv"      // Session storage
	"deepfake_shield/internal/scan"    // Scan workflows
	"deepfake_shield/internal/session" // Session state
	"deepfake_shield/internal/utils"   // Utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/google/uuid"     // Session IDs
	"github.com/sirupsen/logrus" // Logging library
	"golang.org/x/crypto/bcrypt" // Passcode hashing
)

// Request struct for login
type LoginRequest struct {
	Username string `json:"username" binding:"required"`                // Username must be provided
	Role     string `json:"role" binding:"required,oneof=admin player"` // Role tab the user picked
	Passcode string `json:"passcode"`                                   // Admin passcode, when one is configured
}

// Response struct for login
type LoginResponse struct {
	Token string      `json:"token"` // JWT token
	User  domain.User `json:"user"`  // Logged-in user
}

// LoginHandler looks a user up by username and role, starts a session and returns a JWT token
func LoginHandler(store *db.Store, storage kv.Store, jwtSecret, adminPasscodeHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		req.Username = strings.TrimSpace(req.Username) // Ignore stray spaces around the name
		if req.Username == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		user, err := store.FindUser(c.Request.Context(), req.Username, req.Role) // Fetch user from store
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				logrus.WithFields(logrus.Fields{
					"username": req.Username, // Attempted username
					"role":     req.Role,     // Attempted role
				}).Info("Login for unknown user") // Log failed lookup
			}
			respondStoreError(c, err, "User not found")
			return
		}
		// Admins must match the configured passcode
		if user.IsAdmin() && adminPasscodeHash != "" {
			if err := bcrypt.CompareHashAndPassword([]byte(adminPasscodeHash), []byte(req.Passcode)); err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid passcode"})
				return
			}
		}
		sessionID := uuid.NewString()                                      // New client scope
		sess, err := session.Open(c.Request.Context(), storage, sessionID) // Empty session for the scope
		if err == nil {
			err = sess.Login(c.Request.Context(), user) // Persist the identity
		}
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": user.ID,     // User ID
				"error":   err.Error(), // Error message
			}).Error("Failed to start session") // Log failure
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to start session"})
			return
		}
		token, err := utils.GenerateJWT(sessionID, user.ID, jwtSecret) // Generate JWT token
		if err != nil {
			// If token generation fails, return internal server error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}
		// Log successful login
		logrus.WithFields(logrus.Fields{
			"user_id":    user.ID,                         // User ID
			"username":   user.Username,                   // Username
			"role":       user.Role,                       // Role
			"session_id": sessionID,                       // Session scope
			"timestamp":  time.Now().Format(time.RFC3339), // Current timestamp
		}).Info("User logged in")
		c.JSON(http.StatusOK, LoginResponse{Token: token, User: user}) // Return the token
	}
}

// LogoutHandler clears the session and drops its scan workflow
func LogoutHandler(registry *scan.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, userID, ok := currentUser(c)
		if !ok {
			return
		}
		registry.Remove(sess.Scope()) // Cancel any running scan
		if err := sess.Logout(c.Request.Context()); err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": userID,      // User ID
				"error":   err.Error(), // Error message
			}).Error("Logout failed") // Log failure
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Logout failed"})
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id":    userID,       // User ID
			"session_id": sess.Scope(), // Session scope
		}).Info("User logged out")
		c.JSON(http.StatusOK, gin.H{"message": "Logged out"}) // Return success response
	}
}
