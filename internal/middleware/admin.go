package middleware

import (
	"context"  // Context for store lookups
	"errors"   // Error matching
	"net/http" // HTTP status codes

	"deepfake_shield/internal/db"     // Store errors
	"deepfake_shield/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin" // Gin web framework
)

// UserLookup is the part of the store the admin check needs
type UserLookup interface {
	GetUserByID(ctx context.Context, id uint) (domain.User, error)
}

// AdminOnlyMiddleware checks the user's role from the store on each request
func AdminOnlyMiddleware(store UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get(ContextUserID) // Get userID from context
		// Check if userID exists in context
		if !exists {
			// If not, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		user, err := store.GetUserByID(c.Request.Context(), userID.(uint)) // Fetch user from store
		if errors.Is(err, db.ErrUninitialized) {
			// Store not open yet
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Store not initialized"})
			return
		}
		// If user not found, any error, or not an admin, abort with forbidden status
		if err != nil || !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		// If admin, proceed to the next handler
		c.Next()
	}
}
