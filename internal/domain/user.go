package domain

// Roles a user can hold
const (
	RoleAdmin  = "admin"  // Family administrator, sees the rollups
	RolePlayer = "player" // Regular scanner
)

// User Model
type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`                                                  // Primary key
	Username string `gorm:"unique;not null" json:"username"`                                       // Unique username
	Role     string `gorm:"not null;check:chk_users_role,role IN ('admin', 'player')" json:"role"` // Role: admin or player
	Coins    int    `gorm:"not null;default:0" json:"coins"`                                       // Reward currency
	Streak   int    `gorm:"not null;default:0" json:"streak"`                                      // Consecutive-day counter
}

// IsAdmin reports whether the user holds the admin role
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ValidRole reports whether role is one of the known roles
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RolePlayer
}
