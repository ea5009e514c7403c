package domain

import "time"

// AdminAlert Model, raised for every scan that comes back fake
type AdminAlert struct {
	ID           uint      `gorm:"primaryKey" json:"id"`                                    // Primary key
	UserID       uint      `gorm:"not null;index" json:"user_id"`                           // Foreign key to User
	User         *User     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"` // Owning user
	Username     string    `gorm:"not null" json:"username"`                                // Copy of the username at alert time
	ScanLogID    uint      `gorm:"not null;uniqueIndex" json:"scan_log_id"`                 // Foreign key to ScanLog
	ScanLog      *ScanLog  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"` // Scan that raised the alert
	Reason       string    `json:"reason"`                                                  // Reason copied from the scan
	Confidence   float64   `json:"confidence"`                                              // Confidence copied from the scan
	Timestamp    time.Time `gorm:"not null;autoCreateTime;index" json:"timestamp"`          // Creation time
	Acknowledged bool      `gorm:"not null;default:false" json:"acknowledged"`              // Set once by an admin
}
