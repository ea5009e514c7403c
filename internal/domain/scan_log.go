package domain

import "time"

// Stored scan results
const (
	ResultSafe      = "safe"
	ResultFake      = "fake"
	ResultUncertain = "uncertain"
)

// ScanLog Model
type ScanLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`                                                                                                           // Primary key
	UserID     uint      `gorm:"not null;index" json:"user_id" validate:"required"`                                                                              // Foreign key to User
	User       *User     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-" validate:"-"`                                                           // Owning user
	Timestamp  time.Time `gorm:"not null;autoCreateTime;index" json:"timestamp"`                                                                                 // Creation time
	Result     string    `gorm:"not null;check:chk_scan_logs_result,result IN ('safe', 'fake', 'uncertain')" json:"result" validate:"oneof=safe fake uncertain"` // safe, fake or uncertain
	Confidence float64   `gorm:"not null;check:chk_scan_logs_confidence,confidence >= 0 AND confidence <= 100" json:"confidence" validate:"gte=0,lte=100"`       // Percentage in [0,100]
	Reason     string    `json:"reason"`                                                                                                                         // Human-readable reason
}

// ValidResult reports whether result is one of the stored scan results
func ValidResult(result string) bool {
	switch result {
	case ResultSafe, ResultFake, ResultUncertain:
		return true
	}
	return false
}
