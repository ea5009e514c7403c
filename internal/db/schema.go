package db

import (
	"fmt"
	"time"

	"deepfake_shield/internal/domain"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// resetSchema drops the three tables (children first) and recreates them.
func resetSchema(db *gorm.DB) error {
	if err := db.Migrator().DropTable(&domain.AdminAlert{}, &domain.ScanLog{}, &domain.User{}); err != nil {
		return fmt.Errorf("drop tables: %w", err)
	}
	// AutoMigrate creates tables, foreign keys and check constraints
	if err := db.AutoMigrate(&domain.User{}, &domain.ScanLog{}, &domain.AdminAlert{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logrus.Debug("Schema recreated")
	return nil
}

type seedScan struct {
	result     string
	confidence float64
	reason     string
	daysAgo    int
}

// seedScans are pushed back a week or more so live scans always list first
var seedScans = []seedScan{
	{domain.ResultSafe, 95.5, "No manipulation detected", 7},
	{domain.ResultFake, 87.2, "Face swap artifacts detected", 8},
	{domain.ResultSafe, 99.1, "Original media verified", 10},
	{domain.ResultUncertain, 52.3, "Low quality source material", 12},
	{domain.ResultSafe, 91.8, "No audio manipulation detected", 14},
}

func seed(tx *gorm.DB, now time.Time) error {
	admin := domain.User{Username: "admin", Role: domain.RoleAdmin, Coins: 1000, Streak: 0}
	grandma := domain.User{Username: "Grandma", Role: domain.RolePlayer, Coins: 250, Streak: 5}
	if err := tx.Create(&admin).Error; err != nil {
		return err
	}
	if err := tx.Create(&grandma).Error; err != nil {
		return err
	}

	logs := make([]domain.ScanLog, 0, len(seedScans))
	for _, sc := range seedScans {
		logs = append(logs, domain.ScanLog{
			UserID:     grandma.ID,
			Timestamp:  now.Add(-time.Duration(sc.daysAgo) * 24 * time.Hour),
			Result:     sc.result,
			Confidence: sc.confidence,
			Reason:     sc.reason,
		})
	}
	return tx.Create(&logs).Error
}
