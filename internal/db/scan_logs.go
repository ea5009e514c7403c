package db

import (
	"context"
	"fmt"

	"deepfake_shield/internal/domain"

	"gorm.io/gorm"
)

// GetScanLogsByUser returns the user's scans, newest first.
func (s *Store) GetScanLogsByUser(ctx context.Context, userID uint) ([]domain.ScanLog, error) {
	return s.LatestScanLogs(ctx, userID, -1)
}

// LatestScanLogs returns at most limit scans for the user, newest first.
// A negative limit returns all of them.
func (s *Store) LatestScanLogs(ctx context.Context, userID uint, limit int) ([]domain.ScanLog, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	var logs []domain.ScanLog
	q := conn.Where("user_id = ?", userID).Order("timestamp DESC").Order("id DESC")
	if limit >= 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// AddScanLog inserts one scan log. Out-of-range confidence or an unknown
// result fails the write with ErrInvalidScanLog.
func (s *Store) AddScanLog(ctx context.Context, log domain.ScanLog) (ExecResult, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return ExecResult{}, err
	}
	if err := s.checkScanLog(log); err != nil {
		return ExecResult{}, err
	}
	log.ID = 0
	if err := conn.Create(&log).Error; err != nil {
		return ExecResult{}, translate(err)
	}
	return ExecResult{RowsAffected: 1, LastInsertedID: int64(log.ID)}, nil
}

func (s *Store) checkScanLog(log domain.ScanLog) error {
	if err := s.validate.Struct(log); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScanLog, err)
	}
	return nil
}

// ScanRecord is one completed scan to persist.
type ScanRecord struct {
	UserID     uint
	Result     string
	Confidence float64
	Reason     string
	Reward     int
}

// ScanOutcome is what RecordScan wrote.
type ScanOutcome struct {
	Log   domain.ScanLog     `json:"log"`
	Alert *domain.AdminAlert `json:"alert,omitempty"`
	Coins int                `json:"coins"` // balance after the reward
}

// RecordScan appends the scan log, raises an admin alert for fake results
// and credits the reward in a single transaction. Any failure rolls back
// all of it.
func (s *Store) RecordScan(ctx context.Context, rec ScanRecord) (ScanOutcome, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return ScanOutcome{}, err
	}
	log := domain.ScanLog{
		UserID:     rec.UserID,
		Result:     rec.Result,
		Confidence: rec.Confidence,
		Reason:     rec.Reason,
	}
	if err := s.checkScanLog(log); err != nil {
		return ScanOutcome{}, err
	}

	var out ScanOutcome
	err = conn.Transaction(func(tx *gorm.DB) error {
		var user domain.User
		if err := tx.First(&user, rec.UserID).Error; err != nil {
			return err
		}
		if err := tx.Create(&log).Error; err != nil {
			return err
		}
		out.Log = log

		if log.Result == domain.ResultFake {
			alert := domain.AdminAlert{
				UserID:     user.ID,
				Username:   user.Username,
				ScanLogID:  log.ID,
				Reason:     log.Reason,
				Confidence: log.Confidence,
			}
			if err := tx.Create(&alert).Error; err != nil {
				return err
			}
			out.Alert = &alert
		}

		if err := tx.Model(&domain.User{}).Where("id = ?", user.ID).
			Update("coins", gorm.Expr("coins + ?", rec.Reward)).Error; err != nil {
			return err
		}
		var fresh domain.User
		if err := tx.Select("coins").First(&fresh, user.ID).Error; err != nil {
			return err
		}
		out.Coins = fresh.Coins
		return nil
	})
	if err != nil {
		return ScanOutcome{}, translate(err)
	}
	return out, nil
}
