package db

import (
	"context"
	"fmt"
	"time"

	"deepfake_shield/internal/domain"
)

// ScanCounts totals scan logs across all users.
type ScanCounts struct {
	Total     int64 `json:"total"`
	Safe      int64 `json:"safe"`
	Fake      int64 `json:"fake"`
	Uncertain int64 `json:"uncertain"`
}

// ScanCounts counts every scan log and each result kind.
func (s *Store) ScanCounts(ctx context.Context) (ScanCounts, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return ScanCounts{}, err
	}
	var c ScanCounts
	if err := conn.Model(&domain.ScanLog{}).Count(&c.Total).Error; err != nil {
		return ScanCounts{}, fmt.Errorf("count scan logs: %w", err)
	}
	byResult := []struct {
		result string
		dst    *int64
	}{
		{domain.ResultSafe, &c.Safe},
		{domain.ResultFake, &c.Fake},
		{domain.ResultUncertain, &c.Uncertain},
	}
	for _, r := range byResult {
		if err := conn.Model(&domain.ScanLog{}).Where("result = ?", r.result).Count(r.dst).Error; err != nil {
			return ScanCounts{}, fmt.Errorf("count %s scan logs: %w", r.result, err)
		}
	}
	return c, nil
}

// CountPlayers counts users holding the player role.
func (s *Store) CountPlayers(ctx context.Context) (int64, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := conn.Model(&domain.User{}).Where("role = ?", domain.RolePlayer).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count players: %w", err)
	}
	return n, nil
}

// FakeScan is a fake scan joined with its owner's username.
type FakeScan struct {
	ID         uint      `json:"id"`
	UserID     uint      `json:"user_id"`
	Username   string    `json:"username"`
	Timestamp  time.Time `json:"timestamp"`
	Confidence float64   `json:"confidence"`
	Reason     string    `json:"reason"`
}

// RecentFakeScans returns the most recent fake scans across all users.
func (s *Store) RecentFakeScans(ctx context.Context, limit int) ([]FakeScan, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	var out []FakeScan
	err = conn.Table("scan_logs").
		Select("scan_logs.id, scan_logs.user_id, users.username, scan_logs.timestamp, scan_logs.confidence, scan_logs.reason").
		Joins("JOIN users ON users.id = scan_logs.user_id").
		Where("scan_logs.result = ?", domain.ResultFake).
		Order("scan_logs.timestamp DESC").Order("scan_logs.id DESC").
		Limit(limit).
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
