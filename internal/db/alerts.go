package db

import (
	"context"

	"deepfake_shield/internal/domain"
)

// CreateAdminAlert inserts an alert for a fake scan.
func (s *Store) CreateAdminAlert(ctx context.Context, alert domain.AdminAlert) (ExecResult, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return ExecResult{}, err
	}
	alert.ID = 0
	alert.Acknowledged = false
	if err := conn.Create(&alert).Error; err != nil {
		return ExecResult{}, translate(err)
	}
	return ExecResult{RowsAffected: 1, LastInsertedID: int64(alert.ID)}, nil
}

// GetUnacknowledgedAlerts returns open alerts, newest first.
func (s *Store) GetUnacknowledgedAlerts(ctx context.Context) ([]domain.AdminAlert, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	var alerts []domain.AdminAlert
	if err := conn.Where("acknowledged = ?", false).
		Order("timestamp DESC").Order("id DESC").
		Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}

// AcknowledgeAlert marks one alert acknowledged. Acknowledging twice is a no-op.
func (s *Store) AcknowledgeAlert(ctx context.Context, id uint) (ExecResult, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return ExecResult{}, err
	}
	var alert domain.AdminAlert
	if err := conn.First(&alert, id).Error; err != nil {
		return ExecResult{}, translate(err)
	}
	if alert.Acknowledged {
		return ExecResult{}, nil
	}
	res := conn.Model(&domain.AdminAlert{}).Where("id = ?", id).Update("acknowledged", true)
	if res.Error != nil {
		return ExecResult{}, res.Error
	}
	return ExecResult{RowsAffected: res.RowsAffected}, nil
}

// AcknowledgeAllAlerts marks every open alert acknowledged.
func (s *Store) AcknowledgeAllAlerts(ctx context.Context) (ExecResult, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return ExecResult{}, err
	}
	res := conn.Model(&domain.AdminAlert{}).Where("acknowledged = ?", false).Update("acknowledged", true)
	if res.Error != nil {
		return ExecResult{}, res.Error
	}
	return ExecResult{RowsAffected: res.RowsAffected}, nil
}
