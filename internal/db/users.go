package db

import (
	"context"

	"deepfake_shield/internal/domain"

	"gorm.io/gorm"
)

// GetAllUsers returns every user ordered by id.
func (s *Store) GetAllUsers(ctx context.Context) ([]domain.User, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	var users []domain.User
	if err := conn.Order("id").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// Players returns the users holding the player role, ordered by id.
func (s *Store) Players(ctx context.Context) ([]domain.User, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	var users []domain.User
	if err := conn.Where("role = ?", domain.RolePlayer).Order("id").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// GetUserByID returns the user with the given id or ErrNotFound.
func (s *Store) GetUserByID(ctx context.Context, id uint) (domain.User, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return domain.User{}, err
	}
	var user domain.User
	if err := conn.First(&user, id).Error; err != nil {
		return domain.User{}, translate(err)
	}
	return user, nil
}

// FindUser looks a user up by exact username and role.
func (s *Store) FindUser(ctx context.Context, username, role string) (domain.User, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return domain.User{}, err
	}
	var user domain.User
	if err := conn.Where("username = ? AND role = ?", username, role).First(&user).Error; err != nil {
		return domain.User{}, translate(err)
	}
	return user, nil
}

// UpdateUserCoins adds delta (possibly negative) to the user's coins.
// Zero rows affected means the user does not exist.
func (s *Store) UpdateUserCoins(ctx context.Context, userID uint, delta int) (ExecResult, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return ExecResult{}, err
	}
	res := conn.Model(&domain.User{}).Where("id = ?", userID).
		Update("coins", gorm.Expr("coins + ?", delta))
	if res.Error != nil {
		return ExecResult{}, res.Error
	}
	return ExecResult{RowsAffected: res.RowsAffected}, nil
}

// UpdateUserStreak sets the user's streak to value.
func (s *Store) UpdateUserStreak(ctx context.Context, userID uint, value int) (ExecResult, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return ExecResult{}, err
	}
	res := conn.Model(&domain.User{}).Where("id = ?", userID).Update("streak", value)
	if res.Error != nil {
		return ExecResult{}, res.Error
	}
	return ExecResult{RowsAffected: res.RowsAffected}, nil
}
