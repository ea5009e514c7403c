// Package session tracks who a client is logged in as. The identity is kept
// in memory and persisted in the key-value store under the client's scope,
// so a new request carrying the same scope restores it without another login.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"deepfake_shield/internal/domain"
	"deepfake_shield/internal/kv"
	"deepfake_shield/internal/utils"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

const (
	userKeySuffix = "deepfake-shield-user"
	schemaVersion = 1
)

// ErrInvalidUser is returned by Login for a record that could not be restored later.
var ErrInvalidUser = errors.New("invalid session user")

var validate = validator.New(validator.WithRequiredStructEnabled())

// persisted is the stored blob. Anything that does not validate is discarded.
type persisted struct {
	Version int        `json:"version" validate:"eq=1"`
	User    storedUser `json:"user"`
	SavedAt time.Time  `json:"saved_at"`
}

type storedUser struct {
	ID       uint   `json:"id" validate:"gt=0"`
	Username string `json:"username" validate:"required"`
	Role     string `json:"role" validate:"oneof=admin player"`
	Coins    int    `json:"coins"`
	Streak   int    `json:"streak"`
}

// UserKey is the storage key holding the identity for scope.
func UserKey(scope string) string {
	return scope + ":" + userKeySuffix
}

// Session is one client's authentication state.
type Session struct {
	storage kv.Store
	scope   string
	ttl     time.Duration

	mu   sync.RWMutex
	user *domain.User
}

// Open restores the identity stored for scope. A missing value yields a
// logged-out session; a corrupted one is deleted and also yields a
// logged-out session. Only storage failures are returned as errors.
func Open(ctx context.Context, storage kv.Store, scope string) (*Session, error) {
	s := &Session{storage: storage, scope: scope, ttl: utils.TokenTTL}

	var p persisted
	found, err := utils.GetCache(ctx, storage, UserKey(scope), &p)
	if err != nil && !found {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !found {
		return s, nil
	}
	if err == nil {
		err = validate.Struct(p)
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"scope": scope,
			"error": err.Error(),
		}).Warn("Discarding corrupted session")
		if derr := utils.DeleteCache(ctx, storage, UserKey(scope)); derr != nil {
			return nil, fmt.Errorf("clear session: %w", derr)
		}
		return s, nil
	}

	s.user = &domain.User{
		ID:       p.User.ID,
		Username: p.User.Username,
		Role:     p.User.Role,
		Coins:    p.User.Coins,
		Streak:   p.User.Streak,
	}
	return s, nil
}

// Scope returns the client scope the session is stored under.
func (s *Session) Scope() string {
	return s.scope
}

// Login stores user in memory and in storage.
func (s *Session) Login(ctx context.Context, user domain.User) error {
	p := persisted{
		Version: schemaVersion,
		User: storedUser{
			ID:       user.ID,
			Username: user.Username,
			Role:     user.Role,
			Coins:    user.Coins,
			Streak:   user.Streak,
		},
		SavedAt: time.Now().UTC(),
	}
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidUser, err)
	}
	if err := utils.SetCache(ctx, s.storage, UserKey(s.scope), p, s.ttl); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	s.mu.Lock()
	u := user
	s.user = &u
	s.mu.Unlock()
	return nil
}

// Logout clears the identity from memory and storage.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
	if err := utils.DeleteCache(ctx, s.storage, UserKey(s.scope)); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// User returns a copy of the logged-in user. The copy is not refreshed when
// the store changes; read counters from the stats cache instead.
func (s *Session) User() (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return domain.User{}, false
	}
	return *s.user, true
}

// IsAuthenticated reports whether an identity is present.
func (s *Session) IsAuthenticated() bool {
	_, ok := s.User()
	return ok
}

// IsAdmin reports whether the identity holds the admin role.
func (s *Session) IsAdmin() bool {
	u, ok := s.User()
	return ok && u.IsAdmin()
}
