package session

import (
	"context"
	"strconv"

	"github.com/sirupsen/logrus"
)

const accessibilityKeySuffix = "deepfake-shield-elderly-mode"

// DefaultAccessibilityMode is used until the client chooses otherwise.
const DefaultAccessibilityMode = true

// AccessibilityKey is the storage key holding the flag for scope.
func AccessibilityKey(scope string) string {
	return scope + ":" + accessibilityKeySuffix
}

// AccessibilityMode reports whether the large-control variant is on.
// Missing or unreadable values read as the default; any stored value other
// than "true" reads as off.
func (s *Session) AccessibilityMode(ctx context.Context) bool {
	v, found, err := s.storage.Get(ctx, AccessibilityKey(s.scope))
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"scope": s.scope,
			"error": err.Error(),
		}).Warn("Failed to read accessibility mode")
		return DefaultAccessibilityMode
	}
	if !found {
		return DefaultAccessibilityMode
	}
	return v == strconv.FormatBool(true)
}

// SetAccessibilityMode persists the flag as "true" or "false".
func (s *Session) SetAccessibilityMode(ctx context.Context, on bool) error {
	return s.storage.Set(ctx, AccessibilityKey(s.scope), strconv.FormatBool(on), s.ttl)
}

// ToggleAccessibilityMode flips the flag and returns the new value.
func (s *Session) ToggleAccessibilityMode(ctx context.Context) (bool, error) {
	on := !s.AccessibilityMode(ctx)
	if err := s.SetAccessibilityMode(ctx, on); err != nil {
		return !on, err
	}
	return on, nil
}
