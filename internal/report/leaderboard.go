// Package report derives the leaderboard, history, profile and admin views
// from rows already read out of the store. Nothing here touches storage.
package report

import (
	"errors"
	"slices"

	"deepfake_shield/internal/domain"
)

// ErrUnknownSort is returned by ParseSort for an unrecognized mode.
var ErrUnknownSort = errors.New("unknown sort mode")

// SortMode selects the leaderboard key.
type SortMode string

const (
	SortByCoins SortMode = "coins"
	SortByScans SortMode = "scans"
)

// ParseSort maps a query value onto a SortMode. Empty means coins.
func ParseSort(s string) (SortMode, error) {
	switch SortMode(s) {
	case "", SortByCoins:
		return SortByCoins, nil
	case SortByScans:
		return SortByScans, nil
	}
	return "", ErrUnknownSort
}

// Entry is one leaderboard row.
type Entry struct {
	Rank       int    `json:"rank"`
	UserID     uint   `json:"user_id"`
	Username   string `json:"username"`
	Coins      int    `json:"coins"`
	Streak     int    `json:"streak"`
	TotalScans int    `json:"total_scans"`
	FakesFound int    `json:"fakes_found"`
}

// Leaderboard ranks players by the mode's key, descending. Ties go to the
// lower user id. Admins are left out.
func Leaderboard(users []domain.User, logsByUser map[uint][]domain.ScanLog, mode SortMode) []Entry {
	entries := make([]Entry, 0, len(users))
	for _, u := range users {
		if u.Role != domain.RolePlayer {
			continue
		}
		logs := logsByUser[u.ID]
		entries = append(entries, Entry{
			UserID:     u.ID,
			Username:   u.Username,
			Coins:      u.Coins,
			Streak:     u.Streak,
			TotalScans: len(logs),
			FakesFound: countResult(logs, domain.ResultFake),
		})
	}

	key := func(e Entry) int {
		if mode == SortByScans {
			return e.TotalScans
		}
		return e.Coins
	}
	slices.SortStableFunc(entries, func(a, b Entry) int {
		if ka, kb := key(a), key(b); ka != kb {
			return kb - ka
		}
		switch {
		case a.UserID < b.UserID:
			return -1
		case a.UserID > b.UserID:
			return 1
		}
		return 0
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

func countResult(logs []domain.ScanLog, result string) int {
	n := 0
	for _, l := range logs {
		if l.Result == result {
			n++
		}
	}
	return n
}
