package report

import (
	"errors"
	"math"
	"time"

	"deepfake_shield/internal/domain"

	"github.com/dustin/go-humanize"
)

// ErrUnknownFilter is returned by ParseFilter for an unrecognized filter.
var ErrUnknownFilter = errors.New("unknown history filter")

// Filter narrows the history view.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterSafe      Filter = Filter(domain.ResultSafe)
	FilterFake      Filter = Filter(domain.ResultFake)
	FilterUncertain Filter = Filter(domain.ResultUncertain)
)

// ParseFilter maps a query value onto a Filter. Empty means all.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(s); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterSafe, FilterFake, FilterUncertain:
		return f, nil
	}
	return "", ErrUnknownFilter
}

// FilterHistory keeps the logs matching f, preserving order.
func FilterHistory(logs []domain.ScanLog, f Filter) []domain.ScanLog {
	out := make([]domain.ScanLog, 0, len(logs))
	for _, l := range logs {
		if f == FilterAll || l.Result == string(f) {
			out = append(out, l)
		}
	}
	return out
}

// HistoryItem is a scan log with its age rendered for display.
type HistoryItem struct {
	domain.ScanLog
	Age string `json:"age"`
}

// WithAge attaches a relative age to each log.
func WithAge(now time.Time, logs []domain.ScanLog) []HistoryItem {
	out := make([]HistoryItem, len(logs))
	for i, l := range logs {
		out[i] = HistoryItem{ScanLog: l, Age: Age(now, l.Timestamp)}
	}
	return out
}

// Age renders t relative to now, e.g. "3 days ago".
func Age(now, t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// ProfileStats are the counters on the profile page.
type ProfileStats struct {
	Coins      int `json:"coins"`
	Streak     int `json:"streak"`
	TotalScans int `json:"total_scans"`
	SafeScans  int `json:"safe_scans"`
	FakesFound int `json:"fakes_found"`
}

// Summarize counts the user's scans by result.
func Summarize(user domain.User, logs []domain.ScanLog) ProfileStats {
	return ProfileStats{
		Coins:      user.Coins,
		Streak:     user.Streak,
		TotalScans: len(logs),
		SafeScans:  countResult(logs, domain.ResultSafe),
		FakesFound: countResult(logs, domain.ResultFake),
	}
}

// FakeRatio is the rounded percentage of scans that were fake, 0 with no scans.
func (s ProfileStats) FakeRatio() int {
	if s.TotalScans == 0 {
		return 0
	}
	return int(math.Round(float64(s.FakesFound) / float64(s.TotalScans) * 100))
}
