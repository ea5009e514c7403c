package report

import "deepfake_shield/internal/domain"

// Member is one player on the admin family view.
type Member struct {
	User       domain.User     `json:"user"`
	LatestScan *domain.ScanLog `json:"latest_scan,omitempty"`
	HasAlert   bool            `json:"has_alert"`
}

// FamilyOverview pairs each player with their latest scan. A member is
// flagged when that scan came back fake.
func FamilyOverview(players []domain.User, latest map[uint]domain.ScanLog) []Member {
	out := make([]Member, 0, len(players))
	for _, p := range players {
		m := Member{User: p}
		if l, ok := latest[p.ID]; ok {
			m.LatestScan = &l
			m.HasAlert = l.Result == domain.ResultFake
		}
		out = append(out, m)
	}
	return out
}

// CountAlerts returns how many members are flagged.
func CountAlerts(members []Member) int {
	n := 0
	for _, m := range members {
		if m.HasAlert {
			n++
		}
	}
	return n
}
