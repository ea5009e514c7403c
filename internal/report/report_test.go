package report

import (
	"testing"
	"time"

	"deepfake_shield/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin   = domain.User{ID: 1, Username: "admin", Role: domain.RoleAdmin, Coins: 1000}
	grandma = domain.User{ID: 2, Username: "Grandma", Role: domain.RolePlayer, Coins: 250, Streak: 5}
)

func seedLogs() []domain.ScanLog {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	day := 24 * time.Hour
	return []domain.ScanLog{
		{ID: 1, UserID: 2, Timestamp: now.Add(-7 * day), Result: domain.ResultSafe, Confidence: 95.5},
		{ID: 2, UserID: 2, Timestamp: now.Add(-8 * day), Result: domain.ResultFake, Confidence: 87.2},
		{ID: 3, UserID: 2, Timestamp: now.Add(-10 * day), Result: domain.ResultSafe, Confidence: 99.1},
		{ID: 4, UserID: 2, Timestamp: now.Add(-12 * day), Result: domain.ResultUncertain, Confidence: 52.3},
		{ID: 5, UserID: 2, Timestamp: now.Add(-14 * day), Result: domain.ResultSafe, Confidence: 91.8},
	}
}

func TestLeaderboard_SeededSinglePlayer(t *testing.T) {
	logs := map[uint][]domain.ScanLog{2: seedLogs()}
	for _, mode := range []SortMode{SortByCoins, SortByScans} {
		got := Leaderboard([]domain.User{admin, grandma}, logs, mode)
		require.Len(t, got, 1, mode)
		assert.Equal(t, Entry{Rank: 1, UserID: 2, Username: "Grandma", Coins: 250, Streak: 5, TotalScans: 5, FakesFound: 1}, got[0])
	}
}

func TestLeaderboard_SortAndTieBreak(t *testing.T) {
	users := []domain.User{
		{ID: 7, Username: "Ada", Role: domain.RolePlayer, Coins: 100},
		{ID: 3, Username: "Bo", Role: domain.RolePlayer, Coins: 100},
		{ID: 5, Username: "Cy", Role: domain.RolePlayer, Coins: 300},
		admin,
	}
	logs := map[uint][]domain.ScanLog{
		7: {{Result: domain.ResultFake}, {Result: domain.ResultSafe}, {Result: domain.ResultSafe}},
		3: {{Result: domain.ResultSafe}},
	}

	byCoins := Leaderboard(users, logs, SortByCoins)
	assert.Equal(t, []uint{5, 3, 7}, ids(byCoins), "equal coins fall back to id ascending")
	assert.Equal(t, []int{1, 2, 3}, ranks(byCoins))

	byScans := Leaderboard(users, logs, SortByScans)
	assert.Equal(t, []uint{7, 3, 5}, ids(byScans))
	assert.Equal(t, 1, byScans[0].FakesFound)
	assert.Zero(t, byScans[2].TotalScans)
}

func TestLeaderboard_Empty(t *testing.T) {
	assert.Empty(t, Leaderboard(nil, nil, SortByCoins))
	assert.Empty(t, Leaderboard([]domain.User{admin}, nil, SortByScans))
}

func ids(es []Entry) []uint {
	out := make([]uint, len(es))
	for i, e := range es {
		out[i] = e.UserID
	}
	return out
}

func ranks(es []Entry) []int {
	out := make([]int, len(es))
	for i, e := range es {
		out[i] = e.Rank
	}
	return out
}

func TestParseSort(t *testing.T) {
	for in, want := range map[string]SortMode{"": SortByCoins, "coins": SortByCoins, "scans": SortByScans} {
		got, err := ParseSort(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseSort("streak")
	assert.ErrorIs(t, err, ErrUnknownSort)
}

func TestFilterHistory(t *testing.T) {
	logs := seedLogs()
	assert.Len(t, FilterHistory(logs, FilterAll), 5)

	safe := FilterHistory(logs, FilterSafe)
	require.Len(t, safe, 3)
	assert.Equal(t, []uint{1, 3, 5}, []uint{safe[0].ID, safe[1].ID, safe[2].ID}, "order preserved")

	assert.Len(t, FilterHistory(logs, FilterFake), 1)
	assert.Len(t, FilterHistory(logs, FilterUncertain), 1)
	assert.Empty(t, FilterHistory(nil, FilterFake))
}

func TestParseFilter(t *testing.T) {
	for _, in := range []string{"all", "safe", "fake", "uncertain"} {
		f, err := ParseFilter(in)
		require.NoError(t, err)
		assert.Equal(t, Filter(in), f)
	}
	f, err := ParseFilter("")
	require.NoError(t, err)
	assert.Equal(t, FilterAll, f)
	_, err = ParseFilter("authentic")
	assert.ErrorIs(t, err, ErrUnknownFilter)
}

func TestSummarizeAndFakeRatio(t *testing.T) {
	s := Summarize(grandma, seedLogs())
	assert.Equal(t, ProfileStats{Coins: 250, Streak: 5, TotalScans: 5, SafeScans: 3, FakesFound: 1}, s)
	assert.Equal(t, 20, s.FakeRatio())

	assert.Zero(t, Summarize(admin, nil).FakeRatio(), "no scans means 0%")
	assert.Equal(t, 33, ProfileStats{TotalScans: 3, FakesFound: 1}.FakeRatio())
	assert.Equal(t, 67, ProfileStats{TotalScans: 3, FakesFound: 2}.FakeRatio())
}

func TestAchievements(t *testing.T) {
	unlocked, locked := Achievements(Summarize(grandma, seedLogs()))
	assert.Equal(t, []string{"first_scan", "scanner_5", "fake_finder", "streak_3"}, achievementIDs(unlocked))
	assert.Equal(t, []string{"scanner_10", "streak_7"}, achievementIDs(locked))

	unlocked, locked = Achievements(ProfileStats{})
	assert.Empty(t, unlocked)
	assert.Len(t, locked, 6)
}

func achievementIDs(as []Achievement) []string {
	out := make([]string, len(as))
	for i, a := range as {
		out[i] = a.ID
	}
	return out
}

func TestFamilyOverview(t *testing.T) {
	bo := domain.User{ID: 3, Username: "Bo", Role: domain.RolePlayer}
	cy := domain.User{ID: 4, Username: "Cy", Role: domain.RolePlayer}
	latest := map[uint]domain.ScanLog{
		2: {ID: 9, UserID: 2, Result: domain.ResultFake},
		3: {ID: 8, UserID: 3, Result: domain.ResultSafe},
	}

	members := FamilyOverview([]domain.User{grandma, bo, cy}, latest)
	require.Len(t, members, 3)
	assert.True(t, members[0].HasAlert)
	assert.Equal(t, uint(9), members[0].LatestScan.ID)
	assert.False(t, members[1].HasAlert)
	assert.Nil(t, members[2].LatestScan)
	assert.Equal(t, 1, CountAlerts(members))
}

func TestAge(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, "3 days ago", Age(now, now.Add(-72*time.Hour)))
	assert.Equal(t, "2 hours ago", Age(now, now.Add(-2*time.Hour)))
	assert.Empty(t, Age(now, time.Time{}))

	items := WithAge(now, seedLogs()[:1])
	require.Len(t, items, 1)
	assert.Equal(t, "1 week ago", items[0].Age)
	assert.Equal(t, uint(1), items[0].ID)
}
