package report

// Achievement is a badge earned from profile counters.
type Achievement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`

	earned func(ProfileStats) bool
}

var achievements = []Achievement{
	{"first_scan", "First Scan", "Complete your first scan", func(s ProfileStats) bool { return s.TotalScans >= 1 }},
	{"scanner_5", "Vigilant", "Complete 5 scans", func(s ProfileStats) bool { return s.TotalScans >= 5 }},
	{"scanner_10", "Guardian", "Complete 10 scans", func(s ProfileStats) bool { return s.TotalScans >= 10 }},
	{"fake_finder", "Fake Finder", "Detect your first deepfake", func(s ProfileStats) bool { return s.FakesFound >= 1 }},
	{"streak_3", "Consistent", "Maintain a 3-day streak", func(s ProfileStats) bool { return s.Streak >= 3 }},
	{"streak_7", "Dedicated", "Maintain a 7-day streak", func(s ProfileStats) bool { return s.Streak >= 7 }},
}

// Achievements splits every badge into unlocked and locked, in definition order.
func Achievements(s ProfileStats) (unlocked, locked []Achievement) {
	unlocked, locked = []Achievement{}, []Achievement{}
	for _, a := range achievements {
		if a.earned(s) {
			unlocked = append(unlocked, a)
		} else {
			locked = append(locked, a)
		}
	}
	return unlocked, locked
}
