// Package volunteer derives service stats, levels, badges and leaderboard
// ranking from a volunteer's mission record.
package volunteer

import (
	"sort"
)

// Stats summarizes a volunteer's service record.
type Stats struct {
	MissionsCompleted int     `json:"missions_completed"`
	Rating            float64 `json:"rating"`
	CurrentStreakDays int     `json:"current_streak_days"`
	AvgResponseMins   int     `json:"avg_response_mins"`
}

// Level is a named rank on the mission ladder.
type Level struct {
	Name   string
	Number int

	// NextAt is the mission count for the next level, 0 at the top.
	NextAt int
}

var ladder = []Level{
	{Name: "Rookie", Number: 1, NextAt: 10},
	{Name: "Responder", Number: 2, NextAt: 25},
	{Name: "Rescuer", Number: 3, NextAt: 50},
	{Name: "Guardian", Number: 4, NextAt: 100},
	{Name: "Legend", Number: 5, NextAt: 0},
}

var ladderFloor = []int{0, 10, 25, 50, 100}

// LevelFor returns the level a mission count earns.
func LevelFor(missions int) Level {
	current := ladder[0]
	for i, floor := range ladderFloor {
		if missions >= floor {
			current = ladder[i]
		}
	}
	return current
}

// Badge is an achievement with an earned flag.
type Badge struct {
	Name        string
	Description string
	Earned      bool
}

// BadgesFor evaluates the badge set against a stats record. The slice order
// is fixed; callers show the first unearned badge as the next goal.
func BadgesFor(s Stats) []Badge {
	return []Badge{
		{"First Responder", "Complete your first mission", s.MissionsCompleted >= 1},
		{"Week Warrior", "Active for 7 consecutive days", s.CurrentStreakDays >= 7},
		{"People's Hero", "Receive 5-star rating", s.Rating >= 5},
		{"Quick Response", "Average response time under 10 minutes",
			s.MissionsCompleted > 0 && s.AvgResponseMins > 0 && s.AvgResponseMins < 10},
		{"Strength", "Complete 25 missions", s.MissionsCompleted >= 25},
		{"Mission Master", "Complete 50 missions", s.MissionsCompleted >= 50},
	}
}

// NextBadge returns the first unearned badge, if any.
func NextBadge(badges []Badge) (Badge, bool) {
	for _, b := range badges {
		if !b.Earned {
			return b, true
		}
	}
	return Badge{}, false
}

// Entry is one leaderboard row.
type Entry struct {
	Name     string
	Missions int
	Rating   float64
	IsUser   bool

	Rank  int
	Medal string
}

var medals = []string{"🏆", "🥈", "🥉"}

// Rank orders entries by missions completed, rating breaking ties, and
// assigns ranks and podium medals.
func Rank(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Missions != out[j].Missions {
			return out[i].Missions > out[j].Missions
		}
		return out[i].Rating > out[j].Rating
	})
	for i := range out {
		out[i].Rank = i + 1
		if i < len(medals) {
			out[i].Medal = medals[i]
		} else {
			out[i].Medal = ""
		}
	}
	return out
}
