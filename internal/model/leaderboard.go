package model

import "time"

// TimeResult is a single timed submission written to the grid.
type TimeResult struct {
	Name    string    `json:"name"`
	Date    time.Time `json:"date"`
	Seconds int       `json:"seconds"`
	Row     int       `json:"row"`
	Column  int       `json:"column"`
}

// Entry is one populated cell of a leaderboard row.
type Entry struct {
	Name    string `json:"name"`
	Column  int    `json:"column"`
	Seconds int    `json:"seconds"`
}

// LeaderboardRow is the set of recorded entries for one logical date,
// in column order.
type LeaderboardRow struct {
	Date    string  `json:"date"`
	Row     int     `json:"row"`
	Entries []Entry `json:"entries"`
}

// Ranked is an entry with its 1-based position in a summary.
type Ranked struct {
	Rank    int    `json:"rank"`
	Name    string `json:"name"`
	Seconds int    `json:"seconds"`
}

// Summary is the ranked view of a leaderboard row.
type Summary struct {
	Date     string   `json:"date"`
	Ranking  []Ranked `json:"ranking"`
	Entrants int      `json:"entrants"`
	// Average is nil when no entries were recorded.
	Average *float64 `json:"average,omitempty"`
}
