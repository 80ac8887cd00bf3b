package timecalc

import (
	"fmt"
	"math"
	"time"
)

// CutoffHour is the local hour from which submissions count toward the
// following calendar day.
const CutoffHour = 22

// DateLayout is the layout of the date labels stored in the grid's first column.
const DateLayout = "2006-01-02"

// LogicalDate returns the calendar day a submission made at now counts
// toward: now's own date before CutoffHour, the next date from CutoffHour on.
// The result is midnight in now's location.
func LogicalDate(now time.Time) time.Time {
	day := StartOfDay(now)
	if now.Hour() >= CutoffHour {
		return day.AddDate(0, 0, 1)
	}
	return day
}

// DateLabel formats a date as stored in the grid.
func DateLabel(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDateLabel parses a grid date label in the given location.
func ParseDateLabel(label string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, label, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date label %q: %w", label, err)
	}
	return t, nil
}

// TotalSeconds converts a minutes:seconds pair into the value stored in a
// grid cell. Seconds above 59 are kept as given. Callers check the pair with
// ValidMinutesSeconds first.
func TotalSeconds(minutes, seconds int) int {
	return minutes*60 + seconds
}

// ValidMinutesSeconds reports whether both parts are non-negative and
// minutes*60+seconds fits in an int.
func ValidMinutesSeconds(minutes, seconds int) bool {
	if minutes < 0 || seconds < 0 {
		return false
	}
	return minutes <= (math.MaxInt-seconds)/60
}

// FormatSeconds formats a cell value the way leaderboard replies show it, e.g. "45s".
func FormatSeconds(seconds int) string {
	return fmt.Sprintf("%ds", seconds)
}

// FormatDuration formats seconds as a human-readable string like "1m 30s" or "45s".
func FormatDuration(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// StartOfDay returns 00:00:00 of the same day.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
