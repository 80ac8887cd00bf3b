// Package command turns chat message text into one of a closed set of
// commands. Parsing never fails: malformed input becomes a BadTime or
// Unknown value.
package command

import (
	"strconv"
	"strings"

	"github.com/Tiliavir/sheetboard/internal/timecalc"
)

const (
	TimePrefix   = "@time"
	ScoresPrefix = "@scores"
	HelpPrefix   = "@help"
)

// Command is one of LogTime, BadTime, ShowStats, ShowHelp or Unknown.
type Command interface {
	command()
}

// LogTime records minutes:seconds for the sender.
type LogTime struct {
	Minutes int
	Seconds int
}

// BadTime is a time command whose argument could not be parsed.
type BadTime struct {
	Arg string
}

// ShowStats asks for today's leaderboard.
type ShowStats struct{}

// ShowHelp asks for usage instructions.
type ShowHelp struct{}

// Unknown is any other text.
type Unknown struct {
	Text string
}

func (LogTime) command()   {}
func (BadTime) command()   {}
func (ShowStats) command() {}
func (ShowHelp) command()  {}
func (Unknown) command()   {}

// Parse classifies a message by its leading keyword.
func Parse(text string) Command {
	trimmed := strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(trimmed, TimePrefix):
		arg := strings.TrimSpace(strings.TrimPrefix(trimmed, TimePrefix))
		minutes, seconds, ok := ParseMinutesSeconds(arg)
		if !ok {
			return BadTime{Arg: arg}
		}
		return LogTime{Minutes: minutes, Seconds: seconds}
	case strings.HasPrefix(trimmed, ScoresPrefix):
		return ShowStats{}
	case strings.HasPrefix(trimmed, HelpPrefix):
		return ShowHelp{}
	default:
		return Unknown{Text: text}
	}
}

// ParseMinutesSeconds parses "M:S" with non-negative integer parts whose
// total in seconds fits in an int. Seconds may exceed 59.
func ParseMinutesSeconds(s string) (minutes, seconds int, ok bool) {
	m, sec, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found {
		return 0, 0, false
	}
	minutes, err := strconv.Atoi(m)
	if err != nil || minutes < 0 {
		return 0, 0, false
	}
	seconds, err = strconv.Atoi(sec)
	if err != nil || !timecalc.ValidMinutesSeconds(minutes, seconds) {
		return 0, 0, false
	}
	return minutes, seconds, true
}
