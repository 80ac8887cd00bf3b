// Package bot answers chat commands against the leaderboard.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Tiliavir/sheetboard/internal/command"
	"github.com/Tiliavir/sheetboard/internal/grid"
	"github.com/Tiliavir/sheetboard/internal/leaderboard"
	"github.com/Tiliavir/sheetboard/internal/messenger"
	"github.com/Tiliavir/sheetboard/internal/model"
	"github.com/Tiliavir/sheetboard/internal/requestctx"
	"github.com/Tiliavir/sheetboard/internal/timecalc"
)

// Replies that do not depend on leaderboard data.
const (
	ReplyUnknown      = "I didn't quite get that, try again?"
	ReplyBadTime      = "Had trouble parsing your time, try again?"
	ReplyStoreFailed  = "Sorry, the leaderboard is unavailable right now. Try again later."
	ReplyAuthFailed   = "Sorry, I can't reach the leaderboard right now. Try again later."
	ReplyCorrupt      = "Sorry, the leaderboard sheet looks damaged. Ask an admin to check the date column."
	ReplyIdentity     = "Sorry, I couldn't look up your name. Try again later."
	ReplyUnexpected   = "Sorry, something went wrong. Try again later."
	helpCommandsReply = "'@time minutes:seconds' to log score, '@scores' to see top scores for today"
)

// Leaderboard is the part of the engine the bot drives.
type Leaderboard interface {
	LogicalDate() time.Time
	RecordTime(ctx context.Context, name string, minutes, seconds int) (model.TimeResult, error)
	Summarize(ctx context.Context, date time.Time) (model.Summary, error)
}

// IdentityLookup resolves a participant id to the name used as a column.
type IdentityLookup interface {
	DisplayName(ctx context.Context, participantID string) (string, error)
}

// Delivery sends a reply. Failures are the implementation's to log.
type Delivery interface {
	Send(ctx context.Context, recipientID, text string)
}

// Bot handles one inbound message at a time; it holds no per-request state.
type Bot struct {
	board    Leaderboard
	identity IdentityLookup
	delivery Delivery
	sheetURL string
	logger   *log.Logger
}

// Option configures a Bot.
type Option func(*Bot)

// WithSheetURL adds a link to the full sheet to the help reply.
func WithSheetURL(u string) Option {
	return func(b *Bot) {
		b.sheetURL = u
	}
}

// WithLogger sets the logger for failed requests.
func WithLogger(l *log.Logger) Option {
	return func(b *Bot) {
		if l != nil {
			b.logger = l
		}
	}
}

// New creates a Bot.
func New(board Leaderboard, identity IdentityLookup, delivery Delivery, opts ...Option) *Bot {
	b := &Bot{
		board:    board,
		identity: identity,
		delivery: delivery,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Handle parses text from senderID, runs it and sends the reply back to
// the sender.
func (b *Bot) Handle(ctx context.Context, senderID, _ string, text string) {
	b.delivery.Send(ctx, senderID, b.Reply(ctx, senderID, text))
}

// Reply runs one message and returns the reply text. It never fails; errors
// become apologies and are logged.
func (b *Bot) Reply(ctx context.Context, senderID, text string) string {
	switch cmd := command.Parse(text).(type) {
	case command.ShowHelp:
		return b.help()
	case command.BadTime:
		return ReplyBadTime
	case command.LogTime:
		return b.logTime(ctx, senderID, cmd)
	case command.ShowStats:
		return b.stats(ctx, senderID)
	default:
		return ReplyUnknown
	}
}

func (b *Bot) help() string {
	msg := helpCommandsReply
	if b.sheetURL != "" {
		msg += ", all scores logged at " + b.sheetURL
	}
	return msg + ". Send '@help' to see this message again"
}

func (b *Bot) logTime(ctx context.Context, senderID string, cmd command.LogTime) string {
	date := timecalc.DateLabel(b.board.LogicalDate())
	name, err := b.identity.DisplayName(ctx, senderID)
	if err != nil {
		return b.fail(ctx, "record", senderID, date, err)
	}

	res, err := b.board.RecordTime(ctx, name, cmd.Minutes, cmd.Seconds)
	if err != nil {
		if errors.Is(err, leaderboard.ErrInvalidTime) {
			return ReplyBadTime
		}
		return b.fail(ctx, "record", senderID, date, err)
	}
	stored := fmt.Sprintf("Stored time of %d minutes, %d seconds for %s",
		cmd.Minutes, cmd.Seconds, timecalc.DateLabel(res.Date))

	summary, err := b.board.Summarize(ctx, res.Date)
	if err != nil {
		b.logFailure(ctx, "summarize", senderID, date, err)
		return stored
	}
	return stored + "\n\n" + leaderboard.Format(summary)
}

func (b *Bot) stats(ctx context.Context, senderID string) string {
	today := b.board.LogicalDate()
	summary, err := b.board.Summarize(ctx, today)
	if err != nil {
		return b.fail(ctx, "summarize", senderID, timecalc.DateLabel(today), err)
	}
	return leaderboard.Format(summary)
}

// fail logs err and maps it to a user-facing reply.
func (b *Bot) fail(ctx context.Context, op, senderID, date string, err error) string {
	b.logFailure(ctx, op, senderID, date, err)
	switch {
	case errors.Is(err, leaderboard.ErrCorruptRowIndex):
		return ReplyCorrupt
	case errors.Is(err, grid.ErrAuth):
		return ReplyAuthFailed
	case errors.Is(err, grid.ErrUnavailable):
		return ReplyStoreFailed
	case errors.Is(err, messenger.ErrIdentityLookup):
		return ReplyIdentity
	default:
		return ReplyUnexpected
	}
}

func (b *Bot) logFailure(ctx context.Context, op, senderID, date string, err error) {
	b.logger.Printf("op=%s participant=%s date=%s request=%s: %v",
		op, senderID, date, requestctx.RequestIDFromContext(ctx), err)
}
