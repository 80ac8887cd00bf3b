// Package leaderboard maps timed results onto a date-by-name grid and
// aggregates them back into ranked summaries.
//
// Layout of the grid:
//
//	row 1      header: (1,1) label, (1,2) reserved, (1,3+) participant names
//	rows 2+    one per logical date: (r,1) date label, (r,3+) seconds
//
// Rows and columns are allocated on first use and never move afterwards.
package leaderboard

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/Tiliavir/sheetboard/internal/grid"
	"github.com/Tiliavir/sheetboard/internal/timecalc"
)

const (
	HeaderRow       = 1
	FirstDateRow    = 2
	DateColumn      = 1
	ReservedColumn  = 2
	FirstNameColumn = 3

	// DefaultTopN is the number of ranked entries in a summary.
	DefaultTopN = 3
)

var tracer = otel.Tracer("github.com/Tiliavir/sheetboard/internal/leaderboard")

var (
	// ErrCorruptRowIndex marks a date column with a populated cell below an
	// empty one.
	ErrCorruptRowIndex = errors.New("corrupt row index")
	// ErrInvalidTime marks negative minutes or seconds.
	ErrInvalidTime = errors.New("invalid time")
	// ErrEmptyName marks an empty participant name.
	ErrEmptyName = errors.New("empty participant name")
)

// CorruptRowIndexError reports where the date column breaks contiguity.
type CorruptRowIndexError struct {
	// Gap is the first empty date row, Row the populated row found below it.
	Gap int
	Row int
}

func (e *CorruptRowIndexError) Error() string {
	return fmt.Sprintf("%v: date at row %d follows empty row %d", ErrCorruptRowIndex, e.Row, e.Gap)
}

func (e *CorruptRowIndexError) Is(target error) bool {
	return target == ErrCorruptRowIndex
}

// Engine resolves rows and columns against a grid store and records and
// summarizes results. Every call re-reads the grid; nothing is cached.
//
// Row and column allocation within one Engine is serialized. Separate
// processes writing the same grid can still race on allocation.
type Engine struct {
	store  grid.Store
	now    func() time.Time
	loc    *time.Location
	topN   int
	logger *log.Logger

	allocMu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the wall clock used for logical dates.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithLocation sets the time zone the cutoff hour is evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithTopN sets how many entries a summary ranks.
func WithTopN(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.topN = n
		}
	}
}

// WithLogger sets the logger for skipped cells and allocations.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Engine over store.
func New(store grid.Store, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		now:    time.Now,
		loc:    time.Local,
		topN:   DefaultTopN,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// LogicalDate returns the date a submission made right now counts toward.
func (e *Engine) LogicalDate() time.Time {
	return timecalc.LogicalDate(e.now().In(e.loc))
}

// Location returns the time zone dates are evaluated in.
func (e *Engine) Location() *time.Location {
	return e.loc
}
