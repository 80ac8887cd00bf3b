package leaderboard_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/sheetboard/internal/grid"
	"github.com/Tiliavir/sheetboard/internal/leaderboard"
	"github.com/Tiliavir/sheetboard/internal/model"
)

var quiet = log.New(io.Discard, "", 0)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newEngine(store grid.Store, now time.Time) *leaderboard.Engine {
	return leaderboard.New(store,
		leaderboard.WithClock(fixedClock(now)),
		leaderboard.WithLocation(time.UTC),
		leaderboard.WithLogger(quiet),
	)
}

var day = time.Date(2026, 2, 27, 12, 0, 0, 0, time.UTC)

func TestResolveRowAllocatesOnce(t *testing.T) {
	ctx := context.Background()
	store := grid.NewMemory()
	e := newEngine(store, day)

	row, err := e.ResolveRow(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, leaderboard.FirstDateRow, row)

	label, err := store.ReadCell(ctx, row, leaderboard.DateColumn)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-27", label)

	again, err := e.ResolveRow(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, row, again)

	rows, _ := store.Dimensions()
	assert.Equal(t, 2, rows)
}

func TestResolveRowAppendsNewDates(t *testing.T) {
	ctx := context.Background()
	store := grid.NewMemoryFromRows([][]string{
		{"", "", "alice"},
		{"2026-02-25", "", "80"},
		{"2026-02-26", "", "70"},
	})
	e := newEngine(store, day)

	row, err := e.ResolveRow(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, 4, row)

	existing, err := e.ResolveRow(ctx, time.Date(2026, 2, 25, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 2, existing)
}

func TestResolveRowRejectsGap(t *testing.T) {
	ctx := context.Background()
	store := grid.NewMemoryFromRows([][]string{
		{"", "", "alice"},
		{"2026-02-25"},
		{""},
		{"2026-02-26"},
	})
	e := newEngine(store, day)

	_, err := e.ResolveRow(ctx, day)
	require.Error(t, err)
	assert.ErrorIs(t, err, leaderboard.ErrCorruptRowIndex)

	var corrupt *leaderboard.CorruptRowIndexError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, 3, corrupt.Gap)
	assert.Equal(t, 4, corrupt.Row)

	free, err := store.ReadCell(ctx, 3, leaderboard.DateColumn)
	require.NoError(t, err)
	assert.Empty(t, free, "no row may be allocated on a corrupt index")
}

func TestResolveColumn(t *testing.T) {
	ctx := context.Background()
	store := grid.NewMemory()
	e := newEngine(store, day)

	alice, err := e.ResolveColumn(ctx, "Alice")
	require.NoError(t, err)
	assert.Equal(t, leaderboard.FirstNameColumn, alice)

	bob, err := e.ResolveColumn(ctx, "Bob")
	require.NoError(t, err)
	assert.Equal(t, leaderboard.FirstNameColumn+1, bob)

	again, err := e.ResolveColumn(ctx, "Alice")
	require.NoError(t, err)
	assert.Equal(t, alice, again)

	lower, err := e.ResolveColumn(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, leaderboard.FirstNameColumn+2, lower, "names match exactly")

	header, err := store.ReadRow(ctx, leaderboard.HeaderRow)
	require.NoError(t, err)
	assert.Equal(t, []string{"", "", "Alice", "Bob", "alice"}, header)
}

func TestResolveColumnFillsUnusedSlot(t *testing.T) {
	ctx := context.Background()
	store := grid.NewMemoryFromRows([][]string{{"", "", "Alice", "", "Carol"}})
	e := newEngine(store, day)

	col, err := e.ResolveColumn(ctx, "Bob")
	require.NoError(t, err)
	assert.Equal(t, 4, col)

	carol, err := e.ResolveColumn(ctx, "Carol")
	require.NoError(t, err)
	assert.Equal(t, 5, carol)
}

func TestResolveColumnReusedSlotInheritsCells(t *testing.T) {
	ctx := context.Background()
	store := grid.NewMemoryFromRows([][]string{
		{"", "", "Alice", "", "Carol"},
		{"2026-02-27", "", "80", "65", "90"},
	})
	var logs bytes.Buffer
	e := leaderboard.New(store,
		leaderboard.WithClock(fixedClock(day)),
		leaderboard.WithLocation(time.UTC),
		leaderboard.WithLogger(log.New(&logs, "", 0)),
	)

	before, err := e.Summarize(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, 2, before.Entrants, "cell under an empty header is skipped")

	col, err := e.ResolveColumn(ctx, "Bob")
	require.NoError(t, err)
	assert.Equal(t, 4, col)
	assert.Contains(t, logs.String(), `column 4 already holds 1 time(s) from an unnamed header; they now count for "Bob"`)

	after, err := e.Summarize(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, 3, after.Entrants)
	assert.Equal(t, model.Ranked{Rank: 1, Name: "Bob", Seconds: 65}, after.Ranking[0])
}

func TestResolveColumnEmptyName(t *testing.T) {
	e := newEngine(grid.NewMemory(), day)
	_, err := e.ResolveColumn(context.Background(), "")
	assert.ErrorIs(t, err, leaderboard.ErrEmptyName)
}

func TestRecordThenSummarize(t *testing.T) {
	tests := []struct {
		minutes, seconds int
	}{
		{0, 0},
		{0, 59},
		{1, 30},
		{2, 75},
		{12, 3},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d:%d", tt.minutes, tt.seconds), func(t *testing.T) {
			ctx := context.Background()
			e := newEngine(grid.NewMemory(), day)

			res, err := e.RecordTime(ctx, "Alice", tt.minutes, tt.seconds)
			require.NoError(t, err)
			want := tt.minutes*60 + tt.seconds
			assert.Equal(t, want, res.Seconds)

			summary, err := e.Summarize(ctx, e.LogicalDate())
			require.NoError(t, err)
			require.Len(t, summary.Ranking, 1)
			assert.Equal(t, model.Ranked{Rank: 1, Name: "Alice", Seconds: want}, summary.Ranking[0])
		})
	}
}

func TestRecordTimeOverwrites(t *testing.T) {
	ctx := context.Background()
	e := newEngine(grid.NewMemory(), day)

	_, err := e.RecordTime(ctx, "Alice", 2, 0)
	require.NoError(t, err)
	_, err = e.RecordTime(ctx, "Alice", 1, 5)
	require.NoError(t, err)

	summary, err := e.Summarize(ctx, e.LogicalDate())
	require.NoError(t, err)
	require.Len(t, summary.Ranking, 1)
	assert.Equal(t, 65, summary.Ranking[0].Seconds)
	require.NotNil(t, summary.Average)
	assert.InDelta(t, 65.0, *summary.Average, 1e-9)
}

func TestRecordTimeRejectsNegative(t *testing.T) {
	ctx := context.Background()
	store := grid.NewMemory()
	e := newEngine(store, day)

	_, err := e.RecordTime(ctx, "Alice", -1, 10)
	assert.ErrorIs(t, err, leaderboard.ErrInvalidTime)
	_, err = e.RecordTime(ctx, "Alice", 1, -10)
	assert.ErrorIs(t, err, leaderboard.ErrInvalidTime)

	rows, cols := store.Dimensions()
	assert.Zero(t, rows)
	assert.Zero(t, cols)
}

func TestRecordTimeRejectsOverflow(t *testing.T) {
	ctx := context.Background()
	store := grid.NewMemory()
	e := newEngine(store, day)

	res, err := e.RecordTime(ctx, "Alice", 1, 30)
	require.NoError(t, err)

	_, err = e.RecordTime(ctx, "Alice", math.MaxInt/60+1, 0)
	assert.ErrorIs(t, err, leaderboard.ErrInvalidTime)
	_, err = e.RecordTime(ctx, "Alice", math.MaxInt/60, 60)
	assert.ErrorIs(t, err, leaderboard.ErrInvalidTime)

	v, err := store.ReadCell(ctx, res.Row, res.Column)
	require.NoError(t, err)
	assert.Equal(t, "90", v, "earlier time is kept")
}

func TestSummarizeAverageOfHugeCells(t *testing.T) {
	big := strconv.Itoa(math.MaxInt - 1)
	store := grid.NewMemoryFromRows([][]string{
		{"", "", "A", "B"},
		{"2026-02-27", "", big, big},
	})
	e := newEngine(store, day)

	summary, err := e.Summarize(context.Background(), day)
	require.NoError(t, err)
	require.NotNil(t, summary.Average)
	assert.Positive(t, *summary.Average)
	assert.InEpsilon(t, float64(math.MaxInt-1), *summary.Average, 1e-9)
}

func TestRecordTimeRollover(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{"before cutoff", time.Date(2026, 2, 27, 21, 59, 0, 0, time.UTC), "2026-02-27"},
		{"after cutoff", time.Date(2026, 2, 27, 22, 1, 0, 0, time.UTC), "2026-02-28"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := grid.NewMemory()
			e := newEngine(store, tt.now)

			res, err := e.RecordTime(ctx, "Alice", 1, 0)
			require.NoError(t, err)

			label, err := store.ReadCell(ctx, res.Row, leaderboard.DateColumn)
			require.NoError(t, err)
			assert.Equal(t, tt.want, label)
		})
	}
}

func TestRecordTimeUsesLocation(t *testing.T) {
	ctx := context.Background()
	store := grid.NewMemory()
	berlin := time.FixedZone("CET", 3600)
	// 21:30 UTC is 22:30 at UTC+1, past the cutoff.
	e := leaderboard.New(store,
		leaderboard.WithClock(fixedClock(time.Date(2026, 2, 27, 21, 30, 0, 0, time.UTC))),
		leaderboard.WithLocation(berlin),
		leaderboard.WithLogger(quiet),
	)

	res, err := e.RecordTime(ctx, "Alice", 1, 0)
	require.NoError(t, err)
	label, err := store.ReadCell(ctx, res.Row, leaderboard.DateColumn)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-28", label)
}

func TestSummarizeTieBreaksByColumn(t *testing.T) {
	ctx := context.Background()
	e := newEngine(grid.NewMemory(), day)

	for _, r := range []struct {
		name    string
		seconds int
	}{{"A", 90}, {"B", 45}, {"C", 45}} {
		_, err := e.RecordTime(ctx, r.name, 0, r.seconds)
		require.NoError(t, err)
	}

	summary, err := e.Summarize(ctx, e.LogicalDate())
	require.NoError(t, err)
	assert.Equal(t, []model.Ranked{
		{Rank: 1, Name: "B", Seconds: 45},
		{Rank: 2, Name: "C", Seconds: 45},
		{Rank: 3, Name: "A", Seconds: 90},
	}, summary.Ranking)
	require.NotNil(t, summary.Average)
	assert.Equal(t, "60.00", fmt.Sprintf("%.2f", *summary.Average))

	assert.Equal(t, "Top times for 2026-02-27:\n#1 B 45s\n#2 C 45s\n#3 A 90s\nAverage: 60.00s",
		leaderboard.Format(summary))
}

func TestSummarizeTieOrderIgnoresNameText(t *testing.T) {
	ctx := context.Background()
	e := newEngine(grid.NewMemory(), day)

	_, err := e.RecordTime(ctx, "Zed", 0, 30)
	require.NoError(t, err)
	_, err = e.RecordTime(ctx, "Amy", 0, 30)
	require.NoError(t, err)

	summary, err := e.Summarize(ctx, e.LogicalDate())
	require.NoError(t, err)
	require.Len(t, summary.Ranking, 2)
	assert.Equal(t, "Zed", summary.Ranking[0].Name)
	assert.Equal(t, "Amy", summary.Ranking[1].Name)
}

func TestSummarizeEmptyRow(t *testing.T) {
	ctx := context.Background()
	store := grid.NewMemoryFromRows([][]string{{"", "", "Alice"}})
	e := newEngine(store, day)

	summary, err := e.Summarize(ctx, day)
	require.NoError(t, err)
	assert.Empty(t, summary.Ranking)
	assert.Nil(t, summary.Average)
	assert.Zero(t, summary.Entrants)
	assert.Equal(t, "No times logged for 2026-02-27 yet.", leaderboard.Format(summary))

	label, err := store.ReadCell(ctx, leaderboard.FirstDateRow, leaderboard.DateColumn)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-27", label, "summarize allocates today's row")
}

func TestSummarizeTopThreeAverageOverAll(t *testing.T) {
	ctx := context.Background()
	store := grid.NewMemoryFromRows([][]string{
		{"", "", "A", "B", "C", "D", "E"},
		{"2026-02-27", "", "50", "10", "40", "20", "30"},
	})
	e := newEngine(store, day)

	summary, err := e.Summarize(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Entrants)
	assert.Equal(t, []model.Ranked{
		{Rank: 1, Name: "B", Seconds: 10},
		{Rank: 2, Name: "D", Seconds: 20},
		{Rank: 3, Name: "E", Seconds: 30},
	}, summary.Ranking)
	require.NotNil(t, summary.Average)
	assert.InDelta(t, 30.0, *summary.Average, 1e-9)
}

func TestSummarizeSkipsUnusableCells(t *testing.T) {
	ctx := context.Background()
	store := grid.NewMemoryFromRows([][]string{
		{"", "", "A", "", "C", "D"},
		{"2026-02-27", "999", "n/a", "15", " 40 ", "-3"},
	})
	e := newEngine(store, day)

	summary, err := e.Summarize(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, []model.Ranked{{Rank: 1, Name: "C", Seconds: 40}}, summary.Ranking)
}

func TestSummarizeTopNOption(t *testing.T) {
	ctx := context.Background()
	store := grid.NewMemoryFromRows([][]string{
		{"", "", "A", "B", "C"},
		{"2026-02-27", "", "3", "2", "1"},
	})
	e := leaderboard.New(store,
		leaderboard.WithClock(fixedClock(day)),
		leaderboard.WithLocation(time.UTC),
		leaderboard.WithLogger(quiet),
		leaderboard.WithTopN(1),
	)

	summary, err := e.Summarize(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, []model.Ranked{{Rank: 1, Name: "C", Seconds: 1}}, summary.Ranking)
	assert.Equal(t, 3, summary.Entrants)
}

func TestConcurrentRecordsShareOneRow(t *testing.T) {
	ctx := context.Background()
	store := grid.NewMemory()
	e := newEngine(store, day)

	names := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	var wg sync.WaitGroup
	errs := make(chan error, len(names))
	for i, name := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.RecordTime(ctx, name, 0, 10+i)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	dates, err := store.ReadColumn(ctx, leaderboard.DateColumn)
	require.NoError(t, err)
	assert.Equal(t, []string{"", "2026-02-27"}, dates)

	roster, err := e.Roster(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(names), roster.Len())

	summary, err := e.Summarize(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, len(names), summary.Entrants)
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	store := grid.NewMemoryFromRows([][]string{
		{"", "", "A", "B"},
		{"2026-02-25", "", "80"},
		{"2026-02-26", "", "", "70"},
	})
	e := newEngine(store, day)

	history, err := e.History(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.LeaderboardRow{
		{Date: "2026-02-25", Row: 2, Entries: []model.Entry{{Name: "A", Column: 3, Seconds: 80}}},
		{Date: "2026-02-26", Row: 3, Entries: []model.Entry{{Name: "B", Column: 4, Seconds: 70}}},
	}, history)

	rows, _ := store.Dimensions()
	assert.Equal(t, 3, rows, "history never allocates")
}

func TestHistorySkipsMalformedLabels(t *testing.T) {
	ctx := context.Background()
	store := grid.NewMemoryFromRows([][]string{
		{"", "", "A"},
		{"2026-02-25", "", "80"},
		{"week 9", "", "75"},
		{"2026-02-26", "", "70"},
	})
	var logs bytes.Buffer
	e := leaderboard.New(store,
		leaderboard.WithClock(fixedClock(day)),
		leaderboard.WithLocation(time.UTC),
		leaderboard.WithLogger(log.New(&logs, "", 0)),
	)

	history, err := e.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "2026-02-25", history[0].Date)
	assert.Equal(t, "2026-02-26", history[1].Date)
	assert.Contains(t, logs.String(), "skipping row 3")
}

type failingStore struct {
	grid.Store
	err error
}

func (f failingStore) ReadColumn(context.Context, int) ([]string, error) {
	return nil, f.err
}

func TestStoreFailurePropagates(t *testing.T) {
	ctx := context.Background()
	cause := &grid.StoreError{Op: "read column", Col: 1, Kind: grid.ErrAuth, Err: errors.New("401")}
	e := newEngine(failingStore{Store: grid.NewMemory(), err: cause}, day)

	_, err := e.RecordTime(ctx, "Alice", 1, 0)
	assert.ErrorIs(t, err, grid.ErrAuth)

	_, err = e.Summarize(ctx, day)
	assert.ErrorIs(t, err, grid.ErrAuth)
}
