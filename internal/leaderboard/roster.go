package leaderboard

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Roster is the append-only mapping of participant names to grid columns,
// read from the header row. Names match exactly; no case folding.
type Roster struct {
	// slots[i] is the header cell of column FirstNameColumn+i.
	slots []string
	index map[string]int
}

// NewRoster builds a Roster from a full header row read.
// When a name appears twice the leftmost column wins.
func NewRoster(header []string) *Roster {
	r := &Roster{index: make(map[string]int)}
	if len(header) >= FirstNameColumn {
		r.slots = append(r.slots, header[FirstNameColumn-1:]...)
	}
	for i, name := range r.slots {
		if name == "" {
			continue
		}
		if _, ok := r.index[name]; !ok {
			r.index[name] = FirstNameColumn + i
		}
	}
	return r
}

// Column returns the column assigned to name.
func (r *Roster) Column(name string) (int, bool) {
	col, ok := r.index[name]
	return col, ok
}

// Name returns the header name of col, or "" for an unused column.
func (r *Roster) Name(col int) string {
	i := col - FirstNameColumn
	if i < 0 || i >= len(r.slots) {
		return ""
	}
	return r.slots[i]
}

// Names returns the assigned names in column order.
func (r *Roster) Names() []string {
	names := make([]string, 0, len(r.index))
	for i, name := range r.slots {
		if name != "" && r.index[name] == FirstNameColumn+i {
			names = append(names, name)
		}
	}
	return names
}

// Len returns the number of distinct names.
func (r *Roster) Len() int {
	return len(r.index)
}

// NextColumn returns the first unused header column. An empty header cell
// between names counts as unused, so it is handed out before the columns
// past the last name.
func (r *Roster) NextColumn() int {
	for i, name := range r.slots {
		if name == "" {
			return FirstNameColumn + i
		}
	}
	return FirstNameColumn + len(r.slots)
}

func (r *Roster) assign(name string) int {
	col := r.NextColumn()
	for len(r.slots) <= col-FirstNameColumn {
		r.slots = append(r.slots, "")
	}
	r.slots[col-FirstNameColumn] = name
	r.index[name] = col
	return col
}

// Roster reads the current header row.
func (e *Engine) Roster(ctx context.Context) (*Roster, error) {
	header, err := e.store.ReadRow(ctx, HeaderRow)
	if err != nil {
		return nil, fmt.Errorf("reading header row: %w", err)
	}
	return NewRoster(header), nil
}

// ResolveColumn returns the column for name, writing name into the first
// unused header column when it has none yet.
//
// A reused interior slot may already hold times in date rows, e.g. after
// someone cleared a header cell by hand. Those cells were skipped while the
// header was empty and count for name from now on; the allocation logs how
// many there are.
func (e *Engine) ResolveColumn(ctx context.Context, name string) (int, error) {
	if name == "" {
		return 0, ErrEmptyName
	}
	ctx, span := tracer.Start(ctx, "leaderboard.ResolveColumn",
		trace.WithAttributes(attribute.String("leaderboard.name", name)))
	defer span.End()

	e.allocMu.Lock()
	defer e.allocMu.Unlock()

	roster, err := e.Roster(ctx)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	if col, ok := roster.Column(name); ok {
		span.SetAttributes(attribute.Int("leaderboard.column", col))
		return col, nil
	}

	col := roster.assign(name)
	if err := e.store.WriteCell(ctx, HeaderRow, col, name); err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("allocating column %d for %q: %w", col, name, err)
	}
	e.logger.Printf("allocated column %d for %q", col, name)
	e.warnOrphans(ctx, col, name)
	span.SetAttributes(attribute.Int("leaderboard.column", col), attribute.Bool("leaderboard.allocated", true))
	return col, nil
}

// warnOrphans logs data cells already present in a freshly named column.
func (e *Engine) warnOrphans(ctx context.Context, col int, name string) {
	cells, err := e.store.ReadColumn(ctx, col)
	if err != nil {
		e.logger.Printf("checking column %d for earlier times: %v", col, err)
		return
	}
	n := 0
	for r := FirstDateRow; r <= len(cells); r++ {
		if cells[r-1] != "" {
			n++
		}
	}
	if n > 0 {
		e.logger.Printf("column %d already holds %d time(s) from an unnamed header; they now count for %q", col, n, name)
	}
}
