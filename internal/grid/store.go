// Package grid defines the two-dimensional cell storage the leaderboard is
// kept in, plus local implementations of it.
//
// Rows and columns are 1-based. Reads of cells that were never written
// return the empty string; row and column reads return the cells up to the
// last non-empty one, so trailing empty cells are never included.
package grid

import (
	"context"
	"errors"
	"fmt"
)

// Store is a remote or local grid of text cells.
type Store interface {
	ReadCell(ctx context.Context, row, col int) (string, error)
	ReadRow(ctx context.Context, row int) ([]string, error)
	ReadColumn(ctx context.Context, col int) ([]string, error)
	WriteCell(ctx context.Context, row, col int, text string) error
}

var (
	// ErrUnavailable marks transport or backend failures.
	ErrUnavailable = errors.New("grid store unavailable")
	// ErrAuth marks rejected or missing credentials.
	ErrAuth = errors.New("grid store authorization failed")
	// ErrOutOfRange marks a row or column below 1.
	ErrOutOfRange = errors.New("grid coordinates out of range")
)

// StoreError wraps a failed store call with the operation and coordinates.
// errors.Is matches both Kind and the underlying error.
type StoreError struct {
	Op   string
	Row  int
	Col  int
	Kind error
	Err  error
}

func (e *StoreError) Error() string {
	loc := ""
	switch {
	case e.Row > 0 && e.Col > 0:
		loc = fmt.Sprintf(" at (%d,%d)", e.Row, e.Col)
	case e.Row > 0:
		loc = fmt.Sprintf(" at row %d", e.Row)
	case e.Col > 0:
		loc = fmt.Sprintf(" at column %d", e.Col)
	}
	if e.Err == nil {
		return fmt.Sprintf("%s%s: %v", e.Op, loc, e.Kind)
	}
	return fmt.Sprintf("%s%s: %v: %v", e.Op, loc, e.Kind, e.Err)
}

func (e *StoreError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Cell returns the value at index i of a row or column read (1-based),
// or "" when the read stopped before it.
func Cell(cells []string, i int) string {
	if i < 1 || i > len(cells) {
		return ""
	}
	return cells[i-1]
}

func checkCoords(op string, row, col int) error {
	if row < 1 || col < 1 {
		return &StoreError{Op: op, Row: row, Col: col, Kind: ErrOutOfRange}
	}
	return nil
}
