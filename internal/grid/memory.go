package grid

import (
	"context"
	"sync"
)

type coord struct {
	row, col int
}

// Memory is an in-process Store. It is safe for concurrent use.
type Memory struct {
	mu    sync.RWMutex
	cells map[coord]string
}

// NewMemory returns an empty in-memory grid.
func NewMemory() *Memory {
	return &Memory{cells: make(map[coord]string)}
}

// NewMemoryFromRows builds a grid from row-major values, starting at (1,1).
func NewMemoryFromRows(rows [][]string) *Memory {
	m := NewMemory()
	for r, row := range rows {
		for c, v := range row {
			if v != "" {
				m.cells[coord{r + 1, c + 1}] = v
			}
		}
	}
	return m
}

func (m *Memory) ReadCell(_ context.Context, row, col int) (string, error) {
	if err := checkCoords("read cell", row, col); err != nil {
		return "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cells[coord{row, col}], nil
}

func (m *Memory) ReadRow(_ context.Context, row int) ([]string, error) {
	if err := checkCoords("read row", row, 1); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for k, v := range m.cells {
		if k.row != row {
			continue
		}
		for len(out) < k.col {
			out = append(out, "")
		}
		out[k.col-1] = v
	}
	return out, nil
}

func (m *Memory) ReadColumn(_ context.Context, col int) ([]string, error) {
	if err := checkCoords("read column", 1, col); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for k, v := range m.cells {
		if k.col != col {
			continue
		}
		for len(out) < k.row {
			out = append(out, "")
		}
		out[k.row-1] = v
	}
	return out, nil
}

func (m *Memory) WriteCell(_ context.Context, row, col int, text string) error {
	if err := checkCoords("write cell", row, col); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if text == "" {
		delete(m.cells, coord{row, col})
		return nil
	}
	m.cells[coord{row, col}] = text
	return nil
}

// Dimensions returns the highest populated row and column.
func (m *Memory) Dimensions() (rows, cols int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for k := range m.cells {
		rows = max(rows, k.row)
		cols = max(cols, k.col)
	}
	return rows, cols
}
