package bingo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	appErr "bingo-service/pkg/errors"
)

// FreeSentinel is the wire value of the free center cell.
const FreeSentinel = "FREE"

type cellKind uint8

const (
	cellEmpty cellKind = iota
	cellNumber
	cellFree
)

// Cell is one grid position: a number, the FREE sentinel, or empty.
// On the wire it is an integer, the string "FREE", or null.
type Cell struct {
	kind  cellKind
	value int
}

func Number(n int) Cell { return Cell{kind: cellNumber, value: n} }
func Free() Cell        { return Cell{kind: cellFree} }
func Empty() Cell       { return Cell{} }

func (c Cell) IsNumber() bool { return c.kind == cellNumber }
func (c Cell) IsFree() bool   { return c.kind == cellFree }
func (c Cell) IsEmpty() bool  { return c.kind == cellEmpty }

// Value returns the number held by the cell.
func (c Cell) Value() (int, bool) {
	if c.kind != cellNumber {
		return 0, false
	}
	return c.value, true
}

func (c Cell) String() string {
	switch c.kind {
	case cellNumber:
		return fmt.Sprintf("%d", c.value)
	case cellFree:
		return FreeSentinel
	default:
		return "-"
	}
}

func (c Cell) MarshalJSON() ([]byte, error) {
	switch c.kind {
	case cellNumber:
		return json.Marshal(c.value)
	case cellFree:
		return json.Marshal(FreeSentinel)
	default:
		return []byte("null"), nil
	}
}

func (c *Cell) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = Empty()
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		switch strings.ToUpper(strings.TrimSpace(s)) {
		case FreeSentinel:
			*c = Free()
		case "":
			*c = Empty()
		default:
			return fmt.Errorf("%w: unexpected cell value %q", appErr.ErrInvalidLayout, s)
		}
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: unexpected cell value %s", appErr.ErrInvalidLayout, string(data))
	}
	*c = Number(n)
	return nil
}

// Grid is addressed as grid[row][col]. Row and column order is part of the
// wire contract and is never rearranged after generation.
type Grid [][]Cell

func NewGrid(rows, cols int) Grid {
	grid := make(Grid, rows)
	for r := range grid {
		grid[r] = make([]Cell, cols)
	}
	return grid
}

func (g Grid) Clone() Grid {
	out := make(Grid, len(g))
	for r, row := range g {
		out[r] = append([]Cell(nil), row...)
	}
	return out
}

// Layout is an immutable card: a format plus its grid.
type Layout struct {
	Format Format `json:"format"`
	Grid   Grid   `json:"grid"`
}

// DecodeGrid parses the stored wire form of a grid.
func DecodeGrid(raw []byte) (Grid, error) {
	var grid Grid
	if err := json.Unmarshal(raw, &grid); err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrInvalidLayout, err)
	}
	return grid, nil
}

// GridFromRows builds a grid from plain values: ints, "FREE", or nil.
// It is meant for fixtures and request payloads.
func GridFromRows(rows [][]any) (Grid, error) {
	grid := make(Grid, len(rows))
	for r, row := range rows {
		grid[r] = make([]Cell, len(row))
		for c, v := range row {
			switch val := v.(type) {
			case nil:
				grid[r][c] = Empty()
			case int:
				grid[r][c] = Number(val)
			case string:
				if !strings.EqualFold(val, FreeSentinel) {
					return nil, fmt.Errorf("%w: row %d column %d holds %q", appErr.ErrInvalidLayout, r+1, c+1, val)
				}
				grid[r][c] = Free()
			default:
				return nil, fmt.Errorf("%w: row %d column %d holds %T", appErr.ErrInvalidLayout, r+1, c+1, v)
			}
		}
	}
	return grid, nil
}

func (l Layout) Rows() int { return len(l.Grid) }

func (l Layout) Cols() int {
	if len(l.Grid) == 0 {
		return 0
	}
	return len(l.Grid[0])
}

// Cell returns the cell at row, col, or an empty cell out of bounds.
func (l Layout) Cell(row, col int) Cell {
	if row < 0 || row >= len(l.Grid) || col < 0 || col >= len(l.Grid[row]) {
		return Empty()
	}
	return l.Grid[row][col]
}

// Numbers lists every number on the card in row-major order.
func (l Layout) Numbers() []int {
	out := make([]int, 0, 25)
	for _, row := range l.Grid {
		for _, cell := range row {
			if n, ok := cell.Value(); ok {
				out = append(out, n)
			}
		}
	}
	return out
}

func (l Layout) Clone() Layout {
	return Layout{Format: l.Format, Grid: l.Grid.Clone()}
}

func (l Layout) isSquare() bool {
	if len(l.Grid) != 5 {
		return false
	}
	for _, row := range l.Grid {
		if len(row) != 5 {
			return false
		}
	}
	return true
}

// NumberSet is a set of ball numbers, typically the marked or drawn balls.
type NumberSet map[int]struct{}

func NewNumberSet(nums ...int) NumberSet {
	set := make(NumberSet, len(nums))
	for _, n := range nums {
		set[n] = struct{}{}
	}
	return set
}

func (s NumberSet) Has(n int) bool {
	_, ok := s[n]
	return ok
}

func (s NumberSet) Add(n int) {
	s[n] = struct{}{}
}

func (s NumberSet) Sorted() []int {
	out := make([]int, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}
