package bingo

import "fmt"

// ValidationResult is the wire shape returned by Validate.
type ValidationResult struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (r *ValidationResult) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Validate checks a layout against the structural rules of its format.
// Rows and columns are reported 1-based.
func Validate(layout Layout) ValidationResult {
	res := ValidationResult{Errors: []string{}, Warnings: []string{}}

	if !layout.Format.Valid() {
		res.errorf("unsupported format %q", string(layout.Format))
		return res
	}

	rows, cols := layout.Format.Rows(), layout.Format.Cols()
	if len(layout.Grid) != rows {
		res.errorf("card must have %d rows, got %d", rows, len(layout.Grid))
	}
	for r, row := range layout.Grid {
		if len(row) != cols {
			res.errorf("row %d must have %d columns, got %d", r+1, cols, len(row))
		}
	}
	if len(res.Errors) > 0 {
		return res
	}

	if layout.Format == Format90 {
		validateNinety(layout, &res)
	} else {
		validateSquare(layout, &res)
	}

	res.IsValid = len(res.Errors) == 0
	return res
}

func validateNinety(layout Layout, res *ValidationResult) {
	seen := make(map[int]bool)
	colCounts := make([]int, layout.Format.Cols())

	for r, row := range layout.Grid {
		filled := 0
		for c, cell := range row {
			if cell.IsFree() {
				res.errorf("row %d column %d: FREE is not allowed on 90-ball cards", r+1, c+1)
				continue
			}
			n, ok := cell.Value()
			if !ok {
				continue
			}
			filled++
			colCounts[c]++
			checkNumber(layout.Format, r, c, n, seen, res)
		}
		if filled != ninetyPerRow {
			res.errorf("row %d must have exactly %d numbers, got %d", r+1, ninetyPerRow, filled)
		}
	}

	for c, count := range colCounts {
		if count == 0 {
			res.errorf("column %d must have at least one number", c+1)
		}
	}
}

func validateSquare(layout Layout, res *ValidationResult) {
	seen := make(map[int]bool)

	for r, row := range layout.Grid {
		for c, cell := range row {
			center := r == centerIndex && c == centerIndex
			switch {
			case cell.IsFree():
				if !center {
					res.errorf("row %d column %d: FREE is only allowed in the center", r+1, c+1)
				}
			case cell.IsEmpty():
				res.errorf("row %d column %d is empty", r+1, c+1)
			default:
				n, _ := cell.Value()
				checkNumber(layout.Format, r, c, n, seen, res)
			}
		}
	}

	if !layout.Grid[centerIndex][centerIndex].IsFree() {
		res.warnf("center cell should be %s", FreeSentinel)
	}
}

func checkNumber(format Format, r, c, n int, seen map[int]bool, res *ValidationResult) {
	rg, _ := format.ColumnRange(c)
	if !rg.Contains(n) {
		res.errorf("row %d column %d: number %d outside range %d-%d", r+1, c+1, n, rg.Min, rg.Max)
	}
	if seen[n] {
		res.errorf("number %d appears more than once", n)
	}
	seen[n] = true
}
