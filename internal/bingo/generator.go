package bingo

import (
	"fmt"
	"sort"
	"strings"

	appErr "bingo-service/pkg/errors"
	"bingo-service/pkg/utils/random"
)

const DefaultGenerationAttempts = 100

const (
	ninetyRows      = 3
	ninetyCols      = 9
	ninetyPerRow    = 5
	ninetyCells     = ninetyRows * ninetyPerRow
	ninetyMaxPerCol = 3
)

type GeneratorOption func(*Generator)

// WithMaxAttempts bounds the randomized 90-ball attempts before the
// constructive fallback runs. Zero goes straight to the fallback.
func WithMaxAttempts(n int) GeneratorOption {
	return func(g *Generator) {
		if n >= 0 {
			g.maxAttempts = n
		}
	}
}

// Generator produces card layouts from an injected random source.
type Generator struct {
	src         random.Source
	maxAttempts int
}

func NewGenerator(src random.Source, opts ...GeneratorOption) *Generator {
	if src == nil {
		src = random.NewSource()
	}
	g := &Generator{src: src, maxAttempts: DefaultGenerationAttempts}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a fresh layout for format. The result always passes Validate.
func (g *Generator) Generate(format Format) (Layout, error) {
	switch format {
	case Format75, Format85:
		return g.generateSquare(format), nil
	case Format90:
		return g.generateNinety()
	default:
		return Layout{}, fmt.Errorf("%w: %q", appErr.ErrInvalidFormat, string(format))
	}
}

func (g *Generator) generateSquare(format Format) Layout {
	grid := NewGrid(format.Rows(), format.Cols())
	for c, rg := range format.ColumnRanges() {
		nums := random.Sample(g.src, rg.Numbers(), format.Rows())
		for r, n := range nums {
			grid[r][c] = Number(n)
		}
	}
	grid[centerIndex][centerIndex] = Free()
	return Layout{Format: format, Grid: grid}
}

func (g *Generator) generateNinety() (Layout, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		if grid, ok := g.tryNinety(); ok {
			sortColumns(grid)
			return Layout{Format: Format90, Grid: grid}, nil
		}
	}

	grid := g.constructNinety()
	sortColumns(grid)
	layout := Layout{Format: Format90, Grid: grid}
	if res := Validate(layout); !res.IsValid {
		return Layout{}, fmt.Errorf("%w: %s", appErr.ErrGenerationExhausted, strings.Join(res.Errors, "; "))
	}
	return layout, nil
}

// tryNinety is the randomized path: five random columns per row, then empty
// columns are backfilled by moving a cell out of a column that has a spare.
func (g *Generator) tryNinety() (Grid, bool) {
	ranges := Format90.ColumnRanges()
	grid := NewGrid(ninetyRows, ninetyCols)
	used := make(map[int]bool, ninetyCells)

	for r := 0; r < ninetyRows; r++ {
		for _, c := range random.Sample(g.src, columnIndexes(ninetyCols), ninetyPerRow) {
			n, ok := g.pickUnused(ranges[c], used)
			if !ok {
				return nil, false
			}
			grid[r][c] = Number(n)
			used[n] = true
		}
	}

	for c := 0; c < ninetyCols; c++ {
		if columnCount(grid, c) > 0 {
			continue
		}
		if !g.backfillColumn(grid, c, ranges, used) {
			return nil, false
		}
	}

	for r := range grid {
		if rowCount(grid[r]) != ninetyPerRow {
			return nil, false
		}
	}
	return grid, true
}

type cellRef struct{ row, col int }

func (g *Generator) backfillColumn(grid Grid, col int, ranges []Range, used map[int]bool) bool {
	var donors []cellRef
	for r := range grid {
		if !grid[r][col].IsEmpty() {
			continue
		}
		for d := range grid[r] {
			if d != col && grid[r][d].IsNumber() && columnCount(grid, d) >= 2 {
				donors = append(donors, cellRef{row: r, col: d})
			}
		}
	}
	if len(donors) == 0 {
		return false
	}

	donor := donors[g.src.IntN(len(donors))]
	n, ok := g.pickUnused(ranges[col], used)
	if !ok {
		return false
	}
	old, _ := grid[donor.row][donor.col].Value()
	delete(used, old)
	grid[donor.row][donor.col] = Empty()
	grid[donor.row][col] = Number(n)
	used[n] = true
	return true
}

// constructNinety always yields a legal 90-ball card. Column counts in [1,3]
// are nudged until they sum to 15, then each column is placed on the rows with
// the most remaining room. With three rows of five and no column above three
// the greedy placement always fills every row exactly.
func (g *Generator) constructNinety() Grid {
	counts := make([]int, ninetyCols)
	total := 0
	for c := range counts {
		counts[c] = 1 + g.src.IntN(ninetyMaxPerCol)
		total += counts[c]
	}
	for total > ninetyCells {
		c := g.pickColumn(counts, func(n int) bool { return n > 1 })
		counts[c]--
		total--
	}
	for total < ninetyCells {
		c := g.pickColumn(counts, func(n int) bool { return n < ninetyMaxPerCol })
		counts[c]++
		total++
	}

	order := columnIndexes(ninetyCols)
	random.Shuffle(g.src, len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })

	ranges := Format90.ColumnRanges()
	grid := NewGrid(ninetyRows, ninetyCols)
	capacity := []int{ninetyPerRow, ninetyPerRow, ninetyPerRow}
	used := make(map[int]bool, ninetyCells)

	for _, c := range order {
		rows := []int{0, 1, 2}
		random.Shuffle(g.src, len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
		sort.SliceStable(rows, func(i, j int) bool { return capacity[rows[i]] > capacity[rows[j]] })

		for _, r := range rows[:counts[c]] {
			n, ok := g.pickUnused(ranges[c], used)
			if !ok {
				continue
			}
			grid[r][c] = Number(n)
			used[n] = true
			capacity[r]--
		}
	}
	return grid
}

func (g *Generator) pickColumn(counts []int, eligible func(int) bool) int {
	candidates := make([]int, 0, len(counts))
	for c, n := range counts {
		if eligible(n) {
			candidates = append(candidates, c)
		}
	}
	return candidates[g.src.IntN(len(candidates))]
}

func (g *Generator) pickUnused(rg Range, used map[int]bool) (int, bool) {
	free := make([]int, 0, rg.Max-rg.Min+1)
	for n := rg.Min; n <= rg.Max; n++ {
		if !used[n] {
			free = append(free, n)
		}
	}
	if len(free) == 0 {
		return 0, false
	}
	return free[g.src.IntN(len(free))], true
}

// sortColumns orders each column's numbers top to bottom without moving
// which rows are filled.
func sortColumns(grid Grid) {
	if len(grid) == 0 {
		return
	}
	for c := range grid[0] {
		var rows, nums []int
		for r := range grid {
			if n, ok := grid[r][c].Value(); ok {
				rows = append(rows, r)
				nums = append(nums, n)
			}
		}
		sort.Ints(nums)
		for i, r := range rows {
			grid[r][c] = Number(nums[i])
		}
	}
}

func columnIndexes(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func columnCount(grid Grid, col int) int {
	count := 0
	for r := range grid {
		if col < len(grid[r]) && grid[r][col].IsNumber() {
			count++
		}
	}
	return count
}

func rowCount(row []Cell) int {
	count := 0
	for _, cell := range row {
		if cell.IsNumber() {
			count++
		}
	}
	return count
}
