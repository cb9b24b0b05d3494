package bingo

import (
	"fmt"
	"strconv"
	"strings"

	appErr "bingo-service/pkg/errors"
)

// Format is the ball-count variant of a game. It fixes the grid shape and
// the numeric range of every column.
type Format string

const (
	Format75 Format = "75"
	Format85 Format = "85"
	Format90 Format = "90"
)

// Formats lists every supported format in ascending ball count.
var Formats = []Format{Format75, Format85, Format90}

// Range is an inclusive interval of ball numbers.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

func (r Range) Contains(n int) bool {
	return n >= r.Min && n <= r.Max
}

func (r Range) Numbers() []int {
	out := make([]int, 0, r.Max-r.Min+1)
	for n := r.Min; n <= r.Max; n++ {
		out = append(out, n)
	}
	return out
}

// Column 8 of the 90-ball card starts at 80, so 80 is legal in two columns.
// Generation keeps numbers unique card-wide to stay inside the validator.
var columnRanges = map[Format][]Range{
	Format75: {{1, 15}, {16, 30}, {31, 45}, {46, 60}, {61, 75}},
	Format85: {{1, 16}, {17, 32}, {33, 48}, {49, 64}, {65, 80}},
	Format90: {
		{1, 10}, {11, 20}, {21, 30}, {31, 40}, {41, 50},
		{51, 60}, {61, 70}, {71, 80}, {80, 90},
	},
}

var maxBalls = map[Format]int{
	Format75: 75,
	Format85: 85,
	Format90: 90,
}

func ParseFormat(s string) (Format, error) {
	f := Format(strings.TrimSpace(s))
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", appErr.ErrInvalidFormat, s)
	}
	return f, nil
}

func (f Format) Valid() bool {
	_, ok := maxBalls[f]
	return ok
}

// MaxBall is the highest number the draw can produce for f.
func (f Format) MaxBall() int {
	return maxBalls[f]
}

func (f Format) Rows() int {
	if f == Format90 {
		return 3
	}
	return 5
}

func (f Format) Cols() int {
	if f == Format90 {
		return 9
	}
	return 5
}

// HasFreeCenter reports whether the center cell holds the FREE sentinel.
func (f Format) HasFreeCenter() bool {
	return f == Format75 || f == Format85
}

func (f Format) ColumnRange(col int) (Range, bool) {
	ranges := columnRanges[f]
	if col < 0 || col >= len(ranges) {
		return Range{}, false
	}
	return ranges[col], true
}

func (f Format) ColumnRanges() []Range {
	ranges := columnRanges[f]
	out := make([]Range, len(ranges))
	copy(out, ranges)
	return out
}

const centerIndex = 2

var columnLetters = []string{"B", "I", "N", "G", "O"}

var letterColors = map[string]string{
	"B": "#0066CC",
	"I": "#FF6B35",
	"N": "#4CAF50",
	"G": "#9C27B0",
	"O": "#F44336",
}

const defaultBallColor = "#666666"

// BallLetter returns the B/I/N/G/O column letter of n, or "" when the format
// has no letters (90-ball) or n falls outside every lettered column.
func BallLetter(f Format, n int) string {
	if !f.HasFreeCenter() {
		return ""
	}
	for i, r := range columnRanges[f] {
		if r.Contains(n) {
			return columnLetters[i]
		}
	}
	return ""
}

// BallLabel renders a drawn ball the way callers announce it, e.g. "B-7".
func BallLabel(f Format, n int) string {
	if letter := BallLetter(f, n); letter != "" {
		return letter + "-" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

func BallColor(f Format, n int) string {
	if color, ok := letterColors[BallLetter(f, n)]; ok {
		return color
	}
	return defaultBallColor
}
