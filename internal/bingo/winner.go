package bingo

import "fmt"

// WinnerResult is the ad-hoc winner shape: every built-in line the drawn
// balls complete, plus which card numbers are and are not marked.
type WinnerResult struct {
	IsWinner        bool     `json:"is_winner"`
	WinningPatterns []string `json:"winning_patterns"`
	MarkedNumbers   []int    `json:"marked_numbers"`
	UnmarkedNumbers []int    `json:"unmarked_numbers"`
}

// CheckWinner runs the built-in lines for the layout's format without
// consulting any pattern registry.
func CheckWinner(layout Layout, drawn NumberSet) WinnerResult {
	res := WinnerResult{
		WinningPatterns: []string{},
		MarkedNumbers:   []int{},
		UnmarkedNumbers: []int{},
	}
	for _, n := range layout.Numbers() {
		if drawn.Has(n) {
			res.MarkedNumbers = append(res.MarkedNumbers, n)
		} else {
			res.UnmarkedNumbers = append(res.UnmarkedNumbers, n)
		}
	}

	if layout.Format == Format90 {
		res.WinningPatterns = ninetyLines(layout, drawn)
	} else {
		res.WinningPatterns = squareLines(layout, drawn)
	}
	res.IsWinner = len(res.WinningPatterns) > 0
	return res
}

func squareLines(layout Layout, drawn NumberSet) []string {
	rows, cols := layout.Rows(), layout.Cols()
	wins := []string{}

	for r := 0; r < rows; r++ {
		if covered(layout, rowPositions(r, cols), drawn, 1) {
			wins = append(wins, fmt.Sprintf("horizontal_line:row_%d", r+1))
		}
	}
	for c := 0; c < cols; c++ {
		if covered(layout, colPositions(c, rows), drawn, 1) {
			name := fmt.Sprintf("col_%d", c+1)
			if c < len(columnLetters) {
				name = columnLetters[c]
			}
			wins = append(wins, "vertical_line:"+name)
		}
	}
	if !layout.isSquare() {
		return wins
	}
	if covered(layout, mainDiagonal(), drawn, 1) {
		wins = append(wins, "diagonal_line:main")
	}
	if covered(layout, antiDiagonal(), drawn, 1) {
		wins = append(wins, "diagonal_line:anti")
	}
	if covered(layout, []Position{{0, 0}, {0, 4}, {4, 0}, {4, 4}}, drawn, 1) {
		wins = append(wins, string(KindFourCorners))
	}
	if fullyMarked(layout, drawn) {
		wins = append(wins, string(KindFullCard))
	}
	return wins
}

func ninetyLines(layout Layout, drawn NumberSet) []string {
	rows, cols := layout.Rows(), layout.Cols()
	wins := []string{}

	complete := 0
	for r := 0; r < rows; r++ {
		if covered(layout, rowPositions(r, cols), drawn, 1) {
			complete++
			wins = append(wins, fmt.Sprintf("horizontal_line:row_%d", r+1))
		}
	}
	if complete >= 2 {
		wins = append(wins, "two_lines")
	}
	if complete >= 3 {
		wins = append(wins, string(KindFullCard))
	}
	for c := 0; c < cols; c++ {
		if covered(layout, colPositions(c, rows), drawn, 2) {
			wins = append(wins, fmt.Sprintf("vertical_line:col_%d", c+1))
		}
	}
	return wins
}

func fullyMarked(layout Layout, drawn NumberSet) bool {
	nums := layout.Numbers()
	if len(nums) == 0 {
		return false
	}
	for _, n := range nums {
		if !drawn.Has(n) {
			return false
		}
	}
	return true
}
