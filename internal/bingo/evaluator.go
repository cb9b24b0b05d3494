package bingo

import "fmt"

// Evaluation is the outcome of scoring one pattern against one card.
type Evaluation struct {
	IsWinner        bool    `json:"is_winner"`
	PatternCode     string  `json:"pattern_code"`
	PatternName     string  `json:"pattern_name"`
	PrizeMultiplier float64 `json:"prize_multiplier"`
	IsJackpot       bool    `json:"is_jackpot"`
	BallsDrawn      int     `json:"balls_drawn"`
	Reason          string  `json:"reason,omitempty"`
}

// Evaluate scores pattern against layout with the given marked numbers.
// Only numeric cells count; FREE and empty cells are always satisfied.
// Winning is monotonic in marked: adding numbers never turns a win into a loss.
func Evaluate(pattern Pattern, layout Layout, marked NumberSet, ballsDrawn int) Evaluation {
	ev := Evaluation{
		PatternCode: pattern.Code,
		PatternName: pattern.Name,
		BallsDrawn:  ballsDrawn,
	}

	if !pattern.CompatibleWith.Allows(layout.Format) {
		ev.Reason = fmt.Sprintf("pattern %s is not compatible with %s-ball cards", pattern.Code, layout.Format)
		return ev
	}

	won, reason := matchKind(pattern, layout, marked)
	if !won {
		ev.Reason = reason
		return ev
	}

	ev.IsWinner = true
	ev.PrizeMultiplier = pattern.PrizeMultiplier
	if pattern.JackpotApplies(ballsDrawn) {
		ev.IsJackpot = true
		ev.PrizeMultiplier *= 2
	}
	return ev
}

func matchKind(pattern Pattern, layout Layout, marked NumberSet) (bool, string) {
	rows, cols := layout.Rows(), layout.Cols()

	switch pattern.Kind {
	case KindHorizontalLine:
		for r := 0; r < rows; r++ {
			if covered(layout, rowPositions(r, cols), marked, 1) {
				return true, ""
			}
		}
		return false, "no complete row"

	case KindVerticalLine:
		minCells := 1
		if layout.Format == Format90 {
			minCells = 2
		}
		for c := 0; c < cols; c++ {
			if covered(layout, colPositions(c, rows), marked, minCells) {
				return true, ""
			}
		}
		return false, "no complete column"

	case KindDiagonalLine:
		if !layout.isSquare() {
			return false, "diagonals need a 5x5 card"
		}
		if covered(layout, mainDiagonal(), marked, 1) || covered(layout, antiDiagonal(), marked, 1) {
			return true, ""
		}
		return false, "no complete diagonal"

	case KindFourCorners:
		if !layout.isSquare() {
			return false, "four corners need a 5x5 card"
		}
		corners := []Position{{0, 0}, {0, 4}, {4, 0}, {4, 4}}
		if covered(layout, corners, marked, 1) {
			return true, ""
		}
		return false, "corners not all marked"

	case KindXPattern:
		if !layout.isSquare() {
			return false, "x pattern needs a 5x5 card"
		}
		if covered(layout, append(mainDiagonal(), antiDiagonal()...), marked, 1) {
			return true, ""
		}
		return false, "diagonals not all marked"

	case KindLetterL:
		cells := append(colPositions(0, rows), rowPositions(rows-1, cols)...)
		if covered(layout, cells, marked, 1) {
			return true, ""
		}
		return false, "letter L not complete"

	case KindLetterT:
		cells := append(rowPositions(0, cols), colPositions(cols/2, rows)...)
		if covered(layout, cells, marked, 1) {
			return true, ""
		}
		return false, "letter T not complete"

	case KindFullCard:
		var all []Position
		for r := 0; r < rows; r++ {
			all = append(all, rowPositions(r, cols)...)
		}
		if covered(layout, all, marked, 1) {
			return true, ""
		}
		return false, "card not fully marked"

	case KindCustom:
		if len(pattern.Cells) == 0 {
			return false, "custom pattern defines no cells"
		}
		if covered(layout, pattern.Cells, marked, 1) {
			return true, ""
		}
		return false, "custom cells not all marked"
	}

	return false, fmt.Sprintf("unknown pattern kind %q", pattern.Kind)
}

// covered reports whether every numeric cell at positions is marked and at
// least minCells numeric cells were looked at.
func covered(layout Layout, positions []Position, marked NumberSet, minCells int) bool {
	considered := 0
	for _, p := range positions {
		n, ok := layout.Cell(p.Row, p.Col).Value()
		if !ok {
			continue
		}
		if !marked.Has(n) {
			return false
		}
		considered++
	}
	return considered >= minCells
}

func rowPositions(r, cols int) []Position {
	out := make([]Position, cols)
	for c := range out {
		out[c] = Position{Row: r, Col: c}
	}
	return out
}

func colPositions(c, rows int) []Position {
	out := make([]Position, rows)
	for r := range out {
		out[r] = Position{Row: r, Col: c}
	}
	return out
}

func mainDiagonal() []Position {
	out := make([]Position, 5)
	for i := range out {
		out[i] = Position{Row: i, Col: i}
	}
	return out
}

func antiDiagonal() []Position {
	out := make([]Position, 5)
	for i := range out {
		out[i] = Position{Row: i, Col: 4 - i}
	}
	return out
}

// CheckMode selects how a card-level check treats multiple patterns.
type CheckMode string

const (
	CheckFirstMatch CheckMode = "first_match"
	CheckAll        CheckMode = "check_all"
)

// CardCheck aggregates pattern evaluations for one card.
type CardCheck struct {
	IsWinner        bool         `json:"is_winner"`
	WinningPatterns []string     `json:"winning_patterns"`
	Matches         []Evaluation `json:"matches"`
	TotalMultiplier float64      `json:"total_multiplier"`
	JackpotWon      bool         `json:"jackpot_won"`
	BallsDrawn      int          `json:"balls_drawn"`
}

// CheckCard evaluates patterns in order. CheckFirstMatch stops at the first
// win; CheckAll accumulates every win and sums the multipliers.
func CheckCard(patterns []Pattern, layout Layout, marked NumberSet, ballsDrawn int, mode CheckMode) CardCheck {
	out := CardCheck{
		WinningPatterns: []string{},
		Matches:         []Evaluation{},
		BallsDrawn:      ballsDrawn,
	}
	for _, p := range patterns {
		ev := Evaluate(p, layout, marked, ballsDrawn)
		if !ev.IsWinner {
			continue
		}
		out.IsWinner = true
		out.Matches = append(out.Matches, ev)
		out.WinningPatterns = append(out.WinningPatterns, ev.PatternCode)
		out.TotalMultiplier += ev.PrizeMultiplier
		out.JackpotWon = out.JackpotWon || ev.IsJackpot
		if mode != CheckAll {
			break
		}
	}
	return out
}
