package bingo

import (
	"fmt"
	"strings"

	appErr "bingo-service/pkg/errors"
)

// Kind is the shape a pattern checks for.
type Kind string

const (
	KindHorizontalLine Kind = "horizontal_line"
	KindVerticalLine   Kind = "vertical_line"
	KindDiagonalLine   Kind = "diagonal_line"
	KindFullCard       Kind = "full_card"
	KindFourCorners    Kind = "four_corners"
	KindXPattern       Kind = "x_pattern"
	KindLetterL        Kind = "letter_l"
	KindLetterT        Kind = "letter_t"
	KindCustom         Kind = "custom"
)

var kinds = map[Kind]bool{
	KindHorizontalLine: true,
	KindVerticalLine:   true,
	KindDiagonalLine:   true,
	KindFullCard:       true,
	KindFourCorners:    true,
	KindXPattern:       true,
	KindLetterL:        true,
	KindLetterT:        true,
	KindCustom:         true,
}

func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !kinds[k] {
		return "", fmt.Errorf("%w: %q", appErr.ErrInvalidPatternKind, s)
	}
	return k, nil
}

type Category string

const (
	CategoryClassic Category = "classic"
	CategorySpecial Category = "special"
	CategoryCustom  Category = "custom"
)

func ParseCategory(s string) (Category, error) {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryClassic, CategorySpecial, CategoryCustom:
		return c, nil
	case "":
		return CategoryCustom, nil
	default:
		return "", fmt.Errorf("%w: unknown category %q", appErr.ErrInvalidPattern, s)
	}
}

// Compatibility is either CompatibleAll or a single format.
type Compatibility string

const CompatibleAll Compatibility = "all"

func ParseCompatibility(s string) (Compatibility, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" || v == string(CompatibleAll) {
		return CompatibleAll, nil
	}
	f, err := ParseFormat(v)
	if err != nil {
		return "", err
	}
	return Compatibility(f), nil
}

func (c Compatibility) Allows(f Format) bool {
	return c == CompatibleAll || Format(c) == f
}

// Position addresses a grid cell, 0-based.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Pattern is the evaluation-side view of a registered winning pattern.
type Pattern struct {
	Code            string
	Name            string
	Category        Category
	CompatibleWith  Compatibility
	Kind            Kind
	PrizeMultiplier float64
	HasJackpot      bool
	JackpotMaxBalls int
	Cells           []Position
}

// JackpotApplies reports whether a win after ballsDrawn balls lands inside
// the jackpot window. An unknown draw count (0) never qualifies.
func (p Pattern) JackpotApplies(ballsDrawn int) bool {
	return p.HasJackpot && p.JackpotMaxBalls > 0 && ballsDrawn > 0 && ballsDrawn <= p.JackpotMaxBalls
}
