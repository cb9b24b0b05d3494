package bingo

import (
	"fmt"

	appErr "bingo-service/pkg/errors"
	"bingo-service/pkg/utils/random"
)

const DefaultDrawAttempts = 50

type DrawOption func(*DrawEngine)

// WithDrawAttempts bounds the rejection-sampling attempts before the engine
// samples directly from the remaining numbers.
func WithDrawAttempts(n int) DrawOption {
	return func(e *DrawEngine) {
		if n >= 0 {
			e.maxAttempts = n
		}
	}
}

// DrawEngine picks the next ball for a game. It holds no per-game state;
// callers pass the balls already drawn and serialize draws per game.
type DrawEngine struct {
	src         random.Source
	maxAttempts int
}

func NewDrawEngine(src random.Source, opts ...DrawOption) *DrawEngine {
	if src == nil {
		src = random.NewSource()
	}
	e := &DrawEngine{src: src, maxAttempts: DefaultDrawAttempts}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Draw returns a number in [1, format.MaxBall()] that is not in drawn.
// It returns ErrDrawExhausted once every number has been drawn.
func (e *DrawEngine) Draw(format Format, drawn NumberSet) (int, error) {
	if !format.Valid() {
		return 0, fmt.Errorf("%w: %q", appErr.ErrInvalidFormat, string(format))
	}
	remaining := Remaining(format, drawn)
	if len(remaining) == 0 {
		return 0, appErr.ErrDrawExhausted
	}

	maxBall := format.MaxBall()
	for i := 0; i < e.maxAttempts; i++ {
		n := 1 + e.src.IntN(maxBall)
		if !drawn.Has(n) {
			return n, nil
		}
	}
	return remaining[e.src.IntN(len(remaining))], nil
}

// Remaining lists the numbers of format not yet in drawn, ascending.
func Remaining(format Format, drawn NumberSet) []int {
	maxBall := format.MaxBall()
	out := make([]int, 0, maxBall)
	for n := 1; n <= maxBall; n++ {
		if !drawn.Has(n) {
			out = append(out, n)
		}
	}
	return out
}
