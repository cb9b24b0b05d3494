package bingo_test

import (
	"errors"
	"testing"

	"bingo-service/internal/bingo"
	appErr "bingo-service/pkg/errors"
	"bingo-service/pkg/utils/random"
)

func TestDrawUntilExhausted(t *testing.T) {
	engine := bingo.NewDrawEngine(random.NewSeededSource(11))

	for _, format := range bingo.Formats {
		drawn := bingo.NewNumberSet()
		for i := 0; i < format.MaxBall(); i++ {
			n, err := engine.Draw(format, drawn)
			if err != nil {
				t.Fatalf("%s draw %d failed: %v", format, i, err)
			}
			if n < 1 || n > format.MaxBall() {
				t.Fatalf("%s: ball %d out of range", format, n)
			}
			if drawn.Has(n) {
				t.Fatalf("%s: ball %d drawn twice", format, n)
			}
			drawn.Add(n)
		}
		if _, err := engine.Draw(format, drawn); !errors.Is(err, appErr.ErrDrawExhausted) {
			t.Fatalf("%s: expected ErrDrawExhausted, got %v", format, err)
		}
	}
}

func TestDrawFallsBackToRemaining(t *testing.T) {
	engine := bingo.NewDrawEngine(random.NewSeededSource(5), bingo.WithDrawAttempts(0))

	drawn := bingo.NewNumberSet()
	for n := 1; n <= 75; n++ {
		if n != 42 {
			drawn.Add(n)
		}
	}
	n, err := engine.Draw(bingo.Format75, drawn)
	if err != nil {
		t.Fatalf("draw failed: %v", err)
	}
	if n != 42 {
		t.Fatalf("expected the only remaining ball 42, got %d", n)
	}
}

func TestBallLabels(t *testing.T) {
	cases := []struct {
		format bingo.Format
		n      int
		label  string
		color  string
	}{
		{bingo.Format75, 7, "B-7", "#0066CC"},
		{bingo.Format75, 45, "N-45", "#4CAF50"},
		{bingo.Format85, 16, "B-16", "#0066CC"},
		{bingo.Format85, 80, "O-80", "#F44336"},
		{bingo.Format85, 83, "83", "#666666"},
		{bingo.Format90, 47, "47", "#666666"},
	}
	for _, tc := range cases {
		if got := bingo.BallLabel(tc.format, tc.n); got != tc.label {
			t.Fatalf("%s/%d: expected label %s, got %s", tc.format, tc.n, tc.label, got)
		}
		if got := bingo.BallColor(tc.format, tc.n); got != tc.color {
			t.Fatalf("%s/%d: expected color %s, got %s", tc.format, tc.n, tc.color, got)
		}
	}
}

func TestTransitions(t *testing.T) {
	cases := []struct {
		from   bingo.CardStatus
		action bingo.Action
		to     bingo.CardStatus
		ok     bool
	}{
		{bingo.StatusAvailable, bingo.ActionReserve, bingo.StatusReserved, true},
		{bingo.StatusReserved, bingo.ActionReserve, bingo.StatusReserved, false},
		{bingo.StatusReserved, bingo.ActionSell, bingo.StatusSold, true},
		{bingo.StatusAvailable, bingo.ActionSell, bingo.StatusAvailable, false},
		{bingo.StatusReserved, bingo.ActionRelease, bingo.StatusAvailable, true},
		{bingo.StatusSold, bingo.ActionRelease, bingo.StatusSold, false},
		{bingo.StatusCancelled, bingo.ActionRelease, bingo.StatusCancelled, false},
		{bingo.StatusAvailable, bingo.ActionCancel, bingo.StatusCancelled, true},
		{bingo.StatusSold, bingo.ActionCancel, bingo.StatusSold, false},
	}
	for _, tc := range cases {
		to, ok := bingo.Transition(tc.from, tc.action)
		if ok != tc.ok || to != tc.to {
			t.Fatalf("%s --%s-->: expected (%s,%v), got (%s,%v)", tc.from, tc.action, tc.to, tc.ok, to, ok)
		}
	}

	err := bingo.TransitionError(9, bingo.ActionSell, bingo.StatusAvailable)
	if !errors.Is(err, appErr.ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition, got %v", err)
	}
	var te *appErr.TransitionError
	if !errors.As(err, &te) || te.Current != "available" {
		t.Fatalf("expected current status in error, got %v", err)
	}
}
