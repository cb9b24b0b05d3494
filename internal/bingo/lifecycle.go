package bingo

import (
	"fmt"
	"strings"

	appErr "bingo-service/pkg/errors"
)

// CardStatus is the lifecycle state of a card instance.
type CardStatus string

const (
	StatusAvailable CardStatus = "available"
	StatusReserved  CardStatus = "reserved"
	StatusSold      CardStatus = "sold"
	StatusCancelled CardStatus = "cancelled"
)

func ParseCardStatus(s string) (CardStatus, error) {
	switch st := CardStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusAvailable, StatusReserved, StatusSold, StatusCancelled:
		return st, nil
	default:
		return "", fmt.Errorf("unknown card status %q", s)
	}
}

// Action names a requested status change.
type Action string

const (
	ActionReserve Action = "reserve"
	ActionSell    Action = "sell"
	ActionRelease Action = "release"
	ActionCancel  Action = "cancel"
)

type transition struct {
	from []CardStatus
	to   CardStatus
}

// transitions maps each action to the statuses it may start from. Reserve
// moves available to reserved and sell moves reserved to sold. Release and
// cancel both accept available or reserved.
var transitions = map[Action]transition{
	ActionReserve: {from: []CardStatus{StatusAvailable}, to: StatusReserved},
	ActionSell:    {from: []CardStatus{StatusReserved}, to: StatusSold},
	ActionRelease: {from: []CardStatus{StatusAvailable, StatusReserved}, to: StatusAvailable},
	ActionCancel:  {from: []CardStatus{StatusAvailable, StatusReserved}, to: StatusCancelled},
}

// Transition returns the status reached by applying action to current.
func Transition(current CardStatus, action Action) (CardStatus, bool) {
	t, ok := transitions[action]
	if !ok {
		return current, false
	}
	for _, from := range t.from {
		if from == current {
			return t.to, true
		}
	}
	return current, false
}

// AllowedFrom lists the statuses action may start from, for use in
// compare-and-swap updates.
func AllowedFrom(action Action) []string {
	t := transitions[action]
	out := make([]string, len(t.from))
	for i, st := range t.from {
		out[i] = string(st)
	}
	return out
}

// TransitionError builds the typed failure for a refused transition.
func TransitionError(cardID int64, action Action, current CardStatus) error {
	return &appErr.TransitionError{CardID: cardID, Action: string(action), Current: string(current)}
}
