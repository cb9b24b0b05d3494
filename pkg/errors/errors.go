package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidFormat          = errors.New("invalid bingo format")
	ErrGenerationExhausted    = errors.New("card generation exhausted")
	ErrInvalidStateTransition = errors.New("invalid card state transition")
	ErrQuotaExceeded          = errors.New("quota exceeded")
	ErrPoolAlreadyGenerated   = errors.New("cards already generated for this pool")
	ErrDuplicatePatternCode   = errors.New("pattern code already exists")
	ErrDrawExhausted          = errors.New("no balls left to draw")

	ErrInvalidLayout      = errors.New("invalid card layout")
	ErrInvalidPatternKind = errors.New("invalid pattern kind")
	ErrInvalidPattern     = errors.New("invalid pattern definition")
	ErrPatternNotFound    = errors.New("pattern not found")
	ErrPatternInactive    = errors.New("pattern is inactive")
	ErrPatternImmutable   = errors.New("system patterns cannot be modified")
	ErrPatternMismatch    = errors.New("pattern not compatible with pool format")

	ErrPoolNotFound      = errors.New("pool not found")
	ErrPoolNotGenerated  = errors.New("pool has no generated cards")
	ErrInvalidPool       = errors.New("invalid pool parameters")
	ErrCardNotFound      = errors.New("card not found")
	ErrFormatNotAllowed  = errors.New("format not allowed for operator")
	ErrFormatMismatch    = errors.New("pool formats do not match")
	ErrReuseNotAllowed   = errors.New("destination pool does not allow card reuse")
	ErrTenantMismatch    = errors.New("resource belongs to another operator")
	ErrNoReservedCards   = errors.New("player has no reserved cards in this pool")
	ErrInvalidCardIDs    = errors.New("no valid card ids given")
	ErrResourceBusy      = errors.New("resource is busy, retry later")
	ErrGameNotFound      = errors.New("game not found")
	ErrOperatorNotFound  = errors.New("operator not found")
	ErrOperatorInactive  = errors.New("operator is inactive")
	ErrInvalidOperator   = errors.New("invalid operator parameters")
	ErrDuplicateOperator = errors.New("operator code already exists")
	ErrPlayerNotFound    = errors.New("player not found")
	ErrDuplicatePlayer   = errors.New("username already registered for operator")
)

// TransitionError reports a card status change that the state machine refused.
type TransitionError struct {
	CardID  int64
	Action  string
	Current string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: cannot %s card %d in status %q", ErrInvalidStateTransition, e.Action, e.CardID, e.Current)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidStateTransition
}

// QuotaError reports a per-player or per-pool cap that a request would break.
type QuotaError struct {
	Scope     string
	Limit     int
	Current   int
	Requested int
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s: %s limit %d, holding %d, requested %d", ErrQuotaExceeded, e.Scope, e.Limit, e.Current, e.Requested)
}

func (e *QuotaError) Is(target error) bool {
	return target == ErrQuotaExceeded
}
