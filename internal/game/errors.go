package game

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a class of domain error.
type ErrorCode string

const (
	// Validation errors
	CodeNotActivePlayer     ErrorCode = "NOT_ACTIVE_PLAYER"
	CodeRoundFinished       ErrorCode = "ROUND_FINISHED"
	CodeInvalidAction       ErrorCode = "INVALID_ACTION"
	CodeInvalidCallAmount   ErrorCode = "INVALID_CALL_AMOUNT"
	CodeInvalidRaiseAmount  ErrorCode = "INVALID_RAISE_AMOUNT"
	CodeInsufficientStack   ErrorCode = "INSUFFICIENT_STACK"
	CodePositionUnavailable ErrorCode = "POSITION_UNAVAILABLE"
	CodeAlreadySeated       ErrorCode = "ALREADY_SEATED"
	CodeInvalidBuyIn        ErrorCode = "INVALID_BUY_IN"
	CodePlayerInHand        ErrorCode = "PLAYER_IN_HAND"

	// State errors
	CodeNoDealer          ErrorCode = "NO_DEALER"
	CodeNoActivePositions ErrorCode = "NO_ACTIVE_POSITIONS"
	CodeRoundInProgress   ErrorCode = "ROUND_IN_PROGRESS"
	CodeNotReady          ErrorCode = "NOT_READY_TO_START"
	CodeNoActiveRound     ErrorCode = "NO_ACTIVE_ROUND"

	// Lookup errors
	CodeEntityNotFound ErrorCode = "ENTITY_NOT_FOUND"
)

// GameError is a domain error carrying the table and entity it concerns.
type GameError struct {
	Code     ErrorCode
	Message  string
	TableID  string
	EntityID string
}

// Error implements the error interface
func (e *GameError) Error() string {
	msg := string(e.Code)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.TableID != "" {
		msg += fmt.Sprintf(" (table %s)", e.TableID)
	}
	return msg
}

// Is matches any GameError with the same code, so the package sentinels work
// with errors.Is regardless of message and context.
func (e *GameError) Is(target error) bool {
	t, ok := target.(*GameError)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrNotActivePlayer     = &GameError{Code: CodeNotActivePlayer}
	ErrRoundFinished       = &GameError{Code: CodeRoundFinished}
	ErrInvalidAction       = &GameError{Code: CodeInvalidAction}
	ErrInvalidCallAmount   = &GameError{Code: CodeInvalidCallAmount}
	ErrInvalidRaiseAmount  = &GameError{Code: CodeInvalidRaiseAmount}
	ErrInsufficientStack   = &GameError{Code: CodeInsufficientStack}
	ErrPositionUnavailable = &GameError{Code: CodePositionUnavailable}
	ErrAlreadySeated       = &GameError{Code: CodeAlreadySeated}
	ErrInvalidBuyIn        = &GameError{Code: CodeInvalidBuyIn}
	ErrPlayerInHand        = &GameError{Code: CodePlayerInHand}
	ErrNoDealer            = &GameError{Code: CodeNoDealer}
	ErrNoActivePositions   = &GameError{Code: CodeNoActivePositions}
	ErrRoundInProgress     = &GameError{Code: CodeRoundInProgress}
	ErrNotReady            = &GameError{Code: CodeNotReady}
	ErrNoActiveRound       = &GameError{Code: CodeNoActiveRound}
	ErrEntityNotFound      = &GameError{Code: CodeEntityNotFound}
)

func newError(code ErrorCode, entityID, format string, args ...any) *GameError {
	return &GameError{
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		EntityID: entityID,
	}
}

// withTable stamps the table id onto domain errors that lack one.
func withTable(err error, tableID string) error {
	var ge *GameError
	if errors.As(err, &ge) && ge.TableID == "" {
		ge.TableID = tableID
	}
	return err
}

// IsValidation reports whether err is a rejected command that left state
// untouched, as opposed to a lookup or infrastructure failure.
func IsValidation(err error) bool {
	var ge *GameError
	if !errors.As(err, &ge) {
		return false
	}
	switch ge.Code {
	case CodeEntityNotFound:
		return false
	default:
		return true
	}
}
