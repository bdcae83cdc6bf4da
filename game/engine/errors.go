package engine

import (
	"errors"
	"fmt"
	"time"
)

// Paint failures surfaced to callers
var (
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrCooldownActive     = errors.New("player already played")
)

var (
	ErrInvalidColor    = errors.New("invalid color")
	ErrInvalidSettings = errors.New("invalid settings")

	// ErrIndexOutOfRange is returned by storage backends when a cell index is past the end of the grid
	ErrIndexOutOfRange = errors.New("cell index out of range")

	// ErrInternal marks a broken invariant between the engine and its storage
	ErrInternal = errors.New("internal invariant violation")
)

// CooldownError reports how long a player still has to wait before painting again
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s, wait %s", ErrCooldownActive, e.Remaining)
}

// Unwrap lets errors.Is(err, ErrCooldownActive) match
func (e *CooldownError) Unwrap() error {
	return ErrCooldownActive
}

// RemainingCooldown extracts the wait duration from err, if it is a cooldown rejection
func RemainingCooldown(err error) (time.Duration, bool) {
	var cooldownErr *CooldownError
	if errors.As(err, &cooldownErr) {
		return cooldownErr.Remaining, true
	}
	return 0, false
}
