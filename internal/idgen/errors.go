package idgen

import (
	"errors"
	"fmt"
)

// Common errors for ID generation.
var (
	// ErrInvalidInstanceID is returned when the instance ID is out of valid range (0-1023).
	ErrInvalidInstanceID = errors.New("instance ID must be between 0 and 1023")

	// ErrTimestampOutOfRange is returned when the epoch-relative timestamp
	// does not fit in the 41-bit timestamp field.
	ErrTimestampOutOfRange = errors.New("timestamp out of range for snowflake ID")

	// ErrClockMovedBackwards is the match target for clock-regression failures.
	ErrClockMovedBackwards = errors.New("clock moved backwards, refusing to generate ID")
)

// ClockMovedBackwardsError reports a wall-clock regression observed by the
// generator. Last and Now are epoch-relative milliseconds.
type ClockMovedBackwardsError struct {
	Last int64
	Now  int64
}

func (e *ClockMovedBackwardsError) Error() string {
	return fmt.Sprintf("clock moved backwards: last=%dms now=%dms", e.Last, e.Now)
}

// Is lets errors.Is(err, ErrClockMovedBackwards) match the typed error.
func (e *ClockMovedBackwardsError) Is(target error) bool {
	return target == ErrClockMovedBackwards
}
