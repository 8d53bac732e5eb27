package idgen

import "time"

// Clock supplies millisecond wall-clock readings to the snowflake generator.
// Injecting it keeps sequence-overflow and clock-regression paths testable.
type Clock interface {
	// NowMillis returns the current Unix time in milliseconds.
	NowMillis() int64
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

// NowMillis returns time.Now() in Unix milliseconds.
func (SystemClock) NowMillis() int64 {
	return time.Now().UnixMilli()
}
