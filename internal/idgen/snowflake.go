package idgen

import (
	"sync"
)

// Snowflake epoch: January 1, 2024 00:00:00 UTC
// The custom epoch gives the 41-bit timestamp field ~69 years of headroom.
const snowflakeEpoch int64 = 1704067200000 // milliseconds

// Bit allocation for Snowflake IDs, most significant first:
// - 41 bits for timestamp (milliseconds since epoch)
// - 10 bits for instance ID (0-1023)
// - 13 bits for sequence number (0-8191 per millisecond)
const (
	timestampBits = 41
	instanceBits  = 10
	sequenceBits  = 13

	maxInstanceID = (1 << instanceBits) - 1  // 1023
	maxSequence   = (1 << sequenceBits) - 1  // 8191
	maxTimestamp  = (1 << timestampBits) - 1 // ~69 years of milliseconds

	instanceShift  = sequenceBits
	timestampShift = instanceBits + sequenceBits
)

// Snowflake generates unique, time-ordered 64-bit IDs. The whole of Next
// runs under one mutex covering lastTime and sequence, so IDs are strictly
// increasing per instance even under concurrent callers.
type Snowflake struct {
	mu         sync.Mutex
	clock      Clock
	instanceID int64
	sequence   int64
	lastTime   int64
}

// NewSnowflake creates a generator for the given instance ID (0-1023).
// It reads the system clock; use NewSnowflakeWithClock in tests.
func NewSnowflake(instanceID int64) (*Snowflake, error) {
	return NewSnowflakeWithClock(instanceID, SystemClock{})
}

// NewSnowflakeWithClock creates a generator with an injected clock.
func NewSnowflakeWithClock(instanceID int64, clock Clock) (*Snowflake, error) {
	if instanceID < 0 || instanceID > maxInstanceID {
		return nil, ErrInvalidInstanceID
	}
	return &Snowflake{
		clock:      clock,
		instanceID: instanceID,
		lastTime:   -1,
	}, nil
}

// Next returns the next ID. A regressed clock fails the call without
// mutating generator state; sequence exhaustion within one millisecond
// busy-spins until the clock advances.
func (g *Snowflake) Next() (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.NowMillis() - snowflakeEpoch

	switch {
	case now < g.lastTime:
		return 0, &ClockMovedBackwardsError{Last: g.lastTime, Now: now}
	case now == g.lastTime:
		g.sequence = (g.sequence + 1) & maxSequence
		if g.sequence == 0 {
			// Sequence overflow, wait for the next millisecond. Bounded by
			// the time remaining in the current millisecond.
			for now <= g.lastTime {
				now = g.clock.NowMillis() - snowflakeEpoch
			}
		}
	default:
		g.sequence = 0
	}

	if now < 0 || now > maxTimestamp {
		return 0, ErrTimestampOutOfRange
	}

	g.lastTime = now

	id := (now << timestampShift) |
		(g.instanceID << instanceShift) |
		g.sequence

	return id, nil
}

// InstanceID returns the configured instance ID.
func (g *Snowflake) InstanceID() int64 {
	return g.instanceID
}

// TimestampOf extracts the epoch-relative millisecond timestamp from an ID.
func TimestampOf(id int64) int64 {
	return int64(uint64(id) >> timestampShift)
}

// InstanceOf extracts the instance ID from an ID.
func InstanceOf(id int64) int64 {
	return (id >> instanceShift) & maxInstanceID
}

// SequenceOf extracts the sequence number from an ID.
func SequenceOf(id int64) int64 {
	return id & maxSequence
}
