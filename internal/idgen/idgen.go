// Package idgen produces unique, URL-safe short codes. A snowflake
// generator supplies time-sortable 64-bit IDs and Base62 renders them as
// compact strings.
package idgen

// Generator is the capability the shortener service depends on.
type Generator interface {
	// NextShortCode creates a new unique short code.
	NextShortCode() (string, error)
}

// ShortCodeGenerator composes the snowflake generator with the Base62
// codec. Thread-safety is inherited from Snowflake.
type ShortCodeGenerator struct {
	snowflake *Snowflake
}

// NewShortCodeGenerator creates a short-code generator for the given
// instance ID (0-1023).
func NewShortCodeGenerator(instanceID int64) (*ShortCodeGenerator, error) {
	sf, err := NewSnowflake(instanceID)
	if err != nil {
		return nil, err
	}
	return &ShortCodeGenerator{snowflake: sf}, nil
}

// NewShortCodeGeneratorWithClock creates a generator with an injected clock.
func NewShortCodeGeneratorWithClock(instanceID int64, clock Clock) (*ShortCodeGenerator, error) {
	sf, err := NewSnowflakeWithClock(instanceID, clock)
	if err != nil {
		return nil, err
	}
	return &ShortCodeGenerator{snowflake: sf}, nil
}

// NextShortCode returns Base62(Snowflake.Next()).
// Typical output is 7-11 characters, growing slowly with wall time.
func (g *ShortCodeGenerator) NextShortCode() (string, error) {
	id, err := g.snowflake.Next()
	if err != nil {
		return "", err
	}
	return Encode(uint64(id)), nil
}
