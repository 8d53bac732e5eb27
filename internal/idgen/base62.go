package idgen

import (
	"errors"
	"math"
	"strings"
)

// Base62 alphabet: 0-9, a-z, A-Z (62 characters)
// Digit value equals index, so codes are case-sensitive.
const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

const base = 62

// ErrInvalidCharacter is returned when decoding encounters a character outside the alphabet.
var ErrInvalidCharacter = errors.New("invalid base62 character")

// ErrEmptyString is returned when decoding an empty string.
var ErrEmptyString = errors.New("cannot decode empty string")

// ErrValueOverflow is returned when the decoded value would exceed the int64 range.
var ErrValueOverflow = errors.New("base62 value overflows int64")

// charToValue maps each character to its numeric value for fast decoding.
var charToValue [256]int

func init() {
	// Initialize all values to -1 (invalid)
	for i := range charToValue {
		charToValue[i] = -1
	}
	// Map valid characters to their values
	for i, c := range alphabet {
		charToValue[c] = i
	}
}

// Encode converts a non-negative integer to a Base62 string.
// Encode(0) is "0"; the result never contains characters outside the alphabet.
func Encode(n uint64) string {
	if n == 0 {
		return "0"
	}

	var result strings.Builder
	// 11 characters hold any value below 2^64
	result.Grow(11)

	for n > 0 {
		remainder := n % base
		result.WriteByte(alphabet[remainder])
		n /= base
	}

	// Reverse the string (we built it backwards)
	return reverse(result.String())
}

// Decode converts a Base62 string back to an int64 using left-to-right
// Horner evaluation. It fails on empty input, on any character outside the
// alphabet, and when the accumulated value would exceed 2^63-1.
func Decode(s string) (int64, error) {
	if len(s) == 0 {
		return 0, ErrEmptyString
	}

	var result int64
	for i := 0; i < len(s); i++ {
		val := charToValue[s[i]]
		if val == -1 {
			return 0, ErrInvalidCharacter
		}
		if result > (math.MaxInt64-int64(val))/base {
			return 0, ErrValueOverflow
		}
		result = result*base + int64(val)
	}

	return result, nil
}

// reverse returns the reverse of a string.
func reverse(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

// IsValid checks if a string contains only valid Base62 characters.
func IsValid(s string) bool {
	if len(s) == 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if charToValue[s[i]] == -1 {
			return false
		}
	}
	return true
}
