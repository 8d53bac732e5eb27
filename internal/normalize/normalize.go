// Package normalize produces the canonical form of a URL. The canonical
// string is both the storage key and the lookup key; nothing downstream
// re-canonicalizes.
package normalize

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/snaplink/snaplink/internal/models"
)

// MaxURLLength caps accepted input.
const MaxURLLength = 2048

// Normalization failures. All unwrap to models.ErrInvalidURL so the HTTP
// boundary maps them to a single 400 category.
var (
	ErrUnsupportedScheme = fmt.Errorf("%w: scheme must be http or https", models.ErrInvalidURL)
	ErrCredentialsInURL  = fmt.Errorf("%w: embedded credentials are not allowed", models.ErrInvalidURL)
	ErrMissingHost       = fmt.Errorf("%w: missing host", models.ErrInvalidURL)
	ErrURLTooLong        = fmt.Errorf("%w: exceeds %d characters", models.ErrInvalidURL, MaxURLLength)
)

// Normalize canonicalizes a raw URL:
//  1. reject empty or whitespace-only input
//  2. trim surrounding ASCII whitespace
//  3. require an absolute http/https URL without embedded credentials
//  4. lowercase scheme and host, preserving path/query/fragment case
//  5. strip an explicit port equal to the scheme default (80/443)
//
// The result is idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", models.ErrEmptyURL
	}
	if len(trimmed) > MaxURLLength {
		return "", ErrURLTooLong
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrInvalidURL, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", ErrUnsupportedScheme
	}
	if u.User != nil {
		return "", ErrCredentialsInURL
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", ErrMissingHost
	}
	port := u.Port()

	if strings.Contains(host, ":") {
		// IPv6 literal, keep the brackets Hostname stripped
		host = "[" + host + "]"
	}

	u.Scheme = scheme
	u.Host = host
	if port != "" && port != defaultPort(scheme) {
		u.Host = host + ":" + port
	}

	return u.String(), nil
}

// IsInvalid reports whether err is any normalization or validation failure.
func IsInvalid(err error) bool {
	return errors.Is(err, models.ErrInvalidURL) || errors.Is(err, models.ErrEmptyURL)
}

func defaultPort(scheme string) string {
	if scheme == "https" {
		return "443"
	}
	return "80"
}
