// Package token turns the authorization token received from a player into
// the canonical query-parameter value that is baked into manifest URLs.
package token

import (
	"fmt"
	"net/url"
	"strings"

	"manifestproxyd/internal/models"
)

// BearerPrefix is stripped, case-insensitively, from incoming tokens.
const BearerPrefix = "Bearer="

// Token is a canonicalized authorization token. The zero value is empty.
type Token struct {
	canonical string
}

// Canonicalize strips an optional "Bearer=" prefix from raw and re-encodes the
// remainder as a canonical key=value&key=value query string.
func Canonicalize(raw string) (Token, error) {
	if strings.TrimSpace(raw) == "" {
		return Token{}, fmt.Errorf("%w: token is required", models.ErrInvalidArgument)
	}

	query := StripBearer(raw)
	canonical := ParsePairs(query).Encode()
	if canonical == "" {
		return Token{}, fmt.Errorf("%w: token has no content after %q", models.ErrInvalidArgument, BearerPrefix)
	}

	return Token{canonical: canonical}, nil
}

// StripBearer removes a leading "Bearer=" prefix in any letter casing.
func StripBearer(raw string) string {
	if len(raw) >= len(BearerPrefix) && strings.EqualFold(raw[:len(BearerPrefix)], BearerPrefix) {
		return raw[len(BearerPrefix):]
	}
	return raw
}

// String returns the canonical query string, e.g. "sig=abc&exp=123".
func (t Token) String() string {
	return t.canonical
}

// Armored returns the canonical token escaped once more so it fits inside a
// single query parameter value, e.g. "sig%3Dabc%26exp%3D123".
func (t Token) Armored() string {
	return url.QueryEscape(t.canonical)
}

// IsZero reports whether t holds no token.
func (t Token) IsZero() bool {
	return t.canonical == ""
}
