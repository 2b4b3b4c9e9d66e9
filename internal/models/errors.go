package models

import "errors"

var (
	// ErrInvalidArgument is returned when the playback URL or token is missing or malformed.
	// No network I/O happens before it is returned.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUpstreamFetch is returned when the remote manifest could not be retrieved.
	ErrUpstreamFetch = errors.New("upstream fetch failed")

	// ErrTransform is returned when rewriting the manifest text fails.
	ErrTransform = errors.New("manifest transform failed")
)

// IsInvalidArgument reports whether err is or wraps ErrInvalidArgument.
func IsInvalidArgument(err error) bool { return errors.Is(err, ErrInvalidArgument) }

// IsUpstreamFetch reports whether err is or wraps ErrUpstreamFetch.
func IsUpstreamFetch(err error) bool { return errors.Is(err, ErrUpstreamFetch) }

// IsTransform reports whether err is or wraps ErrTransform.
func IsTransform(err error) bool { return errors.Is(err, ErrTransform) }
