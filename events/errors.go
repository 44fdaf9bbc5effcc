package events

import "errors"

var (
	// ErrEmptyChannel is returned when a channel or pattern normalizes to
	// zero segments.
	ErrEmptyChannel = errors.New("events: empty channel")

	// ErrWildcardChannel is returned when a channel passed to Emit
	// contains wildcard segments.
	ErrWildcardChannel = errors.New("events: emit channel must not contain wildcards")

	// ErrNilHandler is returned when Register is called without a handler.
	ErrNilHandler = errors.New("events: nil handler")
)
