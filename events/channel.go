package events

import "strings"

// Wildcard segment values recognized in registration patterns.
const (
	// WildcardSingle matches exactly one channel segment.
	WildcardSingle = "*"

	// WildcardMulti matches all remaining channel segments, including zero.
	WildcardMulti = "#"
)

// DefaultSeparator is the segment separator used unless the bus is
// configured otherwise.
const DefaultSeparator = "/"

// Channel is an ordered, non-empty sequence of segments identifying an
// event channel or a registration pattern.
type Channel []string

// ParseChannel splits path on sep and drops empty segments. It returns
// ErrEmptyChannel when nothing remains.
func ParseChannel(path, sep string) (Channel, error) {
	parts := strings.Split(path, sep)
	segments := make(Channel, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	if len(segments) == 0 {
		return nil, ErrEmptyChannel
	}
	return segments, nil
}

// Join renders the channel back into a path using sep.
func (c Channel) Join(sep string) string {
	return strings.Join(c, sep)
}

// HasWildcard reports whether any segment is a wildcard.
func (c Channel) HasWildcard() bool {
	for _, seg := range c {
		if seg == WildcardSingle || seg == WildcardMulti {
			return true
		}
	}
	return false
}

// match walks pattern against channel per segment:
//   - "#" succeeds immediately, capturing the remainder of channel
//   - "*" captures the corresponding channel segment and continues
//   - any other segment must be equal
//
// When the pattern is exhausted without a "#", the channel must have the
// same length. Captured parameters are returned in left-to-right order of
// wildcard occurrence.
func match(pattern, channel Channel) ([]string, bool) {
	var params []string
	for i, seg := range pattern {
		switch seg {
		case WildcardMulti:
			// Segments after "#" are never reached, mirroring the walk.
			if i < len(channel) {
				params = append(params, channel[i:]...)
			}
			return params, true
		case WildcardSingle:
			if i >= len(channel) {
				return nil, false
			}
			params = append(params, channel[i])
		default:
			if i >= len(channel) || channel[i] != seg {
				return nil, false
			}
		}
	}
	if len(pattern) != len(channel) {
		return nil, false
	}
	return params, true
}
