package trigger

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPattern is returned for malformed path patterns.
var ErrInvalidPattern = errors.New("invalid path pattern")

// Pattern is a slash separated path where "{name}" segments capture a value,
// e.g. "conversations/{conversationId}/messages/{messageId}".
type Pattern struct {
	raw      string
	segments []segment
}

type segment struct {
	literal string
	param   string
}

// ParsePattern compiles raw into a Pattern.
func ParsePattern(raw string) (Pattern, error) {
	trimmed := strings.Trim(strings.TrimSpace(raw), "/")
	if trimmed == "" {
		return Pattern{}, fmt.Errorf("%w: empty", ErrInvalidPattern)
	}

	parts := strings.Split(trimmed, "/")
	segments := make([]segment, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))

	for _, part := range parts {
		if part == "" {
			return Pattern{}, fmt.Errorf("%w: empty segment in %q", ErrInvalidPattern, raw)
		}

		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			name := part[1 : len(part)-1]
			if name == "" {
				return Pattern{}, fmt.Errorf("%w: unnamed parameter in %q", ErrInvalidPattern, raw)
			}
			if _, dup := seen[name]; dup {
				return Pattern{}, fmt.Errorf("%w: duplicate parameter %q", ErrInvalidPattern, name)
			}
			seen[name] = struct{}{}
			segments = append(segments, segment{param: name})
			continue
		}

		if strings.ContainsAny(part, "{}") {
			return Pattern{}, fmt.Errorf("%w: malformed segment %q", ErrInvalidPattern, part)
		}
		segments = append(segments, segment{literal: part})
	}

	return Pattern{raw: trimmed, segments: segments}, nil
}

// MustParsePattern is like ParsePattern but panics on error.
func MustParsePattern(raw string) Pattern {
	p, err := ParsePattern(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// Match reports whether path fits the pattern and returns the captured
// parameters.
func (p Pattern) Match(path string) (map[string]string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != len(p.segments) {
		return nil, false
	}

	params := make(map[string]string)
	for i, seg := range p.segments {
		part := parts[i]
		if part == "" {
			return nil, false
		}
		if seg.param == "" {
			if seg.literal != part {
				return nil, false
			}
			continue
		}
		params[seg.param] = part
	}
	return params, true
}

func (p Pattern) String() string {
	return p.raw
}
