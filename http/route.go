package http

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidPattern = errors.New("http: invalid route pattern")

type SegmentKind uint8

const (
	SegmentLiteral SegmentKind = iota
	SegmentParam
	SegmentWildcard
)

// Score contribution per segment kind. More literal routes win.
var segmentScores = [...]int{
	SegmentLiteral:  3,
	SegmentParam:    2,
	SegmentWildcard: 1,
}

// Segment is one compiled pattern unit. Text holds the literal text or the
// parameter name.
type Segment struct {
	Kind SegmentKind
	Text string
}

type Route struct {
	Method   string
	Pattern  string
	Segments []Segment
	Score    int
	Handler  Handler
}

// Params holds path parameter values by name.
type Params map[string]string

func compilePattern(pattern string) ([]Segment, int, error) {
	tokens := splitPath(pattern)
	segments := make([]Segment, 0, len(tokens))
	score := 0

	for i, token := range tokens {
		var segment Segment
		switch token[0] {
		case ':':
			segment = Segment{Kind: SegmentParam, Text: token[1:]}
		case '*':
			if i != len(tokens)-1 {
				return nil, 0, fmt.Errorf("%w: %s: wildcard %q must be the last segment", ErrInvalidPattern, pattern, token)
			}
			segment = Segment{Kind: SegmentWildcard, Text: token[1:]}
		default:
			segment = Segment{Kind: SegmentLiteral, Text: token}
		}

		if segment.Kind != SegmentLiteral && segment.Text == "" {
			return nil, 0, fmt.Errorf("%w: %s: segment %q has no name", ErrInvalidPattern, pattern, token)
		}

		segments = append(segments, segment)
		score += segmentScores[segment.Kind]
	}

	return segments, score, nil
}

// matches walks the route segments against the path segments.
func (route *Route) matches(segments []string) bool {
	for i, segment := range route.Segments {
		switch segment.Kind {
		case SegmentWildcard:
			return true
		case SegmentParam:
			if i >= len(segments) {
				return false
			}
		default:
			if i >= len(segments) || segments[i] != segment.Text {
				return false
			}
		}
	}

	return len(route.Segments) == len(segments)
}

func (route *Route) params(segments []string) Params {
	params := Params{}
	for i, segment := range route.Segments {
		switch segment.Kind {
		case SegmentParam:
			params[segment.Text] = segments[i]
		case SegmentWildcard:
			rest := ""
			if i < len(segments) {
				rest = strings.Join(segments[i:], "/")
			}
			params[segment.Text] = rest
		}
	}
	return params
}
