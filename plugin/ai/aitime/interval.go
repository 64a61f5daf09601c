// Package aitime turns free-text availability into timezone-aware intervals.
//
// An Interval is either a point ("this date") or a range ("this date from
// T1 to T2"). Range seconds are wall-clock digits encoded as if they were
// UTC; see server/timezone for the encode/decode pair.
package aitime

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind discriminates the two interval shapes.
type Kind string

const (
	// KindPoint is a single date.
	KindPoint Kind = "point"
	// KindRange is a start/end pair on a date.
	KindRange Kind = "range"
)

// Timestamp is a whole-second epoch value. Nanoseconds is always 0.
type Timestamp struct {
	Seconds     int64 `json:"seconds"`
	Nanoseconds int32 `json:"nanoseconds"`
}

// NewTimestamp builds a Timestamp from epoch seconds.
func NewTimestamp(seconds int64) *Timestamp {
	return &Timestamp{Seconds: seconds}
}

// Interval is the parser's output unit (a parsed availability record).
type Interval struct {
	Kind         Kind   `json:"kind"`
	OriginalText string `json:"originalText"`

	// Point shape.
	Timestamp *Timestamp `json:"timestamp,omitempty"`

	// Range shape.
	StartTimestamp *Timestamp `json:"startTimestamp,omitempty"`
	EndTimestamp   *Timestamp `json:"endTimestamp,omitempty"`

	// Timezone is the IANA zone the wall-clock digits were typed in.
	Timezone string `json:"timezone,omitempty"`

	IsConfirmed bool `json:"isConfirmed"`

	// NeedsLLMParsing marks a placeholder whose timestamp must not be used.
	NeedsLLMParsing bool `json:"needsLlmParsing,omitempty"`
}

// NewPoint creates a point interval.
func NewPoint(text string, seconds int64, timezone string) Interval {
	return Interval{
		Kind:         KindPoint,
		OriginalText: text,
		Timestamp:    NewTimestamp(seconds),
		Timezone:     timezone,
	}
}

// NewRange creates a range interval.
func NewRange(text string, startSeconds, endSeconds int64, timezone string) Interval {
	return Interval{
		Kind:           KindRange,
		OriginalText:   text,
		StartTimestamp: NewTimestamp(startSeconds),
		EndTimestamp:   NewTimestamp(endSeconds),
		Timezone:       timezone,
	}
}

// NewPlaceholder creates a record flagging text the rules could not resolve.
func NewPlaceholder(text string, now time.Time, timezone string) Interval {
	iv := NewPoint(text, now.Unix(), timezone)
	iv.NeedsLLMParsing = true
	return iv
}

// IsPoint reports whether the interval is a usable single date.
func (iv Interval) IsPoint() bool {
	return iv.Kind == KindPoint && iv.Timestamp != nil
}

// IsRange reports whether the interval is a usable start/end pair.
func (iv Interval) IsRange() bool {
	return iv.Kind == KindRange && iv.StartTimestamp != nil && iv.EndTimestamp != nil
}

// Validate checks that exactly one shape is populated.
func (iv Interval) Validate() error {
	hasPoint := iv.Timestamp != nil
	hasRange := iv.StartTimestamp != nil || iv.EndTimestamp != nil

	switch iv.Kind {
	case KindPoint:
		if !hasPoint || hasRange {
			return fmt.Errorf("point interval %q must carry only a timestamp", iv.OriginalText)
		}
	case KindRange:
		if hasPoint || iv.StartTimestamp == nil || iv.EndTimestamp == nil {
			return fmt.Errorf("range interval %q must carry start and end timestamps", iv.OriginalText)
		}
		if iv.EndTimestamp.Seconds < iv.StartTimestamp.Seconds {
			return fmt.Errorf("range interval %q ends before it starts", iv.OriginalText)
		}
	default:
		return fmt.Errorf("interval %q has unknown kind %q", iv.OriginalText, iv.Kind)
	}
	return nil
}

// UnmarshalJSON accepts documents stored before the kind field existed and
// infers the shape from which timestamps are present.
func (iv *Interval) UnmarshalJSON(data []byte) error {
	type raw Interval
	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	if r.Kind == "" {
		switch {
		case r.StartTimestamp != nil || r.EndTimestamp != nil:
			r.Kind = KindRange
		case r.Timestamp != nil:
			r.Kind = KindPoint
		}
	}
	*iv = Interval(r)
	return nil
}
