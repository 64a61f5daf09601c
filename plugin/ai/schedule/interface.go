// Package schedule turns participants' free-text availability into parsed
// intervals, asking an LLM first and falling back to the rule-based parser.
package schedule

import (
	"context"

	"github.com/hrygo/slotfinder/plugin/ai/aitime"
)

// MaxInputLength is the longest text sent to the LLM, in bytes. Longer input
// goes straight to the rule-based parser.
const MaxInputLength = 500

// Source records which path produced a ParseResult.
type Source string

const (
	SourceLLM   Source = "llm"
	SourceRules Source = "rules"
	SourceCache Source = "cache"
)

// ParseRequest is one availability submission.
type ParseRequest struct {
	Text      string `json:"rawText"`
	IsMeeting bool   `json:"isMeeting"`
	Timezone  string `json:"timezone"`
}

// Mode maps the meeting flag to a parser mode.
func (r ParseRequest) Mode() aitime.Mode {
	return aitime.ModeFor(r.IsMeeting)
}

// ParseResult is the parsed form of a submission.
type ParseResult struct {
	Intervals []aitime.Interval `json:"parsedIntervals"`
	Title     string            `json:"title,omitempty"`
	Source    Source            `json:"source"`
}

// AvailabilityParser converts a submission into intervals. Implementations
// may fail; Service turns every failure into a rule-based result.
type AvailabilityParser interface {
	Parse(ctx context.Context, req ParseRequest) (*ParseResult, error)
}
