package schedule

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/hrygo/slotfinder/plugin/ai"
	"github.com/hrygo/slotfinder/plugin/ai/aitime"
	"github.com/hrygo/slotfinder/server/timezone"
)

// LLMParser asks a language model for structured availability.
type LLMParser struct {
	llm      ai.LLMService
	calendar *time.Location
	now      func() time.Time
}

// NewLLMParser creates an LLM parser. Date-only answers are anchored to
// midnight in calendar, like the rule-based parser's.
func NewLLMParser(llm ai.LLMService, calendar *time.Location) *LLMParser {
	if calendar == nil {
		calendar = time.Local
	}
	return &LLMParser{
		llm:      llm,
		calendar: calendar,
		now:      time.Now,
	}
}

// WithClock returns a copy reading "today" from the given clock.
func (p *LLMParser) WithClock(now func() time.Time) *LLMParser {
	return &LLMParser{llm: p.llm, calendar: p.calendar, now: now}
}

// llmDatesResponse is the event mode answer.
type llmDatesResponse struct {
	Title          *string   `json:"title"`
	AvailableDates *[]string `json:"available_dates"`
}

// llmRangesResponse is the meeting mode answer.
type llmRangesResponse struct {
	Title           *string          `json:"title"`
	AvailableRanges *[]llmRangeEntry `json:"available_ranges"`
}

type llmRangeEntry struct {
	Date  string `json:"date"`  // YYYY-MM-DD
	Start string `json:"start"` // HH:MM
	End   string `json:"end"`   // HH:MM
}

var datesSchema = &ai.ResponseSchema{
	Name: "availability_dates",
	Schema: ai.Object(map[string]*ai.JSONSchema{
		"title": {Type: "string", Description: "Short event title suggested by the text, or empty string"},
		"available_dates": {
			Type:        "array",
			Description: "Every date the person is available, ISO YYYY-MM-DD",
			Items:       &ai.JSONSchema{Type: "string"},
		},
	}, "title", "available_dates"),
}

var rangesSchema = &ai.ResponseSchema{
	Name: "availability_ranges",
	Schema: ai.Object(map[string]*ai.JSONSchema{
		"title": {Type: "string", Description: "Short meeting title suggested by the text, or empty string"},
		"available_ranges": {
			Type:        "array",
			Description: "Every time range the person is available",
			Items: ai.Object(map[string]*ai.JSONSchema{
				"date":  {Type: "string", Description: "ISO YYYY-MM-DD"},
				"start": {Type: "string", Description: "24h HH:MM"},
				"end":   {Type: "string", Description: "24h HH:MM, 24:00 for end of day"},
			}, "date", "start", "end"),
		},
	}, "title", "available_ranges"),
}

const datesSystemPrompt = `You extract availability from free text.
Today is %s (%s). Timezone: %s.

Return every date the person says they are available as YYYY-MM-DD.
Resolve relative expressions ("next friday", "the 15th") against today.
Dates without a year are the next occurrence on or after today.
Ignore dates the person says they are NOT available.`

const rangesSystemPrompt = `You extract meeting availability from free text.
Today is %s (%s). Timezone: %s.

Return every time range the person is available as {date, start, end}
with date YYYY-MM-DD and times as 24h HH:MM in the person's timezone.
Resolve relative expressions ("tomorrow afternoon", "next monday") against today.
Use 09:00-17:00 when a day is given without times, 12:00-17:00 for "afternoon",
09:00-12:00 for "morning" and 17:00-21:00 for "evening".
A range that ends after midnight keeps the end time (22:00 to 02:00).
Ignore times the person says they are NOT available.`

// Parse sends one request and converts the answer. Transport errors,
// malformed JSON, missing fields and answers without a usable interval
// are all errors.
func (p *LLMParser) Parse(ctx context.Context, req ParseRequest) (*ParseResult, error) {
	tz := req.Timezone
	if tz == "" {
		tz = timezone.TimezoneUTC
	}
	loc, err := timezone.ParseTimezone(tz)
	if err != nil {
		loc = timezone.UTC
	}
	today := p.now().In(loc)

	prompt, schema := datesSystemPrompt, datesSchema
	if req.IsMeeting {
		prompt, schema = rangesSystemPrompt, rangesSchema
	}
	messages := []ai.Message{
		ai.SystemPrompt(fmt.Sprintf(prompt, today.Format("2006-01-02"), today.Weekday(), tz)),
		ai.UserMessage(req.Text),
	}

	content, err := p.llm.ChatJSON(ctx, messages, schema)
	if err != nil {
		return nil, err
	}
	content = ai.CleanJSON(content)

	if req.IsMeeting {
		return p.convertRanges(content, tz)
	}
	return p.convertDates(content, tz)
}

func (p *LLMParser) convertDates(content, tz string) (*ParseResult, error) {
	var resp llmDatesResponse
	if err := decodeStrict(content, &resp); err != nil {
		return nil, err
	}
	if resp.Title == nil || resp.AvailableDates == nil {
		return nil, fmt.Errorf("LLM response missing title or available_dates")
	}

	intervals := make([]aitime.Interval, 0, len(*resp.AvailableDates))
	for _, raw := range *resp.AvailableDates {
		d, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(raw), p.calendar)
		if err != nil {
			slog.Debug("dropping malformed LLM date", "date", raw, "error", err)
			continue
		}
		intervals = append(intervals, aitime.NewPoint(raw, d.Unix(), tz))
	}
	if len(intervals) == 0 {
		return nil, fmt.Errorf("LLM response contained no usable dates")
	}

	return &ParseResult{Intervals: intervals, Title: *resp.Title, Source: SourceLLM}, nil
}

func (p *LLMParser) convertRanges(content, tz string) (*ParseResult, error) {
	var resp llmRangesResponse
	if err := decodeStrict(content, &resp); err != nil {
		return nil, err
	}
	if resp.Title == nil || resp.AvailableRanges == nil {
		return nil, fmt.Errorf("LLM response missing title or available_ranges")
	}

	intervals := make([]aitime.Interval, 0, len(*resp.AvailableRanges))
	for _, r := range *resp.AvailableRanges {
		d, err := time.Parse("2006-01-02", strings.TrimSpace(r.Date))
		if err != nil {
			slog.Debug("dropping malformed LLM range date", "date", r.Date, "error", err)
			continue
		}
		sh, sm, ok1 := parseHHMM(r.Start)
		eh, em, ok2 := parseHHMM(r.End)
		if !ok1 || !ok2 {
			slog.Debug("dropping malformed LLM range time", "start", r.Start, "end", r.End)
			continue
		}
		text := fmt.Sprintf("%s %s-%s", r.Date, r.Start, r.End)
		intervals = append(intervals, aitime.BuildRange(text, d.Year(), d.Month(), d.Day(), sh, sm, eh, em, tz))
	}
	if len(intervals) == 0 {
		return nil, fmt.Errorf("LLM response contained no usable ranges")
	}

	return &ParseResult{Intervals: intervals, Title: *resp.Title, Source: SourceLLM}, nil
}

// decodeStrict rejects unknown fields and trailing data.
func decodeStrict(content string, v any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(content)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to parse LLM response: %w", err)
	}
	if dec.More() {
		return fmt.Errorf("failed to parse LLM response: trailing data")
	}
	return nil
}

// parseHHMM reads "9:30" or "09:30". 24:00 is accepted as end of day.
func parseHHMM(s string) (int, int, bool) {
	hourStr, minStr, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found || len(minStr) != 2 {
		return 0, 0, false
	}
	hour, err := strconv.Atoi(hourStr)
	if err != nil {
		return 0, 0, false
	}
	minute, err := strconv.Atoi(minStr)
	if err != nil {
		return 0, 0, false
	}
	if hour < 0 || hour > 24 || minute < 0 || minute > 59 || (hour == 24 && minute != 0) {
		return 0, 0, false
	}
	return hour, minute, true
}

var _ AvailabilityParser = (*LLMParser)(nil)
