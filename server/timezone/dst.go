package timezone

import (
	"fmt"
	"log/slog"
	"time"
)

// ValidationResult contains the result of validating a wall clock in a zone.
type ValidationResult struct {
	ValidTime time.Time // The resolved time (adjusted if necessary)
	Warnings  []string  // Any warnings about time adjustments
}

// Adjusted reports whether the wall clock raised any DST warning.
func (r *ValidationResult) Adjusted() bool {
	return len(r.Warnings) > 0
}

// ValidateWallClock resolves digits in loc and reports DST edge cases:
//
//  1. Spring forward: digits inside the gap do not exist; time.Date
//     shifts them out of the gap by the size of the transition.
//  2. Fall back: digits in the repeated hour are ambiguous; the first
//     occurrence is used.
func ValidateWallClock(w WallClock, loc *time.Location) *ValidationResult {
	if loc == nil {
		loc = UTC
	}
	var warnings []string

	t := time.Date(w.Year, w.Month, w.Day, w.Hour, w.Minute, w.Second, 0, loc)

	if t.Hour() != w.Hour || t.Minute() != w.Minute {
		warnings = append(warnings, fmt.Sprintf("%s does not exist in %s (DST spring forward), adjusted to %02d:%02d",
			w, loc, t.Hour(), t.Minute()))
		slog.Debug("timezone: nonexistent wall clock adjusted",
			"wall_clock", w.String(),
			"adjusted", t.Format("15:04"),
			"timezone", loc.String())
	} else if isAmbiguous(t) {
		warnings = append(warnings, fmt.Sprintf("%s is ambiguous in %s (DST fall back), using first occurrence",
			w, loc))
	}

	return &ValidationResult{
		ValidTime: t,
		Warnings:  warnings,
	}
}

// isAmbiguous reports whether the wall clock of t occurs twice because the
// zone offset drops within the next hour.
func isAmbiguous(t time.Time) bool {
	_, offset := t.Zone()
	_, offsetLater := t.Add(time.Hour).Zone()
	return offsetLater < offset
}
