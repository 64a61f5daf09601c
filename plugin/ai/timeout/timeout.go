// Package timeout defines centralized timeout constants for AI operations.
package timeout

import "time"

// AI operation timeout constants.
const (
	// LLMParseTimeout bounds the single LLM attempt of an availability parse.
	// After it expires the rule-based parser answers instead.
	LLMParseTimeout = 15 * time.Second

	// MaxTruncateLength is the maximum length for truncating strings in logs.
	MaxTruncateLength = 200
)
