package aitime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMonthIndex(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"january", 0},
		{"June", 5},
		{"  DECEMBER ", 11},
		{"feb", 1},
		{"may", 4},
		{"sept", 8},
		{"ma", 2},  // march precedes may
		{"ju", 5},  // june precedes july
		{"", 0},    // empty prefix matches the first entry
		{"xyz", -1},
		{"junes", -1},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, MonthIndex(tt.input))
		})
	}
}

func TestDayOfWeekIndex(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"sunday", 0},
		{"SUNDAY", 0},
		{"Mon", 1},
		{" fri ", 5},
		{"t", 2},
		{"th", 4},
		{"satur", 6},
		{"", 0},
		{"someday", -1},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, DayOfWeekIndex(tt.input))
		})
	}
}
