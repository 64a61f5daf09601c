package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	t.Setenv("SLOTFINDER_AI_ENABLED", "false")
	t.Setenv("SLOTFINDER_CALENDAR_TIMEZONE", "UTC")

	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	return out.String()
}

func TestParseCommand(t *testing.T) {
	out := run(t, "", "parse", "--meeting", "--timezone", "Europe/Zurich", "6/15/2030 from 9 to 12")

	var res struct {
		Source    string `json:"source"`
		Intervals []struct {
			Kind     string `json:"kind"`
			Timezone string `json:"timezone"`
		} `json:"parsedIntervals"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "rules", res.Source)
	require.Len(t, res.Intervals, 1)
	assert.Equal(t, "range", res.Intervals[0].Kind)
	assert.Equal(t, "Europe/Zurich", res.Intervals[0].Timezone)
}

func TestAggregateCommand(t *testing.T) {
	input := `{
		"isMeeting": false,
		"participants": [
			{"id": "a", "parsedDates": [{"kind": "point", "originalText": "6/15", "timestamp": {"seconds": 1907712000}}]},
			{"id": "b", "parsedDates": [{"kind": "point", "originalText": "6/15", "timestamp": {"seconds": 1907712000}}]}
		]
	}`
	out := run(t, input, "aggregate", "--timezone", "UTC")

	var res struct {
		ParticipantCount int             `json:"participantCount"`
		CommonSlots      map[string]bool `json:"commonSlots"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 2, res.ParticipantCount)
	assert.True(t, res.CommonSlots["2030-06-15"])
}
