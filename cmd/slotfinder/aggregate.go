package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hrygo/slotfinder/internal/profile"
	"github.com/hrygo/slotfinder/plugin/ai/aitime"
	"github.com/hrygo/slotfinder/server/service/availability"
)

// aggregateInput is the document the aggregate command reads.
type aggregateInput struct {
	IsMeeting       bool `json:"isMeeting"`
	MeetingDuration int  `json:"meetingDuration"`
	Participants    []struct {
		ID          string            `json:"id"`
		Name        string            `json:"name"`
		Timezone    string            `json:"timezone"`
		ParsedDates []aitime.Interval `json:"parsedDates"`
	} `json:"participants"`
}

var aggregateCmd = &cobra.Command{
	Use:   "aggregate [file]",
	Short: "Aggregate participants' parsed availability and print the grid as JSON",
	Long: `Aggregate reads {"isMeeting", "meetingDuration", "participants": [{"id",
"name", "timezone", "parsedDates"}]} from the file, or stdin when it is
omitted or "-".`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		r, err := openInput(path, cmd.InOrStdin())
		if err != nil {
			return err
		}
		defer r.Close()

		var in aggregateInput
		if err := json.NewDecoder(r).Decode(&in); err != nil {
			return fmt.Errorf("failed to decode input: %w", err)
		}

		p := &profile.Profile{}
		p.FromEnv()
		viewer, _ := cmd.Flags().GetString("timezone")

		participants := make([]availability.Participant, 0, len(in.Participants))
		for _, raw := range in.Participants {
			participants = append(participants, availability.Participant{
				ID:        raw.ID,
				Name:      raw.Name,
				Timezone:  raw.Timezone,
				Intervals: raw.ParsedDates,
			})
		}

		result, err := availability.Aggregate(
			&availability.Event{IsMeeting: in.IsMeeting, MeetingDuration: in.MeetingDuration},
			participants,
			availability.Options{
				ViewerTimezone:   viewer,
				FallbackTimezone: p.DefaultTimezone,
				CalendarLocation: p.CalendarLocation(),
			},
		)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), result)
	},
}

func init() {
	aggregateCmd.Flags().String("timezone", "", "viewer zone for slots (default SLOTFINDER_DEFAULT_TIMEZONE)")
}
