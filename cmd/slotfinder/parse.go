package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hrygo/slotfinder/internal/profile"
	"github.com/hrygo/slotfinder/plugin/ai"
	"github.com/hrygo/slotfinder/plugin/ai/aitime"
	"github.com/hrygo/slotfinder/plugin/ai/schedule"
)

var parseCmd = &cobra.Command{
	Use:   "parse [text]",
	Short: "Parse free-text availability and print the intervals as JSON",
	Long: `Parse free-text availability. The text is read from the arguments, or
from stdin when none are given. The LLM is used when SLOTFINDER_AI_* is
configured; otherwise only the rule-based parser runs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		if text == "" {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			text = string(data)
		}
		meeting, _ := cmd.Flags().GetBool("meeting")
		tz, _ := cmd.Flags().GetString("timezone")

		p := &profile.Profile{}
		p.FromEnv()
		if tz == "" {
			tz = p.DefaultTimezone
		}

		var primary schedule.AvailabilityParser
		if cfg := ai.NewConfigFromProfile(p); cfg.Enabled {
			if err := cfg.Validate(); err != nil {
				return err
			}
			llm, err := ai.NewLLMService(&cfg.LLM)
			if err != nil {
				return err
			}
			primary = schedule.NewLLMParser(llm, p.CalendarLocation())
		}
		svc := schedule.NewService(primary, aitime.NewParser(p.CalendarLocation()), nil, schedule.ServiceConfig{
			Timeout: p.AIParseTimeout,
		})

		res := svc.Parse(cmd.Context(), schedule.ParseRequest{Text: text, IsMeeting: meeting, Timezone: tz})
		return writeJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	parseCmd.Flags().Bool("meeting", false, "parse time ranges for a meeting instead of dates")
	parseCmd.Flags().String("timezone", "", "zone the text was written in (default SLOTFINDER_DEFAULT_TIMEZONE)")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

func openInput(path string, stdin io.Reader) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(stdin), nil
	}
	return os.Open(path)
}
