package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/slotfinder/plugin/ai/aitime"
)

// Participant is one response to an event.
type Participant struct {
	ID      string
	EventID string
	Name    string
	// RawDateInput is the free text the participant typed.
	RawDateInput string
	ParsedDates  []aitime.Interval
	// Timezone is the zone the participant answered in.
	Timezone  string
	CreatedTs int64
	UpdatedTs int64
}

// FindParticipant is the find condition for participant.
type FindParticipant struct {
	ID      *string
	EventID *string
}

// UpdateParticipant is the update request for participant.
type UpdateParticipant struct {
	ID           string
	UpdatedTs    *int64
	Name         *string
	RawDateInput *string
	ParsedDates  *[]aitime.Interval
	Timezone     *string
}

// DeleteParticipant is the delete request for participant.
type DeleteParticipant struct {
	ID string
}

// CreateParticipant adds a participant to an existing event.
func (s *Store) CreateParticipant(ctx context.Context, create *Participant) (*Participant, error) {
	if create.EventID == "" {
		return nil, errors.New("participant event id is required")
	}
	if create.Name == "" {
		return nil, errors.New("participant name is required")
	}
	if create.ID == "" {
		create.ID = shortuuid.New()
	}
	if create.ParsedDates == nil {
		create.ParsedDates = []aitime.Interval{}
	}
	return s.driver.CreateParticipant(ctx, create)
}

// ListParticipants lists participants in submission order.
func (s *Store) ListParticipants(ctx context.Context, find *FindParticipant) ([]*Participant, error) {
	return s.driver.ListParticipants(ctx, find)
}

// GetParticipant gets a participant by ID. It returns nil when none matches.
func (s *Store) GetParticipant(ctx context.Context, id string) (*Participant, error) {
	list, err := s.ListParticipants(ctx, &FindParticipant{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// UpdateParticipant updates a participant and returns its new state.
func (s *Store) UpdateParticipant(ctx context.Context, update *UpdateParticipant) (*Participant, error) {
	if update.Name != nil && *update.Name == "" {
		return nil, errors.New("participant name is required")
	}
	if update.UpdatedTs == nil {
		now := time.Now().Unix()
		update.UpdatedTs = &now
	}
	if err := s.driver.UpdateParticipant(ctx, update); err != nil {
		return nil, err
	}
	participant, err := s.GetParticipant(ctx, update.ID)
	if err != nil {
		return nil, err
	}
	if participant == nil {
		return nil, errors.Errorf("participant %s not found", update.ID)
	}
	return participant, nil
}

// DeleteParticipant deletes a participant.
func (s *Store) DeleteParticipant(ctx context.Context, delete *DeleteParticipant) error {
	return s.driver.DeleteParticipant(ctx, delete)
}

// MarshalParsedDates encodes intervals for the parsed_dates column.
func MarshalParsedDates(intervals []aitime.Interval) (string, error) {
	if intervals == nil {
		intervals = []aitime.Interval{}
	}
	data, err := json.Marshal(intervals)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal parsed dates")
	}
	return string(data), nil
}

// UnmarshalParsedDates decodes the parsed_dates column. Rows written before
// the kind field existed are accepted.
func UnmarshalParsedDates(raw string) ([]aitime.Interval, error) {
	intervals := []aitime.Interval{}
	if raw == "" || raw == "null" {
		return intervals, nil
	}
	if err := json.Unmarshal([]byte(raw), &intervals); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal parsed dates")
	}
	return intervals, nil
}
