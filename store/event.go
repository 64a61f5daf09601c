package store

import (
	"context"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"
)

// Event is a scheduling poll: either a set of candidate dates or, for
// meetings, a search for a common time slot.
type Event struct {
	ID          string
	Title       string
	Description string
	IsMeeting   bool
	// MeetingDuration is the slot length in minutes; 0 for date polls.
	MeetingDuration int
	CreatorName     string
	CreatedTs       int64
	UpdatedTs       int64
}

// FindEvent is the find condition for event.
type FindEvent struct {
	ID *string

	// Pagination
	Limit  *int
	Offset *int
}

// UpdateEvent is the update request for event.
type UpdateEvent struct {
	ID              string
	UpdatedTs       *int64
	Title           *string
	Description     *string
	IsMeeting       *bool
	MeetingDuration *int
	CreatorName     *string
}

// DeleteEvent is the delete request for event.
type DeleteEvent struct {
	ID string
}

// CreateEvent creates a new event. An empty ID is replaced with a short uuid.
func (s *Store) CreateEvent(ctx context.Context, create *Event) (*Event, error) {
	if create.Title == "" {
		return nil, errors.New("event title is required")
	}
	if create.ID == "" {
		create.ID = shortuuid.New()
	}
	return s.driver.CreateEvent(ctx, create)
}

// ListEvents lists events with filter, newest first.
func (s *Store) ListEvents(ctx context.Context, find *FindEvent) ([]*Event, error) {
	return s.driver.ListEvents(ctx, find)
}

// GetEvent gets an event by ID. It returns nil when none matches.
func (s *Store) GetEvent(ctx context.Context, id string) (*Event, error) {
	list, err := s.ListEvents(ctx, &FindEvent{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// UpdateEvent updates an event and returns its new state.
func (s *Store) UpdateEvent(ctx context.Context, update *UpdateEvent) (*Event, error) {
	if update.Title != nil && *update.Title == "" {
		return nil, errors.New("event title is required")
	}
	if update.UpdatedTs == nil {
		now := time.Now().Unix()
		update.UpdatedTs = &now
	}
	if err := s.driver.UpdateEvent(ctx, update); err != nil {
		return nil, err
	}
	event, err := s.GetEvent(ctx, update.ID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, errors.Errorf("event %s not found", update.ID)
	}
	return event, nil
}

// DeleteEvent deletes an event together with its participants.
func (s *Store) DeleteEvent(ctx context.Context, delete *DeleteEvent) error {
	return s.driver.DeleteEvent(ctx, delete)
}
