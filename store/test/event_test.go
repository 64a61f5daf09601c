package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/slotfinder/plugin/ai/aitime"
	"github.com/hrygo/slotfinder/store"
)

func TestEventStore(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	event, err := ts.CreateEvent(ctx, &store.Event{
		Title:           "Quarterly planning",
		Description:     "Bring **numbers**.",
		IsMeeting:       true,
		MeetingDuration: 45,
		CreatorName:     "Ada",
	})
	require.NoError(t, err)
	require.NotEmpty(t, event.ID)
	require.NotZero(t, event.CreatedTs)
	require.Equal(t, event.CreatedTs, event.UpdatedTs)

	got, err := ts.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Quarterly planning", got.Title)
	assert.True(t, got.IsMeeting)
	assert.Equal(t, 45, got.MeetingDuration)
	assert.Equal(t, "Ada", got.CreatorName)

	title := "Q3 planning"
	meeting := false
	updatedTs := event.UpdatedTs + 60
	updated, err := ts.UpdateEvent(ctx, &store.UpdateEvent{
		ID:        event.ID,
		Title:     &title,
		IsMeeting: &meeting,
		UpdatedTs: &updatedTs,
	})
	require.NoError(t, err)
	assert.Equal(t, "Q3 planning", updated.Title)
	assert.False(t, updated.IsMeeting)
	assert.Equal(t, "Bring **numbers**.", updated.Description)
	assert.Equal(t, updatedTs, updated.UpdatedTs)

	list, err := ts.ListEvents(ctx, &store.FindEvent{})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, ts.DeleteEvent(ctx, &store.DeleteEvent{ID: event.ID}))
	got, err = ts.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestEventStore_Validation(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	_, err := ts.CreateEvent(ctx, &store.Event{})
	assert.Error(t, err)

	event, err := ts.CreateEvent(ctx, &store.Event{ID: "fixed-id", Title: "Lunch"})
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", event.ID)

	empty := ""
	_, err = ts.UpdateEvent(ctx, &store.UpdateEvent{ID: event.ID, Title: &empty})
	assert.Error(t, err)

	title := "Dinner"
	_, err = ts.UpdateEvent(ctx, &store.UpdateEvent{ID: "missing", Title: &title})
	assert.Error(t, err)
}

func TestEventStore_Pagination(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	for i, title := range []string{"a", "b", "c"} {
		_, err := ts.CreateEvent(ctx, &store.Event{Title: title, CreatedTs: int64(1000 + i), UpdatedTs: int64(1000 + i)})
		require.NoError(t, err)
	}

	limit, offset := 2, 1
	list, err := ts.ListEvents(ctx, &store.FindEvent{Limit: &limit, Offset: &offset})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].Title)
	assert.Equal(t, "a", list[1].Title)
}

func TestEventStore_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	event, err := ts.CreateEvent(ctx, &store.Event{Title: "Lunch"})
	require.NoError(t, err)
	_, err = ts.CreateParticipant(ctx, &store.Participant{
		EventID:     event.ID,
		Name:        "Grace",
		ParsedDates: []aitime.Interval{aitime.NewPoint("6/15", 1781481600, "UTC")},
	})
	require.NoError(t, err)

	require.NoError(t, ts.DeleteEvent(ctx, &store.DeleteEvent{ID: event.ID}))

	participants, err := ts.ListParticipants(ctx, &store.FindParticipant{EventID: &event.ID})
	require.NoError(t, err)
	assert.Empty(t, participants)
}
