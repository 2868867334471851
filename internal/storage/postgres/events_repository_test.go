package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/Togather-Foundation/eventdesk/internal/domain/events"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createEvent(t *testing.T, ctx context.Context, repo *EventRepository, name string, date time.Time, category *string) *events.Event {
	t.Helper()
	e, err := repo.Create(ctx, events.CreateParams{
		EventName: name,
		EventDate: date,
		Venue:     "Hall",
		Category:  category,
	})
	require.NoError(t, err)
	return e
}

func TestEventRepositoryCRUD(t *testing.T) {
	pool, _ := setupPostgres(t)
	ctx := context.Background()
	repo := &EventRepository{pool: pool}

	date := time.Date(2030, 5, 1, 19, 0, 0, 0, time.UTC)
	created := createEvent(t, ctx, repo, "Gala", date, nil)
	assert.True(t, created.EventDate.Equal(date))
	assert.Nil(t, created.Category)

	venue := "Annex"
	updated, err := repo.Update(ctx, created.EventID, events.Patch{Venue: &venue})
	require.NoError(t, err)
	assert.Equal(t, "Annex", updated.Venue)
	assert.Equal(t, "Gala", updated.EventName)
	assert.True(t, updated.EventDate.Equal(date))

	_, err = repo.Update(ctx, uuid.NewString(), events.Patch{Venue: &venue})
	assert.ErrorIs(t, err, events.ErrNotFound)

	require.NoError(t, repo.Delete(ctx, created.EventID))
	_, err = repo.GetByID(ctx, created.EventID)
	assert.ErrorIs(t, err, events.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, created.EventID), events.ErrNotFound)
}

func TestEventRepositoryTickets(t *testing.T) {
	pool, _ := setupPostgres(t)
	ctx := context.Background()
	repo := &EventRepository{pool: pool}

	e := createEvent(t, ctx, repo, "Concert", time.Now().Add(24*time.Hour), nil)

	counts, err := repo.CountTickets(ctx, e.EventID)
	require.NoError(t, err)
	assert.Equal(t, events.TicketCounts{}, counts)

	insertTicket(t, ctx, pool, e.EventID, events.TicketValid)
	insertTicket(t, ctx, pool, e.EventID, events.TicketValid)
	insertTicket(t, ctx, pool, e.EventID, events.TicketRevoked)

	counts, err = repo.CountTickets(ctx, e.EventID)
	require.NoError(t, err)
	assert.Equal(t, events.TicketCounts{Total: 3, Valid: 2, Revoked: 1}, counts)

	assert.ErrorIs(t, repo.Delete(ctx, e.EventID), events.ErrTicketsExist)
	_, err = repo.GetByID(ctx, e.EventID)
	require.NoError(t, err)
}

func TestEventRepositoryList(t *testing.T) {
	pool, _ := setupPostgres(t)
	ctx := context.Background()
	repo := &EventRepository{pool: pool}

	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	music := "music"
	createEvent(t, ctx, repo, "Past", now.Add(-48*time.Hour), nil)
	createEvent(t, ctx, repo, "Later", now.Add(72*time.Hour), &music)
	createEvent(t, ctx, repo, "Soon", now.Add(2*time.Hour), nil)

	all, err := repo.List(ctx, events.ListFilters{SortField: "event_date"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"Past", "Soon", "Later"}, names(all))

	upcoming, err := repo.List(ctx, events.ListFilters{When: events.WhenUpcoming, Now: now, SortField: "event_date", Descending: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"Later", "Soon"}, names(upcoming))

	past, err := repo.List(ctx, events.ListFilters{When: events.WhenPast, Now: now, SortField: "event_date"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Past"}, names(past))

	byCategory, err := repo.List(ctx, events.ListFilters{Category: "music", SortField: "event_name"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Later"}, names(byCategory))
}

func names(list []events.Event) []string {
	out := make([]string, 0, len(list))
	for _, e := range list {
		out = append(out, e.EventName)
	}
	return out
}
