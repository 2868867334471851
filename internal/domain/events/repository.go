package events

import (
	"context"
	"time"
)

type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Event, error)
	GetByID(ctx context.Context, eventID string) (*Event, error)
	Create(ctx context.Context, params CreateParams) (*Event, error)
	Update(ctx context.Context, eventID string, patch Patch) (*Event, error)
	// Delete returns ErrTicketsExist when tickets still reference the event.
	Delete(ctx context.Context, eventID string) error
	CountTickets(ctx context.Context, eventID string) (TicketCounts, error)
}

// When selects events relative to a reference time.
type When int

const (
	WhenAny When = iota
	WhenUpcoming
	WhenPast
)

type ListFilters struct {
	When       When
	Now        time.Time
	Category   string
	SortField  string
	Descending bool
}
