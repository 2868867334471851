package events

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("event not found")
	// ErrTicketsExist blocks deleting an event that tickets still reference.
	ErrTicketsExist = errors.New("cannot delete event with existing tickets")
)

const (
	TicketValid   = "valid"
	TicketRevoked = "revoked"
)

type Event struct {
	EventID          string    `json:"event_id"`
	EventName        string    `json:"event_name"`
	EventDate        time.Time `json:"event_date"`
	Venue            string    `json:"venue"`
	EventDescription *string   `json:"event_description"`
	EventImageURL    *string   `json:"event_image_url"`
	Category         *string   `json:"category"`
	CreatedBy        *string   `json:"created_by"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Availability summarizes ticket counts for an event. It is computed on read.
type Availability struct {
	TotalTickets     int `json:"total_tickets"`
	AvailableTickets int `json:"available_tickets"`
	SoldTickets      int `json:"sold_tickets"`
	RevokedTickets   int `json:"revoked_tickets"`
}

// TicketCounts is the raw per-status tally the store reports.
type TicketCounts struct {
	Total   int
	Valid   int
	Revoked int
}

func (c TicketCounts) Availability() Availability {
	return Availability{
		TotalTickets:     c.Total,
		AvailableTickets: c.Valid,
		SoldTickets:      c.Total,
		RevokedTickets:   c.Revoked,
	}
}

// Detail is an event with its availability. Availability is nil when the
// ticket lookup failed.
type Detail struct {
	Event
	Availability *Availability `json:"availability"`
}

type CreateParams struct {
	EventName        string
	EventDate        time.Time
	Venue            string
	EventDescription *string
	EventImageURL    *string
	Category         *string
	CreatedBy        *string
}

// Patch holds the columns an update writes. Nil fields are left untouched.
type Patch struct {
	EventName        *string
	EventDate        *time.Time
	Venue            *string
	EventDescription *string
	EventImageURL    *string
	Category         *string
}

func (p Patch) Empty() bool {
	return p.EventName == nil && p.EventDate == nil && p.Venue == nil &&
		p.EventDescription == nil && p.EventImageURL == nil && p.Category == nil
}
