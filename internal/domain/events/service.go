package events

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/Togather-Foundation/eventdesk/internal/auth"
	"github.com/Togather-Foundation/eventdesk/internal/domain/ids"
	"github.com/Togather-Foundation/eventdesk/internal/sanitize"
	"github.com/Togather-Foundation/eventdesk/internal/validation"
	"github.com/rs/zerolog"
)

const DefaultSort = "event_date"

var sortableFields = map[string]bool{
	"event_date": true,
	"event_name": true,
	"venue":      true,
	"category":   true,
	"created_at": true,
}

type Service struct {
	repo      Repository
	validator *validation.Validator
	now       func() time.Time
	logger    zerolog.Logger
}

type Option func(*Service)

// WithClock replaces time.Now for future-date checks and list windows.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo Repository, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		validator: validation.NewValidator(),
		now:       time.Now,
		logger:    logger.With().Str("component", "events").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListQuery is a parsed event listing request.
type ListQuery struct {
	When       When
	Category   string
	Sort       string
	Descending bool
}

// ParseListQuery reads the upcoming/past window, category, sort and order.
// upcoming wins when both flags are set.
func ParseListQuery(values url.Values) (ListQuery, error) {
	query := ListQuery{Sort: DefaultSort}

	switch {
	case strings.EqualFold(strings.TrimSpace(values.Get("upcoming")), "true"):
		query.When = WhenUpcoming
	case strings.EqualFold(strings.TrimSpace(values.Get("past")), "true"):
		query.When = WhenPast
	}

	query.Category = strings.TrimSpace(values.Get("category"))

	if sort := strings.TrimSpace(values.Get("sort")); sort != "" {
		if !sortableFields[sort] {
			return query, validation.Invalid("sort", "Invalid sort field: %s", sort)
		}
		query.Sort = sort
	}

	switch order := strings.ToLower(strings.TrimSpace(values.Get("order"))); order {
	case "", "asc":
	case "desc":
		query.Descending = true
	default:
		return query, validation.Invalid("order", "Invalid order. Must be asc or desc")
	}
	return query, nil
}

func (s *Service) List(ctx context.Context, query ListQuery) ([]Event, error) {
	events, err := s.repo.List(ctx, ListFilters{
		When:       query.When,
		Now:        s.now().UTC(),
		Category:   query.Category,
		SortField:  query.Sort,
		Descending: query.Descending,
	})
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []Event{}
	}
	return events, nil
}

// Get returns an event with its ticket availability. A failed ticket lookup
// degrades to a nil Availability instead of failing the read.
func (s *Service) Get(ctx context.Context, eventID string) (*Detail, error) {
	id, err := s.eventID(eventID, validation.MissingParameter)
	if err != nil {
		return nil, err
	}

	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &Detail{Event: *event}
	counts, err := s.repo.CountTickets(ctx, id)
	if err != nil {
		s.logger.Warn().Err(err).Str("event_id", id).Msg("ticket availability lookup failed")
		return detail, nil
	}
	availability := counts.Availability()
	detail.Availability = &availability
	return detail, nil
}

type CreateInput struct {
	EventName        string `json:"event_name" validate:"required,max=300"`
	EventDate        string `json:"event_date" validate:"required"`
	Venue            string `json:"venue" validate:"required,max=300"`
	EventDescription string `json:"event_description"`
	EventImageURL    string `json:"event_image_url"`
	Category         string `json:"category" validate:"max=100"`
}

var createRequired = []string{"event_name", "event_date", "venue"}

// Create stores a new event. Admin only; the date must lie in the future.
func (s *Service) Create(ctx context.Context, caller *auth.Principal, input CreateInput) (*Event, error) {
	if err := auth.Authorize(caller, auth.TierAdmin, ""); err != nil {
		return nil, err
	}

	input.EventName = strings.TrimSpace(sanitize.Text(input.EventName))
	input.Venue = strings.TrimSpace(sanitize.Text(input.Venue))
	input.EventDate = strings.TrimSpace(input.EventDate)
	if err := s.validator.Struct(input, createRequired...); err != nil {
		return nil, err
	}

	now := s.now()
	date, err := ParseDate(input.EventDate, now)
	if err != nil {
		return nil, validation.Invalid("event_date", "Invalid date format")
	}
	if !date.After(now) {
		return nil, validation.Invalid("event_date", "Event date must be in the future")
	}

	params := CreateParams{
		EventName:        input.EventName,
		EventDate:        date,
		Venue:            input.Venue,
		EventDescription: optionalHTML(input.EventDescription),
		EventImageURL:    optional(input.EventImageURL),
		Category:         optionalText(input.Category),
	}
	if params.EventImageURL != nil {
		if err := validation.ValidateURL("event_image_url", *params.EventImageURL); err != nil {
			return nil, err
		}
	}
	createdBy := caller.UserID
	params.CreatedBy = &createdBy

	event, err := s.repo.Create(ctx, params)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("event_id", event.EventID).Str("created_by", createdBy).Msg("event created")
	return event, nil
}

// UpdateInput is a partial event update. Nil or empty fields are ignored.
type UpdateInput struct {
	EventID          string  `json:"event_id"`
	EventName        *string `json:"event_name"`
	EventDate        *string `json:"event_date"`
	Venue            *string `json:"venue"`
	EventDescription *string `json:"event_description"`
	EventImageURL    *string `json:"event_image_url"`
	Category         *string `json:"category"`
}

// Update applies the fields present in input. An unknown event is reported
// before any field is validated.
func (s *Service) Update(ctx context.Context, caller *auth.Principal, input UpdateInput) (*Event, error) {
	if err := auth.Authorize(caller, auth.TierAdmin, ""); err != nil {
		return nil, err
	}

	id, err := s.eventID(input.EventID, func(name string) validation.Error { return validation.Missing(name) })
	if err != nil {
		return nil, err
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	patch := Patch{
		EventName:        presentText(input.EventName),
		Venue:            presentText(input.Venue),
		EventDescription: presentHTML(input.EventDescription),
		EventImageURL:    present(input.EventImageURL),
		Category:         presentText(input.Category),
	}
	if raw := present(input.EventDate); raw != nil {
		date, err := ParseDate(*raw, s.now())
		if err != nil {
			return nil, validation.Invalid("event_date", "Invalid date format")
		}
		patch.EventDate = &date
	}
	if patch.EventImageURL != nil {
		if err := validation.ValidateURL("event_image_url", *patch.EventImageURL); err != nil {
			return nil, err
		}
	}

	if patch.Empty() {
		return current, nil
	}
	return s.repo.Update(ctx, id, patch)
}

// Delete removes an event that no ticket references.
func (s *Service) Delete(ctx context.Context, caller *auth.Principal, eventID string) error {
	if err := auth.Authorize(caller, auth.TierAdmin, ""); err != nil {
		return err
	}

	id, err := s.eventID(eventID, validation.MissingParameter)
	if err != nil {
		return err
	}

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}

	counts, err := s.repo.CountTickets(ctx, id)
	if err != nil {
		return err
	}
	if counts.Total > 0 {
		return ErrTicketsExist
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("event_id", id).Str("deleted_by", caller.UserID).Msg("event deleted")
	return nil
}

// eventID requires a value and normalizes it. Malformed ids cannot match a
// stored event and report ErrNotFound.
func (s *Service) eventID(raw string, missing func(string) validation.Error) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", missing("event_id")
	}
	id, err := ids.NormalizeUUID(raw)
	if err != nil {
		return "", ErrNotFound
	}
	return id, nil
}

func optional(value string) *string {
	return present(&value)
}

func optionalText(value string) *string {
	return presentText(&value)
}

func optionalHTML(value string) *string {
	return presentHTML(&value)
}

func present(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func presentText(value *string) *string {
	if value == nil {
		return nil
	}
	clean := sanitize.Text(*value)
	return present(&clean)
}

func presentHTML(value *string) *string {
	if value == nil {
		return nil
	}
	clean := sanitize.HTML(*value)
	return present(&clean)
}
