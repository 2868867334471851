package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Togather-Foundation/eventdesk/internal/domain/events"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ events.Repository = (*EventRepository)(nil)

type EventRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

const eventColumns = `event_id, event_name, event_date, venue, event_description, event_image_url,
       category, created_by, created_at, updated_at`

var eventSortColumns = map[string]string{
	"event_date": "event_date",
	"event_name": "event_name",
	"venue":      "venue",
	"category":   "category",
	"created_at": "created_at",
}

func scanEvent(row pgx.Row) (*events.Event, error) {
	var e events.Event
	if err := row.Scan(
		&e.EventID,
		&e.EventName,
		&e.EventDate,
		&e.Venue,
		&e.EventDescription,
		&e.EventImageURL,
		&e.Category,
		&e.CreatedBy,
		&e.CreatedAt,
		&e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	e.EventDate = e.EventDate.UTC()
	return &e, nil
}

func (r *EventRepository) List(ctx context.Context, filters events.ListFilters) ([]events.Event, error) {
	column, ok := eventSortColumns[filters.SortField]
	if !ok {
		column = "event_date"
	}
	direction := "ASC"
	if filters.Descending {
		direction = "DESC"
	}

	rows, err := r.queryer().Query(ctx, fmt.Sprintf(`
SELECT %s
  FROM events
 WHERE ($1::int = 0
        OR ($1::int = 1 AND event_date >= $2::timestamptz)
        OR ($1::int = 2 AND event_date < $2::timestamptz))
   AND ($3 = '' OR category = $3)
 ORDER BY %s %s, event_id ASC`, eventColumns, column, direction),
		int(filters.When),
		filters.Now,
		filters.Category,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	items := []events.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		items = append(items, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return items, nil
}

func (r *EventRepository) GetByID(ctx context.Context, eventID string) (*events.Event, error) {
	e, err := scanEvent(r.queryer().QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE event_id = $1`, eventID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, events.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

func (r *EventRepository) Create(ctx context.Context, params events.CreateParams) (*events.Event, error) {
	e, err := scanEvent(r.queryer().QueryRow(ctx, `
INSERT INTO events (event_name, event_date, venue, event_description, event_image_url, category, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING `+eventColumns,
		params.EventName,
		params.EventDate,
		params.Venue,
		params.EventDescription,
		params.EventImageURL,
		params.Category,
		params.CreatedBy,
	))
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return e, nil
}

func (r *EventRepository) Update(ctx context.Context, eventID string, patch events.Patch) (*events.Event, error) {
	e, err := scanEvent(r.queryer().QueryRow(ctx, `
UPDATE events
   SET event_name        = COALESCE($2, event_name),
       event_date        = COALESCE($3, event_date),
       venue             = COALESCE($4, venue),
       event_description = COALESCE($5, event_description),
       event_image_url   = COALESCE($6, event_image_url),
       category          = COALESCE($7, category),
       updated_at        = now()
 WHERE event_id = $1
RETURNING `+eventColumns,
		eventID,
		patch.EventName,
		patch.EventDate,
		patch.Venue,
		patch.EventDescription,
		patch.EventImageURL,
		patch.Category,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, events.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return e, nil
}

func (r *EventRepository) Delete(ctx context.Context, eventID string) error {
	tag, err := r.queryer().Exec(ctx, `DELETE FROM events WHERE event_id = $1`, eventID)
	if err != nil {
		if _, ok := constraintViolation(err, codeForeignKeyViolation); ok {
			return events.ErrTicketsExist
		}
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return events.ErrNotFound
	}
	return nil
}

func (r *EventRepository) CountTickets(ctx context.Context, eventID string) (events.TicketCounts, error) {
	var counts events.TicketCounts
	err := r.queryer().QueryRow(ctx, `
SELECT COUNT(*),
       COUNT(*) FILTER (WHERE ticket_status = 'valid'),
       COUNT(*) FILTER (WHERE ticket_status = 'revoked')
  FROM tickets
 WHERE event_id = $1`, eventID).Scan(&counts.Total, &counts.Valid, &counts.Revoked)
	if err != nil {
		return events.TicketCounts{}, fmt.Errorf("count tickets: %w", err)
	}
	return counts, nil
}

func (r *EventRepository) queryer() queryer {
	return pick(r.pool, r.tx)
}
