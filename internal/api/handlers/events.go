package handlers

import (
	"context"
	"net/http"

	"github.com/Togather-Foundation/eventdesk/internal/api/envelope"
	"github.com/Togather-Foundation/eventdesk/internal/api/middleware"
	"github.com/Togather-Foundation/eventdesk/internal/auth"
	"github.com/Togather-Foundation/eventdesk/internal/domain/events"
)

type EventService interface {
	List(ctx context.Context, query events.ListQuery) ([]events.Event, error)
	Get(ctx context.Context, eventID string) (*events.Detail, error)
	Create(ctx context.Context, caller *auth.Principal, input events.CreateInput) (*events.Event, error)
	Update(ctx context.Context, caller *auth.Principal, input events.UpdateInput) (*events.Event, error)
	Delete(ctx context.Context, caller *auth.Principal, eventID string) error
}

type EventsHandler struct {
	Service EventService
}

func NewEventsHandler(service EventService) *EventsHandler {
	return &EventsHandler{Service: service}
}

func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	query, err := events.ParseListQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, err, adminOnly, "An error occurred while fetching events")
		return
	}

	list, err := h.Service.List(r.Context(), query)
	if err != nil {
		writeError(w, r, err, adminOnly, "An error occurred while fetching events")
		return
	}
	envelope.Success(w, http.StatusOK, "Events retrieved successfully", list)
}

func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.Service.Get(r.Context(), r.URL.Query().Get("event_id"))
	if err != nil {
		writeError(w, r, err, adminOnly, "An error occurred while fetching the event")
		return
	}
	envelope.Success(w, http.StatusOK, "Event retrieved successfully", detail)
}

func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input events.CreateInput
	if !decodeBody(w, r, &input) {
		return
	}

	event, err := h.Service.Create(r.Context(), middleware.PrincipalFrom(r.Context()), input)
	if err != nil {
		writeError(w, r, err, adminOnly, "An error occurred while creating the event")
		return
	}
	envelope.Success(w, http.StatusCreated, "Event created successfully", event)
}

func (h *EventsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input events.UpdateInput
	if !decodeBody(w, r, &input) {
		return
	}

	event, err := h.Service.Update(r.Context(), middleware.PrincipalFrom(r.Context()), input)
	if err != nil {
		writeError(w, r, err, adminOnly, "An error occurred while updating the event")
		return
	}
	envelope.Success(w, http.StatusOK, "Event updated successfully", event)
}

func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.Service.Delete(r.Context(), middleware.PrincipalFrom(r.Context()), r.URL.Query().Get("event_id"))
	if err != nil {
		writeError(w, r, err, adminOnly, "An error occurred while deleting the event")
		return
	}
	envelope.Success(w, http.StatusOK, "Event deleted successfully", nil)
}
