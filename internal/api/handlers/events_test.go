package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Togather-Foundation/eventdesk/internal/auth"
	"github.com/Togather-Foundation/eventdesk/internal/domain/events"
	"github.com/Togather-Foundation/eventdesk/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockEventService struct {
	mock.Mock
}

func (m *MockEventService) List(ctx context.Context, query events.ListQuery) ([]events.Event, error) {
	args := m.Called(ctx, query)
	list, _ := args.Get(0).([]events.Event)
	return list, args.Error(1)
}

func (m *MockEventService) Get(ctx context.Context, eventID string) (*events.Detail, error) {
	args := m.Called(ctx, eventID)
	detail, _ := args.Get(0).(*events.Detail)
	return detail, args.Error(1)
}

func (m *MockEventService) Create(ctx context.Context, caller *auth.Principal, input events.CreateInput) (*events.Event, error) {
	args := m.Called(ctx, caller, input)
	event, _ := args.Get(0).(*events.Event)
	return event, args.Error(1)
}

func (m *MockEventService) Update(ctx context.Context, caller *auth.Principal, input events.UpdateInput) (*events.Event, error) {
	args := m.Called(ctx, caller, input)
	event, _ := args.Get(0).(*events.Event)
	return event, args.Error(1)
}

func (m *MockEventService) Delete(ctx context.Context, caller *auth.Principal, eventID string) error {
	args := m.Called(ctx, caller, eventID)
	return args.Error(0)
}

const testEventID = "33333333-3333-3333-3333-333333333333"

func sampleEvent() events.Event {
	return events.Event{
		EventID:   testEventID,
		EventName: "Harbour Jazz Night",
		EventDate: time.Date(2026, 12, 1, 20, 0, 0, 0, time.UTC),
		Venue:     "Pier 4",
	}
}

func TestEventsList(t *testing.T) {
	svc := new(MockEventService)
	handler := NewEventsHandler(svc)

	svc.On("List", mock.Anything, events.ListQuery{When: events.WhenUpcoming, Sort: "event_name", Descending: true}).
		Return([]events.Event{sampleEvent()}, nil)

	rec := httptest.NewRecorder()
	handler.List(rec, httptest.NewRequest(http.MethodGet, "/api/events/list?upcoming=true&sort=event_name&order=desc", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, "Events retrieved successfully", body.Message)

	var list []events.Event
	require.NoError(t, json.Unmarshal(body.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Harbour Jazz Night", list[0].EventName)
	svc.AssertExpectations(t)
}

func TestEventsList_InvalidSort(t *testing.T) {
	svc := new(MockEventService)
	handler := NewEventsHandler(svc)

	rec := httptest.NewRecorder()
	handler.List(rec, httptest.NewRequest(http.MethodGet, "/api/events/list?sort=price", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestEventsList_UpstreamError(t *testing.T) {
	svc := new(MockEventService)
	handler := NewEventsHandler(svc)
	svc.On("List", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))

	rec := httptest.NewRecorder()
	handler.List(rec, httptest.NewRequest(http.MethodGet, "/api/events/list", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "An error occurred while fetching events", body.Message)
	assert.Equal(t, "connection reset", body.Error)
}

func TestEventsGet(t *testing.T) {
	tests := []struct {
		name        string
		detail      *events.Detail
		err         error
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "found",
			detail:      &events.Detail{Event: sampleEvent(), Availability: &events.Availability{TotalTickets: 3, AvailableTickets: 2, SoldTickets: 3, RevokedTickets: 1}},
			wantStatus:  http.StatusOK,
			wantMessage: "Event retrieved successfully",
		},
		{name: "missing id", err: validation.MissingParameter("event_id"), wantStatus: http.StatusBadRequest, wantMessage: "Missing required parameter: event_id"},
		{name: "not found", err: events.ErrNotFound, wantStatus: http.StatusNotFound, wantMessage: "Event not found"},
		{name: "store failure", err: errors.New("timeout"), wantStatus: http.StatusInternalServerError, wantMessage: "An error occurred while fetching the event"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockEventService)
			svc.On("Get", mock.Anything, testEventID).Return(tt.detail, tt.err)

			rec := httptest.NewRecorder()
			NewEventsHandler(svc).Get(rec, httptest.NewRequest(http.MethodGet, "/api/events/get?event_id="+testEventID, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, tt.wantMessage, body.Message)
			if tt.detail != nil {
				assert.Contains(t, string(body.Data), `"availability":{"total_tickets":3`)
			}
		})
	}
}

func TestEventsGet_NullAvailability(t *testing.T) {
	svc := new(MockEventService)
	svc.On("Get", mock.Anything, testEventID).Return(&events.Detail{Event: sampleEvent()}, nil)

	rec := httptest.NewRecorder()
	NewEventsHandler(svc).Get(rec, httptest.NewRequest(http.MethodGet, "/api/events/get?event_id="+testEventID, nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"availability":null`)
}

func TestEventsCreate(t *testing.T) {
	svc := new(MockEventService)
	caller := adminPrincipal()
	input := events.CreateInput{EventName: "Harbour Jazz Night", EventDate: "2026-12-01T20:00:00Z", Venue: "Pier 4"}
	event := sampleEvent()
	svc.On("Create", mock.Anything, caller, input).Return(&event, nil)

	req := asPrincipal(jsonRequest(t, http.MethodPost, "/api/events/create", input), caller)
	rec := httptest.NewRecorder()
	NewEventsHandler(svc).Create(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Event created successfully", decode(t, rec).Message)
	svc.AssertExpectations(t)
}

func TestEventsCreate_Errors(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{name: "not admin", err: auth.ErrForbidden, wantStatus: http.StatusForbidden, wantMessage: "Unauthorized. Admin access required."},
		{name: "no profile", err: auth.ErrNoProfile, wantStatus: http.StatusForbidden, wantMessage: "Unauthorized. Admin access required."},
		{name: "missing fields", err: validation.Missing("event_name", "event_date", "venue"), wantStatus: http.StatusBadRequest, wantMessage: "Missing required fields: event_name, event_date, venue"},
		{name: "past date", err: validation.Invalid("event_date", "Event date must be in the future"), wantStatus: http.StatusBadRequest, wantMessage: "Event date must be in the future"},
		{name: "store failure", err: errors.New("insert failed"), wantStatus: http.StatusInternalServerError, wantMessage: "An error occurred while creating the event"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockEventService)
			svc.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)

			req := asPrincipal(jsonRequest(t, http.MethodPost, "/api/events/create", map[string]string{}), memberPrincipal())
			rec := httptest.NewRecorder()
			NewEventsHandler(svc).Create(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, tt.wantMessage, body.Message)
			if tt.wantStatus < http.StatusInternalServerError {
				assert.Empty(t, body.Error)
			}
		})
	}
}

func TestEventsCreate_MalformedBody(t *testing.T) {
	svc := new(MockEventService)
	req := httptest.NewRequest(http.MethodPost, "/api/events/create", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	NewEventsHandler(svc).Create(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestEventsUpdate(t *testing.T) {
	svc := new(MockEventService)
	caller := adminPrincipal()
	venue := "Pier 5"
	event := sampleEvent()
	event.Venue = venue
	svc.On("Update", mock.Anything, caller, events.UpdateInput{EventID: testEventID, Venue: &venue}).Return(&event, nil)

	req := asPrincipal(jsonRequest(t, http.MethodPut, "/api/events/update", map[string]string{"event_id": testEventID, "venue": venue}), caller)
	rec := httptest.NewRecorder()
	NewEventsHandler(svc).Update(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Event updated successfully", body.Message)
	assert.Contains(t, string(body.Data), `"venue":"Pier 5"`)
	svc.AssertExpectations(t)
}

func TestEventsUpdate_MissingID(t *testing.T) {
	svc := new(MockEventService)
	svc.On("Update", mock.Anything, mock.Anything, mock.Anything).Return(nil, validation.Missing("event_id"))

	req := asPrincipal(jsonRequest(t, http.MethodPut, "/api/events/update", map[string]string{}), adminPrincipal())
	rec := httptest.NewRecorder()
	NewEventsHandler(svc).Update(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing required field: event_id", decode(t, rec).Message)
}

func TestEventsDelete(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{name: "deleted", wantStatus: http.StatusOK, wantMessage: "Event deleted successfully"},
		{name: "tickets exist", err: events.ErrTicketsExist, wantStatus: http.StatusBadRequest, wantMessage: "Cannot delete event with existing tickets. Please handle tickets first."},
		{name: "not found", err: events.ErrNotFound, wantStatus: http.StatusNotFound, wantMessage: "Event not found"},
		{name: "store failure", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantMessage: "An error occurred while deleting the event"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockEventService)
			caller := adminPrincipal()
			svc.On("Delete", mock.Anything, caller, testEventID).Return(tt.err)

			req := asPrincipal(httptest.NewRequest(http.MethodDelete, "/api/events/delete?event_id="+testEventID, nil), caller)
			rec := httptest.NewRecorder()
			NewEventsHandler(svc).Delete(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantMessage, decode(t, rec).Message)
			svc.AssertExpectations(t)
		})
	}
}
