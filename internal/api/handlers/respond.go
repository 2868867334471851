package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/Togather-Foundation/eventdesk/internal/api/envelope"
	"github.com/Togather-Foundation/eventdesk/internal/auth"
	"github.com/Togather-Foundation/eventdesk/internal/domain/events"
	"github.com/Togather-Foundation/eventdesk/internal/domain/users"
	"github.com/Togather-Foundation/eventdesk/internal/validation"
)

const msgAdminRequired = "Unauthorized. Admin access required."

// denial is how one operation reports each authorization failure.
type denial struct {
	noProfileStatus  int
	noProfileMessage string
	forbiddenStatus  int
	forbiddenMessage string
}

var adminOnly = denial{
	noProfileStatus:  http.StatusForbidden,
	noProfileMessage: msgAdminRequired,
	forbiddenStatus:  http.StatusForbidden,
	forbiddenMessage: msgAdminRequired,
}

// decodeBody reads a JSON body into dst. An empty body leaves dst zero so
// that required-field validation reports the missing fields.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil {
		return true
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		envelope.Error(w, r, http.StatusRequestEntityTooLarge, "Request body too large", err)
		return false
	}
	envelope.Error(w, r, http.StatusBadRequest, "Invalid request body", err)
	return false
}

// writeError maps a service error onto the envelope. failMessage is used for
// anything unexpected.
func writeError(w http.ResponseWriter, r *http.Request, err error, d denial, failMessage string) {
	var validationErr validation.Error
	switch {
	case errors.As(err, &validationErr):
		envelope.Error(w, r, http.StatusBadRequest, validationErr.Message, err)
	case errors.Is(err, auth.ErrNoProfile):
		envelope.Error(w, r, d.noProfileStatus, d.noProfileMessage, err)
	case errors.Is(err, auth.ErrForbidden):
		envelope.Error(w, r, d.forbiddenStatus, d.forbiddenMessage, err)
	case errors.Is(err, auth.ErrInvalidCredentials):
		envelope.Error(w, r, http.StatusUnauthorized, "Invalid email or password", err)
	case errors.Is(err, users.ErrNotFound):
		envelope.Error(w, r, http.StatusNotFound, "User not found", err)
	case errors.Is(err, users.ErrConflict):
		envelope.Error(w, r, http.StatusConflict, "User with this ID number already exists", err)
	case errors.Is(err, users.ErrAuthLinked):
		envelope.Error(w, r, http.StatusConflict, "A user profile is already linked to this account", err)
	case errors.Is(err, events.ErrNotFound):
		envelope.Error(w, r, http.StatusNotFound, "Event not found", err)
	case errors.Is(err, events.ErrTicketsExist):
		envelope.Error(w, r, http.StatusBadRequest, "Cannot delete event with existing tickets. Please handle tickets first.", err)
	default:
		envelope.Error(w, r, http.StatusInternalServerError, failMessage, err)
	}
}
