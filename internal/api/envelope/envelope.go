// Package envelope writes the uniform JSON body every API response uses.
package envelope

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

const contentType = "application/json"

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Response is the body of every API response. Error carries the upstream
// failure text and is only set on 5xx responses.
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func Success(w http.ResponseWriter, status int, message string, data any) {
	write(w, status, Response{Status: StatusSuccess, Message: message, Data: data})
}

// Error writes an error response. err is logged through the request logger,
// 5xx at error level and 4xx at warn, and surfaced in the body for 5xx only.
func Error(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	body := Response{Status: StatusError, Message: message}

	if r != nil {
		logger := zerolog.Ctx(r.Context())
		event := logger.Warn()
		if status >= http.StatusInternalServerError {
			event = logger.Error()
		}
		if err != nil {
			event = event.Err(err)
		}
		event.
			Int("status", status).
			Str("path", r.URL.Path).
			Str("method", r.Method).
			Msg(message)
	}

	if err != nil && status >= http.StatusInternalServerError {
		body.Error = err.Error()
	}
	write(w, status, body)
}

func write(w http.ResponseWriter, status int, body Response) {
	payload, err := json.Marshal(body)
	if err != nil {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"status":"error","message":"An error occurred while encoding the response"}`))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}
