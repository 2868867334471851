package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Togather-Foundation/eventdesk/internal/api/middleware"
	"github.com/Togather-Foundation/eventdesk/internal/auth"
	"github.com/stretchr/testify/require"
)

type envelopeBody struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelopeBody {
	t.Helper()
	var body envelopeBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func jsonRequest(t *testing.T, method, target string, payload any) *http.Request {
	t.Helper()
	if payload == nil {
		return httptest.NewRequest(method, target, nil)
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func asPrincipal(r *http.Request, p *auth.Principal) *http.Request {
	return r.WithContext(middleware.ContextWithPrincipal(r.Context(), p))
}

func adminPrincipal() *auth.Principal {
	return &auth.Principal{
		Identity: auth.Identity{ID: "auth-admin"},
		UserID:   "11111111-1111-1111-1111-111111111111",
		Role:     auth.RoleAdmin,
	}
}

func memberPrincipal() *auth.Principal {
	return &auth.Principal{
		Identity: auth.Identity{ID: "auth-member"},
		UserID:   "22222222-2222-2222-2222-222222222222",
		Role:     auth.RoleUser,
	}
}
