package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// GoTrueClient talks to a GoTrue-compatible auth API (the /auth/v1 surface).
// It signs users in with a password and resolves access tokens remotely.
type GoTrueClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewGoTrueClient(baseURL, apiKey string, timeout time.Duration) *GoTrueClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GoTrueClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type goTrueTokenResponse struct {
	Session
	User Identity `json:"user"`
}

type goTrueError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (e goTrueError) text() string {
	for _, candidate := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}

func (c *GoTrueClient) SignIn(ctx context.Context, email, password string) (Identity, Session, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return Identity{}, Session{}, fmt.Errorf("encode sign-in request: %w", err)
	}

	endpoint := c.baseURL + "/auth/v1/token?" + url.Values{"grant_type": {"password"}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Identity{}, Session{}, fmt.Errorf("build sign-in request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setKey(req)

	var out goTrueTokenResponse
	status, err := c.do(req, &out)
	if err != nil {
		switch status {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusUnprocessableEntity:
			return Identity{}, Session{}, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
		}
		return Identity{}, Session{}, fmt.Errorf("sign in: %w", err)
	}
	if out.User.ID == "" || out.AccessToken == "" {
		return Identity{}, Session{}, fmt.Errorf("sign in: provider returned an incomplete session")
	}
	return out.User, out.Session, nil
}

func (c *GoTrueClient) VerifyToken(ctx context.Context, token string) (Identity, error) {
	if strings.TrimSpace(token) == "" {
		return Identity{}, ErrMissingToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return Identity{}, fmt.Errorf("build user request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	c.setKey(req)

	var identity Identity
	status, err := c.do(req, &identity)
	if err != nil {
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		return Identity{}, fmt.Errorf("verify token: %w", err)
	}
	if identity.ID == "" {
		return Identity{}, ErrInvalidToken
	}
	return identity, nil
}

func (c *GoTrueClient) setKey(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
}

// do executes req and decodes a 2xx JSON body into out. On failure it
// returns the HTTP status (0 for transport errors) with the provider message.
func (c *GoTrueClient) do(req *http.Request, out any) (int, error) {
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr goTrueError
		_ = json.Unmarshal(payload, &apiErr)
		msg := apiErr.text()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return resp.StatusCode, fmt.Errorf("auth provider returned %d: %s", resp.StatusCode, msg)
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}
