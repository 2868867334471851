package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Togather-Foundation/eventdesk/internal/api/envelope"
	"github.com/Togather-Foundation/eventdesk/internal/api/middleware"
	"github.com/Togather-Foundation/eventdesk/internal/auth"
	"github.com/Togather-Foundation/eventdesk/internal/domain/users"
	"github.com/Togather-Foundation/eventdesk/internal/metrics"
)

type UserService interface {
	Create(ctx context.Context, caller *auth.Principal, input users.CreateInput) (*users.User, error)
	Get(ctx context.Context, caller *auth.Principal, userID string) (*users.User, error)
	List(ctx context.Context, caller *auth.Principal, query users.ListQuery) (users.ListResult, error)
	Login(ctx context.Context, input users.LoginInput) (*users.LoginResult, error)
	Update(ctx context.Context, caller *auth.Principal, input users.UpdateInput) (*users.User, error)
	Verify(ctx context.Context, caller *auth.Principal, input users.VerifyInput) (*users.VerifyResult, error)
	MaxPageSize() int
}

type UsersHandler struct {
	Service UserService
}

func NewUsersHandler(service UserService) *UsersHandler {
	return &UsersHandler{Service: service}
}

var (
	ownProfileDenial = denial{
		noProfileStatus:  http.StatusNotFound,
		noProfileMessage: "User profile not found",
		forbiddenStatus:  http.StatusForbidden,
		forbiddenMessage: "Unauthorized access to user data",
	}
	otherProfileDenial = denial{
		noProfileStatus:  http.StatusForbidden,
		noProfileMessage: "Unauthorized access",
		forbiddenStatus:  http.StatusForbidden,
		forbiddenMessage: "Unauthorized access to user data",
	}
	updateDenial = denial{
		noProfileStatus:  http.StatusNotFound,
		noProfileMessage: "User profile not found",
		forbiddenStatus:  http.StatusForbidden,
		forbiddenMessage: "Unauthorized to update this user",
	}
)

func (h *UsersHandler) Add(w http.ResponseWriter, r *http.Request) {
	var input users.CreateInput
	if !decodeBody(w, r, &input) {
		return
	}

	user, err := h.Service.Create(r.Context(), middleware.PrincipalFrom(r.Context()), input)
	if err != nil {
		writeError(w, r, err, adminOnly, "An error occurred while creating the user")
		return
	}
	envelope.Success(w, http.StatusCreated, "User created successfully", user)
}

func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	d := otherProfileDenial
	if userID == "" {
		d = ownProfileDenial
	}

	user, err := h.Service.Get(r.Context(), middleware.PrincipalFrom(r.Context()), userID)
	if err != nil {
		writeError(w, r, err, d, "An error occurred while fetching user data")
		return
	}
	envelope.Success(w, http.StatusOK, "User profile retrieved successfully", user)
}

func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	caller := middleware.PrincipalFrom(r.Context())
	if err := auth.Authorize(caller, auth.TierAdmin, ""); err != nil {
		writeError(w, r, err, adminOnly, "An error occurred while fetching users")
		return
	}

	query, err := users.ParseListQuery(r.URL.Query(), h.Service.MaxPageSize())
	if err != nil {
		writeError(w, r, err, adminOnly, "An error occurred while fetching users")
		return
	}

	result, err := h.Service.List(r.Context(), caller, query)
	if err != nil {
		writeError(w, r, err, adminOnly, "An error occurred while fetching users")
		return
	}
	envelope.Success(w, http.StatusOK, "Users retrieved successfully", result)
}

func (h *UsersHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input users.LoginInput
	if !decodeBody(w, r, &input) {
		return
	}

	result, err := h.Service.Login(r.Context(), input)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			metrics.AuthFailures.WithLabelValues("invalid_credentials").Inc()
		}
		writeError(w, r, err, adminOnly, "An error occurred during login")
		return
	}
	envelope.Success(w, http.StatusOK, "Login successful", result)
}

func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input users.UpdateInput
	if !decodeBody(w, r, &input) {
		return
	}

	user, err := h.Service.Update(r.Context(), middleware.PrincipalFrom(r.Context()), input)
	if err != nil {
		writeError(w, r, err, updateDenial, "An error occurred while updating user data")
		return
	}
	envelope.Success(w, http.StatusOK, "User updated successfully", user)
}

func (h *UsersHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var input users.VerifyInput
	if !decodeBody(w, r, &input) {
		return
	}

	result, err := h.Service.Verify(r.Context(), middleware.PrincipalFrom(r.Context()), input)
	if err != nil {
		if !errors.Is(err, auth.ErrForbidden) && !errors.Is(err, auth.ErrNoProfile) {
			metrics.VerificationDecisions.WithLabelValues(decisionLabel(input.Status), "failure").Inc()
		}
		writeError(w, r, err, adminOnly, "An error occurred while verifying the user")
		return
	}
	metrics.VerificationDecisions.WithLabelValues(decisionLabel(input.Status), "success").Inc()
	envelope.Success(w, http.StatusOK, "User verification completed", result)
}

// decisionLabel bounds the status label to known values.
func decisionLabel(status string) string {
	switch status := strings.TrimSpace(status); status {
	case users.StatusApproved, users.StatusRejected:
		return status
	default:
		return "invalid"
	}
}
