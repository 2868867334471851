package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Togather-Foundation/eventdesk/internal/auth"
	"github.com/Togather-Foundation/eventdesk/internal/domain/users"
	"github.com/Togather-Foundation/eventdesk/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Create(ctx context.Context, caller *auth.Principal, input users.CreateInput) (*users.User, error) {
	args := m.Called(ctx, caller, input)
	user, _ := args.Get(0).(*users.User)
	return user, args.Error(1)
}

func (m *MockUserService) Get(ctx context.Context, caller *auth.Principal, userID string) (*users.User, error) {
	args := m.Called(ctx, caller, userID)
	user, _ := args.Get(0).(*users.User)
	return user, args.Error(1)
}

func (m *MockUserService) List(ctx context.Context, caller *auth.Principal, query users.ListQuery) (users.ListResult, error) {
	args := m.Called(ctx, caller, query)
	result, _ := args.Get(0).(users.ListResult)
	return result, args.Error(1)
}

func (m *MockUserService) Login(ctx context.Context, input users.LoginInput) (*users.LoginResult, error) {
	args := m.Called(ctx, input)
	result, _ := args.Get(0).(*users.LoginResult)
	return result, args.Error(1)
}

func (m *MockUserService) Update(ctx context.Context, caller *auth.Principal, input users.UpdateInput) (*users.User, error) {
	args := m.Called(ctx, caller, input)
	user, _ := args.Get(0).(*users.User)
	return user, args.Error(1)
}

func (m *MockUserService) Verify(ctx context.Context, caller *auth.Principal, input users.VerifyInput) (*users.VerifyResult, error) {
	args := m.Called(ctx, caller, input)
	result, _ := args.Get(0).(*users.VerifyResult)
	return result, args.Error(1)
}

func (m *MockUserService) MaxPageSize() int {
	return 100
}

const testUserID = "44444444-4444-4444-4444-444444444444"

func sampleUser() *users.User {
	return &users.User{
		UserID:             testUserID,
		IDNumber:           "A1234567",
		IDName:             "Ada Lovelace",
		DOB:                "1990-12-10",
		IDPictureURL:       "https://cdn.example.com/ids/a.png",
		VerificationStatus: users.StatusPending,
		Role:               "user",
	}
}

func TestUsersAdd(t *testing.T) {
	tests := []struct {
		name        string
		caller      *auth.Principal
		err         error
		wantStatus  int
		wantMessage string
	}{
		{name: "anonymous", wantStatus: http.StatusCreated, wantMessage: "User created successfully"},
		{name: "linked identity", caller: &auth.Principal{Identity: auth.Identity{ID: "auth-new"}}, wantStatus: http.StatusCreated, wantMessage: "User created successfully"},
		{name: "missing fields", err: validation.Missing("id_number", "id_name", "dob", "id_picture_url"), wantStatus: http.StatusBadRequest, wantMessage: "Missing required fields: id_number, id_name, dob, id_picture_url"},
		{name: "duplicate", err: users.ErrConflict, wantStatus: http.StatusConflict, wantMessage: "User with this ID number already exists"},
		{name: "already linked", caller: &auth.Principal{Identity: auth.Identity{ID: "auth-old"}, UserID: testUserID, Role: auth.RoleUser}, err: users.ErrAuthLinked, wantStatus: http.StatusConflict, wantMessage: "A user profile is already linked to this account"},
		{name: "store failure", err: errors.New("insert failed"), wantStatus: http.StatusInternalServerError, wantMessage: "An error occurred while creating the user"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockUserService)
			input := users.CreateInput{IDNumber: "A1234567", IDName: "Ada Lovelace", DOB: "1990-12-10", IDPictureURL: "https://cdn.example.com/ids/a.png"}
			if tt.err != nil {
				svc.On("Create", mock.Anything, tt.caller, input).Return(nil, tt.err)
			} else {
				svc.On("Create", mock.Anything, tt.caller, input).Return(sampleUser(), nil)
			}

			req := jsonRequest(t, http.MethodPost, "/api/users/add", input)
			if tt.caller != nil {
				req = asPrincipal(req, tt.caller)
			}
			rec := httptest.NewRecorder()
			NewUsersHandler(svc).Add(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantMessage, decode(t, rec).Message)
			svc.AssertExpectations(t)
		})
	}
}

func TestUsersGet(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{name: "own profile", wantStatus: http.StatusOK, wantMessage: "User profile retrieved successfully"},
		{name: "own profile missing", err: auth.ErrNoProfile, wantStatus: http.StatusNotFound, wantMessage: "User profile not found"},
		{name: "other without profile", query: testUserID, err: auth.ErrNoProfile, wantStatus: http.StatusForbidden, wantMessage: "Unauthorized access"},
		{name: "other forbidden", query: testUserID, err: auth.ErrForbidden, wantStatus: http.StatusForbidden, wantMessage: "Unauthorized access to user data"},
		{name: "unknown user", query: testUserID, err: users.ErrNotFound, wantStatus: http.StatusNotFound, wantMessage: "User not found"},
		{name: "store failure", query: testUserID, err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantMessage: "An error occurred while fetching user data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockUserService)
			caller := memberPrincipal()
			if tt.err != nil {
				svc.On("Get", mock.Anything, caller, tt.query).Return(nil, tt.err)
			} else {
				svc.On("Get", mock.Anything, caller, tt.query).Return(sampleUser(), nil)
			}

			target := "/api/users/get"
			if tt.query != "" {
				target += "?user_id=" + tt.query
			}
			rec := httptest.NewRecorder()
			NewUsersHandler(svc).Get(rec, asPrincipal(httptest.NewRequest(http.MethodGet, target, nil), caller))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantMessage, decode(t, rec).Message)
			svc.AssertExpectations(t)
		})
	}
}

func TestUsersList(t *testing.T) {
	svc := new(MockUserService)
	caller := adminPrincipal()
	query := users.ListQuery{VerificationStatus: "pending", Sort: "created_at", Descending: true, Page: 2, Limit: 50}
	svc.On("List", mock.Anything, caller, query).Return(users.ListResult{
		Users:      []users.User{*sampleUser()},
		Pagination: users.NewPagination(125, 2, 50),
	}, nil)

	req := asPrincipal(httptest.NewRequest(http.MethodGet, "/api/users/list?verification_status=pending&page=2", nil), caller)
	rec := httptest.NewRecorder()
	NewUsersHandler(svc).List(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Users retrieved successfully", body.Message)

	var data struct {
		Users      []users.User     `json:"users"`
		Pagination users.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &data))
	assert.Len(t, data.Users, 1)
	assert.Equal(t, users.Pagination{Total: 125, Page: 2, Limit: 50, TotalPages: 3, HasNextPage: true, HasPrevPage: true}, data.Pagination)
	svc.AssertExpectations(t)
}

func TestUsersList_NonAdmin(t *testing.T) {
	svc := new(MockUserService)

	for _, caller := range []*auth.Principal{memberPrincipal(), {Identity: auth.Identity{ID: "auth-x"}}} {
		rec := httptest.NewRecorder()
		NewUsersHandler(svc).List(rec, asPrincipal(httptest.NewRequest(http.MethodGet, "/api/users/list?limit=abc", nil), caller))

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "Unauthorized. Admin access required.", decode(t, rec).Message)
	}
	svc.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)
}

func TestUsersList_InvalidLimit(t *testing.T) {
	svc := new(MockUserService)
	req := asPrincipal(httptest.NewRequest(http.MethodGet, "/api/users/list?limit=500", nil), adminPrincipal())
	rec := httptest.NewRecorder()
	NewUsersHandler(svc).List(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid limit. Must not exceed 100", decode(t, rec).Message)
}

func TestUsersLogin(t *testing.T) {
	svc := new(MockUserService)
	input := users.LoginInput{Email: "ada@example.com", Password: "hunter22"}
	svc.On("Login", mock.Anything, input).Return(&users.LoginResult{
		User:    auth.Identity{ID: "auth-ada", Email: "ada@example.com"},
		Session: auth.Session{AccessToken: "tok", TokenType: "bearer", ExpiresIn: 3600},
	}, nil)

	rec := httptest.NewRecorder()
	NewUsersHandler(svc).Login(rec, jsonRequest(t, http.MethodPost, "/api/users/login", input))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Login successful", body.Message)
	assert.Contains(t, string(body.Data), `"access_token":"tok"`)
	assert.Contains(t, string(body.Data), `"profile":null`)
}

func TestUsersLogin_Errors(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{name: "missing fields", err: validation.Missing("email", "password"), wantStatus: http.StatusBadRequest, wantMessage: "Missing required fields: email, password"},
		{name: "rejected", err: auth.ErrInvalidCredentials, wantStatus: http.StatusUnauthorized, wantMessage: "Invalid email or password"},
		{name: "provider down", err: errors.New("dial tcp"), wantStatus: http.StatusInternalServerError, wantMessage: "An error occurred during login"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockUserService)
			svc.On("Login", mock.Anything, mock.Anything).Return(nil, tt.err)

			rec := httptest.NewRecorder()
			NewUsersHandler(svc).Login(rec, jsonRequest(t, http.MethodPost, "/api/users/login", map[string]string{"email": "a@example.com"}))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantMessage, decode(t, rec).Message)
		})
	}
}

func TestUsersUpdate(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{name: "updated", wantStatus: http.StatusOK, wantMessage: "User updated successfully"},
		{name: "no profile", err: auth.ErrNoProfile, wantStatus: http.StatusNotFound, wantMessage: "User profile not found"},
		{name: "other user", err: auth.ErrForbidden, wantStatus: http.StatusForbidden, wantMessage: "Unauthorized to update this user"},
		{name: "unknown target", err: users.ErrNotFound, wantStatus: http.StatusNotFound, wantMessage: "User not found"},
		{name: "id collision", err: users.ErrConflict, wantStatus: http.StatusConflict, wantMessage: "User with this ID number already exists"},
		{name: "store failure", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantMessage: "An error occurred while updating user data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockUserService)
			caller := memberPrincipal()
			name := "Ada King"
			input := users.UpdateInput{IDName: &name}
			if tt.err != nil {
				svc.On("Update", mock.Anything, caller, input).Return(nil, tt.err)
			} else {
				svc.On("Update", mock.Anything, caller, input).Return(sampleUser(), nil)
			}

			req := asPrincipal(jsonRequest(t, http.MethodPut, "/api/users/update", map[string]string{"id_name": name}), caller)
			rec := httptest.NewRecorder()
			NewUsersHandler(svc).Update(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantMessage, decode(t, rec).Message)
			svc.AssertExpectations(t)
		})
	}
}

func TestUsersVerify(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{name: "approved", wantStatus: http.StatusOK, wantMessage: "User verification completed"},
		{name: "not admin", err: auth.ErrForbidden, wantStatus: http.StatusForbidden, wantMessage: "Unauthorized. Admin access required."},
		{name: "bad status", err: validation.Invalid("status", `Invalid status. Must be "approved" or "rejected"`), wantStatus: http.StatusBadRequest, wantMessage: `Invalid status. Must be "approved" or "rejected"`},
		{name: "unknown user", err: users.ErrNotFound, wantStatus: http.StatusNotFound, wantMessage: "User not found"},
		{name: "store failure", err: errors.New("tx aborted"), wantStatus: http.StatusInternalServerError, wantMessage: "An error occurred while verifying the user"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockUserService)
			caller := adminPrincipal()
			input := users.VerifyInput{UserID: testUserID, Status: "approved", Comments: "documents match"}
			if tt.err != nil {
				svc.On("Verify", mock.Anything, caller, input).Return(nil, tt.err)
			} else {
				user := sampleUser()
				user.VerificationStatus = users.StatusApproved
				svc.On("Verify", mock.Anything, caller, input).Return(&users.VerifyResult{
					User:         user,
					Verification: &users.Verification{VerificationID: "01J0000000000000000000000A", UserID: testUserID, Status: "approved"},
				}, nil)
			}

			req := asPrincipal(jsonRequest(t, http.MethodPost, "/api/users/verify", input), caller)
			rec := httptest.NewRecorder()
			NewUsersHandler(svc).Verify(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, tt.wantMessage, body.Message)
			if tt.err == nil {
				assert.Contains(t, string(body.Data), `"verification_status":"approved"`)
				assert.Contains(t, string(body.Data), `"verification_id":"01J0000000000000000000000A"`)
			}
			svc.AssertExpectations(t)
		})
	}
}
