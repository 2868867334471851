package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Togather-Foundation/eventdesk/internal/audit"
	"github.com/Togather-Foundation/eventdesk/internal/auth"
	"github.com/Togather-Foundation/eventdesk/internal/domain/ids"
	"github.com/Togather-Foundation/eventdesk/internal/sanitize"
	"github.com/Togather-Foundation/eventdesk/internal/validation"
	"github.com/rs/zerolog"
)

// AuditLogger records admin decisions.
type AuditLogger interface {
	Record(ctx context.Context, entry audit.Entry)
}

type nopAudit struct{}

func (nopAudit) Record(context.Context, audit.Entry) {}

// Service implements profile registration, lookup, listing, updates,
// verification decisions and password login.
type Service struct {
	repo         Repository
	signIn       auth.PasswordAuthenticator
	audit        AuditLogger
	validator    *validation.Validator
	verifyAtomic bool
	maxPageSize  int
	logger       zerolog.Logger
}

type Option func(*Service)

func WithPasswordAuthenticator(a auth.PasswordAuthenticator) Option {
	return func(s *Service) { s.signIn = a }
}

func WithAuditLogger(a AuditLogger) Option {
	return func(s *Service) {
		if a != nil {
			s.audit = a
		}
	}
}

// WithAtomicVerification controls whether Verify wraps its two writes in one
// transaction. It is on by default (USERS_VERIFY_ATOMIC=true).
//
// Disabling it restores the legacy two-step flow: the status update commits
// first, so a failed verification insert leaves the user approved or rejected
// with no matching verification record.
func WithAtomicVerification(enabled bool) Option {
	return func(s *Service) { s.verifyAtomic = enabled }
}

func WithMaxPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxPageSize = n
		}
	}
}

func NewService(repo Repository, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:         repo,
		audit:        nopAudit{},
		validator:    validation.NewValidator(),
		verifyAtomic: true,
		maxPageSize:  100,
		logger:       logger.With().Str("component", "users").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) MaxPageSize() int {
	return s.maxPageSize
}

// ResolvePrincipal joins an authenticated identity with its profile.
// A missing profile yields a principal without UserID rather than an error.
func (s *Service) ResolvePrincipal(ctx context.Context, identity auth.Identity) (auth.Principal, error) {
	principal := auth.Principal{Identity: identity}
	user, err := s.repo.GetByAuthID(ctx, identity.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return principal, nil
		}
		return principal, fmt.Errorf("resolve profile: %w", err)
	}
	principal.UserID = user.UserID
	principal.Role = auth.NormalizeRole(user.Role)
	return principal, nil
}

type CreateInput struct {
	IDNumber     string `json:"id_number" validate:"required"`
	IDName       string `json:"id_name" validate:"required,max=200"`
	DOB          string `json:"dob" validate:"required,datetime=2006-01-02"`
	IDPictureURL string `json:"id_picture_url" validate:"required"`
}

var createRequired = []string{"id_number", "id_name", "dob", "id_picture_url"}

// Create registers a pending profile. When the caller is authenticated and
// has no profile yet, the new profile is linked to the caller's identity.
// A caller that already owns a profile gets ErrAuthLinked.
func (s *Service) Create(ctx context.Context, caller *auth.Principal, input CreateInput) (*User, error) {
	input.IDNumber = strings.TrimSpace(input.IDNumber)
	input.IDName = strings.TrimSpace(sanitize.Text(input.IDName))
	input.DOB = strings.TrimSpace(input.DOB)
	input.IDPictureURL = strings.TrimSpace(input.IDPictureURL)

	if err := s.validator.Struct(input, createRequired...); err != nil {
		return nil, err
	}
	if err := validation.ValidateURL("id_picture_url", input.IDPictureURL); err != nil {
		return nil, err
	}

	if caller != nil && caller.HasProfile() {
		return nil, ErrAuthLinked
	}

	exists, err := s.repo.ExistsByIDNumber(ctx, input.IDNumber)
	if err != nil {
		return nil, fmt.Errorf("check id number: %w", err)
	}
	if exists {
		return nil, ErrConflict
	}

	params := CreateParams{
		IDNumber:           input.IDNumber,
		IDName:             input.IDName,
		DOB:                input.DOB,
		IDPictureURL:       input.IDPictureURL,
		VerificationStatus: StatusPending,
		Role:               string(auth.RoleUser),
	}
	if caller != nil && caller.Identity.ID != "" && !caller.HasProfile() {
		authID := caller.Identity.ID
		params.AuthID = &authID
	}

	user, err := s.repo.Create(ctx, params)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.UserID).Bool("linked", params.AuthID != nil).Msg("user registered")
	return user, nil
}

// Profile returns the caller's own profile.
func (s *Service) Profile(ctx context.Context, caller *auth.Principal) (*User, error) {
	if caller == nil || !caller.HasProfile() {
		return nil, auth.ErrNoProfile
	}
	return s.repo.GetByID(ctx, caller.UserID)
}

// Get returns the profile for userID, or the caller's own when userID is empty.
func (s *Service) Get(ctx context.Context, caller *auth.Principal, userID string) (*User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return s.Profile(ctx, caller)
	}

	normalized, idErr := ids.NormalizeUUID(userID)
	if idErr == nil {
		userID = normalized
	}

	if err := auth.Authorize(caller, auth.TierSelfOrAdmin, userID); err != nil {
		return nil, err
	}
	if idErr != nil {
		return nil, ErrNotFound
	}
	return s.repo.GetByID(ctx, userID)
}

// List returns one page of profiles. Admin only.
func (s *Service) List(ctx context.Context, caller *auth.Principal, query ListQuery) (ListResult, error) {
	if err := auth.Authorize(caller, auth.TierAdmin, ""); err != nil {
		return ListResult{}, err
	}

	users, total, err := s.repo.List(ctx, ListFilters{
		VerificationStatus: query.VerificationStatus,
		Role:               query.Role,
		SortField:          query.Sort,
		Descending:         query.Descending,
		Limit:              query.Limit,
		Offset:             query.Offset(),
	})
	if err != nil {
		return ListResult{}, err
	}
	if users == nil {
		users = []User{}
	}

	return ListResult{
		Users:      users,
		Pagination: NewPagination(total, query.Page, query.Limit),
	}, nil
}

// UpdateInput is a partial profile update. Nil or empty fields are ignored.
type UpdateInput struct {
	UserID             *string `json:"user_id"`
	IDName             *string `json:"id_name"`
	DOB                *string `json:"dob"`
	IDPictureURL       *string `json:"id_picture_url"`
	IDNumber           *string `json:"id_number"`
	VerificationStatus *string `json:"verification_status"`
	Role               *string `json:"role"`
}

func (in UpdateInput) patch() Patch {
	p := Patch{
		IDName:             present(in.IDName),
		DOB:                present(in.DOB),
		IDPictureURL:       present(in.IDPictureURL),
		IDNumber:           present(in.IDNumber),
		VerificationStatus: present(in.VerificationStatus),
		Role:               present(in.Role),
	}
	if p.IDName != nil {
		name := strings.TrimSpace(sanitize.Text(*p.IDName))
		p.IDName = &name
	}
	return p
}

type patchCheck struct {
	IDName             *string `json:"id_name" validate:"omitempty,max=200"`
	DOB                *string `json:"dob" validate:"omitempty,datetime=2006-01-02"`
	VerificationStatus *string `json:"verification_status" validate:"omitempty,oneof=pending approved rejected"`
	Role               *string `json:"role" validate:"omitempty,oneof=user admin super_admin"`
}

// Update applies a partial patch to the caller's profile or, for admins, to
// any profile. Non-admin patches never carry verification_status, role or
// id_number.
func (s *Service) Update(ctx context.Context, caller *auth.Principal, input UpdateInput) (*User, error) {
	if caller == nil || !caller.HasProfile() {
		return nil, auth.ErrNoProfile
	}

	target := caller.UserID
	validTarget := true
	if requested := present(input.UserID); requested != nil {
		normalized, err := ids.NormalizeUUID(*requested)
		if err != nil {
			target = *requested
			validTarget = false
		} else {
			target = normalized
		}
	}

	if err := auth.Authorize(caller, auth.TierSelfOrAdmin, target); err != nil {
		return nil, err
	}
	if !validTarget {
		return nil, ErrNotFound
	}

	patch := input.patch()
	if !caller.IsAdmin() {
		patch = patch.StripPrivileged()
	}

	if err := s.validator.Struct(patchCheck{
		IDName:             patch.IDName,
		DOB:                patch.DOB,
		VerificationStatus: patch.VerificationStatus,
		Role:               patch.Role,
	}); err != nil {
		return nil, err
	}
	if patch.IDPictureURL != nil {
		if err := validation.ValidateURL("id_picture_url", *patch.IDPictureURL); err != nil {
			return nil, err
		}
	}

	if patch.Empty() {
		return s.repo.GetByID(ctx, target)
	}

	user, err := s.repo.Update(ctx, target, patch)
	if err != nil {
		return nil, err
	}

	if patch.Role != nil || patch.VerificationStatus != nil || patch.IDNumber != nil {
		s.audit.Record(ctx, audit.Entry{
			Action:       "user.privileged_update",
			Actor:        caller.Identity.ID,
			ResourceType: "user",
			ResourceID:   user.UserID,
			Status:       audit.StatusSuccess,
			Details:      privilegedDetails(patch),
		})
	}
	return user, nil
}

type VerifyInput struct {
	UserID   string `json:"user_id" validate:"required"`
	Status   string `json:"status" validate:"required"`
	Comments string `json:"comments" validate:"required"`
}

var verifyRequired = []string{"user_id", "status", "comments"}

type VerifyResult struct {
	User         *User         `json:"user"`
	Verification *Verification `json:"verification"`
}

// Verify records an admin decision on a profile: the profile's
// verification_status is updated, then a verification record is appended.
func (s *Service) Verify(ctx context.Context, caller *auth.Principal, input VerifyInput) (*VerifyResult, error) {
	if err := auth.Authorize(caller, auth.TierAdmin, ""); err != nil {
		return nil, err
	}

	input.UserID = strings.TrimSpace(input.UserID)
	input.Status = strings.TrimSpace(input.Status)
	input.Comments = strings.TrimSpace(sanitize.Text(input.Comments))
	if err := s.validator.Struct(input, verifyRequired...); err != nil {
		return nil, err
	}
	if input.Status != StatusApproved && input.Status != StatusRejected {
		return nil, validation.Invalid("status", `Invalid status. Must be "approved" or "rejected"`)
	}

	userID, err := ids.NormalizeUUID(input.UserID)
	if err != nil {
		return nil, ErrNotFound
	}

	verificationID, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("generate verification id: %w", err)
	}
	params := VerificationParams{
		VerificationID: verificationID,
		UserID:         userID,
		AdminID:        caller.Identity.ID,
		Status:         input.Status,
		Comments:       input.Comments,
	}

	var result VerifyResult
	write := func(ctx context.Context, repo Repository) error {
		status := input.Status
		user, err := repo.Update(ctx, userID, Patch{VerificationStatus: &status})
		if err != nil {
			return err
		}
		result.User = user

		verification, err := repo.CreateVerification(ctx, params)
		if err != nil {
			return fmt.Errorf("record verification: %w", err)
		}
		result.Verification = verification
		return nil
	}

	if s.verifyAtomic {
		err = s.repo.WithTx(ctx, write)
		if err != nil {
			result = VerifyResult{}
		}
	} else {
		err = write(ctx, s.repo)
		if err != nil && result.User != nil {
			s.logger.Error().Err(err).
				Str("user_id", userID).
				Str("verification_id", verificationID).
				Str("status", input.Status).
				Msg("verification status persisted without verification record")
		}
	}

	entry := audit.Entry{
		Action:       "user.verification",
		Actor:        caller.Identity.ID,
		ResourceType: "user",
		ResourceID:   userID,
		Details: map[string]string{
			"verification_id": verificationID,
			"status":          input.Status,
		},
	}
	if err != nil {
		entry.Status = audit.StatusFailure
		entry.Details["error"] = err.Error()
		s.audit.Record(ctx, entry)
		return nil, err
	}
	entry.Status = audit.StatusSuccess
	s.audit.Record(ctx, entry)
	return &result, nil
}

type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResult struct {
	User    auth.Identity `json:"user"`
	Session auth.Session  `json:"session"`
	Profile *User         `json:"profile"`
}

// Login signs in through the auth provider and attaches the caller's profile
// when one exists.
func (s *Service) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	input.Email = strings.TrimSpace(input.Email)
	if err := s.validator.Struct(input, "email", "password"); err != nil {
		return nil, err
	}
	if s.signIn == nil {
		return nil, fmt.Errorf("password sign-in is not configured")
	}

	identity, session, err := s.signIn.SignIn(ctx, input.Email, input.Password)
	if err != nil {
		return nil, err
	}

	result := &LoginResult{User: identity, Session: session}
	profile, err := s.repo.GetByAuthID(ctx, identity.ID)
	switch {
	case err == nil:
		result.Profile = profile
	case errors.Is(err, ErrNotFound):
	default:
		s.logger.Warn().Err(err).Str("auth_id", identity.ID).Msg("login profile lookup failed")
	}
	return result, nil
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

func privilegedDetails(p Patch) map[string]string {
	details := map[string]string{}
	if p.Role != nil {
		details["role"] = *p.Role
	}
	if p.VerificationStatus != nil {
		details["verification_status"] = *p.VerificationStatus
	}
	if p.IDNumber != nil {
		details["id_number_changed"] = "true"
	}
	return details
}
