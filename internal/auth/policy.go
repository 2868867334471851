package auth

import (
	"errors"
	"fmt"
)

var (
	ErrForbidden = errors.New("forbidden")
	// ErrNoProfile means the caller authenticated but has no user profile.
	ErrNoProfile = errors.New("caller has no user profile")
)

// Tier is the access level an operation requires.
type Tier int

const (
	TierPublic Tier = iota
	TierSelfOrAdmin
	TierAdmin
)

func (t Tier) String() string {
	switch t {
	case TierPublic:
		return "public"
	case TierSelfOrAdmin:
		return "self_or_admin"
	case TierAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// Principal is an authenticated caller joined with its user profile.
// UserID and Role are empty when no profile links to the identity.
type Principal struct {
	Identity Identity
	UserID   string
	Role     Role
}

func (p Principal) HasProfile() bool {
	return p.UserID != ""
}

func (p Principal) IsAdmin() bool {
	return p.HasProfile() && IsAdmin(string(p.Role))
}

// Authorize decides whether principal may act at tier on a resource owned by
// ownerID. ownerID is only consulted for TierSelfOrAdmin; an empty ownerID
// there means the caller's own record.
func Authorize(principal *Principal, tier Tier, ownerID string) error {
	if tier == TierPublic {
		return nil
	}
	if principal == nil || !principal.HasProfile() {
		return ErrNoProfile
	}

	switch tier {
	case TierAdmin:
		if principal.IsAdmin() {
			return nil
		}
	case TierSelfOrAdmin:
		if ownerID == "" || ownerID == principal.UserID || principal.IsAdmin() {
			return nil
		}
	}
	return fmt.Errorf("%w: %s access required", ErrForbidden, tier)
}
