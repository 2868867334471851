package users

import (
	"time"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// User is an identity profile. AuthID links it to the auth provider.
type User struct {
	UserID             string    `json:"user_id"`
	AuthID             *string   `json:"auth_id"`
	IDNumber           string    `json:"id_number"`
	IDName             string    `json:"id_name"`
	DOB                string    `json:"dob"`
	IDPictureURL       string    `json:"id_picture_url"`
	VerificationStatus string    `json:"verification_status"`
	Role               string    `json:"role"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Verification is one admin decision on a user's identity documents.
type Verification struct {
	VerificationID string    `json:"verification_id"`
	UserID         string    `json:"user_id"`
	AdminID        string    `json:"admin_id"`
	Status         string    `json:"status"`
	Comments       string    `json:"comments"`
	CreatedAt      time.Time `json:"created_at"`
}

type CreateParams struct {
	AuthID             *string
	IDNumber           string
	IDName             string
	DOB                string
	IDPictureURL       string
	VerificationStatus string
	Role               string
}

// Patch holds the columns an update writes. Nil fields are left untouched.
type Patch struct {
	IDName             *string
	DOB                *string
	IDPictureURL       *string
	IDNumber           *string
	VerificationStatus *string
	Role               *string
	AuthID             *string
}

func (p Patch) Empty() bool {
	return p.IDName == nil && p.DOB == nil && p.IDPictureURL == nil && p.IDNumber == nil &&
		p.VerificationStatus == nil && p.Role == nil && p.AuthID == nil
}

// StripPrivileged removes the fields only admins may set.
func (p Patch) StripPrivileged() Patch {
	p.VerificationStatus = nil
	p.Role = nil
	p.IDNumber = nil
	return p
}

type VerificationParams struct {
	VerificationID string
	UserID         string
	AdminID        string
	Status         string
	Comments       string
}
