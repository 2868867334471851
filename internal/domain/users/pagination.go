package users

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/Togather-Foundation/eventdesk/internal/auth"
	"github.com/Togather-Foundation/eventdesk/internal/validation"
)

const (
	DefaultPage  = 1
	DefaultLimit = 50
	DefaultSort  = "created_at"
)

var sortableFields = map[string]bool{
	"created_at":          true,
	"updated_at":          true,
	"id_name":             true,
	"id_number":           true,
	"dob":                 true,
	"verification_status": true,
	"role":                true,
}

// ListQuery is a parsed user listing request.
type ListQuery struct {
	VerificationStatus string
	Role               string
	Sort               string
	Descending         bool
	Page               int
	Limit              int
}

// Offset is the index of the first row on Page.
func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// Pagination describes where a page sits in the full result set.
type Pagination struct {
	Total       int  `json:"total"`
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	TotalPages  int  `json:"totalPages"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

func NewPagination(total, page, limit int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{
		Total:       total,
		Page:        page,
		Limit:       limit,
		TotalPages:  totalPages,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}
}

type ListResult struct {
	Users      []User     `json:"users"`
	Pagination Pagination `json:"pagination"`
}

// ParseListQuery reads filters, sort and paging from query parameters.
func ParseListQuery(values url.Values, maxLimit int) (ListQuery, error) {
	query := ListQuery{
		Sort:       DefaultSort,
		Descending: true,
		Page:       DefaultPage,
		Limit:      DefaultLimit,
	}

	if status := strings.TrimSpace(values.Get("verification_status")); status != "" {
		if !validStatus(status) {
			return query, validation.Invalid("verification_status", "Invalid verification_status. Must be one of: pending, approved, rejected")
		}
		query.VerificationStatus = status
	}

	if role := strings.TrimSpace(values.Get("role")); role != "" {
		if !auth.ValidRole(role) {
			return query, validation.Invalid("role", "Invalid role. Must be one of: user, admin, super_admin")
		}
		query.Role = role
	}

	if sort := strings.TrimSpace(values.Get("sort")); sort != "" {
		if !sortableFields[sort] {
			return query, validation.Invalid("sort", "Invalid sort field: %s", sort)
		}
		query.Sort = sort
	}

	switch order := strings.ToLower(strings.TrimSpace(values.Get("order"))); order {
	case "":
	case "asc":
		query.Descending = false
	case "desc":
		query.Descending = true
	default:
		return query, validation.Invalid("order", "Invalid order. Must be asc or desc")
	}

	if raw := strings.TrimSpace(values.Get("page")); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return query, validation.Invalid("page", "Invalid page. Must be a positive integer")
		}
		query.Page = page
	}

	if raw := strings.TrimSpace(values.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return query, validation.Invalid("limit", "Invalid limit. Must be a positive integer")
		}
		if maxLimit > 0 && limit > maxLimit {
			return query, validation.Invalid("limit", "Invalid limit. Must not exceed %d", maxLimit)
		}
		query.Limit = limit
	}

	return query, nil
}

func validStatus(status string) bool {
	switch status {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}
