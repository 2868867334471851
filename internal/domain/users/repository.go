package users

import "context"

// Repository is the record-store surface the users service needs.
type Repository interface {
	GetByID(ctx context.Context, userID string) (*User, error)
	GetByAuthID(ctx context.Context, authID string) (*User, error)
	ExistsByIDNumber(ctx context.Context, idNumber string) (bool, error)
	Create(ctx context.Context, params CreateParams) (*User, error)
	Update(ctx context.Context, userID string, patch Patch) (*User, error)
	List(ctx context.Context, filters ListFilters) ([]User, int, error)
	CreateVerification(ctx context.Context, params VerificationParams) (*Verification, error)

	// WithTx runs fn against a repository bound to one transaction.
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
}

// ListFilters is the store-level query for user listing.
type ListFilters struct {
	VerificationStatus string
	Role               string
	SortField          string
	Descending         bool
	Limit              int
	Offset             int
}
