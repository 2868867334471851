package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Togather-Foundation/eventdesk/internal/domain/ids"
	"github.com/Togather-Foundation/eventdesk/internal/domain/users"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ users.Repository = (*UserRepository)(nil)

type UserRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

const userColumns = `user_id, auth_id, id_number, id_name, dob::text, id_picture_url,
       verification_status, role, created_at, updated_at`

// userSortColumns whitelists ORDER BY targets; values are interpolated.
var userSortColumns = map[string]string{
	"created_at":          "created_at",
	"updated_at":          "updated_at",
	"id_name":             "id_name",
	"id_number":           "id_number",
	"dob":                 "dob",
	"verification_status": "verification_status",
	"role":                "role",
}

func scanUser(row pgx.Row) (*users.User, error) {
	var u users.User
	if err := row.Scan(
		&u.UserID,
		&u.AuthID,
		&u.IDNumber,
		&u.IDName,
		&u.DOB,
		&u.IDPictureURL,
		&u.VerificationStatus,
		&u.Role,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, userID string) (*users.User, error) {
	row := r.queryer().QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = $1`, userID)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, users.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) GetByAuthID(ctx context.Context, authID string) (*users.User, error) {
	row := r.queryer().QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE auth_id = $1`, authID)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, users.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by auth id: %w", err)
	}
	return u, nil
}

func (r *UserRepository) ExistsByIDNumber(ctx context.Context, idNumber string) (bool, error) {
	var exists bool
	err := r.queryer().QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id_number = $1)`, idNumber).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check id number: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) Create(ctx context.Context, params users.CreateParams) (*users.User, error) {
	row := r.queryer().QueryRow(ctx, `
INSERT INTO users (auth_id, id_number, id_name, dob, id_picture_url, verification_status, role)
VALUES ($1, $2, $3, $4::date, $5, $6, $7)
RETURNING `+userColumns,
		params.AuthID,
		params.IDNumber,
		params.IDName,
		params.DOB,
		params.IDPictureURL,
		params.VerificationStatus,
		params.Role,
	)
	u, err := scanUser(row)
	if err != nil {
		return nil, mapUserWriteError("create user", err)
	}
	return u, nil
}

// Update writes the non-nil patch fields. COALESCE keeps columns whose
// parameter is NULL.
func (r *UserRepository) Update(ctx context.Context, userID string, patch users.Patch) (*users.User, error) {
	row := r.queryer().QueryRow(ctx, `
UPDATE users
   SET id_name             = COALESCE($2, id_name),
       dob                 = COALESCE($3::date, dob),
       id_picture_url      = COALESCE($4, id_picture_url),
       id_number           = COALESCE($5, id_number),
       verification_status = COALESCE($6, verification_status),
       role                = COALESCE($7, role),
       auth_id             = COALESCE($8, auth_id),
       updated_at          = now()
 WHERE user_id = $1
RETURNING `+userColumns,
		userID,
		patch.IDName,
		patch.DOB,
		patch.IDPictureURL,
		patch.IDNumber,
		patch.VerificationStatus,
		patch.Role,
		patch.AuthID,
	)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, users.ErrNotFound
	}
	if err != nil {
		return nil, mapUserWriteError("update user", err)
	}
	return u, nil
}

func (r *UserRepository) List(ctx context.Context, filters users.ListFilters) ([]users.User, int, error) {
	queryer := r.queryer()

	column, ok := userSortColumns[filters.SortField]
	if !ok {
		column = "created_at"
	}
	direction := "ASC"
	if filters.Descending {
		direction = "DESC"
	}

	var total int
	if err := queryer.QueryRow(ctx, `
SELECT COUNT(*)
  FROM users
 WHERE ($1 = '' OR verification_status = $1)
   AND ($2 = '' OR role = $2)`,
		filters.VerificationStatus, filters.Role,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	rows, err := queryer.Query(ctx, fmt.Sprintf(`
SELECT %s
  FROM users
 WHERE ($1 = '' OR verification_status = $1)
   AND ($2 = '' OR role = $2)
 ORDER BY %s %s, user_id %s
 LIMIT $3 OFFSET $4`, userColumns, column, direction, direction),
		filters.VerificationStatus, filters.Role, filters.Limit, filters.Offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	items := make([]users.User, 0, filters.Limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		items = append(items, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate users: %w", err)
	}
	return items, total, nil
}

func (r *UserRepository) CreateVerification(ctx context.Context, params users.VerificationParams) (*users.Verification, error) {
	if err := ids.ValidateULID(params.VerificationID); err != nil {
		return nil, fmt.Errorf("create verification: %w", err)
	}

	var v users.Verification
	err := r.queryer().QueryRow(ctx, `
INSERT INTO admin_verification_requests (verification_id, user_id, admin_id, status, comments)
VALUES ($1, $2, $3, $4, $5)
RETURNING verification_id, user_id, admin_id, status, comments, created_at`,
		params.VerificationID,
		params.UserID,
		params.AdminID,
		params.Status,
		params.Comments,
	).Scan(&v.VerificationID, &v.UserID, &v.AdminID, &v.Status, &v.Comments, &v.CreatedAt)
	if err != nil {
		if _, ok := constraintViolation(err, codeForeignKeyViolation); ok {
			return nil, users.ErrNotFound
		}
		return nil, fmt.Errorf("create verification: %w", err)
	}
	return &v, nil
}

func (r *UserRepository) WithTx(ctx context.Context, fn func(context.Context, users.Repository) error) error {
	return withTx(ctx, r.pool, r.tx, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &UserRepository{pool: r.pool, tx: tx})
	})
}

// PromoteByAuthID sets role on the profile linked to authID. It reports
// whether a profile was found.
func (r *UserRepository) PromoteByAuthID(ctx context.Context, authID, role string) (bool, error) {
	tag, err := r.queryer().Exec(ctx,
		`UPDATE users SET role = $2, updated_at = now() WHERE auth_id = $1 AND role <> $2`,
		authID, role,
	)
	if err != nil {
		return false, fmt.Errorf("promote user: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}
	var exists bool
	if err := r.queryer().QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE auth_id = $1)`, authID).Scan(&exists); err != nil {
		return false, fmt.Errorf("promote user: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) queryer() queryer {
	return pick(r.pool, r.tx)
}

func mapUserWriteError(op string, err error) error {
	if constraint, ok := constraintViolation(err, codeUniqueViolation); ok {
		if constraint == "users_auth_id_key" {
			return users.ErrAuthLinked
		}
		return users.ErrConflict
	}
	return fmt.Errorf("%s: %w", op, err)
}
