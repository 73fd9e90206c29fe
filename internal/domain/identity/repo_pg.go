package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/verimed/insure/internal/platform/apperr"
	"github.com/verimed/insure/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type userRepoPG struct{ pool *pgxpool.Pool }

func NewUserRepoPG(pool *pgxpool.Pool) UserRepository { return &userRepoPG{pool: pool} }

func (r *userRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const userCols = `id, did, role, status, first_name, last_name, email, username,
	national_id, password_hash, created_at, updated_at, approved_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.DID, &u.Role, &u.Status, &u.FirstName, &u.LastName,
		&u.Email, &u.Username, &u.NationalID, &u.PasswordHash,
		&u.CreatedAt, &u.UpdatedAt, &u.ApprovedAt)
	if err != nil {
		return nil, classify(err)
	}
	return &u, nil
}

// classify maps driver errors onto the shared taxonomy: no rows means
// the record does not exist, a 23505 means a uniqueness constraint
// (email, username, national id, or DID) was violated.
func classify(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("record not found")
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return apperr.Wrap(apperr.CodeDuplicateKey, err, "duplicate value for unique field")
	}
	return apperr.Storage(err)
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO users (id, did, role, status, first_name, last_name, email, username,
			national_id, password_hash)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		u.ID, u.DID, u.Role, u.Status, u.FirstName, u.LastName,
		strings.ToLower(u.Email), u.Username, u.NationalID, u.PasswordHash)
	if err != nil {
		return classify(err)
	}
	return nil
}

func (r *userRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (r *userRepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE email = LOWER($1)`, email))
}

func (r *userRepoPG) GetByUsername(ctx context.Context, username string) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE username = $1`, username))
}

func (r *userRepoPG) GetByDID(ctx context.Context, did string) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE LOWER(did) = LOWER($1)`, did))
}

func (r *userRepoPG) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, classify(err)
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+userCols+` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, classify(err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func (r *userRepoPG) UpdateRoleStatus(ctx context.Context, id uuid.UUID, role, status string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE users
		   SET role = $2, status = $3, updated_at = NOW(),
		       approved_at = CASE WHEN $3 IN ('approved', 'active') AND approved_at IS NULL
		                          THEN NOW() ELSE approved_at END
		 WHERE id = $1`,
		id, role, status)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("user %s not found", id)
	}
	return nil
}

func (r *userRepoPG) SetDID(ctx context.Context, id uuid.UUID, did string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE users SET did = $2, updated_at = NOW() WHERE id = $1`, id, did)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("user %s not found", id)
	}
	return nil
}
