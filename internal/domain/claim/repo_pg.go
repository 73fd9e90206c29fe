package claim

import (
	"context"
	"errors"

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

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const claimCols = `id, user_id, user_did, registration_id, credential_id,
	amount, description, status, created_at, updated_at`

func scanClaim(row pgx.Row) (*Claim, error) {
	var c Claim
	err := row.Scan(&c.ID, &c.UserID, &c.UserDID, &c.RegistrationID, &c.CredentialID,
		&c.Amount, &c.Description, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("claim not found")
		}
		return nil, apperr.Storage(err)
	}
	return &c, nil
}

func (r *repoPG) Create(ctx context.Context, c *Claim) error {
	c.ID = uuid.New()
	row := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO claims (id, user_id, user_did, registration_id, credential_id,
			amount, description, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		c.ID, c.UserID, c.UserDID, c.RegistrationID, c.CredentialID,
		c.Amount, c.Description, c.Status)
	if err := row.Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		return apperr.Storage(err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Claim, error) {
	return scanClaim(r.conn(ctx).QueryRow(ctx,
		`SELECT `+claimCols+` FROM claims WHERE id = $1`, id))
}

func (r *repoPG) ListAll(ctx context.Context, limit, offset int) ([]*AdminView, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM claims`).Scan(&total); err != nil {
		return nil, 0, apperr.Storage(err)
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT c.id, c.user_id, c.user_did, c.registration_id, c.credential_id,
		       c.amount, c.description, c.status, c.created_at, c.updated_at,
		       u.first_name || ' ' || u.last_name, u.email, COALESCE(p.name, '')
		  FROM claims c
		  JOIN users u ON u.id = c.user_id
		  LEFT JOIN policy_registrations r ON r.id = c.registration_id
		  LEFT JOIN policies p ON p.id = r.policy_id
		 ORDER BY c.created_at DESC
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, apperr.Storage(err)
	}
	defer rows.Close()

	var views []*AdminView
	for rows.Next() {
		var v AdminView
		err := rows.Scan(&v.ID, &v.UserID, &v.UserDID, &v.RegistrationID, &v.CredentialID,
			&v.Amount, &v.Description, &v.Status, &v.CreatedAt, &v.UpdatedAt,
			&v.UserName, &v.UserEmail, &v.PolicyName)
		if err != nil {
			return nil, 0, apperr.Storage(err)
		}
		views = append(views, &v)
	}
	return views, total, rows.Err()
}

func (r *repoPG) ListForUser(ctx context.Context, userID uuid.UUID) ([]*Claim, error) {
	return r.list(ctx, `user_id = $1`, userID)
}

func (r *repoPG) ListByDID(ctx context.Context, did string) ([]*Claim, error) {
	return r.list(ctx, `LOWER(user_did) = LOWER($1)`, did)
}

func (r *repoPG) list(ctx context.Context, where string, arg interface{}) ([]*Claim, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+claimCols+` FROM claims WHERE `+where+` ORDER BY created_at DESC`, arg)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer rows.Close()

	claims := make([]*Claim, 0)
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, c)
	}
	return claims, rows.Err()
}

// UpdateStatusIfPending is the optimistic transition guard: the WHERE
// clause loses the race for any claim that already left pending, so
// concurrent adjudications cannot overwrite a terminal status.
func (r *repoPG) UpdateStatusIfPending(ctx context.Context, id uuid.UUID, status string) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE claims SET status = $2, updated_at = NOW()
		 WHERE id = $1 AND status = 'pending'`, id, status)
	if err != nil {
		return false, apperr.Storage(err)
	}
	return tag.RowsAffected() == 1, nil
}
