package registration

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

const regCols = `id, user_id, policy_id, status, registered_at, expires_at`

func scanRegistration(row pgx.Row) (*Registration, error) {
	var reg Registration
	err := row.Scan(&reg.ID, &reg.UserID, &reg.PolicyID, &reg.Status,
		&reg.RegisteredAt, &reg.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("registration not found")
		}
		return nil, apperr.Storage(err)
	}
	return &reg, nil
}

func (r *repoPG) Create(ctx context.Context, reg *Registration) error {
	reg.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO policy_registrations (id, user_id, policy_id, status, registered_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		reg.ID, reg.UserID, reg.PolicyID, reg.Status, reg.RegisteredAt, reg.ExpiresAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperr.AlreadyRegistered("already registered for this policy")
		}
		return apperr.Storage(err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Registration, error) {
	return scanRegistration(r.conn(ctx).QueryRow(ctx,
		`SELECT `+regCols+` FROM policy_registrations WHERE id = $1`, id))
}

func (r *repoPG) ActiveExists(ctx context.Context, userID, policyID uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM policy_registrations
			 WHERE user_id = $1 AND policy_id = $2 AND status = 'active' AND expires_at > NOW()
		)`, userID, policyID).Scan(&exists)
	if err != nil {
		return false, apperr.Storage(err)
	}
	return exists, nil
}

func (r *repoPG) ExpireStale(ctx context.Context, userID, policyID uuid.UUID) error {
	// The partial unique index on (user_id, policy_id) only admits one
	// row with status 'active'; lapsed rows must vacate it before a
	// renewal insert.
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE policy_registrations
		   SET status = 'expired'
		 WHERE user_id = $1 AND policy_id = $2
		   AND status = 'active' AND expires_at <= NOW()`,
		userID, policyID)
	if err != nil {
		return apperr.Storage(err)
	}
	return nil
}

func (r *repoPG) ListForUser(ctx context.Context, userID uuid.UUID, f Filter, limit, offset int) ([]*Registration, int, error) {
	where := `user_id = $1`
	switch f {
	case FilterActive:
		where += ` AND status = 'active' AND expires_at > NOW()`
	case FilterExpired:
		where += ` AND expires_at <= NOW()`
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM policy_registrations WHERE `+where, userID).Scan(&total); err != nil {
		return nil, 0, apperr.Storage(err)
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+regCols+` FROM policy_registrations WHERE `+where+`
		 ORDER BY registered_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Storage(err)
	}
	defer rows.Close()

	var regs []*Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, 0, err
		}
		regs = append(regs, reg)
	}
	return regs, total, rows.Err()
}
