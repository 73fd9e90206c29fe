package policy

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

const policyCols = `id, name, description, price, duration_months,
	insurance_company, covered_hospital, coverage_details, status, created_at`

func scanPolicy(row pgx.Row) (*Policy, error) {
	var p Policy
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.DurationMonths,
		&p.InsuranceCompany, &p.CoveredHospital, &p.CoverageDetails,
		&p.Status, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("policy not found")
		}
		return nil, apperr.Storage(err)
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Policy) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO policies (id, name, description, price, duration_months,
			insurance_company, covered_hospital, coverage_details, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		p.ID, p.Name, p.Description, p.Price, p.DurationMonths,
		p.InsuranceCompany, p.CoveredHospital, p.CoverageDetails, p.Status)
	if err != nil {
		return apperr.Storage(err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Policy, error) {
	return scanPolicy(r.conn(ctx).QueryRow(ctx,
		`SELECT `+policyCols+` FROM policies WHERE id = $1`, id))
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Policy, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM policies`).Scan(&total); err != nil {
		return nil, 0, apperr.Storage(err)
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+policyCols+` FROM policies ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, apperr.Storage(err)
	}
	defer rows.Close()

	var policies []*Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, 0, err
		}
		policies = append(policies, p)
	}
	return policies, total, rows.Err()
}
