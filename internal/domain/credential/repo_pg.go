package credential

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

const credCols = `id, contexts, types, issuer_did, subject_did,
	procedure_name, procedure_timestamp, issuance_date, created_at`

func scanCredential(row pgx.Row) (*Credential, error) {
	var c Credential
	err := row.Scan(&c.ID, &c.Contexts, &c.Types, &c.IssuerDID, &c.SubjectDID,
		&c.Procedure.Name, &c.Procedure.Timestamp, &c.IssuanceDate, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("credential not found")
		}
		return nil, apperr.Storage(err)
	}
	return &c, nil
}

func (r *repoPG) Create(ctx context.Context, c *Credential) error {
	c.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO credentials (id, contexts, types, issuer_did, subject_did,
			procedure_name, procedure_timestamp, issuance_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		c.ID, c.Contexts, c.Types, c.IssuerDID, c.SubjectDID,
		c.Procedure.Name, c.Procedure.Timestamp, c.IssuanceDate)
	if err != nil {
		return apperr.Storage(err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Credential, error) {
	return scanCredential(r.conn(ctx).QueryRow(ctx,
		`SELECT `+credCols+` FROM credentials WHERE id = $1`, id))
}

func (r *repoPG) FindBySubject(ctx context.Context, subjectDID string) ([]*Credential, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+credCols+` FROM credentials
		  WHERE LOWER(subject_did) = LOWER($1)
		  ORDER BY issuance_date DESC`, subjectDID)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer rows.Close()

	creds := make([]*Credential, 0)
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		creds = append(creds, c)
	}
	return creds, rows.Err()
}
