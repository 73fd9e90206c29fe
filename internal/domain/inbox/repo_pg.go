package inbox

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

const messageCols = `id, sender_name, sender_email, content, response, responded_at, created_at`

func scanMessage(row pgx.Row) (*Message, error) {
	var m Message
	err := row.Scan(&m.ID, &m.SenderName, &m.SenderEmail, &m.Content,
		&m.Response, &m.RespondedAt, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("message not found")
		}
		return nil, apperr.Storage(err)
	}
	return &m, nil
}

func (r *repoPG) Create(ctx context.Context, m *Message) error {
	m.ID = uuid.New()
	row := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO messages (id, sender_name, sender_email, content)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at`,
		m.ID, m.SenderName, m.SenderEmail, m.Content)
	if err := row.Scan(&m.CreatedAt); err != nil {
		return apperr.Storage(err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Message, error) {
	return scanMessage(r.conn(ctx).QueryRow(ctx,
		`SELECT `+messageCols+` FROM messages WHERE id = $1`, id))
}

func (r *repoPG) ListAll(ctx context.Context) ([]*Message, error) {
	return r.list(ctx, `SELECT `+messageCols+` FROM messages ORDER BY created_at DESC`)
}

func (r *repoPG) ListByEmail(ctx context.Context, email string) ([]*Message, error) {
	return r.list(ctx, `SELECT `+messageCols+` FROM messages
		WHERE LOWER(sender_email) = LOWER($1)
		ORDER BY created_at DESC`, email)
}

func (r *repoPG) list(ctx context.Context, sql string, args ...interface{}) ([]*Message, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer rows.Close()

	msgs := make([]*Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (r *repoPG) SetResponse(ctx context.Context, id uuid.UUID, response string) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE messages
		   SET response = $2, responded_at = NOW()
		 WHERE id = $1 AND response IS NULL`,
		id, response)
	if err != nil {
		return false, apperr.Storage(err)
	}
	return tag.RowsAffected() == 1, nil
}
