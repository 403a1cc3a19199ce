package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"credits-engine/internal/domain"
	"credits-engine/internal/domain/model"
	"credits-engine/internal/domain/ports/repository"
)

var _ repository.OrderRepository = (*PostgresOrderRepo)(nil)

type PostgresOrderRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresOrderRepo(pool *pgxpool.Pool) *PostgresOrderRepo {
	return &PostgresOrderRepo{pool: pool}
}

const orderColumns = `id, first_name, last_name, email, phone_number, country, plan_name, status,
       credits, amount, currency, created_at, validated_at, user_id`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	var status string
	if err := row.Scan(&o.ID, &o.FirstName, &o.LastName, &o.Email, &o.PhoneNumber, &o.Country,
		&o.PlanName, &status, &o.Credits, &o.Amount, &o.Currency, &o.CreatedAt, &o.ValidatedAt, &o.UserID); err != nil {
		return nil, err
	}
	o.Status = model.OrderStatus(status)
	return &o, nil
}

func (r *PostgresOrderRepo) collect(rows pgx.Rows) ([]*model.Order, error) {
	defer rows.Close()
	var out []*model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, mapErr("scan order", err, nil)
		}
		out = append(out, o)
	}
	return out, mapErr("list orders", rows.Err(), nil)
}

func (r *PostgresOrderRepo) Save(ctx context.Context, tx repository.Tx, o *model.Order) error {
	const q = `
INSERT INTO orders (` + orderColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14);
`
	_, err := execSQL(ctx, r.pool, tx, q,
		o.ID, o.FirstName, o.LastName, o.Email, o.PhoneNumber, o.Country, o.PlanName, string(o.Status),
		o.Credits, o.Amount, o.Currency, o.CreatedAt, o.ValidatedAt, o.UserID,
	)
	return mapErr("save order", err, nil)
}

func (r *PostgresOrderRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Order, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+orderColumns+` FROM orders WHERE id = $1;`, id)
	if err != nil {
		return nil, err
	}
	o, err := scanOrder(row)
	if err != nil {
		return nil, mapErr("find order", err, domain.NewNotFound(domain.EntityOrder, id))
	}
	return o, nil
}

func (r *PostgresOrderRepo) List(ctx context.Context, tx repository.Tx) ([]*model.Order, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at ASC, id ASC;`)
	if err != nil {
		return nil, mapErr("list orders", err, nil)
	}
	return r.collect(rows)
}

func (r *PostgresOrderRepo) ListByUserID(ctx context.Context, tx repository.Tx, userID string) ([]*model.Order, error) {
	rows, err := queryRows(ctx, r.pool, tx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at ASC, id ASC;`, userID)
	if err != nil {
		return nil, mapErr("list user orders", err, nil)
	}
	return r.collect(rows)
}

func (r *PostgresOrderRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Order, error) {
	const q = `
SELECT ` + orderColumns + `
  FROM orders
 WHERE status = 'pending' AND created_at <= $1
 ORDER BY created_at ASC
 LIMIT $2;
`
	rows, err := queryRows(ctx, r.pool, tx, q, cutoff, limit)
	if err != nil {
		return nil, mapErr("list expired orders", err, nil)
	}
	return r.collect(rows)
}

func (r *PostgresOrderRepo) TransitionFromPending(ctx context.Context, tx repository.Tx, id string, to model.OrderStatus) (*model.Order, error) {
	if !model.OrderPending.CanTransition(to) {
		return nil, domain.NewValidationError("status", "unsupported transition")
	}
	const q = `
UPDATE orders SET status = $2
 WHERE id = $1 AND status = 'pending'
RETURNING ` + orderColumns + `;
`
	row, err := pickRow(ctx, r.pool, tx, q, id, string(to))
	if err != nil {
		return nil, err
	}
	o, err := scanOrder(row)
	if err == nil {
		return o, nil
	}
	if err != pgx.ErrNoRows {
		return nil, mapErr("transition order", err, nil)
	}
	// Nothing matched: either the order is gone or it already left pending.
	if _, err := r.FindByID(ctx, tx, id); err != nil {
		return nil, err
	}
	return nil, domain.ErrAlreadyFinalized
}

func (r *PostgresOrderRepo) CancelIfExpired(ctx context.Context, tx repository.Tx, id string, cutoff time.Time) (bool, error) {
	const q = `
UPDATE orders SET status = 'cancelled'
 WHERE id = $1 AND status = 'pending' AND created_at <= $2;
`
	tag, err := execSQL(ctx, r.pool, tx, q, id, cutoff)
	if err != nil {
		return false, mapErr("cancel order", err, nil)
	}
	return tag.RowsAffected() == 1, nil
}

// Finalize only writes once: the row must be validated and not yet frozen.
func (r *PostgresOrderRepo) Finalize(ctx context.Context, tx repository.Tx, o *model.Order) error {
	const q = `
UPDATE orders
   SET credits = $2, amount = $3, currency = $4, validated_at = $5, user_id = $6
 WHERE id = $1 AND status = 'validated' AND validated_at IS NULL;
`
	tag, err := execSQL(ctx, r.pool, tx, q, o.ID, o.Credits, o.Amount, o.Currency, o.ValidatedAt, o.UserID)
	if err != nil {
		return mapErr("finalize order", err, nil)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.FindByID(ctx, tx, o.ID); err != nil {
			return err
		}
		return domain.ErrAlreadyFinalized
	}
	return nil
}
