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

var _ repository.UserRepository = (*PostgresUserRepo)(nil)

type PostgresUserRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{pool: pool}
}

const userColumns = `id, first_name, last_name, email, phone_number, country, status,
       active_plan_id, credits_remaining, activation_code, order_ids, created_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	var status string
	if err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PhoneNumber, &u.Country, &status,
		&u.ActivePlanID, &u.CreditsRemaining, &u.ActivationCode, &u.OrderIDs, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Status = model.UserStatus(status)
	if u.OrderIDs == nil {
		u.OrderIDs = []string{}
	}
	return &u, nil
}

// Create uses ON CONFLICT DO NOTHING so a lost email race does not abort the
// surrounding transaction.
func (r *PostgresUserRepo) Create(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (` + userColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT DO NOTHING;
`
	orders := u.OrderIDs
	if orders == nil {
		orders = []string{}
	}
	tag, err := execSQL(ctx, r.pool, tx, q,
		u.ID, u.FirstName, u.LastName, model.CanonicalEmail(u.Email), u.PhoneNumber, u.Country, string(u.Status),
		u.ActivePlanID, u.CreditsRemaining, u.ActivationCode, orders, u.CreatedAt,
	)
	if err != nil {
		return mapErr("create user", err, nil)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

func (r *PostgresUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+userColumns+` FROM users WHERE id = $1;`, id)
	if err != nil {
		return nil, err
	}
	u, err := scanUser(row)
	if err != nil {
		return nil, mapErr("find user", err, domain.NewNotFound(domain.EntityUser, id))
	}
	return u, nil
}

func (r *PostgresUserRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.User, error) {
	key := model.CanonicalEmail(email)
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+userColumns+` FROM users WHERE email = $1;`, key)
	if err != nil {
		return nil, err
	}
	u, err := scanUser(row)
	if err != nil {
		return nil, mapErr("find user by email", err, domain.NewNotFound(domain.EntityUser, key))
	}
	return u, nil
}

func (r *PostgresUserRepo) List(ctx context.Context, tx repository.Tx) ([]*model.User, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC;`)
	if err != nil {
		return nil, mapErr("list users", err, nil)
	}
	defer rows.Close()
	var out []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, mapErr("scan user", err, nil)
		}
		out = append(out, u)
	}
	return out, mapErr("list users", rows.Err(), nil)
}

func (r *PostgresUserRepo) ApplyOrderCredit(ctx context.Context, tx repository.Tx, userID string, credits int64, planID, orderID string) (*model.User, error) {
	if credits < 0 {
		return nil, domain.NewValidationError("credits", "must not be negative")
	}
	const q = `
UPDATE users
   SET credits_remaining = credits_remaining + $2,
       active_plan_id    = $3,
       status            = 'active',
       order_ids         = array_append(order_ids, $4)
 WHERE id = $1
RETURNING ` + userColumns + `;
`
	row, err := pickRow(ctx, r.pool, tx, q, userID, credits, planID, orderID)
	if err != nil {
		return nil, err
	}
	u, err := scanUser(row)
	if err != nil {
		return nil, mapErr("apply order credit", err, domain.NewNotFound(domain.EntityUser, userID))
	}
	return u, nil
}

func (r *PostgresUserRepo) ConsumeCredits(ctx context.Context, tx repository.Tx, userID string, cost int64) (*model.User, error) {
	if err := model.CheckCost(cost); err != nil {
		return nil, err
	}
	const q = `
UPDATE users
   SET credits_remaining = credits_remaining - $2
 WHERE id = $1 AND credits_remaining >= $2
RETURNING ` + userColumns + `;
`
	row, err := pickRow(ctx, r.pool, tx, q, userID, cost)
	if err != nil {
		return nil, err
	}
	u, err := scanUser(row)
	if err == nil {
		return u, nil
	}
	if err != pgx.ErrNoRows {
		return nil, mapErr("consume credits", err, nil)
	}
	if _, err := r.FindByID(ctx, tx, userID); err != nil {
		return nil, err
	}
	return nil, domain.ErrInsufficientCredits
}

func (r *PostgresUserRepo) Activate(ctx context.Context, tx repository.Tx, userID, planID string, credits int64, code string) (*model.User, error) {
	if credits < 0 {
		return nil, domain.NewValidationError("credits", "must not be negative")
	}
	const q = `
UPDATE users
   SET status            = 'active',
       active_plan_id    = $2,
       credits_remaining = $3,
       activation_code   = COALESCE(activation_code, $4)
 WHERE id = $1
RETURNING ` + userColumns + `;
`
	row, err := pickRow(ctx, r.pool, tx, q, userID, planID, credits, code)
	if err != nil {
		return nil, err
	}
	u, err := scanUser(row)
	if err != nil {
		return nil, mapErr("activate user", err, domain.NewNotFound(domain.EntityUser, userID))
	}
	return u, nil
}

func (r *PostgresUserRepo) DeleteStalePending(ctx context.Context, tx repository.Tx, cutoff time.Time) (int64, error) {
	const q = `
DELETE FROM users
 WHERE status = 'pending'
   AND credits_remaining = 0
   AND cardinality(order_ids) = 0
   AND created_at <= $1;
`
	tag, err := execSQL(ctx, r.pool, tx, q, cutoff)
	if err != nil {
		return 0, mapErr("delete stale users", err, nil)
	}
	return tag.RowsAffected(), nil
}
