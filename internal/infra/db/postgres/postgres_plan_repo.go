package postgres

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"credits-engine/internal/domain"
	"credits-engine/internal/domain/model"
	"credits-engine/internal/domain/ports/repository"
)

// Ensure interface compliance
var _ repository.PlanRepository = (*PostgresPlanRepo)(nil)

type PostgresPlanRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresPlanRepo(pool *pgxpool.Pool) *PostgresPlanRepo {
	return &PostgresPlanRepo{pool: pool}
}

const planColumns = `id, name, price, credits, currency, description, features, highlight, created_at`

func scanPlan(row pgx.Row) (*model.Plan, error) {
	var p model.Plan
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &p.CreditGrant, &p.Currency,
		&p.Description, &p.Features, &p.Highlight, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostgresPlanRepo) Save(ctx context.Context, tx repository.Tx, plan *model.Plan) error {
	const q = `
INSERT INTO plans (` + planColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE
  SET name        = EXCLUDED.name,
      price       = EXCLUDED.price,
      credits     = EXCLUDED.credits,
      currency    = EXCLUDED.currency,
      description = EXCLUDED.description,
      features    = EXCLUDED.features,
      highlight   = EXCLUDED.highlight;
`
	features := plan.Features
	if features == nil {
		features = []string{}
	}
	_, err := execSQL(ctx, r.pool, tx, q,
		plan.ID, plan.Name, plan.Price, plan.CreditGrant, plan.Currency,
		plan.Description, features, plan.Highlight, plan.CreatedAt,
	)
	return mapErr("save plan", err, nil)
}

func (r *PostgresPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	const q = `SELECT ` + planColumns + ` FROM plans WHERE id = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	p, err := scanPlan(row)
	if err != nil {
		return nil, mapErr("find plan", err, domain.NewNotFound(domain.EntityPlan, id))
	}
	return p, nil
}

// FindByNameOrID prefers an exact id match over a name match.
func (r *PostgresPlanRepo) FindByNameOrID(ctx context.Context, tx repository.Tx, nameOrID string) (*model.Plan, error) {
	const q = `
SELECT ` + planColumns + `
  FROM plans
 WHERE id = $1 OR LOWER(name) = LOWER($1)
 ORDER BY (id = $1) DESC
 LIMIT 1;
`
	key := strings.TrimSpace(nameOrID)
	row, err := pickRow(ctx, r.pool, tx, q, key)
	if err != nil {
		return nil, err
	}
	p, err := scanPlan(row)
	if err != nil {
		return nil, mapErr("find plan", err, domain.NewNotFound(domain.EntityPlan, key))
	}
	return p, nil
}

func (r *PostgresPlanRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	const q = `SELECT ` + planColumns + ` FROM plans ORDER BY price ASC, name ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, mapErr("list plans", err, nil)
	}
	defer rows.Close()
	var out []*model.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, mapErr("scan plan", err, nil)
		}
		out = append(out, p)
	}
	return out, mapErr("list plans", rows.Err(), nil)
}
