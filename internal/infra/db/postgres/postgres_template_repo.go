package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"credits-engine/internal/domain"
	"credits-engine/internal/domain/model"
	"credits-engine/internal/domain/ports/repository"
)

var _ repository.TemplateRepository = (*PostgresTemplateRepo)(nil)

type PostgresTemplateRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresTemplateRepo(pool *pgxpool.Pool) *PostgresTemplateRepo {
	return &PostgresTemplateRepo{pool: pool}
}

func (r *PostgresTemplateRepo) Save(ctx context.Context, tx repository.Tx, t *model.Template) error {
	const q = `
INSERT INTO templates (id, theme, category, image_url, ratio, tags, description, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE
  SET theme = EXCLUDED.theme, category = EXCLUDED.category, image_url = EXCLUDED.image_url,
      ratio = EXCLUDED.ratio, tags = EXCLUDED.tags, description = EXCLUDED.description;
`
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	_, err := execSQL(ctx, r.pool, tx, q, t.ID, t.Theme, t.Category, t.ImageURL, t.Ratio, tags, t.Description, t.CreatedAt)
	return mapErr("save template", err, nil)
}

func (r *PostgresTemplateRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Template, error) {
	const q = `
SELECT id, theme, category, image_url, ratio, tags, description, created_at
  FROM templates WHERE id = $1;
`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	var t model.Template
	if err := row.Scan(&t.ID, &t.Theme, &t.Category, &t.ImageURL, &t.Ratio, &t.Tags, &t.Description, &t.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.NewNotFound(domain.EntityTemplate, id)
		}
		return nil, mapErr("find template", err, nil)
	}
	return &t, nil
}
