package repository

import (
	"context"

	"credits-engine/internal/domain/model"
)

type TemplateRepository interface {
	Save(ctx context.Context, tx Tx, t *model.Template) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Template, error)
}
