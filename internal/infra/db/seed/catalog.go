// Package seed loads the default plan and template catalog.
package seed

import (
	"context"
	"time"

	"credits-engine/internal/domain/model"
	"credits-engine/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

type planSeed struct {
	ID      string
	Name    string
	Price   int64
	Credits int64
}

var defaultPlans = []planSeed{
	{"plan-starter", "Starter", 10, 50},
	{"plan-pro", "Pro", 25, 150},
	{"plan-business", "Business", 60, 400},
}

var defaultTemplates = []model.Template{
	{ID: "tpl-birthday", Theme: "birthday", Category: "greeting", ImageURL: "https://cdn.example.com/tpl/birthday.png", Ratio: "1:1", Tags: []string{"party", "celebration"}},
	{ID: "tpl-wedding", Theme: "wedding", Category: "invitation", ImageURL: "https://cdn.example.com/tpl/wedding.png", Ratio: "4:5", Tags: []string{"ceremony"}},
	{ID: "tpl-promo", Theme: "promotion", Category: "marketing", ImageURL: "https://cdn.example.com/tpl/promo.png", Ratio: "16:9", Tags: []string{"sale", "shop"}},
}

// Catalog saves the default plans and templates when no plan exists yet.
// It returns the number of plans written; 0 means the catalog was left as is.
func Catalog(ctx context.Context, plans repository.PlanRepository, templates repository.TemplateRepository, currency string, logger *zerolog.Logger) (int, error) {
	existing, err := plans.ListAll(ctx, repository.NoTX)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		logger.Info().Int("plans", len(existing)).Msg("catalog already present, skipping seed")
		return 0, nil
	}

	for _, s := range defaultPlans {
		p, err := model.NewPlan(s.ID, s.Name, s.Price, s.Credits, currency)
		if err != nil {
			return 0, err
		}
		if err := plans.Save(ctx, repository.NoTX, p); err != nil {
			return 0, err
		}
		logger.Info().Str("plan_id", p.ID).Str("name", p.Name).Int64("credits", p.CreditGrant).Int64("price", p.Price).Msg("plan seeded")
	}
	now := time.Now().UTC()
	for _, t := range defaultTemplates {
		t := t
		t.CreatedAt = now
		if err := templates.Save(ctx, repository.NoTX, &t); err != nil {
			return 0, err
		}
	}
	logger.Info().Int("templates", len(defaultTemplates)).Msg("templates seeded")
	return len(defaultPlans), nil
}
