//go:build !integration

package seed

import (
	"context"
	"testing"

	"credits-engine/internal/domain/model"
	"credits-engine/internal/infra/db/memory"

	"github.com/rs/zerolog"
)

func TestCatalog(t *testing.T) {
	ctx := context.Background()
	log := zerolog.Nop()
	s := memory.NewStore()

	n, err := Catalog(ctx, s.Plans(), s.Templates(), "fcfa", &log)
	if err != nil || n != len(defaultPlans) {
		t.Fatalf("expected %d plans seeded, got %d %v", len(defaultPlans), n, err)
	}
	p, err := s.Plans().FindByNameOrID(ctx, nil, "starter")
	if err != nil || p.CreditGrant != 50 || p.Price != 10 || p.Currency != "FCFA" {
		t.Fatalf("unexpected starter plan %+v %v", p, err)
	}
	if _, err := s.Templates().FindByID(ctx, nil, "tpl-birthday"); err != nil {
		t.Fatalf("expected template seeded: %v", err)
	}

	// a second run keeps an existing catalog untouched
	_ = s.Plans().Save(ctx, nil, &model.Plan{ID: "plan-starter", Name: "Starter", Price: 12, CreditGrant: 60})
	n, err = Catalog(ctx, s.Plans(), s.Templates(), "FCFA", &log)
	if err != nil || n != 0 {
		t.Fatalf("expected no-op, got %d %v", n, err)
	}
	p, _ = s.Plans().FindByID(ctx, nil, "plan-starter")
	if p.Price != 12 {
		t.Fatalf("existing plan must not be overwritten, got %+v", p)
	}
}
