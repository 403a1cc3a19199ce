package memory

import (
	"context"
	"sort"
	"strings"

	"credits-engine/internal/domain"
	"credits-engine/internal/domain/model"
	"credits-engine/internal/domain/ports/repository"
)

var (
	_ repository.PlanRepository     = (*PlanRepo)(nil)
	_ repository.TemplateRepository = (*TemplateRepo)(nil)
)

type PlanRepo struct{ s *Store }

func (r *PlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.Plan) error {
	if _, err := checkTx(tx); err != nil {
		return err
	}
	r.s.catalogMu.Lock()
	defer r.s.catalogMu.Unlock()
	for id, existing := range r.s.plans {
		if id != p.ID && strings.EqualFold(existing.Name, p.Name) {
			return domain.ErrAlreadyExists
		}
	}
	cp := *p
	cp.Features = append([]string{}, p.Features...)
	r.s.plans[p.ID] = &cp
	return nil
}

func (r *PlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	if _, err := checkTx(tx); err != nil {
		return nil, err
	}
	r.s.catalogMu.RLock()
	defer r.s.catalogMu.RUnlock()
	p, ok := r.s.plans[id]
	if !ok {
		return nil, domain.NewNotFound(domain.EntityPlan, id)
	}
	cp := *p
	return &cp, nil
}

func (r *PlanRepo) FindByNameOrID(ctx context.Context, tx repository.Tx, nameOrID string) (*model.Plan, error) {
	if _, err := checkTx(tx); err != nil {
		return nil, err
	}
	key := strings.TrimSpace(nameOrID)
	r.s.catalogMu.RLock()
	defer r.s.catalogMu.RUnlock()
	if p, ok := r.s.plans[key]; ok {
		cp := *p
		return &cp, nil
	}
	for _, p := range r.s.plans {
		if p.Matches(key) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.NewNotFound(domain.EntityPlan, key)
}

func (r *PlanRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	if _, err := checkTx(tx); err != nil {
		return nil, err
	}
	r.s.catalogMu.RLock()
	defer r.s.catalogMu.RUnlock()
	out := make([]*model.Plan, 0, len(r.s.plans))
	for _, p := range r.s.plans {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out, nil
}

type TemplateRepo struct{ s *Store }

func (r *TemplateRepo) Save(ctx context.Context, tx repository.Tx, t *model.Template) error {
	if _, err := checkTx(tx); err != nil {
		return err
	}
	r.s.catalogMu.Lock()
	defer r.s.catalogMu.Unlock()
	cp := *t
	cp.Tags = append([]string{}, t.Tags...)
	r.s.templates[t.ID] = &cp
	return nil
}

func (r *TemplateRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Template, error) {
	if _, err := checkTx(tx); err != nil {
		return nil, err
	}
	r.s.catalogMu.RLock()
	defer r.s.catalogMu.RUnlock()
	t, ok := r.s.templates[id]
	if !ok {
		return nil, domain.NewNotFound(domain.EntityTemplate, id)
	}
	cp := *t
	return &cp, nil
}
