package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"credits-engine/internal/domain/model"
	"credits-engine/internal/domain/ports/repository"
	"credits-engine/internal/infra/metrics"
	red "credits-engine/internal/infra/redis"
)

var _ repository.TemplateRepository = (*templateRepoCacheDecorator)(nil)

// templateRepoCacheDecorator is a read-through cache in front of the template
// table. Redis failures fall back to the inner repository.
type templateRepoCacheDecorator struct {
	inner repository.TemplateRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewTemplateRepoCacheDecorator(inner repository.TemplateRepository, cache red.RedisClient, ttl time.Duration) repository.TemplateRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &templateRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl}
}

func templateKey(id string) string { return fmt.Sprintf("template:%s", id) }

func (d *templateRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Template, error) {
	key := templateKey(id)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var t model.Template
		if json.Unmarshal([]byte(val), &t) == nil {
			metrics.IncCacheRequest("template", "hit")
			return &t, nil
		}
	} else if !red.IsNil(err) {
		metrics.IncCacheRequest("template", "error")
	}

	metrics.IncCacheRequest("template", "miss")
	t, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(t); err == nil {
		_ = d.cache.Set(ctx, key, b, d.ttl)
	}
	return t, nil
}

// Save invalidates the cached entry.
func (d *templateRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, t *model.Template) error {
	if err := d.inner.Save(ctx, tx, t); err != nil {
		return err
	}
	_ = d.cache.Del(ctx, templateKey(t.ID))
	return nil
}
