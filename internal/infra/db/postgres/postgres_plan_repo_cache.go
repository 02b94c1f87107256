package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"comics-commerce/internal/domain/model"
	"comics-commerce/internal/domain/ports/repository"
	"comics-commerce/internal/infra/metrics"
	red "comics-commerce/internal/infra/redis"
)

var _ repository.SubscriptionPlanRepository = (*planRepoCacheDecorator)(nil)

const activePlansKey = "plans:active"

// planRepoCacheDecorator serves plan reads from Redis. Plans change rarely and
// every read path only needs the price and duration, so a stale entry costs
// at most one TTL. Reads inside a transaction always go to the database.
type planRepoCacheDecorator struct {
	inner repository.SubscriptionPlanRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewPlanRepoCacheDecorator(inner repository.SubscriptionPlanRepository, cache red.RedisClient, ttl time.Duration) repository.SubscriptionPlanRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &planRepoCacheDecorator{
		inner: inner,
		cache: cache,
		ttl:   ttl,
	}
}

func (d *planRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionPlan, error) {
	if tx != nil {
		return d.inner.FindByID(ctx, tx, id)
	}
	key := fmt.Sprintf("plan:%s", id)
	var plan model.SubscriptionPlan
	if d.lookup(ctx, "plan", key, &plan) {
		return &plan, nil
	}

	p, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	d.store(ctx, key, p)
	return p, nil
}

func (d *planRepoCacheDecorator) ListActive(ctx context.Context, tx repository.Tx) ([]*model.SubscriptionPlan, error) {
	if tx != nil {
		return d.inner.ListActive(ctx, tx)
	}
	var plans []*model.SubscriptionPlan
	if d.lookup(ctx, "plan_list", activePlansKey, &plans) {
		return plans, nil
	}

	plans, err := d.inner.ListActive(ctx, tx)
	if err != nil {
		return nil, err
	}
	if len(plans) > 0 {
		d.store(ctx, activePlansKey, plans)
	}
	return plans, nil
}

// For write operations, we must invalidate the cache.
func (d *planRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, plan *model.SubscriptionPlan) error {
	if err := d.inner.Save(ctx, tx, plan); err != nil {
		return err
	}
	_ = d.cache.Del(ctx, fmt.Sprintf("plan:%s", plan.ID))
	_ = d.cache.Del(ctx, activePlansKey)
	return nil
}

func (d *planRepoCacheDecorator) lookup(ctx context.Context, name, key string, dst interface{}) bool {
	val, err := d.cache.Get(ctx, key)
	switch {
	case err == nil:
		if json.Unmarshal([]byte(val), dst) == nil {
			metrics.IncCacheRequest(name, "hit")
			return true
		}
		metrics.IncCacheRequest(name, "corrupt")
	case red.IsNil(err):
		metrics.IncCacheRequest(name, "miss")
	default:
		metrics.IncCacheRequest(name, "error")
	}
	return false
}

func (d *planRepoCacheDecorator) store(ctx context.Context, key string, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = d.cache.Set(ctx, key, b, d.ttl)
}
