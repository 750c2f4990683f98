// Package subscription resolves a user's billing state with a short-lived
// per-user cache in front of the subscription store.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/logoforge/logoforge/internal/app/domain/credit"
	"github.com/logoforge/logoforge/internal/app/storage"
	"github.com/logoforge/logoforge/internal/config"
	"github.com/logoforge/logoforge/pkg/logger"
)

// DefaultTTL is how long a resolved subscription stays fresh. Staleness is
// acceptable here; the check gates plan lookup, not payment.
const DefaultTTL = 30 * time.Second

// Cache is the injected cache abstraction. go-cache satisfies it in
// production; tests use a map fake.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, d time.Duration)
}

type entry struct {
	sub       credit.Subscription
	fetchedAt time.Time
}

// Checker answers "what plan is this user on" with bounded staleness.
type Checker struct {
	store   storage.SubscriptionStore
	cache   Cache
	catalog *config.Catalog
	ttl     time.Duration
	now     func() time.Time
	log     *logger.Logger
}

// NewChecker creates a Checker. ttl <= 0 selects DefaultTTL; a nil now
// selects time.Now.
func NewChecker(store storage.SubscriptionStore, c Cache, catalog *config.Catalog, ttl time.Duration, now func() time.Time, log *logger.Logger) (*Checker, error) {
	if store == nil {
		return nil, fmt.Errorf("subscription: store is required")
	}
	if c == nil {
		return nil, fmt.Errorf("subscription: cache is required")
	}
	if catalog == nil {
		catalog = config.DefaultCatalog()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = logger.NewDefault("subscription")
	}
	return &Checker{store: store, cache: c, catalog: catalog, ttl: ttl, now: now, log: log}, nil
}

// Check returns the user's subscription, served from cache while fresh.
// Users with no billing row are on the free plan.
func (c *Checker) Check(ctx context.Context, userID string) (credit.Subscription, error) {
	if cached, ok := c.cache.Get(userID); ok {
		if e, ok := cached.(entry); ok && c.now().Sub(e.fetchedAt) < c.ttl {
			return e.sub, nil
		}
	}

	sub, err := c.store.GetSubscription(ctx, userID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		sub = credit.Subscription{UserID: userID, Plan: "free", Active: false}
	case err != nil:
		return credit.Subscription{}, err
	}

	sub.CheckedAt = c.now()
	c.cache.Set(userID, entry{sub: sub, fetchedAt: sub.CheckedAt}, c.ttl)
	return sub, nil
}

// Allowance returns the monthly generation allowance for the user's plan.
func (c *Checker) Allowance(ctx context.Context, userID string) (int, error) {
	sub, err := c.Check(ctx, userID)
	if err != nil {
		return 0, err
	}
	return c.catalog.PlanOrFree(sub.Plan).GenerationsPerMonth, nil
}

// Plan returns the plan descriptor for the user's subscription.
func (c *Checker) Plan(ctx context.Context, userID string) (config.Plan, credit.Subscription, error) {
	sub, err := c.Check(ctx, userID)
	if err != nil {
		return config.Plan{}, credit.Subscription{}, err
	}
	return c.catalog.PlanOrFree(sub.Plan), sub, nil
}
