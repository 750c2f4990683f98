// Package app wires the domain services together and manages their
// lifecycle.
package app

import (
	"context"
	"fmt"

	gocache "github.com/patrickmn/go-cache"

	"github.com/logoforge/logoforge/internal/app/httpapi"
	"github.com/logoforge/logoforge/internal/app/services/credits"
	"github.com/logoforge/logoforge/internal/app/services/generation"
	"github.com/logoforge/logoforge/internal/app/services/library"
	"github.com/logoforge/logoforge/internal/app/services/subscription"
	"github.com/logoforge/logoforge/internal/app/storage"
	"github.com/logoforge/logoforge/internal/app/storage/memory"
	"github.com/logoforge/logoforge/internal/app/system"
	"github.com/logoforge/logoforge/internal/config"
	"github.com/logoforge/logoforge/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Icons         storage.IconStore
	Credits       storage.CreditStore
	Subscriptions storage.SubscriptionStore
}

// Config carries the application dependencies.
type Config struct {
	Stores   Stores
	Provider generation.Provider
	Catalog  *config.Catalog
	Limits   config.LimitsConfig
	Cache    subscription.Cache
	Logger   *logger.Logger
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Library      *library.Service
	Credits      *credits.Service
	Subscription *subscription.Checker
	Generator    *generation.Service
	Handler      *httpapi.Handler
}

// New builds a fully initialised application.
func New(cfg Config) (*Application, error) {
	log := cfg.Logger
	if log == nil {
		log = logger.NewDefault("app")
	}
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = config.DefaultCatalog()
	}

	mem := memory.New()
	if cfg.Stores.Icons == nil {
		cfg.Stores.Icons = mem
	}
	if cfg.Stores.Credits == nil {
		cfg.Stores.Credits = mem
	}
	if cfg.Stores.Subscriptions == nil {
		cfg.Stores.Subscriptions = mem
	}

	subCache := cfg.Cache
	if subCache == nil {
		ttl := cfg.Limits.SubscriptionTTL
		if ttl <= 0 {
			ttl = subscription.DefaultTTL
		}
		subCache = gocache.New(ttl, 2*ttl)
	}

	checker, err := subscription.NewChecker(cfg.Stores.Subscriptions, subCache, catalog, cfg.Limits.SubscriptionTTL, nil, log.WithField("component", "subscription"))
	if err != nil {
		return nil, fmt.Errorf("subscription checker: %w", err)
	}
	creditSvc, err := credits.New(cfg.Stores.Credits, checker, nil, log.WithField("component", "credits"))
	if err != nil {
		return nil, fmt.Errorf("credits service: %w", err)
	}
	librarySvc, err := library.New(cfg.Stores.Icons, catalog, log.WithField("component", "library"))
	if err != nil {
		return nil, fmt.Errorf("library service: %w", err)
	}
	generator, err := generation.New(cfg.Provider, log.WithField("component", "generation"))
	if err != nil {
		return nil, fmt.Errorf("generation service: %w", err)
	}

	handler := httpapi.New(httpapi.Config{
		Library:      librarySvc,
		Credits:      creditSvc,
		Subscription: checker,
		Generator:    generator,
		Catalog:      catalog,
		Limits:       cfg.Limits,
		Logger:       log.WithField("component", "httpapi"),
	})

	return &Application{
		manager:      system.NewManager(),
		log:          log,
		Library:      librarySvc,
		Credits:      creditSvc,
		Subscription: checker,
		Generator:    generator,
		Handler:      handler,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before
// Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
