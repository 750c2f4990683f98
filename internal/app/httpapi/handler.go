// Package httpapi exposes the REST and SSE surface of the service.
package httpapi

import (
	"net/http"
	"sort"

	"github.com/gorilla/mux"

	"github.com/logoforge/logoforge/internal/app/services/credits"
	"github.com/logoforge/logoforge/internal/app/services/generation"
	"github.com/logoforge/logoforge/internal/app/services/library"
	"github.com/logoforge/logoforge/internal/app/services/subscription"
	"github.com/logoforge/logoforge/internal/config"
	"github.com/logoforge/logoforge/internal/httputil"
	"github.com/logoforge/logoforge/pkg/logger"
)

// Handler carries the service dependencies for all API routes.
type Handler struct {
	library   *library.Service
	credits   *credits.Service
	subs      *subscription.Checker
	generator *generation.Service
	catalog   *config.Catalog
	limits    config.LimitsConfig
	log       *logger.Logger
}

// Config bundles the Handler dependencies.
type Config struct {
	Library      *library.Service
	Credits      *credits.Service
	Subscription *subscription.Checker
	Generator    *generation.Service
	Catalog      *config.Catalog
	Limits       config.LimitsConfig
	Logger       *logger.Logger
}

// New creates the Handler.
func New(cfg Config) *Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = config.DefaultCatalog()
	}
	return &Handler{
		library:   cfg.Library,
		credits:   cfg.Credits,
		subs:      cfg.Subscription,
		generator: cfg.Generator,
		catalog:   catalog,
		limits:    cfg.Limits,
		log:       log,
	}
}

// Register mounts the API routes on the router. Authentication and rate
// limiting wrap the router one level up.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/api/icons/generate", h.handleGenerate).Methods(http.MethodPost)
	r.HandleFunc("/api/icons/generate/stream", h.handleGenerateStream).Methods(http.MethodPost)

	r.HandleFunc("/api/icons", h.handleListIcons).Methods(http.MethodGet)
	r.HandleFunc("/api/icons", h.handleSaveIcon).Methods(http.MethodPost)
	r.HandleFunc("/api/icons/{id}", h.handleGetIcon).Methods(http.MethodGet)
	r.HandleFunc("/api/icons/{id}", h.handleUpdateIcon).Methods(http.MethodPatch)
	r.HandleFunc("/api/icons/{id}", h.handleDeleteIcon).Methods(http.MethodDelete)

	r.HandleFunc("/api/credits", h.handleGetCredits).Methods(http.MethodGet)
	r.HandleFunc("/api/credits/consume", h.handleConsumeCredits).Methods(http.MethodPost)
	r.HandleFunc("/api/credits/ledger", h.handleCreditLedger).Methods(http.MethodGet)

	r.HandleFunc("/api/subscription", h.handleGetSubscription).Methods(http.MethodGet)
	r.HandleFunc("/api/styles", h.handleListStyles).Methods(http.MethodGet)
}

// HealthHandler answers liveness probes.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

type styleEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// handleListStyles serves the catalog as a slice sorted by id, so the
// response order is stable across restarts.
func (h *Handler) handleListStyles(w http.ResponseWriter, r *http.Request) {
	ids := make([]string, 0, len(h.catalog.Styles))
	for id := range h.catalog.Styles {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	styles := make([]styleEntry, 0, len(ids))
	for _, id := range ids {
		s := h.catalog.Styles[id]
		styles = append(styles, styleEntry{ID: id, Name: s.Name, Description: s.Description})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"styles": styles})
}
