// Package library implements CRUD over a user's saved icons.
package library

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/logoforge/logoforge/internal/app/domain/icon"
	"github.com/logoforge/logoforge/internal/app/storage"
	"github.com/logoforge/logoforge/internal/config"
	"github.com/logoforge/logoforge/internal/errors"
	"github.com/logoforge/logoforge/pkg/logger"
)

const (
	maxNameLength = 120
	maxTags       = 20
	maxListLimit  = 100
)

// SaveInput is a request to persist one chosen generated image.
type SaveInput struct {
	Name     string   `json:"name"`
	ImageURL string   `json:"imageUrl"`
	Style    string   `json:"style"`
	Prompt   string   `json:"prompt"`
	Tags     []string `json:"tags"`
}

// UpdateInput is a partial edit; nil fields stay untouched.
type UpdateInput struct {
	Name     *string   `json:"name"`
	Tags     *[]string `json:"tags"`
	Favorite *bool     `json:"favorite"`
}

// Service is the library store facade. Every operation is scoped to the
// session user; rows owned by someone else read as not found.
type Service struct {
	store   storage.IconStore
	catalog *config.Catalog
	log     *logger.Logger
}

// New creates the library service.
func New(store storage.IconStore, catalog *config.Catalog, log *logger.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("library: store is required")
	}
	if catalog == nil {
		catalog = config.DefaultCatalog()
	}
	if log == nil {
		log = logger.NewDefault("library")
	}
	return &Service{store: store, catalog: catalog, log: log}, nil
}

// Save persists one image into the user's library.
func (s *Service) Save(ctx context.Context, userID string, in SaveInput) (icon.Icon, error) {
	in.Name = strings.TrimSpace(in.Name)
	switch {
	case in.Name == "":
		return icon.Icon{}, errors.BadRequest("name is required")
	case len(in.Name) > maxNameLength:
		return icon.Icon{}, errors.BadRequest(fmt.Sprintf("name must be at most %d characters", maxNameLength))
	case in.ImageURL == "":
		return icon.Icon{}, errors.BadRequest("imageUrl is required")
	case in.Style != "" && !s.catalog.HasStyle(in.Style):
		return icon.Icon{}, errors.BadRequest("unknown style")
	case len(in.Tags) > maxTags:
		return icon.Icon{}, errors.BadRequest(fmt.Sprintf("at most %d tags allowed", maxTags))
	}

	ic, err := s.store.CreateIcon(ctx, icon.Icon{
		UserID:   userID,
		Name:     in.Name,
		ImageURL: in.ImageURL,
		Style:    in.Style,
		Prompt:   in.Prompt,
		Tags:     normalizeTags(in.Tags),
	})
	if err != nil {
		return icon.Icon{}, errors.Internal("save icon", err)
	}
	return ic, nil
}

// List returns the user's icons narrowed by filter.
func (s *Service) List(ctx context.Context, userID string, filter icon.ListFilter) ([]icon.Icon, error) {
	if filter.Limit <= 0 || filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	switch filter.SortBy {
	case "", "created_at", "name":
	default:
		return nil, errors.BadRequest("sort must be created_at or name")
	}
	switch filter.Order {
	case "", "asc", "desc":
	default:
		return nil, errors.BadRequest("order must be asc or desc")
	}

	icons, err := s.store.ListIcons(ctx, userID, filter)
	if err != nil {
		return nil, errors.Internal("list icons", err)
	}
	if icons == nil {
		icons = []icon.Icon{}
	}
	return icons, nil
}

// Get returns one icon owned by the user.
func (s *Service) Get(ctx context.Context, userID, id string) (icon.Icon, error) {
	ic, err := s.store.GetIcon(ctx, userID, id)
	if stderrors.Is(err, storage.ErrNotFound) {
		return icon.Icon{}, errors.NotFound("icon not found")
	}
	if err != nil {
		return icon.Icon{}, errors.Internal("get icon", err)
	}
	return ic, nil
}

// Update applies a partial edit to one icon.
func (s *Service) Update(ctx context.Context, userID, id string, in UpdateInput) (icon.Icon, error) {
	ic, err := s.Get(ctx, userID, id)
	if err != nil {
		return icon.Icon{}, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return icon.Icon{}, errors.BadRequest("name must not be empty")
		}
		if len(name) > maxNameLength {
			return icon.Icon{}, errors.BadRequest(fmt.Sprintf("name must be at most %d characters", maxNameLength))
		}
		ic.Name = name
	}
	if in.Tags != nil {
		if len(*in.Tags) > maxTags {
			return icon.Icon{}, errors.BadRequest(fmt.Sprintf("at most %d tags allowed", maxTags))
		}
		ic.Tags = normalizeTags(*in.Tags)
	}
	if in.Favorite != nil {
		ic.Favorite = *in.Favorite
	}

	updated, err := s.store.UpdateIcon(ctx, ic)
	if stderrors.Is(err, storage.ErrNotFound) {
		return icon.Icon{}, errors.NotFound("icon not found")
	}
	if err != nil {
		return icon.Icon{}, errors.Internal("update icon", err)
	}
	return updated, nil
}

// Delete removes one icon owned by the user.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	err := s.store.DeleteIcon(ctx, userID, id)
	if stderrors.Is(err, storage.ErrNotFound) {
		return errors.NotFound("icon not found")
	}
	if err != nil {
		return errors.Internal("delete icon", err)
	}
	return nil
}

// normalizeTags trims, lowercases and dedupes tags, preserving order.
func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
