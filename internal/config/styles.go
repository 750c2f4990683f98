package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Style describes one entry of the logo style catalog.
type Style struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
}

// Plan describes a subscription tier and its monthly generation allowance.
type Plan struct {
	Name                string `yaml:"name" json:"name"`
	GenerationsPerMonth int    `yaml:"generations_per_month" json:"generationsPerMonth"`
}

// Catalog is the style and plan table served to clients and used for
// request validation.
type Catalog struct {
	Styles map[string]Style `yaml:"styles"`
	Plans  map[string]Plan  `yaml:"plans"`
}

// HasStyle reports whether id names a known style.
func (c *Catalog) HasStyle(id string) bool {
	_, ok := c.Styles[id]
	return ok
}

// PlanOrFree returns the named plan, falling back to the free tier.
func (c *Catalog) PlanOrFree(name string) Plan {
	if p, ok := c.Plans[name]; ok {
		return p
	}
	return c.Plans["free"]
}

// LoadCatalog loads the catalog from config/styles.yaml.
func LoadCatalog() (*Catalog, error) {
	return LoadCatalogFromPath(filepath.Join("config", "styles.yaml"))
}

// LoadCatalogFromPath loads the catalog from a specific path.
func LoadCatalogFromPath(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read style catalog: %w", err)
	}

	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to parse style catalog: %w", err)
	}
	if len(cat.Styles) == 0 {
		return nil, fmt.Errorf("style catalog defines no styles")
	}
	if _, ok := cat.Plans["free"]; !ok {
		return nil, fmt.Errorf("style catalog must define a free plan")
	}
	return &cat, nil
}

// LoadCatalogOrDefault loads the catalog or returns the compiled-in default
// when the file is missing.
func LoadCatalogOrDefault() *Catalog {
	cat, err := LoadCatalog()
	if err != nil {
		return DefaultCatalog()
	}
	return cat
}

// DefaultCatalog returns the built-in style and plan table.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Styles: map[string]Style{
			"minimalist": {Name: "Minimalist", Description: "Clean geometric marks with generous whitespace"},
			"vintage":    {Name: "Vintage", Description: "Retro badges, muted palettes, classic typography"},
			"modern":     {Name: "Modern", Description: "Bold gradients and contemporary shapes"},
			"playful":    {Name: "Playful", Description: "Rounded forms and friendly mascot energy"},
			"elegant":    {Name: "Elegant", Description: "Refined serif monograms and thin line work"},
			"tech":       {Name: "Tech", Description: "Angular, circuit-inspired futuristic marks"},
		},
		Plans: map[string]Plan{
			"free":    {Name: "Free", GenerationsPerMonth: 5},
			"starter": {Name: "Starter", GenerationsPerMonth: 50},
			"pro":     {Name: "Pro", GenerationsPerMonth: 250},
		},
	}
}
