// Package seed loads demo triggers, products and settings into the store.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/streamreact/companion/internal/domain"
	"github.com/streamreact/companion/internal/repository"
)

//go:embed fixtures.yaml
var defaultFixtures []byte

// Fixtures is the seed file layout.
type Fixtures struct {
	Triggers []TriggerFixture `yaml:"triggers"`
	Settings []SettingFixture `yaml:"settings"`
	Products []ProductFixture `yaml:"products"`
}

type TriggerFixture struct {
	ID       string `yaml:"id"`
	Keyword  string `yaml:"keyword"`
	VideoURL string `yaml:"videoUrl"`
	Category string `yaml:"category"`
	Priority int    `yaml:"priority"`
	Inactive bool   `yaml:"inactive"`
}

type SettingFixture struct {
	Key         string `yaml:"key"`
	Value       string `yaml:"value"`
	Description string `yaml:"description"`
}

type ProductFixture struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Price       string `yaml:"price"`
	Image       string `yaml:"image"`
	Category    string `yaml:"category"`
	Inactive    bool   `yaml:"inactive"`
}

// Result counts rows written by Apply. Rows that already exist are skipped.
type Result struct {
	Triggers int
	Settings int
	Products int
}

// Default returns the embedded fixtures.
func Default() (*Fixtures, error) {
	return Parse(defaultFixtures)
}

// LoadFile reads fixtures from path.
func LoadFile(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes and validates fixtures.
func Parse(data []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	for _, t := range f.Triggers {
		if t.ID == "" || t.Keyword == "" || t.VideoURL == "" || t.Category == "" {
			return nil, fmt.Errorf("trigger %q: id, keyword, videoUrl and category are required", t.ID)
		}
	}
	for _, p := range f.Products {
		if p.ID == "" || p.Name == "" {
			return nil, fmt.Errorf("product %q: id and name are required", p.ID)
		}
		if _, err := domain.ParseAmount(p.Price); err != nil {
			return nil, fmt.Errorf("product %s: invalid price %q", p.ID, p.Price)
		}
	}
	for _, s := range f.Settings {
		if s.Key == "" {
			return nil, fmt.Errorf("setting without key")
		}
	}
	return &f, nil
}

// Apply writes fixtures that are not yet present. It is safe to run twice.
func Apply(ctx context.Context, s store.Store, f *Fixtures) (Result, error) {
	var res Result

	for _, t := range f.Triggers {
		existing, err := s.GetTrigger(ctx, t.ID)
		if err != nil {
			return res, err
		}
		if existing != nil {
			continue
		}
		if err := s.CreateTrigger(ctx, &domain.Trigger{
			ID:       t.ID,
			Keyword:  t.Keyword,
			VideoURL: t.VideoURL,
			Category: t.Category,
			Priority: t.Priority,
			Active:   !t.Inactive,
		}); err != nil {
			return res, fmt.Errorf("trigger %s: %w", t.ID, err)
		}
		res.Triggers++
	}

	for _, st := range f.Settings {
		existing, err := s.GetSetting(ctx, st.Key)
		if err != nil {
			return res, err
		}
		if existing != nil {
			continue
		}
		if err := s.SetSetting(ctx, st.Key, st.Value, st.Description); err != nil {
			return res, fmt.Errorf("setting %s: %w", st.Key, err)
		}
		res.Settings++
	}

	for _, p := range f.Products {
		existing, err := s.GetProduct(ctx, p.ID)
		if err != nil {
			return res, err
		}
		if existing != nil {
			continue
		}
		if err := s.CreateProduct(ctx, &domain.Product{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Price:       decimal.RequireFromString(p.Price),
			Image:       p.Image,
			Category:    p.Category,
			Active:      !p.Inactive,
		}); err != nil {
			return res, fmt.Errorf("product %s: %w", p.ID, err)
		}
		res.Products++
	}

	return res, nil
}
