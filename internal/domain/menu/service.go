package menu

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OptionInput describes an option supplied when creating a menu item.
type OptionInput struct {
	Name       string
	Choices    []Choice
	Required   bool
	MaxChoices *int
}

// CreateInput holds the fields of a new menu item.
type CreateInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Category    string
	ImageURL    string
	// Available defaults to true when nil.
	Available *bool
	Options   []OptionInput
}

// UpdateInput is a partial update; nil fields are left unchanged.
type UpdateInput struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Category    *string
	ImageURL    *string
	Available   *bool
}

// Service implements catalog browsing and management.
type Service struct {
	items Repository
	now   func() time.Time
}

// NewService creates a menu Service backed by the given Repository.
func NewService(items Repository) *Service {
	return &Service{items: items, now: time.Now}
}

// ListMenu returns available items, optionally restricted to one category,
// together with the categories present in the result.
func (s *Service) ListMenu(ctx context.Context, category string) (*Menu, error) {
	items, err := s.items.ListAvailable(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("list menu: %w", err)
	}

	categories := make([]string, 0)
	seen := make(map[string]struct{})
	for _, it := range items {
		if _, ok := seen[it.Category]; ok {
			continue
		}
		seen[it.Category] = struct{}{}
		categories = append(categories, it.Category)
	}

	return &Menu{Categories: categories, Items: items}, nil
}

// Categories returns the distinct categories of available items.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.items.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// GetItem returns a menu item by id regardless of availability.
func (s *Service) GetItem(ctx context.Context, id string) (*Item, error) {
	return s.items.GetByID(ctx, id)
}

// Search returns available items whose name, description or category
// contains the query. An empty query yields no results.
func (s *Service) Search(ctx context.Context, query string) ([]Item, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Item{}, nil
	}
	items, err := s.items.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search menu: %w", err)
	}
	return items, nil
}

// CreateItem validates and stores a new menu item.
func (s *Service) CreateItem(ctx context.Context, in CreateInput) (*Item, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	now := s.now()
	item := &Item{
		ID:          uuid.New().String(),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
		Category:    strings.TrimSpace(in.Category),
		ImageURL:    in.ImageURL,
		Available:   true,
		Options:     make([]Option, 0, len(in.Options)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.Available != nil {
		item.Available = *in.Available
	}
	for _, opt := range in.Options {
		item.Options = append(item.Options, Option{
			ID:         uuid.New().String(),
			Name:       opt.Name,
			Choices:    opt.Choices,
			Required:   opt.Required,
			MaxChoices: opt.MaxChoices,
		})
	}

	if err := s.items.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("create menu item: %w", err)
	}
	return item, nil
}

// UpdateItem applies a partial update to an existing item.
func (s *Service) UpdateItem(ctx context.Context, id string, in UpdateInput) (*Item, error) {
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		item.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		item.Description = *in.Description
	}
	if in.Price != nil {
		item.Price = *in.Price
	}
	if in.Category != nil {
		item.Category = strings.TrimSpace(*in.Category)
	}
	if in.ImageURL != nil {
		item.ImageURL = *in.ImageURL
	}
	if in.Available != nil {
		item.Available = *in.Available
	}
	if err := validateFields(item.Name, item.Category, item.Price); err != nil {
		return nil, err
	}
	item.UpdatedAt = s.now()

	if err := s.items.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("update menu item %q: %w", id, err)
	}
	return item, nil
}

// DeleteItem soft-deletes an item by marking it unavailable. Historical
// orders keep referencing the row.
func (s *Service) DeleteItem(ctx context.Context, id string) error {
	return s.items.SetAvailable(ctx, id, false)
}

func validateCreate(in CreateInput) error {
	if err := validateFields(in.Name, in.Category, in.Price); err != nil {
		return err
	}

	options := make(map[string]struct{}, len(in.Options))
	for _, opt := range in.Options {
		if strings.TrimSpace(opt.Name) == "" {
			return &ValidationError{Message: "option name is required"}
		}
		if _, dup := options[opt.Name]; dup {
			return &ValidationError{Message: fmt.Sprintf("duplicate option %q", opt.Name)}
		}
		options[opt.Name] = struct{}{}

		if opt.MaxChoices != nil && *opt.MaxChoices < 1 {
			return &ValidationError{Message: fmt.Sprintf("option %q: maxChoices must be at least 1", opt.Name)}
		}

		choices := make(map[string]struct{}, len(opt.Choices))
		for _, c := range opt.Choices {
			if strings.TrimSpace(c.Name) == "" {
				return &ValidationError{Message: fmt.Sprintf("option %q: choice name is required", opt.Name)}
			}
			if _, dup := choices[c.Name]; dup {
				return &ValidationError{Message: fmt.Sprintf("option %q: duplicate choice %q", opt.Name, c.Name)}
			}
			choices[c.Name] = struct{}{}
		}
	}
	return nil
}

func validateFields(name, category string, price decimal.Decimal) error {
	switch {
	case strings.TrimSpace(name) == "":
		return &ValidationError{Message: "name is required"}
	case strings.TrimSpace(category) == "":
		return &ValidationError{Message: "category is required"}
	case price.IsNegative():
		return &ValidationError{Message: "price must not be negative"}
	}
	return nil
}
