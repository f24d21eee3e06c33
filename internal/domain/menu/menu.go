package menu

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a menu item does not exist.
var ErrNotFound = fmt.Errorf("menu item not found")

// ValidationError reports a client-correctable problem with catalog input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Choice is a single selectable value of an Option with its price adjustment.
type Choice struct {
	Name       string
	PriceDelta decimal.Decimal
}

// Option is a named customization of a menu item, e.g. "Size".
type Option struct {
	ID         string
	Name       string
	Choices    []Choice
	Required   bool
	MaxChoices *int
}

// Choice returns the choice with the given name. Names match exactly.
func (o Option) Choice(name string) (Choice, bool) {
	for _, c := range o.Choices {
		if c.Name == name {
			return c, true
		}
	}
	return Choice{}, false
}

// Item is a dish or drink on the menu.
type Item struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Category    string
	ImageURL    string
	Available   bool
	Options     []Option
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Menu is the browsable catalog: available items and their categories.
type Menu struct {
	Categories []string
	Items      []Item
}

// Repository provides access to the menu catalog.
type Repository interface {
	// ListAvailable returns available items ordered by category and name.
	// An empty category matches all categories.
	ListAvailable(ctx context.Context, category string) ([]Item, error)
	Categories(ctx context.Context) ([]string, error)
	Search(ctx context.Context, query string) ([]Item, error)
	GetByID(ctx context.Context, id string) (*Item, error)
	// GetAvailableByIDs fetches available items with their options in one
	// lookup. Missing or unavailable ids are absent from the result.
	GetAvailableByIDs(ctx context.Context, ids []string) ([]Item, error)
	Create(ctx context.Context, item *Item) error
	Update(ctx context.Context, item *Item) error
	SetAvailable(ctx context.Context, id string, available bool) error
}
