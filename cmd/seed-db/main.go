package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/foodcourt/internal/domain/auth"
	"github.com/xenking/foodcourt/internal/domain/discount"
	"github.com/xenking/foodcourt/internal/domain/menu"
	"github.com/xenking/foodcourt/internal/storage/postgres"
)

type choiceJSON struct {
	Name       string          `json:"name"`
	PriceDelta decimal.Decimal `json:"priceDelta"`
}

type optionJSON struct {
	Name       string       `json:"name"`
	Required   bool         `json:"required"`
	MaxChoices *int         `json:"maxChoices"`
	Choices    []choiceJSON `json:"choices"`
}

type menuItemJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	ImageURL    string          `json:"imageUrl"`
	Options     []optionJSON    `json:"options"`
}

func main() {
	var (
		databaseURL  string
		menuFile     string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&menuFile, "menu-file", "db/seed/menu.json", "path to menu JSON file")
	flag.StringVar(&apiKey, "api-key", "", "admin API key to seed (or FOODCOURT_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or FOODCOURT_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("FOODCOURT_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or FOODCOURT_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("FOODCOURT_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, menuFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, menuFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	items, err := loadMenu(menuFile)
	if err != nil {
		return errors.Wrap(err, "load menu")
	}
	if err := seedMenu(ctx, postgres.NewMenuRepository(pool), items); err != nil {
		return errors.Wrap(err, "seed menu")
	}

	if err := seedDiscounts(ctx, postgres.NewDiscountRepository(pool)); err != nil {
		return errors.Wrap(err, "seed discounts")
	}

	if err := seedAPIKey(ctx, postgres.NewAPIKeyRepository(pool), apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

// loadMenu reads menu items from a JSON file. Option ids are derived from the
// item id and option position so reseeding is idempotent.
func loadMenu(path string) ([]menu.Item, error) {
	slog.Info("reading menu file", slog.String("path", path))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read menu file")
	}

	var raw []menuItemJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "parse menu JSON")
	}

	now := time.Now()
	items := make([]menu.Item, 0, len(raw))
	for _, r := range raw {
		if r.ID == "" {
			return nil, errors.Errorf("menu item %q has no id", r.Name)
		}
		item := menu.Item{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			Price:       r.Price,
			Category:    r.Category,
			ImageURL:    r.ImageURL,
			Available:   true,
			Options:     make([]menu.Option, 0, len(r.Options)),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		for i, o := range r.Options {
			opt := menu.Option{
				ID:         fmt.Sprintf("%s-%d", r.ID, i+1),
				Name:       o.Name,
				Required:   o.Required,
				MaxChoices: o.MaxChoices,
				Choices:    make([]menu.Choice, 0, len(o.Choices)),
			}
			for _, c := range o.Choices {
				opt.Choices = append(opt.Choices, menu.Choice{Name: c.Name, PriceDelta: c.PriceDelta})
			}
			item.Options = append(item.Options, opt)
		}
		items = append(items, item)
	}
	return items, nil
}

func seedMenu(ctx context.Context, repo menu.Repository, items []menu.Item) error {
	slog.Info("upserting menu items", slog.Int("count", len(items)))

	for i := range items {
		item := &items[i]

		_, err := repo.GetByID(ctx, item.ID)
		switch {
		case errors.Is(err, menu.ErrNotFound):
			err = repo.Create(ctx, item)
		case err == nil:
			err = repo.Update(ctx, item)
		}
		if err != nil {
			return errors.Wrapf(err, "upsert menu item %s", item.ID)
		}

		slog.Info("upserted menu item", slog.String("id", item.ID), slog.String("name", item.Name))
	}

	return nil
}

// seedCodes returns the demo discount codes. Relative to now, SUMMER25 is
// expired and MAXEDOUT has no uses left.
func seedCodes(now time.Time) []discount.Code {
	dec := decimal.NewFromInt
	ptrDec := func(v int64) *decimal.Decimal {
		d := decimal.NewFromInt(v)
		return &d
	}
	ptrInt := func(v int) *int { return &v }
	expired := now.AddDate(0, -1, 0)

	return []discount.Code{
		{Code: "SAVE10", Description: "10% off your order", Type: discount.TypePercentage, Value: dec(10), MinOrderValue: ptrDec(20), Active: true},
		{Code: "FLAT5", Description: "$5 off your order", Type: discount.TypeFixed, Value: dec(5), MinOrderValue: ptrDec(15), Active: true},
		{Code: "WELCOME20", Description: "20% off for new customers", Type: discount.TypePercentage, Value: dec(20), MaxUses: ptrInt(100), Active: true},
		{Code: "SUMMER25", Description: "25% summer discount (expired)", Type: discount.TypePercentage, Value: dec(25), ExpiresAt: &expired, Active: true},
		{Code: "OLDCODE", Description: "Inactive promotional code", Type: discount.TypePercentage, Value: dec(15), Active: false},
		{Code: "MAXEDOUT", Description: "Code that reached max uses", Type: discount.TypeFixed, Value: dec(10), MaxUses: ptrInt(5), UsedCount: 5, Active: true},
		{Code: "BIGORDER", Description: "$15 off orders over $50", Type: discount.TypeFixed, Value: dec(15), MinOrderValue: ptrDec(50), Active: true},
	}
}

func seedDiscounts(ctx context.Context, repo *postgres.DiscountRepository) error {
	slog.Info("seeding discount codes")

	codes := seedCodes(time.Now())
	for i := range codes {
		codes[i].ID = uuid.NewString()
	}
	if err := repo.Upsert(ctx, codes); err != nil {
		return err
	}

	for _, c := range codes {
		slog.Info("upserted discount code", slog.String("code", c.Code), slog.String("description", c.Description))
	}
	return nil
}

func seedAPIKey(ctx context.Context, repo auth.Repository, apiKey, pepper string) error {
	slog.Info("seeding admin API key")

	info := &auth.APIKeyInfo{
		ID:      uuid.NewString(),
		KeyHash: auth.HashKey([]byte(pepper), apiKey),
		Name:    "Default admin key",
		Scopes:  []string{auth.ScopeAdmin},
	}
	if err := repo.Create(ctx, info); err != nil {
		return errors.Wrap(err, "upsert admin API key")
	}

	slog.Info("upserted API key", slog.String("name", info.Name))

	return nil
}
