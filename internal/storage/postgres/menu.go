package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/foodcourt/internal/domain/menu"
)

const menuItemColumns = `i.id, i.name, i.description, i.price, i.category, i.image_url, i.available,
	i.created_at, i.updated_at,
	COALESCE((
		SELECT jsonb_agg(jsonb_build_object(
			'id', o.id, 'name', o.name, 'choices', o.choices,
			'required', o.required, 'max_choices', o.max_choices
		) ORDER BY o.position)
		FROM menu_options o WHERE o.menu_item_id = i.id
	), '[]'::jsonb)`

const (
	listAvailableItemsSQL = `SELECT ` + menuItemColumns + `
		FROM menu_items i
		WHERE i.available AND ($1 = '' OR i.category = $1)
		ORDER BY i.category, i.name`

	listCategoriesSQL = `SELECT DISTINCT category FROM menu_items WHERE available ORDER BY category`

	searchItemsSQL = `SELECT ` + menuItemColumns + `
		FROM menu_items i
		WHERE i.available
			AND (i.name ILIKE $1 OR i.description ILIKE $1 OR i.category ILIKE $1)
		ORDER BY i.category, i.name`

	getItemByIDSQL = `SELECT ` + menuItemColumns + ` FROM menu_items i WHERE i.id = $1`

	getAvailableItemsByIDsSQL = `SELECT ` + menuItemColumns + `
		FROM menu_items i WHERE i.available AND i.id = ANY($1)`

	insertItemSQL = `INSERT INTO menu_items
		(id, name, description, price, category, image_url, available, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	updateItemSQL = `UPDATE menu_items
		SET name = $2, description = $3, price = $4, category = $5, image_url = $6,
			available = $7, updated_at = $8
		WHERE id = $1`

	setItemAvailableSQL = `UPDATE menu_items SET available = $2, updated_at = now() WHERE id = $1`

	insertOptionSQL = `INSERT INTO menu_options
		(id, menu_item_id, position, name, choices, required, max_choices)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	deleteOptionsSQL = `DELETE FROM menu_options WHERE menu_item_id = $1`
)

var _ menu.Repository = (*MenuRepository)(nil)

// MenuRepository implements menu.Repository backed by PostgreSQL. Options are
// rows of menu_options aggregated into each item by the read queries.
type MenuRepository struct {
	pool *pgxpool.Pool
}

// NewMenuRepository returns a MenuRepository that uses the given pool.
func NewMenuRepository(pool *pgxpool.Pool) *MenuRepository {
	return &MenuRepository{pool: pool}
}

// ListAvailable returns available items ordered by category and name.
func (r *MenuRepository) ListAvailable(ctx context.Context, category string) ([]menu.Item, error) {
	rows, err := r.pool.Query(ctx, listAvailableItemsSQL, category)
	if err != nil {
		return nil, fmt.Errorf("listing menu items: %w", err)
	}
	return pgx.CollectRows(rows, scanItem)
}

// Categories returns the distinct categories of available items.
func (r *MenuRepository) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, listCategoriesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// Search matches query case-insensitively against name, description and
// category of available items.
func (r *MenuRepository) Search(ctx context.Context, query string) ([]menu.Item, error) {
	rows, err := r.pool.Query(ctx, searchItemsSQL, containsPattern(query))
	if err != nil {
		return nil, fmt.Errorf("searching menu items: %w", err)
	}
	return pgx.CollectRows(rows, scanItem)
}

// GetByID returns an item whether or not it is available.
func (r *MenuRepository) GetByID(ctx context.Context, id string) (*menu.Item, error) {
	rows, err := r.pool.Query(ctx, getItemByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting menu item %q: %w", id, err)
	}

	item, err := pgx.CollectExactlyOneRow(rows, scanItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, menu.ErrNotFound
		}
		return nil, fmt.Errorf("getting menu item %q: %w", id, err)
	}
	return &item, nil
}

// GetAvailableByIDs returns the available items among ids with their options
// in a single query.
func (r *MenuRepository) GetAvailableByIDs(ctx context.Context, ids []string) ([]menu.Item, error) {
	rows, err := r.pool.Query(ctx, getAvailableItemsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting menu items by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanItem)
}

// Create inserts an item and its options in one transaction.
func (r *MenuRepository) Create(ctx context.Context, item *menu.Item) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertItemSQL,
			item.ID, item.Name, item.Description, item.Price, item.Category,
			item.ImageURL, item.Available, item.CreatedAt, item.UpdatedAt,
		); err != nil {
			return fmt.Errorf("creating menu item %q: %w", item.ID, err)
		}
		return insertOptions(ctx, tx, item)
	})
}

// Update replaces the scalar fields and the options of an existing item.
func (r *MenuRepository) Update(ctx context.Context, item *menu.Item) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, updateItemSQL,
			item.ID, item.Name, item.Description, item.Price, item.Category,
			item.ImageURL, item.Available, item.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("updating menu item %q: %w", item.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return menu.ErrNotFound
		}
		if _, err := tx.Exec(ctx, deleteOptionsSQL, item.ID); err != nil {
			return fmt.Errorf("deleting options of %q: %w", item.ID, err)
		}
		return insertOptions(ctx, tx, item)
	})
}

// SetAvailable toggles availability. Items are never deleted.
func (r *MenuRepository) SetAvailable(ctx context.Context, id string, available bool) error {
	tag, err := r.pool.Exec(ctx, setItemAvailableSQL, id, available)
	if err != nil {
		return fmt.Errorf("setting availability of %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return menu.ErrNotFound
	}
	return nil
}

func insertOptions(ctx context.Context, q querier, item *menu.Item) error {
	for i, opt := range item.Options {
		if _, err := q.Exec(ctx, insertOptionSQL,
			opt.ID, item.ID, i, opt.Name, encodeChoices(opt.Choices), opt.Required, opt.MaxChoices,
		); err != nil {
			return fmt.Errorf("creating option %q of %q: %w", opt.Name, item.ID, err)
		}
	}
	return nil
}

func scanItem(row pgx.CollectableRow) (menu.Item, error) {
	var (
		item    menu.Item
		options []byte
	)
	if err := row.Scan(
		&item.ID, &item.Name, &item.Description, &item.Price, &item.Category,
		&item.ImageURL, &item.Available, &item.CreatedAt, &item.UpdatedAt, &options,
	); err != nil {
		return menu.Item{}, err
	}

	opts, err := decodeOptions(options)
	if err != nil {
		return menu.Item{}, fmt.Errorf("menu item %q: %w", item.ID, err)
	}
	item.Options = opts
	return item, nil
}
