package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/foodcourt/internal/domain/discount"
)

const (
	getDiscountByCodeSQL = `SELECT id, code, description, discount_type, value, min_order_value,
		expires_at, max_uses, used_count, active
		FROM discount_codes WHERE code = $1`

	incrementDiscountUsageSQL = `UPDATE discount_codes SET used_count = used_count + 1 WHERE code = $1`

	upsertDiscountSQL = `INSERT INTO discount_codes
		(id, code, description, discount_type, value, min_order_value, expires_at, max_uses, used_count, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (code) DO UPDATE SET
			description = EXCLUDED.description,
			discount_type = EXCLUDED.discount_type,
			value = EXCLUDED.value,
			min_order_value = EXCLUDED.min_order_value,
			expires_at = EXCLUDED.expires_at,
			max_uses = EXCLUDED.max_uses,
			active = EXCLUDED.active`
)

var _ discount.Repository = (*DiscountRepository)(nil)

// DiscountRepository implements discount.Repository backed by PostgreSQL.
type DiscountRepository struct {
	pool *pgxpool.Pool
}

// NewDiscountRepository returns a DiscountRepository that uses the given pool.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

// FindByCode returns the code regardless of its active flag; eligibility is
// decided by the validator.
func (r *DiscountRepository) FindByCode(ctx context.Context, code string) (*discount.Code, error) {
	rows, err := r.pool.Query(ctx, getDiscountByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding discount code %q: %w", code, err)
	}

	dc, err := pgx.CollectExactlyOneRow(rows, scanDiscount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, discount.ErrNotFound
		}
		return nil, fmt.Errorf("finding discount code %q: %w", code, err)
	}
	return &dc, nil
}

// IncrementUsage adds one to the used count of code.
func (r *DiscountRepository) IncrementUsage(ctx context.Context, code string) error {
	return incrementUsage(ctx, r.pool, code)
}

// Upsert inserts codes in one batch, updating existing codes in place. Used
// counts of existing codes are preserved.
func (r *DiscountRepository) Upsert(ctx context.Context, codes []discount.Code) error {
	batch := &pgx.Batch{}
	for _, dc := range codes {
		batch.Queue(upsertDiscountSQL,
			dc.ID, dc.Code, dc.Description, string(dc.Type), dc.Value, dc.MinOrderValue,
			dc.ExpiresAt, dc.MaxUses, dc.UsedCount, dc.Active,
		)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upserting %d discount codes: %w", len(codes), err)
	}
	return nil
}

func incrementUsage(ctx context.Context, q querier, code string) error {
	tag, err := q.Exec(ctx, incrementDiscountUsageSQL, code)
	if err != nil {
		return fmt.Errorf("incrementing usage of %q: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return discount.ErrNotFound
	}
	return nil
}

func scanDiscount(row pgx.CollectableRow) (discount.Code, error) {
	var (
		dc  discount.Code
		typ string
	)
	err := row.Scan(
		&dc.ID, &dc.Code, &dc.Description, &typ, &dc.Value, &dc.MinOrderValue,
		&dc.ExpiresAt, &dc.MaxUses, &dc.UsedCount, &dc.Active,
	)
	dc.Type = discount.Type(typ)
	return dc, err
}
