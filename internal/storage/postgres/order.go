package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/taxproof-coupons/internal/domain/order"
)

const createOrderSQL = `INSERT INTO orders (id, items, currency, subtotal, tax, discounts, total, coupon_codes)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING created_at`

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order and fills in its creation time. The order
// items are stored in a JSONB column.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	codes := o.CouponCodes
	if codes == nil {
		codes = []string{}
	}

	err := r.pool.QueryRow(ctx, createOrderSQL,
		o.ID, encodeItems(o.Items), o.Currency, o.Subtotal, o.Tax, o.Discounts, o.Total, codes,
	).Scan(&o.CreatedAt)
	if err != nil {
		return errors.Wrapf(err, "create order %q", o.ID)
	}

	return nil
}

func encodeItems(items []order.OrderItem) []byte {
	var e jx.Encoder
	e.ArrStart()
	for _, item := range items {
		e.ObjStart()
		e.FieldStart("product_id")
		e.Str(item.ProductID)
		e.FieldStart("quantity")
		e.Int(item.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()
	return e.Bytes()
}
