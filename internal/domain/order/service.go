package order

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/taxproof-coupons/internal/domain/cart"
	"github.com/xenking/taxproof-coupons/internal/domain/coupon"
	"github.com/xenking/taxproof-coupons/internal/domain/pricing"
	"github.com/xenking/taxproof-coupons/internal/domain/product"
)

// Sentinel errors for order validation.
var (
	ErrEmptyItems = errors.New("items required")
)

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// PlaceOrderRequest holds the input for quoting or placing an order.
type PlaceOrderRequest struct {
	Items       []OrderItem
	CouponCodes []string
}

// QuoteResult is a priced cart that has not been stored.
type QuoteResult struct {
	Quote    *pricing.Quote
	Products []product.Product
}

// PlaceOrderResult holds the output of a successfully placed order.
type PlaceOrderResult struct {
	Order    *Order
	Quote    *pricing.Quote
	Products []product.Product
}

// Service encapsulates cart pricing and order placement.
type Service struct {
	products product.Repository
	coupons  coupon.Validator
	orders   Repository
	pipeline *pricing.Pipeline
	tracer   trace.Tracer
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	products product.Repository,
	coupons coupon.Validator,
	orders Repository,
	pipeline *pricing.Pipeline,
	tracerProvider trace.TracerProvider,
) *Service {
	return &Service{
		products: products,
		coupons:  coupons,
		orders:   orders,
		pipeline: pipeline,
		tracer:   tracerProvider.Tracer("taxproof/order"),
	}
}

// Quote prices the requested cart with its coupons without storing anything.
func (s *Service) Quote(ctx context.Context, req PlaceOrderRequest) (_ *QuoteResult, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Quote")
	defer func() { endSpan(span, rerr) }()

	res, _, err := s.price(ctx, req)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// PlaceOrder prices the cart, persists the order and redeems its coupons.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (_ *PlaceOrderResult, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.PlaceOrder")
	defer func() { endSpan(span, rerr) }()

	res, couponCodes, err := s.price(ctx, req)
	if err != nil {
		return nil, err
	}
	q := res.Quote

	o := &Order{
		ID:          uuid.New().String(),
		Items:       req.Items,
		Currency:    q.Currency,
		Subtotal:    q.Subtotal,
		Tax:         q.SubtotalTax.Sub(q.DiscountTax),
		Discounts:   q.Discount,
		Total:       q.Total,
		CouponCodes: couponCodes,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	span.SetAttributes(attribute.String("order.id", o.ID))

	// The order is stored at this point; a failed usage counter must not
	// fail the checkout.
	for _, code := range couponCodes {
		if err := s.coupons.Redeem(ctx, code); err != nil {
			zctx.From(ctx).Warn("Redeem coupon",
				zap.String("order_id", o.ID),
				zap.String("code", code),
				zap.Error(err),
			)
		}
	}

	return &PlaceOrderResult{
		Order:    o,
		Quote:    q,
		Products: res.Products,
	}, nil
}

// price validates items, fetches products in a single batch, resolves the
// coupons and runs the pricing pipeline. It returns the distinct coupon codes
// in request order.
func (s *Service) price(ctx context.Context, req PlaceOrderRequest) (*QuoteResult, []string, error) {
	if len(req.Items) == 0 {
		return nil, nil, ErrEmptyItems
	}

	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
	}

	ids := lo.Uniq(lo.Map(req.Items, func(item OrderItem, _ int) string {
		return item.ProductID
	}))

	// Batch fetch all products in a single query.
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, nil, errors.Wrap(err, "get products")
	}
	byID := lo.KeyBy(fetched, func(p product.Product) string {
		return p.ID
	})

	products := make([]product.Product, 0, len(req.Items))
	c := cart.Cart{Items: make([]cart.LineItem, 0, len(req.Items))}
	for _, item := range req.Items {
		p, ok := byID[item.ProductID]
		if !ok {
			return nil, nil, &ProductNotFoundError{ProductID: item.ProductID}
		}
		products = append(products, p)
		c.Items = append(c.Items, cart.LineItem{
			ProductID: p.ID,
			UnitPrice: p.Price,
			Quantity:  item.Quantity,
			TaxClass:  p.TaxClass,
		})
	}

	couponCodes := normalizeCodes(req.CouponCodes)
	rules := make([]*coupon.Rule, 0, len(couponCodes))
	itemCount := c.ItemCount()
	for _, code := range couponCodes {
		rule, err := s.coupons.Lookup(ctx, code, itemCount)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "validate coupon %s", code)
		}
		rules = append(rules, rule)
	}

	q, err := s.pipeline.Quote(ctx, c, rules)
	if err != nil {
		return nil, nil, errors.Wrap(err, "price cart")
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int("cart.lines", len(c.Items)),
		attribute.Int("cart.coupons", len(rules)),
		attribute.String("cart.total", q.Total.String()),
	)

	return &QuoteResult{Quote: q, Products: products}, couponCodes, nil
}

// normalizeCodes trims codes, drops empty ones and removes case-insensitive
// duplicates, keeping the first spelling.
func normalizeCodes(raw []string) []string {
	trimmed := lo.Compact(lo.Map(raw, func(code string, _ int) string {
		return strings.TrimSpace(code)
	}))
	return lo.UniqBy(trimmed, strings.ToUpper)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
