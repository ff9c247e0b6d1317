package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/taxproof-coupons/internal/domain/coupon"
	"github.com/xenking/taxproof-coupons/internal/domain/order"
	"github.com/xenking/taxproof-coupons/internal/domain/pricing"
	"github.com/xenking/taxproof-coupons/pkg/httpmiddleware"
)

// QuoteCart prices a cart with its coupons without placing an order.
func (h *Handler) QuoteCart(w http.ResponseWriter, r *http.Request) {
	req, ok := h.orderRequest(w, r)
	if !ok {
		return
	}

	result, err := h.orderService.Quote(r.Context(), req)
	if err != nil {
		h.orderError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeQuote(&e, result.Quote)
	writeJSON(w, http.StatusOK, &e)
}

// PlaceOrder prices the cart, stores the order and returns it.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	req, ok := h.orderRequest(w, r)
	if !ok {
		return
	}

	result, err := h.orderService.PlaceOrder(r.Context(), req)
	if err != nil {
		h.orderError(w, r, err)
		return
	}

	o := result.Order
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("items")
	e.ArrStart()
	for _, item := range o.Items {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(item.ProductID)
		e.FieldStart("quantity")
		e.Int(item.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("products")
	e.ArrStart()
	for _, p := range result.Products {
		h.encodeProduct(&e, p)
	}
	e.ArrEnd()
	e.FieldStart("currency")
	e.Str(o.Currency)
	e.FieldStart("subtotal")
	encodeMoney(&e, o.Subtotal, o.Currency)
	e.FieldStart("tax")
	encodeMoney(&e, o.Tax, o.Currency)
	e.FieldStart("discounts")
	encodeMoney(&e, o.Discounts, o.Currency)
	e.FieldStart("total")
	encodeMoney(&e, o.Total, o.Currency)
	e.FieldStart("couponCodes")
	e.ArrStart()
	for _, code := range o.CouponCodes {
		e.Str(code)
	}
	e.ArrEnd()
	e.FieldStart("quote")
	encodeQuote(&e, result.Quote)
	e.ObjEnd()

	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) orderRequest(w http.ResponseWriter, r *http.Request) (order.PlaceOrderRequest, bool) {
	body, err := readBody(w, r)
	if err != nil {
		httpmiddleware.WriteError(w, http.StatusBadRequest, msgBadRequest)
		return order.PlaceOrderRequest{}, false
	}
	req, err := decodeOrderRequest(body)
	if err != nil {
		httpmiddleware.WriteError(w, http.StatusBadRequest, msgBadRequest)
		return order.PlaceOrderRequest{}, false
	}
	return req, true
}

// encodeQuote writes the priced cart. Discount amounts are net; gross is
// what comes off the order total.
func encodeQuote(e *jx.Encoder, q *pricing.Quote) {
	cur := q.Currency
	e.ObjStart()
	e.FieldStart("currency")
	e.Str(cur)
	e.FieldStart("subtotal")
	encodeMoney(e, q.Subtotal, cur)
	e.FieldStart("subtotalTax")
	encodeMoney(e, q.SubtotalTax, cur)
	e.FieldStart("discount")
	encodeMoney(e, q.Discount, cur)
	e.FieldStart("discountTax")
	encodeMoney(e, q.DiscountTax, cur)
	e.FieldStart("total")
	encodeMoney(e, q.Total, cur)
	e.FieldStart("coupons")
	e.ArrStart()
	for _, c := range q.Coupons {
		e.ObjStart()
		e.FieldStart("code")
		e.Str(c.Code)
		e.FieldStart("discountType")
		e.Str(string(c.DiscountType))
		e.FieldStart("applyAfterTax")
		e.Bool(c.ApplyAfterTax)
		e.FieldStart("net")
		encodeMoney(e, c.Net, cur)
		e.FieldStart("tax")
		encodeMoney(e, c.Tax, cur)
		e.FieldStart("gross")
		encodeMoney(e, c.Gross(), cur)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}

// orderError maps domain errors to responses: 400 for a request without
// items, 422 for anything wrong with its content, 500 otherwise.
func (h *Handler) orderError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, order.ErrEmptyItems) {
		httpmiddleware.WriteError(w, http.StatusBadRequest, order.ErrEmptyItems.Error())
		return
	}

	var iqErr *order.InvalidQuantityError
	if errors.As(err, &iqErr) {
		httpmiddleware.WriteError(w, http.StatusUnprocessableEntity, iqErr.Error())
		return
	}

	var pnfErr *order.ProductNotFoundError
	if errors.As(err, &pnfErr) {
		httpmiddleware.WriteError(w, http.StatusUnprocessableEntity, pnfErr.Error())
		return
	}

	for _, couponErr := range []error{
		coupon.ErrInvalidCoupon,
		coupon.ErrCouponExpired,
		coupon.ErrCouponUsageLimitReached,
	} {
		if errors.Is(err, couponErr) {
			httpmiddleware.WriteError(w, http.StatusUnprocessableEntity, couponErr.Error())
			return
		}
	}

	internalError(w, r, err)
}
