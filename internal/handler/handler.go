// Package handler exposes the cart, order and coupon administration
// operations over HTTP.
package handler

import (
	"net/http"

	"github.com/xenking/taxproof-coupons/internal/domain/auth"
	"github.com/xenking/taxproof-coupons/internal/domain/coupon"
	"github.com/xenking/taxproof-coupons/internal/domain/order"
	"github.com/xenking/taxproof-coupons/internal/domain/product"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored in the database.
	ImageBaseURL string
}

// Handler serves the JSON API and the coupon options form.
type Handler struct {
	products     product.Repository
	orderService *order.Service
	options      *coupon.OptionsService
	imageBaseURL string
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg HandlerConfig,
	products product.Repository,
	orderService *order.Service,
	options *coupon.OptionsService,
) *Handler {
	return &Handler{
		products:     products,
		orderService: orderService,
		options:      options,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Register mounts every route on mux. Order and admin routes go through
// sec.
func (h *Handler) Register(mux *http.ServeMux, sec *SecurityHandler) {
	mux.HandleFunc("GET /api/product", h.ListProducts)
	mux.HandleFunc("GET /api/product/{productId}", h.GetProduct)

	mux.Handle("POST /api/cart/quote", sec.Require(auth.ScopeOrders)(http.HandlerFunc(h.QuoteCart)))
	mux.Handle("POST /api/order", sec.Require(auth.ScopeOrders)(http.HandlerFunc(h.PlaceOrder)))

	mux.Handle("GET /admin/coupons/{code}", sec.Require(auth.ScopeAdmin)(http.HandlerFunc(h.CouponOptionsForm)))
	mux.Handle("POST /admin/coupons/{code}", sec.Require(auth.ScopeAdmin)(http.HandlerFunc(h.SaveCouponOptions)))
}
