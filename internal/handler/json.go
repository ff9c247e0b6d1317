package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/taxproof-coupons/internal/domain/money"
	"github.com/xenking/taxproof-coupons/internal/domain/order"
)

// msgBadRequest is returned for bodies that cannot be read or decoded.
const msgBadRequest = "invalid request body"

func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(e.Bytes())))
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// encodeMoney writes d as a JSON number with the currency's number of
// decimals, e.g. 42.02 or 455.
func encodeMoney(e *jx.Encoder, d decimal.Decimal, currency string) {
	e.Raw([]byte(d.StringFixed(money.Precision(currency))))
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	return body, nil
}

// decodeOrderRequest reads
//
//	{"items":[{"productId":"1","quantity":2}],"couponCodes":["A"],"couponCode":"B"}
//
// couponCode is the single-coupon form of the original order API and is
// appended to couponCodes.
func decodeOrderRequest(body []byte) (order.PlaceOrderRequest, error) {
	var req order.PlaceOrderRequest
	var single string

	d := jx.DecodeBytes(body)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "items":
			if d.Next() == jx.Null {
				return d.Null()
			}
			return d.Arr(func(d *jx.Decoder) error {
				item, err := decodeOrderItem(d)
				if err != nil {
					return err
				}
				req.Items = append(req.Items, item)
				return nil
			})
		case "couponCodes":
			if d.Next() == jx.Null {
				return d.Null()
			}
			return d.Arr(func(d *jx.Decoder) error {
				code, err := d.Str()
				if err != nil {
					return err
				}
				req.CouponCodes = append(req.CouponCodes, code)
				return nil
			})
		case "couponCode":
			if d.Next() == jx.Null {
				return d.Null()
			}
			s, err := d.Str()
			single = s
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return order.PlaceOrderRequest{}, errors.Wrap(err, "decode order request")
	}

	if single != "" {
		req.CouponCodes = append(req.CouponCodes, single)
	}
	return req, nil
}

func decodeOrderItem(d *jx.Decoder) (order.OrderItem, error) {
	var item order.OrderItem
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "productId":
			s, err := d.Str()
			item.ProductID = s
			return err
		case "quantity":
			n, err := d.Int()
			item.Quantity = n
			return err
		default:
			return d.Skip()
		}
	})
	return item, err
}
