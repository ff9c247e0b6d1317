package handler

import (
	"html/template"
	"net/http"
	"net/url"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/xenking/taxproof-coupons/internal/domain/auth"
	"github.com/xenking/taxproof-coupons/internal/domain/coupon"
	"github.com/xenking/taxproof-coupons/pkg/httpmiddleware"
)

// Form field names of the coupon options form.
const (
	formToken         = "_token"
	formApplyAfterTax = "apply_after_tax"
)

// couponOptionsTmpl is the general-settings fragment of the coupon edit
// screen.
var couponOptionsTmpl = template.Must(template.New("coupon-options").Parse(`<form method="post" action="{{.Action}}" class="coupon-options">
<input type="hidden" name="` + formToken + `" value="{{.Token}}">
<p class="form-field ` + formApplyAfterTax + `_field">
<label for="` + formApplyAfterTax + `">{{.Label}}</label>
<input type="checkbox" id="` + formApplyAfterTax + `" name="` + formApplyAfterTax + `" value="` + coupon.MetaYes + `"{{if .ApplyAfterTax}} checked{{end}}>
<span class="description">{{.Description}}</span>
</p>
<button type="submit">Save coupon</button>
</form>
`))

type couponOptionsView struct {
	*coupon.Options
	Action string
}

func couponPath(code string) string {
	return "/admin/coupons/" + url.PathEscape(code)
}

// CouponOptionsForm renders the apply-after-tax checkbox for a coupon
// together with a fresh request token bound to the caller's API key.
func (h *Handler) CouponOptionsForm(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	opts, err := h.options.Form(r.Context(), code, session(r))
	if err != nil {
		if errors.Is(err, coupon.ErrInvalidCoupon) {
			httpmiddleware.WriteError(w, http.StatusNotFound, "coupon not found")
			return
		}
		internalError(w, r, errors.Wrap(err, "load coupon options"))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := couponOptionsTmpl.Execute(w, couponOptionsView{
		Options: opts,
		Action:  couponPath(opts.Code),
	}); err != nil {
		zctx.From(r.Context()).Error("Render coupon options", zap.Error(err))
	}
}

// SaveCouponOptions stores the submitted flag and redirects back to the
// form. An unchecked box saves "no". A missing or stale token is not an
// error; nothing is written and the redirect still happens.
func (h *Handler) SaveCouponOptions(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		httpmiddleware.WriteError(w, http.StatusBadRequest, msgBadRequest)
		return
	}

	code := r.PathValue("code")
	saved, err := h.options.SaveApplyAfterTax(r.Context(), coupon.SaveOptionsRequest{
		Code:          code,
		Token:         r.PostFormValue(formToken),
		Session:       session(r),
		ApplyAfterTax: r.PostFormValue(formApplyAfterTax) == coupon.MetaYes,
	})
	if err != nil {
		if errors.Is(err, coupon.ErrInvalidCoupon) {
			httpmiddleware.WriteError(w, http.StatusNotFound, "coupon not found")
			return
		}
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) {
			httpmiddleware.WriteError(w, http.StatusUnprocessableEntity, "invalid coupon options")
			return
		}
		internalError(w, r, errors.Wrap(err, "save coupon options"))
		return
	}
	if saved {
		zctx.From(r.Context()).Info("Coupon options saved", zap.String("code", code))
	}

	http.Redirect(w, r, couponPath(code), http.StatusSeeOther)
}

// session identifies the admin for request tokens.
func session(r *http.Request) string {
	if info, ok := auth.FromContext(r.Context()); ok {
		return info.ID
	}
	return ""
}
