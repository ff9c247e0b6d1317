//go:build integration

package integration

import (
	"io"
	"net/http"
	"net/url"
	"regexp"
	"testing"
)

var tokenPattern = regexp.MustCompile(`name="_token" value="([^"]+)"`)

func couponForm(t *testing.T, code string) string {
	t.Helper()

	resp := doGetWithAuth(t, "/admin/coupons/"+code, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read form: %v", err)
	}
	return string(body)
}

func quoteGiftBox(t *testing.T, code string) quoteResponse {
	t.Helper()

	req := orderRequest{
		Items:       []orderItemRequest{{ProductID: "4", Quantity: 1}},
		CouponCodes: []string{code},
	}
	resp := doPostWithAuth(t, "/api/cart/quote", req, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	return decodeJSON[quoteResponse](t, resp)
}

func TestCouponOptions_NoAuth(t *testing.T) {
	resp := doGet(t, "/admin/coupons/NET10")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestCouponOptions_NotFound(t *testing.T) {
	resp := doGetWithAuth(t, "/admin/coupons/NONEXISTENT", testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestCouponOptions_ToggleApplyAfterTax(t *testing.T) {
	const code = "NET10"

	m := tokenPattern.FindStringSubmatch(couponForm(t, code))
	if len(m) != 2 {
		t.Fatal("form token not found")
	}
	token := m[1]

	// A forged token is ignored.
	resp := doPostForm(t, "/admin/coupons/"+code, url.Values{
		"_token":          {"forged"},
		"apply_after_tax": {"yes"},
	}, testAPIKey)
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("forged save: expected 303, got %d", resp.StatusCode)
	}
	assertMoney(t, "net coupon total", quoteGiftBox(t, code).Total, 107.1)

	resp = doPostForm(t, "/admin/coupons/"+code, url.Values{
		"_token":          {token},
		"apply_after_tax": {"yes"},
	}, testAPIKey)
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("save: expected 303, got %d", resp.StatusCode)
	}
	// 10 gross off 119.00.
	assertMoney(t, "gross coupon total", quoteGiftBox(t, code).Total, 109)

	resp = doPostForm(t, "/admin/coupons/"+code, url.Values{"_token": {token}}, testAPIKey)
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("reset: expected 303, got %d", resp.StatusCode)
	}
	assertMoney(t, "net coupon total", quoteGiftBox(t, code).Total, 107.1)
}
