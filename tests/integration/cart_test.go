//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func processCart(t *testing.T, req cartRequest, apiKey string) cartResponse {
	t.Helper()

	var resp *http.Response
	if apiKey == "" {
		resp = doPost(t, "/api/cart/process", req)
	} else {
		resp = doPostWithAuth(t, "/api/cart/process", req, apiKey)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := decodeJSON[errorResponse](t, resp)
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body.Message)
	}
	return decodeJSON[cartResponse](t, resp)
}

func hasDiscount(list []discountResponse, id string) bool {
	for _, d := range list {
		if d.ID == id {
			return true
		}
	}
	return false
}

func TestProcessCart_Courier(t *testing.T) {
	cart := processCart(t, cartRequest{
		Currency: "PLN",
		Items: []itemRequest{
			{ProductID: "waffle", Quantity: 2},  // 2x 26.00
			{ProductID: "baklava", Quantity: 1}, // 16.00
		},
		ShippingMethodID: "courier",
	}, "")

	if cart.CartTotal != "68.00" {
		t.Errorf("cart_total: got %s, want 68.00", cart.CartTotal)
	}
	if cart.ShippingPrice != "20.00" {
		t.Errorf("shipping_price: got %s, want 20.00", cart.ShippingPrice)
	}
	if cart.Summary != "88.00" {
		t.Errorf("summary: got %s, want 88.00", cart.Summary)
	}
	if len(cart.Sales) != 0 {
		t.Errorf("sales: got %v, want none", cart.Sales)
	}
}

func TestProcessCart_FreeCourier(t *testing.T) {
	cart := processCart(t, cartRequest{
		Currency:         "PLN",
		Items:            []itemRequest{{ProductID: "creme-brulee", Quantity: 6}}, // 168.00
		ShippingMethodID: "courier",
	}, "")

	if cart.ShippingPrice != "0.00" {
		t.Errorf("shipping_price: got %s, want 0.00", cart.ShippingPrice)
	}
	if cart.Summary != "168.00" {
		t.Errorf("summary: got %s, want 168.00", cart.Summary)
	}
	if !hasDiscount(cart.Sales, "free-courier") {
		t.Errorf("sales: free-courier not applied: %v", cart.Sales)
	}
}

func TestProcessCart_BuyGetOne(t *testing.T) {
	cart := processCart(t, cartRequest{
		Currency: "PLN",
		Items: []itemRequest{
			{ProductID: "waffle", Quantity: 1},  // 26.00
			{ProductID: "baklava", Quantity: 1}, // 16.00, free
		},
		Coupons: []string{"buygetone"},
	}, "")

	if cart.CartTotal != "26.00" {
		t.Errorf("cart_total: got %s, want 26.00", cart.CartTotal)
	}
	if len(cart.Coupons) != 1 || cart.Coupons[0].Amount != "16.00" {
		t.Errorf("coupons: got %v, want buy-get-one of 16.00", cart.Coupons)
	}
}

func TestProcessCart_UnknownCouponIgnored(t *testing.T) {
	cart := processCart(t, cartRequest{
		Currency: "PLN",
		Items:    []itemRequest{{ProductID: "waffle", Quantity: 1}},
		Coupons:  []string{"NOSUCHCODE"},
	}, "")

	if len(cart.Coupons) != 0 {
		t.Errorf("coupons: got %v, want none", cart.Coupons)
	}
	if cart.Summary != "26.00" {
		t.Errorf("summary: got %s, want 26.00", cart.Summary)
	}
}

func TestProcessCart_AnonymousHappyHours(t *testing.T) {
	cart := processCart(t, cartRequest{
		Currency: "PLN",
		Items:    []itemRequest{{ProductID: "waffle", Quantity: 1}},
		Coupons:  []string{"HAPPYHOURS"},
	}, "")

	// The per-user limit cannot be checked without a user.
	if len(cart.Coupons) != 0 {
		t.Errorf("coupons: got %v, want none", cart.Coupons)
	}
}

func TestProcessCart_SchemaOption(t *testing.T) {
	cart := processCart(t, cartRequest{
		Currency: "PLN",
		Items: []itemRequest{{
			ProductID: "macaron",
			Quantity:  1,
			Schemas:   map[string]string{"macaron-gift-box": "true"},
		}},
	}, "")

	// 32.00 + 6.00 gift box
	if cart.CartTotal != "38.00" {
		t.Errorf("cart_total: got %s, want 38.00", cart.CartTotal)
	}
}

func TestProcessCart_StaffCoupon(t *testing.T) {
	cart := processCart(t, cartRequest{
		Currency: "PLN",
		Items: []itemRequest{
			{ProductID: "macaron", Quantity: 1}, // excluded from the staff discount
			{ProductID: "waffle", Quantity: 1},  // 26.00 - 25%
		},
		Coupons: []string{"STAFF"},
	}, testAPIKey)

	if cart.CartTotal != "51.50" {
		t.Errorf("cart_total: got %s, want 51.50", cart.CartTotal)
	}
	if !hasDiscount(cart.Coupons, "staff") {
		t.Errorf("coupons: staff not applied: %v", cart.Coupons)
	}
}

func TestProcessCart_Errors(t *testing.T) {
	tests := []struct {
		name   string
		req    cartRequest
		status int
	}{
		{
			name:   "empty items",
			req:    cartRequest{Currency: "PLN", Items: []itemRequest{}},
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown currency",
			req:    cartRequest{Currency: "XYZ", Items: []itemRequest{{ProductID: "waffle", Quantity: 1}}},
			status: http.StatusBadRequest,
		},
		{
			name:   "zero quantity",
			req:    cartRequest{Currency: "PLN", Items: []itemRequest{{ProductID: "waffle", Quantity: 0}}},
			status: http.StatusBadRequest,
		},
		{
			name:   "required schema missing",
			req:    cartRequest{Currency: "PLN", Items: []itemRequest{{ProductID: "tiramisu", Quantity: 1}}},
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown product",
			req:    cartRequest{Currency: "PLN", Items: []itemRequest{{ProductID: "croissant", Quantity: 1}}},
			status: http.StatusUnprocessableEntity,
		},
		{
			name: "unknown shipping method",
			req: cartRequest{
				Currency:         "PLN",
				Items:            []itemRequest{{ProductID: "waffle", Quantity: 1}},
				ShippingMethodID: "drone",
			},
			status: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doPost(t, "/api/cart/process", tt.req)
			defer resp.Body.Close()

			if resp.StatusCode != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, resp.StatusCode)
			}
			body := decodeJSON[errorResponse](t, resp)
			if body.Code != tt.status {
				t.Errorf("code: got %d, want %d", body.Code, tt.status)
			}
		})
	}
}

func TestProcessCart_InvalidKey(t *testing.T) {
	req := cartRequest{Currency: "PLN", Items: []itemRequest{{ProductID: "waffle", Quantity: 1}}}
	resp := doPostWithAuth(t, "/api/cart/process", req, "wrong-key")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}
