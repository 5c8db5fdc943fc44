package validators

import (
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/bluewud/storefront-backend/pkg/errors"
)

type addItemBody struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

func TestDecodeJSONBodyValid(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/v1/cart/items",
		strings.NewReader(`{"product_id":"6f1f64a4-43a1-4df1-9d2e-5a6d4c3b2a19","quantity":2}`))

	var body addItemBody
	if err := DecodeJSONBody(req, &body); err != nil {
		t.Fatalf("DecodeJSONBody: %v", err)
	}
	if body.Quantity != 2 {
		t.Fatalf("expected quantity 2, got %d", body.Quantity)
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/v1/cart/items",
		strings.NewReader(`{"product_id":"6f1f64a4-43a1-4df1-9d2e-5a6d4c3b2a19","quantity":2,"surprise":true}`))

	var body addItemBody
	err := DecodeJSONBody(req, &body)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyReportsFieldErrors(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/v1/cart/items",
		strings.NewReader(`{"product_id":"not-a-uuid","quantity":0}`))

	var body addItemBody
	err := DecodeJSONBody(req, &body)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", typed.Details())
	}
	if details["product_id"] == "" {
		t.Fatalf("expected product_id error, got %v", details)
	}
	if details["quantity"] == "" {
		t.Fatalf("expected quantity error, got %v", details)
	}
}

func TestDecodeJSONBodyRejectsMalformedJSON(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/v1/cart/items", strings.NewReader(`{"quantity":`))

	var body addItemBody
	err := DecodeJSONBody(req, &body)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
