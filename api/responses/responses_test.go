package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/bluewud/storefront-backend/pkg/errors"
	"github.com/bluewud/storefront-backend/pkg/types"
)

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccess(w, map[string]string{"hello": "world"})

	if got := w.Code; got != http.StatusOK {
		t.Fatalf("expected status 200 but got %d", got)
	}

	var body types.SuccessEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode success envelope: %v", err)
	}
	if body.Data.(map[string]any)["hello"] != "world" {
		t.Fatalf("unexpected payload %v", body.Data)
	}
}

func TestWriteErrorMapsTypedError(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeValidation, "bad input").
		WithDetails(map[string]string{"field": "demo"})
	WriteError(context.Background(), nil, w, err)

	if got := w.Code; got != http.StatusBadRequest {
		t.Fatalf("expected status 400 but got %d", got)
	}

	var body types.ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	if body.Error.Code != string(pkgerrors.CodeValidation) {
		t.Fatalf("unexpected code %s", body.Error.Code)
	}
	if body.Error.Message != "bad input" {
		t.Fatalf("validation messages pass through, got %q", body.Error.Message)
	}
	if body.Error.Details == nil {
		t.Fatalf("expected details in public payload")
	}
}

func TestWriteErrorOutOfStockKeepsShortageDetails(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeOutOfStock, "insufficient stock for checkout").
		WithDetails(map[string]any{"shortages": []map[string]any{{"requested": 3, "available": 1}}})
	WriteError(context.Background(), nil, w, err)

	if got := w.Code; got != http.StatusConflict {
		t.Fatalf("expected status 409 but got %d", got)
	}

	var body types.ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	if body.Error.Code != string(pkgerrors.CodeOutOfStock) {
		t.Fatalf("unexpected code %s", body.Error.Code)
	}
	if body.Error.Details == nil {
		t.Fatalf("shortage details must reach the client")
	}
}

func TestWriteErrorDefaultsToInternalForUntrustedErrors(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, errors.New("boom"))

	if got := w.Code; got != http.StatusInternalServerError {
		t.Fatalf("expected status 500 but got %d", got)
	}

	var body types.ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	if body.Error.Code != string(pkgerrors.CodeInternal) {
		t.Fatalf("unexpected code %s", body.Error.Code)
	}
	if body.Error.Details != nil {
		t.Fatalf("details should be omitted for internal errors")
	}
}
