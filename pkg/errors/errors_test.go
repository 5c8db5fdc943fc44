package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/lib/pq"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("connection refused")
	err := Wrap(CodeDependency, cause, "load cart")

	if !stdErrors.Is(err, cause) {
		t.Fatal("wrapped error should unwrap to its cause")
	}
	if err.Code() != CodeDependency {
		t.Fatalf("expected %s, got %s", CodeDependency, err.Code())
	}
	if err.Message() != "load cart" {
		t.Fatalf("unexpected message %q", err.Message())
	}
}

func TestAsFindsTypedErrorThroughWrapping(t *testing.T) {
	inner := New(CodeOutOfStock, "insufficient stock")
	outer := fmt.Errorf("checkout: %w", inner)

	typed := As(outer)
	if typed == nil {
		t.Fatal("expected typed error")
	}
	if typed.Code() != CodeOutOfStock {
		t.Fatalf("expected %s, got %s", CodeOutOfStock, typed.Code())
	}
}

func TestAsReturnsNilForPlainErrors(t *testing.T) {
	if typed := As(stdErrors.New("boom")); typed != nil {
		t.Fatalf("expected nil, got %v", typed)
	}
	if typed := As(nil); typed != nil {
		t.Fatalf("expected nil for nil error, got %v", typed)
	}
}

func TestWithDetails(t *testing.T) {
	err := New(CodeValidation, "bad input").WithDetails(map[string]string{"field": "quantity"})
	details, ok := err.Details().(map[string]string)
	if !ok {
		t.Fatalf("unexpected details type %T", err.Details())
	}
	if details["field"] != "quantity" {
		t.Fatalf("unexpected details %v", details)
	}
}

func TestMetadataForUnknownCodeFallsBackToInternal(t *testing.T) {
	meta := MetadataFor(Code("NO_SUCH_CODE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", meta.HTTPStatus)
	}
}

func TestMetadataStatuses(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:    http.StatusBadRequest,
		CodeUnauthorized:  http.StatusUnauthorized,
		CodeNotFound:      http.StatusNotFound,
		CodeOutOfStock:    http.StatusConflict,
		CodeStateConflict: http.StatusUnprocessableEntity,
		CodeIdempotency:   http.StatusConflict,
		CodeDependency:    http.StatusServiceUnavailable,
	}
	for code, status := range cases {
		if got := MetadataFor(code).HTTPStatus; got != status {
			t.Fatalf("%s: expected %d, got %d", code, status, got)
		}
	}
}

func TestDumpWalksChain(t *testing.T) {
	err := Wrap(CodeDependency, stdErrors.New("root cause"), "outer")
	dump := Dump(err)
	if dump.TopMessage == "" {
		t.Fatal("expected top message")
	}
	if len(dump.Chain) == 0 {
		t.Fatal("expected non-empty chain")
	}
	if dump.PG != nil {
		t.Fatal("no driver error in the chain, PG must be nil")
	}

	fields := dump.LogFields()
	if fields["error"] != dump.TopMessage {
		t.Fatalf("unexpected error field %v", fields["error"])
	}
	if _, ok := fields["pg_code"]; ok {
		t.Fatal("pg fields must be omitted without a driver error")
	}
}

func TestDumpLiftsPostgresDriverError(t *testing.T) {
	cause := &pq.Error{Code: "23505", Constraint: "orders_order_number_key", Table: "orders"}
	err := Wrap(CodeDependency, cause, "create order")

	dump := Dump(err)
	if dump.PG == nil {
		t.Fatal("expected PG details")
	}
	if dump.PG.Code != "23505" || dump.PG.Constraint != "orders_order_number_key" {
		t.Fatalf("unexpected PG details %+v", dump.PG)
	}

	fields := dump.LogFields()
	if fields["pg_table"] != "orders" {
		t.Fatalf("unexpected pg_table %v", fields["pg_table"])
	}
}
