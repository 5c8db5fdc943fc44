package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNormalizeLimit(t *testing.T) {
	if got := NormalizeLimit(0); got != DefaultLimit {
		t.Fatalf("expected default %d, got %d", DefaultLimit, got)
	}
	if got := NormalizeLimit(-5); got != DefaultLimit {
		t.Fatalf("expected default %d, got %d", DefaultLimit, got)
	}
	if got := NormalizeLimit(MaxLimit + 50); got != MaxLimit {
		t.Fatalf("expected cap %d, got %d", MaxLimit, got)
	}
	if got := NormalizeLimit(7); got != 7 {
		t.Fatalf("expected 7, got %d", got)
	}
}

func TestLimitWithBuffer(t *testing.T) {
	if got := LimitWithBuffer(10); got != 11 {
		t.Fatalf("expected 11, got %d", got)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	cursor := Cursor{
		CreatedAt: time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC),
		ID:        uuid.New(),
	}
	encoded := EncodeCursor(cursor)

	decoded, err := ParseCursor(encoded)
	if err != nil {
		t.Fatalf("parse cursor: %v", err)
	}
	if decoded == nil {
		t.Fatal("expected decoded cursor")
	}
	if !decoded.CreatedAt.Equal(cursor.CreatedAt) {
		t.Fatalf("expected %s, got %s", cursor.CreatedAt, decoded.CreatedAt)
	}
	if decoded.ID != cursor.ID {
		t.Fatalf("expected %s, got %s", cursor.ID, decoded.ID)
	}
}

func TestParseCursorEmptyIsNil(t *testing.T) {
	decoded, err := ParseCursor("   ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded != nil {
		t.Fatalf("expected nil cursor, got %+v", decoded)
	}
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	for _, value := range []string{"%%%", "bm90LWEtY3Vyc29y", "aGVsbG98d29ybGQ="} {
		if _, err := ParseCursor(value); err == nil {
			t.Fatalf("expected error for %q", value)
		}
	}
}
