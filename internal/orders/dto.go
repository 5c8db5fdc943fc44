package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bluewud/storefront-backend/pkg/db/models"
	"github.com/bluewud/storefront-backend/pkg/pagination"
)

// OrderList is a cursor-paginated page of orders.
type OrderList struct {
	Orders     []models.Order `json:"orders"`
	NextCursor *string        `json:"next_cursor,omitempty"`
}

// pageFromRows trims the lookahead row and computes the next cursor.
func pageFromRows(rows []models.Order, limit int) *OrderList {
	normalized := pagination.NormalizeLimit(limit)
	list := &OrderList{Orders: rows}
	if len(rows) <= normalized {
		return list
	}

	list.Orders = rows[:normalized]
	last := list.Orders[len(list.Orders)-1]
	cursor := pagination.EncodeCursor(pagination.Cursor{
		CreatedAt: last.CreatedAt,
		ID:        last.ID,
	})
	list.NextCursor = &cursor
	return list
}

// NewOrderNumber builds a human-referenceable order number. Uniqueness is
// enforced by the order_number index; the random suffix keeps collisions
// within the same millisecond vanishingly rare.
func NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), suffix)
}
