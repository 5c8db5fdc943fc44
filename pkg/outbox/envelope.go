package outbox

import (
	"encoding/json"
	"time"
)

// OwnerRef identifies who produced the event: an authenticated user or a
// guest session, in canonical "kind:identifier" form.
type OwnerRef struct {
	OwnerKey string `json:"ownerKey"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Owner      *OwnerRef       `json:"owner,omitempty"`
	Data       json.RawMessage `json:"data"`
}
