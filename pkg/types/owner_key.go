package types

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/bluewud/storefront-backend/pkg/enums"
)

// OwnerKey identifies who a cart or order belongs to: either an
// authenticated user or an anonymous guest session. Exactly one of the
// two identifiers is populated, discriminated by Kind.
type OwnerKey struct {
	Kind           enums.OwnerKind
	UserID         uuid.UUID
	GuestSessionID string
}

// OwnerForUser builds an OwnerKey for an authenticated user.
func OwnerForUser(userID uuid.UUID) OwnerKey {
	return OwnerKey{Kind: enums.OwnerKindUser, UserID: userID}
}

// OwnerForGuest builds an OwnerKey for a guest session.
func OwnerForGuest(sessionID string) OwnerKey {
	return OwnerKey{Kind: enums.OwnerKindGuest, GuestSessionID: sessionID}
}

// IsUser reports whether the owner is an authenticated user.
func (o OwnerKey) IsUser() bool {
	return o.Kind == enums.OwnerKindUser
}

// IsGuest reports whether the owner is a guest session.
func (o OwnerKey) IsGuest() bool {
	return o.Kind == enums.OwnerKindGuest
}

// IsZero reports whether the key carries no identity at all.
func (o OwnerKey) IsZero() bool {
	return o.Kind == "" && o.UserID == uuid.Nil && o.GuestSessionID == ""
}

// Validate checks that the key is internally consistent.
func (o OwnerKey) Validate() error {
	switch o.Kind {
	case enums.OwnerKindUser:
		if o.UserID == uuid.Nil {
			return fmt.Errorf("owner key: user id is required")
		}
		if o.GuestSessionID != "" {
			return fmt.Errorf("owner key: user owner cannot carry a guest session")
		}
	case enums.OwnerKindGuest:
		if strings.TrimSpace(o.GuestSessionID) == "" {
			return fmt.Errorf("owner key: guest session id is required")
		}
		if o.UserID != uuid.Nil {
			return fmt.Errorf("owner key: guest owner cannot carry a user id")
		}
	default:
		return fmt.Errorf("owner key: unknown kind %q", o.Kind)
	}
	return nil
}

// String renders the canonical "kind:identifier" form used for log fields
// and Redis key scoping.
func (o OwnerKey) String() string {
	switch o.Kind {
	case enums.OwnerKindUser:
		return fmt.Sprintf("user:%s", o.UserID)
	case enums.OwnerKindGuest:
		return fmt.Sprintf("guest:%s", o.GuestSessionID)
	default:
		return ""
	}
}

// ParseOwnerKey reverses String.
func ParseOwnerKey(value string) (OwnerKey, error) {
	kindPart, idPart, found := strings.Cut(value, ":")
	if !found || idPart == "" {
		return OwnerKey{}, fmt.Errorf("owner key: malformed value %q", value)
	}

	kind, err := enums.ParseOwnerKind(kindPart)
	if err != nil {
		return OwnerKey{}, fmt.Errorf("owner key: %w", err)
	}

	switch kind {
	case enums.OwnerKindUser:
		userID, err := uuid.Parse(idPart)
		if err != nil {
			return OwnerKey{}, fmt.Errorf("owner key: parse user id: %w", err)
		}
		return OwnerForUser(userID), nil
	default:
		return OwnerForGuest(idPart), nil
	}
}
