// Package ownership decides whether an actor may mutate an entity.
package ownership

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Kind names an owned entity type.
type Kind string

// Entity kinds with an owner column.
const (
	Video    Kind = "video"
	Comment  Kind = "comment"
	Tweet    Kind = "tweet"
	Playlist Kind = "playlist"
)

// Lookup resolves the owner of an entity with a narrow projection.
type Lookup interface {
	OwnerOf(ctx context.Context, kind Kind, id string) (ownerID string, found bool, err error)
}

// Decision is the outcome of an ownership check.
type Decision int

const (
	// Missing means the entity does not exist.
	Missing Decision = iota
	// Denied means the entity exists and belongs to someone else.
	Denied
	// Allowed means the actor owns the entity.
	Allowed
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case Denied:
		return "denied"
	default:
		return "missing"
	}
}

// Guard checks ownership before mutations.
type Guard struct {
	Lookup Lookup
}

// Check reports whether the entity exists and whether actorID owns it. Errors are store failures only.
func (g Guard) Check(ctx context.Context, actorID string, kind Kind, entityID string) (Decision, error) {
	if g.Lookup == nil {
		return Missing, fmt.Errorf("ownership: lookup unavailable")
	}
	entity, err := uuid.Parse(entityID)
	if err != nil {
		return Missing, nil
	}

	ownerID, found, err := g.Lookup.OwnerOf(ctx, kind, entity.String())
	if err != nil {
		return Missing, fmt.Errorf("lookup %s owner: %w", kind, err)
	}
	if !found {
		return Missing, nil
	}
	if sameID(ownerID, actorID) {
		return Allowed, nil
	}
	return Denied, nil
}

// IsOwner reports whether actorID owns the entity. A missing entity is never owned.
func (g Guard) IsOwner(ctx context.Context, actorID string, kind Kind, entityID string) (bool, error) {
	decision, err := g.Check(ctx, actorID, kind, entityID)
	if err != nil {
		return false, err
	}
	return decision == Allowed, nil
}

func sameID(a, b string) bool {
	ua, err := uuid.Parse(a)
	if err != nil {
		return false
	}
	ub, err := uuid.Parse(b)
	if err != nil {
		return false
	}
	return ua == ub
}
