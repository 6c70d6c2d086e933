package pipe

import (
	"context"

	"github.com/google/uuid"
)

type OptionKey string

const (
	TraversalKey OptionKey = "pipe_traversal"
	HopKey       OptionKey = "pipe_hop"
)

// Hop describes the stage a transform is running in.
type Hop struct {
	TraversalID uuid.UUID
	Stage       string
	// Index counts stages entered so far in the traversal, starting at 0.
	Index int
}

func WithTraversal(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, TraversalKey, id)
}

// TraversalID returns the id of the traversal ctx belongs to.
func TraversalID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(TraversalKey).(uuid.UUID)
	return id, ok
}

func WithHop(ctx context.Context, hop Hop) context.Context {
	return context.WithValue(ctx, HopKey, hop)
}

func HopFrom(ctx context.Context) (Hop, bool) {
	hop, ok := ctx.Value(HopKey).(Hop)
	return hop, ok
}
