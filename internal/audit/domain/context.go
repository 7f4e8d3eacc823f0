package domain

import (
	"context"
	"strings"
)

type actorKey struct{}

type actor struct {
	Type ActorType
	ID   string
}

// WithActor stores who is acting for audit entries written under ctx.
func WithActor(ctx context.Context, actorType ActorType, actorID string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor{Type: actorType, ID: strings.TrimSpace(actorID)})
}

func ActorFromContext(ctx context.Context) (ActorType, string) {
	if ctx == nil {
		return "", ""
	}
	if a, ok := ctx.Value(actorKey{}).(actor); ok {
		return a.Type, a.ID
	}
	return "", ""
}
