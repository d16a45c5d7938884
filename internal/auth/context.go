package auth

import (
	"context"

	"docflow/backend/pkg/models"
)

type actorKey struct{}

// WithActor returns a copy of ctx carrying actor.
func WithActor(ctx context.Context, actor *models.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the authenticated actor, or nil.
func ActorFromContext(ctx context.Context) *models.Actor {
	actor, _ := ctx.Value(actorKey{}).(*models.Actor)
	return actor
}
