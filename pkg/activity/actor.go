package activity

import "context"

// Actor identifies who caused a variable change.
type Actor struct {
	ActorID  string
	UserID   string
	TenantID string
}

type actorKey struct{}

// ContextWithActor returns a context carrying actor.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext extracts the actor stored by ContextWithActor. The zero
// Actor is returned when none is present.
func ActorFromContext(ctx context.Context) Actor {
	actor, _ := ctx.Value(actorKey{}).(Actor)
	return actor
}

func (a Actor) apply(event Event) Event {
	if event.ActorID == "" {
		event.ActorID = a.ActorID
	}
	if event.UserID == "" {
		event.UserID = a.UserID
	}
	if event.TenantID == "" {
		event.TenantID = a.TenantID
	}
	return event
}
