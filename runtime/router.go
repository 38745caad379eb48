package runtime

import (
	"context"
	"direct-chat/contract"
	"direct-chat/domain"
	"direct-chat/domain/event"
	"direct-chat/errors"
	stderrors "errors"
	"log/slog"
)

// Router hands server events to the sinks of bound connections.
// Delivery is at-most-once: nothing is queued for offline users and a full sink drops the event.
type Router struct {
	log      *slog.Logger
	registry *Registry
}

func NewRouter(registry *Registry, log *slog.Logger) *Router {
	return &Router{log: log, registry: registry}
}

// DeliverTo sends the event to every connection of userID. Offline users are skipped silently.
func (r *Router) DeliverTo(ctx context.Context, userID domain.UserID, e event.DomainEvent) int {
	return r.fanout(ctx, r.registry.SinksFor(userID), e)
}

// DeliverToSelf echoes an event to the caller's own connections (other devices included).
func (r *Router) DeliverToSelf(ctx context.Context, userID domain.UserID, e event.DomainEvent) int {
	return r.fanout(ctx, r.registry.SinksFor(userID), e)
}

func (r *Router) BroadcastAll(ctx context.Context, e event.DomainEvent) int {
	return r.fanout(ctx, r.registry.AllSinks(), e)
}

func (r *Router) BroadcastExcept(ctx context.Context, e event.DomainEvent, except domain.Connection) int {
	return r.fanout(ctx, r.registry.AllSinks(except.ID), e)
}

func (r *Router) fanout(ctx context.Context, sinks []contract.EventSink, e event.DomainEvent) int {
	delivered := 0
	for _, sink := range sinks {
		err := sink.Consume(ctx, e)
		switch {
		case err == nil:
			delivered++
		case stderrors.Is(err, errors.ErrSlowConsumer):
			r.log.Warn("Slow consumer, event dropped", "event", e.EventName(), "error", err)
		case stderrors.Is(err, errors.ErrConnectionClosed):
			r.log.Debug("Connection closing, event dropped", "event", e.EventName())
		default:
			r.log.Error("Event delivery failed", "event", e.EventName(), "error", err)
		}
	}
	return delivered
}

var _ contract.IRouter = (*Router)(nil)
