//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"direct-chat/domain"
	"direct-chat/domain/event"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is the outbound side of one connection.
// Consume must never block the caller.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// TokenVerifier turns a signed credential into the identity it was issued for.
type TokenVerifier interface {
	Verify(token string) (domain.UserID, error)
}

// IRouter delivers server events to the connections bound to an identity.
// Every method returns the number of connections the event was handed to.
type IRouter interface {
	DeliverTo(ctx context.Context, userID domain.UserID, e event.DomainEvent) int
	DeliverToSelf(ctx context.Context, userID domain.UserID, e event.DomainEvent) int
	BroadcastAll(ctx context.Context, e event.DomainEvent) int
	BroadcastExcept(ctx context.Context, e event.DomainEvent, except domain.Connection) int
}

// ISessionHandler consumes the commands of one bound connection.
type ISessionHandler interface {
	Handle(ctx context.Context, conn domain.Connection, cmd domain.Command) error
}

type IConnectionManager interface {
	Authenticate(token string) (domain.UserID, error)
	Bind(ctx context.Context, conn domain.Connection, sink EventSink)
	Unbind(ctx context.Context, conn domain.Connection) bool
}
