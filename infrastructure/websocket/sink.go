package websocket

import (
	"context"
	"direct-chat/domain/event"
	"direct-chat/errors"
	"sync"
)

// Sink is the outbound queue of one connection, drained by its write loop.
// Consume never blocks: a full queue drops the event.
// The queue is never closed, Done tells the writer to stop.
type Sink struct {
	outgoing  chan event.DomainEvent
	done      chan struct{}
	closeOnce sync.Once
}

func NewSink(bufferSize int) *Sink {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &Sink{
		outgoing: make(chan event.DomainEvent, bufferSize),
		done:     make(chan struct{}),
	}
}

func (s *Sink) Consume(ctx context.Context, e event.DomainEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-s.done:
		return errors.ErrConnectionClosed
	default:
	}

	select {
	case s.outgoing <- e:
		return nil
	default:
		return errors.ErrSlowConsumer
	}
}

func (s *Sink) Events() <-chan event.DomainEvent {
	return s.outgoing
}

func (s *Sink) Done() <-chan struct{} {
	return s.done
}

// Close stops accepting events. Safe to call more than once.
func (s *Sink) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}
