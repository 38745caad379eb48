package websocket

import (
	"context"
	"direct-chat/contract"
	"direct-chat/domain"
	"direct-chat/domain/event"
	chaterrors "direct-chat/errors"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Options bound the resources of every connection.
type Options struct {
	BufferSize    int
	MaxFrameBytes int64
	WriteTimeout  time.Duration
	PongTimeout   time.Duration
}

func (o Options) pingInterval() time.Duration {
	return o.PongTimeout * 9 / 10
}

// Client is one bound connection: a read loop handling commands in order
// and a single writer draining the sink.
type Client struct {
	log         *slog.Logger
	ws          *websocket.Conn
	conn        domain.Connection
	sink        *Sink
	handler     contract.ISessionHandler
	connections contract.IConnectionManager
	opts        Options
	state       atomic.Int32
}

func NewClient(
	log *slog.Logger,
	ws *websocket.Conn,
	conn domain.Connection,
	handler contract.ISessionHandler,
	connections contract.IConnectionManager,
	opts Options,
) *Client {
	c := &Client{
		log:         log.With("user_id", conn.UserID, "connection_id", conn.ID),
		ws:          ws,
		conn:        conn,
		sink:        NewSink(opts.BufferSize),
		handler:     handler,
		connections: connections,
		opts:        opts,
	}
	c.setState(domain.SessionConnecting)
	return c
}

func (c *Client) State() domain.SessionState {
	return domain.SessionState(c.state.Load())
}

func (c *Client) setState(state domain.SessionState) {
	c.state.Store(int32(state))
}

// Run binds the connection and serves it until the peer leaves, sends disconnect,
// or ctx is cancelled. The connection is always unbound on return.
func (c *Client) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.connections.Bind(ctx, c.conn, c.sink)
	c.setState(domain.SessionBound)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writeLoop()
	}()
	go func() {
		// Unblocks ReadMessage on shutdown
		<-ctx.Done()
		_ = c.ws.SetReadDeadline(time.Now())
	}()

	c.readLoop(ctx)

	c.connections.Unbind(context.WithoutCancel(ctx), c.conn)
	c.setState(domain.SessionDisconnected)
	c.sink.Close()
	wg.Wait()
	_ = c.ws.Close()
	c.log.Debug("Connection closed")
}

func (c *Client) readLoop(ctx context.Context) {
	if c.opts.MaxFrameBytes > 0 {
		c.ws.SetReadLimit(c.opts.MaxFrameBytes)
	}
	c.extendReadDeadline()
	c.ws.SetPongHandler(func(string) error {
		c.extendReadDeadline()
		return nil
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && ctx.Err() == nil {
				c.log.Debug("Read failed", "error", err)
			}
			return
		}
		c.extendReadDeadline()

		frame, err := DecodeFrame(raw)
		if err != nil {
			c.reject("", err)
			continue
		}
		cmd, err := frame.Command()
		if err != nil {
			c.reject(frame.Event, err)
			continue
		}
		if err := c.handler.Handle(ctx, c.conn, cmd); err != nil {
			c.reject(frame.Event, err)
			continue
		}
		if cmd.Name() == domain.CommandDisconnect {
			return
		}
	}
}

func (c *Client) extendReadDeadline() {
	if c.opts.PongTimeout > 0 {
		_ = c.ws.SetReadDeadline(time.Now().Add(c.opts.PongTimeout))
	}
}

// reject answers the originating connection with an error event. Nothing else changes.
func (c *Client) reject(eventName string, err error) {
	c.log.Debug("Event rejected", "event", eventName, "error", err)
	message := err.Error()
	if errors.Is(err, chaterrors.ErrPersistence) {
		message = chaterrors.ErrPersistence.Error()
	}
	if err := c.sink.Consume(context.Background(), event.Error{Event: eventName, Message: message}); err != nil {
		c.log.Debug("Error event dropped", "error", err)
	}
}

func (c *Client) writeLoop() {
	var ping <-chan time.Time
	if interval := c.opts.pingInterval(); interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case e := <-c.sink.Events():
			if !c.write(e) {
				return
			}
		case <-ping:
			c.setWriteDeadline()
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.ws.Close()
				return
			}
		case <-c.sink.Done():
			if !c.drain() {
				return
			}
			c.setWriteDeadline()
			_ = c.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// write sends one event. It returns false once the connection is unusable.
func (c *Client) write(e event.DomainEvent) bool {
	data, err := EncodeEvent(e)
	if err != nil {
		c.log.Error("Event not encoded", "event", e.EventName(), "error", err)
		return true
	}
	c.setWriteDeadline()
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		c.log.Debug("Write failed", "error", err)
		_ = c.ws.Close()
		return false
	}
	return true
}

// drain writes the events still buffered when the sink is closed.
func (c *Client) drain() bool {
	for {
		select {
		case e := <-c.sink.Events():
			if !c.write(e) {
				return false
			}
		default:
			return true
		}
	}
}

func (c *Client) setWriteDeadline() {
	if c.opts.WriteTimeout > 0 {
		_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	}
}
