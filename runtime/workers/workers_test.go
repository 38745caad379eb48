package workers

import (
	"context"
	"direct-chat/domain"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type fakeStats struct {
	calls atomic.Int32
}

func (f *fakeStats) Online(...domain.UserID) []domain.UserID {
	f.calls.Add(1)
	return []domain.UserID{"alice", "bob"}
}

func (f *fakeStats) ConnectionCount() int { return 3 }

func TestPresenceReporter_Reports_Until_Cancelled(t *testing.T) {
	req := require.New(t)
	stats := &fakeStats{}
	reporter := NewPresenceReporter(stats, 10*time.Millisecond, logs.GetLoggerFromLevel(slog.LevelDebug))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	req.NoError(reporter.Run(ctx))
	req.GreaterOrEqual(stats.calls.Load(), int32(2))
}

func TestHTTPServer_Stops_On_Cancel(t *testing.T) {
	req := require.New(t)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	req.NoError(err)
	addr := listener.Addr().String()
	req.NoError(listener.Close())

	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, "pong")
	})
	worker := NewHTTPServer(&http.Server{Addr: addr, Handler: mux}, logs.GetLoggerFromLevel(slog.LevelDebug))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	// Then the server answers once listening
	req.Eventually(func() bool {
		resp, err := http.Get("http://" + addr + "/ping")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	// When the context is cancelled, the worker ends cleanly
	cancel()
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(2 * time.Second):
		req.Fail("HTTP server should have stopped")
	}
}

func TestHTTPServer_Returns_Listen_Error(t *testing.T) {
	req := require.New(t)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	req.NoError(err)
	defer listener.Close()

	// Given the port is already taken
	worker := NewHTTPServer(&http.Server{Addr: listener.Addr().String()}, logs.GetLoggerFromLevel(slog.LevelDebug))

	req.Error(worker.Run(context.Background()))
}
