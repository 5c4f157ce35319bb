package bridge

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrTransportClosed is returned by Send after Close.
var ErrTransportClosed = errors.New("transport closed")

// Transport carries encoded messages to and from one worker.
type Transport interface {
	// Send delivers one encoded request.
	Send(msg []byte) error
	// Recv yields encoded responses. It is closed when the worker stops.
	Recv() <-chan []byte
	// Close stops the worker. It is safe to call more than once.
	Close() error
}

// Spawner starts a worker and returns the transport connected to it.
type Spawner interface {
	Spawn(ctx context.Context) (Transport, error)
}

// SpawnFunc adapts a function to the Spawner interface.
type SpawnFunc func(ctx context.Context) (Transport, error)

// Spawn calls f.
func (f SpawnFunc) Spawn(ctx context.Context) (Transport, error) {
	return f(ctx)
}

// InProcess spawns w on its own goroutine, connected by channels. Messages
// are still encoded bytes, so nothing is shared with the worker.
func InProcess(w *Worker) Spawner {
	return SpawnFunc(func(ctx context.Context) (Transport, error) {
		ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		t := &chanTransport{
			send:   make(chan []byte, 64),
			recv:   make(chan []byte, 64),
			done:   make(chan struct{}),
			cancel: cancel,
		}
		go func() {
			defer close(t.recv)
			if err := w.ServeChannels(ctx, t.send, t.recv); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("in-process worker stopped", "error", err)
			}
		}()
		return t, nil
	})
}

type chanTransport struct {
	send   chan []byte
	recv   chan []byte
	done   chan struct{}
	cancel context.CancelFunc
	once   sync.Once
}

func (t *chanTransport) Send(msg []byte) error {
	select {
	case <-t.done:
		return ErrTransportClosed
	default:
	}
	select {
	case t.send <- msg:
		return nil
	case <-t.done:
		return ErrTransportClosed
	}
}

func (t *chanTransport) Recv() <-chan []byte {
	return t.recv
}

func (t *chanTransport) Close() error {
	t.once.Do(func() {
		close(t.done)
		t.cancel()
	})
	return nil
}

// Unavailable is a Spawner that always fails, forcing synchronous execution.
func Unavailable(reason error) Spawner {
	return SpawnFunc(func(context.Context) (Transport, error) {
		return nil, reason
	})
}

func loggerOr(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
