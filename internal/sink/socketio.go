package sink

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// ErrClosed is returned when writing to a closed socket.io sink.
var ErrClosed = errors.New("sink: socket.io connection closed")

// SocketIOConfig describes the socket.io endpoint notices are emitted to.
type SocketIOConfig struct {
	URL                string
	Namespace          string
	Event              string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

// SocketIO emits every line as an event on a socket.io connection.
type SocketIO struct {
	event string
	emit  func(event string, args ...any)
	close func()

	mu     sync.Mutex
	closed bool
}

// DialSocketIO connects to cfg.URL and waits for the connection to be
// acknowledged before returning.
func DialSocketIO(ctx context.Context, cfg SocketIOConfig, logger *slog.Logger) (*SocketIO, error) {
	logger = logger.With("sink", "socketio", "url", cfg.URL, "event", cfg.Event)

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("sink: failed to parse socket.io URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("sink: socket.io URL %q must include scheme and host", cfg.URL)
	}
	if cfg.Event == "" {
		cfg.Event = "notice"
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "/"
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	opts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		opts.SetPath(parsedURL.Path)
	}
	if cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(cfg.Namespace, opts)

	connected := make(chan error, 1)
	io.On(types.EventName("connect"), func(...any) {
		logger.Debug("Socket.io listener connected.", "namespace", cfg.Namespace, "sid", io.Id())
		select {
		case connected <- nil:
		default:
		}
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		select {
		case connected <- err:
		default:
		}
	})

	io.Connect()

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	select {
	case err := <-connected:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("sink: socket.io connection failed: %w", err)
		}
	case <-waitCtx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("sink: timed out connecting to %s: %w", cfg.URL, waitCtx.Err())
	}

	return newSocketIO(
		cfg.Event,
		func(event string, args ...any) { io.Emit(event, args...) },
		func() { io.Disconnect() },
	), nil
}

func newSocketIO(event string, emit func(string, ...any), closeFn func()) *SocketIO {
	return &SocketIO{event: event, emit: emit, close: closeFn}
}

// WriteLine implements Sink.
func (s *SocketIO) WriteLine(ctx context.Context, line string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.emit(s.event, map[string]any{
		"line": line,
		"time": time.Now().UTC().Format(time.RFC3339Nano),
	})
	return nil
}

// Close disconnects the socket. It is safe to call more than once.
func (s *SocketIO) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.close()
	return nil
}
