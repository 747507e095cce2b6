package sink

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSink struct{ err error }

func (f failingSink) WriteLine(context.Context, string) error { return f.err }

func TestWriter(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	s := NewWriter(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, s.WriteLine(context.Background(), "line"))
		}()
	}
	wg.Wait()
	assert.Equal(t, strings.Repeat("line\n", 10), buf.String())
}

func TestMulti(t *testing.T) {
	t.Parallel()
	var a, b bytes.Buffer
	boom := errors.New("boom")
	m := Multi{NewWriter(&a), nil, failingSink{err: boom}, NewWriter(&b)}

	err := m.WriteLine(context.Background(), "hello")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, "hello\n", a.String())
	assert.Equal(t, "hello\n", b.String(), "later sinks still receive the line")

	assert.NoError(t, Discard{}.WriteLine(context.Background(), "x"))
}

func TestNotify(t *testing.T) {
	t.Parallel()
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	Notify(context.Background(), nil, logger, "ignored")
	assert.Empty(t, logs.String())

	Notify(context.Background(), failingSink{err: errors.New("listener gone")}, logger, "Failed in branch api")
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "listener gone")
}

func TestSocketIOWriteLine(t *testing.T) {
	t.Parallel()

	type emitted struct {
		event string
		args  []any
	}
	var (
		mu     sync.Mutex
		events []emitted
		closes int
	)
	s := newSocketIO("notice",
		func(event string, args ...any) {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, emitted{event: event, args: args})
		},
		func() { closes++ },
	)

	require.NoError(t, s.WriteLine(context.Background(), "Failed in branch api"))
	require.Len(t, events, 1)
	assert.Equal(t, "notice", events[0].event)
	require.Len(t, events[0].args, 1)
	payload, ok := events[0].args[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Failed in branch api", payload["line"])
	_, err := time.Parse(time.RFC3339Nano, payload["time"].(string))
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.WriteLine(ctx, "x"), context.Canceled)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, closes)
	assert.ErrorIs(t, s.WriteLine(context.Background(), "x"), ErrClosed)
}

func TestDialSocketIOValidatesURL(t *testing.T) {
	t.Parallel()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	_, err := DialSocketIO(context.Background(), SocketIOConfig{URL: "not a url"}, logger)
	assert.Error(t, err)

	_, err = DialSocketIO(context.Background(), SocketIOConfig{URL: "/relative/only"}, logger)
	assert.ErrorContains(t, err, "must include scheme and host")
}
