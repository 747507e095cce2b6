// Package sink delivers human-readable notices about a run (which branch
// failed, that there was nothing to run) to whoever is listening.
package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Sink receives run notices one line at a time.
type Sink interface {
	WriteLine(ctx context.Context, line string) error
}

// Notify writes line to s and logs, rather than returns, any failure.
// A listener that cannot be written to never affects the run.
func Notify(ctx context.Context, s Sink, logger *slog.Logger, line string) {
	if s == nil {
		return
	}
	if err := s.WriteLine(ctx, line); err != nil {
		logger.Warn("Failed to write notice to listener.", "line", line, "error", err)
	}
}

// Writer writes each line to an io.Writer, serialising concurrent callers.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter returns a sink writing to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteLine implements Sink.
func (s *Writer) WriteLine(_ context.Context, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintln(s.w, line)
	return err
}

// Multi fans a line out to every sink. All sinks are attempted.
type Multi []Sink

// WriteLine implements Sink.
func (m Multi) WriteLine(ctx context.Context, line string) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.WriteLine(ctx, line); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every line.
type Discard struct{}

// WriteLine implements Sink.
func (Discard) WriteLine(context.Context, string) error { return nil }
