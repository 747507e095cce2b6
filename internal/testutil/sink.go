package testutil

import (
	"context"
	"sync"
)

// RecordingSink stores every line written to it. Err, when set, is
// returned from every write after the line is stored.
type RecordingSink struct {
	Err error

	mu    sync.Mutex
	lines []string
}

// WriteLine implements sink.Sink.
func (s *RecordingSink) WriteLine(_ context.Context, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, line)
	return s.Err
}

// Lines returns a copy of the recorded lines.
func (s *RecordingSink) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}
