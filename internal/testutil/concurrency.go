package testutil

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// ExecutionRecord holds the start and end times of one unit of work.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// ConcurrencyProbe records how many callers are inside Enter/Leave at once
// and when each named caller ran.
type ConcurrencyProbe struct {
	current atomic.Int32
	peak    atomic.Int32

	mu      sync.Mutex
	records map[string]*ExecutionRecord
}

// NewConcurrencyProbe returns an empty probe.
func NewConcurrencyProbe() *ConcurrencyProbe {
	return &ConcurrencyProbe{records: make(map[string]*ExecutionRecord)}
}

// Run marks name as running for d, or until ctx is done.
func (p *ConcurrencyProbe) Run(ctx context.Context, name string, d time.Duration) error {
	n := p.current.Add(1)
	for {
		peak := p.peak.Load()
		if n <= peak || p.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	rec := &ExecutionRecord{Start: time.Now()}
	defer func() {
		rec.End = time.Now()
		p.mu.Lock()
		p.records[name] = rec
		p.mu.Unlock()
		p.current.Add(-1)
	}()

	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Peak returns the highest number of concurrent runs observed.
func (p *ConcurrencyProbe) Peak() int {
	return int(p.peak.Load())
}

// Records returns a copy of the execution records by name.
func (p *ConcurrencyProbe) Records() map[string]ExecutionRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]ExecutionRecord, len(p.records))
	for k, v := range p.records {
		out[k] = *v
	}
	return out
}
