package graph

import (
	"context"
	"fmt"
	"sync"
)

// DefaultBatchSize is the number of triples handed to a store per
// MergeTriples call when flushing.
const DefaultBatchSize = 500

// Sink is an ordered, append-only collection of triples shared by extraction
// workers. Append is safe for concurrent use; a single call's batch stays
// contiguous, so the order of one file's triples is preserved.
type Sink struct {
	mu      sync.Mutex
	triples []Triple
}

// NewSink returns an empty sink.
func NewSink() *Sink {
	return &Sink{}
}

// Append adds a batch of triples atomically.
func (s *Sink) Append(batch ...Triple) {
	if len(batch) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triples = append(s.triples, batch...)
}

// Len returns the number of triples appended since the last flush.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.triples)
}

// Triples returns a copy of the accumulated triples in append order.
func (s *Sink) Triples() []Triple {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Triple, len(s.triples))
	copy(out, s.triples)
	return out
}

// Flush hands the accumulated triples to store in append order, batchSize at
// a time, and empties the sink. Triples that were not written stay in the
// sink when a batch fails. A batchSize <= 0 uses DefaultBatchSize.
func (s *Sink) Flush(ctx context.Context, store Store, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	s.mu.Lock()
	pending := s.triples
	s.triples = nil
	s.mu.Unlock()

	written := 0
	for written < len(pending) {
		if err := ctx.Err(); err != nil {
			s.requeue(pending[written:])
			return written, err
		}
		end := min(written+batchSize, len(pending))
		if err := store.MergeTriples(ctx, pending[written:end]); err != nil {
			s.requeue(pending[written:])
			return written, fmt.Errorf("sink: flush triples %d-%d: %w", written, end, err)
		}
		written = end
	}
	return written, nil
}

// requeue puts unwritten triples back in front of anything appended since.
func (s *Sink) requeue(rest []Triple) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triples = append(append([]Triple(nil), rest...), s.triples...)
}
