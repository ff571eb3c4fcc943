package graph

import (
	"context"
	"errors"
	"io"
)

// ErrUnknownLabel is returned when a store is asked about a label outside the
// schema.
var ErrUnknownLabel = errors.New("unknown node label")

// Store is the interface for the code knowledge graph backend.
// Implementations: Neo4jStore and KuzuStore (production), MemStore (testing).
//
// Writes are upserts: nodes merge on (label, pk) and relationships on
// (type, source, target), so loading the same triples twice leaves the graph
// unchanged. When two writes carry different properties for the same key, the
// last one wins.
type Store interface {
	io.Closer

	// Healthcheck verifies the backend is reachable before a run starts.
	Healthcheck(ctx context.Context) error

	// InitSchema prepares tables, constraints or indexes. Idempotent.
	InitSchema(ctx context.Context) error

	// Clear deletes every node and relationship.
	Clear(ctx context.Context) error

	// MergeTriples upserts both endpoints of every triple, then the edge.
	MergeTriples(ctx context.Context, triples []Triple) error

	// Read operations.
	FindNodes(ctx context.Context, q NodeQuery) ([]NodeRecord, error)
	// Relationships takes the label as well as the pk because pks are only
	// unique within a label.
	Relationships(ctx context.Context, label Label, pk string, dir Direction) ([]EdgeRecord, error)

	// Stats.
	Stats(ctx context.Context) (*GraphStats, error)
}

// validateBatch rejects the whole batch if any triple is malformed, before a
// store writes anything.
func validateBatch(triples []Triple) error {
	for _, t := range triples {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return nil
}
