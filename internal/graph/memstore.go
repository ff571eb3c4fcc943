package graph

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store using Go maps. Thread-safe via sync.RWMutex.
// Nodes are keyed by label and pk, edges by Triple.Key, mirroring the merge
// semantics of the database-backed stores.
type MemStore struct {
	mu    sync.RWMutex
	nodes map[nodeKey]NodeRecord
	edges map[string]EdgeRecord
	order []string // edge keys in first-insertion order
}

type nodeKey struct {
	label Label
	pk    string
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{
		nodes: make(map[nodeKey]NodeRecord),
		edges: make(map[string]EdgeRecord),
	}
}

// Healthcheck always succeeds for the in-memory store.
func (m *MemStore) Healthcheck(_ context.Context) error {
	return nil
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error {
	return nil
}

// Clear removes all nodes and edges.
func (m *MemStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes = make(map[nodeKey]NodeRecord)
	m.edges = make(map[string]EdgeRecord)
	m.order = nil
	return nil
}

// MergeTriples upserts the endpoints and edges of every triple.
func (m *MemStore) MergeTriples(_ context.Context, triples []Triple) error {
	if err := validateBatch(triples); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range triples {
		m.mergeNode(t.Source)
		m.mergeNode(t.Target)

		key := t.Key()
		if _, ok := m.edges[key]; !ok {
			m.order = append(m.order, key)
		}
		m.edges[key] = EdgeRecord{
			Type:        t.Type,
			SourceLabel: t.Source.Label(),
			SourcePk:    t.Source.Pk(),
			TargetLabel: t.Target.Label(),
			TargetPk:    t.Target.Pk(),
		}
	}
	return nil
}

// mergeNode creates the node or overlays its properties on the existing one.
// Callers must hold m.mu.
func (m *MemStore) mergeNode(n Node) {
	key := nodeKey{label: n.Label(), pk: n.Pk()}
	rec, ok := m.nodes[key]
	if !ok {
		rec = NodeRecord{Label: n.Label(), Pk: n.Pk(), Properties: make(map[string]any)}
	}
	maps.Copy(rec.Properties, n.Properties())
	rec.FullName = n.FullName()
	rec.Name = n.Name()
	m.nodes[key] = rec
}

// FindNodes returns nodes matching q, sorted by label then full name.
// A limit <= 0 returns all matches.
func (m *MemStore) FindNodes(_ context.Context, q NodeQuery) ([]NodeRecord, error) {
	if q.Label != "" && !q.Label.Valid() {
		return nil, ErrUnknownLabel
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	lowerName := strings.ToLower(q.Name)
	var results []NodeRecord
	for _, rec := range m.nodes {
		if q.Label != "" && rec.Label != q.Label {
			continue
		}
		if !strings.Contains(strings.ToLower(rec.Name), lowerName) {
			continue
		}
		results = append(results, copyRecord(rec))
	}
	slices.SortFunc(results, func(a, b NodeRecord) int {
		if c := strings.Compare(string(a.Label), string(b.Label)); c != 0 {
			return c
		}
		return strings.Compare(a.FullName, b.FullName)
	})
	if q.Limit > 0 && len(results) > q.Limit {
		results = results[:q.Limit]
	}
	return results, nil
}

// Relationships returns the edges touching the node (label, pk), in
// insertion order.
func (m *MemStore) Relationships(_ context.Context, label Label, pk string, dir Direction) ([]EdgeRecord, error) {
	if _, err := labelIdent(label); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []EdgeRecord
	for _, key := range m.order {
		e := m.edges[key]
		outgoing := e.SourceLabel == label && e.SourcePk == pk && (dir == DirectionOut || dir == DirectionBoth)
		incoming := e.TargetLabel == label && e.TargetPk == pk && (dir == DirectionIn || dir == DirectionBoth)
		if outgoing || incoming {
			out = append(out, e)
		}
	}
	return out, nil
}

// Node returns the stored record for (label, pk), or nil if absent.
func (m *MemStore) Node(label Label, pk string) *NodeRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.nodes[nodeKey{label: label, pk: pk}]
	if !ok {
		return nil
	}
	c := copyRecord(rec)
	return &c
}

// Edges returns a copy of all edges in first-insertion order.
func (m *MemStore) Edges() []EdgeRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]EdgeRecord, 0, len(m.order))
	for _, key := range m.order {
		out = append(out, m.edges[key])
	}
	return out
}

// Stats returns counts of all node and edge types in the graph.
func (m *MemStore) Stats(_ context.Context) (*GraphStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := &GraphStats{
		NodeCount: len(m.nodes),
		EdgeCount: len(m.edges),
		Nodes:     make(map[Label]int),
		Edges:     make(map[RelType]int),
	}
	for k := range m.nodes {
		stats.Nodes[k.label]++
	}
	for _, e := range m.edges {
		stats.Edges[e.Type]++
	}
	return stats, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}

func copyRecord(rec NodeRecord) NodeRecord {
	rec.Properties = maps.Clone(rec.Properties)
	return rec
}
