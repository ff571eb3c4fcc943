// Package extract turns the parsed declarations of a source file into code
// knowledge graph triples.
//
// Extraction runs in two phases. Resolution asks the Oracle for the identity
// of every declaration, base type, construction and call, and builds graph
// nodes from what it can resolve. Derivation then connects those nodes into
// triples without consulting the oracle again. Anything the oracle cannot
// resolve, or resolves to a kind the graph does not model, is dropped and
// counted; it is never an error.
package extract

import (
	"log/slog"

	"github.com/dusk-indust/codekg/internal/graph"
)

// Result is the output of extracting one file.
type Result struct {
	// Triples in emission order.
	Triples []graph.Triple
	// Types and Methods count the declarations that produced nodes.
	Types   int
	Methods int
	// Dropped counts discarded nodes and edges by kind.
	Dropped map[Drop]int
}

// DroppedTotal sums Dropped.
func (r Result) DroppedTotal() int {
	n := 0
	for _, c := range r.Dropped {
		n += c
	}
	return n
}

// Extractor extracts triples from files using one Oracle. It holds no
// per-file state and is safe for concurrent use when the Oracle is.
type Extractor struct {
	oracle Oracle
	log    *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger dropped references are reported to at debug
// level.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.log = l
		}
	}
}

// New returns an Extractor backed by oracle.
func New(oracle Oracle, opts ...Option) *Extractor {
	e := &Extractor{oracle: oracle, log: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With("component", "extract")
	return e
}

// Extract resolves f through the oracle and derives its triples.
func (e *Extractor) Extract(f *File) Result {
	p := NormalizePath(f.Path)
	r := &resolver{oracle: e.oracle, log: e.log, path: p, dropped: make(map[Drop]int)}
	rf := r.resolveFile(f)

	triples, filtered := derive(rf)
	if filtered > 0 {
		r.dropped[DropBase] += filtered
	}

	res := Result{Triples: triples, Types: len(rf.types), Dropped: r.dropped}
	for _, t := range rf.types {
		res.Methods += len(t.methods)
	}
	return res
}
