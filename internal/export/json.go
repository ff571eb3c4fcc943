package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dusk-indust/codekg/internal/graph"
)

// TripleExport is one line of a JSONL export.
type TripleExport struct {
	Type   graph.RelType `json:"type"`
	Source NodeExport    `json:"source"`
	Target NodeExport    `json:"target"`
}

// NodeExport describes one endpoint of an exported triple.
type NodeExport struct {
	Label      graph.Label    `json:"label"`
	Pk         string         `json:"pk"`
	FullName   string         `json:"fullName"`
	Name       string         `json:"name"`
	Properties map[string]any `json:"properties,omitempty"`
}

func nodeExport(n graph.Node) NodeExport {
	props := n.Properties()
	// Identity fields have their own keys.
	for _, k := range []string{graph.PropPk, graph.PropFullName, graph.PropName} {
		delete(props, k)
	}
	if len(props) == 0 {
		props = nil
	}
	return NodeExport{
		Label:      n.Label(),
		Pk:         n.Pk(),
		FullName:   n.FullName(),
		Name:       n.Name(),
		Properties: props,
	}
}

// NewTripleExport converts t for export.
func NewTripleExport(t graph.Triple) TripleExport {
	return TripleExport{
		Type:   t.Type,
		Source: nodeExport(t.Source),
		Target: nodeExport(t.Target),
	}
}

// WriteJSONL writes one JSON object per triple, in order.
func WriteJSONL(w io.Writer, triples []graph.Triple) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for _, t := range triples {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("export: jsonl: %w", err)
		}
		if err := enc.Encode(NewTripleExport(t)); err != nil {
			return fmt.Errorf("export: jsonl: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("export: jsonl: %w", err)
	}
	return nil
}
