package extract

import "github.com/dusk-indust/codekg/internal/graph"

// derive turns a resolved file into its triples, in emission order:
// containment, then per type its DECLARED_AT and OF_TYPE edges followed by
// each method's HAVE edge and body references in source order. It consults
// nothing but its input. The second result counts base edges filtered out
// because an interface cannot inherit from a class.
func derive(rf resolvedFile) ([]graph.Triple, int) {
	triples := FolderChain(rf.path, rf.file)
	filtered := 0

	for _, t := range rf.types {
		triples = append(triples, graph.DeclaredAt(t.node, rf.file))

		for _, base := range t.bases {
			switch t.node.(type) {
			case *graph.ClassNode:
				triples = append(triples, graph.OfType(t.node, base))
			case *graph.InterfaceNode:
				if _, ok := base.(*graph.InterfaceNode); ok {
					triples = append(triples, graph.OfType(t.node, base))
				} else {
					filtered++
				}
			}
		}

		for _, m := range t.methods {
			triples = append(triples, graph.Have(t.node, m.node))
			for _, ref := range m.refs {
				switch target := ref.target.(type) {
				case *graph.ClassNode:
					triples = append(triples, graph.Construct(m.node, target))
				case *graph.MethodNode:
					triples = append(triples, graph.Invoke(m.node, target))
				}
			}
		}
	}
	return triples, filtered
}
