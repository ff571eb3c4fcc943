package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dusk-indust/codekg/internal/graph"
)

// GenerateMermaid produces a Mermaid graph TD diagram of the types in
// triples. Types are grouped by the file they are declared in; OF_TYPE edges
// become dotted arrows, and INVOKE and CONSTRUCT edges are lifted from
// methods to the types that own them.
func GenerateMermaid(triples []graph.Triple) string {
	types := make(map[string]graph.Node)  // pk → type
	declaredIn := make(map[string]string) // type pk → file fullName
	owner := make(map[string]string)      // method pk → type pk
	for _, t := range triples {
		switch t.Type {
		case graph.RelHave:
			types[t.Source.Pk()] = t.Source
			owner[t.Target.Pk()] = t.Source.Pk()
		case graph.RelDeclaredAt:
			types[t.Source.Pk()] = t.Source
			declaredIn[t.Source.Pk()] = t.Target.FullName()
		case graph.RelOfType:
			types[t.Source.Pk()] = t.Source
			types[t.Target.Pk()] = t.Target
		case graph.RelConstruct:
			types[t.Target.Pk()] = t.Target
		}
	}

	type edge struct{ from, to, arrow string }
	seen := make(map[edge]bool)
	var edges []edge
	add := func(from, to, arrow string) {
		if from == "" || to == "" || from == to {
			return
		}
		e := edge{from, to, arrow}
		if !seen[e] {
			seen[e] = true
			edges = append(edges, e)
		}
	}
	for _, t := range triples {
		switch t.Type {
		case graph.RelOfType:
			add(t.Source.Pk(), t.Target.Pk(), "-.->")
		case graph.RelInvoke:
			add(owner[t.Source.Pk()], owner[t.Target.Pk()], "-->")
		case graph.RelConstruct:
			add(owner[t.Source.Pk()], t.Target.Pk(), "==>")
		}
	}

	// Build node → ID mapping for Mermaid (alphanumeric only), in a stable
	// order so the diagram does not change between runs.
	pks := make([]string, 0, len(types))
	for pk := range types {
		pks = append(pks, pk)
	}
	sort.Slice(pks, func(i, j int) bool {
		return types[pks[i]].FullName() < types[pks[j]].FullName()
	})
	nodeIDs := make(map[string]string, len(pks))
	for i, pk := range pks {
		nodeIDs[pk] = fmt.Sprintf("N%d", i)
	}

	byFile := make(map[string][]string)
	var loose []string
	for _, pk := range pks {
		if f, ok := declaredIn[pk]; ok {
			byFile[f] = append(byFile[f], pk)
		} else {
			loose = append(loose, pk)
		}
	}
	files := make([]string, 0, len(byFile))
	for f := range byFile {
		files = append(files, f)
	}
	sort.Strings(files)

	var sb strings.Builder
	sb.WriteString("graph TD\n")
	for i, f := range files {
		fmt.Fprintf(&sb, "  subgraph F%d[\"%s\"]\n", i, escape(shortPath(f)))
		for _, pk := range byFile[f] {
			fmt.Fprintf(&sb, "    %s\n", nodeShape(nodeIDs[pk], types[pk]))
		}
		sb.WriteString("  end\n")
	}
	for _, pk := range loose {
		fmt.Fprintf(&sb, "  %s\n", nodeShape(nodeIDs[pk], types[pk]))
	}

	sort.SliceStable(edges, func(i, j int) bool {
		if edges[i].from != edges[j].from {
			return nodeIDs[edges[i].from] < nodeIDs[edges[j].from]
		}
		return nodeIDs[edges[i].to] < nodeIDs[edges[j].to]
	})
	for _, e := range edges {
		fmt.Fprintf(&sb, "  %s %s %s\n", nodeIDs[e.from], e.arrow, nodeIDs[e.to])
	}
	return sb.String()
}

// nodeShape renders classes as rectangles and interfaces as rounded boxes.
func nodeShape(id string, n graph.Node) string {
	if n.Label() == graph.LabelInterface {
		return fmt.Sprintf("%s([\"%s\"])", id, escape(n.Name()))
	}
	return fmt.Sprintf("%s[\"%s\"]", id, escape(n.Name()))
}

func escape(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}

// shortPath returns the last 2 path segments for readability.
func shortPath(path string) string {
	parts := strings.Split(path, "/")
	if len(parts) <= 2 {
		return path
	}
	return strings.Join(parts[len(parts)-2:], "/")
}
