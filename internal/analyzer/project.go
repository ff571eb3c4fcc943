package analyzer

import (
	"github.com/dusk-indust/codekg/internal/graph"
	"github.com/dusk-indust/codekg/internal/manifest"
)

// projectTriples returns the dependency edges of every project: to another
// project of the solution when a dependency names one, to a package
// otherwise.
func projectTriples(sol *manifest.Solution) []graph.Triple {
	var out []graph.Triple
	for _, p := range sol.Projects {
		node := projectNode(p)
		for _, dep := range p.Dependencies {
			if local, ok := sol.Lookup(dep.Name); ok {
				if local != p {
					out = append(out, graph.DependsOnProject(node, projectNode(local)))
				}
				continue
			}
			out = append(out, graph.DependsOnPackage(node, graph.NewPackageNode(dep.Name, dep.Name, dep.Version)))
		}
	}
	return out
}

func projectNode(p *manifest.Project) *graph.ProjectNode {
	return graph.NewProjectNode(p.Name, p.ShortName())
}
