package mcptools

import "github.com/dusk-indust/codekg/internal/graph"

// --- MCP Tool Input Types ---
// These structs define the JSON schema for each MCP tool's input.
// The MCP Go SDK auto-generates JSON schemas from struct tags.

// BuildGraphInput is the input for the build_graph MCP tool.
type BuildGraphInput struct {
	Solution    string   `json:"solution,omitempty" jsonschema:"absolute path to a solution manifest (package.json with workspaces, or go.work)"`
	Projects    []string `json:"projects,omitempty" jsonschema:"absolute paths to project manifests (package.json or go.mod); exclusive with solution"`
	Tier        string   `json:"tier,omitempty" jsonschema:"what to extract: project, code or all (default: all)"`
	Delete      bool     `json:"delete,omitempty" jsonschema:"clear the graph before writing"`
	Languages   []string `json:"languages,omitempty" jsonschema:"languages to extract (default: all). Values: typescript, go"`
	ExcludeDirs []string `json:"excludeDirs,omitempty" jsonschema:"directory names to skip in addition to .git, node_modules, vendor, dist and build"`
}

// BuildGraphOutput is the result of the build_graph MCP tool.
type BuildGraphOutput struct {
	RunID   string           `json:"runId"`
	Files   int              `json:"files"`
	Skipped int              `json:"skipped"`
	Triples int              `json:"triples"`
	Dropped map[string]int   `json:"dropped,omitempty"`
	Stats   graph.GraphStats `json:"stats"`
}

// QueryNodesInput is the input for the query_nodes MCP tool.
type QueryNodesInput struct {
	Label string `json:"label,omitempty" jsonschema:"node label: Class, Interface, Method, File, Folder, Project or Package"`
	Name  string `json:"name,omitempty" jsonschema:"case-insensitive substring of the node name"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results (default: 20)"`
}

// QueryNodesOutput is the result of the query_nodes MCP tool.
type QueryNodesOutput struct {
	Nodes []graph.NodeRecord `json:"nodes"`
	Total int                `json:"total"`
}

// GetRelationshipsInput is the input for the get_relationships MCP tool.
type GetRelationshipsInput struct {
	Label     string `json:"label" jsonschema:"label of the node, as returned by query_nodes: Project, Package, Folder, File, Class, Interface or Method"`
	Pk        string `json:"pk" jsonschema:"primary key of the node, as returned by query_nodes"`
	Direction string `json:"direction,omitempty" jsonschema:"out (edges leaving the node), in (edges entering it) or both. Default: both"`
}

// GetRelationshipsOutput is the result of the get_relationships MCP tool.
type GetRelationshipsOutput struct {
	Edges []graph.EdgeRecord `json:"edges"`
}

// GraphStatsInput is the input for the graph_stats MCP tool.
type GraphStatsInput struct{}

// GraphStatsOutput is the result of the graph_stats MCP tool.
type GraphStatsOutput struct {
	Stats graph.GraphStats `json:"stats"`
}
