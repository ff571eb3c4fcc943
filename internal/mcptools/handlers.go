package mcptools

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/codekg/internal/analyzer"
	"github.com/dusk-indust/codekg/internal/graph"
	"github.com/dusk-indust/codekg/internal/source"
)

// defaultLimit caps query_nodes results when the caller gives no limit.
const defaultLimit = 20

// CodeIntelService holds the graph store and analyzer used by MCP tool handlers.
type CodeIntelService struct {
	store    graph.Store
	analyzer *analyzer.Analyzer
	log      *slog.Logger

	// builds serializes build_graph calls; a run clears and rewrites the
	// whole store.
	builds sync.Mutex
}

// NewCodeIntelService creates a CodeIntelService over store. Builds run with
// the given analyzer options.
func NewCodeIntelService(store graph.Store, log *slog.Logger, opts ...analyzer.Option) *CodeIntelService {
	if log == nil {
		log = slog.Default()
	}
	opts = append([]analyzer.Option{analyzer.WithLogger(log)}, opts...)
	return &CodeIntelService{
		store:    store,
		analyzer: analyzer.New(store, opts...),
		log:      log.With("component", "mcptools"),
	}
}

// BuildGraph runs the analyzer over a solution or a list of projects and
// returns the run summary with the resulting graph statistics.
func (s *CodeIntelService) BuildGraph(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input BuildGraphInput,
) (*mcp.CallToolResult, BuildGraphOutput, error) {
	if input.Solution == "" && len(input.Projects) == 0 {
		return nil, BuildGraphOutput{}, fmt.Errorf("solution or projects is required")
	}

	tier := analyzer.TierAll
	if input.Tier != "" {
		t, err := analyzer.ParseTier(strings.ToLower(input.Tier))
		if err != nil {
			return nil, BuildGraphOutput{}, err
		}
		tier = t
	}

	langs, err := parseLanguages(input.Languages)
	if err != nil {
		return nil, BuildGraphOutput{}, err
	}

	s.builds.Lock()
	defer s.builds.Unlock()

	res, err := s.analyzer.Run(ctx, analyzer.Request{
		Solution:    input.Solution,
		Projects:    input.Projects,
		Tier:        tier,
		Delete:      input.Delete,
		ExcludeDirs: input.ExcludeDirs,
		Languages:   langs,
	})
	if err != nil {
		return nil, BuildGraphOutput{}, fmt.Errorf("build graph: %w", err)
	}

	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, BuildGraphOutput{}, fmt.Errorf("stats: %w", err)
	}

	out := BuildGraphOutput{
		RunID:   res.RunID,
		Files:   res.Files,
		Skipped: res.Skipped,
		Triples: res.TripleCount,
		Stats:   *stats,
	}
	if len(res.Dropped) > 0 {
		out.Dropped = make(map[string]int, len(res.Dropped))
		for kind, n := range res.Dropped {
			out.Dropped[string(kind)] = n
		}
	}
	s.log.Info("graph built", "run", res.RunID, "triples", res.TripleCount)
	return nil, out, nil
}

func parseLanguages(in []string) ([]source.Language, error) {
	var out []source.Language
	for _, l := range in {
		lang := source.Language(strings.ToLower(l))
		if !slices.Contains(source.Languages, lang) {
			return nil, fmt.Errorf("unsupported language %q", l)
		}
		out = append(out, lang)
	}
	return out, nil
}

// QueryNodes searches for nodes by label and name substring.
func (s *CodeIntelService) QueryNodes(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryNodesInput,
) (*mcp.CallToolResult, QueryNodesOutput, error) {
	q := graph.NodeQuery{Name: input.Name, Limit: input.Limit}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if input.Label != "" {
		label, ok := parseLabel(input.Label)
		if !ok {
			return nil, QueryNodesOutput{}, fmt.Errorf("query nodes: %w: %q", graph.ErrUnknownLabel, input.Label)
		}
		q.Label = label
	}

	nodes, err := s.store.FindNodes(ctx, q)
	if err != nil {
		return nil, QueryNodesOutput{}, fmt.Errorf("query nodes: %w", err)
	}
	if nodes == nil {
		nodes = []graph.NodeRecord{}
	}
	return nil, QueryNodesOutput{Nodes: nodes, Total: len(nodes)}, nil
}

// parseLabel matches a label case-insensitively.
func parseLabel(s string) (graph.Label, bool) {
	for _, l := range graph.Labels {
		if strings.EqualFold(string(l), s) {
			return l, true
		}
	}
	return "", false
}

// GetRelationships lists the edges of one node.
func (s *CodeIntelService) GetRelationships(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetRelationshipsInput,
) (*mcp.CallToolResult, GetRelationshipsOutput, error) {
	if input.Pk == "" {
		return nil, GetRelationshipsOutput{}, fmt.Errorf("pk is required")
	}
	label, ok := parseLabel(input.Label)
	if !ok {
		return nil, GetRelationshipsOutput{}, fmt.Errorf("get relationships: %w: %q", graph.ErrUnknownLabel, input.Label)
	}

	dir := graph.DirectionBoth
	switch strings.ToLower(input.Direction) {
	case "", "both":
	case "out":
		dir = graph.DirectionOut
	case "in":
		dir = graph.DirectionIn
	default:
		return nil, GetRelationshipsOutput{}, fmt.Errorf("direction must be out, in or both, got %q", input.Direction)
	}

	edges, err := s.store.Relationships(ctx, label, input.Pk, dir)
	if err != nil {
		return nil, GetRelationshipsOutput{}, fmt.Errorf("get relationships: %w", err)
	}
	if edges == nil {
		edges = []graph.EdgeRecord{}
	}
	return nil, GetRelationshipsOutput{Edges: edges}, nil
}

// GraphStats returns node and edge counts.
func (s *CodeIntelService) GraphStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ GraphStatsInput,
) (*mcp.CallToolResult, GraphStatsOutput, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, GraphStatsOutput{}, fmt.Errorf("stats: %w", err)
	}
	return nil, GraphStatsOutput{Stats: *stats}, nil
}
