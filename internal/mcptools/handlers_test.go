//go:build cgo

package mcptools

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/codekg/internal/graph"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// fixtureManifest returns the absolute path of a fixture manifest. Tests run
// from internal/mcptools/, so fixtures live under ../../testdata/fixtures.
func fixtureManifest(t *testing.T, rel string) string {
	t.Helper()
	abs, err := filepath.Abs(filepath.Join("../../testdata/fixtures", rel))
	require.NoError(t, err)
	return abs
}

// newTestService creates a service over a fresh MemStore.
func newTestService(t *testing.T) (*CodeIntelService, *graph.MemStore) {
	t.Helper()
	store := graph.NewMemStore()
	require.NoError(t, store.InitSchema(context.Background()))
	return NewCodeIntelService(store, nil), store
}

// seedGraph stores class Square extending Shape with one method each, the
// method of Square calling the method of Shape.
func seedGraph(t *testing.T, store *graph.MemStore) (square, area *graph.MethodNode) {
	t.Helper()
	shape := graph.NewClassNode("geo.Shape", "Shape", []string{"export"})
	sq := graph.NewClassNode("geo.Square", "Square", []string{"export"})
	area = graph.NewMethodNode("geo.Shape.area", "area", nil, "number", nil)
	square = graph.NewMethodNode("geo.Square.size", "size", nil, "number", nil)
	require.NoError(t, store.MergeTriples(context.Background(), []graph.Triple{
		graph.OfType(sq, shape),
		graph.Have(shape, area),
		graph.Have(sq, square),
		graph.Invoke(square, area),
	}))
	return square, area
}

// ---------------------------------------------------------------------------
// TestBuildGraph
// ---------------------------------------------------------------------------

func TestBuildGraph(t *testing.T) {
	t.Run("indexes go_project fixture", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, out, err := svc.BuildGraph(context.Background(), nil, BuildGraphInput{
			Projects: []string{fixtureManifest(t, "go_project/go.mod")},
		})
		require.NoError(t, err)

		assert.NotEmpty(t, out.RunID)
		assert.Equal(t, 4, out.Files, "go_project has 4 non-test Go files")
		assert.Positive(t, out.Triples)
		assert.Positive(t, out.Stats.Nodes[graph.LabelClass])
		assert.Equal(t, 1, out.Stats.Edges[graph.RelDependsOn])
	})

	t.Run("tier and language are honored", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, out, err := svc.BuildGraph(context.Background(), nil, BuildGraphInput{
			Projects:  []string{fixtureManifest(t, "ts_project/package.json"), fixtureManifest(t, "go_project/go.mod")},
			Tier:      "CODE",
			Languages: []string{"TypeScript"},
		})
		require.NoError(t, err)
		assert.Equal(t, 5, out.Files)
		assert.Zero(t, out.Stats.Nodes[graph.LabelProject])
	})

	t.Run("delete clears previous runs", func(t *testing.T) {
		svc, store := newTestService(t)
		seedGraph(t, store)

		_, out, err := svc.BuildGraph(context.Background(), nil, BuildGraphInput{
			Projects: []string{fixtureManifest(t, "go_project/go.mod")},
			Tier:     "project",
			Delete:   true,
		})
		require.NoError(t, err)
		assert.Equal(t, map[graph.RelType]int{graph.RelDependsOn: 1}, out.Stats.Edges)
	})

	t.Run("missing manifests returns error", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, _, err := svc.BuildGraph(context.Background(), nil, BuildGraphInput{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "solution or projects is required")
	})

	t.Run("non-existent manifest returns error", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, _, err := svc.BuildGraph(context.Background(), nil, BuildGraphInput{
			Projects: []string{"/tmp/this-path-does-not-exist-at-all-12345/go.mod"},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "build graph")
	})

	t.Run("invalid tier and language return errors", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, _, err := svc.BuildGraph(context.Background(), nil, BuildGraphInput{
			Projects: []string{fixtureManifest(t, "go_project/go.mod")},
			Tier:     "everything",
		})
		assert.Error(t, err)

		_, _, err = svc.BuildGraph(context.Background(), nil, BuildGraphInput{
			Projects:  []string{fixtureManifest(t, "go_project/go.mod")},
			Languages: []string{"python"},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported language")
	})
}

// ---------------------------------------------------------------------------
// TestQueryNodes
// ---------------------------------------------------------------------------

func TestQueryNodes(t *testing.T) {
	t.Run("label and name filter", func(t *testing.T) {
		svc, store := newTestService(t)
		seedGraph(t, store)

		_, out, err := svc.QueryNodes(context.Background(), nil, QueryNodesInput{
			Label: "class",
			Name:  "squ",
		})
		require.NoError(t, err)
		require.Equal(t, 1, out.Total)
		assert.Equal(t, "geo.Square", out.Nodes[0].FullName)
		assert.Equal(t, graph.LabelClass, out.Nodes[0].Label)
	})

	t.Run("limit is respected", func(t *testing.T) {
		svc, store := newTestService(t)
		seedGraph(t, store)

		_, out, err := svc.QueryNodes(context.Background(), nil, QueryNodesInput{Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, 2, out.Total)
	})

	t.Run("default limit returns every seeded node", func(t *testing.T) {
		svc, store := newTestService(t)
		seedGraph(t, store)

		_, out, err := svc.QueryNodes(context.Background(), nil, QueryNodesInput{})
		require.NoError(t, err)
		assert.Equal(t, 4, out.Total)
	})

	t.Run("unknown label returns error", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, _, err := svc.QueryNodes(context.Background(), nil, QueryNodesInput{Label: "Function"})
		assert.ErrorIs(t, err, graph.ErrUnknownLabel)
	})

	t.Run("no matches returns empty", func(t *testing.T) {
		svc, store := newTestService(t)
		seedGraph(t, store)

		_, out, err := svc.QueryNodes(context.Background(), nil, QueryNodesInput{Name: "ZzNonExistent"})
		require.NoError(t, err)
		assert.Equal(t, 0, out.Total)
		assert.NotNil(t, out.Nodes)
	})
}

// ---------------------------------------------------------------------------
// TestGetRelationships
// ---------------------------------------------------------------------------

func TestGetRelationships(t *testing.T) {
	svc, store := newTestService(t)
	size, area := seedGraph(t, store)
	ctx := context.Background()

	_, out, err := svc.GetRelationships(ctx, nil, GetRelationshipsInput{Label: "Method", Pk: size.Pk(), Direction: "out"})
	require.NoError(t, err)
	require.Len(t, out.Edges, 1)
	assert.Equal(t, graph.RelInvoke, out.Edges[0].Type)
	assert.Equal(t, area.Pk(), out.Edges[0].TargetPk)

	_, out, err = svc.GetRelationships(ctx, nil, GetRelationshipsInput{Label: "Method", Pk: size.Pk(), Direction: "in"})
	require.NoError(t, err)
	require.Len(t, out.Edges, 1)
	assert.Equal(t, graph.RelHave, out.Edges[0].Type)

	_, out, err = svc.GetRelationships(ctx, nil, GetRelationshipsInput{Label: "Method", Pk: size.Pk()})
	require.NoError(t, err)
	assert.Len(t, out.Edges, 2)

	_, out, err = svc.GetRelationships(ctx, nil, GetRelationshipsInput{Label: "method", Pk: "1:0000000000000000"})
	require.NoError(t, err)
	assert.Empty(t, out.Edges)

	_, _, err = svc.GetRelationships(ctx, nil, GetRelationshipsInput{})
	assert.Error(t, err)

	_, _, err = svc.GetRelationships(ctx, nil, GetRelationshipsInput{Label: "Method", Pk: size.Pk(), Direction: "upstream"})
	assert.Error(t, err)

	_, _, err = svc.GetRelationships(ctx, nil, GetRelationshipsInput{Pk: size.Pk()})
	assert.ErrorIs(t, err, graph.ErrUnknownLabel)
}

func TestGetRelationships_LabelDisambiguatesPk(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	project := graph.NewProjectNode("shapes", "shapes")
	folder := graph.NewFolderNode("shapes", "shapes")
	require.NoError(t, store.MergeTriples(ctx, []graph.Triple{
		graph.DependsOnPackage(project, graph.NewPackageNode("lodash", "lodash", "4.17.21")),
		graph.FolderIncludedIn(graph.NewFolderNode("shapes/src", "src"), folder),
	}))

	_, out, err := svc.GetRelationships(ctx, nil, GetRelationshipsInput{Label: "Project", Pk: project.Pk()})
	require.NoError(t, err)
	require.Len(t, out.Edges, 1)
	assert.Equal(t, graph.RelDependsOn, out.Edges[0].Type)

	_, out, err = svc.GetRelationships(ctx, nil, GetRelationshipsInput{Label: "Folder", Pk: folder.Pk()})
	require.NoError(t, err)
	require.Len(t, out.Edges, 1)
	assert.Equal(t, graph.RelIncludedIn, out.Edges[0].Type)
}

// ---------------------------------------------------------------------------
// TestGraphStats
// ---------------------------------------------------------------------------

func TestGraphStats(t *testing.T) {
	svc, store := newTestService(t)
	seedGraph(t, store)

	_, out, err := svc.GraphStats(context.Background(), nil, GraphStatsInput{})
	require.NoError(t, err)
	assert.Equal(t, 4, out.Stats.NodeCount)
	assert.Equal(t, 4, out.Stats.EdgeCount)
	assert.Equal(t, 2, out.Stats.Nodes[graph.LabelMethod])
	assert.Equal(t, 1, out.Stats.Edges[graph.RelOfType])
}
