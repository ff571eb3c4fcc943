package analyzer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/codekg/internal/graph"
	"github.com/dusk-indust/codekg/internal/source"
)

const (
	tsManifest = "../../testdata/fixtures/ts_project/package.json"
	goManifest = "../../testdata/fixtures/go_project/go.mod"
)

func writeFile(t *testing.T, p, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func edgesOf(store *graph.MemStore, rel graph.RelType) []graph.EdgeRecord {
	var out []graph.EdgeRecord
	for _, e := range store.Edges() {
		if e.Type == rel {
			out = append(out, e)
		}
	}
	return out
}

// failingStore rejects every write.
type failingStore struct {
	*graph.MemStore
}

func (failingStore) MergeTriples(context.Context, []graph.Triple) error {
	return errors.New("connection reset")
}

func TestParseTier(t *testing.T) {
	tests := []struct {
		in      string
		want    Tier
		wantErr bool
	}{
		{"project", TierProject, false},
		{"code", TierCode, false},
		{"all", TierAll, false},
		{"", "", true},
		{"everything", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTier(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTier)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRun_TypeScriptAllTiers(t *testing.T) {
	store := graph.NewMemStore()
	a := New(store, WithWorkers(2), WithBatchSize(7))

	res, err := a.Run(context.Background(), Request{
		Projects:    []string{tsManifest},
		Tier:        TierAll,
		KeepTriples: true,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 1, res.Projects)
	assert.Equal(t, 5, res.Files)
	assert.Zero(t, res.Skipped)
	assert.Equal(t, len(res.Triples), res.TripleCount)
	assert.Positive(t, res.Types)
	assert.Positive(t, res.Methods)

	deps := edgesOf(store, graph.RelDependsOn)
	require.Len(t, deps, 2)
	for _, e := range deps {
		assert.Equal(t, graph.LabelProject, e.SourceLabel)
		assert.Equal(t, graph.LabelPackage, e.TargetLabel)
	}
	pkgs, err := store.FindNodes(context.Background(), graph.NodeQuery{Label: graph.LabelPackage, Name: "lodash"})
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	assert.Equal(t, "^4.17.21", pkgs[0].Properties[graph.PropVersion])

	classes, err := store.FindNodes(context.Background(), graph.NodeQuery{Label: graph.LabelClass, Name: "UserService"})
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, "app.src.services.user-service.UserService", classes[0].FullName)

	assert.NotEmpty(t, edgesOf(store, graph.RelDeclaredAt))
	assert.NotEmpty(t, edgesOf(store, graph.RelIncludedIn))

	assert.Equal(t, 5.0, testutil.ToFloat64(a.Metrics().filesTotal.WithLabelValues("typescript", "extracted")))
	assert.Equal(t, float64(len(deps)), testutil.ToFloat64(a.Metrics().triplesTotal.WithLabelValues("DEPENDS_ON")))
}

func TestRun_ProjectTierOnly(t *testing.T) {
	store := graph.NewMemStore()
	res, err := New(store).Run(context.Background(), Request{
		Projects: []string{goManifest},
		Tier:     TierProject,
	})
	require.NoError(t, err)
	assert.Zero(t, res.Files)
	assert.Equal(t, 1, res.TripleCount)

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[graph.RelType]int{graph.RelDependsOn: 1}, stats.Edges)

	pkgs, err := store.FindNodes(context.Background(), graph.NodeQuery{Label: graph.LabelPackage})
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	assert.Equal(t, "github.com/google/uuid", pkgs[0].FullName)
}

func TestRun_CodeTierOnly(t *testing.T) {
	store := graph.NewMemStore()
	res, err := New(store).Run(context.Background(), Request{
		Projects: []string{goManifest},
		Tier:     TierCode,
	})
	require.NoError(t, err)
	// user_test.go is not source.
	assert.Equal(t, 4, res.Files)

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Edges[graph.RelDependsOn])
	assert.Zero(t, stats.Nodes[graph.LabelProject])
	assert.Positive(t, stats.Nodes[graph.LabelClass])
}

func TestRun_LanguageFilter(t *testing.T) {
	store := graph.NewMemStore()
	a := New(store)
	res, err := a.Run(context.Background(), Request{
		Projects:  []string{tsManifest, goManifest},
		Tier:      TierCode,
		Languages: []source.Language{source.LangGo},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Projects)
	assert.Equal(t, 4, res.Files)
	assert.Zero(t, testutil.ToFloat64(a.Metrics().filesTotal.WithLabelValues("typescript", "extracted")))

	ts, err := store.FindNodes(context.Background(), graph.NodeQuery{Name: "UserService"})
	require.NoError(t, err)
	assert.Empty(t, ts)
}

func TestRun_Idempotent(t *testing.T) {
	store := graph.NewMemStore()
	a := New(store)
	req := Request{Projects: []string{tsManifest, goManifest}}

	_, err := a.Run(context.Background(), req)
	require.NoError(t, err)
	first, err := store.Stats(context.Background())
	require.NoError(t, err)

	_, err = a.Run(context.Background(), req)
	require.NoError(t, err)
	second, err := store.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRun_DeleteClearsStore(t *testing.T) {
	store := graph.NewMemStore()
	stale := graph.NewClassNode("old.Stale", "Stale", nil)
	require.NoError(t, store.MergeTriples(context.Background(), []graph.Triple{
		graph.DeclaredAt(stale, graph.NewFileNode("old/stale.ts", "stale.ts")),
	}))

	_, err := New(store).Run(context.Background(), Request{
		Projects: []string{goManifest},
		Tier:     TierProject,
		Delete:   true,
	})
	require.NoError(t, err)
	assert.Nil(t, store.Node(graph.LabelClass, stale.Pk()))

	// Without Delete the graph accumulates.
	require.NoError(t, store.MergeTriples(context.Background(), []graph.Triple{
		graph.DeclaredAt(stale, graph.NewFileNode("old/stale.ts", "stale.ts")),
	}))
	_, err = New(store).Run(context.Background(), Request{
		Projects: []string{goManifest},
		Tier:     TierProject,
	})
	require.NoError(t, err)
	assert.NotNil(t, store.Node(graph.LabelClass, stale.Pk()))
}

func TestRun_WorkspaceProjectDependencies(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "mono")
	writeFile(t, filepath.Join(dir, "package.json"), `{"workspaces": ["packages/*"]}`)
	writeFile(t, filepath.Join(dir, "packages", "core", "package.json"), `{"name": "@acme/core"}`)
	writeFile(t, filepath.Join(dir, "packages", "core", "src", "shape.ts"), "export class Shape {\n  area(): number { return 0; }\n}\n")
	writeFile(t, filepath.Join(dir, "packages", "db", "package.json"), `{"name": "@acme/db", "dependencies": {"@acme/core": "*", "pg": "8.11.0"}}`)
	writeFile(t, filepath.Join(dir, "packages", "db", "src", "square.ts"), `import { Shape } from "@acme/core/src/shape";

export class Square extends Shape {
  size(): number { return this.area(); }
}
`)

	store := graph.NewMemStore()
	res, err := New(store).Run(context.Background(), Request{
		Solution: filepath.Join(dir, "package.json"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Projects)
	assert.Equal(t, 2, res.Files)

	var toProject, toPackage int
	for _, e := range edgesOf(store, graph.RelDependsOn) {
		switch e.TargetLabel {
		case graph.LabelProject:
			toProject++
		case graph.LabelPackage:
			toPackage++
		}
	}
	assert.Equal(t, 1, toProject)
	assert.Equal(t, 1, toPackage)

	projects, err := store.FindNodes(context.Background(), graph.NodeQuery{Label: graph.LabelProject, Name: "core"})
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "@acme/core", projects[0].FullName)
	assert.Equal(t, "core", projects[0].Name)
}

func TestRun_ManifestErrors(t *testing.T) {
	store := graph.NewMemStore()
	_, err := New(store).Run(context.Background(), Request{})
	assert.Error(t, err)

	_, err = New(store).Run(context.Background(), Request{
		Solution: "mono/package.json",
		Projects: []string{tsManifest},
	})
	assert.Error(t, err)
}

func TestRun_StoreFailure(t *testing.T) {
	a := New(failingStore{graph.NewMemStore()})
	_, err := a.Run(context.Background(), Request{
		Projects: []string{tsManifest},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	// Nothing reached the store, so no triples are reported.
	n, err := testutil.GatherAndCount(a.Metrics().Registry(), "codekg_analyzer_triples_total")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(graph.NewMemStore()).Run(ctx, Request{Projects: []string{tsManifest}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMetrics_WriteTextfile(t *testing.T) {
	a := New(graph.NewMemStore())
	_, err := a.Run(context.Background(), Request{Projects: []string{goManifest}})
	require.NoError(t, err)

	p := filepath.Join(t.TempDir(), "codekg.prom")
	require.NoError(t, a.Metrics().WriteTextfile(p))
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), `codekg_analyzer_files_total{language="go",status="extracted"} 4`)
	assert.Contains(t, string(data), "codekg_analyzer_run_seconds_count 1")

	n, err := testutil.GatherAndCount(a.Metrics().Registry(), "codekg_analyzer_run_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
