package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/codekg/internal/graph"
)

// sample is a small graph: class B extends A, implements I, and B.run calls
// A.start and constructs Logger.
func sample() []graph.Triple {
	file := graph.NewFileNode("app/src/b.ts", "b.ts")
	folder := graph.NewFolderNode("app/src", "src")
	a := graph.NewClassNode("app.src.a.A", "A", []string{"export"})
	b := graph.NewClassNode("app.src.b.B", "B", []string{"export"})
	i := graph.NewInterfaceNode("app.src.b.I", "I", nil)
	logger := graph.NewClassNode("app.src.log.Logger", "Logger", nil)
	start := graph.NewMethodNode("app.src.a.A.start", "start", nil, "void", []string{"public"})
	run := graph.NewMethodNode("app.src.b.B.run", "run", []graph.Param{{Name: "n", Type: "number"}}, "void", nil)

	return []graph.Triple{
		graph.DeclaredAt(b, file),
		graph.FileIncludedIn(file, folder),
		graph.DeclaredAt(i, file),
		graph.OfType(b, a),
		graph.OfType(b, i),
		graph.Have(b, run),
		graph.Have(a, start),
		graph.Invoke(run, start),
		graph.Invoke(run, start),
		graph.Construct(run, logger),
	}
}

func TestWriteCypher(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCypher(&buf, sample()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, len(graph.Labels)+1+len(sample()))
	assert.Equal(t, "CREATE CONSTRAINT class_pk IF NOT EXISTS FOR (n:Class) REQUIRE n.pk IS UNIQUE;", lines[0])
	assert.Empty(t, lines[len(graph.Labels)])

	first, err := graph.MergeTripleLiteral(sample()[0])
	require.NoError(t, err)
	assert.Equal(t, first, lines[len(graph.Labels)+1])
	for _, l := range lines[len(graph.Labels)+1:] {
		assert.True(t, strings.HasPrefix(l, "MERGE (a:"), l)
		assert.True(t, strings.HasSuffix(l, ";"), l)
	}
}

func TestWriteCypher_InvalidTriple(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCypher(&buf, []graph.Triple{{Type: graph.RelHave}})
	assert.ErrorIs(t, err, graph.ErrInvalidTriple)
}

func TestWriteJSONL(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONL(&buf, sample()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, len(sample()))

	var have TripleExport
	require.NoError(t, json.Unmarshal([]byte(lines[5]), &have))
	assert.Equal(t, graph.RelHave, have.Type)
	assert.Equal(t, graph.LabelClass, have.Source.Label)
	assert.Equal(t, "app.src.b.B", have.Source.FullName)
	assert.Equal(t, "B", have.Source.Name)
	assert.Equal(t, map[string]any{graph.PropModifiers: "export"}, have.Source.Properties)
	assert.Equal(t, graph.LabelMethod, have.Target.Label)
	assert.Equal(t, "number n", have.Target.Properties[graph.PropArguments])
	assert.Equal(t, "void", have.Target.Properties[graph.PropReturnType])

	// Folders carry no properties beyond their identity.
	var included TripleExport
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &included))
	assert.Nil(t, included.Target.Properties)
	assert.NotEmpty(t, included.Target.Pk)
}

func TestWriteJSONL_InvalidTriple(t *testing.T) {
	var buf bytes.Buffer
	err := WriteJSONL(&buf, []graph.Triple{{Type: graph.RelInvoke}})
	assert.ErrorIs(t, err, graph.ErrInvalidTriple)
}

func TestGenerateMermaid(t *testing.T) {
	out := GenerateMermaid(sample())

	// Types sort by full name: A, B, I, Logger.
	assert.Equal(t, `graph TD
  subgraph F0["src/b.ts"]
    N1["B"]
    N2(["I"])
  end
  N0["A"]
  N3["Logger"]
  N1 -.-> N0
  N1 --> N0
  N1 -.-> N2
  N1 ==> N3
`, out)
}

func TestGenerateMermaid_Empty(t *testing.T) {
	assert.Equal(t, "graph TD\n", GenerateMermaid(nil))
}

func TestShortPath(t *testing.T) {
	assert.Equal(t, "b.ts", shortPath("b.ts"))
	assert.Equal(t, "src/b.ts", shortPath("src/b.ts"))
	assert.Equal(t, "src/b.ts", shortPath("app/src/b.ts"))
}
