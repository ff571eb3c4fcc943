package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/codekg/internal/graph"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"A/B/file.ts", "A/B/file.ts"},
		{`A\B\file.ts`, "A/B/file.ts"},
		{"./A/B/file.ts", "A/B/file.ts"},
		{"/A/B/file.ts", "A/B/file.ts"},
		{"A//B/./file.ts", "A/B/file.ts"},
		{"A/B/../C/file.ts", "A/C/file.ts"},
		{"file.ts", "file.ts"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePath(tt.in))
		})
	}
}

func TestFolderChain_TwoFolders(t *testing.T) {
	file := NewFileNode("A/B/file.ext")
	triples := FolderChain("A/B/file.ext", file)

	require.Len(t, triples, 2)
	assert.Equal(t, "INCLUDED_IN(Folder(A/B), Folder(A))", triples[0].String())
	assert.Equal(t, "B", triples[0].Source.Name())
	assert.Equal(t, "INCLUDED_IN(File(A/B/file.ext), Folder(A/B))", triples[1].String())
	assert.Same(t, file, triples[1].Source)
	// The folder that contains the file is the one created above.
	assert.Equal(t, triples[0].Source.Pk(), triples[1].Target.Pk())
}

func TestFolderChain_SingleSegment(t *testing.T) {
	assert.Empty(t, FolderChain("file.ext", NewFileNode("file.ext")))
}

func TestFolderChain_FolderNamedLikeFile(t *testing.T) {
	// A folder sharing the file's name does not end the walk early.
	file := NewFileNode("src/index.ts/index.ts")
	triples := FolderChain("src/index.ts/index.ts", file)

	require.Len(t, triples, 2)
	assert.Equal(t, graph.LabelFolder, triples[0].Source.Label())
	assert.Equal(t, "src/index.ts", triples[0].Source.FullName())
	assert.Equal(t, graph.LabelFile, triples[1].Source.Label())
}

func TestFolderChain_SharedParentsConverge(t *testing.T) {
	a := FolderChain("P/S1/a.ts", NewFileNode("P/S1/a.ts"))
	b := FolderChain("P/S2/b.ts", NewFileNode("P/S2/b.ts"))

	// Both chains refer to the same P folder identity.
	assert.Equal(t, a[0].Target.Pk(), b[0].Target.Pk())
	assert.NotEqual(t, a[0].Source.Pk(), b[0].Source.Pk())
}

func TestNewFileNode(t *testing.T) {
	f := NewFileNode("root/Proj/Src/A.ts")
	assert.Equal(t, "A.ts", f.Name())
	assert.Equal(t, "root/Proj/Src/A.ts", f.FullName())
}
