package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeTripleCypher_Parameterized(t *testing.T) {
	g := newSampleGraph()
	stmt, err := mergeTripleCypher(Have(g.a, g.m), paramValue)
	require.NoError(t, err)

	assert.Equal(t,
		"MERGE (a:Class {pk: $src_pk}) SET a.fullName = $src_fullName, a.modifiers = $src_modifiers, a.name = $src_name"+
			" MERGE (b:Method {pk: $dst_pk}) SET b.arguments = $dst_arguments, b.fullName = $dst_fullName,"+
			" b.modifiers = $dst_modifiers, b.name = $dst_name, b.returnType = $dst_returnType"+
			" MERGE (a)-[:HAVE]->(b)",
		stmt)

	params := tripleParams(Have(g.a, g.m))
	assert.Equal(t, g.a.Pk(), params["src_pk"])
	assert.Equal(t, "app.A.M", params["dst_fullName"])
	assert.Equal(t, "void", params["dst_returnType"])
}

func TestMergeTripleCypher_UnknownRel(t *testing.T) {
	g := newSampleGraph()
	_, err := mergeTripleCypher(Triple{Source: g.a, Type: "DROP", Target: g.b}, paramValue)
	assert.ErrorIs(t, err, ErrUnknownLabel)
}

func TestQuoteString(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", `'plain'`},
		{"it's", `'it\'s'`},
		{`say "hi"`, `'say \"hi\"'`},
		{`C:\src`, `'C:\\src'`},
		{"a\nb\tc", `'a\nb\tc'`},
		{"bell\x07", `'bell\u0007'`},
		{"$dst_pk", `'$dst_pk'`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, QuoteString(tt.in))
		})
	}
}

func TestMergeTripleLiteral(t *testing.T) {
	file := NewFileNode("src/it's.ts", "it's.ts")
	folder := NewFolderNode("src", "src")

	stmt, err := MergeTripleLiteral(FileIncludedIn(file, folder))
	require.NoError(t, err)
	assert.Equal(t,
		"MERGE (a:File {pk: '"+file.Pk()+"'}) SET a.fullName = 'src/it\\'s.ts', a.name = 'it\\'s.ts'"+
			" MERGE (b:Folder {pk: '"+folder.Pk()+"'}) SET b.fullName = 'src', b.name = 'src'"+
			" MERGE (a)-[:INCLUDED_IN]->(b);",
		stmt)

	_, err = MergeTripleLiteral(Triple{Source: file, Type: RelIncludedIn})
	assert.ErrorIs(t, err, ErrInvalidTriple)
}

func TestColumns(t *testing.T) {
	for _, l := range Labels {
		cols := Columns(l)
		require.NotEmpty(t, cols)
		assert.Equal(t, PropPk, cols[0], "pk is the first column of %s", l)
	}
}
