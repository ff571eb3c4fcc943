package extract

import (
	"path"
	"strings"

	"github.com/dusk-indust/codekg/internal/graph"
)

// NormalizePath converts a file path to the "/"-separated form used as File
// and Folder full names: backslashes become slashes, the path is cleaned and
// any leading "./" or "/" is removed.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	p = path.Clean(p)
	p = strings.TrimLeft(strings.TrimPrefix(p, "./"), "/")
	if p == "." {
		return ""
	}
	return p
}

// NewFileNode returns the File node for a normalized path.
func NewFileNode(p string) *graph.FileNode {
	return graph.NewFileNode(p, path.Base(p))
}

// FolderChain returns the containment triples for a file: one INCLUDED_IN
// per folder below the first segment, then the file into its folder. The
// first segment only seeds the chain, so a single-segment path yields no
// triples.
func FolderChain(p string, file *graph.FileNode) []graph.Triple {
	segments := strings.Split(p, "/")
	if len(segments) < 2 {
		return nil
	}

	full := segments[0]
	parent := graph.NewFolderNode(full, segments[0])
	triples := make([]graph.Triple, 0, len(segments)-1)
	for _, seg := range segments[1 : len(segments)-1] {
		full += "/" + seg
		folder := graph.NewFolderNode(full, seg)
		triples = append(triples, graph.FolderIncludedIn(folder, parent))
		parent = folder
	}
	return append(triples, graph.FileIncludedIn(file, parent))
}
