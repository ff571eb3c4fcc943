//go:build cgo

package main

import (
	"github.com/dusk-indust/codekg/internal/graph"
)

func openKuzu(path string) (graph.Store, error) {
	return graph.NewKuzuFileStore(path)
}
