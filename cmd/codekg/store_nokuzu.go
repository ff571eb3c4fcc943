//go:build !cgo

package main

import (
	"errors"

	"github.com/dusk-indust/codekg/internal/graph"
)

func openKuzu(string) (graph.Store, error) {
	return nil, errors.New("kuzu store requires a cgo build")
}
