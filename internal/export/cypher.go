package export

import (
	"bufio"
	"fmt"
	"io"

	"github.com/dusk-indust/codekg/internal/graph"
)

// WriteCypher writes a Cypher script that rebuilds the graph in Neo4j: the pk
// uniqueness constraints first, then one MERGE statement per triple in order.
func WriteCypher(w io.Writer, triples []graph.Triple) error {
	bw := bufio.NewWriter(w)
	for _, stmt := range graph.ConstraintStatements() {
		fmt.Fprintf(bw, "%s;\n", stmt)
	}
	bw.WriteByte('\n')
	for _, t := range triples {
		stmt, err := graph.MergeTripleLiteral(t)
		if err != nil {
			return fmt.Errorf("export: cypher: %w", err)
		}
		bw.WriteString(stmt)
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("export: cypher: %w", err)
	}
	return nil
}
