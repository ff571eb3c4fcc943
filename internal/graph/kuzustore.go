//go:build cgo

package graph

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	kuzu "github.com/kuzudb/go-kuzu"
)

// KuzuStore implements the Store interface using KuzuDB as the graph backend.
// It requires CGO because the go-kuzu driver wraps KuzuDB's C library.
type KuzuStore struct {
	db   *kuzu.Database
	conn *kuzu.Connection
}

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory KuzuDB instance.
func NewKuzuStore() (*KuzuStore, error) {
	return openKuzu(":memory:")
}

// NewKuzuFileStore creates a KuzuStore backed by a file-based KuzuDB at the
// given directory path. KuzuDB creates the directory itself for new databases.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	// Ensure parent directory exists (KuzuDB creates the leaf directory).
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	return openKuzu(dbPath)
}

func openKuzu(dbPath string) (*KuzuStore, error) {
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(dbPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// Close releases the KuzuDB connection and database.
func (s *KuzuStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// Healthcheck runs a trivial query.
func (s *KuzuStore) Healthcheck(_ context.Context) error {
	if _, err := s.query("RETURN 1", nil); err != nil {
		return fmt.Errorf("kuzu: healthcheck: %w", err)
	}
	return nil
}

// ---------- Schema setup ----------

// ddlStatements derives the DDL executed by InitSchema from the schema
// tables. Node tables precede relationship tables.
func ddlStatements() []string {
	var stmts []string
	for _, l := range Labels {
		cols := make([]string, 0, len(labelColumns[l])+1)
		for _, c := range labelColumns[l] {
			cols = append(cols, c+" STRING")
		}
		cols = append(cols, "PRIMARY KEY("+PropPk+")")
		stmts = append(stmts, fmt.Sprintf("CREATE NODE TABLE IF NOT EXISTS %s(%s)",
			l, strings.Join(cols, ", ")))
	}
	for _, r := range RelTypes {
		pairs := make([]string, 0, len(relEndpoints[r]))
		for _, ep := range relEndpoints[r] {
			pairs = append(pairs, fmt.Sprintf("FROM %s TO %s", ep.From, ep.To))
		}
		stmts = append(stmts, fmt.Sprintf("CREATE REL TABLE IF NOT EXISTS %s(%s)",
			r, strings.Join(pairs, ", ")))
	}
	return stmts
}

// InitSchema creates all node and relationship tables if they do not exist.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	for _, stmt := range ddlStatements() {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// Clear deletes every node of every label along with its relationships.
func (s *KuzuStore) Clear(_ context.Context) error {
	for _, l := range Labels {
		if err := s.exec(fmt.Sprintf("MATCH (n:%s) DETACH DELETE n", l), nil); err != nil {
			return fmt.Errorf("kuzu: clear %s: %w", l, err)
		}
	}
	return nil
}

// ---------- Write operations ----------

// MergeTriples upserts the batch inside one transaction, in order.
func (s *KuzuStore) MergeTriples(ctx context.Context, triples []Triple) error {
	if len(triples) == 0 {
		return nil
	}
	if err := validateBatch(triples); err != nil {
		return err
	}
	if err := s.exec("BEGIN TRANSACTION", nil); err != nil {
		return err
	}
	for _, t := range triples {
		if err := ctx.Err(); err != nil {
			s.rollback()
			return err
		}
		stmt, err := mergeTripleCypher(t, paramValue)
		if err != nil {
			s.rollback()
			return err
		}
		if err := s.exec(stmt, tripleParams(t)); err != nil {
			s.rollback()
			return fmt.Errorf("kuzu: merge %s: %w", t, err)
		}
	}
	return s.exec("COMMIT", nil)
}

func (s *KuzuStore) rollback() {
	_ = s.exec("ROLLBACK", nil)
}

// ---------- Read operations ----------

// FindNodes queries each label's table and merges the results, ordered by
// label then full name.
func (s *KuzuStore) FindNodes(_ context.Context, q NodeQuery) ([]NodeRecord, error) {
	labels := Labels
	if q.Label != "" {
		if _, err := labelIdent(q.Label); err != nil {
			return nil, err
		}
		labels = []Label{q.Label}
	}

	var out []NodeRecord
	for _, l := range labels {
		cols := labelColumns[l]
		ret := make([]string, len(cols))
		for i, c := range cols {
			ret[i] = "n." + c
		}
		cypher := fmt.Sprintf(
			"MATCH (n:%s) WHERE lower(n.name) CONTAINS lower($q) RETURN %s",
			l, strings.Join(ret, ", "))
		rows, err := s.query(cypher, map[string]any{"q": q.Name})
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			out = append(out, rowToNode(l, cols, r))
		}
	}
	slices.SortFunc(out, func(a, b NodeRecord) int {
		if c := strings.Compare(string(a.Label), string(b.Label)); c != 0 {
			return c
		}
		return strings.Compare(a.FullName, b.FullName)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Relationships returns the edges touching the node (label, pk), looked up in
// the label's node table.
func (s *KuzuStore) Relationships(_ context.Context, label Label, pk string, dir Direction) ([]EdgeRecord, error) {
	l, err := labelIdent(label)
	if err != nil {
		return nil, err
	}
	const ret = " RETURN label(r), label(a), a.pk, label(b), b.pk"
	var queries []string
	if dir == DirectionOut || dir == DirectionBoth {
		queries = append(queries, fmt.Sprintf("MATCH (a:%s)-[r]->(b) WHERE a.pk = $pk", l)+ret)
	}
	if dir == DirectionIn || dir == DirectionBoth {
		queries = append(queries, fmt.Sprintf("MATCH (a)-[r]->(b:%s) WHERE b.pk = $pk", l)+ret)
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("kuzu: unknown direction: %s", dir)
	}

	var out []EdgeRecord
	for _, cypher := range queries {
		rows, err := s.query(cypher, map[string]any{"pk": pk})
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			out = append(out, rowToEdge(r))
		}
	}
	return out, nil
}

// ---------- Stats ----------

// Stats returns counts of all node and relationship tables.
func (s *KuzuStore) Stats(_ context.Context) (*GraphStats, error) {
	stats := &GraphStats{Nodes: make(map[Label]int), Edges: make(map[RelType]int)}
	for _, l := range Labels {
		n, err := s.count(fmt.Sprintf("MATCH (n:%s) RETURN count(n)", l))
		if err != nil {
			return nil, err
		}
		if n > 0 {
			stats.Nodes[l] = n
		}
		stats.NodeCount += n
	}
	for _, r := range RelTypes {
		n, err := s.count(fmt.Sprintf("MATCH ()-[r:%s]->() RETURN count(r)", r))
		if err != nil {
			return nil, err
		}
		if n > 0 {
			stats.Edges[r] = n
		}
		stats.EdgeCount += n
	}
	return stats, nil
}

// ---------- Internal helpers ----------

// exec runs a Cypher statement that produces no result rows. Statements with
// parameters are prepared first.
func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	if len(params) == 0 {
		res, err := s.conn.Query(cypher)
		if err != nil {
			return fmt.Errorf("kuzu: execute: %w", err)
		}
		res.Close()
		return nil
	}

	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a parameterized Cypher statement and collects all result rows.
// Each row is a []any slice with values in column order.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

// count runs a single-value count query.
func (s *KuzuStore) count(cypher string) (int, error) {
	rows, err := s.query(cypher, nil)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, nil
	}
	return toInt(rows[0][0]), nil
}

// rowToNode converts a row in labelColumns order into a NodeRecord. Null
// columns are left out of the properties, as they were never assigned.
func rowToNode(l Label, cols []string, r []any) NodeRecord {
	rec := NodeRecord{Label: l, Properties: make(map[string]any, len(cols))}
	for i, c := range cols {
		if r[i] == nil {
			continue
		}
		v := toString(r[i])
		rec.Properties[c] = v
		switch c {
		case PropPk:
			rec.Pk = v
		case PropFullName:
			rec.FullName = v
		case PropName:
			rec.Name = v
		}
	}
	return rec
}
