package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// DefaultNeo4jURI is the bolt endpoint used when none is configured.
const DefaultNeo4jURI = "neo4j://localhost:7687"

// ErrBadCredentials is returned for a credential string that is not
// "database:user:password".
var ErrBadCredentials = errors.New("credentials must be in format database:user:password")

// Credentials identifies a Neo4j database and the user to connect as.
type Credentials struct {
	Database string
	User     string
	Password string
}

// ParseCredentials parses "database:user:password". The password may itself
// contain colons.
func ParseCredentials(s string) (Credentials, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return Credentials{}, ErrBadCredentials
	}
	return Credentials{Database: parts[0], User: parts[1], Password: parts[2]}, nil
}

// Neo4jStore implements Store on a Neo4j server over bolt.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
}

// Compile-time check that Neo4jStore satisfies Store.
var _ Store = (*Neo4jStore)(nil)

// NewNeo4jStore creates a driver for uri. It does not contact the server;
// call Healthcheck for that.
func NewNeo4jStore(uri string, creds Credentials) (*Neo4jStore, error) {
	if uri == "" {
		uri = DefaultNeo4jURI
	}
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(creds.User, creds.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j: create driver: %w", err)
	}
	return &Neo4jStore{driver: driver, database: creds.Database}, nil
}

// Close releases the driver's connection pool.
func (s *Neo4jStore) Close() error {
	return s.driver.Close(context.Background())
}

// Healthcheck verifies the server is reachable and the credentials are accepted.
func (s *Neo4jStore) Healthcheck(ctx context.Context) error {
	if err := s.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("neo4j: healthcheck: %w", err)
	}
	return nil
}

// ---------- Schema setup ----------

// InitSchema creates a uniqueness constraint on pk for every label, which
// also gives MERGE an index to match on.
func (s *Neo4jStore) InitSchema(ctx context.Context) error {
	stmts := ConstraintStatements()
	// Schema commands cannot share a transaction with each other.
	for _, stmt := range stmts {
		if err := s.write(ctx, func(tx neo4j.ManagedTransaction) error {
			return run(ctx, tx, stmt, nil)
		}); err != nil {
			return fmt.Errorf("neo4j: init schema: %w", err)
		}
	}
	return nil
}

// Clear deletes every node and relationship.
func (s *Neo4jStore) Clear(ctx context.Context) error {
	err := s.write(ctx, func(tx neo4j.ManagedTransaction) error {
		return run(ctx, tx, "MATCH (n) DETACH DELETE n", nil)
	})
	if err != nil {
		return fmt.Errorf("neo4j: clear: %w", err)
	}
	return nil
}

// ---------- Write operations ----------

// MergeTriples upserts the batch in a single write transaction, in order.
func (s *Neo4jStore) MergeTriples(ctx context.Context, triples []Triple) error {
	if len(triples) == 0 {
		return nil
	}
	if err := validateBatch(triples); err != nil {
		return err
	}
	err := s.write(ctx, func(tx neo4j.ManagedTransaction) error {
		for _, t := range triples {
			stmt, err := mergeTripleCypher(t, paramValue)
			if err != nil {
				return err
			}
			if err := run(ctx, tx, stmt, tripleParams(t)); err != nil {
				return fmt.Errorf("%s: %w", t, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("neo4j: merge triples: %w", err)
	}
	return nil
}

// ---------- Read operations ----------

// FindNodes returns nodes matching q ordered by label and full name.
func (s *Neo4jStore) FindNodes(ctx context.Context, q NodeQuery) ([]NodeRecord, error) {
	match := "MATCH (n) WHERE any(l IN labels(n) WHERE l IN $labels)"
	labels := make([]string, 0, len(Labels))
	for _, l := range Labels {
		labels = append(labels, string(l))
	}
	if q.Label != "" {
		label, err := labelIdent(q.Label)
		if err != nil {
			return nil, err
		}
		match = fmt.Sprintf("MATCH (n:%s) WHERE true", label)
	}
	cypher := match + ` AND toLower(n.name) CONTAINS toLower($q)
		RETURN labels(n)[0], n.pk, n.fullName, n.name, properties(n)
		ORDER BY labels(n)[0], n.fullName`
	params := map[string]any{"q": q.Name, "labels": labels}
	if q.Limit > 0 {
		cypher += " LIMIT $lim"
		params["lim"] = int64(q.Limit)
	}

	rows, err := s.query(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	out := make([]NodeRecord, 0, len(rows))
	for _, r := range rows {
		props, _ := r[4].(map[string]any)
		out = append(out, NodeRecord{
			Label:      Label(toString(r[0])),
			Pk:         toString(r[1]),
			FullName:   toString(r[2]),
			Name:       toString(r[3]),
			Properties: props,
		})
	}
	return out, nil
}

// Relationships returns the edges touching the node (label, pk). Matching on
// the label lets Neo4j use the label's pk constraint index.
func (s *Neo4jStore) Relationships(ctx context.Context, label Label, pk string, dir Direction) ([]EdgeRecord, error) {
	l, err := labelIdent(label)
	if err != nil {
		return nil, err
	}
	const ret = " RETURN type(r), labels(a)[0], a.pk, labels(b)[0], b.pk"
	var queries []string
	if dir == DirectionOut || dir == DirectionBoth {
		queries = append(queries, fmt.Sprintf("MATCH (a:%s {pk: $pk})-[r]->(b)", l)+ret)
	}
	if dir == DirectionIn || dir == DirectionBoth {
		queries = append(queries, fmt.Sprintf("MATCH (a)-[r]->(b:%s {pk: $pk})", l)+ret)
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("neo4j: unknown direction: %s", dir)
	}

	var out []EdgeRecord
	for _, cypher := range queries {
		rows, err := s.query(ctx, cypher, map[string]any{"pk": pk})
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

// Stats returns node counts per label and edge counts per relationship type.
func (s *Neo4jStore) Stats(ctx context.Context) (*GraphStats, error) {
	stats := &GraphStats{Nodes: make(map[Label]int), Edges: make(map[RelType]int)}

	rows, err := s.query(ctx, "MATCH (n) RETURN labels(n)[0], count(*)", nil)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		n := toInt(r[1])
		stats.Nodes[Label(toString(r[0]))] += n
		stats.NodeCount += n
	}

	rows, err = s.query(ctx, "MATCH ()-[r]->() RETURN type(r), count(*)", nil)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		n := toInt(r[1])
		stats.Edges[RelType(toString(r[0]))] += n
		stats.EdgeCount += n
	}
	return stats, nil
}

// ---------- Internal helpers ----------

// write runs fn in a managed write transaction, retried by the driver on
// transient failures.
func (s *Neo4jStore) write(ctx context.Context, fn func(tx neo4j.ManagedTransaction) error) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: s.database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, fn(tx)
	})
	return err
}

// query runs a read statement and collects all rows, values in column order.
func (s *Neo4jStore) query(ctx context.Context, cypher string, params map[string]any) ([][]any, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: s.database,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	rows, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		out := make([][]any, 0, len(records))
		for _, rec := range records {
			out = append(out, rec.Values)
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j: query: %w", err)
	}
	return rows.([][]any), nil
}

// run executes a statement inside tx and discards its result.
func run(ctx context.Context, tx neo4j.ManagedTransaction, cypher string, params map[string]any) error {
	res, err := tx.Run(ctx, cypher, params)
	if err != nil {
		return err
	}
	_, err = res.Consume(ctx)
	return err
}
