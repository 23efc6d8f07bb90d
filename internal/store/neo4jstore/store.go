// Package neo4jstore keeps statements in Neo4j. Resources become
// (:Resource {iri}) nodes, literals (:Literal) nodes, and every statement a
// [:STATEMENT {predicate, graph}] relationship from its subject.
package neo4jstore

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ontomap/internal/axiom"
	"ontomap/pkg/logger"
)

// MaxConcurrentReads bounds the sessions opened by FindMany.
const MaxConcurrentReads = 8

// Store handles all Neo4j database operations
type Store struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// New creates a store over an existing driver.
func New(driver neo4j.DriverWithContext) *Store {
	return &Store{
		driver: driver,
		logger: logger.Named("neo4j"),
	}
}

// Open creates a driver, verifies connectivity and ensures the resource index.
func Open(ctx context.Context, uri, user, password string) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to verify Neo4j connectivity: %w", err)
	}
	s := New(driver)
	if err := s.ensureSchema(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, err
	}
	return s, nil
}

// Close closes the Neo4j driver connection
func (s *Store) Close() error {
	return s.driver.Close(context.Background())
}

func (s *Store) ensureSchema(ctx context.Context) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	query := `CREATE INDEX resource_iri IF NOT EXISTS FOR (r:Resource) ON (r.iri)`
	if _, err := session.Run(ctx, query, nil); err != nil {
		return fmt.Errorf("failed to create resource index: %w", err)
	}
	return nil
}

// FindStatements returns statements of subject whose predicate the assertion matches.
func (s *Store) FindStatements(ctx context.Context, subject axiom.NamedResource, assertion axiom.Assertion, graph string) ([]axiom.Axiom, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := `
		MATCH (s:Resource {iri: $subject})-[r:STATEMENT {graph: $graph}]->(o)
		WHERE $predicate = '' OR r.predicate = $predicate
		RETURN
			r.predicate as predicate,
			o.iri as iri,
			o.lexical as lexical,
			o.datatype as datatype,
			o.lang as lang
	`
	predicate := ""
	if !assertion.MatchesAll() {
		predicate = string(assertion.IRI)
	}

	result, err := session.Run(ctx, query, map[string]interface{}{
		"subject":   string(subject),
		"graph":     graph,
		"predicate": predicate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}

	var axioms []axiom.Axiom
	for result.Next(ctx) {
		record := result.Record()
		value, err := recordValue(record)
		if err != nil {
			return nil, fmt.Errorf("failed to decode statement of %s: %w", subject, err)
		}
		pred := axiom.NamedResource(getStringFromRecord(record, "predicate"))
		axioms = append(axioms, axiom.New(subject, assertion.ForPredicate(pred), value))
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to fetch records: %w", err)
	}
	return axioms, nil
}

// FindMany looks up several assertions of subject concurrently, one read
// session each. graphs[i] is the graph of assertions[i].
func (s *Store) FindMany(ctx context.Context, subject axiom.NamedResource, assertions []axiom.Assertion, graphs []string) ([][]axiom.Axiom, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxConcurrentReads)

	results := make([][]axiom.Axiom, len(assertions))
	for i, a := range assertions {
		idx := i
		assertion := a
		g.Go(func() error {
			found, err := s.FindStatements(gctx, subject, assertion, graphs[idx])
			if err != nil {
				return err
			}
			results[idx] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// AddStatements merges axioms into graph in one write transaction.
func (s *Store) AddStatements(ctx context.Context, axioms []axiom.Axiom, graph string) error {
	if len(axioms) == 0 {
		return nil
	}
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, ax := range axioms {
			query, params := mergeQuery(ax, graph)
			if _, err := tx.Run(ctx, query, params); err != nil {
				return nil, fmt.Errorf("failed to add %s: %w", ax, err)
			}
		}
		return nil, nil
	})
	if err != nil {
		return err
	}
	s.logger.Debug("added statements", zap.String("graph", graph), zap.Int("count", len(axioms)))
	return nil
}

// RemoveStatements deletes axioms from graph in one write transaction.
func (s *Store) RemoveStatements(ctx context.Context, axioms []axiom.Axiom, graph string) error {
	if len(axioms) == 0 {
		return nil
	}
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, ax := range axioms {
			query, params := deleteQuery(ax, graph)
			if _, err := tx.Run(ctx, query, params); err != nil {
				return nil, fmt.Errorf("failed to remove %s: %w", ax, err)
			}
		}
		return nil, nil
	})
	return err
}

// ContainsStatement reports whether the exact statement is stored in graph.
func (s *Store) ContainsStatement(ctx context.Context, ax axiom.Axiom, graph string) (bool, error) {
	query, params := matchQuery(ax, graph)
	return s.count(ctx, query+` RETURN count(r) as n`, params)
}

// ContainsSubject reports whether any statement about subject exists in graph.
func (s *Store) ContainsSubject(ctx context.Context, subject axiom.NamedResource, graph string) (bool, error) {
	query := `MATCH (s:Resource {iri: $subject})-[r:STATEMENT {graph: $graph}]->() RETURN count(r) as n`
	return s.count(ctx, query, map[string]interface{}{"subject": string(subject), "graph": graph})
}

func (s *Store) count(ctx context.Context, query string, params map[string]interface{}) (bool, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return false, fmt.Errorf("failed to execute query: %w", err)
	}
	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return false, fmt.Errorf("failed to fetch record: %w", err)
		}
		return false, nil
	}
	return getInt64FromRecord(result.Record(), "n") > 0, nil
}

func statementParams(ax axiom.Axiom, graph string) map[string]interface{} {
	return map[string]interface{}{
		"subject":   string(ax.Subject),
		"predicate": string(ax.Assertion.IRI),
		"graph":     graph,
		"object":    ax.Value.Lexical(),
		"datatype":  ax.Value.Datatype(),
		"lang":      ax.Value.Language,
	}
}

func mergeQuery(ax axiom.Axiom, graph string) (string, map[string]interface{}) {
	if ax.Value.IsResource() {
		return `
			MERGE (s:Resource {iri: $subject})
			MERGE (o:Resource {iri: $object})
			MERGE (s)-[:STATEMENT {predicate: $predicate, graph: $graph}]->(o)
		`, statementParams(ax, graph)
	}
	return `
		MERGE (s:Resource {iri: $subject})
		MERGE (s)-[:STATEMENT {predicate: $predicate, graph: $graph}]->(:Literal {lexical: $object, datatype: $datatype, lang: $lang})
	`, statementParams(ax, graph)
}

func matchQuery(ax axiom.Axiom, graph string) (string, map[string]interface{}) {
	if ax.Value.IsResource() {
		return `MATCH (s:Resource {iri: $subject})-[r:STATEMENT {predicate: $predicate, graph: $graph}]->(o:Resource {iri: $object})`,
			statementParams(ax, graph)
	}
	return `MATCH (s:Resource {iri: $subject})-[r:STATEMENT {predicate: $predicate, graph: $graph}]->(o:Literal {lexical: $object, datatype: $datatype, lang: $lang})`,
		statementParams(ax, graph)
}

func deleteQuery(ax axiom.Axiom, graph string) (string, map[string]interface{}) {
	query, params := matchQuery(ax, graph)
	if ax.Value.IsResource() {
		return query + ` DELETE r`, params
	}
	return query + ` DETACH DELETE o`, params
}
