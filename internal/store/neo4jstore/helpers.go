package neo4jstore

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"ontomap/internal/axiom"
)

func getStringFromRecord(record *neo4j.Record, key string) string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

func getInt64FromRecord(record *neo4j.Record, key string) int64 {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0
	}
	if i, ok := val.(int64); ok {
		return i
	}
	if i, ok := val.(int); ok {
		return int64(i)
	}
	return 0
}

// recordValue rebuilds the statement object: a resource when the target node
// carries an iri, a literal otherwise.
func recordValue(record *neo4j.Record) (axiom.Value, error) {
	if iri := getStringFromRecord(record, "iri"); iri != "" {
		return axiom.ResourceValue(axiom.NamedResource(iri)), nil
	}
	return axiom.ParseLiteral(
		getStringFromRecord(record, "lexical"),
		getStringFromRecord(record, "datatype"),
		getStringFromRecord(record, "lang"),
	)
}
