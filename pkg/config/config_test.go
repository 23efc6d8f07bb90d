package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ontoerrors "ontomap/pkg/errors"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("ONTO_LANGUAGE", "")
	t.Setenv("ONTO_SIGNATURE_DELIMITER", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, "en", cfg.Language)
	assert.Equal(t, DefaultSignatureDelimiter, cfg.SignatureDelimiter)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("STORE_BACKEND", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/onto.db")
	t.Setenv("ONTO_DEFAULT_CONTEXT", "http://example.org/graph")
	t.Setenv("ONTO_MODULE_EXTRACTION_SIGNATURE", "http://example.org/a;http://example.org/b")
	t.Setenv("ONTO_SIGNATURE_DELIMITER", ";")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.StoreBackend)
	assert.Equal(t, "/tmp/onto.db", cfg.SQLitePath)
	assert.Equal(t, "http://example.org/graph", cfg.DefaultContext)
	assert.Equal(t, ";", cfg.SignatureDelimiter)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{StoreBackend: BackendMemory, SignatureDelimiter: "|"}, false},
		{"sqlite without path", Config{StoreBackend: BackendSQLite, SignatureDelimiter: "|"}, true},
		{"postgres", Config{StoreBackend: BackendPostgres, PostgresDSN: "postgres://db", SignatureDelimiter: "|"}, false},
		{"neo4j without password", Config{StoreBackend: BackendNeo4j, Neo4jURI: "bolt://x", Neo4jUser: "neo4j", SignatureDelimiter: "|"}, true},
		{"unknown backend", Config{StoreBackend: "cassandra", SignatureDelimiter: "|"}, true},
		{"empty delimiter", Config{StoreBackend: BackendMemory}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.True(t, ontoerrors.IsErrorType(err, ontoerrors.ErrorTypeConfig))
		})
	}
}
