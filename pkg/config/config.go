package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	ontoerrors "ontomap/pkg/errors"
)

// Store backends understood by store.Open.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendNeo4j    = "neo4j"
)

// DefaultSignatureDelimiter separates IRIs in ONTO_MODULE_EXTRACTION_SIGNATURE.
const DefaultSignatureDelimiter = "|"

// Config holds all application configuration
type Config struct {
	// App
	Env string

	// Store
	StoreBackend string
	SQLitePath   string
	PostgresDSN  string

	// Neo4j
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string

	// Mapping defaults
	DefaultContext            string // Context used when a descriptor names none ("" = default graph)
	Language                  string // Default language tag of string literals
	ModuleExtractionSignature string // Delimited list of IRIs
	SignatureDelimiter        string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Env:                       getEnv("ENV", "development"),
		StoreBackend:              strings.ToLower(getEnv("STORE_BACKEND", BackendMemory)),
		SQLitePath:                getEnv("SQLITE_PATH", "ontomap.db"),
		PostgresDSN:               getEnv("POSTGRES_DSN", "postgres://localhost/ontomap?sslmode=disable"),
		Neo4jURI:                  getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:                 getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:             getEnv("NEO4J_PASSWORD", ""),
		DefaultContext:            getEnv("ONTO_DEFAULT_CONTEXT", ""),
		Language:                  getEnv("ONTO_LANGUAGE", "en"),
		ModuleExtractionSignature: getEnv("ONTO_MODULE_EXTRACTION_SIGNATURE", ""),
		SignatureDelimiter:        getEnv("ONTO_SIGNATURE_DELIMITER", DefaultSignatureDelimiter),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory:
	case BackendSQLite:
		if c.SQLitePath == "" {
			return ontoerrors.NewConfigMissingRequired("SQLITE_PATH")
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return ontoerrors.NewConfigMissingRequired("POSTGRES_DSN")
		}
	case BackendNeo4j:
		if c.Neo4jURI == "" {
			return ontoerrors.NewConfigMissingRequired("NEO4J_URI")
		}
		if c.Neo4jUser == "" {
			return ontoerrors.NewConfigMissingRequired("NEO4J_USER")
		}
		if c.Neo4jPassword == "" {
			return ontoerrors.NewConfigMissingRequired("NEO4J_PASSWORD")
		}
	default:
		return ontoerrors.NewConfigValidationFailed("STORE_BACKEND", fmt.Sprintf("unknown backend %q", c.StoreBackend))
	}
	if c.SignatureDelimiter == "" {
		return ontoerrors.NewConfigValidationFailed("ONTO_SIGNATURE_DELIMITER", "cannot be empty")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
