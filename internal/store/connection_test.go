package store

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ontomap/internal/axiom"
	"ontomap/internal/store/memory"
	"ontomap/internal/store/neo4jstore"
	"ontomap/internal/store/sqlstore"
	"ontomap/pkg/config"
	ontoerrors "ontomap/pkg/errors"
)

var (
	_ Backend     = (*memory.Store)(nil)
	_ Backend     = (*sqlstore.Store)(nil)
	_ Backend     = (*neo4jstore.Store)(nil)
	_ BatchFinder = (*neo4jstore.Store)(nil)
)

const (
	subject = axiom.NamedResource("http://example.org/person")
	graph   = "http://example.org/people"
)

var (
	name  = axiom.NewDataPropertyAssertion("http://example.org/name", "en", false)
	knows = axiom.NewObjectPropertyAssertion("http://example.org/knows", false)
)

func seed(t *testing.T, conn *Connection) {
	t.Helper()
	desc := axiom.NewAxiomValueDescriptor(subject)
	desc.Context = graph
	desc.AddAssertionValue(axiom.NewClassAssertion(false), axiom.ResourceValue("http://example.org/Person"))
	desc.AddAssertionValue(name, axiom.LiteralValue("Alice", "en"))
	desc.AddAssertionValue(name, axiom.LiteralValue("Alicia", "es"))
	desc.AddAssertionValue(knows, axiom.ResourceValue("http://example.org/bob"))
	require.NoError(t, conn.Persist(context.Background(), desc))
}

func TestConnection_FindFiltersLanguage(t *testing.T) {
	conn := NewConnection(memory.NewStore())
	seed(t, conn)

	desc := axiom.NewAxiomDescriptor(subject)
	desc.Context = graph
	desc.AddAssertion(name)
	found, err := conn.Find(context.Background(), desc)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Alice", found[0].Value.Literal)
}

func TestConnection_FindAllProperties(t *testing.T) {
	conn := NewConnection(memory.NewStore())
	seed(t, conn)

	desc := axiom.NewAxiomDescriptor(subject)
	desc.Context = graph
	desc.AddAssertion(axiom.AllProperties)
	found, err := conn.Find(context.Background(), desc)
	require.NoError(t, err)
	assert.Len(t, found, 4)
}

func TestConnection_FindUsesAssertionContext(t *testing.T) {
	conn := NewConnection(memory.NewStore())
	seed(t, conn)

	desc := axiom.NewAxiomDescriptor(subject)
	desc.AddAssertion(knows)
	found, err := conn.Find(context.Background(), desc)
	require.NoError(t, err)
	assert.Empty(t, found)

	desc.SetAssertionContext(knows, graph)
	found, err = conn.Find(context.Background(), desc)
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestConnection_UpdateReplacesTouchedAssertions(t *testing.T) {
	conn := NewConnection(memory.NewStore())
	seed(t, conn)
	ctx := context.Background()

	update := axiom.NewAxiomValueDescriptor(subject)
	update.Context = graph
	update.AddAssertionValue(name, axiom.LiteralValue("Alice B.", "en"))
	update.AddAssertion(knows)
	require.NoError(t, conn.Update(ctx, update))

	desc := axiom.NewAxiomDescriptor(subject)
	desc.Context = graph
	desc.AddAssertion(axiom.AllProperties)
	found, err := conn.Find(ctx, desc)
	require.NoError(t, err)

	var lexicals []string
	for _, ax := range found {
		lexicals = append(lexicals, ax.Value.Lexical())
	}
	assert.ElementsMatch(t, []string{"http://example.org/Person", "Alice B.", "Alicia"}, lexicals)
}

func TestConnection_Remove(t *testing.T) {
	backend := memory.NewStore()
	conn := NewConnection(backend)
	seed(t, conn)

	desc := axiom.NewAxiomDescriptor(subject)
	desc.Context = graph
	desc.AddAssertion(axiom.AllProperties)
	require.NoError(t, conn.Remove(context.Background(), desc))
	assert.Equal(t, 0, backend.Len())
}

func TestConnection_RemoveValues(t *testing.T) {
	backend := memory.NewStore()
	conn := NewConnection(backend)
	seed(t, conn)

	desc := axiom.NewAxiomValueDescriptor(subject)
	desc.Context = graph
	desc.AddAssertionValue(name, axiom.LiteralValue("Alicia", "es"))
	require.NoError(t, conn.RemoveValues(context.Background(), desc))

	assert.Equal(t, 3, backend.Len())
	ok, err := conn.Contains(context.Background(), axiom.New(subject, name, axiom.LiteralValue("Alice", "en")), graph)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConnection_Contains(t *testing.T) {
	conn := NewConnection(memory.NewStore())
	seed(t, conn)
	ctx := context.Background()

	typeAxiom := axiom.New(subject, axiom.NewClassAssertion(false), axiom.ResourceValue("http://example.org/Person"))
	ok, err := conn.Contains(ctx, typeAxiom, graph)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = conn.Contains(ctx, typeAxiom, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConnection_GenerateIdentifier(t *testing.T) {
	conn := NewConnection(memory.NewStore())
	class := axiom.NamedResource("http://example.org/Person")

	first, err := conn.GenerateIdentifier(context.Background(), class, graph)
	require.NoError(t, err)
	second, err := conn.GenerateIdentifier(context.Background(), class, graph)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(string(first), string(class)+"_instance"))
	assert.NotEqual(t, first, second)
}

type failingBackend struct {
	*memory.Store
}

func (failingBackend) FindStatements(context.Context, axiom.NamedResource, axiom.Assertion, string) ([]axiom.Axiom, error) {
	return nil, assert.AnError
}

func TestConnection_WrapsBackendFailures(t *testing.T) {
	conn := NewConnection(failingBackend{Store: memory.NewStore()})
	desc := axiom.NewAxiomDescriptor(subject)
	desc.AddAssertion(name)

	_, err := conn.Find(context.Background(), desc)
	require.Error(t, err)
	assert.True(t, ontoerrors.IsErrorType(err, ontoerrors.ErrorTypeStorage))
	assert.True(t, ontoerrors.IsRetryable(err))
	assert.ErrorIs(t, err, assert.AnError)
}

func TestOpen_Memory(t *testing.T) {
	conn, err := Open(context.Background(), &config.Config{StoreBackend: config.BackendMemory})
	require.NoError(t, err)
	defer conn.Close()
	_, ok := conn.Backend().(*memory.Store)
	assert.True(t, ok)
}

func TestOpen_SQLiteInMemory(t *testing.T) {
	conn, err := Open(context.Background(), &config.Config{StoreBackend: config.BackendSQLite, SQLitePath: ":memory:"})
	require.NoError(t, err)
	defer conn.Close()
	seed(t, conn)

	desc := axiom.NewAxiomDescriptor(subject)
	desc.Context = graph
	desc.AddAssertion(knows)
	found, err := conn.Find(context.Background(), desc)
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{StoreBackend: "cassandra"})
	assert.True(t, ontoerrors.IsErrorType(err, ontoerrors.ErrorTypeStorage))
}
