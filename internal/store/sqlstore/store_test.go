package sqlstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ontomap/internal/axiom"
)

const subject = axiom.NamedResource("http://example.org/s")

var (
	label = axiom.NewDataPropertyAssertion("http://example.org/label", "", false)
	link  = axiom.NewObjectPropertyAssertion("http://example.org/link", false)
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_AddFindRemove(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	axioms := []axiom.Axiom{
		axiom.New(subject, label, axiom.LiteralValue("hello", "en")),
		axiom.New(subject, label, axiom.LiteralValue(int64(3), "")),
		axiom.New(subject, link, axiom.ResourceValue("http://example.org/o")),
	}
	require.NoError(t, s.AddStatements(ctx, axioms, "g"))
	require.NoError(t, s.AddStatements(ctx, axioms[:1], "g"))

	found, err := s.FindStatements(ctx, subject, label, "g")
	require.NoError(t, err)
	require.Len(t, found, 2)
	var literals []any
	for _, ax := range found {
		literals = append(literals, ax.Value.Literal)
	}
	assert.ElementsMatch(t, []any{"hello", int64(3)}, literals)

	all, err := s.FindStatements(ctx, subject, axiom.AllProperties, "g")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, s.RemoveStatements(ctx, axioms[2:], "g"))
	ok, err := s.ContainsStatement(ctx, axioms[2], "g")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.ContainsSubject(ctx, subject, "g")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.ContainsSubject(ctx, subject, "other")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "onto.db")
	ctx := context.Background()
	ax := axiom.New(subject, link, axiom.ResourceValue("http://example.org/o"))

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.AddStatements(ctx, []axiom.Axiom{ax}, ""))
	require.NoError(t, s.Close())

	_, err = os.Stat(path)
	require.NoError(t, err)

	reopened, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()
	ok, err := reopened.ContainsStatement(ctx, ax, "")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_Rebind(t *testing.T) {
	pg := &Store{dialect: Postgres}
	assert.Equal(t, "a = $1 AND b = $2", pg.rebind("a = ? AND b = ?"))

	lite := &Store{dialect: SQLite}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}

func TestOpenPostgres_Integration(t *testing.T) {
	dsn := os.Getenv("POSTGRES_DSN")
	if testing.Short() || dsn == "" {
		t.Skip("Skipping integration test")
	}
	s, err := OpenPostgres(context.Background(), dsn)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	ax := axiom.New(subject, label, axiom.LiteralValue("pg", ""))
	require.NoError(t, s.AddStatements(ctx, []axiom.Axiom{ax}, "test"))
	defer func() { _ = s.RemoveStatements(ctx, []axiom.Axiom{ax}, "test") }()

	ok, err := s.ContainsStatement(ctx, ax, "test")
	require.NoError(t, err)
	assert.True(t, ok)
}
