package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ontomap/internal/axiom"
)

const subject = axiom.NamedResource("http://example.org/s")

func TestStore_AddIsIdempotent(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	ax := axiom.New(subject, axiom.NewDataPropertyAssertion("http://example.org/p", "", false), axiom.LiteralValue(42, ""))

	require.NoError(t, s.AddStatements(ctx, []axiom.Axiom{ax, ax}, ""))
	require.NoError(t, s.AddStatements(ctx, []axiom.Axiom{ax}, ""))
	assert.Equal(t, 1, s.Len())
}

func TestStore_GraphsAreSeparate(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	p := axiom.NewObjectPropertyAssertion("http://example.org/p", false)
	ax := axiom.New(subject, p, axiom.ResourceValue("http://example.org/o"))
	require.NoError(t, s.AddStatements(ctx, []axiom.Axiom{ax}, "g1"))

	found, err := s.FindStatements(ctx, subject, p, "g2")
	require.NoError(t, err)
	assert.Empty(t, found)

	ok, err := s.ContainsStatement(ctx, ax, "g1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_RemoveMissingIsIgnored(t *testing.T) {
	s := NewStore()
	ax := axiom.New(subject, axiom.NewClassAssertion(false), axiom.ResourceValue("http://example.org/C"))
	assert.NoError(t, s.RemoveStatements(context.Background(), []axiom.Axiom{ax}, ""))
}

func TestStore_SnapshotRestore(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	when := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	axioms := []axiom.Axiom{
		axiom.New(subject, axiom.NewClassAssertion(false), axiom.ResourceValue("http://example.org/C")),
		axiom.New(subject, axiom.NewDataPropertyAssertion("http://example.org/name", "en", false), axiom.LiteralValue("name", "en")),
		axiom.New(subject, axiom.NewDataPropertyAssertion("http://example.org/count", "", false), axiom.LiteralValue(7, "")),
		axiom.New(subject, axiom.NewDataPropertyAssertion("http://example.org/ratio", "", false), axiom.LiteralValue(0.5, "")),
		axiom.New(subject, axiom.NewDataPropertyAssertion("http://example.org/flag", "", false), axiom.LiteralValue(true, "")),
		axiom.New(subject, axiom.NewDataPropertyAssertion("http://example.org/when", "", false), axiom.LiteralValue(when, "")),
	}
	require.NoError(t, s.AddStatements(ctx, axioms, "g"))

	data, err := s.Snapshot()
	require.NoError(t, err)

	restored := NewStore()
	require.NoError(t, restored.Restore(data))
	assert.Equal(t, s.Len(), restored.Len())
	for _, ax := range axioms {
		ok, err := restored.ContainsStatement(ctx, ax, "g")
		require.NoError(t, err)
		assert.True(t, ok, "missing %s", ax)
	}
}

func TestStore_RestoreRejectsGarbage(t *testing.T) {
	assert.Error(t, NewStore().Restore([]byte{0xc1}))
}
