package list

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ontomap/internal/axiom"
	ontoerrors "ontomap/pkg/errors"
)

func TestReferencedIterator_RemoveMisuse(t *testing.T) {
	stmts := newRecording()
	persistReferenced(t, stmts, resources("a", "b"))
	ctx := context.Background()

	it, err := NewReferencedIterator(ctx, stmts, referencedDesc())
	require.NoError(t, err)

	err = it.RemoveWithoutReconnect(ctx)
	assert.True(t, ontoerrors.IsErrorType(err, ontoerrors.ErrorTypeState))

	_, err = it.NextAxiom(ctx)
	require.NoError(t, err)
	require.NoError(t, it.RemoveWithoutReconnect(ctx))

	err = it.RemoveWithoutReconnect(ctx)
	assert.True(t, ontoerrors.IsErrorType(err, ontoerrors.ErrorTypeState))
	assert.Len(t, stmts.removed, 3)
}

func TestReferencedIterator_NextReturnsContent(t *testing.T) {
	stmts := newRecording()
	r := resources("a", "b")
	persistReferenced(t, stmts, r)
	ctx := context.Background()

	it, err := NewReferencedIterator(ctx, stmts, referencedDesc())
	require.NoError(t, err)

	ax, err := it.NextAxiom(ctx)
	require.NoError(t, err)
	assert.Equal(t, axiom.NamedResource(owner+"-SEQ_0"), ax.Subject)
	assert.Equal(t, hasContent.IRI, ax.Assertion.IRI)
	assert.Equal(t, r[0], ax.Value.Resource)
	assert.Equal(t, axiom.NamedResource(owner+"-SEQ_0"), it.CurrentNode())
}

func TestReferencedIterator_ReplaceSameValueIsNoop(t *testing.T) {
	stmts := newRecording()
	r := resources("a")
	persistReferenced(t, stmts, r)
	ctx := context.Background()

	it, err := NewReferencedIterator(ctx, stmts, referencedDesc())
	require.NoError(t, err)
	_, err = it.NextAxiom(ctx)
	require.NoError(t, err)

	require.NoError(t, it.Replace(ctx, r[0]))
	assert.Empty(t, stmts.added)
	assert.Empty(t, stmts.removed)
}

func TestReferencedIterator_LiteralContent(t *testing.T) {
	stmts := newRecording()
	ctx := context.Background()
	node := owner + "-SEQ_0"
	require.NoError(t, stmts.AddStatements(ctx, []axiom.Axiom{
		axiom.New(owner, hasContents, axiom.ResourceValue(node)),
		axiom.New(node, hasContent, axiom.LiteralValue(int64(42), "")),
	}, testCtx))

	_, err := NewCodec(stmts).LoadReferenced(ctx, referencedDesc())
	var listErr *ontoerrors.ErrListProcessing
	require.ErrorAs(t, err, &listErr)
	assert.Equal(t, string(node), listErr.Node)
}

func TestReferencedIterator_MissingContent(t *testing.T) {
	stmts := newRecording()
	ctx := context.Background()
	node := owner + "-SEQ_0"
	require.NoError(t, stmts.AddStatements(ctx, []axiom.Axiom{
		axiom.New(owner, hasContents, axiom.ResourceValue(node)),
	}, testCtx))

	_, err := NewCodec(stmts).LoadReferenced(ctx, referencedDesc())
	assert.True(t, ontoerrors.IsErrorType(err, ontoerrors.ErrorTypeList))
}
