package list

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ontomap/internal/axiom"
	"ontomap/internal/store/memory"
	ontoerrors "ontomap/pkg/errors"
)

const (
	owner   = axiom.NamedResource("http://example.org/owner")
	testCtx = "http://example.org/graph"
)

var (
	hasList     = axiom.NewObjectPropertyAssertion("http://example.org/hasList", false)
	hasContents = axiom.NewObjectPropertyAssertion(axiom.SequenceHasContents, false)
	hasNext     = axiom.NewObjectPropertyAssertion(axiom.SequenceHasNext, false)
	hasContent  = axiom.NewObjectPropertyAssertion(axiom.SequenceHasContent, false)
)

// recordingStatements tracks every statement written to or removed from the store.
type recordingStatements struct {
	*memory.Store
	added   []string
	removed []string
}

func newRecording() *recordingStatements {
	return &recordingStatements{Store: memory.NewStore()}
}

func (r *recordingStatements) AddStatements(ctx context.Context, axioms []axiom.Axiom, graph string) error {
	for _, ax := range axioms {
		r.added = append(r.added, ax.Key())
	}
	return r.Store.AddStatements(ctx, axioms, graph)
}

func (r *recordingStatements) RemoveStatements(ctx context.Context, axioms []axiom.Axiom, graph string) error {
	for _, ax := range axioms {
		r.removed = append(r.removed, ax.Key())
	}
	return r.Store.RemoveStatements(ctx, axioms, graph)
}

func (r *recordingStatements) reset() {
	r.added = nil
	r.removed = nil
}

func simpleDesc() axiom.SimpleListDescriptor {
	return axiom.SimpleListDescriptor{Owner: owner, ListProperty: hasList, NextNode: hasNext, Context: testCtx}
}

func referencedDesc() axiom.ReferencedListDescriptor {
	return axiom.ReferencedListDescriptor{Owner: owner, ListProperty: hasContents, NextNode: hasNext, NodeContent: hasContent, Context: testCtx}
}

func resources(names ...string) []axiom.NamedResource {
	out := make([]axiom.NamedResource, len(names))
	for i, n := range names {
		out[i] = axiom.NamedResource("http://example.org/" + n)
	}
	return out
}

func edge(subject axiom.NamedResource, a axiom.Assertion, object axiom.NamedResource) string {
	return axiom.New(subject, a, axiom.ResourceValue(object)).Key()
}

func values(axioms []axiom.Axiom) []axiom.NamedResource {
	out := make([]axiom.NamedResource, len(axioms))
	for i, ax := range axioms {
		out[i] = ax.Value.Resource
	}
	return out
}

func persistSimple(t *testing.T, stmts *recordingStatements, vals []axiom.NamedResource) *Codec {
	t.Helper()
	codec := NewCodec(stmts)
	require.NoError(t, codec.PersistSimple(context.Background(), axiom.SimpleListValueDescriptor{SimpleListDescriptor: simpleDesc(), Values: vals}))
	stmts.reset()
	return codec
}

func persistReferenced(t *testing.T, stmts *recordingStatements, vals []axiom.NamedResource) *Codec {
	t.Helper()
	codec := NewCodec(stmts)
	require.NoError(t, codec.PersistReferenced(context.Background(), axiom.ReferencedListValueDescriptor{ReferencedListDescriptor: referencedDesc(), Values: vals}))
	stmts.reset()
	return codec
}

func TestCodec_SimpleRoundTrip(t *testing.T) {
	stmts := newRecording()
	vals := resources("a", "b", "c", "d")
	codec := persistSimple(t, stmts, vals)

	loaded, err := codec.LoadSimple(context.Background(), simpleDesc())
	require.NoError(t, err)
	assert.Equal(t, vals, values(loaded))
	assert.Equal(t, owner, loaded[0].Subject)
	assert.Equal(t, hasList.IRI, loaded[0].Assertion.IRI)
	assert.Equal(t, vals[0], loaded[1].Subject)
	assert.Equal(t, hasNext.IRI, loaded[1].Assertion.IRI)
}

func TestCodec_ReferencedRoundTrip(t *testing.T) {
	stmts := newRecording()
	vals := resources("a", "b", "a", "c")
	codec := persistReferenced(t, stmts, vals)

	loaded, err := codec.LoadReferenced(context.Background(), referencedDesc())
	require.NoError(t, err)
	assert.Equal(t, vals, values(loaded))
	assert.Equal(t, axiom.NamedResource(owner+"-SEQ_0"), loaded[0].Subject)
	assert.Equal(t, axiom.NamedResource(owner+"-SEQ_3"), loaded[3].Subject)

	typed, err := stmts.ContainsStatement(context.Background(),
		axiom.New(owner+"-SEQ_1", axiom.NewClassAssertion(false), axiom.ResourceValue(axiom.SequenceOWLList)), testCtx)
	require.NoError(t, err)
	assert.True(t, typed)
}

func TestCodec_EmptyListsWriteNothing(t *testing.T) {
	stmts := newRecording()
	codec := NewCodec(stmts)
	ctx := context.Background()

	require.NoError(t, codec.PersistSimple(ctx, axiom.SimpleListValueDescriptor{SimpleListDescriptor: simpleDesc()}))
	require.NoError(t, codec.PersistReferenced(ctx, axiom.ReferencedListValueDescriptor{ReferencedListDescriptor: referencedDesc()}))
	assert.Empty(t, stmts.added)

	loaded, err := codec.LoadSimple(ctx, simpleDesc())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestCodec_PersistSimpleRejectsDuplicates(t *testing.T) {
	codec := NewCodec(newRecording())
	err := codec.PersistSimple(context.Background(), axiom.SimpleListValueDescriptor{
		SimpleListDescriptor: simpleDesc(),
		Values:               resources("a", "b", "a"),
	})
	require.Error(t, err)
	assert.True(t, ontoerrors.IsErrorType(err, ontoerrors.ErrorTypeList))
}

func TestCodec_UpdateSimple_ReplacesOnlyDivergentNode(t *testing.T) {
	stmts := newRecording()
	r := resources("a", "b", "c", "d", "x")
	a, b, c, d, x := r[0], r[1], r[2], r[3], r[4]
	codec := persistSimple(t, stmts, []axiom.NamedResource{a, b, c, d})

	err := codec.UpdateSimple(context.Background(), axiom.SimpleListValueDescriptor{
		SimpleListDescriptor: simpleDesc(),
		Values:               []axiom.NamedResource{a, b, x, d},
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{edge(b, hasNext, c), edge(c, hasNext, d)}, stmts.removed)
	assert.ElementsMatch(t, []string{edge(b, hasNext, x), edge(x, hasNext, d)}, stmts.added)
	for _, untouched := range []string{edge(owner, hasList, a), edge(a, hasNext, b)} {
		assert.NotContains(t, stmts.removed, untouched)
		assert.NotContains(t, stmts.added, untouched)
	}

	loaded, err := codec.LoadSimple(context.Background(), simpleDesc())
	require.NoError(t, err)
	assert.Equal(t, []axiom.NamedResource{a, b, x, d}, values(loaded))
}

func TestCodec_UpdateSimple_Truncation(t *testing.T) {
	stmts := newRecording()
	r := resources("a", "b", "c")
	codec := persistSimple(t, stmts, r)

	require.NoError(t, codec.UpdateSimple(context.Background(), axiom.SimpleListValueDescriptor{
		SimpleListDescriptor: simpleDesc(),
		Values:               r[:2],
	}))

	assert.Equal(t, []string{edge(r[1], hasNext, r[2])}, stmts.removed)
	assert.Empty(t, stmts.added)
}

func TestCodec_UpdateSimple_Extension(t *testing.T) {
	stmts := newRecording()
	r := resources("a", "b", "c")
	codec := persistSimple(t, stmts, r[:2])

	require.NoError(t, codec.UpdateSimple(context.Background(), axiom.SimpleListValueDescriptor{
		SimpleListDescriptor: simpleDesc(),
		Values:               r,
	}))

	assert.Empty(t, stmts.removed)
	assert.Equal(t, []string{edge(r[1], hasNext, r[2])}, stmts.added)
}

func TestCodec_UpdateSimple_FromEmpty(t *testing.T) {
	stmts := newRecording()
	codec := NewCodec(stmts)
	r := resources("a", "b")

	require.NoError(t, codec.UpdateSimple(context.Background(), axiom.SimpleListValueDescriptor{
		SimpleListDescriptor: simpleDesc(),
		Values:               r,
	}))
	assert.Equal(t, []string{edge(owner, hasList, r[0]), edge(r[0], hasNext, r[1])}, stmts.added)
}

func TestCodec_UpdateSimple_Reordering(t *testing.T) {
	cases := []struct {
		name string
		old  []string
		new  []string
	}{
		{name: "swap adjacent", old: []string{"a", "b", "c"}, new: []string{"a", "c", "b"}},
		{name: "drop head", old: []string{"a", "b", "c"}, new: []string{"b", "c"}},
		{name: "move tail forward", old: []string{"a", "b", "c", "d"}, new: []string{"a", "d", "b"}},
		{name: "reverse", old: []string{"a", "b", "c", "d"}, new: []string{"d", "c", "b", "a"}},
		{name: "replace all", old: []string{"a", "b"}, new: []string{"x", "y", "z"}},
		{name: "clear", old: []string{"a", "b"}, new: nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stmts := newRecording()
			codec := persistSimple(t, stmts, resources(tc.old...))
			want := resources(tc.new...)

			require.NoError(t, codec.UpdateSimple(context.Background(), axiom.SimpleListValueDescriptor{
				SimpleListDescriptor: simpleDesc(),
				Values:               want,
			}))

			loaded, err := codec.LoadSimple(context.Background(), simpleDesc())
			require.NoError(t, err)
			assert.Equal(t, want, values(loaded))
			assertNoSelfEdges(t, stmts)
		})
	}
}

func TestCodec_UpdateReferenced_ReplacesContentOnly(t *testing.T) {
	stmts := newRecording()
	r := resources("a", "b", "c", "d", "x")
	codec := persistReferenced(t, stmts, r[:4])
	node2 := owner + "-SEQ_2"

	require.NoError(t, codec.UpdateReferenced(context.Background(), axiom.ReferencedListValueDescriptor{
		ReferencedListDescriptor: referencedDesc(),
		Values:                   []axiom.NamedResource{r[0], r[1], r[4], r[3]},
	}))

	assert.Equal(t, []string{edge(node2, hasContent, r[2])}, stmts.removed)
	assert.Equal(t, []string{edge(node2, hasContent, r[4])}, stmts.added)
}

func TestCodec_UpdateReferenced_TruncationRemovesNode(t *testing.T) {
	stmts := newRecording()
	r := resources("a", "b", "c")
	codec := persistReferenced(t, stmts, r)
	node1, node2 := owner+"-SEQ_1", owner+"-SEQ_2"

	require.NoError(t, codec.UpdateReferenced(context.Background(), axiom.ReferencedListValueDescriptor{
		ReferencedListDescriptor: referencedDesc(),
		Values:                   r[:2],
	}))

	assert.ElementsMatch(t, []string{
		edge(node1, hasNext, node2),
		edge(node2, hasContent, r[2]),
		edge(node2, axiom.NewClassAssertion(false), axiom.SequenceOWLList),
	}, stmts.removed)
	assert.Empty(t, stmts.added)
	exists, err := stmts.ContainsSubject(context.Background(), node2, testCtx)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCodec_UpdateReferenced_ExtensionNamesFreshNodes(t *testing.T) {
	stmts := newRecording()
	r := resources("a", "b", "c")
	codec := persistReferenced(t, stmts, r[:2])
	node1, node2 := owner+"-SEQ_1", owner+"-SEQ_2"

	require.NoError(t, codec.UpdateReferenced(context.Background(), axiom.ReferencedListValueDescriptor{
		ReferencedListDescriptor: referencedDesc(),
		Values:                   r,
	}))

	assert.Empty(t, stmts.removed)
	assert.ElementsMatch(t, []string{
		edge(node1, hasNext, node2),
		edge(node2, axiom.NewClassAssertion(false), axiom.SequenceOWLList),
		edge(node2, hasContent, r[2]),
	}, stmts.added)
}

func TestCodec_PersistReferencedSkipsTakenNodeNames(t *testing.T) {
	stmts := newRecording()
	ctx := context.Background()
	taken := owner + "-SEQ_0"
	require.NoError(t, stmts.Store.AddStatements(ctx, []axiom.Axiom{
		axiom.New(taken, axiom.NewClassAssertion(false), axiom.ResourceValue("http://example.org/Thing")),
	}, testCtx))

	codec := NewCodec(stmts)
	require.NoError(t, codec.PersistReferenced(ctx, axiom.ReferencedListValueDescriptor{
		ReferencedListDescriptor: referencedDesc(),
		Values:                   resources("a"),
	}))

	loaded, err := codec.LoadReferenced(ctx, referencedDesc())
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, axiom.NamedResource(owner+"-SEQ_1"), loaded[0].Subject)
}

func assertNoSelfEdges(t *testing.T, stmts *recordingStatements) {
	t.Helper()
	subjects, err := stmts.Subjects(context.Background(), testCtx)
	require.NoError(t, err)
	sort.Slice(subjects, func(i, j int) bool { return subjects[i] < subjects[j] })
	for _, s := range subjects {
		found, err := stmts.FindStatements(context.Background(), s, hasNext, testCtx)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(found), 1, "node %s has several successors", s)
		for _, ax := range found {
			assert.NotEqual(t, s, ax.Value.Resource, "node %s points at itself", s)
		}
	}
}
