// Package list encodes ordered sequences of resources as linked chains of
// statements and patches stored chains in place.
package list

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"ontomap/internal/axiom"
	ontoerrors "ontomap/pkg/errors"
	"ontomap/pkg/logger"
)

// Statements is the statement-level storage the codec works against.
type Statements interface {
	FindStatements(ctx context.Context, subject axiom.NamedResource, assertion axiom.Assertion, graph string) ([]axiom.Axiom, error)
	AddStatements(ctx context.Context, axioms []axiom.Axiom, graph string) error
	RemoveStatements(ctx context.Context, axioms []axiom.Axiom, graph string) error
	// ContainsSubject reports whether any statement about subject exists in graph.
	ContainsSubject(ctx context.Context, subject axiom.NamedResource, graph string) (bool, error)
}

// Codec loads, persists and updates simple and referenced lists.
type Codec struct {
	stmts  Statements
	logger *zap.Logger
}

// NewCodec creates a codec over the given statements.
func NewCodec(stmts Statements) *Codec {
	return &Codec{
		stmts:  stmts,
		logger: logger.Named("list"),
	}
}

// LoadSimple returns the chain edges of a simple list in order. The value of
// the i-th axiom is the i-th list element.
func (c *Codec) LoadSimple(ctx context.Context, desc axiom.SimpleListDescriptor) ([]axiom.Axiom, error) {
	it, err := NewSimpleIterator(ctx, c.stmts, desc)
	if err != nil {
		return nil, err
	}
	var result []axiom.Axiom
	for it.HasNext() {
		ax, err := it.NextAxiom(ctx)
		if err != nil {
			return nil, err
		}
		result = append(result, ax)
	}
	return result, nil
}

// LoadReferenced returns the content axioms of a referenced list in order.
func (c *Codec) LoadReferenced(ctx context.Context, desc axiom.ReferencedListDescriptor) ([]axiom.Axiom, error) {
	it, err := NewReferencedIterator(ctx, c.stmts, desc)
	if err != nil {
		return nil, err
	}
	var result []axiom.Axiom
	for it.HasNext() {
		ax, err := it.NextAxiom(ctx)
		if err != nil {
			return nil, err
		}
		result = append(result, ax)
	}
	return result, nil
}

// PersistSimple writes a new simple list. Nothing is written for an empty list.
func (c *Codec) PersistSimple(ctx context.Context, desc axiom.SimpleListValueDescriptor) error {
	if len(desc.Values) == 0 {
		return nil
	}
	if err := checkDistinct(desc.Values); err != nil {
		return err
	}
	stmts := appendSimple(desc.SimpleListDescriptor, desc.Owner, desc.Values)
	if err := c.stmts.AddStatements(ctx, stmts, desc.Context); err != nil {
		return storageError("persist simple list", err)
	}
	return nil
}

// PersistReferenced writes a new referenced list. Nothing is written for an empty list.
func (c *Codec) PersistReferenced(ctx context.Context, desc axiom.ReferencedListValueDescriptor) error {
	if len(desc.Values) == 0 {
		return nil
	}
	names := newNodeNamer(c.stmts, desc.Owner, desc.Context)
	stmts, err := c.appendReferenced(ctx, desc.ReferencedListDescriptor, desc.Owner, desc.Values, names)
	if err != nil {
		return err
	}
	if err := c.stmts.AddStatements(ctx, stmts, desc.Context); err != nil {
		return storageError("persist referenced list", err)
	}
	return nil
}

// UpdateSimple patches the stored simple list into desc.Values.
//
// The stored chain is walked in lockstep with the desired sequence. Matching
// positions are left alone, divergent positions are replaced in place, surplus
// nodes are detached and missing ones are appended to the last kept node.
func (c *Codec) UpdateSimple(ctx context.Context, desc axiom.SimpleListValueDescriptor) error {
	if err := checkDistinct(desc.Values); err != nil {
		return err
	}
	old, err := c.LoadSimple(ctx, desc.SimpleListDescriptor)
	if err != nil {
		return err
	}
	ahead := make(map[axiom.NamedResource]int, len(old))
	for i, ax := range old {
		ahead[ax.Value.Resource] = i
	}

	it, err := NewSimpleIterator(ctx, c.stmts, desc.SimpleListDescriptor)
	if err != nil {
		return err
	}
	values := desc.Values
	last := desc.Owner
	pos := -1
	i := 0
	for it.HasNext() && i < len(values) {
		cur, err := it.NextValue(ctx)
		if err != nil {
			return err
		}
		pos++
		want := values[i]
		if cur == want {
			last = cur
			i++
			continue
		}
		q, inChain := ahead[want]
		switch {
		case inChain && q == pos+1:
			// The wanted node directly follows the cursor: drop the current node.
			if err := it.Replace(ctx, want); err != nil {
				return err
			}
			pos++
		case inChain && q > pos+1:
			// The wanted node sits further down the chain. Relinking it in place
			// would give it two predecessors, so cut the chain and rebuild the tail.
			c.logger.Debug("rebuilding simple list tail",
				zap.String("owner", string(desc.Owner)),
				zap.Int("position", i),
			)
			if err := it.RemoveWithoutReconnect(ctx); err != nil {
				return err
			}
			if err := removeRest(ctx, it); err != nil {
				return err
			}
			return c.addSimpleTail(ctx, desc, last, values[i:])
		default:
			if err := it.Replace(ctx, want); err != nil {
				return err
			}
		}
		last = want
		i++
	}
	if i < len(values) {
		return c.addSimpleTail(ctx, desc, last, values[i:])
	}
	return removeRest(ctx, it)
}

// UpdateReferenced patches the stored referenced list into desc.Values. Node
// resources are kept; only their contents change. Surplus nodes are removed
// and missing nodes are appended with fresh names.
func (c *Codec) UpdateReferenced(ctx context.Context, desc axiom.ReferencedListValueDescriptor) error {
	it, err := NewReferencedIterator(ctx, c.stmts, desc.ReferencedListDescriptor)
	if err != nil {
		return err
	}
	names := newNodeNamer(c.stmts, desc.Owner, desc.Context)
	values := desc.Values
	last := desc.Owner
	i := 0
	for it.HasNext() && i < len(values) {
		cur, err := it.NextValue(ctx)
		if err != nil {
			return err
		}
		names.reserve(it.CurrentNode())
		if cur != values[i] {
			if err := it.Replace(ctx, values[i]); err != nil {
				return err
			}
		}
		last = it.CurrentNode()
		i++
	}
	if i < len(values) {
		stmts, err := c.appendReferenced(ctx, desc.ReferencedListDescriptor, last, values[i:], names)
		if err != nil {
			return err
		}
		if err := c.stmts.AddStatements(ctx, stmts, desc.Context); err != nil {
			return storageError("append referenced list nodes", err)
		}
		return nil
	}
	return removeRest(ctx, it)
}

type cursor interface {
	HasNext() bool
	NextAxiom(ctx context.Context) (axiom.Axiom, error)
	RemoveWithoutReconnect(ctx context.Context) error
}

// removeRest detaches every node following the cursor.
func removeRest(ctx context.Context, it cursor) error {
	for it.HasNext() {
		if _, err := it.NextAxiom(ctx); err != nil {
			return err
		}
		if err := it.RemoveWithoutReconnect(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (c *Codec) addSimpleTail(ctx context.Context, desc axiom.SimpleListValueDescriptor, from axiom.NamedResource, values []axiom.NamedResource) error {
	stmts := appendSimple(desc.SimpleListDescriptor, from, values)
	if err := c.stmts.AddStatements(ctx, stmts, desc.Context); err != nil {
		return storageError("append simple list nodes", err)
	}
	return nil
}

// appendSimple links values one after another starting at from.
func appendSimple(desc axiom.SimpleListDescriptor, from axiom.NamedResource, values []axiom.NamedResource) []axiom.Axiom {
	stmts := make([]axiom.Axiom, 0, len(values))
	prev := from
	for _, v := range values {
		stmts = append(stmts, axiom.New(prev, linkAssertion(prev, desc.Owner, desc.ListProperty, desc.NextNode), axiom.ResourceValue(v)))
		prev = v
	}
	return stmts
}

func (c *Codec) appendReferenced(ctx context.Context, desc axiom.ReferencedListDescriptor, from axiom.NamedResource, values []axiom.NamedResource, names *nodeNamer) ([]axiom.Axiom, error) {
	stmts := make([]axiom.Axiom, 0, 3*len(values))
	prev := from
	for _, v := range values {
		node, err := names.next(ctx)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts,
			axiom.New(prev, linkAssertion(prev, desc.Owner, desc.ListProperty, desc.NextNode), axiom.ResourceValue(node)),
			axiom.New(node, axiom.NewClassAssertion(false), axiom.ResourceValue(axiom.SequenceOWLList)),
			axiom.New(node, desc.NodeContent, axiom.ResourceValue(v)),
		)
		prev = node
	}
	return stmts, nil
}

func linkAssertion(from, owner axiom.NamedResource, listProperty, nextNode axiom.Assertion) axiom.Assertion {
	if from == owner {
		return listProperty
	}
	return nextNode
}

// nodeNamer hands out referenced list node names <owner>-SEQ_<n>, skipping
// names already taken in the store or reserved by the current list.
type nodeNamer struct {
	stmts Statements
	owner axiom.NamedResource
	graph string
	index int
	used  map[axiom.NamedResource]struct{}
}

func newNodeNamer(stmts Statements, owner axiom.NamedResource, graph string) *nodeNamer {
	return &nodeNamer{stmts: stmts, owner: owner, graph: graph, used: make(map[axiom.NamedResource]struct{})}
}

func (n *nodeNamer) reserve(node axiom.NamedResource) {
	n.used[node] = struct{}{}
}

func (n *nodeNamer) next(ctx context.Context) (axiom.NamedResource, error) {
	for {
		candidate := axiom.NamedResource(fmt.Sprintf("%s-SEQ_%d", n.owner, n.index))
		n.index++
		if _, taken := n.used[candidate]; taken {
			continue
		}
		exists, err := n.stmts.ContainsSubject(ctx, candidate, n.graph)
		if err != nil {
			return "", storageError("check list node name", err)
		}
		if exists {
			continue
		}
		n.used[candidate] = struct{}{}
		return candidate, nil
	}
}

// checkDistinct rejects simple lists with repeated elements. A repeated node
// would need two successors in the chain.
func checkDistinct(values []axiom.NamedResource) error {
	seen := make(map[axiom.NamedResource]struct{}, len(values))
	for _, v := range values {
		if _, dup := seen[v]; dup {
			return ontoerrors.NewListProcessing(string(v), fmt.Sprintf("Simple list cannot contain element %s more than once.", v))
		}
		seen[v] = struct{}{}
	}
	return nil
}

// storageError wraps a backend failure unless it already carries a category.
func storageError(operation string, err error) error {
	var categorized interface{ Kind() ontoerrors.ErrorType }
	if errors.As(err, &categorized) {
		return err
	}
	return ontoerrors.NewStorageAccess(operation, err)
}
