package list

import (
	"context"
	"fmt"

	"ontomap/internal/axiom"
	ontoerrors "ontomap/pkg/errors"
)

// ReferencedIterator walks a referenced list, where list nodes are distinct
// from the values they hold:
//
//	owner --hasContents--> node0 --hasNext--> node1 ...
//	nodeN --hasContent--> valueN
type ReferencedIterator struct {
	stmts   Statements
	desc    axiom.ReferencedListDescriptor
	link    *axiom.Axiom // edge leading to the current node
	content *axiom.Axiom // current node's content edge
	next    *axiom.Axiom // edge leading to the following node
	visited map[axiom.NamedResource]struct{}
	removed bool
}

// NewReferencedIterator positions a cursor before the first node of the list.
func NewReferencedIterator(ctx context.Context, stmts Statements, desc axiom.ReferencedListDescriptor) (*ReferencedIterator, error) {
	it := &ReferencedIterator{
		stmts:   stmts,
		desc:    desc,
		visited: map[axiom.NamedResource]struct{}{desc.Owner: {}},
	}
	first, err := successor(ctx, stmts, desc.Owner, desc.ListProperty, desc.Context)
	if err != nil {
		return nil, err
	}
	it.next = first
	return it, nil
}

// HasNext reports whether another node follows the cursor.
func (it *ReferencedIterator) HasNext() bool {
	return it.next != nil
}

// NextAxiom advances the cursor and returns the content axiom of the new node.
func (it *ReferencedIterator) NextAxiom(ctx context.Context) (axiom.Axiom, error) {
	if it.next == nil {
		return axiom.Axiom{}, ontoerrors.NewIllegalState("next", "There are no more elements in the list.")
	}
	node := it.next.Value.Resource
	if _, seen := it.visited[node]; seen {
		return axiom.Axiom{}, ontoerrors.NewListProcessing(string(node), fmt.Sprintf("Cycle detected, node %s was already visited.", node))
	}
	it.visited[node] = struct{}{}

	contents, err := it.stmts.FindStatements(ctx, node, it.desc.NodeContent, it.desc.Context)
	if err != nil {
		return axiom.Axiom{}, storageError("find list node content", err)
	}
	if len(contents) != 1 {
		return axiom.Axiom{}, ontoerrors.NewListProcessing(string(node), fmt.Sprintf("Expected exactly one content of node %s, got %d.", node, len(contents)))
	}
	if !contents[0].Value.IsResource() {
		return axiom.Axiom{}, ontoerrors.NewListProcessing(string(node), fmt.Sprintf("Expected content of node %s to be a named resource.", node))
	}
	nx, err := successor(ctx, it.stmts, node, it.desc.NextNode, it.desc.Context)
	if err != nil {
		return axiom.Axiom{}, err
	}

	it.link = it.next
	it.content = &contents[0]
	it.next = nx
	it.removed = false
	return *it.content, nil
}

// NextValue advances the cursor and returns the value held by the new node.
func (it *ReferencedIterator) NextValue(ctx context.Context) (axiom.NamedResource, error) {
	ax, err := it.NextAxiom(ctx)
	if err != nil {
		return "", err
	}
	return ax.Value.Resource, nil
}

// CurrentNode returns the list node under the cursor.
func (it *ReferencedIterator) CurrentNode() axiom.NamedResource {
	if it.link == nil {
		return ""
	}
	return it.link.Value.Resource
}

// RemoveWithoutReconnect deletes the current node: its incoming edge, its
// content and its list class assertion. The successor is left dangling.
func (it *ReferencedIterator) RemoveWithoutReconnect(ctx context.Context) error {
	if it.link == nil {
		return ontoerrors.NewIllegalState("removeWithoutReconnect", "Cannot call remove before calling nextAxiom.")
	}
	if it.removed {
		return ontoerrors.NewIllegalState("removeWithoutReconnect", "Cannot call remove multiple times on one element.")
	}
	node := it.link.Value.Resource
	toRemove := []axiom.Axiom{
		*it.link,
		*it.content,
		axiom.New(node, axiom.NewClassAssertion(false), axiom.ResourceValue(axiom.SequenceOWLList)),
	}
	if err := it.stmts.RemoveStatements(ctx, toRemove, it.desc.Context); err != nil {
		return storageError("remove list node", err)
	}
	it.removed = true
	return nil
}

// Replace swaps the content of the current node. Node links stay untouched.
func (it *ReferencedIterator) Replace(ctx context.Context, value axiom.NamedResource) error {
	if it.link == nil {
		return ontoerrors.NewIllegalState("replace", "Cannot call replace before calling nextAxiom.")
	}
	if it.removed {
		return ontoerrors.NewIllegalState("replace", "Cannot replace an element that was removed.")
	}
	if it.content.Value.Resource == value {
		return nil
	}
	if err := it.stmts.RemoveStatements(ctx, []axiom.Axiom{*it.content}, it.desc.Context); err != nil {
		return storageError("remove list node content", err)
	}
	replacement := axiom.New(it.content.Subject, it.desc.NodeContent, axiom.ResourceValue(value))
	if err := it.stmts.AddStatements(ctx, []axiom.Axiom{replacement}, it.desc.Context); err != nil {
		return storageError("add list node content", err)
	}
	it.content = &replacement
	return nil
}
