package list

import (
	"context"
	"fmt"

	"ontomap/internal/axiom"
	ontoerrors "ontomap/pkg/errors"
)

// SimpleIterator walks a simple list, where every node is the list value:
//
//	owner --hasList--> n0 --hasNext--> n1 --hasNext--> ...
//
// The cursor sits on the edge leading to the current node.
type SimpleIterator struct {
	stmts   Statements
	desc    axiom.SimpleListDescriptor
	current *axiom.Axiom
	next    *axiom.Axiom
	visited map[axiom.NamedResource]struct{}
	removed bool
}

// NewSimpleIterator positions a cursor before the first node of the list.
func NewSimpleIterator(ctx context.Context, stmts Statements, desc axiom.SimpleListDescriptor) (*SimpleIterator, error) {
	it := &SimpleIterator{
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
func (it *SimpleIterator) HasNext() bool {
	return it.next != nil
}

// NextAxiom advances the cursor and returns the edge pointing at the new node.
func (it *SimpleIterator) NextAxiom(ctx context.Context) (axiom.Axiom, error) {
	if it.next == nil {
		return axiom.Axiom{}, ontoerrors.NewIllegalState("next", "There are no more elements in the list.")
	}
	node := it.next.Value.Resource
	if _, seen := it.visited[node]; seen {
		return axiom.Axiom{}, ontoerrors.NewListProcessing(string(node), fmt.Sprintf("Cycle detected, node %s was already visited.", node))
	}
	it.visited[node] = struct{}{}
	it.current = it.next
	it.removed = false
	nx, err := successor(ctx, it.stmts, node, it.desc.NextNode, it.desc.Context)
	if err != nil {
		return axiom.Axiom{}, err
	}
	it.next = nx
	return *it.current, nil
}

// NextValue advances the cursor and returns the node it now points at.
func (it *SimpleIterator) NextValue(ctx context.Context) (axiom.NamedResource, error) {
	ax, err := it.NextAxiom(ctx)
	if err != nil {
		return "", err
	}
	return ax.Value.Resource, nil
}

// RemoveWithoutReconnect deletes the edge leading to the current node. The
// predecessor is not linked to the successor.
func (it *SimpleIterator) RemoveWithoutReconnect(ctx context.Context) error {
	if it.current == nil {
		return ontoerrors.NewIllegalState("removeWithoutReconnect", "Cannot call remove before calling nextAxiom.")
	}
	if it.removed {
		return ontoerrors.NewIllegalState("removeWithoutReconnect", "Cannot call remove multiple times on one element.")
	}
	if err := it.stmts.RemoveStatements(ctx, []axiom.Axiom{*it.current}, it.desc.Context); err != nil {
		return storageError("remove list node", err)
	}
	it.removed = true
	return nil
}

// Replace puts value in place of the current node, keeping the predecessor and
// successor links. When value is the successor itself the predecessor is
// linked straight to it, so no node ever points at itself.
func (it *SimpleIterator) Replace(ctx context.Context, value axiom.NamedResource) error {
	if it.current == nil {
		return ontoerrors.NewIllegalState("replace", "Cannot call replace before calling nextAxiom.")
	}
	if it.removed {
		return ontoerrors.NewIllegalState("replace", "Cannot replace an element that was removed.")
	}
	prev := it.current.Subject
	toRemove := []axiom.Axiom{*it.current}
	if it.next != nil {
		toRemove = append(toRemove, *it.next)
	}
	if err := it.stmts.RemoveStatements(ctx, toRemove, it.desc.Context); err != nil {
		return storageError("remove list node", err)
	}

	toAdd := []axiom.Axiom{axiom.New(prev, it.current.Assertion, axiom.ResourceValue(value))}
	var next *axiom.Axiom
	if it.next != nil {
		if it.next.Value.Resource == value {
			nx, err := successor(ctx, it.stmts, value, it.desc.NextNode, it.desc.Context)
			if err != nil {
				return err
			}
			next = nx
		} else {
			link := axiom.New(value, it.desc.NextNode, it.next.Value)
			toAdd = append(toAdd, link)
			next = &link
		}
	}
	if err := it.stmts.AddStatements(ctx, toAdd, it.desc.Context); err != nil {
		return storageError("add list node", err)
	}
	it.visited[value] = struct{}{}
	it.current = &toAdd[0]
	it.next = next
	return nil
}

// successor returns the single edge node --assertion--> x, nil when the chain ends.
func successor(ctx context.Context, stmts Statements, node axiom.NamedResource, assertion axiom.Assertion, graph string) (*axiom.Axiom, error) {
	found, err := stmts.FindStatements(ctx, node, assertion, graph)
	if err != nil {
		return nil, storageError("find list node", err)
	}
	switch len(found) {
	case 0:
		return nil, nil
	case 1:
	default:
		return nil, ontoerrors.NewListProcessing(string(node), fmt.Sprintf("Encountered multiple successors of node %s.", node))
	}
	ax := found[0]
	if !ax.Value.IsResource() {
		return nil, ontoerrors.NewListProcessing(string(node), fmt.Sprintf("Expected successor of node %s to be a named resource.", node))
	}
	return &ax, nil
}
