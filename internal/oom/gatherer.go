package oom

import (
	"context"

	"ontomap/internal/axiom"
)

// Connector is the store connection the mapper reads from and writes to.
type Connector interface {
	Find(ctx context.Context, desc *axiom.AxiomDescriptor) ([]axiom.Axiom, error)
	Contains(ctx context.Context, ax axiom.Axiom, graph string) (bool, error)
	Persist(ctx context.Context, desc *axiom.AxiomValueDescriptor) error
	Update(ctx context.Context, desc *axiom.AxiomValueDescriptor) error
	Remove(ctx context.Context, desc *axiom.AxiomDescriptor) error
	RemoveValues(ctx context.Context, desc *axiom.AxiomValueDescriptor) error
	GenerateIdentifier(ctx context.Context, classIRI axiom.NamedResource, graph string) (axiom.NamedResource, error)

	LoadSimpleList(ctx context.Context, desc axiom.SimpleListDescriptor) ([]axiom.Axiom, error)
	LoadReferencedList(ctx context.Context, desc axiom.ReferencedListDescriptor) ([]axiom.Axiom, error)
	PersistSimpleList(ctx context.Context, desc axiom.SimpleListValueDescriptor) error
	PersistReferencedList(ctx context.Context, desc axiom.ReferencedListValueDescriptor) error
	UpdateSimpleList(ctx context.Context, desc axiom.SimpleListValueDescriptor) error
	UpdateReferencedList(ctx context.Context, desc axiom.ReferencedListValueDescriptor) error
}

// AxiomValueGatherer collects the writes produced by deconstructing an
// entity. The same gatherer is flushed either as an initial persist or as an
// update of existing state.
type AxiomValueGatherer struct {
	values          *axiom.AxiomValueDescriptor
	additions       *axiom.AxiomValueDescriptor
	removals        *axiom.AxiomValueDescriptor
	simpleLists     []axiom.SimpleListValueDescriptor
	referencedLists []axiom.ReferencedListValueDescriptor
}

// NewAxiomValueGatherer creates a gatherer for subject in context.
func NewAxiomValueGatherer(subject axiom.NamedResource, context string) *AxiomValueGatherer {
	newDesc := func() *axiom.AxiomValueDescriptor {
		d := axiom.NewAxiomValueDescriptor(subject)
		d.Context = context
		return d
	}
	return &AxiomValueGatherer{
		values:    newDesc(),
		additions: newDesc(),
		removals:  newDesc(),
	}
}

// Touch marks the assertion as written. On update its stored values are
// replaced, so a touched assertion without values is cleared.
func (g *AxiomValueGatherer) Touch(a axiom.Assertion, context string) {
	g.values.AddAssertion(a)
	g.setContext(g.values, a, context)
}

// AddValue adds a value of a replaced assertion.
func (g *AxiomValueGatherer) AddValue(a axiom.Assertion, v axiom.Value, context string) {
	g.values.AddAssertionValue(a, v)
	g.setContext(g.values, a, context)
}

// AddValueOnly adds a value without replacing other values of the assertion.
func (g *AxiomValueGatherer) AddValueOnly(a axiom.Assertion, v axiom.Value, context string) {
	g.additions.AddAssertionValue(a, v)
	g.setContext(g.additions, a, context)
}

// RemoveValue removes exactly this value of the assertion.
func (g *AxiomValueGatherer) RemoveValue(a axiom.Assertion, v axiom.Value, context string) {
	g.removals.AddAssertionValue(a, v)
	g.setContext(g.removals, a, context)
}

// AddSimpleListValues records the desired content of a simple list.
func (g *AxiomValueGatherer) AddSimpleListValues(desc axiom.SimpleListValueDescriptor) {
	g.simpleLists = append(g.simpleLists, desc)
}

// AddReferencedListValues records the desired content of a referenced list.
func (g *AxiomValueGatherer) AddReferencedListValues(desc axiom.ReferencedListValueDescriptor) {
	g.referencedLists = append(g.referencedLists, desc)
}

// Values exposes the replaced assertions and their values.
func (g *AxiomValueGatherer) Values() *axiom.AxiomValueDescriptor {
	return g.values
}

// Persist writes everything as new state.
func (g *AxiomValueGatherer) Persist(ctx context.Context, conn Connector) error {
	if !g.values.IsEmpty() {
		if err := conn.Persist(ctx, g.values); err != nil {
			return err
		}
	}
	if !g.additions.IsEmpty() {
		if err := conn.Persist(ctx, g.additions); err != nil {
			return err
		}
	}
	for _, l := range g.simpleLists {
		if err := conn.PersistSimpleList(ctx, l); err != nil {
			return err
		}
	}
	for _, l := range g.referencedLists {
		if err := conn.PersistReferencedList(ctx, l); err != nil {
			return err
		}
	}
	return nil
}

// Update replaces touched assertions, applies value level removals and
// additions and patches lists.
func (g *AxiomValueGatherer) Update(ctx context.Context, conn Connector) error {
	if !g.values.IsEmpty() {
		if err := conn.Update(ctx, g.values); err != nil {
			return err
		}
	}
	if !g.removals.IsEmpty() {
		if err := conn.RemoveValues(ctx, g.removals); err != nil {
			return err
		}
	}
	if !g.additions.IsEmpty() {
		if err := conn.Persist(ctx, g.additions); err != nil {
			return err
		}
	}
	for _, l := range g.simpleLists {
		if err := conn.UpdateSimpleList(ctx, l); err != nil {
			return err
		}
	}
	for _, l := range g.referencedLists {
		if err := conn.UpdateReferencedList(ctx, l); err != nil {
			return err
		}
	}
	return nil
}

func (g *AxiomValueGatherer) setContext(d *axiom.AxiomValueDescriptor, a axiom.Assertion, context string) {
	if context != d.Context {
		d.SetAssertionContext(a, context)
	}
}
