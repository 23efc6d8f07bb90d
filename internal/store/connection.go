// Package store implements the store connector used by the mapper on top of
// a statement-level backend.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ontomap/internal/axiom"
	"ontomap/internal/list"
	ontoerrors "ontomap/pkg/errors"
	"ontomap/pkg/logger"
)

// Backend is statement-level storage partitioned into named graphs.
type Backend interface {
	list.Statements
	ContainsStatement(ctx context.Context, ax axiom.Axiom, graph string) (bool, error)
	Close() error
}

// BatchFinder is implemented by backends able to look up several assertions
// of one subject at once. graphs[i] is the graph of assertions[i].
type BatchFinder interface {
	FindMany(ctx context.Context, subject axiom.NamedResource, assertions []axiom.Assertion, graphs []string) ([][]axiom.Axiom, error)
}

// Connection is the store connector: descriptor-level reads and writes, list
// handling and identifier generation.
type Connection struct {
	backend Backend
	lists   *list.Codec
	logger  *zap.Logger
}

// NewConnection creates a connection over the backend.
func NewConnection(backend Backend) *Connection {
	return &Connection{
		backend: backend,
		lists:   list.NewCodec(backend),
		logger:  logger.Named("store"),
	}
}

// Backend exposes the underlying statement storage.
func (c *Connection) Backend() Backend {
	return c.backend
}

// Close releases the backend.
func (c *Connection) Close() error {
	return c.backend.Close()
}

// Find loads the statements described by desc. String literals whose
// language differs from the assertion's language are filtered out.
func (c *Connection) Find(ctx context.Context, desc *axiom.AxiomDescriptor) ([]axiom.Axiom, error) {
	assertions := desc.Assertions()
	graphs := make([]string, len(assertions))
	for i, a := range assertions {
		graphs[i] = desc.AssertionContext(a)
	}

	var groups [][]axiom.Axiom
	if bf, ok := c.backend.(BatchFinder); ok && len(assertions) > 1 {
		found, err := bf.FindMany(ctx, desc.Subject, assertions, graphs)
		if err != nil {
			return nil, wrap("find", err)
		}
		groups = found
	} else {
		groups = make([][]axiom.Axiom, len(assertions))
		for i, a := range assertions {
			found, err := c.backend.FindStatements(ctx, desc.Subject, a, graphs[i])
			if err != nil {
				return nil, wrap("find", err)
			}
			groups[i] = found
		}
	}

	seen := make(map[string]struct{})
	var result []axiom.Axiom
	for i, group := range groups {
		for _, ax := range group {
			if !languageMatches(assertions[i], ax.Value) {
				continue
			}
			if _, dup := seen[ax.Key()]; dup {
				continue
			}
			seen[ax.Key()] = struct{}{}
			result = append(result, ax)
		}
	}
	c.logger.Debug("loaded axioms",
		zap.String("subject", string(desc.Subject)),
		zap.Int("assertions", len(assertions)),
		zap.Int("axioms", len(result)),
	)
	return result, nil
}

// Contains reports whether the statement exists in graph.
func (c *Connection) Contains(ctx context.Context, ax axiom.Axiom, graph string) (bool, error) {
	ok, err := c.backend.ContainsStatement(ctx, ax, graph)
	if err != nil {
		return false, wrap("contains", err)
	}
	return ok, nil
}

// Persist writes all values of desc.
func (c *Connection) Persist(ctx context.Context, desc *axiom.AxiomValueDescriptor) error {
	for graph, axioms := range groupValues(desc) {
		if err := c.backend.AddStatements(ctx, axioms, graph); err != nil {
			return wrap("persist", err)
		}
	}
	return nil
}

// Update replaces the stored values of every assertion touched by desc with
// the values desc carries. An assertion without values is cleared.
func (c *Connection) Update(ctx context.Context, desc *axiom.AxiomValueDescriptor) error {
	for _, a := range desc.Assertions() {
		graph := desc.AssertionContext(a)
		existing, err := c.backend.FindStatements(ctx, desc.Subject, a, graph)
		if err != nil {
			return wrap("update", err)
		}
		stale := existing[:0]
		for _, ax := range existing {
			if languageMatches(a, ax.Value) {
				stale = append(stale, ax)
			}
		}
		if len(stale) > 0 {
			if err := c.backend.RemoveStatements(ctx, stale, graph); err != nil {
				return wrap("update", err)
			}
		}
	}
	return c.Persist(ctx, desc)
}

// Remove deletes every statement matched by desc.
func (c *Connection) Remove(ctx context.Context, desc *axiom.AxiomDescriptor) error {
	for _, a := range desc.Assertions() {
		graph := desc.AssertionContext(a)
		existing, err := c.backend.FindStatements(ctx, desc.Subject, a, graph)
		if err != nil {
			return wrap("remove", err)
		}
		if len(existing) == 0 {
			continue
		}
		if err := c.backend.RemoveStatements(ctx, existing, graph); err != nil {
			return wrap("remove", err)
		}
	}
	return nil
}

// RemoveValues deletes exactly the values carried by desc.
func (c *Connection) RemoveValues(ctx context.Context, desc *axiom.AxiomValueDescriptor) error {
	for graph, axioms := range groupValues(desc) {
		if err := c.backend.RemoveStatements(ctx, axioms, graph); err != nil {
			return wrap("remove values", err)
		}
	}
	return nil
}

// GenerateIdentifier returns a fresh identifier <classIRI>_instance<uuid> not
// yet used as a subject in graph.
func (c *Connection) GenerateIdentifier(ctx context.Context, classIRI axiom.NamedResource, graph string) (axiom.NamedResource, error) {
	for {
		candidate := axiom.NamedResource(fmt.Sprintf("%s_instance%s", classIRI, uuid.NewString()))
		exists, err := c.backend.ContainsSubject(ctx, candidate, graph)
		if err != nil {
			return "", wrap("generate identifier", err)
		}
		if !exists {
			return candidate, nil
		}
	}
}

// LoadSimpleList returns the chain edges of a simple list in order.
func (c *Connection) LoadSimpleList(ctx context.Context, desc axiom.SimpleListDescriptor) ([]axiom.Axiom, error) {
	return c.lists.LoadSimple(ctx, desc)
}

// LoadReferencedList returns the node content axioms of a referenced list in order.
func (c *Connection) LoadReferencedList(ctx context.Context, desc axiom.ReferencedListDescriptor) ([]axiom.Axiom, error) {
	return c.lists.LoadReferenced(ctx, desc)
}

// PersistSimpleList writes a new simple list.
func (c *Connection) PersistSimpleList(ctx context.Context, desc axiom.SimpleListValueDescriptor) error {
	return c.lists.PersistSimple(ctx, desc)
}

// PersistReferencedList writes a new referenced list.
func (c *Connection) PersistReferencedList(ctx context.Context, desc axiom.ReferencedListValueDescriptor) error {
	return c.lists.PersistReferenced(ctx, desc)
}

// UpdateSimpleList patches a stored simple list.
func (c *Connection) UpdateSimpleList(ctx context.Context, desc axiom.SimpleListValueDescriptor) error {
	return c.lists.UpdateSimple(ctx, desc)
}

// UpdateReferencedList patches a stored referenced list.
func (c *Connection) UpdateReferencedList(ctx context.Context, desc axiom.ReferencedListValueDescriptor) error {
	return c.lists.UpdateReferenced(ctx, desc)
}

func groupValues(desc *axiom.AxiomValueDescriptor) map[string][]axiom.Axiom {
	out := make(map[string][]axiom.Axiom)
	for _, a := range desc.Assertions() {
		vals := desc.AssertionValues(a)
		if len(vals) == 0 {
			continue
		}
		graph := desc.AssertionContext(a)
		for _, v := range vals {
			out[graph] = append(out[graph], axiom.New(desc.Subject, a, v))
		}
	}
	return out
}

// languageMatches keeps untagged literals and literals tagged with the
// assertion's language. Assertions without a language accept everything.
func languageMatches(a axiom.Assertion, v axiom.Value) bool {
	if a.Language == "" || v.IsResource() || v.Language == "" {
		return true
	}
	if a.Type != axiom.DataProperty && a.Type != axiom.AnnotationProperty {
		return true
	}
	return v.Language == a.Language
}

func wrap(operation string, err error) error {
	var categorized interface{ Kind() ontoerrors.ErrorType }
	if errors.As(err, &categorized) {
		return err
	}
	return ontoerrors.NewStorageAccess(operation, err)
}
