// Package memory provides an in-process quad store. It backs tests and the
// memory store backend, and can be snapshotted to bytes.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"ontomap/internal/axiom"
)

type statement struct {
	predicate axiom.NamedResource
	value     axiom.Value
}

// Store keeps statements grouped by graph and subject. Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	graphs map[string]map[axiom.NamedResource][]statement
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{graphs: make(map[string]map[axiom.NamedResource][]statement)}
}

// FindStatements returns statements of subject whose predicate the assertion matches.
func (s *Store) FindStatements(_ context.Context, subject axiom.NamedResource, assertion axiom.Assertion, graph string) ([]axiom.Axiom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []axiom.Axiom
	for _, st := range s.graphs[graph][subject] {
		if !assertion.Matches(st.predicate) {
			continue
		}
		result = append(result, axiom.New(subject, assertion.ForPredicate(st.predicate), st.value))
	}
	return result, nil
}

// AddStatements inserts axioms into graph. Existing statements are not duplicated.
func (s *Store) AddStatements(_ context.Context, axioms []axiom.Axiom, graph string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	subjects, ok := s.graphs[graph]
	if !ok {
		subjects = make(map[axiom.NamedResource][]statement)
		s.graphs[graph] = subjects
	}
	for _, ax := range axioms {
		if indexOf(subjects[ax.Subject], ax.Assertion.IRI, ax.Value) >= 0 {
			continue
		}
		subjects[ax.Subject] = append(subjects[ax.Subject], statement{predicate: ax.Assertion.IRI, value: ax.Value})
	}
	return nil
}

// RemoveStatements deletes axioms from graph. Missing statements are ignored.
func (s *Store) RemoveStatements(_ context.Context, axioms []axiom.Axiom, graph string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	subjects := s.graphs[graph]
	for _, ax := range axioms {
		sts := subjects[ax.Subject]
		i := indexOf(sts, ax.Assertion.IRI, ax.Value)
		if i < 0 {
			continue
		}
		sts = append(sts[:i], sts[i+1:]...)
		if len(sts) == 0 {
			delete(subjects, ax.Subject)
		} else {
			subjects[ax.Subject] = sts
		}
	}
	return nil
}

// ContainsStatement reports whether the exact statement is stored in graph.
func (s *Store) ContainsStatement(_ context.Context, ax axiom.Axiom, graph string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return indexOf(s.graphs[graph][ax.Subject], ax.Assertion.IRI, ax.Value) >= 0, nil
}

// ContainsSubject reports whether any statement about subject exists in graph.
func (s *Store) ContainsSubject(_ context.Context, subject axiom.NamedResource, graph string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.graphs[graph][subject]) > 0, nil
}

// Subjects returns every subject in graph, sorted.
func (s *Store) Subjects(_ context.Context, graph string) ([]axiom.NamedResource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]axiom.NamedResource, 0, len(s.graphs[graph]))
	for subj := range s.graphs[graph] {
		out = append(out, subj)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// Len returns the number of statements across all graphs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, subjects := range s.graphs {
		for _, sts := range subjects {
			n += len(sts)
		}
	}
	return n
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func indexOf(sts []statement, predicate axiom.NamedResource, value axiom.Value) int {
	for i, st := range sts {
		if st.predicate == predicate && st.value.Equal(value) {
			return i
		}
	}
	return -1
}

// Quad is the serialized form of one statement.
type Quad struct {
	Graph     string `msgpack:"g"`
	Subject   string `msgpack:"s"`
	Predicate string `msgpack:"p"`
	Object    string `msgpack:"o"`
	Datatype  string `msgpack:"dt,omitempty"`
	Language  string `msgpack:"lang,omitempty"`
}

// Snapshot encodes the whole store with msgpack.
func (s *Store) Snapshot() ([]byte, error) {
	s.mu.RLock()
	quads := make([]Quad, 0)
	for graph, subjects := range s.graphs {
		for subj, sts := range subjects {
			for _, st := range sts {
				quads = append(quads, Quad{
					Graph:     graph,
					Subject:   string(subj),
					Predicate: string(st.predicate),
					Object:    st.value.Lexical(),
					Datatype:  st.value.Datatype(),
					Language:  st.value.Language,
				})
			}
		}
	}
	s.mu.RUnlock()
	data, err := msgpack.Marshal(quads)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Restore replaces the store content with a snapshot.
func (s *Store) Restore(data []byte) error {
	var quads []Quad
	if err := msgpack.Unmarshal(data, &quads); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	graphs := make(map[string]map[axiom.NamedResource][]statement)
	for _, q := range quads {
		value := axiom.ResourceValue(axiom.NamedResource(q.Object))
		if q.Datatype != "" {
			lit, err := axiom.ParseLiteral(q.Object, q.Datatype, q.Language)
			if err != nil {
				return fmt.Errorf("decode snapshot statement of %s: %w", q.Subject, err)
			}
			value = lit
		}
		subjects, ok := graphs[q.Graph]
		if !ok {
			subjects = make(map[axiom.NamedResource][]statement)
			graphs[q.Graph] = subjects
		}
		subj := axiom.NamedResource(q.Subject)
		subjects[subj] = append(subjects[subj], statement{predicate: axiom.NamedResource(q.Predicate), value: value})
	}
	s.mu.Lock()
	s.graphs = graphs
	s.mu.Unlock()
	return nil
}
