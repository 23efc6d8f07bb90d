package oom

import (
	"sort"

	"ontomap/internal/axiom"
	"ontomap/internal/metamodel"
)

// PendingPersist is an instance referenced without cascade whose existence
// in the store has not been confirmed yet.
type PendingPersist struct {
	Context    string
	Identifier axiom.NamedResource
	Instance   any
	Type       *metamodel.EntityType
}

// PendingRegistry tracks pending persists per context.
type PendingRegistry struct {
	instances map[string]map[axiom.NamedResource]PendingPersist
}

func NewPendingRegistry() *PendingRegistry {
	return &PendingRegistry{instances: make(map[string]map[axiom.NamedResource]PendingPersist)}
}

// Register records a pending persist, replacing an earlier one for the same identity.
func (r *PendingRegistry) Register(p PendingPersist) {
	byID, ok := r.instances[p.Context]
	if !ok {
		byID = make(map[axiom.NamedResource]PendingPersist)
		r.instances[p.Context] = byID
	}
	byID[p.Identifier] = p
}

// Remove drops the entry of (id, context) once the instance is persisted.
func (r *PendingRegistry) Remove(id axiom.NamedResource, context string) {
	byID, ok := r.instances[context]
	if !ok {
		return
	}
	delete(byID, id)
	if len(byID) == 0 {
		delete(r.instances, context)
	}
}

// Instances returns the pending entries ordered by context and identifier.
func (r *PendingRegistry) Instances() []PendingPersist {
	var out []PendingPersist
	for _, byID := range r.instances {
		for _, p := range byID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Context != out[j].Context {
			return out[i].Context < out[j].Context
		}
		return out[i].Identifier < out[j].Identifier
	})
	return out
}

func (r *PendingRegistry) Len() int {
	n := 0
	for _, byID := range r.instances {
		n += len(byID)
	}
	return n
}

// Reset drops every entry.
func (r *PendingRegistry) Reset() {
	clear(r.instances)
}
