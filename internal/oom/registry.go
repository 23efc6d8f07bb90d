package oom

import "ontomap/internal/axiom"

type instanceKey struct {
	id      axiom.NamedResource
	context string
}

// InstanceRegistry holds the instances under construction during one
// top-level load. Looking an identifier up before building it again is what
// stops bidirectional references from recursing forever.
type InstanceRegistry struct {
	instances map[instanceKey]any
}

// NewInstanceRegistry creates an empty registry.
func NewInstanceRegistry() *InstanceRegistry {
	return &InstanceRegistry{instances: make(map[instanceKey]any)}
}

// Register records instance as the one live instance of (id, context).
func (r *InstanceRegistry) Register(id axiom.NamedResource, context string, instance any) {
	r.instances[instanceKey{id, context}] = instance
}

// Get returns the instance registered for (id, context).
func (r *InstanceRegistry) Get(id axiom.NamedResource, context string) (any, bool) {
	instance, ok := r.instances[instanceKey{id, context}]
	return instance, ok
}

func (r *InstanceRegistry) Len() int {
	return len(r.instances)
}

// Reset discards every entry.
func (r *InstanceRegistry) Reset() {
	clear(r.instances)
}
