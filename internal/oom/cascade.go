package oom

import (
	"context"
	"fmt"

	"ontomap/internal/axiom"
	"ontomap/internal/descriptor"
	"ontomap/internal/metamodel"
	ontoerrors "ontomap/pkg/errors"
)

// Session is the part of the unit of work the mapper depends on.
type Session interface {
	// ManagedOriginal returns the original managed for the identity, if any.
	ManagedOriginal(et *metamodel.EntityType, id axiom.NamedResource, context string) (any, bool)
	// Original returns the original of a managed clone.
	Original(clone any) (any, bool)
	IsManaged(entity any) bool
	// Persist registers entity as a new managed instance and writes it.
	Persist(ctx context.Context, entity any, desc descriptor.Descriptor) error
}

// CascadeResolver decides what happens to an entity referenced by one being written.
type CascadeResolver struct {
	session Session
	pending *PendingRegistry
}

// Resolve handles a reference from att to value:
//   - a managed value is used as is
//   - a cascading attribute persists the value through the session
//   - otherwise the value must exist in the store by commit time and is
//     recorded as a pending persist
//
// A value with no identifier that cannot be cascaded is an unpersisted reference.
func (r *CascadeResolver) Resolve(ctx context.Context, att *metamodel.Attribute, value any, target *metamodel.EntityType, desc descriptor.Descriptor) error {
	if r.session.IsManaged(value) {
		return nil
	}
	if att.Cascade {
		return r.session.Persist(ctx, value, desc)
	}
	id := target.Identifier(value)
	if id == "" {
		return ontoerrors.NewUnpersistedChange(fmt.Sprintf("%s without identifier referenced by %s", target.Name, att.Name), desc.Context())
	}
	r.pending.Register(PendingPersist{
		Context:    desc.Context(),
		Identifier: id,
		Instance:   value,
		Type:       target,
	})
	return nil
}
