// Package oom is the object-ontology mapper. It rebuilds entities from axioms
// and breaks entities down into axioms, one field strategy per attribute.
package oom

import (
	"context"
	"errors"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"ontomap/internal/axiom"
	"ontomap/internal/descriptor"
	"ontomap/internal/metamodel"
	ontoerrors "ontomap/pkg/errors"
	"ontomap/pkg/logger"
)

// Mapper converts between entities and axioms for one session. Not safe for
// concurrent use.
type Mapper struct {
	mm        *metamodel.Metamodel
	conn      Connector
	session   Session
	instances *InstanceRegistry
	pending   *PendingRegistry
	cascade   *CascadeResolver
	logger    *zap.Logger
}

// NewMapper creates a mapper bound to session.
func NewMapper(mm *metamodel.Metamodel, conn Connector, session Session) *Mapper {
	pending := NewPendingRegistry()
	return &Mapper{
		mm:        mm,
		conn:      conn,
		session:   session,
		instances: NewInstanceRegistry(),
		pending:   pending,
		cascade:   &CascadeResolver{session: session, pending: pending},
		logger:    logger.Named("oom"),
	}
}

// Pending exposes the pending persist registry.
func (m *Mapper) Pending() *PendingRegistry {
	return m.pending
}

// ContainsEntity reports whether the store holds the class assertion of id.
func (m *Mapper) ContainsEntity(ctx context.Context, et *metamodel.EntityType, id axiom.NamedResource, desc descriptor.Descriptor) (bool, error) {
	ax := axiom.New(id, axiom.NewClassAssertion(false), axiom.ResourceValue(et.Class))
	return m.conn.Contains(ctx, ax, desc.Context())
}

// LoadEntity loads and reconstructs the entity id. It returns nil when the
// store holds nothing about id. The instance registry lives for the duration
// of the call only.
func (m *Mapper) LoadEntity(ctx context.Context, et *metamodel.EntityType, id axiom.NamedResource, desc descriptor.Descriptor) (any, error) {
	m.instances.Reset()
	defer m.instances.Reset()
	return m.loadEntity(ctx, et, id, desc)
}

func (m *Mapper) loadEntity(ctx context.Context, et *metamodel.EntityType, id axiom.NamedResource, desc descriptor.Descriptor) (any, error) {
	axioms, err := m.conn.Find(ctx, m.loadingDescriptor(et, id, desc, false))
	if err != nil {
		return nil, err
	}
	if len(axioms) == 0 {
		return nil, nil
	}
	return m.ReconstructEntity(ctx, id, et, desc, axioms)
}

// ReconstructEntity builds an instance of et from axioms about id. The
// instance is registered before its fields are resolved, so references back
// to it resolve to the same instance.
func (m *Mapper) ReconstructEntity(ctx context.Context, id axiom.NamedResource, et *metamodel.EntityType, desc descriptor.Descriptor, axioms []axiom.Axiom) (any, error) {
	instance := et.New()
	et.SetIdentifier(instance, id)
	m.instances.Register(id, desc.Context(), instance)

	byIRI := attributesByIRI(et)
	strategies := make(map[*metamodel.Attribute]fieldStrategy)
	var order []*metamodel.Attribute
	for _, ax := range axioms {
		att := attributeFor(et, byIRI, ax, false)
		if att == nil {
			continue
		}
		s, ok := strategies[att]
		if !ok {
			created, err := newFieldStrategy(m, et, att, desc)
			if err != nil {
				return nil, err
			}
			s = created
			strategies[att] = s
			order = append(order, att)
		}
		if err := s.addValueFromAxiom(ctx, ax); err != nil {
			return nil, err
		}
	}
	for _, att := range order {
		if err := strategies[att].buildInstanceFieldValue(instance); err != nil {
			return nil, err
		}
	}
	m.instances.Register(id, desc.Context(), instance)
	m.logger.Debug("reconstructed entity",
		zap.String("type", et.Name),
		zap.String("id", string(id)),
		zap.Int("axioms", len(axioms)),
	)
	return instance, nil
}

// LoadFieldValue loads a single attribute of entity, typically a lazy one.
// The field is left untouched when the store holds no value.
func (m *Mapper) LoadFieldValue(ctx context.Context, entity any, att *metamodel.Attribute, desc descriptor.Descriptor) error {
	et, err := m.mm.EntityTypeOf(entity)
	if err != nil {
		return err
	}
	id := et.Identifier(entity)
	m.instances.Reset()
	defer m.instances.Reset()
	m.instances.Register(id, desc.Context(), entity)

	d := axiom.NewAxiomDescriptor(id)
	d.Context = desc.Context()
	addLoadingAssertion(d, att, desc)
	axioms, err := m.conn.Find(ctx, d)
	if err != nil {
		return err
	}
	if len(axioms) == 0 {
		return nil
	}
	s, err := newFieldStrategy(m, et, att, desc)
	if err != nil {
		return err
	}
	byIRI := attributesByIRI(et)
	for _, ax := range axioms {
		if attributeFor(et, byIRI, ax, true) != att {
			continue
		}
		if err := s.addValueFromAxiom(ctx, ax); err != nil {
			return err
		}
	}
	return s.buildInstanceFieldValue(entity)
}

// PersistEntity writes entity as new state. An empty id is replaced by a
// generated identifier, which is also set on the entity.
func (m *Mapper) PersistEntity(ctx context.Context, id axiom.NamedResource, entity any, desc descriptor.Descriptor) error {
	et, err := m.mm.EntityTypeOf(entity)
	if err != nil {
		return err
	}
	if id == "" {
		if id, err = m.GenerateIdentifier(ctx, et, desc); err != nil {
			return err
		}
		et.SetIdentifier(entity, id)
	}
	g, err := m.MapEntityToAxioms(ctx, id, entity, et, desc)
	if err != nil {
		return err
	}
	if err := g.Persist(ctx, m.conn); err != nil {
		return err
	}
	m.pending.Remove(id, desc.Context())
	m.logger.Debug("persisted entity", zap.String("type", et.Name), zap.String("id", string(id)))
	return nil
}

// MapEntityToAxioms deconstructs every attribute of entity.
func (m *Mapper) MapEntityToAxioms(ctx context.Context, id axiom.NamedResource, entity any, et *metamodel.EntityType, desc descriptor.Descriptor) (*AxiomValueGatherer, error) {
	g := NewAxiomValueGatherer(id, desc.Context())
	if et.Types == nil {
		g.AddValue(axiom.NewClassAssertion(false), axiom.ResourceValue(et.Class), desc.Context())
	}
	for _, att := range et.FieldsForUpdate() {
		if err := m.mapField(ctx, id, entity, et, att, desc, g); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// MapFieldToAxioms deconstructs a single attribute of entity.
func (m *Mapper) MapFieldToAxioms(ctx context.Context, id axiom.NamedResource, entity any, att *metamodel.Attribute, et *metamodel.EntityType, desc descriptor.Descriptor) (*AxiomValueGatherer, error) {
	g := NewAxiomValueGatherer(id, desc.Context())
	if err := m.mapField(ctx, id, entity, et, att, desc, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (m *Mapper) mapField(ctx context.Context, id axiom.NamedResource, entity any, et *metamodel.EntityType, att *metamodel.Attribute, desc descriptor.Descriptor, g *AxiomValueGatherer) error {
	s, err := newFieldStrategy(m, et, att, desc)
	if err != nil {
		return err
	}
	if err := s.buildAxiomValuesFromInstance(ctx, entity, g); err != nil {
		var categorized interface{ Kind() ontoerrors.ErrorType }
		if errors.As(err, &categorized) {
			return err
		}
		return ontoerrors.NewEntityDeconstruction(string(id), att.Name, "", err)
	}
	return nil
}

// GenerateIdentifier asks the store for a fresh identifier of et.
func (m *Mapper) GenerateIdentifier(ctx context.Context, et *metamodel.EntityType, desc descriptor.Descriptor) (axiom.NamedResource, error) {
	return m.conn.GenerateIdentifier(ctx, et.Class, desc.Context())
}

// GetEntityFromCacheOrStore resolves a reference: the session's managed
// original first, then an instance under construction, then the store.
func (m *Mapper) GetEntityFromCacheOrStore(ctx context.Context, et *metamodel.EntityType, id axiom.NamedResource, desc descriptor.Descriptor) (any, error) {
	if original, ok := m.session.ManagedOriginal(et, id, desc.Context()); ok {
		return original, nil
	}
	if instance, ok := m.instances.Get(id, desc.Context()); ok {
		return instance, nil
	}
	return m.loadEntity(ctx, et, id, desc)
}

// RemoveEntity removes every statement of the identity, the chains of its
// list attributes included.
func (m *Mapper) RemoveEntity(ctx context.Context, et *metamodel.EntityType, id axiom.NamedResource, desc descriptor.Descriptor) error {
	for _, att := range et.Attributes {
		graph := desc.AttributeContext(att)
		switch att.Collection {
		case metamodel.CollectionSimpleList:
			err := m.conn.UpdateSimpleList(ctx, axiom.SimpleListValueDescriptor{
				SimpleListDescriptor: axiom.SimpleListDescriptor{
					Owner:        id,
					ListProperty: att.Assertion(),
					NextNode:     att.NextAssertion(),
					Context:      graph,
				},
			})
			if err != nil {
				return err
			}
		case metamodel.CollectionReferencedList:
			err := m.conn.UpdateReferencedList(ctx, axiom.ReferencedListValueDescriptor{
				ReferencedListDescriptor: axiom.ReferencedListDescriptor{
					Owner:        id,
					ListProperty: att.Assertion(),
					NextNode:     att.NextAssertion(),
					NodeContent:  att.ContentAssertion(),
					Context:      graph,
				},
			})
			if err != nil {
				return err
			}
		}
	}
	if err := m.conn.Remove(ctx, m.loadingDescriptor(et, id, desc, true)); err != nil {
		return err
	}
	m.pending.Remove(id, desc.Context())
	m.logger.Debug("removed entity", zap.String("type", et.Name), zap.String("id", string(id)))
	return nil
}

// UpdateFieldValue rewrites the stored state of one attribute of entity.
func (m *Mapper) UpdateFieldValue(ctx context.Context, entity any, att *metamodel.Attribute, desc descriptor.Descriptor) error {
	et, err := m.mm.EntityTypeOf(entity)
	if err != nil {
		return err
	}
	g, err := m.MapFieldToAxioms(ctx, et.Identifier(entity), entity, att, et, desc)
	if err != nil {
		return err
	}
	return g.Update(ctx, m.conn)
}

// CheckForUnpersistedChanges verifies that every pending persist now exists
// in the store. Each missing instance yields one error. The registry is
// emptied afterwards.
func (m *Mapper) CheckForUnpersistedChanges(ctx context.Context) error {
	defer m.pending.Reset()
	var errs error
	for _, p := range m.pending.Instances() {
		exists, err := m.ContainsEntity(ctx, p.Type, p.Identifier, descriptor.New(p.Context))
		if err != nil {
			return multierr.Append(errs, err)
		}
		if !exists {
			m.logger.Warn("unpersisted reference",
				zap.String("type", p.Type.Name),
				zap.String("id", string(p.Identifier)),
				zap.String("context", p.Context),
			)
			errs = multierr.Append(errs, ontoerrors.NewUnpersistedChange(string(p.Identifier), p.Context))
		}
	}
	return errs
}

// LoadSimpleList returns the element axioms of a simple list.
func (m *Mapper) LoadSimpleList(ctx context.Context, desc axiom.SimpleListDescriptor) ([]axiom.Axiom, error) {
	return m.conn.LoadSimpleList(ctx, desc)
}

// LoadReferencedList returns the content axioms of a referenced list.
func (m *Mapper) LoadReferencedList(ctx context.Context, desc axiom.ReferencedListDescriptor) ([]axiom.Axiom, error) {
	return m.conn.LoadReferencedList(ctx, desc)
}

// loadingDescriptor lists the assertions of et to load for id. Lazy
// attributes are left out unless includeLazy is set.
func (m *Mapper) loadingDescriptor(et *metamodel.EntityType, id axiom.NamedResource, desc descriptor.Descriptor, includeLazy bool) *axiom.AxiomDescriptor {
	d := axiom.NewAxiomDescriptor(id)
	d.Context = desc.Context()
	d.AddAssertion(axiom.NewClassAssertion(false))
	for _, att := range et.FieldsForUpdate() {
		if att.IsLazy() && !includeLazy {
			continue
		}
		addLoadingAssertion(d, att, desc)
	}
	return d
}

func addLoadingAssertion(d *axiom.AxiomDescriptor, att *metamodel.Attribute, desc descriptor.Descriptor) {
	var a axiom.Assertion
	switch att.Kind {
	case metamodel.KindTypes:
		a = axiom.NewClassAssertion(att.Inferred)
	case metamodel.KindProperties:
		a = axiom.AllProperties
	default:
		a = att.Assertion()
		if a.Type == axiom.DataProperty || a.Type == axiom.AnnotationProperty {
			a.Language = desc.AttributeLanguage(att)
		}
	}
	d.AddAssertion(a)
	if graph := desc.AttributeContext(att); graph != d.Context {
		d.SetAssertionContext(a, graph)
	}
}

func attributesByIRI(et *metamodel.EntityType) map[axiom.NamedResource]*metamodel.Attribute {
	out := make(map[axiom.NamedResource]*metamodel.Attribute, len(et.Attributes))
	for _, att := range et.Attributes {
		if _, taken := out[att.IRI]; !taken {
			out[att.IRI] = att
		}
	}
	return out
}

// attributeFor selects the attribute an axiom belongs to: the types field
// for class assertions, a declared attribute for its predicate, otherwise
// the properties field. Lazy attributes are skipped unless includeLazy is set.
func attributeFor(et *metamodel.EntityType, byIRI map[axiom.NamedResource]*metamodel.Attribute, ax axiom.Axiom, includeLazy bool) *metamodel.Attribute {
	if ax.Assertion.IRI == axiom.RDFType {
		return et.Types
	}
	if att, ok := byIRI[ax.Assertion.IRI]; ok {
		if att.IsLazy() && !includeLazy {
			return nil
		}
		return att
	}
	return et.Properties
}
