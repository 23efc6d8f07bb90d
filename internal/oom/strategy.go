package oom

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"ontomap/internal/axiom"
	"ontomap/internal/descriptor"
	"ontomap/internal/metamodel"
	ontoerrors "ontomap/pkg/errors"
)

// fieldStrategy converts between one attribute of an entity and its axioms.
// Load: addValueFromAxiom for every axiom of the attribute, then
// buildInstanceFieldValue. Write: buildAxiomValuesFromInstance.
type fieldStrategy interface {
	addValueFromAxiom(ctx context.Context, ax axiom.Axiom) error
	buildInstanceFieldValue(instance any) error
	buildAxiomValuesFromInstance(ctx context.Context, instance any, g *AxiomValueGatherer) error
}

// newFieldStrategy picks the strategy resolved for the attribute at registration.
func newFieldStrategy(m *Mapper, et *metamodel.EntityType, att *metamodel.Attribute, desc descriptor.Descriptor) (fieldStrategy, error) {
	base := baseStrategy{mapper: m, et: et, att: att, desc: desc}
	switch att.Strategy {
	case metamodel.StrategySingularData:
		return &singularDataStrategy{baseStrategy: base}, nil
	case metamodel.StrategyPluralData:
		return &pluralDataStrategy{baseStrategy: base, seen: make(map[string]struct{})}, nil
	case metamodel.StrategyTypes:
		return &typesStrategy{baseStrategy: base, seen: make(map[axiom.NamedResource]struct{})}, nil
	case metamodel.StrategyProperties:
		return &propertiesStrategy{baseStrategy: base, values: make(map[string][]axiom.Value)}, nil
	}

	target, err := m.mm.Target(et, att)
	if err != nil {
		return nil, err
	}
	ref := referenceStrategy{baseStrategy: base, target: target}
	switch att.Strategy {
	case metamodel.StrategySingularObject:
		return &singularObjectStrategy{referenceStrategy: ref}, nil
	case metamodel.StrategyPluralObject:
		return &pluralObjectStrategy{referenceStrategy: ref, seen: make(map[axiom.NamedResource]struct{})}, nil
	case metamodel.StrategySimpleList:
		return &simpleListStrategy{listStrategy{referenceStrategy: ref}}, nil
	case metamodel.StrategyReferencedList:
		return &referencedListStrategy{listStrategy{referenceStrategy: ref}}, nil
	}
	return nil, ontoerrors.NewInvalidFieldMapping(et.Name, att.Name, fmt.Sprintf("no strategy for %s", att.Strategy))
}

type baseStrategy struct {
	mapper *Mapper
	et     *metamodel.EntityType
	att    *metamodel.Attribute
	desc   descriptor.Descriptor
}

func (s *baseStrategy) context() string {
	return s.desc.AttributeContext(s.att)
}

func (s *baseStrategy) language() string {
	return s.desc.AttributeLanguage(s.att)
}

// assertion is the attribute assertion carrying the language in effect.
func (s *baseStrategy) assertion() axiom.Assertion {
	a := s.att.Assertion()
	if a.Type == axiom.DataProperty || a.Type == axiom.AnnotationProperty {
		a.Language = s.language()
	}
	return a
}

func (s *baseStrategy) field(instance any) reflect.Value {
	return s.et.Field(instance, s.att)
}

func (s *baseStrategy) reconstructionError(subject axiom.NamedResource, reason string, err error) error {
	return ontoerrors.NewEntityReconstruction(string(subject), s.att.Name, reason, err)
}

func (s *baseStrategy) deconstructionError(instance any, reason string, err error) error {
	return ontoerrors.NewEntityDeconstruction(string(s.et.Identifier(instance)), s.att.Name, reason, err)
}

// tooManyValues reports a singular attribute holding several stored values.
func (s *baseStrategy) tooManyValues(subject axiom.NamedResource) error {
	min := 0
	if s.att.Constraint != nil {
		min = s.att.Constraint.Min
	}
	return ontoerrors.NewCardinalityConstraintViolated(string(subject), s.att.Name, min, 1, 2)
}

type singularDataStrategy struct {
	baseStrategy
	subject axiom.NamedResource
	value   *axiom.Value
}

func (s *singularDataStrategy) addValueFromAxiom(_ context.Context, ax axiom.Axiom) error {
	if !languageMatches(s.language(), ax.Value) {
		return nil
	}
	if s.value != nil {
		if s.value.Equal(ax.Value) {
			return nil
		}
		return s.tooManyValues(ax.Subject)
	}
	v := ax.Value
	s.subject = ax.Subject
	s.value = &v
	return nil
}

func (s *singularDataStrategy) buildInstanceFieldValue(instance any) error {
	if s.value == nil {
		return nil
	}
	f := s.field(instance)
	v, err := fromValue(s.att, f.Type(), *s.value)
	if err != nil {
		return s.reconstructionError(s.subject, "", err)
	}
	f.Set(v)
	return nil
}

func (s *singularDataStrategy) buildAxiomValuesFromInstance(_ context.Context, instance any, g *AxiomValueGatherer) error {
	a := s.assertion()
	g.Touch(a, s.context())
	f := s.field(instance)
	if isUnset(f) {
		return nil
	}
	v, ok, err := toValue(s.att, f, a.Language)
	if err != nil {
		return s.deconstructionError(instance, "", err)
	}
	if ok {
		g.AddValue(a, v, s.context())
	}
	return nil
}

type pluralDataStrategy struct {
	baseStrategy
	subject axiom.NamedResource
	values  []axiom.Value
	seen    map[string]struct{}
}

func (s *pluralDataStrategy) addValueFromAxiom(_ context.Context, ax axiom.Axiom) error {
	if !languageMatches(s.language(), ax.Value) {
		return nil
	}
	if _, dup := s.seen[ax.Value.Key()]; dup {
		return nil
	}
	s.seen[ax.Value.Key()] = struct{}{}
	s.subject = ax.Subject
	s.values = append(s.values, ax.Value)
	return nil
}

func (s *pluralDataStrategy) buildInstanceFieldValue(instance any) error {
	if len(s.values) == 0 {
		return nil
	}
	f := s.field(instance)
	out := reflect.MakeSlice(f.Type(), 0, len(s.values))
	for _, val := range s.values {
		v, err := fromValue(s.att, f.Type().Elem(), val)
		if err != nil {
			return s.reconstructionError(s.subject, "", err)
		}
		out = reflect.Append(out, v)
	}
	f.Set(out)
	return nil
}

func (s *pluralDataStrategy) buildAxiomValuesFromInstance(_ context.Context, instance any, g *AxiomValueGatherer) error {
	a := s.assertion()
	g.Touch(a, s.context())
	f := s.field(instance)
	seen := make(map[string]struct{}, f.Len())
	for i := 0; i < f.Len(); i++ {
		v, ok, err := toValue(s.att, f.Index(i), a.Language)
		if err != nil {
			return s.deconstructionError(instance, "", err)
		}
		if !ok {
			continue
		}
		if _, dup := seen[v.Key()]; dup {
			continue
		}
		seen[v.Key()] = struct{}{}
		g.AddValue(a, v, s.context())
	}
	return nil
}

// referenceStrategy is shared by the strategies whose values are entities.
type referenceStrategy struct {
	baseStrategy
	target *metamodel.EntityType
}

func (s *referenceStrategy) targetDescriptor() descriptor.Descriptor {
	return s.desc.AttributeDescriptor(s.att)
}

// load resolves a referenced identifier to an entity instance.
func (s *referenceStrategy) load(ctx context.Context, subject axiom.NamedResource, v axiom.Value) (reflect.Value, error) {
	if !v.IsResource() {
		return reflect.Value{}, s.reconstructionError(subject, fmt.Sprintf("expected a resource reference, got literal %s", v), nil)
	}
	ref, err := s.mapper.GetEntityFromCacheOrStore(ctx, s.target, v.Resource, s.targetDescriptor())
	if err != nil {
		return reflect.Value{}, err
	}
	if ref == nil {
		return reflect.Value{}, s.reconstructionError(subject, fmt.Sprintf("referenced %s %s not found", s.target.Name, v.Resource), nil)
	}
	rv := reflect.ValueOf(ref)
	if rv.Type() != reflect.PointerTo(s.target.GoType) {
		return reflect.Value{}, s.reconstructionError(subject, fmt.Sprintf("instance %s is a %s, not a %s", v.Resource, rv.Type(), s.target.Name), nil)
	}
	return rv, nil
}

// identify runs cascade resolution for a referenced entity and returns its identifier.
func (s *referenceStrategy) identify(ctx context.Context, instance any, ref reflect.Value) (axiom.NamedResource, error) {
	if ref.IsNil() {
		return "", s.deconstructionError(instance, "nil element", nil)
	}
	value := ref.Interface()
	if err := s.mapper.cascade.Resolve(ctx, s.att, value, s.target, s.targetDescriptor()); err != nil {
		return "", err
	}
	id := s.target.Identifier(value)
	if id == "" {
		return "", ontoerrors.NewUnpersistedChange(fmt.Sprintf("%s referenced by %s.%s", s.target.Name, s.et.Name, s.att.Name), s.targetDescriptor().Context())
	}
	return id, nil
}

type singularObjectStrategy struct {
	referenceStrategy
	id    axiom.NamedResource
	value reflect.Value
}

func (s *singularObjectStrategy) addValueFromAxiom(ctx context.Context, ax axiom.Axiom) error {
	if s.value.IsValid() {
		if ax.Value.IsResource() && ax.Value.Resource == s.id {
			return nil
		}
		return s.tooManyValues(ax.Subject)
	}
	ref, err := s.load(ctx, ax.Subject, ax.Value)
	if err != nil {
		return err
	}
	s.id = ax.Value.Resource
	s.value = ref
	return nil
}

func (s *singularObjectStrategy) buildInstanceFieldValue(instance any) error {
	if s.value.IsValid() {
		s.field(instance).Set(s.value)
	}
	return nil
}

func (s *singularObjectStrategy) buildAxiomValuesFromInstance(ctx context.Context, instance any, g *AxiomValueGatherer) error {
	a := s.assertion()
	g.Touch(a, s.context())
	f := s.field(instance)
	if f.IsNil() {
		return nil
	}
	id, err := s.identify(ctx, instance, f)
	if err != nil {
		return err
	}
	g.AddValue(a, axiom.ResourceValue(id), s.context())
	return nil
}

type pluralObjectStrategy struct {
	referenceStrategy
	values []reflect.Value
	seen   map[axiom.NamedResource]struct{}
}

func (s *pluralObjectStrategy) addValueFromAxiom(ctx context.Context, ax axiom.Axiom) error {
	if ax.Value.IsResource() {
		if _, dup := s.seen[ax.Value.Resource]; dup {
			return nil
		}
	}
	ref, err := s.load(ctx, ax.Subject, ax.Value)
	if err != nil {
		return err
	}
	s.seen[ax.Value.Resource] = struct{}{}
	s.values = append(s.values, ref)
	return nil
}

func (s *pluralObjectStrategy) buildInstanceFieldValue(instance any) error {
	if len(s.values) == 0 {
		return nil
	}
	f := s.field(instance)
	f.Set(reflect.Append(reflect.MakeSlice(f.Type(), 0, len(s.values)), s.values...))
	return nil
}

func (s *pluralObjectStrategy) buildAxiomValuesFromInstance(ctx context.Context, instance any, g *AxiomValueGatherer) error {
	a := s.assertion()
	g.Touch(a, s.context())
	f := s.field(instance)
	for i := 0; i < f.Len(); i++ {
		id, err := s.identify(ctx, instance, f.Index(i))
		if err != nil {
			return err
		}
		g.AddValue(a, axiom.ResourceValue(id), s.context())
	}
	return nil
}

// listStrategy holds the loaded elements of a list attribute.
type listStrategy struct {
	referenceStrategy
	loaded bool
	values []reflect.Value
}

func (s *listStrategy) buildInstanceFieldValue(instance any) error {
	if len(s.values) == 0 {
		return nil
	}
	f := s.field(instance)
	f.Set(reflect.Append(reflect.MakeSlice(f.Type(), 0, len(s.values)), s.values...))
	return nil
}

// elements loads the entity behind each list element axiom, in order.
func (s *listStrategy) elements(ctx context.Context, owner axiom.NamedResource, axioms []axiom.Axiom) error {
	for _, ax := range axioms {
		ref, err := s.load(ctx, owner, ax.Value)
		if err != nil {
			return err
		}
		s.values = append(s.values, ref)
	}
	return nil
}

func (s *listStrategy) identifiers(ctx context.Context, instance any) ([]axiom.NamedResource, error) {
	f := s.field(instance)
	ids := make([]axiom.NamedResource, 0, f.Len())
	for i := 0; i < f.Len(); i++ {
		id, err := s.identify(ctx, instance, f.Index(i))
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

type simpleListStrategy struct {
	listStrategy
}

func (s *simpleListStrategy) descriptor(owner axiom.NamedResource) axiom.SimpleListDescriptor {
	return axiom.SimpleListDescriptor{
		Owner:        owner,
		ListProperty: s.att.Assertion(),
		NextNode:     s.att.NextAssertion(),
		Context:      s.context(),
	}
}

// addValueFromAxiom loads the whole chain when the head edge is seen.
func (s *simpleListStrategy) addValueFromAxiom(ctx context.Context, ax axiom.Axiom) error {
	if s.loaded {
		return nil
	}
	s.loaded = true
	axioms, err := s.mapper.LoadSimpleList(ctx, s.descriptor(ax.Subject))
	if err != nil {
		return err
	}
	return s.elements(ctx, ax.Subject, axioms)
}

func (s *simpleListStrategy) buildAxiomValuesFromInstance(ctx context.Context, instance any, g *AxiomValueGatherer) error {
	ids, err := s.identifiers(ctx, instance)
	if err != nil {
		return err
	}
	g.AddSimpleListValues(axiom.SimpleListValueDescriptor{
		SimpleListDescriptor: s.descriptor(s.et.Identifier(instance)),
		Values:               ids,
	})
	return nil
}

type referencedListStrategy struct {
	listStrategy
}

func (s *referencedListStrategy) descriptor(owner axiom.NamedResource) axiom.ReferencedListDescriptor {
	return axiom.ReferencedListDescriptor{
		Owner:        owner,
		ListProperty: s.att.Assertion(),
		NextNode:     s.att.NextAssertion(),
		NodeContent:  s.att.ContentAssertion(),
		Context:      s.context(),
	}
}

func (s *referencedListStrategy) addValueFromAxiom(ctx context.Context, ax axiom.Axiom) error {
	if s.loaded {
		return nil
	}
	s.loaded = true
	axioms, err := s.mapper.LoadReferencedList(ctx, s.descriptor(ax.Subject))
	if err != nil {
		return err
	}
	return s.elements(ctx, ax.Subject, axioms)
}

func (s *referencedListStrategy) buildAxiomValuesFromInstance(ctx context.Context, instance any, g *AxiomValueGatherer) error {
	ids, err := s.identifiers(ctx, instance)
	if err != nil {
		return err
	}
	g.AddReferencedListValues(axiom.ReferencedListValueDescriptor{
		ReferencedListDescriptor: s.descriptor(s.et.Identifier(instance)),
		Values:                   ids,
	})
	return nil
}

// typesStrategy maps class assertions other than the entity's own class.
type typesStrategy struct {
	baseStrategy
	subject axiom.NamedResource
	values  []string
	seen    map[axiom.NamedResource]struct{}
}

func (s *typesStrategy) addValueFromAxiom(_ context.Context, ax axiom.Axiom) error {
	if !ax.Value.IsResource() {
		return s.reconstructionError(ax.Subject, fmt.Sprintf("class assertion with literal value %s", ax.Value), nil)
	}
	t := ax.Value.Resource
	if t == s.et.Class {
		return nil
	}
	if _, dup := s.seen[t]; dup {
		return nil
	}
	s.seen[t] = struct{}{}
	s.subject = ax.Subject
	s.values = append(s.values, string(t))
	return nil
}

func (s *typesStrategy) buildInstanceFieldValue(instance any) error {
	if len(s.values) > 0 {
		s.field(instance).Set(reflect.ValueOf(s.values))
	}
	return nil
}

// buildAxiomValuesFromInstance always includes the entity class, since the
// whole class assertion set of the subject is rewritten on update.
func (s *typesStrategy) buildAxiomValuesFromInstance(_ context.Context, instance any, g *AxiomValueGatherer) error {
	a := s.att.Assertion()
	graph := s.context()
	g.AddValue(a, axiom.ResourceValue(s.et.Class), graph)
	types, _ := s.field(instance).Interface().([]string)
	for _, t := range types {
		if axiom.NamedResource(t) == s.et.Class {
			continue
		}
		g.AddValue(a, axiom.ResourceValue(axiom.NamedResource(t)), graph)
	}
	return nil
}

// propertiesStrategy maps statements whose predicate no attribute declares.
type propertiesStrategy struct {
	baseStrategy
	values map[string][]axiom.Value
}

func (s *propertiesStrategy) addValueFromAxiom(_ context.Context, ax axiom.Axiom) error {
	p := string(ax.Assertion.IRI)
	for _, v := range s.values[p] {
		if v.Equal(ax.Value) {
			return nil
		}
	}
	s.values[p] = append(s.values[p], ax.Value)
	return nil
}

func (s *propertiesStrategy) buildInstanceFieldValue(instance any) error {
	if len(s.values) == 0 {
		return nil
	}
	f := s.field(instance)
	if s.att.TypedProperties {
		out := make(map[string][]any, len(s.values))
		for p, vals := range s.values {
			for _, v := range vals {
				if v.IsResource() {
					out[p] = append(out[p], v.Resource)
				} else {
					out[p] = append(out[p], v.Literal)
				}
			}
		}
		f.Set(reflect.ValueOf(out))
		return nil
	}
	out := make(map[string][]string, len(s.values))
	for p, vals := range s.values {
		for _, v := range vals {
			out[p] = append(out[p], v.Lexical())
		}
	}
	f.Set(reflect.ValueOf(out))
	return nil
}

// buildAxiomValuesFromInstance diffs the properties against the managed
// original when there is one and writes only the difference.
func (s *propertiesStrategy) buildAxiomValuesFromInstance(_ context.Context, instance any, g *AxiomValueGatherer) error {
	current, err := s.propertyValues(instance)
	if err != nil {
		return err
	}
	var previous map[axiom.NamedResource][]axiom.Value
	if original, ok := s.mapper.session.Original(instance); ok && original != instance {
		if previous, err = s.propertyValues(original); err != nil {
			return err
		}
	}
	graph := s.context()
	for p, vals := range current {
		a := axiom.NewPropertyAssertion(p, s.att.Inferred)
		for _, v := range vals {
			if !containsValue(previous[p], v) {
				g.AddValueOnly(a, v, graph)
			}
		}
	}
	for p, vals := range previous {
		a := axiom.NewPropertyAssertion(p, s.att.Inferred)
		for _, v := range vals {
			if !containsValue(current[p], v) {
				g.RemoveValue(a, v, graph)
			}
		}
	}
	return nil
}

func (s *propertiesStrategy) propertyValues(instance any) (map[axiom.NamedResource][]axiom.Value, error) {
	f := s.field(instance)
	out := make(map[axiom.NamedResource][]axiom.Value, f.Len())
	switch m := f.Interface().(type) {
	case map[string][]string:
		for p, vals := range m {
			for _, raw := range vals {
				out[axiom.NamedResource(p)] = append(out[axiom.NamedResource(p)], propertyValue(raw))
			}
		}
	case map[string][]any:
		for p, vals := range m {
			for _, raw := range vals {
				v, err := s.typedValue(raw)
				if err != nil {
					return nil, s.deconstructionError(instance, fmt.Sprintf("property %s", p), err)
				}
				out[axiom.NamedResource(p)] = append(out[axiom.NamedResource(p)], v)
			}
		}
	}
	return out, nil
}

func (s *propertiesStrategy) typedValue(raw any) (axiom.Value, error) {
	if r, ok := raw.(axiom.NamedResource); ok {
		return axiom.ResourceValue(r), nil
	}
	if raw == nil {
		return axiom.Value{}, errors.New("nil property value")
	}
	v, ok, err := toValue(s.att, reflect.ValueOf(raw), "")
	if err != nil {
		return axiom.Value{}, err
	}
	if !ok {
		return axiom.Value{}, errors.New("nil property value")
	}
	return v, nil
}

func containsValue(vals []axiom.Value, v axiom.Value) bool {
	for _, o := range vals {
		if o.Equal(v) {
			return true
		}
	}
	return false
}
