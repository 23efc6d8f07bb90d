// Package metamodel describes mapped entity types. Types are built from Go
// structs whose fields carry `onto` tags; embedded untagged structs act as
// mapped superclasses whose attributes and constraints every subtype inherits.
package metamodel

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"go.uber.org/zap"

	"ontomap/internal/axiom"
	"ontomap/pkg/config"
	ontoerrors "ontomap/pkg/errors"
	"ontomap/pkg/logger"
)

// EntityType is a mapped struct type.
type EntityType struct {
	Name    string
	Class   axiom.NamedResource
	GoType  reflect.Type
	idIndex []int

	// Attributes holds declared and inherited attributes in field order.
	Attributes []*Attribute
	Types      *Attribute
	Properties *Attribute

	byName      map[string]*Attribute
	constraints []ConstrainedAttribute
}

// Attribute returns the attribute with the given field name.
func (et *EntityType) Attribute(name string) (*Attribute, bool) {
	att, ok := et.byName[name]
	return att, ok
}

// Constraints returns every constrained attribute, inherited ones included.
func (et *EntityType) Constraints() []ConstrainedAttribute {
	return et.constraints
}

// FieldsForUpdate returns every attribute that carries state: declared
// attributes plus the types and properties fields when present.
func (et *EntityType) FieldsForUpdate() []*Attribute {
	out := make([]*Attribute, 0, len(et.Attributes)+2)
	out = append(out, et.Attributes...)
	if et.Types != nil {
		out = append(out, et.Types)
	}
	if et.Properties != nil {
		out = append(out, et.Properties)
	}
	return out
}

// Field returns the addressable field of att in entity, a pointer to a struct of this type.
func (et *EntityType) Field(entity any, att *Attribute) reflect.Value {
	return reflect.ValueOf(entity).Elem().FieldByIndex(att.Index)
}

// Identifier returns the identifier of entity.
func (et *EntityType) Identifier(entity any) axiom.NamedResource {
	return axiom.NamedResource(reflect.ValueOf(entity).Elem().FieldByIndex(et.idIndex).String())
}

// SetIdentifier assigns the identifier of entity.
func (et *EntityType) SetIdentifier(entity any, id axiom.NamedResource) {
	reflect.ValueOf(entity).Elem().FieldByIndex(et.idIndex).SetString(string(id))
}

// New allocates an empty instance, returned as a pointer.
func (et *EntityType) New() any {
	return reflect.New(et.GoType).Interface()
}

// Metamodel is the registry of entity types.
type Metamodel struct {
	mu     sync.RWMutex
	types  map[reflect.Type]*EntityType
	byIRI  map[axiom.NamedResource]*EntityType
	logger *zap.Logger

	signature *signature
}

// New creates an empty metamodel. The module extraction signature is read
// from cfg on first use; cfg may be nil.
func New(cfg *config.Config) *Metamodel {
	raw, delimiter := "", config.DefaultSignatureDelimiter
	if cfg != nil {
		raw = cfg.ModuleExtractionSignature
		if cfg.SignatureDelimiter != "" {
			delimiter = cfg.SignatureDelimiter
		}
	}
	return &Metamodel{
		types:     make(map[reflect.Type]*EntityType),
		byIRI:     make(map[axiom.NamedResource]*EntityType),
		logger:    logger.Named("metamodel"),
		signature: newSignature(raw, delimiter),
	}
}

// Register builds the entity type of prototype, a struct or pointer to struct.
func (m *Metamodel) Register(prototype any, classIRI string) (*EntityType, error) {
	t := reflect.TypeOf(prototype)
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, ontoerrors.NewInvalidFieldMapping(fmt.Sprintf("%T", prototype), "", "entity must be a struct")
	}
	if !isIRI(classIRI) {
		return nil, ontoerrors.NewInvalidFieldMapping(t.Name(), "", fmt.Sprintf("invalid class IRI %q", classIRI))
	}

	et := &EntityType{
		Name:   t.Name(),
		Class:  axiom.NamedResource(classIRI),
		GoType: t,
		byName: make(map[string]*Attribute),
	}
	if err := collectFields(et, t, nil); err != nil {
		return nil, err
	}
	if et.idIndex == nil {
		return nil, ontoerrors.NewInvalidFieldMapping(et.Name, "", "missing identifier field")
	}
	for _, att := range et.FieldsForUpdate() {
		if att.Constraint != nil {
			et.constraints = append(et.constraints, ConstrainedAttribute{Attribute: att, Constraint: *att.Constraint})
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.types[t] = et
	m.byIRI[et.Class] = et
	m.logger.Debug("registered entity type",
		zap.String("type", et.Name),
		zap.String("class", classIRI),
		zap.Int("attributes", len(et.Attributes)),
	)
	return et, nil
}

// MustRegister is Register that panics on error, for static type tables.
func (m *Metamodel) MustRegister(prototype any, classIRI string) *EntityType {
	et, err := m.Register(prototype, classIRI)
	if err != nil {
		panic(err)
	}
	return et
}

// EntityType returns the type registered for t, a struct or pointer to struct type.
func (m *Metamodel) EntityType(t reflect.Type) (*EntityType, bool) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	et, ok := m.types[t]
	return et, ok
}

// EntityTypeOf returns the type of entity, which must be a pointer to a registered struct.
func (m *Metamodel) EntityTypeOf(entity any) (*EntityType, error) {
	t := reflect.TypeOf(entity)
	if t == nil || t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Struct {
		return nil, ontoerrors.NewInvalidFieldMapping(fmt.Sprintf("%T", entity), "", "entity must be a pointer to a struct")
	}
	et, ok := m.EntityType(t)
	if !ok {
		return nil, ontoerrors.NewInvalidFieldMapping(t.Elem().Name(), "", "type is not a registered entity")
	}
	return et, nil
}

// ByClass returns the type mapped to class.
func (m *Metamodel) ByClass(class axiom.NamedResource) (*EntityType, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	et, ok := m.byIRI[class]
	return et, ok
}

// Entities lists registered types sorted by name.
func (m *Metamodel) Entities() []*EntityType {
	m.mu.RLock()
	out := make([]*EntityType, 0, len(m.types))
	for _, et := range m.types {
		out = append(out, et)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Target returns the entity type referenced by an object attribute.
func (m *Metamodel) Target(owner *EntityType, att *Attribute) (*EntityType, error) {
	et, ok := m.EntityType(att.Target)
	if !ok {
		return nil, ontoerrors.NewInvalidFieldMapping(owner.Name, att.Name, fmt.Sprintf("referenced type %s is not a registered entity", att.Target.Name()))
	}
	return et, nil
}

// ModuleExtractionSignature returns the signature IRIs, sorted.
func (m *Metamodel) ModuleExtractionSignature() []axiom.NamedResource {
	return m.signature.get()
}

// AddToModuleExtractionSignature adds an IRI to the signature.
func (m *Metamodel) AddToModuleExtractionSignature(iri string) error {
	if !isIRI(iri) {
		return ontoerrors.NewInvalidFieldMapping("signature", iri, "not an absolute IRI")
	}
	m.signature.add(axiom.NamedResource(iri))
	return nil
}

func collectFields(et *EntityType, t reflect.Type, prefix []int) error {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		index := append(append([]int{}, prefix...), i)
		tag, tagged := f.Tag.Lookup(TagName)

		if f.Anonymous && !tagged {
			if f.Type.Kind() == reflect.Ptr {
				return ontoerrors.NewInvalidFieldMapping(et.Name, f.Name, "mapped superclass must be embedded by value")
			}
			if f.Type.Kind() == reflect.Struct {
				if err := collectFields(et, f.Type, index); err != nil {
					return err
				}
			}
			continue
		}
		if !tagged || tag == "-" {
			continue
		}
		if !f.IsExported() {
			return ontoerrors.NewInvalidFieldMapping(et.Name, f.Name, "mapped field must be exported")
		}
		spec, err := parseTag(tag)
		if err != nil {
			return ontoerrors.NewInvalidFieldMapping(et.Name, f.Name, err.Error())
		}
		if spec.kind == "id" {
			if et.idIndex != nil {
				return ontoerrors.NewInvalidFieldMapping(et.Name, f.Name, "duplicate identifier field")
			}
			if f.Type.Kind() != reflect.String {
				return ontoerrors.NewInvalidFieldMapping(et.Name, f.Name, "identifier must be a string")
			}
			et.idIndex = index
			continue
		}

		att, err := buildAttribute(et.Name, f, t, index, spec)
		if err != nil {
			return err
		}
		if _, dup := et.byName[att.Name]; dup {
			return ontoerrors.NewInvalidFieldMapping(et.Name, att.Name, "attribute declared twice")
		}
		et.byName[att.Name] = att
		switch att.Kind {
		case KindTypes:
			if et.Types != nil {
				return ontoerrors.NewInvalidFieldMapping(et.Name, f.Name, "duplicate types field")
			}
			et.Types = att
		case KindProperties:
			if et.Properties != nil {
				return ontoerrors.NewInvalidFieldMapping(et.Name, f.Name, "duplicate properties field")
			}
			et.Properties = att
		default:
			et.Attributes = append(et.Attributes, att)
		}
	}
	return nil
}

func buildAttribute(entity string, f reflect.StructField, declaring reflect.Type, index []int, spec tagSpec) (*Attribute, error) {
	att := &Attribute{
		Name:        f.Name,
		Index:       index,
		Type:        f.Type,
		IRI:         axiom.NamedResource(spec.iri),
		Cascade:     spec.cascade,
		Inferred:    spec.inferred,
		LexicalForm: spec.lexical,
		Language:    spec.lang,
		Constraint:  spec.constraint(),
		Declaring:   declaring,
	}
	if spec.lazy {
		att.Fetch = FetchLazy
	}
	switch spec.kind {
	case "data":
		att.Kind = KindData
	case "object":
		att.Kind = KindObject
	case "annotation":
		att.Kind = KindAnnotation
	case "types":
		att.Kind = KindTypes
	case "properties":
		att.Kind = KindProperties
	}
	switch spec.list {
	case "simple":
		att.Collection = CollectionSimpleList
		att.Next = axiom.NamedResource(axiom.SequenceHasNext)
	case "referenced":
		att.Collection = CollectionReferencedList
		att.Next = axiom.NamedResource(axiom.SequenceHasNext)
		att.Content = axiom.NamedResource(axiom.SequenceHasContent)
	}
	if spec.next != "" {
		att.Next = axiom.NamedResource(spec.next)
	}
	if spec.content != "" {
		att.Content = axiom.NamedResource(spec.content)
	}

	if err := validateField(entity, att, spec); err != nil {
		return nil, err
	}
	att.Strategy = ResolveStrategy(att.Kind, att.Plural, att.Collection)
	return att, nil
}
