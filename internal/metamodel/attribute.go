package metamodel

import (
	"reflect"

	"ontomap/internal/axiom"
)

// AttributeKind is the persistent kind of a mapped field.
type AttributeKind int

const (
	KindData AttributeKind = iota
	KindObject
	KindAnnotation
	KindTypes
	KindProperties
)

func (k AttributeKind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindObject:
		return "object"
	case KindAnnotation:
		return "annotation"
	case KindTypes:
		return "types"
	case KindProperties:
		return "properties"
	default:
		return "unknown"
	}
}

// CollectionType describes how a plural field is stored.
type CollectionType int

const (
	CollectionNone CollectionType = iota
	CollectionSet
	CollectionSimpleList
	CollectionReferencedList
)

// FetchType controls whether reconstruction loads the attribute.
type FetchType int

const (
	FetchEager FetchType = iota
	FetchLazy
)

// Strategy is the field strategy variant serving an attribute.
type Strategy int

const (
	StrategySingularData Strategy = iota
	StrategySingularObject
	StrategyPluralData
	StrategyPluralObject
	StrategySimpleList
	StrategyReferencedList
	StrategyTypes
	StrategyProperties
)

func (s Strategy) String() string {
	switch s {
	case StrategySingularData:
		return "singular-data"
	case StrategySingularObject:
		return "singular-object"
	case StrategyPluralData:
		return "plural-data"
	case StrategyPluralObject:
		return "plural-object"
	case StrategySimpleList:
		return "simple-list"
	case StrategyReferencedList:
		return "referenced-list"
	case StrategyTypes:
		return "types"
	case StrategyProperties:
		return "properties"
	default:
		return "unknown"
	}
}

// ResolveStrategy selects the strategy for an attribute shape.
func ResolveStrategy(kind AttributeKind, plural bool, collection CollectionType) Strategy {
	switch kind {
	case KindTypes:
		return StrategyTypes
	case KindProperties:
		return StrategyProperties
	case KindObject:
		switch collection {
		case CollectionSimpleList:
			return StrategySimpleList
		case CollectionReferencedList:
			return StrategyReferencedList
		}
		if plural {
			return StrategyPluralObject
		}
		return StrategySingularObject
	default:
		if plural {
			return StrategyPluralData
		}
		return StrategySingularData
	}
}

// Unbounded is the Max of a constraint without an upper bound.
const Unbounded = -1

// Constraint is a participation constraint: the attribute must hold between
// Min and Max values.
type Constraint struct {
	Min int
	Max int
}

// Attribute is a mapped field of an entity type.
type Attribute struct {
	Name       string
	Index      []int
	Type       reflect.Type
	IRI        axiom.NamedResource
	Kind       AttributeKind
	Plural     bool
	Collection CollectionType
	Strategy   Strategy
	Cascade    bool
	Fetch      FetchType
	Inferred   bool
	// LexicalForm fields hold the lexical form of any literal as a string.
	LexicalForm bool
	Language    string
	Constraint  *Constraint

	// Next and Content are the list vocabulary of list attributes.
	Next    axiom.NamedResource
	Content axiom.NamedResource

	// Target is the entity struct type referenced by object attributes.
	Target reflect.Type
	// Declaring is the struct that declares the field, an embedded one for
	// inherited attributes.
	Declaring reflect.Type
	// TypedProperties marks map[string][]any properties fields.
	TypedProperties bool
}

// Assertion returns the assertion the attribute's values are stored under.
func (a *Attribute) Assertion() axiom.Assertion {
	switch a.Kind {
	case KindObject:
		return axiom.NewObjectPropertyAssertion(a.IRI, a.Inferred)
	case KindAnnotation:
		return axiom.NewAnnotationPropertyAssertion(a.IRI, a.Language, a.Inferred)
	case KindTypes:
		return axiom.NewClassAssertion(a.Inferred)
	case KindProperties:
		return axiom.NewPropertyAssertion("", a.Inferred)
	default:
		return axiom.NewDataPropertyAssertion(a.IRI, a.Language, a.Inferred)
	}
}

// NextAssertion returns the successor assertion of list attributes.
func (a *Attribute) NextAssertion() axiom.Assertion {
	return axiom.NewObjectPropertyAssertion(a.Next, a.Inferred)
}

// ContentAssertion returns the node content assertion of referenced lists.
func (a *Attribute) ContentAssertion() axiom.Assertion {
	return axiom.NewObjectPropertyAssertion(a.Content, a.Inferred)
}

// IsList reports whether the attribute is stored as a linked chain.
func (a *Attribute) IsList() bool {
	return a.Collection == CollectionSimpleList || a.Collection == CollectionReferencedList
}

// IsLazy reports whether reconstruction skips the attribute.
func (a *Attribute) IsLazy() bool {
	return a.Fetch == FetchLazy
}

// ConstrainedAttribute pairs an attribute with its participation constraint.
type ConstrainedAttribute struct {
	Attribute  *Attribute
	Constraint Constraint
}
