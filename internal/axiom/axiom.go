// Package axiom defines the statements exchanged with the store: a subject, an
// assertion (predicate plus kind) and a value that is either a resource
// reference or a typed literal.
package axiom

import (
	"fmt"
	"strconv"
	"time"
)

// Well-known IRIs
const (
	RDFType = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

	SequencesNamespace  = "http://krizik.felk.cvut.cz/ontologies/2008/6/sequences.owl#"
	SequenceOWLList     = SequencesNamespace + "OWLList"
	SequenceHasNext     = SequencesNamespace + "hasNext"
	SequenceHasContents = SequencesNamespace + "hasContents"
	SequenceHasContent  = SequencesNamespace + "hasContent"

	XSDString   = "http://www.w3.org/2001/XMLSchema#string"
	XSDBoolean  = "http://www.w3.org/2001/XMLSchema#boolean"
	XSDLong     = "http://www.w3.org/2001/XMLSchema#long"
	XSDDouble   = "http://www.w3.org/2001/XMLSchema#double"
	XSDDateTime = "http://www.w3.org/2001/XMLSchema#dateTime"
	RDFLangStr  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#langString"
)

// NamedResource is an IRI-identified node of the graph.
type NamedResource string

// String returns the IRI.
func (r NamedResource) String() string { return string(r) }

// AssertionType is the kind of a predicate.
type AssertionType int

const (
	ClassAssertion AssertionType = iota
	DataProperty
	ObjectProperty
	AnnotationProperty
	// Property matches any predicate of a subject; used to load unmapped properties.
	Property
)

func (t AssertionType) String() string {
	switch t {
	case ClassAssertion:
		return "class"
	case DataProperty:
		return "data"
	case ObjectProperty:
		return "object"
	case AnnotationProperty:
		return "annotation"
	case Property:
		return "property"
	default:
		return "unknown"
	}
}

// ParseAssertionType is the inverse of AssertionType.String.
func ParseAssertionType(s string) (AssertionType, error) {
	switch s {
	case "class":
		return ClassAssertion, nil
	case "data":
		return DataProperty, nil
	case "object":
		return ObjectProperty, nil
	case "annotation":
		return AnnotationProperty, nil
	case "property":
		return Property, nil
	}
	return 0, fmt.Errorf("unknown assertion type %q", s)
}

// Assertion identifies a predicate together with its kind.
type Assertion struct {
	IRI      NamedResource
	Type     AssertionType
	Inferred bool
	// Language restricts string literals on load and tags them on write.
	Language string
}

// NewClassAssertion creates an rdf:type assertion.
func NewClassAssertion(inferred bool) Assertion {
	return Assertion{IRI: RDFType, Type: ClassAssertion, Inferred: inferred}
}

// NewDataPropertyAssertion creates a data property assertion.
func NewDataPropertyAssertion(iri NamedResource, language string, inferred bool) Assertion {
	return Assertion{IRI: iri, Type: DataProperty, Inferred: inferred, Language: language}
}

// NewObjectPropertyAssertion creates an object property assertion.
func NewObjectPropertyAssertion(iri NamedResource, inferred bool) Assertion {
	return Assertion{IRI: iri, Type: ObjectProperty, Inferred: inferred}
}

// NewAnnotationPropertyAssertion creates an annotation property assertion.
func NewAnnotationPropertyAssertion(iri NamedResource, language string, inferred bool) Assertion {
	return Assertion{IRI: iri, Type: AnnotationProperty, Inferred: inferred, Language: language}
}

// NewPropertyAssertion creates an assertion of unspecified kind.
func NewPropertyAssertion(iri NamedResource, inferred bool) Assertion {
	return Assertion{IRI: iri, Type: Property, Inferred: inferred}
}

// AllProperties matches every predicate of a subject.
var AllProperties = Assertion{Type: Property}

// MatchesAll reports whether the assertion selects every predicate.
func (a Assertion) MatchesAll() bool {
	return a.Type == Property && a.IRI == ""
}

// Matches reports whether a stored predicate satisfies the assertion.
func (a Assertion) Matches(predicate NamedResource) bool {
	return a.MatchesAll() || a.IRI == predicate
}

// ForPredicate returns the assertion describing a stored statement with the
// given predicate that this assertion matched.
func (a Assertion) ForPredicate(predicate NamedResource) Assertion {
	if a.IRI == predicate {
		return a
	}
	if predicate == RDFType {
		return NewClassAssertion(a.Inferred)
	}
	return NewPropertyAssertion(predicate, a.Inferred)
}

// Value is either a resource reference or a literal. Literals carry Go values:
// string, bool, int64, float64 or time.Time.
type Value struct {
	Resource NamedResource
	Literal  any
	Language string
}

// ResourceValue wraps a resource reference.
func ResourceValue(r NamedResource) Value {
	return Value{Resource: r}
}

// LiteralValue wraps a literal, normalizing numeric widths and time zones so
// that equal literals compare equal.
func LiteralValue(v any, language string) Value {
	switch t := v.(type) {
	case int:
		v = int64(t)
	case int8:
		v = int64(t)
	case int16:
		v = int64(t)
	case int32:
		v = int64(t)
	case uint:
		v = int64(t)
	case uint8:
		v = int64(t)
	case uint16:
		v = int64(t)
	case uint32:
		v = int64(t)
	case uint64:
		v = int64(t)
	case float32:
		v = float64(t)
	case time.Time:
		v = t.UTC().Round(0)
	}
	if _, ok := v.(string); !ok {
		language = ""
	}
	return Value{Literal: v, Language: language}
}

// IsResource reports whether the value references a resource.
func (v Value) IsResource() bool {
	return v.Literal == nil
}

// Datatype returns the XSD datatype IRI of a literal, "" for resources.
func (v Value) Datatype() string {
	switch v.Literal.(type) {
	case nil:
		return ""
	case string:
		if v.Language != "" {
			return RDFLangStr
		}
		return XSDString
	case bool:
		return XSDBoolean
	case int64:
		return XSDLong
	case float64:
		return XSDDouble
	case time.Time:
		return XSDDateTime
	default:
		return XSDString
	}
}

// Lexical returns the lexical form of the value (the IRI for resources).
func (v Value) Lexical() string {
	switch t := v.Literal.(type) {
	case nil:
		return string(v.Resource)
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case time.Time:
		return t.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(t)
	}
}

// Key is a stable identity of the value usable in sets.
func (v Value) Key() string {
	if v.IsResource() {
		return "<" + string(v.Resource) + ">"
	}
	return fmt.Sprintf("%q^^%s@%s", v.Lexical(), v.Datatype(), v.Language)
}

// Equal compares two values by identity.
func (v Value) Equal(o Value) bool {
	return v.Key() == o.Key()
}

func (v Value) String() string {
	if v.IsResource() {
		return "<" + string(v.Resource) + ">"
	}
	if v.Language != "" {
		return fmt.Sprintf("%q@%s", v.Lexical(), v.Language)
	}
	return fmt.Sprintf("%q", v.Lexical())
}

// ParseLiteral rebuilds a literal from its lexical form and datatype.
func ParseLiteral(lexical, datatype, language string) (Value, error) {
	switch datatype {
	case "", XSDString, RDFLangStr:
		return LiteralValue(lexical, language), nil
	case XSDBoolean:
		b, err := strconv.ParseBool(lexical)
		if err != nil {
			return Value{}, fmt.Errorf("parse boolean literal %q: %w", lexical, err)
		}
		return LiteralValue(b, ""), nil
	case XSDLong:
		i, err := strconv.ParseInt(lexical, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("parse long literal %q: %w", lexical, err)
		}
		return LiteralValue(i, ""), nil
	case XSDDouble:
		f, err := strconv.ParseFloat(lexical, 64)
		if err != nil {
			return Value{}, fmt.Errorf("parse double literal %q: %w", lexical, err)
		}
		return LiteralValue(f, ""), nil
	case XSDDateTime:
		t, err := time.Parse(time.RFC3339Nano, lexical)
		if err != nil {
			return Value{}, fmt.Errorf("parse dateTime literal %q: %w", lexical, err)
		}
		return LiteralValue(t, ""), nil
	default:
		return Value{}, fmt.Errorf("unsupported literal datatype %s", datatype)
	}
}

// Axiom is a single subject-assertion-value statement.
type Axiom struct {
	Subject   NamedResource
	Assertion Assertion
	Value     Value
}

// New creates an axiom.
func New(subject NamedResource, assertion Assertion, value Value) Axiom {
	return Axiom{Subject: subject, Assertion: assertion, Value: value}
}

// Key identifies the statement irrespective of assertion metadata.
func (a Axiom) Key() string {
	return "<" + string(a.Subject) + "> <" + string(a.Assertion.IRI) + "> " + a.Value.Key()
}

func (a Axiom) String() string {
	return fmt.Sprintf("<%s> <%s> %s", a.Subject, a.Assertion.IRI, a.Value)
}
