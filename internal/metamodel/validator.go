package metamodel

import (
	"fmt"
	"net/url"
	"reflect"
	"time"

	"ontomap/internal/axiom"
	ontoerrors "ontomap/pkg/errors"
)

var (
	timeType     = reflect.TypeOf(time.Time{})
	resourceType = reflect.TypeOf(axiom.NamedResource(""))
	stringSlice  = reflect.TypeOf([]string(nil))
	untypedProps = reflect.TypeOf(map[string][]string(nil))
	typedProps   = reflect.TypeOf(map[string][]any(nil))
)

// validateField checks a field declaration against its Go type and fills
// in the shape derived from the type: plurality, collection and target.
func validateField(entity string, att *Attribute, spec tagSpec) error {
	fail := func(format string, args ...any) error {
		return ontoerrors.NewInvalidFieldMapping(entity, att.Name, fmt.Sprintf(format, args...))
	}
	t := att.Type

	switch att.Kind {
	case KindTypes:
		if t != stringSlice {
			return fail("types field must be []string, got %s", t)
		}
		att.Plural = true
		att.Collection = CollectionSet
		return nil
	case KindProperties:
		switch t {
		case untypedProps:
		case typedProps:
			att.TypedProperties = true
		default:
			return fail("properties field must be map[string][]string or map[string][]any, got %s", t)
		}
		att.Plural = true
		return nil
	}

	if !isIRI(string(att.IRI)) {
		return fail("missing or invalid iri %q", att.IRI)
	}
	if spec.cascade && att.Kind != KindObject {
		return fail("cascade applies to object attributes only")
	}
	if spec.lang != "" && att.Kind == KindObject {
		return fail("language applies to literal attributes only")
	}
	if c := att.Constraint; c != nil && c.Max != Unbounded && c.Max < c.Min {
		return fail("max %d is lower than min %d", c.Max, c.Min)
	}
	if att.IsList() {
		if att.Kind != KindObject {
			return fail("lists must be object attributes")
		}
		if !isIRI(string(att.Next)) {
			return fail("invalid next iri %q", att.Next)
		}
		if att.Collection == CollectionReferencedList && !isIRI(string(att.Content)) {
			return fail("invalid content iri %q", att.Content)
		}
	}

	switch att.Kind {
	case KindObject:
		if t.Kind() == reflect.Slice {
			target, ok := entityPointer(t.Elem())
			if !ok {
				return fail("plural object attribute must be a slice of struct pointers, got %s", t)
			}
			att.Plural = true
			att.Target = target
			if att.Collection == CollectionNone {
				att.Collection = CollectionSet
			}
			return nil
		}
		if att.IsList() {
			return fail("list attribute must be a slice of struct pointers, got %s", t)
		}
		target, ok := entityPointer(t)
		if !ok {
			return fail("object attribute must be a struct pointer, got %s", t)
		}
		att.Target = target
		return nil
	default:
		elem := t
		if t.Kind() == reflect.Slice && t.Elem().Kind() != reflect.Uint8 {
			att.Plural = true
			att.Collection = CollectionSet
			elem = t.Elem()
		}
		if !att.Plural && elem.Kind() == reflect.Ptr {
			elem = elem.Elem()
		}
		if elem == resourceType {
			if att.Kind != KindAnnotation {
				return fail("resource values are supported on annotation attributes only")
			}
			if spec.lexical {
				return fail("lexical form requires a string field")
			}
			return nil
		}
		if !IsLiteralType(elem) {
			return fail("unsupported literal type %s", t)
		}
		if spec.lexical && elem.Kind() != reflect.String {
			return fail("lexical form requires a string field")
		}
		if c := att.Constraint; c != nil && c.Min > 0 && !att.Plural && zeroIsValue(t) {
			return fail("required %s field must be a pointer type", t)
		}
		return nil
	}
}

// zeroIsValue reports whether the zero value of t is a meaningful literal
// that cannot be told apart from an unset field.
func zeroIsValue(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// IsLiteralType reports whether values of t map to literals.
func IsLiteralType(t reflect.Type) bool {
	if t == timeType {
		return true
	}
	switch t.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return t != resourceType
	}
	return false
}

func entityPointer(t reflect.Type) (reflect.Type, bool) {
	if t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Struct || t.Elem() == timeType {
		return nil, false
	}
	return t.Elem(), true
}

// isIRI accepts absolute IRIs with a scheme.
func isIRI(s string) bool {
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && (u.Host != "" || u.Opaque != "")
}
