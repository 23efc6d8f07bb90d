package oom

import (
	"fmt"
	"math"
	"net/url"
	"reflect"
	"time"

	"ontomap/internal/axiom"
	"ontomap/internal/metamodel"
)

var (
	timeType     = reflect.TypeOf(time.Time{})
	resourceType = reflect.TypeOf(axiom.NamedResource(""))
)

// isUnset reports whether a singular field holds no value. Zero values of
// non-pointer fields count as unset.
func isUnset(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map:
		return v.IsNil() || (v.Kind() != reflect.Ptr && v.Kind() != reflect.Interface && v.Len() == 0)
	}
	return v.IsZero()
}

// toValue converts a field value into an axiom value. ok is false for nil pointers.
func toValue(att *metamodel.Attribute, v reflect.Value, language string) (val axiom.Value, ok bool, err error) {
	if v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return axiom.Value{}, false, nil
		}
		v = v.Elem()
	}
	if v.Type() == resourceType {
		return axiom.ResourceValue(axiom.NamedResource(v.String())), true, nil
	}
	if v.Type() == timeType {
		return axiom.LiteralValue(v.Interface(), ""), true, nil
	}
	switch v.Kind() {
	case reflect.String:
		return axiom.LiteralValue(v.String(), language), true, nil
	case reflect.Bool:
		return axiom.LiteralValue(v.Bool(), ""), true, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return axiom.LiteralValue(v.Int(), ""), true, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if v.Uint() > math.MaxInt64 {
			return axiom.Value{}, false, fmt.Errorf("value %d of %s exceeds the xsd:long range", v.Uint(), att.Name)
		}
		return axiom.LiteralValue(int64(v.Uint()), ""), true, nil
	case reflect.Float32, reflect.Float64:
		return axiom.LiteralValue(v.Float(), ""), true, nil
	}
	return axiom.Value{}, false, fmt.Errorf("value of type %s cannot be stored as a literal of %s", v.Type(), att.Name)
}

// fromValue converts an axiom value into a value assignable to target.
func fromValue(att *metamodel.Attribute, target reflect.Type, val axiom.Value) (reflect.Value, error) {
	if target.Kind() == reflect.Ptr {
		inner, err := fromValue(att, target.Elem(), val)
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(target.Elem())
		p.Elem().Set(inner)
		return p, nil
	}

	out := reflect.New(target).Elem()
	if target == resourceType {
		if !val.IsResource() {
			return reflect.Value{}, fmt.Errorf("expected a resource, got literal %s", val)
		}
		out.SetString(string(val.Resource))
		return out, nil
	}
	if att.LexicalForm && target.Kind() == reflect.String {
		out.SetString(val.Lexical())
		return out, nil
	}
	if val.IsResource() {
		if att.Kind == metamodel.KindAnnotation && target.Kind() == reflect.String {
			out.SetString(string(val.Resource))
			return out, nil
		}
		return reflect.Value{}, fmt.Errorf("expected a literal, got resource %s", val.Resource)
	}

	mismatch := func() error {
		return fmt.Errorf("literal %s of type %s is not assignable to %s", val, val.Datatype(), target)
	}
	if target == timeType {
		t, ok := val.Literal.(time.Time)
		if !ok {
			return reflect.Value{}, mismatch()
		}
		out.Set(reflect.ValueOf(t))
		return out, nil
	}
	switch target.Kind() {
	case reflect.String:
		s, ok := val.Literal.(string)
		if !ok {
			return reflect.Value{}, mismatch()
		}
		out.SetString(s)
	case reflect.Bool:
		b, ok := val.Literal.(bool)
		if !ok {
			return reflect.Value{}, mismatch()
		}
		out.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, ok := val.Literal.(int64)
		if !ok || out.OverflowInt(i) {
			return reflect.Value{}, mismatch()
		}
		out.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		i, ok := val.Literal.(int64)
		if !ok || i < 0 || out.OverflowUint(uint64(i)) {
			return reflect.Value{}, mismatch()
		}
		out.SetUint(uint64(i))
	case reflect.Float32, reflect.Float64:
		switch n := val.Literal.(type) {
		case float64:
			out.SetFloat(n)
		case int64:
			out.SetFloat(float64(n))
		default:
			return reflect.Value{}, mismatch()
		}
	default:
		return reflect.Value{}, mismatch()
	}
	return out, nil
}

// languageMatches drops string literals tagged with a language other than
// the requested one. Untagged literals always match.
func languageMatches(language string, v axiom.Value) bool {
	return language == "" || v.IsResource() || v.Language == "" || v.Language == language
}

// propertyValue converts an untyped properties entry. Absolute IRIs become
// resource references.
func propertyValue(s string) axiom.Value {
	if u, err := url.Parse(s); err == nil && u.Scheme != "" && (u.Host != "" || u.Opaque != "") {
		return axiom.ResourceValue(axiom.NamedResource(s))
	}
	return axiom.LiteralValue(s, "")
}
