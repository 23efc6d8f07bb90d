// Package validator checks participation constraints of entities and of
// change sets before they are written.
package validator

import (
	"reflect"

	"go.uber.org/multierr"

	"ontomap/internal/axiom"
	"ontomap/internal/metamodel"
	ontoerrors "ontomap/pkg/errors"
)

// ChangeSet is the view of a change set the validator works with.
type ChangeSet interface {
	// EntityType is the Go type of the changed entity.
	EntityType() reflect.Type
	Identifier() axiom.NamedResource
	// Changes maps attribute names to their new values.
	Changes() map[string]any
}

// ValidateObject checks every constrained attribute of entity, inherited ones
// included. Inferred attributes of new instances are skipped since their
// values come from the store.
func ValidateObject(entity any, et *metamodel.EntityType, isNew bool) error {
	id := et.Identifier(entity)
	var errs error
	for _, c := range et.Constraints() {
		if isNew && c.Attribute.Inferred {
			continue
		}
		errs = multierr.Append(errs, validate(id, c.Attribute, c.Constraint, et.Field(entity, c.Attribute)))
	}
	return errs
}

// ValidateChangeSet checks the changed attributes only. Attributes missing
// from the change set are assumed valid.
func ValidateChangeSet(cs ChangeSet, mm *metamodel.Metamodel) error {
	et, ok := mm.EntityType(cs.EntityType())
	if !ok {
		return ontoerrors.NewInvalidFieldMapping(cs.EntityType().Name(), "", "type is not a registered entity")
	}
	var errs error
	for name, value := range cs.Changes() {
		att, ok := et.Attribute(name)
		if !ok {
			if et.Types != nil && et.Types.Name == name {
				att = et.Types
			} else if et.Properties != nil && et.Properties.Name == name {
				att = et.Properties
			} else {
				errs = multierr.Append(errs, ontoerrors.NewInvalidFieldMapping(et.Name, name, "unknown attribute"))
				continue
			}
		}
		errs = multierr.Append(errs, ValidateAttribute(cs.Identifier(), att, value))
	}
	return errs
}

// ValidateAttribute checks a single attribute value.
func ValidateAttribute(id axiom.NamedResource, att *metamodel.Attribute, value any) error {
	if att.Constraint == nil {
		return nil
	}
	return validate(id, att, *att.Constraint, reflect.ValueOf(value))
}

func validate(id axiom.NamedResource, att *metamodel.Attribute, c metamodel.Constraint, v reflect.Value) error {
	n := count(v)
	if !att.Plural {
		if n < c.Min {
			return ontoerrors.NewIntegrityConstraintViolated(string(id), att.Name)
		}
		if c.Max != metamodel.Unbounded && n > c.Max {
			return ontoerrors.NewCardinalityConstraintViolated(string(id), att.Name, c.Min, c.Max, n)
		}
		return nil
	}
	if n < c.Min || (c.Max != metamodel.Unbounded && n > c.Max) {
		return ontoerrors.NewCardinalityConstraintViolated(string(id), att.Name, c.Min, c.Max, n)
	}
	return nil
}

// count is the number of values held: the length of collections, 0 or 1
// otherwise. Zero values count as absent.
func count(v reflect.Value) int {
	if !v.IsValid() {
		return 0
	}
	switch v.Kind() {
	case reflect.Map:
		n := 0
		for it := v.MapRange(); it.Next(); {
			n += count(it.Value())
		}
		return n
	case reflect.Slice:
		return v.Len()
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return 0
		}
		return 1
	}
	if v.IsZero() {
		return 0
	}
	return 1
}
