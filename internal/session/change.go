package session

import (
	"fmt"
	"reflect"
	"sort"
	"time"

	"ontomap/internal/axiom"
	"ontomap/internal/metamodel"
)

// ChangeRecord holds the new value of one changed attribute.
type ChangeRecord struct {
	Attribute *metamodel.Attribute
	Value     any
}

// ChangeSet lists the changed attributes of one clone.
type ChangeSet struct {
	entityType *metamodel.EntityType
	identifier axiom.NamedResource
	records    []ChangeRecord
}

func (cs *ChangeSet) EntityType() reflect.Type        { return cs.entityType.GoType }
func (cs *ChangeSet) Identifier() axiom.NamedResource { return cs.identifier }
func (cs *ChangeSet) Records() []ChangeRecord         { return cs.records }
func (cs *ChangeSet) HasChanges() bool                { return len(cs.records) > 0 }

// Changes maps attribute names to their new values.
func (cs *ChangeSet) Changes() map[string]any {
	out := make(map[string]any, len(cs.records))
	for _, r := range cs.records {
		out[r.Attribute.Name] = r.Value
	}
	return out
}

// ChangeManager compares clones with their originals.
type ChangeManager struct {
	mm *metamodel.Metamodel
}

func NewChangeManager(mm *metamodel.Metamodel) *ChangeManager {
	return &ChangeManager{mm: mm}
}

// CalculateChanges compares original and clone attribute by attribute.
// Every differing attribute yields one record holding the clone's value.
func (m *ChangeManager) CalculateChanges(et *metamodel.EntityType, original, clone any) (*ChangeSet, error) {
	cs := &ChangeSet{
		entityType: et,
		identifier: et.Identifier(clone),
	}
	for _, att := range et.FieldsForUpdate() {
		now := et.Field(clone, att)
		equal, err := m.equalAttribute(et, att, et.Field(original, att), now)
		if err != nil {
			return nil, err
		}
		if equal {
			continue
		}
		cs.records = append(cs.records, ChangeRecord{Attribute: att, Value: now.Interface()})
	}
	return cs, nil
}

func (m *ChangeManager) equalAttribute(et *metamodel.EntityType, att *metamodel.Attribute, a, b reflect.Value) (bool, error) {
	if att.Kind == metamodel.KindProperties {
		return equalProperties(a, b), nil
	}
	if isEmpty(a) || isEmpty(b) {
		return isEmpty(a) == isEmpty(b), nil
	}
	switch att.Kind {
	case metamodel.KindObject:
		target, err := m.mm.Target(et, att)
		if err != nil {
			return false, err
		}
		if att.IsList() {
			return equalOrdered(referenceKeys(target, a), referenceKeys(target, b)), nil
		}
		return equalSets(referenceKeys(target, a), referenceKeys(target, b)), nil
	}
	if att.Plural {
		return equalSets(valueKeys(a), valueKeys(b)), nil
	}
	return valueKey(a) == valueKey(b), nil
}

// isEmpty treats nil, empty collections and zero values as absent.
func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	}
	return v.IsZero()
}

// referenceKeys identifies referenced entities by identifier. Entities
// still lacking one are told apart by address.
func referenceKeys(target *metamodel.EntityType, v reflect.Value) []string {
	if v.Kind() != reflect.Slice {
		return []string{referenceKey(target, v)}
	}
	keys := make([]string, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		keys = append(keys, referenceKey(target, v.Index(i)))
	}
	return keys
}

func referenceKey(target *metamodel.EntityType, v reflect.Value) string {
	if v.IsNil() {
		return ""
	}
	if id := target.Identifier(v.Interface()); id != "" {
		return string(id)
	}
	return fmt.Sprintf("%p", v.Interface())
}

func valueKeys(v reflect.Value) []string {
	keys := make([]string, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		keys = append(keys, valueKey(v.Index(i)))
	}
	return keys
}

func valueKey(v reflect.Value) string {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	if t, ok := v.Interface().(time.Time); ok {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return fmt.Sprintf("%T:%v", v.Interface(), v.Interface())
}

// equalProperties compares property maps ignoring keys without values, so a
// map of empty slices equals a nil map.
func equalProperties(a, b reflect.Value) bool {
	nonEmpty := func(m reflect.Value) map[string][]string {
		out := make(map[string][]string, m.Len())
		for it := m.MapRange(); it.Next(); {
			if it.Value().Len() > 0 {
				out[it.Key().String()] = valueKeys(it.Value())
			}
		}
		return out
	}
	left, right := nonEmpty(a), nonEmpty(b)
	if len(left) != len(right) {
		return false
	}
	for k, vs := range left {
		if !equalSets(vs, right[k]) {
			return false
		}
	}
	return true
}

func equalOrdered(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalSets(a, b []string) bool {
	return equalOrdered(distinct(a), distinct(b))
}

func distinct(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
