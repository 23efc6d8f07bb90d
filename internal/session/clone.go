package session

import (
	"reflect"

	"ontomap/internal/metamodel"
)

// ReferenceMapper returns the instance a copied reference should point to.
// ref is a pointer to an entity of type target held by att.
type ReferenceMapper func(att *metamodel.Attribute, target *metamodel.EntityType, ref any) (any, error)

// CloneBuilder copies entity state. Plain values are copied deeply; entity
// references are handed to a ReferenceMapper so the copy can point into a
// different object graph.
type CloneBuilder struct {
	mm *metamodel.Metamodel
}

func NewCloneBuilder(mm *metamodel.Metamodel) *CloneBuilder {
	return &CloneBuilder{mm: mm}
}

// CopyInto overwrites dst with the state of src. Both are pointers to
// instances of et.
func (b *CloneBuilder) CopyInto(et *metamodel.EntityType, dst, src any, refs ReferenceMapper) error {
	d, s := reflect.ValueOf(dst).Elem(), reflect.ValueOf(src).Elem()
	// Unmapped fields and the identifier travel with the shallow copy.
	d.Set(s)
	for _, att := range et.FieldsForUpdate() {
		if err := b.CopyAttribute(et, att, dst, src, refs); err != nil {
			return err
		}
	}
	return nil
}

// CopyAttribute overwrites the att field of dst with the value held by src.
func (b *CloneBuilder) CopyAttribute(et *metamodel.EntityType, att *metamodel.Attribute, dst, src any, refs ReferenceMapper) error {
	from := et.Field(src, att)
	to := et.Field(dst, att)
	if att.Kind != metamodel.KindObject {
		to.Set(deepCopy(from))
		return nil
	}

	target, err := b.mm.Target(et, att)
	if err != nil {
		return err
	}
	mapRef := func(ref reflect.Value) (reflect.Value, error) {
		if ref.IsNil() {
			return reflect.Zero(ref.Type()), nil
		}
		mapped, err := refs(att, target, ref.Interface())
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(mapped), nil
	}

	if !att.Plural {
		v, err := mapRef(from)
		if err != nil {
			return err
		}
		to.Set(v)
		return nil
	}
	if from.IsNil() {
		to.Set(reflect.Zero(from.Type()))
		return nil
	}
	out := reflect.MakeSlice(from.Type(), from.Len(), from.Len())
	for i := 0; i < from.Len(); i++ {
		v, err := mapRef(from.Index(i))
		if err != nil {
			return err
		}
		out.Index(i).Set(v)
	}
	to.Set(out)
	return nil
}

// deepCopy copies slices, maps and pointers recursively. Other values are
// copied by assignment.
func deepCopy(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(deepCopy(v.Index(i)))
		}
		return out
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		for it := v.MapRange(); it.Next(); {
			out.SetMapIndex(it.Key(), deepCopy(it.Value()))
		}
		return out
	case reflect.Ptr:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(deepCopy(v.Elem()))
		return out
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		c := deepCopy(v.Elem())
		out := reflect.New(v.Type()).Elem()
		out.Set(c)
		return out
	}
	return v
}
