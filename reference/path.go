package reference

import (
	"reflect"
	"sort"
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Objects: mutable records with one tag per field
// ---------------------------------------------------------------------------

// Getter is implemented by values that resolve their own properties.
type Getter interface {
	Get(key string) any
}

// Tagged is implemented by values that track changes per property.
type Tagged interface {
	TagFor(key string) Tag
}

// Object is a mutable record. Every field owns a tag that is dirtied when
// the field is set to a value that is not identical to the previous one.
type Object struct {
	fields map[string]any
	tags   map[string]*DirtyableTag
}

// NewObject returns an object holding a copy of fields.
func NewObject(fields map[string]any) *Object {
	o := &Object{
		fields: make(map[string]any, len(fields)),
		tags:   make(map[string]*DirtyableTag),
	}
	for k, v := range fields {
		o.fields[k] = v
	}
	return o
}

// Get returns the field value, or Undefined.
func (o *Object) Get(key string) any {
	if v, ok := o.fields[key]; ok {
		return v
	}
	return Undefined
}

// Set writes a field.
func (o *Object) Set(key string, value any) {
	old, ok := o.fields[key]
	o.fields[key] = value
	if ok && Identical(old, value) {
		return
	}
	if tag, ok := o.tags[key]; ok {
		tag.Dirty()
	}
}

// Delete removes a field.
func (o *Object) Delete(key string) {
	if _, ok := o.fields[key]; !ok {
		return
	}
	delete(o.fields, key)
	if tag, ok := o.tags[key]; ok {
		tag.Dirty()
	}
}

// TagFor returns the tag of a field, creating it on first use.
func (o *Object) TagFor(key string) Tag {
	tag, ok := o.tags[key]
	if !ok {
		tag = NewDirtyableTag()
		o.tags[key] = tag
	}
	return tag
}

// Keys returns the field names in sorted order.
func (o *Object) Keys() []string {
	keys := make([]string, 0, len(o.fields))
	for k := range o.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FromData converts decoded JSON-like data into objects so that nested
// fields become individually trackable.
func FromData(v any) any {
	switch t := v.(type) {
	case map[string]any:
		o := NewObject(nil)
		for k, fv := range t {
			o.fields[k] = FromData(fv)
		}
		return o
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = FromData(item)
		}
		return out
	default:
		return v
	}
}

// Property resolves key on v. Missing properties resolve to Undefined.
func Property(v any, key string) any {
	switch t := v.(type) {
	case nil, undefined:
		return Undefined
	case Getter:
		return t.Get(key)
	case map[string]any:
		if pv, ok := t[key]; ok {
			return pv
		}
		return Undefined
	case []any:
		if key == "length" {
			return len(t)
		}
		return Undefined
	}
	return reflectProperty(reflect.ValueOf(v), key)
}

func reflectProperty(rv reflect.Value, key string) any {
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return Undefined
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct:
		f := rv.FieldByName(exportedName(key))
		if f.IsValid() && f.CanInterface() {
			return f.Interface()
		}
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			mv := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
			if mv.IsValid() {
				return mv.Interface()
			}
		}
	case reflect.Slice, reflect.Array, reflect.String:
		if key == "length" {
			return rv.Len()
		}
	}
	return Undefined
}

func exportedName(key string) string {
	r, size := utf8.DecodeRuneInString(key)
	if r == utf8.RuneError {
		return key
	}
	return string(unicode.ToUpper(r)) + key[size:]
}

// TagForProperty returns the tag tracking key on v, or ConstantTag when v
// does not track its properties.
func TagForProperty(v any, key string) Tag {
	if t, ok := v.(Tagged); ok {
		return t.TagFor(key)
	}
	return ConstantTag
}

// ---------------------------------------------------------------------------
// Root and property references
// ---------------------------------------------------------------------------

// RootReference is an updatable reference at the top of a path.
type RootReference struct {
	tag      *DirtyableTag
	value    any
	children map[string]*PropertyReference
}

// NewRoot returns an updatable root reference holding v.
func NewRoot(v any) *RootReference {
	return &RootReference{tag: NewDirtyableTag(), value: v}
}

func (r *RootReference) Tag() Tag   { return r.tag }
func (r *RootReference) Value() any { return r.value }

// Update re-points the reference. Identical values are not a change.
func (r *RootReference) Update(v any) {
	if Identical(r.value, v) {
		return
	}
	r.value = v
	r.tag.Dirty()
}

// Get returns the child reference for key; children are memoized.
func (r *RootReference) Get(key string) PathReference {
	return childReference(r, &r.children, key)
}

// PropertyReference resolves one key on its parent's current value.
type PropertyReference struct {
	parent   PathReference
	key      string
	slot     *UpdatableTag
	tag      Tag
	children map[string]*PropertyReference
}

func newPropertyReference(parent PathReference, key string) *PropertyReference {
	slot := NewUpdatableTag(TagForProperty(parent.Value(), key))
	return &PropertyReference{
		parent: parent,
		key:    key,
		slot:   slot,
		tag:    Combine(parent.Tag(), slot),
	}
}

func (r *PropertyReference) Tag() Tag { return r.tag }

func (r *PropertyReference) Value() any {
	pv := r.parent.Value()
	r.slot.Update(TagForProperty(pv, r.key))
	return Property(pv, r.key)
}

func (r *PropertyReference) Get(key string) PathReference {
	return childReference(r, &r.children, key)
}

// Key returns the property name this reference resolves.
func (r *PropertyReference) Key() string {
	return r.key
}

func childReference(parent PathReference, children *map[string]*PropertyReference, key string) PathReference {
	if *children == nil {
		*children = make(map[string]*PropertyReference)
	}
	if ref, ok := (*children)[key]; ok {
		return ref
	}
	ref := newPropertyReference(parent, key)
	(*children)[key] = ref
	return ref
}
