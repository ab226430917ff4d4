// Package reference implements revision tags, lazily evaluated references
// and the caches and iteration state built on top of them.
//
// A Reference is a handle to a value plus a Tag bounding the revisions of
// everything the value depends on. Reading Value is always correct; tags
// only let callers avoid reading it when nothing changed.
package reference

import (
	"fmt"
	"reflect"
)

// Reference is a lazily evaluated handle to a value.
type Reference interface {
	Tag() Tag
	Value() any
}

// PathReference is a reference that can be navigated by property name.
type PathReference interface {
	Reference
	Get(key string) PathReference
}

// IsConst reports whether ref can never change.
func IsConst(ref Reference) bool {
	return ref.Tag() == ConstantTag
}

// ---------------------------------------------------------------------------
// Singletons
// ---------------------------------------------------------------------------

type undefined struct{}

func (undefined) String() string { return "undefined" }

// Undefined is the value of a missing property. It is distinct from nil,
// which plays the role of null.
var Undefined any = undefined{}

// IsNullish reports whether v is nil or Undefined.
func IsNullish(v any) bool {
	return v == nil || v == Undefined
}

// ConstReference holds an immutable value.
type ConstReference struct {
	value any
}

// Const returns a constant reference to v.
func Const(v any) *ConstReference {
	return &ConstReference{value: v}
}

func (r *ConstReference) Tag() Tag   { return ConstantTag }
func (r *ConstReference) Value() any { return r.value }

// Get navigates into the constant value. The result is constant too.
func (r *ConstReference) Get(key string) PathReference {
	return Const(Property(r.value, key))
}

func (r *ConstReference) String() string {
	return fmt.Sprintf("const(%v)", r.value)
}

var (
	True         = Const(true)
	False        = Const(false)
	Null         = Const(nil)
	UndefinedRef = Const(Undefined)
)

// ---------------------------------------------------------------------------
// Identity
// ---------------------------------------------------------------------------

// Identical reports whether a and b are the same value: == for comparable
// values, pointer identity for slices, maps and funcs. Structural equality
// is never computed.
func Identical(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return safeEqual(a, b)
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch va.Kind() {
	case reflect.Slice:
		return va.Len() == vb.Len() && va.Pointer() == vb.Pointer()
	case reflect.Map, reflect.Func:
		return va.Pointer() == vb.Pointer()
	}
	return false
}

// safeEqual compares comparable types whose dynamic contents may not be,
// such as structs holding interface fields.
func safeEqual(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}
