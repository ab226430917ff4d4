package vm

import (
	"reflect"

	"github.com/chazu/facet/host"
	"github.com/chazu/facet/reference"
)

// Helper computes a reference from call arguments.
type Helper func(args *Args) reference.Reference

// Environment is the host services a render runs against.
type Environment interface {
	Document() host.Document
	IterableFor(ref reference.Reference, key string) reference.Iterable
	ToConditionalReference(ref reference.Reference) reference.Reference
	AttributeFor(tag, attr string, trusting bool, namespace string) host.AttributeManager
	Helper(name string) (Helper, bool)

	// Begin and Commit bracket every render, update pass, and rebuild.
	Begin()
	Commit()

	// DidDestroy is called for every range torn down inside a transaction.
	DidDestroy(r Range)
}

// DefaultEnvironment is an Environment with host defaults. Destroyed
// ranges are queued during a transaction and reported at commit.
type DefaultEnvironment struct {
	doc     host.Document
	helpers map[string]Helper

	inTransaction bool
	destroyed     []Range
	onDestroy     []func(Range)
}

// NewEnvironment returns a DefaultEnvironment over doc.
func NewEnvironment(doc host.Document) *DefaultEnvironment {
	return &DefaultEnvironment{doc: doc, helpers: make(map[string]Helper)}
}

func (e *DefaultEnvironment) Document() host.Document { return e.doc }

// RegisterHelper makes fn callable by the Helper opcode.
func (e *DefaultEnvironment) RegisterHelper(name string, fn Helper) {
	e.helpers[name] = fn
}

func (e *DefaultEnvironment) Helper(name string) (Helper, bool) {
	fn, ok := e.helpers[name]
	return fn, ok
}

// OnDestroy registers fn to run for every range destroyed, at commit.
func (e *DefaultEnvironment) OnDestroy(fn func(Range)) {
	e.onDestroy = append(e.onDestroy, fn)
}

func (e *DefaultEnvironment) IterableFor(ref reference.Reference, key string) reference.Iterable {
	return reference.NewListIterable(ref, key)
}

func (e *DefaultEnvironment) ToConditionalReference(ref reference.Reference) reference.Reference {
	return reference.Map(ref, func(v any) any { return Truthy(v) })
}

func (e *DefaultEnvironment) AttributeFor(tag, attr string, trusting bool, namespace string) host.AttributeManager {
	return host.DefaultAttributeFor(tag, attr, trusting, namespace)
}

func (e *DefaultEnvironment) Begin() {
	if e.inTransaction {
		violation("transaction already in progress")
	}
	e.inTransaction = true
}

func (e *DefaultEnvironment) DidDestroy(r Range) {
	if !e.inTransaction {
		violation("range destroyed outside a transaction")
	}
	e.destroyed = append(e.destroyed, r)
}

func (e *DefaultEnvironment) Commit() {
	if !e.inTransaction {
		violation("commit without a transaction")
	}
	queue := e.destroyed
	e.destroyed = nil
	e.inTransaction = false
	for _, r := range queue {
		for _, fn := range e.onDestroy {
			fn(r)
		}
	}
}

// Truthy is the host truthiness rule: nil, undefined, false, the empty
// string, numeric zero, and empty slices and maps are false.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case int:
		return x != 0
	case float64:
		return x != 0
	}
	if v == reference.Undefined {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Slice, reflect.Map:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}
