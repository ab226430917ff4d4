package vm

import (
	"maps"

	"github.com/chazu/facet/reference"
)

// BoundBlock is a block together with the scope it was written in.
type BoundBlock struct {
	Block *Block
	Scope *Scope
}

// Scope holds the symbol slots of one block invocation. A slot holds a
// reference, a *BoundBlock, or an *Args bound as partial args.
type Scope struct {
	self   reference.PathReference
	slots  []any
	caller *Scope
}

// NewScope returns a root scope around self with size empty slots.
func NewScope(self reference.PathReference, size int) *Scope {
	if self == nil {
		self = reference.UndefinedRef
	}
	return &Scope{self: self, slots: make([]any, size)}
}

// Self is the scope's self reference.
func (s *Scope) Self() reference.PathReference {
	return s.self
}

// Child copies s. Writes to the child never reach s.
func (s *Scope) Child() *Scope {
	return &Scope{
		self:   s.self,
		slots:  append([]any(nil), s.slots...),
		caller: s.caller,
	}
}

// Caller is the scope bound by BindCallerScope.
func (s *Scope) Caller() *Scope {
	return s.caller
}

func (s *Scope) check(slot uint32) {
	if int(slot) >= len(s.slots) {
		violation("symbol %d outside scope of %d slots", slot, len(s.slots))
	}
}

// Bind stores v in slot.
func (s *Scope) Bind(slot uint32, v any) {
	s.check(slot)
	s.slots[slot] = v
}

// Get returns the value in slot, or nil when unbound.
func (s *Scope) Get(slot uint32) any {
	s.check(slot)
	return s.slots[slot]
}

// Symbol returns the reference in slot. Unbound slots read as undefined.
func (s *Scope) Symbol(slot uint32) reference.PathReference {
	switch v := s.Get(slot).(type) {
	case nil:
		return reference.UndefinedRef
	case reference.PathReference:
		return v
	default:
		violation("symbol %d holds %T, not a reference", slot, v)
		return nil
	}
}

// DynamicScope carries named values visible to every descendant
// regardless of lexical nesting.
type DynamicScope struct {
	bucket map[string]reference.PathReference
}

// NewDynamicScope returns a dynamic scope holding values.
func NewDynamicScope(values map[string]reference.PathReference) *DynamicScope {
	d := &DynamicScope{bucket: make(map[string]reference.PathReference, len(values))}
	maps.Copy(d.bucket, values)
	return d
}

// Get returns the value for name, or undefined.
func (d *DynamicScope) Get(name string) reference.PathReference {
	if ref, ok := d.bucket[name]; ok {
		return ref
	}
	return reference.UndefinedRef
}

// Set binds name in this scope only.
func (d *DynamicScope) Set(name string, ref reference.PathReference) {
	d.bucket[name] = ref
}

// Child copies d.
func (d *DynamicScope) Child() *DynamicScope {
	return NewDynamicScope(d.bucket)
}
