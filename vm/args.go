package vm

import (
	"github.com/chazu/facet/reference"
)

// Args is an immutable argument bundle: positional references in source
// order, named references, and the optional default and inverse blocks.
type Args struct {
	positional []reference.PathReference
	names      []string
	named      map[string]reference.PathReference
	Default    *Block
	Inverse    *Block
}

// EmptyArgs has no arguments.
var EmptyArgs = &Args{}

// NewArgs builds a bundle. Named arguments keep the order of names.
func NewArgs(positional []reference.PathReference, names []string, named map[string]reference.PathReference) *Args {
	a := &Args{
		positional: append([]reference.PathReference(nil), positional...),
		names:      append([]string(nil), names...),
		named:      make(map[string]reference.PathReference, len(names)),
	}
	for _, n := range names {
		ref, ok := named[n]
		if !ok {
			ref = reference.UndefinedRef
		}
		a.named[n] = ref
	}
	return a
}

// Positional returns the positional references in source order.
func (a *Args) Positional() []reference.PathReference {
	return a.positional
}

// At returns positional argument i, or undefined.
func (a *Args) At(i int) reference.PathReference {
	if i < len(a.positional) {
		return a.positional[i]
	}
	return reference.UndefinedRef
}

// Names returns the named argument keys in declaration order.
func (a *Args) Names() []string {
	return a.names
}

// Named returns the named argument name.
func (a *Args) Named(name string) (reference.PathReference, bool) {
	ref, ok := a.named[name]
	return ref, ok
}

// Tag combines the tags of every argument.
func (a *Args) Tag() reference.Tag {
	tags := make([]reference.Tag, 0, len(a.positional)+len(a.named))
	for _, r := range a.positional {
		tags = append(tags, r.Tag())
	}
	for _, n := range a.names {
		tags = append(tags, a.named[n].Tag())
	}
	return reference.Combine(tags...)
}

// Values returns the current positional values followed by a map of named
// values.
func (a *Args) Values() ([]any, map[string]any) {
	pos := make([]any, len(a.positional))
	for i, r := range a.positional {
		pos[i] = r.Value()
	}
	named := make(map[string]any, len(a.names))
	for _, n := range a.names {
		named[n] = a.named[n].Value()
	}
	return pos, named
}

// asPath adapts a plain reference to a path reference.
func asPath(r reference.Reference) reference.PathReference {
	if p, ok := r.(reference.PathReference); ok {
		return p
	}
	return reference.Map(r, func(v any) any { return v }).(reference.PathReference)
}

// reifyArgs pops an argument bundle. The stack holds, bottom to top, the
// positional values, the named values in declaration order, then the
// default and inverse blocks when flagged.
func reifyArgs(vm *AppendVM, positional int, names []string, flags uint32) *Args {
	a := &Args{named: make(map[string]reference.PathReference, len(names))}
	if flags&ArgsInverseBlock != 0 {
		a.Inverse = vm.popBlock()
	}
	if flags&ArgsDefaultBlock != 0 {
		a.Default = vm.popBlock()
	}

	for i := len(names) - 1; i >= 0; i-- {
		name := names[i]
		if _, dup := a.named[name]; dup {
			opViolation(OpPushReifiedArgs, "duplicate named argument %q", name)
		}
		a.named[name] = vm.popReference()
	}
	a.names = append([]string(nil), names...)

	a.positional = make([]reference.PathReference, positional)
	for i := positional - 1; i >= 0; i-- {
		a.positional[i] = vm.popReference()
	}
	return a
}
