package vm

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/chazu/facet/host"
	"github.com/chazu/facet/reference"
)

// UpdatingOpcode is a reactive obligation recorded during append and
// re-checked on every update pass.
type UpdatingOpcode interface {
	Type() string
	Tag() reference.Tag
	Evaluate(vm *UpdatingVM) error
	node() *opNode
}

// opNode is the arena position and identity every updating opcode carries.
type opNode struct {
	id   nodeID
	guid int
}

func (n *opNode) node() *opNode { return n }

// Range is a rebuildable region of the document and of the updating
// program: a branch, a list item, or the whole render.
type Range interface {
	Bounds
	ID() uuid.UUID
	Key() string
}

// vmState is what a range needs to resume appending: the scope and dynamic
// scope it started with, the frame arguments and caller, and the locals
// window.
type vmState struct {
	scope   *Scope
	dynamic *DynamicScope
	args    *Args
	caller  *Scope
	locals  []any
	key     string
}

// ---------------------------------------------------------------------------
// Guards
// ---------------------------------------------------------------------------

// AssertOpcode fails the pass when its guard's truthiness changes.
type AssertOpcode struct {
	opNode
	cache *reference.ReferenceCache
}

func (a *AssertOpcode) Type() string       { return "assert" }
func (a *AssertOpcode) Tag() reference.Tag { return a.cache.Tag() }
func (a *AssertOpcode) Expected() any      { return a.cache.Peek() }

func (a *AssertOpcode) Evaluate(vm *UpdatingVM) error {
	if _, modified := a.cache.Revalidate(); modified {
		return vm.throw(ErrGuardChanged)
	}
	return nil
}

// LabelOpcode is a jump target. It does nothing when evaluated.
type LabelOpcode struct {
	opNode
	name string
}

func (l *LabelOpcode) Type() string                  { return "label" }
func (l *LabelOpcode) Tag() reference.Tag            { return reference.ConstantTag }
func (l *LabelOpcode) Evaluate(vm *UpdatingVM) error { return nil }
func (l *LabelOpcode) Name() string                  { return l.name }

// JumpIfNotModifiedOpcode skips to its label when its tag has not moved
// since the guarded region last ran.
type JumpIfNotModifiedOpcode struct {
	opNode
	tag          reference.Tag
	lastRevision reference.Revision
	target       *LabelOpcode
}

func (j *JumpIfNotModifiedOpcode) Type() string       { return "jump-if-not-modified" }
func (j *JumpIfNotModifiedOpcode) Tag() reference.Tag { return j.tag }

func (j *JumpIfNotModifiedOpcode) Evaluate(vm *UpdatingVM) error {
	if !vm.opts.alwaysRevalidate && j.tag.Validate(j.lastRevision) {
		vm.stats.Skipped++
		vm.gotoLabel(j.target)
	}
	return nil
}

func (j *JumpIfNotModifiedOpcode) didModify() {
	j.lastRevision = j.tag.Value()
}

// DidModifyOpcode re-arms its JumpIfNotModifiedOpcode after the guarded
// region ran.
type DidModifyOpcode struct {
	opNode
	target *JumpIfNotModifiedOpcode
}

func (d *DidModifyOpcode) Type() string       { return "did-modify" }
func (d *DidModifyOpcode) Tag() reference.Tag { return d.target.tag }

func (d *DidModifyOpcode) Evaluate(vm *UpdatingVM) error {
	d.target.didModify()
	return nil
}

// ---------------------------------------------------------------------------
// Content
// ---------------------------------------------------------------------------

// UpdateTextOpcode keeps a text node in sync with a reference.
type UpdateTextOpcode struct {
	opNode
	textNode host.Node
	cache    *reference.ReferenceCache
	lastText string
}

func (u *UpdateTextOpcode) Type() string       { return "update-text" }
func (u *UpdateTextOpcode) Tag() reference.Tag { return u.cache.Tag() }

func (u *UpdateTextOpcode) Evaluate(vm *UpdatingVM) error {
	v, modified := u.cache.Revalidate()
	if !modified {
		return nil
	}
	if text := textOf(v); text != u.lastText {
		vm.doc.SetText(u.textNode, text)
		u.lastText = text
	}
	return nil
}

// UpdateAttributeOpcode keeps one attribute in sync with a reference.
type UpdateAttributeOpcode struct {
	opNode
	element host.Node
	name    string
	manager host.AttributeManager
	cache   *reference.ReferenceCache
}

func (u *UpdateAttributeOpcode) Type() string       { return "update-attribute" }
func (u *UpdateAttributeOpcode) Tag() reference.Tag { return u.cache.Tag() }

func (u *UpdateAttributeOpcode) Evaluate(vm *UpdatingVM) error {
	if v, modified := u.cache.Revalidate(); modified {
		u.manager.Update(vm.doc, u.element, v)
	}
	return nil
}

// textOf renders a value as text content. Nullish values render nothing.
func textOf(v any) string {
	if v == nil || v == reference.Undefined {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// ---------------------------------------------------------------------------
// Ranges
// ---------------------------------------------------------------------------

// TryOpcode is a range: it owns the updating opcodes and document nodes
// created while it was open, and the state needed to rebuild them.
type TryOpcode struct {
	opNode
	rangeID    uuid.UUID
	key        string
	start, end int
	state      vmState
	tracker    *updatableTracker
	children   opList
	tag        *reference.UpdatableTag

	stale     error
	destroyed bool
}

func newTry(start, end int, key string) *TryOpcode {
	return &TryOpcode{
		rangeID:  uuid.New(),
		key:      key,
		start:    start,
		end:      end,
		children: newOpList(),
		tag:      reference.NewUpdatableTag(reference.ConstantTag),
	}
}

func (t *TryOpcode) Type() string       { return "try" }
func (t *TryOpcode) Tag() reference.Tag { return t.tag }
func (t *TryOpcode) ID() uuid.UUID      { return t.rangeID }
func (t *TryOpcode) Key() string        { return t.key }

func (t *TryOpcode) ParentElement() host.Node { return t.tracker.ParentElement() }
func (t *TryOpcode) FirstNode() host.Node     { return t.tracker.FirstNode() }
func (t *TryOpcode) LastNode() host.Node      { return t.tracker.LastNode() }

// Evaluate walks the range's children. A range that already failed stays
// failed until it is rebuilt.
func (t *TryOpcode) Evaluate(vm *UpdatingVM) error {
	if t.stale != nil {
		return &StaleError{Range: t, Cause: t.stale}
	}
	vm.enter(&t.children, t)
	return nil
}

func (t *TryOpcode) didInitializeChildren(a *arena) {
	var tags []reference.Tag
	a.each(&t.children, func(_ nodeID, op UpdatingOpcode) {
		tags = append(tags, op.Tag())
	})
	t.tag.Update(reference.Combine(tags...))
}
