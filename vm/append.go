package vm

import (
	"github.com/tliron/commonlog"

	"github.com/chazu/facet/host"
	"github.com/chazu/facet/reference"
)

var log = commonlog.GetLogger("facet.vm")

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

type options struct {
	table            *OpcodeTable
	trace            bool
	alwaysRevalidate bool
	stackSize        int
	maxFrames        int
}

// Option configures a Template and every VM it runs.
type Option func(*options)

// WithOpcodes replaces the standard opcode table.
func WithOpcodes(t *OpcodeTable) Option {
	return func(o *options) { o.table = t }
}

// WithTrace logs every executed instruction and updating opcode at debug
// level.
func WithTrace(on bool) Option {
	return func(o *options) { o.trace = on }
}

// WithAlwaysRevalidate disables JumpIfNotModified skipping in update
// passes.
func WithAlwaysRevalidate(on bool) Option {
	return func(o *options) { o.alwaysRevalidate = on }
}

// WithStackSize bounds the evaluation stack. Zero means unbounded.
func WithStackSize(n int) Option {
	return func(o *options) { o.stackSize = n }
}

// WithMaxFrames bounds block nesting. Zero means unbounded.
func WithMaxFrames(n int) Option {
	return func(o *options) { o.maxFrames = n }
}

const (
	DefaultStackSize = 1024
	DefaultMaxFrames = 512
)

func buildOptions(opts []Option) options {
	o := options{stackSize: DefaultStackSize, maxFrames: DefaultMaxFrames}
	for _, fn := range opts {
		fn(&o)
	}
	if o.table == nil {
		o.table = StandardOpcodes()
	}
	return o
}

// ---------------------------------------------------------------------------
// Runtime
// ---------------------------------------------------------------------------

// runtime is what one render result shares between its append and update
// VMs.
type runtime struct {
	program *Program
	env     Environment
	doc     host.Document
	opts    options
	arena   *arena
}

func (rt *runtime) newAppendVM(parent, nextSibling host.Node) *AppendVM {
	return &AppendVM{
		runtime:  rt,
		stack:    newEvalStack(rt.opts.stackSize),
		elements: newElementStack(rt.doc, parent, nextSibling),
	}
}

// destroy tears down the opcode at id and everything it owns, and frees
// its arena slot. The caller unlinks it first.
func (rt *runtime) destroy(id nodeID) {
	switch op := rt.arena.op(id).(type) {
	case *TryOpcode:
		op.destroyed = true
		rt.destroyChildren(&op.children)
		rt.env.DidDestroy(op)
	case *ListBlockOpcode:
		rt.destroyChildren(&op.children)
		clear(op.items)
		rt.env.DidDestroy(op)
	}
	rt.arena.release(id)
}

func (rt *runtime) destroyChildren(l *opList) {
	rt.arena.each(l, func(id nodeID, _ UpdatingOpcode) {
		rt.destroy(id)
	})
	*l = newOpList()
}

// rebuild clears a range and appends it again from its captured state.
func (rt *runtime) rebuild(t *TryOpcode) error {
	next := t.tracker.reset(rt.doc)
	rt.destroyChildren(&t.children)

	vm := rt.newAppendVM(t.tracker.parent, next)
	vm.elements.resumeBlock(t.tracker)
	vm.pushList(&t.children, t)
	vm.dynamicScopes = []*DynamicScope{t.state.dynamic.Child()}
	vm.restoreLocals(t.state.locals)
	vm.pushFrame(&frame{
		ip:       t.start,
		end:      t.end,
		args:     t.state.args,
		key:      t.state.key,
		caller:   t.state.caller,
		onReturn: func() { vm.closeRange(t) },
	}, t.state.scope.Child())

	t.stale = nil
	if err := vm.execute(); err != nil {
		t.stale = err
		return err
	}
	return nil
}

// insertItem appends a new list item before next, during an update pass.
func (rt *runtime) insertItem(lb *ListBlockOpcode, item *reference.ListItem, next host.Node, beforeID nodeID) error {
	vm := rt.newAppendVM(lb.tracker.parent, next)
	vm.elements.resumeBlock(lb.tracker)
	vm.pushList(&lb.children, lb)
	vm.scopes = []*Scope{lb.state.scope}
	vm.dynamicScopes = []*DynamicScope{lb.state.dynamic}
	vm.restoreLocals(lb.state.locals)
	vm.enterItem(lb, item, beforeID)
	return vm.execute()
}

// ---------------------------------------------------------------------------
// AppendVM
// ---------------------------------------------------------------------------

type frame struct {
	ip, end    int
	args       *Args
	key        string
	caller     *Scope
	scopeFloor int
	onReturn   func()
}

type openList struct {
	list  *opList
	owner UpdatingOpcode
}

type openJump struct {
	op   *JumpIfNotModifiedOpcode
	list *opList
}

// AppendVM executes a program, building document nodes and recording the
// updating opcodes that keep them current.
type AppendVM struct {
	*runtime
	stack         *evalStack
	scopes        []*Scope
	dynamicScopes []*DynamicScope
	locals        locals
	frames        []*frame
	elements      *elementStack
	lists         []openList
	listBlocks    []*ListBlockOpcode
	entered       []*TryOpcode
	modified      []openJump
}

func (vm *AppendVM) Push(v any)               { vm.stack.push(v) }
func (vm *AppendVM) Pop() any                 { return vm.stack.pop() }
func (vm *AppendVM) Scope() *Scope            { return vm.scope() }
func (vm *AppendVM) Program() *Program        { return vm.program }
func (vm *AppendVM) Document() host.Document  { return vm.doc }
func (vm *AppendVM) Environment() Environment { return vm.env }

// PopReference pops a reference. Anything else on top of the stack is a
// contract violation.
func (vm *AppendVM) PopReference() reference.PathReference {
	return vm.popReference()
}

// execute runs until the frame stack is empty.
func (vm *AppendVM) execute() error {
	for len(vm.frames) > 0 {
		f := vm.frames[len(vm.frames)-1]
		if f.ip >= f.end {
			vm.popFrame()
			continue
		}
		ins := vm.program.Code[f.ip]
		f.ip++

		h, ok := vm.opts.table.Lookup(ins.Op)
		if !ok {
			opViolation(ins.Op, "no handler registered")
		}
		if vm.opts.trace {
			log.Debugf("append %04d  %s", f.ip-1, vm.program.DisassembleInstruction(ins))
		}
		if err := h(vm, ins); err != nil {
			return err
		}
	}
	return nil
}

// ----- frames and scopes

func (vm *AppendVM) frame() *frame {
	if len(vm.frames) == 0 {
		violation("no active frame")
	}
	return vm.frames[len(vm.frames)-1]
}

func (vm *AppendVM) pushFrame(f *frame, scope *Scope) {
	if vm.opts.maxFrames > 0 && len(vm.frames) >= vm.opts.maxFrames {
		violation("frame depth exceeds %d", vm.opts.maxFrames)
	}
	vm.scopes = append(vm.scopes, scope)
	f.scopeFloor = len(vm.scopes)
	vm.frames = append(vm.frames, f)
}

func (vm *AppendVM) popFrame() {
	f := vm.frames[len(vm.frames)-1]
	if len(vm.scopes) != f.scopeFloor {
		violation("block returned with %d unbalanced scopes", len(vm.scopes)-f.scopeFloor)
	}
	vm.frames[len(vm.frames)-1] = nil
	vm.frames = vm.frames[:len(vm.frames)-1]
	vm.scopes[len(vm.scopes)-1] = nil
	vm.scopes = vm.scopes[:len(vm.scopes)-1]
	if f.onReturn != nil {
		f.onReturn()
	}
}

// invoke calls a block with args in scope.
func (vm *AppendVM) invoke(b *Block, args *Args, scope *Scope) {
	vm.pushFrame(&frame{
		ip:     int(b.Start),
		end:    int(b.End),
		args:   args,
		key:    vm.frame().key,
		caller: vm.scope(),
	}, scope)
}

func (vm *AppendVM) goTo(target uint32) {
	vm.frame().ip = int(target)
}

func (vm *AppendVM) scope() *Scope {
	if len(vm.scopes) == 0 {
		violation("scope stack underflow")
	}
	return vm.scopes[len(vm.scopes)-1]
}

func (vm *AppendVM) pushScope(s *Scope) {
	vm.scopes = append(vm.scopes, s)
}

func (vm *AppendVM) popScope() {
	floor := 0
	if len(vm.frames) > 0 {
		floor = vm.frame().scopeFloor
	}
	if len(vm.scopes) <= floor {
		violation("scope popped below its block")
	}
	vm.scopes[len(vm.scopes)-1] = nil
	vm.scopes = vm.scopes[:len(vm.scopes)-1]
}

func (vm *AppendVM) dynamicScope() *DynamicScope {
	if len(vm.dynamicScopes) == 0 {
		violation("dynamic scope stack underflow")
	}
	return vm.dynamicScopes[len(vm.dynamicScopes)-1]
}

func (vm *AppendVM) restoreLocals(snapshot []any) {
	if snapshot == nil {
		return
	}
	vm.locals.reserve(len(snapshot))
	copy(vm.locals.window(), snapshot)
}

// capture records what a range needs to be rebuilt later.
func (vm *AppendVM) capture(key string) vmState {
	f := vm.frame()
	return vmState{
		scope:   vm.scope().Child(),
		dynamic: vm.dynamicScope().Child(),
		args:    f.args,
		caller:  f.caller,
		locals:  vm.locals.snapshot(),
		key:     key,
	}
}

// ----- stack

func (vm *AppendVM) popReference() reference.PathReference {
	switch v := vm.stack.pop().(type) {
	case reference.Reference:
		return asPath(v)
	default:
		violation("expected a reference on the stack, found %T", v)
		return nil
	}
}

func (vm *AppendVM) popBlock() *Block {
	b, ok := vm.stack.pop().(*Block)
	if !ok {
		violation("expected a block on the stack")
	}
	return b
}

func (vm *AppendVM) popArgs() *Args {
	a, ok := vm.stack.pop().(*Args)
	if !ok {
		violation("expected arguments on the stack")
	}
	return a
}

// ----- updating opcodes

func (vm *AppendVM) pushList(l *opList, owner UpdatingOpcode) {
	vm.lists = append(vm.lists, openList{list: l, owner: owner})
}

func (vm *AppendVM) topList() openList {
	if len(vm.lists) == 0 {
		violation("updating opcode outside a range")
	}
	return vm.lists[len(vm.lists)-1]
}

func (vm *AppendVM) popList(owner UpdatingOpcode) {
	if vm.topList().owner != owner {
		violation("%s closed out of order", owner.Type())
	}
	vm.lists = vm.lists[:len(vm.lists)-1]
}

// appendOpcode adds op to the innermost open updating list.
func (vm *AppendVM) appendOpcode(op UpdatingOpcode) {
	l := vm.topList().list
	vm.arena.append(l, vm.arena.alloc(op))
}

// ----- ranges

// openRange appends t and makes it the innermost open range.
func (vm *AppendVM) openRange(t *TryOpcode) {
	vm.appendOpcode(t)
	t.tracker = vm.elements.pushUpdatableBlock()
	t.state = vm.capture(t.key)
	vm.pushList(&t.children, t)
}

func (vm *AppendVM) closeRange(t *TryOpcode) {
	vm.popList(t)
	vm.elements.popBlock()
	t.didInitializeChildren(vm.arena)
}

// enterItem opens the range of one list item before beforeID and invokes
// the list body with the item's value and memo.
func (vm *AppendVM) enterItem(lb *ListBlockOpcode, item *reference.ListItem, beforeID nodeID) {
	t := newTry(lb.bodyStart, lb.bodyEnd, item.Key)
	vm.arena.insertBefore(&lb.children, vm.arena.alloc(t), beforeID)
	lb.items[item.Key] = t

	t.tracker = vm.elements.pushUpdatableBlock()
	vm.pushList(&t.children, t)

	args := NewArgs([]reference.PathReference{item.Value, item.Memo}, nil, nil)
	scope := vm.scope().Child()
	t.state = vmState{
		scope:   scope.Child(),
		dynamic: vm.dynamicScope().Child(),
		args:    args,
		caller:  lb.state.caller,
		locals:  vm.locals.snapshot(),
		key:     item.Key,
	}
	vm.pushFrame(&frame{
		ip:       lb.bodyStart,
		end:      lb.bodyEnd,
		args:     args,
		key:      item.Key,
		caller:   lb.state.caller,
		onReturn: func() { vm.closeRange(t) },
	}, scope)
}

func (vm *AppendVM) listBlock() *ListBlockOpcode {
	if len(vm.listBlocks) == 0 {
		violation("no open list")
	}
	return vm.listBlocks[len(vm.listBlocks)-1]
}
