package vm

import (
	"strings"

	"github.com/chazu/facet/reference"
)

// ---------------------------------------------------------------------------
// Stack
// ---------------------------------------------------------------------------

func registerStackOps(t *OpcodeTable) {
	t.add(OpPop, func(vm *AppendVM, ins Instruction) error {
		n := max(ins.Op1, 1)
		for i := uint32(0); i < n; i++ {
			vm.stack.pop()
		}
		return nil
	})

	t.add(OpPrimitive, func(vm *AppendVM, ins Instruction) error {
		vm.stack.push(decodePrimitive(ins.Op1, &vm.program.Constants))
		return nil
	})

	t.add(OpConstant, func(vm *AppendVM, ins Instruction) error {
		vm.stack.push(vm.constant(ConstantKind(ins.Op1), ins.Op2))
		return nil
	})

	t.add(OpDup, func(vm *AppendVM, ins Instruction) error {
		vm.stack.push(vm.stack.peek())
		return nil
	})
}

func (vm *AppendVM) constant(kind ConstantKind, i uint32) any {
	c := &vm.program.Constants
	inRange := func(n int) {
		if int(i) >= n {
			opViolation(OpConstant, "%s constant %d out of range (%d)", kind, i, n)
		}
	}
	switch kind {
	case ConstString:
		return reference.Const(c.StringAt(i))
	case ConstNumber:
		inRange(len(c.Numbers))
		return reference.Const(c.Numbers[i])
	case ConstArray:
		return reference.Const(c.StringArray(i))
	case ConstBlock:
		return c.BlockAt(i)
	case ConstOther:
		inRange(len(c.Others))
		return reference.Const(c.Others[i])
	}
	opViolation(OpConstant, "unknown constant kind %d", uint32(kind))
	return nil
}

// ---------------------------------------------------------------------------
// Scopes and locals
// ---------------------------------------------------------------------------

func registerScopeOps(t *OpcodeTable) {
	t.add(OpPushChildScope, func(vm *AppendVM, ins Instruction) error {
		vm.pushScope(vm.scope().Child())
		return nil
	})

	t.add(OpPushRootScope, func(vm *AppendVM, ins Instruction) error {
		self := vm.popReference()
		vm.pushScope(NewScope(self, vm.program.Symbols.Len()))
		return nil
	})

	t.add(OpPopScope, func(vm *AppendVM, ins Instruction) error {
		vm.popScope()
		return nil
	})

	t.add(OpPushDynamicScope, func(vm *AppendVM, ins Instruction) error {
		vm.dynamicScopes = append(vm.dynamicScopes, vm.dynamicScope().Child())
		return nil
	})

	t.add(OpPopDynamicScope, func(vm *AppendVM, ins Instruction) error {
		if len(vm.dynamicScopes) <= 1 {
			opViolation(OpPopDynamicScope, "cannot pop the root dynamic scope")
		}
		vm.dynamicScopes = vm.dynamicScopes[:len(vm.dynamicScopes)-1]
		return nil
	})

	t.add(OpReserveLocals, func(vm *AppendVM, ins Instruction) error {
		vm.locals.reserve(int(ins.Op1))
		return nil
	})

	t.add(OpReleaseLocals, func(vm *AppendVM, ins Instruction) error {
		vm.locals.release()
		return nil
	})

	t.add(OpGetLocal, func(vm *AppendVM, ins Instruction) error {
		vm.stack.push(vm.locals.get(ins.Op1))
		return nil
	})

	t.add(OpSetLocal, func(vm *AppendVM, ins Instruction) error {
		vm.locals.set(ins.Op1, vm.stack.pop())
		return nil
	})
}

// ---------------------------------------------------------------------------
// Arguments and binding
// ---------------------------------------------------------------------------

func registerArgOps(t *OpcodeTable) {
	t.add(OpPushReifiedArgs, func(vm *AppendVM, ins Instruction) error {
		names := vm.program.Constants.StringArray(ins.Op2)
		vm.stack.push(reifyArgs(vm, int(ins.Op1), names, ins.Op3))
		return nil
	})

	t.add(OpBindPositionalArgs, func(vm *AppendVM, ins Instruction) error {
		args, scope := vm.frameArgs(), vm.scope()
		for i, slot := range vm.program.Constants.ArrayAt(ins.Op1) {
			scope.Bind(slot, args.At(i))
		}
		return nil
	})

	t.add(OpBindNamedArgs, func(vm *AppendVM, ins Instruction) error {
		names := vm.program.Constants.StringArray(ins.Op1)
		slots := vm.program.Constants.ArrayAt(ins.Op2)
		if len(names) != len(slots) {
			opViolation(OpBindNamedArgs, "%d names for %d slots", len(names), len(slots))
		}
		args, scope := vm.frameArgs(), vm.scope()
		for i, name := range names {
			ref, ok := args.Named(name)
			if !ok {
				ref = reference.UndefinedRef
			}
			scope.Bind(slots[i], ref)
		}
		return nil
	})

	t.add(OpBindBlocks, func(vm *AppendVM, ins Instruction) error {
		f := vm.frame()
		args := vm.frameArgs()
		bind := func(slot uint32, b *Block) {
			if slot == NoSymbol {
				return
			}
			if b == nil {
				vm.scope().Bind(slot, nil)
				return
			}
			vm.scope().Bind(slot, &BoundBlock{Block: b, Scope: f.caller})
		}
		bind(ins.Op1, args.Default)
		bind(ins.Op2, args.Inverse)
		return nil
	})

	t.add(OpBindPartialArgs, func(vm *AppendVM, ins Instruction) error {
		vm.scope().Bind(ins.Op1, vm.frameArgs())
		return nil
	})

	t.add(OpBindCallerScope, func(vm *AppendVM, ins Instruction) error {
		vm.scope().caller = vm.frame().caller
		return nil
	})

	t.add(OpBindDynamicScope, func(vm *AppendVM, ins Instruction) error {
		args, dyn := vm.frameArgs(), vm.dynamicScope()
		for _, name := range vm.program.Constants.StringArray(ins.Op1) {
			if ref, ok := args.Named(name); ok {
				dyn.Set(name, ref)
			}
		}
		return nil
	})
}

func (vm *AppendVM) frameArgs() *Args {
	if a := vm.frame().args; a != nil {
		return a
	}
	return EmptyArgs
}

// ---------------------------------------------------------------------------
// Control
// ---------------------------------------------------------------------------

func registerControlOps(t *OpcodeTable) {
	t.add(OpEnter, func(vm *AppendVM, ins Instruction) error {
		f := vm.frame()
		r := newTry(f.ip, int(ins.Op1), f.key)
		vm.openRange(r)
		vm.entered = append(vm.entered, r)
		return nil
	})

	t.add(OpExit, func(vm *AppendVM, ins Instruction) error {
		if len(vm.entered) == 0 {
			opViolation(OpExit, "Exit without a matching Enter")
		}
		r := vm.entered[len(vm.entered)-1]
		vm.entered = vm.entered[:len(vm.entered)-1]
		vm.closeRange(r)
		return nil
	})

	t.add(OpEvaluate, func(vm *AppendVM, ins Instruction) error {
		b := vm.program.Constants.BlockAt(ins.Op1)
		vm.invoke(b, vm.popArgs(), vm.scope().Child())
		return nil
	})

	t.add(OpYield, func(vm *AppendVM, ins Instruction) error {
		args := vm.popArgs()
		switch bb := vm.scope().Get(ins.Op1).(type) {
		case nil:
		case *BoundBlock:
			vm.invoke(bb.Block, args, bb.Scope.Child())
		default:
			opViolation(OpYield, "symbol %d holds %T, not a block", ins.Op1, bb)
		}
		return nil
	})

	t.add(OpJump, func(vm *AppendVM, ins Instruction) error {
		vm.goTo(ins.Op1)
		return nil
	})

	t.add(OpJumpIf, func(vm *AppendVM, ins Instruction) error {
		vm.branch(ins.Op1, true)
		return nil
	})

	t.add(OpJumpUnless, func(vm *AppendVM, ins Instruction) error {
		vm.branch(ins.Op1, false)
		return nil
	})

	t.add(OpToBoolean, func(vm *AppendVM, ins Instruction) error {
		ref := vm.popReference()
		switch s := vm.program.Constants.FunctionAt(ins.Op1); s {
		case ConstTest:
			vm.stack.push(reference.Const(Truthy(ref.Value())))
		case SimpleTest:
			vm.stack.push(ref)
		case EnvironmentTest:
			vm.stack.push(asPath(vm.env.ToConditionalReference(ref)))
		default:
			opViolation(OpToBoolean, "unknown strategy %s", s)
		}
		return nil
	})

	t.add(OpJumpIfNotModified, func(vm *AppendVM, ins Instruction) error {
		ref := vm.popReference()
		if reference.IsConst(ref) {
			vm.modified = append(vm.modified, openJump{})
			return nil
		}
		tag := ref.Tag()
		j := &JumpIfNotModifiedOpcode{tag: tag, lastRevision: tag.Value()}
		vm.appendOpcode(j)
		vm.modified = append(vm.modified, openJump{op: j, list: vm.topList().list})
		return nil
	})

	t.add(OpDidModify, func(vm *AppendVM, ins Instruction) error {
		if len(vm.modified) == 0 {
			opViolation(OpDidModify, "no open JumpIfNotModified")
		}
		open := vm.modified[len(vm.modified)-1]
		vm.modified = vm.modified[:len(vm.modified)-1]
		if open.op == nil {
			return nil
		}
		if vm.topList().list != open.list {
			opViolation(OpDidModify, "region crosses a range boundary")
		}
		label := &LabelOpcode{name: vm.program.labelAt(uint32(vm.frame().ip - 1))}
		vm.appendOpcode(label)
		vm.appendOpcode(&DidModifyOpcode{target: open.op})
		open.op.target = label
		return nil
	})
}

// branch jumps to target when the guard's truthiness equals when. A
// non-constant guard leaves an AssertOpcode behind so the update pass
// notices when the other branch should have been taken.
func (vm *AppendVM) branch(target uint32, when bool) {
	ref := vm.popReference()
	if reference.IsConst(ref) {
		if Truthy(ref.Value()) == when {
			vm.goTo(target)
		}
		return
	}
	cache := reference.NewCache(reference.Map(ref, func(v any) any { return Truthy(v) }))
	if cache.Peek() == when {
		vm.goTo(target)
	}
	vm.appendOpcode(&AssertOpcode{cache: cache})
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func registerExpressionOps(t *OpcodeTable) {
	t.add(OpPushSelf, func(vm *AppendVM, ins Instruction) error {
		vm.stack.push(vm.scope().Self())
		return nil
	})

	t.add(OpGetSymbol, func(vm *AppendVM, ins Instruction) error {
		vm.stack.push(vm.scope().Symbol(ins.Op1))
		return nil
	})

	t.add(OpGetProperty, func(vm *AppendVM, ins Instruction) error {
		ref := vm.popReference()
		vm.stack.push(ref.Get(vm.program.Constants.StringAt(ins.Op1)))
		return nil
	})

	t.add(OpGetDynamic, func(vm *AppendVM, ins Instruction) error {
		vm.stack.push(vm.dynamicScope().Get(vm.program.Constants.StringAt(ins.Op1)))
		return nil
	})

	t.add(OpHelper, func(vm *AppendVM, ins Instruction) error {
		name := vm.program.Constants.StringAt(ins.Op1)
		fn, ok := vm.env.Helper(name)
		if !ok {
			opViolation(OpHelper, "unknown helper %q", name)
		}
		vm.stack.push(asPath(fn(vm.popArgs())))
		return nil
	})

	t.add(OpConcat, func(vm *AppendVM, ins Instruction) error {
		parts := make([]reference.Reference, ins.Op1)
		for i := len(parts) - 1; i >= 0; i-- {
			parts[i] = vm.popReference()
		}
		vm.stack.push(asPath(reference.Compute(parts, func(values []any) any {
			var sb strings.Builder
			for _, v := range values {
				sb.WriteString(textOf(v))
			}
			return sb.String()
		})))
		return nil
	})
}
