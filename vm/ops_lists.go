package vm

import (
	"github.com/chazu/facet/reference"
)

// A keyed list compiles to:
//
//	<iterable reference>
//	PutIterator   key
//	JumpUnless    ELSE
//	EnterList     BODY BODY_END
//	LOOP:  Iterate BREAK
//	       Jump    LOOP
//	BREAK: ExitList
//	       Jump    END
//	ELSE:  Pop
//	       <inverse>
//	END:
//
// The body receives the item value and memo as positional arguments.
func registerListOps(t *OpcodeTable) {
	t.add(OpPutIterator, func(vm *AppendVM, ins Instruction) error {
		ref := vm.popReference()
		iterable := vm.env.IterableFor(ref, vm.program.Constants.StringAt(ins.Op1))
		it := reference.NewReferenceIterator(iterable)
		vm.stack.push(it)
		vm.stack.push(reference.NewPresenceReference(it.Artifacts()))
		return nil
	})

	t.add(OpEnterList, func(vm *AppendVM, ins Instruction) error {
		it, ok := vm.stack.pop().(*reference.ReferenceIterator)
		if !ok {
			opViolation(OpEnterList, "expected an iterator on the stack")
		}
		lb := newListBlock(vm.arena, it, int(ins.Op1), int(ins.Op2))
		lb.state = vm.capture(vm.frame().key)
		vm.appendOpcode(lb)
		lb.tracker = vm.elements.pushListBlock(lb)
		vm.pushList(&lb.children, lb)
		vm.listBlocks = append(vm.listBlocks, lb)
		return nil
	})

	t.add(OpIterate, func(vm *AppendVM, ins Instruction) error {
		lb := vm.listBlock()
		item, ok, err := lb.iterator.Next()
		if err != nil {
			return err
		}
		if !ok {
			vm.goTo(ins.Op1)
			return nil
		}
		vm.enterItem(lb, item, nilID)
		return nil
	})

	t.add(OpExitList, func(vm *AppendVM, ins Instruction) error {
		lb := vm.listBlock()
		vm.listBlocks = vm.listBlocks[:len(vm.listBlocks)-1]
		vm.popList(lb)
		vm.elements.popBlock()
		lb.didInitializeChildren()
		return nil
	})
}
