package vm

import (
	"github.com/chazu/facet/host"
	"github.com/chazu/facet/reference"
)

func registerDOMOps(t *OpcodeTable) {
	t.add(OpText, func(vm *AppendVM, ins Instruction) error {
		vm.elements.appendText(vm.program.Constants.StringAt(ins.Op1))
		return nil
	})

	t.add(OpComment, func(vm *AppendVM, ins Instruction) error {
		vm.elements.appendComment(vm.program.Constants.StringAt(ins.Op1))
		return nil
	})

	t.add(OpOpenElement, func(vm *AppendVM, ins Instruction) error {
		vm.elements.openElement(vm.program.Constants.StringAt(ins.Op1))
		return nil
	})

	t.add(OpStaticAttr, func(vm *AppendVM, ins Instruction) error {
		c := &vm.program.Constants
		el := vm.constructing(OpStaticAttr)
		vm.doc.SetAttribute(el, c.StringAt(ins.Op1), c.StringAt(ins.Op2), vm.namespace(ins.Op3))
		return nil
	})

	t.add(OpDynamicAttr, func(vm *AppendVM, ins Instruction) error {
		ref := vm.popReference()
		el := vm.constructing(OpDynamicAttr)
		name := vm.program.Constants.StringAt(ins.Op1)
		mgr := vm.env.AttributeFor(vm.elements.constructingTag, name, ins.Op2 != 0, vm.namespace(ins.Op3))
		if reference.IsConst(ref) {
			mgr.Set(vm.doc, el, ref.Value())
			return nil
		}
		cache := reference.NewCache(ref)
		mgr.Set(vm.doc, el, cache.Peek())
		vm.appendOpcode(&UpdateAttributeOpcode{element: el, name: name, manager: mgr, cache: cache})
		return nil
	})

	t.add(OpFlushElement, func(vm *AppendVM, ins Instruction) error {
		vm.elements.flushElement()
		return nil
	})

	t.add(OpCloseElement, func(vm *AppendVM, ins Instruction) error {
		vm.elements.closeElement()
		return nil
	})

	t.add(OpAppendText, func(vm *AppendVM, ins Instruction) error {
		ref := vm.popReference()
		if reference.IsConst(ref) {
			vm.elements.appendText(textOf(ref.Value()))
			return nil
		}
		cache := reference.NewCache(ref)
		text := textOf(cache.Peek())
		node := vm.elements.appendText(text)
		vm.appendOpcode(&UpdateTextOpcode{textNode: node, cache: cache, lastText: text})
		return nil
	})
}

func (vm *AppendVM) constructing(op Opcode) host.Node {
	el := vm.elements.constructing
	if el == nil {
		opViolation(op, "no element is being constructed")
	}
	return el
}

// namespace decodes a string operand offset by one; zero means none.
func (vm *AppendVM) namespace(op uint32) string {
	if op == 0 {
		return ""
	}
	return vm.program.Constants.StringAt(op - 1)
}
