package vm

import "sync"

// Handler executes one append-time instruction.
type Handler func(vm *AppendVM, ins Instruction) error

// OpcodeTable maps opcodes to handlers. A table is immutable once built;
// With returns a modified copy.
type OpcodeTable struct {
	handlers [opcodeLimit]Handler
}

var (
	standardOnce  sync.Once
	standardTable *OpcodeTable
)

// StandardOpcodes returns the table of built-in handlers. It is built once
// and shared; every VM receives it unless WithOpcodes says otherwise.
func StandardOpcodes() *OpcodeTable {
	standardOnce.Do(func() {
		t := &OpcodeTable{}
		registerStackOps(t)
		registerScopeOps(t)
		registerArgOps(t)
		registerControlOps(t)
		registerExpressionOps(t)
		registerDOMOps(t)
		registerListOps(t)
		standardTable = t
	})
	return standardTable
}

// With returns a copy of t where op is handled by h.
func (t *OpcodeTable) With(op Opcode, h Handler) *OpcodeTable {
	if op >= opcodeLimit {
		violation("opcode 0x%02X outside table", byte(op))
	}
	c := *t
	c.handlers[op] = h
	return &c
}

// Lookup returns the handler for op.
func (t *OpcodeTable) Lookup(op Opcode) (Handler, bool) {
	if op >= opcodeLimit {
		return nil, false
	}
	h := t.handlers[op]
	return h, h != nil
}

func (t *OpcodeTable) add(op Opcode, h Handler) {
	t.handlers[op] = h
}
