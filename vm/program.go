package vm

import "fmt"

// ProgramVersion is the current program format version.
// Increment when making incompatible changes to the format.
const ProgramVersion uint16 = 1

// Block is a code region [Start, End) that can be invoked as a unit.
type Block struct {
	Start uint32 `cbor:"1,keyasint"`
	End   uint32 `cbor:"2,keyasint"`
}

// BooleanStrategy selects how ToBoolean coerces a reference. It is a closed
// set resolved once per expression at append time.
type BooleanStrategy uint8

const (
	// ConstTest decides truthiness once; the result is constant.
	ConstTest BooleanStrategy = iota
	// SimpleTest passes the reference through; its value is already a bool.
	SimpleTest
	// EnvironmentTest delegates to Environment.ToConditionalReference.
	EnvironmentTest
)

func (s BooleanStrategy) String() string {
	switch s {
	case ConstTest:
		return "const"
	case SimpleTest:
		return "simple"
	case EnvironmentTest:
		return "environment"
	default:
		return fmt.Sprintf("BooleanStrategy(%d)", s)
	}
}

// ConstantKind selects the pool an OpConstant reads from.
type ConstantKind uint32

const (
	ConstString ConstantKind = iota
	ConstNumber
	ConstArray
	ConstBlock
	ConstOther
)

func (k ConstantKind) String() string {
	switch k {
	case ConstString:
		return "string"
	case ConstNumber:
		return "number"
	case ConstArray:
		return "array"
	case ConstBlock:
		return "block"
	case ConstOther:
		return "other"
	default:
		return fmt.Sprintf("ConstantKind(%d)", k)
	}
}

// ConstantPool holds every immediate too large for an instruction.
type ConstantPool struct {
	Strings   []string          `cbor:"1,keyasint,omitempty"`
	Numbers   []float64         `cbor:"2,keyasint,omitempty"`
	Arrays    [][]uint32        `cbor:"3,keyasint,omitempty"` // string indices or slots
	Blocks    []Block           `cbor:"4,keyasint,omitempty"`
	Functions []BooleanStrategy `cbor:"5,keyasint,omitempty"`
	Others    []any             `cbor:"6,keyasint,omitempty"`
}

func (c *ConstantPool) StringAt(i uint32) string {
	if int(i) >= len(c.Strings) {
		violation("string constant %d out of range (%d)", i, len(c.Strings))
	}
	return c.Strings[i]
}

func (c *ConstantPool) ArrayAt(i uint32) []uint32 {
	if int(i) >= len(c.Arrays) {
		violation("array constant %d out of range (%d)", i, len(c.Arrays))
	}
	return c.Arrays[i]
}

// StringArray resolves an array of string indices.
func (c *ConstantPool) StringArray(i uint32) []string {
	idx := c.ArrayAt(i)
	out := make([]string, len(idx))
	for j, s := range idx {
		out[j] = c.StringAt(s)
	}
	return out
}

func (c *ConstantPool) BlockAt(i uint32) *Block {
	if int(i) >= len(c.Blocks) {
		violation("block constant %d out of range (%d)", i, len(c.Blocks))
	}
	return &c.Blocks[i]
}

func (c *ConstantPool) FunctionAt(i uint32) BooleanStrategy {
	if int(i) >= len(c.Functions) {
		violation("function constant %d out of range (%d)", i, len(c.Functions))
	}
	return c.Functions[i]
}

// SymbolTable names the scope slots of a program. Slot i is Names[i].
type SymbolTable struct {
	Names []string `cbor:"1,keyasint,omitempty"`
}

// Len is the number of slots every scope of the program carries.
func (s *SymbolTable) Len() int {
	return len(s.Names)
}

// Lookup returns the slot for name.
func (s *SymbolTable) Lookup(name string) (uint32, bool) {
	for i, n := range s.Names {
		if n == name {
			return uint32(i), true
		}
	}
	return 0, false
}

// Program is a compiled template: instructions, constants, symbols and the
// entry block.
type Program struct {
	Version   uint16            `cbor:"1,keyasint"`
	Code      []Instruction     `cbor:"2,keyasint"`
	Constants ConstantPool      `cbor:"3,keyasint"`
	Symbols   SymbolTable       `cbor:"4,keyasint"`
	Entry     Block             `cbor:"5,keyasint"`
	Labels    map[uint32]string `cbor:"6,keyasint,omitempty"` // Code address -> name, for diagnostics
}

// Validate checks that every operand indexes something that exists. A
// program that validates cannot make the VM read outside its pools or
// code; it can still misuse stacks and scopes.
func (p *Program) Validate() error {
	if p.Version != ProgramVersion {
		return fmt.Errorf("program version %d, want %d", p.Version, ProgramVersion)
	}
	n := uint32(len(p.Code))
	if p.Entry.Start > p.Entry.End || p.Entry.End > n {
		return fmt.Errorf("entry block [%d,%d) outside code (%d)", p.Entry.Start, p.Entry.End, n)
	}
	for i, b := range p.Constants.Blocks {
		if b.Start > b.End || b.End > n {
			return fmt.Errorf("block %d [%d,%d) outside code (%d)", i, b.Start, b.End, n)
		}
	}
	for addr, ins := range p.Code {
		info, ok := GetOpcodeInfo(ins.Op)
		if !ok {
			return fmt.Errorf("%04d: unknown opcode 0x%02X", addr, byte(ins.Op))
		}
		for i := 1; i <= info.Operands; i++ {
			if info.IsTarget(i) && ins.Operand(i) > n {
				return fmt.Errorf("%04d %s: target %d outside code (%d)", addr, info.Name, ins.Operand(i), n)
			}
		}
		if err := p.validateOperands(ins); err != nil {
			return fmt.Errorf("%04d %s: %w", addr, info.Name, err)
		}
	}
	return nil
}

func (p *Program) validateOperands(ins Instruction) error {
	c := &p.Constants
	str := func(i uint32) error {
		if int(i) >= len(c.Strings) {
			return fmt.Errorf("string %d out of range", i)
		}
		return nil
	}
	arr := func(i uint32) error {
		if int(i) >= len(c.Arrays) {
			return fmt.Errorf("array %d out of range", i)
		}
		return nil
	}
	switch ins.Op {
	case OpText, OpComment, OpOpenElement, OpGetProperty, OpGetDynamic, OpHelper, OpPutIterator:
		return str(ins.Op1)
	case OpStaticAttr:
		if err := str(ins.Op1); err != nil {
			return err
		}
		if err := str(ins.Op2); err != nil {
			return err
		}
		if ins.Op3 > 0 {
			return str(ins.Op3 - 1)
		}
	case OpDynamicAttr:
		if err := str(ins.Op1); err != nil {
			return err
		}
		if ins.Op3 > 0 {
			return str(ins.Op3 - 1)
		}
	case OpBindPositionalArgs, OpBindDynamicScope:
		return arr(ins.Op1)
	case OpBindNamedArgs:
		if err := arr(ins.Op1); err != nil {
			return err
		}
		return arr(ins.Op2)
	case OpPushReifiedArgs:
		return arr(ins.Op2)
	case OpEvaluate:
		if int(ins.Op1) >= len(c.Blocks) {
			return fmt.Errorf("block %d out of range", ins.Op1)
		}
	case OpToBoolean:
		if int(ins.Op1) >= len(c.Functions) {
			return fmt.Errorf("function %d out of range", ins.Op1)
		}
	case OpConstant:
		return c.validateConstant(ConstantKind(ins.Op1), ins.Op2)
	case OpPrimitive:
		value := ins.Op1 & primitiveMask
		switch ins.Op1 >> primitiveShift {
		case primitiveNumber:
		case primitiveString:
			return str(value)
		case primitiveSingleton:
			if value > SingletonUndefined {
				return fmt.Errorf("singleton %d out of range", value)
			}
		default:
			return fmt.Errorf("malformed primitive 0x%08X", ins.Op1)
		}
	}
	return nil
}

func (c *ConstantPool) validateConstant(kind ConstantKind, i uint32) error {
	var n int
	switch kind {
	case ConstString:
		n = len(c.Strings)
	case ConstNumber:
		n = len(c.Numbers)
	case ConstArray:
		n = len(c.Arrays)
	case ConstBlock:
		n = len(c.Blocks)
	case ConstOther:
		n = len(c.Others)
	default:
		return fmt.Errorf("unknown constant kind %d", uint32(kind))
	}
	if int(i) >= n {
		return fmt.Errorf("%s constant %d out of range", kind, i)
	}
	return nil
}

// labelAt names a code address for diagnostics.
func (p *Program) labelAt(addr uint32) string {
	if l, ok := p.Labels[addr]; ok {
		return l
	}
	return fmt.Sprintf("%04d", addr)
}
