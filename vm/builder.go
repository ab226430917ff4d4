package vm

import "fmt"

// Label names a code address. Builder operands of type Label are resolved
// when the program is built.
type Label string

// Block flags for PushReifiedArgs.
const (
	ArgsDefaultBlock uint32 = 1 << 0
	ArgsInverseBlock uint32 = 1 << 1
)

type fixup struct {
	addr    int
	operand int
	label   Label
}

type blockFixup struct {
	index      int
	start, end Label
}

// Builder assembles a Program. Constants are interned; forward references
// to labels are patched by Build.
type Builder struct {
	prog    Program
	strings map[string]uint32
	funcs   map[BooleanStrategy]uint32
	labels  map[Label]uint32
	fixups  []fixup
	blocks  []blockFixup
	entry   *blockFixup
	err     error
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		prog:    Program{Version: ProgramVersion},
		strings: make(map[string]uint32),
		funcs:   make(map[BooleanStrategy]uint32),
		labels:  make(map[Label]uint32),
	}
}

// Here returns the address of the next instruction.
func (b *Builder) Here() uint32 {
	return uint32(len(b.prog.Code))
}

// Mark binds l to the current address.
func (b *Builder) Mark(l Label) {
	if _, dup := b.labels[l]; dup {
		b.fail("label %q defined twice", l)
		return
	}
	b.labels[l] = b.Here()
}

// Emit appends an instruction. Operands may be uint32, int, or Label.
func (b *Builder) Emit(op Opcode, operands ...any) int {
	if len(operands) > 3 {
		b.fail("%s: %d operands, at most 3", op, len(operands))
		operands = operands[:3]
	}
	addr := len(b.prog.Code)
	ins := Instruction{Op: op}
	for i, o := range operands {
		var v uint32
		switch o := o.(type) {
		case uint32:
			v = o
		case int:
			v = uint32(o)
		case Label:
			b.fixups = append(b.fixups, fixup{addr: addr, operand: i + 1, label: o})
		default:
			b.fail("%s: operand %d has type %T", op, i+1, o)
		}
		switch i {
		case 0:
			ins.Op1 = v
		case 1:
			ins.Op2 = v
		case 2:
			ins.Op3 = v
		}
	}
	b.prog.Code = append(b.prog.Code, ins)
	return addr
}

// ----- constants

// Intern adds a string constant, reusing an existing entry.
func (b *Builder) Intern(s string) uint32 {
	if i, ok := b.strings[s]; ok {
		return i
	}
	i := uint32(len(b.prog.Constants.Strings))
	b.prog.Constants.Strings = append(b.prog.Constants.Strings, s)
	b.strings[s] = i
	return i
}

func (b *Builder) Number(f float64) uint32 {
	b.prog.Constants.Numbers = append(b.prog.Constants.Numbers, f)
	return uint32(len(b.prog.Constants.Numbers) - 1)
}

func (b *Builder) Array(values ...uint32) uint32 {
	if values == nil {
		values = []uint32{}
	}
	b.prog.Constants.Arrays = append(b.prog.Constants.Arrays, values)
	return uint32(len(b.prog.Constants.Arrays) - 1)
}

// Names adds an array of interned strings.
func (b *Builder) Names(names ...string) uint32 {
	idx := make([]uint32, len(names))
	for i, n := range names {
		idx[i] = b.Intern(n)
	}
	return b.Array(idx...)
}

// Block adds a block spanning [start, end).
func (b *Builder) Block(start, end Label) uint32 {
	i := len(b.prog.Constants.Blocks)
	b.prog.Constants.Blocks = append(b.prog.Constants.Blocks, Block{})
	b.blocks = append(b.blocks, blockFixup{index: i, start: start, end: end})
	return uint32(i)
}

func (b *Builder) Function(s BooleanStrategy) uint32 {
	if i, ok := b.funcs[s]; ok {
		return i
	}
	i := uint32(len(b.prog.Constants.Functions))
	b.prog.Constants.Functions = append(b.prog.Constants.Functions, s)
	b.funcs[s] = i
	return i
}

func (b *Builder) Other(v any) uint32 {
	b.prog.Constants.Others = append(b.prog.Constants.Others, v)
	return uint32(len(b.prog.Constants.Others) - 1)
}

// Symbol returns the slot for name, allocating it on first use.
func (b *Builder) Symbol(name string) uint32 {
	if slot, ok := b.prog.Symbols.Lookup(name); ok {
		return slot
	}
	b.prog.Symbols.Names = append(b.prog.Symbols.Names, name)
	return uint32(len(b.prog.Symbols.Names) - 1)
}

// Entry sets the entry block. Without it the whole code is the entry.
func (b *Builder) Entry(start, end Label) {
	b.entry = &blockFixup{start: start, end: end}
}

// ----- convenience emitters

func (b *Builder) PushString(s string) {
	b.Emit(OpPrimitive, PrimitiveString(b.Intern(s)))
}

func (b *Builder) PushNumber(n uint32) {
	b.Emit(OpPrimitive, PrimitiveNumber(n))
}

func (b *Builder) PushBool(v bool) {
	if v {
		b.Emit(OpPrimitive, PrimitiveSingleton(SingletonTrue))
		return
	}
	b.Emit(OpPrimitive, PrimitiveSingleton(SingletonFalse))
}

func (b *Builder) PushNull() {
	b.Emit(OpPrimitive, PrimitiveSingleton(SingletonNull))
}

func (b *Builder) PushUndefined() {
	b.Emit(OpPrimitive, PrimitiveSingleton(SingletonUndefined))
}

// Path pushes self followed by a property chain.
func (b *Builder) Path(keys ...string) {
	b.Emit(OpPushSelf)
	for _, k := range keys {
		b.Emit(OpGetProperty, b.Intern(k))
	}
}

func (b *Builder) Text(s string) {
	b.Emit(OpText, b.Intern(s))
}

func (b *Builder) Comment(s string) {
	b.Emit(OpComment, b.Intern(s))
}

func (b *Builder) OpenElement(tag string) {
	b.Emit(OpOpenElement, b.Intern(tag))
}

func (b *Builder) StaticAttr(name, value string) {
	b.Emit(OpStaticAttr, b.Intern(name), b.Intern(value), 0)
}

func (b *Builder) DynamicAttr(name string, trusting bool) {
	var t uint32
	if trusting {
		t = 1
	}
	b.Emit(OpDynamicAttr, b.Intern(name), t, 0)
}

func (b *Builder) FlushElement() {
	b.Emit(OpFlushElement)
}

func (b *Builder) CloseElement() {
	b.Emit(OpCloseElement)
}

func (b *Builder) ToBoolean(s BooleanStrategy) {
	b.Emit(OpToBoolean, b.Function(s))
}

// ReifyArgs emits PushReifiedArgs for values already on the stack.
func (b *Builder) ReifyArgs(positional int, names []string, blocks uint32) {
	b.Emit(OpPushReifiedArgs, positional, b.Names(names...), blocks)
}

// ----- build

func (b *Builder) fail(format string, args ...any) {
	if b.err == nil {
		b.err = fmt.Errorf(format, args...)
	}
}

func (b *Builder) resolve(l Label) uint32 {
	addr, ok := b.labels[l]
	if !ok {
		b.fail("undefined label %q", l)
	}
	return addr
}

// Build resolves labels and validates the program.
func (b *Builder) Build() (*Program, error) {
	for _, f := range b.fixups {
		addr := b.resolve(f.label)
		ins := &b.prog.Code[f.addr]
		switch f.operand {
		case 1:
			ins.Op1 = addr
		case 2:
			ins.Op2 = addr
		case 3:
			ins.Op3 = addr
		}
	}
	for _, f := range b.blocks {
		b.prog.Constants.Blocks[f.index] = Block{Start: b.resolve(f.start), End: b.resolve(f.end)}
	}
	if b.entry != nil {
		b.prog.Entry = Block{Start: b.resolve(b.entry.start), End: b.resolve(b.entry.end)}
	} else {
		b.prog.Entry = Block{Start: 0, End: b.Here()}
	}
	if b.err != nil {
		return nil, fmt.Errorf("build program: %w", b.err)
	}
	if len(b.labels) > 0 {
		b.prog.Labels = make(map[uint32]string, len(b.labels))
		for l, addr := range b.labels {
			if prev, ok := b.prog.Labels[addr]; !ok || string(l) < prev {
				b.prog.Labels[addr] = string(l)
			}
		}
	}
	prog := b.prog
	if err := prog.Validate(); err != nil {
		return nil, fmt.Errorf("build program: %w", err)
	}
	return &prog, nil
}

// MustBuild is Build for programs known to be well formed.
func (b *Builder) MustBuild() *Program {
	p, err := b.Build()
	if err != nil {
		panic(err)
	}
	return p
}
