package vm

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of the program.
func (p *Program) Disassemble() string {
	return p.DisassembleWithName("")
}

// DisassembleWithName returns a listing with a name header.
func (p *Program) DisassembleWithName(name string) string {
	var sb strings.Builder

	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; facet program v%d\n", p.Version))
	sb.WriteString(fmt.Sprintf("; Entry: [%04d, %04d)\n", p.Entry.Start, p.Entry.End))

	if len(p.Symbols.Names) > 0 {
		sb.WriteString(fmt.Sprintf("; Symbols (%d): %s\n", len(p.Symbols.Names), strings.Join(p.Symbols.Names, ", ")))
	}
	sb.WriteString("\n")

	c := &p.Constants
	if len(c.Strings) > 0 {
		sb.WriteString("; Strings:\n")
		for i, s := range c.Strings {
			display := s
			if len(display) > 40 {
				display = display[:37] + "..."
			}
			sb.WriteString(fmt.Sprintf(";   [%3d] %q\n", i, display))
		}
	}
	if len(c.Numbers) > 0 {
		sb.WriteString("; Numbers:\n")
		for i, n := range c.Numbers {
			sb.WriteString(fmt.Sprintf(";   [%3d] %g\n", i, n))
		}
	}
	if len(c.Arrays) > 0 {
		sb.WriteString("; Arrays:\n")
		for i, a := range c.Arrays {
			sb.WriteString(fmt.Sprintf(";   [%3d] %v\n", i, a))
		}
	}
	if len(c.Blocks) > 0 {
		sb.WriteString("; Blocks:\n")
		for i, b := range c.Blocks {
			sb.WriteString(fmt.Sprintf(";   [%3d] [%04d, %04d)\n", i, b.Start, b.End))
		}
	}
	if len(c.Functions) > 0 {
		sb.WriteString("; Functions:\n")
		for i, f := range c.Functions {
			sb.WriteString(fmt.Sprintf(";   [%3d] %s\n", i, f))
		}
	}
	if len(c.Others) > 0 {
		sb.WriteString("; Others:\n")
		for i, o := range c.Others {
			sb.WriteString(fmt.Sprintf(";   [%3d] %v\n", i, o))
		}
	}
	sb.WriteString("\n")

	sb.WriteString("; Code:\n")
	for addr, ins := range p.Code {
		if l, ok := p.Labels[uint32(addr)]; ok {
			sb.WriteString(l + ":\n")
		}
		sb.WriteString(fmt.Sprintf("%04d  %s\n", addr, p.DisassembleInstruction(ins)))
	}
	if l, ok := p.Labels[uint32(len(p.Code))]; ok {
		sb.WriteString(l + ":\n")
	}
	return sb.String()
}

// DisassembleInstruction formats a single instruction.
func (p *Program) DisassembleInstruction(ins Instruction) string {
	info, ok := GetOpcodeInfo(ins.Op)
	if !ok {
		return fmt.Sprintf("UNKNOWN(0x%02X)", byte(ins.Op))
	}
	if info.Operands == 0 {
		return info.Name
	}

	var args []string
	c := &p.Constants
	str := func(i uint32) string {
		if int(i) < len(c.Strings) {
			return fmt.Sprintf("%q", c.Strings[i])
		}
		return fmt.Sprintf("str#%d", i)
	}
	names := func(i uint32) string {
		if int(i) >= len(c.Arrays) {
			return fmt.Sprintf("arr#%d", i)
		}
		parts := make([]string, len(c.Arrays[i]))
		for j, s := range c.Arrays[i] {
			parts[j] = str(s)
		}
		return "[" + strings.Join(parts, " ") + "]"
	}
	slot := func(i uint32) string {
		if i == NoSymbol {
			return "-"
		}
		if int(i) < len(p.Symbols.Names) {
			return fmt.Sprintf("%d(%s)", i, p.Symbols.Names[i])
		}
		return fmt.Sprintf("%d", i)
	}

	switch ins.Op {
	case OpPrimitive:
		args = append(args, describePrimitive(ins.Op1, c))
	case OpConstant:
		args = append(args, ConstantKind(ins.Op1).String(), fmt.Sprintf("%d", ins.Op2))
	case OpText, OpComment, OpOpenElement, OpGetProperty, OpGetDynamic, OpHelper, OpPutIterator:
		args = append(args, str(ins.Op1))
	case OpStaticAttr:
		args = append(args, str(ins.Op1), str(ins.Op2))
		if ins.Op3 > 0 {
			args = append(args, "ns="+str(ins.Op3-1))
		}
	case OpDynamicAttr:
		args = append(args, str(ins.Op1))
		if ins.Op2 != 0 {
			args = append(args, "trusting")
		}
		if ins.Op3 > 0 {
			args = append(args, "ns="+str(ins.Op3-1))
		}
	case OpPushReifiedArgs:
		args = append(args, fmt.Sprintf("%d", ins.Op1), names(ins.Op2), fmt.Sprintf("blocks=%02b", ins.Op3))
	case OpBindNamedArgs:
		args = append(args, names(ins.Op1), fmt.Sprintf("%v", c.ArraysOrNil(ins.Op2)))
	case OpBindDynamicScope:
		args = append(args, names(ins.Op1))
	case OpBindPositionalArgs:
		args = append(args, fmt.Sprintf("%v", c.ArraysOrNil(ins.Op1)))
	case OpBindBlocks:
		args = append(args, slot(ins.Op1), slot(ins.Op2))
	case OpGetSymbol, OpBindPartialArgs, OpYield:
		args = append(args, slot(ins.Op1))
	case OpToBoolean:
		if int(ins.Op1) < len(c.Functions) {
			args = append(args, c.Functions[ins.Op1].String())
		} else {
			args = append(args, fmt.Sprintf("fn#%d", ins.Op1))
		}
	default:
		for i := 1; i <= info.Operands; i++ {
			v := ins.Operand(i)
			if info.IsTarget(i) {
				args = append(args, p.target(v))
			} else {
				args = append(args, fmt.Sprintf("%d", v))
			}
		}
	}
	return fmt.Sprintf("%-22s %s", info.Name, strings.Join(args, " "))
}

func (p *Program) target(addr uint32) string {
	if l, ok := p.Labels[addr]; ok {
		return fmt.Sprintf("%04d(%s)", addr, l)
	}
	return fmt.Sprintf("%04d", addr)
}

// ArraysOrNil returns array i, or nil when it does not exist.
func (c *ConstantPool) ArraysOrNil(i uint32) []uint32 {
	if int(i) < len(c.Arrays) {
		return c.Arrays[i]
	}
	return nil
}
