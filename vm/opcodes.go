package vm

import "fmt"

// Opcode identifies an append-time instruction.
// Opcodes are organized into ranges by category.
type Opcode uint8

const (
	OpInvalid Opcode = 0x00

	// ========================================================================
	// Stack (0x01-0x0F)
	// ========================================================================

	OpPop       Opcode = 0x01 // Pop values: OpPop <count>
	OpPrimitive Opcode = 0x02 // Push tagged immediate: OpPrimitive <primitive>
	OpConstant  Opcode = 0x03 // Push pool entry: OpConstant <kind> <index>
	OpDup       Opcode = 0x04 // Duplicate top of stack

	// ========================================================================
	// Scopes and locals (0x10-0x1F)
	// ========================================================================

	OpPushChildScope   Opcode = 0x10 // Push a copy of the current scope
	OpPushRootScope    Opcode = 0x11 // Pop self, push a fresh scope around it
	OpPopScope         Opcode = 0x12
	OpPushDynamicScope Opcode = 0x13
	OpPopDynamicScope  Opcode = 0x14
	OpGetLocal         Opcode = 0x15 // Push local: OpGetLocal <index>
	OpSetLocal         Opcode = 0x16 // Pop into local: OpSetLocal <index>
	OpReserveLocals    Opcode = 0x17 // Open a locals window: OpReserveLocals <count>
	OpReleaseLocals    Opcode = 0x18

	// ========================================================================
	// Arguments and binding (0x20-0x2F)
	// ========================================================================

	OpPushReifiedArgs    Opcode = 0x20 // OpPushReifiedArgs <positional> <names:array> <blockFlags>
	OpBindPositionalArgs Opcode = 0x21 // OpBindPositionalArgs <slots:array>
	OpBindNamedArgs      Opcode = 0x22 // OpBindNamedArgs <names:array> <slots:array>
	OpBindBlocks         Opcode = 0x23 // OpBindBlocks <defaultSlot> <inverseSlot>
	OpBindPartialArgs    Opcode = 0x24 // OpBindPartialArgs <slot>
	OpBindCallerScope    Opcode = 0x25
	OpBindDynamicScope   Opcode = 0x26 // OpBindDynamicScope <names:array>

	// ========================================================================
	// Control (0x30-0x3F)
	// ========================================================================

	OpEnter             Opcode = 0x30 // Open a range: OpEnter <exit>
	OpExit              Opcode = 0x31
	OpEvaluate          Opcode = 0x32 // Pop args, invoke block: OpEvaluate <block>
	OpYield             Opcode = 0x33 // Pop args, invoke bound block: OpYield <slot>
	OpJump              Opcode = 0x34 // OpJump <target>
	OpJumpIf            Opcode = 0x35 // OpJumpIf <target>
	OpJumpUnless        Opcode = 0x36 // OpJumpUnless <target>
	OpToBoolean         Opcode = 0x37 // OpToBoolean <function>
	OpJumpIfNotModified Opcode = 0x38 // Pop guard reference, open a skippable region
	OpDidModify         Opcode = 0x39 // Close the innermost skippable region

	// ========================================================================
	// Expressions (0x40-0x4F)
	// ========================================================================

	OpPushSelf    Opcode = 0x40
	OpGetSymbol   Opcode = 0x41 // OpGetSymbol <slot>
	OpGetProperty Opcode = 0x42 // OpGetProperty <key:string>
	OpGetDynamic  Opcode = 0x43 // OpGetDynamic <name:string>
	OpHelper      Opcode = 0x44 // Pop args, push helper result: OpHelper <name:string>
	OpConcat      Opcode = 0x45 // OpConcat <count>

	// ========================================================================
	// DOM (0x50-0x5F)
	// ========================================================================

	OpText         Opcode = 0x50 // OpText <text:string>
	OpComment      Opcode = 0x51 // OpComment <text:string>
	OpOpenElement  Opcode = 0x52 // OpOpenElement <tag:string>
	OpStaticAttr   Opcode = 0x53 // OpStaticAttr <name:string> <value:string> <namespace:string+1>
	OpDynamicAttr  Opcode = 0x54 // OpDynamicAttr <name:string> <trusting> <namespace:string+1>
	OpFlushElement Opcode = 0x55
	OpCloseElement Opcode = 0x56
	OpAppendText   Opcode = 0x57 // Pop reference, append its text

	// ========================================================================
	// Lists (0x60-0x6F)
	// ========================================================================

	OpPutIterator Opcode = 0x60 // OpPutIterator <key:string>
	OpEnterList   Opcode = 0x61 // OpEnterList <bodyStart> <bodyEnd>
	OpExitList    Opcode = 0x62
	OpIterate     Opcode = 0x63 // OpIterate <break>

	opcodeLimit = 0x70
)

// NoSymbol marks an unused slot operand.
const NoSymbol = ^uint32(0)

// OpcodeInfo provides metadata about each opcode for disassembly and
// validation.
type OpcodeInfo struct {
	Name     string
	Operands int   // Number of meaningful immediates
	Targets  uint8 // Bit i set when operand i+1 is a code address
}

var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpPop:       {"POP", 1, 0},
	OpPrimitive: {"PRIMITIVE", 1, 0},
	OpConstant:  {"CONSTANT", 2, 0},
	OpDup:       {"DUP", 0, 0},

	OpPushChildScope:   {"PUSH_CHILD_SCOPE", 0, 0},
	OpPushRootScope:    {"PUSH_ROOT_SCOPE", 0, 0},
	OpPopScope:         {"POP_SCOPE", 0, 0},
	OpPushDynamicScope: {"PUSH_DYNAMIC_SCOPE", 0, 0},
	OpPopDynamicScope:  {"POP_DYNAMIC_SCOPE", 0, 0},
	OpGetLocal:         {"GET_LOCAL", 1, 0},
	OpSetLocal:         {"SET_LOCAL", 1, 0},
	OpReserveLocals:    {"RESERVE_LOCALS", 1, 0},
	OpReleaseLocals:    {"RELEASE_LOCALS", 0, 0},

	OpPushReifiedArgs:    {"PUSH_REIFIED_ARGS", 3, 0},
	OpBindPositionalArgs: {"BIND_POSITIONAL_ARGS", 1, 0},
	OpBindNamedArgs:      {"BIND_NAMED_ARGS", 2, 0},
	OpBindBlocks:         {"BIND_BLOCKS", 2, 0},
	OpBindPartialArgs:    {"BIND_PARTIAL_ARGS", 1, 0},
	OpBindCallerScope:    {"BIND_CALLER_SCOPE", 0, 0},
	OpBindDynamicScope:   {"BIND_DYNAMIC_SCOPE", 1, 0},

	OpEnter:             {"ENTER", 1, 1},
	OpExit:              {"EXIT", 0, 0},
	OpEvaluate:          {"EVALUATE", 1, 0},
	OpYield:             {"YIELD", 1, 0},
	OpJump:              {"JUMP", 1, 1},
	OpJumpIf:            {"JUMP_IF", 1, 1},
	OpJumpUnless:        {"JUMP_UNLESS", 1, 1},
	OpToBoolean:         {"TO_BOOLEAN", 1, 0},
	OpJumpIfNotModified: {"JUMP_IF_NOT_MODIFIED", 0, 0},
	OpDidModify:         {"DID_MODIFY", 0, 0},

	OpPushSelf:    {"PUSH_SELF", 0, 0},
	OpGetSymbol:   {"GET_SYMBOL", 1, 0},
	OpGetProperty: {"GET_PROPERTY", 1, 0},
	OpGetDynamic:  {"GET_DYNAMIC", 1, 0},
	OpHelper:      {"HELPER", 1, 0},
	OpConcat:      {"CONCAT", 1, 0},

	OpText:         {"TEXT", 1, 0},
	OpComment:      {"COMMENT", 1, 0},
	OpOpenElement:  {"OPEN_ELEMENT", 1, 0},
	OpStaticAttr:   {"STATIC_ATTR", 3, 0},
	OpDynamicAttr:  {"DYNAMIC_ATTR", 3, 0},
	OpFlushElement: {"FLUSH_ELEMENT", 0, 0},
	OpCloseElement: {"CLOSE_ELEMENT", 0, 0},
	OpAppendText:   {"APPEND_TEXT", 0, 0},

	OpPutIterator: {"PUT_ITERATOR", 1, 0},
	OpEnterList:   {"ENTER_LIST", 2, 3},
	OpExitList:    {"EXIT_LIST", 0, 0},
	OpIterate:     {"ITERATE", 1, 1},
}

// IsTarget reports whether the i-th operand (1-based) is a code address.
func (info OpcodeInfo) IsTarget(i int) bool {
	return info.Targets&(1<<(i-1)) != 0
}

// GetOpcodeInfo returns metadata for an opcode.
func GetOpcodeInfo(op Opcode) (OpcodeInfo, bool) {
	info, ok := opcodeInfoTable[op]
	return info, ok
}

// String returns the opcode name.
func (op Opcode) String() string {
	if info, ok := opcodeInfoTable[op]; ok {
		return info.Name
	}
	return fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))
}

// Instruction is one opcode with up to three immediates.
type Instruction struct {
	Op  Opcode `cbor:"1,keyasint"`
	Op1 uint32 `cbor:"2,keyasint,omitempty"`
	Op2 uint32 `cbor:"3,keyasint,omitempty"`
	Op3 uint32 `cbor:"4,keyasint,omitempty"`
}

// Operand returns the i-th immediate (1-based).
func (ins Instruction) Operand(i int) uint32 {
	switch i {
	case 1:
		return ins.Op1
	case 2:
		return ins.Op2
	case 3:
		return ins.Op3
	}
	return 0
}
