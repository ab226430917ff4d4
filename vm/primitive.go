package vm

import (
	"fmt"

	"github.com/chazu/facet/reference"
)

// Primitive immediates carry their kind in the two high bits.
const (
	primitiveNumber    = 0
	primitiveString    = 1
	primitiveSingleton = 2

	primitiveShift = 30
	primitiveMask  = 1<<primitiveShift - 1
)

// Singleton payloads of a primitive immediate.
const (
	SingletonFalse uint32 = iota
	SingletonTrue
	SingletonNull
	SingletonUndefined
)

// PrimitiveNumber encodes a non-negative integer immediate.
func PrimitiveNumber(n uint32) uint32 {
	if n > primitiveMask {
		panic(fmt.Sprintf("vm: primitive number %d does not fit in 30 bits", n))
	}
	return primitiveNumber<<primitiveShift | n
}

// PrimitiveString encodes a string-constant index.
func PrimitiveString(index uint32) uint32 {
	return primitiveString<<primitiveShift | index&primitiveMask
}

// PrimitiveSingleton encodes one of the Singleton* values.
func PrimitiveSingleton(s uint32) uint32 {
	return primitiveSingleton<<primitiveShift | s
}

// decodePrimitive turns an immediate into a constant reference. Numbers
// become int, null becomes nil, undefined becomes reference.Undefined.
func decodePrimitive(p uint32, pool *ConstantPool) reference.PathReference {
	value := p & primitiveMask
	switch p >> primitiveShift {
	case primitiveNumber:
		return reference.Const(int(value))
	case primitiveString:
		return reference.Const(pool.StringAt(value))
	case primitiveSingleton:
		switch value {
		case SingletonFalse:
			return reference.False
		case SingletonTrue:
			return reference.True
		case SingletonNull:
			return reference.Null
		case SingletonUndefined:
			return reference.UndefinedRef
		}
	}
	opViolation(OpPrimitive, "malformed primitive 0x%08X", p)
	return nil
}

func describePrimitive(p uint32, pool *ConstantPool) string {
	value := p & primitiveMask
	switch p >> primitiveShift {
	case primitiveNumber:
		return fmt.Sprintf("%d", value)
	case primitiveString:
		if int(value) < len(pool.Strings) {
			return fmt.Sprintf("%q", pool.Strings[value])
		}
		return fmt.Sprintf("str#%d", value)
	case primitiveSingleton:
		switch value {
		case SingletonFalse:
			return "false"
		case SingletonTrue:
			return "true"
		case SingletonNull:
			return "null"
		case SingletonUndefined:
			return "undefined"
		}
	}
	return fmt.Sprintf("0x%08X", p)
}
