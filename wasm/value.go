package wasm

import (
	"fmt"
	"math"
)

type ValueType byte

const (
	ValueTypeI32 ValueType = 0x7f
	ValueTypeI64 ValueType = 0x7e
	ValueTypeF32 ValueType = 0x7d
	ValueTypeF64 ValueType = 0x7c
)

func (vt ValueType) String() string {
	switch vt {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	}
	return fmt.Sprintf("unknown(0x%x)", byte(vt))
}

func (vt ValueType) valid() bool {
	switch vt {
	case ValueTypeI32, ValueTypeI64, ValueTypeF32, ValueTypeF64:
		return true
	}
	return false
}

// Value is a single runtime value. The raw field holds the bit pattern:
// floats are stored via math.Float*bits so NaN payloads survive round trips;
// 32-bit types occupy the low word.
type Value struct {
	Type ValueType
	raw  uint64
}

func NewValueI32(v uint32) Value {
	return Value{Type: ValueTypeI32, raw: uint64(v)}
}

func NewValueI64(v uint64) Value {
	return Value{Type: ValueTypeI64, raw: v}
}

func NewValueF32(v float32) Value {
	return Value{Type: ValueTypeF32, raw: uint64(math.Float32bits(v))}
}

func NewValueF64(v float64) Value {
	return Value{Type: ValueTypeF64, raw: math.Float64bits(v)}
}

// NewValueRaw builds a Value of type vt from a raw bit pattern. Used by float
// loads and constants, the sign-bit float operations and the reinterpret
// instructions, where values arrive as untyped words.
func NewValueRaw(vt ValueType, raw uint64) Value {
	if vt == ValueTypeI32 || vt == ValueTypeF32 {
		raw = uint64(uint32(raw))
	}
	return Value{Type: vt, raw: raw}
}

func (v Value) I32() uint32 { return uint32(v.raw) }

func (v Value) I64() uint64 { return v.raw }

func (v Value) F32() float32 { return math.Float32frombits(uint32(v.raw)) }

func (v Value) F64() float64 { return math.Float64frombits(v.raw) }

// Raw returns the value's bit pattern, zero-extended to 64 bits.
func (v Value) Raw() uint64 { return v.raw }

func (v Value) String() string {
	switch v.Type {
	case ValueTypeI32:
		return fmt.Sprintf("i32:%d", v.I32())
	case ValueTypeI64:
		return fmt.Sprintf("i64:%d", v.I64())
	case ValueTypeF32:
		return fmt.Sprintf("f32:%f", v.F32())
	case ValueTypeF64:
		return fmt.Sprintf("f64:%f", v.F64())
	}
	return fmt.Sprintf("invalid:%#x", v.raw)
}

// TableElem is one table slot: uninitialized, or the store address of a
// function instance.
type TableElem struct {
	Initialized  bool
	FunctionAddr uint32
}
