package wasm

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"
)

func init() {
	register(OptCodeI32Const, i32Const)
	register(OptCodeI64Const, i64Const)
	register(OptCodeF32Const, f32Const)
	register(OptCodeF64Const, f64Const)

	register(OptCodeI32eqz, i32eqz)
	register(OptCodeI32eq, i32eq)
	register(OptCodeI32ne, i32ne)
	register(OptCodeI32lts, i32lts)
	register(OptCodeI32ltu, i32ltu)
	register(OptCodeI32gts, i32gts)
	register(OptCodeI32gtu, i32gtu)
	register(OptCodeI32les, i32les)
	register(OptCodeI32leu, i32leu)
	register(OptCodeI32ges, i32ges)
	register(OptCodeI32geu, i32geu)

	register(OptCodeI64eqz, i64eqz)
	register(OptCodeI64eq, i64eq)
	register(OptCodeI64ne, i64ne)
	register(OptCodeI64lts, i64lts)
	register(OptCodeI64ltu, i64ltu)
	register(OptCodeI64gts, i64gts)
	register(OptCodeI64gtu, i64gtu)
	register(OptCodeI64les, i64les)
	register(OptCodeI64leu, i64leu)
	register(OptCodeI64ges, i64ges)
	register(OptCodeI64geu, i64geu)

	register(OptCodeF32eq, f32eq)
	register(OptCodeF32ne, f32ne)
	register(OptCodeF32lt, f32lt)
	register(OptCodeF32gt, f32gt)
	register(OptCodeF32le, f32le)
	register(OptCodeF32ge, f32ge)

	register(OptCodeF64eq, f64eq)
	register(OptCodeF64ne, f64ne)
	register(OptCodeF64lt, f64lt)
	register(OptCodeF64gt, f64gt)
	register(OptCodeF64le, f64le)
	register(OptCodeF64ge, f64ge)

	register(OptCodeI32clz, i32clz)
	register(OptCodeI32ctz, i32ctz)
	register(OptCodeI32popcnt, i32popcnt)
	register(OptCodeI32add, i32add)
	register(OptCodeI32sub, i32sub)
	register(OptCodeI32mul, i32mul)
	register(OptCodeI32divs, i32divs)
	register(OptCodeI32divu, i32divu)
	register(OptCodeI32rems, i32rems)
	register(OptCodeI32remu, i32remu)
	register(OptCodeI32and, i32and)
	register(OptCodeI32or, i32or)
	register(OptCodeI32xor, i32xor)
	register(OptCodeI32shl, i32shl)
	register(OptCodeI32shrs, i32shrs)
	register(OptCodeI32shru, i32shru)
	register(OptCodeI32rotl, i32rotl)
	register(OptCodeI32rotr, i32rotr)

	register(OptCodeI64clz, i64clz)
	register(OptCodeI64ctz, i64ctz)
	register(OptCodeI64popcnt, i64popcnt)
	register(OptCodeI64add, i64add)
	register(OptCodeI64sub, i64sub)
	register(OptCodeI64mul, i64mul)
	register(OptCodeI64divs, i64divs)
	register(OptCodeI64divu, i64divu)
	register(OptCodeI64rems, i64rems)
	register(OptCodeI64remu, i64remu)
	register(OptCodeI64and, i64and)
	register(OptCodeI64or, i64or)
	register(OptCodeI64xor, i64xor)
	register(OptCodeI64shl, i64shl)
	register(OptCodeI64shrs, i64shrs)
	register(OptCodeI64shru, i64shru)
	register(OptCodeI64rotl, i64rotl)
	register(OptCodeI64rotr, i64rotr)

	register(OptCodeF32abs, f32abs)
	register(OptCodeF32neg, f32neg)
	register(OptCodeF32ceil, f32ceil)
	register(OptCodeF32floor, f32floor)
	register(OptCodeF32trunc, f32trunc)
	register(OptCodeF32nearest, f32nearest)
	register(OptCodeF32sqrt, f32sqrt)
	register(OptCodeF32add, f32add)
	register(OptCodeF32sub, f32sub)
	register(OptCodeF32mul, f32mul)
	register(OptCodeF32div, f32div)
	register(OptCodeF32min, f32min)
	register(OptCodeF32max, f32max)
	register(OptCodeF32copysign, f32copysign)

	register(OptCodeF64abs, f64abs)
	register(OptCodeF64neg, f64neg)
	register(OptCodeF64ceil, f64ceil)
	register(OptCodeF64floor, f64floor)
	register(OptCodeF64trunc, f64trunc)
	register(OptCodeF64nearest, f64nearest)
	register(OptCodeF64sqrt, f64sqrt)
	register(OptCodeF64add, f64add)
	register(OptCodeF64sub, f64sub)
	register(OptCodeF64mul, f64mul)
	register(OptCodeF64div, f64div)
	register(OptCodeF64min, f64min)
	register(OptCodeF64max, f64max)
	register(OptCodeF64copysign, f64copysign)

	register(OptCodeI32wrapI64, i32wrapI64)
	register(OptCodeI32truncf32s, i32truncf32s)
	register(OptCodeI32truncf32u, i32truncf32u)
	register(OptCodeI32truncf64s, i32truncf64s)
	register(OptCodeI32truncf64u, i32truncf64u)

	register(OptCodeI64Extendi32s, i64extendi32s)
	register(OptCodeI64Extendi32u, i64extendi32u)
	register(OptCodeI64TruncF32s, i64truncf32s)
	register(OptCodeI64TruncF32u, i64truncf32u)
	register(OptCodeI64Truncf64s, i64truncf64s)
	register(OptCodeI64Truncf64u, i64truncf64u)

	register(OptCodeF32Converti32s, f32converti32s)
	register(OptCodeF32Converti32u, f32converti32u)
	register(OptCodeF32Converti64s, f32converti64s)
	register(OptCodeF32Converti64u, f32converti64u)
	register(OptCodeF32Demotef64, f32demotef64)

	register(OptCodeF64Converti32s, f64converti32s)
	register(OptCodeF64Converti32u, f64converti32u)
	register(OptCodeF64Converti64s, f64converti64s)
	register(OptCodeF64Converti64u, f64converti64u)
	register(OptCodeF64Promotef32, f64promotef32)

	register(OptCodeI32reinterpretf32, i32reinterpretf32)
	register(OptCodeI64reinterpretf64, i64reinterpretf64)
	register(OptCodeF32reinterpreti32, f32reinterpreti32)
	register(OptCodeF64reinterpreti64, f64reinterpreti64)
}

func (it *Interpreter) pop1() (Value, error) {
	return it.Stack.PopValue()
}

// pop2 returns the two topmost values, v1 being the lower one.
func (it *Interpreter) pop2() (v1, v2 Value, err error) {
	if v2, err = it.Stack.PopValue(); err != nil {
		return
	}
	v1, err = it.Stack.PopValue()
	return
}

// pushStep pushes v and advances past the current single-byte opcode.
func (it *Interpreter) pushStep(v Value) error {
	if err := it.Stack.PushValue(v); err != nil {
		return err
	}
	it.frame.PC++
	return nil
}

func (it *Interpreter) pushBoolStep(b bool) error {
	if b {
		return it.pushStep(NewValueI32(1))
	}
	return it.pushStep(NewValueI32(0))
}

func i32Const(it *Interpreter) error {
	it.frame.PC++
	v, err := it.fetchInt32()
	if err != nil {
		return err
	}
	return it.Stack.PushValue(NewValueI32(uint32(v)))
}

func i64Const(it *Interpreter) error {
	it.frame.PC++
	v, err := it.fetchInt64()
	if err != nil {
		return err
	}
	return it.Stack.PushValue(NewValueI64(uint64(v)))
}

func f32Const(it *Interpreter) error {
	frame := it.frame
	body := frame.Func.Body
	if uint64(len(body)) < frame.PC+5 {
		return fmt.Errorf("f32 constant truncated at 0x%x", frame.PC)
	}
	raw := binary.LittleEndian.Uint32(body[frame.PC+1:])
	frame.PC += 5
	return it.Stack.PushValue(NewValueRaw(ValueTypeF32, uint64(raw)))
}

func f64Const(it *Interpreter) error {
	frame := it.frame
	body := frame.Func.Body
	if uint64(len(body)) < frame.PC+9 {
		return fmt.Errorf("f64 constant truncated at 0x%x", frame.PC)
	}
	raw := binary.LittleEndian.Uint64(body[frame.PC+1:])
	frame.PC += 9
	return it.Stack.PushValue(NewValueRaw(ValueTypeF64, raw))
}

func i32eqz(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	return it.pushBoolStep(v.I32() == 0)
}

func i32eq(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushBoolStep(v1.I32() == v2.I32())
}

func i32ne(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushBoolStep(v1.I32() != v2.I32())
}

func i32lts(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushBoolStep(int32(v1.I32()) < int32(v2.I32()))
}

func i32ltu(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushBoolStep(v1.I32() < v2.I32())
}

func i32gts(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushBoolStep(int32(v1.I32()) > int32(v2.I32()))
}

func i32gtu(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushBoolStep(v1.I32() > v2.I32())
}

func i32les(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushBoolStep(int32(v1.I32()) <= int32(v2.I32()))
}

func i32leu(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushBoolStep(v1.I32() <= v2.I32())
}

func i32ges(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushBoolStep(int32(v1.I32()) >= int32(v2.I32()))
}

func i32geu(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushBoolStep(v1.I32() >= v2.I32())
}

func i64eqz(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	return it.pushBoolStep(v.I64() == 0)
}

func i64eq(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushBoolStep(v1.I64() == v2.I64())
}

func i64ne(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushBoolStep(v1.I64() != v2.I64())
}

func i64lts(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushBoolStep(int64(v1.I64()) < int64(v2.I64()))
}

func i64ltu(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushBoolStep(v1.I64() < v2.I64())
}

func i64gts(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushBoolStep(int64(v1.I64()) > int64(v2.I64()))
}

func i64gtu(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushBoolStep(v1.I64() > v2.I64())
}

func i64les(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushBoolStep(int64(v1.I64()) <= int64(v2.I64()))
}

func i64leu(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushBoolStep(v1.I64() <= v2.I64())
}

func i64ges(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushBoolStep(int64(v1.I64()) >= int64(v2.I64()))
}

func i64geu(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushBoolStep(v1.I64() >= v2.I64())
}

func f32eq(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushBoolStep(v1.F32() == v2.F32())
}

func f32ne(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushBoolStep(v1.F32() != v2.F32())
}

func f32lt(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushBoolStep(v1.F32() < v2.F32())
}

func f32gt(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushBoolStep(v1.F32() > v2.F32())
}

func f32le(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushBoolStep(v1.F32() <= v2.F32())
}

func f32ge(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushBoolStep(v1.F32() >= v2.F32())
}

func f64eq(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushBoolStep(v1.F64() == v2.F64())
}

func f64ne(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushBoolStep(v1.F64() != v2.F64())
}

func f64lt(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushBoolStep(v1.F64() < v2.F64())
}

func f64gt(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushBoolStep(v1.F64() > v2.F64())
}

func f64le(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushBoolStep(v1.F64() <= v2.F64())
}

func f64ge(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushBoolStep(v1.F64() >= v2.F64())
}

func i32clz(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueI32(uint32(bits.LeadingZeros32(v.I32()))))
}

func i32ctz(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueI32(uint32(bits.TrailingZeros32(v.I32()))))
}

func i32popcnt(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueI32(uint32(bits.OnesCount32(v.I32()))))
}

func i32add(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueI32(v1.I32() + v2.I32()))
}

func i32sub(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueI32(v1.I32() - v2.I32()))
}

func i32mul(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueI32(v1.I32() * v2.I32()))
}

func i32divs(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	n, d := int32(v1.I32()), int32(v2.I32())
	if d == 0 {
		return ErrDivideByZero
	}
	if n == math.MinInt32 && d == -1 {
		return ErrIntegerOverflow
	}
	return it.pushStep(NewValueI32(uint32(n / d)))
}

func i32divu(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	if v2.I32() == 0 {
		return ErrDivideByZero
	}
	return it.pushStep(NewValueI32(v1.I32() / v2.I32()))
}

func i32rems(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	n, d := int32(v1.I32()), int32(v2.I32())
	if d == 0 {
		return ErrDivideByZero
	}
	if n == math.MinInt32 && d == -1 {
		// The quotient overflows but the remainder is defined as zero.
		return it.pushStep(NewValueI32(0))
	}
	return it.pushStep(NewValueI32(uint32(n % d)))
}

func i32remu(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	if v2.I32() == 0 {
		return ErrDivideByZero
	}
	return it.pushStep(NewValueI32(v1.I32() % v2.I32()))
}

func i32and(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueI32(v1.I32() & v2.I32()))
}

func i32or(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueI32(v1.I32() | v2.I32()))
}

func i32xor(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueI32(v1.I32() ^ v2.I32()))
}

func i32shl(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueI32(v1.I32() << (v2.I32() % 32)))
}

func i32shrs(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueI32(uint32(int32(v1.I32()) >> (v2.I32() % 32))))
}

func i32shru(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueI32(v1.I32() >> (v2.I32() % 32)))
}

func i32rotl(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueI32(bits.RotateLeft32(v1.I32(), int(v2.I32()))))
}

func i32rotr(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueI32(bits.RotateLeft32(v1.I32(), -int(v2.I32()))))
}

func i64clz(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueI64(uint64(bits.LeadingZeros64(v.I64()))))
}

func i64ctz(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueI64(uint64(bits.TrailingZeros64(v.I64()))))
}

func i64popcnt(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueI64(uint64(bits.OnesCount64(v.I64()))))
}

func i64add(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueI64(v1.I64() + v2.I64()))
}

func i64sub(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueI64(v1.I64() - v2.I64()))
}

func i64mul(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueI64(v1.I64() * v2.I64()))
}

func i64divs(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	n, d := int64(v1.I64()), int64(v2.I64())
	if d == 0 {
		return ErrDivideByZero
	}
	if n == math.MinInt64 && d == -1 {
		return ErrIntegerOverflow
	}
	return it.pushStep(NewValueI64(uint64(n / d)))
}

func i64divu(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	if v2.I64() == 0 {
		return ErrDivideByZero
	}
	return it.pushStep(NewValueI64(v1.I64() / v2.I64()))
}

func i64rems(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	n, d := int64(v1.I64()), int64(v2.I64())
	if d == 0 {
		return ErrDivideByZero
	}
	if n == math.MinInt64 && d == -1 {
		return it.pushStep(NewValueI64(0))
	}
	return it.pushStep(NewValueI64(uint64(n % d)))
}

func i64remu(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	if v2.I64() == 0 {
		return ErrDivideByZero
	}
	return it.pushStep(NewValueI64(v1.I64() % v2.I64()))
}

func i64and(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueI64(v1.I64() & v2.I64()))
}

func i64or(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueI64(v1.I64() | v2.I64()))
}

func i64xor(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueI64(v1.I64() ^ v2.I64()))
}

func i64shl(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueI64(v1.I64() << (v2.I64() % 64)))
}

func i64shrs(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueI64(uint64(int64(v1.I64()) >> (v2.I64() % 64))))
}

func i64shru(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueI64(v1.I64() >> (v2.I64() % 64)))
}

func i64rotl(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueI64(bits.RotateLeft64(v1.I64(), int(v2.I64()))))
}

func i64rotr(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueI64(bits.RotateLeft64(v1.I64(), -int(v2.I64()))))
}

func f32abs(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueRaw(ValueTypeF32, v.Raw()&0x7fffffff))
}

func f32neg(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueRaw(ValueTypeF32, v.Raw()^0x80000000))
}

func f32ceil(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueF32(float32(math.Ceil(float64(v.F32())))))
}

func f32floor(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueF32(float32(math.Floor(float64(v.F32())))))
}

func f32trunc(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueF32(float32(math.Trunc(float64(v.F32())))))
}

func f32nearest(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueF32(float32(math.RoundToEven(float64(v.F32())))))
}

func f32sqrt(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueF32(float32(math.Sqrt(float64(v.F32())))))
}

func f32add(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueF32(v1.F32() + v2.F32()))
}

func f32sub(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueF32(v1.F32() - v2.F32()))
}

func f32mul(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueF32(v1.F32() * v2.F32()))
}

func f32div(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueF32(v1.F32() / v2.F32()))
}

func f32min(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueF32(float32(math.Min(float64(v1.F32()), float64(v2.F32())))))
}

func f32max(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueF32(float32(math.Max(float64(v1.F32()), float64(v2.F32())))))
}

func f32copysign(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueF32(float32(math.Copysign(float64(v1.F32()), float64(v2.F32())))))
}

func f64abs(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueF64(math.Abs(v.F64())))
}

func f64neg(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueRaw(ValueTypeF64, v.Raw()^(1<<63)))
}

func f64ceil(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueF64(math.Ceil(v.F64())))
}

func f64floor(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueF64(math.Floor(v.F64())))
}

func f64trunc(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueF64(math.Trunc(v.F64())))
}

func f64nearest(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueF64(math.RoundToEven(v.F64())))
}

func f64sqrt(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueF64(math.Sqrt(v.F64())))
}

func f64add(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueF64(v1.F64() + v2.F64()))
}

func f64sub(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueF64(v1.F64() - v2.F64()))
}

func f64mul(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueF64(v1.F64() * v2.F64()))
}

func f64div(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueF64(v1.F64() / v2.F64()))
}

func f64min(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueF64(math.Min(v1.F64(), v2.F64())))
}

func f64max(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueF64(math.Max(v1.F64(), v2.F64())))
}

func f64copysign(it *Interpreter) error {
	v1, v2, err := it.pop2()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueF64(math.Copysign(v1.F64(), v2.F64())))
}

func i32wrapI64(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueI32(uint32(v.I64())))
}

// truncToI32s converts a float to a signed 32-bit integer with the wasm trap
// semantics.
func truncToI32s(f float64) (uint32, error) {
	if math.IsNaN(f) {
		return 0, ErrInvalidConversionToInteger
	}
	t := math.Trunc(f)
	if t >= 2147483648 || t < -2147483648 {
		return 0, ErrIntegerOverflow
	}
	return uint32(int32(t)), nil
}

func truncToI32u(f float64) (uint32, error) {
	if math.IsNaN(f) {
		return 0, ErrInvalidConversionToInteger
	}
	t := math.Trunc(f)
	if t >= 4294967296 || t <= -1 {
		return 0, ErrIntegerOverflow
	}
	return uint32(t), nil
}

func truncToI64s(f float64) (uint64, error) {
	if math.IsNaN(f) {
		return 0, ErrInvalidConversionToInteger
	}
	t := math.Trunc(f)
	if t >= 9223372036854775808.0 || t < -9223372036854775808.0 {
		return 0, ErrIntegerOverflow
	}
	return uint64(int64(t)), nil
}

func truncToI64u(f float64) (uint64, error) {
	if math.IsNaN(f) {
		return 0, ErrInvalidConversionToInteger
	}
	t := math.Trunc(f)
	if t >= 18446744073709551616.0 || t <= -1 {
		return 0, ErrIntegerOverflow
	}
	return uint64(t), nil
}

func i32truncf32s(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	r, err := truncToI32s(float64(v.F32()))
	if err != nil {
		return err
	}
	return it.pushStep(NewValueI32(r))
}

func i32truncf32u(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	r, err := truncToI32u(float64(v.F32()))
	if err != nil {
		return err
	}
	return it.pushStep(NewValueI32(r))
}

func i32truncf64s(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	r, err := truncToI32s(v.F64())
	if err != nil {
		return err
	}
	return it.pushStep(NewValueI32(r))
}

func i32truncf64u(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	r, err := truncToI32u(v.F64())
	if err != nil {
		return err
	}
	return it.pushStep(NewValueI32(r))
}

func i64extendi32s(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueI64(uint64(int64(int32(v.I32())))))
}

func i64extendi32u(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueI64(uint64(v.I32())))
}

func i64truncf32s(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	r, err := truncToI64s(float64(v.F32()))
	if err != nil {
		return err
	}
	return it.pushStep(NewValueI64(r))
}

func i64truncf32u(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	r, err := truncToI64u(float64(v.F32()))
	if err != nil {
		return err
	}
	return it.pushStep(NewValueI64(r))
}

func i64truncf64s(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	r, err := truncToI64s(v.F64())
	if err != nil {
		return err
	}
	return it.pushStep(NewValueI64(r))
}

func i64truncf64u(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	r, err := truncToI64u(v.F64())
	if err != nil {
		return err
	}
	return it.pushStep(NewValueI64(r))
}

func f32converti32s(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueF32(float32(int32(v.I32()))))
}

func f32converti32u(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueF32(float32(v.I32())))
}

func f32converti64s(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueF32(float32(int64(v.I64()))))
}

func f32converti64u(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueF32(float32(v.I64())))
}

func f32demotef64(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueF32(float32(v.F64())))
}

func f64converti32s(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueF64(float64(int32(v.I32()))))
}

func f64converti32u(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueF64(float64(v.I32())))
}

func f64converti64s(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueF64(float64(int64(v.I64()))))
}

func f64converti64u(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueF64(float64(v.I64())))
}

func f64promotef32(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueF64(float64(v.F32())))
}

func i32reinterpretf32(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueI32(uint32(v.Raw())))
}

func i64reinterpretf64(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueI64(v.Raw()))
}

func f32reinterpreti32(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueRaw(ValueTypeF32, v.Raw()))
}

func f64reinterpreti64(it *Interpreter) error {
	v, err := it.pop1()
	if err != nil {
		return err
	}
	return it.pushStep(NewValueRaw(ValueTypeF64, v.Raw()))
}
