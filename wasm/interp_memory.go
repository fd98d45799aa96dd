package wasm

func init() {
	register(OptCodeI32Load, i32Load)
	register(OptCodeI64Load, i64Load)
	register(OptCodeF32Load, f32Load)
	register(OptCodeF64Load, f64Load)
	register(OptCodeI32Load8s, i32Load8s)
	register(OptCodeI32Load8u, i32Load8u)
	register(OptCodeI32Load16s, i32Load16s)
	register(OptCodeI32Load16u, i32Load16u)
	register(OptCodeI64Load8s, i64Load8s)
	register(OptCodeI64Load8u, i64Load8u)
	register(OptCodeI64Load16s, i64Load16s)
	register(OptCodeI64Load16u, i64Load16u)
	register(OptCodeI64Load32s, i64Load32s)
	register(OptCodeI64Load32u, i64Load32u)
	register(OptCodeI32Store, i32Store)
	register(OptCodeI64Store, i64Store)
	register(OptCodeF32Store, f32Store)
	register(OptCodeF64Store, f64Store)
	register(OptCodeI32Store8, i32Store8)
	register(OptCodeI32Store16, i32Store16)
	register(OptCodeI64Store8, i64Store8)
	register(OptCodeI64Store16, i64Store16)
	register(OptCodeI64Store32, i64Store32)
	register(OptCodeMemorySize, memorySize)
	register(OptCodeMemoryGrow, memoryGrow)
}

// loadBase consumes the memarg immediates and the base operand, returning
// the memory and the 33-bit effective address.
func (it *Interpreter) loadBase() (*MemoryInstance, uint64, error) {
	offset, err := it.fetchMemArg()
	if err != nil {
		return nil, 0, err
	}
	base, err := it.Stack.PopValue()
	if err != nil {
		return nil, 0, err
	}
	mem, err := it.currentMemory()
	if err != nil {
		return nil, 0, err
	}
	return mem, uint64(base.I32()) + uint64(offset), nil
}

// storeBase is loadBase for store instructions: the value operand sits above
// the base address.
func (it *Interpreter) storeBase() (*MemoryInstance, uint64, Value, error) {
	offset, err := it.fetchMemArg()
	if err != nil {
		return nil, 0, Value{}, err
	}
	v, err := it.Stack.PopValue()
	if err != nil {
		return nil, 0, Value{}, err
	}
	base, err := it.Stack.PopValue()
	if err != nil {
		return nil, 0, Value{}, err
	}
	mem, err := it.currentMemory()
	if err != nil {
		return nil, 0, Value{}, err
	}
	return mem, uint64(base.I32()) + uint64(offset), v, nil
}

func i32Load(it *Interpreter) error {
	mem, addr, err := it.loadBase()
	if err != nil {
		return err
	}
	v, err := mem.ReadUint32(addr)
	if err != nil {
		return err
	}
	return it.Stack.PushValue(NewValueI32(v))
}

func i64Load(it *Interpreter) error {
	mem, addr, err := it.loadBase()
	if err != nil {
		return err
	}
	v, err := mem.ReadUint64(addr)
	if err != nil {
		return err
	}
	return it.Stack.PushValue(NewValueI64(v))
}

func f32Load(it *Interpreter) error {
	mem, addr, err := it.loadBase()
	if err != nil {
		return err
	}
	v, err := mem.ReadUint32(addr)
	if err != nil {
		return err
	}
	return it.Stack.PushValue(NewValueRaw(ValueTypeF32, uint64(v)))
}

func f64Load(it *Interpreter) error {
	mem, addr, err := it.loadBase()
	if err != nil {
		return err
	}
	v, err := mem.ReadUint64(addr)
	if err != nil {
		return err
	}
	return it.Stack.PushValue(NewValueRaw(ValueTypeF64, v))
}

func i32Load8s(it *Interpreter) error {
	mem, addr, err := it.loadBase()
	if err != nil {
		return err
	}
	v, err := mem.ReadByte(addr)
	if err != nil {
		return err
	}
	return it.Stack.PushValue(NewValueI32(uint32(int32(int8(v)))))
}

func i32Load8u(it *Interpreter) error {
	mem, addr, err := it.loadBase()
	if err != nil {
		return err
	}
	v, err := mem.ReadByte(addr)
	if err != nil {
		return err
	}
	return it.Stack.PushValue(NewValueI32(uint32(v)))
}

func i32Load16s(it *Interpreter) error {
	mem, addr, err := it.loadBase()
	if err != nil {
		return err
	}
	v, err := mem.ReadUint16(addr)
	if err != nil {
		return err
	}
	return it.Stack.PushValue(NewValueI32(uint32(int32(int16(v)))))
}

func i32Load16u(it *Interpreter) error {
	mem, addr, err := it.loadBase()
	if err != nil {
		return err
	}
	v, err := mem.ReadUint16(addr)
	if err != nil {
		return err
	}
	return it.Stack.PushValue(NewValueI32(uint32(v)))
}

func i64Load8s(it *Interpreter) error {
	mem, addr, err := it.loadBase()
	if err != nil {
		return err
	}
	v, err := mem.ReadByte(addr)
	if err != nil {
		return err
	}
	return it.Stack.PushValue(NewValueI64(uint64(int64(int8(v)))))
}

func i64Load8u(it *Interpreter) error {
	mem, addr, err := it.loadBase()
	if err != nil {
		return err
	}
	v, err := mem.ReadByte(addr)
	if err != nil {
		return err
	}
	return it.Stack.PushValue(NewValueI64(uint64(v)))
}

func i64Load16s(it *Interpreter) error {
	mem, addr, err := it.loadBase()
	if err != nil {
		return err
	}
	v, err := mem.ReadUint16(addr)
	if err != nil {
		return err
	}
	return it.Stack.PushValue(NewValueI64(uint64(int64(int16(v)))))
}

func i64Load16u(it *Interpreter) error {
	mem, addr, err := it.loadBase()
	if err != nil {
		return err
	}
	v, err := mem.ReadUint16(addr)
	if err != nil {
		return err
	}
	return it.Stack.PushValue(NewValueI64(uint64(v)))
}

func i64Load32s(it *Interpreter) error {
	mem, addr, err := it.loadBase()
	if err != nil {
		return err
	}
	v, err := mem.ReadUint32(addr)
	if err != nil {
		return err
	}
	return it.Stack.PushValue(NewValueI64(uint64(int64(int32(v)))))
}

func i64Load32u(it *Interpreter) error {
	mem, addr, err := it.loadBase()
	if err != nil {
		return err
	}
	v, err := mem.ReadUint32(addr)
	if err != nil {
		return err
	}
	return it.Stack.PushValue(NewValueI64(uint64(v)))
}

func i32Store(it *Interpreter) error {
	mem, addr, v, err := it.storeBase()
	if err != nil {
		return err
	}
	return mem.WriteUint32(addr, v.I32())
}

func i64Store(it *Interpreter) error {
	mem, addr, v, err := it.storeBase()
	if err != nil {
		return err
	}
	return mem.WriteUint64(addr, v.I64())
}

func f32Store(it *Interpreter) error {
	mem, addr, v, err := it.storeBase()
	if err != nil {
		return err
	}
	return mem.WriteUint32(addr, uint32(v.Raw()))
}

func f64Store(it *Interpreter) error {
	mem, addr, v, err := it.storeBase()
	if err != nil {
		return err
	}
	return mem.WriteUint64(addr, v.Raw())
}

func i32Store8(it *Interpreter) error {
	mem, addr, v, err := it.storeBase()
	if err != nil {
		return err
	}
	return mem.WriteByte(addr, byte(v.I32()))
}

func i32Store16(it *Interpreter) error {
	mem, addr, v, err := it.storeBase()
	if err != nil {
		return err
	}
	return mem.WriteUint16(addr, uint16(v.I32()))
}

func i64Store8(it *Interpreter) error {
	mem, addr, v, err := it.storeBase()
	if err != nil {
		return err
	}
	return mem.WriteByte(addr, byte(v.I64()))
}

func i64Store16(it *Interpreter) error {
	mem, addr, v, err := it.storeBase()
	if err != nil {
		return err
	}
	return mem.WriteUint16(addr, uint16(v.I64()))
}

func i64Store32(it *Interpreter) error {
	mem, addr, v, err := it.storeBase()
	if err != nil {
		return err
	}
	return mem.WriteUint32(addr, uint32(v.I64()))
}

func memorySize(it *Interpreter) error {
	it.frame.PC += 2 // opcode + reserved byte
	mem, err := it.currentMemory()
	if err != nil {
		return err
	}
	return it.Stack.PushValue(NewValueI32(mem.PageCount()))
}

func memoryGrow(it *Interpreter) error {
	it.frame.PC += 2 // opcode + reserved byte
	mem, err := it.currentMemory()
	if err != nil {
		return err
	}
	pages, err := it.Stack.PopValue()
	if err != nil {
		return err
	}
	prev, ok := mem.Grow(pages.I32())
	if !ok {
		return it.Stack.PushValue(NewValueI32(0xffffffff))
	}
	return it.Stack.PushValue(NewValueI32(prev))
}
