package wasm

import "fmt"

func init() {
	register(OptCodeDrop, drop)
	register(OptCodeSelect, selectOp)
	register(OptCodeLocalGet, localGet)
	register(OptCodeLocalSet, localSet)
	register(OptCodeLocalTee, localTee)
	register(OptCodeGlobalGet, globalGet)
	register(OptCodeGlobalSet, globalSet)
}

func drop(it *Interpreter) error {
	if _, err := it.Stack.PopValue(); err != nil {
		return err
	}
	it.frame.PC++
	return nil
}

func selectOp(it *Interpreter) error {
	cond, err := it.Stack.PopValue()
	if err != nil {
		return err
	}
	v2, err := it.Stack.PopValue()
	if err != nil {
		return err
	}
	v1, err := it.Stack.PopValue()
	if err != nil {
		return err
	}
	if cond.I32() != 0 {
		err = it.Stack.PushValue(v1)
	} else {
		err = it.Stack.PushValue(v2)
	}
	if err != nil {
		return err
	}
	it.frame.PC++
	return nil
}

func (it *Interpreter) fetchLocalIndex() (uint32, error) {
	it.frame.PC++
	index, err := it.fetchUint32()
	if err != nil {
		return 0, err
	}
	if uint64(index) >= uint64(len(it.frame.Locals)) {
		return 0, fmt.Errorf("local index %d out of range", index)
	}
	return index, nil
}

func localGet(it *Interpreter) error {
	index, err := it.fetchLocalIndex()
	if err != nil {
		return err
	}
	return it.Stack.PushValue(it.frame.Locals[index])
}

func localSet(it *Interpreter) error {
	index, err := it.fetchLocalIndex()
	if err != nil {
		return err
	}
	v, err := it.Stack.PopValue()
	if err != nil {
		return err
	}
	it.frame.Locals[index] = v
	return nil
}

func localTee(it *Interpreter) error {
	index, err := it.fetchLocalIndex()
	if err != nil {
		return err
	}
	v, err := it.Stack.PeekValue()
	if err != nil {
		return err
	}
	it.frame.Locals[index] = v
	return nil
}

func (it *Interpreter) fetchGlobal() (*GlobalInstance, error) {
	it.frame.PC++
	index, err := it.fetchUint32()
	if err != nil {
		return nil, err
	}
	if uint64(index) >= uint64(len(it.frame.Module.GlobalAddrs)) {
		return nil, fmt.Errorf("global index %d out of range", index)
	}
	return it.Store.Globals[it.frame.Module.GlobalAddrs[index]], nil
}

func globalGet(it *Interpreter) error {
	g, err := it.fetchGlobal()
	if err != nil {
		return err
	}
	return it.Stack.PushValue(g.Get())
}

func globalSet(it *Interpreter) error {
	g, err := it.fetchGlobal()
	if err != nil {
		return err
	}
	v, err := it.Stack.PopValue()
	if err != nil {
		return err
	}
	return g.Set(v)
}
