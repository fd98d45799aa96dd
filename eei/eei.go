package eei

import (
	"fmt"

	"github.com/sunhaibo2004/SSVM/wasm"
)

// ModuleName is the import namespace contract code resolves EEI functions
// from.
const ModuleName = "ethereum"

const (
	i32 = wasm.ValueTypeI32
	i64 = wasm.ValueTypeI64
)

func sig(in ...wasm.ValueType) *wasm.FunctionType {
	return &wasm.FunctionType{InputTypes: in}
}

func sigR(ret wasm.ValueType, in ...wasm.ValueType) *wasm.FunctionType {
	return &wasm.FunctionType{InputTypes: in, ReturnTypes: []wasm.ValueType{ret}}
}

// RegisterHostFunctions publishes the EEI surface on store under ModuleName.
// Arguments reach each function in declaration order: args[0] is the first
// declared parameter.
func RegisterHostFunctions(store *wasm.Store, env *Environment) error {
	for _, hf := range []struct {
		name string
		sig  *wasm.FunctionType
		fn   wasm.HostFunc
	}{
		{"getCallDataSize", sigR(i32), env.getCallDataSize},
		{"callDataCopy", sig(i32, i32, i32), env.callDataCopy},
		{"finish", sig(i32, i32), env.finish},
		{"revert", sig(i32, i32), env.revert},
		{"getReturnDataSize", sigR(i32), env.getReturnDataSize},
		{"returnDataCopy", sig(i32, i32, i32), env.returnDataCopy},
		{"getCaller", sig(i32), env.getCaller},
		{"getCallValue", sig(i32), env.getCallValue},
		{"storageStore", sig(i32, i32), env.storageStore},
		{"storageLoad", sig(i32, i32), env.storageLoad},
		{"useGas", sig(i64), env.useGas},
		{"getGasLeft", sigR(i64), env.getGasLeft},
	} {
		if err := store.AddHostFunc(ModuleName, hf.name, hf.sig, hf.fn); err != nil {
			return fmt.Errorf("register %s.%s: %w", ModuleName, hf.name, err)
		}
	}
	return nil
}

func callerMemory(store *wasm.Store, mod *wasm.ModuleInstance) (*wasm.MemoryInstance, error) {
	if mod == nil || len(mod.MemoryAddrs) == 0 {
		return nil, fmt.Errorf("calling module has no memory")
	}
	return store.GetMemory(mod.MemoryAddrs[0])
}

func (e *Environment) getCallDataSize(args []wasm.Value, _ *wasm.Store, _ *wasm.ModuleInstance) ([]wasm.Value, error) {
	return []wasm.Value{wasm.NewValueI32(uint32(len(e.CallData)))}, nil
}

func (e *Environment) callDataCopy(args []wasm.Value, store *wasm.Store, mod *wasm.ModuleInstance) ([]wasm.Value, error) {
	resultOffset := args[0].I32()
	dataOffset := args[1].I32()
	length := args[2].I32()
	if length == 0 {
		return nil, nil
	}
	if uint64(dataOffset)+uint64(length) > uint64(len(e.CallData)) {
		return nil, fmt.Errorf("call data slice [%d, %d) out of range", dataOffset, dataOffset+length)
	}
	mem, err := callerMemory(store, mod)
	if err != nil {
		return nil, err
	}
	return nil, mem.WriteBytes(e.CallData[dataOffset:dataOffset+length], uint64(resultOffset))
}

// finish records the contract's return data. Execution then runs the body to
// completion; the embedder reads ReturnData afterwards.
func (e *Environment) finish(args []wasm.Value, store *wasm.Store, mod *wasm.ModuleInstance) ([]wasm.Value, error) {
	dataOffset := args[0].I32()
	dataLength := args[1].I32()
	e.ReturnData = e.ReturnData[:0]
	e.Reverted = false
	if dataLength == 0 {
		return nil, nil
	}
	mem, err := callerMemory(store, mod)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, dataLength)
	if err := mem.ReadBytes(buf, uint64(dataOffset), uint64(dataLength)); err != nil {
		return nil, err
	}
	e.ReturnData = buf
	return nil, nil
}

func (e *Environment) revert(args []wasm.Value, store *wasm.Store, mod *wasm.ModuleInstance) ([]wasm.Value, error) {
	if _, err := e.finish(args, store, mod); err != nil {
		return nil, err
	}
	e.Reverted = true
	return nil, nil
}

func (e *Environment) getReturnDataSize(args []wasm.Value, _ *wasm.Store, _ *wasm.ModuleInstance) ([]wasm.Value, error) {
	return []wasm.Value{wasm.NewValueI32(uint32(len(e.ReturnData)))}, nil
}

func (e *Environment) returnDataCopy(args []wasm.Value, store *wasm.Store, mod *wasm.ModuleInstance) ([]wasm.Value, error) {
	resultOffset := args[0].I32()
	dataOffset := args[1].I32()
	length := args[2].I32()
	if length == 0 {
		return nil, nil
	}
	if uint64(dataOffset)+uint64(length) > uint64(len(e.ReturnData)) {
		return nil, fmt.Errorf("return data slice [%d, %d) out of range", dataOffset, dataOffset+length)
	}
	mem, err := callerMemory(store, mod)
	if err != nil {
		return nil, err
	}
	return nil, mem.WriteBytes(e.ReturnData[dataOffset:dataOffset+length], uint64(resultOffset))
}

func (e *Environment) getCaller(args []wasm.Value, store *wasm.Store, mod *wasm.ModuleInstance) ([]wasm.Value, error) {
	mem, err := callerMemory(store, mod)
	if err != nil {
		return nil, err
	}
	return nil, mem.WriteBytes(e.Caller[:], uint64(args[0].I32()))
}

func (e *Environment) getCallValue(args []wasm.Value, store *wasm.Store, mod *wasm.ModuleInstance) ([]wasm.Value, error) {
	mem, err := callerMemory(store, mod)
	if err != nil {
		return nil, err
	}
	return nil, mem.WriteBytes(e.CallValue[:], uint64(args[0].I32()))
}

func (e *Environment) storageStore(args []wasm.Value, store *wasm.Store, mod *wasm.ModuleInstance) ([]wasm.Value, error) {
	pathOffset := args[0].I32()
	valueOffset := args[1].I32()
	mem, err := callerMemory(store, mod)
	if err != nil {
		return nil, err
	}
	var path, value [WordSize]byte
	if err := mem.ReadBytes(path[:], uint64(pathOffset), WordSize); err != nil {
		return nil, err
	}
	if err := mem.ReadBytes(value[:], uint64(valueOffset), WordSize); err != nil {
		return nil, err
	}
	e.Storage[path] = value
	return nil, nil
}

func (e *Environment) storageLoad(args []wasm.Value, store *wasm.Store, mod *wasm.ModuleInstance) ([]wasm.Value, error) {
	pathOffset := args[0].I32()
	resultOffset := args[1].I32()
	mem, err := callerMemory(store, mod)
	if err != nil {
		return nil, err
	}
	var path [WordSize]byte
	if err := mem.ReadBytes(path[:], uint64(pathOffset), WordSize); err != nil {
		return nil, err
	}
	value := e.Storage[path]
	return nil, mem.WriteBytes(value[:], uint64(resultOffset))
}

func (e *Environment) useGas(args []wasm.Value, _ *wasm.Store, _ *wasm.ModuleInstance) ([]wasm.Value, error) {
	return nil, e.UseGas(args[0].I64())
}

func (e *Environment) getGasLeft(args []wasm.Value, _ *wasm.Store, _ *wasm.ModuleInstance) ([]wasm.Value, error) {
	return []wasm.Value{wasm.NewValueI64(e.GasLeft())}, nil
}
