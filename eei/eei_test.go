package eei

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunhaibo2004/SSVM/wasm"
)

// newContractContext builds a store with the EEI registered plus a module
// instance owning one memory page, standing in for a contract.
func newContractContext(t *testing.T, env *Environment) (*wasm.Store, *wasm.ModuleInstance, *wasm.MemoryInstance) {
	t.Helper()
	s := wasm.NewStore(nil)
	require.NoError(t, RegisterHostFunctions(s, env))
	require.NoError(t, s.AddMemoryInstance("contract", "memory", 1, nil))
	mod, ok := s.FindModule("contract")
	require.True(t, ok)
	mem, err := s.GetMemory(mod.MemoryAddrs[0])
	require.NoError(t, err)
	return s, mod, mem
}

func callEEI(t *testing.T, s *wasm.Store, mod *wasm.ModuleInstance, name string, args ...wasm.Value) ([]wasm.Value, error) {
	t.Helper()
	eeiMod, ok := s.FindModule(ModuleName)
	require.True(t, ok)
	exp, ok := eeiMod.Exports[name]
	require.True(t, ok, "EEI export %q", name)
	f, err := s.GetFunction(exp.Addr)
	require.NoError(t, err)
	return f.HostFn(args, s, mod)
}

func TestRegisterHostFunctions(t *testing.T) {
	s := wasm.NewStore(nil)
	require.NoError(t, RegisterHostFunctions(s, NewEnvironment()))
	mod, ok := s.FindModule(ModuleName)
	require.True(t, ok)
	for _, name := range []string{
		"getCallDataSize", "callDataCopy", "finish", "revert",
		"getReturnDataSize", "returnDataCopy", "getCaller", "getCallValue",
		"storageStore", "storageLoad", "useGas", "getGasLeft",
	} {
		_, ok := mod.Exports[name]
		assert.True(t, ok, "missing %s", name)
	}
	// Registering twice clashes on export names.
	assert.Error(t, RegisterHostFunctions(s, NewEnvironment()))
}

func TestCallData(t *testing.T) {
	env := NewEnvironment()
	env.CallData = []byte{0x01, 0x02, 0x03, 0x04}
	s, mod, mem := newContractContext(t, env)

	rets, err := callEEI(t, s, mod, "getCallDataSize")
	require.NoError(t, err)
	require.Len(t, rets, 1)
	assert.Equal(t, uint32(4), rets[0].I32())

	// callDataCopy(resultOffset=100, dataOffset=1, length=2)
	_, err = callEEI(t, s, mod, "callDataCopy",
		wasm.NewValueI32(100), wasm.NewValueI32(1), wasm.NewValueI32(2))
	require.NoError(t, err)
	buf := make([]byte, 2)
	require.NoError(t, mem.ReadBytes(buf, 100, 2))
	assert.Equal(t, []byte{0x02, 0x03}, buf)

	// Out-of-range source slice fails.
	_, err = callEEI(t, s, mod, "callDataCopy",
		wasm.NewValueI32(0), wasm.NewValueI32(3), wasm.NewValueI32(2))
	assert.Error(t, err)
}

func TestFinishAndRevert(t *testing.T) {
	env := NewEnvironment()
	s, mod, mem := newContractContext(t, env)
	require.NoError(t, mem.WriteBytes([]byte{0xca, 0xfe}, 8))

	// finish(dataOffset=8, dataLength=2): offset is args[0], length args[1].
	_, err := callEEI(t, s, mod, "finish", wasm.NewValueI32(8), wasm.NewValueI32(2))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xca, 0xfe}, env.ReturnData)
	assert.False(t, env.Reverted)

	rets, err := callEEI(t, s, mod, "getReturnDataSize")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), rets[0].I32())

	_, err = callEEI(t, s, mod, "returnDataCopy",
		wasm.NewValueI32(32), wasm.NewValueI32(0), wasm.NewValueI32(2))
	require.NoError(t, err)
	buf := make([]byte, 2)
	require.NoError(t, mem.ReadBytes(buf, 32, 2))
	assert.Equal(t, []byte{0xca, 0xfe}, buf)

	_, err = callEEI(t, s, mod, "revert", wasm.NewValueI32(8), wasm.NewValueI32(1))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xca}, env.ReturnData)
	assert.True(t, env.Reverted)

	// Zero length clears the recorded data.
	_, err = callEEI(t, s, mod, "finish", wasm.NewValueI32(0), wasm.NewValueI32(0))
	require.NoError(t, err)
	assert.Empty(t, env.ReturnData)
	assert.False(t, env.Reverted)

	// Reading past memory traps.
	_, err = callEEI(t, s, mod, "finish",
		wasm.NewValueI32(uint32(mem.ByteSize())-1), wasm.NewValueI32(2))
	assert.ErrorIs(t, err, wasm.ErrMemoryOutOfBounds)
}

func TestCallerAndCallValue(t *testing.T) {
	env := NewEnvironment()
	copy(env.Caller[:], []byte{0xaa, 0xbb, 0xcc})
	env.CallValue[0] = 0x05
	s, mod, mem := newContractContext(t, env)

	_, err := callEEI(t, s, mod, "getCaller", wasm.NewValueI32(0))
	require.NoError(t, err)
	buf := make([]byte, 20)
	require.NoError(t, mem.ReadBytes(buf, 0, 20))
	assert.Equal(t, byte(0xaa), buf[0])
	assert.Equal(t, byte(0xcc), buf[2])

	_, err = callEEI(t, s, mod, "getCallValue", wasm.NewValueI32(64))
	require.NoError(t, err)
	b, err := mem.ReadByte(64)
	require.NoError(t, err)
	assert.Equal(t, byte(0x05), b)
}

func TestStorage(t *testing.T) {
	env := NewEnvironment()
	s, mod, mem := newContractContext(t, env)

	// Key at 0, value at 32.
	require.NoError(t, mem.WriteByte(0, 0x11))
	require.NoError(t, mem.WriteBytes([]byte{0xde, 0xad}, 32))

	_, err := callEEI(t, s, mod, "storageStore", wasm.NewValueI32(0), wasm.NewValueI32(32))
	require.NoError(t, err)

	var key [WordSize]byte
	key[0] = 0x11
	assert.Equal(t, byte(0xde), env.Storage[key][0])

	// Load it back to offset 64.
	_, err = callEEI(t, s, mod, "storageLoad", wasm.NewValueI32(0), wasm.NewValueI32(64))
	require.NoError(t, err)
	buf := make([]byte, 2)
	require.NoError(t, mem.ReadBytes(buf, 64, 2))
	assert.Equal(t, []byte{0xde, 0xad}, buf)

	// Unset keys load as zero.
	require.NoError(t, mem.WriteByte(0, 0x22))
	_, err = callEEI(t, s, mod, "storageLoad", wasm.NewValueI32(0), wasm.NewValueI32(64))
	require.NoError(t, err)
	require.NoError(t, mem.ReadBytes(buf, 64, 2))
	assert.Equal(t, []byte{0x00, 0x00}, buf)
}

func TestGasAccounting(t *testing.T) {
	env := NewEnvironment()
	env.GasLimit = 100
	s, mod, _ := newContractContext(t, env)

	rets, err := callEEI(t, s, mod, "getGasLeft")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), rets[0].I64())

	_, err = callEEI(t, s, mod, "useGas", wasm.NewValueI64(60))
	require.NoError(t, err)
	rets, err = callEEI(t, s, mod, "getGasLeft")
	require.NoError(t, err)
	assert.Equal(t, uint64(40), rets[0].I64())

	_, err = callEEI(t, s, mod, "useGas", wasm.NewValueI64(41))
	assert.ErrorIs(t, err, ErrOutOfGas)
	assert.Equal(t, uint64(0), env.GasLeft())
}

func TestEnvironmentReset(t *testing.T) {
	env := NewEnvironment()
	env.GasLimit = 10
	env.GasUsed = 10
	env.ReturnData = []byte{1}
	env.Reverted = true

	env.Reset()
	assert.Nil(t, env.ReturnData)
	assert.False(t, env.Reverted)
	assert.Equal(t, uint64(10), env.GasLeft())
}

// TestContractExecution drives a wasm contract end to end through the
// interpreter: it copies its call data into memory and finishes with it.
func TestContractExecution(t *testing.T) {
	env := NewEnvironment()
	env.CallData = []byte{0x01, 0x02, 0x03, 0x04}
	s := wasm.NewStore(nil)
	require.NoError(t, RegisterHostFunctions(s, env))

	sigIII := &wasm.FunctionType{InputTypes: []wasm.ValueType{
		wasm.ValueTypeI32, wasm.ValueTypeI32, wasm.ValueTypeI32}}
	sigII := &wasm.FunctionType{InputTypes: []wasm.ValueType{
		wasm.ValueTypeI32, wasm.ValueTypeI32}}
	m := &wasm.Module{
		TypeSection: []*wasm.FunctionType{sigIII, sigII, {}},
		ImportSection: []*wasm.ImportSegment{
			{Module: ModuleName, Name: "callDataCopy", Desc: &wasm.ImportDesc{Kind: wasm.ImportKindFunction, TypeIndexPtr: uint32Ptr(0)}},
			{Module: ModuleName, Name: "finish", Desc: &wasm.ImportDesc{Kind: wasm.ImportKindFunction, TypeIndexPtr: uint32Ptr(1)}},
		},
		FunctionSection: []uint32{2},
		CodeSection: []*wasm.CodeSegment{
			{Body: []byte{
				0x41, 0x00, // i32.const 0 (resultOffset)
				0x41, 0x00, // i32.const 0 (dataOffset)
				0x41, 0x04, // i32.const 4 (length)
				0x10, 0x00, // call callDataCopy
				0x41, 0x00, // i32.const 0 (dataOffset)
				0x41, 0x04, // i32.const 4 (dataLength)
				0x10, 0x01, // call finish
				0x0b,
			}},
		},
		MemorySection: []*wasm.MemoryType{{Min: 1}},
		ExportSection: map[string]*wasm.ExportSegment{
			"main": {Name: "main", Desc: &wasm.ExportDesc{Kind: wasm.ExportKindFunction, Index: 2}},
		},
	}
	inst, err := s.Instantiate(m)
	require.NoError(t, err)

	it := wasm.NewInterpreter(s)
	f, err := s.GetFunction(inst.Exports["main"].Addr)
	require.NoError(t, err)
	_, err = it.Call(f)
	require.NoError(t, err)

	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, env.ReturnData)
	assert.False(t, env.Reverted)
}

func uint32Ptr(v uint32) *uint32 { return &v }
