package ssvm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunhaibo2004/SSVM/wasm"
)

func uint32Ptr(v uint32) *uint32 { return &v }

func addModule() *wasm.Module {
	return &wasm.Module{
		TypeSection: []*wasm.FunctionType{{
			InputTypes:  []wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI32},
			ReturnTypes: []wasm.ValueType{wasm.ValueTypeI32},
		}},
		FunctionSection: []uint32{0},
		CodeSection: []*wasm.CodeSegment{
			{Body: []byte{0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b}},
		},
		ExportSection: map[string]*wasm.ExportSegment{
			"add": {Name: "add", Desc: &wasm.ExportDesc{Kind: wasm.ExportKindFunction, Index: 0}},
		},
	}
}

func TestVMExecuteActiveModule(t *testing.T) {
	vm, err := NewVM()
	require.NoError(t, err)

	// Nothing instantiated yet.
	_, err = vm.Execute("add")
	assert.ErrorIs(t, err, wasm.ErrNoActiveModule)

	require.NoError(t, vm.Load(addModule()))
	require.NoError(t, vm.Instantiate())

	rets, err := vm.Execute("add", wasm.NewValueI32(40), wasm.NewValueI32(2))
	require.NoError(t, err)
	require.Len(t, rets, 1)
	assert.Equal(t, uint32(42), rets[0].I32())

	_, err = vm.Execute("nope")
	assert.ErrorIs(t, err, wasm.ErrExportNotFound)
}

func TestVMExecuteRegistered(t *testing.T) {
	vm, err := NewVM()
	require.NoError(t, err)
	require.NoError(t, vm.RegisterModule("math", addModule()))

	rets, err := vm.ExecuteRegistered("math", "add", wasm.NewValueI32(1), wasm.NewValueI32(2))
	require.NoError(t, err)
	assert.Equal(t, uint32(3), rets[0].I32())

	_, err = vm.ExecuteRegistered("nope", "add")
	assert.ErrorIs(t, err, wasm.ErrUnknownModule)

	assert.ErrorIs(t, vm.RegisterModule("math", addModule()), wasm.ErrDuplicateModuleName)
}

func TestVMExecuteNonFunctionExport(t *testing.T) {
	vm, err := NewVM()
	require.NoError(t, err)
	m := &wasm.Module{
		MemorySection: []*wasm.MemoryType{{Min: 1}},
		ExportSection: map[string]*wasm.ExportSegment{
			"mem": {Name: "mem", Desc: &wasm.ExportDesc{Kind: wasm.ExportKindMemory, Index: 0}},
		},
	}
	require.NoError(t, vm.Load(m))
	require.NoError(t, vm.Instantiate())
	_, err = vm.Execute("mem")
	assert.ErrorIs(t, err, wasm.ErrIncompatibleImportType)
}

func TestVMValidate(t *testing.T) {
	vm, err := NewVM()
	require.NoError(t, err)

	assert.Error(t, vm.Validate()) // nothing loaded

	require.NoError(t, vm.Load(&wasm.Module{FunctionSection: []uint32{0}}))
	assert.Error(t, vm.Validate()) // code section length mismatch

	// Non-funcref tables require the reference-types flag.
	m := &wasm.Module{
		TableSection: []*wasm.TableType{{ElemType: 0x6f, Limit: &wasm.LimitsType{Min: 1}}},
	}
	require.NoError(t, vm.Load(m))
	assert.Error(t, vm.Validate())

	vm2, err := NewVM(WithConfig(NewConfig().WithReferenceTypes(true)))
	require.NoError(t, err)
	require.NoError(t, vm2.Load(m))
	assert.NoError(t, vm2.Validate())
}

func TestVMStartFunction(t *testing.T) {
	// The start function bumps a global; Instantiate must run it.
	start := uint32(0)
	m := &wasm.Module{
		TypeSection:     []*wasm.FunctionType{{}, {ReturnTypes: []wasm.ValueType{wasm.ValueTypeI32}}},
		FunctionSection: []uint32{0, 1},
		CodeSection: []*wasm.CodeSegment{
			{Body: []byte{0x41, 0x07, 0x24, 0x00, 0x0b}}, // i32.const 7; global.set 0
			{Body: []byte{0x23, 0x00, 0x0b}},             // global.get 0
		},
		GlobalSection: []*wasm.GlobalSegment{
			{Type: &wasm.GlobalType{ValType: wasm.ValueTypeI32, Mutable: true},
				Init: &wasm.ConstantExpression{OptCode: wasm.OptCodeI32Const, Data: []byte{0x00}}},
		},
		StartSection: &start,
		ExportSection: map[string]*wasm.ExportSegment{
			"get": {Name: "get", Desc: &wasm.ExportDesc{Kind: wasm.ExportKindFunction, Index: 1}},
		},
	}
	vm, err := NewVM()
	require.NoError(t, err)
	require.NoError(t, vm.Load(m))
	require.NoError(t, vm.Instantiate())

	rets, err := vm.Execute("get")
	require.NoError(t, err)
	assert.Equal(t, uint32(7), rets[0].I32())
}

func TestVMHostFunction(t *testing.T) {
	vm, err := NewVM()
	require.NoError(t, err)
	require.NoError(t, vm.RegisterHostFunction("env", "mul2", func(ctx *wasm.HostFunctionCallContext, v uint32) uint32 {
		return v * 2
	}))

	m := &wasm.Module{
		TypeSection: []*wasm.FunctionType{{
			InputTypes:  []wasm.ValueType{wasm.ValueTypeI32},
			ReturnTypes: []wasm.ValueType{wasm.ValueTypeI32},
		}},
		ImportSection: []*wasm.ImportSegment{
			{Module: "env", Name: "mul2", Desc: &wasm.ImportDesc{Kind: wasm.ImportKindFunction, TypeIndexPtr: uint32Ptr(0)}},
		},
		FunctionSection: []uint32{0},
		CodeSection: []*wasm.CodeSegment{
			{Body: []byte{0x20, 0x00, 0x10, 0x00, 0x0b}},
		},
		ExportSection: map[string]*wasm.ExportSegment{
			"main": {Name: "main", Desc: &wasm.ExportDesc{Kind: wasm.ExportKindFunction, Index: 1}},
		},
	}
	require.NoError(t, vm.Load(m))
	require.NoError(t, vm.Instantiate())

	rets, err := vm.Execute("main", wasm.NewValueI32(21))
	require.NoError(t, err)
	assert.Equal(t, uint32(42), rets[0].I32())
}

func TestVMTrapSurface(t *testing.T) {
	m := &wasm.Module{
		TypeSection:     []*wasm.FunctionType{{}},
		FunctionSection: []uint32{0},
		CodeSection:     []*wasm.CodeSegment{{Body: []byte{0x00, 0x0b}}}, // unreachable
		ExportSection: map[string]*wasm.ExportSegment{
			"boom": {Name: "boom", Desc: &wasm.ExportDesc{Kind: wasm.ExportKindFunction, Index: 0}},
		},
	}
	vm, err := NewVM()
	require.NoError(t, err)
	require.NoError(t, vm.Load(m))
	require.NoError(t, vm.Instantiate())

	_, err = vm.Execute("boom")
	assert.ErrorIs(t, err, wasm.ErrTrap)
	assert.ErrorIs(t, err, wasm.ErrUnreachable)

	// The VM stays usable for the next call after a trap.
	_, err = vm.Execute("boom")
	assert.ErrorIs(t, err, wasm.ErrUnreachable)
}

func TestVMStoreAccessor(t *testing.T) {
	vm, err := NewVM()
	require.NoError(t, err)
	require.NoError(t, vm.Store().AddGlobal("env", "g", wasm.NewValueI64(9), false))
	mod, ok := vm.Store().FindModule("env")
	require.True(t, ok)
	g, err := vm.Store().GetGlobal(mod.GlobalAddrs[0])
	require.NoError(t, err)
	assert.Equal(t, uint64(9), g.Get().I64())
}

func TestNewVMInvalidConfig(t *testing.T) {
	_, err := NewVM(WithConfig(NewConfig().WithMaxCallDepth(0)))
	assert.Error(t, err)
}
