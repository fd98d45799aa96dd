package wasm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRegisterModule(t *testing.T) {
	s := NewStore(nil)
	inst := &ModuleInstance{}
	require.NoError(t, s.RegisterModule("mod", inst))

	got, ok := s.FindModule("mod")
	require.True(t, ok)
	assert.Same(t, inst, got)

	assert.ErrorIs(t, s.RegisterModule("mod", &ModuleInstance{}), ErrDuplicateModuleName)

	_, ok = s.FindModule("other")
	assert.False(t, ok)
}

func TestStoreAddressStability(t *testing.T) {
	s := NewStore(nil)
	a0 := s.addGlobal(NewGlobalInstance(&GlobalType{ValType: ValueTypeI32}, NewValueI32(0)))
	a1 := s.addGlobal(NewGlobalInstance(&GlobalType{ValType: ValueTypeI32}, NewValueI32(1)))
	assert.Equal(t, uint32(0), a0)
	assert.Equal(t, uint32(1), a1)

	g0, err := s.GetGlobal(0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), g0.Get().I32())
	_, err = s.GetGlobal(2)
	assert.Error(t, err)
}

func i32Expr(v int32) *ConstantExpression {
	// Single-byte encodings are enough for test offsets.
	return &ConstantExpression{OptCode: OptCodeI32Const, Data: []byte{byte(v) & 0x7f}}
}

func TestStoreInstantiate(t *testing.T) {
	s := NewStore(nil)
	m := &Module{
		TypeSection:     []*FunctionType{{ReturnTypes: []ValueType{ValueTypeI32}}},
		FunctionSection: []uint32{0},
		CodeSection: []*CodeSegment{
			{Body: []byte{byte(OptCodeI32Const), 0x2a, byte(OptCodeEnd)}},
		},
		TableSection:  []*TableType{{ElemType: ElemTypeFuncref, Limit: &LimitsType{Min: 2}}},
		MemorySection: []*MemoryType{{Min: 1}},
		GlobalSection: []*GlobalSegment{
			{Type: &GlobalType{ValType: ValueTypeI32, Mutable: true}, Init: i32Expr(7)},
		},
		ElementSection: []*ElementSegment{
			{TableIndex: 0, OffsetExpr: i32Expr(1), Init: []uint32{0}},
		},
		DataSection: []*DataSegment{
			{MemoryIndex: 0, OffsetExpr: i32Expr(8), Init: []byte{0xca, 0xfe}},
		},
		ExportSection: map[string]*ExportSegment{
			"answer": {Name: "answer", Desc: &ExportDesc{Kind: ExportKindFunction, Index: 0}},
			"mem":    {Name: "mem", Desc: &ExportDesc{Kind: ExportKindMemory, Index: 0}},
		},
	}

	inst, err := s.Instantiate(m)
	require.NoError(t, err)

	require.Len(t, inst.FunctionAddrs, 1)
	require.Len(t, inst.TableAddrs, 1)
	require.Len(t, inst.MemoryAddrs, 1)
	require.Len(t, inst.GlobalAddrs, 1)

	// Global initialized from its constant expression.
	g := s.Globals[inst.GlobalAddrs[0]]
	assert.Equal(t, uint32(7), g.Get().I32())

	// Element segment applied at offset 1.
	table := s.Tables[inst.TableAddrs[0]]
	_, err = table.GetElement(0)
	assert.ErrorIs(t, err, ErrUninitializedElement)
	addr, err := table.GetElement(1)
	require.NoError(t, err)
	assert.Equal(t, inst.FunctionAddrs[0], addr)

	// Data segment applied at offset 8.
	mem := s.Memories[inst.MemoryAddrs[0]]
	v, err := mem.ReadUint16(8)
	require.NoError(t, err)
	assert.Equal(t, uint16(0xfeca), v)

	// Exports resolve to store addresses.
	exp, ok := inst.Exports["answer"]
	require.True(t, ok)
	assert.Equal(t, ExportKindFunction, exp.Kind)
	assert.Equal(t, "answer", s.Functions[exp.Addr].Name)
}

func TestStoreInstantiateElementSegmentDoesNotFit(t *testing.T) {
	s := NewStore(nil)
	m := &Module{
		TypeSection:     []*FunctionType{{}},
		FunctionSection: []uint32{0},
		CodeSection:     []*CodeSegment{{Body: []byte{byte(OptCodeEnd)}}},
		TableSection:    []*TableType{{ElemType: ElemTypeFuncref, Limit: &LimitsType{Min: 1}}},
		ElementSection: []*ElementSegment{
			{TableIndex: 0, OffsetExpr: i32Expr(1), Init: []uint32{0}},
		},
	}
	_, err := s.Instantiate(m)
	assert.ErrorIs(t, err, ErrUndefinedElement)
	// The failed instantiation must leave no partial growth behind.
	assert.Empty(t, s.Functions)
	assert.Empty(t, s.Tables)
}

func TestStoreInstantiateRollbackOnBadGlobal(t *testing.T) {
	s := NewStore(nil)
	m := &Module{
		GlobalSection: []*GlobalSegment{
			{Type: &GlobalType{ValType: ValueTypeI32}, Init: i32Expr(1)},
			{Type: &GlobalType{ValType: ValueTypeI64}, Init: i32Expr(2)}, // type mismatch
		},
	}
	_, err := s.Instantiate(m)
	assert.ErrorIs(t, err, ErrTypeNotMatch)
	assert.Empty(t, s.Globals)
}

func TestStoreResolveImports(t *testing.T) {
	s := NewStore(nil)
	require.NoError(t, s.AddHostFunction("env", "answer", func(ctx *HostFunctionCallContext) uint32 {
		return 42
	}))
	require.NoError(t, s.AddGlobal("env", "g", NewValueI64(5), false))
	require.NoError(t, s.AddMemoryInstance("env", "mem", 1, nil))
	require.NoError(t, s.AddTableInstance("env", "tbl", 2, uint32Ptr(4)))

	sig := &FunctionType{ReturnTypes: []ValueType{ValueTypeI32}}
	m := &Module{
		TypeSection: []*FunctionType{sig},
		ImportSection: []*ImportSegment{
			{Module: "env", Name: "answer", Desc: &ImportDesc{Kind: ImportKindFunction, TypeIndexPtr: uint32Ptr(0)}},
			{Module: "env", Name: "g", Desc: &ImportDesc{Kind: ImportKindGlobal, GlobalTypePtr: &GlobalType{ValType: ValueTypeI64}}},
			{Module: "env", Name: "mem", Desc: &ImportDesc{Kind: ImportKindMemory, MemTypePtr: &MemoryType{Min: 1}}},
			{Module: "env", Name: "tbl", Desc: &ImportDesc{Kind: ImportKindTable, TableTypePtr: &TableType{ElemType: ElemTypeFuncref, Limit: &LimitsType{Min: 2, Max: uint32Ptr(4)}}}},
		},
	}
	inst, err := s.Instantiate(m)
	require.NoError(t, err)
	assert.Len(t, inst.FunctionAddrs, 1)
	assert.Len(t, inst.GlobalAddrs, 1)
	assert.Len(t, inst.MemoryAddrs, 1)
	assert.Len(t, inst.TableAddrs, 1)
}

func TestStoreResolveImportErrors(t *testing.T) {
	s := NewStore(nil)
	require.NoError(t, s.AddGlobal("env", "g", NewValueI64(5), false))

	for _, c := range []struct {
		name   string
		imp    *ImportSegment
		expErr error
	}{
		{
			name:   "unknown module",
			imp:    &ImportSegment{Module: "nope", Name: "g", Desc: &ImportDesc{Kind: ImportKindGlobal, GlobalTypePtr: &GlobalType{ValType: ValueTypeI64}}},
			expErr: ErrUnknownModule,
		},
		{
			name:   "unknown export",
			imp:    &ImportSegment{Module: "env", Name: "nope", Desc: &ImportDesc{Kind: ImportKindGlobal, GlobalTypePtr: &GlobalType{ValType: ValueTypeI64}}},
			expErr: ErrExportNotFound,
		},
		{
			name:   "kind mismatch",
			imp:    &ImportSegment{Module: "env", Name: "g", Desc: &ImportDesc{Kind: ImportKindMemory, MemTypePtr: &MemoryType{Min: 1}}},
			expErr: ErrIncompatibleImportType,
		},
		{
			name:   "global type mismatch",
			imp:    &ImportSegment{Module: "env", Name: "g", Desc: &ImportDesc{Kind: ImportKindGlobal, GlobalTypePtr: &GlobalType{ValType: ValueTypeI32}}},
			expErr: ErrIncompatibleImportType,
		},
		{
			name:   "mutability mismatch",
			imp:    &ImportSegment{Module: "env", Name: "g", Desc: &ImportDesc{Kind: ImportKindGlobal, GlobalTypePtr: &GlobalType{ValType: ValueTypeI64, Mutable: true}}},
			expErr: ErrIncompatibleImportType,
		},
	} {
		t.Run(c.name, func(t *testing.T) {
			_, err := s.Instantiate(&Module{ImportSection: []*ImportSegment{c.imp}})
			assert.ErrorIs(t, err, c.expErr)
		})
	}
}

func TestStoreConstExprGlobalGet(t *testing.T) {
	s := NewStore(nil)
	require.NoError(t, s.AddGlobal("env", "base", NewValueI32(3), false))

	m := &Module{
		ImportSection: []*ImportSegment{
			{Module: "env", Name: "base", Desc: &ImportDesc{Kind: ImportKindGlobal, GlobalTypePtr: &GlobalType{ValType: ValueTypeI32}}},
		},
		GlobalSection: []*GlobalSegment{
			{Type: &GlobalType{ValType: ValueTypeI32}, Init: &ConstantExpression{OptCode: OptCodeGlobalGet, Data: []byte{0x00}}},
		},
	}
	inst, err := s.Instantiate(m)
	require.NoError(t, err)
	require.Len(t, inst.GlobalAddrs, 2)
	assert.Equal(t, uint32(3), s.Globals[inst.GlobalAddrs[1]].Get().I32())
}

func TestStoreHostModuleBuilders(t *testing.T) {
	s := NewStore(nil)
	require.NoError(t, s.AddHostFunction("env", "f", func(ctx *HostFunctionCallContext, v uint64) uint64 {
		return v + 1
	}))
	// Duplicate export names are rejected.
	err := s.AddHostFunction("env", "f", func(ctx *HostFunctionCallContext) {})
	assert.Error(t, err)

	m, ok := s.FindModule("env")
	require.True(t, ok)
	exp, ok := m.Exports["f"]
	require.True(t, ok)
	f := s.Functions[exp.Addr]
	assert.True(t, f.IsHost())
	assert.Equal(t, []ValueType{ValueTypeI64}, f.Signature.InputTypes)
	assert.Equal(t, []ValueType{ValueTypeI64}, f.Signature.ReturnTypes)
}
