package wasm

import (
	"encoding/binary"
	"fmt"
	"math"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/sunhaibo2004/SSVM/wasm/leb128"
)

// Store is the process-scoped registry owning all runtime instances. Each
// collection maps a monotonically increasing address to an owned instance;
// instances are never moved, and are removed only when a failed Instantiate
// rolls back what it added, so the addresses of existing instances stay
// stable for the store's lifetime.
type Store struct {
	ModuleInstances map[string]*ModuleInstance

	// ActiveModule is the anonymous module targeted by Execute without a
	// module name.
	ActiveModule *ModuleInstance

	Functions []*FunctionInstance
	Globals   []*GlobalInstance
	Memories  []*MemoryInstance
	Tables    []*TableInstance

	logger *zap.Logger
}

func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		ModuleInstances: map[string]*ModuleInstance{},
		logger:          logger,
	}
}

// RegisterModule registers inst under name for future import resolution.
func (s *Store) RegisterModule(name string, inst *ModuleInstance) error {
	if _, ok := s.ModuleInstances[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateModuleName, name)
	}
	s.ModuleInstances[name] = inst
	return nil
}

func (s *Store) FindModule(name string) (*ModuleInstance, bool) {
	inst, ok := s.ModuleInstances[name]
	return inst, ok
}

func (s *Store) GetFunction(addr uint32) (*FunctionInstance, error) {
	if uint64(addr) >= uint64(len(s.Functions)) {
		return nil, fmt.Errorf("function address %d out of range", addr)
	}
	return s.Functions[addr], nil
}

func (s *Store) GetGlobal(addr uint32) (*GlobalInstance, error) {
	if uint64(addr) >= uint64(len(s.Globals)) {
		return nil, fmt.Errorf("global address %d out of range", addr)
	}
	return s.Globals[addr], nil
}

func (s *Store) GetMemory(addr uint32) (*MemoryInstance, error) {
	if uint64(addr) >= uint64(len(s.Memories)) {
		return nil, fmt.Errorf("memory address %d out of range", addr)
	}
	return s.Memories[addr], nil
}

func (s *Store) GetTable(addr uint32) (*TableInstance, error) {
	if uint64(addr) >= uint64(len(s.Tables)) {
		return nil, fmt.Errorf("table address %d out of range", addr)
	}
	return s.Tables[addr], nil
}

func (s *Store) addFunction(f *FunctionInstance) uint32 {
	s.Functions = append(s.Functions, f)
	return uint32(len(s.Functions) - 1)
}

func (s *Store) addGlobal(g *GlobalInstance) uint32 {
	s.Globals = append(s.Globals, g)
	return uint32(len(s.Globals) - 1)
}

func (s *Store) addMemory(m *MemoryInstance) uint32 {
	s.Memories = append(s.Memories, m)
	return uint32(len(s.Memories) - 1)
}

func (s *Store) addTable(t *TableInstance) uint32 {
	s.Tables = append(s.Tables, t)
	return uint32(len(s.Tables) - 1)
}

// Instantiate builds a module instance from already-validated structural
// data. On failure the store's growth is rolled back; previously registered
// instances are untouched.
func (s *Store) Instantiate(module *Module) (inst *ModuleInstance, err error) {
	inst = &ModuleInstance{
		Types:   module.TypeSection,
		Exports: map[string]*ExportInstance{},
	}

	if err := s.resolveImports(module, inst); err != nil {
		return nil, fmt.Errorf("resolve imports: %w", err)
	}

	var rollbackFuncs []func()
	defer func() {
		if err == nil {
			return
		}
		for _, f := range rollbackFuncs {
			f()
		}
	}()

	rs, err := s.buildGlobalInstances(module, inst)
	rollbackFuncs = append(rollbackFuncs, rs...)
	if err != nil {
		return nil, fmt.Errorf("globals: %w", err)
	}
	rs, err = s.buildFunctionInstances(module, inst)
	rollbackFuncs = append(rollbackFuncs, rs...)
	if err != nil {
		return nil, fmt.Errorf("functions: %w", err)
	}
	rs, err = s.buildTableInstances(module, inst)
	rollbackFuncs = append(rollbackFuncs, rs...)
	if err != nil {
		return nil, fmt.Errorf("tables: %w", err)
	}
	rs, err = s.buildMemoryInstances(module, inst)
	rollbackFuncs = append(rollbackFuncs, rs...)
	if err != nil {
		return nil, fmt.Errorf("memories: %w", err)
	}
	if err = s.buildExportInstances(module, inst); err != nil {
		return nil, fmt.Errorf("exports: %w", err)
	}

	if module.StartSection != nil {
		idx := *module.StartSection
		if uint64(idx) >= uint64(len(inst.FunctionAddrs)) {
			return nil, fmt.Errorf("start function index %d out of range", idx)
		}
		addr := inst.FunctionAddrs[idx]
		inst.StartFunctionAddr = &addr
	}

	s.logger.Debug("module instantiated",
		zap.Int("functions", len(inst.FunctionAddrs)),
		zap.Int("tables", len(inst.TableAddrs)),
		zap.Int("memories", len(inst.MemoryAddrs)),
		zap.Int("globals", len(inst.GlobalAddrs)),
	)
	return inst, nil
}

func (s *Store) resolveImports(module *Module, target *ModuleInstance) error {
	var err error
	for _, is := range module.ImportSection {
		if e := s.resolveImport(module, target, is); e != nil {
			err = multierr.Append(err, fmt.Errorf("%s.%s: %w", is.Module, is.Name, e))
		}
	}
	return err
}

func (s *Store) resolveImport(module *Module, target *ModuleInstance, is *ImportSegment) error {
	em, ok := s.ModuleInstances[is.Module]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModule, is.Module)
	}
	exp, ok := em.Exports[is.Name]
	if !ok {
		return ErrExportNotFound
	}

	switch is.Desc.Kind {
	case ImportKindFunction:
		if exp.Kind != ExportKindFunction {
			return ErrIncompatibleImportType
		}
		typeIndex := *is.Desc.TypeIndexPtr
		if uint64(typeIndex) >= uint64(len(module.TypeSection)) {
			return fmt.Errorf("unknown type index %d", typeIndex)
		}
		expType := module.TypeSection[typeIndex]
		f := s.Functions[exp.Addr]
		if !hasSameSignature(f.Signature.InputTypes, expType.InputTypes) ||
			!hasSameSignature(f.Signature.ReturnTypes, expType.ReturnTypes) {
			return fmt.Errorf("%w: signature mismatch: %s != %s", ErrIncompatibleImportType, f.Signature, expType)
		}
		target.FunctionAddrs = append(target.FunctionAddrs, exp.Addr)
	case ImportKindTable:
		if exp.Kind != ExportKindTable {
			return ErrIncompatibleImportType
		}
		t := s.Tables[exp.Addr]
		want := is.Desc.TableTypePtr
		if t.ElemType != want.ElemType || !limitsCompatible(t.Min, t.Max, want.Limit) {
			return ErrIncompatibleImportType
		}
		target.TableAddrs = append(target.TableAddrs, exp.Addr)
	case ImportKindMemory:
		if exp.Kind != ExportKindMemory {
			return ErrIncompatibleImportType
		}
		m := s.Memories[exp.Addr]
		if !limitsCompatible(m.Min, m.Max, is.Desc.MemTypePtr) {
			return ErrIncompatibleImportType
		}
		target.MemoryAddrs = append(target.MemoryAddrs, exp.Addr)
	case ImportKindGlobal:
		if exp.Kind != ExportKindGlobal {
			return ErrIncompatibleImportType
		}
		g := s.Globals[exp.Addr]
		want := is.Desc.GlobalTypePtr
		if g.Type.ValType != want.ValType || g.Type.Mutable != want.Mutable {
			return ErrIncompatibleImportType
		}
		target.GlobalAddrs = append(target.GlobalAddrs, exp.Addr)
	default:
		return fmt.Errorf("invalid import kind %d", is.Desc.Kind)
	}
	return nil
}

// limitsCompatible reports whether actual (min, max) satisfies the imported
// declaration: at least as large a minimum, and no laxer a maximum.
func limitsCompatible(actualMin uint32, actualMax *uint32, want *LimitsType) bool {
	if actualMin < want.Min {
		return false
	}
	if want.Max == nil {
		return true
	}
	return actualMax != nil && *actualMax <= *want.Max
}

func (s *Store) executeConstExpression(target *ModuleInstance, expr *ConstantExpression) (Value, error) {
	switch expr.OptCode {
	case OptCodeI32Const:
		v, _, err := leb128.DecodeInt32(expr.Data)
		if err != nil {
			return Value{}, fmt.Errorf("read i32: %w", err)
		}
		return NewValueI32(uint32(v)), nil
	case OptCodeI64Const:
		v, _, err := leb128.DecodeInt64(expr.Data)
		if err != nil {
			return Value{}, fmt.Errorf("read i64: %w", err)
		}
		return NewValueI64(uint64(v)), nil
	case OptCodeF32Const:
		if len(expr.Data) < 4 {
			return Value{}, fmt.Errorf("f32 constant truncated")
		}
		return NewValueF32(math.Float32frombits(binary.LittleEndian.Uint32(expr.Data))), nil
	case OptCodeF64Const:
		if len(expr.Data) < 8 {
			return Value{}, fmt.Errorf("f64 constant truncated")
		}
		return NewValueF64(math.Float64frombits(binary.LittleEndian.Uint64(expr.Data))), nil
	case OptCodeGlobalGet:
		idx, _, err := leb128.DecodeUint32(expr.Data)
		if err != nil {
			return Value{}, fmt.Errorf("read global index: %w", err)
		}
		if uint64(idx) >= uint64(len(target.GlobalAddrs)) {
			return Value{}, fmt.Errorf("global index %d out of range", idx)
		}
		return s.Globals[target.GlobalAddrs[idx]].Get(), nil
	default:
		return Value{}, fmt.Errorf("invalid constant expression opcode 0x%x", byte(expr.OptCode))
	}
}

func (s *Store) buildGlobalInstances(module *Module, target *ModuleInstance) (rollbackFuncs []func(), err error) {
	prevLen := len(s.Globals)
	rollbackFuncs = append(rollbackFuncs, func() {
		s.Globals = s.Globals[:prevLen]
	})
	for i, gs := range module.GlobalSection {
		v, err := s.executeConstExpression(target, gs.Init)
		if err != nil {
			return rollbackFuncs, fmt.Errorf("global %d: %w", i, err)
		}
		if v.Type != gs.Type.ValType {
			return rollbackFuncs, fmt.Errorf("global %d: %w", i, ErrTypeNotMatch)
		}
		addr := s.addGlobal(NewGlobalInstance(gs.Type, v))
		target.GlobalAddrs = append(target.GlobalAddrs, addr)
	}
	return rollbackFuncs, nil
}

func (s *Store) buildFunctionInstances(module *Module, target *ModuleInstance) (rollbackFuncs []func(), err error) {
	prevLen := len(s.Functions)
	rollbackFuncs = append(rollbackFuncs, func() {
		s.Functions = s.Functions[:prevLen]
	})
	for codeIndex, typeIndex := range module.FunctionSection {
		if uint64(typeIndex) >= uint64(len(module.TypeSection)) {
			return rollbackFuncs, fmt.Errorf("function %d: type index out of range", codeIndex)
		}
		if codeIndex >= len(module.CodeSection) {
			return rollbackFuncs, fmt.Errorf("function %d: code index out of range", codeIndex)
		}
		code := module.CodeSection[codeIndex]
		f := &FunctionInstance{
			Signature:      module.TypeSection[typeIndex],
			Body:           code.Body,
			NumLocals:      code.NumLocals,
			LocalTypes:     code.LocalTypes,
			ModuleInstance: target,
		}
		if f.Blocks, err = analyzeBlocks(module, f.Body); err != nil {
			return rollbackFuncs, fmt.Errorf("function %d: %w", codeIndex, err)
		}
		addr := s.addFunction(f)
		target.FunctionAddrs = append(target.FunctionAddrs, addr)
	}
	return rollbackFuncs, nil
}

func (s *Store) buildTableInstances(module *Module, target *ModuleInstance) (rollbackFuncs []func(), err error) {
	prevLen := len(s.Tables)
	rollbackFuncs = append(rollbackFuncs, func() {
		s.Tables = s.Tables[:prevLen]
	})
	for _, tt := range module.TableSection {
		addr := s.addTable(NewTableInstance(tt.ElemType, tt.Limit))
		target.TableAddrs = append(target.TableAddrs, addr)
	}
	for i, elem := range module.ElementSection {
		if uint64(elem.TableIndex) >= uint64(len(target.TableAddrs)) {
			return rollbackFuncs, fmt.Errorf("element segment %d: table index out of range", i)
		}
		v, err := s.executeConstExpression(target, elem.OffsetExpr)
		if err != nil {
			return rollbackFuncs, fmt.Errorf("element segment %d: offset: %w", i, err)
		}
		if v.Type != ValueTypeI32 {
			return rollbackFuncs, fmt.Errorf("element segment %d: offset: %w", i, ErrTypeNotMatch)
		}
		offset := v.I32()
		table := s.Tables[target.TableAddrs[elem.TableIndex]]
		// Segment fit is checked against the declared minimum, before any
		// growth can have happened.
		if !table.CheckAccessBound(offset, uint32(len(elem.Init))) {
			return rollbackFuncs, fmt.Errorf("element segment %d: %w", i, ErrUndefinedElement)
		}
		addrs := make([]uint32, len(elem.Init))
		for j, funcIndex := range elem.Init {
			if uint64(funcIndex) >= uint64(len(target.FunctionAddrs)) {
				return rollbackFuncs, fmt.Errorf("element segment %d: function index %d out of range", i, funcIndex)
			}
			addrs[j] = target.FunctionAddrs[funcIndex]
		}
		table.SetInitList(offset, addrs)
	}
	return rollbackFuncs, nil
}

func (s *Store) buildMemoryInstances(module *Module, target *ModuleInstance) (rollbackFuncs []func(), err error) {
	prevLen := len(s.Memories)
	rollbackFuncs = append(rollbackFuncs, func() {
		s.Memories = s.Memories[:prevLen]
	})
	for _, memSec := range module.MemorySection {
		if len(target.MemoryAddrs) != 0 {
			return rollbackFuncs, fmt.Errorf("multiple memories are not supported")
		}
		addr := s.addMemory(NewMemoryInstance(memSec))
		target.MemoryAddrs = append(target.MemoryAddrs, addr)
	}
	for i, data := range module.DataSection {
		if uint64(data.MemoryIndex) >= uint64(len(target.MemoryAddrs)) {
			return rollbackFuncs, fmt.Errorf("data segment %d: memory index out of range", i)
		}
		v, err := s.executeConstExpression(target, data.OffsetExpr)
		if err != nil {
			return rollbackFuncs, fmt.Errorf("data segment %d: offset: %w", i, err)
		}
		if v.Type != ValueTypeI32 {
			return rollbackFuncs, fmt.Errorf("data segment %d: offset: %w", i, ErrTypeNotMatch)
		}
		mem := s.Memories[target.MemoryAddrs[data.MemoryIndex]]
		if err := mem.WriteBytes(data.Init, uint64(v.I32())); err != nil {
			return rollbackFuncs, fmt.Errorf("data segment %d: %w", i, err)
		}
	}
	return rollbackFuncs, nil
}

func (s *Store) buildExportInstances(module *Module, target *ModuleInstance) error {
	for name, exp := range module.ExportSection {
		index := exp.Desc.Index
		var addr uint32
		switch exp.Desc.Kind {
		case ExportKindFunction:
			if uint64(index) >= uint64(len(target.FunctionAddrs)) {
				return fmt.Errorf("export %q: function index out of range", name)
			}
			addr = target.FunctionAddrs[index]
			if s.Functions[addr].Name == "" {
				s.Functions[addr].Name = name
			}
		case ExportKindTable:
			if uint64(index) >= uint64(len(target.TableAddrs)) {
				return fmt.Errorf("export %q: table index out of range", name)
			}
			addr = target.TableAddrs[index]
		case ExportKindMemory:
			if uint64(index) >= uint64(len(target.MemoryAddrs)) {
				return fmt.Errorf("export %q: memory index out of range", name)
			}
			addr = target.MemoryAddrs[index]
		case ExportKindGlobal:
			if uint64(index) >= uint64(len(target.GlobalAddrs)) {
				return fmt.Errorf("export %q: global index out of range", name)
			}
			addr = target.GlobalAddrs[index]
		default:
			return fmt.Errorf("export %q: invalid kind %d", name, exp.Desc.Kind)
		}
		target.Exports[name] = &ExportInstance{Kind: exp.Desc.Kind, Addr: addr}
	}
	return nil
}

// AddHostFunction publishes a Go function as an importable export of the
// named host module, creating the module instance on first use.
func (s *Store) AddHostFunction(moduleName, funcName string, fn interface{}) error {
	hostFn, sig, err := NewHostFuncFromGo(fn)
	if err != nil {
		return fmt.Errorf("invalid host function %s.%s: %w", moduleName, funcName, err)
	}
	return s.AddHostFunc(moduleName, funcName, sig, hostFn)
}

// AddHostFunc publishes fn, already in adapter form, under the named host
// module.
func (s *Store) AddHostFunc(moduleName, funcName string, sig *FunctionType, fn HostFunc) error {
	m := s.hostModule(moduleName)
	if _, ok := m.Exports[funcName]; ok {
		return fmt.Errorf("export %q already exists in module %q", funcName, moduleName)
	}
	addr := s.addFunction(&FunctionInstance{
		Name:           funcName,
		Signature:      sig,
		ModuleInstance: m,
		HostFn:         fn,
	})
	m.FunctionAddrs = append(m.FunctionAddrs, addr)
	m.Types = append(m.Types, sig)
	m.Exports[funcName] = &ExportInstance{Kind: ExportKindFunction, Addr: addr}
	return nil
}

// AddGlobal publishes a global as an importable export of the named host
// module.
func (s *Store) AddGlobal(moduleName, name string, v Value, mutable bool) error {
	m := s.hostModule(moduleName)
	if _, ok := m.Exports[name]; ok {
		return fmt.Errorf("export %q already exists in module %q", name, moduleName)
	}
	addr := s.addGlobal(NewGlobalInstance(&GlobalType{ValType: v.Type, Mutable: mutable}, v))
	m.GlobalAddrs = append(m.GlobalAddrs, addr)
	m.Exports[name] = &ExportInstance{Kind: ExportKindGlobal, Addr: addr}
	return nil
}

// AddTableInstance publishes a table as an importable export of the named
// host module.
func (s *Store) AddTableInstance(moduleName, name string, min uint32, max *uint32) error {
	m := s.hostModule(moduleName)
	if _, ok := m.Exports[name]; ok {
		return fmt.Errorf("export %q already exists in module %q", name, moduleName)
	}
	addr := s.addTable(NewTableInstance(ElemTypeFuncref, &LimitsType{Min: min, Max: max}))
	m.TableAddrs = append(m.TableAddrs, addr)
	m.Exports[name] = &ExportInstance{Kind: ExportKindTable, Addr: addr}
	return nil
}

// AddMemoryInstance publishes a memory as an importable export of the named
// host module.
func (s *Store) AddMemoryInstance(moduleName, name string, min uint32, max *uint32) error {
	m := s.hostModule(moduleName)
	if _, ok := m.Exports[name]; ok {
		return fmt.Errorf("export %q already exists in module %q", name, moduleName)
	}
	addr := s.addMemory(NewMemoryInstance(&LimitsType{Min: min, Max: max}))
	m.MemoryAddrs = append(m.MemoryAddrs, addr)
	m.Exports[name] = &ExportInstance{Kind: ExportKindMemory, Addr: addr}
	return nil
}

func (s *Store) hostModule(name string) *ModuleInstance {
	if m, ok := s.ModuleInstances[name]; ok {
		return m
	}
	m := &ModuleInstance{Exports: map[string]*ExportInstance{}}
	s.ModuleInstances[name] = m
	return m
}
