package wasm

// ModuleInstance maps a module's local index spaces onto store addresses.
// Immutable after instantiation. It carries addresses, never instance
// pointers, so frames can hold a cheap reference without forming cycles.
type ModuleInstance struct {
	Types []*FunctionType

	FunctionAddrs []uint32
	TableAddrs    []uint32
	MemoryAddrs   []uint32
	GlobalAddrs   []uint32

	Exports map[string]*ExportInstance

	// StartFunctionAddr, if set, names the function the embedder must run
	// before the instance is used.
	StartFunctionAddr *uint32
}

// ExportInstance names one exported entity and its store address.
type ExportInstance struct {
	Kind ExportKind
	Addr uint32
}

// FindExport resolves a named export of the given kind.
func (m *ModuleInstance) FindExport(name string, kind ExportKind) (uint32, error) {
	exp, ok := m.Exports[name]
	if !ok || exp.Kind != kind {
		return 0, ErrExportNotFound
	}
	return exp.Addr, nil
}
