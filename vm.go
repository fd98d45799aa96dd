// Package ssvm is the embedder surface of the virtual machine: create a VM,
// register or load modules, and execute exported functions.
package ssvm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sunhaibo2004/SSVM/wasm"
)

// VM owns a store and an interpreter. It is single-threaded cooperative:
// sharing one VM (or its store) across goroutines requires mutual exclusion
// at the call boundary.
type VM struct {
	cfg    *Config
	logger *zap.Logger

	store  *wasm.Store
	interp *wasm.Interpreter

	// pending is the module loaded but not yet instantiated.
	pending *wasm.Module
}

type Option func(*VM)

func WithConfig(cfg *Config) Option {
	return func(vm *VM) { vm.cfg = cfg }
}

func WithLogger(logger *zap.Logger) Option {
	return func(vm *VM) { vm.logger = logger }
}

func NewVM(opts ...Option) (*VM, error) {
	vm := &VM{
		cfg:    NewConfig(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(vm)
	}
	if err := vm.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	vm.store = wasm.NewStore(vm.logger)
	interpOpts := []wasm.InterpreterOption{
		wasm.WithMaxCallDepth(vm.cfg.MaxCallDepth),
		wasm.WithLogger(vm.logger),
	}
	if vm.cfg.TraceInstructions {
		interpOpts = append(interpOpts, wasm.WithInstructionTrace())
	}
	vm.interp = wasm.NewInterpreter(vm.store, interpOpts...)
	return vm, nil
}

// Store exposes the runtime store so embedders can read globals and
// manipulate memories directly.
func (vm *VM) Store() *wasm.Store {
	return vm.store
}

// RegisterModule instantiates module and registers it under name for future
// import resolution.
func (vm *VM) RegisterModule(name string, module *wasm.Module) error {
	inst, err := vm.instantiate(module)
	if err != nil {
		return fmt.Errorf("register %q: %w", name, err)
	}
	return vm.store.RegisterModule(name, inst)
}

// RegisterHostFunction publishes a Go function as an export of the named
// host module.
func (vm *VM) RegisterHostFunction(moduleName, funcName string, fn interface{}) error {
	return vm.store.AddHostFunction(moduleName, funcName, fn)
}

// Load stages a structural module as the anonymous module. Decoding a binary
// into the structural form is the loader's job, not this package's.
func (vm *VM) Load(module *wasm.Module) error {
	if module == nil {
		return fmt.Errorf("nil module")
	}
	vm.pending = module
	return nil
}

// Validate checks the staged module against this VM's preconditions. Full
// static validation happens upstream; this covers only what instantiation
// relies on.
func (vm *VM) Validate() error {
	m := vm.pending
	if m == nil {
		return fmt.Errorf("no module loaded")
	}
	if len(m.FunctionSection) != len(m.CodeSection) {
		return fmt.Errorf("function and code section lengths differ: %d != %d",
			len(m.FunctionSection), len(m.CodeSection))
	}
	for i, tt := range m.TableSection {
		if tt.ElemType != wasm.ElemTypeFuncref && !vm.cfg.ReferenceTypes {
			return fmt.Errorf("table %d: element type 0x%x requires reference-types", i, tt.ElemType)
		}
	}
	return nil
}

// Instantiate builds the staged module into the store's active module,
// running its start function.
func (vm *VM) Instantiate() error {
	if err := vm.Validate(); err != nil {
		return err
	}
	inst, err := vm.instantiate(vm.pending)
	if err != nil {
		return err
	}
	vm.store.ActiveModule = inst
	vm.pending = nil
	return nil
}

func (vm *VM) instantiate(module *wasm.Module) (*wasm.ModuleInstance, error) {
	inst, err := vm.store.Instantiate(module)
	if err != nil {
		return nil, err
	}
	if inst.StartFunctionAddr != nil {
		f, err := vm.store.GetFunction(*inst.StartFunctionAddr)
		if err != nil {
			return nil, err
		}
		if _, err := vm.interp.Call(f); err != nil {
			return nil, fmt.Errorf("start function: %w", err)
		}
	}
	return inst, nil
}

// Execute invokes an exported function of the active module.
func (vm *VM) Execute(field string, params ...wasm.Value) ([]wasm.Value, error) {
	if vm.store.ActiveModule == nil {
		return nil, wasm.ErrNoActiveModule
	}
	return vm.executeOn(vm.store.ActiveModule, field, params)
}

// ExecuteRegistered invokes an exported function of a registered module.
func (vm *VM) ExecuteRegistered(moduleName, field string, params ...wasm.Value) ([]wasm.Value, error) {
	inst, ok := vm.store.FindModule(moduleName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", wasm.ErrUnknownModule, moduleName)
	}
	return vm.executeOn(inst, field, params)
}

func (vm *VM) executeOn(inst *wasm.ModuleInstance, field string, params []wasm.Value) ([]wasm.Value, error) {
	exp, ok := inst.Exports[field]
	if !ok {
		return nil, fmt.Errorf("%w: %s", wasm.ErrExportNotFound, field)
	}
	if exp.Kind != wasm.ExportKindFunction {
		return nil, fmt.Errorf("%w: %s is not a function", wasm.ErrIncompatibleImportType, field)
	}
	f, err := vm.store.GetFunction(exp.Addr)
	if err != nil {
		return nil, err
	}
	return vm.interp.Call(f, params...)
}
