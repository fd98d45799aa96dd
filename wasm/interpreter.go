package wasm

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/sunhaibo2004/SSVM/wasm/leb128"
)

const defaultMaxCallDepth = 512

// ErrTrap wraps every error escaping an execution, so embedders can match
// any trap with a single errors.Is.
var ErrTrap = errors.New("trap")

type instructionHandler func(it *Interpreter) error

// Interpreter drives the stack manager through instruction sequences,
// resolving indices against the current frame's module instance. It assumes
// exclusive access to the store for the duration of any one Call.
type Interpreter struct {
	Store *Store
	Stack *StackManager

	// frame caches the current activation; identical to Stack.CurrentFrame.
	frame *Frame

	maxCallDepth int
	logger       *zap.Logger
	trace        bool
}

type InterpreterOption func(*Interpreter)

// WithMaxCallDepth bounds nested call depth; exceeding it traps with
// ErrCallStackOverflow.
func WithMaxCallDepth(n int) InterpreterOption {
	return func(it *Interpreter) { it.maxCallDepth = n }
}

func WithLogger(logger *zap.Logger) InterpreterOption {
	return func(it *Interpreter) { it.logger = logger }
}

// WithInstructionTrace logs every dispatched instruction at Debug level.
func WithInstructionTrace() InterpreterOption {
	return func(it *Interpreter) { it.trace = true }
}

func NewInterpreter(store *Store, opts ...InterpreterOption) *Interpreter {
	it := &Interpreter{
		Store:        store,
		Stack:        NewStackManager(),
		maxCallDepth: defaultMaxCallDepth,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(it)
	}
	return it
}

// Call invokes f with args and returns its results. A wrong argument count or
// type is reported as is, before anything is pushed. Any failure during the
// execution itself is a trap: the stack is torn down and the error is
// surfaced wrapped in ErrTrap.
func (it *Interpreter) Call(f *FunctionInstance, args ...Value) ([]Value, error) {
	if len(args) != len(f.Signature.InputTypes) {
		return nil, ErrInvalidArgumentCount
	}
	for i, arg := range args {
		if arg.Type != f.Signature.InputTypes[i] {
			return nil, fmt.Errorf("argument %d: %w", i, ErrTypeNotMatch)
		}
	}
	for _, arg := range args {
		if err := it.Stack.PushValue(arg); err != nil {
			return nil, err
		}
	}

	baseFrames := it.Stack.FrameCount()
	if err := it.invokeFunction(f); err != nil {
		it.abort(err)
		return nil, fmt.Errorf("%w: %w", ErrTrap, err)
	}
	if err := it.run(baseFrames); err != nil {
		it.abort(err)
		return nil, fmt.Errorf("%w: %w", ErrTrap, err)
	}

	rets := make([]Value, len(f.Signature.ReturnTypes))
	for i := range rets {
		v, err := it.Stack.PopValue()
		if err != nil {
			it.abort(err)
			return nil, fmt.Errorf("%w: %w", ErrTrap, err)
		}
		rets[len(rets)-1-i] = v
	}
	return rets, nil
}

// abort tears the stack down after a trap. The VM is about to be reset or
// discarded, so no state is preserved.
func (it *Interpreter) abort(err error) {
	it.logger.Warn("execution trapped", zap.Error(err))
	it.Stack.Reset()
	it.frame = nil
}

func (it *Interpreter) run(baseFrames int) error {
	for it.Stack.FrameCount() > baseFrames {
		frame := it.frame
		op := frame.Func.Body[frame.PC]
		if it.trace {
			it.logger.Debug("dispatch",
				zap.Uint64("pc", frame.PC),
				zap.String("op", fmt.Sprintf("0x%02x", op)),
				zap.Int("stack", it.Stack.Len()),
			)
		}
		h := dispatch[op]
		if h == nil {
			return fmt.Errorf("unknown opcode 0x%02x at 0x%x", op, frame.PC)
		}
		if err := h(it); err != nil {
			return err
		}
	}
	return nil
}

func (it *Interpreter) invokeFunction(f *FunctionInstance) error {
	if f.IsHost() {
		return it.callHost(f)
	}
	return it.enterFunction(f)
}

// enterFunction pops f's arguments off the stack into a fresh frame's
// locals, then pushes the frame and the synthetic function-body label.
func (it *Interpreter) enterFunction(f *FunctionInstance) error {
	if it.Stack.FrameCount() >= it.maxCallDepth {
		return ErrCallStackOverflow
	}
	numArgs := len(f.Signature.InputTypes)
	locals := make([]Value, numArgs+int(f.NumLocals))
	for i := numArgs - 1; i >= 0; i-- {
		v, err := it.Stack.PopValue()
		if err != nil {
			return err
		}
		locals[i] = v
	}
	for i := 0; i < int(f.NumLocals); i++ {
		locals[numArgs+i] = Value{Type: f.LocalTypes[i]}
	}

	arity := len(f.Signature.ReturnTypes)
	frame := &Frame{
		Module: f.ModuleInstance,
		Func:   f,
		Locals: locals,
		Arity:  arity,
	}
	it.Stack.PushFrame(frame)
	// The body label's continuation is the body's closing end; branching to
	// it lands on that end, whose handler finishes the activation.
	it.Stack.PushLabel(&Label{
		Arity:          arity,
		ResultArity:    arity,
		ContinuationPC: uint64(len(f.Body)) - 1,
	})
	it.frame = frame
	return nil
}

// leaveFunction closes the current activation, leaving its return values on
// the caller's stack.
func (it *Interpreter) leaveFunction() error {
	if _, err := it.Stack.ExitFrame(); err != nil {
		return err
	}
	if f, err := it.Stack.CurrentFrame(); err == nil {
		it.frame = f
	} else {
		it.frame = nil
	}
	return nil
}

// callHost pops the declared argument count, bridges to the host function
// adapter, and pushes the returned values.
func (it *Interpreter) callHost(f *FunctionInstance) error {
	numArgs := len(f.Signature.InputTypes)
	args := make([]Value, numArgs)
	for i := numArgs - 1; i >= 0; i-- {
		v, err := it.Stack.PopValue()
		if err != nil {
			return err
		}
		args[i] = v
	}

	callingModule := f.ModuleInstance
	if it.frame != nil {
		callingModule = it.frame.Module
	}
	rets, err := f.HostFn(args, it.Store, callingModule)
	if err != nil {
		return fmt.Errorf("host function %s: %w", f.Name, err)
	}
	if len(rets) != len(f.Signature.ReturnTypes) {
		return fmt.Errorf("host function %s: %w", f.Name, ErrCallFunctionError)
	}
	for i, ret := range rets {
		if ret.Type != f.Signature.ReturnTypes[i] {
			return fmt.Errorf("host function %s: %w", f.Name, ErrCallFunctionError)
		}
		if err := it.Stack.PushValue(ret); err != nil {
			return err
		}
	}
	return nil
}

func (it *Interpreter) currentMemory() (*MemoryInstance, error) {
	if len(it.frame.Module.MemoryAddrs) == 0 {
		return nil, ErrMemoryOutOfBounds
	}
	return it.Store.Memories[it.frame.Module.MemoryAddrs[0]], nil
}

// fetchUint32 decodes the LEB128 immediate at the current PC and advances
// past it.
func (it *Interpreter) fetchUint32() (uint32, error) {
	frame := it.frame
	v, num, err := leb128.DecodeUint32(frame.Func.Body[frame.PC:])
	if err != nil {
		return 0, err
	}
	frame.PC += num
	return v, nil
}

func (it *Interpreter) fetchInt32() (int32, error) {
	frame := it.frame
	v, num, err := leb128.DecodeInt32(frame.Func.Body[frame.PC:])
	if err != nil {
		return 0, err
	}
	frame.PC += num
	return v, nil
}

func (it *Interpreter) fetchInt64() (int64, error) {
	frame := it.frame
	v, num, err := leb128.DecodeInt64(frame.Func.Body[frame.PC:])
	if err != nil {
		return 0, err
	}
	frame.PC += num
	return v, nil
}

// fetchMemArg consumes the opcode and its alignment and offset immediates,
// returning the static offset.
func (it *Interpreter) fetchMemArg() (uint32, error) {
	it.frame.PC++
	if _, err := it.fetchUint32(); err != nil { // alignment hint, unused
		return 0, err
	}
	return it.fetchUint32()
}

var dispatch [256]instructionHandler

func register(op OptCode, h instructionHandler) {
	dispatch[op] = h
}
