package wasm

import "errors"

// Errors surfaced to the embedder as traps. Validation is expected to rule
// out ErrStackEmpty and ErrStackWrongEntry for well-formed modules; observing
// either at runtime indicates a VM bug.
var (
	ErrStackEmpty      = errors.New("stack empty")
	ErrStackWrongEntry = errors.New("wrong entry type on stack top")
	ErrNoFrame         = errors.New("no frame on stack")
	ErrNoLabel         = errors.New("no label on stack")

	ErrTypeNotMatch               = errors.New("type not match")
	ErrUndefinedElement           = errors.New("undefined element")
	ErrUninitializedElement       = errors.New("uninitialized element")
	ErrIndirectCallTypeMismatch   = errors.New("indirect call type mismatch")
	ErrMemoryOutOfBounds          = errors.New("out of bounds memory access")
	ErrDivideByZero               = errors.New("integer divide by zero")
	ErrIntegerOverflow            = errors.New("integer overflow")
	ErrInvalidConversionToInteger = errors.New("invalid conversion to integer")
	ErrCallFunctionError          = errors.New("host function call error")
	ErrIncompatibleImportType     = errors.New("incompatible import type")
	ErrUnreachable                = errors.New("unreachable executed")
	ErrCallStackOverflow          = errors.New("call stack exhausted")

	ErrDuplicateModuleName  = errors.New("module name already registered")
	ErrUnknownModule        = errors.New("module not registered")
	ErrExportNotFound       = errors.New("export not found")
	ErrImmutableGlobal      = errors.New("write to immutable global")
	ErrInvalidArgumentCount = errors.New("invalid number of arguments")
	ErrNoActiveModule       = errors.New("no active module instantiated")
)
