package wasm

import (
	"fmt"
	"reflect"
)

// HostFunc is the uniform contract for native-implemented functions called
// from wasm code. Arguments arrive in declaration order; the function may
// read and write memories and globals through the store. A returned error
// becomes a trap. Host calls run to completion: there is no suspension.
type HostFunc func(args []Value, store *Store, mod *ModuleInstance) ([]Value, error)

// FunctionInstance is either a wasm function (module instance, type, locals
// and body) or a host function (type and callable). Immutable once created.
type FunctionInstance struct {
	Name      string
	Signature *FunctionType

	// wasm function fields.
	ModuleInstance *ModuleInstance
	Body           []byte
	NumLocals      uint32
	LocalTypes     []ValueType
	Blocks         map[uint64]*FunctionBlock

	// host function field.
	HostFn HostFunc
}

func (f *FunctionInstance) IsHost() bool {
	return f.HostFn != nil
}

// FunctionBlock is precomputed control metadata for one block/loop/if
// construct, keyed by the position of its opening opcode.
type FunctionBlock struct {
	StartAt, ElseAt, EndAt uint64
	BlockType              *FunctionType
	BlockTypeBytes         uint64
	IsLoop                 bool
	IsIf                   bool
}

// HostFunctionCallContext is handed to Go functions bridged via
// NewHostFuncFromGo.
type HostFunctionCallContext struct {
	Store  *Store
	Module *ModuleInstance
}

// Memory returns the calling module's memory 0, or nil when it has none.
func (c *HostFunctionCallContext) Memory() *MemoryInstance {
	if c.Module == nil || len(c.Module.MemoryAddrs) == 0 {
		return nil
	}
	return c.Store.Memories[c.Module.MemoryAddrs[0]]
}

// NewHostFuncFromGo bridges a plain Go function into the HostFunc contract.
// fn must be a func whose first parameter is *HostFunctionCallContext and
// whose remaining parameters and results are uint32, uint64, float32 or
// float64, plus an optional trailing error result.
func NewHostFuncFromGo(fn interface{}) (HostFunc, *FunctionType, error) {
	v := reflect.ValueOf(fn)
	tp := v.Type()
	if tp.Kind() != reflect.Func {
		return nil, nil, fmt.Errorf("host function must be a func, got %s", tp.Kind())
	}
	if tp.NumIn() == 0 || tp.In(0) != reflect.TypeOf(&HostFunctionCallContext{}) {
		return nil, nil, fmt.Errorf("host function must take *HostFunctionCallContext as its first parameter")
	}

	sig := &FunctionType{}
	for i := 1; i < tp.NumIn(); i++ {
		vt, err := goTypeAsValueType(tp.In(i))
		if err != nil {
			return nil, nil, fmt.Errorf("parameter %d: %w", i, err)
		}
		sig.InputTypes = append(sig.InputTypes, vt)
	}

	numOut := tp.NumOut()
	returnsErr := numOut > 0 && tp.Out(numOut-1) == reflect.TypeOf((*error)(nil)).Elem()
	if returnsErr {
		numOut--
	}
	for i := 0; i < numOut; i++ {
		vt, err := goTypeAsValueType(tp.Out(i))
		if err != nil {
			return nil, nil, fmt.Errorf("result %d: %w", i, err)
		}
		sig.ReturnTypes = append(sig.ReturnTypes, vt)
	}

	call := func(args []Value, store *Store, mod *ModuleInstance) ([]Value, error) {
		if len(args) != len(sig.InputTypes) {
			return nil, ErrCallFunctionError
		}
		in := make([]reflect.Value, 1+len(args))
		in[0] = reflect.ValueOf(&HostFunctionCallContext{Store: store, Module: mod})
		for i, arg := range args {
			if arg.Type != sig.InputTypes[i] {
				return nil, ErrCallFunctionError
			}
			in[i+1] = valueAsReflect(tp.In(i+1), arg)
		}
		out := v.Call(in)
		if returnsErr {
			if errv := out[len(out)-1]; !errv.IsNil() {
				return nil, errv.Interface().(error)
			}
			out = out[:len(out)-1]
		}
		rets := make([]Value, len(out))
		for i, o := range out {
			rets[i] = reflectAsValue(o)
		}
		return rets, nil
	}
	return call, sig, nil
}

func goTypeAsValueType(tp reflect.Type) (ValueType, error) {
	switch tp.Kind() {
	case reflect.Uint32:
		return ValueTypeI32, nil
	case reflect.Uint64:
		return ValueTypeI64, nil
	case reflect.Float32:
		return ValueTypeF32, nil
	case reflect.Float64:
		return ValueTypeF64, nil
	}
	return 0, fmt.Errorf("unsupported host value kind %s", tp.Kind())
}

func valueAsReflect(tp reflect.Type, v Value) reflect.Value {
	out := reflect.New(tp).Elem()
	switch tp.Kind() {
	case reflect.Uint32:
		out.SetUint(uint64(v.I32()))
	case reflect.Uint64:
		out.SetUint(v.I64())
	case reflect.Float32:
		out.SetFloat(float64(v.F32()))
	case reflect.Float64:
		out.SetFloat(v.F64())
	}
	return out
}

func reflectAsValue(v reflect.Value) Value {
	switch v.Kind() {
	case reflect.Uint32:
		return NewValueI32(uint32(v.Uint()))
	case reflect.Uint64:
		return NewValueI64(v.Uint())
	case reflect.Float32:
		return NewValueF32(float32(v.Float()))
	default:
		return NewValueF64(v.Float())
	}
}
