package wasm

// GlobalInstance holds a single value and its mutability.
type GlobalInstance struct {
	Type *GlobalType
	val  Value
}

func NewGlobalInstance(t *GlobalType, v Value) *GlobalInstance {
	return &GlobalInstance{Type: t, val: v}
}

func (g *GlobalInstance) Get() Value {
	return g.val
}

// Set rejects writes to immutable globals, leaving the value unchanged.
func (g *GlobalInstance) Set(v Value) error {
	if !g.Type.Mutable {
		return ErrImmutableGlobal
	}
	if v.Type != g.Type.ValType {
		return ErrTypeNotMatch
	}
	g.val = v
	return nil
}
