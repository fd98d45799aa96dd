package wasm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobalInstanceSet(t *testing.T) {
	g := NewGlobalInstance(&GlobalType{ValType: ValueTypeI64, Mutable: true}, NewValueI64(1))
	require.NoError(t, g.Set(NewValueI64(2)))
	assert.Equal(t, uint64(2), g.Get().I64())

	assert.ErrorIs(t, g.Set(NewValueI32(3)), ErrTypeNotMatch)
	assert.Equal(t, uint64(2), g.Get().I64())
}

func TestGlobalInstanceImmutable(t *testing.T) {
	g := NewGlobalInstance(&GlobalType{ValType: ValueTypeI32}, NewValueI32(7))
	assert.ErrorIs(t, g.Set(NewValueI32(8)), ErrImmutableGlobal)
	// The value is unchanged after the rejected write.
	assert.Equal(t, uint32(7), g.Get().I32())
}
