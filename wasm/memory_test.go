package wasm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryInstanceGrow(t *testing.T) {
	mem := NewMemoryInstance(&LimitsType{Min: 1, Max: uint32Ptr(3)})
	assert.Equal(t, uint32(1), mem.PageCount())
	assert.Equal(t, PageSize, mem.ByteSize())

	prev, ok := mem.Grow(2)
	require.True(t, ok)
	assert.Equal(t, uint32(1), prev)
	assert.Equal(t, uint32(3), mem.PageCount())

	_, ok = mem.Grow(1)
	assert.False(t, ok)
	assert.Equal(t, uint32(3), mem.PageCount())
}

func TestMemoryInstanceGrowPreservesData(t *testing.T) {
	mem := NewMemoryInstance(&LimitsType{Min: 1})
	require.NoError(t, mem.WriteUint32(100, 0xdeadbeef))

	_, ok := mem.Grow(1)
	require.True(t, ok)
	v, err := mem.ReadUint32(100)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xdeadbeef), v)
}

func TestMemoryInstanceBounds(t *testing.T) {
	mem := NewMemoryInstance(&LimitsType{Min: 1})
	size := mem.ByteSize()

	assert.NoError(t, mem.WriteByte(size-1, 1))
	assert.ErrorIs(t, mem.WriteByte(size, 1), ErrMemoryOutOfBounds)
	assert.ErrorIs(t, mem.WriteUint32(size-3, 1), ErrMemoryOutOfBounds)
	assert.ErrorIs(t, mem.WriteUint64(size-7, 1), ErrMemoryOutOfBounds)

	_, err := mem.ReadByte(size)
	assert.ErrorIs(t, err, ErrMemoryOutOfBounds)
	_, err = mem.ReadUint16(size - 1)
	assert.ErrorIs(t, err, ErrMemoryOutOfBounds)
}

func TestMemoryInstanceReadBytesFailureWritesNothing(t *testing.T) {
	mem := NewMemoryInstance(&LimitsType{Min: 1})
	dest := []byte{0xaa, 0xaa, 0xaa}
	err := mem.ReadBytes(dest, mem.ByteSize()-2, 3)
	assert.ErrorIs(t, err, ErrMemoryOutOfBounds)
	assert.Equal(t, []byte{0xaa, 0xaa, 0xaa}, dest)
}

func TestMemoryInstanceLittleEndian(t *testing.T) {
	mem := NewMemoryInstance(&LimitsType{Min: 1})
	require.NoError(t, mem.WriteUint32(0, 0x01020304))

	b := make([]byte, 4)
	require.NoError(t, mem.ReadBytes(b, 0, 4))
	assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, b)

	require.NoError(t, mem.WriteUint64(8, 0x1122334455667788))
	v16, err := mem.ReadUint16(8)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x7788), v16)
}

func TestMemoryInstanceWriteBytes(t *testing.T) {
	mem := NewMemoryInstance(&LimitsType{Min: 1})
	require.NoError(t, mem.WriteBytes([]byte{1, 2, 3}, 10))
	v, err := mem.ReadUint16(10)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0201), v)

	assert.ErrorIs(t, mem.WriteBytes([]byte{1, 2, 3}, mem.ByteSize()-2), ErrMemoryOutOfBounds)
}
