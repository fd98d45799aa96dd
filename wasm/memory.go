package wasm

import "encoding/binary"

const (
	// PageSize is the unit of linear memory growth.
	PageSize uint64 = 65536
	// MaxMemoryPages caps memory growth even when the declared maximum is
	// larger or absent.
	MaxMemoryPages uint32 = 65536
)

// MemoryInstance is a page-granular linear byte array. All I/O is
// bounds-checked; integer access is little-endian regardless of host.
type MemoryInstance struct {
	Min uint32
	Max *uint32

	buffer []byte
}

func NewMemoryInstance(limit *LimitsType) *MemoryInstance {
	return &MemoryInstance{
		Min:    limit.Min,
		Max:    limit.Max,
		buffer: make([]byte, uint64(limit.Min)*PageSize),
	}
}

// PageCount returns the current size in pages.
func (m *MemoryInstance) PageCount() uint32 {
	return uint32(uint64(len(m.buffer)) / PageSize)
}

// ByteSize returns the current size in bytes.
func (m *MemoryInstance) ByteSize() uint64 {
	return uint64(len(m.buffer))
}

// Grow appends pages zero-filled pages and returns the previous page count,
// or false when the new size would exceed min(declared max, MaxMemoryPages).
func (m *MemoryInstance) Grow(pages uint32) (uint32, bool) {
	capped := MaxMemoryPages
	if m.Max != nil && *m.Max < capped {
		capped = *m.Max
	}
	prev := m.PageCount()
	if uint64(prev)+uint64(pages) > uint64(capped) {
		return 0, false
	}
	m.buffer = append(m.buffer, make([]byte, uint64(pages)*PageSize)...)
	return prev, true
}

func (m *MemoryInstance) checkAccess(offset uint64, length uint64) bool {
	return offset+length <= uint64(len(m.buffer))
}

// ReadBytes copies length bytes starting at offset into dest. On failure no
// bytes are written.
func (m *MemoryInstance) ReadBytes(dest []byte, offset uint64, length uint64) error {
	if uint64(len(dest)) < length || !m.checkAccess(offset, length) {
		return ErrMemoryOutOfBounds
	}
	copy(dest, m.buffer[offset:offset+length])
	return nil
}

// WriteBytes copies src into memory starting at offset.
func (m *MemoryInstance) WriteBytes(src []byte, offset uint64) error {
	if !m.checkAccess(offset, uint64(len(src))) {
		return ErrMemoryOutOfBounds
	}
	copy(m.buffer[offset:], src)
	return nil
}

func (m *MemoryInstance) ReadByte(offset uint64) (byte, error) {
	if !m.checkAccess(offset, 1) {
		return 0, ErrMemoryOutOfBounds
	}
	return m.buffer[offset], nil
}

func (m *MemoryInstance) WriteByte(offset uint64, v byte) error {
	if !m.checkAccess(offset, 1) {
		return ErrMemoryOutOfBounds
	}
	m.buffer[offset] = v
	return nil
}

func (m *MemoryInstance) ReadUint16(offset uint64) (uint16, error) {
	if !m.checkAccess(offset, 2) {
		return 0, ErrMemoryOutOfBounds
	}
	return binary.LittleEndian.Uint16(m.buffer[offset:]), nil
}

func (m *MemoryInstance) WriteUint16(offset uint64, v uint16) error {
	if !m.checkAccess(offset, 2) {
		return ErrMemoryOutOfBounds
	}
	binary.LittleEndian.PutUint16(m.buffer[offset:], v)
	return nil
}

func (m *MemoryInstance) ReadUint32(offset uint64) (uint32, error) {
	if !m.checkAccess(offset, 4) {
		return 0, ErrMemoryOutOfBounds
	}
	return binary.LittleEndian.Uint32(m.buffer[offset:]), nil
}

func (m *MemoryInstance) WriteUint32(offset uint64, v uint32) error {
	if !m.checkAccess(offset, 4) {
		return ErrMemoryOutOfBounds
	}
	binary.LittleEndian.PutUint32(m.buffer[offset:], v)
	return nil
}

func (m *MemoryInstance) ReadUint64(offset uint64) (uint64, error) {
	if !m.checkAccess(offset, 8) {
		return 0, ErrMemoryOutOfBounds
	}
	return binary.LittleEndian.Uint64(m.buffer[offset:]), nil
}

func (m *MemoryInstance) WriteUint64(offset uint64, v uint64) error {
	if !m.checkAccess(offset, 8) {
		return ErrMemoryOutOfBounds
	}
	binary.LittleEndian.PutUint64(m.buffer[offset:], v)
	return nil
}
