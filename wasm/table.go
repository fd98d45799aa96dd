package wasm

// MaxTableSize caps table growth even when the declared maximum is larger or
// absent.
const MaxTableSize uint32 = 65536

// TableInstance holds a dense sequence of function-reference slots. The
// backing slice may relocate on Grow; native code holding a raw pointer into
// it registers a relocation hook via SetRelocationHook.
type TableInstance struct {
	ElemType byte
	Min      uint32
	Max      *uint32

	elem []TableElem

	// relocationHook, if set, is invoked with the new backing slice whenever
	// Grow reallocates it.
	relocationHook func([]TableElem)
}

func NewTableInstance(elemType byte, limit *LimitsType) *TableInstance {
	return &TableInstance{
		ElemType: elemType,
		Min:      limit.Min,
		Max:      limit.Max,
		elem:     make([]TableElem, limit.Min),
	}
}

// Size returns the current slot count.
func (t *TableInstance) Size() uint32 {
	return uint32(len(t.elem))
}

// GetElement returns the function address stored at idx.
func (t *TableInstance) GetElement(idx uint32) (uint32, error) {
	if idx >= uint32(len(t.elem)) {
		return 0, ErrUndefinedElement
	}
	if !t.elem[idx].Initialized {
		return 0, ErrUninitializedElement
	}
	return t.elem[idx].FunctionAddr, nil
}

// CheckAccessBound reports whether [offset, offset+length) fits within the
// declared minimum size. Element segment offsets are validated against the
// minimum at instantiation time, before any growth.
func (t *TableInstance) CheckAccessBound(offset, length uint32) bool {
	return uint64(offset)+uint64(length) <= uint64(t.Min)
}

// SetInitList overwrites a contiguous run of slots starting at offset with
// function addresses. The caller has already checked the run fits.
func (t *TableInstance) SetInitList(offset uint32, addrs []uint32) {
	for i, addr := range addrs {
		t.elem[offset+uint32(i)] = TableElem{Initialized: true, FunctionAddr: addr}
	}
}

// Grow appends count uninitialized slots. It returns false without side
// effect when the new size would exceed min(declared max, MaxTableSize).
func (t *TableInstance) Grow(count uint32) bool {
	capped := MaxTableSize
	if t.Max != nil && *t.Max < capped {
		capped = *t.Max
	}
	newSize := uint64(len(t.elem)) + uint64(count)
	if newSize > uint64(capped) {
		return false
	}
	t.elem = append(t.elem, make([]TableElem, count)...)
	if t.relocationHook != nil {
		t.relocationHook(t.elem)
	}
	return true
}

// SetRelocationHook registers fn to be called with the backing slice after
// every reallocation, and calls it once immediately.
func (t *TableInstance) SetRelocationHook(fn func([]TableElem)) {
	t.relocationHook = fn
	if fn != nil {
		fn(t.elem)
	}
}
