package wasm

const initialStackHeight = 1024

type entryKind byte

const (
	entryValue entryKind = iota
	entryLabel
	entryFrame
)

// stackEntry is a tagged union. Values are stored inline since pushes are on
// the hot path; frames carry variable-length locals and stay behind a
// pointer, labels likewise.
type stackEntry struct {
	kind  entryKind
	value Value
	label *Label
	frame *Frame
}

// Label marks a control-flow boundary on the stack.
//
// Arity is the number of values a branch to this label preserves (block and
// if: result count; loop: parameter count, zero in WebAssembly 1.0).
// ResultArity is the number of values that survive the construct's `end`.
// ContinuationPC is where a branch lands: for block/if the position of the
// closing `end` (whose handler discards the label), for loop the first
// instruction of the body (the label itself stays for the next iteration),
// for the function-body label the final `end` of the body.
type Label struct {
	Arity          int
	ResultArity    int
	ContinuationPC uint64
	IsLoop         bool
}

// Frame is the activation record of one call.
type Frame struct {
	Module *ModuleInstance
	Func   *FunctionInstance
	Locals []Value
	Arity  int
	PC     uint64

	// labelBase is the label count at entry; the end handler compares the
	// live label count against it to detect the end of the function body.
	labelBase int
}

// StackManager holds one heterogeneous stack of values, labels and frames,
// plus two index sidecars recording the positions of live frames and labels
// so the current frame and the n-th enclosing label resolve in O(1).
type StackManager struct {
	stack    []stackEntry
	frameIdx []int
	labelIdx []int

	// scratch buffer reused by unwinds to hold preserved values.
	saved []Value
}

func NewStackManager() *StackManager {
	return &StackManager{
		stack:    make([]stackEntry, 0, initialStackHeight),
		frameIdx: make([]int, 0, 16),
		labelIdx: make([]int, 0, 64),
	}
}

func (s *StackManager) Len() int {
	return len(s.stack)
}

// FrameCount returns the number of live frames.
func (s *StackManager) FrameCount() int {
	return len(s.frameIdx)
}

// LabelCount returns the number of live labels.
func (s *StackManager) LabelCount() int {
	return len(s.labelIdx)
}

// PushValue appends a value entry. Only i32, i64, f32 and f64 are accepted.
func (s *StackManager) PushValue(v Value) error {
	if !v.Type.valid() {
		return ErrTypeNotMatch
	}
	s.stack = append(s.stack, stackEntry{kind: entryValue, value: v})
	return nil
}

func (s *StackManager) PushLabel(l *Label) {
	s.labelIdx = append(s.labelIdx, len(s.stack))
	s.stack = append(s.stack, stackEntry{kind: entryLabel, label: l})
}

func (s *StackManager) PushFrame(f *Frame) {
	f.labelBase = len(s.labelIdx)
	s.frameIdx = append(s.frameIdx, len(s.stack))
	s.stack = append(s.stack, stackEntry{kind: entryFrame, frame: f})
}

// Pop removes the top entry regardless of kind, maintaining the sidecars.
func (s *StackManager) Pop() error {
	if len(s.stack) == 0 {
		return ErrStackEmpty
	}
	s.dropTop()
	return nil
}

func (s *StackManager) dropTop() {
	top := len(s.stack) - 1
	switch s.stack[top].kind {
	case entryFrame:
		s.frameIdx = s.frameIdx[:len(s.frameIdx)-1]
	case entryLabel:
		s.labelIdx = s.labelIdx[:len(s.labelIdx)-1]
	}
	s.stack[top] = stackEntry{}
	s.stack = s.stack[:top]
}

// PopValue removes and returns the top entry, which must be a value.
func (s *StackManager) PopValue() (Value, error) {
	if len(s.stack) == 0 {
		return Value{}, ErrStackEmpty
	}
	top := &s.stack[len(s.stack)-1]
	if top.kind != entryValue {
		return Value{}, ErrStackWrongEntry
	}
	v := top.value
	s.stack = s.stack[:len(s.stack)-1]
	return v, nil
}

// PopLabel removes and returns the top entry, which must be a label.
func (s *StackManager) PopLabel() (*Label, error) {
	if len(s.stack) == 0 {
		return nil, ErrStackEmpty
	}
	top := &s.stack[len(s.stack)-1]
	if top.kind != entryLabel {
		return nil, ErrStackWrongEntry
	}
	l := top.label
	s.dropTop()
	return l, nil
}

// PopFrame removes and returns the top entry, which must be a frame.
func (s *StackManager) PopFrame() (*Frame, error) {
	if len(s.stack) == 0 {
		return nil, ErrStackEmpty
	}
	top := &s.stack[len(s.stack)-1]
	if top.kind != entryFrame {
		return nil, ErrStackWrongEntry
	}
	f := top.frame
	s.dropTop()
	return f, nil
}

// PeekValue returns the top entry without removing it.
func (s *StackManager) PeekValue() (Value, error) {
	if len(s.stack) == 0 {
		return Value{}, ErrStackEmpty
	}
	top := &s.stack[len(s.stack)-1]
	if top.kind != entryValue {
		return Value{}, ErrStackWrongEntry
	}
	return top.value, nil
}

// CurrentFrame returns the innermost live frame.
func (s *StackManager) CurrentFrame() (*Frame, error) {
	if len(s.frameIdx) == 0 {
		return nil, ErrNoFrame
	}
	return s.stack[s.frameIdx[len(s.frameIdx)-1]].frame, nil
}

// LabelAt returns the depth-th enclosing label, 0 being the innermost.
func (s *StackManager) LabelAt(depth uint32) (*Label, error) {
	if uint64(depth) >= uint64(len(s.labelIdx)) {
		return nil, ErrNoLabel
	}
	return s.stack[s.labelIdx[len(s.labelIdx)-1-int(depth)]].label, nil
}

// saveTopValues moves the top n value entries into the scratch buffer,
// preserving their stack order.
func (s *StackManager) saveTopValues(n int) error {
	s.saved = s.saved[:0]
	if n == 0 {
		return nil
	}
	if len(s.stack) < n {
		return ErrStackEmpty
	}
	base := len(s.stack) - n
	for i := base; i < len(s.stack); i++ {
		if s.stack[i].kind != entryValue {
			return ErrStackWrongEntry
		}
		s.saved = append(s.saved, s.stack[i].value)
	}
	s.stack = s.stack[:base]
	return nil
}

func (s *StackManager) restoreSavedValues() {
	for _, v := range s.saved {
		s.stack = append(s.stack, stackEntry{kind: entryValue, value: v})
	}
	s.saved = s.saved[:0]
}

// truncate drops stack entries down to length n, trimming both sidecars to
// match.
func (s *StackManager) truncate(n int) {
	for i := len(s.frameIdx) - 1; i >= 0 && s.frameIdx[i] >= n; i-- {
		s.frameIdx = s.frameIdx[:i]
	}
	for i := len(s.labelIdx) - 1; i >= 0 && s.labelIdx[i] >= n; i-- {
		s.labelIdx = s.labelIdx[:i]
	}
	for i := n; i < len(s.stack); i++ {
		s.stack[i] = stackEntry{}
	}
	s.stack = s.stack[:n]
}

// UnwindToLabel truncates the stack back to (but keeping) the depth-th
// enclosing label, preserving the top arity-many values above it.
func (s *StackManager) UnwindToLabel(depth uint32) (*Label, error) {
	l, err := s.LabelAt(depth)
	if err != nil {
		return nil, err
	}
	if err := s.saveTopValues(l.Arity); err != nil {
		return nil, err
	}
	pos := s.labelIdx[len(s.labelIdx)-1-int(depth)]
	// Truncating to pos+1 keeps the target label and its sidecar entry.
	s.truncate(pos + 1)
	s.restoreSavedValues()
	return l, nil
}

// ExitLabel removes the innermost label, preserving the ResultArity-many
// values that fell through the construct.
func (s *StackManager) ExitLabel() (*Label, error) {
	l, err := s.LabelAt(0)
	if err != nil {
		return nil, err
	}
	if err := s.saveTopValues(l.ResultArity); err != nil {
		return nil, err
	}
	pos := s.labelIdx[len(s.labelIdx)-1]
	s.truncate(pos)
	s.restoreSavedValues()
	return l, nil
}

// ExitFrame removes the current frame and everything above it, preserving
// the frame's return-arity-many values for the caller.
func (s *StackManager) ExitFrame() (*Frame, error) {
	f, err := s.CurrentFrame()
	if err != nil {
		return nil, err
	}
	if err := s.saveTopValues(f.Arity); err != nil {
		return nil, err
	}
	pos := s.frameIdx[len(s.frameIdx)-1]
	s.truncate(pos)
	s.restoreSavedValues()
	return f, nil
}

// Reset drops all entries. Used when a trap tears the execution down.
func (s *StackManager) Reset() {
	s.truncate(0)
}
