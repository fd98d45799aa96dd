package wasm

// Structural module types. A module arrives here already decoded and
// validated; this package never touches the binary format except for
// instruction immediates inside function bodies.

type Module struct {
	TypeSection     []*FunctionType
	ImportSection   []*ImportSegment
	FunctionSection []uint32
	TableSection    []*TableType
	MemorySection   []*MemoryType
	GlobalSection   []*GlobalSegment
	ExportSection   map[string]*ExportSegment
	StartSection    *uint32
	ElementSection  []*ElementSegment
	CodeSection     []*CodeSegment
	DataSection     []*DataSegment
}

type FunctionType struct {
	InputTypes  []ValueType
	ReturnTypes []ValueType
}

func (f *FunctionType) String() (ret string) {
	for _, t := range f.InputTypes {
		ret += t.String()
	}
	if len(f.InputTypes) == 0 {
		ret += "null"
	}
	ret += "_"
	for _, t := range f.ReturnTypes {
		ret += t.String()
	}
	if len(f.ReturnTypes) == 0 {
		ret += "null"
	}
	return
}

func hasSameSignature(a []ValueType, b []ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i, v := range a {
		if v != b[i] {
			return false
		}
	}
	return true
}

type LimitsType struct {
	Min uint32
	Max *uint32
}

type TableType struct {
	ElemType byte
	Limit    *LimitsType
}

// ElemTypeFuncref is the only element type in WebAssembly 1.0.
const ElemTypeFuncref byte = 0x70

type MemoryType = LimitsType

type GlobalType struct {
	ValType ValueType
	Mutable bool
}

type GlobalSegment struct {
	Type *GlobalType
	Init *ConstantExpression
}

// ConstantExpression is a decoded init expression: the single opcode and its
// immediate bytes.
type ConstantExpression struct {
	OptCode OptCode
	Data    []byte
}

type ImportKind byte

const (
	ImportKindFunction ImportKind = 0x00
	ImportKindTable    ImportKind = 0x01
	ImportKindMemory   ImportKind = 0x02
	ImportKindGlobal   ImportKind = 0x03
)

type ImportSegment struct {
	Module string
	Name   string
	Desc   *ImportDesc
}

type ImportDesc struct {
	Kind ImportKind

	TypeIndexPtr  *uint32
	TableTypePtr  *TableType
	MemTypePtr    *MemoryType
	GlobalTypePtr *GlobalType
}

type ExportKind byte

const (
	ExportKindFunction ExportKind = 0x00
	ExportKindTable    ExportKind = 0x01
	ExportKindMemory   ExportKind = 0x02
	ExportKindGlobal   ExportKind = 0x03
)

type ExportSegment struct {
	Name string
	Desc *ExportDesc
}

type ExportDesc struct {
	Kind  ExportKind
	Index uint32
}

type ElementSegment struct {
	TableIndex uint32
	OffsetExpr *ConstantExpression
	Init       []uint32
}

type CodeSegment struct {
	NumLocals uint32
	// LocalTypes holds one entry per local, already expanded from the
	// run-length encoding.
	LocalTypes []ValueType
	Body       []byte
}

type DataSegment struct {
	MemoryIndex uint32
	OffsetExpr  *ConstantExpression
	Init        []byte
}
