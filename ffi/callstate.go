package ffi

// Register shadow sizes sized to the largest budget across all targets
// (x64 SysV: 6 GPR/8 FPR; PPC/SPE: 8 GPR), so one CallState shape serves
// every Policy without per-target allocation.
const (
	maxGPR = 8
	maxFPR = 8
	// maxStack bounds the outgoing stack-argument buffer; generous enough
	// for any call this marshaller is expected to build by hand rather
	// than emit from a compiler.
	maxStack = 512
)

// ArgKind classifies one parameter's or return value's shape for
// marshalling purposes.
type ArgKind int

const (
	ArgInt ArgKind = iota
	ArgFloat
	ArgPointer
	ArgStruct
	ArgComplexFloat
	ArgComplexDouble
)

// ArgType describes one declared parameter or return type: its shape,
// size, and (for ArgStruct) the field list ClassifyStruct needs.
type ArgType struct {
	Kind   ArgKind
	Size   uintptr
	Align  uintptr
	Fields []Field // only meaningful when Kind == ArgStruct
}

// IsFP reports whether this type's natural register class is floating
// point, spec.md §4.I step 2's `isfp` flag.
func (t ArgType) IsFP() bool {
	return t.Kind == ArgFloat || t.Kind == ArgComplexFloat || t.Kind == ArgComplexDouble
}

// CallState is the marshaller's temporary, per-call working state:
// register shadows, outgoing stack buffer, slot counters, and the small
// flags governing return handling. Mirrors CCallState in spec.md §3.
type CallState struct {
	GPR [maxGPR]uint64
	FPR [maxFPR]uint64

	Stack [maxStack]byte
	NSP   int // bytes of Stack used so far
	NGPR  int // GPR slots used so far
	NFPR  int // FPR slots used so far

	SPAdj  int  // stack adjustment in bytes for the trampoline/callee cleanup
	RetRef bool // return is materialized via a caller-supplied buffer
	ResX87 bool // x86: result lives on the x87 stack, not in a GPR/FPR

	Func uintptr // entry point to invoke

	// resultBuf anchors a caller-allocated buffer when RetRef is set, so
	// GetResults can read the callee's writes back out of it.
	resultBuf []byte
}

// NewCallState returns a zeroed CallState ready for SetArgs.
func NewCallState(fn uintptr) *CallState {
	return &CallState{Func: fn}
}
