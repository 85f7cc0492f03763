// Package gc implements an incremental tri-color mark-and-sweep collector
// for a dynamic-language runtime, modeled on LuaJIT's lj_gc.c: bounded-pause
// steps, weak tables, finalizers that may allocate, open upvalues, and an
// optional tracing JIT as a second root producer.
package gc

// Kind identifies the variant of a managed object. Mirrors the gct type
// tags in lj_obj.h (ORDER LJ_T): string, upvalue, thread, prototype,
// function, table, userdata, cdata, plus an optional trace kind for the
// JIT seam.
type Kind uint8

const (
	KindString Kind = iota
	KindUpvalue
	KindThread
	KindPrototype
	KindFunction
	KindTable
	KindUserdata
	KindCdata
	KindTrace
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindUpvalue:
		return "upvalue"
	case KindThread:
		return "thread"
	case KindPrototype:
		return "prototype"
	case KindFunction:
		return "function"
	case KindTable:
		return "table"
	case KindUserdata:
		return "userdata"
	case KindCdata:
		return "cdata"
	case KindTrace:
		return "trace"
	default:
		return "unknown"
	}
}

// Color packs the two white bits, black, fixed/sfixed and finalized flags,
// and the two weak-table mode bits into a single byte, exactly as LJ_GC_*
// does in lj_obj.h.
type Color uint8

const (
	WhiteA Color = 1 << iota
	WhiteB
	Black
	Fixed
	SFixed
	Finalized
	WeakKey
	WeakVal
)

const (
	// WhiteBits covers both white colors; the "other white" check tests
	// against this mask the same way lj_gc.c's otherwhite()/gc_sweep does.
	WhiteBits = WhiteA | WhiteB
	// ColorBits covers both whites plus black: the three mutually
	// exclusive mark colors an object can have at any time.
	ColorBits = WhiteBits | Black
	// WeakBits covers both weak-table mode flags.
	WeakBits = WeakKey | WeakVal
)

// Header is the uniform prefix every managed object embeds by value.
// gcnext threads the object through the global root list (or, while
// finalizable, the mmudata ring); gclist threads it through whichever
// worklist (gray, grayagain, weak) it is currently queued on. Both are
// nil when the object isn't on that particular list.
type Header struct {
	kind   Kind
	marked Color
	gcnext Object
	gclist Object
}

// NewHeader builds a header for a freshly allocated object of kind k. The
// caller (via Collector.NewGCObject) still needs to stamp the current white
// bit and link it into the root list — a bare NewHeader has no color yet.
func NewHeader(k Kind) Header {
	return Header{kind: k}
}

// Kind reports the object's variant.
func (h *Header) Kind() Kind { return h.kind }

// Marked returns the raw color/flag byte.
func (h *Header) Marked() Color { return h.marked }

// IsWhite reports whether the object carries either white bit.
func (h *Header) IsWhite() bool { return h.marked&WhiteBits != 0 }

// IsGray reports whether the object carries neither a white bit nor black
// (i.e. it is queued on a worklist but not yet traversed).
func (h *Header) IsGray() bool { return h.marked&ColorBits == 0 }

// IsBlack reports whether the object has been fully traversed this cycle.
func (h *Header) IsBlack() bool { return h.marked&Black != 0 }

// IsDead reports whether the object carries the other (non-current) white
// bit, the color sweep treats as garbage. otherwhite mirrors lj_gc.c's
// otherwhite(g) macro applied to a single object.
func (h *Header) IsDead(currentWhite Color) bool {
	other := (currentWhite ^ WhiteBits) & WhiteBits
	return h.marked&other != 0
}

func (h *Header) white2gray() { h.marked &^= WhiteBits }
func (h *Header) black2gray() { h.marked &^= Black }
func (h *Header) gray2black() { h.marked |= Black }

// MakeWhite recolors the object to the given current-white bit, clearing
// any previous color. Used both at allocation and when sweep keeps a live
// object around for the next cycle.
func (h *Header) MakeWhite(currentWhite Color) {
	h.marked = (h.marked &^ ColorBits) | currentWhite
}

// SetFlag ORs additional flag bits (Fixed, SFixed, Finalized, WeakKey,
// WeakVal) into the marked byte without touching color bits.
func (h *Header) SetFlag(f Color) { h.marked |= f }

// ClearFlag clears flag bits without touching color bits.
func (h *Header) ClearFlag(f Color) { h.marked &^= f }

// HasFlag reports whether every bit in f is set.
func (h *Header) HasFlag(f Color) bool { return h.marked&f == f }

func (h *Header) next() Object     { return h.gcnext }
func (h *Header) setNext(o Object) { h.gcnext = o }
func (h *Header) list() Object     { return h.gclist }
func (h *Header) setList(o Object) { h.gclist = o }

// WeakListNext returns the next object on whichever worklist this header
// is currently threaded onto via gclist. Exported so a WeakValue
// implementation outside package gc (value.Table) can walk the weak
// worklist it was pushed onto without the collector exposing gclist
// itself.
func (h *Header) WeakListNext() Object { return h.gclist }
