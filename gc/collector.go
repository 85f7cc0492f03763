package gc

import "go.uber.org/zap"

// State is one of the six collector states spec.md §4.G names. Atomic is
// transient: onestep never returns while state == Atomic, it runs the
// whole atomic phase inline and leaves state on SweepStrings.
type State uint8

const (
	Pause State = iota
	Propagate
	Atomic
	SweepStrings
	Sweep
	Finalize
)

func (s State) String() string {
	switch s {
	case Pause:
		return "pause"
	case Propagate:
		return "propagate"
	case Atomic:
		return "atomic"
	case SweepStrings:
		return "sweep-strings"
	case Sweep:
		return "sweep"
	case Finalize:
		return "finalize"
	default:
		return "unknown"
	}
}

// Cost constants from spec.md §4.G / lj_gc.c.
const (
	StepSize       = 1024
	SweepMax       = 40
	SweepCost      = 10
	FinalizeCost   = 100
	DefaultStepMul = 200
	DefaultPause   = 200
)

// StringTable is the external collaborator owning the string intern
// table's hash chains (spec.md §6: "per-type free functions ... string
// hash chains"). The GC only needs to know how many chains exist and get
// a mutable cursor into chain i to sweep it.
type StringTable interface {
	// Mask returns strmask (chain count - 1); sweep runs while
	// sweepstr <= Mask().
	Mask() uint32
	// Chain returns a pointer to the head-of-chain slot for sweeping,
	// matching &g->strhash[i] in lj_gc.c.
	Chain(i uint32) *Object
	// Shrink resizes the table down when occupancy drops, mirroring
	// gc_shrink's string-table half.
	Shrink()
}

// JITHooks is the optional seam for a tracing JIT compiler (spec.md §1:
// JIT itself is out of scope; the GC only needs to mark its current trace
// and abort it around finalizers/ABI fixups). Nil-safe: a Collector with
// JIT == nil behaves as if no JIT is attached.
type JITHooks interface {
	// CurrentTrace returns the in-progress trace object, or (nil, false)
	// if none is being recorded.
	CurrentTrace() (Object, bool)
	// MarkTrace marks every GC constant referenced by trace t.
	MarkTrace(m Marker, t Object)
	// Abort discards the current trace (called from finalizers and from
	// the x86 __stdcall auto-fixup).
	Abort()
}

// FreeFunc releases an object's resources once sweep determines it is
// dead. Indexed by Kind in Collector.freeFuncs, mirroring lj_gc.c's
// gc_freefunc table.
type FreeFunc func(o Object)

// Collector holds the global collector state (GcState in spec.md §3).
// It is passed explicitly to every GC operation rather than reached
// through an ambient global, per design note §9.
type Collector struct {
	Root      Object
	Gray      Object
	GrayAgain Object
	Weak      Object
	MMUData   Object

	sweepCursor *Object
	SweepStrIdx uint32

	CurrentWhite Color
	State        State

	Total, Threshold, Estimate, Debt uint64
	StepMul, Pause                   uint32

	MainThread  ThreadTraverser
	MainEnv     Object
	Registry    Value
	GCRoots     []Object
	Strings     StringTable
	JIT         JITHooks
	RunningVM   ThreadTraverser // current running thread, for the atomic phase
	HookDisable func(disable bool)

	allocator AllocFunc
	freeFuncs map[Kind]FreeFunc
	log       *zap.Logger
}

// New builds a Collector with the given allocator and config. Logger may
// be nil, in which case diagnostics are discarded.
func New(alloc AllocFunc, cfg Config, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		CurrentWhite: WhiteA,
		State:        Pause,
		StepMul:      cfg.StepMul,
		Pause:        cfg.Pause,
		freeFuncs:    make(map[Kind]FreeFunc),
		allocator:    alloc,
		log:          logger,
	}
	return c
}

// RegisterFree installs the free function called exactly once when an
// object of kind k is swept as dead.
func (c *Collector) RegisterFree(k Kind, fn FreeFunc) {
	c.freeFuncs[k] = fn
}

func (c *Collector) free(o Object) {
	k := o.GCHeader().Kind()
	if fn, ok := c.freeFuncs[k]; ok {
		fn(o)
	}
}
