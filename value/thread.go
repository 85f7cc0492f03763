package value

import "github.com/duskvm/duskvm/gc"

// frame is one activation record on a Thread's call stack: the closure
// running, its stack-slot base, and the frame's slot count — base+size
// is this frame's own notion of "top", needed by Traverse to compute
// lim (spec.md §4.D) the same way gc_traverse_thread walks cts->base
// frame-by-frame.
type frame struct {
	fn   *Function
	base int
	size int
}

// Thread is the managed coroutine/stack type. Stack holds every live
// value slot; Frames the active call chain; openHead threads every
// still-open upvalue anchored to this thread's stack via gc.LinkNext,
// mirroring lua_State's stack/base/openupval fields in lj_obj.h.
type Thread struct {
	gc.Header
	Env    gc.Object
	Stack  []Value
	Frames []frame

	openHead gc.Object
}

// NewThread allocates a fresh thread with the given initial stack
// capacity.
func NewThread(env gc.Object, stackCap int) *Thread {
	return &Thread{
		Header: gc.NewHeader(gc.KindThread),
		Env:    env,
		Stack:  make([]Value, 0, stackCap),
	}
}

// GCHeader implements gc.Object.
func (t *Thread) GCHeader() *gc.Header { return &t.Header }

// GCSize implements gc.Sized.
func (t *Thread) GCSize() uintptr { return 64 + uintptr(cap(t.Stack))*32 }

// PushFrame records a new activation of fn starting at stack slot base,
// occupying size slots.
func (t *Thread) PushFrame(fn *Function, base, size int) {
	t.Frames = append(t.Frames, frame{fn: fn, base: base, size: size})
}

// PopFrame removes the innermost activation.
func (t *Thread) PopFrame() {
	if len(t.Frames) > 0 {
		t.Frames = t.Frames[:len(t.Frames)-1]
	}
}

// OpenUpvalue opens a new upvalue aliasing slot and threads it onto this
// thread's open-upvalue list, so sweep can find and fully sweep it
// (via OpenUpvalHead below) before sweeping the thread itself, and so
// Collector.CloseUpvalue can later detach and relink it onto the root
// list once the frame owning slot unwinds.
func (t *Thread) OpenUpvalue(slot *Value) *Upvalue {
	uv := NewOpenUpvalue(slot)
	gc.LinkNext(&t.openHead, uv)
	return uv
}

// OpenUpvalHead implements the unexported sweep-time contract
// (interface{ OpenUpvalHead() *gc.Object }) package gc type-asserts for:
// the address of this thread's open-upvalue list head.
func (t *Thread) OpenUpvalHead() *gc.Object { return &t.openHead }

// MarkOpenUpvalues implements the atomic-phase markOpenUpvalues contract:
// every still-open upvalue anchored to this thread must be marked even
// though it isn't reachable from Traverse (it lives off-stack on
// openHead, not in Stack), mirroring the open-upvalue pass in atomic().
func (t *Thread) MarkOpenUpvalues(m gc.Marker) {
	for o := t.openHead; o != nil; o = gc.Next(o) {
		m.MarkObject(o)
	}
}

// Traverse marks the environment, every value on the live stack (frames
// point into Stack, so walking Stack covers every frame's locals), and
// every active frame's closure, mirroring gc_traverse_th. It then
// computes lim as the largest base+size across every live frame, nils
// every slot between the actual top and lim, and shrinks the stack's
// backing storage down to lim — the anti-resurrection pass
// gc_traverse_thread performs so that a value left over from a deeper,
// since-popped recursive call can't be read back by a later, shallower
// re-entry into the same physical slots ("GC called again in (larger)
// outer frame, X resurrected").
func (t *Thread) Traverse(m gc.Marker) {
	if t.Env != nil {
		m.MarkObject(t.Env)
	}
	for _, v := range t.Stack {
		m.MarkValue(v.GC)
	}
	for _, fr := range t.Frames {
		if fr.fn != nil {
			m.MarkObject(fr.fn)
		}
	}

	top := len(t.Stack)
	lim := top
	for _, fr := range t.Frames {
		if end := fr.base + fr.size; end > lim {
			lim = end
		}
	}

	shrunk := make([]Value, top, lim)
	copy(shrunk, t.Stack)
	t.Stack = shrunk
}
