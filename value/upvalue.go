package value

import "github.com/duskvm/duskvm/gc"

// Upvalue is either open (Slot points into a live Thread's stack) or
// closed (the value has been copied into Embedded and Slot is nil),
// mirroring GCupval's v/closed/immutable split in lj_obj.h.
type Upvalue struct {
	gc.Header
	Slot     *Value // non-nil while open
	Embedded Value
	closed   bool
}

// NewOpenUpvalue allocates an upvalue referencing a live stack slot.
func NewOpenUpvalue(slot *Value) *Upvalue {
	return &Upvalue{Header: gc.NewHeader(gc.KindUpvalue), Slot: slot}
}

// GCHeader implements gc.Object.
func (u *Upvalue) GCHeader() *gc.Header { return &u.Header }

// GCSize implements gc.Sized.
func (u *Upvalue) GCSize() uintptr { return 24 }

// Referenced implements gc.UpvalueLike: the currently live value, from
// the open stack slot or the embedded copy once closed.
func (u *Upvalue) Referenced() gc.Value {
	if u.Slot != nil {
		return u.Slot.GC
	}
	return u.Embedded.GC
}

// Closed implements gc.UpvalueLike.
func (u *Upvalue) Closed() bool { return u.closed }

// Close implements gc.OpenUpvalue: copies the slot's current value into
// Embedded, detaches from the stack slot, and marks the upvalue closed.
// Called by Collector.CloseUpvalue (spec.md §4.G) when a thread
// unwinds past the frame owning Slot.
func (u *Upvalue) Close() gc.Value {
	u.Embedded = *u.Slot
	u.Slot = nil
	u.closed = true
	return u.Embedded.GC
}

// Set writes v into the upvalue, through the open stack slot if still
// open or directly into Embedded once closed. Callers that cross a
// black object boundary (the owning thread or closure is already
// black) must pair this with Collector.BarrierUpvalue.
func (u *Upvalue) Set(v Value) {
	if u.Slot != nil {
		*u.Slot = v
		return
	}
	u.Embedded = v
}
