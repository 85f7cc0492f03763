package gc

// BarrierForward is the forward write barrier: src is black and about to
// gain a reference to white dst. During Propagate, it marks dst forward
// (moving the propagation frontier to cover the new edge). In
// Sweep/Finalize, dst hasn't been swept yet, so instead src is
// re-whitened — cheaper than marking, and avoids the barrier firing
// again for nothing. Mirrors lj_gc_barrierf. Never used for tables — use
// BarrierBack instead.
func (c *Collector) BarrierForward(src, dst Object) {
	if c.State == Propagate {
		c.Mark(dst)
	} else {
		src.GCHeader().MakeWhite(c.CurrentWhite)
	}
}

// BarrierBack is the backward write barrier for tables: a black table t
// about to be mutated is turned gray again and queued on grayagain,
// rather than marking the individual new reference. Tables are
// re-scanned in bulk at the atomic phase instead of per-store, keeping
// mutation cost constant regardless of fan-out. Mirrors
// lj_gc_barrierback.
func (c *Collector) BarrierBack(t Object) {
	h := t.GCHeader()
	h.black2gray()
	linkList(&c.GrayAgain, t)
}

// BarrierUpvalue is the forward-barrier variant for a closed upvalue's
// embedded value slot: v is the value about to be written there, owned
// by upvalue object uv. Mirrors lj_gc_barrieruv.
func (c *Collector) BarrierUpvalue(uv Object, v Value) {
	h := uv.GCHeader()
	if c.State == Propagate {
		if o, ok := v.Object(); ok {
			c.Mark(o)
		}
	} else {
		h.MakeWhite(c.CurrentWhite)
	}
}

// OpenUpvalue is implemented by package value's Upvalue type so
// CloseUpvalue can perform the open->closed transition (copy stack slot
// into embedded storage, retarget, relink into the root list, fix up
// color) without the gc package reaching into its fields directly.
type OpenUpvalue interface {
	Object
	// Close copies the current referenced value into the upvalue's own
	// embedded storage and marks it closed. Returns the now-embedded
	// value for the barrier check below.
	Close() Value
}

// CloseUpvalue performs the open->closed transition, mirroring
// lj_gc_closeuv. A closed upvalue is never gray, so if it was gray when
// this runs, it is fixed up: during Propagate it is blackened (applying
// a forward barrier if the embedded value is white), otherwise it is
// whitened to defer to sweep.
func (c *Collector) CloseUpvalue(uv OpenUpvalue) {
	h := uv.GCHeader()
	wasGray := h.IsGray()
	embedded := uv.Close()

	h.gcnext = c.Root
	c.Root = uv

	if wasGray {
		if c.State == Propagate {
			h.gray2black()
			if o, ok := embedded.Object(); ok && o.GCHeader().IsWhite() {
				c.BarrierForward(uv, o)
			}
		} else {
			h.MakeWhite(c.CurrentWhite)
		}
	}
}

// BarrierTrace marks a JIT trace's KGC constants if it is saved during
// the propagation phase, mirroring lj_gc_barriertrace. A no-op if no JIT
// is attached.
func (c *Collector) BarrierTrace(t Object) {
	if c.JIT == nil {
		return
	}
	if c.State == Propagate {
		c.JIT.MarkTrace(marker{c}, t)
	}
}
