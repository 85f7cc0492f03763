package gc

// otherWhite returns the white bit sweep treats as dead this cycle. Not
// re-masked to WhiteBits: FreeAll ORs SFixed into CurrentWhite so that
// XORing it through here leaves SFixed set in the result, which keeps
// alive-test below from ever calling an SFixed object dead, mirroring
// lj_gc.c's otherwhite(g) macro (also an unmasked XOR).
func (c *Collector) otherWhite() Color {
	return c.CurrentWhite ^ WhiteBits
}

// sweep walks up to lim entries starting at *p (a pointer to the list
// slot to resume from — either &c.Root or the address of some object's
// gcnext field, exactly mirroring lj_gc.c's GCRef* cursor trick), freeing
// dead objects and recoloring live ones to the current white. Threads
// have their open-upvalue list fully swept first, since open upvalues
// are anchored per-thread rather than on the main root list. Returns the
// cursor to resume from on the next call.
func (c *Collector) sweep(p *Object, lim uint32) *Object {
	ow := c.otherWhite()
	for *p != nil && lim > 0 {
		lim--
		o := *p
		h := o.GCHeader()
		if h.Kind() == KindThread {
			if th, ok := o.(interface{ OpenUpvalHead() *Object }); ok {
				head := th.OpenUpvalHead()
				c.fullSweep(head)
			}
		}
		if (h.Marked()^WhiteBits)&ow != 0 {
			// Black or current-white: alive. Recolor and advance.
			h.MakeWhite(c.CurrentWhite)
			p = &h.gcnext
		} else {
			// Dead: unlink and free.
			*p = h.gcnext
			if c.Root == o {
				c.Root = h.gcnext
			}
			c.free(o)
		}
	}
	return p
}

// fullSweep sweeps an entire list (e.g. a thread's open-upvalue list, or
// a string hash chain) to completion in one call.
func (c *Collector) fullSweep(p *Object) {
	c.sweep(p, ^uint32(0))
}

// sweepStep performs one SweepStrings or Sweep state's worth of work and
// returns the cost, mirroring the corresponding gc_onestep cases.
func (c *Collector) sweepStringsStep() uintptr {
	old := c.Total
	chain := c.Strings.Chain(c.SweepStrIdx)
	c.fullSweep(chain)
	c.SweepStrIdx++
	if c.SweepStrIdx > c.Strings.Mask() {
		c.State = Sweep
		c.sweepCursor = &c.Root
	}
	if old >= c.Total {
		c.Estimate -= old - c.Total
	}
	return SweepCost
}

func (c *Collector) sweepStep() uintptr {
	old := c.Total
	c.sweepCursor = c.sweep(c.sweepCursor, SweepMax)
	if *c.sweepCursor == nil {
		c.shrink()
		c.State = Finalize
	}
	if old >= c.Total {
		c.Estimate -= old - c.Total
	}
	return SweepMax * SweepCost
}

// shrink gives the external string table and any scratch buffer a chance
// to shrink, mirroring gc_shrink. A nil Strings collaborator is fine —
// there is simply nothing to shrink.
func (c *Collector) shrink() {
	if c.Strings != nil {
		c.Strings.Shrink()
	}
}

// FreeAll frees every remaining GC object, including fixed ones but not
// super-fixed ones (the main thread), mirroring lj_gc_freeall. Used at
// runtime shutdown.
func (c *Collector) FreeAll() {
	c.CurrentWhite = WhiteBits | SFixed
	c.fullSweep(&c.Root)
	if c.Strings != nil {
		for i := uint32(0); i <= c.Strings.Mask(); i++ {
			c.fullSweep(c.Strings.Chain(i))
		}
	}
}
