package gc

import "go.uber.org/zap"

// WeakValue is implemented by tables on the weak worklist so the
// collector can clear stale slots without knowing the table's storage
// layout. Indices are opaque iteration tokens the table itself defines;
// package value's Table numbers array slots then hash slots.
type WeakValue interface {
	Object
	Mode() (weakKey, weakVal bool)
	Len() int
	Slot(i int) (key, val Value, hasKey bool)
	ClearSlot(i int) // sets the value nil, marks a GC key dead if present
	NextWeak() Object
}

// mayClear reports whether a slot referencing v may be cleared: strings
// can never be weak references (encountering one marks it instead, per
// spec.md §4.F and lj_gc.c's gc_mayclear), a white collectable object may
// be cleared, and a finalized userdata may be cleared only when held as a
// value (not a key).
func (c *Collector) mayClear(v Value, isValueSlot bool) bool {
	o, ok := v.Object()
	if !ok {
		return false
	}
	h := o.GCHeader()
	if h.Kind() == KindString {
		h.white2gray() // gc_mark_str: strings must be marked, never cleared
		return false
	}
	if h.IsWhite() {
		return true
	}
	if isValueSlot && h.Kind() == KindUserdata && h.HasFlag(Finalized) {
		return true
	}
	return false
}

// ClearWeak clears collected entries from every table on the weak list,
// mirroring gc_clearweak.
func (c *Collector) ClearWeak() {
	for o := c.Weak; o != nil; {
		t := o.(WeakValue)
		_, weakVal := t.Mode()
		for i := 0; i < t.Len(); i++ {
			key, val, hasKey := t.Slot(i)
			if !hasKey && !weakVal {
				continue
			}
			if weakVal && c.mayClear(val, true) {
				t.ClearSlot(i)
				continue
			}
			if c.mayClear(key, false) {
				t.ClearSlot(i)
			}
		}
		o = t.NextWeak()
	}
}

// FinalizableUserdata is implemented by userdata objects so
// SeparateUserdata/Finalize can move them between the main list and the
// mmudata ring and invoke their finalizer without package gc knowing the
// concrete userdata type.
type FinalizableUserdata interface {
	UserdataLike
	HasFinalizer() bool
	// RunFinalizer invokes the __gc metamethod with ud as its single
	// argument. Any panic/error it produces is returned so Finalize can
	// rethrow it after restoring collector state, per spec.md §4.F/§7.
	RunFinalizer(ud Object) error
}

// SeparateUserdata walks the root list looking for finalizable userdata,
// mirroring lj_gc_separateudata. Userdata that is still live (unless all
// is true, forcing everything), or already finalized, is left alone.
// Userdata with no __gc metamethod is just flagged Finalized so sweep
// frees it normally. Everything else is moved onto the mmudata ring.
// Returns an accumulated size estimate used to bias the post-cycle
// estimate downward.
func (c *Collector) SeparateUserdata(all bool) uintptr {
	var freed uintptr
	p := &c.Root
	for *p != nil {
		o := *p
		h := o.GCHeader()
		if h.Kind() != KindUserdata {
			p = &h.gcnext
			continue
		}
		ud := o.(FinalizableUserdata)
		if (!h.IsWhite() && !all) || h.HasFlag(Finalized) {
			p = &h.gcnext
			continue
		}
		if !ud.HasFinalizer() {
			h.SetFlag(Finalized)
			p = &h.gcnext
			continue
		}
		if sz, ok := o.(Sized); ok {
			freed += sz.GCSize()
		}
		h.SetFlag(Finalized)
		*p = h.gcnext
		if c.MMUData == nil {
			h.gcnext = o
			c.MMUData = o
		} else {
			root := c.MMUData.GCHeader()
			h.gcnext = root.gcnext
			root.gcnext = o
			c.MMUData = o
		}
	}
	return freed
}

// markMMUData marks every userdata awaiting finalization, re-whitening
// it first since it may be left over from a previous cycle, mirroring
// gc_mark_mmudata.
func (c *Collector) markMMUData() {
	root := c.MMUData
	if root == nil {
		return
	}
	for o := root.GCHeader().gcnext; ; o = o.GCHeader().gcnext {
		o.GCHeader().MakeWhite(c.CurrentWhite)
		c.Mark(o)
		if o == root {
			break
		}
	}
}

// finalizeOne detaches the head of the mmudata ring, relinks it onto the
// main root list, whitens it, and invokes its __gc metamethod under
// hooks-disabled / GC-disabled conditions, mirroring gc_finalize. Errors
// from the finalizer are returned for the caller to rethrow, per
// spec.md §7.
func (c *Collector) finalizeOne() error {
	root := c.MMUData
	rootHdr := root.GCHeader()
	o := rootHdr.gcnext
	h := o.GCHeader()

	if o == root {
		c.MMUData = nil
	} else {
		rootHdr.gcnext = h.gcnext
	}
	h.gcnext = c.Root
	c.Root = o
	h.MakeWhite(c.CurrentWhite)

	ud := o.(FinalizableUserdata)

	oldThreshold := c.Threshold
	if c.JIT != nil {
		c.JIT.Abort()
	}
	if c.HookDisable != nil {
		c.HookDisable(true)
	}
	c.Threshold = ^uint64(0) // prevent recursive GC steps during the callback

	err := ud.RunFinalizer(o)

	if c.HookDisable != nil {
		c.HookDisable(false)
	}
	c.Threshold = oldThreshold

	if err != nil {
		c.log.Warn("gc: finalizer error, rethrowing after state restore", zap.Error(err))
		return err
	}
	return nil
}

// Finalize runs every pending finalizer, mirroring lj_gc_finalizeudata. A
// finalizer error is rethrown immediately (matching the original's
// longjmp-out-of-the-loop behavior) — the ring is left partially
// processed but still a valid circular list, since the erroring object
// was already relinked onto the root list before its callback ran.
func (c *Collector) Finalize() error {
	for c.MMUData != nil {
		if err := c.finalizeOne(); err != nil {
			return err
		}
	}
	return nil
}
