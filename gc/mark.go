package gc

// marker adapts a Collector into the Marker interface passed to
// Traverse implementations in package value, so they never touch
// Collector internals directly.
type marker struct{ c *Collector }

func (m marker) MarkValue(v Value) {
	if o, ok := v.Object(); ok {
		m.c.Mark(o)
	}
}

func (m marker) MarkObject(o Object) {
	if o != nil {
		m.c.Mark(o)
	}
}

func (m marker) PushWeak(o Object) {
	linkList(&m.c.Weak, o)
}

// Mark marks a white object, mirroring gc_mark. Strings are leaves (flip
// white, done). Userdata and closed upvalues are never gray: they are
// marked and blackened immediately. Everything else (table, function,
// thread, prototype) is grayed and queued.
func (c *Collector) Mark(o Object) {
	h := o.GCHeader()
	if !h.IsWhite() {
		return
	}
	h.white2gray()
	switch h.Kind() {
	case KindString:
		// Strings have no outgoing references; white2gray already
		// "marks" them (the string color only ever matters for the
		// sweep's alive/dead test, never gray traversal).
		return
	case KindUserdata:
		h.gray2black()
		ud := o.(UserdataLike)
		if mt := ud.Metatable(); mt != nil {
			c.Mark(mt)
		}
		if env := ud.Env(); env != nil {
			c.Mark(env)
		}
	case KindUpvalue:
		uv := o.(UpvalueLike)
		if v, ok := uv.Referenced().Object(); ok && v.GCHeader().IsWhite() {
			c.Mark(v)
		}
		if uv.Closed() {
			h.gray2black()
		}
	default:
		linkList(&c.Gray, o)
	}
}

// markRoots clears the worklists and marks every GC root, mirroring
// gc_mark_start. Transitions state to Propagate.
func (c *Collector) markRoots() {
	c.Gray = nil
	c.GrayAgain = nil
	c.Weak = nil
	if c.MainThread != nil {
		c.Mark(c.MainThread)
	}
	if c.MainEnv != nil {
		c.Mark(c.MainEnv)
	}
	if o, ok := c.Registry.Object(); ok {
		c.Mark(o)
	}
	for _, r := range c.GCRoots {
		if r != nil {
			c.Mark(r)
		}
	}
	c.State = Propagate
}

// PropagateOne pops one gray object, blackens it, traverses it, and
// returns a cost estimate proportional to its size — mirrors
// propagatemark.
func (c *Collector) PropagateOne() uintptr {
	o := c.Gray
	h := o.GCHeader()
	h.gray2black()
	c.Gray = h.gclist
	h.gclist = nil

	m := marker{c}
	switch h.Kind() {
	case KindTable:
		t := o.(TableTraverser)
		if weak := t.Traverse(m); weak != 0 {
			h.black2gray() // keep weak tables gray until the atomic phase
		}
		return tableCost(t)
	case KindFunction:
		fn := o.(FuncTraverser)
		fn.Traverse(m)
		return funcCost(fn)
	case KindPrototype:
		pt := o.(ProtoTraverser)
		pt.Traverse(m)
		return protoCost(pt)
	case KindThread:
		th := o.(ThreadTraverser)
		linkList(&c.GrayAgain, o)
		h.black2gray() // threads are never black
		th.Traverse(m)
		return threadCost(th)
	default:
		return 0
	}
}

// Sized is implemented by traversable objects that can report their own
// approximate heap footprint, used purely for step-cost accounting
// (spec.md §4.D: "a cost estimate proportional to the object's size").
// Types that don't implement it cost a nominal 1.
type Sized interface {
	GCSize() uintptr
}

func tableCost(o Object) uintptr  { return sizedCost(o) }
func funcCost(o Object) uintptr   { return sizedCost(o) }
func protoCost(o Object) uintptr  { return sizedCost(o) }
func threadCost(o Object) uintptr { return sizedCost(o) }

func sizedCost(o Object) uintptr {
	if s, ok := o.(Sized); ok {
		return s.GCSize()
	}
	return 1
}

// propagateGray drains the gray list entirely, mirroring
// gc_propagate_gray. Used by the atomic phase, which must run to
// completion (spec.md §5: "within atomic ... the collector runs to
// completion").
func (c *Collector) propagateGray() uintptr {
	var total uintptr
	for c.Gray != nil {
		total += c.PropagateOne()
	}
	return total
}
