package gc

import "golang.org/x/exp/slices"

// linkRoot threads o onto the head of the root list, as every
// lj_mem_newgco call does.
func (c *Collector) linkRoot(o Object) {
	h := o.GCHeader()
	h.gcnext = c.Root
	c.Root = o
}

// linkList threads o onto the head of whichever worklist head points at,
// via the object's gclist field (not gcnext — gclist and gcnext are
// independent links, an object can be on the root list and a worklist at
// the same time).
func linkList(head *Object, o Object) {
	o.GCHeader().gclist = *head
	*head = o
}

// LinkNext threads o onto the head of an arbitrary gcnext-based list.
// Exported so a collaborator outside package gc (value.Thread, for its
// open-upvalue chain) can build its own gcnext-linked list the way the
// root list and mmudata ring do, without gc exposing gcnext itself.
// An object can only be on one gcnext list at a time — moving it (e.g.
// CloseUpvalue relinking onto the root list) simply overwrites the link.
func LinkNext(head *Object, o Object) {
	h := o.GCHeader()
	h.gcnext = *head
	*head = o
}

// Next returns o's gcnext link, for walking a list built with LinkNext.
func Next(o Object) Object { return o.GCHeader().gcnext }

// RootObjects returns every object currently on the root list, for tests
// and invariant checks (spec.md §8 invariant 4: "the root list contains
// every allocated ... object exactly once").
func (c *Collector) RootObjects() []Object {
	var out []Object
	for o := c.Root; o != nil; o = o.GCHeader().gcnext {
		out = append(out, o)
	}
	slices.Reverse(out) // cosmetic: report in allocation order
	return out
}

// GrayAgainObjects walks the grayagain worklist (the gclist chain
// BarrierBack threads tables onto), for tests asserting the barrier's
// de-duplication invariant: a table already gray-again must not be
// linked onto the list a second time.
func (c *Collector) GrayAgainObjects() []Object {
	var out []Object
	for o := c.GrayAgain; o != nil; o = o.GCHeader().WeakListNext() {
		out = append(out, o)
	}
	return out
}

// MMUDataObjects walks the mmudata ring starting after its anchor and
// returns every member, for tests checking invariant 5 ("mmudata is
// either empty or a proper circular list").
func (c *Collector) MMUDataObjects() []Object {
	root := c.MMUData
	if root == nil {
		return nil
	}
	var out []Object
	for o := root.GCHeader().gcnext; ; o = o.GCHeader().gcnext {
		out = append(out, o)
		if o == root {
			break
		}
	}
	return out
}
