package value

import (
	"github.com/dolthub/swiss"
	"github.com/duskvm/duskvm/gc"
)

// node is one hash-part slot. A dead key (a collectable key left behind
// after its value was weak-cleared, spec.md §4.D/§4.F) keeps the slot
// occupied — for chaining purposes in the original, for stable index
// identity here — without the key remaining a usable lookup target.
type node struct {
	key     Value
	val     Value
	deadKey bool
}

// Table is the minimal managed table type: an array part plus a hash
// part, with an optional weak-mode metatable. The hash part is backed by
// github.com/dolthub/swiss for key lookup (mirrors the way mna-nenuphar,
// a Lua-family VM in the retrieval pack, backs its own table type),
// layered over an explicit node slice so hash slots keep stable indices
// across GC passes the way lj_obj.h's open-addressed Node array does —
// needed for DEADKEY bookkeeping and for gc.WeakValue's indexed Slot(i).
type Table struct {
	gc.Header
	Metatable *Table
	Env       gc.Object

	Array []Value
	nodes []node
	index *swiss.Map[Value, int]

	weakKey, weakVal bool
}

// NewTable allocates a fresh (unmarked) table.
func NewTable() *Table {
	return &Table{
		Header: gc.NewHeader(gc.KindTable),
		index:  swiss.NewMap[Value, int](8),
	}
}

// GCHeader implements gc.Object.
func (t *Table) GCHeader() *gc.Header { return &t.Header }

// GCSize implements gc.Sized.
func (t *Table) GCSize() uintptr {
	const valueSize = 32
	return 64 + uintptr(len(t.Array))*valueSize + uintptr(len(t.nodes))*valueSize*2
}

// Mode reports the table's own __mode string, as a stand-in for the
// generic meta_fast(mt, "__mode") lookup spec.md §6 lists as an external
// interface — full metamethod dispatch is out of scope, so a table
// destined to be used as someone else's metatable just has SetMode
// called on it directly.
func (t *Table) Mode() (weakKey, weakVal bool) { return t.weakKey, t.weakVal }

// SetMode sets the __mode flags this table exposes when used as a
// metatable (e.g. metatable.SetMode(false, true) for a weak-value cache).
func (t *Table) SetMode(weakKey, weakVal bool) {
	t.weakKey, t.weakVal = weakKey, weakVal
}

// SetArrayLen grows/truncates the array part.
func (t *Table) SetArrayLen(n int) {
	if n <= len(t.Array) {
		t.Array = t.Array[:n]
		return
	}
	grown := make([]Value, n)
	copy(grown, t.Array)
	t.Array = grown
}

// SetArray sets array-part slot i (0-based) to v.
func (t *Table) SetArray(i int, v Value) {
	if i >= len(t.Array) {
		t.SetArrayLen(i + 1)
	}
	t.Array[i] = v
}

// Set writes key -> val into the hash part, reusing a dead slot for the
// same key if one is found, otherwise appending a new node.
func (t *Table) Set(key, val Value) {
	if i, ok := t.index.Get(key); ok {
		t.nodes[i] = node{key: key, val: val}
		return
	}
	for i := range t.nodes {
		if t.nodes[i].deadKey && t.nodes[i].key == key {
			t.nodes[i] = node{key: key, val: val}
			t.index.Put(key, i)
			return
		}
	}
	t.nodes = append(t.nodes, node{key: key, val: val})
	t.index.Put(key, len(t.nodes)-1)
}

// Get reads the hash part by key.
func (t *Table) Get(key Value) (Value, bool) {
	i, ok := t.index.Get(key)
	if !ok || t.nodes[i].deadKey {
		return Value{}, false
	}
	return t.nodes[i].val, true
}

// -- gc.TableTraverser --

// Traverse marks the metatable, inspects __mode, and (mode-dependent)
// marks the array and hash parts, mirroring gc_traverse_tab. Returns the
// weak-mode bits in effect, matching lj_gc.c's convention of returning
// non-zero when the table was queued on the weak worklist instead of
// fully marked.
func (t *Table) Traverse(m gc.Marker) gc.Color {
	if t.Metatable != nil {
		m.MarkObject(t.Metatable)
	}

	var weak gc.Color
	if t.Metatable != nil {
		wk, wv := t.Metatable.Mode()
		if wk {
			weak |= gc.WeakKey
		}
		if wv {
			weak |= gc.WeakVal
		}
	}
	if weak != 0 {
		t.weakKey = weak&gc.WeakKey != 0
		t.weakVal = weak&gc.WeakVal != 0
		m.PushWeak(t)
	}
	if weak == gc.WeakBits {
		return weak // both weak: nothing left to mark
	}

	if weak&gc.WeakVal == 0 {
		for _, v := range t.Array {
			m.MarkValue(v.GC)
		}
	}
	for i := range t.nodes {
		n := &t.nodes[i]
		if n.deadKey {
			continue
		}
		if n.val.IsNil() {
			// An empty hash slot whose key is still collectable is
			// retired to DEADKEY so it can be reused later, mirroring
			// gc_traverse_tab's "else if (tvisgcv(&n->key))" branch —
			// this runs on every ordinary traversal, not just weak
			// clearing.
			if n.key.GC.IsGC() {
				t.index.Delete(n.key)
				n.deadKey = true
			}
			continue
		}
		if weak&gc.WeakKey == 0 {
			m.MarkValue(n.key.GC)
		}
		if weak&gc.WeakVal == 0 {
			m.MarkValue(n.val.GC)
		}
	}
	return weak
}

// -- gc.WeakValue --

// Len reports the combined array+hash slot count, for indexed iteration
// by the weak-clearing pass.
func (t *Table) Len() int { return len(t.Array) + len(t.nodes) }

// Slot returns the key/value at index i (array part first, then hash
// part), and whether the slot has a real (non-dead) key.
func (t *Table) Slot(i int) (key, val gc.Value, hasKey bool) {
	if i < len(t.Array) {
		return gc.NilValue, t.Array[i].GC, false
	}
	n := &t.nodes[i-len(t.Array)]
	return n.key.GC, n.val.GC, !n.deadKey
}

// ClearSlot nils the value at index i. If the slot has a collectable
// key, the key is marked dead (DEADKEY) rather than removed, so the slot
// can be reused without disturbing other indices — mirrors gc_clearweak
// leaving the key "in, but mark as dead".
func (t *Table) ClearSlot(i int) {
	if i < len(t.Array) {
		t.Array[i] = Value{}
		return
	}
	n := &t.nodes[i-len(t.Array)]
	n.val = Value{}
	if n.key.GC.IsGC() {
		t.index.Delete(n.key)
		n.deadKey = true
	}
}

// NextWeak returns the next table on the weak worklist after this one.
func (t *Table) NextWeak() gc.Object { return t.Header.WeakListNext() }
