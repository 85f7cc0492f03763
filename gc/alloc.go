package gc

import "errors"

// ErrOutOfMemory is raised when the pluggable allocator returns nil for a
// non-zero request, mirroring lj_err_throw(L, LUA_ERRMEM) in lj_mem_realloc.
var ErrOutOfMemory = errors.New("gc: out of memory")

// MinVecSize is the floor lj_mem_grow clamps a doubled vector size to.
const MinVecSize = 4

// AllocFunc is the pluggable allocation primitive spec.md §6 describes as
// allocf(ud, ptr, old_sz, new_sz). newSize == 0 frees ptr; ptr == nil with
// oldSize == 0 is a fresh allocation. It returns nil on failure.
type AllocFunc func(ptr []byte, oldSize, newSize uintptr) []byte

// Realloc routes through the collector's allocator, updating Total and
// raising ErrOutOfMemory on failure for a non-zero request, exactly as
// lj_mem_realloc does.
func (c *Collector) Realloc(ptr []byte, oldSize, newSize uintptr) ([]byte, error) {
	p := c.allocator(ptr, oldSize, newSize)
	if p == nil && newSize > 0 {
		return nil, ErrOutOfMemory
	}
	c.Total = c.Total - uint64(oldSize) + uint64(newSize)
	return p, nil
}

// NewGCObject allocates size bytes of backing storage for o, stamps o
// white (current white), and links it into the root list. Callers
// construct the concrete Go value themselves (Go's own allocator owns the
// actual struct); this only performs the bookkeeping lj_mem_newgco does —
// total accounting and root-list linkage — since the real object storage
// is a Go-GC'd value, not raw bytes.
func (c *Collector) NewGCObject(o Object, size uintptr) error {
	if _, err := c.Realloc(nil, 0, size); err != nil {
		return err
	}
	h := o.GCHeader()
	h.MakeWhite(c.CurrentWhite)
	c.linkRoot(o)
	return nil
}

// Grow doubles sz (clamped to [MinVecSize, lim]) and reallocs buf from its
// old size to the new one, mirroring lj_mem_grow.
func (c *Collector) Grow(buf []byte, sz, lim, elemSize uintptr) ([]byte, uintptr, error) {
	newSz := sz << 1
	if newSz < MinVecSize {
		newSz = MinVecSize
	}
	if newSz > lim {
		newSz = lim
	}
	p, err := c.Realloc(buf, sz*elemSize, newSz*elemSize)
	if err != nil {
		return nil, sz, err
	}
	return p, newSz, nil
}
