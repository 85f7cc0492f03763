package value

import "github.com/duskvm/duskvm/gc"

// Cdata is a managed C-type instance: a typed, fixed-size raw byte blob
// the ffi package marshals to and from native call frames, mirroring
// GCcdata's variable-length-object layout in lj_obj.h. CTypeID is an
// opaque handle into whatever C type registry the embedder maintains;
// package value doesn't interpret it.
type Cdata struct {
	gc.Header
	CTypeID uint32
	Bytes   []byte
}

// NewCdata allocates a cdata instance of the given registered C type,
// backed by a zeroed buffer of size bytes.
func NewCdata(ctypeID uint32, size int) *Cdata {
	return &Cdata{
		Header:  gc.NewHeader(gc.KindCdata),
		CTypeID: ctypeID,
		Bytes:   make([]byte, size),
	}
}

// GCHeader implements gc.Object.
func (c *Cdata) GCHeader() *gc.Header { return &c.Header }

// GCSize implements gc.Sized.
func (c *Cdata) GCSize() uintptr { return 16 + uintptr(len(c.Bytes)) }

// Cdata is a leaf for the mark engine: its bytes are raw C data, never
// GC references (a cdata holding a GC-managed pointer would be a distinct
// pointer/ref ctype out of scope here), so it needs no Traverse method —
// same reasoning as StringObj.
