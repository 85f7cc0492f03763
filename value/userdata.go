package value

import (
	"fmt"

	"github.com/duskvm/duskvm/gc"
)

// Userdata wraps an opaque Go payload (typically backing FFI cdata or a
// host resource) inside the managed heap, with an optional metatable and
// environment table and an optional __gc finalizer, mirroring GCudata in
// lj_obj.h.
type Userdata struct {
	gc.Header
	Metatbl *Table
	EnvTbl  gc.Object
	Payload any

	finalizer func(ud gc.Object) error
}

// NewUserdata allocates plain (non-finalizable) userdata wrapping
// payload.
func NewUserdata(payload any) *Userdata {
	return &Userdata{Header: gc.NewHeader(gc.KindUserdata), Payload: payload}
}

// SetFinalizer installs (or, given nil, removes) a __gc callback run
// once this userdata is separated out for finalization.
func (u *Userdata) SetFinalizer(fn func(ud gc.Object) error) { u.finalizer = fn }

// GCHeader implements gc.Object.
func (u *Userdata) GCHeader() *gc.Header { return &u.Header }

// GCSize implements gc.Sized.
func (u *Userdata) GCSize() uintptr { return 32 }

// Metatable implements gc.UserdataLike.
func (u *Userdata) Metatable() gc.Object {
	if u.Metatbl == nil {
		return nil
	}
	return u.Metatbl
}

// Env implements gc.UserdataLike.
func (u *Userdata) Env() gc.Object { return u.EnvTbl }

// HasFinalizer implements gc.FinalizableUserdata.
func (u *Userdata) HasFinalizer() bool { return u.finalizer != nil }

// RunFinalizer implements gc.FinalizableUserdata.
func (u *Userdata) RunFinalizer(ud gc.Object) (err error) {
	if u.finalizer == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("value: finalizer panic: %v", r)
		}
	}()
	return u.finalizer(ud)
}
