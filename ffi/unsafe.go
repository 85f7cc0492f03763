package ffi

import (
	"unsafe"

	"github.com/duskvm/duskvm/gc"
)

// stringPointer returns a stable bit-pattern handle for a managed string
// payload, standing in for the `const char*` a real trampoline would
// receive. The underlying bytes are never mutated by this package, so
// aliasing Go's string data this way is safe for the marshaller's
// lifetime (the call happens synchronously, per spec.md §5's
// single-threaded cooperative model).
func stringPointer(s string) uint64 {
	if len(s) == 0 {
		return 0
	}
	return uint64(uintptr(unsafe.Pointer(unsafe.StringData(s))))
}

// objectPointer returns a stable bit-pattern handle for a managed GC
// object's backing storage, used for cdata/table/userdata passed as a
// vararg pointer argument.
func objectPointer(o gc.Object) uint64 {
	return uint64(uintptr(unsafe.Pointer(o.GCHeader())))
}
