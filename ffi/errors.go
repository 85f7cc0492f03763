package ffi

import "errors"

// ErrNYICall is raised for an unsupported ABI case: too many arguments
// for the target's register budget, an unclassifiable aggregate, or a
// struct too large for the current target to handle. Mirrors the
// FFI-NYI-call error kind in spec.md §7.
var ErrNYICall = errors.New("ffi: unsupported call shape (NYI)")

// ErrNumArgs is raised when a non-variadic function is called with the
// wrong number of arguments. Mirrors FFI-num-args in spec.md §7.
var ErrNumArgs = errors.New("ffi: wrong number of arguments")
