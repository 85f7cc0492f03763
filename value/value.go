// Package value is the minimal managed-value model the gc and ffi
// packages are exercised against: spec.md treats the value
// representation as an external collaborator, referenced only through
// its observable operations (gc.Object, gc.Marker, the per-kind
// traversal interfaces). It is not a bytecode interpreter or parser.
package value

import "github.com/duskvm/duskvm/gc"

// Value mirrors a TValue slot: either a GC reference or a non-GC
// payload (nil/bool/float64, plus the string and complex128 payloads
// package ffi marshals). The gc package only ever looks at GC;
// Payload is entirely package value's concern.
type Value struct {
	GC      gc.Value
	Payload any
}

// Nil is the zero Value (nil/bool/number representation of Lua nil).
var Nil = Value{}

// FromObject wraps a GC object reference as a Value.
func FromObject(o gc.Object) Value { return Value{GC: gc.GCValue(o)} }

// FromBool wraps a boolean payload.
func FromBool(b bool) Value { return Value{Payload: b} }

// FromNumber wraps a numeric payload.
func FromNumber(n float64) Value { return Value{Payload: n} }

// IsNil reports whether v holds neither a GC reference nor a payload.
func (v Value) IsNil() bool { return !v.GC.IsGC() && v.Payload == nil }

// Object returns the referenced GC object, if any.
func (v Value) Object() (gc.Object, bool) { return v.GC.Object() }
