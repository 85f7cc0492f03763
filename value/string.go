package value

import "github.com/duskvm/duskvm/gc"

// StringObj is the collectable string type. Strings are leaves for the
// mark engine — they hold no outgoing GC references — so they need no
// Traverse method (see spec.md §4.D: "strings have no outgoing
// references to mark").
type StringObj struct {
	gc.Header
	Data string
}

// NewString allocates a fresh (unmarked) string object. Callers
// typically hand this straight to Collector.NewGCObject to link it into
// the root list and stamp it white.
func NewString(data string) *StringObj {
	return &StringObj{Header: gc.NewHeader(gc.KindString), Data: data}
}

// GCHeader implements gc.Object.
func (s *StringObj) GCHeader() *gc.Header { return &s.Header }

// GCSize implements gc.Sized for step-cost accounting.
func (s *StringObj) GCSize() uintptr { return uintptr(len(s.Data)) + 24 }
