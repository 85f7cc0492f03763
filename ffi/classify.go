package ffi

import "errors"

// ErrUnclassifiedVector is returned by ClassifyStruct for a field kind
// the classifier doesn't understand. lj_ccall.c's classify_struct skips
// vector fields entirely (NYI: classify vectors) and leaves their
// contribution to chance; this port makes the same situation an
// explicit, catchable error instead, per the recorded Open Question
// resolution (spec.md §9: "a port should either implement the SSEUP
// class or reject such structs explicitly" — this rejects).
var ErrUnclassifiedVector = errors.New("ffi: struct classification does not support vector fields")

// RegClass is one eightbyte's x64 SysV register class.
type RegClass int

const (
	ClassNone RegClass = iota
	ClassInt
	ClassSSE
	ClassMem
)

// merge combines two classification votes for the same eightbyte,
// mirroring the SysV ABI's merge rules as lj_ccall.c's classify_struct
// applies them: MEM dominates, INT dominates over SSE, otherwise SSE.
func merge(a, b RegClass) RegClass {
	switch {
	case a == ClassNone:
		return b
	case b == ClassNone:
		return a
	case a == ClassMem || b == ClassMem:
		return ClassMem
	case a == ClassInt || b == ClassInt:
		return ClassInt
	default:
		return ClassSSE
	}
}

// FieldKind tags a struct field's classification-relevant shape. Bitfield
// and integer/pointer fields behave identically for classification
// purposes (both contribute INT), matching spec.md §4.I's rule "Bitfields
// → INT".
type FieldKind int

const (
	FieldInt FieldKind = iota
	FieldFloat
	FieldVector
	FieldNestedStruct
)

// Field describes one member of a struct being classified for x64 SysV
// argument/return passing.
type Field struct {
	Offset uintptr
	Size   uintptr
	Kind   FieldKind
	// Nested holds the member fields when Kind == FieldNestedStruct,
	// recursively classified at their own offsets (already relative to
	// the outer struct, matching lj_ccall.c's byte-offset recursion).
	Nested []Field
}

// ClassifyStruct implements the x64 SysV eightbyte classification
// algorithm from spec.md §4.I: a struct larger than 16 bytes is always
// MEM; otherwise each field contributes its class to whichever of the
// two eightbytes (bytes 0..7, bytes 8..15) it occupies, an unaligned
// straddle forces MEM, and nested structs/unions recurse. The full
// two-element result is returned (not just a MEM bit), matching the
// Open Question resolution that ports must propagate the full class
// result rather than a single flag.
func ClassifyStruct(size uintptr, fields []Field) ([2]RegClass, error) {
	if size > 16 {
		return [2]RegClass{ClassMem, ClassMem}, nil
	}
	var out [2]RegClass
	if err := classifyFields(fields, &out); err != nil {
		return out, err
	}
	if out[0] == ClassNone {
		out[0] = ClassSSE
	}
	if size > 8 && out[1] == ClassNone {
		out[1] = ClassSSE
	}
	return out, nil
}

func classifyFields(fields []Field, out *[2]RegClass) error {
	for _, f := range fields {
		switch f.Kind {
		case FieldVector:
			return ErrUnclassifiedVector
		case FieldNestedStruct:
			if err := classifyNested(f, out); err != nil {
				return err
			}
			continue
		}
		class := ClassInt
		if f.Kind == FieldFloat {
			class = ClassSSE
		}
		if err := mergeField(f.Offset, f.Size, class, out); err != nil {
			return err
		}
	}
	return nil
}

func classifyNested(f Field, out *[2]RegClass) error {
	for _, nf := range f.Nested {
		shifted := nf
		shifted.Offset += f.Offset
		if shifted.Kind == FieldNestedStruct {
			if err := classifyNested(shifted, out); err != nil {
				return err
			}
			continue
		}
		if shifted.Kind == FieldVector {
			return ErrUnclassifiedVector
		}
		class := ClassInt
		if shifted.Kind == FieldFloat {
			class = ClassSSE
		}
		if err := mergeField(shifted.Offset, shifted.Size, class, out); err != nil {
			return err
		}
	}
	return nil
}

// mergeField folds one field's class into the eightbyte(s) it occupies,
// forcing MEM if the field straddles the eightbyte boundary unaligned
// (spec.md §4.I: "Unaligned access within an eightbyte → MEM").
func mergeField(offset, size uintptr, class RegClass, out *[2]RegClass) error {
	start := offset / 8
	end := (offset + size - 1) / 8
	if end > 1 {
		out[0], out[1] = ClassMem, ClassMem
		return nil
	}
	if start != end {
		if offset%8 != 0 {
			out[0], out[1] = ClassMem, ClassMem
			return nil
		}
	}
	for eb := start; eb <= end; eb++ {
		out[eb] = merge(out[eb], class)
	}
	return nil
}
