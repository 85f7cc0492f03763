package ffi

import (
	"math"

	"github.com/duskvm/duskvm/value"
)

// inferVarargType implements spec.md §4.I step 1's vararg inference
// table: a managed value passed where no declared parameter exists gets
// a C type inferred from its managed kind, mirroring lj_ccall.c's
// ccall_classify_arg default-promotion rules (float promotes to double,
// etc).
func inferVarargType(v value.Value) ArgType {
	switch p := v.Payload.(type) {
	case float64:
		return ArgType{Kind: ArgFloat, Size: 8, Align: 8}
	case bool:
		_ = p
		return ArgType{Kind: ArgInt, Size: 4, Align: 4}
	case string:
		return ArgType{Kind: ArgPointer, Size: 8, Align: 8}
	default:
		if o, ok := v.Object(); ok {
			if cd, ok := o.(*value.Cdata); ok {
				return cdataArgType(cd)
			}
		}
		return ArgType{Kind: ArgPointer, Size: 8, Align: 8}
	}
}

// cdataArgType infers the marshalling type for a raw cdata vararg, per
// spec.md §4.I's "cdata pointer/array/struct → pointer" vararg rule: the
// cdata is passed as a pointer to its storage whatever its size, so a
// struct vararg is never passed by value.
func cdataArgType(cd *value.Cdata) ArgType {
	return ArgType{Kind: ArgPointer, Size: 8, Align: 8}
}

// cconvCtTv is the managed->native coercion the marshaller uses to write
// a Value into a GPR/FPR/stack slot, mirroring cconv_ct_tv. Only the
// scalar cases are implemented directly; ArgStruct destinations are
// handled by the caller (args.go), which has access to the raw cdata
// bytes.
func cconvCtTv(t ArgType, v value.Value) (uint64, error) {
	switch t.Kind {
	case ArgFloat, ArgComplexFloat, ArgComplexDouble:
		f, ok := v.Payload.(float64)
		if !ok {
			return 0, ErrNYICall
		}
		return math.Float64bits(f), nil
	case ArgInt:
		if f, ok := v.Payload.(float64); ok {
			return uint64(int64(f)), nil
		}
		if b, ok := v.Payload.(bool); ok {
			if b {
				return 1, nil
			}
			return 0, nil
		}
		return 0, ErrNYICall
	case ArgPointer:
		if s, ok := v.Payload.(string); ok {
			return stringPointer(s), nil
		}
		if o, ok := v.Object(); ok {
			return objectPointer(o), nil
		}
		return 0, nil
	default:
		return 0, ErrNYICall
	}
}

// cconvTvCt is the native->managed coercion used when unpacking a
// return value, mirroring cconv_tv_ct.
func cconvTvCt(t ArgType, bits uint64) value.Value {
	switch t.Kind {
	case ArgFloat, ArgComplexFloat, ArgComplexDouble:
		return value.FromNumber(math.Float64frombits(bits))
	case ArgInt:
		return value.FromNumber(float64(int64(bits)))
	default:
		return value.Nil
	}
}

// complexParts extracts the real/imaginary halves of a managed complex
// payload for the ComplexArg placement paths.
func complexParts(v value.Value) (re, im float64, ok bool) {
	c, ok := v.Payload.(complex128)
	if !ok {
		return 0, 0, false
	}
	return real(c), imag(c), true
}

// fbits reinterprets a float64 as its raw bit pattern for a register slot.
func fbits(f float64) uint64 { return math.Float64bits(f) }

// fToFloat reinterprets a register slot's raw bit pattern as a float64.
func fToFloat(bits uint64) float64 { return math.Float64frombits(bits) }

// packComplexFloat packs two float32 halves into a single GPR slot, the
// x64 Windows "complex float in GPR" representation spec.md §4.I names.
func packComplexFloat(re, im float64) uint64 {
	lo := uint64(math.Float32bits(float32(re)))
	hi := uint64(math.Float32bits(float32(im)))
	return lo | hi<<32
}
