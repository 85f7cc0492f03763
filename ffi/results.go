package ffi

import (
	"encoding/binary"

	"github.com/duskvm/duskvm/value"
)

// GetResults implements spec.md §4.I's return-unpacking rules,
// mirroring ccall_get_results. ret describes the declared return type;
// resultBuf is the caller-preallocated cdata backing a struct return,
// whether by ref or reassembled from registers (nil for scalar/void
// returns). Returns zero values for void.
func GetResults(p Policy, cs *CallState, ret ArgType, resultBuf *value.Cdata) ([]value.Value, error) {
	switch ret.Kind {
	case ArgStruct:
		return getStructResult(p, cs, ret, resultBuf)
	case ArgComplexFloat, ArgComplexDouble:
		return getComplexResult(p, cs, ret)
	default:
		if ret.Size == 0 {
			return nil, nil // void
		}
		return []value.Value{cconvTvCt(ret, primaryRegister(cs, ret))}, nil
	}
}

// primaryRegister returns GPR[0] for integer/pointer returns or FPR[0]
// for float returns, the single-register unpacking case.
func primaryRegister(cs *CallState, t ArgType) uint64 {
	if t.IsFP() {
		return cs.FPR[0]
	}
	return cs.GPR[0]
}

func getStructResult(p Policy, cs *CallState, ret ArgType, resultBuf *value.Cdata) ([]value.Value, error) {
	if cs.RetRef {
		// Caller-supplied buffer already holds the callee's writes.
		return []value.Value{value.FromObject(resultBuf)}, nil
	}
	if resultBuf == nil || uintptr(len(resultBuf.Bytes)) < ret.Size {
		return nil, ErrNYICall
	}

	switch p.StructReturn {
	case StructRetByRef:
		return nil, ErrNYICall // RetRef should have been set by CallFunc for this policy
	case StructRetSmallGPR:
		// x64 Windows: the struct was packed straight into gpr[0], no
		// SSE/INT eightbyte classification (that's a SysV-only concept).
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], cs.GPR[0])
		copy(resultBuf.Bytes, buf[:ret.Size])
		return []value.Value{value.FromObject(resultBuf)}, nil
	case StructRetByValue:
		classes, err := ClassifyStruct(ret.Size, ret.Fields)
		if err != nil {
			return nil, err
		}
		gprIdx, fprIdx := 0, 0
		for eb := 0; eb < 2 && uintptr(eb*8) < ret.Size; eb++ {
			var bits uint64
			if classes[eb] == ClassSSE {
				bits = cs.FPR[fprIdx]
				fprIdx++
			} else {
				bits = cs.GPR[gprIdx]
				gprIdx++
			}
			lo, hi := eb*8, eb*8+8
			if hi > len(resultBuf.Bytes) {
				hi = len(resultBuf.Bytes)
			}
			var buf [8]byte
			binary.LittleEndian.PutUint64(buf[:], bits)
			copy(resultBuf.Bytes[lo:hi], buf[:hi-lo])
		}
		return []value.Value{value.FromObject(resultBuf)}, nil
	default:
		return nil, ErrNYICall
	}
}

func getComplexResult(p Policy, cs *CallState, ret ArgType) ([]value.Value, error) {
	switch p.ComplexReturn {
	case ComplexReturnFPRPair:
		re := fToFloat(cs.FPR[0])
		im := fToFloat(cs.FPR[1])
		return []value.Value{{Payload: complex(re, im)}}, nil
	case ComplexReturnMultiGPR:
		re := fToFloat(cs.GPR[0])
		im := fToFloat(cs.GPR[1])
		return []value.Value{{Payload: complex(re, im)}}, nil
	default:
		re := fToFloat(cs.GPR[0])
		im := fToFloat(cs.GPR[1])
		return []value.Value{{Payload: complex(re, im)}}, nil
	}
}
