package ffi

import (
	"encoding/binary"

	"github.com/duskvm/duskvm/value"
)

const ptrSize = 8

// SetArgs walks args in declaration order and places each into cs's
// register shadows or outgoing stack buffer, mirroring ccall_set_args
// (spec.md §4.I's numbered argument walk). params gives the declared,
// non-variadic prefix; variadic must be true for any call passing more
// arguments than len(params).
func SetArgs(p Policy, cs *CallState, params []ArgType, variadic bool, args []value.Value) error {
	if !variadic && len(args) != len(params) {
		return ErrNumArgs
	}
	if len(args) < len(params) {
		return ErrNumArgs
	}

	budget := p.regBudget()
	for i, arg := range args {
		// Step 1: destination type.
		var t ArgType
		if i < len(params) {
			t = params[i]
		} else {
			t = inferVarargType(arg)
		}
		isVararg := i >= len(params)

		// Step 3: per-target struct/complex argument hook, which may
		// rewrite t/arg to a pointer (temp-allocated struct/complex) or
		// split handling across eightbytes.
		if t.Kind == ArgStruct {
			if err := placeStructArg(p, cs, t, arg, isVararg); err != nil {
				return err
			}
			continue
		}
		if t.Kind == ArgComplexFloat || t.Kind == ArgComplexDouble {
			if err := placeComplexArg(p, cs, t, arg, isVararg); err != nil {
				return err
			}
			continue
		}

		if err := placeScalarArg(p, cs, t, arg, isVararg, budget); err != nil {
			return err
		}
	}
	return nil
}

// placeScalarArg handles steps 4-7 for a plain integer/float/pointer
// argument: register placement when the budget allows, stack placement
// otherwise, then the managed->native coercion.
func placeScalarArg(p Policy, cs *CallState, t ArgType, v value.Value, isVararg bool, budget regBudget) error {
	bits, err := cconvCtTv(t, v)
	if err != nil {
		return err
	}

	if p.Positional {
		// x64 Windows argument registers are strictly positional: one
		// shared index (the original's ngpr) picks the slot regardless
		// of whether this argument is int or float, so a float still
		// burns the gpr slot an int would have used. Mirrors
		// ccall_set_args's Windows/x64 CCALL_HANDLE_REGARG.
		return placePositionalArg(p, cs, t, bits, isVararg, budget)
	}

	if t.IsFP() {
		if cs.NFPR < budget.nfpr {
			cs.FPR[cs.NFPR] = bits
			cs.NFPR++
			if p.VarargMirror && isVararg && cs.NGPR < budget.ngpr {
				// Step 8 (x64 Windows): mirror the last-written register
				// slot into the other bank for every vararg, matching
				// ccall_set_args's isva handling inside the loop.
				cs.GPR[cs.NGPR] = bits
				cs.NGPR++
			}
			return nil
		}
	} else {
		if cs.NGPR < budget.ngpr {
			cs.GPR[cs.NGPR] = bits
			cs.NGPR++
			if p.VarargMirror && isVararg && cs.NFPR < budget.nfpr {
				cs.FPR[cs.NFPR] = bits
				cs.NFPR++
			}
			return nil
		}
	}
	return pushStack(cs, bits, 8)
}

// placePositionalArg implements the one-shared-index register rule: cs.NGPR
// is the single positional counter (cs.NFPR is kept mirrored to it so
// other call sites that only look at one counter still see the right
// slot count), and VarargMirror additionally copies the value into the
// other bank for a vararg regardless of which bank it was placed in.
func placePositionalArg(p Policy, cs *CallState, t ArgType, bits uint64, isVararg bool, budget regBudget) error {
	idx := cs.NGPR
	if idx >= budget.ngpr {
		return pushStack(cs, bits, 8)
	}
	if t.IsFP() {
		cs.FPR[idx] = bits
		if p.VarargMirror && isVararg {
			cs.GPR[idx] = bits
		}
	} else {
		cs.GPR[idx] = bits
		if p.VarargMirror && isVararg {
			cs.FPR[idx] = bits
		}
	}
	cs.NGPR++
	cs.NFPR = cs.NGPR
	return nil
}

// placeStructArg implements the StructArg column of spec.md §4.I's
// per-target table.
func placeStructArg(p Policy, cs *CallState, t ArgType, v value.Value, isVararg bool) error {
	o, ok := v.Object()
	if !ok {
		return ErrNYICall
	}
	cd, ok := o.(*value.Cdata)
	if !ok {
		return ErrNYICall
	}

	switch p.StructArg {
	case StructArgOnStack:
		return pushStackBytes(cs, cd.Bytes)

	case StructArgByRefTemp:
		// PPC/SPE always allocates a temp and passes a pointer; the
		// struct's own bytes already are that temp (cdata is heap
		// storage), so just pass its address.
		return placeScalarArg(p, cs, ArgType{Kind: ArgPointer, Size: 8}, v, isVararg, p.regBudget())

	case StructArgRegIfSmall:
		if isSmallGPRSize(uintptr(len(cd.Bytes))) {
			budget := p.regBudget()
			var buf [8]byte
			copy(buf[:], cd.Bytes)
			bits := binary.LittleEndian.Uint64(buf[:])
			if cs.NGPR < budget.ngpr {
				cs.GPR[cs.NGPR] = bits
				cs.NGPR++
				if p.Positional {
					cs.NFPR = cs.NGPR
				}
				return nil
			}
			return pushStack(cs, bits, 8)
		}
		return placeScalarArg(p, cs, ArgType{Kind: ArgPointer, Size: 8}, v, isVararg, p.regBudget())

	case StructArgClassifyPack:
		classes, err := ClassifyStruct(t.Size, t.Fields)
		if err != nil {
			return err
		}
		if classes[0] == ClassMem {
			return placeScalarArg(p, cs, ArgType{Kind: ArgPointer, Size: 8}, v, isVararg, p.regBudget())
		}
		budget := p.regBudget()
		for eb := 0; eb < 2 && uintptr(eb*8) < t.Size; eb++ {
			lo, hi := eb*8, eb*8+8
			if hi > len(cd.Bytes) {
				hi = len(cd.Bytes)
			}
			var buf [8]byte
			copy(buf[:], cd.Bytes[lo:hi])
			bits := binary.LittleEndian.Uint64(buf[:])
			if classes[eb] == ClassSSE {
				if cs.NFPR >= budget.nfpr {
					return ErrNYICall
				}
				cs.FPR[cs.NFPR] = bits
				cs.NFPR++
			} else {
				if cs.NGPR >= budget.ngpr {
					return ErrNYICall
				}
				cs.GPR[cs.NGPR] = bits
				cs.NGPR++
			}
		}
		return nil

	default:
		return ErrNYICall
	}
}

// placeComplexArg implements the ComplexArg column.
func placeComplexArg(p Policy, cs *CallState, t ArgType, v value.Value, isVararg bool) error {
	re, im, ok := complexParts(v)
	if !ok {
		return ErrNYICall
	}
	switch p.ComplexArg {
	case ComplexArgOnStack:
		if err := pushStack(cs, fbits(re), 8); err != nil {
			return err
		}
		return pushStack(cs, fbits(im), 8)
	case ComplexArgFPRPair:
		budget := p.regBudget()
		if cs.NFPR+1 >= budget.nfpr {
			return ErrNYICall
		}
		cs.FPR[cs.NFPR] = fbits(re)
		cs.NFPR++
		cs.FPR[cs.NFPR] = fbits(im)
		cs.NFPR++
		return nil
	case ComplexArgGPRIfFloat:
		if t.Kind == ArgComplexFloat {
			budget := p.regBudget()
			if cs.NGPR >= budget.ngpr {
				return ErrNYICall
			}
			cs.GPR[cs.NGPR] = packComplexFloat(re, im)
			cs.NGPR++
			if p.Positional {
				cs.NFPR = cs.NGPR
			}
			return nil
		}
		return placeScalarArg(p, cs, ArgType{Kind: ArgPointer, Size: 8}, v, isVararg, p.regBudget())
	case ComplexArgMultiGPR:
		budget := p.regBudget()
		if cs.NGPR+1 >= budget.ngpr {
			return ErrNYICall
		}
		cs.GPR[cs.NGPR] = fbits(re)
		cs.NGPR++
		cs.GPR[cs.NGPR] = fbits(im)
		cs.NGPR++
		return nil
	default:
		return ErrNYICall
	}
}

// isSmallGPRSize reports whether a struct of the given size is one of the
// 1/2/4/8-byte sizes x64 Windows packs straight into a single GPR, rather
// than spilling to a caller-allocated temp passed by pointer.
func isSmallGPRSize(size uintptr) bool {
	return size == 1 || size == 2 || size == 4 || size == 8
}

func pushStack(cs *CallState, bits uint64, size int) error {
	if cs.NSP+size > len(cs.Stack) {
		return ErrNYICall
	}
	binary.LittleEndian.PutUint64(cs.Stack[cs.NSP:], bits)
	cs.NSP += size
	return nil
}

func pushStackBytes(cs *CallState, b []byte) error {
	aligned := (len(b) + 7) &^ 7
	if cs.NSP+aligned > len(cs.Stack) {
		return ErrNYICall
	}
	copy(cs.Stack[cs.NSP:], b)
	cs.NSP += aligned
	return nil
}
