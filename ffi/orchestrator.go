package ffi

import (
	"github.com/duskvm/duskvm/gc"
	"github.com/duskvm/duskvm/value"
)

// Trampoline stands in for vm_ffi_call, the assembly entry point that
// loads registers from a CallState per ABI and invokes the native
// function. Out of scope per spec.md §1 (no real native call happens
// here); tests supply a fake that pokes expected register values.
type Trampoline interface {
	Invoke(cs *CallState) error
}

// Declaration describes one callable foreign function: its entry point,
// parameter/return shape, and calling convention. Convention starts as
// declared and may be corrected in place by CallFunc's __stdcall
// auto-detection (spec.md §4.I).
type Declaration struct {
	Func       uintptr
	Params     []ArgType
	Variadic   bool
	Return     ArgType
	Policy     Policy
	Convention string // "cdecl" or "stdcall"; only meaningful on x86
}

// CallFunc is the outer call orchestrator (component J): it builds a
// CallState, pushes arguments, invokes the trampoline, unpacks results,
// and runs one GC step per value that caused a managed allocation
// during marshalling, mirroring call_func/gcsteps.
func CallFunc(c *gc.Collector, t Trampoline, decl *Declaration, args []value.Value, resultBuf *value.Cdata) ([]value.Value, error) {
	cs := NewCallState(decl.Func)

	retByRef := decl.Return.Kind == ArgStruct && decl.Policy.StructReturn == StructRetByRef
	if decl.Return.Kind == ArgStruct {
		switch decl.Policy.Target {
		case TargetX64SysV:
			// x64 SysV classifies per call rather than per target: a
			// struct whose eightbytes come out MEM is returned by
			// reference in GPR0 even though this target's StructReturn
			// column is otherwise StructRetByValue (spec.md §4.I: "if
			// any class is MEM, by ref in GPR; else returned across
			// GPR0/1 and FPR0/1").
			classes, err := ClassifyStruct(decl.Return.Size, decl.Return.Fields)
			if err != nil {
				return nil, err
			}
			retByRef = classes[0] == ClassMem
		case TargetX64Win:
			// x64 Windows only packs a struct straight into gpr[0] when
			// it is exactly 1/2/4/8 bytes; anything else falls back to
			// the by-ref-in-GPR path (spec.md §4.I: "in GPR if 1/2/4/8;
			// else by ref in GPR").
			retByRef = !isSmallGPRSize(decl.Return.Size)
		}
	}
	if retByRef {
		cs.RetRef = true
		if resultBuf != nil {
			cs.resultBuf = resultBuf.Bytes
			if err := pushImplicitRetPointer(cs, decl.Policy.Target, resultBuf); err != nil {
				return nil, err
			}
		}
	}

	if err := SetArgs(decl.Policy, cs, decl.Params, decl.Variadic, args); err != nil {
		return nil, err
	}

	if err := t.Invoke(cs); err != nil {
		return nil, err
	}

	detectStdcall(c, decl, cs)

	results, err := GetResults(decl.Policy, cs, decl.Return, resultBuf)
	if err != nil {
		return nil, err
	}

	gcsteps := 0
	if resultBuf != nil {
		gcsteps++
	}
	for _, r := range results {
		if o, ok := r.Object(); ok && o != gc.Object(resultBuf) {
			gcsteps++
		}
	}
	for i := 0; i < gcsteps && c != nil; i++ {
		c.Step()
	}

	return results, nil
}

// pushImplicitRetPointer passes resultBuf's address as the implicit
// first argument a by-ref struct return requires.
func pushImplicitRetPointer(cs *CallState, target Target, resultBuf *value.Cdata) error {
	ptr := objectPointer(resultBuf)
	budget := regBudgets[target]
	if cs.NGPR < budget.ngpr {
		cs.GPR[cs.NGPR] = ptr
		cs.NGPR++
		return nil
	}
	return pushStack(cs, ptr, ptrSize)
}

// detectStdcall implements spec.md §4.I's x86-only __stdcall
// auto-detection (end-to-end scenario 6): a call declared cdecl whose
// trampoline reports a non-zero stack adjustment means the callee
// cleaned its own arguments off the stack, i.e. it is really stdcall.
// The declaration is corrected in place and any JIT trace covering the
// call site is aborted, matching the original's trace_abort call.
func detectStdcall(c *gc.Collector, decl *Declaration, cs *CallState) {
	if decl.Policy.Target != TargetX86Win || decl.Convention != "cdecl" || cs.SPAdj == 0 {
		return
	}
	decl.Convention = "stdcall"
	if c != nil && c.JIT != nil {
		c.JIT.Abort()
	}
}
