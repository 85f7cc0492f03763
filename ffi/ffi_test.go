package ffi

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskvm/duskvm/gc"
	"github.com/duskvm/duskvm/value"
)

// fakeTrampoline stands in for vm_ffi_call: it runs a caller-supplied
// hook against the CallState instead of touching real native code.
type fakeTrampoline struct {
	hook func(cs *CallState) error
}

func (f fakeTrampoline) Invoke(cs *CallState) error {
	if f.hook == nil {
		return nil
	}
	return f.hook(cs)
}

// scenario 5: FFI x64 SysV struct return.
func TestCallFunc_X64SysVStructReturn(t *testing.T) {
	decl := &Declaration{
		Func:   0x1000,
		Params: nil,
		Return: ArgType{
			Kind: ArgStruct,
			Size: 16,
			Fields: []Field{
				{Offset: 0, Size: 8, Kind: FieldFloat},
				{Offset: 8, Size: 8, Kind: FieldFloat},
			},
		},
		Policy:     PolicyFor(TargetX64SysV),
		Convention: "cdecl",
	}

	want0, want1 := 1.5, 2.5
	trampoline := fakeTrampoline{hook: func(cs *CallState) error {
		cs.FPR[0] = math.Float64bits(want0)
		cs.FPR[1] = math.Float64bits(want1)
		return nil
	}}

	resultBuf := value.NewCdata(1, 16)
	results, err := CallFunc(nil, trampoline, decl, nil, resultBuf)
	require.NoError(t, err)
	require.Len(t, results, 1)

	obj, ok := results[0].Object()
	require.True(t, ok)
	cd := obj.(*value.Cdata)

	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], math.Float64bits(want0))
	binary.LittleEndian.PutUint64(buf[8:16], math.Float64bits(want1))
	assert.Equal(t, buf[:], cd.Bytes)
}

// scenario 6: FFI x86 __stdcall auto-detection.
func TestCallFunc_X86StdcallAutoDetect(t *testing.T) {
	decl := &Declaration{
		Func:       0x2000,
		Params:     []ArgType{{Kind: ArgInt, Size: 4}},
		Return:     ArgType{Kind: ArgInt, Size: 4},
		Policy:     PolicyFor(TargetX86Win),
		Convention: "cdecl",
	}

	trampoline := fakeTrampoline{hook: func(cs *CallState) error {
		cs.SPAdj = 4 // callee cleaned its own argument off the stack
		cs.GPR[0] = 7
		return nil
	}}

	results, err := CallFunc(nil, trampoline, decl, []value.Value{value.FromNumber(1)}, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "stdcall", decl.Convention)
}

// x64 SysV structs larger than 16 bytes classify MEM and must be
// returned by reference even though the target's policy column is
// otherwise StructRetByValue.
func TestCallFunc_X64SysVOversizeStructReturnsByRef(t *testing.T) {
	decl := &Declaration{
		Func:   0x1001,
		Params: nil,
		Return: ArgType{
			Kind: ArgStruct,
			Size: 24,
		},
		Policy:     PolicyFor(TargetX64SysV),
		Convention: "cdecl",
	}

	var gotPtr uint64
	trampoline := fakeTrampoline{hook: func(cs *CallState) error {
		gotPtr = cs.GPR[0]
		return nil
	}}

	resultBuf := value.NewCdata(1, 24)
	results, err := CallFunc(nil, trampoline, decl, nil, resultBuf)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, objectPointer(resultBuf), gotPtr, "implicit return pointer must land in GPR0")
	obj, ok := results[0].Object()
	require.True(t, ok)
	assert.Same(t, resultBuf, obj.(*value.Cdata))
}

// x64 Windows packs a small struct straight into gpr[0] with no
// SSE/INT eightbyte classification, unlike x64 SysV's StructRetByValue.
func TestCallFunc_X64WinSmallStructReturnsInGPR(t *testing.T) {
	decl := &Declaration{
		Func:   0x1002,
		Params: nil,
		Return: ArgType{Kind: ArgStruct, Size: 4},
		Policy: PolicyFor(TargetX64Win),
	}

	trampoline := fakeTrampoline{hook: func(cs *CallState) error {
		cs.GPR[0] = 0x11223344
		return nil
	}}

	resultBuf := value.NewCdata(1, 4)
	results, err := CallFunc(nil, trampoline, decl, nil, resultBuf)
	require.NoError(t, err)
	require.Len(t, results, 1)

	var want [4]byte
	binary.LittleEndian.PutUint32(want[:], 0x11223344)
	assert.Equal(t, want[:], resultBuf.Bytes)
}

// an x64 Windows struct return outside {1,2,4,8} bytes falls back to
// by-ref-in-GPR, since StructRetSmallGPR only covers the small case.
func TestCallFunc_X64WinOversizeStructReturnsByRef(t *testing.T) {
	decl := &Declaration{
		Func:   0x1003,
		Params: nil,
		Return: ArgType{Kind: ArgStruct, Size: 24},
		Policy: PolicyFor(TargetX64Win),
	}

	var gotPtr uint64
	trampoline := fakeTrampoline{hook: func(cs *CallState) error {
		gotPtr = cs.GPR[0]
		return nil
	}}

	resultBuf := value.NewCdata(1, 24)
	results, err := CallFunc(nil, trampoline, decl, nil, resultBuf)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, objectPointer(resultBuf), gotPtr, "implicit return pointer must land in GPR0")
}

func TestClassifyStruct_AllInt(t *testing.T) {
	classes, err := ClassifyStruct(16, []Field{
		{Offset: 0, Size: 8, Kind: FieldInt},
		{Offset: 8, Size: 8, Kind: FieldInt},
	})
	require.NoError(t, err)
	assert.Equal(t, [2]RegClass{ClassInt, ClassInt}, classes)
}

func TestClassifyStruct_MixedIntFloat(t *testing.T) {
	classes, err := ClassifyStruct(16, []Field{
		{Offset: 0, Size: 8, Kind: FieldInt},
		{Offset: 8, Size: 8, Kind: FieldFloat},
	})
	require.NoError(t, err)
	assert.Equal(t, [2]RegClass{ClassInt, ClassSSE}, classes)
}

func TestClassifyStruct_OversizeIsMem(t *testing.T) {
	classes, err := ClassifyStruct(24, nil)
	require.NoError(t, err)
	assert.Equal(t, [2]RegClass{ClassMem, ClassMem}, classes)
}

func TestClassifyStruct_VectorFieldRejected(t *testing.T) {
	_, err := ClassifyStruct(16, []Field{{Offset: 0, Size: 16, Kind: FieldVector}})
	assert.ErrorIs(t, err, ErrUnclassifiedVector)
}

func TestSetArgs_NumArgsMismatch(t *testing.T) {
	cs := NewCallState(0)
	err := SetArgs(PolicyFor(TargetX64SysV), cs, []ArgType{{Kind: ArgInt, Size: 4}}, false, nil)
	assert.ErrorIs(t, err, ErrNumArgs)
}

func TestSetArgs_X64SysVVarargMixedFixedAndVariadic(t *testing.T) {
	cs := NewCallState(0)
	params := []ArgType{{Kind: ArgInt, Size: 8}}
	args := []value.Value{value.FromNumber(3), value.FromNumber(4.5)}
	err := SetArgs(PolicyFor(TargetX64SysV), cs, params, true, args)
	require.NoError(t, err)
	assert.Equal(t, 1, cs.NGPR)
	assert.Equal(t, 1, cs.NFPR)
}

// x64 Windows argument registers are strictly positional: a float
// argument still burns the gpr slot an int would have used, so
// (float, int) fixed args must land in fpr[0]/gpr[1], not fpr[0]/gpr[0].
func TestSetArgs_X64WinArgsArePositional(t *testing.T) {
	cs := NewCallState(0)
	params := []ArgType{{Kind: ArgFloat, Size: 8}, {Kind: ArgInt, Size: 4}}
	args := []value.Value{value.FromNumber(1.5), value.FromNumber(7)}
	err := SetArgs(PolicyFor(TargetX64Win), cs, params, false, args)
	require.NoError(t, err)

	assert.Equal(t, math.Float64bits(1.5), cs.FPR[0])
	assert.Equal(t, uint64(7), cs.GPR[1], "int arg must occupy the second positional slot, not gpr[0]")
	assert.Equal(t, 2, cs.NGPR)
	assert.Equal(t, 2, cs.NFPR, "nfpr stays mirrored to the shared positional counter")
}

func TestCallFunc_ScalarReturnWithCollector(t *testing.T) {
	c := gc.New(func(p []byte, oldSize, newSize uintptr) []byte {
		return make([]byte, newSize)
	}, gc.DefaultConfig(), nil)

	decl := &Declaration{
		Func:   0x3000,
		Return: ArgType{Kind: ArgInt, Size: 8},
		Policy: PolicyFor(TargetX64SysV),
	}
	trampoline := fakeTrampoline{hook: func(cs *CallState) error {
		cs.GPR[0] = 42
		return nil
	}}
	results, err := CallFunc(c, trampoline, decl, nil, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, float64(42), results[0].Payload)
}
