package evmhost

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/holiman/uint256"

	"github.com/lhaig/yul2wasm/internal/codegen"
	"github.com/lhaig/yul2wasm/internal/ir"
	"github.com/lhaig/yul2wasm/internal/ir/interp"
)

func TestBindCoversRuntime(t *testing.T) {
	externs := (&runtime{s: NewState()}).externs()
	for _, name := range codegen.RuntimeNames() {
		if strings.HasPrefix(name, "llvm.") {
			continue
		}
		if _, ok := externs[name]; !ok {
			t.Errorf("no binding for runtime function %s", name)
		}
	}
}

// storeAndReturn builds call() { sstore(key, value); mstore(0, value); return(0, 32) }
// directly in IR, with native-endian spills as the code generator makes them.
func storeAndReturn(key, value uint64) *ir.Module {
	mod := ir.NewModule("t")
	sstore := mod.Declare("wrapper_sstore_u256", ir.Void, ir.Ptr, ir.Ptr)
	mstore := mod.Declare("wrapper_mstore_u256", ir.Void, ir.I32, ir.Ptr)
	ret := mod.Declare("wrapper_return", ir.Void, ir.I32, ir.I32)

	fn := mod.NewFunction("call", ir.Void)
	b := ir.NewBuilder(fn)
	k := b.Alloca(ir.I256)
	v := b.Alloca(ir.I256)
	b.Store(ir.ConstUint64(ir.I256, key), k)
	b.Store(ir.ConstUint64(ir.I256, value), v)
	b.Call(sstore, k, v)
	b.Call(mstore, ir.ConstUint64(ir.I32, 0), v)
	b.Call(ret, ir.ConstUint64(ir.I32, 0), ir.ConstUint64(ir.I32, 32))
	b.Unreachable()
	return mod
}

func TestStorageThroughInterpreter(t *testing.T) {
	s := NewState()
	m := interp.New(storeAndReturn(7, 0x1234))
	s.Bind(m)

	if err := s.Execute(m, "call"); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if s.Status != Finished {
		t.Fatalf("status = %v, want finished", s.Status)
	}
	if got := s.Slot(7); !got.Eq(uint256.NewInt(0x1234)) {
		t.Errorf("slot 7 = %s, want 0x1234", got.Hex())
	}
	want := WordFromUint64(0x1234)
	if !bytes.Equal(s.Output, want[:]) {
		t.Errorf("output = %x, want %x", s.Output, want)
	}
}

func TestExecuteWithoutHalt(t *testing.T) {
	mod := ir.NewModule("t")
	fn := mod.NewFunction("call", ir.Void)
	ir.NewBuilder(fn).Ret(nil)

	s := NewState()
	m := interp.New(mod)
	s.Bind(m)
	if err := s.Execute(m, "call"); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if s.Status != Finished || len(s.Output) != 0 {
		t.Errorf("status = %v output = %x", s.Status, s.Output)
	}
}

func TestExecuteReportsTraps(t *testing.T) {
	mod := ir.NewModule("t")
	fn := mod.NewFunction("call", ir.Void)
	ir.NewBuilder(fn).Unreachable()

	s := NewState()
	m := interp.New(mod)
	s.Bind(m)
	err := s.Execute(m, "call")
	if !errors.Is(err, interp.ErrUnreachable) {
		t.Fatalf("expected unreachable error, got %v", err)
	}
}

func TestSetImmutableOnce(t *testing.T) {
	s := NewState()
	slot := WordFromUint64(9)
	if err := s.setImmutable(slot, WordFromUint64(1)); err != nil {
		t.Fatalf("first set: %v", err)
	}
	if got := s.StorageLoad(slot).Uint256(); !got.Eq(uint256.NewInt(1)) {
		t.Errorf("immutable = %s", got.Hex())
	}
	err := s.setImmutable(slot, WordFromUint64(2))
	if !errors.Is(err, ErrHalted) || s.Status != Reverted {
		t.Fatalf("second set: err=%v status=%v", err, s.Status)
	}
	if string(s.Output) != "immutable slot already set" {
		t.Errorf("revert output = %q", s.Output)
	}
}

func TestCallOutcome(t *testing.T) {
	tests := []struct {
		name       string
		status     int32
		ret        []byte
		outLen     uint32
		wantOK     uint64
		wantCopied []byte
		wantStatus Status
	}{
		{"success no buffer", 0, []byte{1, 2}, 0, 1, nil, Running},
		{"revert no buffer", 1, []byte{1, 2}, 0, 0, nil, Running},
		{"success short output", 0, []byte{1, 2}, 4, 1, []byte{1, 2}, Running},
		{"success long output", 0, []byte{1, 2, 3, 4, 5}, 4, 1, []byte{1, 2, 3, 4}, Running},
		{"failure short output", 1, []byte{9}, 4, 0, nil, Reverted},
		{"failure no output", 1, nil, 4, 0, nil, Reverted},
		{"failure long output", 1, []byte{1, 2, 3, 4, 5}, 4, 0, []byte{1, 2, 3, 4}, Running},
		{"hard failure", 2, nil, 0, 0, nil, Reverted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState()
			s.ReturnData = tt.ret
			var copied []byte
			ok, err := s.callOutcome(tt.status, 0, tt.outLen, func(_ int32, data []byte) error {
				copied = append([]byte(nil), data...)
				return nil
			})
			if tt.wantStatus == Reverted {
				if !errors.Is(err, ErrHalted) || s.Status != Reverted {
					t.Fatalf("expected revert, got err=%v status=%v", err, s.Status)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok != tt.wantOK {
				t.Errorf("ok = %d, want %d", ok, tt.wantOK)
			}
			if !bytes.Equal(copied, tt.wantCopied) {
				t.Errorf("copied = %x, want %x", copied, tt.wantCopied)
			}
		})
	}
}

func TestFailedCallRevertsWithCalleeOutput(t *testing.T) {
	s := NewState()
	s.ReturnData = []byte("boom")
	_, err := s.callOutcome(1, 0, 32, func(int32, []byte) error { return nil })
	if !errors.Is(err, ErrHalted) {
		t.Fatalf("expected halt, got %v", err)
	}
	if string(s.Output) != "boom" {
		t.Errorf("revert output = %q, want boom", s.Output)
	}
}

func TestCreateSplitsPackagedBlob(t *testing.T) {
	s := NewState()
	blob := []byte{0, 0, 0, 3, 0xa, 0xb, 0xc, 0xff, 0xfe}
	a, err := s.create(WordFromUint64(5), blob, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(s.Creations) != 1 {
		t.Fatalf("expected one creation, got %d", len(s.Creations))
	}
	c := s.Creations[0]
	if !bytes.Equal(c.Code, blob[:7]) || !bytes.Equal(c.Input, []byte{0xff, 0xfe}) {
		t.Errorf("code = %x input = %x", c.Code, c.Input)
	}
	if c.Address != a || !bytes.Equal(s.ExternalCode(a), blob[:7]) {
		t.Error("created account not recorded")
	}

	// a second create lands elsewhere, create2 is deterministic
	b, _ := s.create(Word{}, blob, nil)
	if b == a {
		t.Error("two creates produced the same address")
	}
	salt := WordFromUint64(1)
	c1 := s.CreateContract(Word{}, blob, nil, &salt)
	c2 := s.CreateContract(Word{}, blob, nil, &salt)
	if c1 != c2 {
		t.Error("create2 address should depend only on creator, salt and code")
	}
}

func TestCreateRejectsBadLength(t *testing.T) {
	s := NewState()
	_, err := s.create(Word{}, []byte{0, 0, 1, 0, 1}, nil)
	if !errors.Is(err, ErrHalted) || s.Status != Reverted {
		t.Fatalf("expected revert, got %v", err)
	}
}

func TestWordHelpers(t *testing.T) {
	k := Keccak256(nil)
	if k.String() != "0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470" {
		t.Errorf("keccak256 of empty input = %s", k)
	}
	if got := AddMod(WordFromUint64(7), WordFromUint64(8), Word{}); got != (Word{}) {
		t.Errorf("addmod with zero modulus = %s", got)
	}
	ones := WordOf(new(uint256.Int).SetAllOne())
	if got := MulMod(ones, ones, WordFromUint64(12)).Uint256(); !got.Eq(uint256.NewInt(9)) {
		t.Errorf("mulmod(max, max, 12) = %s, want 9", got.Hex())
	}
	var a Address
	a[19] = 0x42
	w := AddressWord(a)
	if w[31] != 0x42 || w[11] != 0 {
		t.Errorf("address word = %s", w)
	}
}

func TestPrecompileRange(t *testing.T) {
	var a Address
	for _, tt := range []struct {
		last byte
		want bool
	}{{0, false}, {1, true}, {0x0a, true}, {0x0b, false}} {
		a[19] = tt.last
		if got := isPrecompile(a); got != tt.want {
			t.Errorf("isPrecompile(%#x) = %v", tt.last, got)
		}
	}
	a[0] = 1
	a[19] = 1
	if isPrecompile(a) {
		t.Error("high bytes set should not be a precompile")
	}
}
