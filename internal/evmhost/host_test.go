package evmhost

import (
	"bytes"
	"context"
	"testing"

	"github.com/lhaig/yul2wasm/internal/wasm"
)

// hostModule builds a contract whose call entry stores word 32..64 at
// key 0..32, hashes it into 64..96 and finishes with the hash. deploy
// reverts with the first four bytes of memory.
func hostModule() []byte {
	key := WordFromUint64(1)
	val := WordFromUint64(0xbeef)

	b := wasm.NewBuilder()
	store := b.Import("env", "storageStore", wasm.FuncType{Params: []byte{wasm.I32, wasm.I32}})
	keccak := b.Import("env", "keccak256", wasm.FuncType{Params: []byte{wasm.I32, wasm.I32, wasm.I32}})
	finish := b.Import("env", "finish", wasm.FuncType{Params: []byte{wasm.I32, wasm.I32}})
	revert := b.Import("env", "revert", wasm.FuncType{Params: []byte{wasm.I32, wasm.I32}})
	b.Memory(1)
	b.Global(wasm.I32, true, 1024)

	call := b.Func(wasm.FuncType{}, nil,
		wasm.I32Const(0), wasm.I32Const(32), wasm.Call(store),
		wasm.I32Const(32), wasm.I32Const(32), wasm.I32Const(64), wasm.Call(keccak),
		wasm.I32Const(64), wasm.I32Const(32), wasm.Call(finish),
	)
	deploy := b.Func(wasm.FuncType{}, nil,
		wasm.I32Const(0), wasm.I32Const(4), wasm.Call(revert),
		[]byte{wasm.OpUnreachable},
	)
	b.Export("memory", wasm.KindMemory, 0)
	b.Export("call", wasm.KindFunc, call)
	b.Export("deploy", wasm.KindFunc, deploy)
	b.Data(0, append(key[:], val[:]...))
	return b.Bytes()
}

func TestHostRunFinishes(t *testing.T) {
	ctx := context.Background()
	s := NewState()
	h, err := NewHost(ctx, s)
	if err != nil {
		t.Fatalf("NewHost: %v", err)
	}
	defer h.Close(ctx)

	if err := h.Run(ctx, hostModule(), "call"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.Status != Finished {
		t.Fatalf("status = %v, want finished", s.Status)
	}
	if got := s.Slot(1).Uint64(); got != 0xbeef {
		t.Errorf("slot 1 = %#x, want 0xbeef", got)
	}
	val := WordFromUint64(0xbeef)
	want := Keccak256(val[:])
	if !bytes.Equal(s.Output, want[:]) {
		t.Errorf("output = %x, want %x", s.Output, want)
	}
}

func TestHostRunReverts(t *testing.T) {
	ctx := context.Background()
	s := NewState()
	h, err := NewHost(ctx, s)
	if err != nil {
		t.Fatalf("NewHost: %v", err)
	}
	defer h.Close(ctx)

	if err := h.Run(ctx, hostModule(), "deploy"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.Status != Reverted {
		t.Fatalf("status = %v, want reverted", s.Status)
	}
	if !bytes.Equal(s.Output, make([]byte, 4)) {
		t.Errorf("revert output = %x", s.Output)
	}
}

func TestHostRunMissingEntry(t *testing.T) {
	ctx := context.Background()
	h, err := NewHost(ctx, NewState())
	if err != nil {
		t.Fatalf("NewHost: %v", err)
	}
	defer h.Close(ctx)

	if err := h.Run(ctx, hostModule(), "nope"); err == nil {
		t.Fatal("expected error for missing export")
	}
}

func TestHostRejectsUnknownImport(t *testing.T) {
	ctx := context.Background()
	h, err := NewHost(ctx, NewState())
	if err != nil {
		t.Fatalf("NewHost: %v", err)
	}
	defer h.Close(ctx)

	b := wasm.NewBuilder()
	b.Import("env", "doesNotExist", wasm.FuncType{})
	fn := b.Func(wasm.FuncType{}, nil)
	b.Export("call", wasm.KindFunc, fn)
	if err := h.Run(ctx, b.Bytes(), "call"); err == nil {
		t.Fatal("expected instantiation to fail")
	}
}

func TestHostFunctionsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, name := range HostFunctions() {
		if seen[name] {
			t.Errorf("duplicate host function %s", name)
		}
		seen[name] = true
	}
	for _, name := range []string{"storageLoad", "callContract", "createContract", "emitLogEvent", "finish"} {
		if !seen[name] {
			t.Errorf("missing host function %s", name)
		}
	}
}
