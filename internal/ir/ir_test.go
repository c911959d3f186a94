package ir

import (
	"math/big"
	"strings"
	"testing"
)

func buildAddFunction(m *Module) *Function {
	fn := m.NewFunction("add2", I256, I256, I256)
	b := NewBuilder(fn)
	sum := b.Add(fn.Param(0), fn.Param(1))
	b.Ret(sum)
	return fn
}

func TestPrintFunction(t *testing.T) {
	m := NewModule("test")
	buildAddFunction(m)
	out := m.String()

	for _, want := range []string{
		`target triple = "wasm32-unknown-unknown"`,
		"define i256 @add2(i256 %arg0, i256 %arg1) {",
		"entry:",
		"%t0 = add i256 %arg0, %arg1",
		"ret i256 %t0",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
	if errs := Validate(m); len(errs) != 0 {
		t.Errorf("unexpected validation errors: %v", errs)
	}
}

func TestPrintDeclarationsGlobalsAndAttributes(t *testing.T) {
	m := NewModule("test")
	store := m.Declare("wrapper_mstore_u256", Void, I32, Ptr)
	g := m.NewGlobal("yul.data.x", []byte{'a', 0, '"'}, true)

	fn := m.NewFunction("f", Void)
	fn.Linkage = Internal
	fn.Attrs = []string{"noinline"}
	b := NewBuilder(fn)
	b.Call(store, ConstUint64(I32, 64), g)
	b.Ret(nil)

	out := m.String()
	for _, want := range []string{
		"declare void @wrapper_mstore_u256(i32, ptr)",
		`@yul.data.x = private unnamed_addr constant [3 x i8] c"a\00\22", align 1`,
		"define internal void @f() #0 {",
		"call void @wrapper_mstore_u256(i32 64, ptr @yul.data.x)",
		"attributes #0 = { noinline }",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}

	if m.Declare("wrapper_mstore_u256", Void, I32, Ptr) != store {
		t.Errorf("Declare should return the existing function")
	}
}

func TestConstFormatting(t *testing.T) {
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	tests := []struct {
		c    *Const
		want string
	}{
		{ConstUint64(I32, 5), "5"},
		{ConstInt(I256, max), "-1"},
		{ConstInt(I32, big.NewInt(-2)), "-2"},
		{ConstUint64(I32, 0xffffffff), "-1"},
		{ConstUint64(I64, 1<<62), "4611686018427387904"},
		{True, "true"},
		{False, "false"},
	}
	for _, tt := range tests {
		if got := tt.c.Ident(); got != tt.want {
			t.Errorf("expected %s, got %s", tt.want, got)
		}
	}
	if ConstInt(I32, big.NewInt(-1)).Int().Uint64() != 0xffffffff {
		t.Errorf("negative constants are stored as two's complement")
	}
}

func TestAllocaHoistedToEntry(t *testing.T) {
	m := NewModule("test")
	fn := m.NewFunction("f", Void)
	b := NewBuilder(fn)
	loop := fn.NewBlock("loop")
	b.Br(loop)
	b.SetInsertPoint(loop)
	slot := b.Alloca(I256)
	b.Store(ConstUint64(I256, 1), slot)
	b.Ret(nil)

	entry := fn.Entry()
	if entry.Instrs[0] != slot {
		t.Fatalf("expected alloca first in entry block, got %s", FormatInstr(entry.Instrs[0]))
	}
	if errs := Validate(m); len(errs) != 0 {
		t.Errorf("unexpected validation errors: %v", errs)
	}
}

func TestBlockNamesAreUnique(t *testing.T) {
	fn := NewModule("m").NewFunction("f", Void)
	a := fn.NewBlock("if.then")
	b := fn.NewBlock("if.then")
	if a.Name == b.Name {
		t.Errorf("expected distinct names, both are %q", a.Name)
	}
}

func TestQuoteName(t *testing.T) {
	tests := map[string]string{
		"abc":        "abc",
		"yul.f$x":    "yul.f$x",
		"1abc":       `"1abc"`,
		"with space": `"with space"`,
	}
	for in, want := range tests {
		if got := quoteName(in); got != want {
			t.Errorf("quoteName(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func(m *Module)
		want  string
	}{
		{"missing terminator", func(m *Module) {
			fn := m.NewFunction("f", Void)
			b := NewBuilder(fn)
			b.Add(ConstUint64(I32, 1), ConstUint64(I32, 2))
		}, "does not end in a terminator"},
		{"operand mismatch", func(m *Module) {
			fn := m.NewFunction("f", Void)
			b := NewBuilder(fn)
			b.Add(ConstUint64(I32, 1), ConstUint64(I64, 2))
			b.Ret(nil)
		}, "operand types i32 and i64"},
		{"bad return", func(m *Module) {
			fn := m.NewFunction("f", I256)
			NewBuilder(fn).Ret(nil)
		}, "return type mismatch"},
		{"call arity", func(m *Module) {
			callee := m.Declare("g", Void, I32)
			fn := m.NewFunction("f", Void)
			b := NewBuilder(fn)
			b.Call(callee)
			b.Ret(nil)
		}, "with 0 arguments, want 1"},
		{"call type", func(m *Module) {
			callee := m.Declare("g", Void, I32)
			fn := m.NewFunction("f", Void)
			b := NewBuilder(fn)
			b.Call(callee, ConstUint64(I256, 1))
			b.Ret(nil)
		}, "argument 0 of g is i256, want i32"},
		{"bad trunc", func(m *Module) {
			fn := m.NewFunction("f", Void)
			b := NewBuilder(fn)
			b.Trunc(ConstUint64(I32, 1), I64)
			b.Ret(nil)
		}, "trunc from i32 to i64"},
		{"terminator in middle", func(m *Module) {
			fn := m.NewFunction("f", Void)
			b := NewBuilder(fn)
			b.Ret(nil)
			b.Ret(nil)
		}, "terminator ret in the middle"},
		{"foreign value", func(m *Module) {
			other := m.NewFunction("o", I32)
			ob := NewBuilder(other)
			v := ob.Add(ConstUint64(I32, 1), ConstUint64(I32, 1))
			ob.Ret(v)
			fn := m.NewFunction("f", I32)
			NewBuilder(fn).Ret(v)
		}, "not defined in this function"},
		{"condbr type", func(m *Module) {
			fn := m.NewFunction("f", Void)
			b := NewBuilder(fn)
			next := fn.NewBlock("next")
			b.CondBr(ConstUint64(I32, 1), next, next)
			b.SetInsertPoint(next)
			b.Ret(nil)
		}, "conditional branch on non-i1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModule("m")
			tt.build(m)
			errs := Validate(m)
			joined := strings.Join(errs, "\n")
			if !strings.Contains(joined, tt.want) {
				t.Errorf("expected %q in:\n%s", tt.want, joined)
			}
		})
	}
}

func TestStructReturn(t *testing.T) {
	m := NewModule("m")
	pair := Struct(I256, I256)
	fn := m.NewFunction("pair", pair)
	b := NewBuilder(fn)
	agg := b.InsertValue(&Undef{Typ: pair}, ConstUint64(I256, 5), 0)
	agg = b.InsertValue(agg, ConstUint64(I256, 1), 1)
	b.Ret(agg)

	caller := m.NewFunction("caller", I256)
	cb := NewBuilder(caller)
	res := cb.Call(fn)
	first := cb.ExtractValue(res, 0)
	cb.Ret(first)

	out := m.String()
	if !strings.Contains(out, "insertvalue { i256, i256 } undef, i256 5, 0") {
		t.Errorf("unexpected insertvalue rendering:\n%s", out)
	}
	if !strings.Contains(out, "extractvalue { i256, i256 } %t0, 0") {
		t.Errorf("unexpected extractvalue rendering:\n%s", out)
	}
	if errs := Validate(m); len(errs) != 0 {
		t.Errorf("unexpected validation errors: %v", errs)
	}
}
