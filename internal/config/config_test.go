package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseOptLevel(t *testing.T) {
	tests := []struct {
		in   string
		want OptLevel
		flag string
	}{
		{"none", OptNone, "-O0"},
		{"less", OptLess, "-O1"},
		{"default", OptDefault, "-O2"},
		{"Aggressive", OptAggressive, "-O3"},
		{"", OptDefault, "-O2"},
	}
	for _, tt := range tests {
		got, err := ParseOptLevel(tt.in)
		if err != nil {
			t.Fatalf("%q: %v", tt.in, err)
		}
		if got != tt.want || got.Flag() != tt.flag {
			t.Errorf("%q: expected %v/%s, got %v/%s", tt.in, tt.want, tt.flag, got, got.Flag())
		}
	}
	if _, err := ParseOptLevel("max"); err == nil {
		t.Errorf("expected error for unknown level")
	}
}

func TestParseReturnKind(t *testing.T) {
	if rk, err := ParseReturnKind("bytes32"); err != nil || rk != ReturnBytes32 {
		t.Errorf("expected bytes32, got %v %v", rk, err)
	}
	if rk, err := ParseReturnKind("u256"); err != nil || rk != ReturnU256 {
		t.Errorf("expected u256, got %v %v", rk, err)
	}
	if _, err := ParseReturnKind("i32"); err == nil {
		t.Errorf("expected error")
	}
}

func TestDebugImpliesNoInlineAndO0(t *testing.T) {
	o := Default()
	o.ApplyDebug()
	if !o.Debug || !o.NoInline || o.OptLevel != OptNone {
		t.Errorf("unexpected options: %+v", o)
	}
	tst := Test("Counter")
	if tst.MainContract != "Counter" || !tst.LittleEndianStorage || !tst.Debug {
		t.Errorf("unexpected test options: %+v", tst)
	}
}

func TestSymbols(t *testing.T) {
	o := Default()
	if err := o.AddSymbol("lib/Math.sol:Math=0x00000000000000000000000000000000000000aa"); err != nil {
		t.Fatal(err)
	}
	addr, err := SymbolAddress(o.Symbols["lib/Math.sol:Math"])
	if err != nil || addr.Uint64() != 0xaa {
		t.Errorf("unexpected address %v %v", addr, err)
	}

	for _, bad := range []string{"noequals", "=0x1", "x=", "x=0xzz", "x=0x1" + strings.Repeat("0", 64)} {
		if _, _, err := ParseSymbol(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
	if v, err := SymbolAddress("0x000"); err != nil || !v.IsZero() {
		t.Errorf("all-zero address: %v %v", v, err)
	}
}

func TestEffectiveOptLevel(t *testing.T) {
	o := Default()
	o.OptLevel = OptAggressive
	if o.EffectiveOptLevel() != OptAggressive {
		t.Errorf("got %v, want aggressive", o.EffectiveOptLevel())
	}
	o.DisableAllOptimizers = true
	if o.EffectiveOptLevel() != OptNone {
		t.Errorf("disabled optimizers should give none, got %v", o.EffectiveOptLevel())
	}
}

func TestStackSize(t *testing.T) {
	o := Default()
	if o.StackSize(false) != 0x10000 {
		t.Errorf("default stack should be one page")
	}
	o.EnableAllOptimizers = true
	if o.StackSize(false) != 32768 {
		t.Errorf("optimized leaf contract gets half a page")
	}
	if o.StackSize(true) != 0x10000 {
		t.Errorf("factory contracts keep a full page")
	}
}

func TestContractName(t *testing.T) {
	if ContractName("Token_deployed") != "Token" || ContractName("Token") != "Token" {
		t.Errorf("unexpected contract names")
	}
}

func TestValidate(t *testing.T) {
	o := Default()
	o.DisableAllOptimizers = true
	o.EnableAllOptimizers = true
	if err := o.Validate(); err == nil {
		t.Errorf("expected conflict error")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvClangRTDir, "/opt/rt")
	t.Setenv(EnvStdlibDir, "")
	o := Default()
	o.ApplyEnv("/usr/local/bin/yul2wasm")
	if o.ClangRTDir != "/opt/rt" {
		t.Errorf("expected env clang rt dir, got %q", o.ClangRTDir)
	}
	if o.StdlibDir != filepath.Join("/usr/local", "lib") {
		t.Errorf("expected /usr/local/lib, got %q", o.StdlibDir)
	}

	t.Setenv(EnvClangRTDir, "")
	o = Default()
	o.ApplyEnv("/work/yul2wasm")
	if o.ClangRTDir != filepath.Join("/work", "lib", "wasi") {
		t.Errorf("unexpected default clang rt dir %q", o.ClangRTDir)
	}
}

func TestConfigFile(t *testing.T) {
	src := `
[build]
opt_level = "aggressive"
default_return = "bytes32"
minify_wasm_size = true
little_endian_storage = false

[symbols]
"contracts/Lib.sol:Lib" = "0x1234"

[tools]
llc = "/opt/llvm/bin/llc"

[paths]
stdlib = "/opt/yul2wasm/lib"
`
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}
	f, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	o := Default()
	o.LittleEndianStorage = true
	if err := f.Apply(&o); err != nil {
		t.Fatal(err)
	}
	if o.OptLevel != OptAggressive || o.DefaultReturn != ReturnBytes32 || !o.MinifyWasmSize {
		t.Errorf("build section not applied: %+v", o)
	}
	if o.LittleEndianStorage {
		t.Errorf("explicit false should override")
	}
	if o.Symbols["contracts/Lib.sol:Lib"] != "0x1234" {
		t.Errorf("symbols not applied: %v", o.Symbols)
	}
	if o.Tools.LLC != "/opt/llvm/bin/llc" || o.Tools.WasmLd != "wasm-ld" {
		t.Errorf("tools not applied: %+v", o.Tools)
	}
	if o.StdlibDir != "/opt/yul2wasm/lib" {
		t.Errorf("paths not applied: %q", o.StdlibDir)
	}
}

func TestConfigFileErrors(t *testing.T) {
	if _, err := ParseFile([]byte("[build]\nopt_lvl = \"none\"\n")); err == nil {
		t.Errorf("expected unknown key error")
	}
	f, err := ParseFile([]byte("[build]\nopt_level = \"fast\"\n"))
	if err != nil {
		t.Fatal(err)
	}
	o := Default()
	if err := f.Apply(&o); err == nil {
		t.Errorf("expected invalid opt level error")
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Errorf("expected read error")
	}
}
