// Package config holds the compile options shared by every pipeline
// stage. Options are assembled once per invocation (defaults, then the
// config file, then environment, then flags) and never mutated after
// compilation starts.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/holiman/uint256"
)

// OptLevel selects the optimization level handed to the LLVM tools
type OptLevel int

const (
	OptNone OptLevel = iota
	OptLess
	OptDefault
	OptAggressive
)

// ParseOptLevel parses none, less, default or aggressive
func ParseOptLevel(s string) (OptLevel, error) {
	switch strings.ToLower(s) {
	case "none", "0":
		return OptNone, nil
	case "less", "1":
		return OptLess, nil
	case "default", "2", "":
		return OptDefault, nil
	case "aggressive", "3":
		return OptAggressive, nil
	}
	return OptDefault, fmt.Errorf("unknown optimization level %q (want none, less, default or aggressive)", s)
}

func (o OptLevel) String() string {
	switch o {
	case OptNone:
		return "none"
	case OptLess:
		return "less"
	case OptAggressive:
		return "aggressive"
	default:
		return "default"
	}
}

// Flag returns the -O flag for llc and wasm-ld
func (o OptLevel) Flag() string {
	return fmt.Sprintf("-O%d", int(o))
}

// ReturnKind is the native kind of user function return values
type ReturnKind int

const (
	ReturnU256 ReturnKind = iota
	ReturnBytes32
)

// ParseReturnKind parses u256 or bytes32
func ParseReturnKind(s string) (ReturnKind, error) {
	switch strings.ToLower(s) {
	case "u256", "":
		return ReturnU256, nil
	case "bytes32":
		return ReturnBytes32, nil
	}
	return ReturnU256, fmt.Errorf("unknown return type %q (want u256 or bytes32)", s)
}

func (r ReturnKind) String() string {
	if r == ReturnBytes32 {
		return "bytes32"
	}
	return "u256"
}

// Tools names the external binaries. Bare names are looked up on PATH.
type Tools struct {
	LLVMLink string
	LLC      string
	WasmLd   string
	WasmOpt  string
	Wizer    string
}

// DefaultTools returns the conventional binary names
func DefaultTools() Tools {
	return Tools{
		LLVMLink: "llvm-link",
		LLC:      "llc",
		WasmLd:   "wasm-ld",
		WasmOpt:  "wasm-opt",
		Wizer:    "wizer",
	}
}

// Environment variables consulted by ApplyEnv
const (
	EnvClangRTDir = "CHAIN_IR_CLANG_RT_LIB_DIR"
	EnvStdlibDir  = "YUL2WASM_STDLIB_DIR"
)

// Options configures one compilation
type Options struct {
	OutputDir    string
	MainContract string
	Verbose      bool
	Debug        bool
	OptLevel     OptLevel
	NoInline     bool

	// Symbols maps linker symbol paths to hex addresses
	Symbols                    map[string]string
	IgnoreUnknownLinkerLibrary bool

	NoBinaryenOptimize   bool
	MinifyWasmSize       bool
	DisableAllOptimizers bool
	EnableAllOptimizers  bool
	LittleEndianStorage  bool
	DefaultReturn        ReturnKind

	StdlibDir  string
	ClangRTDir string
	Tools      Tools
}

// Default returns release-mode options
func Default() Options {
	return Options{
		OptLevel: OptDefault,
		Symbols:  make(map[string]string),
		Tools:    DefaultTools(),
	}
}

// Test returns the options used by the test suites: debug build,
// no inlining, no optimization, little-endian storage host API.
func Test(name string) Options {
	o := Default()
	o.MainContract = name
	o.ApplyDebug()
	o.LittleEndianStorage = true
	return o
}

// ApplyDebug switches on debug mode, which implies no inlining and no
// optimization.
func (o *Options) ApplyDebug() {
	o.Debug = true
	o.NoInline = true
	o.OptLevel = OptNone
}

// ApplyEnv fills path settings from the environment, falling back to
// directories next to the executable.
func (o *Options) ApplyEnv(exe string) {
	if dir := os.Getenv(EnvClangRTDir); dir != "" {
		o.ClangRTDir = dir
	}
	if dir := os.Getenv(EnvStdlibDir); dir != "" {
		o.StdlibDir = dir
	}
	libDir := executableLibDir(exe)
	if o.ClangRTDir == "" {
		o.ClangRTDir = filepath.Join(libDir, "wasi")
	}
	if o.StdlibDir == "" {
		o.StdlibDir = libDir
	}
}

// executableLibDir returns <exe dir>/lib, or <exe dir>/../lib when the
// binary is installed under a bin directory.
func executableLibDir(exe string) string {
	dir := filepath.Dir(exe)
	if filepath.Base(dir) == "bin" {
		return filepath.Join(filepath.Dir(dir), "lib")
	}
	return filepath.Join(dir, "lib")
}

// AddSymbol registers a linker symbol given as path=address
func (o *Options) AddSymbol(spec string) error {
	path, addr, err := ParseSymbol(spec)
	if err != nil {
		return err
	}
	if o.Symbols == nil {
		o.Symbols = make(map[string]string)
	}
	o.Symbols[path] = addr
	return nil
}

// ParseSymbol splits path=address and checks that the address is a
// hex number that fits in 256 bits.
func ParseSymbol(spec string) (path, addr string, err error) {
	idx := strings.LastIndex(spec, "=")
	if idx <= 0 || idx == len(spec)-1 {
		return "", "", fmt.Errorf("invalid symbol %q (want path=address)", spec)
	}
	path, addr = spec[:idx], spec[idx+1:]
	if _, err := SymbolAddress(addr); err != nil {
		return "", "", fmt.Errorf("invalid address for symbol %q: %w", path, err)
	}
	return path, addr, nil
}

// SymbolAddress parses a hex address with or without 0x prefix
func SymbolAddress(addr string) (*uint256.Int, error) {
	if !strings.HasPrefix(addr, "0x") && !strings.HasPrefix(addr, "0X") {
		addr = "0x" + addr
	}
	// uint256.FromHex rejects leading zeros, addresses usually have them
	digits := strings.TrimLeft(addr[2:], "0")
	if digits == "" {
		return uint256.NewInt(0), nil
	}
	return uint256.FromHex("0x" + digits)
}

// EffectiveOptLevel is the level handed to llc and wasm-ld.
// DisableAllOptimizers forces none.
func (o Options) EffectiveOptLevel() OptLevel {
	if o.DisableAllOptimizers {
		return OptNone
	}
	return o.OptLevel
}

// StackSize returns the wasm stack size for a module. Contracts that
// create no other contracts get half a page when all optimizers are on.
func (o Options) StackSize(hasSubContract bool) uint32 {
	if o.EnableAllOptimizers && !hasSubContract {
		return 32768
	}
	return 0x10000
}

// ContractName strips the runtime suffix from an object name
func ContractName(name string) string {
	return strings.TrimSuffix(name, "_deployed")
}

// Validate reports contradictory settings
func (o Options) Validate() error {
	if o.DisableAllOptimizers && o.EnableAllOptimizers {
		return fmt.Errorf("--disable-all-optimizers and --enable-all-optimizers are mutually exclusive")
	}
	return nil
}
