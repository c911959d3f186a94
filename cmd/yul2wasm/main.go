package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/lhaig/yul2wasm/internal/compiler"
	"github.com/lhaig/yul2wasm/internal/config"
	"github.com/lhaig/yul2wasm/internal/diagnostic"
	"github.com/lhaig/yul2wasm/internal/logging"
)

const usage = `yul2wasm - compile Yul objects to WebAssembly contracts

Usage:
  yul2wasm [build] --input <file.yul> --output <out.wasm> [options]
  yul2wasm check --input <file.yul>      Parse and check only
  yul2wasm ir --input <file.yul>         Print the IR of the main contract

Build options:
  --verbose                                  Log every pipeline step
  --debug                                    Debug build (no inlining, -O0, runtime checks)
  --opt-level <none|less|default|aggressive> Optimization level (default "default")
  --main-contract <name>                     Object to compile (default: the top object)
  --symbol <path=address>                    Linker symbol address, repeatable
  --ignore-unknown-linker-library            Resolve unknown linker symbols to 0
  --no-binaryen-optimize                     Skip wasm-opt
  --minify-wasm-size                         Strip debug info from the module
  --disable-all-optimizers                   Skip wasm-opt and wizer
  --enable-all-optimizers                    Use every size optimization
  --enable-little-endian-storage-load-store  Use the little-endian storage host API
  --default_ret_type <u256|bytes32>          Native return type of functions
  --config <file>                            Config file (default ./yul2wasm.toml if present)
  --emit-ir                                  Write <output>.ll instead of building

Outputs:
  <output>, <output>.cbin (length-prefixed module) and <output>.cbin.hex
`

// symbolFlag collects repeated --symbol values
type symbolFlag []string

func (s *symbolFlag) String() string { return strings.Join(*s, ",") }

func (s *symbolFlag) Set(v string) error {
	if _, _, err := config.ParseSymbol(v); err != nil {
		return err
	}
	*s = append(*s, v)
	return nil
}

type buildFlags struct {
	input, output, configPath string
	optLevel, mainContract    string
	defaultRet                string
	verbose, debug            bool
	ignoreUnknown             bool
	noBinaryen, minify        bool
	disableAll, enableAll     bool
	littleEndian, emitIR      bool
	symbols                   symbolFlag
}

func newFlagSet(name string, stderr io.Writer, f *buildFlags) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	fs.StringVar(&f.input, "input", "", "input file path")
	fs.StringVar(&f.output, "output", "", "output wasm path")
	fs.StringVar(&f.configPath, "config", "", "config file")
	fs.StringVar(&f.optLevel, "opt-level", "", "optimization level")
	fs.StringVar(&f.mainContract, "main-contract", "", "main contract name")
	fs.StringVar(&f.defaultRet, "default_ret_type", "", "default return type")
	fs.BoolVar(&f.verbose, "verbose", false, "verbose output")
	fs.BoolVar(&f.debug, "debug", false, "debug build")
	fs.BoolVar(&f.ignoreUnknown, "ignore-unknown-linker-library", false, "ignore unknown linker library")
	fs.BoolVar(&f.noBinaryen, "no-binaryen-optimize", false, "skip wasm-opt")
	fs.BoolVar(&f.minify, "minify-wasm-size", false, "strip debug info")
	fs.BoolVar(&f.disableAll, "disable-all-optimizers", false, "disable all optimizers")
	fs.BoolVar(&f.enableAll, "enable-all-optimizers", false, "enable all optimizers")
	fs.BoolVar(&f.littleEndian, "enable-little-endian-storage-load-store", false, "little-endian storage host API")
	fs.BoolVar(&f.emitIR, "emit-ir", false, "write textual IR")
	fs.Var(&f.symbols, "symbol", "linker symbol path=address")
	return fs
}

// options assembles defaults, the config file, the environment and the
// flags that were set, in that order.
func (f *buildFlags) options(fs *flag.FlagSet) (config.Options, error) {
	opts := config.Default()

	path := f.configPath
	if path == "" {
		if _, err := os.Stat(config.FileName); err == nil {
			path = config.FileName
		}
	}
	if path != "" {
		file, err := config.LoadFile(path)
		if err != nil {
			return opts, err
		}
		if err := file.Apply(&opts); err != nil {
			return opts, fmt.Errorf("%s: %w", path, err)
		}
	}

	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}
	opts.ApplyEnv(exe)

	set := make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	if set["opt-level"] {
		lvl, err := config.ParseOptLevel(f.optLevel)
		if err != nil {
			return opts, err
		}
		opts.OptLevel = lvl
	}
	if set["default_ret_type"] {
		rk, err := config.ParseReturnKind(f.defaultRet)
		if err != nil {
			return opts, err
		}
		opts.DefaultReturn = rk
	}
	if set["main-contract"] {
		opts.MainContract = f.mainContract
	}
	overrides := []struct {
		name string
		src  bool
		dst  *bool
	}{
		{"verbose", f.verbose, &opts.Verbose},
		{"ignore-unknown-linker-library", f.ignoreUnknown, &opts.IgnoreUnknownLinkerLibrary},
		{"no-binaryen-optimize", f.noBinaryen, &opts.NoBinaryenOptimize},
		{"minify-wasm-size", f.minify, &opts.MinifyWasmSize},
		{"disable-all-optimizers", f.disableAll, &opts.DisableAllOptimizers},
		{"enable-all-optimizers", f.enableAll, &opts.EnableAllOptimizers},
		{"enable-little-endian-storage-load-store", f.littleEndian, &opts.LittleEndianStorage},
	}
	for _, o := range overrides {
		if set[o.name] {
			*o.dst = o.src
		}
	}
	for _, s := range f.symbols {
		if err := opts.AddSymbol(s); err != nil {
			return opts, err
		}
	}
	if f.debug {
		opts.ApplyDebug()
	}
	if f.output != "" {
		opts.OutputDir = filepath.Dir(f.output)
	}
	return opts, opts.Validate()
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 1
	}

	command := "build"
	switch args[0] {
	case "build", "check", "ir":
		command, args = args[0], args[1:]
	case "help", "--help", "-h":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		if !strings.HasPrefix(args[0], "-") {
			fmt.Fprintf(stderr, "Unknown command: %s\n\n", args[0])
			fmt.Fprint(stderr, usage)
			return 1
		}
	}

	var f buildFlags
	fs := newFlagSet(command, stderr, &f)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	if f.input == "" {
		fmt.Fprintln(stderr, "Error: no input file specified (--input)")
		return 1
	}
	source, err := os.ReadFile(f.input)
	if err != nil {
		fmt.Fprintf(stderr, "Error reading file: %s\n", err)
		return 1
	}

	switch command {
	case "check":
		return handleCheck(string(source), f.input, stdout, stderr)
	case "ir":
		return handleIR(string(source), &f, fs, stdout, stderr)
	}
	return handleBuild(string(source), &f, fs, stdout, stderr)
}

func handleCheck(source, file string, stdout, stderr io.Writer) int {
	diags := compiler.Check(source)
	if diags.HasErrors() {
		fmt.Fprintln(stderr, diags.Format(file))
		return 1
	}
	printWarnings(diags, file, stdout)
	fmt.Fprintln(stdout, "No errors found.")
	return 0
}

func handleIR(source string, f *buildFlags, fs *flag.FlagSet, stdout, stderr io.Writer) int {
	opts, err := f.options(fs)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return 1
	}
	root, diags := compiler.Frontend(source)
	if diags.HasErrors() {
		fmt.Fprintln(stderr, diags.Format(f.input))
		return 1
	}
	text, err := compiler.IR(context.Background(), root, opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return 1
	}
	stdout.Write(text)
	return 0
}

func handleBuild(source string, f *buildFlags, fs *flag.FlagSet, stdout, stderr io.Writer) int {
	if f.output == "" {
		fmt.Fprintln(stderr, "Error: no output file specified (--output)")
		return 1
	}
	opts, err := f.options(fs)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return 1
	}

	logger, err := logging.New(opts.Verbose)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return 1
	}
	defer logger.Sync()

	target := compiler.TargetWasm
	if f.emitIR {
		target = compiler.TargetIR
	}
	logger.Debug("building",
		zap.String("input", f.input),
		zap.String("output", f.output),
		zap.Stringer("target", target),
		zap.Stringer("opt", opts.OptLevel),
		zap.Bool("debug", opts.Debug))

	paths, err := compiler.New(opts, logger).Emit(context.Background(), source, f.input, target, f.output)
	if err != nil {
		var de *diagnostic.ErrorList
		if errors.As(err, &de) {
			fmt.Fprintln(stderr, de.Error())
		} else {
			fmt.Fprintf(stderr, "Error: %s\n", err)
		}
		return 1
	}
	for _, p := range paths {
		fmt.Fprintf(stdout, "Wrote %s\n", p)
	}
	return 0
}

func printWarnings(diags *diagnostic.Diagnostics, file string, w io.Writer) {
	for _, d := range diags.All() {
		if d.Severity != diagnostic.Error {
			fmt.Fprintf(w, "%s:%d:%d: warning: %s\n", file, d.Line, d.Column, d.Message)
		}
	}
}
