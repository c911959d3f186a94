package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// FileName is the config file picked up from the working directory
const FileName = "yul2wasm.toml"

// File is the on-disk configuration. Unset booleans leave the
// corresponding option untouched.
type File struct {
	Build   BuildSection      `toml:"build"`
	Symbols map[string]string `toml:"symbols"`
	Tools   ToolsSection      `toml:"tools"`
	Paths   PathsSection      `toml:"paths"`
}

// BuildSection mirrors the compile flags
type BuildSection struct {
	MainContract               string `toml:"main_contract"`
	OptLevel                   string `toml:"opt_level"`
	DefaultReturn              string `toml:"default_return"`
	Debug                      *bool  `toml:"debug"`
	NoInline                   *bool  `toml:"no_inline"`
	Verbose                    *bool  `toml:"verbose"`
	IgnoreUnknownLinkerLibrary *bool  `toml:"ignore_unknown_linker_library"`
	NoBinaryenOptimize         *bool  `toml:"no_binaryen_optimize"`
	MinifyWasmSize             *bool  `toml:"minify_wasm_size"`
	DisableAllOptimizers       *bool  `toml:"disable_all_optimizers"`
	EnableAllOptimizers        *bool  `toml:"enable_all_optimizers"`
	LittleEndianStorage        *bool  `toml:"little_endian_storage"`
}

// ToolsSection overrides external binary paths
type ToolsSection struct {
	LLVMLink string `toml:"llvm_link"`
	LLC      string `toml:"llc"`
	WasmLd   string `toml:"wasm_ld"`
	WasmOpt  string `toml:"wasm_opt"`
	Wizer    string `toml:"wizer"`
}

// PathsSection locates the precompiled runtime
type PathsSection struct {
	Stdlib  string `toml:"stdlib"`
	ClangRT string `toml:"clang_rt"`
}

// LoadFile reads and decodes a config file
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseFile(data)
}

// ParseFile decodes config file contents. Unknown keys are rejected so
// that typos do not silently fall back to defaults.
func ParseFile(data []byte) (*File, error) {
	var f File
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &f, nil
}

// Apply copies every setting present in the file onto o
func (f *File) Apply(o *Options) error {
	b := f.Build
	if b.MainContract != "" {
		o.MainContract = b.MainContract
	}
	if b.OptLevel != "" {
		lvl, err := ParseOptLevel(b.OptLevel)
		if err != nil {
			return err
		}
		o.OptLevel = lvl
	}
	if b.DefaultReturn != "" {
		rk, err := ParseReturnKind(b.DefaultReturn)
		if err != nil {
			return err
		}
		o.DefaultReturn = rk
	}
	setBool(&o.NoInline, b.NoInline)
	setBool(&o.Verbose, b.Verbose)
	setBool(&o.IgnoreUnknownLinkerLibrary, b.IgnoreUnknownLinkerLibrary)
	setBool(&o.NoBinaryenOptimize, b.NoBinaryenOptimize)
	setBool(&o.MinifyWasmSize, b.MinifyWasmSize)
	setBool(&o.DisableAllOptimizers, b.DisableAllOptimizers)
	setBool(&o.EnableAllOptimizers, b.EnableAllOptimizers)
	setBool(&o.LittleEndianStorage, b.LittleEndianStorage)
	if b.Debug != nil && *b.Debug {
		o.ApplyDebug()
	}

	for path, addr := range f.Symbols {
		if err := o.AddSymbol(path + "=" + addr); err != nil {
			return err
		}
	}

	setString(&o.Tools.LLVMLink, f.Tools.LLVMLink)
	setString(&o.Tools.LLC, f.Tools.LLC)
	setString(&o.Tools.WasmLd, f.Tools.WasmLd)
	setString(&o.Tools.WasmOpt, f.Tools.WasmOpt)
	setString(&o.Tools.Wizer, f.Tools.Wizer)
	setString(&o.StdlibDir, f.Paths.Stdlib)
	setString(&o.ClangRTDir, f.Paths.ClangRT)
	return nil
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
