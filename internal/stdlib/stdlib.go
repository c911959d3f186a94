// Package stdlib locates the precompiled runtime bitcode linked into
// every contract.
package stdlib

import (
	"fmt"
	"os"
	"path/filepath"
)

// Modules common to both build flavours, in link order
var Modules = []string{
	"stdlib.bc",
	"chain.bc",
	"utils.bc",
	"evm_memory.bc",
	"chain_math.bc",
}

// DebugInRelease provides no-op debug hooks for release builds
const DebugInRelease = "debug_in_release.bc"

// Inputs lists the bitcode files handed to llvm-link
type Inputs struct {
	Dir   string
	Files []string
}

// Select returns the runtime bitcode for a debug or release build
// rooted at dir. Every file must exist.
func Select(dir string, debug bool) (Inputs, error) {
	if dir == "" {
		return Inputs{}, fmt.Errorf("stdlib directory is not set")
	}
	flavour := "release"
	names := append([]string(nil), Modules...)
	if debug {
		flavour = "debug"
	} else {
		names = append(names, DebugInRelease)
	}

	in := Inputs{Dir: filepath.Join(dir, flavour)}
	for _, name := range names {
		path := filepath.Join(in.Dir, name)
		info, err := os.Stat(path)
		if err != nil {
			return Inputs{}, fmt.Errorf("missing stdlib module: %w", err)
		}
		if info.IsDir() {
			return Inputs{}, fmt.Errorf("stdlib module %s is a directory", path)
		}
		in.Files = append(in.Files, path)
	}
	return in, nil
}
