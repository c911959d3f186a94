package compiler

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Artifact is a compiled contract ready for deployment
type Artifact struct {
	Name     string
	Wasm     []byte
	Packaged []byte
	Hex      string
}

// NewArtifact packages a linked module
func NewArtifact(name string, wasm []byte) *Artifact {
	packaged := Package(wasm)
	return &Artifact{
		Name:     name,
		Wasm:     wasm,
		Packaged: packaged,
		Hex:      Hex(packaged),
	}
}

// Package prefixes a module with its big-endian 32-bit length, the
// layout contract creation expects.
func Package(module []byte) []byte {
	out := make([]byte, 4+len(module))
	binary.BigEndian.PutUint32(out, uint32(len(module)))
	copy(out[4:], module)
	return out
}

// Unpackage strips the length prefix and checks it
func Unpackage(packaged []byte) ([]byte, error) {
	if len(packaged) < 4 {
		return nil, fmt.Errorf("packaged module too short: %d bytes", len(packaged))
	}
	n := binary.BigEndian.Uint32(packaged)
	if int(n) != len(packaged)-4 {
		return nil, fmt.Errorf("packaged module length %d does not match payload of %d bytes", n, len(packaged)-4)
	}
	return packaged[4:], nil
}

// Hex encodes a packaged module as lowercase hex without a prefix
func Hex(packaged []byte) string {
	return hex.EncodeToString(packaged)
}

// ArtifactPaths returns the module, packaged and hex paths for out.
// The packaged paths replace out's extension.
func ArtifactPaths(out string) (wasm, cbin, cbinHex string) {
	base := strings.TrimSuffix(out, filepath.Ext(out))
	return out, base + ".cbin", base + ".cbin.hex"
}

// WriteArtifacts writes the module to out and the packaged module next
// to it, creating the directory when needed.
func (a *Artifact) WriteArtifacts(out string) error {
	dir := filepath.Dir(out)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output dir: %w", err)
		}
	}
	wasmPath, cbinPath, hexPath := ArtifactPaths(out)
	if err := os.WriteFile(wasmPath, a.Wasm, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", wasmPath, err)
	}
	if err := os.WriteFile(cbinPath, a.Packaged, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", cbinPath, err)
	}
	if err := os.WriteFile(hexPath, []byte(a.Hex), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", hexPath, err)
	}
	return nil
}
