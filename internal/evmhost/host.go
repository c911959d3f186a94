package evmhost

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// HostModule is the import module the stdlib's host API lives in
const HostModule = "env"

// Host runs linked contracts under wazero against a State
type Host struct {
	rt    wazero.Runtime
	state *State
}

// NewHost builds a runtime with the env host module instantiated
func NewHost(ctx context.Context, state *State) (*Host, error) {
	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfigInterpreter())
	h := &Host{rt: rt, state: state}
	if _, err := h.env().Instantiate(ctx); err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("instantiating host module: %w", err)
	}
	return h, nil
}

// Close releases the runtime
func (h *Host) Close(ctx context.Context) error {
	return h.rt.Close(ctx)
}

// Run instantiates wasm, running its _start initializer, and calls
// entry. Halting through finish, revert, invalid or selfDestruct is not
// an error; the outcome is in the State.
func (h *Host) Run(ctx context.Context, wasm []byte, entry string) error {
	compiled, err := h.rt.CompileModule(ctx, wasm)
	if err != nil {
		return fmt.Errorf("compiling contract: %w", err)
	}
	defer compiled.Close(ctx)

	h.state.Status = Running
	mod, err := h.rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return fmt.Errorf("instantiating contract: %w", err)
	}
	defer mod.Close(ctx)

	fn := mod.ExportedFunction(entry)
	if fn == nil {
		return fmt.Errorf("contract does not export %q", entry)
	}
	if _, err := fn.Call(ctx); err != nil {
		if errors.Is(err, ErrHalted) || h.state.Status != Running {
			return nil
		}
		return fmt.Errorf("calling %s: %w", entry, err)
	}
	if h.state.Status == Running {
		h.state.Finish(nil)
	}
	return nil
}

// halt aborts the running wasm call; wazero turns the panic into the
// error returned from Call.
func halt(err error) {
	if err != nil {
		panic(err)
	}
}

func read(mod api.Module, off, n uint32) []byte {
	b, ok := mod.Memory().Read(off, n)
	if !ok {
		panic(fmt.Errorf("evmhost: read of %d bytes at %#x out of bounds", n, off))
	}
	return append([]byte(nil), b...)
}

func write(mod api.Module, off uint32, data []byte) {
	if !mod.Memory().Write(off, data) {
		panic(fmt.Errorf("evmhost: write of %d bytes at %#x out of bounds", len(data), off))
	}
}

func readAddr(mod api.Module, off uint32) Address {
	return Address(read(mod, off, 20))
}

func readWord32(mod api.Module, off uint32) Word {
	return Word(read(mod, off, 32))
}

// leWord converts between the big-endian words of the host API and
// the little-endian layout of the *LittleEndian storage functions.
func leWord(w Word) Word {
	reverse(w[:])
	return w
}

func (h *Host) env() wazero.HostModuleBuilder {
	s := h.state
	b := h.rt.NewHostModuleBuilder(HostModule)
	export := func(name string, fn interface{}) {
		b.NewFunctionBuilder().WithFunc(fn).Export(name)
	}

	export("getAddress", func(_ context.Context, mod api.Module, out uint32) {
		write(mod, out, s.Address[:])
	})
	export("getCaller", func(_ context.Context, mod api.Module, out uint32) {
		write(mod, out, s.Caller[:])
	})
	export("getTxOrigin", func(_ context.Context, mod api.Module, out uint32) {
		write(mod, out, s.Origin[:])
	})
	export("getBlockCoinbase", func(_ context.Context, mod api.Module, out uint32) {
		write(mod, out, s.Coinbase[:])
	})
	export("getCallValue", func(_ context.Context, mod api.Module, out uint32) {
		write(mod, out, s.CallValue[:])
	})
	export("getBlockPrevRandao", func(_ context.Context, mod api.Module, out uint32) {
		write(mod, out, s.PrevRandao[:])
	})
	export("getTxGasPrice", func(_ context.Context, mod api.Module, out uint32) {
		write(mod, out, s.GasPrice[:])
	})
	export("getBaseFee", func(_ context.Context, mod api.Module, out uint32) {
		write(mod, out, s.BaseFee[:])
	})
	export("getBlobBaseFee", func(_ context.Context, mod api.Module, out uint32) {
		write(mod, out, s.BlobBaseFee[:])
	})
	export("getChainId", func(_ context.Context, mod api.Module, out uint32) {
		write(mod, out, s.ChainID[:])
	})
	export("getBlockHash", func(_ context.Context, mod api.Module, number int64, out uint32) int32 {
		w := s.BlockHash(uint64(number))
		write(mod, out, w[:])
		return 0
	})
	export("getBlockGasLimit", func(context.Context) int64 { return int64(s.GasLimit) })
	export("getBlockTimestamp", func(context.Context) int64 { return int64(s.Timestamp) })
	export("getGasLeft", func(context.Context) int64 { return int64(s.GasLeft) })
	export("getBlockNumber", func(context.Context) int64 { return int64(s.Number) })

	export("getCallDataSize", func(context.Context) int32 { return int32(len(s.CallData)) })
	export("callDataCopy", func(_ context.Context, mod api.Module, dst uint32, off, n int32) {
		write(mod, dst, s.CallDataCopy(uint32(off), uint32(n)))
	})
	export("getCodeSize", func(context.Context) int32 { return int32(len(s.Code)) })
	export("codeCopy", func(_ context.Context, mod api.Module, dst uint32, off, n int32) {
		write(mod, dst, s.CodeCopy(uint32(off), uint32(n)))
	})
	export("getExternalBalance", func(_ context.Context, mod api.Module, a, out uint32) {
		w := s.Balance(readAddr(mod, a))
		write(mod, out, w[:])
	})
	export("getExternalCodeHash", func(_ context.Context, mod api.Module, a, out uint32) {
		w := s.ExternalCodeHash(readAddr(mod, a))
		write(mod, out, w[:])
	})
	export("getExternalCodeSize", func(_ context.Context, mod api.Module, a uint32) int32 {
		return int32(len(s.ExternalCode(readAddr(mod, a))))
	})
	export("externalCodeCopy", func(_ context.Context, mod api.Module, a, dst uint32, off, n int32) {
		write(mod, dst, padded(s.ExternalCode(readAddr(mod, a)), uint32(off), uint32(n)))
	})

	export("storageLoad", func(_ context.Context, mod api.Module, key, out uint32) {
		w := s.StorageLoad(readWord32(mod, key))
		write(mod, out, w[:])
	})
	export("storageStore", func(_ context.Context, mod api.Module, key, val uint32) {
		s.StorageStore(readWord32(mod, key), readWord32(mod, val))
	})
	export("storageLoadLittleEndian", func(_ context.Context, mod api.Module, key, out uint32) {
		w := leWord(s.StorageLoad(readWord32(mod, key)))
		write(mod, out, w[:])
	})
	export("storageStoreLittleEndian", func(_ context.Context, mod api.Module, key, val uint32) {
		s.StorageStore(readWord32(mod, key), leWord(readWord32(mod, val)))
	})
	export("transientLoad", func(_ context.Context, mod api.Module, key, out uint32) {
		w := s.TransientLoad(readWord32(mod, key))
		write(mod, out, w[:])
	})
	export("transientStore", func(_ context.Context, mod api.Module, key, val uint32) {
		s.TransientStore(readWord32(mod, key), readWord32(mod, val))
	})

	export("callContract", func(_ context.Context, mod api.Module, gas int64, to, value, in uint32, n int32) int32 {
		return s.MessageCall(Call{Kind: CallNormal, Gas: uint64(gas), To: readAddr(mod, to), Value: readWord32(mod, value), Input: read(mod, in, uint32(n))})
	})
	export("callCode", func(_ context.Context, mod api.Module, gas int64, to, value, in uint32, n int32) int32 {
		return s.MessageCall(Call{Kind: CallCode, Gas: uint64(gas), To: readAddr(mod, to), Value: readWord32(mod, value), Input: read(mod, in, uint32(n))})
	})
	export("callDelegate", func(_ context.Context, mod api.Module, gas int64, to, in uint32, n int32) int32 {
		return s.MessageCall(Call{Kind: CallDelegate, Gas: uint64(gas), To: readAddr(mod, to), Input: read(mod, in, uint32(n))})
	})
	export("callStatic", func(_ context.Context, mod api.Module, gas int64, to, in uint32, n int32) int32 {
		return s.MessageCall(Call{Kind: CallStatic, Gas: uint64(gas), To: readAddr(mod, to), Input: read(mod, in, uint32(n))})
	})
	export("createContract", func(_ context.Context, mod api.Module, value, code uint32, codeLen int32, data uint32, dataLen int32, salt uint32, create2 int32, out uint32) int32 {
		blob := read(mod, code, uint32(codeLen))
		if len(blob) < 4 || uint64(binary.BigEndian.Uint32(blob)) != uint64(len(blob)-4) {
			return 1
		}
		var sw *Word
		if create2 != 0 {
			w := readWord32(mod, salt)
			sw = &w
		}
		a := s.CreateContract(readWord32(mod, value), blob, read(mod, data, uint32(dataLen)), sw)
		write(mod, out, a[:])
		return 0
	})
	export("getReturnDataSize", func(context.Context) int32 { return int32(len(s.ReturnData)) })
	export("returnDataCopy", func(_ context.Context, mod api.Module, dst uint32, off, n int32) {
		write(mod, dst, s.ReturnDataCopy(uint32(off), uint32(n)))
	})

	export("finish", func(_ context.Context, mod api.Module, data uint32, n int32) {
		halt(s.Finish(read(mod, data, uint32(n))))
	})
	export("revert", func(_ context.Context, mod api.Module, data uint32, n int32) {
		halt(s.Revert(read(mod, data, uint32(n))))
	})
	export("invalid", func(context.Context) {
		halt(s.Invalid())
	})
	export("selfDestruct", func(_ context.Context, mod api.Module, a uint32) {
		halt(s.SelfDestruct(readAddr(mod, a)))
	})
	export("emitLogEvent", func(_ context.Context, mod api.Module, data uint32, n, count int32, t1, t2, t3, t4 uint32) {
		ptrs := []uint32{t1, t2, t3, t4}
		if count < 0 || count > 4 {
			panic(fmt.Errorf("evmhost: %d log topics", count))
		}
		topics := make([]Word, count)
		for i := range topics {
			topics[i] = readWord32(mod, ptrs[i])
		}
		s.EmitLog(read(mod, data, uint32(n)), topics...)
	})

	export("keccak256", func(_ context.Context, mod api.Module, in uint32, n int32, out uint32) {
		w := Keccak256(read(mod, in, uint32(n)))
		write(mod, out, w[:])
	})
	export("sha256", func(_ context.Context, mod api.Module, in uint32, n int32, out uint32) {
		w := Sha256(read(mod, in, uint32(n)))
		write(mod, out, w[:])
	})
	export("addmod", func(_ context.Context, mod api.Module, a, b, n, out uint32) {
		w := AddMod(readWord32(mod, a), readWord32(mod, b), readWord32(mod, n))
		write(mod, out, w[:])
	})
	export("mulmod", func(_ context.Context, mod api.Module, a, b, n, out uint32) {
		w := MulMod(readWord32(mod, a), readWord32(mod, b), readWord32(mod, n))
		write(mod, out, w[:])
	})
	export("debug_bytes", func(_ context.Context, mod api.Module, data uint32, n int32) {
		s.Debug(hex.EncodeToString(read(mod, data, uint32(n))))
	})
	return b
}

// HostFunctions lists the imports the env module provides
func HostFunctions() []string {
	return []string{
		"getAddress", "getCaller", "getTxOrigin", "getBlockCoinbase",
		"getCallValue", "getBlockPrevRandao", "getTxGasPrice", "getBaseFee",
		"getBlobBaseFee", "getChainId", "getBlockHash", "getBlockGasLimit",
		"getBlockTimestamp", "getGasLeft", "getBlockNumber", "getCallDataSize",
		"callDataCopy", "getCodeSize", "codeCopy", "getExternalBalance",
		"getExternalCodeHash", "getExternalCodeSize", "externalCodeCopy",
		"storageLoad", "storageStore", "storageLoadLittleEndian",
		"storageStoreLittleEndian", "transientLoad", "transientStore",
		"callContract", "callCode", "callDelegate", "callStatic",
		"createContract", "getReturnDataSize", "returnDataCopy", "finish",
		"revert", "invalid", "selfDestruct", "emitLogEvent", "keccak256",
		"sha256", "addmod", "mulmod", "debug_bytes",
	}
}
