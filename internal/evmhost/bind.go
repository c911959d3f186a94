package evmhost

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/lhaig/yul2wasm/internal/ir/interp"
)

// EVMBase is where EVM memory offset 0 lives in interpreter memory.
// Globals sit below it, so dataoffset of a constant is negative.
const EVMBase = interp.HeapLimit

// runtime implements the stdlib wrappers for one machine
type runtime struct {
	s         *State
	deploying bool
	zero      uint32
}

// Bind registers Go implementations of the stdlib wrappers on m, so
// generated IR can run without a wasm toolchain.
func (s *State) Bind(m *interp.Machine) {
	r := &runtime{s: s}
	for name, fn := range r.externs() {
		m.Bind(name, fn)
	}
}

// Execute runs entry on m and reports how it ended. Reaching a halting
// wrapper is not an error.
func (s *State) Execute(m *interp.Machine, entry string) error {
	s.Status = Running
	_, err := m.Call(entry)
	if err == nil {
		if s.Status == Running {
			// falling off the end is stop
			s.Finish(nil)
		}
		return nil
	}
	if errors.Is(err, ErrHalted) || s.Status != Running {
		return nil
	}
	return fmt.Errorf("executing %s: %w", entry, err)
}

func u32(args []interp.Value, i int) uint32 {
	return uint32(args[i].Uint64())
}

func i32(args []interp.Value, i int) int32 {
	return int32(uint32(args[i].Uint64()))
}

func u64(args []interp.Value, i int) uint64 {
	return args[i].Uint64()
}

func addr(args []interp.Value, i int) uint32 {
	return args[i].Addr()
}

var void = interp.Value{}

// evm translates a signed EVM memory offset to a machine address
func evm(off int32) uint32 {
	return uint32(int64(EVMBase) + int64(off))
}

// touch makes EVM memory [off, off+n) addressable
func touch(m *interp.Machine, off int32, n uint32) {
	if n == 0 {
		return
	}
	m.Grow(uint64(evm(off)) + uint64(n))
}

func readEVM(m *interp.Machine, off int32, n uint32) ([]byte, error) {
	touch(m, off, n)
	return m.Read(evm(off), int(n))
}

func writeEVM(m *interp.Machine, off int32, data []byte) error {
	touch(m, off, uint32(len(data)))
	return m.Write(evm(off), data)
}

// readNative decodes a little-endian word at a
func readNative(m *interp.Machine, a uint32) (*uint256.Int, error) {
	raw, err := m.Read(a, 32)
	if err != nil {
		return nil, err
	}
	reverse(raw)
	return new(uint256.Int).SetBytes32(raw), nil
}

func writeNative(m *interp.Machine, a uint32, v *uint256.Int) error {
	raw := v.Bytes32()
	reverse(raw[:])
	return m.Write(a, raw[:])
}

func readWord(m *interp.Machine, a uint32) (Word, error) {
	raw, err := m.Read(a, 32)
	if err != nil {
		return Word{}, err
	}
	return Word(raw), nil
}

func writeWord(m *interp.Machine, a uint32, w Word) error {
	return m.Write(a, w[:])
}

// readAddress reads the address right-aligned in a bytes32 buffer
func readAddress(m *interp.Machine, a uint32) (Address, error) {
	raw, err := m.Read(a+12, 20)
	if err != nil {
		return Address{}, err
	}
	return Address(raw), nil
}

func writeAddress(m *interp.Machine, a uint32, v Address) error {
	return writeWord(m, a, AddressWord(v))
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

// isPrecompile reports addresses 0x01 through 0x0a
func isPrecompile(a Address) bool {
	for _, b := range a[:19] {
		if b != 0 {
			return false
		}
	}
	return a[19] >= 0x01 && a[19] <= 0x0a
}

func (r *runtime) externs() map[string]interp.Extern {
	s := r.s
	return map[string]interp.Extern{
		"__init_evm_heap": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			return void, nil
		},
		"set_is_deploying_tx": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			r.deploying = true
			return void, nil
		},
		"evm_get_memory_addr": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			return interp.Uint(uint64(evm(i32(args, 0)))), nil
		},

		"wrapper_mstore_u256": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			v, err := readNative(m, addr(args, 1))
			if err != nil {
				return void, err
			}
			b := v.Bytes32()
			return void, writeEVM(m, i32(args, 0), b[:])
		},
		"wrapper_mstore_u32": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			b := uint256.NewInt(uint64(u32(args, 1))).Bytes32()
			return void, writeEVM(m, i32(args, 0), b[:])
		},
		"wrapper_mstore_u64": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			b := uint256.NewInt(u64(args, 1)).Bytes32()
			return void, writeEVM(m, i32(args, 0), b[:])
		},
		"wrapper_mstore_bytes32": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			w, err := readWord(m, addr(args, 1))
			if err != nil {
				return void, err
			}
			return void, writeEVM(m, i32(args, 0), w[:])
		},
		"wrapper_mstore_u8": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			touch(m, i32(args, 0), 32)
			return void, writeEVM(m, i32(args, 0), []byte{byte(u64(args, 1))})
		},
		"wrapper_mload_u256": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			raw, err := readEVM(m, i32(args, 0), 32)
			if err != nil {
				return void, err
			}
			return void, writeNative(m, addr(args, 1), new(uint256.Int).SetBytes32(raw))
		},
		"wrapper_mload_u32": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			raw, err := readEVM(m, i32(args, 0), 32)
			if err != nil {
				return void, err
			}
			return interp.Uint(new(uint256.Int).SetBytes(raw[28:]).Uint64()), nil
		},
		"wrapper_mload_u64": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			raw, err := readEVM(m, i32(args, 0), 32)
			if err != nil {
				return void, err
			}
			return interp.Uint(new(uint256.Int).SetBytes(raw[24:]).Uint64()), nil
		},
		"wrapper_mload_bytes32": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			raw, err := readEVM(m, i32(args, 0), 32)
			if err != nil {
				return void, err
			}
			return void, m.Write(addr(args, 1), raw)
		},
		"wrapper_mcopy": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			return void, copyEVM(m, i32(args, 0), i32(args, 1), u32(args, 2))
		},
		"wrapper_data_copy": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			return void, copyEVM(m, i32(args, 0), i32(args, 1), u32(args, 2))
		},
		"wrapper_memory_size": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			return interp.Uint(uint64(len(m.Mem) / 65536)), nil
		},
		"wrapper_memory_guard": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			touch(m, 0, u32(args, 0))
			return interp.Uint(96), nil
		},
		"memory_alloca_bytes32": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			a, err := m.Alloc(32)
			return interp.Uint(uint64(a)), err
		},
		"wrapper_zero_bytes32": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			if r.zero == 0 {
				a, err := m.Alloc(32)
				if err != nil {
					return void, err
				}
				r.zero = a
			}
			return interp.Uint(uint64(r.zero)), nil
		},

		"wrapper_sload_u256": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			key, err := readWord(m, addr(args, 0))
			if err != nil {
				return void, err
			}
			return void, writeNative(m, addr(args, 1), s.StorageLoad(key).Uint256())
		},
		"wrapper_sload_u256_using_little_endian_hostapi": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			key, err := readWord(m, addr(args, 0))
			if err != nil {
				return void, err
			}
			return void, writeNative(m, addr(args, 1), s.StorageLoad(key).Uint256())
		},
		"wrapper_sstore_u256": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			key, err := readNative(m, addr(args, 0))
			if err != nil {
				return void, err
			}
			val, err := readNative(m, addr(args, 1))
			if err != nil {
				return void, err
			}
			s.StorageStore(WordOf(key), WordOf(val))
			return void, nil
		},
		"wrapper_sstore_u256_using_little_endian_hostapi": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			key, err := readWord(m, addr(args, 0))
			if err != nil {
				return void, err
			}
			val, err := readNative(m, addr(args, 1))
			if err != nil {
				return void, err
			}
			s.StorageStore(key, WordOf(val))
			return void, nil
		},
		"wrapper_tload_u256": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			key, err := readWord(m, addr(args, 0))
			if err != nil {
				return void, err
			}
			return void, writeNative(m, addr(args, 1), s.TransientLoad(key).Uint256())
		},
		"wrapper_tstore_u256": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			key, err := readNative(m, addr(args, 0))
			if err != nil {
				return void, err
			}
			val, err := readNative(m, addr(args, 1))
			if err != nil {
				return void, err
			}
			s.TransientStore(WordOf(key), WordOf(val))
			return void, nil
		},
		"wrapper_loadimmutable": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			key, err := readNative(m, addr(args, 0))
			if err != nil {
				return void, err
			}
			return void, writeNative(m, addr(args, 1), s.StorageLoad(WordOf(key)).Uint256())
		},
		"wrapper_setimmutable": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			key, err := readNative(m, addr(args, 1))
			if err != nil {
				return void, err
			}
			val, err := readNative(m, addr(args, 2))
			if err != nil {
				return void, err
			}
			return void, s.setImmutable(WordOf(key), WordOf(val))
		},

		"wrapper_keccak256": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			data, err := readEVM(m, i32(args, 0), u32(args, 1))
			if err != nil {
				return void, err
			}
			return void, writeWord(m, addr(args, 2), Keccak256(data))
		},
		"wrapper_calldataload_u256": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			raw := s.CallDataCopy(u32(args, 0), 32)
			return void, writeNative(m, addr(args, 1), new(uint256.Int).SetBytes32(raw))
		},
		"wrapper_calldata_size": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			return interp.Uint(uint64(len(s.CallData))), nil
		},
		"wrapper_calldata_copy": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			return void, writeEVM(m, i32(args, 0), s.CallDataCopy(u32(args, 1), u32(args, 2)))
		},
		"wrapper_returndata_size": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			return interp.Uint(uint64(len(s.ReturnData))), nil
		},
		"wrapper_returndata_copy": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			return void, writeEVM(m, i32(args, 0), s.ReturnDataCopy(u32(args, 1), u32(args, 2)))
		},
		"wrapper_current_contract_code_size": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			size := len(s.Code)
			if r.deploying {
				size += len(s.CallData)
			}
			return interp.Uint(uint64(size)), nil
		},
		"wrapper_codecopy": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			return void, r.codeCopy(m, i32(args, 0), i32(args, 1), u32(args, 2))
		},
		"wrapper_extcode_size": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			a, err := readAddress(m, addr(args, 0))
			if err != nil {
				return void, err
			}
			return interp.Uint(uint64(len(s.ExternalCode(a)))), nil
		},
		"wrapper_extcode_copy": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			a, err := readAddress(m, addr(args, 0))
			if err != nil {
				return void, err
			}
			return void, writeEVM(m, i32(args, 1), padded(s.ExternalCode(a), u32(args, 2), u32(args, 3)))
		},
		"wrapper_extcode_hash": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			a, err := readAddress(m, addr(args, 0))
			if err != nil {
				return void, err
			}
			return void, writeWord(m, addr(args, 1), s.ExternalCodeHash(a))
		},

		"wrapper_call_contract": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			return r.call(m, CallNormal, args, true)
		},
		"wrapper_callcode": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			return r.call(m, CallCode, args, true)
		},
		"wrapper_delegatecall": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			return r.call(m, CallDelegate, args, false)
		},
		"wrapper_staticcall": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			return r.call(m, CallStatic, args, false)
		},
		"wrapper_create": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			return void, r.create(m, args[0], args[1], args[2], nil, args[3])
		},
		"wrapper_create2": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			return void, r.create(m, args[0], args[1], args[2], &args[3], args[4])
		},

		"wrapper_return": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			data, err := readEVM(m, i32(args, 0), u32(args, 1))
			if err != nil {
				return void, err
			}
			return void, s.Finish(data)
		},
		"wrapper_revert": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			data, err := readEVM(m, i32(args, 0), u32(args, 1))
			if err != nil {
				return void, err
			}
			return void, s.Revert(data)
		},
		"wrapper_stop": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			return void, s.Finish(nil)
		},
		"wrapper_invalid": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			return void, s.Invalid()
		},
		"wrapper_selfdestruct": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			a, err := readAddress(m, addr(args, 0))
			if err != nil {
				return void, err
			}
			return void, s.SelfDestruct(a)
		},
		"wrapper_log0": r.log(0),
		"wrapper_log1": r.log(1),
		"wrapper_log2": r.log(2),
		"wrapper_log3": r.log(3),
		"wrapper_log4": r.log(4),

		"wrapper_caller":           r.address(func() Address { return s.Caller }),
		"wrapper_current_contract": r.address(func() Address { return s.Address }),
		"wrapper_origin":           r.address(func() Address { return s.Origin }),
		"wrapper_block_coin_base":  r.address(func() Address { return s.Coinbase }),
		"wrapper_block_prevRandao": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			return void, writeWord(m, addr(args, 0), s.PrevRandao)
		},
		"wrapper_block_hash": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			return void, writeWord(m, addr(args, 1), s.BlockHash(u64(args, 0)))
		},
		"wrapper_callvalue":             r.native(func() Word { return s.CallValue }),
		"wrapper_self_balance":          r.native(func() Word { return s.Balance(s.Address) }),
		"wrapper_current_chainid":       r.native(func() Word { return s.ChainID }),
		"wrapper_current_base_fee":      r.native(func() Word { return s.BaseFee }),
		"wrapper_current_blob_base_fee": r.native(func() Word { return s.BlobBaseFee }),
		"wrapper_gas_price":             r.native(func() Word { return s.GasPrice }),
		"wrapper_query_balance": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			a, err := readAddress(m, addr(args, 0))
			if err != nil {
				return void, err
			}
			return void, writeNative(m, addr(args, 1), s.Balance(a).Uint256())
		},
		"wrapper_gas":          r.number(func() uint64 { return s.GasLeft }),
		"wrapper_gas_limit":    r.number(func() uint64 { return s.GasLimit }),
		"wrapper_time_stamp":   r.number(func() uint64 { return s.Timestamp }),
		"wrapper_block_number": r.number(func() uint64 { return s.Number }),

		"wrapper_debug_i256": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			v, err := readNative(m, addr(args, 0))
			if err != nil {
				return void, err
			}
			s.Debug(v.Hex())
			return void, nil
		},
		"wrapper_debug_bytes32": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
			w, err := readWord(m, addr(args, 0))
			if err != nil {
				return void, err
			}
			s.Debug(hex.EncodeToString(w[:]))
			return void, nil
		},
	}
}

func copyEVM(m *interp.Machine, dst, src int32, n uint32) error {
	data, err := readEVM(m, src, n)
	if err != nil {
		return err
	}
	return writeEVM(m, dst, data)
}

// codeCopy reads the constant area for negative offsets; otherwise it
// reads the code, continuing into calldata the way deploy-time code
// sees constructor arguments appended to itself.
func (r *runtime) codeCopy(m *interp.Machine, dst, src int32, n uint32) error {
	if src < 0 {
		return copyEVM(m, dst, src, n)
	}
	code := r.s.Code
	if uint64(src)+uint64(n) <= uint64(len(code)) {
		return writeEVM(m, dst, padded(code, uint32(src), n))
	}
	if uint32(src) < uint32(len(code)) {
		whole := append(append([]byte(nil), code...), r.s.CallData...)
		return writeEVM(m, dst, padded(whole, uint32(src), n))
	}
	return writeEVM(m, dst, r.s.CallDataCopy(uint32(src)-uint32(len(code)), n))
}

func (r *runtime) log(topics int) interp.Extern {
	return func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
		data, err := readEVM(m, i32(args, 0), u32(args, 1))
		if err != nil {
			return void, err
		}
		ws := make([]Word, topics)
		for i := range ws {
			if ws[i], err = readWord(m, addr(args, 2+i)); err != nil {
				return void, err
			}
		}
		r.s.EmitLog(data, ws...)
		return void, nil
	}
}

func (r *runtime) address(get func() Address) interp.Extern {
	return func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
		return void, writeAddress(m, addr(args, 0), get())
	}
}

func (r *runtime) native(get func() Word) interp.Extern {
	return func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
		return void, writeNative(m, addr(args, 0), get().Uint256())
	}
}

func (r *runtime) number(get func() uint64) interp.Extern {
	return func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
		return interp.Uint(get()), nil
	}
}

// call decodes (gas, to, [value], in, inLen, out, outLen) and applies
// the stdlib's return data rules.
func (r *runtime) call(m *interp.Machine, kind CallKind, args []interp.Value, hasValue bool) (interp.Value, error) {
	to, err := readAddress(m, addr(args, 1))
	if err != nil {
		return void, err
	}
	c := Call{Kind: kind, Gas: u64(args, 0), To: to}
	rest := args[2:]
	if hasValue {
		v, err := readNative(m, addr(args, 2))
		if err != nil {
			return void, err
		}
		c.Value = WordOf(v)
		rest = args[3:]
	}
	if c.Input, err = readEVM(m, i32(rest, 0), u32(rest, 1)); err != nil {
		return void, err
	}
	status := r.s.MessageCall(c)
	if status != 0 && isPrecompile(to) {
		return interp.Uint(0), nil
	}
	ok, err := r.s.callOutcome(status, i32(rest, 2), u32(rest, 3), func(off int32, data []byte) error {
		return writeEVM(m, off, data)
	})
	if err != nil {
		return void, err
	}
	return interp.Uint(ok), nil
}

func (r *runtime) create(m *interp.Machine, value, code, length interp.Value, salt *interp.Value, out interp.Value) error {
	v, err := readNative(m, value.Addr())
	if err != nil {
		return err
	}
	var sw *Word
	if salt != nil {
		sv, err := readNative(m, salt.Addr())
		if err != nil {
			return err
		}
		w := WordOf(sv)
		sw = &w
	}
	off := int32(uint32(code.Uint64()))
	blob, err := readEVM(m, off, uint32(length.Uint64()))
	if err != nil {
		return err
	}
	a, err := r.s.create(WordOf(v), blob, sw)
	if err != nil {
		return err
	}
	return writeAddress(m, out.Addr(), a)
}
