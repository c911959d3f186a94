package codegen

import "github.com/lhaig/yul2wasm/internal/ir"

// runtimeFn identifies a function provided by the precompiled stdlib
type runtimeFn int

const (
	rtInitHeap runtimeFn = iota
	rtSetDeploying
	rtMemoryAddr
	rtMStoreU256
	rtMStoreU32
	rtMStoreU64
	rtMStoreBytes32
	rtMStoreU8
	rtMLoadU256
	rtMLoadU32
	rtMLoadU64
	rtMLoadBytes32
	rtMCopy
	rtSLoad
	rtSLoadLE
	rtSStore
	rtSStoreLE
	rtTLoad
	rtTStore
	rtLoadImmutable
	rtSetImmutable
	rtKeccak256
	rtCallDataLoad
	rtCallDataSize
	rtCallDataCopy
	rtReturnDataSize
	rtReturnDataCopy
	rtCodeSize
	rtCodeCopy
	rtExtCodeSize
	rtExtCodeCopy
	rtExtCodeHash
	rtDataCopy
	rtCall
	rtCallCode
	rtDelegateCall
	rtStaticCall
	rtCreate
	rtCreate2
	rtReturn
	rtRevert
	rtStop
	rtInvalid
	rtSelfDestruct
	rtLog0
	rtLog1
	rtLog2
	rtLog3
	rtLog4
	rtCaller
	rtAddress
	rtOrigin
	rtCoinBase
	rtPrevRandao
	rtBlockHash
	rtCallValue
	rtBalance
	rtSelfBalance
	rtChainID
	rtBaseFee
	rtBlobBaseFee
	rtGasPrice
	rtGas
	rtGasLimit
	rtTimestamp
	rtNumber
	rtMemorySize
	rtMemoryGuard
	rtAllocaBytes32
	rtZeroBytes32
	rtDebugI256
	rtDebugBytes32
	rtBswap

	numRuntimeFns
)

type signature struct {
	name   string
	ret    ir.Type
	params []ir.Type
}

func sig(name string, ret ir.Type, params ...ir.Type) signature {
	return signature{name: name, ret: ret, params: params}
}

var (
	i32 = ir.I32
	i64 = ir.I64
	ptr = ir.Ptr
)

// runtimeABI is the contract between generated code and the stdlib.
// Each pointer either holds a native little-endian word or a big-endian
// 32-byte buffer; which one is fixed per parameter by the stdlib and
// noted as w or p:
//
//	sstore, tstore, setimmutable, loadimmutable   w slot, w value
//	sload, tload                                  p slot, w result
//	sstore (little-endian host)                   p slot, w value
//	callvalue, balance, chainid, fees, gasprice   w result
//	call and callcode value, create value, salt   w
//	addresses, topics, keccak and hash results    p
var runtimeABI = [numRuntimeFns]signature{
	rtInitHeap:       sig("__init_evm_heap", ir.Void, i32),
	rtSetDeploying:   sig("set_is_deploying_tx", ir.Void),
	rtMemoryAddr:     sig("evm_get_memory_addr", ptr, i32),
	rtMStoreU256:     sig("wrapper_mstore_u256", ir.Void, i32, ptr),
	rtMStoreU32:      sig("wrapper_mstore_u32", ir.Void, i32, i32),
	rtMStoreU64:      sig("wrapper_mstore_u64", ir.Void, i32, i64),
	rtMStoreBytes32:  sig("wrapper_mstore_bytes32", ir.Void, i32, ptr),
	rtMStoreU8:       sig("wrapper_mstore_u8", ir.Void, i32, ir.I8),
	rtMLoadU256:      sig("wrapper_mload_u256", ir.Void, i32, ptr),
	rtMLoadU32:       sig("wrapper_mload_u32", i32, i32),
	rtMLoadU64:       sig("wrapper_mload_u64", i64, i32),
	rtMLoadBytes32:   sig("wrapper_mload_bytes32", ir.Void, i32, ptr),
	rtMCopy:          sig("wrapper_mcopy", ir.Void, i32, i32, i32),
	rtSLoad:          sig("wrapper_sload_u256", ir.Void, ptr, ptr),
	rtSLoadLE:        sig("wrapper_sload_u256_using_little_endian_hostapi", ir.Void, ptr, ptr),
	rtSStore:         sig("wrapper_sstore_u256", ir.Void, ptr, ptr),
	rtSStoreLE:       sig("wrapper_sstore_u256_using_little_endian_hostapi", ir.Void, ptr, ptr),
	rtTLoad:          sig("wrapper_tload_u256", ir.Void, ptr, ptr),
	rtTStore:         sig("wrapper_tstore_u256", ir.Void, ptr, ptr),
	rtLoadImmutable:  sig("wrapper_loadimmutable", ir.Void, ptr, ptr),
	rtSetImmutable:   sig("wrapper_setimmutable", ir.Void, i32, ptr, ptr),
	rtKeccak256:      sig("wrapper_keccak256", ir.Void, i32, i32, ptr),
	rtCallDataLoad:   sig("wrapper_calldataload_u256", ir.Void, i32, ptr),
	rtCallDataSize:   sig("wrapper_calldata_size", i32),
	rtCallDataCopy:   sig("wrapper_calldata_copy", ir.Void, i32, i32, i32),
	rtReturnDataSize: sig("wrapper_returndata_size", i32),
	rtReturnDataCopy: sig("wrapper_returndata_copy", ir.Void, i32, i32, i32),
	rtCodeSize:       sig("wrapper_current_contract_code_size", i32),
	rtCodeCopy:       sig("wrapper_codecopy", ir.Void, i32, i32, i32),
	rtExtCodeSize:    sig("wrapper_extcode_size", i32, ptr),
	rtExtCodeCopy:    sig("wrapper_extcode_copy", ir.Void, ptr, i32, i32, i32),
	rtExtCodeHash:    sig("wrapper_extcode_hash", ir.Void, ptr, ptr),
	rtDataCopy:       sig("wrapper_data_copy", ir.Void, i32, i32, i32),
	rtCall:           sig("wrapper_call_contract", i32, i64, ptr, ptr, i32, i32, i32, i32),
	rtCallCode:       sig("wrapper_callcode", i32, i64, ptr, ptr, i32, i32, i32, i32),
	rtDelegateCall:   sig("wrapper_delegatecall", i32, i64, ptr, i32, i32, i32, i32),
	rtStaticCall:     sig("wrapper_staticcall", i32, i64, ptr, i32, i32, i32, i32),
	rtCreate:         sig("wrapper_create", ir.Void, ptr, i32, i32, ptr),
	rtCreate2:        sig("wrapper_create2", ir.Void, ptr, i32, i32, ptr, ptr),
	rtReturn:         sig("wrapper_return", ir.Void, i32, i32),
	rtRevert:         sig("wrapper_revert", ir.Void, i32, i32),
	rtStop:           sig("wrapper_stop", ir.Void),
	rtInvalid:        sig("wrapper_invalid", ir.Void),
	rtSelfDestruct:   sig("wrapper_selfdestruct", ir.Void, ptr),
	rtLog0:           sig("wrapper_log0", ir.Void, i32, i32),
	rtLog1:           sig("wrapper_log1", ir.Void, i32, i32, ptr),
	rtLog2:           sig("wrapper_log2", ir.Void, i32, i32, ptr, ptr),
	rtLog3:           sig("wrapper_log3", ir.Void, i32, i32, ptr, ptr, ptr),
	rtLog4:           sig("wrapper_log4", ir.Void, i32, i32, ptr, ptr, ptr, ptr),
	rtCaller:         sig("wrapper_caller", ir.Void, ptr),
	rtAddress:        sig("wrapper_current_contract", ir.Void, ptr),
	rtOrigin:         sig("wrapper_origin", ir.Void, ptr),
	rtCoinBase:       sig("wrapper_block_coin_base", ir.Void, ptr),
	rtPrevRandao:     sig("wrapper_block_prevRandao", ir.Void, ptr),
	rtBlockHash:      sig("wrapper_block_hash", ir.Void, i64, ptr),
	rtCallValue:      sig("wrapper_callvalue", ir.Void, ptr),
	rtBalance:        sig("wrapper_query_balance", ir.Void, ptr, ptr),
	rtSelfBalance:    sig("wrapper_self_balance", ir.Void, ptr),
	rtChainID:        sig("wrapper_current_chainid", ir.Void, ptr),
	rtBaseFee:        sig("wrapper_current_base_fee", ir.Void, ptr),
	rtBlobBaseFee:    sig("wrapper_current_blob_base_fee", ir.Void, ptr),
	rtGasPrice:       sig("wrapper_gas_price", ir.Void, ptr),
	rtGas:            sig("wrapper_gas", i64),
	rtGasLimit:       sig("wrapper_gas_limit", i64),
	rtTimestamp:      sig("wrapper_time_stamp", i64),
	rtNumber:         sig("wrapper_block_number", i64),
	rtMemorySize:     sig("wrapper_memory_size", i64),
	rtMemoryGuard:    sig("wrapper_memory_guard", i32, i32),
	rtAllocaBytes32:  sig("memory_alloca_bytes32", ptr),
	rtZeroBytes32:    sig("wrapper_zero_bytes32", ptr),
	rtDebugI256:      sig("wrapper_debug_i256", ir.Void, ptr),
	rtDebugBytes32:   sig("wrapper_debug_bytes32", ir.Void, ptr),
	rtBswap:          sig("llvm.bswap.i256", ir.I256, ir.I256),
}

// RuntimeNames lists every runtime function the generator may declare
func RuntimeNames() []string {
	names := make([]string, 0, numRuntimeFns)
	for _, s := range runtimeABI {
		names = append(names, s.name)
	}
	return names
}

// rt declares a runtime function on first use
func (g *Generator) rt(id runtimeFn) *ir.Function {
	s := runtimeABI[id]
	return g.mod.Declare(s.name, s.ret, s.params...)
}
