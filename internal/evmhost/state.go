// Package evmhost simulates the chain a compiled contract runs against.
// The same State backs two execution paths: Go implementations of the
// stdlib wrappers bound into the IR interpreter, and a wazero host module
// serving the env imports of a linked contract.
package evmhost

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"go.uber.org/zap"
	"golang.org/x/crypto/sha3"
)

// ErrHalted is returned by a host call that ends execution. Check
// State.Status for how it ended.
var ErrHalted = errors.New("evmhost: execution halted")

// Status of an execution
type Status int

const (
	Running Status = iota
	Finished
	Reverted
	Invalid
	SelfDestructed
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Finished:
		return "finished"
	case Reverted:
		return "reverted"
	case Invalid:
		return "invalid"
	case SelfDestructed:
		return "selfdestructed"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Address is a 20-byte account address
type Address [20]byte

// Word is a big-endian 256-bit value
type Word [32]byte

// WordOf encodes v big-endian
func WordOf(v *uint256.Int) Word {
	return Word(v.Bytes32())
}

// WordFromUint64 encodes v big-endian
func WordFromUint64(v uint64) Word {
	return WordOf(uint256.NewInt(v))
}

// Uint256 decodes the word
func (w Word) Uint256() *uint256.Int {
	return new(uint256.Int).SetBytes32(w[:])
}

func (w Word) String() string {
	return "0x" + hex.EncodeToString(w[:])
}

// AddressWord right-aligns an address in a word
func AddressWord(a Address) Word {
	var w Word
	copy(w[12:], a[:])
	return w
}

// Log is an emitted event
type Log struct {
	Data   []byte
	Topics []Word
}

// CallKind distinguishes the message call flavours
type CallKind int

const (
	CallNormal CallKind = iota
	CallCode
	CallDelegate
	CallStatic
)

// Call records an outgoing message call
type Call struct {
	Kind  CallKind
	Gas   uint64
	To    Address
	Value Word
	Input []byte
}

// CallResult is what a callee reports back. Status 0 is success, 1 is
// a revert and 2 a failure that makes the caller revert too.
type CallResult struct {
	Status int32
	Output []byte
}

// Creation records a contract creation
type Creation struct {
	Value   Word
	Code    []byte
	Input   []byte
	Salt    *Word
	Address Address
}

// State is the world a single execution sees. Zero maps are allocated
// on first write.
type State struct {
	Address     Address
	Caller      Address
	Origin      Address
	Coinbase    Address
	CallValue   Word
	GasPrice    Word
	BaseFee     Word
	BlobBaseFee Word
	ChainID     Word
	PrevRandao  Word
	GasLeft     uint64
	GasLimit    uint64
	Timestamp   uint64
	Number      uint64

	CallData    []byte
	Code        []byte
	Storage     map[Word]Word
	Transient   map[Word]Word
	Balances    map[Address]Word
	Accounts    map[Address][]byte
	BlockHashes map[uint64]Word

	// OnCall answers outgoing calls; without it every call succeeds
	// with empty output.
	OnCall func(Call) CallResult

	ReturnData  []byte
	Logs        []Log
	Calls       []Call
	Creations   []Creation
	Trace       []string
	Status      Status
	Output      []byte
	Beneficiary Address

	Logger *zap.Logger
}

// NewState returns a state with a caller, an own address and a gas
// allowance.
func NewState() *State {
	s := &State{
		GasLeft:  1 << 40,
		GasLimit: 30_000_000,
		Number:   1,
	}
	s.Address[19] = 0xc0
	s.Caller[19] = 0xca
	s.Origin = s.Caller
	s.ChainID = WordFromUint64(1)
	return s
}

func (s *State) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *State) halt(status Status, output []byte) error {
	s.Status = status
	s.Output = append([]byte(nil), output...)
	s.logger().Debug("execution halted",
		zap.Stringer("status", status),
		zap.Int("output", len(output)))
	return ErrHalted
}

// Finish ends execution successfully with output
func (s *State) Finish(output []byte) error {
	return s.halt(Finished, output)
}

// Revert ends execution and discards state changes
func (s *State) Revert(output []byte) error {
	return s.halt(Reverted, output)
}

// Invalid ends execution with an invalid instruction
func (s *State) Invalid() error {
	return s.halt(Invalid, nil)
}

// SelfDestruct ends execution sending the balance to beneficiary
func (s *State) SelfDestruct(beneficiary Address) error {
	s.Beneficiary = beneficiary
	return s.halt(SelfDestructed, nil)
}

// StorageLoad returns the value at key, zero when unset
func (s *State) StorageLoad(key Word) Word {
	return s.Storage[key]
}

// StorageStore sets the value at key
func (s *State) StorageStore(key, value Word) {
	if s.Storage == nil {
		s.Storage = make(map[Word]Word)
	}
	s.Storage[key] = value
}

// TransientLoad returns the transient value at key
func (s *State) TransientLoad(key Word) Word {
	return s.Transient[key]
}

// TransientStore sets the transient value at key
func (s *State) TransientStore(key, value Word) {
	if s.Transient == nil {
		s.Transient = make(map[Word]Word)
	}
	s.Transient[key] = value
}

// Slot reads storage with a numeric key, for tests
func (s *State) Slot(key uint64) *uint256.Int {
	return s.StorageLoad(WordFromUint64(key)).Uint256()
}

// CallDataCopy returns n bytes of calldata at off, zero padded
func (s *State) CallDataCopy(off, n uint32) []byte {
	return padded(s.CallData, off, n)
}

// CodeCopy returns n bytes of the running code at off, zero padded
func (s *State) CodeCopy(off, n uint32) []byte {
	return padded(s.Code, off, n)
}

// ReturnDataCopy returns n bytes of the last call's output at off
func (s *State) ReturnDataCopy(off, n uint32) []byte {
	return padded(s.ReturnData, off, n)
}

func padded(src []byte, off, n uint32) []byte {
	out := make([]byte, n)
	if uint64(off) < uint64(len(src)) {
		copy(out, src[off:])
	}
	return out
}

// Balance returns an account's balance
func (s *State) Balance(a Address) Word {
	return s.Balances[a]
}

// ExternalCode returns an account's code
func (s *State) ExternalCode(a Address) []byte {
	return s.Accounts[a]
}

// ExternalCodeHash is keccak256 of the account code, zero for accounts
// without code.
func (s *State) ExternalCodeHash(a Address) Word {
	code, ok := s.Accounts[a]
	if !ok {
		return Word{}
	}
	return Keccak256(code)
}

// BlockHash returns the hash of a recent block
func (s *State) BlockHash(number uint64) Word {
	return s.BlockHashes[number]
}

// EmitLog records an event
func (s *State) EmitLog(data []byte, topics ...Word) {
	s.Logs = append(s.Logs, Log{
		Data:   append([]byte(nil), data...),
		Topics: append([]Word(nil), topics...),
	})
}

// MessageCall performs an outgoing call and keeps its output as the
// current return data.
func (s *State) MessageCall(c Call) int32 {
	c.Input = append([]byte(nil), c.Input...)
	s.Calls = append(s.Calls, c)
	res := CallResult{}
	if s.OnCall != nil {
		res = s.OnCall(c)
	}
	s.ReturnData = append([]byte(nil), res.Output...)
	s.logger().Debug("message call",
		zap.Int("kind", int(c.Kind)),
		zap.String("to", hex.EncodeToString(c.To[:])),
		zap.Int32("status", res.Status))
	return res.Status
}

// CreateContract deploys code and returns the new address, derived
// from the creator and the number of creations so far, or from the
// salt for create2.
func (s *State) CreateContract(value Word, code, input []byte, salt *Word) Address {
	h := sha3.NewLegacyKeccak256()
	h.Write(s.Address[:])
	if salt != nil {
		h.Write(salt[:])
		h.Write(code)
	} else {
		h.Write([]byte{byte(len(s.Creations))})
	}
	var addr Address
	copy(addr[:], h.Sum(nil)[12:])

	if s.Accounts == nil {
		s.Accounts = make(map[Address][]byte)
	}
	s.Accounts[addr] = append([]byte(nil), code...)
	s.Creations = append(s.Creations, Creation{
		Value:   value,
		Code:    append([]byte(nil), code...),
		Input:   append([]byte(nil), input...),
		Salt:    salt,
		Address: addr,
	})
	s.ReturnData = nil
	return addr
}

// Debug records a debug print
func (s *State) Debug(msg string) {
	s.Trace = append(s.Trace, msg)
	s.logger().Debug("contract debug", zap.String("value", msg))
}

// Keccak256 hashes data with the pre-standard Keccak padding
func Keccak256(data []byte) Word {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	var w Word
	copy(w[:], h.Sum(nil))
	return w
}

// Sha256 hashes data
func Sha256(data []byte) Word {
	return Word(sha256.Sum256(data))
}

// AddMod is (a + b) % n without overflow, zero when n is zero
func AddMod(a, b, n Word) Word {
	return WordOf(new(uint256.Int).AddMod(a.Uint256(), b.Uint256(), n.Uint256()))
}

// MulMod is (a * b) % n without overflow, zero when n is zero
func MulMod(a, b, n Word) Word {
	return WordOf(new(uint256.Int).MulMod(a.Uint256(), b.Uint256(), n.Uint256()))
}
