// Package builtin enumerates the Yul built-in functions the compiler
// understands. Lookup is the single place where an unknown name is
// rejected; everything downstream switches over Instruction.
package builtin

// Instruction identifies a Yul built-in
type Instruction int

const (
	Invalid Instruction = iota

	// Arithmetic
	Add
	Sub
	Mul
	Div
	SDiv
	Mod
	SMod
	Exp
	AddMod
	MulMod
	SignExtend

	// Comparison and bitwise
	Lt
	Gt
	SLt
	SGt
	Eq
	IsZero
	And
	Or
	Xor
	Not
	Byte
	Shl
	Shr
	Sar

	// Hashing and memory
	Keccak256
	Pop
	MLoad
	MStore
	MStore8
	MCopy
	MSize

	// Storage
	SLoad
	SStore
	TLoad
	TStore

	// Execution context
	Address
	Balance
	SelfBalance
	Origin
	Caller
	CallValue
	CallDataLoad
	CallDataSize
	CallDataCopy
	CodeSize
	CodeCopy
	ExtCodeSize
	ExtCodeCopy
	ExtCodeHash
	ReturnDataSize
	ReturnDataCopy
	Gas
	GasPrice
	GasLimit
	ChainID
	BaseFee
	BlobBaseFee
	BlobHash
	BlockHash
	CoinBase
	Timestamp
	Number
	Difficulty
	PrevRandao

	// Calls and creation
	Create
	Create2
	Call
	CallCode
	DelegateCall
	StaticCall

	// Termination
	Return
	Revert
	Stop
	SelfDestruct
	InvalidOp

	// Logging
	Log0
	Log1
	Log2
	Log3
	Log4

	// Object access
	DataOffset
	DataSize
	DataCopy
	SetImmutable
	LoadImmutable
	LinkerSymbol
	MemoryGuard

	// Debugging
	DebugPrint

	numInstructions
)

// Info describes the static shape of a built-in
type Info struct {
	Name    string
	Args    int
	Returns int

	// Terminates is set for built-ins that never return control.
	Terminates bool

	// LiteralArgs lists argument positions that must be string literals.
	LiteralArgs []int
}

var table = [numInstructions]Info{
	Add:        {Name: "add", Args: 2, Returns: 1},
	Sub:        {Name: "sub", Args: 2, Returns: 1},
	Mul:        {Name: "mul", Args: 2, Returns: 1},
	Div:        {Name: "div", Args: 2, Returns: 1},
	SDiv:       {Name: "sdiv", Args: 2, Returns: 1},
	Mod:        {Name: "mod", Args: 2, Returns: 1},
	SMod:       {Name: "smod", Args: 2, Returns: 1},
	Exp:        {Name: "exp", Args: 2, Returns: 1},
	AddMod:     {Name: "addmod", Args: 3, Returns: 1},
	MulMod:     {Name: "mulmod", Args: 3, Returns: 1},
	SignExtend: {Name: "signextend", Args: 2, Returns: 1},

	Lt:     {Name: "lt", Args: 2, Returns: 1},
	Gt:     {Name: "gt", Args: 2, Returns: 1},
	SLt:    {Name: "slt", Args: 2, Returns: 1},
	SGt:    {Name: "sgt", Args: 2, Returns: 1},
	Eq:     {Name: "eq", Args: 2, Returns: 1},
	IsZero: {Name: "iszero", Args: 1, Returns: 1},
	And:    {Name: "and", Args: 2, Returns: 1},
	Or:     {Name: "or", Args: 2, Returns: 1},
	Xor:    {Name: "xor", Args: 2, Returns: 1},
	Not:    {Name: "not", Args: 1, Returns: 1},
	Byte:   {Name: "byte", Args: 2, Returns: 1},
	Shl:    {Name: "shl", Args: 2, Returns: 1},
	Shr:    {Name: "shr", Args: 2, Returns: 1},
	Sar:    {Name: "sar", Args: 2, Returns: 1},

	Keccak256: {Name: "keccak256", Args: 2, Returns: 1},
	Pop:       {Name: "pop", Args: 1},
	MLoad:     {Name: "mload", Args: 1, Returns: 1},
	MStore:    {Name: "mstore", Args: 2},
	MStore8:   {Name: "mstore8", Args: 2},
	MCopy:     {Name: "mcopy", Args: 3},
	MSize:     {Name: "msize", Returns: 1},

	SLoad:  {Name: "sload", Args: 1, Returns: 1},
	SStore: {Name: "sstore", Args: 2},
	TLoad:  {Name: "tload", Args: 1, Returns: 1},
	TStore: {Name: "tstore", Args: 2},

	Address:        {Name: "address", Returns: 1},
	Balance:        {Name: "balance", Args: 1, Returns: 1},
	SelfBalance:    {Name: "selfbalance", Returns: 1},
	Origin:         {Name: "origin", Returns: 1},
	Caller:         {Name: "caller", Returns: 1},
	CallValue:      {Name: "callvalue", Returns: 1},
	CallDataLoad:   {Name: "calldataload", Args: 1, Returns: 1},
	CallDataSize:   {Name: "calldatasize", Returns: 1},
	CallDataCopy:   {Name: "calldatacopy", Args: 3},
	CodeSize:       {Name: "codesize", Returns: 1},
	CodeCopy:       {Name: "codecopy", Args: 3},
	ExtCodeSize:    {Name: "extcodesize", Args: 1, Returns: 1},
	ExtCodeCopy:    {Name: "extcodecopy", Args: 4},
	ExtCodeHash:    {Name: "extcodehash", Args: 1, Returns: 1},
	ReturnDataSize: {Name: "returndatasize", Returns: 1},
	ReturnDataCopy: {Name: "returndatacopy", Args: 3},
	Gas:            {Name: "gas", Returns: 1},
	GasPrice:       {Name: "gasprice", Returns: 1},
	GasLimit:       {Name: "gaslimit", Returns: 1},
	ChainID:        {Name: "chainid", Returns: 1},
	BaseFee:        {Name: "basefee", Returns: 1},
	BlobBaseFee:    {Name: "blobbasefee", Returns: 1},
	BlobHash:       {Name: "blobhash", Args: 1, Returns: 1},
	BlockHash:      {Name: "blockhash", Args: 1, Returns: 1},
	CoinBase:       {Name: "coinbase", Returns: 1},
	Timestamp:      {Name: "timestamp", Returns: 1},
	Number:         {Name: "number", Returns: 1},
	Difficulty:     {Name: "difficulty", Returns: 1},
	PrevRandao:     {Name: "prevrandao", Returns: 1},

	Create:       {Name: "create", Args: 3, Returns: 1},
	Create2:      {Name: "create2", Args: 4, Returns: 1},
	Call:         {Name: "call", Args: 7, Returns: 1},
	CallCode:     {Name: "callcode", Args: 7, Returns: 1},
	DelegateCall: {Name: "delegatecall", Args: 6, Returns: 1},
	StaticCall:   {Name: "staticcall", Args: 6, Returns: 1},

	Return:       {Name: "return", Args: 2, Terminates: true},
	Revert:       {Name: "revert", Args: 2, Terminates: true},
	Stop:         {Name: "stop", Terminates: true},
	SelfDestruct: {Name: "selfdestruct", Args: 1, Terminates: true},
	InvalidOp:    {Name: "invalid", Terminates: true},

	Log0: {Name: "log0", Args: 2},
	Log1: {Name: "log1", Args: 3},
	Log2: {Name: "log2", Args: 4},
	Log3: {Name: "log3", Args: 5},
	Log4: {Name: "log4", Args: 6},

	DataOffset:    {Name: "dataoffset", Args: 1, Returns: 1, LiteralArgs: []int{0}},
	DataSize:      {Name: "datasize", Args: 1, Returns: 1, LiteralArgs: []int{0}},
	DataCopy:      {Name: "datacopy", Args: 3},
	SetImmutable:  {Name: "setimmutable", Args: 3, LiteralArgs: []int{1}},
	LoadImmutable: {Name: "loadimmutable", Args: 1, Returns: 1, LiteralArgs: []int{0}},
	LinkerSymbol:  {Name: "linkersymbol", Args: 1, Returns: 1, LiteralArgs: []int{0}},
	MemoryGuard:   {Name: "memoryguard", Args: 1, Returns: 1},

	DebugPrint: {Name: "debug_print", Args: 1},
}

var byName = func() map[string]Instruction {
	m := make(map[string]Instruction, numInstructions)
	for i := Instruction(1); i < numInstructions; i++ {
		m[table[i].Name] = i
	}
	return m
}()

// Lookup resolves a built-in by its Yul name
func Lookup(name string) (Instruction, bool) {
	inst, ok := byName[name]
	return inst, ok
}

// IsBuiltin reports whether name is reserved for a built-in
func IsBuiltin(name string) bool {
	_, ok := byName[name]
	return ok
}

// Info returns the static description of the instruction
func (i Instruction) Info() Info {
	if i <= Invalid || i >= numInstructions {
		return Info{Name: "<invalid>"}
	}
	return table[i]
}

// String returns the Yul name of the instruction
func (i Instruction) String() string {
	return i.Info().Name
}

// IsLiteralArg reports whether argument pos must be a string literal
func (i Instruction) IsLiteralArg(pos int) bool {
	for _, p := range i.Info().LiteralArgs {
		if p == pos {
			return true
		}
	}
	return false
}

// All returns every valid instruction in declaration order
func All() []Instruction {
	out := make([]Instruction, 0, numInstructions-1)
	for i := Instruction(1); i < numInstructions; i++ {
		out = append(out, i)
	}
	return out
}
