package ir

import (
	"fmt"
	"math/big"
	"strings"
)

// Value is anything that can be used as an instruction operand
type Value interface {
	Type() Type
	// Ident is the operand spelling without its type: %t3, @g, 42
	Ident() string
}

// Const is an integer constant. The value is kept in [0, 2^Bits).
type Const struct {
	typ *IntType
	val *big.Int
}

// ConstInt returns a constant of type t holding v modulo 2^t.Bits.
// Negative inputs are taken as two's complement.
func ConstInt(t *IntType, v *big.Int) *Const {
	return &Const{typ: t, val: Truncate(v, t.Bits)}
}

// ConstUint64 returns a constant of type t holding v
func ConstUint64(t *IntType, v uint64) *Const {
	return ConstInt(t, new(big.Int).SetUint64(v))
}

// True and False are the i1 constants
var (
	True  = ConstUint64(I1, 1)
	False = ConstUint64(I1, 0)
)

func (c *Const) Type() Type { return c.typ }

// Int returns a copy of the unsigned value
func (c *Const) Int() *big.Int { return new(big.Int).Set(c.val) }

// Ident prints the value as a signed decimal, the form LLVM emits.
func (c *Const) Ident() string {
	if c.typ.Bits == 1 {
		if c.val.Sign() == 0 {
			return "false"
		}
		return "true"
	}
	return ToSigned(c.val, c.typ.Bits).String()
}

// Truncate reduces v modulo 2^bits into the unsigned range
func Truncate(v *big.Int, bits int) *big.Int {
	mod := new(big.Int).Lsh(big.NewInt(1), uint(bits))
	r := new(big.Int).Mod(v, mod)
	return r
}

// ToSigned reinterprets an unsigned bits-wide value as two's complement
func ToSigned(v *big.Int, bits int) *big.Int {
	r := new(big.Int).Set(v)
	if bits > 0 && r.Bit(bits-1) == 1 {
		r.Sub(r, new(big.Int).Lsh(big.NewInt(1), uint(bits)))
	}
	return r
}

// Null is the null pointer constant
type Null struct{}

func (Null) Type() Type     { return Ptr }
func (Null) Ident() string { return "null" }

// Undef is an undefined value of an aggregate or scalar type, used as
// the seed of insertvalue chains.
type Undef struct {
	Typ Type
}

func (u *Undef) Type() Type     { return u.Typ }
func (u *Undef) Ident() string { return "undef" }

// Param is a function parameter
type Param struct {
	Name  string
	Typ   Type
	Index int
}

func (p *Param) Type() Type     { return p.Typ }
func (p *Param) Ident() string { return "%" + quoteName(p.Name) }

// Global is a module-level byte array
type Global struct {
	Name     string
	Data     []byte
	Constant bool
	Private  bool
}

// Type of a global reference is always a pointer
func (g *Global) Type() Type     { return Ptr }
func (g *Global) Ident() string { return "@" + quoteName(g.Name) }

// ContentType returns the array type of the global's initializer
func (g *Global) ContentType() Type {
	return &ArrayType{Len: len(g.Data), Elem: I8}
}

// quoteName returns name if it is a valid bare LLVM identifier, else
// the quoted form.
func quoteName(name string) string {
	if name == "" {
		return `""`
	}
	bare := true
	for i := 0; i < len(name); i++ {
		ch := name[i]
		isAlpha := ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch == '$' || ch == '.' || ch == '_' || ch == '-'
		isNum := ch >= '0' && ch <= '9'
		if !isAlpha && !(isNum && i > 0) {
			bare = false
			break
		}
	}
	if bare {
		return name
	}
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(name); i++ {
		ch := name[i]
		if ch == '"' || ch == '\\' || ch < 0x20 || ch >= 0x7f {
			sb.WriteString(fmt.Sprintf("\\%02X", ch))
		} else {
			sb.WriteByte(ch)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
