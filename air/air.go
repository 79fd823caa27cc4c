// Package air implements the algebraic intermediate representation used
// between expression parsing and code emission. Expressions form an
// immutable tagged tree: every transformation (simplification,
// differentiation, substitution) returns a new tree and may share
// subtrees with its input.
package air

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// BinOp identifies a binary arithmetic operator.
type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpPow
)

func (op BinOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpPow:
		return "^"
	}
	return "?"
}

// UnOp identifies a unary operator.
type UnOp int

const (
	OpNeg UnOp = iota
)

func (op UnOp) String() string {
	if op == OpNeg {
		return "-"
	}
	return "?"
}

// RelOp identifies a comparison operator.
type RelOp int

const (
	OpGt RelOp = iota
	OpLt
	OpGe
	OpLe
	OpEq
	OpNe
)

func (op RelOp) String() string {
	switch op {
	case OpGt:
		return ">"
	case OpLt:
		return "<"
	case OpGe:
		return ">="
	case OpLe:
		return "<="
	case OpEq:
		return "=="
	case OpNe:
		return "!="
	}
	return "?"
}

// LogicOp identifies a logical operator.
type LogicOp int

const (
	OpAnd LogicOp = iota
	OpOr
	OpNot
)

func (op LogicOp) String() string {
	switch op {
	case OpAnd:
		return "&&"
	case OpOr:
		return "||"
	case OpNot:
		return "!"
	}
	return "?"
}

// Expr is the closed set of AIR node kinds. The concrete types are
// *Number, *Symbol, *BinaryOp, *UnaryOp, *Call, *Piecewise, *Relation
// and *Logical; switches over Expr are expected to be exhaustive.
type Expr interface {
	// String renders a fully parenthesized canonical form. Two
	// structurally equal expressions render identically, so the
	// string doubles as a structural hash key.
	String() string
	isExpr()
}

// Number is a numeric literal. All numbers are float64; integer-valued
// literals are recognized by IsInt at print time.
type Number struct {
	Value float64
}

// Symbol is a named variable reference.
type Symbol struct {
	Name string
}

// BinaryOp applies an arithmetic operator to two operands.
type BinaryOp struct {
	Op    BinOp
	Left  Expr
	Right Expr
}

// UnaryOp applies a unary operator to one operand.
type UnaryOp struct {
	Op      UnOp
	Operand Expr
}

// Call is a named function application (sqrt, exp, log, ...).
type Call struct {
	Name string
	Args []Expr
}

// Branch is one (value, condition) arm of a Piecewise. A condition that
// is the boolean literal true marks the unconditional default branch.
type Branch struct {
	Value Expr
	Cond  Expr
}

// Piecewise selects the value of the first branch whose condition holds.
type Piecewise struct {
	Branches []Branch
}

// Relation compares two arithmetic operands, yielding a boolean.
type Relation struct {
	Op    RelOp
	Left  Expr
	Right Expr
}

// Logical combines boolean operands. OpNot takes exactly one operand.
type Logical struct {
	Op       LogicOp
	Operands []Expr
}

func (*Number) isExpr()    {}
func (*Symbol) isExpr()    {}
func (*BinaryOp) isExpr()  {}
func (*UnaryOp) isExpr()   {}
func (*Call) isExpr()      {}
func (*Piecewise) isExpr() {}
func (*Relation) isExpr()  {}
func (*Logical) isExpr()   {}

// Num returns a numeric literal node.
func Num(v float64) *Number { return &Number{Value: v} }

// Sym returns a symbol node.
func Sym(name string) *Symbol { return &Symbol{Name: name} }

// Add returns l + r.
func Add(l, r Expr) Expr { return &BinaryOp{Op: OpAdd, Left: l, Right: r} }

// Sub returns l - r.
func Sub(l, r Expr) Expr { return &BinaryOp{Op: OpSub, Left: l, Right: r} }

// Mul returns l * r.
func Mul(l, r Expr) Expr { return &BinaryOp{Op: OpMul, Left: l, Right: r} }

// Div returns l / r.
func Div(l, r Expr) Expr { return &BinaryOp{Op: OpDiv, Left: l, Right: r} }

// Pow returns base ^ exp.
func Pow(base, exp Expr) Expr { return &BinaryOp{Op: OpPow, Left: base, Right: exp} }

// Neg returns -operand.
func Neg(operand Expr) Expr { return &UnaryOp{Op: OpNeg, Operand: operand} }

// NewCall returns a function application node.
func NewCall(name string, args ...Expr) *Call { return &Call{Name: name, Args: args} }

// NewRelation returns a comparison node.
func NewRelation(op RelOp, l, r Expr) *Relation { return &Relation{Op: op, Left: l, Right: r} }

// NewLogical returns a logical combination node.
func NewLogical(op LogicOp, operands ...Expr) *Logical {
	return &Logical{Op: op, Operands: operands}
}

// True is the boolean literal used as the default-branch condition of a
// Piecewise. It is represented as the relation 1 == 1 so the node set
// stays closed.
func True() *Relation { return &Relation{Op: OpEq, Left: Num(1), Right: Num(1)} }

// IsTrue reports whether e is the boolean literal produced by True.
func IsTrue(e Expr) bool {
	rel, ok := e.(*Relation)
	if !ok || rel.Op != OpEq {
		return false
	}
	l, lok := rel.Left.(*Number)
	r, rok := rel.Right.(*Number)
	return lok && rok && l.Value == r.Value
}

// Zero reports whether e is the literal 0.
func Zero(e Expr) bool {
	n, ok := e.(*Number)
	return ok && n.Value == 0
}

// One reports whether e is the literal 1.
func One(e Expr) bool {
	n, ok := e.(*Number)
	return ok && n.Value == 1
}

// IsInt reports whether v holds an integral value and returns it.
func IsInt(v float64) (int, bool) {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	r := math.Round(v)
	if math.Abs(v-r) < 1e-12 && math.Abs(r) < 1e15 {
		return int(r), true
	}
	return 0, false
}

func (n *Number) String() string {
	return strconv.FormatFloat(n.Value, 'g', -1, 64)
}

func (s *Symbol) String() string { return s.Name }

func (b *BinaryOp) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right)
}

func (u *UnaryOp) String() string {
	return fmt.Sprintf("(%s%s)", u.Op, u.Operand)
}

func (c *Call) String() string {
	var sb strings.Builder
	sb.WriteString(c.Name)
	sb.WriteByte('(')
	for i, a := range c.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(a.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

func (p *Piecewise) String() string {
	var sb strings.Builder
	sb.WriteString("piecewise(")
	for i, br := range p.Branches {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s if %s", br.Value, br.Cond)
	}
	sb.WriteByte(')')
	return sb.String()
}

func (r *Relation) String() string {
	return fmt.Sprintf("(%s %s %s)", r.Left, r.Op, r.Right)
}

func (l *Logical) String() string {
	if l.Op == OpNot && len(l.Operands) == 1 {
		return fmt.Sprintf("(!%s)", l.Operands[0])
	}
	var sb strings.Builder
	sb.WriteByte('(')
	for i, o := range l.Operands {
		if i > 0 {
			fmt.Fprintf(&sb, " %s ", l.Op)
		}
		sb.WriteString(o.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

// Equal reports structural equality of two expressions.
func Equal(a, b Expr) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.String() == b.String()
}

// FreeSymbols collects the names of every symbol reachable from e.
func FreeSymbols(e Expr) map[string]struct{} {
	out := make(map[string]struct{})
	collectSymbols(e, out)
	return out
}

func collectSymbols(e Expr, out map[string]struct{}) {
	switch v := e.(type) {
	case *Number:
	case *Symbol:
		out[v.Name] = struct{}{}
	case *BinaryOp:
		collectSymbols(v.Left, out)
		collectSymbols(v.Right, out)
	case *UnaryOp:
		collectSymbols(v.Operand, out)
	case *Call:
		for _, a := range v.Args {
			collectSymbols(a, out)
		}
	case *Piecewise:
		for _, br := range v.Branches {
			collectSymbols(br.Value, out)
			collectSymbols(br.Cond, out)
		}
	case *Relation:
		collectSymbols(v.Left, out)
		collectSymbols(v.Right, out)
	case *Logical:
		for _, o := range v.Operands {
			collectSymbols(o, out)
		}
	}
}

// Children returns the direct operands of e in declaration order.
// Leaves return nil.
func Children(e Expr) []Expr {
	switch v := e.(type) {
	case *Number, *Symbol:
		return nil
	case *BinaryOp:
		return []Expr{v.Left, v.Right}
	case *UnaryOp:
		return []Expr{v.Operand}
	case *Call:
		return v.Args
	case *Piecewise:
		out := make([]Expr, 0, 2*len(v.Branches))
		for _, br := range v.Branches {
			out = append(out, br.Value, br.Cond)
		}
		return out
	case *Relation:
		return []Expr{v.Left, v.Right}
	case *Logical:
		return v.Operands
	}
	return nil
}

// Rebuild reconstructs a node of the same kind as e with the given
// children, in the order Children returned them.
func Rebuild(e Expr, children []Expr) Expr {
	switch v := e.(type) {
	case *Number, *Symbol:
		return e
	case *BinaryOp:
		return &BinaryOp{Op: v.Op, Left: children[0], Right: children[1]}
	case *UnaryOp:
		return &UnaryOp{Op: v.Op, Operand: children[0]}
	case *Call:
		return &Call{Name: v.Name, Args: children}
	case *Piecewise:
		branches := make([]Branch, len(v.Branches))
		for i := range v.Branches {
			branches[i] = Branch{Value: children[2*i], Cond: children[2*i+1]}
		}
		return &Piecewise{Branches: branches}
	case *Relation:
		return &Relation{Op: v.Op, Left: children[0], Right: children[1]}
	case *Logical:
		return &Logical{Op: v.Op, Operands: children}
	}
	return e
}

// ContainsZeroPiecewise reports whether any Piecewise branch reachable
// from e has a value that is the literal 0. Such expressions can
// evaluate to exactly zero at runtime regardless of their inputs.
func ContainsZeroPiecewise(e Expr) bool {
	if p, ok := e.(*Piecewise); ok {
		for _, br := range p.Branches {
			if Zero(br.Value) {
				return true
			}
		}
	}
	for _, c := range Children(e) {
		if ContainsZeroPiecewise(c) {
			return true
		}
	}
	return false
}
