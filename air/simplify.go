package air

import (
	"math"
	"sort"
)

// Simplify returns a canonical form of e: constants folded, identity
// operands removed, additive and multiplicative chains flattened with
// like terms combined and operands sorted. Division nodes are kept as
// written; Simplify never rewrites a/b into b^-1 forms, so the choice
// between guarded powers and plain division survives to code emission.
func Simplify(e Expr) Expr {
	switch v := e.(type) {
	case *Number, *Symbol:
		return e
	case *BinaryOp:
		l := Simplify(v.Left)
		r := Simplify(v.Right)
		switch v.Op {
		case OpAdd, OpSub:
			return simplifySum(&BinaryOp{Op: v.Op, Left: l, Right: r})
		case OpMul:
			return simplifyProduct(&BinaryOp{Op: OpMul, Left: l, Right: r})
		case OpDiv:
			return simplifyDiv(l, r)
		case OpPow:
			return simplifyPow(l, r)
		}
		return &BinaryOp{Op: v.Op, Left: l, Right: r}
	case *UnaryOp:
		return simplifySum(&UnaryOp{Op: OpNeg, Operand: Simplify(v.Operand)})
	case *Call:
		args := make([]Expr, len(v.Args))
		for i, a := range v.Args {
			args[i] = Simplify(a)
		}
		return &Call{Name: v.Name, Args: args}
	case *Piecewise:
		return simplifyPiecewise(v)
	case *Relation:
		l := Simplify(v.Left)
		r := Simplify(v.Right)
		ln, lok := l.(*Number)
		rn, rok := r.(*Number)
		if lok && rok {
			if holdsRelation(v.Op, ln.Value, rn.Value) {
				return True()
			}
			return False()
		}
		return &Relation{Op: v.Op, Left: l, Right: r}
	case *Logical:
		return simplifyLogical(v)
	}
	return e
}

// False is the boolean literal for an unsatisfiable condition,
// represented as the relation 0 == 1.
func False() *Relation { return &Relation{Op: OpEq, Left: Num(0), Right: Num(1)} }

// IsFalse reports whether e is a statically false relation literal.
func IsFalse(e Expr) bool {
	rel, ok := e.(*Relation)
	if !ok || rel.Op != OpEq {
		return false
	}
	l, lok := rel.Left.(*Number)
	r, rok := rel.Right.(*Number)
	return lok && rok && l.Value != r.Value
}

func holdsRelation(op RelOp, l, r float64) bool {
	switch op {
	case OpGt:
		return l > r
	case OpLt:
		return l < r
	case OpGe:
		return l >= r
	case OpLe:
		return l <= r
	case OpEq:
		return l == r
	case OpNe:
		return l != r
	}
	return false
}

// addTerm is one summand with its accumulated numeric multiplicity.
type addTerm struct {
	key   string
	expr  Expr
	coeff float64
}

func simplifySum(e Expr) Expr {
	var (
		terms    []addTerm
		index    = map[string]int{}
		constant float64
	)
	var collect func(e Expr, sign float64)
	collect = func(e Expr, sign float64) {
		switch v := e.(type) {
		case *Number:
			constant += sign * v.Value
			return
		case *BinaryOp:
			switch v.Op {
			case OpAdd:
				collect(v.Left, sign)
				collect(v.Right, sign)
				return
			case OpSub:
				collect(v.Left, sign)
				collect(v.Right, -sign)
				return
			case OpMul:
				// Peel the canonical numeric coefficient so that
				// x + 2*x combines to 3*x.
				if c, ok := v.Left.(*Number); ok {
					addToTerms(&terms, index, v.Right, sign*c.Value)
					return
				}
			}
		case *UnaryOp:
			if v.Op == OpNeg {
				collect(v.Operand, -sign)
				return
			}
		}
		addToTerms(&terms, index, e, sign)
	}
	collect(e, 1)

	sort.Slice(terms, func(i, j int) bool { return terms[i].key < terms[j].key })

	var positive, negative []Expr
	for _, t := range terms {
		switch {
		case t.coeff == 0:
		case t.coeff == 1:
			positive = append(positive, t.expr)
		case t.coeff == -1:
			negative = append(negative, t.expr)
		case t.coeff > 0:
			positive = append(positive, Mul(Num(t.coeff), t.expr))
		default:
			negative = append(negative, Mul(Num(-t.coeff), t.expr))
		}
	}

	var out Expr
	for _, p := range positive {
		if out == nil {
			out = p
		} else {
			out = Add(out, p)
		}
	}
	for _, n := range negative {
		if out == nil {
			out = Neg(n)
		} else {
			out = Sub(out, n)
		}
	}
	switch {
	case out == nil:
		return Num(constant)
	case constant > 0:
		return Add(out, Num(constant))
	case constant < 0:
		return Sub(out, Num(-constant))
	}
	return out
}

func addToTerms(terms *[]addTerm, index map[string]int, e Expr, coeff float64) {
	key := e.String()
	if i, ok := index[key]; ok {
		(*terms)[i].coeff += coeff
		return
	}
	index[key] = len(*terms)
	*terms = append(*terms, addTerm{key: key, expr: e, coeff: coeff})
}

// mulFactor is one factor with its accumulated exponent.
type mulFactor struct {
	key  string
	expr Expr
	pow  float64
}

func simplifyProduct(e Expr) Expr {
	var (
		factors []mulFactor
		index   = map[string]int{}
		coeff   = 1.0
	)
	var collect func(e Expr)
	collect = func(e Expr) {
		switch v := e.(type) {
		case *Number:
			coeff *= v.Value
			return
		case *BinaryOp:
			switch v.Op {
			case OpMul:
				collect(v.Left)
				collect(v.Right)
				return
			case OpPow:
				// x * x^2 combines to x^3.
				if p, ok := v.Right.(*Number); ok {
					addToFactors(&factors, index, v.Left, p.Value)
					return
				}
			}
		case *UnaryOp:
			if v.Op == OpNeg {
				coeff = -coeff
				collect(v.Operand)
				return
			}
		}
		addToFactors(&factors, index, e, 1)
	}
	collect(e)

	if coeff == 0 {
		return Num(0)
	}

	sort.Slice(factors, func(i, j int) bool { return factors[i].key < factors[j].key })

	var out Expr
	for _, f := range factors {
		var fe Expr
		switch f.pow {
		case 0:
			continue
		case 1:
			fe = f.expr
		default:
			fe = Pow(f.expr, Num(f.pow))
		}
		if out == nil {
			out = fe
		} else {
			out = Mul(out, fe)
		}
	}
	switch {
	case out == nil:
		return Num(coeff)
	case coeff == 1:
		return out
	case coeff == -1:
		return Neg(out)
	}
	return Mul(Num(coeff), out)
}

func addToFactors(factors *[]mulFactor, index map[string]int, e Expr, pow float64) {
	key := e.String()
	if i, ok := index[key]; ok {
		(*factors)[i].pow += pow
		return
	}
	index[key] = len(*factors)
	*factors = append(*factors, mulFactor{key: key, expr: e, pow: pow})
}

func simplifyDiv(l, r Expr) Expr {
	if Zero(l) && !Zero(r) {
		return Num(0)
	}
	if One(r) {
		return l
	}
	ln, lok := l.(*Number)
	rn, rok := r.(*Number)
	if lok && rok && rn.Value != 0 {
		return Num(ln.Value / rn.Value)
	}
	if !Zero(r) && Equal(l, r) {
		return Num(1)
	}
	return Div(l, r)
}

func simplifyPow(base, exp Expr) Expr {
	if Zero(exp) {
		return Num(1)
	}
	if One(exp) {
		return base
	}
	if One(base) {
		return Num(1)
	}
	if en, ok := exp.(*Number); ok {
		if Zero(base) && en.Value > 0 {
			return Num(0)
		}
		if bn, ok := base.(*Number); ok {
			v := math.Pow(bn.Value, en.Value)
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				return Num(v)
			}
		}
	}
	return Pow(base, exp)
}

func simplifyPiecewise(p *Piecewise) Expr {
	var branches []Branch
	for _, br := range p.Branches {
		val := Simplify(br.Value)
		cond := Simplify(br.Cond)
		if IsFalse(cond) {
			continue
		}
		branches = append(branches, Branch{Value: val, Cond: cond})
		if IsTrue(cond) {
			break
		}
	}
	if len(branches) == 0 {
		return Num(0)
	}
	if len(branches) == 1 && IsTrue(branches[0].Cond) {
		return branches[0].Value
	}
	return &Piecewise{Branches: branches}
}

func simplifyLogical(l *Logical) Expr {
	if l.Op == OpNot {
		op := Simplify(l.Operands[0])
		if IsTrue(op) {
			return False()
		}
		if IsFalse(op) {
			return True()
		}
		if inner, ok := op.(*Logical); ok && inner.Op == OpNot {
			return inner.Operands[0]
		}
		return &Logical{Op: OpNot, Operands: []Expr{op}}
	}

	var operands []Expr
	var flatten func(e Expr)
	flatten = func(e Expr) {
		if inner, ok := e.(*Logical); ok && inner.Op == l.Op {
			for _, o := range inner.Operands {
				flatten(o)
			}
			return
		}
		operands = append(operands, e)
	}
	for _, o := range l.Operands {
		flatten(Simplify(o))
	}

	var kept []Expr
	for _, o := range operands {
		switch {
		case l.Op == OpAnd && IsTrue(o):
		case l.Op == OpAnd && IsFalse(o):
			return False()
		case l.Op == OpOr && IsFalse(o):
		case l.Op == OpOr && IsTrue(o):
			return True()
		default:
			kept = append(kept, o)
		}
	}
	switch len(kept) {
	case 0:
		if l.Op == OpAnd {
			return True()
		}
		return False()
	case 1:
		return kept[0]
	}
	return &Logical{Op: l.Op, Operands: kept}
}
