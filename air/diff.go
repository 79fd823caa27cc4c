package air

// Diff returns the simplified partial derivative of e with respect to
// the symbol named wrt. Differentiation is total: relations and
// logicals differentiate to zero, piecewise differentiates branch-wise
// under unchanged conditions, and an unrecognized function application
// keeps a symbolic D[name] factor instead of failing.
//
// Quotients and logarithms differentiate into negative-power form
// (sympy convention), which is what the downstream zero-capable power
// guard inspects.
func Diff(e Expr, wrt string) Expr {
	return Simplify(diff(e, wrt))
}

func diff(e Expr, wrt string) Expr {
	switch v := e.(type) {
	case *Number:
		return Num(0)
	case *Symbol:
		if v.Name == wrt {
			return Num(1)
		}
		return Num(0)
	case *BinaryOp:
		dl := diff(v.Left, wrt)
		dr := diff(v.Right, wrt)
		switch v.Op {
		case OpAdd:
			return Add(dl, dr)
		case OpSub:
			return Sub(dl, dr)
		case OpMul:
			return Add(Mul(dl, v.Right), Mul(v.Left, dr))
		case OpDiv:
			// l'/r - l*r'/r^2, in negative-power form.
			return Sub(
				Mul(dl, Pow(v.Right, Num(-1))),
				Mul(Mul(v.Left, dr), Pow(v.Right, Num(-2))),
			)
		case OpPow:
			return diffPow(v, dl, dr, wrt)
		}
	case *UnaryOp:
		return Neg(diff(v.Operand, wrt))
	case *Call:
		return diffCall(v, wrt)
	case *Piecewise:
		branches := make([]Branch, len(v.Branches))
		for i, br := range v.Branches {
			branches[i] = Branch{Value: diff(br.Value, wrt), Cond: br.Cond}
		}
		return &Piecewise{Branches: branches}
	case *Relation, *Logical:
		return Num(0)
	}
	return Num(0)
}

func diffPow(p *BinaryOp, dl, dr Expr, wrt string) Expr {
	base, exp := p.Left, p.Right
	if en, ok := exp.(*Number); ok {
		// n * base^(n-1) * base'
		return Mul(Mul(Num(en.Value), Pow(base, Num(en.Value-1))), dl)
	}
	if _, ok := base.(*Number); ok {
		// base^e * ln(base) * e'
		return Mul(Mul(Pow(base, exp), NewCall("ln", base)), dr)
	}
	// base^e * (e' * ln(base) + e * base' / base)
	return Mul(
		Pow(base, exp),
		Add(
			Mul(dr, NewCall("ln", base)),
			Mul(Mul(exp, dl), Pow(base, Num(-1))),
		),
	)
}

func diffCall(c *Call, wrt string) Expr {
	if len(c.Args) != 1 {
		return Mul(NewCall("D["+c.Name+"]", c.Args...), diffArgs(c, wrt))
	}
	u := c.Args[0]
	du := diff(u, wrt)
	var outer Expr
	switch c.Name {
	case "sin":
		outer = NewCall("cos", u)
	case "cos":
		outer = Neg(NewCall("sin", u))
	case "tan":
		outer = Add(Num(1), Pow(NewCall("tan", u), Num(2)))
	case "exp":
		outer = NewCall("exp", u)
	case "ln", "log":
		outer = Pow(u, Num(-1))
	case "sqrt":
		outer = Mul(Num(0.5), Pow(u, Num(-0.5)))
	case "abs":
		outer = NewCall("sign", u)
	case "sign":
		return Num(0)
	default:
		outer = NewCall("D["+c.Name+"]", u)
	}
	return Mul(outer, du)
}

func diffArgs(c *Call, wrt string) Expr {
	var sum Expr = Num(0)
	for _, a := range c.Args {
		sum = Add(sum, diff(a, wrt))
	}
	return sum
}
