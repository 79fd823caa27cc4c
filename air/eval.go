package air

import (
	"fmt"
	"math"
)

// Eval numerically evaluates e under the given symbol environment.
// Relations and logicals evaluate to 1 or 0. Division by zero follows
// IEEE float semantics rather than failing, matching the behavior of
// the generated code.
func Eval(e Expr, env map[string]float64) (float64, error) {
	switch v := e.(type) {
	case *Number:
		return v.Value, nil
	case *Symbol:
		val, ok := env[v.Name]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrUnknownSymbol, v.Name)
		}
		return val, nil
	case *BinaryOp:
		l, err := Eval(v.Left, env)
		if err != nil {
			return 0, err
		}
		r, err := Eval(v.Right, env)
		if err != nil {
			return 0, err
		}
		switch v.Op {
		case OpAdd:
			return l + r, nil
		case OpSub:
			return l - r, nil
		case OpMul:
			return l * r, nil
		case OpDiv:
			return l / r, nil
		case OpPow:
			return math.Pow(l, r), nil
		}
	case *UnaryOp:
		o, err := Eval(v.Operand, env)
		if err != nil {
			return 0, err
		}
		return -o, nil
	case *Call:
		return evalCall(v, env)
	case *Piecewise:
		for _, br := range v.Branches {
			hold, err := EvalBool(br.Cond, env)
			if err != nil {
				return 0, err
			}
			if hold {
				return Eval(br.Value, env)
			}
		}
		return 0, nil
	case *Relation, *Logical:
		hold, err := EvalBool(e, env)
		if err != nil {
			return 0, err
		}
		if hold {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("%w: %T", ErrUnknownFunction, e)
}

// EvalBool evaluates a boolean-valued expression. A numeric operand is
// truthy when nonzero.
func EvalBool(e Expr, env map[string]float64) (bool, error) {
	switch v := e.(type) {
	case *Relation:
		l, err := Eval(v.Left, env)
		if err != nil {
			return false, err
		}
		r, err := Eval(v.Right, env)
		if err != nil {
			return false, err
		}
		return holdsRelation(v.Op, l, r), nil
	case *Logical:
		switch v.Op {
		case OpNot:
			inner, err := EvalBool(v.Operands[0], env)
			if err != nil {
				return false, err
			}
			return !inner, nil
		case OpAnd:
			for _, o := range v.Operands {
				hold, err := EvalBool(o, env)
				if err != nil {
					return false, err
				}
				if !hold {
					return false, nil
				}
			}
			return true, nil
		case OpOr:
			for _, o := range v.Operands {
				hold, err := EvalBool(o, env)
				if err != nil {
					return false, err
				}
				if hold {
					return true, nil
				}
			}
			return false, nil
		}
	}
	val, err := Eval(e, env)
	if err != nil {
		return false, err
	}
	return val != 0, nil
}

func evalCall(c *Call, env map[string]float64) (float64, error) {
	args := make([]float64, len(c.Args))
	for i, a := range c.Args {
		v, err := Eval(a, env)
		if err != nil {
			return 0, err
		}
		args[i] = v
	}
	arity1 := func() (float64, error) {
		if len(args) != 1 {
			return 0, fmt.Errorf("%w: %s takes 1 argument, got %d", ErrBadArity, c.Name, len(args))
		}
		return args[0], nil
	}
	switch c.Name {
	case "sqrt":
		u, err := arity1()
		if err != nil {
			return 0, err
		}
		return math.Sqrt(u), nil
	case "exp":
		u, err := arity1()
		if err != nil {
			return 0, err
		}
		return math.Exp(u), nil
	case "ln", "log":
		u, err := arity1()
		if err != nil {
			return 0, err
		}
		return math.Log(u), nil
	case "sin":
		u, err := arity1()
		if err != nil {
			return 0, err
		}
		return math.Sin(u), nil
	case "cos":
		u, err := arity1()
		if err != nil {
			return 0, err
		}
		return math.Cos(u), nil
	case "tan":
		u, err := arity1()
		if err != nil {
			return 0, err
		}
		return math.Tan(u), nil
	case "abs":
		u, err := arity1()
		if err != nil {
			return 0, err
		}
		return math.Abs(u), nil
	case "sign":
		u, err := arity1()
		if err != nil {
			return 0, err
		}
		switch {
		case u > 0:
			return 1, nil
		case u < 0:
			return -1, nil
		}
		return 0, nil
	case "floor":
		u, err := arity1()
		if err != nil {
			return 0, err
		}
		return math.Floor(u), nil
	case "ceil", "ceiling":
		u, err := arity1()
		if err != nil {
			return 0, err
		}
		return math.Ceil(u), nil
	case "pow":
		if len(args) != 2 {
			return 0, fmt.Errorf("%w: pow takes 2 arguments, got %d", ErrBadArity, len(args))
		}
		return math.Pow(args[0], args[1]), nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownFunction, c.Name)
}
