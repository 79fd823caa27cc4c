package parser

import (
	"fmt"
	"math"
	"strconv"

	"github.com/Crispae/wasm-pk/air"
)

// Internal callable names substituted during preprocessing so SBML call
// forms cannot collide with reserved words in the target language.
const (
	piecewiseCall = "__piecewise"
	andCall       = "__and"
	orCall        = "__or"
	notCall       = "__not"
)

// builtinCalls is the set of function names the grammar recognizes as
// callable. Identifiers outside this set followed by "(" are implicit
// multiplications, matching how "x(y+1)" reads in SBML formula text.
var builtinCalls = map[string]struct{}{
	"pow": {}, "sqrt": {}, "exp": {}, "log": {}, "ln": {}, "log10": {},
	"sin": {}, "cos": {}, "tan": {}, "abs": {}, "floor": {}, "ceil": {},
	"ceiling": {}, "sign": {},
	"gt": {}, "lt": {}, "ge": {}, "geq": {}, "le": {}, "leq": {},
	"eq": {}, "neq": {},
	"and": {}, "or": {}, "not": {}, "piecewise": {},
	andCall: {}, orCall: {}, notCall: {}, piecewiseCall: {},
}

// formulaParser parses plain formula strings with precedence climbing:
// or < and < comparison < additive < multiplicative < unary < power < atom.
// Power is right-associative; multiplication may be implicit.
type formulaParser struct {
	lexer *Lexer
	ctx   *Context
	cur   Token
	peek  Token
}

func newFormulaParser(input string, ctx *Context) *formulaParser {
	p := &formulaParser{lexer: NewLexer(input), ctx: ctx}
	p.nextToken()
	p.nextToken()
	return p
}

func (p *formulaParser) nextToken() {
	p.cur = p.peek
	p.peek = p.lexer.NextToken()
}

func (p *formulaParser) parse() (air.Expr, error) {
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur.Type != TokenEOF {
		return nil, fmt.Errorf("%w: unexpected %q at position %d", ErrParse, p.cur.Literal, p.cur.Pos)
	}
	return expr, nil
}

func (p *formulaParser) parseOr() (air.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokenOr {
		p.nextToken()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = air.NewLogical(air.OpOr, left, right)
	}
	return left, nil
}

func (p *formulaParser) parseAnd() (air.Expr, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokenAnd {
		p.nextToken()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = air.NewLogical(air.OpAnd, left, right)
	}
	return left, nil
}

func (p *formulaParser) parseComparison() (air.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		var op air.RelOp
		switch p.cur.Type {
		case TokenGreater:
			op = air.OpGt
		case TokenLess:
			op = air.OpLt
		case TokenGreatEq:
			op = air.OpGe
		case TokenLessEq:
			op = air.OpLe
		case TokenEq:
			op = air.OpEq
		case TokenNotEq:
			op = air.OpNe
		default:
			return left, nil
		}
		p.nextToken()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = air.NewRelation(op, left, right)
	}
}

func (p *formulaParser) parseAdditive() (air.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokenPlus || p.cur.Type == TokenMinus {
		op := p.cur.Type
		p.nextToken()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		if op == TokenPlus {
			left = air.Add(left, right)
		} else {
			left = air.Sub(left, right)
		}
	}
	return left, nil
}

func (p *formulaParser) parseMultiplicative() (air.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.cur.Type == TokenStar:
			p.nextToken()
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = air.Mul(left, right)
		case p.cur.Type == TokenSlash:
			p.nextToken()
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = air.Div(left, right)
		case p.startsOperand():
			// Implicit multiplication: "k1 A", "2x", ")(".
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = air.Mul(left, right)
		default:
			return left, nil
		}
	}
}

// startsOperand reports whether the current token can begin a new operand,
// which after a complete operand means an implicit multiplication.
func (p *formulaParser) startsOperand() bool {
	switch p.cur.Type {
	case TokenNumber, TokenIdent, TokenLParen:
		return true
	}
	return false
}

func (p *formulaParser) parseUnary() (air.Expr, error) {
	switch p.cur.Type {
	case TokenMinus:
		p.nextToken()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return air.Neg(operand), nil
	case TokenPlus:
		p.nextToken()
		return p.parseUnary()
	case TokenBang:
		p.nextToken()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return air.NewLogical(air.OpNot, operand), nil
	}
	return p.parsePower()
}

func (p *formulaParser) parsePower() (air.Expr, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.cur.Type == TokenPower {
		p.nextToken()
		// Right-associative, and the exponent may carry a sign: x^-2.
		exp, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return air.Pow(base, exp), nil
	}
	return base, nil
}

func (p *formulaParser) parsePrimary() (air.Expr, error) {
	switch p.cur.Type {
	case TokenNumber:
		v, err := strconv.ParseFloat(p.cur.Literal, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad number %q at position %d", ErrParse, p.cur.Literal, p.cur.Pos)
		}
		p.nextToken()
		return air.Num(v), nil
	case TokenLParen:
		p.nextToken()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.cur.Type != TokenRParen {
			return nil, fmt.Errorf("%w: expected \")\" at position %d", ErrParse, p.cur.Pos)
		}
		p.nextToken()
		return expr, nil
	case TokenIdent:
		name := p.cur.Literal
		pos := p.cur.Pos
		if p.peek.Type == TokenLParen && p.callable(name) {
			return p.parseCall(name)
		}
		p.nextToken()
		return p.resolveSymbol(name, pos)
	case TokenEOF:
		return nil, fmt.Errorf("%w: unexpected end of expression", ErrParse)
	}
	return nil, fmt.Errorf("%w: unexpected %q at position %d", ErrParse, p.cur.Literal, p.cur.Pos)
}

func (p *formulaParser) callable(name string) bool {
	if _, ok := builtinCalls[name]; ok {
		return true
	}
	_, ok := p.ctx.Function(name)
	return ok
}

func (p *formulaParser) parseCall(name string) (air.Expr, error) {
	pos := p.cur.Pos
	p.nextToken() // function name
	p.nextToken() // opening parenthesis
	var args []air.Expr
	if p.cur.Type != TokenRParen {
		for {
			arg, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.cur.Type != TokenComma {
				break
			}
			p.nextToken()
		}
	}
	if p.cur.Type != TokenRParen {
		return nil, fmt.Errorf("%w: expected \")\" closing call to %s at position %d", ErrParse, name, p.cur.Pos)
	}
	p.nextToken()
	return p.buildCall(name, args, pos)
}

// buildCall maps a recognized call onto its AIR node kind. Calls that are
// neither builtins nor SBML call forms stay symbolic, which is where
// definitions left un-inlined at the recursion bound end up.
func (p *formulaParser) buildCall(name string, args []air.Expr, pos int) (air.Expr, error) {
	switch name {
	case "pow":
		if err := p.checkArity(name, args, 2, pos); err != nil {
			return nil, err
		}
		return air.Pow(args[0], args[1]), nil
	case "sqrt", "exp", "ln", "log10", "sin", "cos", "tan", "abs", "floor", "ceil", "ceiling", "sign":
		if err := p.checkArity(name, args, 1, pos); err != nil {
			return nil, err
		}
		return air.NewCall(name, args[0]), nil
	case "log":
		if len(args) == 2 {
			// log(base, x) per SBML level 3 formula syntax.
			return air.Div(air.NewCall("ln", args[1]), air.NewCall("ln", args[0])), nil
		}
		if err := p.checkArity(name, args, 1, pos); err != nil {
			return nil, err
		}
		return air.NewCall("log", args[0]), nil
	case "gt", "lt", "ge", "geq", "le", "leq", "eq", "neq":
		if err := p.checkArity(name, args, 2, pos); err != nil {
			return nil, err
		}
		return air.NewRelation(relOpFor(name), args[0], args[1]), nil
	case "and", andCall:
		if len(args) == 0 {
			return air.True(), nil
		}
		return air.NewLogical(air.OpAnd, args...), nil
	case "or", orCall:
		if len(args) == 0 {
			return air.False(), nil
		}
		return air.NewLogical(air.OpOr, args...), nil
	case "not", notCall:
		if err := p.checkArity(name, args, 1, pos); err != nil {
			return nil, err
		}
		return air.NewLogical(air.OpNot, args[0]), nil
	case "piecewise", piecewiseCall:
		return buildPiecewise(args), nil
	}
	return air.NewCall(name, args...), nil
}

func (p *formulaParser) checkArity(name string, args []air.Expr, want int, pos int) error {
	if len(args) != want {
		return fmt.Errorf("%w: %s expects %d, got %d at position %d", ErrBadArguments, name, want, len(args), pos)
	}
	return nil
}

func relOpFor(name string) air.RelOp {
	switch name {
	case "gt":
		return air.OpGt
	case "lt":
		return air.OpLt
	case "ge", "geq":
		return air.OpGe
	case "le", "leq":
		return air.OpLe
	case "neq":
		return air.OpNe
	}
	return air.OpEq
}

// buildPiecewise pairs piecewise arguments (v1, c1, v2, c2, ...) into
// branches; an odd trailing argument becomes the unconditional default.
func buildPiecewise(args []air.Expr) air.Expr {
	var branches []air.Branch
	n := len(args)
	for i := 0; i+1 < n; i += 2 {
		branches = append(branches, air.Branch{Value: args[i], Cond: args[i+1]})
	}
	if n%2 == 1 {
		branches = append(branches, air.Branch{Value: args[n-1], Cond: air.True()})
	}
	if len(branches) == 0 {
		return air.Num(0)
	}
	return &air.Piecewise{Branches: branches}
}

func (p *formulaParser) resolveSymbol(name string, pos int) (air.Expr, error) {
	if expr, ok := p.ctx.Resolve(name); ok {
		return expr, nil
	}
	switch name {
	case "pi":
		return air.Num(math.Pi), nil
	case "exponentiale":
		return air.Num(math.E), nil
	case "inf", "INF", "infinity":
		return air.Num(math.Inf(1)), nil
	case "nan", "NaN", "notanumber":
		return air.Num(math.NaN()), nil
	case "true", "True":
		return air.True(), nil
	case "false", "False":
		return air.False(), nil
	}
	return nil, fmt.Errorf("%w: %q at position %d", ErrUnknownIdentifier, name, pos)
}
