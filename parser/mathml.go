package parser

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/Crispae/wasm-pk/air"
)

// avogadroValue is the numeric substitution for the MathML Avogadro
// csymbol, matching the SBML specification constant.
const avogadroValue = 6.02214179e23

// mathNode is one MathML element: local name, attributes, child elements
// and the character data between them. segments[i] holds the text before
// child i, segments[len(children)] the text after the last child, so
// <sep/>-separated numbers keep their parts.
type mathNode struct {
	name     string
	attrs    []xml.Attr
	children []*mathNode
	segments []string
}

func (n *mathNode) attr(local string) string {
	for _, a := range n.attrs {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func (n *mathNode) text() string {
	return strings.TrimSpace(strings.Join(n.segments, ""))
}

// parts returns the trimmed non-empty text segments, one per <sep/> split.
func (n *mathNode) parts() []string {
	var out []string
	for _, s := range n.segments {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// buildMathTree decodes a MathML document into a mathNode tree. XML
// declarations, comments and foreign namespace declarations (xmlns:sbml and
// attributes such as sbml:units) pass through without effect.
func buildMathTree(doc string) (*mathNode, error) {
	dec := xml.NewDecoder(strings.NewReader(doc))
	var root *mathNode
	var stack []*mathNode
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			node := &mathNode{name: t.Name.Local, attrs: t.Attr}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, node)
			} else if root == nil {
				root = node
			} else {
				return nil, fmt.Errorf("%w: multiple root elements", ErrParse)
			}
			stack = append(stack, node)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("%w: unbalanced MathML", ErrParse)
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				top := stack[len(stack)-1]
				for len(top.segments) <= len(top.children) {
					top.segments = append(top.segments, "")
				}
				top.segments[len(top.children)] += string(t)
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("%w: no MathML content", ErrParse)
	}
	return root, nil
}

// mathmlParser walks a mathNode tree into AIR. depth bounds user-defined
// function inlining the same way the text inliner is bounded.
type mathmlParser struct {
	parent *Parser
	ctx    *Context
	depth  int
}

func (p *Parser) parseMathML(doc string) (air.Expr, error) {
	root, err := buildMathTree(doc)
	if err != nil {
		return nil, err
	}
	mp := &mathmlParser{parent: p, ctx: p.ctx}
	return mp.translate(root)
}

func (mp *mathmlParser) translate(n *mathNode) (air.Expr, error) {
	switch n.name {
	case "math", "semantics":
		for _, c := range n.children {
			if c.name == "annotation" || c.name == "annotation-xml" {
				continue
			}
			return mp.translate(c)
		}
		return air.Num(0), nil
	case "apply":
		return mp.translateApply(n)
	case "ci":
		name := n.text()
		if expr, ok := mp.ctx.Resolve(name); ok {
			return expr, nil
		}
		return nil, fmt.Errorf("%w: %q", ErrUnknownIdentifier, name)
	case "cn":
		return mp.translateNumber(n)
	case "csymbol":
		return mp.translateCsymbol(n)
	case "piecewise":
		return mp.translatePiecewise(n)
	case "true":
		return air.True(), nil
	case "false":
		return air.False(), nil
	case "pi":
		return air.Num(math.Pi), nil
	case "exponentiale":
		return air.Num(math.E), nil
	case "infinity":
		return air.Num(math.Inf(1)), nil
	case "notanumber":
		return air.Num(math.NaN()), nil
	}
	return nil, fmt.Errorf("%w: <%s>", ErrUnsupportedElement, n.name)
}

func (mp *mathmlParser) translateApply(n *mathNode) (air.Expr, error) {
	if len(n.children) == 0 {
		return nil, fmt.Errorf("%w: empty <apply>", ErrParse)
	}
	head := n.children[0]
	args := n.children[1:]

	if head.name == "ci" {
		return mp.applyFunction(head.text(), args)
	}
	if head.name == "csymbol" {
		url := head.attr("definitionURL")
		if strings.Contains(url, "delay") {
			return nil, fmt.Errorf("%w: delay csymbol", ErrUnsupportedElement)
		}
		return nil, fmt.Errorf("%w: csymbol %q applied as operator", ErrUnsupportedElement, head.text())
	}

	switch head.name {
	case "root":
		return mp.translateRoot(args)
	case "log":
		return mp.translateLog(args)
	}

	operands := make([]air.Expr, len(args))
	for i, a := range args {
		expr, err := mp.translate(a)
		if err != nil {
			return nil, err
		}
		operands[i] = expr
	}

	switch head.name {
	case "plus":
		if len(operands) == 0 {
			return air.Num(0), nil
		}
		return foldBinary(air.Add, operands), nil
	case "minus":
		switch len(operands) {
		case 1:
			return air.Neg(operands[0]), nil
		case 2:
			return air.Sub(operands[0], operands[1]), nil
		}
		return nil, fmt.Errorf("%w: minus expects 1 or 2, got %d", ErrBadArguments, len(operands))
	case "times":
		if len(operands) == 0 {
			return air.Num(1), nil
		}
		return foldBinary(air.Mul, operands), nil
	case "divide":
		if len(operands) != 2 {
			return nil, fmt.Errorf("%w: divide expects 2, got %d", ErrBadArguments, len(operands))
		}
		return air.Div(operands[0], operands[1]), nil
	case "power":
		if len(operands) != 2 {
			return nil, fmt.Errorf("%w: power expects 2, got %d", ErrBadArguments, len(operands))
		}
		return air.Pow(operands[0], operands[1]), nil
	case "exp", "ln", "sin", "cos", "tan", "abs", "floor", "ceiling":
		if len(operands) != 1 {
			return nil, fmt.Errorf("%w: %s expects 1, got %d", ErrBadArguments, head.name, len(operands))
		}
		return air.NewCall(head.name, operands[0]), nil
	case "eq", "neq", "gt", "lt", "geq", "leq":
		return chainRelation(head.name, operands)
	case "and":
		if len(operands) == 0 {
			return air.True(), nil
		}
		return air.NewLogical(air.OpAnd, operands...), nil
	case "or":
		if len(operands) == 0 {
			return air.False(), nil
		}
		return air.NewLogical(air.OpOr, operands...), nil
	case "not":
		if len(operands) != 1 {
			return nil, fmt.Errorf("%w: not expects 1, got %d", ErrBadArguments, len(operands))
		}
		return air.NewLogical(air.OpNot, operands[0]), nil
	}
	return nil, fmt.Errorf("%w: <%s>", ErrUnsupportedElement, head.name)
}

func foldBinary(op func(l, r air.Expr) air.Expr, operands []air.Expr) air.Expr {
	out := operands[0]
	for _, o := range operands[1:] {
		out = op(out, o)
	}
	return out
}

// chainRelation folds an n-ary MathML relation into pairwise comparisons
// joined by conjunction, so (lt a b c) reads a < b && b < c.
func chainRelation(name string, operands []air.Expr) (air.Expr, error) {
	if len(operands) < 2 {
		return nil, fmt.Errorf("%w: %s expects at least 2, got %d", ErrBadArguments, name, len(operands))
	}
	op := relOpFor(name)
	rels := make([]air.Expr, 0, len(operands)-1)
	for i := 0; i+1 < len(operands); i++ {
		rels = append(rels, air.NewRelation(op, operands[i], operands[i+1]))
	}
	if len(rels) == 1 {
		return rels[0], nil
	}
	return air.NewLogical(air.OpAnd, rels...), nil
}

// translateRoot handles <apply><root/>[<degree>d</degree>]x</apply>.
// Degree 2, or no degree at all, is a square root.
func (mp *mathmlParser) translateRoot(args []*mathNode) (air.Expr, error) {
	degree := air.Expr(air.Num(2))
	operands := args
	if len(args) > 0 && args[0].name == "degree" {
		if len(args[0].children) != 1 {
			return nil, fmt.Errorf("%w: malformed <degree>", ErrParse)
		}
		d, err := mp.translate(args[0].children[0])
		if err != nil {
			return nil, err
		}
		degree = d
		operands = args[1:]
	}
	if len(operands) != 1 {
		return nil, fmt.Errorf("%w: root expects 1 operand, got %d", ErrBadArguments, len(operands))
	}
	x, err := mp.translate(operands[0])
	if err != nil {
		return nil, err
	}
	if num, ok := degree.(*air.Number); ok && num.Value == 2 {
		return air.NewCall("sqrt", x), nil
	}
	return air.Pow(x, air.Div(air.Num(1), degree)), nil
}

// translateLog handles <apply><log/>[<logbase>b</logbase>]x</apply>.
// Without a logbase the MathML log is base 10.
func (mp *mathmlParser) translateLog(args []*mathNode) (air.Expr, error) {
	if len(args) > 0 && args[0].name == "logbase" {
		if len(args[0].children) != 1 || len(args) != 2 {
			return nil, fmt.Errorf("%w: malformed <logbase>", ErrParse)
		}
		base, err := mp.translate(args[0].children[0])
		if err != nil {
			return nil, err
		}
		x, err := mp.translate(args[1])
		if err != nil {
			return nil, err
		}
		return air.Div(air.NewCall("ln", x), air.NewCall("ln", base)), nil
	}
	if len(args) != 1 {
		return nil, fmt.Errorf("%w: log expects 1 operand, got %d", ErrBadArguments, len(args))
	}
	x, err := mp.translate(args[0])
	if err != nil {
		return nil, err
	}
	return air.NewCall("log10", x), nil
}

func (mp *mathmlParser) translateNumber(n *mathNode) (air.Expr, error) {
	parts := n.parts()
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: empty <cn>", ErrParse)
	}
	switch n.attr("type") {
	case "e-notation":
		if len(parts) == 2 {
			mantissa, err1 := strconv.ParseFloat(parts[0], 64)
			exponent, err2 := strconv.ParseFloat(parts[1], 64)
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("%w: bad e-notation %q", ErrParse, strings.Join(parts, ";"))
			}
			return air.Num(mantissa * math.Pow(10, exponent)), nil
		}
	case "rational":
		if len(parts) == 2 {
			num, err1 := strconv.ParseFloat(parts[0], 64)
			den, err2 := strconv.ParseFloat(parts[1], 64)
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("%w: bad rational %q", ErrParse, strings.Join(parts, ";"))
			}
			return air.Num(num / den), nil
		}
	}
	v, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad number %q", ErrParse, parts[0])
	}
	return air.Num(v), nil
}

func (mp *mathmlParser) translateCsymbol(n *mathNode) (air.Expr, error) {
	url := n.attr("definitionURL")
	name := n.text()
	switch {
	case strings.Contains(url, "time") || name == "time" || name == "t":
		return air.Sym(TimeSymbol), nil
	case strings.Contains(url, "avogadro") || name == "avogadro":
		return air.Num(avogadroValue), nil
	case strings.Contains(url, "delay"):
		return nil, fmt.Errorf("%w: delay csymbol", ErrUnsupportedElement)
	}
	return nil, fmt.Errorf("%w: csymbol %q", ErrUnsupportedElement, name)
}

func (mp *mathmlParser) translatePiecewise(n *mathNode) (air.Expr, error) {
	var branches []air.Branch
	for _, c := range n.children {
		switch c.name {
		case "piece":
			if len(c.children) != 2 {
				return nil, fmt.Errorf("%w: <piece> expects value and condition", ErrParse)
			}
			value, err := mp.translate(c.children[0])
			if err != nil {
				return nil, err
			}
			cond, err := mp.translate(c.children[1])
			if err != nil {
				return nil, err
			}
			branches = append(branches, air.Branch{Value: value, Cond: cond})
		case "otherwise":
			if len(c.children) != 1 {
				return nil, fmt.Errorf("%w: <otherwise> expects one value", ErrParse)
			}
			value, err := mp.translate(c.children[0])
			if err != nil {
				return nil, err
			}
			branches = append(branches, air.Branch{Value: value, Cond: air.True()})
		default:
			return nil, fmt.Errorf("%w: <%s> inside <piecewise>", ErrUnsupportedElement, c.name)
		}
	}
	if len(branches) == 0 {
		return air.Num(0), nil
	}
	return &air.Piecewise{Branches: branches}, nil
}

// applyFunction inlines a user-defined function application at the AIR
// level: the body is parsed as a formula with the formals in scope, then
// each formal is substituted with its translated argument subtree. Nested
// definitions resolve through the same path, bounded by maxInlineDepth;
// past the bound the application stays a symbolic call.
func (mp *mathmlParser) applyFunction(name string, argNodes []*mathNode) (air.Expr, error) {
	fn, ok := mp.ctx.Function(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q applied as function", ErrUnknownIdentifier, name)
	}
	args := make([]air.Expr, len(argNodes))
	for i, a := range argNodes {
		expr, err := mp.translate(a)
		if err != nil {
			return nil, err
		}
		args[i] = expr
	}
	if mp.depth >= maxInlineDepth {
		return air.NewCall(name, args...), nil
	}
	mp.depth++
	defer func() { mp.depth-- }()

	bodyCtx := mp.ctx.withSymbols(fn.Arguments)
	body, err := mp.parent.parseFormula(bodyCtx, fn.MathString)
	if err != nil {
		return nil, fmt.Errorf("inline %s: %w", name, err)
	}
	subs := make(map[string]air.Expr, len(fn.Arguments))
	for i, formal := range fn.Arguments {
		if i < len(args) {
			subs[formal] = args[i]
		}
	}
	return air.Substitute(body, subs), nil
}
