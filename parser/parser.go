package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Crispae/wasm-pk/air"
)

// Parser converts raw SBML math, plain formula strings or MathML documents,
// into AIR. One Parser serves one model compilation.
type Parser struct {
	ctx     *Context
	inliner *Inliner
}

// New builds a parser over the given context.
func New(ctx *Context) *Parser {
	return &Parser{ctx: ctx, inliner: NewInliner(ctx.Functions())}
}

// Context returns the symbol context the parser resolves against.
func (p *Parser) Context() *Context {
	return p.ctx
}

// Parse converts one raw math expression into simplified AIR. Empty text and
// the literal "None" become the constant 0, never an error. Input starting
// with "<" takes the MathML path, everything else the formula path.
func (p *Parser) Parse(raw string) (air.Expr, error) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "None" {
		return air.Num(0), nil
	}
	var expr air.Expr
	var err error
	if strings.HasPrefix(s, "<") {
		expr, err = p.parseMathML(s)
	} else {
		expr, err = p.parseFormula(p.ctx, s)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", snippet(raw), err)
	}
	return air.Simplify(expr), nil
}

// parseFormula strips units, inlines user-defined functions, renames the
// SBML call forms and parses the remaining text against ctx. Text that
// strips down to nothing parses to the constant 0.
func (p *Parser) parseFormula(ctx *Context, text string) (air.Expr, error) {
	s := StripUnits(text)
	s = p.inliner.Inline(s)
	s = renameCallForms(s)
	if strings.TrimSpace(s) == "" {
		return air.Num(0), nil
	}
	fp := newFormulaParser(s, ctx)
	return fp.parse()
}

var (
	piecewiseFormRE = regexp.MustCompile(`\bpiecewise\s*\(`)
	andFormRE       = regexp.MustCompile(`\band\s*\(`)
	orFormRE        = regexp.MustCompile(`\bor\s*\(`)
	notFormRE       = regexp.MustCompile(`\bnot\s*\(`)
)

// renameCallForms maps the piecewise and logical call forms onto internal
// callable names so they cannot collide with reserved words.
func renameCallForms(s string) string {
	s = piecewiseFormRE.ReplaceAllLiteralString(s, piecewiseCall+"(")
	s = andFormRE.ReplaceAllLiteralString(s, andCall+"(")
	s = orFormRE.ReplaceAllLiteralString(s, orCall+"(")
	s = notFormRE.ReplaceAllLiteralString(s, notCall+"(")
	return s
}

// snippet compacts raw math for error messages.
func snippet(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 60 {
		return s[:57] + "..."
	}
	return s
}
