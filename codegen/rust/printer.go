// Package rust renders expression trees into Rust source and assembles
// the generated simulation file: a pretty-printer for single
// expressions, block generators for the statement sections, and a
// template assembler for the complete compilation unit.
package rust

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Crispae/wasm-pk/air"
	"github.com/Crispae/wasm-pk/cse"
)

// Operator binding strength, loosest first. A child wraps itself in
// parentheses when the surrounding context binds tighter than it does.
const (
	precLowest = iota
	precOr
	precAnd
	precCompare
	precAdd
	precMul
	precUnary
	precPostfix
)

// methodFor maps function names onto f64 methods.
var methodFor = map[string]string{
	"exp":     "exp",
	"ln":      "ln",
	"log":     "ln",
	"log10":   "log10",
	"sqrt":    "sqrt",
	"sin":     "sin",
	"cos":     "cos",
	"tan":     "tan",
	"abs":     "abs",
	"floor":   "floor",
	"ceil":    "ceil",
	"ceiling": "ceil",
	"sign":    "signum",
}

// Printer renders expression trees as Rust expression text. Every
// numeric literal prints in float form, powers use powi/powf, and
// piecewise expressions lower to if/else chains.
type Printer struct{}

// NewPrinter returns a Printer.
func NewPrinter() *Printer { return &Printer{} }

// Print renders e as a Rust expression.
func (p *Printer) Print(e air.Expr) string {
	return p.print(e, precLowest)
}

// PrintFormatted renders e and indents continuation lines so a
// multi-line result (an if/else chain) sits under a let binding inside
// a closure body.
func (p *Printer) PrintFormatted(e air.Expr) string {
	s := p.Print(e)
	if !strings.Contains(s, "\n") {
		return s
	}
	lines := strings.Split(s, "\n")
	return lines[0] + "\n        " + strings.Join(lines[1:], "\n        ")
}

func (p *Printer) print(e air.Expr, parent int) string {
	switch v := e.(type) {
	case *air.Number:
		s := formatFloat(v.Value)
		if strings.HasPrefix(s, "-") && parent >= precUnary {
			return "(" + s + ")"
		}
		return s
	case *air.Symbol:
		return v.Name
	case *air.BinaryOp:
		return p.printBinary(v, parent)
	case *air.UnaryOp:
		s := "-" + p.print(v.Operand, precUnary)
		return wrap(s, precUnary, parent)
	case *air.Call:
		return p.printCall(v, parent)
	case *air.Piecewise:
		return wrap(p.printPiecewise(v), precLowest, parent)
	case *air.Relation:
		s := fmt.Sprintf("%s %s %s", p.print(v.Left, precCompare), v.Op, p.print(v.Right, precCompare))
		return wrap(s, precCompare, parent)
	case *air.Logical:
		return p.printLogical(v, parent)
	}
	return "0.0"
}

func (p *Printer) printBinary(v *air.BinaryOp, parent int) string {
	switch v.Op {
	case air.OpAdd:
		// The right operand binds tighter so a + (b + c) keeps its
		// parentheses and evaluation order is explicit.
		s := p.print(v.Left, precAdd) + " + " + p.print(v.Right, precMul)
		return wrap(s, precAdd, parent)
	case air.OpSub:
		s := p.print(v.Left, precAdd) + " - " + p.print(v.Right, precMul)
		return wrap(s, precAdd, parent)
	case air.OpMul:
		s := p.print(v.Left, precMul) + "*" + p.print(v.Right, precUnary)
		return wrap(s, precMul, parent)
	case air.OpDiv:
		s := p.print(v.Left, precMul) + "/" + p.print(v.Right, precUnary)
		return wrap(s, precMul, parent)
	case air.OpPow:
		return p.printPow(v)
	}
	return "0.0"
}

// printPow renders powers, choosing powi for literal integer exponents
// and powf otherwise. A negative integer power whose base contains a
// piecewise is guarded: such a base can evaluate to exactly zero and an
// unguarded powi would produce a division by zero.
func (p *Printer) printPow(v *air.BinaryOp) string {
	base := p.print(v.Left, precPostfix)
	if n, ok := v.Right.(*air.Number); ok {
		if k, isInt := air.IsInt(n.Value); isInt {
			if k < 0 && containsPiecewise(v.Left) {
				return guardedPow(base, k)
			}
			return fmt.Sprintf("%s.powi(%d)", base, k)
		}
		return fmt.Sprintf("%s.powf(%s)", base, formatFloat(n.Value))
	}
	return fmt.Sprintf("%s.powf(%s)", base, p.print(v.Right, precLowest))
}

func (p *Printer) printCall(v *air.Call, parent int) string {
	if v.Name == cse.SafePowCall && len(v.Args) == 2 {
		base := p.print(v.Args[0], precPostfix)
		k := 0
		if n, ok := v.Args[1].(*air.Number); ok {
			k, _ = air.IsInt(n.Value)
		}
		return guardedPow(base, k)
	}
	if method, ok := methodFor[v.Name]; ok && len(v.Args) == 1 {
		return fmt.Sprintf("%s.%s()", p.print(v.Args[0], precPostfix), method)
	}
	args := make([]string, len(v.Args))
	for i, a := range v.Args {
		args[i] = p.print(a, precLowest)
	}
	return fmt.Sprintf("%s(%s)", v.Name, strings.Join(args, ", "))
}

func (p *Printer) printLogical(v *air.Logical, parent int) string {
	if v.Op == air.OpNot {
		if len(v.Operands) == 0 {
			return "true"
		}
		return wrap("!"+p.print(v.Operands[0], precUnary), precUnary, parent)
	}
	own := precAnd
	sep := " && "
	if v.Op == air.OpOr {
		own = precOr
		sep = " || "
	}
	parts := make([]string, len(v.Operands))
	for i, operand := range v.Operands {
		parts[i] = p.print(operand, own)
	}
	return wrap(strings.Join(parts, sep), own, parent)
}

// printPiecewise lowers a piecewise to an if/else chain in branch
// order. The first true-guarded branch becomes the bare else and later
// branches are unreachable; a piecewise without one gets an injected
// zero default, so the emitted chain is always a complete expression.
func (p *Printer) printPiecewise(pw *air.Piecewise) string {
	if len(pw.Branches) == 0 {
		return "0.0"
	}
	if air.IsTrue(pw.Branches[0].Cond) {
		return p.print(pw.Branches[0].Value, precLowest)
	}
	var lines []string
	hasDefault := false
	for i, br := range pw.Branches {
		if i > 0 && air.IsTrue(br.Cond) {
			lines = append(lines, "} else {", "    "+p.print(br.Value, precLowest))
			hasDefault = true
			break
		}
		if i == 0 {
			lines = append(lines, "if "+p.print(br.Cond, precLowest)+" {")
		} else {
			lines = append(lines, "} else if "+p.print(br.Cond, precLowest)+" {")
		}
		lines = append(lines, "    "+p.print(br.Value, precLowest))
	}
	if !hasDefault {
		lines = append(lines, "} else {", "    0.0")
	}
	lines = append(lines, "}")
	return strings.Join(lines, "\n")
}

func guardedPow(base string, k int) string {
	return fmt.Sprintf("(if %s != 0.0 { %s.powi(%d) } else { f64::INFINITY })", base, base, k)
}

func wrap(s string, own, parent int) string {
	if parent > own {
		return "(" + s + ")"
	}
	return s
}

func containsPiecewise(e air.Expr) bool {
	if _, ok := e.(*air.Piecewise); ok {
		return true
	}
	for _, c := range air.Children(e) {
		if containsPiecewise(c) {
			return true
		}
	}
	return false
}

// formatFloat renders a constant as a Rust float literal: integral
// values keep an explicit .0 so nothing ever reads as an integer
// literal, and very large or fractional values use the shortest exact
// form, which always carries a dot or an exponent.
func formatFloat(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "f64::INFINITY"
	case math.IsInf(v, -1):
		return "f64::NEG_INFINITY"
	case math.IsNaN(v):
		return "f64::NAN"
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
