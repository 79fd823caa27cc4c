package parser

import (
	"regexp"
	"sort"
	"strings"
)

// unitTokens lists the SBML unit names that may appear inline in formula
// strings. They carry no numeric meaning for code generation and are
// stripped before parsing.
var unitTokens = []string{
	"dimensionless",
	"litre",
	"liter",
	"mole",
	"gram",
	"second",
	"minute",
	"hour",
	"day",
	"kilogram",
	"milligram",
	"microgram",
	"millilitre",
	"milliliter",
	"nanomole",
	"picomole",
	"micromole",
	"millimole",
	"per_second",
	"per_minute",
	"per_hour",
}

var unitRE = buildUnitRE()

// buildUnitRE compiles a single word-boundary alternation over the unit
// tokens, longest first so no token is clipped inside a longer one.
func buildUnitRE() *regexp.Regexp {
	sorted := make([]string, len(unitTokens))
	copy(sorted, unitTokens)
	sort.Slice(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	return regexp.MustCompile(`(?i)\b(` + strings.Join(sorted, "|") + `)\b`)
}

// powMark stands in for "**" while dangling operators are cleaned up, so the
// exponentiation operator is never confused with a stray multiplication.
const powMark = "\x01"

var (
	wsRE          = regexp.MustCompile(`\s+`)
	signThenMulRE = regexp.MustCompile(`([+\-])\s*[*/]`)
	dupMulRE      = regexp.MustCompile(`[*/]\s*([*/])`)
	powThenMulRE  = regexp.MustCompile(powMark + `\s*[*/]`)
	openThenOpRE  = regexp.MustCompile(`\(\s*[*/+` + powMark + `]`)
	opThenCloseRE = regexp.MustCompile(`[*/+\-` + powMark + `]\s*\)`)
	leadingOpRE   = regexp.MustCompile(`^[*/+` + powMark + `]\s*`)
	trailingOpRE  = regexp.MustCompile(`[*/+\-` + powMark + `]\s*$`)
	emptyParensRE = regexp.MustCompile(`\(\s*\)`)
)

// StripUnits removes unit annotations from a formula string and repairs any
// operator left dangling by the removal. Text without unit tokens is
// returned unchanged.
func StripUnits(expr string) string {
	stripped := unitRE.ReplaceAllString(expr, "")
	if stripped == expr {
		return expr
	}
	return cleanDanglingOperators(stripped)
}

// cleanDanglingOperators drops leading, trailing and duplicated binary
// operators produced by token removal, iterating to a fixed point. A
// sign followed by a multiplicative operator keeps the sign; duplicated
// multiplicative operators keep the second, so "a * <unit> / b" repairs to
// "a / b".
func cleanDanglingOperators(s string) string {
	s = strings.ReplaceAll(s, "**", powMark)
	s = strings.TrimSpace(wsRE.ReplaceAllString(s, " "))
	for {
		t := signThenMulRE.ReplaceAllString(s, "$1")
		t = dupMulRE.ReplaceAllString(t, "$1")
		t = powThenMulRE.ReplaceAllString(t, powMark)
		t = openThenOpRE.ReplaceAllString(t, "(")
		t = opThenCloseRE.ReplaceAllString(t, ")")
		t = leadingOpRE.ReplaceAllString(t, "")
		t = trailingOpRE.ReplaceAllString(t, "")
		t = emptyParensRE.ReplaceAllString(t, "")
		if t == s {
			break
		}
		s = t
	}
	return strings.TrimSpace(strings.ReplaceAll(s, powMark, "**"))
}
