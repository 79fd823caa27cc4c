package parser

import (
	"regexp"
	"sort"
	"strings"

	"github.com/Crispae/wasm-pk/sbml"
)

// maxInlineDepth bounds recursive function substitution so self-referential
// definitions cannot loop forever. Calls still present at the bound are left
// as-is.
const maxInlineDepth = 10

// Inliner performs text-level substitution of user-defined function calls
// with their bodies, supporting nested calls and nested parentheses in
// arguments.
type Inliner struct {
	functions []sbml.Function
	calls     []*regexp.Regexp
	formals   [][]formalSub
}

type formalSub struct {
	index int
	re    *regexp.Regexp
}

// NewInliner compiles the call-site and formal-parameter patterns for each
// function definition once.
func NewInliner(functions []sbml.Function) *Inliner {
	in := &Inliner{
		functions: functions,
		calls:     make([]*regexp.Regexp, len(functions)),
		formals:   make([][]formalSub, len(functions)),
	}
	for i, f := range functions {
		in.calls[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(f.ID) + `\s*\(`)
		subs := make([]formalSub, len(f.Arguments))
		for j, arg := range f.Arguments {
			subs[j] = formalSub{
				index: j,
				re:    regexp.MustCompile(`\b` + regexp.QuoteMeta(arg) + `\b`),
			}
		}
		// Longest formal first, so "abc" is never clipped by "ab".
		sort.SliceStable(subs, func(a, b int) bool {
			return len(f.Arguments[subs[a].index]) > len(f.Arguments[subs[b].index])
		})
		in.formals[i] = subs
	}
	return in
}

// Inline substitutes every function call in expr with its definition body,
// restarting the scan after each substitution so nested calls resolve from
// the outside in. It stops at a fixed point or at maxInlineDepth.
func (in *Inliner) Inline(expr string) string {
	for depth := 0; depth < maxInlineDepth; depth++ {
		substituted := false
		for i := range in.functions {
			loc := in.calls[i].FindStringIndex(expr)
			if loc == nil {
				continue
			}
			argsStr, end, ok := extractArguments(expr, loc[1])
			if !ok {
				continue
			}
			args := splitArguments(argsStr)
			body := in.substituteArguments(i, args)
			call := expr[loc[0]:end]
			expr = strings.Replace(expr, call, body, 1)
			substituted = true
			break
		}
		if !substituted {
			break
		}
	}
	return expr
}

// extractArguments scans from just past an opening parenthesis to its
// balanced close, returning the raw argument text and the index after the
// closing parenthesis. ok is false when the parentheses never balance.
func extractArguments(s string, start int) (args string, end int, ok bool) {
	depth := 1
	var b strings.Builder
	i := start
	for i < len(s) && depth > 0 {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth > 0 {
			b.WriteByte(s[i])
		}
		i++
	}
	if depth != 0 {
		return "", 0, false
	}
	return b.String(), i, true
}

// splitArguments splits comma-separated argument text at nesting depth zero,
// so "a, f(x, y)" yields two arguments, not three.
func splitArguments(argsStr string) []string {
	var args []string
	var current strings.Builder
	depth := 0
	for i := 0; i < len(argsStr); i++ {
		ch := argsStr[i]
		if ch == ',' && depth == 0 {
			args = append(args, strings.TrimSpace(current.String()))
			current.Reset()
			continue
		}
		switch ch {
		case '(':
			depth++
		case ')':
			depth--
		}
		current.WriteByte(ch)
	}
	if tail := strings.TrimSpace(current.String()); tail != "" {
		args = append(args, tail)
	}
	return args
}

// substituteArguments replaces each formal parameter in the function body
// with its parenthesized actual argument. The body itself is parenthesized
// so operator precedence at the call site is preserved.
func (in *Inliner) substituteArguments(fn int, args []string) string {
	body := "(" + in.functions[fn].MathString + ")"
	for _, sub := range in.formals[fn] {
		if sub.index >= len(args) {
			continue
		}
		body = sub.re.ReplaceAllLiteralString(body, "("+args[sub.index]+")")
	}
	return body
}
