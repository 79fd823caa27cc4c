package parser

import (
	"github.com/Crispae/wasm-pk/air"
	"github.com/Crispae/wasm-pk/sbml"
)

// TimeSymbol is the canonical name of the independent time variable. The
// textual alias "time" and the MathML time csymbol both resolve to it.
const TimeSymbol = "t"

// Context holds every identifier an expression may legally reference while
// one model is being compiled: species, parameters (globals plus qualified
// reaction locals), compartments, rule targets and the time symbol, together
// with the model's user-defined function table. A Context is immutable after
// construction and is not shared across models.
type Context struct {
	symbols   map[string]struct{}
	functions []sbml.Function
	funcIndex map[string]int
}

// NewContext builds the parse context for a model. Rule targets are included
// so that rule bodies may forward-reference other rules.
func NewContext(m *sbml.Model) *Context {
	names := []string{TimeSymbol, "time"}
	for _, s := range m.Species {
		names = append(names, s.ID)
	}
	merged, _ := m.MergedParameters()
	for _, p := range merged {
		names = append(names, p.ID)
	}
	for _, c := range m.Compartments {
		names = append(names, c.ID)
	}
	for _, r := range m.AssignmentRules {
		names = append(names, r.Variable)
	}
	for _, r := range m.InitialAssignments {
		names = append(names, r.Variable)
	}
	return NewContextFromSymbols(names, m.Functions)
}

// NewContextFromSymbols builds a context from an explicit symbol list. The
// time symbol and its alias are always included.
func NewContextFromSymbols(names []string, functions []sbml.Function) *Context {
	ctx := &Context{
		symbols:   make(map[string]struct{}, len(names)+2),
		functions: functions,
		funcIndex: make(map[string]int, len(functions)),
	}
	ctx.symbols[TimeSymbol] = struct{}{}
	ctx.symbols["time"] = struct{}{}
	for _, n := range names {
		if n != "" {
			ctx.symbols[n] = struct{}{}
		}
	}
	for i, f := range functions {
		ctx.funcIndex[f.ID] = i
	}
	return ctx
}

// Known reports whether name is a resolvable identifier.
func (c *Context) Known(name string) bool {
	_, ok := c.symbols[name]
	return ok
}

// Resolve maps an identifier to its AIR symbol. The "time" alias resolves to
// the canonical time symbol.
func (c *Context) Resolve(name string) (air.Expr, bool) {
	if name == "time" || name == TimeSymbol {
		return air.Sym(TimeSymbol), true
	}
	if _, ok := c.symbols[name]; ok {
		return air.Sym(name), true
	}
	return nil, false
}

// withSymbols returns a copy of the context with extra known symbols, used
// while a function body is parsed with its formals in scope.
func (c *Context) withSymbols(names []string) *Context {
	out := &Context{
		symbols:   make(map[string]struct{}, len(c.symbols)+len(names)),
		functions: c.functions,
		funcIndex: c.funcIndex,
	}
	for k := range c.symbols {
		out.symbols[k] = struct{}{}
	}
	for _, n := range names {
		out.symbols[n] = struct{}{}
	}
	return out
}

// Function looks up a user-defined function definition by id.
func (c *Context) Function(name string) (sbml.Function, bool) {
	i, ok := c.funcIndex[name]
	if !ok {
		return sbml.Function{}, false
	}
	return c.functions[i], true
}

// Functions returns the model's function definitions in declaration order.
func (c *Context) Functions() []sbml.Function {
	return c.functions
}
