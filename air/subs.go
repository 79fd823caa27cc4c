package air

// Substitute replaces every symbol named in env with its replacement
// expression, sharing untouched subtrees with the input.
func Substitute(e Expr, env map[string]Expr) Expr {
	if len(env) == 0 {
		return e
	}
	if s, ok := e.(*Symbol); ok {
		if r, ok := env[s.Name]; ok {
			return r
		}
		return e
	}
	children := Children(e)
	if len(children) == 0 {
		return e
	}
	changed := false
	out := make([]Expr, len(children))
	for i, c := range children {
		out[i] = Substitute(c, env)
		if out[i] != c {
			changed = true
		}
	}
	if !changed {
		return e
	}
	return Rebuild(e, out)
}

// SubstituteSymbol replaces occurrences of a single symbol.
func SubstituteSymbol(e Expr, name string, with Expr) Expr {
	return Substitute(e, map[string]Expr{name: with})
}
