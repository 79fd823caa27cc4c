package cse

import (
	"fmt"

	"github.com/Crispae/wasm-pk/air"
)

// extractable reports whether a node may become a temporary. Atoms are
// never worth a binding, and relations and logicals stay inline inside
// their conditions; their numeric operands are still candidates.
func extractable(e air.Expr) bool {
	switch e.(type) {
	case *air.BinaryOp, *air.UnaryOp, *air.Call, *air.Piecewise:
		return true
	}
	return false
}

// extract hash-conses repeated sub-trees across exprs. A sub-tree seen a
// second time is scheduled for elimination and not descended into again,
// so the largest repeated form wins and its interior is only extracted
// when it repeats independently elsewhere.
func extract(exprs []air.Expr) ([]Replacement, []air.Expr) {
	seen := make(map[string]struct{})
	eliminate := make(map[string]struct{})

	var scan func(e air.Expr)
	scan = func(e air.Expr) {
		if extractable(e) {
			key := e.String()
			if _, dup := seen[key]; dup {
				eliminate[key] = struct{}{}
				return
			}
			seen[key] = struct{}{}
		}
		for _, c := range air.Children(e) {
			scan(c)
		}
	}
	for _, e := range exprs {
		scan(e)
	}

	var reps []Replacement
	tempFor := make(map[string]string)

	var rebuild func(e air.Expr) air.Expr
	rebuild = func(orig air.Expr) air.Expr {
		key := ""
		eliminated := false
		if extractable(orig) {
			key = orig.String()
			if _, ok := eliminate[key]; ok {
				if name, bound := tempFor[key]; bound {
					return air.Sym(name)
				}
				eliminated = true
			}
		}

		e := orig
		if kids := air.Children(orig); len(kids) > 0 {
			rebuilt := make([]air.Expr, len(kids))
			for i, k := range kids {
				rebuilt[i] = rebuild(k)
			}
			e = air.Rebuild(orig, rebuilt)
		}

		if eliminated {
			name := fmt.Sprintf("x%d", len(reps))
			reps = append(reps, Replacement{Name: name, Expr: e})
			tempFor[key] = name
			return air.Sym(name)
		}
		return e
	}

	reduced := make([]air.Expr, len(exprs))
	for i, e := range exprs {
		reduced[i] = rebuild(e)
	}
	return reps, reduced
}
