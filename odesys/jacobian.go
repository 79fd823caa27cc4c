package odesys

import (
	"log/slog"

	"github.com/Crispae/wasm-pk/air"
)

// Entry is one structurally non-zero element of a sparse Jacobian.
type Entry struct {
	Row, Col int
	Expr     air.Expr
}

// DenseJacobian differentiates every equation against every state symbol:
// J[i][j] = d(odes[i])/d(states[j]).
func DenseJacobian(odes []air.Expr, states []string) [][]air.Expr {
	jac := make([][]air.Expr, len(odes))
	for i, eq := range odes {
		row := make([]air.Expr, len(states))
		for j, name := range states {
			row[j] = air.Diff(eq, name)
		}
		jac[i] = row
	}
	return jac
}

// SparseJacobian keeps only the structurally non-zero partial derivatives,
// in row-major order.
func SparseJacobian(odes []air.Expr, states []string) []Entry {
	var entries []Entry
	for i, eq := range odes {
		for j, name := range states {
			d := air.Diff(eq, name)
			if air.Zero(d) {
				continue
			}
			entries = append(entries, Entry{Row: i, Col: j, Expr: d})
		}
	}
	n := len(odes)
	slog.Info("Jacobian computed",
		"nonzero", len(entries),
		"total", n*n,
	)
	return entries
}

// Sparsity is the filled fraction of an n-by-n Jacobian.
func Sparsity(entries []Entry, n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(len(entries)) / float64(n*n)
}
