package fit

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/Crispae/wasm-pk/sbml"
	"github.com/Crispae/wasm-pk/simulate"
)

// Method selects the optimization algorithm.
type Method string

const (
	NelderMead        Method = "nelder-mead"
	CoordinateDescent Method = "coordinate-descent"
)

// FitOptions configures the optimization.
type FitOptions struct {
	MaxIters  int
	Tolerance float64 // convergence threshold on the loss
	Method    Method
	StepSize  float64           // initial step for coordinate descent
	Solver    *simulate.Options // integrator settings for each evaluation
}

// DefaultFitOptions returns the standard configuration.
func DefaultFitOptions() *FitOptions {
	return &FitOptions{
		MaxIters:  1000,
		Tolerance: 1e-4,
		Method:    NelderMead,
		StepSize:  0.01,
		Solver:    simulate.DefaultOptions(),
	}
}

// FitResult reports the outcome of an optimization run.
type FitResult struct {
	Params      map[string]float64
	InitialLoss float64
	FinalLoss   float64
	Iterations  int
	Converged   bool
}

// Apply returns a copy of the model with the fitted values set.
func (r *FitResult) Apply(m *sbml.Model) *sbml.Model {
	return m.WithParameters(r.Params)
}

// Fit estimates the problem's parameters against observed data.
// A nil loss defaults to MSELoss, a nil opts to DefaultFitOptions.
func Fit(prob *Problem, data *Dataset, loss LossFunc, opts *FitOptions) (*FitResult, error) {
	if opts == nil {
		opts = DefaultFitOptions()
	}
	if loss == nil {
		loss = MSELoss
	}

	x0 := prob.initialValues()
	objective := func(x []float64) float64 {
		return prob.evaluate(x, data, loss, opts.Solver)
	}
	initialLoss := objective(x0)
	slog.Debug("fit start", "params", prob.names, "loss", initialLoss)

	var x []float64
	var fx float64
	var iters int
	var converged bool
	switch opts.Method {
	case NelderMead:
		x, fx, iters, converged = nelderMead(objective, x0, opts)
	case CoordinateDescent:
		x, fx, iters, converged = coordinateDescent(objective, x0, opts)
	default:
		return nil, fmt.Errorf("unknown optimization method: %s", opts.Method)
	}

	params := make(map[string]float64, len(prob.names))
	for i, name := range prob.names {
		params[name] = x[i]
	}
	slog.Debug("fit done", "loss", fx, "iterations", iters, "converged", converged)

	return &FitResult{
		Params:      params,
		InitialLoss: initialLoss,
		FinalLoss:   fx,
		Iterations:  iters,
		Converged:   converged,
	}, nil
}

// coordinateDescent walks one parameter at a time, halving the step each
// time no move improves the loss.
func coordinateDescent(f func([]float64) float64, x0 []float64, opts *FitOptions) ([]float64, float64, int, bool) {
	x := append([]float64(nil), x0...)
	best := f(x)
	step := opts.StepSize

	for iter := 0; iter < opts.MaxIters; iter++ {
		improved := false
		for i := range x {
			orig := x[i]

			x[i] = orig + step
			up := f(x)
			x[i] = orig - step
			down := f(x)

			switch {
			case up < best:
				x[i] = orig + step
				best = up
				improved = true
			case down < best:
				x[i] = orig - step
				best = down
				improved = true
			default:
				x[i] = orig
			}
		}

		if iter%100 == 0 {
			slog.Debug("coordinate descent", "iter", iter, "loss", best)
		}
		if best < opts.Tolerance {
			return x, best, iter, true
		}
		if !improved {
			step /= 2
			if step < 1e-10 {
				return x, best, iter, true
			}
		}
	}
	return x, best, opts.MaxIters, false
}

type vertex struct {
	x  []float64
	fx float64
}

// nelderMead runs the downhill simplex method.
func nelderMead(f func([]float64) float64, x0 []float64, opts *FitOptions) ([]float64, float64, int, bool) {
	n := len(x0)
	const (
		alpha = 1.0 // reflection
		gamma = 2.0 // expansion
		rho   = 0.5 // contraction
		sigma = 0.5 // shrink
	)

	simplex := make([]vertex, n+1)
	simplex[0] = vertex{x: append([]float64(nil), x0...)}
	simplex[0].fx = f(simplex[0].x)
	for i := 0; i < n; i++ {
		x := append([]float64(nil), x0...)
		x[i] += 0.05 * (1 + math.Abs(x0[i]))
		simplex[i+1] = vertex{x: x, fx: f(x)}
	}

	for iter := 0; iter < opts.MaxIters; iter++ {
		sort.Slice(simplex, func(i, j int) bool { return simplex[i].fx < simplex[j].fx })

		if iter%100 == 0 {
			slog.Debug("nelder-mead", "iter", iter, "best", simplex[0].fx, "worst", simplex[n].fx)
		}
		if simplex[n].fx-simplex[0].fx < opts.Tolerance {
			return simplex[0].x, simplex[0].fx, iter, true
		}

		// Centroid of all vertices but the worst
		centroid := make([]float64, n)
		for _, v := range simplex[:n] {
			for i := range centroid {
				centroid[i] += v.x[i]
			}
		}
		for i := range centroid {
			centroid[i] /= float64(n)
		}

		worst := simplex[n]
		reflected := combine(centroid, worst.x, -alpha)
		fr := f(reflected)

		switch {
		case fr < simplex[0].fx:
			expanded := combine(centroid, reflected, gamma)
			if fe := f(expanded); fe < fr {
				simplex[n] = vertex{x: expanded, fx: fe}
			} else {
				simplex[n] = vertex{x: reflected, fx: fr}
			}
		case fr < simplex[n-1].fx:
			simplex[n] = vertex{x: reflected, fx: fr}
		default:
			var contracted []float64
			if fr < worst.fx {
				contracted = combine(centroid, reflected, rho)
			} else {
				contracted = combine(centroid, worst.x, rho)
			}
			if fc := f(contracted); fc < math.Min(fr, worst.fx) {
				simplex[n] = vertex{x: contracted, fx: fc}
			} else {
				// Shrink toward the best vertex
				for i := 1; i <= n; i++ {
					for j := range simplex[i].x {
						simplex[i].x[j] = simplex[0].x[j] + sigma*(simplex[i].x[j]-simplex[0].x[j])
					}
					simplex[i].fx = f(simplex[i].x)
				}
			}
		}
	}

	sort.Slice(simplex, func(i, j int) bool { return simplex[i].fx < simplex[j].fx })
	return simplex[0].x, simplex[0].fx, opts.MaxIters, false
}

// combine returns base + t*(target - base).
func combine(base, target []float64, t float64) []float64 {
	out := make([]float64, len(base))
	for i := range out {
		out[i] = base[i] + t*(target[i]-base[i])
	}
	return out
}
