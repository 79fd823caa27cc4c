// Package sensitivity quantifies how a model's simulated behavior responds
// to parameter changes. It covers knockout analysis, one-parameter sweeps,
// finite-difference gradients, and grid search over parameter combinations.
package sensitivity

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/Crispae/wasm-pk/sbml"
	"github.com/Crispae/wasm-pk/simulate"
)

// Scorer evaluates a simulation result and returns a score.
type Scorer func(sol *simulate.Solution) float64

// FinalStateScorer builds a Scorer from a function over the final state.
func FinalStateScorer(f func(state map[string]float64) float64) Scorer {
	return func(sol *simulate.Solution) float64 {
		return f(sol.FinalState())
	}
}

// SpeciesScorer returns the final value of a single species.
func SpeciesScorer(species string) Scorer {
	return func(sol *simulate.Solution) float64 {
		return sol.FinalState()[species]
	}
}

// DiffScorer returns the difference between the final values of two species.
func DiffScorer(a, b string) Scorer {
	return func(sol *simulate.Solution) float64 {
		final := sol.FinalState()
		return final[a] - final[b]
	}
}

// PeakScorer returns the maximum value a species reaches over the trajectory.
func PeakScorer(species string) Scorer {
	return func(sol *simulate.Solution) float64 {
		peak := math.Inf(-1)
		for _, v := range sol.Series(species) {
			if v > peak {
				peak = v
			}
		}
		if math.IsInf(peak, -1) {
			return 0
		}
		return peak
	}
}

// AUCScorer returns the trapezoidal area under a species curve.
func AUCScorer(species string) Scorer {
	return func(sol *simulate.Solution) float64 {
		y := sol.Series(species)
		if len(y) != len(sol.T) || len(y) < 2 {
			return 0
		}
		auc := 0.0
		for i := 1; i < len(y); i++ {
			auc += (y[i] + y[i-1]) / 2 * (sol.T[i] - sol.T[i-1])
		}
		return auc
	}
}

// Result holds a knockout analysis.
type Result struct {
	Baseline float64            // score with original parameters
	Scores   map[string]float64 // score with each parameter zeroed
	Impact   map[string]float64 // change from baseline (score - baseline)
	Ranking  []RankedParam      // parameters sorted by absolute impact
}

// RankedParam pairs a parameter with its impact on the score.
type RankedParam struct {
	Name   string
	Impact float64
}

// Analyzer runs scored simulations of one model under parameter overrides.
type Analyzer struct {
	model  *sbml.Model
	tspan  [2]float64
	opts   *simulate.Options
	scorer Scorer
}

// NewAnalyzer creates an analyzer with a default time span of [0, 10].
func NewAnalyzer(m *sbml.Model, scorer Scorer) *Analyzer {
	return &Analyzer{
		model:  m,
		tspan:  [2]float64{0, 10},
		opts:   simulate.DefaultOptions(),
		scorer: scorer,
	}
}

// WithTimeSpan sets the simulation time span.
func (a *Analyzer) WithTimeSpan(t0, tf float64) *Analyzer {
	a.tspan = [2]float64{t0, tf}
	return a
}

// WithOptions sets the integrator options.
func (a *Analyzer) WithOptions(opts *simulate.Options) *Analyzer {
	a.opts = opts
	return a
}

// run simulates the model with the given overrides applied and scores the
// result. Each call builds a fresh problem, so concurrent runs are safe.
// An incomplete integration is scored on its partial trajectory.
func (a *Analyzer) run(overrides map[string]float64) (float64, error) {
	m := a.model
	if len(overrides) > 0 {
		m = m.WithParameters(overrides)
	}
	prob, err := simulate.NewProblem(m, a.tspan)
	if err != nil {
		return 0, err
	}
	sol, err := simulate.Solve(prob, nil, a.opts)
	if err != nil && !errors.Is(err, simulate.ErrIncomplete) {
		return 0, err
	}
	if sol == nil || len(sol.Y) == 0 {
		return 0, errors.New("empty trajectory")
	}
	return a.scorer(sol), nil
}

// parameterNames returns the model's global parameter IDs in sorted order.
func (a *Analyzer) parameterNames() []string {
	names := make([]string, 0, len(a.model.Parameters))
	for _, p := range a.model.Parameters {
		names = append(names, p.ID)
	}
	sort.Strings(names)
	return names
}

// parameterValue looks up a global parameter's current value.
func (a *Analyzer) parameterValue(name string) (float64, bool) {
	for _, p := range a.model.Parameters {
		if p.ID == name {
			return p.Value, true
		}
	}
	return 0, false
}

// AnalyzeKnockouts measures the impact of zeroing each global parameter.
func (a *Analyzer) AnalyzeKnockouts() (*Result, error) {
	result := &Result{
		Scores: make(map[string]float64),
		Impact: make(map[string]float64),
	}

	baseline, err := a.run(nil)
	if err != nil {
		return nil, fmt.Errorf("baseline: %w", err)
	}
	result.Baseline = baseline

	for _, name := range a.parameterNames() {
		score, err := a.run(map[string]float64{name: 0})
		if err != nil {
			return nil, fmt.Errorf("knockout %s: %w", name, err)
		}
		result.Scores[name] = score
		result.Impact[name] = score - baseline
	}

	result.Ranking = rankByImpact(result.Impact)
	return result, nil
}

// AnalyzeKnockoutsParallel runs the knockouts concurrently.
func (a *Analyzer) AnalyzeKnockoutsParallel() (*Result, error) {
	result := &Result{
		Scores: make(map[string]float64),
		Impact: make(map[string]float64),
	}

	baseline, err := a.run(nil)
	if err != nil {
		return nil, fmt.Errorf("baseline: %w", err)
	}
	result.Baseline = baseline

	var mu sync.Mutex
	var wg sync.WaitGroup
	var firstErr error

	for _, name := range a.parameterNames() {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			score, err := a.run(map[string]float64{name: 0})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("knockout %s: %w", name, err)
				}
				return
			}
			result.Scores[name] = score
			result.Impact[name] = score - baseline
		}(name)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	result.Ranking = rankByImpact(result.Impact)
	return result, nil
}

// rankByImpact sorts parameters by absolute impact, descending, with ties
// broken by name for stable output.
func rankByImpact(impact map[string]float64) []RankedParam {
	ranking := make([]RankedParam, 0, len(impact))
	for name, imp := range impact {
		ranking = append(ranking, RankedParam{Name: name, Impact: imp})
	}
	sort.Slice(ranking, func(i, j int) bool {
		ai, aj := math.Abs(ranking[i].Impact), math.Abs(ranking[j].Impact)
		if ai != aj {
			return ai > aj
		}
		return ranking[i].Name < ranking[j].Name
	})
	return ranking
}

// SweepResult holds scores across one parameter's tested values.
type SweepResult struct {
	Parameter string
	Values    []float64
	Scores    []float64
	Best      SweepPoint
	Worst     SweepPoint
}

// SweepPoint pairs a tested value with its score.
type SweepPoint struct {
	Value float64
	Score float64
}

// SweepParameter scores each candidate value for one parameter.
func (a *Analyzer) SweepParameter(name string, values []float64) (*SweepResult, error) {
	if _, ok := a.parameterValue(name); !ok {
		return nil, fmt.Errorf("unknown parameter: %s", name)
	}
	result := &SweepResult{
		Parameter: name,
		Values:    values,
		Scores:    make([]float64, len(values)),
	}

	best := math.Inf(-1)
	worst := math.Inf(1)
	for i, val := range values {
		score, err := a.run(map[string]float64{name: val})
		if err != nil {
			return nil, fmt.Errorf("%s=%g: %w", name, val, err)
		}
		result.Scores[i] = score
		if score > best {
			best = score
			result.Best = SweepPoint{Value: val, Score: score}
		}
		if score < worst {
			worst = score
			result.Worst = SweepPoint{Value: val, Score: score}
		}
	}
	return result, nil
}

// SweepParameterRange sweeps evenly spaced values across [min, max].
func (a *Analyzer) SweepParameterRange(name string, min, max float64, steps int) (*SweepResult, error) {
	return a.SweepParameter(name, spaced(min, max, steps))
}

// Gradient estimates d(score)/d(parameter) by central difference.
// A zero h defaults to 1% of the parameter's current value. The lower
// evaluation point is clamped at zero and the divisor adjusted to the
// actual spacing.
func (a *Analyzer) Gradient(name string, h float64) (float64, error) {
	base, ok := a.parameterValue(name)
	if !ok {
		return 0, fmt.Errorf("unknown parameter: %s", name)
	}
	if h == 0 {
		h = 0.01 * base
		if h == 0 {
			h = 0.01
		}
	}

	hi := base + h
	lo := base - h
	if lo < 0 {
		lo = 0
	}

	plus, err := a.run(map[string]float64{name: hi})
	if err != nil {
		return 0, fmt.Errorf("%s=%g: %w", name, hi, err)
	}
	minus, err := a.run(map[string]float64{name: lo})
	if err != nil {
		return 0, fmt.Errorf("%s=%g: %w", name, lo, err)
	}
	return (plus - minus) / (hi - lo), nil
}

// AllGradients estimates gradients for every global parameter.
func (a *Analyzer) AllGradients(h float64) (map[string]float64, error) {
	gradients := make(map[string]float64)
	for _, name := range a.parameterNames() {
		g, err := a.Gradient(name, h)
		if err != nil {
			return nil, err
		}
		gradients[name] = g
	}
	return gradients, nil
}

// AllGradientsParallel computes the gradients concurrently.
func (a *Analyzer) AllGradientsParallel(h float64) (map[string]float64, error) {
	gradients := make(map[string]float64)
	var mu sync.Mutex
	var wg sync.WaitGroup
	var firstErr error

	for _, name := range a.parameterNames() {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			g, err := a.Gradient(name, h)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			gradients[name] = g
		}(name)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return gradients, nil
}

// spaced returns steps evenly spaced values covering [min, max].
func spaced(min, max float64, steps int) []float64 {
	if steps < 2 {
		return []float64{min}
	}
	values := make([]float64, steps)
	for i := range values {
		values[i] = min + (max-min)*float64(i)/float64(steps-1)
	}
	return values
}

// GridSearch scores every combination of candidate values for a set of
// parameters.
type GridSearch struct {
	analyzer   *Analyzer
	parameters map[string][]float64
}

// NewGridSearch creates a grid search over the analyzer's model.
func NewGridSearch(analyzer *Analyzer) *GridSearch {
	return &GridSearch{
		analyzer:   analyzer,
		parameters: make(map[string][]float64),
	}
}

// AddParameter registers candidate values for one parameter.
func (g *GridSearch) AddParameter(name string, values []float64) *GridSearch {
	g.parameters[name] = values
	return g
}

// AddParameterRange registers evenly spaced candidates across [min, max].
func (g *GridSearch) AddParameterRange(name string, min, max float64, steps int) *GridSearch {
	g.parameters[name] = spaced(min, max, steps)
	return g
}

// GridPoint is one scored combination.
type GridPoint struct {
	Parameters map[string]float64
	Score      float64
	Index      int
}

// GridResult holds every scored combination and the best one found.
type GridResult struct {
	Combinations []map[string]float64
	Scores       []float64
	Best         GridPoint
}

// Run scores every combination.
func (g *GridSearch) Run() (*GridResult, error) {
	combinations := g.combinations()
	result := &GridResult{
		Combinations: combinations,
		Scores:       make([]float64, len(combinations)),
	}
	result.Best.Index = -1

	best := math.Inf(-1)
	for i, combo := range combinations {
		score, err := g.analyzer.run(combo)
		if err != nil {
			return nil, err
		}
		result.Scores[i] = score
		if score > best {
			best = score
			result.Best = GridPoint{Parameters: combo, Score: score, Index: i}
		}
	}
	return result, nil
}

// combinations expands the candidate values into the full cross product.
// Parameters are ordered by name and the first one varies fastest.
func (g *GridSearch) combinations() []map[string]float64 {
	names := make([]string, 0, len(g.parameters))
	for name := range g.parameters {
		names = append(names, name)
	}
	sort.Strings(names)

	total := 1
	for _, name := range names {
		total *= len(g.parameters[name])
	}

	combos := make([]map[string]float64, total)
	for i := 0; i < total; i++ {
		combo := make(map[string]float64, len(names))
		idx := i
		for _, name := range names {
			values := g.parameters[name]
			combo[name] = values[idx%len(values)]
			idx /= len(values)
		}
		combos[i] = combo
	}
	return combos
}
