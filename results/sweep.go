package results

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Crispae/wasm-pk/sbml"
	"github.com/Crispae/wasm-pk/simulate"
)

// SweepResults contains results from a parameter sweep
type SweepResults struct {
	Version     string            `json:"version"`
	BaseModel   string            `json:"baseModel"`
	Objective   string            `json:"objective"`
	Parameters  []ParameterSweep  `json:"parameters"`
	Variants    []VariantResult   `json:"variants"`
	Best        *VariantResult    `json:"best"`
	Worst       *VariantResult    `json:"worst"`
	Summary     SweepSummary      `json:"summary"`
	Recommended map[string]string `json:"recommended,omitempty"`
}

// ParameterSweep describes one swept model parameter
type ParameterSweep struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
	Min    float64   `json:"min"`
	Max    float64   `json:"max"`
}

// SweepRange builds a sweep over evenly spaced values.
func SweepRange(name string, min, max float64, steps int) ParameterSweep {
	if steps < 2 {
		return ParameterSweep{Name: name, Values: []float64{min}, Min: min, Max: min}
	}
	values := make([]float64, steps)
	for i := 0; i < steps; i++ {
		values[i] = min + (max-min)*float64(i)/float64(steps-1)
	}
	return ParameterSweep{Name: name, Values: values, Min: min, Max: max}
}

// VariantResult contains results for one parameter combination
type VariantResult struct {
	ID         int                `json:"id"`
	Parameters map[string]float64 `json:"parameters"`
	Metrics    Metrics            `json:"metrics"`
	Score      float64            `json:"score"`
	Rank       int                `json:"rank"`
	Error      string             `json:"error,omitempty"`
}

// Metrics contains key metrics extracted from simulation
type Metrics struct {
	// Highest level reached over all variables
	Cmax     float64 `json:"cmax"`
	CmaxVar  string  `json:"cmaxVar"`
	Tmax     float64 `json:"tmax"`
	TotalAUC float64 `json:"totalAuc"`

	FinalState map[string]float64 `json:"finalState"`

	SteadyReached bool    `json:"steadyReached"`
	SteadyTime    float64 `json:"steadyTime,omitempty"`

	MassConserved bool `json:"massConserved"`

	ComputeTime float64 `json:"computeTime"`
}

// SweepSummary provides overview of sweep
type SweepSummary struct {
	TotalVariants int     `json:"totalVariants"`
	SuccessCount  int     `json:"successCount"`
	FailureCount  int     `json:"failureCount"`
	BestScore     float64 `json:"bestScore"`
	WorstScore    float64 `json:"worstScore"`
	ScoreRange    float64 `json:"scoreRange"`
}

// ObjectiveFunc evaluates how good a result is (lower is better)
type ObjectiveFunc func(*Results) (float64, error)

// Objectives maps objective names to evaluation functions
var Objectives = map[string]ObjectiveFunc{
	"minimize_cmax": func(r *Results) (float64, error) {
		cmax, _, err := highestExposure(r)
		return cmax, err
	},

	"maximize_cmax": func(r *Results) (float64, error) {
		cmax, _, err := highestExposure(r)
		return -cmax, err
	},

	"minimize_final": func(r *Results) (float64, error) {
		// Minimize sum of final state (useful for minimizing residual)
		sum := 0.0
		for _, v := range r.Results.Summary.FinalState {
			sum += v
		}
		return sum, nil
	},

	"minimize_time_to_steady": func(r *Results) (float64, error) {
		if r.Analysis == nil || r.Analysis.SteadyState == nil {
			return math.MaxFloat64, nil
		}
		if !r.Analysis.SteadyState.Reached {
			return math.MaxFloat64, nil
		}
		return r.Analysis.SteadyState.Time, nil
	},
}

// MinimizePeakOf targets the maximum level of one species, for keeping
// a concentration under a toxicity ceiling.
func MinimizePeakOf(species string) ObjectiveFunc {
	return func(r *Results) (float64, error) {
		exp, err := exposureOf(r, species)
		if err != nil {
			return 0, err
		}
		return exp.Cmax, nil
	}
}

// MaximizeAUCOf targets the total exposure of one species, for dosing
// toward efficacy.
func MaximizeAUCOf(species string) ObjectiveFunc {
	return func(r *Results) (float64, error) {
		exp, err := exposureOf(r, species)
		if err != nil {
			return 0, err
		}
		return -exp.AUC, nil
	}
}

func exposureOf(r *Results, species string) (Exposure, error) {
	if r.Analysis == nil {
		return Exposure{}, fmt.Errorf("no analysis available")
	}
	exp, ok := r.Analysis.Exposure[species]
	if !ok {
		return Exposure{}, fmt.Errorf("no exposure data for %s", species)
	}
	return exp, nil
}

func highestExposure(r *Results) (float64, string, error) {
	if r.Analysis == nil || len(r.Analysis.Exposure) == 0 {
		return 0, "", fmt.Errorf("no exposure data available")
	}
	best := math.Inf(-1)
	bestVar := ""
	for name, exp := range r.Analysis.Exposure {
		if exp.Cmax > best || (exp.Cmax == best && name < bestVar) {
			best = exp.Cmax
			bestVar = name
		}
	}
	return best, bestVar, nil
}

// Run simulates every combination of the swept values against the base
// model, scores each trajectory with the objective and ranks the
// variants. A nil objective selects Objectives[objectiveName]. Failed
// variants keep their error and score +Inf so they rank last.
func Run(m *sbml.Model, sweeps []ParameterSweep, objectiveName string, objective ObjectiveFunc, tspan [2]float64, opts *simulate.Options) (*SweepResults, error) {
	if objective == nil {
		var ok bool
		objective, ok = Objectives[objectiveName]
		if !ok {
			return nil, fmt.Errorf("unknown objective: %s", objectiveName)
		}
	}
	if len(sweeps) == 0 {
		return nil, fmt.Errorf("no parameters to sweep")
	}
	for i := range sweeps {
		if len(sweeps[i].Values) == 0 {
			return nil, fmt.Errorf("sweep %s has no values", sweeps[i].Name)
		}
		sweeps[i].Min = sweeps[i].Values[0]
		sweeps[i].Max = sweeps[i].Values[0]
		for _, v := range sweeps[i].Values {
			sweeps[i].Min = math.Min(sweeps[i].Min, v)
			sweeps[i].Max = math.Max(sweeps[i].Max, v)
		}
	}

	sweep := &SweepResults{
		Version:    SchemaVersion,
		BaseModel:  m.Name,
		Objective:  objectiveName,
		Parameters: sweeps,
	}

	combos := combinations(sweeps)
	variants := make([]VariantResult, 0, len(combos))
	successes := 0

	for id, combo := range combos {
		v := VariantResult{ID: id, Parameters: combo, Score: math.Inf(1)}

		r, err := runVariant(m.WithParameters(combo), tspan, opts)
		if err == nil {
			var score float64
			score, err = objective(r)
			if err == nil {
				v.Score = score
				v.Metrics = ExtractMetrics(r)
				successes++
			}
		}
		if err != nil {
			v.Error = err.Error()
		}
		variants = append(variants, v)
	}

	RankVariants(variants)
	sweep.Variants = variants

	if successes > 0 {
		sweep.Best = &variants[0]
		for i := len(variants) - 1; i >= 0; i-- {
			if !math.IsInf(variants[i].Score, 1) {
				sweep.Worst = &variants[i]
				break
			}
		}
	}

	sweep.Summary = SweepSummary{
		TotalVariants: len(variants),
		SuccessCount:  successes,
		FailureCount:  len(variants) - successes,
	}
	if sweep.Best != nil && sweep.Worst != nil {
		sweep.Summary.BestScore = sweep.Best.Score
		sweep.Summary.WorstScore = sweep.Worst.Score
		sweep.Summary.ScoreRange = sweep.Worst.Score - sweep.Best.Score
	}
	sweep.Recommended = GenerateRecommendations(sweep)

	return sweep, nil
}

// runVariant integrates one parameter combination and analyzes it.
func runVariant(m *sbml.Model, tspan [2]float64, opts *simulate.Options) (*Results, error) {
	start := time.Now()
	prob, err := simulate.NewProblem(m, tspan)
	if err != nil {
		return nil, err
	}
	sol, err := simulate.Solve(prob, nil, opts)
	if err != nil {
		return nil, err
	}

	r := NewBuilder().
		WithModel(m).
		WithProblem(prob, opts).
		WithSolution(sol, "Tsit5", time.Since(start).Seconds(), 200).
		Build()
	r.Analysis = NewAnalyzer(r).ComputeAll()
	return r, nil
}

// combinations expands the sweep grid in sweep-declaration order, first
// sweep varying fastest.
func combinations(sweeps []ParameterSweep) []map[string]float64 {
	total := 1
	for _, s := range sweeps {
		total *= len(s.Values)
	}

	combos := make([]map[string]float64, total)
	for i := 0; i < total; i++ {
		combo := make(map[string]float64, len(sweeps))
		idx := i
		for _, s := range sweeps {
			combo[s.Name] = s.Values[idx%len(s.Values)]
			idx /= len(s.Values)
		}
		combos[i] = combo
	}

	return combos
}

// ExtractMetrics extracts key metrics from simulation results
func ExtractMetrics(r *Results) Metrics {
	m := Metrics{
		FinalState:  r.Results.Summary.FinalState,
		ComputeTime: r.Metadata.ComputeTime,
	}

	if r.Analysis != nil {
		if cmax, cvar, err := highestExposure(r); err == nil {
			m.Cmax = cmax
			m.CmaxVar = cvar
			m.Tmax = r.Analysis.Exposure[cvar].Tmax
		}
		for _, exp := range r.Analysis.Exposure {
			m.TotalAUC += exp.AUC
		}

		if r.Analysis.SteadyState != nil {
			m.SteadyReached = r.Analysis.SteadyState.Reached
			if m.SteadyReached {
				m.SteadyTime = r.Analysis.SteadyState.Time
			}
		}

		if r.Analysis.MassBalance != nil {
			m.MassConserved = r.Analysis.MassBalance.Conserved
		}
	}

	return m
}

// RankVariants sorts variants by score and assigns ranks
func RankVariants(variants []VariantResult) {
	// Lower is better; ties keep the lower variant ID first.
	sort.Slice(variants, func(i, j int) bool {
		if variants[i].Score != variants[j].Score {
			return variants[i].Score < variants[j].Score
		}
		return variants[i].ID < variants[j].ID
	})

	for i := range variants {
		variants[i].Rank = i + 1
	}
}

// GenerateRecommendations creates human-readable recommendations
func GenerateRecommendations(sweep *SweepResults) map[string]string {
	rec := make(map[string]string)

	if sweep.Best == nil || sweep.Worst == nil {
		return rec
	}

	for param, bestVal := range sweep.Best.Parameters {
		worstVal := sweep.Worst.Parameters[param]
		if bestVal != worstVal && worstVal != 0 {
			diff := bestVal - worstVal
			pct := (diff / worstVal) * 100

			var direction string
			if bestVal > worstVal {
				direction = "increase"
			} else {
				direction = "decrease"
			}

			rec[param] = fmt.Sprintf("%s by %.1f%% (%.6f to %.6f)",
				direction, math.Abs(pct), worstVal, bestVal)
		}
	}

	bestPeak := sweep.Best.Metrics.Cmax
	worstPeak := sweep.Worst.Metrics.Cmax
	if worstPeak != 0 && bestPeak != worstPeak {
		improvement := ((worstPeak - bestPeak) / worstPeak) * 100
		rec["improvement"] = fmt.Sprintf("%.1f%% change in peak level (%.2f to %.2f)",
			math.Abs(improvement), worstPeak, bestPeak)
	}

	return rec
}
