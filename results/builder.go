package results

import (
	"math"
	"time"

	"github.com/Crispae/wasm-pk/sbml"
	"github.com/Crispae/wasm-pk/simulate"
)

// Builder helps construct Results from simulation output
type Builder struct {
	results Results
}

// NewBuilder creates a new results builder
func NewBuilder() *Builder {
	return &Builder{
		results: Results{
			Version: SchemaVersion,
			Metadata: Metadata{
				Timestamp: time.Now().UTC(),
			},
		},
	}
}

// WithModel sets model information and records the effective parameter
// values, reaction-local parameters included under their merged names.
func (b *Builder) WithModel(m *sbml.Model) *Builder {
	merged, _ := m.MergedParameters()
	params := make(map[string]float64, len(merged))
	for _, p := range merged {
		params[p.ID] = p.Value
	}

	b.results.Model = Model{
		Name:      m.Name,
		Species:   m.SpeciesIDs(),
		Reactions: len(m.Reactions),
		Rules:     len(m.AssignmentRules),
	}
	b.results.Simulation.Parameters = params
	return b
}

// WithProblem records the integrated problem: time span, initial state
// after initial assignments, and solver configuration.
func (b *Builder) WithProblem(prob *simulate.Problem, opts *simulate.Options) *Builder {
	initial := make(map[string]float64, len(prob.Labels))
	for i, label := range prob.Labels {
		initial[label] = prob.Y0[i]
	}
	b.results.Simulation.Timespan = prob.Tspan
	b.results.Simulation.InitialState = initial

	if opts != nil {
		b.results.Simulation.Options = &SolverOptions{
			Dt:       opts.Dt,
			Abstol:   opts.Abstol,
			Reltol:   opts.Reltol,
			Adaptive: opts.Adaptive,
		}
	}

	return b
}

// WithSolution processes solver output
func (b *Builder) WithSolution(sol *simulate.Solution, solverName string, computeTime float64, downsampleTarget int) *Builder {
	b.results.Metadata.Solver = solverName
	b.results.Metadata.Status = "success"
	b.results.Metadata.ComputeTime = computeTime

	// Summary
	b.results.Results.Summary = Summary{
		Points:     len(sol.T),
		FinalTime:  sol.T[len(sol.T)-1],
		FinalState: sol.FinalState(),
	}

	// Timeseries
	timeFull := sol.T
	timeDownsampled := downsample(timeFull, downsampleTarget)

	b.results.Results.Timeseries = Timeseries{
		Time: TimeData{
			Full:        timeFull,
			Downsampled: timeDownsampled,
		},
		Variables: make(map[string]SeriesData, len(sol.Labels)),
	}

	for _, label := range sol.Labels {
		varData := sol.Series(label)
		varDownsampled := downsampleAligned(timeFull, varData, timeDownsampled)

		b.results.Results.Timeseries.Variables[label] = SeriesData{
			Full:        varData,
			Downsampled: varDownsampled,
		}
	}

	return b
}

// WithError sets error status
func (b *Builder) WithError(err error) *Builder {
	b.results.Metadata.Status = "error"
	b.results.Metadata.Error = err.Error()
	return b
}

// Build returns the constructed Results
func (b *Builder) Build() *Results {
	return &b.results
}

// downsample reduces data to approximately targetPoints
func downsample(data []float64, targetPoints int) []float64 {
	if targetPoints < 2 || len(data) <= targetPoints {
		return data
	}

	result := make([]float64, targetPoints)
	result[0] = data[0]
	result[targetPoints-1] = data[len(data)-1]

	step := float64(len(data)-1) / float64(targetPoints-1)
	for i := 1; i < targetPoints-1; i++ {
		idx := int(math.Round(float64(i) * step))
		result[i] = data[idx]
	}

	return result
}

// downsampleAligned downsamples varData to match the downsampled time points
func downsampleAligned(timeFull, varData, timeDownsampled []float64) []float64 {
	result := make([]float64, len(timeDownsampled))

	for i, targetTime := range timeDownsampled {
		idx := findClosestIndex(timeFull, targetTime)
		result[i] = varData[idx]
	}

	return result
}

// findClosestIndex finds the index of the value closest to target
func findClosestIndex(data []float64, target float64) int {
	if len(data) == 0 {
		return 0
	}

	minDist := math.Abs(data[0] - target)
	minIdx := 0

	for i := 1; i < len(data); i++ {
		dist := math.Abs(data[i] - target)
		if dist < minDist {
			minDist = dist
			minIdx = i
		}
	}

	return minIdx
}

func copyMap(m map[string]float64) map[string]float64 {
	result := make(map[string]float64, len(m))
	for k, v := range m {
		result[k] = v
	}
	return result
}
