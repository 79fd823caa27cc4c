package results

import (
	"math"
	"sort"
)

// Analyzer computes insights from simulation results
type Analyzer struct {
	results *Results
}

// NewAnalyzer creates an analyzer for results
func NewAnalyzer(r *Results) *Analyzer {
	return &Analyzer{results: r}
}

// ComputeAll runs all analysis functions
func (a *Analyzer) ComputeAll() *Analysis {
	analysis := &Analysis{
		Exposure:   make(map[string]Exposure),
		Statistics: make(map[string]Stat),
	}

	vars := a.results.Results.Timeseries.Variables
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, varName := range names {
		varData := vars[varName]
		time := a.results.Results.Timeseries.Time.Downsampled
		data := varData.Downsampled

		peaks := a.findPeaks(time, data)
		for _, p := range peaks {
			p.Variable = varName
			analysis.Peaks = append(analysis.Peaks, p)
		}

		troughs := a.findTroughs(time, data)
		for _, tr := range troughs {
			tr.Variable = varName
			analysis.Troughs = append(analysis.Troughs, tr)
		}

		// Exposure uses the full-resolution series when available so
		// the trapezoid area tracks the solver's own grid.
		fullTime := a.results.Results.Timeseries.Time.Full
		fullData := varData.Full
		if len(fullTime) == 0 || len(fullData) != len(fullTime) {
			fullTime = time
			fullData = data
		}
		analysis.Exposure[varName] = computeExposure(fullTime, fullData)

		analysis.Statistics[varName] = computeStats(data)
	}

	analysis.Crossings = a.findCrossings(names)
	analysis.SteadyState = a.detectSteadyState(0.01, 10.0)
	analysis.MassBalance = a.checkMassBalance()

	return analysis
}

// findPeaks detects local maxima
func (a *Analyzer) findPeaks(time, data []float64) []Peak {
	if len(data) < 3 {
		return nil
	}

	var peaks []Peak

	for i := 1; i < len(data)-1; i++ {
		if data[i] > data[i-1] && data[i] > data[i+1] {
			// Prominence is the height above the surrounding minima.
			leftMin := data[i-1]
			rightMin := data[i+1]
			for j := i - 2; j >= 0; j-- {
				if data[j] < leftMin {
					leftMin = data[j]
				}
			}
			for j := i + 2; j < len(data); j++ {
				if data[j] < rightMin {
					rightMin = data[j]
				}
			}
			prominence := data[i] - math.Max(leftMin, rightMin)

			peaks = append(peaks, Peak{
				Time:       time[i],
				Value:      data[i],
				Prominence: prominence,
			})
		}
	}

	return peaks
}

// findTroughs detects local minima
func (a *Analyzer) findTroughs(time, data []float64) []Peak {
	if len(data) < 3 {
		return nil
	}

	var troughs []Peak

	for i := 1; i < len(data)-1; i++ {
		if data[i] < data[i-1] && data[i] < data[i+1] {
			troughs = append(troughs, Peak{
				Time:  time[i],
				Value: data[i],
			})
		}
	}

	return troughs
}

// computeExposure integrates the trapezoid area under the series and
// locates the maximum. Endpoints count, so a monotone decay reports its
// initial value as Cmax at Tmax 0.
func computeExposure(time, data []float64) Exposure {
	if len(data) == 0 {
		return Exposure{}
	}

	exp := Exposure{Cmax: data[0], Tmax: time[0]}
	for i := 1; i < len(data); i++ {
		exp.AUC += 0.5 * (time[i] - time[i-1]) * (data[i] + data[i-1])
		if data[i] > exp.Cmax {
			exp.Cmax = data[i]
			exp.Tmax = time[i]
		}
	}
	return exp
}

// findCrossings detects where variables intersect
func (a *Analyzer) findCrossings(varNames []string) []Crossing {
	var crossings []Crossing

	time := a.results.Results.Timeseries.Time.Downsampled
	vars := a.results.Results.Timeseries.Variables

	for i := 0; i < len(varNames); i++ {
		for j := i + 1; j < len(varNames); j++ {
			var1 := varNames[i]
			var2 := varNames[j]

			data1 := vars[var1].Downsampled
			data2 := vars[var2].Downsampled

			for k := 0; k < len(time)-1; k++ {
				diff1 := data1[k] - data2[k]
				diff2 := data1[k+1] - data2[k+1]

				// Sign change indicates crossing
				if diff1*diff2 < 0 {
					tCross := time[k] + (time[k+1]-time[k])*(-diff1)/(diff2-diff1)
					vCross := data1[k] + (data1[k+1]-data1[k])*(tCross-time[k])/(time[k+1]-time[k])

					crossings = append(crossings, Crossing{
						Var1:  var1,
						Var2:  var2,
						Time:  tCross,
						Value: vCross,
					})
				}
			}
		}
	}

	return crossings
}

// detectSteadyState checks if system reached equilibrium
func (a *Analyzer) detectSteadyState(relTol, windowDuration float64) *SteadyState {
	time := a.results.Results.Timeseries.Time.Downsampled
	if len(time) < 2 {
		return &SteadyState{
			Reached:   false,
			Tolerance: relTol,
		}
	}

	dt := time[1] - time[0]
	windowSize := int(windowDuration / dt)
	if windowSize < 2 {
		windowSize = 2
	}
	if windowSize > len(time)/2 {
		windowSize = len(time) / 2
	}

	allSteady := true
	steadyTime := time[len(time)-1]

	for _, varData := range a.results.Results.Timeseries.Variables {
		data := varData.Downsampled

		varSteady := false
		for i := windowSize; i < len(data); i++ {
			maxChange := 0.0

			for j := i - windowSize; j < i; j++ {
				if data[j] != 0 {
					change := math.Abs((data[j+1] - data[j]) / data[j])
					maxChange = math.Max(maxChange, change)
				}
			}

			if maxChange < relTol {
				varSteady = true
				if time[i] < steadyTime {
					steadyTime = time[i]
				}
				break
			}
		}

		// A near-zero variable can fail the relative test forever, so
		// fall back to an absolute window check.
		if !varSteady && len(data) > windowSize {
			maxAbsChange := 0.0
			for j := len(data) - windowSize; j < len(data)-1; j++ {
				change := math.Abs(data[j+1] - data[j])
				maxAbsChange = math.Max(maxAbsChange, change)
			}
			if maxAbsChange < 1e-6 {
				varSteady = true
			}
		}

		if !varSteady {
			allSteady = false
		}
	}

	ss := &SteadyState{
		Reached:   allSteady,
		Tolerance: relTol,
	}

	if allSteady {
		ss.Time = steadyTime
		ss.Values = copyMap(a.results.Results.Summary.FinalState)
	}

	return ss
}

// checkMassBalance compares total amount at the start and end of the
// run.
func (a *Analyzer) checkMassBalance() *MassBalance {
	initial := a.results.Simulation.InitialState
	final := a.results.Results.Summary.FinalState

	initialTotal := 0.0
	for _, v := range initial {
		initialTotal += v
	}

	finalTotal := 0.0
	for _, v := range final {
		finalTotal += v
	}

	return &MassBalance{
		Initial:   initialTotal,
		Final:     finalTotal,
		Conserved: math.Abs(finalTotal-initialTotal) < 1e-6,
	}
}

// computeStats calculates statistical summary
func computeStats(data []float64) Stat {
	if len(data) == 0 {
		return Stat{}
	}

	min := data[0]
	max := data[0]
	sum := 0.0

	for _, v := range data {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		sum += v
	}

	mean := sum / float64(len(data))

	sumSq := 0.0
	for _, v := range data {
		diff := v - mean
		sumSq += diff * diff
	}
	std := math.Sqrt(sumSq / float64(len(data)))

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	var median float64
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	} else {
		median = sorted[mid]
	}

	return Stat{
		Min:    min,
		Max:    max,
		Mean:   mean,
		Median: median,
		Std:    std,
	}
}
