package fit

import (
	"fmt"
	"math"
	"sort"

	"github.com/Crispae/wasm-pk/simulate"
)

// Dataset holds observed timecourses for one or more species.
type Dataset struct {
	Times        []float64
	Observations map[string][]float64
	Species      []string // observed species IDs, sorted
}

// NewDataset validates and wraps observed data. Every observation series
// must have one value per time point.
func NewDataset(times []float64, observations map[string][]float64) (*Dataset, error) {
	if len(times) == 0 {
		return nil, fmt.Errorf("times cannot be empty")
	}
	for species, values := range observations {
		if len(values) != len(times) {
			return nil, fmt.Errorf("observations for %s have %d values, want %d",
				species, len(values), len(times))
		}
	}

	species := make([]string, 0, len(observations))
	for sp := range observations {
		species = append(species, sp)
	}
	sort.Strings(species)

	return &Dataset{
		Times:        times,
		Observations: observations,
		Species:      species,
	}, nil
}

// Sample builds a dataset by reading a solution at the given times,
// typically to produce synthetic training data.
func Sample(sol *simulate.Solution, times []float64, species []string) (*Dataset, error) {
	obs := make(map[string][]float64, len(species))
	for _, sp := range species {
		values := Interpolate(sol, times, sp)
		if values == nil {
			return nil, fmt.Errorf("species %s not in solution", sp)
		}
		obs[sp] = values
	}
	return NewDataset(times, obs)
}

// LossFunc computes the discrepancy between a simulated trajectory and
// observed data.
type LossFunc func(sol *simulate.Solution, data *Dataset) float64

// MSELoss is the mean squared error over all observed species and times.
// Species absent from the solution are ignored.
func MSELoss(sol *simulate.Solution, data *Dataset) float64 {
	total := 0.0
	points := 0
	for _, sp := range data.Species {
		sim := Interpolate(sol, data.Times, sp)
		if sim == nil {
			continue
		}
		obs := data.Observations[sp]
		for i := range data.Times {
			d := sim[i] - obs[i]
			total += d * d
			points++
		}
	}
	if points == 0 {
		return 0
	}
	return total / float64(points)
}

// RMSELoss is the root of MSELoss.
func RMSELoss(sol *simulate.Solution, data *Dataset) float64 {
	return math.Sqrt(MSELoss(sol, data))
}

// RelativeMSELoss normalizes each species' error by its mean observed
// value, for fitting species with very different magnitudes together.
func RelativeMSELoss(sol *simulate.Solution, data *Dataset) float64 {
	total := 0.0
	points := 0
	for _, sp := range data.Species {
		sim := Interpolate(sol, data.Times, sp)
		if sim == nil {
			continue
		}
		obs := data.Observations[sp]

		mean := 0.0
		for _, v := range obs {
			mean += v
		}
		mean /= float64(len(obs))
		if mean == 0 {
			mean = 1
		}

		for i := range data.Times {
			d := (sim[i] - obs[i]) / mean
			total += d * d
			points++
		}
	}
	if points == 0 {
		return 0
	}
	return total / float64(points)
}

// Interpolate reads one species from a solution at arbitrary times using
// linear interpolation, clamped at the trajectory's ends. It returns nil
// when the species is not part of the solution.
func Interpolate(sol *simulate.Solution, times []float64, species string) []float64 {
	values := sol.Series(species)
	if values == nil {
		return nil
	}
	out := make([]float64, len(times))
	for i, t := range times {
		out[i] = interpolateAt(sol.T, values, t)
	}
	return out
}

func interpolateAt(times, values []float64, t float64) float64 {
	if t <= times[0] {
		return values[0]
	}
	last := len(times) - 1
	if t >= times[last] {
		return values[last]
	}
	i := sort.SearchFloat64s(times, t)
	dt := times[i] - times[i-1]
	if dt == 0 {
		return values[i-1]
	}
	alpha := (t - times[i-1]) / dt
	return values[i-1]*(1-alpha) + values[i]*alpha
}

// GenerateUniformTimes returns n evenly spaced sampling times in [t0, tf].
func GenerateUniformTimes(t0, tf float64, n int) []float64 {
	times := make([]float64, n)
	if n == 1 {
		times[0] = t0
		return times
	}
	dt := (tf - t0) / float64(n-1)
	for i := range times {
		times[i] = t0 + float64(i)*dt
	}
	return times
}
