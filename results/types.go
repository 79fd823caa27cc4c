// Package results defines the structured output format for simulation
// previews, together with trajectory analysis and parameter sweeps.
package results

import "time"

const SchemaVersion = "1.0.0"

// Results contains complete simulation output
type Results struct {
	Version    string     `json:"version"`
	Metadata   Metadata   `json:"metadata"`
	Model      Model      `json:"model"`
	Simulation Simulation `json:"simulation"`
	Results    Data       `json:"results"`
	Analysis   *Analysis  `json:"analysis,omitempty"`
}

// Metadata contains simulation execution information
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	Solver      string    `json:"solver"`
	Status      string    `json:"status"` // success, error, incomplete
	Error       string    `json:"error,omitempty"`
	ComputeTime float64   `json:"computeTime"` // seconds
}

// Model summarizes the reaction network structure
type Model struct {
	Name      string   `json:"name,omitempty"`
	Species   []string `json:"species"`
	Reactions int      `json:"reactions"`
	Rules     int      `json:"rules"`
}

// Simulation contains the inputs the trajectory was produced from
type Simulation struct {
	Timespan     [2]float64         `json:"timespan"`
	InitialState map[string]float64 `json:"initialState"`
	Parameters   map[string]float64 `json:"parameters"`
	Options      *SolverOptions     `json:"options,omitempty"`
}

// SolverOptions contains solver configuration
type SolverOptions struct {
	Dt       float64 `json:"dt,omitempty"`
	Abstol   float64 `json:"abstol,omitempty"`
	Reltol   float64 `json:"reltol,omitempty"`
	Adaptive bool    `json:"adaptive"`
}

// Data contains the simulation results
type Data struct {
	Summary    Summary    `json:"summary"`
	Timeseries Timeseries `json:"timeseries"`
}

// Summary provides quick overview
type Summary struct {
	Points     int                `json:"points"`
	FinalTime  float64            `json:"finalTime"`
	FinalState map[string]float64 `json:"finalState"`
}

// Timeseries contains multi-resolution time series data
type Timeseries struct {
	Time      TimeData              `json:"time"`
	Variables map[string]SeriesData `json:"variables"`
}

// TimeData holds time vectors at different resolutions
type TimeData struct {
	Full        []float64 `json:"full,omitempty"`
	Downsampled []float64 `json:"downsampled"`
}

// SeriesData holds values at different resolutions
type SeriesData struct {
	Full        []float64 `json:"full,omitempty"`
	Downsampled []float64 `json:"downsampled"`
}

// Analysis contains automatically computed insights
type Analysis struct {
	Peaks       []Peak              `json:"peaks,omitempty"`
	Troughs     []Peak              `json:"troughs,omitempty"`
	Crossings   []Crossing          `json:"crossings,omitempty"`
	SteadyState *SteadyState        `json:"steadyState,omitempty"`
	Exposure    map[string]Exposure `json:"exposure,omitempty"`
	MassBalance *MassBalance        `json:"massBalance,omitempty"`
	Statistics  map[string]Stat     `json:"statistics,omitempty"`
}

// Peak represents a local maximum or minimum
type Peak struct {
	Variable   string  `json:"variable"`
	Time       float64 `json:"time"`
	Value      float64 `json:"value"`
	Prominence float64 `json:"prominence,omitempty"`
}

// Crossing represents where two variables intersect
type Crossing struct {
	Var1  string  `json:"var1"`
	Var2  string  `json:"var2"`
	Time  float64 `json:"time"`
	Value float64 `json:"value"`
}

// SteadyState contains equilibrium analysis
type SteadyState struct {
	Reached   bool               `json:"reached"`
	Time      float64            `json:"time,omitempty"`
	Values    map[string]float64 `json:"values,omitempty"`
	Tolerance float64            `json:"tolerance"`
}

// Exposure holds the standard exposure metrics of one variable over the
// simulated span: area under the curve by the trapezoid rule, the
// maximum level and the time it occurs.
type Exposure struct {
	AUC  float64 `json:"auc"`
	Cmax float64 `json:"cmax"`
	Tmax float64 `json:"tmax"`
}

// MassBalance compares total amount across the run. Open systems with
// elimination reactions are expected to lose mass.
type MassBalance struct {
	Initial   float64 `json:"initial"`
	Final     float64 `json:"final"`
	Conserved bool    `json:"conserved"`
}

// Stat contains statistical summary
type Stat struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
}
