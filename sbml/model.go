// Package sbml defines the structured model record produced by the
// external SBML reader and consumed read-only by the compiler. The
// record arrives as JSON keyed by component ID; declaration order is
// preserved during decoding because it fixes the state-vector layout
// and the generated parameter struct layout.
package sbml

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// ValueType discriminates how a species initial value is interpreted.
const (
	ValueTypeAmount        = "Amount"
	ValueTypeConcentration = "Concentration"
)

// Species is one chemical species of the reaction network.
type Species struct {
	ID                    string  `json:"Id"`
	Name                  string  `json:"name"`
	Value                 float64 `json:"value"`
	ValueType             string  `json:"valueType"`
	Compartment           string  `json:"compartment"`
	IsConstant            bool    `json:"isConstant"`
	IsBoundarySpecies     bool    `json:"isBoundarySpecies"`
	HasOnlySubstanceUnits bool    `json:"hasOnlySubstanceUnits"`
}

// Parameter is a named numeric constant of the model.
type Parameter struct {
	ID         string  `json:"Id"`
	Name       string  `json:"name"`
	Value      float64 `json:"value"`
	IsConstant bool    `json:"isConstant"`
}

// Compartment is a reaction volume.
type Compartment struct {
	ID             string  `json:"Id"`
	Name           string  `json:"name"`
	Size           float64 `json:"size"`
	Dimensionality int     `json:"dimensionality"`
	IsConstant     bool    `json:"isConstant"`
}

// SpeciesRef is one (stoichiometry, species) entry of a reaction,
// serialized as a two-element [number, string] array.
type SpeciesRef struct {
	Stoichiometry float64
	Species       string
}

// UnmarshalJSON decodes the [stoichiometry, speciesId] pair form.
func (r *SpeciesRef) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("%w: species reference needs [stoichiometry, id], got %d elements", ErrBadDocument, len(pair))
	}
	if err := json.Unmarshal(pair[0], &r.Stoichiometry); err != nil {
		return fmt.Errorf("%w: stoichiometry: %v", ErrBadDocument, err)
	}
	if err := json.Unmarshal(pair[1], &r.Species); err != nil {
		return fmt.Errorf("%w: species id: %v", ErrBadDocument, err)
	}
	return nil
}

// MarshalJSON re-encodes the pair form.
func (r SpeciesRef) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{r.Stoichiometry, r.Species})
}

// LocalParameter is a reaction-scoped parameter, serialized as a
// two-element [id, value] array.
type LocalParameter struct {
	ID    string
	Value float64
}

// UnmarshalJSON decodes the [id, value] pair form.
func (p *LocalParameter) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("%w: local parameter needs [id, value], got %d elements", ErrBadDocument, len(pair))
	}
	if err := json.Unmarshal(pair[0], &p.ID); err != nil {
		return fmt.Errorf("%w: local parameter id: %v", ErrBadDocument, err)
	}
	if err := json.Unmarshal(pair[1], &p.Value); err != nil {
		return fmt.Errorf("%w: local parameter value: %v", ErrBadDocument, err)
	}
	return nil
}

// MarshalJSON re-encodes the pair form.
func (p LocalParameter) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{p.ID, p.Value})
}

// Reaction is one reaction with its stoichiometry and rate law.
type Reaction struct {
	ID            string           `json:"Id"`
	Name          string           `json:"name"`
	Reactants     []SpeciesRef     `json:"reactants"`
	Products      []SpeciesRef     `json:"products"`
	RxnParameters []LocalParameter `json:"rxnParameters"`
	RateLaw       string           `json:"rateLaw"`
}

// Function is a user-defined function available to rate laws and rules.
type Function struct {
	ID         string   `json:"Id"`
	Name       string   `json:"name"`
	Arguments  []string `json:"arguments"`
	MathString string   `json:"mathString"`
}

// Rule is an assignment rule, rate rule or initial assignment: a target
// variable and the expression assigned to it.
type Rule struct {
	ID       string `json:"Id"`
	Name     string `json:"name"`
	Variable string `json:"variable"`
	Math     string `json:"math"`
}

// EventAssignment is one variable update applied when an event fires.
type EventAssignment struct {
	Variable string `json:"variable"`
	Math     string `json:"math"`
}

// Event is a triggered discontinuity: when the trigger expression
// flips to true, the assignments are applied to the state.
type Event struct {
	ID                       string            `json:"Id"`
	Name                     string            `json:"name"`
	Trigger                  string            `json:"trigger"`
	Delay                    string            `json:"delay"`
	UseValuesFromTriggerTime bool              `json:"useValuesFromTriggerTime"`
	EventAssignments         []EventAssignment `json:"eventAssignments"`
}

// Model is the full structured record of one SBML model. Component
// slices preserve document declaration order.
type Model struct {
	Name               string
	Parameters         []Parameter
	Compartments       []Compartment
	Species            []Species
	Reactions          []Reaction
	Functions          []Function
	AssignmentRules    []Rule
	RateRules          []Rule
	InitialAssignments []Rule
	Events             []Event
}

// UnmarshalJSON decodes the reader's document. Top-level sections are
// JSON objects keyed by component ID; key order in the document is the
// declaration order and is preserved.
func (m *Model) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name               string          `json:"name"`
		Parameters         json.RawMessage `json:"parameters"`
		Compartments       json.RawMessage `json:"compartments"`
		Species            json.RawMessage `json:"species"`
		Reactions          json.RawMessage `json:"reactions"`
		Functions          json.RawMessage `json:"functions"`
		AssignmentRules    json.RawMessage `json:"assignmentRules"`
		RateRules          json.RawMessage `json:"rateRules"`
		InitialAssignments json.RawMessage `json:"initialAssignments"`
		Events             json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrBadDocument, err)
	}
	m.Name = raw.Name

	var err error
	if m.Parameters, err = decodeSection[Parameter](raw.Parameters, func(p *Parameter, id string) {
		if p.ID == "" {
			p.ID = id
		}
	}); err != nil {
		return fmt.Errorf("parameters: %w", err)
	}
	if m.Compartments, err = decodeSection[Compartment](raw.Compartments, func(c *Compartment, id string) {
		if c.ID == "" {
			c.ID = id
		}
	}); err != nil {
		return fmt.Errorf("compartments: %w", err)
	}
	if m.Species, err = decodeSection[Species](raw.Species, func(s *Species, id string) {
		if s.ID == "" {
			s.ID = id
		}
	}); err != nil {
		return fmt.Errorf("species: %w", err)
	}
	if m.Reactions, err = decodeSection[Reaction](raw.Reactions, func(r *Reaction, id string) {
		if r.ID == "" {
			r.ID = id
		}
	}); err != nil {
		return fmt.Errorf("reactions: %w", err)
	}
	if m.Functions, err = decodeSection[Function](raw.Functions, func(f *Function, id string) {
		if f.ID == "" {
			f.ID = id
		}
	}); err != nil {
		return fmt.Errorf("functions: %w", err)
	}
	fixRule := func(r *Rule, id string) {
		if r.ID == "" {
			r.ID = id
		}
		if r.Variable == "" {
			r.Variable = id
		}
	}
	if m.AssignmentRules, err = decodeSection[Rule](raw.AssignmentRules, fixRule); err != nil {
		return fmt.Errorf("assignmentRules: %w", err)
	}
	if m.RateRules, err = decodeSection[Rule](raw.RateRules, fixRule); err != nil {
		return fmt.Errorf("rateRules: %w", err)
	}
	if m.InitialAssignments, err = decodeSection[Rule](raw.InitialAssignments, fixRule); err != nil {
		return fmt.Errorf("initialAssignments: %w", err)
	}
	if m.Events, err = decodeSection[Event](raw.Events, func(e *Event, id string) {
		if e.ID == "" {
			e.ID = id
		}
	}); err != nil {
		return fmt.Errorf("events: %w", err)
	}
	return nil
}

// decodeSection walks an {"id": {...}, ...} object with a token
// decoder so document order survives, which map decoding would lose.
func decodeSection[T any](data json.RawMessage, fix func(*T, string)) ([]T, error) {
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadDocument, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("%w: expected object, got %v", ErrBadDocument, tok)
	}
	var out []T
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadDocument, err)
		}
		key, _ := keyTok.(string)
		var v T
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("%w: component %q: %v", ErrBadDocument, key, err)
		}
		fix(&v, key)
		out = append(out, v)
	}
	return out, nil
}

// Decode parses a model document from bytes.
func Decode(data []byte) (*Model, error) {
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Load reads and parses a model document from disk.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	m, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("parse model %s: %w", path, err)
	}
	return m, nil
}

// SpeciesIndex returns the species-id → state-vector-index bijection.
// Indices follow declaration order with no gaps.
func (m *Model) SpeciesIndex() map[string]int {
	idx := make(map[string]int, len(m.Species))
	for i, s := range m.Species {
		idx[s.ID] = i
	}
	return idx
}

// SpeciesIDs returns the species IDs in declaration order.
func (m *Model) SpeciesIDs() []string {
	ids := make([]string, len(m.Species))
	for i, s := range m.Species {
		ids[i] = s.ID
	}
	return ids
}

// MergedParameters returns the global parameter namespace: model
// parameters followed by reaction-local parameters, the latter
// qualified as reactionID_paramID when their plain name collides with
// an existing entry. The second result lists qualified names for
// warning logs.
func (m *Model) MergedParameters() ([]Parameter, []string) {
	out := make([]Parameter, 0, len(m.Parameters))
	seen := make(map[string]struct{}, len(m.Parameters))
	for _, p := range m.Parameters {
		out = append(out, p)
		seen[p.ID] = struct{}{}
	}
	var qualified []string
	for _, rxn := range m.Reactions {
		for _, lp := range rxn.RxnParameters {
			id := lp.ID
			if _, taken := seen[id]; taken {
				id = rxn.ID + "_" + lp.ID
				qualified = append(qualified, id)
			}
			seen[id] = struct{}{}
			out = append(out, Parameter{ID: id, Value: lp.Value, IsConstant: true})
		}
	}
	return out, qualified
}

// WithParameters returns a copy of the model with the given global
// parameter values replaced. Names that match no parameter are ignored;
// reaction-local parameters are not overridable through this path. The
// copy shares all other component slices with the receiver.
func (m *Model) WithParameters(overrides map[string]float64) *Model {
	clone := *m
	clone.Parameters = make([]Parameter, len(m.Parameters))
	copy(clone.Parameters, m.Parameters)
	for i := range clone.Parameters {
		if v, ok := overrides[clone.Parameters[i].ID]; ok {
			clone.Parameters[i].Value = v
		}
	}
	return &clone
}

// Summary describes the model's component counts for logs and tooling.
type Summary struct {
	Name               string `json:"name"`
	Species            int    `json:"species"`
	Parameters         int    `json:"parameters"`
	Compartments       int    `json:"compartments"`
	Reactions          int    `json:"reactions"`
	Functions          int    `json:"functions"`
	AssignmentRules    int    `json:"assignmentRules"`
	RateRules          int    `json:"rateRules"`
	InitialAssignments int    `json:"initialAssignments"`
	Events             int    `json:"events"`
}

// Summarize returns the component counts of the model.
func (m *Model) Summarize() Summary {
	return Summary{
		Name:               m.Name,
		Species:            len(m.Species),
		Parameters:         len(m.Parameters),
		Compartments:       len(m.Compartments),
		Reactions:          len(m.Reactions),
		Functions:          len(m.Functions),
		AssignmentRules:    len(m.AssignmentRules),
		RateRules:          len(m.RateRules),
		InitialAssignments: len(m.InitialAssignments),
		Events:             len(m.Events),
	}
}
