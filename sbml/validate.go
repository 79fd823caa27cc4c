package sbml

import (
	"fmt"
	"log/slog"
)

// Validate checks the model for constructs the compiler cannot handle
// and for broken cross-references. A failed validation aborts the
// compile; recoverable oddities (a reaction referencing a species the
// model never declares) are logged and tolerated because the model may
// intentionally reference species outside the simulated subset.
func (m *Model) Validate() error {
	if len(m.Species) == 0 {
		return ErrNoSpecies
	}
	if len(m.RateRules) > 0 {
		return fmt.Errorf("%w: %d rate rules (only assignment semantics are supported)", ErrUnsupportedConstruct, len(m.RateRules))
	}

	seen := make(map[string]string)
	check := func(id, kind string) error {
		if id == "" {
			return nil
		}
		if prev, dup := seen[id]; dup {
			return fmt.Errorf("%w: %q used by %s and %s", ErrDuplicateID, id, prev, kind)
		}
		seen[id] = kind
		return nil
	}
	for _, s := range m.Species {
		if err := check(s.ID, "species"); err != nil {
			return err
		}
	}
	for _, p := range m.Parameters {
		if err := check(p.ID, "parameter"); err != nil {
			return err
		}
	}
	for _, c := range m.Compartments {
		if err := check(c.ID, "compartment"); err != nil {
			return err
		}
	}

	compartments := make(map[string]struct{}, len(m.Compartments))
	for _, c := range m.Compartments {
		compartments[c.ID] = struct{}{}
	}
	for _, s := range m.Species {
		if s.Compartment == "" {
			continue
		}
		if _, ok := compartments[s.Compartment]; !ok {
			return fmt.Errorf("%w: species %q references %q", ErrUnknownCompartment, s.ID, s.Compartment)
		}
	}

	index := m.SpeciesIndex()
	for _, rxn := range m.Reactions {
		for _, ref := range append(append([]SpeciesRef{}, rxn.Reactants...), rxn.Products...) {
			if _, ok := index[ref.Species]; !ok {
				slog.Warn("reaction references undeclared species",
					"reaction", rxn.ID, "species", ref.Species)
			}
		}
	}

	for _, ev := range m.Events {
		if ev.Delay != "" {
			slog.Warn("event delay is not supported and will be ignored",
				"event", ev.ID)
		}
	}
	return nil
}
