package rust

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Crispae/wasm-pk/air"
	"github.com/Crispae/wasm-pk/odesys"
	"github.com/Crispae/wasm-pk/sbml"
)

// EventBlocks holds the rendered event sections. All fields are empty
// when the model declares no events, and the template omits them.
type EventBlocks struct {
	// RootFn is the closure turning each trigger into a sign-crossing
	// root function.
	RootFn string
	// Handling is the solver-loop match arm that applies event
	// assignments when a root fires.
	Handling string
	// Registration is the builder call wiring RootFn in.
	Registration string
	// Exprs lists every parsed trigger and assignment expression, so
	// callers can account for the symbols events read.
	Exprs []air.Expr
	// Count is the number of registered roots.
	Count int
}

// Events renders the discrete-event sections for the given model
// events. Triggers that fail to parse are disabled with a warning
// rather than aborting the build, and assignments to parameters are
// skipped since parameter bindings cannot change mid-run.
func (w *BlockWriter) Events(events []sbml.Event, speciesIndex map[string]int, parse odesys.ParseFunc) EventBlocks {
	if len(events) == 0 {
		return EventBlocks{}
	}

	var blocks EventBlocks
	triggers := make([]air.Expr, len(events))
	for i, ev := range events {
		expr, err := parse(ev.Trigger)
		if err != nil {
			slog.Warn("Event trigger not convertible, event disabled",
				"event", ev.ID,
				"error", err)
			continue
		}
		triggers[i] = expr
		blocks.Exprs = append(blocks.Exprs, expr)
	}

	blocks.RootFn = w.rootFunction(events, triggers, speciesIndex)
	blocks.Handling = w.eventHandling(events, speciesIndex, parse, &blocks.Exprs)
	blocks.Registration = fmt.Sprintf(".root(%d, root_fn)", len(events))
	blocks.Count = len(events)
	return blocks
}

// rootFunction renders the closure evaluating every trigger as a
// signed distance from its switching point. Boolean triggers map to
// +0.5 when true and -0.5 when false, so the solver sees a sign change
// exactly when the condition flips.
func (w *BlockWriter) rootFunction(events []sbml.Event, triggers []air.Expr, speciesIndex map[string]int) string {
	used := UsedSymbols(compact(triggers))
	_, usesTime := used["t"]

	yParam, tParam := "_y", "_t"
	extract := w.triggerExtraction(used, speciesIndex)
	if extract != "" {
		yParam = "y"
	}
	if usesTime {
		tParam = "t"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "    let root_fn = |%s: &diffsol::NalgebraVec<f64>, _p: &diffsol::NalgebraVec<f64>, %s: f64, roots: &mut diffsol::NalgebraVec<f64>| {\n", yParam, tParam)
	if extract != "" {
		b.WriteString(extract)
		b.WriteString("\n")
	}
	for i, ev := range events {
		fmt.Fprintf(&b, "        // Event %s: %s\n", ev.ID, strings.TrimSpace(ev.Trigger))
		if triggers[i] == nil {
			fmt.Fprintf(&b, "        roots[%d] = 1.0; // trigger not convertible, never fires\n", i)
			continue
		}
		fmt.Fprintf(&b, "        roots[%d] = (%s) as i32 as f64 - 0.5;\n", i, w.p.Print(triggers[i]))
	}
	b.WriteString("    };")
	return b.String()
}

// triggerExtraction binds the species a trigger reads from the state
// vector passed to the root closure.
func (w *BlockWriter) triggerExtraction(used map[string]struct{}, speciesIndex map[string]int) string {
	ids := make([]string, 0, len(used))
	for sym := range used {
		if _, ok := speciesIndex[sym]; ok {
			ids = append(ids, sym)
		}
	}
	sort.Strings(ids)
	lines := make([]string, len(ids))
	for i, id := range ids {
		lines[i] = fmt.Sprintf("        let %s = y[%d];", id, speciesIndex[id])
	}
	return strings.Join(lines, "\n")
}

// eventHandling renders the RootFound arm of the solver loop. Species
// references inside assignment expressions are rewritten to state
// reads so the arm evaluates against the interpolated event-time state.
func (w *BlockWriter) eventHandling(events []sbml.Event, speciesIndex map[string]int, parse odesys.ParseFunc, exprs *[]air.Expr) string {
	var b strings.Builder
	b.WriteString("            Ok(OdeSolverStopReason::RootFound(root_idx)) => {\n")
	b.WriteString("                console_log!(\"Event triggered at t={}\", solver.state().t);\n")
	b.WriteString("                match root_idx {\n")
	for i, ev := range events {
		fmt.Fprintf(&b, "                    %d => {\n", i)
		fmt.Fprintf(&b, "                        // Event: %s\n", ev.ID)
		for _, ea := range ev.EventAssignments {
			w.writeAssignment(&b, ev.ID, ea, speciesIndex, parse, exprs)
		}
		b.WriteString("                    },\n")
	}
	b.WriteString("                    _ => console_log!(\"Unknown event index: {}\", root_idx),\n")
	b.WriteString("                }\n")
	b.WriteString("            },")
	return b.String()
}

func (w *BlockWriter) writeAssignment(b *strings.Builder, eventID string, ea sbml.EventAssignment, speciesIndex map[string]int, parse odesys.ParseFunc, exprs *[]air.Expr) {
	idx, isSpecies := speciesIndex[ea.Variable]
	if !isSpecies {
		slog.Warn("Event assigns a non-species target, skipping",
			"event", eventID,
			"variable", ea.Variable)
		fmt.Fprintf(b, "                        // WARNING: Cannot modify parameter %s during simulation\n", ea.Variable)
		fmt.Fprintf(b, "                        console_log!(\"  Skipping parameter assignment: %s\");\n", ea.Variable)
		return
	}
	expr, err := parse(ea.Math)
	if err != nil {
		slog.Warn("Event assignment not convertible, skipping",
			"event", eventID,
			"variable", ea.Variable,
			"error", err)
		fmt.Fprintf(b, "                        // assignment for %s skipped: expression not convertible\n", ea.Variable)
		return
	}
	*exprs = append(*exprs, expr)
	value := w.p.Print(stateReads(expr, speciesIndex))
	fmt.Fprintf(b, "                        solver.state_mut().y[%d] = %s;\n", idx, value)
	fmt.Fprintf(b, "                        console_log!(\"  %s = {}\", %s);\n", ea.Variable, value)
}

// stateReads replaces species symbols and the time symbol with solver
// state accesses, since the event arm runs outside the RHS closures
// where species bindings exist.
func stateReads(e air.Expr, speciesIndex map[string]int) air.Expr {
	subs := make(map[string]air.Expr, len(speciesIndex)+1)
	for id, idx := range speciesIndex {
		subs[id] = air.Sym(fmt.Sprintf("solver.state().y[%d]", idx))
	}
	subs["t"] = air.Sym("solver.state().t")
	return air.Substitute(e, subs)
}

func compact(exprs []air.Expr) []air.Expr {
	out := make([]air.Expr, 0, len(exprs))
	for _, e := range exprs {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}
