// Package rules splits model assignment rules into static bindings, which
// can be evaluated once from constants, and dynamic bindings that must be
// re-evaluated on every right-hand-side call.
package rules

import (
	"log/slog"

	"github.com/Crispae/wasm-pk/air"
)

// Rule is a single assignment rule: Variable is bound to Expr.
type Rule struct {
	Variable string
	Expr     air.Expr
}

// Classify partitions rules into a static set, ordered so that every rule
// follows the rules it reads from, and a dynamic set in a valid intra-dynamic
// evaluation order.
//
// staticKnown names symbols that are constant over a simulation (parameters
// and compartment sizes). dynamicKnown names symbols that vary (species);
// the time symbols "t" and "time" are always dynamic. A rule is dynamic when
// any free symbol is dynamic, references a dynamic rule, or is entirely
// unknown; it is static when every free symbol is a constant or another
// static rule. Classification runs as a fixed point over at most
// len(rules)+1 passes. If a pass makes no progress the remaining rules are
// forced dynamic rather than rejected, so cyclic definitions degrade instead
// of failing; use SortStrict where a cycle must be an error.
func Classify(rules []Rule, staticKnown, dynamicKnown []string) (static, dynamic []Rule) {
	staticVars := make(map[string]struct{}, len(staticKnown))
	for _, name := range staticKnown {
		staticVars[name] = struct{}{}
	}
	dynamicVars := make(map[string]struct{}, len(dynamicKnown)+2)
	for _, name := range dynamicKnown {
		dynamicVars[name] = struct{}{}
	}
	dynamicVars["t"] = struct{}{}
	dynamicVars["time"] = struct{}{}

	isRuleTarget := make(map[string]struct{}, len(rules))
	for _, r := range rules {
		isRuleTarget[r.Variable] = struct{}{}
	}

	classified := make(map[string]struct{}, len(rules))
	maxPasses := len(rules) + 1

	for pass := 0; pass < maxPasses && len(classified) < len(rules); pass++ {
		progress := false
		for _, r := range rules {
			if _, done := classified[r.Variable]; done {
				continue
			}
			toDynamic := false
			deferred := false
			for sym := range air.FreeSymbols(r.Expr) {
				if _, ok := dynamicVars[sym]; ok {
					toDynamic = true
					continue
				}
				if _, target := isRuleTarget[sym]; target {
					if _, done := classified[sym]; !done {
						deferred = true
					}
					continue
				}
				if _, ok := staticVars[sym]; !ok {
					// Not a constant and not defined by any rule:
					// assume it varies.
					toDynamic = true
				}
			}
			switch {
			case toDynamic:
				dynamic = append(dynamic, r)
				dynamicVars[r.Variable] = struct{}{}
				classified[r.Variable] = struct{}{}
				progress = true
			case deferred:
				// Revisit once the rules it reads from are classified.
			default:
				static = append(static, r)
				staticVars[r.Variable] = struct{}{}
				classified[r.Variable] = struct{}{}
				progress = true
			}
		}
		if !progress {
			var forced []string
			for _, r := range rules {
				if _, done := classified[r.Variable]; done {
					continue
				}
				dynamic = append(dynamic, r)
				dynamicVars[r.Variable] = struct{}{}
				classified[r.Variable] = struct{}{}
				forced = append(forced, r.Variable)
			}
			slog.Warn("assignment rules did not settle, treating remainder as dynamic",
				"variables", forced,
			)
			break
		}
	}

	return sortByDependency(static), sortByDependency(dynamic)
}

// sortByDependency orders rules so that each one comes after the rules whose
// targets it reads. Symbols outside the list are assumed already defined.
// If a dependency cycle remains, the leftover rules keep declaration order.
func sortByDependency(list []Rule) []Rule {
	if len(list) < 2 {
		return list
	}
	targets := make(map[string]struct{}, len(list))
	for _, r := range list {
		targets[r.Variable] = struct{}{}
	}
	deps := make([]map[string]struct{}, len(list))
	for i, r := range list {
		d := make(map[string]struct{})
		for sym := range air.FreeSymbols(r.Expr) {
			if sym == r.Variable {
				continue
			}
			if _, ok := targets[sym]; ok {
				d[sym] = struct{}{}
			}
		}
		deps[i] = d
	}

	defined := make(map[string]struct{}, len(list))
	emitted := make([]bool, len(list))
	ordered := make([]Rule, 0, len(list))
	for range list {
		progress := false
		for i, r := range list {
			if emitted[i] {
				continue
			}
			ready := true
			for dep := range deps[i] {
				if _, ok := defined[dep]; !ok {
					ready = false
					break
				}
			}
			if !ready {
				continue
			}
			ordered = append(ordered, r)
			defined[r.Variable] = struct{}{}
			emitted[i] = true
			progress = true
		}
		if !progress {
			break
		}
	}
	for i, r := range list {
		if !emitted[i] {
			ordered = append(ordered, r)
		}
	}
	return ordered
}
