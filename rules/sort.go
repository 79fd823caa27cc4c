package rules

import (
	"fmt"
	"strings"

	"github.com/Crispae/wasm-pk/air"
)

// SortStrict orders rules so that each one comes after the rules whose
// targets it reads, using an in-degree count over the dependency graph.
// Unlike Classify it does not degrade on cycles: if any rules remain
// unplaceable it returns ErrCircularDependency naming them.
func SortStrict(list []Rule) ([]Rule, error) {
	index := make(map[string]int, len(list))
	for i, r := range list {
		index[r.Variable] = i
	}

	inDegree := make([]int, len(list))
	dependents := make([][]int, len(list))
	for i, r := range list {
		for sym := range air.FreeSymbols(r.Expr) {
			j, ok := index[sym]
			if !ok || j == i {
				continue
			}
			inDegree[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	queue := make([]int, 0, len(list))
	for i := range list {
		if inDegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	ordered := make([]Rule, 0, len(list))
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		ordered = append(ordered, list[cur])
		for _, next := range dependents[cur] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(ordered) != len(list) {
		var stuck []string
		for i, r := range list {
			if inDegree[i] > 0 {
				stuck = append(stuck, r.Variable)
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrCircularDependency, strings.Join(stuck, ", "))
	}
	return ordered, nil
}
