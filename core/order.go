package core

import (
	"fmt"
	"sort"
)

// topoSort orders entries so that every module follows its dependencies.
// Iteration is by name, which keeps the order stable across runs.
func topoSort(entries map[string]*entry) ([]*entry, error) {
	visited := map[string]bool{}
	temp := map[string]bool{}
	out := make([]*entry, 0, len(entries))

	var visit func(string) error
	visit = func(n string) error {
		if temp[n] {
			return fmt.Errorf("%w at module %s", ErrDependencyCycle, n)
		}
		if visited[n] {
			return nil
		}
		temp[n] = true
		e := entries[n]
		for _, d := range e.deps {
			if _, ok := entries[d]; !ok {
				return fmt.Errorf("%w: %s depends on %s", ErrMissingDependency, n, d)
			}
			if err := visit(d); err != nil {
				return err
			}
		}
		visited[n] = true
		temp[n] = false
		out = append(out, e)
		return nil
	}

	names := make([]string, 0, len(entries))
	for n := range entries {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, n := range names {
		if err := visit(n); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// levels groups a topologically sorted slice so that the dependencies of
// every entry live in a strictly earlier group.
func levels(order []*entry) [][]*entry {
	depth := make(map[string]int, len(order))
	var out [][]*entry
	for _, e := range order {
		d := 0
		for _, dep := range e.deps {
			if depth[dep]+1 > d {
				d = depth[dep] + 1
			}
		}
		depth[e.name] = d
		if d == len(out) {
			out = append(out, nil)
		}
		out[d] = append(out[d], e)
	}
	return out
}
